package version

import (
	"runtime"
	"testing"
)

func TestString(t *testing.T) {
	if got, want := String(), "dev (unknown) built unknown"; got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}

func TestInfo(t *testing.T) {
	info := Info()
	if info["version"] != Version {
		t.Errorf("Info()[version] = %q, want %q", info["version"], Version)
	}
	if info["go"] != runtime.Version() {
		t.Errorf("Info()[go] = %q, want %q", info["go"], runtime.Version())
	}
}
