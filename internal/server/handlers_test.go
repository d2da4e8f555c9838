package server

import (
	"errors"
	"net/http"
	"testing"

	"github.com/google/uuid"

	"github.com/rickgao/price-relay/internal/api"
	"github.com/rickgao/price-relay/internal/model"
	"github.com/rickgao/price-relay/internal/portfolio"
)

func TestHoldingsCRUD(t *testing.T) {
	store := newMemStore()
	s := newTestServer(Config{}, Deps{Holdings: store})
	h := s.Handler()
	user := uuid.New()

	// Create
	w := doRequest(t, h, http.MethodPost, "/holdings?user_id="+user.String(),
		`{"symbol":" aapl ","quantity":10,"avg_cost":150.5}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("create status = %d, want %d: %s", w.Code, http.StatusCreated, w.Body.String())
	}
	var created model.Holding
	decodeBody(t, w, &created)
	if created.Symbol != "AAPL" || created.Quantity != 10 || created.AvgCost != 150.5 || created.UserID != user {
		t.Errorf("created = %+v, want AAPL x10 @150.5 for %s", created, user)
	}

	// List
	w = doRequest(t, h, http.MethodGet, "/holdings?user_id="+user.String(), "")
	var list []model.Holding
	decodeBody(t, w, &list)
	if w.Code != http.StatusOK || len(list) != 1 || list[0].ID != created.ID {
		t.Errorf("list = %d %+v, want one holding %s", w.Code, list, created.ID)
	}

	// Get
	w = doRequest(t, h, http.MethodGet, "/holdings/"+created.ID.String(), "")
	if w.Code != http.StatusOK {
		t.Errorf("get status = %d, want %d", w.Code, http.StatusOK)
	}

	// Update
	w = doRequest(t, h, http.MethodPut, "/holdings/"+created.ID.String(),
		`{"symbol":"msft","quantity":3,"avg_cost":0}`)
	var updated model.Holding
	decodeBody(t, w, &updated)
	if w.Code != http.StatusOK || updated.Symbol != "MSFT" || updated.Quantity != 3 {
		t.Errorf("update = %d %+v, want MSFT x3", w.Code, updated)
	}

	// Delete
	w = doRequest(t, h, http.MethodDelete, "/holdings/"+created.ID.String(), "")
	var status map[string]string
	decodeBody(t, w, &status)
	if w.Code != http.StatusOK || status["status"] != "ok" {
		t.Errorf("delete = %d %v, want 200 ok", w.Code, status)
	}

	// Gone
	w = doRequest(t, h, http.MethodGet, "/holdings/"+created.ID.String(), "")
	var errBody map[string]string
	decodeBody(t, w, &errBody)
	if w.Code != http.StatusNotFound || errBody["error"] != "Not found" {
		t.Errorf("get after delete = %d %v, want 404 Not found", w.Code, errBody)
	}
	if w := doRequest(t, h, http.MethodDelete, "/holdings/"+created.ID.String(), ""); w.Code != http.StatusNotFound {
		t.Errorf("second delete status = %d, want %d", w.Code, http.StatusNotFound)
	}

	// Empty list is [] not null
	w = doRequest(t, h, http.MethodGet, "/holdings?user_id="+uuid.NewString(), "")
	if w.Body.String() != "[]" {
		t.Errorf("empty list body = %q, want %q", w.Body.String(), "[]")
	}
}

func TestHoldingsBadRequests(t *testing.T) {
	s := newTestServer(Config{}, Deps{Holdings: newMemStore()})
	h := s.Handler()
	user := uuid.NewString()

	tests := []struct {
		name   string
		method string
		target string
		body   string
	}{
		{"missing user_id", http.MethodGet, "/holdings", ""},
		{"bad user_id", http.MethodGet, "/holdings?user_id=123", ""},
		{"bad id", http.MethodGet, "/holdings/not-a-uuid", ""},
		{"malformed body", http.MethodPost, "/holdings?user_id=" + user, `{"symbol":`},
		{"empty symbol", http.MethodPost, "/holdings?user_id=" + user, `{"symbol":"  ","quantity":1,"avg_cost":1}`},
		{"zero quantity", http.MethodPost, "/holdings?user_id=" + user, `{"symbol":"AAPL","quantity":0,"avg_cost":1}`},
		{"negative cost", http.MethodPut, "/holdings/" + uuid.NewString(), `{"symbol":"AAPL","quantity":1,"avg_cost":-1}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doRequest(t, h, tt.method, tt.target, tt.body)
			if w.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want %d: %s", w.Code, http.StatusBadRequest, w.Body.String())
			}
		})
	}
}

func TestHoldingsUnavailable(t *testing.T) {
	s := newTestServer(Config{}, Deps{})
	w := doRequest(t, s.Handler(), http.MethodGet, "/holdings?user_id="+uuid.NewString(), "")
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want %d", w.Code, http.StatusServiceUnavailable)
	}
}

func TestHoldingsStoreError(t *testing.T) {
	store := newMemStore()
	store.err = errors.New("connection reset")
	s := newTestServer(Config{}, Deps{Holdings: store})
	w := doRequest(t, s.Handler(), http.MethodGet, "/holdings?user_id="+uuid.NewString(), "")
	if w.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want %d", w.Code, http.StatusInternalServerError)
	}
}

func TestGetQuote(t *testing.T) {
	price, change, pct := 189.5, 1.25, 0.66
	quotes := &fakeQuotes{quote: model.Quote{Price: &price, DayChange: &change, DayChangePercent: &pct}}
	s := newTestServer(Config{}, Deps{Quotes: quotes})

	w := doRequest(t, s.Handler(), http.MethodGet, "/quotes?symbol=aapl", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	want := `{"symbol":"AAPL","price":189.5,"day_change":1.25,"day_change_percent":0.66}`
	if w.Body.String() != want {
		t.Errorf("body = %s, want %s", w.Body.String(), want)
	}

	if w := doRequest(t, s.Handler(), http.MethodGet, "/quotes", ""); w.Code != http.StatusBadRequest {
		t.Errorf("missing symbol status = %d, want %d", w.Code, http.StatusBadRequest)
	}

	failing := newTestServer(Config{}, Deps{Quotes: &fakeQuotes{err: &api.APIError{StatusCode: 500}}})
	if w := doRequest(t, failing.Handler(), http.MethodGet, "/quotes?symbol=AAPL", ""); w.Code != http.StatusBadGateway {
		t.Errorf("provider failure status = %d, want %d", w.Code, http.StatusBadGateway)
	}

	disabled := newTestServer(Config{}, Deps{})
	if w := doRequest(t, disabled.Handler(), http.MethodGet, "/quotes?symbol=AAPL", ""); w.Code != http.StatusServiceUnavailable {
		t.Errorf("disabled status = %d, want %d", w.Code, http.StatusServiceUnavailable)
	}
}

func TestSearchSymbol(t *testing.T) {
	quotes := &fakeQuotes{results: []api.SearchResult{
		{Symbol: "AAPL", Description: "APPLE INC"},
		{Symbol: "APLE", Description: "APPLE HOSPITALITY REIT INC"},
	}}
	s := newTestServer(Config{}, Deps{Quotes: quotes})

	w := doRequest(t, s.Handler(), http.MethodGet, "/quotes/search/apple", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	var got []api.SearchResult
	decodeBody(t, w, &got)
	if len(got) != 1 || got[0].Symbol != "AAPL" {
		t.Errorf("results = %+v, want only AAPL", got)
	}

	empty := newTestServer(Config{}, Deps{Quotes: &fakeQuotes{}})
	if w := doRequest(t, empty.Handler(), http.MethodGet, "/quotes/search/zzzz", ""); w.Body.String() != "[]" {
		t.Errorf("no match body = %q, want %q", w.Body.String(), "[]")
	}
}

func TestAnalytics(t *testing.T) {
	user := uuid.NewString()

	t.Run("report", func(t *testing.T) {
		report := portfolio.Report{SharpeRatio: 1.23, ValueAtRisk: "-2.5%", MaxDrawdown: "-10.0%", Symbols: 2, Days: 250}
		s := newTestServer(Config{}, Deps{Analytics: &fakeAnalytics{report: report}})
		w := doRequest(t, s.Handler(), http.MethodGet, "/portfolio/analytics?user_id="+user, "")
		if w.Code != http.StatusOK {
			t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
		}
		var got portfolio.Report
		decodeBody(t, w, &got)
		if got != report {
			t.Errorf("report = %+v, want %+v", got, report)
		}
	})

	tests := []struct {
		name string
		err  error
		want int
	}{
		{"no holdings", portfolio.ErrNoHoldings, http.StatusNotFound},
		{"provider error", &api.APIError{StatusCode: 429}, http.StatusBadGateway},
		{"other error", errors.New("db down"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(Config{}, Deps{Analytics: &fakeAnalytics{err: tt.err}})
			w := doRequest(t, s.Handler(), http.MethodGet, "/portfolio/analytics?user_id="+user, "")
			if w.Code != tt.want {
				t.Errorf("status = %d, want %d", w.Code, tt.want)
			}
		})
	}

	s := newTestServer(Config{}, Deps{Analytics: &fakeAnalytics{}})
	if w := doRequest(t, s.Handler(), http.MethodGet, "/portfolio/analytics?user_id=abc", ""); w.Code != http.StatusBadRequest {
		t.Errorf("bad user_id status = %d, want %d", w.Code, http.StatusBadRequest)
	}
}
