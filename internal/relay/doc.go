// Package relay implements the stream relay engine.
//
// The Engine owns the subscription registry, the client sessions, the
// upstream connector and the dispatcher, and exposes the client-facing API
// used by the downstream transport: register, unregister, subscribe,
// unsubscribe and forward.
//
// Registry changes and the upstream commands they trigger are serialized
// under one mutex, which the connector also takes while replaying
// subscriptions after a reconnect.
package relay
