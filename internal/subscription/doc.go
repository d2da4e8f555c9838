// Package subscription tracks which downstream clients want which symbols.
//
// The Registry keeps a bidirectional index (client → symbols, symbol →
// clients) and reports reference-count transitions so the caller knows
// when the upstream must subscribe (0→1) or unsubscribe (1→0).
//
// Symbols are stored as given; callers normalize them first.
package subscription
