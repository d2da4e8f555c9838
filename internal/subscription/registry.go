package subscription

import (
	"slices"
	"sync"
)

// Stats contains registry statistics.
type Stats struct {
	Clients int `json:"clients"`
	Symbols int `json:"symbols"`
}

// Registry is the client/symbol index. Safe for concurrent use.
type Registry struct {
	mu            sync.RWMutex
	clientSymbols map[string]map[string]struct{}
	symbolClients map[string]map[string]struct{}
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		clientSymbols: make(map[string]map[string]struct{}),
		symbolClients: make(map[string]map[string]struct{}),
	}
}

// Attach records that clientID wants symbol.
// Returns true when symbol went from zero subscribers to one.
func (r *Registry) Attach(clientID, symbol string) bool {
	if clientID == "" || symbol == "" {
		return false
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	syms, ok := r.clientSymbols[clientID]
	if !ok {
		syms = make(map[string]struct{})
		r.clientSymbols[clientID] = syms
	}
	if _, ok := syms[symbol]; ok {
		return false
	}
	syms[symbol] = struct{}{}

	clients, ok := r.symbolClients[symbol]
	if !ok {
		clients = make(map[string]struct{})
		r.symbolClients[symbol] = clients
	}
	clients[clientID] = struct{}{}

	return len(clients) == 1
}

// Detach removes clientID's interest in symbol.
// Returns true when symbol went from one subscriber to zero.
func (r *Registry) Detach(clientID, symbol string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.detachLocked(clientID, symbol)
}

func (r *Registry) detachLocked(clientID, symbol string) bool {
	syms, ok := r.clientSymbols[clientID]
	if !ok {
		return false
	}
	if _, ok := syms[symbol]; !ok {
		return false
	}
	delete(syms, symbol)
	if len(syms) == 0 {
		delete(r.clientSymbols, clientID)
	}

	clients := r.symbolClients[symbol]
	delete(clients, clientID)
	if len(clients) == 0 {
		delete(r.symbolClients, symbol)
		return true
	}
	return false
}

// DetachAll releases every symbol held by clientID and forgets the client.
// Returns the symbols whose subscriber count dropped to zero, sorted.
func (r *Registry) DetachAll(clientID string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	syms, ok := r.clientSymbols[clientID]
	if !ok {
		return nil
	}

	var released []string
	for symbol := range syms {
		if r.detachLocked(clientID, symbol) {
			released = append(released, symbol)
		}
	}
	delete(r.clientSymbols, clientID)

	slices.Sort(released)
	return released
}

// ActiveSymbols returns every symbol with at least one subscriber, sorted.
func (r *Registry) ActiveSymbols() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]string, 0, len(r.symbolClients))
	for symbol := range r.symbolClients {
		out = append(out, symbol)
	}
	slices.Sort(out)
	return out
}

// SubscribersOf returns the clients subscribed to symbol.
// Unknown symbols yield an empty result.
func (r *Registry) SubscribersOf(symbol string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	clients, ok := r.symbolClients[symbol]
	if !ok {
		return nil
	}
	out := make([]string, 0, len(clients))
	for id := range clients {
		out = append(out, id)
	}
	return out
}

// SymbolsOf returns the symbols clientID is subscribed to, sorted.
func (r *Registry) SymbolsOf(clientID string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	syms, ok := r.clientSymbols[clientID]
	if !ok {
		return nil
	}
	out := make([]string, 0, len(syms))
	for symbol := range syms {
		out = append(out, symbol)
	}
	slices.Sort(out)
	return out
}

// Count returns the number of subscribers for symbol.
func (r *Registry) Count(symbol string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.symbolClients[symbol])
}

// Stats returns registry statistics.
func (r *Registry) Stats() Stats {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return Stats{
		Clients: len(r.clientSymbols),
		Symbols: len(r.symbolClients),
	}
}
