// Package session implements per-client delivery state.
//
// Each downstream consumer owns one Session holding a fixed-capacity event
// queue. The queue never blocks its producer: when full it drops the oldest
// buffered event to admit the newest, so a slow consumer bounds its own
// memory and never stalls dispatch to other clients.
package session
