// Package holdings stores portfolio positions in PostgreSQL.
//
// Each holding belongs to one user and records a symbol, a share quantity
// and the average cost per share.
package holdings
