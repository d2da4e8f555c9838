// Package database provides the PostgreSQL connection pool for portfolio holdings.
//
// The database is optional: the relay streams prices without it, and the
// holdings and analytics routes are disabled when no host is configured.
package database
