// Package storage provides the SQLite-backed point of sale store: typed
// repositories for products, categories, sales orders and their items, live
// query subscriptions fed by a per-table change feed, and the versioned
// schema migrator that upgrades historical database files in place.
package storage
