// Package sqlstore provides the relational DocumentStore.
//
// Two dialects share one implementation: SQLite (modernc.org/sqlite, the
// default, no cgo) and MySQL (github.com/go-sql-driver/mysql). Each dialect
// carries its own embedded migrations and upsert statement; queries are
// otherwise identical and always parameterised.
package sqlstore
