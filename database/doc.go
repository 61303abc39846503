// Package database connects bun to mysql, postgres or sqlite from a YAML
// or code-built Config. It creates the registered models with their
// foreign keys, runs the SQL seed files, logs and counts queries, and
// classifies driver errors with IsSqlError.
package database
