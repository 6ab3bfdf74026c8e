package db

import (
	"database/sql"
	_ "embed"
	"fmt"
	"strings"

	_ "github.com/lib/pq"

	"github.com/praxisnote/praxisnote/internal/config"
)

// The subsystem owns exactly one table: note_embeddings. Notes and clients
// belong to the practice-management schema and are only read.
//
//go:embed migrations/001_note_embeddings.sql
var schemaSQL string

func Open(cfg config.DatabaseConfig) (*sql.DB, error) {
	dsn := cfg.DSN
	if dsn == "" {
		sslmode := cfg.SSLMode
		if sslmode == "" {
			sslmode = "disable"
		}
		dsn = fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
			cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DBName, sslmode)
	}
	conn, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	if err := conn.Ping(); err != nil {
		return nil, err
	}
	return conn, nil
}

// EnsureSchema provisions the vector extension and the note_embeddings
// table. The extension goes first and fails with a pointed error: without
// pgvector installed on the server nothing else here can work.
func EnsureSchema(conn *sql.DB) error {
	if _, err := conn.Exec(`CREATE EXTENSION IF NOT EXISTS vector`); err != nil {
		return fmt.Errorf("pgvector extension unavailable on this server: %w", err)
	}
	for _, stmt := range splitStatements(schemaSQL) {
		if strings.HasPrefix(strings.ToUpper(stmt), "CREATE EXTENSION") {
			continue
		}
		if _, err := conn.Exec(stmt); err != nil {
			if strings.Contains(err.Error(), "already exists") {
				continue
			}
			return fmt.Errorf("apply embeddings schema: %w", err)
		}
	}
	return nil
}

func splitStatements(script string) []string {
	var out []string
	for _, stmt := range strings.Split(script, ";") {
		stmt = strings.TrimSpace(stmt)
		if stmt != "" {
			out = append(out, stmt)
		}
	}
	return out
}
