// internal/db/initdb.go
package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/lib/pq"
	"go.uber.org/zap"
)

// CreateDatabaseIfNotExists connects to the server's "postgres" database and
// creates the database named in connString when it is missing.
func CreateDatabaseIfNotExists(ctx context.Context, connString string) error {
	dbName, rootConnStr, err := splitDatabaseName(connString, "postgres")
	if err != nil {
		return fmt.Errorf("failed to parse connection string: %w", err)
	}

	root, err := sql.Open("postgres", rootConnStr)
	if err != nil {
		return fmt.Errorf("failed to connect to postgres: %w", err)
	}
	defer root.Close()

	var exists int
	err = root.QueryRowContext(ctx, "SELECT 1 FROM pg_database WHERE datname = $1", dbName).Scan(&exists)
	if err == nil {
		return nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("failed to check if database exists: %w", err)
	}

	zap.L().Info("Creating database", zap.String("database", dbName))
	if _, err := root.ExecContext(ctx, "CREATE DATABASE "+pq.QuoteIdentifier(dbName)); err != nil {
		return fmt.Errorf("failed to create database: %w", err)
	}
	return nil
}

// splitDatabaseName returns the database named in connString and a copy of
// connString pointing at replacement instead. Both URL and key/value DSNs are accepted.
func splitDatabaseName(connString, replacement string) (string, string, error) {
	if strings.HasPrefix(connString, "postgres://") || strings.HasPrefix(connString, "postgresql://") {
		u, err := url.Parse(connString)
		if err != nil {
			return "", "", err
		}
		name := strings.TrimPrefix(u.Path, "/")
		if name == "" {
			return "", "", errors.New("connection URL has no database name")
		}
		u.Path = "/" + replacement
		return name, u.String(), nil
	}

	var name string
	pairs := strings.Fields(connString)
	for i, pair := range pairs {
		if v, ok := strings.CutPrefix(pair, "dbname="); ok {
			name = v
			pairs[i] = "dbname=" + replacement
		}
	}
	if name == "" {
		return "", "", errors.New("could not find database name in connection string")
	}
	return name, strings.Join(pairs, " "), nil
}
