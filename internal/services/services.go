// Package services holds the data access and business rules behind the
// HTTP handlers.
package services

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/kartikbazzad/bunbase/bunpress/internal/database"
	"github.com/kartikbazzad/bunbase/bunpress/internal/slug"
)

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// foreignKeyViolation returns the violated constraint name, if any.
func foreignKeyViolation(err error) (string, bool) {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23503" {
		return pgErr.ConstraintName, true
	}
	return "", false
}

// slugExists returns a slug.ExistsFunc over table, ignoring the row with
// id exceptID (0 checks every row).
func slugExists(db database.DBTX, table string, exceptID int64) slug.ExistsFunc {
	query := "SELECT EXISTS(SELECT 1 FROM " + table + " WHERE slug = $1 AND id <> $2)"
	return func(ctx context.Context, s string) (bool, error) {
		var exists bool
		err := db.QueryRow(ctx, query, s, exceptID).Scan(&exists)
		return exists, err
	}
}

// positiveID turns 0 and negative ids into NULL.
func positiveID(id *int64) *int64 {
	if id == nil || *id <= 0 {
		return nil
	}
	return id
}

func trimmed(s string) string { return strings.TrimSpace(s) }
