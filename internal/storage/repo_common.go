package storage

import (
	"database/sql"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// NewRecordID returns a 32 character lowercase hex identifier.
func NewRecordID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

func ensureID(id string) string {
	if id != "" {
		return id
	}
	return NewRecordID()
}

// NormalizeCategory trims and lower-cases a category name.
func NormalizeCategory(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

func isAllCategories(name string) bool {
	n := NormalizeCategory(name)
	return n == "" || n == "all"
}

func toMillis(t time.Time) int64 {
	return t.UnixMilli()
}

func fromMillis(ms int64) time.Time {
	return time.UnixMilli(ms)
}

func money(d decimal.Decimal) float64 {
	return d.InexactFloat64()
}

func nullableString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func stringPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	v := ns.String
	return &v
}
