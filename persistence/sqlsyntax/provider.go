// Package sqlsyntax holds the dialect specific SQL fragments used when
// building queries by hand.
package sqlsyntax

import (
	"fmt"
	"regexp"
	"strings"
)

// Provider renders dialect specific SQL fragments.
type Provider interface {
	Name() string
	QuoteTable(name string) string
	QuoteColumn(name string) string
	// Field renders a quoted table.column reference.
	Field(table, column string) string
	// The conversion expressions turn a typed column into a string that
	// sorts in the same order as the typed value.
	ConvertIntegerToOrderableString(expr string) string
	ConvertDecimalToOrderableString(expr string) string
	ConvertDateToOrderableString(expr string) string
	// AliasPattern matches `table.column AS alias` in rendered SQL and
	// captures the alias as its second group.
	AliasPattern(table, column string) *regexp.Regexp
}

// SQLite is the provider for SQLite databases.
type SQLite struct{}

// NewSQLite returns the SQLite syntax provider.
func NewSQLite() *SQLite { return &SQLite{} }

func (SQLite) Name() string { return "sqlite" }

func (SQLite) QuoteTable(name string) string { return quote(name) }

func (SQLite) QuoteColumn(name string) string { return quote(name) }

func (s SQLite) Field(table, column string) string {
	return s.QuoteTable(table) + "." + s.QuoteColumn(column)
}

// ConvertIntegerToOrderableString prefixes negative values with 0 and shifts
// them by 2^63 so the text order matches the numeric order across signs.
func (SQLite) ConvertIntegerToOrderableString(expr string) string {
	return fmt.Sprintf("CASE WHEN %[1]s < 0 THEN printf('0%%019d', (9223372036854775807 + %[1]s) + 1)"+
		" ELSE printf('1%%019d', %[1]s) END", expr)
}

// ConvertDecimalToOrderableString only orders non-negative values correctly;
// a negative value sorts by its magnitude.
func (SQLite) ConvertDecimalToOrderableString(expr string) string {
	return fmt.Sprintf("printf('%%030.10f', %s)", expr)
}

func (SQLite) ConvertDateToOrderableString(expr string) string {
	return fmt.Sprintf("strftime('%%Y%%m%%d%%H%%M%%S', %s)", expr)
}

func (s SQLite) AliasPattern(table, column string) *regexp.Regexp {
	field := regexp.QuoteMeta(s.Field(table, column))
	alias := regexp.QuoteMeta(`"`) + `([^"]+)` + regexp.QuoteMeta(`"`)
	return regexp.MustCompile(`(?i)(` + field + `)\s+AS\s+` + alias)
}

func quote(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
