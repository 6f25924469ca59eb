package models

import "strings"

// StringMatchType selects how a string predicate compares values.
type StringMatchType int

const (
	MatchExact StringMatchType = iota
	MatchContains
	MatchStartsWith
	MatchEndsWith
	MatchWildcard
)

func (t StringMatchType) String() string {
	switch t {
	case MatchExact:
		return "exact"
	case MatchContains:
		return "contains"
	case MatchStartsWith:
		return "starts_with"
	case MatchEndsWith:
		return "ends_with"
	case MatchWildcard:
		return "wildcard"
	}
	return "unknown"
}

// Direction is a sort direction.
type Direction int

const (
	Ascending Direction = iota
	Descending
)

func (d Direction) SQL() string {
	if d == Descending {
		return "DESC"
	}
	return "ASC"
}

// ParseDirection accepts "asc"/"desc" in any case and defaults to ascending.
func ParseDirection(s string) Direction {
	if strings.EqualFold(strings.TrimSpace(s), "desc") {
		return Descending
	}
	return Ascending
}

// Tag is a stored tag label.
type Tag struct {
	ID        int
	Text      string
	Group     string
	NodeCount int
}
