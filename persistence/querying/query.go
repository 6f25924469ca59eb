package querying

import (
	"strings"

	goerrors "github.com/goliatone/go-errors"
	repository "github.com/goliatone/go-repository-bun"
	"github.com/uptrace/bun"

	"github.com/goliatone/go-content-repository/models"
)

// Mapper resolves entity field names to SQL column expressions.
type Mapper interface {
	Column(field string) (string, bool)
}

// ColumnMap is a Mapper backed by a fixed lookup table.
type ColumnMap map[string]string

func (m ColumnMap) Column(field string) (string, bool) {
	c, ok := m[field]
	return c, ok
}

// Predicate is one node of a query's predicate tree.
type Predicate interface {
	build(m Mapper) (string, []any, error)
	fields() []string
}

// Query is a conjunction of predicates over an entity's fields.
type Query struct {
	predicates []Predicate
}

func NewQuery(predicates ...Predicate) *Query {
	return &Query{predicates: predicates}
}

// Where adds a predicate, ANDed with the existing ones.
func (q *Query) Where(p Predicate) *Query {
	q.predicates = append(q.predicates, p)
	return q
}

func (q *Query) IsEmpty() bool {
	return q == nil || len(q.predicates) == 0
}

// Fields lists the entity fields referenced by the query.
func (q *Query) Fields() []string {
	if q == nil {
		return nil
	}
	var out []string
	for _, p := range q.predicates {
		out = append(out, p.fields()...)
	}
	return out
}

// ReferencesTable reports whether any referenced field maps to a column of
// the given table.
func (q *Query) ReferencesTable(m Mapper, table string) bool {
	prefix := strings.ToLower(table) + "."
	for _, f := range q.Fields() {
		col, ok := m.Column(f)
		if ok && strings.HasPrefix(strings.ToLower(col), prefix) {
			return true
		}
	}
	return false
}

// Translate returns a copy of base with every predicate of q appended as a
// WHERE clause.
func Translate(base *Sql, q *Query, m Mapper) (*Sql, error) {
	out := base.Clone()
	if q.IsEmpty() {
		return out, nil
	}
	for _, p := range q.predicates {
		expr, args, err := p.build(m)
		if err != nil {
			return nil, err
		}
		out.Where(expr, args...)
	}
	return out, nil
}

// Criteria converts q into go-repository-bun select criteria.
func Criteria(q *Query, m Mapper) ([]repository.SelectCriteria, error) {
	if q.IsEmpty() {
		return nil, nil
	}
	out := make([]repository.SelectCriteria, 0, len(q.predicates))
	for _, p := range q.predicates {
		expr, args, err := p.build(m)
		if err != nil {
			return nil, err
		}
		out = append(out, func(sq *bun.SelectQuery) *bun.SelectQuery {
			return sq.Where(expr, args...)
		})
	}
	return out, nil
}

func column(m Mapper, field string) (string, error) {
	col, ok := m.Column(field)
	if !ok {
		return "", goerrors.New("field cannot be mapped to a column", goerrors.CategoryBadInput).
			WithTextCode("UNMAPPED_FIELD").
			WithMetadata(map[string]any{"field": field})
	}
	return col, nil
}

type comparison struct {
	field string
	op    string
	value any
}

func (c comparison) build(m Mapper) (string, []any, error) {
	col, err := column(m, c.field)
	if err != nil {
		return "", nil, err
	}
	return col + " " + c.op + " ?", []any{c.value}, nil
}

func (c comparison) fields() []string { return []string{c.field} }

func Eq(field string, value any) Predicate    { return comparison{field, "=", value} }
func NotEq(field string, value any) Predicate { return comparison{field, "<>", value} }
func Gt(field string, value any) Predicate    { return comparison{field, ">", value} }
func Gte(field string, value any) Predicate   { return comparison{field, ">=", value} }
func Lt(field string, value any) Predicate    { return comparison{field, "<", value} }
func Lte(field string, value any) Predicate   { return comparison{field, "<=", value} }

type match struct {
	field string
	value string
	kind  models.StringMatchType
}

// Match compares a string field using the given match type. Wildcard
// patterns use * and ? as their wildcards.
func Match(field, value string, kind models.StringMatchType) Predicate {
	return match{field: field, value: value, kind: kind}
}

func (p match) build(m Mapper) (string, []any, error) {
	col, err := column(m, p.field)
	if err != nil {
		return "", nil, err
	}
	pattern, err := LikePattern(p.value, p.kind)
	if err != nil {
		return "", nil, err
	}
	if p.kind == models.MatchExact {
		return col + " = ?", []any{p.value}, nil
	}
	return col + ` LIKE ? ESCAPE '\'`, []any{pattern}, nil
}

func (p match) fields() []string { return []string{p.field} }

// LikePattern renders value as a LIKE pattern for the match type. For exact
// matches it returns the value unchanged.
func LikePattern(value string, kind models.StringMatchType) (string, error) {
	switch kind {
	case models.MatchExact:
		return value, nil
	case models.MatchContains:
		return "%" + escapeLike(value) + "%", nil
	case models.MatchStartsWith:
		return escapeLike(value) + "%", nil
	case models.MatchEndsWith:
		return "%" + escapeLike(value), nil
	case models.MatchWildcard:
		r := strings.NewReplacer("*", "%", "?", "_")
		return r.Replace(escapeLike(value)), nil
	}
	return "", goerrors.New("unsupported string match type", goerrors.CategoryBadInput).
		WithTextCode("UNSUPPORTED_MATCH_TYPE").
		WithMetadata(map[string]any{"match_type": int(kind)})
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

type in struct {
	field  string
	values any
}

// In matches fields whose value is in values, which must be a slice.
func In(field string, values any) Predicate { return in{field, values} }

func (p in) build(m Mapper) (string, []any, error) {
	col, err := column(m, p.field)
	if err != nil {
		return "", nil, err
	}
	return col + " IN (?)", []any{bun.In(p.values)}, nil
}

func (p in) fields() []string { return []string{p.field} }

type isNull struct {
	field string
	not   bool
}

func IsNull(field string) Predicate    { return isNull{field: field} }
func IsNotNull(field string) Predicate { return isNull{field: field, not: true} }

func (p isNull) build(m Mapper) (string, []any, error) {
	col, err := column(m, p.field)
	if err != nil {
		return "", nil, err
	}
	if p.not {
		return col + " IS NOT NULL", nil, nil
	}
	return col + " IS NULL", nil, nil
}

func (p isNull) fields() []string { return []string{p.field} }

type group struct {
	op    string
	preds []Predicate
}

func And(preds ...Predicate) Predicate { return group{"AND", preds} }
func Or(preds ...Predicate) Predicate  { return group{"OR", preds} }

func (g group) build(m Mapper) (string, []any, error) {
	parts := make([]string, 0, len(g.preds))
	var args []any
	for _, p := range g.preds {
		expr, a, err := p.build(m)
		if err != nil {
			return "", nil, err
		}
		parts = append(parts, "("+expr+")")
		args = append(args, a...)
	}
	if len(parts) == 0 {
		return "1 = 1", nil, nil
	}
	return strings.Join(parts, " "+g.op+" "), args, nil
}

func (g group) fields() []string {
	var out []string
	for _, p := range g.preds {
		out = append(out, p.fields()...)
	}
	return out
}

type not struct{ p Predicate }

func Not(p Predicate) Predicate { return not{p} }

func (n not) build(m Mapper) (string, []any, error) {
	expr, args, err := n.p.build(m)
	if err != nil {
		return "", nil, err
	}
	return "NOT (" + expr + ")", args, nil
}

func (n not) fields() []string { return n.p.fields() }
