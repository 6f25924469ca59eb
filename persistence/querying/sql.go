// Package querying builds the SQL used by the repositories. Statements are
// assembled as structured clauses and only rendered to text at the end, so
// rewriting a query (adding a derived join, a filter or an order) never
// depends on finding anchor text in an already rendered string.
package querying

import (
	"strconv"
	"strings"

	goerrors "github.com/goliatone/go-errors"
	"github.com/uptrace/bun"
)

// JoinKind is the join keyword used for a join clause.
type JoinKind int

const (
	InnerJoin JoinKind = iota
	LeftJoin
	LeftOuterJoin
)

func (k JoinKind) keyword() string {
	switch k {
	case LeftJoin:
		return "LEFT JOIN"
	case LeftOuterJoin:
		return "LEFT OUTER JOIN"
	}
	return "INNER JOIN"
}

// JoinAnchor selects where a derived join goes in the join list.
type JoinAnchor int

const (
	// BeforeFirstOuterJoin places the join ahead of the first LEFT OUTER JOIN.
	BeforeFirstOuterJoin JoinAnchor = iota
	// AfterJoins places the join after every existing join, ahead of WHERE.
	AfterJoins
)

type joinClause struct {
	kind   JoinKind
	source string
	on     string
}

// DerivedJoin joins a subquery under an alias.
type DerivedJoin struct {
	Kind     JoinKind
	Subquery *Sql
	Alias    string
	On       string
}

// Sql is a SELECT statement under construction. Arguments are stored in one
// list and every placeholder is rendered as an absolute bun placeholder
// (?0, ?1, ...), so clauses can be inserted in any position.
type Sql struct {
	columns []string
	from    string
	joins   []joinClause
	wheres  []string
	groupBy []string
	orderBy []string
	args    []any
	limit   int
	offset  int
}

// Select starts a statement with the given column expressions.
func Select(columns ...string) *Sql {
	return &Sql{columns: append([]string(nil), columns...)}
}

func (s *Sql) From(table string) *Sql {
	s.from = table
	return s
}

// AddColumn appends a column expression to the select list.
func (s *Sql) AddColumn(expr string) *Sql {
	s.columns = append(s.columns, expr)
	return s
}

func (s *Sql) Columns() []string {
	return append([]string(nil), s.columns...)
}

func (s *Sql) InnerJoin(table, on string, args ...any) *Sql {
	return s.join(InnerJoin, table, on, args)
}

func (s *Sql) LeftJoin(table, on string, args ...any) *Sql {
	return s.join(LeftJoin, table, on, args)
}

func (s *Sql) LeftOuterJoin(table, on string, args ...any) *Sql {
	return s.join(LeftOuterJoin, table, on, args)
}

func (s *Sql) join(kind JoinKind, table, on string, args []any) *Sql {
	s.joins = append(s.joins, joinClause{kind: kind, source: table, on: s.bind(on, args)})
	return s
}

// Where adds an AND condition. Plain ? placeholders consume args in order
// and ?N placeholders refer to args[N] of this call.
func (s *Sql) Where(expr string, args ...any) *Sql {
	s.wheres = append(s.wheres, s.bind(expr, args))
	return s
}

// WhereShared adds an AND condition in which every placeholder refers to the
// single shared argument.
func (s *Sql) WhereShared(expr string, arg any) *Sql {
	pos := "?" + strconv.Itoa(len(s.args))
	s.args = append(s.args, arg)
	s.wheres = append(s.wheres, replacePlaceholders(expr, func(int) string { return pos }))
	return s
}

// WhereIn adds "column IN (values)".
func (s *Sql) WhereIn(column string, values any) *Sql {
	return s.Where(column+" IN (?)", bun.In(values))
}

// WhereInSubquery adds "column IN (subquery)". The subquery's arguments are
// merged into the statement.
func (s *Sql) WhereInSubquery(column string, sub *Sql) *Sql {
	inner := rebase(sub.String(), len(s.args))
	s.args = append(s.args, sub.args...)
	s.wheres = append(s.wheres, column+" IN ("+inner+")")
	return s
}

func (s *Sql) GroupBy(exprs ...string) *Sql {
	s.groupBy = append(s.groupBy, exprs...)
	return s
}

func (s *Sql) OrderBy(exprs ...string) *Sql {
	s.orderBy = append(s.orderBy, exprs...)
	return s
}

func (s *Sql) OrderByDescending(exprs ...string) *Sql {
	for _, e := range exprs {
		s.orderBy = append(s.orderBy, e+" DESC")
	}
	return s
}

// ClearOrderBy drops every ORDER BY expression.
func (s *Sql) ClearOrderBy() *Sql {
	s.orderBy = nil
	return s
}

func (s *Sql) HasOrderBy() bool { return len(s.orderBy) > 0 }

// Page sets LIMIT/OFFSET for a zero based page index.
func (s *Sql) Page(pageIndex int64, pageSize int) *Sql {
	s.limit = pageSize
	s.offset = int(pageIndex) * pageSize
	return s
}

// AddDerivedJoin inserts a subquery join at the requested anchor. The
// subquery's arguments are merged into the statement.
func (s *Sql) AddDerivedJoin(d DerivedJoin, anchor JoinAnchor) error {
	if d.Subquery == nil {
		return goerrors.New("derived join requires a subquery", goerrors.CategoryInternal).
			WithTextCode("DERIVED_JOIN_EMPTY")
	}

	offset := len(s.args)
	inner := rebase(d.Subquery.String(), offset)
	s.args = append(s.args, d.Subquery.args...)

	clause := joinClause{
		kind:   d.Kind,
		source: "(" + inner + ") AS " + d.Alias,
		on:     d.On,
	}

	pos := len(s.joins)
	if anchor == BeforeFirstOuterJoin {
		pos = -1
		for i, j := range s.joins {
			if j.kind == LeftOuterJoin {
				pos = i
				break
			}
		}
		if pos < 0 {
			return goerrors.New("query has no outer join to anchor the derived join", goerrors.CategoryInternal).
				WithTextCode("DERIVED_JOIN_ANCHOR")
		}
	}

	s.joins = append(s.joins, joinClause{})
	copy(s.joins[pos+1:], s.joins[pos:])
	s.joins[pos] = clause
	return nil
}

// Args returns the arguments referenced by the rendered statement.
func (s *Sql) Args() []any {
	return append([]any(nil), s.args...)
}

// String renders the statement.
func (s *Sql) String() string {
	var b strings.Builder
	s.appendBody(&b, s.columns)
	if len(s.groupBy) > 0 {
		b.WriteString(" GROUP BY ")
		b.WriteString(strings.Join(s.groupBy, ", "))
	}
	if len(s.orderBy) > 0 {
		b.WriteString(" ORDER BY ")
		b.WriteString(strings.Join(s.orderBy, ", "))
	}
	if s.limit > 0 {
		b.WriteString(" LIMIT ")
		b.WriteString(strconv.Itoa(s.limit))
		b.WriteString(" OFFSET ")
		b.WriteString(strconv.Itoa(s.offset))
	}
	return b.String()
}

// CountString renders "SELECT COUNT(*)" over the statement without ordering
// or paging.
func (s *Sql) CountString() string {
	var b strings.Builder
	if len(s.groupBy) > 0 {
		inner := s.Clone()
		inner.orderBy = nil
		inner.limit, inner.offset = 0, 0
		b.WriteString("SELECT COUNT(*) FROM (")
		b.WriteString(inner.String())
		b.WriteString(") AS cnt")
		return b.String()
	}
	s.appendBody(&b, []string{"COUNT(*)"})
	return b.String()
}

func (s *Sql) appendBody(b *strings.Builder, columns []string) {
	b.WriteString("SELECT ")
	if len(columns) == 0 {
		b.WriteString("*")
	} else {
		b.WriteString(strings.Join(columns, ", "))
	}
	if s.from != "" {
		b.WriteString(" FROM ")
		b.WriteString(s.from)
	}
	for _, j := range s.joins {
		b.WriteString(" ")
		b.WriteString(j.kind.keyword())
		b.WriteString(" ")
		b.WriteString(j.source)
		if j.on != "" {
			b.WriteString(" ON ")
			b.WriteString(j.on)
		}
	}
	if len(s.wheres) > 0 {
		b.WriteString(" WHERE ")
		for i, w := range s.wheres {
			if i > 0 {
				b.WriteString(" AND ")
			}
			b.WriteString("(")
			b.WriteString(w)
			b.WriteString(")")
		}
	}
}

// Clone returns an independent copy of the statement.
func (s *Sql) Clone() *Sql {
	out := *s
	out.columns = append([]string(nil), s.columns...)
	out.joins = append([]joinClause(nil), s.joins...)
	out.wheres = append([]string(nil), s.wheres...)
	out.groupBy = append([]string(nil), s.groupBy...)
	out.orderBy = append([]string(nil), s.orderBy...)
	out.args = append([]any(nil), s.args...)
	return &out
}

// Raw returns a bun raw query for the statement.
func (s *Sql) Raw(db bun.IDB) *bun.RawQuery {
	return db.NewRaw(s.String(), s.args...)
}

// CountRaw returns a bun raw query counting the statement's rows.
func (s *Sql) CountRaw(db bun.IDB) *bun.RawQuery {
	return db.NewRaw(s.CountString(), s.args...)
}

// bind appends args and rewrites the placeholders of expr to absolute
// positions.
func (s *Sql) bind(expr string, args []any) string {
	if len(args) == 0 {
		return expr
	}
	base := len(s.args)
	s.args = append(s.args, args...)
	return replacePlaceholders(expr, func(i int) string {
		return "?" + strconv.Itoa(base+i)
	})
}

func rebase(expr string, offset int) string {
	if offset == 0 {
		return expr
	}
	return replacePlaceholders(expr, func(i int) string {
		return "?" + strconv.Itoa(offset+i)
	})
}

// replacePlaceholders rewrites "?" and "?N" placeholders. Plain "?" takes
// the next sequential index; "?N" keeps N. Quoted literals are left alone.
func replacePlaceholders(expr string, render func(int) string) string {
	var b strings.Builder
	b.Grow(len(expr) + 8)
	seq := 0
	inQuote := false
	for i := 0; i < len(expr); i++ {
		c := expr[i]
		if c == '\'' {
			inQuote = !inQuote
			b.WriteByte(c)
			continue
		}
		if c != '?' || inQuote {
			b.WriteByte(c)
			continue
		}
		j := i + 1
		for j < len(expr) && expr[j] >= '0' && expr[j] <= '9' {
			j++
		}
		if j > i+1 {
			n, _ := strconv.Atoi(expr[i+1 : j])
			b.WriteString(render(n))
			i = j - 1
			continue
		}
		b.WriteString(render(seq))
		seq++
	}
	return b.String()
}
