package repositories

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"sync"

	goerrors "github.com/goliatone/go-errors"

	"github.com/goliatone/go-content-repository/models"
	"github.com/goliatone/go-content-repository/persistence/querying"
)

// PageRequest selects one page of a query.
type PageRequest struct {
	Query     *querying.Query
	PageIndex int64
	PageSize  int
	// OrderBy is a system field name when OrderBySystemField is set and a
	// property type alias otherwise.
	OrderBy            string
	Direction          models.Direction
	OrderBySystemField bool
	// Filter matches the entity's filterable columns by substring.
	Filter string
}

type sortField struct {
	table  string
	column string
}

var systemSortFields = map[string]sortField{
	"VERSIONDATE": {"cmsContentVersion", "VersionDate"},
	"UPDATEDATE":  {"cmsContentVersion", "VersionDate"},
	"CREATEDATE":  {"umbracoNode", "createDate"},
	"NAME":        {"umbracoNode", "text"},
	"PUBLISHED":   {"cmsDocument", "published"},
	"OWNER":       {"umbracoNode", "nodeUser"},
	"PATH":        {"umbracoNode", "path"},
	"SORTORDER":   {"umbracoNode", "sortOrder"},
}

var orderBySanitizer = regexp.MustCompile("[^\\w\\.,`\\[\\]@-]")

// pagedShape is what an entity contributes to a paged query.
type pagedShape struct {
	// table is the entity table joined by the custom sort subquery.
	table string
	// fields extends the system sort fields.
	fields map[string]sortField
	// filter is the filter condition; every placeholder takes the filter.
	filter string
}

// customSortTable describes how the custom sort subquery reaches a table.
type customSortTable struct {
	andVersion string
	andNewest  string
	idField    string
	anchor     querying.JoinAnchor
}

// latestMemberVersion selects the newest version of the member row cd. Members
// keep no newest flag, so every older version would otherwise add a row.
const latestMemberVersion = `(SELECT v."VersionId" FROM "cmsContentVersion" v` +
	` WHERE v."ContentId" = cd.nodeId ORDER BY v."VersionDate" DESC, v."id" DESC LIMIT 1)`

var customSortTables = map[string]customSortTable{
	"cmsDocument": {
		andVersion: " AND cpd.versionId = cd.versionId",
		andNewest:  " AND cd.newest = 1",
		idField:    "nodeId",
		anchor:     querying.BeforeFirstOuterJoin,
	},
	"cmsMember": {
		andVersion: " AND cpd.versionId = " + latestMemberVersion,
		idField:    "nodeId",
		anchor:     querying.AfterJoins,
	},
	"cmsContentVersion": {
		andVersion: " AND cpd.versionId = cd.versionId",
		idField:    "contentId",
		anchor:     querying.AfterJoins,
	},
}

// lazyFragment is a SQL fragment computed once and shared by the copies of
// a repository.
type lazyFragment struct {
	once  sync.Once
	value string
}

func (f *lazyFragment) get(build func() string) string {
	f.once.Do(func() { f.value = build() })
	return f.value
}

// preparePaged applies the filter and the ordering of req to s. The
// returned statement has no paging yet.
func (b *VersionableRepositoryBase[T]) preparePaged(s *querying.Sql, req PageRequest, shape pagedShape) (*querying.Sql, error) {
	out := s.Clone()
	if req.Filter != "" && shape.filter != "" {
		out.WhereShared(shape.filter, "%"+req.Filter+"%")
	}

	if req.OrderBy != "" {
		var field string
		if req.OrderBySystemField {
			field = b.systemOrderField(out, req.OrderBy, shape.fields)
		} else {
			var err error
			field, err = b.customOrderField(out, req.OrderBy, shape.table)
			if err != nil {
				return nil, err
			}
		}
		out.OrderBy(field + " " + req.Direction.SQL())
	}

	out.OrderBy(b.aliasOrField(out, sortField{"umbracoNode", "id"}))
	return out, nil
}

// systemOrderField resolves a system field name to the column, or its select
// alias, to order by. Unknown names are sanitized and used as given.
func (b *VersionableRepositoryBase[T]) systemOrderField(s *querying.Sql, name string, extra map[string]sortField) string {
	key := strings.ToUpper(strings.TrimSpace(name))
	f, ok := extra[key]
	if !ok {
		f, ok = systemSortFields[key]
	}
	if !ok {
		return orderBySanitizer.ReplaceAllString(name, "")
	}
	return b.aliasOrField(s, f)
}

// aliasOrField returns the quoted select alias of table.column when the
// statement selects it under one, and the quoted field otherwise.
func (b *VersionableRepositoryBase[T]) aliasOrField(s *querying.Sql, f sortField) string {
	pattern := b.syntax.AliasPattern(f.table, f.column)
	for _, col := range s.Columns() {
		if m := pattern.FindStringSubmatch(col); m != nil {
			return b.syntax.QuoteColumn(m[2])
		}
	}
	return b.syntax.Field(f.table, f.column)
}

// customOrderField joins the derived property value subquery for the
// property type alias and returns the expression to order by.
func (b *VersionableRepositoryBase[T]) customOrderField(s *querying.Sql, alias, table string) (string, error) {
	shape, ok := customSortTables[table]
	if !ok {
		return "", goerrors.New("table is not supported for custom sorting", goerrors.CategoryBadInput).
			WithTextCode("UNSUPPORTED_SORT_TABLE").
			WithMetadata(map[string]any{"table": table})
	}

	sub := querying.Select(
		b.customSortCase()+" AS CustomPropVal",
		fmt.Sprintf("cd.%s AS CustomPropValContentId", shape.idField),
	).
		From(table+" cd").
		InnerJoin("cmsPropertyData cpd", fmt.Sprintf("cpd.contentNodeId = cd.%s%s", shape.idField, shape.andVersion)).
		InnerJoin("cmsPropertyType cpt", "cpt.id = cpd.propertytypeid").
		Where("cpt.Alias = ?"+shape.andNewest, alias)

	err := s.AddDerivedJoin(querying.DerivedJoin{
		Kind:     querying.LeftOuterJoin,
		Subquery: sub,
		Alias:    "CustomPropData",
		On:       `CustomPropData.CustomPropValContentId = "umbracoNode"."id"`,
	}, shape.anchor)
	if err != nil {
		return "", err
	}
	s.AddColumn(`CustomPropData.CustomPropVal AS "custom_prop_val"`)
	return "CustomPropData.CustomPropVal", nil
}

// customSortCase picks the first typed value in the order int, decimal,
// date, text.
func (b *VersionableRepositoryBase[T]) customSortCase() string {
	return b.sortCase.get(func() string {
		return "CASE" +
			" WHEN dataInt IS NOT NULL THEN " + b.syntax.ConvertIntegerToOrderableString("dataInt") +
			" WHEN dataDecimal IS NOT NULL THEN " + b.syntax.ConvertDecimalToOrderableString("dataDecimal") +
			" WHEN dataDate IS NOT NULL THEN " + b.syntax.ConvertDateToOrderableString("dataDate") +
			" ELSE COALESCE(dataNvarchar,'') END"
	})
}

// pagedRows runs the prepared statement for one page and counts the total.
func (b *VersionableRepositoryBase[T]) pagedRows(ctx context.Context, s *querying.Sql, req PageRequest, shape pagedShape, dest any) (int64, error) {
	prepared, err := b.preparePaged(s, req, shape)
	if err != nil {
		return 0, err
	}

	var total int64
	if err := prepared.CountRaw(b.db).Scan(ctx, &total); err != nil {
		return 0, storageError(err, "paged count failed")
	}

	if req.PageSize > 0 {
		prepared.Page(req.PageIndex, req.PageSize)
	}
	if err := prepared.Raw(b.db).Scan(ctx, dest); err != nil {
		return 0, storageError(err, "paged query failed")
	}
	return total, nil
}
