package repositories

import (
	"context"
	"log/slog"
	"strconv"
	"strings"
	"time"

	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"github.com/goliatone/go-content-repository/cache"
	"github.com/goliatone/go-content-repository/logging"
	"github.com/goliatone/go-content-repository/models"
	"github.com/goliatone/go-content-repository/persistence/dtos"
	"github.com/goliatone/go-content-repository/persistence/factories"
	"github.com/goliatone/go-content-repository/persistence/querying"
	"github.com/goliatone/go-content-repository/repositorycache"
)

var memberTypeMapper = querying.ColumnMap{
	"Id":    "umbracoNode.id",
	"Key":   "umbracoNode.uniqueID",
	"Name":  "umbracoNode.text",
	"Alias": "cmsContentType.alias",
}

var propertyTypeColumns = []string{
	`pt."id" AS "id"`,
	`pt."dataTypeId" AS "data_type_id"`,
	`pt."contentTypeId" AS "content_type_id"`,
	`pt."Alias" AS "alias"`,
	`pt."Name" AS "name"`,
	`pt."sortOrder" AS "sort_order"`,
	`pt."mandatory" AS "mandatory"`,
	`pt."validationRegExp" AS "validation_reg_exp"`,
	`pt."Description" AS "description"`,
	`pt."UniqueID" AS "unique_id"`,
	`dt."propertyEditorAlias" AS "property_editor_alias"`,
	`dt."dbType" AS "db_type"`,
}

// NewMemberTypePolicy returns the cache policy for member types. A nil
// service disables caching.
func NewMemberTypePolicy(svc cache.CacheService) repositorycache.Policy[*models.ContentType] {
	if svc == nil {
		return repositorycache.NoCachePolicy[*models.ContentType]{}
	}
	return repositorycache.NewDefaultPolicy(svc, repositorycache.Options[*models.ContentType]{
		IDOf:  func(ct *models.ContentType) int { return ct.ID },
		Clone: func(ct *models.ContentType) *models.ContentType { return ct.DeepClone() },
	})
}

// MemberTypeRepository stores member types: content types under the member
// type object type together with their property types.
type MemberTypeRepository struct {
	db     bun.IDB
	policy repositorycache.Policy[*models.ContentType]
	logger *slog.Logger
	now    func() time.Time
}

func NewMemberTypeRepository(db bun.IDB, policy repositorycache.Policy[*models.ContentType], opts Options) *MemberTypeRepository {
	opts = opts.withDefaults()
	if policy == nil {
		policy = repositorycache.NoCachePolicy[*models.ContentType]{}
	}
	return &MemberTypeRepository{
		db:     db,
		policy: policy,
		logger: logging.Component(opts.Logger, "member_type_repository"),
		now:    opts.Now,
	}
}

// WithTx returns a copy running on tx. The copy shares the cache policy.
func (r *MemberTypeRepository) WithTx(tx bun.IDB) *MemberTypeRepository {
	out := *r
	out.db = tx
	return &out
}

// Save stores the member type and its property types. New property types
// get ids and keys.
func (r *MemberTypeRepository) Save(ctx context.Context, ct *models.ContentType) error {
	return r.policy.Save(ctx, ct, func(ctx context.Context, ct *models.ContentType) error {
		return r.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
			if ct.ID == 0 {
				if err := r.persistNew(ctx, tx, ct); err != nil {
					return err
				}
			} else if err := r.persistUpdated(ctx, tx, ct); err != nil {
				return err
			}
			if err := r.savePropertyTypes(ctx, tx, ct); err != nil {
				return err
			}
			r.logger.Debug("saved member type", "id", ct.ID, "alias", ct.Alias)
			return nil
		})
	})
}

func (r *MemberTypeRepository) persistNew(ctx context.Context, tx bun.IDB, ct *models.ContentType) error {
	if ct.Key == uuid.Nil {
		ct.Key = uuid.New()
	}
	if ct.CreateDate.IsZero() {
		ct.CreateDate = r.now()
	}
	node := &dtos.NodeDto{
		ParentID:       models.RootID,
		Level:          1,
		Path:           "-1",
		UniqueID:       ct.Key,
		Text:           ct.Name,
		NodeObjectType: models.ObjectTypeMemberType,
		CreateDate:     ct.CreateDate,
	}
	if _, err := tx.NewInsert().Model(node).Exec(ctx); err != nil {
		return storageError(err, "insert member type node failed")
	}
	node.Path = "-1," + strconv.Itoa(node.NodeID)
	if _, err := tx.NewUpdate().Model(node).Column("path").WherePK().Exec(ctx); err != nil {
		return storageError(err, "update member type path failed")
	}
	ct.ID = node.NodeID

	row := factories.BuildContentTypeDto(ct)
	if _, err := tx.NewInsert().Model(&row).Exec(ctx); err != nil {
		return storageError(err, "insert member type failed")
	}
	return nil
}

func (r *MemberTypeRepository) persistUpdated(ctx context.Context, tx bun.IDB, ct *models.ContentType) error {
	if _, err := tx.NewUpdate().
		Model((*dtos.NodeDto)(nil)).
		Set(`"text" = ?`, ct.Name).
		Where(`"id" = ?`, ct.ID).
		Exec(ctx); err != nil {
		return storageError(err, "update member type node failed")
	}

	row := factories.BuildContentTypeDto(ct)
	if _, err := tx.NewUpdate().
		Model((*dtos.ContentTypeDto)(nil)).
		Set(`"alias" = ?`, row.Alias).
		Set(`"icon" = ?`, row.Icon).
		Set(`"description" = ?`, row.Description).
		Where(`"nodeId" = ?`, ct.ID).
		Exec(ctx); err != nil {
		return storageError(err, "update member type failed")
	}
	return nil
}

func (r *MemberTypeRepository) savePropertyTypes(ctx context.Context, tx bun.IDB, ct *models.ContentType) error {
	for i, pt := range ct.PropertyTypes {
		if pt.SortOrder == 0 {
			pt.SortOrder = i
		}
		row := factories.BuildPropertyTypeDto(ct.ID, pt)
		if pt.HasIdentity() {
			if _, err := tx.NewUpdate().Model(&row).WherePK().Exec(ctx); err != nil {
				return storageError(err, "update property type failed")
			}
			continue
		}
		if _, err := tx.NewInsert().Model(&row).Exec(ctx); err != nil {
			return storageError(err, "insert property type failed")
		}
		pt.ID = row.ID
		pt.Key = row.UniqueID
	}
	return nil
}

// Get returns the member type with the given id, or nil.
func (r *MemberTypeRepository) Get(ctx context.Context, id int) (*models.ContentType, error) {
	ct, _, err := r.policy.Get(ctx, id, func(ctx context.Context, id int) (*models.ContentType, bool, error) {
		return r.first(ctx, querying.NewQuery(querying.Eq("Id", id)))
	})
	return ct, err
}

// GetByAlias returns the member type with the given alias, or nil.
func (r *MemberTypeRepository) GetByAlias(ctx context.Context, alias string) (*models.ContentType, error) {
	ct, _, err := r.policy.Lookup(ctx, "GetByAlias", []any{alias}, func(ctx context.Context) (*models.ContentType, bool, error) {
		return r.first(ctx, querying.NewQuery(querying.Eq("Alias", alias)))
	})
	return ct, err
}

// GetAll returns the member types with the given ids, or every member type
// when no id is given.
func (r *MemberTypeRepository) GetAll(ctx context.Context, ids ...int) ([]*models.ContentType, error) {
	return r.policy.GetAll(ctx, ids, func(ctx context.Context, ids []int) ([]*models.ContentType, error) {
		q := querying.NewQuery()
		if len(ids) > 0 {
			q.Where(querying.In("Id", ids))
		}
		return r.GetByQuery(ctx, q)
	})
}

// GetByQuery returns the member types matching q.
func (r *MemberTypeRepository) GetByQuery(ctx context.Context, q *querying.Query) ([]*models.ContentType, error) {
	criteria, err := querying.Criteria(q, memberTypeMapper)
	if err != nil {
		return nil, err
	}
	return r.fetch(ctx, criteria...)
}

func (r *MemberTypeRepository) first(ctx context.Context, q *querying.Query) (*models.ContentType, bool, error) {
	items, err := r.GetByQuery(ctx, q)
	if err != nil || len(items) == 0 {
		return nil, false, err
	}
	return items[0], true, nil
}

func (r *MemberTypeRepository) fetch(ctx context.Context, criteria ...repository.SelectCriteria) ([]*models.ContentType, error) {
	var nodes []dtos.NodeDto
	q := r.db.NewSelect().
		Model(&nodes).
		Join(`INNER JOIN "cmsContentType" ON "cmsContentType"."nodeId" = "umbracoNode"."id"`).
		Where(`"umbracoNode"."nodeObjectType" = ?`, models.ObjectTypeMemberType)
	for _, c := range criteria {
		q = c(q)
	}
	if err := q.OrderExpr(`"umbracoNode"."id" ASC`).Scan(ctx); err != nil {
		return nil, storageError(err, "member type lookup failed")
	}
	if len(nodes) == 0 {
		return nil, nil
	}

	ids := make([]int, 0, len(nodes))
	for _, n := range nodes {
		ids = append(ids, n.NodeID)
	}

	var rows []dtos.ContentTypeDto
	if err := r.db.NewSelect().
		Model(&rows).
		Where(`"nodeId" IN (?)`, bun.In(ids)).
		Scan(ctx); err != nil {
		return nil, storageError(err, "member type lookup failed")
	}
	byNode := make(map[int]dtos.ContentTypeDto, len(rows))
	for _, row := range rows {
		byNode[row.NodeID] = row
	}

	pts, err := r.propertyTypes(ctx, ids)
	if err != nil {
		return nil, err
	}

	out := make([]*models.ContentType, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, factories.BuildContentType(n, byNode[n.NodeID], pts))
	}
	return out, nil
}

func (r *MemberTypeRepository) propertyTypes(ctx context.Context, contentTypeIDs []int) ([]dtos.PropertyTypeReadDto, error) {
	var rows []dtos.PropertyTypeReadDto
	if err := r.db.NewSelect().
		TableExpr(`"cmsPropertyType" AS pt`).
		ColumnExpr(strings.Join(propertyTypeColumns, ", ")).
		Join(`LEFT JOIN "cmsDataType" AS dt ON dt."nodeId" = pt."dataTypeId"`).
		Where(`pt."contentTypeId" IN (?)`, bun.In(contentTypeIDs)).
		OrderExpr(`pt."sortOrder" ASC, pt."id" ASC`).
		Scan(ctx, &rows); err != nil {
		return nil, storageError(err, "property type lookup failed")
	}
	return rows, nil
}
