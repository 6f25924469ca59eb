package repositories

import (
	"context"
	"slices"
	"strconv"
	"strings"

	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"github.com/goliatone/go-content-repository/cache"
	"github.com/goliatone/go-content-repository/models"
	"github.com/goliatone/go-content-repository/notifications"
	"github.com/goliatone/go-content-repository/persistence/dtos"
	"github.com/goliatone/go-content-repository/persistence/factories"
	"github.com/goliatone/go-content-repository/persistence/querying"
	"github.com/goliatone/go-content-repository/propertyeditors"
	"github.com/goliatone/go-content-repository/repositorycache"
)

var memberMapper = querying.ColumnMap{
	"Id":         "umbracoNode.id",
	"Key":        "umbracoNode.uniqueID",
	"Name":       "umbracoNode.text",
	"ParentId":   "umbracoNode.parentID",
	"Path":       "umbracoNode.path",
	"Level":      "umbracoNode.level",
	"SortOrder":  "umbracoNode.sortOrder",
	"CreateDate": "umbracoNode.createDate",
	"Trashed":    "umbracoNode.trashed",
	"CreatorId":  "umbracoNode.nodeUser",

	"Username":         "cmsMember.LoginName",
	"Email":            "cmsMember.Email",
	"ContentTypeAlias": "cmsContentType.alias",
	"ContentTypeId":    "cmsContent.contentType",
	"UpdateDate":       "cmsContentVersion.VersionDate",
	"Version":          "cmsContentVersion.VersionId",

	"PropertyTypeAlias":        "cmsPropertyType.Alias",
	"IntegerPropertyValue":     "cmsPropertyData.dataInt",
	"BoolPropertyValue":        "cmsPropertyData.dataInt",
	"ShortStringPropertyValue": "cmsPropertyData.dataNvarchar",
	"LongStringPropertyValue":  "cmsPropertyData.dataNtext",
	"DateTimePropertyValue":    "cmsPropertyData.dataDate",
}

var memberColumns = []string{
	`"umbracoNode"."id" AS "node_id"`,
	`"umbracoNode"."uniqueID" AS "unique_id"`,
	`"umbracoNode"."parentID" AS "parent_id"`,
	`"umbracoNode"."level" AS "level"`,
	`"umbracoNode"."path" AS "path"`,
	`"umbracoNode"."sortOrder" AS "sort_order"`,
	`"umbracoNode"."trashed" AS "trashed"`,
	`"umbracoNode"."nodeUser" AS "node_user"`,
	`"umbracoNode"."text" AS "text"`,
	`"umbracoNode"."createDate" AS "create_date"`,
	`"cmsContent"."contentType" AS "content_type_id"`,
	`"cmsContentType"."alias" AS "content_type_alias"`,
	`"cmsContentVersion"."id" AS "version_pk"`,
	`"cmsContentVersion"."VersionId" AS "version_id"`,
	`"cmsContentVersion"."VersionDate" AS "version_date"`,
	`"cmsMember"."Email" AS "email"`,
	`"cmsMember"."LoginName" AS "login_name"`,
	`"cmsMember"."Password" AS "password"`,
}

// latestVersionOnly keeps the newest version row of every node.
const latestVersionOnly = `"cmsContentVersion"."id" = (SELECT v2."id" FROM "cmsContentVersion" v2 ` +
	`WHERE v2."ContentId" = "umbracoNode"."id" ORDER BY v2."VersionDate" DESC, v2."id" DESC LIMIT 1)`

var memberPagedShape = pagedShape{
	table: "cmsMember",
	fields: map[string]sortField{
		"EMAIL":     {"cmsMember", "Email"},
		"LOGINNAME": {"cmsMember", "LoginName"},
		"USERNAME":  {"cmsMember", "LoginName"},
	},
	filter: `UPPER("umbracoNode"."text") LIKE UPPER(?) OR UPPER("cmsMember"."LoginName") LIKE UPPER(?)`,
}

// NewMemberPolicy returns the cache policy for members. A nil service
// disables caching.
func NewMemberPolicy(svc cache.CacheService) repositorycache.Policy[*models.Member] {
	if svc == nil {
		return repositorycache.NoCachePolicy[*models.Member]{}
	}
	return repositorycache.NewDefaultPolicy(svc, repositorycache.Options[*models.Member]{
		IDOf:  func(m *models.Member) int { return m.ID() },
		Clone: func(m *models.Member) *models.Member { return m.DeepClone() },
	})
}

// MemberRepository stores members across the node, content, version,
// member and property data tables.
type MemberRepository struct {
	*VersionableRepositoryBase[*models.Member]
	policy      repositorycache.Policy[*models.Member]
	memberTypes *MemberTypeRepository
	groups      *MemberGroupRepository
	tags        *TagRepository
}

// NewMemberRepository builds the repository. events may be nil when nobody
// listens.
func NewMemberRepository(
	db bun.IDB,
	policy repositorycache.Policy[*models.Member],
	memberTypes *MemberTypeRepository,
	groups *MemberGroupRepository,
	tags *TagRepository,
	events *notifications.Registry[*models.Member],
	opts Options,
) *MemberRepository {
	if policy == nil {
		policy = repositorycache.NoCachePolicy[*models.Member]{}
	}
	r := &MemberRepository{
		VersionableRepositoryBase: newVersionableRepositoryBase(db, models.ObjectTypeMember, events, opts, "member_repository"),
		policy:                    policy,
		memberTypes:               memberTypes,
		groups:                    groups,
		tags:                      tags,
	}
	r.bindHooks()
	return r
}

func (r *MemberRepository) bindHooks() {
	r.hooks = versionHooks[*models.Member]{
		getByVersion: func(ctx context.Context, versionID uuid.UUID) (*models.Member, bool, error) {
			m, err := r.GetByVersion(ctx, versionID)
			return m, m != nil, err
		},
		performDeleteVersion: r.PerformDeleteVersion,
	}
}

// WithTx returns a copy running on tx, together with its collaborators. The
// copy shares the cache policy and the notification registry.
func (r *MemberRepository) WithTx(tx bun.IDB) *MemberRepository {
	out := *r
	out.VersionableRepositoryBase = r.withDB(tx)
	out.memberTypes = r.memberTypes.WithTx(tx)
	out.groups = r.groups.WithTx(tx)
	out.tags = r.tags.WithTx(tx)
	out.bindHooks()
	return &out
}

// SetNoCachePolicy makes reads bypass the entity cache. Writes made through
// the repository afterwards no longer invalidate it, so it is meant for read
// only use.
func (r *MemberRepository) SetNoCachePolicy() {
	r.policy = repositorycache.NoCachePolicy[*models.Member]{}
}

func (r *MemberRepository) baseSql(latestOnly bool) *querying.Sql {
	s := querying.Select(memberColumns...).
		From(`"cmsMember"`).
		InnerJoin(`"cmsContentVersion"`, `"cmsContentVersion"."ContentId" = "cmsMember"."nodeId"`).
		InnerJoin(`"cmsContent"`, `"cmsContent"."nodeId" = "cmsContentVersion"."ContentId"`).
		InnerJoin(`"cmsContentType"`, `"cmsContentType"."nodeId" = "cmsContent"."contentType"`).
		InnerJoin(`"umbracoNode"`, `"umbracoNode"."id" = "cmsContent"."nodeId"`).
		Where(`"umbracoNode"."nodeObjectType" = ?`, models.ObjectTypeMember)
	if latestOnly {
		s.Where(latestVersionOnly)
	}
	return s
}

// nodeIDSqlWithPropertyData selects the ids of members, joined with their
// property types and property data so queries can filter on properties.
func (r *MemberRepository) nodeIDSqlWithPropertyData() *querying.Sql {
	return querying.Select(`DISTINCT "umbracoNode"."id"`).
		From(`"umbracoNode"`).
		InnerJoin(`"cmsContent"`, `"cmsContent"."nodeId" = "umbracoNode"."id"`).
		InnerJoin(`"cmsContentType"`, `"cmsContentType"."nodeId" = "cmsContent"."contentType"`).
		InnerJoin(`"cmsContentVersion"`, `"cmsContentVersion"."ContentId" = "umbracoNode"."id"`).
		InnerJoin(`"cmsMember"`, `"cmsMember"."nodeId" = "cmsContent"."nodeId"`).
		LeftJoin(`"cmsPropertyType"`, `"cmsPropertyType"."contentTypeId" = "cmsContent"."contentType"`).
		LeftJoin(`"cmsDataType"`, `"cmsDataType"."nodeId" = "cmsPropertyType"."dataTypeId"`).
		LeftJoin(`"cmsPropertyData"`, `"cmsPropertyData"."propertytypeid" = "cmsPropertyType"."id" AND "cmsPropertyData"."versionId" = "cmsContentVersion"."VersionId"`).
		Where(`"umbracoNode"."nodeObjectType" = ?`, models.ObjectTypeMember)
}

// querySql applies q to the latest version of every member. Queries on
// property values go through the node id subquery.
func (r *MemberRepository) querySql(q *querying.Query) (*querying.Sql, error) {
	base := r.baseSql(true)
	if q.ReferencesTable(memberMapper, "cmsPropertyType") || q.ReferencesTable(memberMapper, "cmsPropertyData") {
		sub, err := querying.Translate(r.nodeIDSqlWithPropertyData(), q, memberMapper)
		if err != nil {
			return nil, err
		}
		return base.WhereInSubquery(`"umbracoNode"."id"`, sub), nil
	}
	return querying.Translate(base, q, memberMapper)
}

func (r *MemberRepository) fetch(ctx context.Context, s *querying.Sql) ([]*models.Member, error) {
	var rows []dtos.MemberReadDto
	if err := s.Raw(r.db).Scan(ctx, &rows); err != nil {
		return nil, storageError(err, "member lookup failed")
	}
	return r.mapMembers(ctx, rows)
}

func (r *MemberRepository) fetchOne(ctx context.Context, s *querying.Sql) (*models.Member, bool, error) {
	items, err := r.fetch(ctx, s.Page(0, 1))
	if err != nil || len(items) == 0 {
		return nil, false, err
	}
	return items[0], true, nil
}

// mapMembers hydrates the rows and attaches their properties. Rows whose
// member type cannot be found are skipped.
func (r *MemberRepository) mapMembers(ctx context.Context, rows []dtos.MemberReadDto) ([]*models.Member, error) {
	if len(rows) == 0 {
		return []*models.Member{}, nil
	}

	types := make(map[int]*models.ContentType)
	defs := make([]DocumentDefinition, 0, len(rows))
	seen := make(map[versionKey]struct{}, len(rows))
	kept := make([]dtos.MemberReadDto, 0, len(rows))
	for _, row := range rows {
		ct, ok := types[row.ContentTypeID]
		if !ok {
			var err error
			ct, err = r.memberTypes.Get(ctx, row.ContentTypeID)
			if err != nil {
				return nil, err
			}
			types[row.ContentTypeID] = ct
		}
		if ct == nil {
			r.logger.Warn("member type not found", "id", row.NodeID, "content_type_id", row.ContentTypeID)
			continue
		}
		kept = append(kept, row)

		k := versionKey{row.NodeID, row.VersionID}
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		defs = append(defs, DocumentDefinition{
			ID:          row.NodeID,
			Version:     row.VersionID,
			VersionDate: row.VersionDate,
			CreateDate:  row.CreateDate,
			ContentType: ct,
		})
	}

	props, err := r.GetPropertyCollection(ctx, defs)
	if err != nil {
		return nil, err
	}

	out := make([]*models.Member, 0, len(kept))
	for _, row := range kept {
		out = append(out, factories.BuildMemberEntity(row, types[row.ContentTypeID], props[row.NodeID]))
	}
	return out, nil
}

// Get returns the newest version of the member with the given id, or nil.
func (r *MemberRepository) Get(ctx context.Context, id int) (*models.Member, error) {
	m, _, err := r.policy.Get(ctx, id, func(ctx context.Context, id int) (*models.Member, bool, error) {
		s := r.baseSql(false).
			Where(`"umbracoNode"."id" = ?`, id).
			OrderBy(`"cmsContentVersion"."VersionDate" DESC`, `"cmsContentVersion"."id" DESC`)
		return r.fetchOne(ctx, s)
	})
	return m, err
}

// GetByVersion returns the member as stored in the given version, or nil.
func (r *MemberRepository) GetByVersion(ctx context.Context, versionID uuid.UUID) (*models.Member, error) {
	s := r.baseSql(false).
		Where(`"cmsContentVersion"."VersionId" = ?`, versionID).
		OrderBy(`"cmsContentVersion"."VersionDate" DESC`)
	m, _, err := r.fetchOne(ctx, s)
	return m, err
}

// GetAll returns the members with the given ids, or every member when no id
// is given.
func (r *MemberRepository) GetAll(ctx context.Context, ids ...int) ([]*models.Member, error) {
	return r.policy.GetAll(ctx, ids, func(ctx context.Context, ids []int) ([]*models.Member, error) {
		s := r.baseSql(true)
		if len(ids) > 0 {
			s.WhereIn(`"umbracoNode"."id"`, ids)
		}
		return r.fetch(ctx, s.OrderBy(`"umbracoNode"."id"`))
	})
}

// GetByQuery returns the members matching q ordered by sort order.
func (r *MemberRepository) GetByQuery(ctx context.Context, q *querying.Query) ([]*models.Member, error) {
	s, err := r.querySql(q)
	if err != nil {
		return nil, err
	}
	return r.fetch(ctx, s.OrderBy(`"umbracoNode"."sortOrder"`, `"umbracoNode"."id"`))
}

// GetCountByQuery counts the members matching q.
func (r *MemberRepository) GetCountByQuery(ctx context.Context, q *querying.Query) (int, error) {
	sub, err := querying.Translate(r.nodeIDSqlWithPropertyData(), q, memberMapper)
	if err != nil {
		return 0, err
	}
	s := r.baseSql(true).WhereInSubquery(`"umbracoNode"."id"`, sub)
	return r.count(ctx, s)
}

// Exists reports whether a member with the given id exists.
func (r *MemberRepository) Exists(ctx context.Context, id int) (bool, error) {
	return r.policy.Exists(ctx, id, func(ctx context.Context, id int) (bool, error) {
		n, err := r.db.NewSelect().
			Model((*dtos.NodeDto)(nil)).
			Where(`"umbracoNode"."id" = ?`, id).
			Where(`"umbracoNode"."nodeObjectType" = ?`, models.ObjectTypeMember).
			Count(ctx)
		if err != nil {
			return false, storageError(err, "member lookup failed")
		}
		return n > 0, nil
	})
}

// ExistsByUsername reports whether a member uses the login name.
func (r *MemberRepository) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	n, err := r.db.NewSelect().
		Model((*dtos.MemberDto)(nil)).
		Where(`"LoginName" = ?`, username).
		Count(ctx)
	if err != nil {
		return false, storageError(err, "member lookup failed")
	}
	return n > 0, nil
}

// GetByUsername returns the member with the login name, or nil.
func (r *MemberRepository) GetByUsername(ctx context.Context, username string) (*models.Member, error) {
	m, _, err := r.policy.Lookup(ctx, "GetByUsername", []any{username}, func(ctx context.Context) (*models.Member, bool, error) {
		items, err := r.GetByQuery(ctx, querying.NewQuery(querying.Eq("Username", username)))
		if err != nil || len(items) == 0 {
			return nil, false, err
		}
		return items[0], true, nil
	})
	return m, err
}

// GetPagedResultsByQuery returns one page of the members matching
// req.Query and the number of matching members.
func (r *MemberRepository) GetPagedResultsByQuery(ctx context.Context, req PageRequest) ([]*models.Member, int64, error) {
	s, err := r.querySql(req.Query)
	if err != nil {
		return nil, 0, err
	}

	var rows []dtos.MemberReadDto
	total, err := r.pagedRows(ctx, s, req, memberPagedShape, &rows)
	if err != nil {
		return nil, 0, err
	}
	members, err := r.mapMembers(ctx, rows)
	if err != nil {
		return nil, 0, err
	}
	return members, total, nil
}

// FindMembersInRole returns the members of the role whose login name
// matches pattern. An unknown role yields no members.
func (r *MemberRepository) FindMembersInRole(ctx context.Context, role, pattern string, matchType models.StringMatchType) ([]*models.Member, error) {
	groups, err := r.groups.GetByQuery(ctx, querying.NewQuery(querying.Eq("Name", role)))
	if err != nil {
		return nil, err
	}
	if len(groups) == 0 {
		return []*models.Member{}, nil
	}
	groupID := groups[0].ID()

	matched, err := r.GetByQuery(ctx, querying.NewQuery(querying.Match("Username", pattern, matchType)))
	if err != nil {
		return nil, err
	}

	ids := make([]int, 0, len(matched))
	for _, m := range matched {
		ids = append(ids, m.ID())
	}

	inGroup := make(map[int]struct{})
	for batch := range slices.Chunk(ids, r.cfg.RoleBatchSize) {
		var links []dtos.Member2MemberGroupDto
		if err := r.db.NewSelect().
			Model(&links).
			Where(`"MemberGroup" = ?`, groupID).
			Where(`"Member" IN (?)`, bun.In(batch)).
			Scan(ctx); err != nil {
			return nil, storageError(err, "member role lookup failed")
		}
		for _, l := range links {
			inGroup[l.Member] = struct{}{}
		}
	}

	out := make([]*models.Member, 0, len(inGroup))
	for _, m := range matched {
		if _, ok := inGroup[m.ID()]; ok {
			out = append(out, m)
		}
	}
	return out, nil
}

// GetMembersByRole returns every member of the role.
func (r *MemberRepository) GetMembersByRole(ctx context.Context, role string) ([]*models.Member, error) {
	return r.FindMembersInRole(ctx, role, "", models.MatchContains)
}

// GetByMemberGroup returns the members linked to the named group, newest
// version first and then by sort order.
func (r *MemberRepository) GetByMemberGroup(ctx context.Context, groupName string) ([]*models.Member, error) {
	groups, err := r.groups.GetByQuery(ctx, querying.NewQuery(querying.Eq("Name", groupName)))
	if err != nil {
		return nil, err
	}
	if len(groups) == 0 {
		return []*models.Member{}, nil
	}

	sub := querying.Select(`"Member"`).
		From(`"cmsMember2MemberGroup"`).
		Where(`"MemberGroup" = ?`, groups[0].ID())
	s := r.baseSql(true).
		WhereInSubquery(`"umbracoNode"."id"`, sub).
		OrderBy(`"cmsContentVersion"."VersionDate" DESC`, `"umbracoNode"."sortOrder" ASC`)
	return r.fetch(ctx, s)
}

// Save inserts a new member or updates a stored one in one transaction. When
// the transaction fails the member gets back the ids, placement and version
// it had before the call.
func (r *MemberRepository) Save(ctx context.Context, m *models.Member) error {
	return r.policy.Save(ctx, m, func(ctx context.Context, m *models.Member) error {
		cp := m.ContentCheckpoint()
		err := r.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
			repo := r.WithTx(tx)
			if m.HasIdentity() {
				return repo.PersistUpdatedItem(ctx, m)
			}
			return repo.PersistNewItem(ctx, m)
		})
		if err != nil {
			m.RestoreContent(cp)
		}
		return err
	})
}

// Delete removes the member and everything attached to it in one
// transaction.
func (r *MemberRepository) Delete(ctx context.Context, m *models.Member) error {
	return r.policy.Delete(ctx, m, func(ctx context.Context, m *models.Member) error {
		return r.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
			return r.WithTx(tx).PersistDeletedItem(ctx, m)
		})
	})
}

func (r *MemberRepository) parentNode(ctx context.Context, parentID int) (*dtos.NodeDto, error) {
	var nodes []dtos.NodeDto
	if err := r.db.NewSelect().
		Model(&nodes).
		Where(`"umbracoNode"."id" = ?`, parentID).
		Scan(ctx); err != nil {
		return nil, storageError(err, "parent lookup failed")
	}
	if len(nodes) == 0 {
		return nil, goerrors.New("parent node not found", goerrors.CategoryNotFound).
			WithTextCode("PARENT_NOT_FOUND").
			WithMetadata(map[string]any{"parent_id": parentID})
	}
	return &nodes[0], nil
}

func (r *MemberRepository) siblingCount(ctx context.Context, parentID int) (int, error) {
	n, err := r.db.NewSelect().
		Model((*dtos.NodeDto)(nil)).
		Where(`"umbracoNode"."parentID" = ?`, parentID).
		Where(`"umbracoNode"."nodeObjectType" = ?`, models.ObjectTypeMember).
		Count(ctx)
	if err != nil {
		return 0, storageError(err, "sibling count failed")
	}
	return n, nil
}

// PersistNewItem inserts the member's rows: node, content, version, member
// and property data, in that order, then syncs its tags. Properties whose
// type is not stored on the member type are skipped.
func (r *MemberRepository) PersistNewItem(ctx context.Context, m *models.Member) error {
	m.AddingEntity(r.now())
	m.EnsureVersion()

	parent, err := r.parentNode(ctx, m.ParentID())
	if err != nil {
		return err
	}
	sortOrder, err := r.siblingCount(ctx, m.ParentID())
	if err != nil {
		return err
	}

	rows := factories.BuildMemberRows(m)
	rows.Node.Level = parent.Level + 1
	rows.Node.SortOrder = sortOrder
	rows.Node.Path = parent.Path
	if _, err := r.db.NewInsert().Model(&rows.Node).Exec(ctx); err != nil {
		return storageError(err, "insert member node failed")
	}

	id := rows.Node.NodeID
	rows.Node.Path = parent.Path + "," + strconv.Itoa(id)
	if _, err := r.db.NewUpdate().Model(&rows.Node).Column("path").WherePK().Exec(ctx); err != nil {
		return storageError(err, "update member path failed")
	}
	m.SetID(id)
	m.SetPath(rows.Node.Path)
	m.SetLevel(rows.Node.Level)
	m.SetSortOrder(rows.Node.SortOrder)

	rows.Content.NodeID = id
	if _, err := r.db.NewInsert().Model(&rows.Content).Exec(ctx); err != nil {
		return storageError(err, "insert member content failed")
	}
	rows.Version.NodeID = id
	if _, err := r.db.NewInsert().Model(&rows.Version).Exec(ctx); err != nil {
		return storageError(err, "insert member version failed")
	}
	rows.Member.NodeID = id
	if _, err := r.db.NewInsert().Model(&rows.Member).Exec(ctx); err != nil {
		return storageError(err, "insert member failed")
	}

	if err := r.writeProperties(ctx, m, true); err != nil {
		return err
	}
	if err := r.syncTags(ctx, m); err != nil {
		return err
	}

	m.ResetDirtyProperties()
	r.events.RaiseRefreshed(ctx, m)
	return nil
}

// PersistUpdatedItem writes the member's changes. Node placement is only
// recomputed when the parent changed. Login name, email and password are
// written only when changed, and a blank password never replaces the
// stored one. After NewVersion a new version row and new property rows are
// written instead of updating the current ones.
func (r *MemberRepository) PersistUpdatedItem(ctx context.Context, m *models.Member) error {
	m.UpdatingEntity(r.now())

	if m.IsPropertyDirty("ParentId") {
		parent, err := r.parentNode(ctx, m.ParentID())
		if err != nil {
			return err
		}
		sortOrder, err := r.siblingCount(ctx, m.ParentID())
		if err != nil {
			return err
		}
		m.SetPath(parent.Path + "," + strconv.Itoa(m.ID()))
		m.SetLevel(parent.Level + 1)
		m.SetSortOrder(sortOrder)
	}

	rows := factories.BuildMemberRows(m)
	res, err := r.db.NewUpdate().
		Model(&rows.Node).
		Column("trashed", "parentID", "nodeUser", "level", "path", "sortOrder", "text").
		WherePK().
		Exec(ctx)
	if err != nil {
		return storageError(err, "update member node failed")
	}
	if err := requireRow(res, "member", m.ID()); err != nil {
		return err
	}

	if m.IsPropertyDirty("ContentTypeId") {
		if _, err := r.db.NewUpdate().
			Model((*dtos.ContentDto)(nil)).
			Set(`"contentType" = ?`, rows.Content.ContentTypeID).
			Where(`"nodeId" = ?`, m.ID()).
			Exec(ctx); err != nil {
			return storageError(err, "update member content failed")
		}
	}

	newVersion := m.RequiresNewVersion()
	if newVersion {
		if _, err := r.db.NewInsert().Model(&rows.Version).Exec(ctx); err != nil {
			return storageError(err, "insert member version failed")
		}
	} else if _, err := r.db.NewUpdate().
		Model((*dtos.ContentVersionDto)(nil)).
		Set(`"VersionDate" = ?`, rows.Version.VersionDate).
		Where(`"VersionId" = ?`, rows.Version.VersionID).
		Exec(ctx); err != nil {
		return storageError(err, "update member version failed")
	}

	if err := r.updateMemberRow(ctx, m, rows.Member); err != nil {
		return err
	}
	if err := r.writeProperties(ctx, m, newVersion); err != nil {
		return err
	}
	if err := r.syncTags(ctx, m); err != nil {
		return err
	}

	m.ResetDirtyProperties()
	r.events.RaiseRefreshed(ctx, m)
	return nil
}

func (r *MemberRepository) updateMemberRow(ctx context.Context, m *models.Member, row dtos.MemberDto) error {
	q := r.db.NewUpdate().
		Model((*dtos.MemberDto)(nil)).
		Where(`"nodeId" = ?`, m.ID())

	changed := false
	if m.IsPropertyDirty("Email") {
		q = q.Set(`"Email" = ?`, row.Email)
		changed = true
	}
	if m.IsPropertyDirty("Username") {
		q = q.Set(`"LoginName" = ?`, row.LoginName)
		changed = true
	}
	if m.IsPropertyDirty("RawPasswordValue") && strings.TrimSpace(row.Password) != "" {
		q = q.Set(`"Password" = ?`, row.Password)
		changed = true
	}
	if !changed {
		return nil
	}
	if _, err := q.Exec(ctx); err != nil {
		return storageError(err, "update member failed")
	}
	return nil
}

// writeProperties stores the property values of the member's current
// version. With fresh set every property gets a new row.
func (r *MemberRepository) writeProperties(ctx context.Context, m *models.Member, fresh bool) error {
	ct := m.ContentType()
	version := m.Version()
	for _, p := range m.Properties().All() {
		pt := p.PropertyType()
		if !pt.HasIdentity() || !ct.HasPropertyTypeID(pt.ID) {
			continue
		}

		row := factories.BuildPropertyDataDto(m.ID(), version, p)
		if !fresh && p.HasIdentity() {
			row.ID = p.ID()
			if _, err := r.db.NewUpdate().Model(&row).WherePK().Exec(ctx); err != nil {
				return storageError(err, "update property data failed")
			}
		} else {
			row.ID = 0
			if _, err := r.db.NewInsert().Model(&row).Exec(ctx); err != nil {
				return storageError(err, "insert property data failed")
			}
		}
		p.SetID(row.ID)
		p.SetVersion(version)
	}
	return nil
}

// syncTags recomputes the tags of tag enabled properties from their values
// and writes them. Properties flagged for tag removal keep the tags the
// caller set.
func (r *MemberRepository) syncTags(ctx context.Context, m *models.Member) error {
	ct := m.ContentType()
	var preValues map[int]models.PreValueCollection
	for _, p := range m.Properties().All() {
		pt := p.PropertyType()
		capability := r.editors.Capability(pt.PropertyEditorAlias)
		if !capability.SupportsTags || !pt.HasIdentity() || !ct.HasPropertyTypeID(pt.ID) {
			continue
		}

		if p.TagSupport.Behavior != models.TagRemove || !p.TagSupport.Enable {
			if preValues == nil {
				var err error
				preValues, err = preValueCollections(ctx, r.db, tagDataTypeIDs([]DocumentDefinition{{ContentType: ct}}, r.editors))
				if err != nil {
					return err
				}
			}
			p.TagSupport = models.TagSupport{
				Enable:   true,
				Behavior: capability.Tags.Behavior(),
				Tags:     propertyeditors.ExtractTags(p.Value(), capability.Tags, preValues[pt.DataTypeID]),
			}
		}

		var err error
		if p.TagSupport.Behavior == models.TagRemove {
			err = r.tags.RemoveTagsFromProperty(ctx, m.ID(), pt.ID, p.TagSupport.Tags)
		} else {
			err = r.tags.AssignTagsToProperty(ctx, m.ID(), pt.ID, p.TagSupport.Tags, p.TagSupport.Behavior == models.TagReplace)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// PersistDeletedItem raises the removing notification and then deletes the
// member's rows in foreign key order.
func (r *MemberRepository) PersistDeletedItem(ctx context.Context, m *models.Member) error {
	r.events.RaiseRemoving(ctx, m)
	return runCascade(ctx, r.db, memberCascade, m.ID())
}

// PerformDeleteVersion deletes the property data and the version row of one
// version of a member.
func (r *MemberRepository) PerformDeleteVersion(ctx context.Context, tx bun.IDB, id int, versionID uuid.UUID) error {
	return performDeleteVersion(ctx, tx, id, versionID)
}
