package repositories

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	repository "github.com/goliatone/go-repository-bun"
	"github.com/uptrace/bun"

	"github.com/goliatone/go-content-repository/cache"
	"github.com/goliatone/go-content-repository/logging"
	"github.com/goliatone/go-content-repository/models"
	"github.com/goliatone/go-content-repository/notifications"
	"github.com/goliatone/go-content-repository/persistence/dtos"
	"github.com/goliatone/go-content-repository/persistence/factories"
	"github.com/goliatone/go-content-repository/persistence/querying"
	"github.com/goliatone/go-content-repository/repositorycache"
)

var memberGroupMapper = querying.ColumnMap{
	"Id":         "umbracoNode.id",
	"Key":        "umbracoNode.uniqueID",
	"Name":       "umbracoNode.text",
	"ParentId":   "umbracoNode.parentID",
	"Path":       "umbracoNode.path",
	"Level":      "umbracoNode.level",
	"SortOrder":  "umbracoNode.sortOrder",
	"CreateDate": "umbracoNode.createDate",
	"CreatorId":  "umbracoNode.nodeUser",
}

var memberGroupTypeName = cache.TypeFullName(&models.MemberGroup{})

// NewMemberGroupPolicy returns the cache policy for member groups. A nil
// service disables caching.
func NewMemberGroupPolicy(svc cache.CacheService) repositorycache.Policy[*models.MemberGroup] {
	if svc == nil {
		return repositorycache.NoCachePolicy[*models.MemberGroup]{}
	}
	return repositorycache.NewDefaultPolicy(svc, repositorycache.Options[*models.MemberGroup]{
		IDOf:  func(g *models.MemberGroup) int { return g.ID() },
		Clone: func(g *models.MemberGroup) *models.MemberGroup { return g.DeepClone() },
	})
}

// MemberGroupRepository stores member groups and the links between members
// and groups.
type MemberGroupRepository struct {
	db      bun.IDB
	policy  repositorycache.Policy[*models.MemberGroup]
	runtime cache.CacheService
	events  *notifications.Registry[*models.MemberGroup]
	logger  *slog.Logger
	now     func() time.Time
}

// NewMemberGroupRepository builds the repository. runtime backs GetByName
// and may be nil; events may be nil when nobody listens.
func NewMemberGroupRepository(
	db bun.IDB,
	policy repositorycache.Policy[*models.MemberGroup],
	runtime cache.CacheService,
	events *notifications.Registry[*models.MemberGroup],
	opts Options,
) *MemberGroupRepository {
	opts = opts.withDefaults()
	if policy == nil {
		policy = repositorycache.NoCachePolicy[*models.MemberGroup]{}
	}
	if events == nil {
		events = notifications.NewRegistry[*models.MemberGroup]()
	}
	return &MemberGroupRepository{
		db:      db,
		policy:  policy,
		runtime: runtime,
		events:  events,
		logger:  logging.Component(opts.Logger, "member_group_repository"),
		now:     opts.Now,
	}
}

// WithTx returns a copy running on tx. The copy shares the caches and the
// notification registry.
func (r *MemberGroupRepository) WithTx(tx bun.IDB) *MemberGroupRepository {
	out := *r
	out.db = tx
	return &out
}

func (r *MemberGroupRepository) Events() *notifications.Registry[*models.MemberGroup] {
	return r.events
}

// Get returns the group with the given id, or nil.
func (r *MemberGroupRepository) Get(ctx context.Context, id int) (*models.MemberGroup, error) {
	g, _, err := r.policy.Get(ctx, id, func(ctx context.Context, id int) (*models.MemberGroup, bool, error) {
		return r.first(ctx, querying.NewQuery(querying.Eq("Id", id)))
	})
	return g, err
}

// GetAll returns the groups with the given ids, or every group when no id
// is given.
func (r *MemberGroupRepository) GetAll(ctx context.Context, ids ...int) ([]*models.MemberGroup, error) {
	return r.policy.GetAll(ctx, ids, func(ctx context.Context, ids []int) ([]*models.MemberGroup, error) {
		q := querying.NewQuery()
		if len(ids) > 0 {
			q.Where(querying.In("Id", ids))
		}
		return r.GetByQuery(ctx, q)
	})
}

// GetByQuery returns the groups matching q.
func (r *MemberGroupRepository) GetByQuery(ctx context.Context, q *querying.Query) ([]*models.MemberGroup, error) {
	criteria, err := querying.Criteria(q, memberGroupMapper)
	if err != nil {
		return nil, err
	}
	return r.fetch(ctx, r.db, criteria...)
}

// Exists reports whether a group with the given id exists.
func (r *MemberGroupRepository) Exists(ctx context.Context, id int) (bool, error) {
	return r.policy.Exists(ctx, id, func(ctx context.Context, id int) (bool, error) {
		n, err := r.db.NewSelect().
			Model((*dtos.NodeDto)(nil)).
			Where(`"umbracoNode"."id" = ?`, id).
			Where(`"umbracoNode"."nodeObjectType" = ?`, models.ObjectTypeMemberGroup).
			Count(ctx)
		if err != nil {
			return false, storageError(err, "member group lookup failed")
		}
		return n > 0, nil
	})
}

func (r *MemberGroupRepository) first(ctx context.Context, q *querying.Query) (*models.MemberGroup, bool, error) {
	items, err := r.GetByQuery(ctx, q)
	if err != nil || len(items) == 0 {
		return nil, false, err
	}
	return items[0], true, nil
}

func (r *MemberGroupRepository) fetch(ctx context.Context, db bun.IDB, criteria ...repository.SelectCriteria) ([]*models.MemberGroup, error) {
	var nodes []dtos.NodeDto
	q := db.NewSelect().
		Model(&nodes).
		Where(`"umbracoNode"."nodeObjectType" = ?`, models.ObjectTypeMemberGroup)
	for _, c := range criteria {
		q = c(q)
	}
	if err := q.OrderExpr(`"umbracoNode"."id" ASC`).Scan(ctx); err != nil {
		return nil, storageError(err, "member group lookup failed")
	}
	return buildMemberGroups(nodes), nil
}

func buildMemberGroups(nodes []dtos.NodeDto) []*models.MemberGroup {
	out := make([]*models.MemberGroup, 0, len(nodes))
	seen := make(map[int]struct{}, len(nodes))
	for _, n := range nodes {
		if _, ok := seen[n.NodeID]; ok {
			continue
		}
		seen[n.NodeID] = struct{}{}
		out = append(out, factories.BuildMemberGroupEntity(n))
	}
	return out
}

// GetByName returns the group with the given name, or nil. Found groups are
// kept in the runtime cache with a sliding expiry; misses are not cached.
func (r *MemberGroupRepository) GetByName(ctx context.Context, name string) (*models.MemberGroup, error) {
	fetch := func(ctx context.Context) (*models.MemberGroup, bool, error) {
		return r.first(ctx, querying.NewQuery(querying.Eq("Name", name)))
	}
	if r.runtime == nil {
		g, _, err := fetch(ctx)
		return g, err
	}

	g, found, err := cache.GetSliding(ctx, r.runtime, cache.TypeNameKey(memberGroupTypeName, name), fetch)
	if err != nil || !found {
		return nil, err
	}
	return g.DeepClone(), nil
}

// Save stores the group.
func (r *MemberGroupRepository) Save(ctx context.Context, g *models.MemberGroup) error {
	err := r.policy.Save(ctx, g, func(ctx context.Context, g *models.MemberGroup) error {
		cp := g.NodeCheckpoint()
		err := r.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
			if g.HasIdentity() {
				return r.persistUpdated(ctx, tx, g)
			}
			return r.persistNew(ctx, tx, g)
		})
		if err != nil {
			g.RestoreNode(cp)
		}
		return err
	})
	if err != nil {
		return err
	}
	return r.invalidateNames(ctx)
}

// Delete removes the group and its member links.
func (r *MemberGroupRepository) Delete(ctx context.Context, g *models.MemberGroup) error {
	err := r.policy.Delete(ctx, g, func(ctx context.Context, g *models.MemberGroup) error {
		return r.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
			return runCascade(ctx, tx, memberGroupCascade, g.ID())
		})
	})
	if err != nil {
		return err
	}
	return r.invalidateNames(ctx)
}

func (r *MemberGroupRepository) persistNew(ctx context.Context, db bun.IDB, g *models.MemberGroup) error {
	g.AddingEntity(r.now())
	node := factories.BuildMemberGroupDto(g)
	node.ParentID = models.RootID
	node.Level = 1
	node.Path = "-1"
	if _, err := db.NewInsert().Model(&node).Exec(ctx); err != nil {
		return storageError(err, "insert member group failed")
	}

	node.Path = "-1," + strconv.Itoa(node.NodeID)
	if _, err := db.NewUpdate().Model(&node).Column("path").WherePK().Exec(ctx); err != nil {
		return storageError(err, "update member group path failed")
	}

	g.SetID(node.NodeID)
	g.SetParentID(node.ParentID)
	g.SetLevel(node.Level)
	g.SetPath(node.Path)
	g.ResetDirtyProperties()
	return nil
}

func (r *MemberGroupRepository) persistUpdated(ctx context.Context, db bun.IDB, g *models.MemberGroup) error {
	g.UpdatingEntity(r.now())
	node := factories.BuildMemberGroupDto(g)
	res, err := db.NewUpdate().Model(&node).WherePK().Exec(ctx)
	if err != nil {
		return storageError(err, "update member group failed")
	}
	if err := requireRow(res, "member group", g.ID()); err != nil {
		return err
	}
	g.ResetDirtyProperties()
	return nil
}

// invalidateNames drops every cached by-name lookup. A rename leaves no
// stale entry under the old name.
func (r *MemberGroupRepository) invalidateNames(ctx context.Context) error {
	if r.runtime == nil {
		return nil
	}
	return r.runtime.DeleteByPrefix(ctx, cache.TypeNameKey(memberGroupTypeName, ""))
}

// CreateIfNotExists creates a group with the given name. It returns nil when
// the group already exists or a saving handler cancels.
func (r *MemberGroupRepository) CreateIfNotExists(ctx context.Context, name string) (*models.MemberGroup, error) {
	existing, err := r.GetByQuery(ctx, querying.NewQuery(querying.Eq("Name", name)))
	if err != nil {
		return nil, err
	}
	if len(existing) > 0 {
		return nil, nil
	}

	g := models.NewMemberGroup(name)
	if r.events.RaiseSaving(ctx, &notifications.SavingArgs[*models.MemberGroup]{Entities: []*models.MemberGroup{g}}) {
		r.logger.Debug("member group creation cancelled", "name", name)
		return nil, nil
	}
	if err := r.Save(ctx, g); err != nil {
		return nil, err
	}
	r.events.RaiseSaved(ctx, notifications.SavedArgs[*models.MemberGroup]{Entities: []*models.MemberGroup{g}})
	return g, nil
}

// GetMemberGroupsForMember returns the groups the member is linked to.
func (r *MemberGroupRepository) GetMemberGroupsForMember(ctx context.Context, memberID int) ([]*models.MemberGroup, error) {
	var nodes []dtos.NodeDto
	if err := r.db.NewSelect().
		Model(&nodes).
		Join(`INNER JOIN "cmsMember2MemberGroup" ON "cmsMember2MemberGroup"."MemberGroup" = "umbracoNode"."id"`).
		Where(`"umbracoNode"."nodeObjectType" = ?`, models.ObjectTypeMemberGroup).
		Where(`"cmsMember2MemberGroup"."Member" = ?`, memberID).
		OrderExpr(`"umbracoNode"."id" ASC`).
		Scan(ctx); err != nil {
		return nil, storageError(err, "member group lookup failed")
	}
	return buildMemberGroups(nodes), nil
}

// GetMemberGroupsForMemberByUsername returns the groups of the member with
// the given login name. An unknown username yields no groups.
func (r *MemberGroupRepository) GetMemberGroupsForMemberByUsername(ctx context.Context, username string) ([]*models.MemberGroup, error) {
	ids, err := memberIDsByUsernames(ctx, r.db, []string{username})
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return []*models.MemberGroup{}, nil
	}
	return r.GetMemberGroupsForMember(ctx, ids[0])
}

// AssignRoles links the members with the given login names to the roles,
// creating missing roles.
func (r *MemberGroupRepository) AssignRoles(ctx context.Context, usernames, roleNames []string) error {
	ids, err := memberIDsByUsernames(ctx, r.db, usernames)
	if err != nil {
		return err
	}
	return r.AssignRolesInternal(ctx, ids, roleNames)
}

// DissociateRoles unlinks the members with the given login names from the
// roles.
func (r *MemberGroupRepository) DissociateRoles(ctx context.Context, usernames, roleNames []string) error {
	ids, err := memberIDsByUsernames(ctx, r.db, usernames)
	if err != nil {
		return err
	}
	return r.DissociateRolesInternal(ctx, ids, roleNames)
}

func (r *MemberGroupRepository) AssignRolesByIDs(ctx context.Context, memberIDs []int, roleNames []string) error {
	return r.AssignRolesInternal(ctx, memberIDs, roleNames)
}

func (r *MemberGroupRepository) DissociateRolesByIDs(ctx context.Context, memberIDs []int, roleNames []string) error {
	return r.DissociateRolesInternal(ctx, memberIDs, roleNames)
}

type assignedRole struct {
	RoleName    string `bun:"text"`
	MemberID    int    `bun:"Member"`
	MemberGroup int    `bun:"MemberGroup"`
}

// AssignRolesInternal links every member to every role. Missing roles are
// created first, subject to the saving notification; a cancelled save
// assigns nothing. Existing links are kept, so repeated calls are
// idempotent.
func (r *MemberGroupRepository) AssignRolesInternal(ctx context.Context, memberIDs []int, roleNames []string) error {
	memberIDs = distinctInts(memberIDs)
	roleNames = distinctNames(roleNames)
	if len(roleNames) == 0 {
		return nil
	}

	created := false
	err := r.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		existing, err := r.groupsByName(ctx, tx, roleNames)
		if err != nil {
			return err
		}

		var missing []*models.MemberGroup
		for _, name := range roleNames {
			if _, ok := existing[name]; !ok {
				missing = append(missing, models.NewMemberGroup(name))
			}
		}

		if len(missing) > 0 {
			if r.events.RaiseSaving(ctx, &notifications.SavingArgs[*models.MemberGroup]{Entities: missing}) {
				r.logger.Debug("role assignment cancelled", "roles", len(missing))
				return nil
			}
			for _, g := range missing {
				if err := r.persistNew(ctx, tx, g); err != nil {
					return err
				}
				existing[g.Name()] = g.ID()
			}
			created = true
			r.events.RaiseSaved(ctx, notifications.SavedArgs[*models.MemberGroup]{Entities: missing})
		}

		if len(memberIDs) == 0 {
			return nil
		}

		var assigned []assignedRole
		if err := tx.NewSelect().
			ColumnExpr(`"umbracoNode"."text", "cmsMember2MemberGroup"."Member", "cmsMember2MemberGroup"."MemberGroup"`).
			TableExpr(`"umbracoNode"`).
			Join(`INNER JOIN "cmsMember2MemberGroup" ON "cmsMember2MemberGroup"."MemberGroup" = "umbracoNode"."id"`).
			Where(`"umbracoNode"."nodeObjectType" = ?`, models.ObjectTypeMemberGroup).
			Where(`"cmsMember2MemberGroup"."Member" IN (?)`, bun.In(memberIDs)).
			Scan(ctx, &assigned); err != nil {
			return storageError(err, "assigned role lookup failed")
		}

		type link struct {
			member int
			role   string
		}
		linked := make(map[link]struct{}, len(assigned))
		for _, a := range assigned {
			linked[link{a.MemberID, a.RoleName}] = struct{}{}
		}

		for _, id := range memberIDs {
			for _, name := range roleNames {
				if _, ok := linked[link{id, name}]; ok {
					continue
				}
				row := &dtos.Member2MemberGroupDto{Member: id, MemberGroup: existing[name]}
				if _, err := tx.NewInsert().Model(row).Exec(ctx); err != nil {
					return storageError(err, "insert member role failed")
				}
				linked[link{id, name}] = struct{}{}
			}
		}
		return nil
	})
	if err != nil || !created {
		return err
	}
	return r.invalidateNames(ctx)
}

// DissociateRolesInternal removes the links between the members and the
// roles in one delete. Unknown roles are ignored.
func (r *MemberGroupRepository) DissociateRolesInternal(ctx context.Context, memberIDs []int, roleNames []string) error {
	if len(memberIDs) == 0 || len(roleNames) == 0 {
		return nil
	}
	groups, err := r.groupsByName(ctx, r.db, distinctNames(roleNames))
	if err != nil {
		return err
	}
	if len(groups) == 0 {
		return nil
	}
	groupIDs := make([]int, 0, len(groups))
	for _, id := range groups {
		groupIDs = append(groupIDs, id)
	}

	if _, err := r.db.NewDelete().
		Model((*dtos.Member2MemberGroupDto)(nil)).
		Where(`"Member" IN (?)`, bun.In(distinctInts(memberIDs))).
		Where(`"MemberGroup" IN (?)`, bun.In(groupIDs)).
		Exec(ctx); err != nil {
		return storageError(err, "delete member roles failed")
	}
	return nil
}

// groupsByName maps the names of the existing groups among names to their
// ids.
func (r *MemberGroupRepository) groupsByName(ctx context.Context, db bun.IDB, names []string) (map[string]int, error) {
	out := make(map[string]int, len(names))
	if len(names) == 0 {
		return out, nil
	}
	var nodes []dtos.NodeDto
	if err := db.NewSelect().
		Model(&nodes).
		Where(`"umbracoNode"."nodeObjectType" = ?`, models.ObjectTypeMemberGroup).
		Where(`"umbracoNode"."text" IN (?)`, bun.In(names)).
		OrderExpr(`"umbracoNode"."id" ASC`).
		Scan(ctx); err != nil {
		return nil, storageError(err, "member group lookup failed")
	}
	for _, n := range nodes {
		if _, ok := out[n.Text]; !ok {
			out[n.Text] = n.NodeID
		}
	}
	return out, nil
}

// memberIDsByUsernames resolves login names to member node ids.
func memberIDsByUsernames(ctx context.Context, db bun.IDB, usernames []string) ([]int, error) {
	if len(usernames) == 0 {
		return nil, nil
	}
	var ids []int
	if err := db.NewSelect().
		ColumnExpr(`"umbracoNode"."id"`).
		TableExpr(`"umbracoNode"`).
		Join(`INNER JOIN "cmsMember" ON "cmsMember"."nodeId" = "umbracoNode"."id"`).
		Where(`"umbracoNode"."nodeObjectType" = ?`, models.ObjectTypeMember).
		Where(`"cmsMember"."LoginName" IN (?)`, bun.In(usernames)).
		OrderExpr(`"umbracoNode"."id" ASC`).
		Scan(ctx, &ids); err != nil {
		return nil, storageError(err, "member lookup failed")
	}
	return ids, nil
}

func distinctNames(names []string) []string {
	seen := make(map[string]struct{}, len(names))
	out := make([]string, 0, len(names))
	for _, n := range names {
		if n == "" {
			continue
		}
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	return out
}
