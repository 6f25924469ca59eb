package models

import (
	"time"

	"github.com/google/uuid"
)

// Entity is the identity part shared by every persisted node.
type Entity struct {
	DirtyTracker
	id         int
	key        uuid.UUID
	createDate time.Time
	updateDate time.Time
}

func (e *Entity) ID() int { return e.id }

func (e *Entity) SetID(id int) {
	e.id = id
	e.markDirty("Id")
}

// HasIdentity reports whether the entity has been assigned a storage id.
func (e *Entity) HasIdentity() bool { return e.id != 0 }

func (e *Entity) Key() uuid.UUID { return e.key }

func (e *Entity) SetKey(key uuid.UUID) {
	e.key = key
	e.markDirty("Key")
}

func (e *Entity) CreateDate() time.Time { return e.createDate }

func (e *Entity) UpdateDate() time.Time { return e.updateDate }

// AddingEntity stamps the key and dates before the first insert.
func (e *Entity) AddingEntity(now time.Time) {
	if e.key == uuid.Nil {
		e.SetKey(uuid.New())
	}
	if e.createDate.IsZero() {
		e.createDate = now
		e.markDirty("CreateDate")
	}
	e.updateDate = now
	e.markDirty("UpdateDate")
}

// UpdatingEntity stamps the update date before an update.
func (e *Entity) UpdatingEntity(now time.Time) {
	e.updateDate = now
	e.markDirty("UpdateDate")
}

// TreeEntity adds the node hierarchy fields.
type TreeEntity struct {
	Entity
	parentID  int
	path      string
	level     int
	sortOrder int
	name      string
	creatorID int
	trashed   bool
}

func (t *TreeEntity) ParentID() int { return t.parentID }

func (t *TreeEntity) SetParentID(id int) {
	t.parentID = id
	t.markDirty("ParentId")
}

func (t *TreeEntity) Path() string { return t.path }

func (t *TreeEntity) SetPath(path string) {
	t.path = path
	t.markDirty("Path")
}

func (t *TreeEntity) Level() int { return t.level }

func (t *TreeEntity) SetLevel(level int) {
	t.level = level
	t.markDirty("Level")
}

func (t *TreeEntity) SortOrder() int { return t.sortOrder }

func (t *TreeEntity) SetSortOrder(order int) {
	t.sortOrder = order
	t.markDirty("SortOrder")
}

func (t *TreeEntity) Name() string { return t.name }

func (t *TreeEntity) SetName(name string) {
	t.name = name
	t.markDirty("Name")
}

func (t *TreeEntity) CreatorID() int { return t.creatorID }

func (t *TreeEntity) SetCreatorID(id int) {
	t.creatorID = id
	t.markDirty("CreatorId")
}

func (t *TreeEntity) Trashed() bool { return t.trashed }

func (t *TreeEntity) SetTrashed(trashed bool) {
	t.trashed = trashed
	t.markDirty("Trashed")
}

// NodeState is the stored node state used to hydrate an entity.
type NodeState struct {
	ID         int
	Key        uuid.UUID
	Name       string
	ParentID   int
	Path       string
	Level      int
	SortOrder  int
	CreatorID  int
	Trashed    bool
	CreateDate time.Time
	UpdateDate time.Time
}

func (t *TreeEntity) assign(s NodeState) {
	t.id = s.ID
	t.key = s.Key
	t.name = s.Name
	t.parentID = s.ParentID
	t.path = s.Path
	t.level = s.Level
	t.sortOrder = s.SortOrder
	t.creatorID = s.CreatorID
	t.trashed = s.Trashed
	t.createDate = s.CreateDate
	t.updateDate = s.UpdateDate
}

func (t TreeEntity) clone() TreeEntity {
	out := t
	out.DirtyTracker = t.DirtyTracker.clone()
	return out
}

// NodeCheckpoint holds the node fields of an entity, dirty flags included,
// as they were before a save.
type NodeCheckpoint struct {
	tree TreeEntity
}

// NodeCheckpoint captures the node fields a save may assign.
func (t *TreeEntity) NodeCheckpoint() NodeCheckpoint {
	return NodeCheckpoint{tree: t.clone()}
}

// RestoreNode puts back the fields captured by NodeCheckpoint. Repositories
// call it when a save did not commit, so the entity is new again if it was
// new before.
func (t *TreeEntity) RestoreNode(cp NodeCheckpoint) {
	*t = cp.tree.clone()
}
