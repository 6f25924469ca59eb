package models

import "github.com/google/uuid"

// ContentBase is a tree entity with a content type and versioned properties.
type ContentBase struct {
	TreeEntity
	contentType *ContentType
	version     uuid.UUID
	newVersion  bool
	properties  *PropertyCollection
}

func (c *ContentBase) ContentType() *ContentType { return c.contentType }

func (c *ContentBase) ContentTypeID() int {
	if c.contentType == nil {
		return 0
	}
	return c.contentType.ID
}

func (c *ContentBase) ContentTypeAlias() string {
	if c.contentType == nil {
		return ""
	}
	return c.contentType.Alias
}

// ChangeContentType switches the type and adds properties for types the
// collection does not know yet.
func (c *ContentBase) ChangeContentType(ct *ContentType) {
	c.contentType = ct
	c.markDirty("ContentTypeId")
	for _, pt := range ct.PropertyTypes {
		if !c.properties.Contains(pt.Alias) {
			c.properties.Add(NewProperty(pt))
		}
	}
}

func (c *ContentBase) Version() uuid.UUID { return c.version }

// NewVersion makes the next update write a new version instead of updating
// the current one in place.
func (c *ContentBase) NewVersion() {
	c.version = uuid.New()
	c.newVersion = true
	c.markDirty("Version")
}

// RequiresNewVersion reports whether NewVersion was called since the last save.
func (c *ContentBase) RequiresNewVersion() bool { return c.newVersion }

// EnsureVersion assigns a version id to a new entity that has none.
func (c *ContentBase) EnsureVersion() {
	if c.version == uuid.Nil {
		c.version = uuid.New()
		c.markDirty("Version")
	}
}

func (c *ContentBase) Properties() *PropertyCollection { return c.properties }

// SetValue stores a property value. It returns false for unknown aliases.
func (c *ContentBase) SetValue(alias string, value any) bool {
	p, ok := c.properties.Get(alias)
	if !ok {
		return false
	}
	p.SetValue(value)
	c.markDirty("Properties")
	return true
}

func (c *ContentBase) GetValue(alias string) any {
	p, ok := c.properties.Get(alias)
	if !ok {
		return nil
	}
	return p.Value()
}

// ResetDirtyProperties clears field changes and any pending new version.
func (c *ContentBase) ResetDirtyProperties() {
	c.TreeEntity.ResetDirtyProperties()
	c.newVersion = false
}

func (c ContentBase) clone() ContentBase {
	out := c
	out.TreeEntity = c.TreeEntity.clone()
	out.properties = c.properties.clone()
	return out
}

// ContentCheckpoint holds the node fields, the version and the property
// identities of a content entity as they were before a save.
type ContentCheckpoint struct {
	node       NodeCheckpoint
	version    uuid.UUID
	newVersion bool
	properties []propertyIdentity
}

type propertyIdentity struct {
	property *Property
	id       int
	version  uuid.UUID
}

// ContentCheckpoint captures everything a save may assign to the entity.
func (c *ContentBase) ContentCheckpoint() ContentCheckpoint {
	cp := ContentCheckpoint{
		node:       c.NodeCheckpoint(),
		version:    c.version,
		newVersion: c.newVersion,
	}
	for _, p := range c.properties.All() {
		cp.properties = append(cp.properties, propertyIdentity{property: p, id: p.id, version: p.version})
	}
	return cp
}

// RestoreContent puts back the state captured by ContentCheckpoint. The
// property values are left as they are.
func (c *ContentBase) RestoreContent(cp ContentCheckpoint) {
	c.RestoreNode(cp.node)
	c.version = cp.version
	c.newVersion = cp.newVersion
	for _, pi := range cp.properties {
		pi.property.id = pi.id
		pi.property.version = pi.version
	}
}
