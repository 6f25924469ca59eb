package models

import (
	"github.com/google/uuid"
)

// TagBehavior controls how a property's tags are written on save.
type TagBehavior int

const (
	TagReplace TagBehavior = iota
	TagMerge
	TagRemove
)

func (b TagBehavior) String() string {
	switch b {
	case TagReplace:
		return "replace"
	case TagMerge:
		return "merge"
	case TagRemove:
		return "remove"
	}
	return "unknown"
}

// TagValue is one tag parsed from a property value.
type TagValue struct {
	Text  string
	Group string
}

// TagSupport carries the tags extracted from a tag enabled property.
type TagSupport struct {
	Enable   bool
	Behavior TagBehavior
	Tags     []TagValue
}

// Property is the value of one property type for one content version.
type Property struct {
	id           int
	propertyType *PropertyType
	version      uuid.UUID
	value        any
	TagSupport   TagSupport
}

// NewProperty creates an unsaved property for the given type.
func NewProperty(pt *PropertyType) *Property {
	return &Property{propertyType: pt}
}

// HydrateProperty rebuilds a stored property.
func HydrateProperty(id int, pt *PropertyType, version uuid.UUID, value any) *Property {
	return &Property{id: id, propertyType: pt, version: version, value: value}
}

func (p *Property) ID() int { return p.id }

func (p *Property) SetID(id int) { p.id = id }

func (p *Property) HasIdentity() bool { return p.id > 0 }

func (p *Property) PropertyType() *PropertyType { return p.propertyType }

func (p *Property) Alias() string { return p.propertyType.Alias }

func (p *Property) Version() uuid.UUID { return p.version }

func (p *Property) SetVersion(v uuid.UUID) { p.version = v }

func (p *Property) Value() any { return p.value }

func (p *Property) SetValue(v any) { p.value = v }

func (p *Property) clone() *Property {
	out := *p
	if len(p.TagSupport.Tags) > 0 {
		out.TagSupport.Tags = append([]TagValue(nil), p.TagSupport.Tags...)
	}
	return &out
}

// PropertyCollection is an alias-indexed, ordered set of properties.
type PropertyCollection struct {
	items []*Property
	index map[string]int
}

func NewPropertyCollection(props ...*Property) *PropertyCollection {
	c := &PropertyCollection{index: make(map[string]int, len(props))}
	for _, p := range props {
		c.Add(p)
	}
	return c
}

// Add appends a property, replacing any property with the same alias.
func (c *PropertyCollection) Add(p *Property) {
	if c.index == nil {
		c.index = make(map[string]int)
	}
	if i, ok := c.index[p.Alias()]; ok {
		c.items[i] = p
		return
	}
	c.index[p.Alias()] = len(c.items)
	c.items = append(c.items, p)
}

func (c *PropertyCollection) Get(alias string) (*Property, bool) {
	if c == nil {
		return nil, false
	}
	i, ok := c.index[alias]
	if !ok {
		return nil, false
	}
	return c.items[i], true
}

func (c *PropertyCollection) Contains(alias string) bool {
	_, ok := c.Get(alias)
	return ok
}

func (c *PropertyCollection) All() []*Property {
	if c == nil {
		return nil
	}
	return append([]*Property(nil), c.items...)
}

func (c *PropertyCollection) Len() int {
	if c == nil {
		return 0
	}
	return len(c.items)
}

func (c *PropertyCollection) Aliases() []string {
	out := make([]string, 0, c.Len())
	for _, p := range c.All() {
		out = append(out, p.Alias())
	}
	return out
}

func (c *PropertyCollection) clone() *PropertyCollection {
	if c == nil {
		return nil
	}
	out := &PropertyCollection{index: make(map[string]int, len(c.items))}
	for _, p := range c.items {
		out.Add(p.clone())
	}
	return out
}
