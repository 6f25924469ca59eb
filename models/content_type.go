package models

import (
	"time"

	"github.com/google/uuid"
)

// StorageType is the typed column a property value is stored in.
type StorageType string

const (
	StorageInteger  StorageType = "Integer"
	StorageDecimal  StorageType = "Decimal"
	StorageDate     StorageType = "Date"
	StorageNvarchar StorageType = "Nvarchar"
	StorageNtext    StorageType = "Ntext"
)

// PropertyType declares one named field of a content type.
type PropertyType struct {
	ID                  int
	Key                 uuid.UUID
	Alias               string
	Name                string
	Description         string
	DataTypeID          int
	PropertyEditorAlias string
	StorageType         StorageType
	SortOrder           int
	Mandatory           bool
	ValidationRegExp    string
}

// HasIdentity reports whether the property type is stored.
func (p *PropertyType) HasIdentity() bool { return p.ID > 0 }

// ContentType is the schema shared by content items of one kind. Member types
// are content types stored under the member type object type.
type ContentType struct {
	ID            int
	Key           uuid.UUID
	Alias         string
	Name          string
	Icon          string
	Description   string
	CreateDate    time.Time
	PropertyTypes []*PropertyType
}

func (c *ContentType) PropertyType(alias string) (*PropertyType, bool) {
	for _, pt := range c.PropertyTypes {
		if pt.Alias == alias {
			return pt, true
		}
	}
	return nil, false
}

// DeepClone copies the type and its property types.
func (c *ContentType) DeepClone() *ContentType {
	out := *c
	out.PropertyTypes = make([]*PropertyType, len(c.PropertyTypes))
	for i, pt := range c.PropertyTypes {
		cp := *pt
		out.PropertyTypes[i] = &cp
	}
	return &out
}

// HasPropertyTypeID reports whether a stored property type belongs to the type.
func (c *ContentType) HasPropertyTypeID(id int) bool {
	if id <= 0 {
		return false
	}
	for _, pt := range c.PropertyTypes {
		if pt.ID == id {
			return true
		}
	}
	return false
}

// PreValue is one configuration value of a data type.
type PreValue struct {
	ID        int
	Alias     string
	Value     string
	SortOrder int
}

// PreValueCollection holds the configuration of one data type.
type PreValueCollection struct {
	DataTypeID int
	Values     []PreValue
}

// Get returns the value stored under alias.
func (c PreValueCollection) Get(alias string) (string, bool) {
	for _, v := range c.Values {
		if v.Alias == alias {
			return v.Value, true
		}
	}
	return "", false
}

// DataType binds a property editor to a storage type and its configuration.
type DataType struct {
	ID                  int
	Key                 uuid.UUID
	Name                string
	PropertyEditorAlias string
	StorageType         StorageType
	PreValues           []PreValue
}
