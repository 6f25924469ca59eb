// Package propertyeditors registers the property editors known to the
// repositories and answers which of them carry tags.
package propertyeditors

import (
	"github.com/puzpuzpuz/xsync/v3"

	"github.com/goliatone/go-content-repository/models"
)

// Editor is a property editor identified by its alias.
type Editor interface {
	Alias() string
	Name() string
}

// TagStorage is the serialization of a tag property's raw value.
type TagStorage int

const (
	TagStorageCSV TagStorage = iota
	TagStorageJSON
)

// TagConfig describes how a tag editor's values are turned into tags.
type TagConfig struct {
	Delimiter    string
	DefaultGroup string
	Storage      TagStorage
	ReplaceTags  bool
}

// Behavior is the tag behavior applied when the property is saved.
func (c TagConfig) Behavior() models.TagBehavior {
	if c.ReplaceTags {
		return models.TagReplace
	}
	return models.TagMerge
}

// TagSupporter is implemented by editors whose values are tags.
type TagSupporter interface {
	TagConfig() TagConfig
}

// Capability is what the repositories need to know about an editor.
type Capability struct {
	SupportsTags bool
	Tags         TagConfig
}

// Collection is the editor registry. Capabilities are resolved once per
// alias and kept.
type Collection struct {
	editors      *xsync.MapOf[string, Editor]
	capabilities *xsync.MapOf[string, Capability]
}

// NewCollection registers the given editors and resolves their capabilities.
func NewCollection(editors ...Editor) *Collection {
	c := &Collection{
		editors:      xsync.NewMapOf[string, Editor](),
		capabilities: xsync.NewMapOf[string, Capability](),
	}
	for _, e := range editors {
		c.Register(e)
	}
	return c
}

// Register adds or replaces an editor.
func (c *Collection) Register(e Editor) {
	c.editors.Store(e.Alias(), e)
	c.capabilities.Store(e.Alias(), capabilityOf(e))
}

func (c *Collection) Get(alias string) (Editor, bool) {
	return c.editors.Load(alias)
}

// Len returns the number of registered editors.
func (c *Collection) Len() int {
	return c.editors.Size()
}

// Capability returns the cached capability for alias. Unknown aliases have
// no capabilities; the answer is cached as well.
func (c *Collection) Capability(alias string) Capability {
	capability, _ := c.capabilities.LoadOrCompute(alias, func() Capability {
		e, ok := c.editors.Load(alias)
		if !ok {
			return Capability{}
		}
		return capabilityOf(e)
	})
	return capability
}

func capabilityOf(e Editor) Capability {
	ts, ok := e.(TagSupporter)
	if !ok {
		return Capability{}
	}
	return Capability{SupportsTags: true, Tags: ts.TagConfig()}
}

type basicEditor struct {
	alias string
	name  string
}

func (e basicEditor) Alias() string { return e.alias }
func (e basicEditor) Name() string  { return e.name }

// NewEditor returns a plain editor with no extra capabilities.
func NewEditor(alias, name string) Editor {
	return basicEditor{alias: alias, name: name}
}

// TagsEditor is the built-in tag editor.
type TagsEditor struct {
	config TagConfig
}

func NewTagsEditor(config TagConfig) *TagsEditor {
	if config.Delimiter == "" {
		config.Delimiter = ","
	}
	if config.DefaultGroup == "" {
		config.DefaultGroup = "default"
	}
	return &TagsEditor{config: config}
}

func (*TagsEditor) Alias() string          { return TagsAlias }
func (*TagsEditor) Name() string           { return "Tags" }
func (e *TagsEditor) TagConfig() TagConfig { return e.config }

// Editor aliases of the built-in editors.
const (
	TextboxAlias         = "Umbraco.Textbox"
	TextboxMultipleAlias = "Umbraco.TextboxMultiple"
	IntegerAlias         = "Umbraco.Integer"
	DecimalAlias         = "Umbraco.Decimal"
	DateAlias            = "Umbraco.Date"
	TrueFalseAlias       = "Umbraco.TrueFalse"
	NoEditAlias          = "Umbraco.NoEdit"
	TagsAlias            = "Umbraco.Tags"
)

// Defaults returns the built-in editors.
func Defaults() []Editor {
	return []Editor{
		NewEditor(TextboxAlias, "Textbox"),
		NewEditor(TextboxMultipleAlias, "Textarea"),
		NewEditor(IntegerAlias, "Numeric"),
		NewEditor(DecimalAlias, "Decimal"),
		NewEditor(DateAlias, "Date"),
		NewEditor(TrueFalseAlias, "True/False"),
		NewEditor(NoEditAlias, "Label"),
		NewTagsEditor(TagConfig{ReplaceTags: true}),
	}
}
