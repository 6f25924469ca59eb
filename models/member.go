package models

import "github.com/google/uuid"

// Member is a site member: a versioned content item with login details.
type Member struct {
	ContentBase
	username         string
	email            string
	rawPasswordValue string
}

// NewMember creates an unsaved member tracked from construction. Properties
// are created for every property type of contentType plus the standard
// member properties the type does not declare.
func NewMember(name, email, username, rawPassword string, contentType *ContentType) *Member {
	m := &Member{}
	m.enableTracking()
	m.contentType = contentType
	m.properties = NewPropertyCollection()
	for _, pt := range contentType.PropertyTypes {
		m.properties.Add(NewProperty(pt))
	}
	for _, pt := range StandardMemberPropertyTypes() {
		if !m.properties.Contains(pt.Alias) {
			m.properties.Add(NewProperty(pt))
		}
	}
	m.SetParentID(-1)
	m.SetName(name)
	m.SetEmail(email)
	m.SetUsername(username)
	m.SetRawPasswordValue(rawPassword)
	m.markDirty("ContentTypeId")
	return m
}

// MemberState is the stored state of a member.
type MemberState struct {
	NodeState
	ContentType      *ContentType
	Version          uuid.UUID
	Username         string
	Email            string
	RawPasswordValue string
	Properties       *PropertyCollection
}

// HydrateMember rebuilds a stored member. Tracking starts after every field
// has been assigned, so the result is clean.
func HydrateMember(s MemberState) *Member {
	m := &Member{}
	m.assign(s.NodeState)
	m.contentType = s.ContentType
	m.version = s.Version
	m.username = s.Username
	m.email = s.Email
	m.rawPasswordValue = s.RawPasswordValue
	m.properties = s.Properties
	if m.properties == nil {
		m.properties = NewPropertyCollection()
	}
	m.enableTracking()
	return m
}

func (m *Member) Username() string { return m.username }

func (m *Member) SetUsername(v string) {
	m.username = v
	m.markDirty("Username")
}

func (m *Member) Email() string { return m.email }

func (m *Member) SetEmail(v string) {
	m.email = v
	m.markDirty("Email")
}

func (m *Member) RawPasswordValue() string { return m.rawPasswordValue }

func (m *Member) SetRawPasswordValue(v string) {
	m.rawPasswordValue = v
	m.markDirty("RawPasswordValue")
}

// SetProperties replaces the property collection without marking the member
// dirty. Loaders use it to attach properties to a hydrated member.
func (m *Member) SetProperties(props *PropertyCollection) {
	m.properties = props
}

// DeepClone returns an independent copy, including properties and dirty state.
func (m *Member) DeepClone() *Member {
	out := *m
	out.ContentBase = m.ContentBase.clone()
	return &out
}
