package models

// MemberGroup is a named role members can be linked to. Groups are plain
// nodes directly under the root and carry no versions.
type MemberGroup struct {
	TreeEntity
}

// NewMemberGroup creates an unsaved group tracked from construction.
func NewMemberGroup(name string) *MemberGroup {
	g := &MemberGroup{}
	g.enableTracking()
	g.SetParentID(-1)
	g.SetLevel(1)
	g.SetName(name)
	return g
}

// HydrateMemberGroup rebuilds a stored group with tracking enabled last.
func HydrateMemberGroup(s NodeState) *MemberGroup {
	g := &MemberGroup{}
	g.assign(s)
	g.enableTracking()
	return g
}

func (g *MemberGroup) DeepClone() *MemberGroup {
	out := *g
	out.TreeEntity = g.TreeEntity.clone()
	return &out
}
