package factories

import (
	"database/sql"

	"github.com/goliatone/go-content-repository/models"
	"github.com/goliatone/go-content-repository/persistence/dtos"
)

// BuildMemberGroupEntity hydrates a member group from its node row.
func BuildMemberGroupEntity(node dtos.NodeDto) *models.MemberGroup {
	return models.HydrateMemberGroup(nodeState(node))
}

// BuildMemberGroupDto maps a member group to its node row.
func BuildMemberGroupDto(g *models.MemberGroup) dtos.NodeDto {
	return dtos.NodeDto{
		NodeID:         g.ID(),
		Trashed:        g.Trashed(),
		ParentID:       g.ParentID(),
		UserID:         sql.NullInt64{Int64: int64(g.CreatorID()), Valid: true},
		Level:          g.Level(),
		Path:           g.Path(),
		SortOrder:      g.SortOrder(),
		UniqueID:       g.Key(),
		Text:           g.Name(),
		NodeObjectType: models.ObjectTypeMemberGroup,
		CreateDate:     g.CreateDate(),
	}
}

func nodeState(node dtos.NodeDto) models.NodeState {
	return models.NodeState{
		ID:         node.NodeID,
		Key:        node.UniqueID,
		Name:       node.Text,
		ParentID:   node.ParentID,
		Path:       node.Path,
		Level:      node.Level,
		SortOrder:  node.SortOrder,
		CreatorID:  int(node.UserID.Int64),
		Trashed:    node.Trashed,
		CreateDate: node.CreateDate,
		UpdateDate: node.CreateDate,
	}
}
