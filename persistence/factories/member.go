package factories

import (
	"database/sql"

	"github.com/goliatone/go-content-repository/models"
	"github.com/goliatone/go-content-repository/persistence/dtos"
)

// MemberRows are the rows a member is stored in.
type MemberRows struct {
	Node    dtos.NodeDto
	Content dtos.ContentDto
	Version dtos.ContentVersionDto
	Member  dtos.MemberDto
}

// BuildMemberEntity hydrates a member from its flattened row. The returned
// member is clean.
func BuildMemberEntity(row dtos.MemberReadDto, ct *models.ContentType, props *models.PropertyCollection) *models.Member {
	return models.HydrateMember(models.MemberState{
		NodeState: models.NodeState{
			ID:         row.NodeID,
			Key:        row.UniqueID,
			Name:       row.Text,
			ParentID:   row.ParentID,
			Path:       row.Path,
			Level:      row.Level,
			SortOrder:  row.SortOrder,
			CreatorID:  int(row.UserID.Int64),
			Trashed:    row.Trashed,
			CreateDate: row.CreateDate,
			UpdateDate: row.VersionDate,
		},
		ContentType:      ct,
		Version:          row.VersionID,
		Username:         row.LoginName,
		Email:            row.Email,
		RawPasswordValue: row.Password,
		Properties:       props,
	})
}

// BuildMemberRows maps a member to its rows. Node identity columns are taken
// from the member as is; the caller fills in path, level and sort order.
func BuildMemberRows(m *models.Member) MemberRows {
	return MemberRows{
		Node: dtos.NodeDto{
			NodeID:         m.ID(),
			Trashed:        m.Trashed(),
			ParentID:       m.ParentID(),
			UserID:         sql.NullInt64{Int64: int64(m.CreatorID()), Valid: true},
			Level:          m.Level(),
			Path:           m.Path(),
			SortOrder:      m.SortOrder(),
			UniqueID:       m.Key(),
			Text:           m.Name(),
			NodeObjectType: models.ObjectTypeMember,
			CreateDate:     m.CreateDate(),
		},
		Content: dtos.ContentDto{
			NodeID:        m.ID(),
			ContentTypeID: m.ContentTypeID(),
		},
		Version: dtos.ContentVersionDto{
			NodeID:      m.ID(),
			VersionID:   m.Version(),
			VersionDate: m.UpdateDate(),
		},
		Member: dtos.MemberDto{
			NodeID:    m.ID(),
			Email:     m.Email(),
			LoginName: m.Username(),
			Password:  m.RawPasswordValue(),
		},
	}
}
