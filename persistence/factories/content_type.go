package factories

import (
	"github.com/google/uuid"

	"github.com/goliatone/go-content-repository/models"
	"github.com/goliatone/go-content-repository/persistence/dtos"
)

// BuildContentType assembles a content type from its rows. Property types
// belonging to other content types are ignored.
func BuildContentType(node dtos.NodeDto, row dtos.ContentTypeDto, pts []dtos.PropertyTypeReadDto) *models.ContentType {
	ct := &models.ContentType{
		ID:          node.NodeID,
		Key:         node.UniqueID,
		Alias:       row.Alias,
		Name:        node.Text,
		Icon:        row.Icon,
		Description: row.Description,
		CreateDate:  node.CreateDate,
	}
	for _, pt := range pts {
		if pt.ContentTypeID != node.NodeID {
			continue
		}
		ct.PropertyTypes = append(ct.PropertyTypes, BuildPropertyType(pt))
	}
	return ct
}

// BuildPropertyType maps a joined property type row.
func BuildPropertyType(row dtos.PropertyTypeReadDto) *models.PropertyType {
	storage := models.StorageType(row.DbType.String)
	if storage == "" {
		storage = models.StorageNvarchar
	}
	return &models.PropertyType{
		ID:                  row.ID,
		Key:                 row.UniqueID,
		Alias:               row.Alias,
		Name:                row.Name.String,
		Description:         row.Description.String,
		DataTypeID:          row.DataTypeID,
		PropertyEditorAlias: row.PropertyEditorAlias.String,
		StorageType:         storage,
		SortOrder:           row.SortOrder,
		Mandatory:           row.Mandatory,
		ValidationRegExp:    row.ValidationRegExp.String,
	}
}

// BuildContentTypeDto maps a content type to its cmsContentType row.
func BuildContentTypeDto(ct *models.ContentType) dtos.ContentTypeDto {
	icon := ct.Icon
	if icon == "" {
		icon = "icon-user"
	}
	return dtos.ContentTypeDto{
		NodeID:      ct.ID,
		Alias:       ct.Alias,
		Icon:        icon,
		Thumbnail:   "folder.png",
		Description: ct.Description,
	}
}

// BuildPropertyTypeDto maps a property type of the given content type.
func BuildPropertyTypeDto(contentTypeID int, pt *models.PropertyType) dtos.PropertyTypeDto {
	key := pt.Key
	if key == uuid.Nil {
		key = uuid.New()
	}
	return dtos.PropertyTypeDto{
		ID:               pt.ID,
		DataTypeID:       pt.DataTypeID,
		ContentTypeID:    contentTypeID,
		Alias:            pt.Alias,
		Name:             pt.Name,
		SortOrder:        pt.SortOrder,
		Mandatory:        pt.Mandatory,
		ValidationRegExp: pt.ValidationRegExp,
		Description:      pt.Description,
		UniqueID:         key,
	}
}

// BuildDataType assembles a data type from its rows.
func BuildDataType(node dtos.NodeDto, row dtos.DataTypeDto, preValues []dtos.DataTypePreValueDto) *models.DataType {
	dt := &models.DataType{
		ID:                  node.NodeID,
		Key:                 node.UniqueID,
		Name:                node.Text,
		PropertyEditorAlias: row.PropertyEditorAlias,
		StorageType:         models.StorageType(row.DbType),
	}
	for _, pv := range preValues {
		if pv.DataTypeNodeID != node.NodeID {
			continue
		}
		dt.PreValues = append(dt.PreValues, BuildPreValue(pv))
	}
	return dt
}

// BuildPreValue maps one pre-value row.
func BuildPreValue(row dtos.DataTypePreValueDto) models.PreValue {
	return models.PreValue{
		ID:        row.ID,
		Alias:     row.Alias,
		Value:     row.Value,
		SortOrder: row.SortOrder,
	}
}

// BuildDataTypeDto maps a data type to its cmsDataType row.
func BuildDataTypeDto(dt *models.DataType) dtos.DataTypeDto {
	storage := dt.StorageType
	if storage == "" {
		storage = models.StorageNvarchar
	}
	return dtos.DataTypeDto{
		NodeID:              dt.ID,
		PropertyEditorAlias: dt.PropertyEditorAlias,
		DbType:              string(storage),
	}
}
