package repositories

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goliatone/go-content-repository/cache"
	"github.com/goliatone/go-content-repository/models"
	"github.com/goliatone/go-content-repository/persistence/dtos"
	"github.com/goliatone/go-content-repository/propertyeditors"
)

func TestDataTypeRepository_SaveAndGet(t *testing.T) {
	f := newRepoFixture(t)

	dt := &models.DataType{
		Name:                "Keywords",
		PropertyEditorAlias: propertyeditors.TagsAlias,
		StorageType:         models.StorageNtext,
		PreValues: []models.PreValue{
			{Alias: propertyeditors.PreValueGroup, Value: "keywords"},
			{Alias: propertyeditors.PreValueStorageType, Value: "Json", SortOrder: 1},
		},
	}
	require.NoError(t, f.dataTypes.Save(f.ctx, dt))
	require.NotZero(t, dt.ID)

	got, err := f.dataTypes.Get(f.ctx, dt.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Keywords", got.Name)
	assert.Equal(t, propertyeditors.TagsAlias, got.PropertyEditorAlias)
	assert.Equal(t, models.StorageNtext, got.StorageType)
	require.Len(t, got.PreValues, 2)
	assert.Equal(t, "keywords", got.PreValues[0].Value)

	collections, err := f.dataTypes.GetPreValues(f.ctx, dt.ID, dt.ID)
	require.NoError(t, err)
	group, ok := collections[dt.ID].Get(propertyeditors.PreValueGroup)
	require.True(t, ok)
	assert.Equal(t, "keywords", group)

	missing, err := f.dataTypes.Get(f.ctx, 9999)
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestDataTypeRepository_PreValueCache(t *testing.T) {
	f := newRepoFixture(t)

	dt := &models.DataType{
		Name:                "Dropdown",
		PropertyEditorAlias: propertyeditors.TextboxAlias,
		PreValues:           []models.PreValue{{Alias: "first", Value: "red"}},
	}
	require.NoError(t, f.dataTypes.Save(f.ctx, dt))
	preValueID := dt.PreValues[0].ID
	require.NotZero(t, preValueID)

	v, err := f.dataTypes.GetPreValueAsString(f.ctx, preValueID)
	require.NoError(t, err)
	assert.Equal(t, "red", v)

	cached, ok := cache.Get[string](f.ctx, f.runtime, cache.PreValueKey(dt.ID, preValueID))
	require.True(t, ok)
	assert.Equal(t, "red", cached)

	_, err = f.db.NewUpdate().
		Model((*dtos.DataTypePreValueDto)(nil)).
		Set(`"value" = ?`, "green").
		Where(`"id" = ?`, preValueID).
		Exec(f.ctx)
	require.NoError(t, err)
	v, err = f.dataTypes.GetPreValueAsString(f.ctx, preValueID)
	require.NoError(t, err)
	assert.Equal(t, "red", v, "served from the runtime cache")

	dt.PreValues[0].Value = "blue"
	require.NoError(t, f.dataTypes.Save(f.ctx, dt))

	_, ok = cache.Get[string](f.ctx, f.runtime, cache.PreValueKey(dt.ID, preValueID))
	assert.False(t, ok, "saving the data type drops its cached pre-values")

	v, err = f.dataTypes.GetPreValueAsString(f.ctx, dt.PreValues[0].ID)
	require.NoError(t, err)
	assert.Equal(t, "blue", v)

	v, err = f.dataTypes.GetPreValueAsString(f.ctx, 424242)
	require.NoError(t, err)
	assert.Empty(t, v)
}
