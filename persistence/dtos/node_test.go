package dtos_test

import (
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goliatone/go-content-repository/persistence/dtos"
	"github.com/goliatone/go-content-repository/pkg/testsupport"
)

func TestSurrogateKeyColumns(t *testing.T) {
	db := testsupport.NewTestDB(t)

	for _, model := range []any{dtos.ContentDto{}, dtos.ContentTypeDto{}, dtos.DataTypeDto{}} {
		table := db.Table(reflect.TypeOf(model))
		require.Len(t, table.PKs, 1, table.Name)
		assert.Equal(t, "pk", table.PKs[0].Name, table.Name)
		assert.True(t, table.PKs[0].AutoIncrement, table.Name)
	}
}
