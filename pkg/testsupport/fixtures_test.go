package testsupport

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goliatone/go-content-repository/models"
	"github.com/goliatone/go-content-repository/persistence/dtos"
)

func TestNewTestDB_SeedsRoot(t *testing.T) {
	db := NewTestDB(t)

	var root dtos.NodeDto
	err := db.NewSelect().
		Model(&root).
		Where(`"umbracoNode"."id" = ?`, models.RootID).
		Scan(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "-1", root.Path)
	assert.Equal(t, 0, root.Level)
}

func TestNewTestDB_Isolated(t *testing.T) {
	a := NewTestDB(t)
	b := NewTestDB(t)

	_, err := a.NewInsert().Model(&dtos.TagDto{Tag: "only-in-a", Group: "default"}).Exec(context.Background())
	require.NoError(t, err)

	n, err := b.NewSelect().Model((*dtos.TagDto)(nil)).Count(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestClock(t *testing.T) {
	start := time.Date(2024, 3, 1, 12, 0, 0, 0, time.FixedZone("x", 3600))
	now := Clock(start, time.Minute)

	first := now()
	second := now()
	assert.Equal(t, time.UTC, first.Location())
	assert.True(t, first.Equal(start))
	assert.Equal(t, time.Minute, second.Sub(first))
}

func TestLoadMemberSeeds(t *testing.T) {
	path := filepath.Join(t.TempDir(), "members.json")
	data := `[{"name":"Alice","email":"alice@example.com","username":"alice","password":"abc","groups":["Editors"]}]`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))

	seeds := LoadMemberSeeds(t, path)
	require.Len(t, seeds, 1)
	assert.Equal(t, "alice", seeds[0].Username)
	assert.Equal(t, []string{"Editors"}, seeds[0].Groups)
}

func TestFixturePath(t *testing.T) {
	assert.Equal(t, filepath.Join("testdata", "members.json"), FixturePath("members.json"))
}
