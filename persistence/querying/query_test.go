package querying

import (
	"testing"

	goerrors "github.com/goliatone/go-errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goliatone/go-content-repository/models"
)

var testMap = ColumnMap{
	"Name":     "umbracoNode.text",
	"Username": "cmsMember.LoginName",
	"Id":       "umbracoNode.id",
	"Alias":    "cmsPropertyType.Alias",
}

func TestTranslate_MatchTypes(t *testing.T) {
	tests := []struct {
		kind    models.StringMatchType
		value   string
		wantSQL string
		wantArg any
	}{
		{models.MatchExact, "alice", "cmsMember.LoginName = ?1", "alice"},
		{models.MatchContains, "li", `cmsMember.LoginName LIKE ?1 ESCAPE '\'`, "%li%"},
		{models.MatchStartsWith, "ali", `cmsMember.LoginName LIKE ?1 ESCAPE '\'`, "ali%"},
		{models.MatchEndsWith, "ce", `cmsMember.LoginName LIKE ?1 ESCAPE '\'`, "%ce"},
		{models.MatchWildcard, "a*c?", `cmsMember.LoginName LIKE ?1 ESCAPE '\'`, "a%c_"},
		{models.MatchStartsWith, "50%_", `cmsMember.LoginName LIKE ?1 ESCAPE '\'`, `50\%\_%`},
	}

	for _, tt := range tests {
		t.Run(tt.kind.String(), func(t *testing.T) {
			base := Select("a").From("cmsMember").Where("x = ?", 0)
			out, err := Translate(base, NewQuery(Match("Username", tt.value, tt.kind)), testMap)
			require.NoError(t, err)

			assert.Equal(t, "SELECT a FROM cmsMember WHERE (x = ?0) AND ("+tt.wantSQL+")", out.String())
			assert.Equal(t, tt.wantArg, out.Args()[1])
		})
	}
}

func TestTranslate_UnsupportedMatchType(t *testing.T) {
	_, err := Translate(Select("a"), NewQuery(Match("Username", "x", models.StringMatchType(42))), testMap)
	require.Error(t, err)
	assert.True(t, goerrors.IsCategory(err, goerrors.CategoryBadInput))
}

func TestTranslate_UnmappedField(t *testing.T) {
	_, err := Translate(Select("a"), NewQuery(Eq("Nope", 1)), testMap)
	require.Error(t, err)
	assert.True(t, goerrors.IsCategory(err, goerrors.CategoryBadInput))
}

func TestTranslate_GroupsAndNot(t *testing.T) {
	q := NewQuery(Or(Eq("Name", "a"), Not(Eq("Id", 3))))
	out, err := Translate(Select("a").From("t"), q, testMap)
	require.NoError(t, err)

	assert.Equal(t, "SELECT a FROM t WHERE ((umbracoNode.text = ?0) OR (NOT (umbracoNode.id = ?1)))", out.String())
	assert.Equal(t, []any{"a", 3}, out.Args())
}

func TestQuery_ReferencesTable(t *testing.T) {
	q := NewQuery(Eq("Name", "x"))
	assert.False(t, q.ReferencesTable(testMap, "cmsPropertyType"))

	q.Where(Eq("Alias", "price"))
	assert.True(t, q.ReferencesTable(testMap, "cmsPropertyType"))
}

func TestCriteria_BuildsOnePerPredicate(t *testing.T) {
	criteria, err := Criteria(NewQuery(Eq("Name", "x"), In("Id", []int{1, 2})), testMap)
	require.NoError(t, err)
	assert.Len(t, criteria, 2)

	empty, err := Criteria(nil, testMap)
	require.NoError(t, err)
	assert.Nil(t, empty)
}
