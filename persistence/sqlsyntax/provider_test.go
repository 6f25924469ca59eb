package sqlsyntax

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSQLite_Field(t *testing.T) {
	s := NewSQLite()
	assert.Equal(t, `"umbracoNode"."id"`, s.Field("umbracoNode", "id"))
	assert.Equal(t, `"we""ird"`, s.QuoteColumn(`we"ird`))
}

func TestSQLite_ConversionExpressions(t *testing.T) {
	s := NewSQLite()
	assert.Equal(t,
		"CASE WHEN cpd.dataInt < 0 THEN printf('0%019d', (9223372036854775807 + cpd.dataInt) + 1)"+
			" ELSE printf('1%019d', cpd.dataInt) END",
		s.ConvertIntegerToOrderableString("cpd.dataInt"))
	assert.Equal(t, "printf('%030.10f', cpd.dataDecimal)", s.ConvertDecimalToOrderableString("cpd.dataDecimal"))
	assert.Equal(t, "strftime('%Y%m%d%H%M%S', cpd.dataDate)", s.ConvertDateToOrderableString("cpd.dataDate"))
}

func TestSQLite_AliasPattern(t *testing.T) {
	s := NewSQLite()
	re := s.AliasPattern("umbracoNode", "id")

	sql := `SELECT "umbracoNode"."id"  as "node_id", "umbracoNode"."text" AS "text" FROM umbracoNode`
	m := re.FindStringSubmatch(sql)
	require.Len(t, m, 3)
	assert.Equal(t, "node_id", m[2])

	assert.Nil(t, re.FindStringSubmatch(`SELECT "umbracoNode"."idx" AS "other" FROM umbracoNode`))
}
