package state

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "tablegraph/backend/pkg/errors"
)

func TestValues_UnmarshalKeepsOrder(t *testing.T) {
	var v Values
	err := json.Unmarshal([]byte(`{"z":"last","a":"first","m":"mid"}`), &v)
	require.NoError(t, err)

	assert.Equal(t, []string{"z", "a", "m"}, v.Columns())
	assert.Equal(t, []string{"last", "first", "mid"}, v.Texts())

	out, err := json.Marshal(v)
	require.NoError(t, err)
	assert.JSONEq(t, `{"z":"last","a":"first","m":"mid"}`, string(out))
	assert.True(t, strings.HasPrefix(string(out), `{"z"`))
}

func TestValues_RejectsNonStrings(t *testing.T) {
	cases := map[string]string{
		"number": `{"a":"x","b":5}`,
		"null":   `{"a":null}`,
		"nested": `{"a":{"b":"c"}}`,
		"array":  `["a","b"]`,
		"scalar": `"abc"`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			var v Values
			err := json.Unmarshal([]byte(body), &v)
			require.Error(t, err)
			assert.True(t, apperrors.IsValidation(err), "got %v", err)
		})
	}
}

func TestValues_SetExistingKeepsPosition(t *testing.T) {
	v := ValuesOf("a", "1", "b", "2")
	v.Set("a", "3")

	assert.Equal(t, []string{"a", "b"}, v.Columns())
	got, ok := v.Get("a")
	assert.True(t, ok)
	assert.Equal(t, "3", got)
}

func TestValues_CloneIsIndependent(t *testing.T) {
	v := ValuesOf("a", "1")
	c := v.Clone()
	c.Set("b", "2")

	assert.Equal(t, 1, v.Len())
	assert.Equal(t, 2, c.Len())
	assert.False(t, v.Equal(c))
	assert.True(t, v.Equal(ValuesOf("a", "1")))
}

func TestValues_EmptyMarshalsToObject(t *testing.T) {
	out, err := json.Marshal(Values{})
	require.NoError(t, err)
	assert.Equal(t, "{}", string(out))
}

func TestRow_Validate(t *testing.T) {
	row := &Row{TableName: "T", RowData: ValuesOf("a", "mars")}
	assert.NoError(t, row.Validate())

	row.TableName = ""
	err := row.Validate()
	require.Error(t, err)
	var vf *apperrors.ErrValidationFailed
	require.ErrorAs(t, err, &vf)
	assert.Equal(t, "table_name", vf.Field)

	row = &Row{TableName: "T", RowData: ValuesOf(" ", "x")}
	assert.True(t, apperrors.IsValidation(row.Validate()))
}

func TestEndpoint_NodeID(t *testing.T) {
	row := &Row{ID: "r1", TableName: "T", RowData: ValuesOf("a", "mars")}
	ep := row.Endpoint("a")

	assert.Equal(t, "T:r1:a", ep.NodeID())
	assert.Equal(t, "mars", ep.Value)

	rel := Relationship{From: ep, To: Endpoint{TableName: "U", RowID: "r2", Column: "b"}}
	assert.True(t, rel.Touches("r1"))
	assert.True(t, rel.Touches("r2"))
	assert.False(t, rel.Touches("r3"))
}
