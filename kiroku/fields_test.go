package kiroku

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/BaSui01/kirokuforms/types"
)

func TestVerificationFields(t *testing.T) {
	fields := VerificationFields(types.D("a", 1, "is_ready", true, "note", "x"))
	require.Len(t, fields, 5)

	assert.Equal(t, types.Field{
		Type: types.FieldTypeNumber, Label: "A", Name: "a", Required: true, DefaultValue: "1",
	}, fields[0])
	assert.Equal(t, types.Field{
		Type: types.FieldTypeRadio, Label: "Is Ready", Name: "is_ready", Required: true, DefaultValue: "true",
		Options: []types.Option{{Label: "True", Value: "true"}, {Label: "False", Value: "false"}},
	}, fields[1])
	assert.Equal(t, types.Field{
		Type: types.FieldTypeText, Label: "Note", Name: "note", Required: true, DefaultValue: "x",
	}, fields[2])

	isCorrect := fields[3]
	assert.Equal(t, FieldIsCorrect, isCorrect.Name)
	assert.Equal(t, types.FieldTypeRadio, isCorrect.Type)
	assert.True(t, isCorrect.Required)
	assert.Equal(t, "Is this information correct?", isCorrect.Label)
	assert.Equal(t, []types.Option{{Label: "Yes", Value: "yes"}, {Label: "No", Value: "no"}}, isCorrect.Options)

	comments := fields[4]
	assert.Equal(t, FieldComments, comments.Name)
	assert.Equal(t, types.FieldTypeTextarea, comments.Type)
	assert.False(t, comments.Required)
	assert.Equal(t, "Comments or Corrections", comments.Label)
}

func TestVerificationFields_DefaultValues(t *testing.T) {
	tests := []struct {
		value types.Value
		want  string
	}{
		{types.Bool(false), "false"},
		{types.Number(2.5), "2.5"},
		{types.Number(1e21), "1000000000000000000000"},
		{types.String(""), ""},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			f := VerificationFields(types.Data{{Key: "k", Value: tt.value}})[0]
			assert.Equal(t, tt.want, f.DefaultValue)
		})
	}
}

func TestVerificationFields_EmptyData(t *testing.T) {
	fields := VerificationFields(nil)
	require.Len(t, fields, 2)
	assert.Equal(t, FieldIsCorrect, fields[0].Name)
	assert.Equal(t, FieldComments, fields[1].Name)
}

func TestFieldLabel(t *testing.T) {
	tests := map[string]string{
		"is_ready":      "Is Ready",
		"name":          "Name",
		"customer_ID":   "Customer Id",
		"already Title": "Already Title",
		"":              "",
		// 数字不切分单词
		"a1b":         "A1b",
		"order2total": "Order2total",
	}
	for in, want := range tests {
		assert.Equal(t, want, FieldLabel(in), in)
	}
}

func TestProperty_VerificationFieldsPreserveOrder(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		keys := rapid.SliceOfNDistinct(
			rapid.StringMatching(`[a-z][a-z_]{0,8}`), 0, 8, rapid.ID[string],
		).Draw(rt, "keys")

		data := make(types.Data, 0, len(keys))
		for _, k := range keys {
			if k == FieldIsCorrect || k == FieldComments {
				continue
			}
			var v types.Value
			switch rapid.IntRange(0, 2).Draw(rt, "kind_"+k) {
			case 0:
				v = types.Bool(rapid.Bool().Draw(rt, "b_"+k))
			case 1:
				v = types.Number(float64(rapid.IntRange(-1000, 1000).Draw(rt, "n_"+k)))
			default:
				v = types.String(rapid.String().Draw(rt, "s_"+k))
			}
			data = append(data, types.Datum{Key: k, Value: v})
		}

		fields := VerificationFields(data)
		require.Len(rt, fields, len(data)+2)
		for i, kv := range data {
			assert.Equal(rt, kv.Key, fields[i].Name)
			assert.True(rt, fields[i].Required)
			assert.Equal(rt, kv.Value.String(), fields[i].DefaultValue)
		}
		require.NoError(rt, types.ValidateFields(fields))
	})
}
