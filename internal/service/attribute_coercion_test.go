package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GTDGit/tenant_pos/internal/models"
	"github.com/GTDGit/tenant_pos/internal/utils"
)

func intPtr(v int) *int           { return &v }
func floatPtr(v float64) *float64 { return &v }

func TestCoerceValue(t *testing.T) {
	text := models.FieldDefinition{Label: "Code", Type: models.FieldTypeText,
		Rules: models.ValidationRules{MinLength: intPtr(2), MaxLength: intPtr(4)}}
	number := models.FieldDefinition{Label: "Weight", Type: models.FieldTypeNumber,
		Rules: models.ValidationRules{Min: floatPtr(0), Max: floatPtr(100)}}
	sel := models.FieldDefinition{Label: "Color", Type: models.FieldTypeSelect, Options: []string{"red", "blue"}}
	freeSel := models.FieldDefinition{Label: "Origin", Type: models.FieldTypeSelect}
	multi := models.FieldDefinition{Label: "Tags", Type: models.FieldTypeMultiSelect, Options: []string{"a", "b", "c"}}
	date := models.FieldDefinition{Label: "Expiry", Type: models.FieldTypeDate}
	boolean := models.FieldDefinition{Label: "Gift", Type: models.FieldTypeBoolean}

	tests := []struct {
		name    string
		def     models.FieldDefinition
		raw     any
		want    models.FieldValue
		wantErr bool
	}{
		{"text ok", text, " ab ", models.TextValue("ab"), false},
		{"text counts runes", text, "日本語", models.TextValue("日本語"), false},
		{"text too short", text, "a", nil, true},
		{"text too long", text, "abcde", nil, true},
		{"text blank is absent", text, "   ", nil, false},
		{"number from float", number, 12.5, models.NumberValue(12.5), false},
		{"number from string", number, " 7 ", models.NumberValue(7), false},
		{"number rejects iso date", number, "2024-01-05", nil, true},
		{"number rejects slash date", number, "01/05/2024", nil, true},
		{"number below min", number, "-1", nil, true},
		{"number above max", number, 101.0, nil, true},
		{"number rejects words", number, "twelve", nil, true},
		{"number rejects bool", number, true, nil, true},
		{"select in options", sel, "red", models.SelectValue("red"), false},
		{"select not in options", sel, "green", nil, true},
		{"select free text", freeSel, "Italy", models.SelectValue("Italy"), false},
		{"multiselect list", multi, []any{"a", "c", "a"}, models.MultiSelectValue{"a", "c"}, false},
		{"multiselect csv", multi, "b, c", models.MultiSelectValue{"b", "c"}, false},
		{"multiselect bad option", multi, []any{"a", "z"}, nil, true},
		{"multiselect non string", multi, []any{1.0}, nil, true},
		{"date iso", date, "2024-03-09", models.DateValue("03/09/2024"), false},
		{"date rfc3339", date, "2024-03-09T10:00:00Z", models.DateValue("03/09/2024"), false},
		{"date us", date, "03/09/2024", models.DateValue("03/09/2024"), false},
		{"date invalid", date, "09.03.2024", nil, true},
		{"boolean missing", boolean, nil, models.BooleanValue(false), false},
		{"boolean yes", boolean, "Yes", models.BooleanValue(true), false},
		{"boolean off", boolean, "off", models.BooleanValue(false), false},
		{"boolean one", boolean, 1.0, models.BooleanValue(true), false},
		{"boolean native", boolean, true, models.BooleanValue(true), false},
		{"boolean garbage", boolean, "maybe", nil, true},
		{"unknown type", models.FieldDefinition{Label: "X", Type: "colour"}, "x", nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := coerceValue(tt.def, tt.raw)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, utils.IsKind(err, utils.KindValidation))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseMoney(t *testing.T) {
	d, ok, err := parseMoney("price", "19.999999")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "20.00", d.StringFixed(2))

	d, _, err = parseMoney("price", 0.005)
	require.NoError(t, err)
	assert.Equal(t, "0.01", d.StringFixed(2))

	_, ok, err = parseMoney("price", "")
	require.NoError(t, err)
	assert.False(t, ok)

	_, _, err = parseMoney("price", "12/05")
	assert.True(t, utils.IsKind(err, utils.KindValidation))
}
