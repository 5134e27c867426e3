package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/lib/pq"
)

// FieldType enumerates the supported schema attribute types.
type FieldType string

const (
	FieldTypeText        FieldType = "text"
	FieldTypeNumber      FieldType = "number"
	FieldTypeSelect      FieldType = "select"
	FieldTypeMultiSelect FieldType = "multiselect"
	FieldTypeDate        FieldType = "date"
	FieldTypeBoolean     FieldType = "boolean"
)

// Valid reports whether t is one of the known field types.
func (t FieldType) Valid() bool {
	switch t {
	case FieldTypeText, FieldTypeNumber, FieldTypeSelect, FieldTypeMultiSelect, FieldTypeDate, FieldTypeBoolean:
		return true
	}
	return false
}

// HasOptions reports whether values of this type are drawn from an option list.
func (t FieldType) HasOptions() bool {
	return t == FieldTypeSelect || t == FieldTypeMultiSelect
}

// ValidationRules holds optional per-field constraints. Min/Max apply to
// numbers, MinLength/MaxLength to text.
type ValidationRules struct {
	Min       *float64 `json:"min,omitempty"`
	Max       *float64 `json:"max,omitempty"`
	MinLength *int     `json:"minLength,omitempty"`
	MaxLength *int     `json:"maxLength,omitempty"`
}

// Value stores the rules as a jsonb document.
func (r ValidationRules) Value() (driver.Value, error) {
	return json.Marshal(r)
}

// Scan reads the rules from a jsonb column.
func (r *ValidationRules) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*r = ValidationRules{}
		return nil
	case []byte:
		return json.Unmarshal(v, r)
	case string:
		return json.Unmarshal([]byte(v), r)
	}
	return errors.New("validation_rules: unsupported column type")
}

// FieldDefinition describes one attribute of a tenant's product schema.
type FieldDefinition struct {
	TenantID     string          `db:"tenant_id" json:"-"`
	FieldKey     string          `db:"field_key" json:"fieldKey"`
	Label        string          `db:"label" json:"label"`
	Type         FieldType       `db:"type" json:"type"`
	Required     bool            `db:"required" json:"required"`
	Active       bool            `db:"active" json:"active"`
	Options      pq.StringArray  `db:"options" json:"options"`
	Rules        ValidationRules `db:"validation_rules" json:"validationRules"`
	DisplayOrder int             `db:"display_order" json:"displayOrder"`
	IsCustom     bool            `db:"is_custom" json:"isCustom"`
	CreatedAt    time.Time       `db:"created_at" json:"-"`
	UpdatedAt    time.Time       `db:"updated_at" json:"updatedAt"`
}

var fieldKeyPattern = regexp.MustCompile(`^[a-z0-9_]+$`)

// ValidFieldKey reports whether key is a well-formed normalized slug.
func ValidFieldKey(key string) bool {
	return fieldKeyPattern.MatchString(key)
}

// NormalizeFieldKey turns a label such as "Warranty Period!!" into a slug
// ("warranty_period"): lowercase, trim, every non [a-z0-9] rune becomes an
// underscore, runs of underscores collapse and leading/trailing ones are
// stripped.
func NormalizeFieldKey(label string) string {
	s := strings.ToLower(strings.TrimSpace(label))
	var b strings.Builder
	b.Grow(len(s))
	lastUnderscore := false
	for _, r := range s {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
			lastUnderscore = false
			continue
		}
		if !lastUnderscore {
			b.WriteByte('_')
			lastUnderscore = true
		}
	}
	return strings.Trim(b.String(), "_")
}

// Core field keys. These map onto Product columns rather than the attribute bag.
const (
	FieldSKU         = "sku"
	FieldName        = "name"
	FieldBrand       = "brand"
	FieldCategory    = "category"
	FieldSalePrice   = "sale_price"
	FieldRetailPrice = "retail_price"
	FieldStock       = "stock"
)

// CoreFieldDefinitions returns the built-in schema every tenant starts with.
func CoreFieldDefinitions(tenantID string) []FieldDefinition {
	zero := 0.0
	max := MaxMoney.InexactFloat64()
	return []FieldDefinition{
		{TenantID: tenantID, FieldKey: FieldSKU, Label: "SKU", Type: FieldTypeText, Active: true, DisplayOrder: 1},
		{TenantID: tenantID, FieldKey: FieldName, Label: "Name", Type: FieldTypeText, Required: true, Active: true, DisplayOrder: 2},
		{TenantID: tenantID, FieldKey: FieldBrand, Label: "Brand", Type: FieldTypeText, Active: true, DisplayOrder: 3},
		{TenantID: tenantID, FieldKey: FieldCategory, Label: "Category", Type: FieldTypeText, Active: true, DisplayOrder: 4},
		{TenantID: tenantID, FieldKey: FieldSalePrice, Label: "Sale Price", Type: FieldTypeNumber, Required: true, Active: true, DisplayOrder: 5,
			Rules: ValidationRules{Min: &zero, Max: &max}},
		{TenantID: tenantID, FieldKey: FieldRetailPrice, Label: "Retail Price", Type: FieldTypeNumber, Active: true, DisplayOrder: 6,
			Rules: ValidationRules{Min: &zero, Max: &max}},
		{TenantID: tenantID, FieldKey: FieldStock, Label: "Stock", Type: FieldTypeNumber, Active: true, DisplayOrder: 7,
			Rules: ValidationRules{Min: &zero}},
	}
}

// IsCoreField reports whether key names a fixed Product column.
func IsCoreField(key string) bool {
	switch key {
	case FieldSKU, FieldName, FieldBrand, FieldCategory, FieldSalePrice, FieldRetailPrice, FieldStock:
		return true
	}
	return false
}

// SortFields orders definitions by DisplayOrder. Equal orders (possible after
// an interrupted legacy reorder) fall back to FieldKey so listing is stable.
func SortFields(fields []FieldDefinition) {
	sort.SliceStable(fields, func(i, j int) bool {
		if fields[i].DisplayOrder != fields[j].DisplayOrder {
			return fields[i].DisplayOrder < fields[j].DisplayOrder
		}
		return fields[i].FieldKey < fields[j].FieldKey
	})
}

// CountActive returns the number of active definitions.
func CountActive(fields []FieldDefinition) int {
	n := 0
	for i := range fields {
		if fields[i].Active {
			n++
		}
	}
	return n
}

// SchemaChange is the set of writes a schema mutation produces. Stores apply
// it atomically.
type SchemaChange struct {
	Upserts []FieldDefinition
	Deletes []string
}

// Empty reports whether the change has nothing to apply.
func (c *SchemaChange) Empty() bool {
	return c == nil || (len(c.Upserts) == 0 && len(c.Deletes) == 0)
}
