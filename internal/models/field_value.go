package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// DateLayout is the normalized storage format for date attributes.
const DateLayout = "01/02/2006"

// FieldValue is one attribute value. The set of implementations is closed:
// TextValue, NumberValue, SelectValue, MultiSelectValue, DateValue,
// BooleanValue, and LegacyValue for stored types this build does not know.
type FieldValue interface {
	Type() FieldType
	// IsEmpty reports whether the value should count as "no value" when
	// deciding column visibility.
	IsEmpty() bool
	String() string
	fieldValue()
}

type (
	TextValue        string
	NumberValue      float64
	SelectValue      string
	MultiSelectValue []string
	// DateValue holds a date already normalized to DateLayout.
	DateValue    string
	BooleanValue bool
)

// LegacyValue preserves an attribute whose stored type is unknown.
type LegacyValue struct {
	Kind string
	Raw  json.RawMessage
}

func (TextValue) Type() FieldType        { return FieldTypeText }
func (NumberValue) Type() FieldType      { return FieldTypeNumber }
func (SelectValue) Type() FieldType      { return FieldTypeSelect }
func (MultiSelectValue) Type() FieldType { return FieldTypeMultiSelect }
func (DateValue) Type() FieldType        { return FieldTypeDate }
func (BooleanValue) Type() FieldType     { return FieldTypeBoolean }
func (v LegacyValue) Type() FieldType    { return FieldType(v.Kind) }

func (v TextValue) IsEmpty() bool        { return strings.TrimSpace(string(v)) == "" }
func (NumberValue) IsEmpty() bool        { return false }
func (v SelectValue) IsEmpty() bool      { return strings.TrimSpace(string(v)) == "" }
func (v MultiSelectValue) IsEmpty() bool { return len(v) == 0 }
func (v DateValue) IsEmpty() bool        { return v == "" }
func (v BooleanValue) IsEmpty() bool     { return !bool(v) }
func (v LegacyValue) IsEmpty() bool {
	raw := strings.TrimSpace(string(v.Raw))
	return raw == "" || raw == "null" || raw == `""`
}

func (v TextValue) String() string        { return string(v) }
func (v NumberValue) String() string      { return strconv.FormatFloat(float64(v), 'f', -1, 64) }
func (v SelectValue) String() string      { return string(v) }
func (v MultiSelectValue) String() string { return strings.Join(v, ", ") }
func (v DateValue) String() string        { return string(v) }
func (v BooleanValue) String() string     { return strconv.FormatBool(bool(v)) }
func (v LegacyValue) String() string      { return string(v.Raw) }

func (TextValue) fieldValue()        {}
func (NumberValue) fieldValue()      {}
func (SelectValue) fieldValue()      {}
func (MultiSelectValue) fieldValue() {}
func (DateValue) fieldValue()        {}
func (BooleanValue) fieldValue()     {}
func (LegacyValue) fieldValue()      {}

// DefaultValue is what a product shows for a field it has no value for.
func DefaultValue(t FieldType) FieldValue {
	switch t {
	case FieldTypeText:
		return TextValue("")
	case FieldTypeNumber:
		return NumberValue(0)
	case FieldTypeSelect:
		return SelectValue("")
	case FieldTypeMultiSelect:
		return MultiSelectValue{}
	case FieldTypeDate:
		return DateValue("")
	case FieldTypeBoolean:
		return BooleanValue(false)
	default:
		return LegacyValue{Kind: string(t), Raw: json.RawMessage("null")}
	}
}

// Attributes is the attribute bag of a product, keyed by field key.
type Attributes map[string]FieldValue

// ValueOr returns the stored value for def, or the type default when the
// product predates the field or the stored value no longer matches its type.
func (a Attributes) ValueOr(def FieldDefinition) FieldValue {
	if v, ok := a[def.FieldKey]; ok && v != nil && v.Type() == def.Type {
		return v
	}
	return DefaultValue(def.Type)
}

type attributeEnvelope struct {
	Type  string          `json:"type"`
	Value json.RawMessage `json:"value"`
}

// MarshalJSON encodes each value as {"type": ..., "value": ...}.
func (a Attributes) MarshalJSON() ([]byte, error) {
	out := make(map[string]attributeEnvelope, len(a))
	for k, v := range a {
		if v == nil {
			continue
		}
		var raw []byte
		var err error
		if lv, ok := v.(LegacyValue); ok {
			raw = lv.Raw
		} else {
			raw, err = json.Marshal(v)
		}
		if err != nil {
			return nil, fmt.Errorf("attribute %s: %w", k, err)
		}
		out[k] = attributeEnvelope{Type: string(v.Type()), Value: raw}
	}
	return json.Marshal(out)
}

// UnmarshalJSON decodes the envelope form written by MarshalJSON.
func (a *Attributes) UnmarshalJSON(data []byte) error {
	var in map[string]attributeEnvelope
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	res := make(Attributes, len(in))
	for k, env := range in {
		v, err := decodeFieldValue(env)
		if err != nil {
			return fmt.Errorf("attribute %s: %w", k, err)
		}
		res[k] = v
	}
	*a = res
	return nil
}

func decodeFieldValue(env attributeEnvelope) (FieldValue, error) {
	switch FieldType(env.Type) {
	case FieldTypeText:
		var s string
		err := json.Unmarshal(env.Value, &s)
		return TextValue(s), err
	case FieldTypeNumber:
		var f float64
		err := json.Unmarshal(env.Value, &f)
		return NumberValue(f), err
	case FieldTypeSelect:
		var s string
		err := json.Unmarshal(env.Value, &s)
		return SelectValue(s), err
	case FieldTypeMultiSelect:
		var ss []string
		err := json.Unmarshal(env.Value, &ss)
		return MultiSelectValue(ss), err
	case FieldTypeDate:
		var s string
		err := json.Unmarshal(env.Value, &s)
		return DateValue(s), err
	case FieldTypeBoolean:
		var b bool
		err := json.Unmarshal(env.Value, &b)
		return BooleanValue(b), err
	default:
		return LegacyValue{Kind: env.Type, Raw: append(json.RawMessage(nil), env.Value...)}, nil
	}
}

// Value stores the bag as jsonb.
func (a Attributes) Value() (driver.Value, error) {
	if a == nil {
		return []byte("{}"), nil
	}
	return a.MarshalJSON()
}

// Scan reads the bag from a jsonb column.
func (a *Attributes) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*a = Attributes{}
		return nil
	case []byte:
		return a.UnmarshalJSON(v)
	case string:
		return a.UnmarshalJSON([]byte(v))
	}
	return errors.New("attributes: unsupported column type")
}
