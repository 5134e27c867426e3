package service

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/GTDGit/tenant_pos/internal/models"
	"github.com/GTDGit/tenant_pos/internal/utils"
)

// Date layouts accepted on input. Values are stored as models.DateLayout.
var dateInputLayouts = []string{
	"2006-01-02",
	time.RFC3339,
	models.DateLayout,
	"1/2/2006",
}

// isBlank reports whether a raw form value counts as absent.
func isBlank(raw any) bool {
	switch v := raw.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(v) == ""
	case []any:
		return len(v) == 0
	case []string:
		return len(v) == 0
	}
	return false
}

// coerceValue converts a raw form value into the typed value for def. A nil
// result with a nil error means the value is absent.
func coerceValue(def models.FieldDefinition, raw any) (models.FieldValue, error) {
	if isBlank(raw) {
		if def.Type == models.FieldTypeBoolean {
			return models.BooleanValue(false), nil
		}
		return nil, nil
	}

	switch def.Type {
	case models.FieldTypeText:
		s, err := coerceString(def, raw)
		if err != nil {
			return nil, err
		}
		n := utf8.RuneCountInString(s)
		if def.Rules.MinLength != nil && n < *def.Rules.MinLength {
			return nil, utils.Validation("%s must be at least %d characters", def.Label, *def.Rules.MinLength)
		}
		if def.Rules.MaxLength != nil && n > *def.Rules.MaxLength {
			return nil, utils.Validation("%s must be at most %d characters", def.Label, *def.Rules.MaxLength)
		}
		return models.TextValue(s), nil

	case models.FieldTypeNumber:
		f, err := parseNumber(def.Label, raw)
		if err != nil {
			return nil, err
		}
		if def.Rules.Min != nil && f < *def.Rules.Min {
			return nil, utils.Validation("%s must be at least %v", def.Label, *def.Rules.Min)
		}
		if def.Rules.Max != nil && f > *def.Rules.Max {
			return nil, utils.Validation("%s must be at most %v", def.Label, *def.Rules.Max)
		}
		return models.NumberValue(f), nil

	case models.FieldTypeSelect:
		s, err := coerceString(def, raw)
		if err != nil {
			return nil, err
		}
		if err := checkOption(def, s); err != nil {
			return nil, err
		}
		return models.SelectValue(s), nil

	case models.FieldTypeMultiSelect:
		items, err := coerceList(def, raw)
		if err != nil {
			return nil, err
		}
		out := make(models.MultiSelectValue, 0, len(items))
		seen := make(map[string]bool, len(items))
		for _, it := range items {
			if it == "" || seen[it] {
				continue
			}
			if err := checkOption(def, it); err != nil {
				return nil, err
			}
			seen[it] = true
			out = append(out, it)
		}
		if len(out) == 0 {
			return nil, nil
		}
		return out, nil

	case models.FieldTypeDate:
		s, ok := raw.(string)
		if !ok {
			return nil, utils.Validation("%s must be a date", def.Label)
		}
		d, err := parseDate(s)
		if err != nil {
			return nil, utils.Validation("%s: %q is not a valid date", def.Label, s)
		}
		return models.DateValue(d.Format(models.DateLayout)), nil

	case models.FieldTypeBoolean:
		b, err := parseBool(def.Label, raw)
		if err != nil {
			return nil, err
		}
		return models.BooleanValue(b), nil

	default:
		return nil, utils.Validation("%s has unsupported type %q", def.Label, def.Type)
	}
}

func coerceString(def models.FieldDefinition, raw any) (string, error) {
	switch v := raw.(type) {
	case string:
		return strings.TrimSpace(v), nil
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), nil
	case json.Number:
		return v.String(), nil
	case bool:
		return strconv.FormatBool(v), nil
	}
	return "", utils.Validation("%s must be a string", def.Label)
}

func coerceList(def models.FieldDefinition, raw any) ([]string, error) {
	switch v := raw.(type) {
	case string:
		parts := strings.Split(v, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		return parts, nil
	case []string:
		out := make([]string, len(v))
		for i := range v {
			out[i] = strings.TrimSpace(v[i])
		}
		return out, nil
	case []any:
		out := make([]string, 0, len(v))
		for _, it := range v {
			s, ok := it.(string)
			if !ok {
				return nil, utils.Validation("%s must be a list of strings", def.Label)
			}
			out = append(out, strings.TrimSpace(s))
		}
		return out, nil
	}
	return nil, utils.Validation("%s must be a list of strings", def.Label)
}

// checkOption accepts any value when the field has no options configured.
func checkOption(def models.FieldDefinition, v string) error {
	if len(def.Options) == 0 {
		return nil
	}
	for _, o := range def.Options {
		if o == v {
			return nil
		}
	}
	return utils.Validation("%s: %q is not one of the allowed options", def.Label, v)
}

// parseNumber accepts JSON numbers and numeric strings. Date-shaped strings
// ("2024-01-05", "01/05/2024") are rejected rather than parsed as a prefix.
func parseNumber(label string, raw any) (float64, error) {
	var f float64
	switch v := raw.(type) {
	case float64:
		f = v
	case int:
		f = float64(v)
	case json.Number:
		parsed, err := v.Float64()
		if err != nil {
			return 0, utils.Validation("%s must be a number", label)
		}
		f = parsed
	case string:
		s := strings.TrimSpace(v)
		if strings.Contains(s, "/") || strings.LastIndex(s, "-") > 0 {
			return 0, utils.Validation("%s must be a number, got %q", label, s)
		}
		parsed, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, utils.Validation("%s must be a number, got %q", label, s)
		}
		f = parsed
	default:
		return 0, utils.Validation("%s must be a number", label)
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, utils.Validation("%s must be a finite number", label)
	}
	return f, nil
}

func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	var lastErr error
	for _, layout := range dateInputLayouts {
		t, err := time.Parse(layout, s)
		if err == nil {
			return t, nil
		}
		lastErr = err
	}
	return time.Time{}, lastErr
}

func parseBool(label string, raw any) (bool, error) {
	switch v := raw.(type) {
	case bool:
		return v, nil
	case float64:
		if v == 0 || v == 1 {
			return v == 1, nil
		}
	case string:
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "true", "1", "yes", "on":
			return true, nil
		case "false", "0", "no", "off":
			return false, nil
		}
	}
	return false, utils.Validation("%s must be true or false", label)
}
