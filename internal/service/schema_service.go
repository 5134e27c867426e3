package service

import (
	"context"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/GTDGit/tenant_pos/internal/models"
	"github.com/GTDGit/tenant_pos/internal/repository"
	"github.com/GTDGit/tenant_pos/internal/sse"
	"github.com/GTDGit/tenant_pos/internal/utils"
)

// Schema change actions carried by schema.changed events.
const (
	SchemaActionAdded       = "added"
	SchemaActionUpdated     = "updated"
	SchemaActionActivated   = "activated"
	SchemaActionDeactivated = "deactivated"
	SchemaActionDeleted     = "deleted"
	SchemaActionReordered   = "reordered"
)

// SchemaService manages each tenant's product field definitions.
type SchemaService struct {
	fields   repository.FieldStore
	notifier sse.Notifier
}

// NewSchemaService constructs a SchemaService.
func NewSchemaService(fields repository.FieldStore, notifier sse.Notifier) *SchemaService {
	if notifier == nil {
		notifier = &sse.NopNotifier{}
	}
	return &SchemaService{fields: fields, notifier: notifier}
}

// AddFieldRequest represents the request to add a custom field.
type AddFieldRequest struct {
	FieldKey     string                 `json:"fieldKey"`
	Label        string                 `json:"label" binding:"required"`
	Type         models.FieldType       `json:"type" binding:"required"`
	Required     bool                   `json:"required"`
	Active       *bool                  `json:"active"`
	Options      []string               `json:"options"`
	Rules        models.ValidationRules `json:"validationRules"`
	DisplayOrder int                    `json:"displayOrder"`
}

// UpdateFieldRequest is a partial update; nil members are left unchanged.
type UpdateFieldRequest struct {
	FieldKey     *string                 `json:"fieldKey"`
	Label        *string                 `json:"label"`
	Type         *models.FieldType       `json:"type"`
	Required     *bool                   `json:"required"`
	Active       *bool                   `json:"active"`
	Options      []string                `json:"options"`
	Rules        *models.ValidationRules `json:"validationRules"`
	DisplayOrder *int                    `json:"displayOrder"`
}

// ListFields returns the tenant's fields ordered by DisplayOrder, ties broken
// by FieldKey. A tenant without fields is seeded with the core set first.
func (s *SchemaService) ListFields(ctx context.Context, tc models.TenantContext) ([]models.FieldDefinition, error) {
	if !tc.Valid() {
		return nil, utils.Validation("tenant is required")
	}
	fields, err := s.fields.List(ctx, tc.TenantID)
	if err != nil {
		return nil, err
	}
	if len(fields) == 0 {
		var seeded []models.FieldDefinition
		err = s.mutate(ctx, tc, func(current []models.FieldDefinition) (*models.SchemaChange, error) {
			seeded = current
			return nil, nil
		})
		if err != nil {
			return nil, err
		}
		fields = seeded
	}
	models.SortFields(fields)
	return fields, nil
}

// AddField registers a new custom field.
func (s *SchemaService) AddField(ctx context.Context, tc models.TenantContext, req *AddFieldRequest) (*models.FieldDefinition, error) {
	key := strings.ToLower(strings.TrimSpace(req.FieldKey))
	if key == "" {
		key = models.NormalizeFieldKey(req.Label)
	}
	if !models.ValidFieldKey(key) {
		return nil, utils.Validation("field key %q must match [a-z0-9_]+", key)
	}
	label := strings.TrimSpace(req.Label)
	if label == "" {
		return nil, utils.Validation("label is required")
	}

	def := models.FieldDefinition{
		TenantID:     tc.TenantID,
		FieldKey:     key,
		Label:        label,
		Type:         req.Type,
		Required:     req.Required,
		Active:       true,
		Options:      normalizeOptions(req.Options),
		Rules:        req.Rules,
		DisplayOrder: req.DisplayOrder,
		IsCustom:     true,
	}
	if req.Active != nil {
		def.Active = *req.Active
	}
	if err := validateDefinition(&def); err != nil {
		return nil, err
	}

	err := s.mutate(ctx, tc, func(fields []models.FieldDefinition) (*models.SchemaChange, error) {
		maxOrder := 0
		for _, f := range fields {
			if strings.EqualFold(f.FieldKey, def.FieldKey) {
				return nil, utils.Duplicate(utils.ErrDuplicateFieldKey, "field %q already exists", def.FieldKey)
			}
			if f.DisplayOrder > maxOrder {
				maxOrder = f.DisplayOrder
			}
		}
		if def.DisplayOrder <= 0 {
			def.DisplayOrder = maxOrder + 1
		}
		return &models.SchemaChange{Upserts: []models.FieldDefinition{def}}, nil
	})
	if err != nil {
		return nil, err
	}

	log.Info().Str("tenant_id", tc.TenantID).Str("field_key", def.FieldKey).Msg("field added")
	s.notifier.NotifySchemaChanged(tc.TenantID, SchemaActionAdded, def.FieldKey)
	return &def, nil
}

// UpdateField merges patch into an existing field. The key is immutable.
func (s *SchemaService) UpdateField(ctx context.Context, tc models.TenantContext, key string, patch *UpdateFieldRequest) (*models.FieldDefinition, error) {
	key = strings.ToLower(strings.TrimSpace(key))
	if patch.FieldKey != nil && strings.ToLower(strings.TrimSpace(*patch.FieldKey)) != key {
		return nil, utils.Validation("field key is immutable")
	}

	var updated models.FieldDefinition
	err := s.mutate(ctx, tc, func(fields []models.FieldDefinition) (*models.SchemaChange, error) {
		cur, ok := findField(fields, key)
		if !ok {
			return nil, utils.NotFound(utils.ErrFieldNotFound, "field %q not found", key)
		}
		next := cur
		if patch.Label != nil {
			next.Label = strings.TrimSpace(*patch.Label)
			if next.Label == "" {
				return nil, utils.Validation("label is required")
			}
		}
		if patch.Type != nil {
			if !cur.IsCustom && *patch.Type != cur.Type {
				return nil, utils.Validation("type of core field %q cannot change", key)
			}
			next.Type = *patch.Type
		}
		if patch.Required != nil {
			next.Required = *patch.Required
		}
		if patch.Active != nil {
			next.Active = *patch.Active
		}
		if patch.Options != nil {
			next.Options = normalizeOptions(patch.Options)
		} else if !next.Type.HasOptions() {
			next.Options = nil
		}
		if patch.Rules != nil {
			next.Rules = *patch.Rules
		}
		if patch.DisplayOrder != nil {
			next.DisplayOrder = *patch.DisplayOrder
		}
		if err := validateDefinition(&next); err != nil {
			return nil, err
		}
		if cur.Active && !next.Active && models.CountActive(fields) == 1 {
			return nil, utils.Invariant(utils.ErrLastActiveField, "at least one field must stay active")
		}
		updated = next
		return &models.SchemaChange{Upserts: []models.FieldDefinition{next}}, nil
	})
	if err != nil {
		return nil, err
	}

	s.notifier.NotifySchemaChanged(tc.TenantID, SchemaActionUpdated, key)
	return &updated, nil
}

// ToggleActive activates or deactivates a field.
func (s *SchemaService) ToggleActive(ctx context.Context, tc models.TenantContext, key string, active bool) (*models.FieldDefinition, error) {
	key = strings.ToLower(strings.TrimSpace(key))

	var updated models.FieldDefinition
	err := s.mutate(ctx, tc, func(fields []models.FieldDefinition) (*models.SchemaChange, error) {
		cur, ok := findField(fields, key)
		if !ok {
			return nil, utils.NotFound(utils.ErrFieldNotFound, "field %q not found", key)
		}
		updated = cur
		if cur.Active == active {
			return nil, nil
		}
		if !active && models.CountActive(fields) == 1 {
			return nil, utils.Invariant(utils.ErrLastActiveField, "at least one field must stay active")
		}
		updated.Active = active
		return &models.SchemaChange{Upserts: []models.FieldDefinition{updated}}, nil
	})
	if err != nil {
		return nil, err
	}

	action := SchemaActionDeactivated
	if active {
		action = SchemaActionActivated
	}
	s.notifier.NotifySchemaChanged(tc.TenantID, action, key)
	return &updated, nil
}

// DeleteField removes a custom field. Stored product values for the key are
// left in place and no longer rendered.
func (s *SchemaService) DeleteField(ctx context.Context, tc models.TenantContext, key string) error {
	key = strings.ToLower(strings.TrimSpace(key))

	err := s.mutate(ctx, tc, func(fields []models.FieldDefinition) (*models.SchemaChange, error) {
		cur, ok := findField(fields, key)
		if !ok {
			return nil, utils.NotFound(utils.ErrFieldNotFound, "field %q not found", key)
		}
		if !cur.IsCustom {
			return nil, utils.Invariant(utils.ErrCoreFieldDelete, "core field %q cannot be deleted", key)
		}
		if len(fields) == 1 {
			return nil, utils.Invariant(utils.ErrLastActiveField, "the last field cannot be deleted")
		}
		if cur.Active && models.CountActive(fields) == 1 {
			return nil, utils.Invariant(utils.ErrLastActiveField, "the last active field cannot be deleted")
		}
		return &models.SchemaChange{Deletes: []string{key}}, nil
	})
	if err != nil {
		return err
	}

	log.Info().Str("tenant_id", tc.TenantID).Str("field_key", key).Msg("field deleted")
	s.notifier.NotifySchemaChanged(tc.TenantID, SchemaActionDeleted, key)
	return nil
}

// ReorderFields assigns DisplayOrder = position+1 to the listed keys. Fields
// not listed follow in their previous relative order.
func (s *SchemaService) ReorderFields(ctx context.Context, tc models.TenantContext, orderedKeys []string) ([]models.FieldDefinition, error) {
	var result []models.FieldDefinition
	err := s.mutate(ctx, tc, func(fields []models.FieldDefinition) (*models.SchemaChange, error) {
		byKey := make(map[string]models.FieldDefinition, len(fields))
		for _, f := range fields {
			byKey[f.FieldKey] = f
		}

		seen := make(map[string]bool, len(orderedKeys))
		ordered := make([]models.FieldDefinition, 0, len(fields))
		for _, raw := range orderedKeys {
			key := strings.ToLower(strings.TrimSpace(raw))
			f, ok := byKey[key]
			if !ok {
				return nil, utils.Validation("unknown field %q", raw)
			}
			if seen[key] {
				return nil, utils.Validation("field %q listed twice", raw)
			}
			seen[key] = true
			ordered = append(ordered, f)
		}
		for _, f := range fields {
			if !seen[f.FieldKey] {
				ordered = append(ordered, f)
			}
		}

		change := &models.SchemaChange{}
		for i := range ordered {
			if ordered[i].DisplayOrder != i+1 {
				ordered[i].DisplayOrder = i + 1
				change.Upserts = append(change.Upserts, ordered[i])
			}
		}
		result = ordered
		return change, nil
	})
	if err != nil {
		return nil, err
	}

	s.notifier.NotifySchemaChanged(tc.TenantID, SchemaActionReordered, "")
	return result, nil
}

// mutate runs fn under the tenant's schema lock. fields are sorted, and a
// tenant without fields is seeded with the core set in the same write.
func (s *SchemaService) mutate(ctx context.Context, tc models.TenantContext, fn repository.SchemaMutation) error {
	if !tc.Valid() {
		return utils.Validation("tenant is required")
	}
	return s.fields.WithSchemaLock(ctx, tc.TenantID, func(fields []models.FieldDefinition) (*models.SchemaChange, error) {
		var seeded []models.FieldDefinition
		if len(fields) == 0 {
			seeded = models.CoreFieldDefinitions(tc.TenantID)
			fields = append([]models.FieldDefinition(nil), seeded...)
		}
		models.SortFields(fields)

		change, err := fn(fields)
		if err != nil {
			return nil, err
		}
		if change == nil {
			change = &models.SchemaChange{}
		}
		if len(seeded) > 0 {
			change.Upserts = append(seeded, change.Upserts...)
		}
		return change, nil
	})
}

func findField(fields []models.FieldDefinition, key string) (models.FieldDefinition, bool) {
	for _, f := range fields {
		if f.FieldKey == key {
			return f, true
		}
	}
	return models.FieldDefinition{}, false
}

func normalizeOptions(in []string) []string {
	if in == nil {
		return nil
	}
	out := make([]string, 0, len(in))
	seen := make(map[string]bool, len(in))
	for _, o := range in {
		o = strings.TrimSpace(o)
		if o == "" || seen[o] {
			continue
		}
		seen[o] = true
		out = append(out, o)
	}
	return out
}

func validateDefinition(def *models.FieldDefinition) error {
	if !def.Type.Valid() {
		return utils.Validation("unknown field type %q", def.Type)
	}
	if len(def.Options) > 0 && !def.Type.HasOptions() {
		return utils.Validation("options are only allowed on select and multiselect fields")
	}
	r := def.Rules
	if r.Min != nil && r.Max != nil && *r.Min > *r.Max {
		return utils.Validation("min must not exceed max")
	}
	if (r.MinLength != nil && *r.MinLength < 0) || (r.MaxLength != nil && *r.MaxLength < 0) {
		return utils.Validation("length rules must not be negative")
	}
	if r.MinLength != nil && r.MaxLength != nil && *r.MinLength > *r.MaxLength {
		return utils.Validation("minLength must not exceed maxLength")
	}
	return nil
}
