package repository

import (
	"context"

	"github.com/GTDGit/tenant_pos/internal/models"
)

// MemoryFieldStore implements FieldStore on a MemoryStore.
type MemoryFieldStore struct {
	m *MemoryStore
}

// List returns the tenant's definitions.
func (s *MemoryFieldStore) List(_ context.Context, tenantID string) ([]models.FieldDefinition, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	return s.snapshotLocked(tenantID), nil
}

// WithSchemaLock runs fn while holding the store mutex and applies its change.
func (s *MemoryFieldStore) WithSchemaLock(_ context.Context, tenantID string, fn SchemaMutation) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()

	change, err := fn(s.snapshotLocked(tenantID))
	if err != nil {
		return err
	}
	if change.Empty() {
		return nil
	}

	deleted := make(map[string]bool, len(change.Deletes))
	for _, key := range change.Deletes {
		deleted[key] = true
	}
	now := s.m.now()
	byKey := make(map[string]int)
	var next []models.FieldDefinition
	for _, f := range s.m.fields[tenantID] {
		if deleted[f.FieldKey] {
			continue
		}
		byKey[f.FieldKey] = len(next)
		next = append(next, f)
	}
	for _, up := range change.Upserts {
		up = cloneField(up)
		up.TenantID = tenantID
		up.UpdatedAt = now
		if i, ok := byKey[up.FieldKey]; ok {
			up.CreatedAt = next[i].CreatedAt
			up.IsCustom = next[i].IsCustom
			next[i] = up
			continue
		}
		up.CreatedAt = now
		byKey[up.FieldKey] = len(next)
		next = append(next, up)
	}
	s.m.fields[tenantID] = next
	return nil
}

func (s *MemoryFieldStore) snapshotLocked(tenantID string) []models.FieldDefinition {
	src := s.m.fields[tenantID]
	out := make([]models.FieldDefinition, len(src))
	for i, f := range src {
		out[i] = cloneField(f)
	}
	models.SortFields(out)
	return out
}
