package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/GTDGit/tenant_pos/internal/models"
	"github.com/GTDGit/tenant_pos/internal/utils"
)

const fieldColumns = `tenant_id, field_key, label, type, required, active, options,
        validation_rules, display_order, is_custom, created_at, updated_at`

// FieldRepository handles data access for field definitions.
type FieldRepository struct {
	db *sqlx.DB
}

// NewFieldRepository creates a new FieldRepository.
func NewFieldRepository(db *sqlx.DB) *FieldRepository {
	return &FieldRepository{db: db}
}

// List returns every definition of the tenant.
func (r *FieldRepository) List(ctx context.Context, tenantID string) ([]models.FieldDefinition, error) {
	q := `SELECT ` + fieldColumns + ` FROM field_definitions WHERE tenant_id = $1 ORDER BY display_order, field_key`

	var fields []models.FieldDefinition
	if err := r.db.SelectContext(ctx, &fields, q, tenantID); err != nil {
		return nil, translateError(err, utils.ErrFieldNotFound, "field definitions")
	}
	return fields, nil
}

// WithSchemaLock runs fn under a transaction-scoped advisory lock keyed by
// the tenant, then applies the returned change in the same transaction.
func (r *FieldRepository) WithSchemaLock(ctx context.Context, tenantID string, fn SchemaMutation) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return translateError(err, nil, "schema")
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, "schema:"+tenantID); err != nil {
		return translateError(err, nil, "schema lock")
	}

	var fields []models.FieldDefinition
	q := `SELECT ` + fieldColumns + ` FROM field_definitions WHERE tenant_id = $1 ORDER BY display_order, field_key`
	if err = tx.SelectContext(ctx, &fields, q, tenantID); err != nil {
		return translateError(err, nil, "field definitions")
	}

	change, err := fn(fields)
	if err != nil {
		return err
	}
	if change.Empty() {
		return tx.Commit()
	}

	for _, key := range change.Deletes {
		if _, err = tx.ExecContext(ctx,
			`DELETE FROM field_definitions WHERE tenant_id = $1 AND field_key = $2`, tenantID, key,
		); err != nil {
			return translateError(err, utils.ErrFieldNotFound, "field "+key)
		}
	}

	const upsert = `
        INSERT INTO field_definitions (
            tenant_id, field_key, label, type, required, active, options,
            validation_rules, display_order, is_custom, created_at, updated_at
        ) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,NOW(),NOW())
        ON CONFLICT (tenant_id, field_key) DO UPDATE SET
            label = EXCLUDED.label,
            type = EXCLUDED.type,
            required = EXCLUDED.required,
            active = EXCLUDED.active,
            options = EXCLUDED.options,
            validation_rules = EXCLUDED.validation_rules,
            display_order = EXCLUDED.display_order,
            updated_at = NOW()`
	for _, f := range change.Upserts {
		if f.Options == nil {
			f.Options = pq.StringArray{}
		}
		if _, err = tx.ExecContext(ctx, upsert,
			tenantID, f.FieldKey, f.Label, f.Type, f.Required, f.Active, f.Options,
			f.Rules, f.DisplayOrder, f.IsCustom,
		); err != nil {
			return translateError(err, nil, fmt.Sprintf("field %q", f.FieldKey))
		}
	}

	if err = tx.Commit(); err != nil {
		return translateError(err, nil, "schema")
	}
	return nil
}
