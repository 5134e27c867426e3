package service

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GTDGit/tenant_pos/internal/models"
	"github.com/GTDGit/tenant_pos/internal/repository"
	"github.com/GTDGit/tenant_pos/internal/utils"
)

type recordedEvent struct {
	tenantID, action, key string
}

type fakeNotifier struct {
	mu     sync.Mutex
	schema []recordedEvent
	orders []*models.Order
}

func (n *fakeNotifier) NotifySchemaChanged(tenantID, action, fieldKey string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.schema = append(n.schema, recordedEvent{tenantID, action, fieldKey})
}

func (n *fakeNotifier) NotifyOrderCommitted(order *models.Order) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.orders = append(n.orders, order)
}

var tenantA = models.TenantContext{TenantID: "tenant-a", UserID: "user-1"}

func newSchemaService(t *testing.T) (*SchemaService, *fakeNotifier, repository.Stores) {
	t.Helper()
	stores := repository.NewMemoryStore().Stores()
	n := &fakeNotifier{}
	return NewSchemaService(stores.Fields, n), n, stores
}

func keys(fields []models.FieldDefinition) []string {
	out := make([]string, len(fields))
	for i, f := range fields {
		out[i] = f.FieldKey
	}
	return out
}

func TestSchemaService_ListSeedsCoreFields(t *testing.T) {
	svc, _, _ := newSchemaService(t)

	fields, err := svc.ListFields(context.Background(), tenantA)
	require.NoError(t, err)
	assert.Equal(t, []string{"sku", "name", "brand", "category", "sale_price", "retail_price", "stock"}, keys(fields))
	for _, f := range fields {
		assert.False(t, f.IsCustom)
		assert.True(t, f.Active)
	}

	again, err := svc.ListFields(context.Background(), tenantA)
	require.NoError(t, err)
	assert.Len(t, again, 7)
}

func TestSchemaService_ListRequiresTenant(t *testing.T) {
	svc, _, _ := newSchemaService(t)
	_, err := svc.ListFields(context.Background(), models.TenantContext{})
	assert.True(t, utils.IsKind(err, utils.KindValidation))
}

func TestSchemaService_AddFieldNormalizesKey(t *testing.T) {
	svc, n, _ := newSchemaService(t)
	ctx := context.Background()

	def, err := svc.AddField(ctx, tenantA, &AddFieldRequest{Label: "Warranty Period!!", Type: models.FieldTypeNumber})
	require.NoError(t, err)
	assert.Equal(t, "warranty_period", def.FieldKey)
	assert.True(t, def.IsCustom)
	assert.True(t, def.Active)
	assert.Equal(t, 8, def.DisplayOrder)

	_, err = svc.AddField(ctx, tenantA, &AddFieldRequest{Label: "WARRANTY  period", Type: models.FieldTypeText})
	assert.True(t, utils.IsKind(err, utils.KindDuplicate))

	_, err = svc.AddField(ctx, tenantA, &AddFieldRequest{FieldKey: "Warranty_Period", Label: "Other", Type: models.FieldTypeText})
	assert.True(t, utils.IsKind(err, utils.KindDuplicate))

	_, err = svc.AddField(ctx, tenantA, &AddFieldRequest{Label: "SKU", Type: models.FieldTypeText})
	assert.True(t, utils.IsKind(err, utils.KindDuplicate))

	require.Len(t, n.schema, 1)
	assert.Equal(t, recordedEvent{"tenant-a", SchemaActionAdded, "warranty_period"}, n.schema[0])

	other := models.TenantContext{TenantID: "tenant-b"}
	_, err = svc.AddField(ctx, other, &AddFieldRequest{Label: "Warranty Period", Type: models.FieldTypeText})
	assert.NoError(t, err)
}

func TestSchemaService_AddFieldValidation(t *testing.T) {
	svc, _, _ := newSchemaService(t)
	min, max := 10.0, 1.0
	tests := []struct {
		name string
		req  AddFieldRequest
	}{
		{"malformed key", AddFieldRequest{FieldKey: "bad key!", Label: "Bad", Type: models.FieldTypeText}},
		{"empty label", AddFieldRequest{Label: "  !! ", Type: models.FieldTypeText}},
		{"unknown type", AddFieldRequest{Label: "Color", Type: "colour"}},
		{"options on text", AddFieldRequest{Label: "Color", Type: models.FieldTypeText, Options: []string{"red"}}},
		{"min above max", AddFieldRequest{Label: "Weight", Type: models.FieldTypeNumber, Rules: models.ValidationRules{Min: &min, Max: &max}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := tt.req
			_, err := svc.AddField(context.Background(), tenantA, &req)
			assert.True(t, utils.IsKind(err, utils.KindValidation), "got %v", err)
		})
	}
}

func TestSchemaService_ToggleLastActiveField(t *testing.T) {
	svc, _, _ := newSchemaService(t)
	ctx := context.Background()

	fields, err := svc.ListFields(ctx, tenantA)
	require.NoError(t, err)
	for _, f := range fields[1:] {
		_, err := svc.ToggleActive(ctx, tenantA, f.FieldKey, false)
		require.NoError(t, err)
	}

	_, err = svc.ToggleActive(ctx, tenantA, fields[0].FieldKey, false)
	assert.True(t, utils.IsKind(err, utils.KindInvariant))
	assert.ErrorIs(t, err, utils.ErrLastActiveField)

	active := false
	_, err = svc.UpdateField(ctx, tenantA, fields[0].FieldKey, &UpdateFieldRequest{Active: &active})
	assert.True(t, utils.IsKind(err, utils.KindInvariant))

	after, err := svc.ListFields(ctx, tenantA)
	require.NoError(t, err)
	assert.Equal(t, 1, models.CountActive(after))
}

func TestSchemaService_UpdateField(t *testing.T) {
	svc, _, _ := newSchemaService(t)
	ctx := context.Background()

	_, err := svc.AddField(ctx, tenantA, &AddFieldRequest{Label: "Color", Type: models.FieldTypeSelect, Options: []string{"red", "blue"}})
	require.NoError(t, err)

	label := "Colour"
	required := true
	def, err := svc.UpdateField(ctx, tenantA, "color", &UpdateFieldRequest{Label: &label, Required: &required})
	require.NoError(t, err)
	assert.Equal(t, "Colour", def.Label)
	assert.True(t, def.Required)
	assert.Equal(t, []string{"red", "blue"}, []string(def.Options))

	otherKey := "colour"
	_, err = svc.UpdateField(ctx, tenantA, "color", &UpdateFieldRequest{FieldKey: &otherKey})
	assert.True(t, utils.IsKind(err, utils.KindValidation))

	_, err = svc.UpdateField(ctx, tenantA, "missing", &UpdateFieldRequest{Label: &label})
	assert.True(t, utils.IsKind(err, utils.KindNotFound))

	number := models.FieldTypeNumber
	_, err = svc.UpdateField(ctx, tenantA, "sku", &UpdateFieldRequest{Type: &number})
	assert.True(t, utils.IsKind(err, utils.KindValidation))
}

func TestSchemaService_DeleteField(t *testing.T) {
	svc, n, _ := newSchemaService(t)
	ctx := context.Background()

	err := svc.DeleteField(ctx, tenantA, "sku")
	assert.True(t, utils.IsKind(err, utils.KindInvariant))
	assert.ErrorIs(t, err, utils.ErrCoreFieldDelete)

	err = svc.DeleteField(ctx, tenantA, "nope")
	assert.True(t, utils.IsKind(err, utils.KindNotFound))

	_, err = svc.AddField(ctx, tenantA, &AddFieldRequest{Label: "Expiry", Type: models.FieldTypeDate})
	require.NoError(t, err)
	require.NoError(t, svc.DeleteField(ctx, tenantA, "expiry"))

	fields, err := svc.ListFields(ctx, tenantA)
	require.NoError(t, err)
	assert.NotContains(t, keys(fields), "expiry")
	assert.Equal(t, SchemaActionDeleted, n.schema[len(n.schema)-1].action)
}

func TestSchemaService_DeleteLastActiveCustomField(t *testing.T) {
	svc, _, _ := newSchemaService(t)
	ctx := context.Background()

	_, err := svc.AddField(ctx, tenantA, &AddFieldRequest{Label: "Batch", Type: models.FieldTypeText})
	require.NoError(t, err)
	fields, err := svc.ListFields(ctx, tenantA)
	require.NoError(t, err)
	for _, f := range fields {
		if f.FieldKey != "batch" {
			_, err := svc.ToggleActive(ctx, tenantA, f.FieldKey, false)
			require.NoError(t, err)
		}
	}

	err = svc.DeleteField(ctx, tenantA, "batch")
	assert.True(t, utils.IsKind(err, utils.KindInvariant))
}

func TestSchemaService_ReorderFields(t *testing.T) {
	svc, _, _ := newSchemaService(t)
	ctx := context.Background()

	fields, err := svc.ReorderFields(ctx, tenantA, []string{"stock", "SKU"})
	require.NoError(t, err)
	assert.Equal(t, []string{"stock", "sku", "name", "brand", "category", "sale_price", "retail_price"}, keys(fields))
	for i, f := range fields {
		assert.Equal(t, i+1, f.DisplayOrder)
	}

	listed, err := svc.ListFields(ctx, tenantA)
	require.NoError(t, err)
	assert.Equal(t, keys(fields), keys(listed))

	_, err = svc.ReorderFields(ctx, tenantA, []string{"stock", "unknown"})
	assert.True(t, utils.IsKind(err, utils.KindValidation))

	_, err = svc.ReorderFields(ctx, tenantA, []string{"name", "name"})
	assert.True(t, utils.IsKind(err, utils.KindValidation))

	unchanged, err := svc.ListFields(ctx, tenantA)
	require.NoError(t, err)
	assert.Equal(t, keys(fields), keys(unchanged))
}

func TestSchemaService_ConcurrentAddsKeepKeysUnique(t *testing.T) {
	svc, _, _ := newSchemaService(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	errs := make([]error, 8)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.AddField(ctx, tenantA, &AddFieldRequest{Label: "Supplier", Type: models.FieldTypeText})
		}(i)
	}
	wg.Wait()

	ok := 0
	for _, err := range errs {
		if err == nil {
			ok++
		} else {
			assert.True(t, utils.IsKind(err, utils.KindDuplicate))
		}
	}
	assert.Equal(t, 1, ok)
}
