package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/GTDGit/tenant_pos/internal/metrics"
	"github.com/GTDGit/tenant_pos/internal/models"
	"github.com/GTDGit/tenant_pos/internal/repository"
	"github.com/GTDGit/tenant_pos/internal/sse"
	"github.com/GTDGit/tenant_pos/internal/utils"
)

// IdempotencyGuard reserves client request keys across service instances.
type IdempotencyGuard interface {
	Reserve(ctx context.Context, tenantID, requestKey, orderID string) (bool, error)
	// Holder returns the order id holding requestKey, or "" when it is free.
	Holder(ctx context.Context, tenantID, requestKey string) (string, error)
	Release(ctx context.Context, tenantID, requestKey string) error
}

// OrderService turns carts into committed sales and refunds.
type OrderService struct {
	orders         repository.OrderStore
	reconciliation repository.ReconciliationStore
	guard          IdempotencyGuard
	notifier       sse.Notifier
	now            func() time.Time
}

// NewOrderService constructs an OrderService. guard may be nil, in which
// case only the store's unique request key protects against replays.
func NewOrderService(orders repository.OrderStore, reconciliation repository.ReconciliationStore, guard IdempotencyGuard, notifier sse.Notifier) *OrderService {
	if notifier == nil {
		notifier = &sse.NopNotifier{}
	}
	return &OrderService{
		orders:         orders,
		reconciliation: reconciliation,
		guard:          guard,
		notifier:       notifier,
		now:            time.Now,
	}
}

// CreateSale commits a sale: stock decreases by each line's quantity.
func (s *OrderService) CreateSale(ctx context.Context, tc models.TenantContext, spec *models.CartSpec) (*models.Order, error) {
	return s.commit(ctx, tc, models.OrderTypeSale, spec)
}

// CreateReturn commits a refund: stock increases, tax is fixed at 10% and no
// discount applies.
func (s *OrderService) CreateReturn(ctx context.Context, tc models.TenantContext, spec *models.CartSpec) (*models.Order, error) {
	normalized := models.CartSpec{
		Items:        spec.Items,
		TaxRate:      models.ReturnTaxRate,
		DiscountType: models.DiscountNone,
		RequestKey:   spec.RequestKey,
	}
	return s.commit(ctx, tc, models.OrderTypeRefund, &normalized)
}

// GetOrder retrieves a committed order.
func (s *OrderService) GetOrder(ctx context.Context, tc models.TenantContext, id string) (*models.Order, error) {
	if !tc.Valid() {
		return nil, utils.Validation("tenant is required")
	}
	if _, err := uuid.Parse(id); err != nil {
		return nil, utils.NotFound(utils.ErrOrderNotFound, "order %s not found", id)
	}
	return s.orders.Get(ctx, tc.TenantID, id)
}

// ListOrders returns a page of committed orders, newest first.
func (s *OrderService) ListOrders(ctx context.Context, tc models.TenantContext, page, limit int) ([]models.Order, int, error) {
	if !tc.Valid() {
		return nil, 0, utils.Validation("tenant is required")
	}
	return s.orders.List(ctx, tc.TenantID, page, limit)
}

func (s *OrderService) commit(ctx context.Context, tc models.TenantContext, typ models.OrderType, spec *models.CartSpec) (*models.Order, error) {
	if !tc.Valid() {
		return nil, utils.Validation("tenant is required")
	}
	if err := validateCart(spec); err != nil {
		metrics.OrderRejections.WithLabelValues(metrics.RejectionReason(err)).Inc()
		return nil, err
	}

	var requestKey *string
	if k := strings.TrimSpace(spec.RequestKey); k != "" {
		requestKey = &k
		if existing, err := s.replay(ctx, tc, k); existing != nil || err != nil {
			return existing, err
		}
	}

	orderID := uuid.NewString()
	if requestKey != nil && s.guard != nil {
		ok, err := s.guard.Reserve(ctx, tc.TenantID, *requestKey, orderID)
		switch {
		case err != nil:
			log.Warn().Err(err).Str("tenant_id", tc.TenantID).Msg("idempotency reservation unavailable, relying on store")
		case !ok:
			if existing, err := s.replay(ctx, tc, *requestKey); existing != nil || err != nil {
				return existing, err
			}
			return nil, s.inFlight(ctx, tc, *requestKey)
		}
	}

	order, err := s.orders.Commit(ctx, repository.OrderDraft{
		OrderID:    orderID,
		TenantID:   tc.TenantID,
		Type:       typ,
		Items:      spec.Items,
		RequestKey: requestKey,
		CreatedBy:  tc.UserID,
		Now:        s.now(),
		Build: func(products map[string]models.Product) (*models.Order, error) {
			return priceOrder(typ, spec, products)
		},
	})
	if err != nil {
		if requestKey != nil && errors.Is(err, utils.ErrDuplicateRequest) {
			if existing, rerr := s.replay(ctx, tc, *requestKey); existing != nil || rerr != nil {
				return existing, rerr
			}
			return nil, err
		}
		metrics.OrderRejections.WithLabelValues(metrics.RejectionReason(err)).Inc()
		if utils.IsDomainError(err) {
			s.release(ctx, tc, requestKey)
			return nil, err
		}
		s.recordFailure(ctx, tc, orderID, typ, spec, requestKey, err)
		return nil, fmt.Errorf("commit order %s: %w", orderID, err)
	}

	metrics.OrdersCommitted.WithLabelValues(string(order.Type)).Inc()
	log.Info().
		Str("tenant_id", tc.TenantID).
		Str("order_number", order.OrderNumber).
		Str("type", string(order.Type)).
		Str("total", order.Total.StringFixed(models.MoneyPlaces)).
		Msg("order committed")
	s.notifier.NotifyOrderCommitted(order)
	return order, nil
}

// replay returns the order already committed under key, or nil if none.
func (s *OrderService) replay(ctx context.Context, tc models.TenantContext, key string) (*models.Order, error) {
	existing, err := s.orders.GetByRequestKey(ctx, tc.TenantID, key)
	if err == nil {
		log.Info().Str("tenant_id", tc.TenantID).Str("order_number", existing.OrderNumber).Msg("idempotent replay")
		return existing, nil
	}
	if utils.IsKind(err, utils.KindNotFound) {
		return nil, nil
	}
	return nil, err
}

// inFlight reports a request key reserved by a commit that has not finished,
// naming the holding order when the guard still knows it.
func (s *OrderService) inFlight(ctx context.Context, tc models.TenantContext, key string) error {
	holder, err := s.guard.Holder(ctx, tc.TenantID, key)
	if err != nil {
		log.Warn().Err(err).Str("tenant_id", tc.TenantID).Msg("failed to read idempotency reservation")
	}
	if holder == "" {
		return utils.Duplicate(utils.ErrRequestInFlight, "request %s is already being processed", key)
	}
	return utils.Duplicate(utils.ErrRequestInFlight, "request %s is already being processed as order %s", key, holder)
}

func (s *OrderService) release(ctx context.Context, tc models.TenantContext, key *string) {
	if key == nil || s.guard == nil {
		return
	}
	if err := s.guard.Release(ctx, tc.TenantID, *key); err != nil {
		log.Warn().Err(err).Str("tenant_id", tc.TenantID).Msg("failed to release idempotency reservation")
	}
}

// recordFailure stores a reconciliation event for a commit whose outcome is
// unknown. The reservation is kept so a retry cannot double-commit.
func (s *OrderService) recordFailure(ctx context.Context, tc models.TenantContext, orderID string, typ models.OrderType, spec *models.CartSpec, key *string, cause error) {
	log.Error().Err(cause).
		Str("tenant_id", tc.TenantID).
		Str("order_id", orderID).
		Str("type", string(typ)).
		Msg("order commit failed, recording reconciliation event")

	if s.reconciliation == nil {
		return
	}
	payload, _ := json.Marshal(spec)
	ev := &models.ReconciliationEvent{
		ID:         uuid.NewString(),
		TenantID:   tc.TenantID,
		OrderID:    orderID,
		RequestKey: key,
		OrderType:  typ,
		Reason:     cause.Error(),
		Payload:    payload,
		Status:     models.ReconciliationOpen,
	}
	// The request context may be what failed.
	recCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := s.reconciliation.Record(recCtx, ev); err != nil {
		log.Error().Err(err).Str("order_id", orderID).Msg("failed to record reconciliation event")
		return
	}
	metrics.ReconciliationEvents.WithLabelValues(string(models.ReconciliationOpen)).Inc()
}

// ReconcileOpen settles up to limit open reconciliation events by checking
// whether their order was persisted. It returns the number resolved.
func (s *OrderService) ReconcileOpen(ctx context.Context, limit int) (int, error) {
	if s.reconciliation == nil {
		return 0, nil
	}
	events, err := s.reconciliation.ListOpen(ctx, limit)
	if err != nil {
		return 0, err
	}

	resolved := 0
	for _, ev := range events {
		status := models.ReconciliationCommitted
		if _, err := s.orders.Get(ctx, ev.TenantID, ev.OrderID); err != nil {
			if !utils.IsKind(err, utils.KindNotFound) {
				log.Warn().Err(err).Str("event_id", ev.ID).Msg("reconciliation check failed, will retry")
				continue
			}
			status = models.ReconciliationRolledBack
		}
		if err := s.reconciliation.Resolve(ctx, ev.ID, status); err != nil {
			log.Warn().Err(err).Str("event_id", ev.ID).Msg("failed to resolve reconciliation event")
			continue
		}
		if status == models.ReconciliationRolledBack && ev.RequestKey != nil {
			s.release(ctx, models.TenantContext{TenantID: ev.TenantID}, ev.RequestKey)
		}
		metrics.ReconciliationEvents.WithLabelValues(string(status)).Inc()
		log.Info().Str("tenant_id", ev.TenantID).Str("order_id", ev.OrderID).Str("status", string(status)).Msg("reconciliation event resolved")
		resolved++
	}
	return resolved, nil
}
