package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/autoplanner-api/internal/domain"
	"github.com/jhoicas/autoplanner-api/internal/domain/entity"
	"github.com/jhoicas/autoplanner-api/internal/domain/repository"
)

var _ repository.BusinessRepository = (*BusinessRepo)(nil)

const businessColumns = `
	id, name, owner_id, subscription_customer_id, subscription_status, subscription_plan,
	current_period_end, last_payment_amount, created_at, updated_at`

// BusinessRepo implementación del puerto BusinessRepository sobre PostgreSQL.
type BusinessRepo struct {
	q         Querier
	opTimeout time.Duration
}

// NewBusinessRepository construye el adaptador. Pasar pool o tx (Querier).
func NewBusinessRepository(q Querier, opTimeout time.Duration) *BusinessRepo {
	return &BusinessRepo{q: q, opTimeout: opTimeout}
}

// Create persiste un negocio. owner_id es único: un segundo negocio para el mismo dueño falla.
func (r *BusinessRepo) Create(ctx context.Context, b *entity.Business) error {
	ctx, cancel := withTimeout(ctx, r.opTimeout)
	defer cancel()

	query := `
		INSERT INTO businesses (id, name, owner_id, subscription_customer_id, subscription_status,
			subscription_plan, current_period_end, last_payment_amount, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`
	_, err := r.q.Exec(ctx, query,
		b.ID, b.Name, b.OwnerID,
		nullString(b.Subscription.CustomerID), statusOrDefault(b.Subscription.Status),
		nullString(string(b.Subscription.Plan)), b.Subscription.CurrentPeriodEnd, b.Subscription.LastPaymentAmount,
		b.CreatedAt, b.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("insert business: %w", domain.ErrConflict)
		}
		return fmt.Errorf("insert business: %w", err)
	}
	return nil
}

// GetByID obtiene un negocio por ID.
func (r *BusinessRepo) GetByID(ctx context.Context, id string) (*entity.Business, error) {
	return r.getOne(ctx, "get business", `SELECT`+businessColumns+` FROM businesses WHERE id = $1`, id)
}

// GetByOwner obtiene el negocio de un usuario.
func (r *BusinessRepo) GetByOwner(ctx context.Context, ownerID string) (*entity.Business, error) {
	return r.getOne(ctx, "get business by owner", `SELECT`+businessColumns+` FROM businesses WHERE owner_id = $1`, ownerID)
}

func (r *BusinessRepo) getOne(ctx context.Context, op, query string, arg any) (*entity.Business, error) {
	ctx, cancel := withTimeout(ctx, r.opTimeout)
	defer cancel()

	b, err := scanBusiness(r.q.QueryRow(ctx, query, arg))
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return b, nil
}

// UpdateSubscription reemplaza el snapshot completo de facturación.
func (r *BusinessRepo) UpdateSubscription(ctx context.Context, id string, sub entity.BusinessSubscription) error {
	ctx, cancel := withTimeout(ctx, r.opTimeout)
	defer cancel()

	tag, err := r.q.Exec(ctx, `
		UPDATE businesses
		SET subscription_customer_id = $2, subscription_status = $3, subscription_plan = $4,
			current_period_end = $5, last_payment_amount = $6, updated_at = now()
		WHERE id = $1`,
		id, nullString(sub.CustomerID), statusOrDefault(sub.Status), nullString(string(sub.Plan)),
		sub.CurrentPeriodEnd, sub.LastPaymentAmount,
	)
	if err != nil {
		return fmt.Errorf("update business subscription: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrBusinessNotFound
	}
	return nil
}

func scanBusiness(row pgx.Row) (*entity.Business, error) {
	var (
		b                entity.Business
		customerID, plan *string
		status           string
		amount           decimal.NullDecimal
	)
	err := row.Scan(
		&b.ID, &b.Name, &b.OwnerID, &customerID, &status, &plan,
		&b.Subscription.CurrentPeriodEnd, &amount, &b.CreatedAt, &b.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	b.Subscription.CustomerID = derefString(customerID)
	b.Subscription.Status = entity.SubscriptionStatus(status)
	b.Subscription.Plan = entity.Plan(derefString(plan))
	if amount.Valid {
		d := amount.Decimal
		b.Subscription.LastPaymentAmount = &d
	}
	return &b, nil
}
