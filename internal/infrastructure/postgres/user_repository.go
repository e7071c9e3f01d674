package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/autoplanner-api/internal/domain"
	"github.com/jhoicas/autoplanner-api/internal/domain/entity"
	"github.com/jhoicas/autoplanner-api/internal/domain/repository"
)

var _ repository.UserRepository = (*UserRepo)(nil)

// repairGracePeriod los usuarios sin negocio más nuevos que esto pueden estar aún en pleno alta.
const repairGracePeriod = 10 * time.Minute

const userColumns = `
	id, name, email, phone_number, image, password_hash, email_verified,
	verification_token_hash, verification_expires_at,
	password_reset_token_hash, password_reset_expires_at,
	dashboard_access, subscription_customer_id, subscription_status, subscription_plan,
	business_id, provisioning_incomplete, created_at, updated_at`

// UserRepo implementación del puerto UserRepository sobre PostgreSQL (usable con pool o tx).
type UserRepo struct {
	q         Querier
	opTimeout time.Duration
}

// NewUserRepository construye el adaptador. Pasar pool o tx (Querier).
func NewUserRepository(q Querier, opTimeout time.Duration) *UserRepo {
	return &UserRepo{q: q, opTimeout: opTimeout}
}

// Create inserta el usuario. Un email repetido (sin importar mayúsculas) devuelve AlreadyExists;
// el índice único resuelve también la carrera entre dos altas concurrentes.
func (r *UserRepo) Create(ctx context.Context, u *entity.User) (entity.CreateOutcome, error) {
	ctx, cancel := withTimeout(ctx, r.opTimeout)
	defer cancel()

	query := `
		INSERT INTO users (id, name, email, phone_number, image, password_hash, email_verified,
			verification_token_hash, verification_expires_at, dashboard_access,
			subscription_customer_id, subscription_status, subscription_plan,
			provisioning_incomplete, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		ON CONFLICT ((lower(email))) DO NOTHING`
	tag, err := r.q.Exec(ctx, query,
		u.ID, u.Name, u.Email, u.PhoneNumber, u.Image, u.PasswordHash, u.EmailVerified,
		nullString(u.VerificationTokenDigest), u.VerificationExpiresAt, u.DashboardAccess,
		nullString(u.Subscription.CustomerID), statusOrDefault(u.Subscription.Status), nullString(string(u.Subscription.Plan)),
		u.ProvisioningIncomplete, u.CreatedAt, u.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return entity.AlreadyExists, nil
		}
		return 0, fmt.Errorf("insert user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return entity.AlreadyExists, nil
	}
	return entity.Created, nil
}

// GetByID obtiene un usuario por ID. (nil, nil) si no existe.
func (r *UserRepo) GetByID(ctx context.Context, id string) (*entity.User, error) {
	return r.getOne(ctx, "get user by id", `SELECT`+userColumns+` FROM users WHERE id = $1`, id)
}

// GetByEmail búsqueda case-insensitive, alineada con el índice único.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*entity.User, error) {
	return r.getOne(ctx, "get user by email", `SELECT`+userColumns+` FROM users WHERE lower(email) = lower($1)`, email)
}

// GetByCustomerID obtiene el dueño de un cliente de facturación.
func (r *UserRepo) GetByCustomerID(ctx context.Context, customerID string) (*entity.User, error) {
	if customerID == "" {
		return nil, nil
	}
	return r.getOne(ctx, "get user by customer",
		`SELECT`+userColumns+` FROM users WHERE subscription_customer_id = $1 ORDER BY created_at LIMIT 1`, customerID)
}

func (r *UserRepo) getOne(ctx context.Context, op, query string, arg any) (*entity.User, error) {
	ctx, cancel := withTimeout(ctx, r.opTimeout)
	defer cancel()

	u, err := scanUser(r.q.QueryRow(ctx, query, arg))
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return u, nil
}

// Update aplica un patch parcial; los campos nil no se tocan.
func (r *UserRepo) Update(ctx context.Context, id string, p entity.UserPatch) error {
	sets, args := userPatchSQL(p)
	args = append(args, id)
	query := fmt.Sprintf(`UPDATE users SET %s WHERE id = $%d`, strings.Join(sets, ", "), len(args))

	ctx, cancel := withTimeout(ctx, r.opTimeout)
	defer cancel()
	tag, err := r.q.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

// userPatchSQL arma las asignaciones del UPDATE. Siempre incluye updated_at.
func userPatchSQL(p entity.UserPatch) ([]string, []any) {
	var (
		sets []string
		args []any
	)
	set := func(col string, v any) {
		args = append(args, v)
		sets = append(sets, fmt.Sprintf("%s = $%d", col, len(args)))
	}
	if p.Name != nil {
		set("name", *p.Name)
	}
	if p.Image != nil {
		set("image", *p.Image)
	}
	if p.PasswordHash != nil {
		set("password_hash", *p.PasswordHash)
	}
	if p.EmailVerified != nil {
		set("email_verified", *p.EmailVerified)
	}
	if p.Verification != nil {
		set("verification_token_hash", p.Verification.Digest)
		set("verification_expires_at", p.Verification.ExpiresAt)
	}
	if p.PasswordReset != nil {
		set("password_reset_token_hash", p.PasswordReset.Digest)
		set("password_reset_expires_at", p.PasswordReset.ExpiresAt)
	}
	if p.DashboardAccess != nil {
		set("dashboard_access", *p.DashboardAccess)
	}
	if p.Subscription != nil {
		set("subscription_customer_id", nullString(p.Subscription.CustomerID))
		set("subscription_status", statusOrDefault(p.Subscription.Status))
		set("subscription_plan", nullString(string(p.Subscription.Plan)))
	}
	if p.ProvisioningIncomplete != nil {
		set("provisioning_incomplete", *p.ProvisioningIncomplete)
	}
	sets = append(sets, "updated_at = now()")
	return sets, args
}

// LinkBusiness vincula negocio y cliente de facturación y limpia la marca de reparación.
func (r *UserRepo) LinkBusiness(ctx context.Context, userID, businessID, customerID string) error {
	ctx, cancel := withTimeout(ctx, r.opTimeout)
	defer cancel()

	tag, err := r.q.Exec(ctx, `
		UPDATE users
		SET business_id = $2, subscription_customer_id = $3, provisioning_incomplete = FALSE, updated_at = now()
		WHERE id = $1`, userID, businessID, customerID)
	if err != nil {
		return fmt.Errorf("link business: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

// ConsumeVerificationToken marca el email como verificado y borra el token en un único UPDATE
// condicionado a digest + vigencia: dos consumos concurrentes no pueden ganar ambos.
func (r *UserRepo) ConsumeVerificationToken(ctx context.Context, digest string, now time.Time) (*entity.User, error) {
	return r.consume(ctx, "consume verification token", `
		UPDATE users
		SET verification_token_hash = NULL, verification_expires_at = NULL,
			email_verified = TRUE, updated_at = now()
		WHERE verification_token_hash = $1 AND verification_expires_at > $2
		RETURNING`+userColumns, digest, now)
}

// ConsumePasswordResetToken reemplaza la contraseña y borra el token en la misma sentencia.
func (r *UserRepo) ConsumePasswordResetToken(ctx context.Context, digest string, now time.Time, passwordHash string) (*entity.User, error) {
	return r.consume(ctx, "consume password reset token", `
		UPDATE users
		SET password_reset_token_hash = NULL, password_reset_expires_at = NULL,
			password_hash = $3, updated_at = now()
		WHERE password_reset_token_hash = $1 AND password_reset_expires_at > $2
		RETURNING`+userColumns, digest, now, passwordHash)
}

func (r *UserRepo) consume(ctx context.Context, op, query string, args ...any) (*entity.User, error) {
	if args[0] == "" {
		return nil, domain.ErrInvalidToken
	}
	ctx, cancel := withTimeout(ctx, r.opTimeout)
	defer cancel()

	u, err := scanUser(r.q.QueryRow(ctx, query, args...))
	if err != nil {
		if isNoRows(err) {
			return nil, domain.ErrInvalidToken
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return u, nil
}

// ListIncompleteProvisioning usuarios marcados, o sin negocio pasado el período de gracia.
func (r *UserRepo) ListIncompleteProvisioning(ctx context.Context, limit int) ([]*entity.User, error) {
	ctx, cancel := withTimeout(ctx, r.opTimeout)
	defer cancel()

	rows, err := r.q.Query(ctx, `
		SELECT`+userColumns+`
		FROM users
		WHERE provisioning_incomplete OR (business_id IS NULL AND created_at < $1)
		ORDER BY created_at
		LIMIT $2`, time.Now().Add(-repairGracePeriod), limit)
	if err != nil {
		return nil, fmt.Errorf("list incomplete users: %w", err)
	}
	defer rows.Close()

	var list []*entity.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		list = append(list, u)
	}
	return list, rows.Err()
}

// Delete elimina un usuario (compensación del alta). El negocio cae por ON DELETE CASCADE.
func (r *UserRepo) Delete(ctx context.Context, id string) error {
	ctx, cancel := withTimeout(ctx, r.opTimeout)
	defer cancel()

	if _, err := r.q.Exec(ctx, `DELETE FROM users WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	return nil
}

func scanUser(row pgx.Row) (*entity.User, error) {
	var (
		u                          entity.User
		verification, reset        *string
		customerID, plan, business *string
		status                     string
	)
	err := row.Scan(
		&u.ID, &u.Name, &u.Email, &u.PhoneNumber, &u.Image, &u.PasswordHash, &u.EmailVerified,
		&verification, &u.VerificationExpiresAt,
		&reset, &u.PasswordResetExpiresAt,
		&u.DashboardAccess, &customerID, &status, &plan,
		&business, &u.ProvisioningIncomplete, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	u.VerificationTokenDigest = derefString(verification)
	u.PasswordResetTokenDigest = derefString(reset)
	u.Subscription = entity.UserSubscription{
		CustomerID: derefString(customerID),
		Status:     entity.SubscriptionStatus(status),
		Plan:       entity.Plan(derefString(plan)),
	}
	u.BusinessID = derefString(business)
	return &u, nil
}

func statusOrDefault(s entity.SubscriptionStatus) string {
	if s == "" {
		return string(entity.StatusUnsubscribed)
	}
	return string(s)
}
