package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/autoplanner-api/internal/domain"
	"github.com/jhoicas/autoplanner-api/internal/domain/entity"
	"github.com/jhoicas/autoplanner-api/internal/domain/repository"
)

// ─────────────────────────────────────────────────────────────────────────────
// Helpers
// ─────────────────────────────────────────────────────────────────────────────

var (
	insertUserSQL     = `(?s)INSERT INTO users .*ON CONFLICT \(\(lower\(email\)\)\) DO NOTHING`
	consumeVerifySQL  = `(?s)UPDATE users\s+SET verification_token_hash = NULL.*WHERE verification_token_hash = \$1 AND verification_expires_at > \$2\s+RETURNING`
	consumeResetSQL   = `(?s)UPDATE users\s+SET password_reset_token_hash = NULL.*password_hash = \$3.*WHERE password_reset_token_hash = \$1 AND password_reset_expires_at > \$2\s+RETURNING`
	byCustomerSQL     = `(?s)SELECT.*FROM users WHERE subscription_customer_id = \$1 ORDER BY created_at LIMIT 1`
	linkBusinessSQL   = `(?s)UPDATE users\s+SET business_id = \$2`
	insertBusinessSQL = `(?s)INSERT INTO businesses`
)

// anyArgs devuelve n comodines para expectativas cuyos valores no importan al test.
func anyArgs(n int) []interface{} {
	args := make([]interface{}, n)
	for i := range args {
		args[i] = pgxmock.AnyArg()
	}
	return args
}

func newMockPool(t *testing.T) pgxmock.PgxPoolIface {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return mock
}

var userColumnNames = []string{
	"id", "name", "email", "phone_number", "image", "password_hash", "email_verified",
	"verification_token_hash", "verification_expires_at",
	"password_reset_token_hash", "password_reset_expires_at",
	"dashboard_access", "subscription_customer_id", "subscription_status", "subscription_plan",
	"business_id", "provisioning_incomplete", "created_at", "updated_at",
}

// userRows fila con los tipos que espera scanUser (punteros tipados para columnas NULL).
func userRows(id, customerID, plan, businessID string, verified bool) *pgxmock.Rows {
	created := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	return pgxmock.NewRows(userColumnNames).AddRow(
		id, "Jane", "jane@x.com", "", "", "$2a$hash", verified,
		(*string)(nil), (*time.Time)(nil),
		(*string)(nil), (*time.Time)(nil),
		true, nullString(customerID), "active", nullString(plan),
		nullString(businessID), false, created, created,
	)
}

func newUser() *entity.User {
	now := time.Now().UTC()
	return &entity.User{ID: "u-1", Name: "Jane", Email: "jane@x.com", CreatedAt: now, UpdatedAt: now}
}

// ─────────────────────────────────────────────────────────────────────────────
// UserRepo.Create
// ─────────────────────────────────────────────────────────────────────────────

func TestUserRepoCreate_Insertado(t *testing.T) {
	mock := newMockPool(t)
	mock.ExpectExec(insertUserSQL).WithArgs(anyArgs(16)...).WillReturnResult(pgxmock.NewResult("INSERT", 1))

	out, err := NewUserRepository(mock, time.Second).Create(context.Background(), newUser())
	require.NoError(t, err)
	assert.Equal(t, entity.Created, out)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepoCreate_ConflictoSinFilas_EsAlreadyExists(t *testing.T) {
	mock := newMockPool(t)
	mock.ExpectExec(insertUserSQL).WithArgs(anyArgs(16)...).WillReturnResult(pgxmock.NewResult("INSERT", 0))

	out, err := NewUserRepository(mock, time.Second).Create(context.Background(), newUser())
	require.NoError(t, err)
	assert.Equal(t, entity.AlreadyExists, out)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepoCreate_UniqueViolation_EsAlreadyExists(t *testing.T) {
	mock := newMockPool(t)
	mock.ExpectExec(insertUserSQL).WithArgs(anyArgs(16)...).WillReturnError(&pgconn.PgError{Code: "23505"})

	out, err := NewUserRepository(mock, time.Second).Create(context.Background(), newUser())
	require.NoError(t, err)
	assert.Equal(t, entity.AlreadyExists, out)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepoCreate_OtroError_SePropaga(t *testing.T) {
	mock := newMockPool(t)
	mock.ExpectExec(insertUserSQL).WithArgs(anyArgs(16)...).WillReturnError(errors.New("conexión perdida"))

	_, err := NewUserRepository(mock, time.Second).Create(context.Background(), newUser())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "insert user")
	assert.Contains(t, err.Error(), "conexión perdida")
}

// ─────────────────────────────────────────────────────────────────────────────
// Consumo de tokens
// ─────────────────────────────────────────────────────────────────────────────

func TestConsumeVerificationToken_UnSoloUso(t *testing.T) {
	mock := newMockPool(t)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	mock.ExpectQuery(consumeVerifySQL).WithArgs("digest", now).
		WillReturnRows(userRows("u-1", "", "", "", true))
	mock.ExpectQuery(consumeVerifySQL).WithArgs("digest", now).
		WillReturnError(pgx.ErrNoRows)

	repo := NewUserRepository(mock, time.Second)
	u, err := repo.ConsumeVerificationToken(context.Background(), "digest", now)
	require.NoError(t, err)
	assert.Equal(t, "u-1", u.ID)
	assert.True(t, u.EmailVerified)

	_, err = repo.ConsumeVerificationToken(context.Background(), "digest", now)
	assert.ErrorIs(t, err, domain.ErrInvalidToken)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// Un token vencido no satisface expires_at > now: la sentencia no devuelve filas.
func TestConsumePasswordResetToken_Expirado(t *testing.T) {
	mock := newMockPool(t)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	mock.ExpectQuery(consumeResetSQL).WithArgs("digest", now, "$2a$nuevo").
		WillReturnError(pgx.ErrNoRows)

	u, err := NewUserRepository(mock, time.Second).ConsumePasswordResetToken(context.Background(), "digest", now, "$2a$nuevo")
	assert.Nil(t, u)
	assert.ErrorIs(t, err, domain.ErrInvalidToken)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestConsume_DigestVacio_NoConsulta(t *testing.T) {
	mock := newMockPool(t)

	_, err := NewUserRepository(mock, time.Second).ConsumeVerificationToken(context.Background(), "", time.Now())
	assert.ErrorIs(t, err, domain.ErrInvalidToken)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestConsume_ErrorDeDB_NoEsTokenInvalido(t *testing.T) {
	mock := newMockPool(t)
	mock.ExpectQuery(consumeVerifySQL).WillReturnError(errors.New("timeout"))

	_, err := NewUserRepository(mock, time.Second).ConsumeVerificationToken(context.Background(), "digest", time.Now())
	require.Error(t, err)
	assert.NotErrorIs(t, err, domain.ErrInvalidToken)
}

// ─────────────────────────────────────────────────────────────────────────────
// UserRepo.GetByCustomerID
// ─────────────────────────────────────────────────────────────────────────────

func TestGetByCustomerID_Encontrado(t *testing.T) {
	mock := newMockPool(t)
	mock.ExpectQuery(byCustomerSQL).WithArgs("cus_1").
		WillReturnRows(userRows("u-1", "cus_1", "pro", "b-1", true))

	u, err := NewUserRepository(mock, time.Second).GetByCustomerID(context.Background(), "cus_1")
	require.NoError(t, err)
	require.NotNil(t, u)
	assert.Equal(t, "cus_1", u.Subscription.CustomerID)
	assert.Equal(t, entity.PlanPro, u.Subscription.Plan)
	assert.Equal(t, entity.StatusActive, u.Subscription.Status)
	assert.Equal(t, "b-1", u.BusinessID)
	assert.Empty(t, u.VerificationTokenDigest)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetByCustomerID_SinFilas_NilNil(t *testing.T) {
	mock := newMockPool(t)
	mock.ExpectQuery(byCustomerSQL).WithArgs("cus_x").WillReturnError(pgx.ErrNoRows)

	u, err := NewUserRepository(mock, time.Second).GetByCustomerID(context.Background(), "cus_x")
	assert.NoError(t, err)
	assert.Nil(t, u)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetByCustomerID_Vacio_NoConsulta(t *testing.T) {
	mock := newMockPool(t)

	u, err := NewUserRepository(mock, time.Second).GetByCustomerID(context.Background(), "")
	assert.NoError(t, err)
	assert.Nil(t, u)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// ─────────────────────────────────────────────────────────────────────────────
// BusinessRepo.Create
// ─────────────────────────────────────────────────────────────────────────────

func TestBusinessRepoCreate_DuenoRepetido_EsConflicto(t *testing.T) {
	mock := newMockPool(t)
	mock.ExpectExec(insertBusinessSQL).WithArgs(anyArgs(10)...).WillReturnError(&pgconn.PgError{Code: "23505"})

	err := NewBusinessRepository(mock, time.Second).Create(context.Background(), &entity.Business{ID: "b-1", OwnerID: "u-1"})
	assert.ErrorIs(t, err, domain.ErrConflict)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// ─────────────────────────────────────────────────────────────────────────────
// TxRunner
// ─────────────────────────────────────────────────────────────────────────────

func TestTxRunner_ErrorEnCallback_HaceRollback(t *testing.T) {
	mock := newMockPool(t)
	mock.ExpectBegin()
	mock.ExpectExec(linkBusinessSQL).WithArgs("u-1", "b-1", "cus_1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectRollback()

	boom := errors.New("falló el segundo paso")
	err := NewTxRunner(mock, time.Second).Run(context.Background(), func(users repository.UserRepository, _ repository.BusinessRepository) error {
		if err := users.LinkBusiness(context.Background(), "u-1", "b-1", "cus_1"); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTxRunner_Exito_HaceCommit(t *testing.T) {
	mock := newMockPool(t)
	mock.ExpectBegin()
	mock.ExpectExec(linkBusinessSQL).WithArgs("u-1", "b-1", "cus_1").WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectCommit()

	err := NewTxRunner(mock, time.Second).Run(context.Background(), func(users repository.UserRepository, _ repository.BusinessRepository) error {
		return users.LinkBusiness(context.Background(), "u-1", "b-1", "cus_1")
	})
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTxRunner_FalloAlIniciar(t *testing.T) {
	mock := newMockPool(t)
	mock.ExpectBegin().WillReturnError(errors.New("pool agotado"))

	called := false
	err := NewTxRunner(mock, time.Second).Run(context.Background(), func(repository.UserRepository, repository.BusinessRepository) error {
		called = true
		return nil
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "begin transaction")
	assert.False(t, called)
}
