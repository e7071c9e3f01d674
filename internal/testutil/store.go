// Package testutil dobles en memoria de los puertos de persistencia y gateways,
// con la misma semántica observable que las implementaciones reales.
package testutil

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/jhoicas/autoplanner-api/internal/domain"
	"github.com/jhoicas/autoplanner-api/internal/domain/entity"
	"github.com/jhoicas/autoplanner-api/internal/domain/repository"
)

var (
	_ repository.UserRepository     = (*UserRepo)(nil)
	_ repository.BusinessRepository = (*BusinessRepo)(nil)
	_ repository.AccountTxRunner    = (*Store)(nil)
)

// Store estado compartido por los repos en memoria. Implementa AccountTxRunner
// con snapshot y restauración ante error.
type Store struct {
	mu         sync.Mutex
	users      map[string]entity.User
	businesses map[string]entity.Business

	// Errores inyectables para simular fallos de infraestructura.
	CreateBusinessErr error
	LinkBusinessErr   error
	DeleteUserErr     error
	UpdateUserErr     error
}

// NewStore store vacío.
func NewStore() *Store {
	return &Store{
		users:      make(map[string]entity.User),
		businesses: make(map[string]entity.Business),
	}
}

// Users repo de usuarios sobre el store.
func (s *Store) Users() *UserRepo { return &UserRepo{s: s} }

// Businesses repo de negocios sobre el store.
func (s *Store) Businesses() *BusinessRepo { return &BusinessRepo{s: s} }

// Run ejecuta fn; si devuelve error, el store vuelve al estado previo.
func (s *Store) Run(ctx context.Context, fn func(users repository.UserRepository, businesses repository.BusinessRepository) error) error {
	s.mu.Lock()
	users := make(map[string]entity.User, len(s.users))
	for k, v := range s.users {
		users[k] = v
	}
	businesses := make(map[string]entity.Business, len(s.businesses))
	for k, v := range s.businesses {
		businesses[k] = v
	}
	s.mu.Unlock()

	if err := fn(s.Users(), s.Businesses()); err != nil {
		s.mu.Lock()
		s.users, s.businesses = users, businesses
		s.mu.Unlock()
		return err
	}
	return ctx.Err()
}

// UserCount cantidad de usuarios guardados.
func (s *Store) UserCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.users)
}

// BusinessCount cantidad de negocios guardados.
func (s *Store) BusinessCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.businesses)
}

// PutUser inserta o reemplaza un usuario sin validaciones (arrange de tests).
func (s *Store) PutUser(u *entity.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[u.ID] = *u
}

// PutBusiness inserta o reemplaza un negocio sin validaciones.
func (s *Store) PutBusiness(b *entity.Business) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.businesses[b.ID] = *b
}

// User copia del usuario id, o nil.
func (s *Store) User(id string) *entity.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return nil
	}
	return &u
}

// Business copia del negocio id, o nil.
func (s *Store) Business(id string) *entity.Business {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.businesses[id]
	if !ok {
		return nil
	}
	return &b
}

// ─────────────────────────────────────────────────────────────────────────────
// Usuarios
// ─────────────────────────────────────────────────────────────────────────────

// UserRepo implementa repository.UserRepository en memoria.
type UserRepo struct{ s *Store }

func (r *UserRepo) Create(_ context.Context, u *entity.User) (entity.CreateOutcome, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, existing := range r.s.users {
		if strings.EqualFold(existing.Email, u.Email) {
			return entity.AlreadyExists, nil
		}
	}
	r.s.users[u.ID] = *u
	return entity.Created, nil
}

func (r *UserRepo) GetByID(_ context.Context, id string) (*entity.User, error) {
	return r.find(func(u entity.User) bool { return u.ID == id }), nil
}

func (r *UserRepo) GetByEmail(_ context.Context, email string) (*entity.User, error) {
	return r.find(func(u entity.User) bool { return strings.EqualFold(u.Email, email) }), nil
}

func (r *UserRepo) GetByCustomerID(_ context.Context, customerID string) (*entity.User, error) {
	if customerID == "" {
		return nil, nil
	}
	return r.find(func(u entity.User) bool { return u.Subscription.CustomerID == customerID }), nil
}

func (r *UserRepo) find(match func(entity.User) bool) *entity.User {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, u := range r.s.users {
		if match(u) {
			out := u
			return &out
		}
	}
	return nil
}

func (r *UserRepo) Update(_ context.Context, id string, p entity.UserPatch) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.UpdateUserErr != nil {
		return r.s.UpdateUserErr
	}
	u, ok := r.s.users[id]
	if !ok {
		return domain.ErrUserNotFound
	}
	applyPatch(&u, p)
	r.s.users[id] = u
	return nil
}

func applyPatch(u *entity.User, p entity.UserPatch) {
	if p.Name != nil {
		u.Name = *p.Name
	}
	if p.Image != nil {
		u.Image = *p.Image
	}
	if p.PasswordHash != nil {
		u.PasswordHash = *p.PasswordHash
	}
	if p.EmailVerified != nil {
		u.EmailVerified = *p.EmailVerified
	}
	if p.Verification != nil {
		exp := p.Verification.ExpiresAt
		u.VerificationTokenDigest, u.VerificationExpiresAt = p.Verification.Digest, &exp
	}
	if p.PasswordReset != nil {
		exp := p.PasswordReset.ExpiresAt
		u.PasswordResetTokenDigest, u.PasswordResetExpiresAt = p.PasswordReset.Digest, &exp
	}
	if p.DashboardAccess != nil {
		u.DashboardAccess = *p.DashboardAccess
	}
	if p.Subscription != nil {
		u.Subscription = *p.Subscription
	}
	if p.ProvisioningIncomplete != nil {
		u.ProvisioningIncomplete = *p.ProvisioningIncomplete
	}
	u.UpdatedAt = time.Now()
}

func (r *UserRepo) LinkBusiness(_ context.Context, userID, businessID, customerID string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.LinkBusinessErr != nil {
		return r.s.LinkBusinessErr
	}
	u, ok := r.s.users[userID]
	if !ok {
		return domain.ErrUserNotFound
	}
	u.BusinessID = businessID
	u.Subscription.CustomerID = customerID
	u.ProvisioningIncomplete = false
	r.s.users[userID] = u
	return nil
}

func (r *UserRepo) ConsumeVerificationToken(_ context.Context, digest string, now time.Time) (*entity.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for id, u := range r.s.users {
		if digest == "" || u.VerificationTokenDigest != digest {
			continue
		}
		if u.VerificationExpiresAt == nil || !now.Before(*u.VerificationExpiresAt) {
			return nil, domain.ErrInvalidToken
		}
		u.VerificationTokenDigest, u.VerificationExpiresAt = "", nil
		u.EmailVerified = true
		r.s.users[id] = u
		out := u
		return &out, nil
	}
	return nil, domain.ErrInvalidToken
}

func (r *UserRepo) ConsumePasswordResetToken(_ context.Context, digest string, now time.Time, passwordHash string) (*entity.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for id, u := range r.s.users {
		if digest == "" || u.PasswordResetTokenDigest != digest {
			continue
		}
		if u.PasswordResetExpiresAt == nil || !now.Before(*u.PasswordResetExpiresAt) {
			return nil, domain.ErrInvalidToken
		}
		u.PasswordResetTokenDigest, u.PasswordResetExpiresAt = "", nil
		u.PasswordHash = passwordHash
		r.s.users[id] = u
		out := u
		return &out, nil
	}
	return nil, domain.ErrInvalidToken
}

func (r *UserRepo) ListIncompleteProvisioning(_ context.Context, limit int) ([]*entity.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*entity.User
	for _, u := range r.s.users {
		if u.ProvisioningIncomplete || u.BusinessID == "" {
			c := u
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *UserRepo) Delete(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.DeleteUserErr != nil {
		return r.s.DeleteUserErr
	}
	delete(r.s.users, id)
	for bid, b := range r.s.businesses {
		if b.OwnerID == id {
			delete(r.s.businesses, bid)
		}
	}
	return nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Negocios
// ─────────────────────────────────────────────────────────────────────────────

// BusinessRepo implementa repository.BusinessRepository en memoria.
type BusinessRepo struct{ s *Store }

func (r *BusinessRepo) Create(_ context.Context, b *entity.Business) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.CreateBusinessErr != nil {
		return r.s.CreateBusinessErr
	}
	for _, existing := range r.s.businesses {
		if existing.OwnerID == b.OwnerID {
			return errors.New("duplicate owner")
		}
	}
	r.s.businesses[b.ID] = *b
	return nil
}

func (r *BusinessRepo) GetByID(_ context.Context, id string) (*entity.Business, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	b, ok := r.s.businesses[id]
	if !ok {
		return nil, nil
	}
	return &b, nil
}

func (r *BusinessRepo) GetByOwner(_ context.Context, ownerID string) (*entity.Business, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, b := range r.s.businesses {
		if b.OwnerID == ownerID {
			out := b
			return &out, nil
		}
	}
	return nil, nil
}

func (r *BusinessRepo) UpdateSubscription(_ context.Context, id string, sub entity.BusinessSubscription) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	b, ok := r.s.businesses[id]
	if !ok {
		return domain.ErrBusinessNotFound
	}
	b.Subscription = sub
	r.s.businesses[id] = b
	return nil
}
