package repository

import (
	"context"

	"github.com/jhoicas/autoplanner-api/internal/domain/entity"
)

// BusinessRepository define el puerto de persistencia para Business (DIP).
// La implementación vive en infrastructure.
type BusinessRepository interface {
	Create(ctx context.Context, business *entity.Business) error
	GetByID(ctx context.Context, id string) (*entity.Business, error)
	GetByOwner(ctx context.Context, ownerID string) (*entity.Business, error)
	// UpdateSubscription asigna (no incrementa) el snapshot de facturación.
	UpdateSubscription(ctx context.Context, id string, sub entity.BusinessSubscription) error
}

// AccountTxRunner ejecuta fn dentro de una transacción con repos de cuentas atados a la tx.
type AccountTxRunner interface {
	Run(ctx context.Context, fn func(users UserRepository, businesses BusinessRepository) error) error
}
