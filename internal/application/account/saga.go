package account

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// compensationTimeout tope para deshacer pasos cuando el request original ya fue cancelado.
const compensationTimeout = 30 * time.Second

type compensation struct {
	name string
	fn   func(ctx context.Context) error
}

// saga acumula compensaciones y las ejecuta en orden inverso si el flujo falla.
type saga struct {
	steps []compensation
}

func (s *saga) add(name string, fn func(ctx context.Context) error) {
	s.steps = append(s.steps, compensation{name: name, fn: fn})
}

// rollback corre todas las compensaciones aunque alguna falle.
// Usa un contexto desacoplado: la cancelación del request no debe dejar pasos a medias.
func (s *saga) rollback(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), compensationTimeout)
	defer cancel()

	var errs []error
	for i := len(s.steps) - 1; i >= 0; i-- {
		step := s.steps[i]
		if err := step.fn(ctx); err != nil {
			errs = append(errs, fmt.Errorf("compensar %s: %w", step.name, err))
		}
	}
	s.steps = nil
	return errors.Join(errs...)
}
