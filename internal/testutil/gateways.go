package testutil

import (
	"context"
	"fmt"
	"sync"

	"github.com/jhoicas/autoplanner-api/internal/application/ports"
	"github.com/jhoicas/autoplanner-api/internal/domain"
	"github.com/jhoicas/autoplanner-api/internal/domain/entity"
)

var (
	_ ports.BillingGateway  = (*FakeBilling)(nil)
	_ ports.Notifier        = (*FakeNotifier)(nil)
	_ ports.IDTokenVerifier = (*FakeVerifier)(nil)
)

// ValidSignature firma que FakeBilling acepta en ParseWebhook.
const ValidSignature = "t=1,v1=valid"

// FakeBilling gateway de facturación en memoria.
type FakeBilling struct {
	mu        sync.Mutex
	seq       int
	Customers map[string]string // id → email
	Deleted   []string
	Sessions  []ports.CheckoutSession

	// Plans plan por subscription id; ausente → PlanFree.
	Plans map[string]entity.Plan
	// Events evento devuelto por ParseWebhook según el payload recibido.
	Events map[string]entity.BillingEvent

	CreateCustomerErr error
	DeleteCustomerErr error
	CheckoutErr       error
	ResolvePlanErr    error
}

// NewFakeBilling gateway vacío.
func NewFakeBilling() *FakeBilling {
	return &FakeBilling{
		Customers: make(map[string]string),
		Plans:     make(map[string]entity.Plan),
		Events:    make(map[string]entity.BillingEvent),
	}
}

func (f *FakeBilling) CreateCustomer(_ context.Context, email, _ string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.CreateCustomerErr != nil {
		return "", f.CreateCustomerErr
	}
	f.seq++
	id := fmt.Sprintf("cus_test_%d", f.seq)
	f.Customers[id] = email
	return id, nil
}

func (f *FakeBilling) DeleteCustomer(_ context.Context, customerID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.DeleteCustomerErr != nil {
		return f.DeleteCustomerErr
	}
	delete(f.Customers, customerID)
	f.Deleted = append(f.Deleted, customerID)
	return nil
}

func (f *FakeBilling) CreateCheckoutSession(_ context.Context, in ports.CheckoutSession) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.CheckoutErr != nil {
		return "", f.CheckoutErr
	}
	f.Sessions = append(f.Sessions, in)
	return "https://checkout.test/" + in.CustomerID + "/" + in.PriceID, nil
}

func (f *FakeBilling) ParseWebhook(payload []byte, signatureHeader, secret string) (entity.BillingEvent, error) {
	if secret == "" || signatureHeader != ValidSignature {
		return nil, domain.ErrInvalidSignature
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if ev, ok := f.Events[string(payload)]; ok {
		return ev, nil
	}
	return entity.UnhandledEvent{EventMeta: entity.EventMeta{ID: "evt_unknown", Type: "unknown"}}, nil
}

func (f *FakeBilling) ResolvePlan(_ context.Context, subscriptionID string) (entity.Plan, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.ResolvePlanErr != nil {
		return entity.PlanFree, f.ResolvePlanErr
	}
	if p, ok := f.Plans[subscriptionID]; ok {
		return p, nil
	}
	return entity.PlanFree, nil
}

// CustomerCount clientes vivos.
func (f *FakeBilling) CustomerCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.Customers)
}

// SentEmail email registrado por FakeNotifier.
type SentEmail struct {
	Kind  string // verification, password_reset, employee_invite
	To    string
	Name  string
	Token string
}

// FakeNotifier registra los envíos en lugar de despacharlos.
type FakeNotifier struct {
	mu   sync.Mutex
	Sent []SentEmail
}

func (n *FakeNotifier) record(e SentEmail) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.Sent = append(n.Sent, e)
}

func (n *FakeNotifier) SendVerificationEmail(_ context.Context, to, name, token string) {
	n.record(SentEmail{Kind: "verification", To: to, Name: name, Token: token})
}

func (n *FakeNotifier) SendPasswordReset(_ context.Context, to, name, token string) {
	n.record(SentEmail{Kind: "password_reset", To: to, Name: name, Token: token})
}

func (n *FakeNotifier) SendEmployeeInvite(_ context.Context, to, inviterName, _ string, token string) {
	n.record(SentEmail{Kind: "employee_invite", To: to, Name: inviterName, Token: token})
}

// Last último email del tipo indicado.
func (n *FakeNotifier) Last(kind string) (SentEmail, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	for i := len(n.Sent) - 1; i >= 0; i-- {
		if n.Sent[i].Kind == kind {
			return n.Sent[i], true
		}
	}
	return SentEmail{}, false
}

// FakeVerifier resuelve ID tokens desde un mapa fijo.
type FakeVerifier struct {
	Profiles map[string]*entity.OAuthProfile
}

func (v *FakeVerifier) VerifyIDToken(_ context.Context, raw string) (*entity.OAuthProfile, error) {
	p, ok := v.Profiles[raw]
	if !ok {
		return nil, domain.ErrUnauthorized
	}
	out := *p
	return &out, nil
}
