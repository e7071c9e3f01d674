package stripe

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/autoplanner-api/internal/application/ports"
	"github.com/jhoicas/autoplanner-api/internal/domain"
	"github.com/jhoicas/autoplanner-api/internal/domain/entity"
	"github.com/jhoicas/autoplanner-api/pkg/config"
)

const testSecret = "whsec_test_secret"

var testPlans = config.PlanConfig{
	FreePriceID:       "price_free",
	BasicPriceID:      "price_basic",
	ProPriceID:        "price_pro",
	EnterprisePriceID: "price_ent",
}

// sign arma un header Stripe-Signature válido (esquema v1: HMAC-SHA256 de "t.payload").
func sign(payload []byte, secret string, ts time.Time) string {
	mac := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(mac, "%d.", ts.Unix())
	mac.Write(payload)
	return fmt.Sprintf("t=%d,v1=%s", ts.Unix(), hex.EncodeToString(mac.Sum(nil)))
}

func newTestGateway(t *testing.T, h http.Handler) *Gateway {
	t.Helper()
	opts := Options{SecretKey: "sk_test_123", Timeout: 5 * time.Second, Plans: testPlans}
	if h != nil {
		srv := httptest.NewServer(h)
		t.Cleanup(srv.Close)
		opts.APIURL = srv.URL
	}
	return NewGateway(opts, nil)
}

// ─────────────────────────────────────────────────────────────────────────────
// Webhooks
// ─────────────────────────────────────────────────────────────────────────────

func TestParseWebhook_CheckoutCompleted(t *testing.T) {
	g := newTestGateway(t, nil)
	payload := []byte(`{"id":"evt_1","object":"event","type":"checkout.session.completed",
		"data":{"object":{"id":"cs_1","object":"checkout.session","customer":"cus_1",
		"subscription":"sub_1","status":"complete","payment_status":"paid"}}}`)

	ev, err := g.ParseWebhook(payload, sign(payload, testSecret, time.Now()), testSecret)
	require.NoError(t, err)

	cc, ok := ev.(entity.CheckoutCompleted)
	require.True(t, ok, "tipo %T", ev)
	assert.Equal(t, "evt_1", cc.EventID())
	assert.Equal(t, "cus_1", cc.CustomerID)
	assert.Equal(t, "sub_1", cc.SubscriptionID)
	assert.Equal(t, "complete", cc.Status)
	assert.Equal(t, "paid", cc.PaymentStatus)
}

func TestParseWebhook_InvoicePagada(t *testing.T) {
	g := newTestGateway(t, nil)
	payload := []byte(`{"id":"evt_2","object":"event","type":"invoice.payment_succeeded",
		"data":{"object":{"id":"in_1","object":"invoice","customer":"cus_1","subscription":"sub_1",
		"amount_paid":2999,"currency":"usd",
		"lines":{"object":"list","data":[{"id":"il_1","object":"line_item","period":{"start":1767225600,"end":1769904000}}]}}}}`)

	ev, err := g.ParseWebhook(payload, sign(payload, testSecret, time.Now()), testSecret)
	require.NoError(t, err)

	paid, ok := ev.(entity.InvoicePaymentSucceeded)
	require.True(t, ok, "tipo %T", ev)
	assert.Equal(t, "cus_1", paid.CustomerID)
	assert.True(t, decimal.RequireFromString("29.99").Equal(paid.AmountPaid))
	require.NotNil(t, paid.PeriodEnd)
	assert.Equal(t, int64(1769904000), paid.PeriodEnd.Unix())
}

func TestParseWebhook_FalloYCancelacion(t *testing.T) {
	g := newTestGateway(t, nil)

	failed := []byte(`{"id":"evt_3","type":"invoice.payment_failed","data":{"object":{"id":"in_2",
		"customer":"cus_1","subscription":"sub_1","amount_due":500,"currency":"eur","attempt_count":2}}}`)
	ev, err := g.ParseWebhook(failed, sign(failed, testSecret, time.Now()), testSecret)
	require.NoError(t, err)
	f, ok := ev.(entity.InvoicePaymentFailed)
	require.True(t, ok)
	assert.Equal(t, int64(2), f.AttemptCount)
	assert.True(t, decimal.RequireFromString("5").Equal(f.AmountDue))

	deleted := []byte(`{"id":"evt_4","type":"customer.subscription.deleted","data":{"object":{"id":"sub_1",
		"object":"subscription","customer":"cus_1","canceled_at":1769904000}}}`)
	ev, err = g.ParseWebhook(deleted, sign(deleted, testSecret, time.Now()), testSecret)
	require.NoError(t, err)
	d, ok := ev.(entity.SubscriptionDeleted)
	require.True(t, ok)
	assert.Equal(t, "cus_1", d.CustomerID)
	require.NotNil(t, d.CanceledAt)
}

func TestParseWebhook_TipoDesconocido(t *testing.T) {
	g := newTestGateway(t, nil)
	payload := []byte(`{"id":"evt_5","type":"customer.created","data":{"object":{"id":"cus_9"}}}`)

	ev, err := g.ParseWebhook(payload, sign(payload, testSecret, time.Now()), testSecret)
	require.NoError(t, err)
	u, ok := ev.(entity.UnhandledEvent)
	require.True(t, ok)
	assert.Equal(t, "customer.created", u.Type)
}

func TestParseWebhook_FirmaInvalida(t *testing.T) {
	g := newTestGateway(t, nil)
	payload := []byte(`{"id":"evt_1","type":"checkout.session.completed","data":{"object":{}}}`)

	cases := map[string]struct{ header, secret string }{
		"otro secreto":   {sign(payload, "whsec_otro", time.Now()), testSecret},
		"sin header":     {"", testSecret},
		"sin secreto":    {sign(payload, testSecret, time.Now()), ""},
		"fuera de plazo": {sign(payload, testSecret, time.Now().Add(-time.Hour)), testSecret},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := g.ParseWebhook(payload, tc.header, tc.secret)
			assert.ErrorIs(t, err, domain.ErrInvalidSignature)
		})
	}

	tampered := append([]byte{}, payload...)
	header := sign(payload, testSecret, time.Now())
	tampered[len(tampered)-2] = ' '
	_, err := g.ParseWebhook(tampered, header, testSecret)
	assert.ErrorIs(t, err, domain.ErrInvalidSignature)
}

// ─────────────────────────────────────────────────────────────────────────────
// API
// ─────────────────────────────────────────────────────────────────────────────

func TestCreateCustomerYCheckout(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/customers", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "jane@x.com", r.PostForm.Get("email"))
		assert.Equal(t, "Jane Doe", r.PostForm.Get("name"))
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"id":"cus_123","object":"customer"}`)
	})
	mux.HandleFunc("/v1/checkout/sessions", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "cus_123", r.PostForm.Get("customer"))
		assert.Equal(t, "subscription", r.PostForm.Get("mode"))
		assert.Equal(t, "card", r.PostForm.Get("payment_method_types[0]"))
		assert.Equal(t, "price_pro", r.PostForm.Get("line_items[0][price]"))
		assert.Equal(t, "1", r.PostForm.Get("line_items[0][quantity]"))
		assert.Equal(t, "https://app.test/en/success-checkout", r.PostForm.Get("success_url"))
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"id":"cs_1","object":"checkout.session","url":"https://checkout.stripe.test/cs_1"}`)
	})
	g := newTestGateway(t, mux)
	ctx := context.Background()

	id, err := g.CreateCustomer(ctx, "jane@x.com", "Jane Doe")
	require.NoError(t, err)
	assert.Equal(t, "cus_123", id)

	url, err := g.CreateCheckoutSession(ctx, ports.CheckoutSession{
		CustomerID: id,
		PriceID:    "price_pro",
		SuccessURL: "https://app.test/en/success-checkout",
		CancelURL:  "https://app.test/en/cancel-checkout",
	})
	require.NoError(t, err)
	assert.Equal(t, "https://checkout.stripe.test/cs_1", url)
}

func TestDeleteCustomer(t *testing.T) {
	var called bool
	g := newTestGateway(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		assert.Equal(t, http.MethodDelete, r.Method)
		assert.Equal(t, "/v1/customers/cus_1", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"id":"cus_1","object":"customer","deleted":true}`)
	}))
	require.NoError(t, g.DeleteCustomer(context.Background(), "cus_1"))
	assert.True(t, called)
}

func TestResolvePlan(t *testing.T) {
	g := newTestGateway(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/v1/subscriptions/sub_pro":
			fmt.Fprint(w, `{"id":"sub_pro","object":"subscription","items":{"object":"list","data":[{"id":"si_1","price":{"id":"price_pro"}}]}}`)
		case "/v1/subscriptions/sub_legacy":
			fmt.Fprint(w, `{"id":"sub_legacy","object":"subscription","items":{"object":"list","data":[{"id":"si_2","price":{"id":"price_viejo"}}]}}`)
		default:
			w.WriteHeader(http.StatusNotFound)
			fmt.Fprint(w, `{"error":{"type":"invalid_request_error","message":"No such subscription"}}`)
		}
	}))
	ctx := context.Background()

	plan, err := g.ResolvePlan(ctx, "sub_pro")
	require.NoError(t, err)
	assert.Equal(t, entity.PlanPro, plan)

	plan, err = g.ResolvePlan(ctx, "sub_legacy")
	require.NoError(t, err)
	assert.Equal(t, entity.PlanFree, plan)

	plan, err = g.ResolvePlan(ctx, "sub_nope")
	assert.Error(t, err)
	assert.Equal(t, entity.PlanFree, plan)
}

func TestMinorUnits(t *testing.T) {
	assert.True(t, decimal.RequireFromString("12.50").Equal(MinorUnits(1250, "usd")))
	assert.True(t, decimal.NewFromInt(1250).Equal(MinorUnits(1250, "JPY")))
}
