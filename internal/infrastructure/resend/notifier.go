// Package resend adaptador del puerto Notifier sobre la API de Resend.
package resend

import (
	"bytes"
	"context"
	"embed"
	"html/template"
	"net/url"
	"strings"

	"github.com/resend/resend-go/v2"

	"github.com/jhoicas/autoplanner-api/internal/application/ports"
	"github.com/jhoicas/autoplanner-api/pkg/config"
	"github.com/jhoicas/autoplanner-api/pkg/logger"
)

var _ ports.Notifier = (*Notifier)(nil)

//go:embed templates/*.html
var templatesFS embed.FS

var templates = template.Must(template.ParseFS(templatesFS, "templates/*.html"))

// Asuntos de los emails transaccionales.
const (
	SubjectVerification  = "Verify Your Email Address - AutoPlanner"
	SubjectPasswordReset = "Reset Your Password - AutoPlanner"
	SubjectInvite        = "Welcome to AutoPlanner - Set your password"
)

// sender lo que se usa de resend.EmailsSvc.
type sender interface {
	SendWithContext(ctx context.Context, params *resend.SendEmailRequest) (*resend.SendEmailResponse, error)
}

// Notifier envía emails con Resend. Sin API key queda en modo no-op.
// Ningún método devuelve error: los fallos se registran y el flujo sigue.
type Notifier struct {
	emails  sender
	from    string
	baseURL string
	log     *logger.Logger
}

// NewNotifier construye el notifier. baseURL es la URL pública del front.
func NewNotifier(cfg config.EmailConfig, baseURL string, log *logger.Logger) *Notifier {
	if log == nil {
		log = logger.Nop()
	}
	n := &Notifier{
		from:    cfg.From,
		baseURL: strings.TrimRight(baseURL, "/"),
		log:     log.Component("email"),
	}
	if cfg.ResendAPIKey == "" {
		n.log.Warn().Msg("RESEND_API_KEY no configurada: los emails no se enviarán")
		return n
	}
	n.emails = resend.NewClient(cfg.ResendAPIKey).Emails
	return n
}

type emailData struct {
	Subject  string
	Preview  string
	Name     string
	URL      string
	Inviter  string
	Business string
}

// SendVerificationEmail enlace {baseUrl}/verify-email?token=...
func (n *Notifier) SendVerificationEmail(ctx context.Context, to, recipientName, token string) {
	n.send(ctx, "verification", to, "verification.html", emailData{
		Subject: SubjectVerification,
		Preview: "Verify your email address to complete your registration",
		Name:    recipientName,
		URL:     n.link("/verify-email", token),
	})
}

// SendPasswordReset enlace {baseUrl}/reset-password?token=...
func (n *Notifier) SendPasswordReset(ctx context.Context, to, recipientName, token string) {
	n.send(ctx, "password_reset", to, "password_reset.html", emailData{
		Subject: SubjectPasswordReset,
		Preview: "Reset your AutoPlanner password",
		Name:    recipientName,
		URL:     n.link("/reset-password", token),
	})
}

// SendEmployeeInvite enlace {baseUrl}/employee-setup?token=...
func (n *Notifier) SendEmployeeInvite(ctx context.Context, to, inviterName, businessName, token string) {
	n.send(ctx, "employee_invite", to, "employee_invite.html", emailData{
		Subject:  SubjectInvite,
		Preview:  "Welcome to AutoPlanner - Set your password to get started",
		Inviter:  inviterName,
		Business: businessName,
		URL:      n.link("/employee-setup", token),
	})
}

func (n *Notifier) link(path, token string) string {
	return n.baseURL + path + "?token=" + url.QueryEscape(token)
}

func (n *Notifier) send(ctx context.Context, kind, to, tpl string, data emailData) {
	log := n.log.With().Str("kind", kind).Str("to", logger.MaskEmail(to)).Logger()
	if n.emails == nil {
		log.Warn().Msg("email omitido: proveedor no configurado")
		return
	}

	var body bytes.Buffer
	if err := templates.ExecuteTemplate(&body, tpl, data); err != nil {
		log.Error().Err(err).Msg("no se pudo renderizar el email")
		return
	}
	resp, err := n.emails.SendWithContext(ctx, &resend.SendEmailRequest{
		From:    n.from,
		To:      []string{to},
		Subject: data.Subject,
		Html:    body.String(),
	})
	if err != nil {
		log.Warn().Err(err).Msg("fallo al enviar email")
		return
	}
	log.Info().Str("email_id", resp.Id).Msg("email enviado")
}
