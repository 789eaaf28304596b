package mailer

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/wneessen/go-mail"
	"golang.org/x/net/idna"
)

// Settings configures the SMTP dispatcher.
type Settings struct {
	Host          string
	Port          int
	User          string
	Password      string
	SenderName    string
	SenderCompany string
}

// Mailer sends plain-text outreach mail over SMTP. Transport failures are
// returned as errors and never escalate past this boundary; the caller
// decides whether to skip or re-run.
type Mailer struct {
	client        *mail.Client
	from          string
	senderName    string
	senderCompany string
}

// New dials nothing yet; it only validates settings and prepares the client.
func New(cfg Settings) (*Mailer, error) {
	if cfg.Host == "" || cfg.User == "" {
		return nil, errors.New("smtp host and user are required")
	}

	client, err := mail.NewClient(cfg.Host,
		mail.WithPort(cfg.Port),
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(cfg.User),
		mail.WithPassword(cfg.Password),
		mail.WithTLSPolicy(mail.TLSOpportunistic),
	)
	if err != nil {
		return nil, fmt.Errorf("create smtp client: %w", err)
	}

	return &Mailer{
		client:        client,
		from:          cfg.User,
		senderName:    cfg.SenderName,
		senderCompany: cfg.SenderCompany,
	}, nil
}

// Send delivers one message with the standard signature appended.
func (m *Mailer) Send(ctx context.Context, to, subject, body string) error {
	msg := mail.NewMsg()
	if err := msg.From(m.from); err != nil {
		return fmt.Errorf("set from address: %w", err)
	}
	if err := msg.To(to); err != nil {
		return fmt.Errorf("set to address: %w", err)
	}
	msg.Subject(subject)
	msg.SetBodyString(mail.TypeTextPlain, m.BuildBody(body))

	if err := m.client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("send mail: %w", err)
	}
	return nil
}

// BuildBody appends the fixed signature block to the generated body.
func (m *Mailer) BuildBody(body string) string {
	return fmt.Sprintf(`%s

---
Mit freundlichen Grüßen,

%s
%s - IT-Dienstleistungen
Berlin

Web: https://%s
Telefon: [Ihre Telefonnummer]

Falls Sie keine weiteren Informationen wünschen,
antworten Sie einfach mit "Abmelden".
`, body, m.senderName, m.senderCompany, m.senderCompany)
}

// DeriveRecipient guesses a contact mailbox from the lead's website as
// info@<host>. The host keeps its www prefix; internationalised domains are
// punycoded. This is a heuristic, not a verified mailbox.
func DeriveRecipient(website string) (string, error) {
	trimmed := strings.TrimSpace(website)
	trimmed = strings.TrimPrefix(trimmed, "https://")
	trimmed = strings.TrimPrefix(trimmed, "http://")

	host := strings.SplitN(trimmed, "/", 2)[0]
	if idx := strings.IndexByte(host, ':'); idx >= 0 {
		host = host[:idx]
	}
	host = strings.ToLower(strings.TrimSpace(host))
	if host == "" {
		return "", fmt.Errorf("cannot derive recipient from website %q", website)
	}

	ascii, err := idna.Lookup.ToASCII(host)
	if err != nil {
		return "", fmt.Errorf("punycode host %q: %w", host, err)
	}

	return "info@" + ascii, nil
}
