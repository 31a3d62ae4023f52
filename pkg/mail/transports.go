package mail

import (
	"context"
	"crypto/tls"
	"fmt"

	"autosend-backend/pkg/gmail"

	"go.uber.org/zap"
	"gopkg.in/gomail.v2"
)

// smtpTransport sends through an SMTP relay
type smtpTransport struct {
	dialer *gomail.Dialer
}

// NewSMTPTransport creates an SMTP transport for p
func NewSMTPTransport(p ProviderConfig, log *zap.SugaredLogger) (Transport, error) {
	if p.Host == "" {
		return nil, fmt.Errorf("smtp host is required")
	}
	port := p.Port
	if port == 0 {
		port = 587
	}
	log.Infow("Initializing SMTP transport", "host", p.Host, "port", port, "user", p.Username)

	d := gomail.NewDialer(p.Host, port, p.Username, p.Password)
	if p.InsecureSkipVerify {
		log.Warnw("InsecureSkipVerify is enabled for mail TLS connection", "host", p.Host)
		d.TLSConfig = &tls.Config{InsecureSkipVerify: true}
	}
	return &smtpTransport{dialer: d}, nil
}

func (t *smtpTransport) Name() string { return TransportSMTP }

// Send ignores ctx cancellation once dialing has started; gomail has no context support
func (t *smtpTransport) Send(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m := gomail.NewMessage()
	if msg.FromAddress != "" {
		m.SetAddressHeader("From", msg.FromAddress, msg.FromName)
	}
	m.SetAddressHeader("To", msg.To.Email, msg.To.Name)
	m.SetHeader("Subject", msg.Subject)
	m.SetBody("text/plain", msg.Body)

	return t.dialer.DialAndSend(m)
}

// gmailTransport sends through the Gmail API on behalf of an organization mailbox
type gmailTransport struct {
	svc          *gmail.Service
	refreshToken string
}

// NewGmailTransport creates a Gmail transport for p
func NewGmailTransport(p ProviderConfig, svc *gmail.Service) (Transport, error) {
	if svc == nil {
		return nil, fmt.Errorf("gmail service is not configured")
	}
	if p.RefreshToken == "" {
		return nil, fmt.Errorf("gmail transport requires a refresh token")
	}
	return &gmailTransport{svc: svc, refreshToken: p.RefreshToken}, nil
}

func (t *gmailTransport) Name() string { return TransportGmail }

func (t *gmailTransport) Send(ctx context.Context, msg Message) error {
	return t.svc.SendEmail(ctx, t.refreshToken, msg.FromName, msg.FromAddress, formatAddress(msg.To), msg.Subject, msg.Body)
}

// formatAddress renders a To header value, RFC 2047 encoding non-ASCII names
func formatAddress(r Recipient) string {
	return gomail.NewMessage().FormatAddress(r.Email, r.Name)
}

// DefaultTransportFactory builds SMTP or Gmail transports from provider configs
func DefaultTransportFactory(gmailSvc *gmail.Service, log *zap.SugaredLogger) TransportFactory {
	return func(p ProviderConfig) (Transport, error) {
		switch p.Transport {
		case TransportGmail:
			return NewGmailTransport(p, gmailSvc)
		case TransportSMTP, "":
			return NewSMTPTransport(p, log)
		default:
			return nil, fmt.Errorf("unknown transport %q", p.Transport)
		}
	}
}
