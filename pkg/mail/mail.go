package mail

import (
	"context"
	"fmt"
	"sync"

	"autosend-backend/pkg/metrics"

	"go.uber.org/zap"
)

// Recipient is the contact a message is delivered to
type Recipient struct {
	ContactID string
	Name      string
	Email     string
}

// Identity selects the delivery configuration for a message
type Identity struct {
	UserID         string
	OrganizationID string
}

// Message is one outgoing email handed to a transport
type Message struct {
	FromName    string
	FromAddress string
	To          Recipient
	Subject     string
	Body        string
}

// Transport delivers a message over one concrete protocol
type Transport interface {
	Send(ctx context.Context, msg Message) error
	Name() string
}

// TransportFactory builds a transport for a resolved provider
type TransportFactory func(p ProviderConfig) (Transport, error)

// Gateway resolves the delivery configuration for a recipient identity and sends.
// Ordinary delivery failures are reported as false, never as a panic or error.
type Gateway struct {
	providers  *Providers
	factory    TransportFactory
	log        *zap.SugaredLogger
	mu         sync.Mutex
	transports map[string]Transport
}

// NewGateway creates a gateway over the given providers
func NewGateway(providers *Providers, factory TransportFactory, log *zap.SugaredLogger) *Gateway {
	return &Gateway{
		providers:  providers,
		factory:    factory,
		log:        log,
		transports: make(map[string]Transport),
	}
}

// Send delivers body to recipient and reports whether the transport accepted it
func (g *Gateway) Send(ctx context.Context, recipient Recipient, subject, body string, identity Identity) bool {
	if recipient.Email == "" {
		g.log.Warnw("Refusing to send mail without recipient address", "contactID", recipient.ContactID)
		return false
	}

	key, provider := g.providers.Resolve(identity)
	transport, err := g.transportFor(key, provider)
	if err != nil {
		g.log.Errorw("Failed to build mail transport", "provider", key, "error", err)
		metrics.MailSendFailure.WithLabelValues(provider.Transport).Inc()
		return false
	}

	msg := Message{
		FromName:    provider.SenderName,
		FromAddress: provider.SenderAddress,
		To:          recipient,
		Subject:     subject,
		Body:        body,
	}

	if err := transport.Send(ctx, msg); err != nil {
		g.log.Warnw("Mail delivery failed",
			"provider", key,
			"transport", transport.Name(),
			"contactID", recipient.ContactID,
			"userID", identity.UserID,
			"error", err)
		metrics.MailSendFailure.WithLabelValues(transport.Name()).Inc()
		return false
	}

	g.log.Infow("Mail delivered",
		"provider", key,
		"transport", transport.Name(),
		"contactID", recipient.ContactID)
	metrics.MailSendSuccess.WithLabelValues(transport.Name()).Inc()
	return true
}

func (g *Gateway) transportFor(key string, p ProviderConfig) (Transport, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if t, ok := g.transports[key]; ok {
		return t, nil
	}
	if g.factory == nil {
		return nil, fmt.Errorf("no transport factory configured")
	}
	t, err := g.factory(p)
	if err != nil {
		return nil, err
	}
	g.transports[key] = t
	return t, nil
}
