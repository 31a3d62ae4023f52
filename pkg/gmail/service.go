package gmail

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"
)

type Service struct {
	clientID     string
	clientSecret string
	endpoint     string // Optional API endpoint override
}

func NewService(clientID, clientSecret string) *Service {
	return &Service{
		clientID:     clientID,
		clientSecret: clientSecret,
	}
}

// WithEndpoint points the Gmail client at a different API base URL
func (s *Service) WithEndpoint(endpoint string) *Service {
	s.endpoint = endpoint
	return s
}

// GetGmailService creates a Gmail service for the mailbox owning refreshToken
func (s *Service) GetGmailService(ctx context.Context, refreshToken string) (*gmail.Service, error) {
	if refreshToken == "" {
		return nil, fmt.Errorf("gmail refresh token is required")
	}

	token := &oauth2.Token{
		RefreshToken: refreshToken,
		TokenType:    "Bearer",
		Expiry:       time.Now(), // Force a refresh on first use
	}

	config := &oauth2.Config{
		ClientID:     s.clientID,
		ClientSecret: s.clientSecret,
		Endpoint:     google.Endpoint,
		Scopes:       []string{gmail.GmailSendScope},
	}

	client := oauth2.NewClient(ctx, config.TokenSource(ctx, token))

	opts := []option.ClientOption{option.WithHTTPClient(client)}
	if s.endpoint != "" {
		opts = append(opts, option.WithEndpoint(s.endpoint))
	}
	srv, err := gmail.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("unable to create Gmail service: %w", err)
	}
	return srv, nil
}

// SendEmail sends a plain text email from the mailbox owning refreshToken
func (s *Service) SendEmail(ctx context.Context, refreshToken, fromName, fromEmail, to, subject, body string) error {
	srv, err := s.GetGmailService(ctx, refreshToken)
	if err != nil {
		return err
	}

	msg := &gmail.Message{
		Raw: base64.URLEncoding.EncodeToString(BuildRawMessage(fromName, fromEmail, to, subject, body)),
	}

	if _, err := srv.Users.Messages.Send("me", msg).Context(ctx).Do(); err != nil {
		return fmt.Errorf("unable to send message: %w", err)
	}
	return nil
}

// BuildRawMessage renders an RFC 5322 message with UTF-8 encoded headers
func BuildRawMessage(fromName, fromEmail, to, subject, body string) []byte {
	var emailMsg bytes.Buffer

	if fromEmail != "" {
		if fromName != "" {
			encodedName := fmt.Sprintf("=?utf-8?B?%s?=", base64.StdEncoding.EncodeToString([]byte(fromName)))
			emailMsg.WriteString(fmt.Sprintf("From: %s <%s>\r\n", encodedName, fromEmail))
		} else {
			emailMsg.WriteString(fmt.Sprintf("From: %s\r\n", fromEmail))
		}
	}
	emailMsg.WriteString(fmt.Sprintf("To: %s\r\n", to))
	// Encode subject to handle non-ASCII characters (RFC 2047)
	encodedSubject := fmt.Sprintf("=?utf-8?B?%s?=", base64.StdEncoding.EncodeToString([]byte(subject)))
	emailMsg.WriteString(fmt.Sprintf("Subject: %s\r\n", encodedSubject))
	emailMsg.WriteString("MIME-Version: 1.0\r\n")
	emailMsg.WriteString("Content-Type: text/plain; charset=\"UTF-8\"\r\n")
	emailMsg.WriteString("Content-Transfer-Encoding: base64\r\n\r\n")

	encodedBody := base64.StdEncoding.EncodeToString([]byte(body))
	// Split base64 into lines of 76 characters
	for i := 0; i < len(encodedBody); i += 76 {
		end := i + 76
		if end > len(encodedBody) {
			end = len(encodedBody)
		}
		emailMsg.WriteString(encodedBody[i:end] + "\r\n")
	}

	return emailMsg.Bytes()
}
