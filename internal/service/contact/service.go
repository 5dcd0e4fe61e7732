package contact

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"storefront/internal/domain"
	"storefront/internal/validation"
)

// Remote delivers contact messages to the shop.
type Remote interface {
	PushContact(ctx context.Context, m domain.ContactMessage) error
}

type Input struct {
	Name    string `json:"name" validate:"required"`
	Email   string `json:"email" validate:"required,email"`
	Message string `json:"message" validate:"required"`
}

// Receipt tells the caller whether the message reached the shop. When it did not,
// MailtoURL opens a prefilled message in the visitor's mail client.
type Receipt struct {
	Delivered bool   `json:"delivered"`
	MailtoURL string `json:"mailto,omitempty"`
}

type Service struct {
	remote Remote
	to     string
	logger zerolog.Logger
	now    func() time.Time
}

func New(remote Remote, to string, logger zerolog.Logger) *Service {
	return &Service{remote: remote, to: to, logger: logger, now: time.Now}
}

// Submit validates the message and hands it to the remote, falling back to a mailto link.
func (s *Service) Submit(ctx context.Context, in Input) (*Receipt, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.TrimSpace(in.Email)
	in.Message = strings.TrimSpace(in.Message)
	if err := validation.Struct(in); err != nil {
		return nil, err
	}
	m := domain.ContactMessage{Name: in.Name, Email: in.Email, Message: in.Message, ReceivedAt: s.now().UTC()}

	if s.remote != nil {
		err := s.remote.PushContact(ctx, m)
		if err == nil {
			s.logger.Info().Str("email", m.Email).Msg("contact message delivered")
			return &Receipt{Delivered: true}, nil
		}
		s.logger.Warn().Err(err).Str("email", m.Email).Msg("contact delivery failed, falling back to mailto")
	}
	return &Receipt{MailtoURL: s.mailto(m)}, nil
}

func (s *Service) mailto(m domain.ContactMessage) string {
	subject := "Contact site: " + m.Name
	body := fmt.Sprintf("Nom: %s\nEmail: %s\n\nMessage:\n%s", m.Name, m.Email, m.Message)
	return fmt.Sprintf("mailto:%s?subject=%s&body=%s", s.to, escape(subject), escape(body))
}

// escape encodes like a URI component: spaces become %20 rather than '+'.
func escape(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}
