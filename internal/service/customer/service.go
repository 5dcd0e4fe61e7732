package customer

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"storefront/internal/domain"
	custrepo "storefront/internal/repository/customer"
	"storefront/internal/validation"
)

// LoyaltyInitializer creates the loyalty account of a new customer.
type LoyaltyInitializer interface {
	Load(ctx context.Context, email string) (*domain.LoyaltyAccount, error)
}

// Service registers and authenticates customers.
type Service struct {
	repo      custrepo.Repository
	loyalty   LoyaltyInitializer
	logger    zerolog.Logger
	cost      int
	dummyHash []byte
}

// New creates a Service hashing with bcrypt.DefaultCost.
func New(repo custrepo.Repository, loyalty LoyaltyInitializer, logger zerolog.Logger) *Service {
	return newWithCost(repo, loyalty, logger, bcrypt.DefaultCost)
}

func newWithCost(repo custrepo.Repository, loyalty LoyaltyInitializer, logger zerolog.Logger, cost int) *Service {
	// dummyHash is compared for unknown emails.
	dummy, _ := bcrypt.GenerateFromPassword([]byte("storefront-dummy-password"), cost)
	return &Service{repo: repo, loyalty: loyalty, logger: logger, cost: cost, dummyHash: dummy}
}

// RegisterInput captures the registration form. Country may be "<dial code>|<country name>".
// Passwords are compared exactly as typed.
type RegisterInput struct {
	FirstName       string `json:"firstName" validate:"required"`
	LastName        string `json:"lastName" validate:"required"`
	Email           string `json:"email" validate:"required,email"`
	Country         string `json:"country" validate:"dialcountry"`
	Phone           string `json:"phone" validate:"required"`
	Password        string `json:"password" validate:"min=6"`
	ConfirmPassword string `json:"confirmPassword" validate:"required,eqfield=Password"`
}

// Register creates a customer. It returns domain.ErrDuplicateEmail when the email is taken.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*domain.Customer, error) {
	c, password, err := in.normalize()
	if err != nil {
		return nil, err
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	c.PasswordHash = string(hashed)

	created, err := s.repo.Create(ctx, c)
	if err != nil {
		if errors.Is(err, domain.ErrAlreadyExists) {
			return nil, domain.ErrDuplicateEmail
		}
		return nil, err
	}
	s.logger.Info().Str("email", created.Email).Msg("customer registered")

	if s.loyalty != nil {
		if _, err := s.loyalty.Load(ctx, created.Email); err != nil {
			s.logger.Warn().Err(err).Str("email", created.Email).Msg("loyalty init failed")
		}
	}
	return created, nil
}

// Authenticate returns the customer when email and password match. Unknown emails and wrong passwords
// both yield domain.ErrInvalidCredentials.
func (s *Service) Authenticate(ctx context.Context, email, password string) (*domain.Customer, error) {
	email = strings.TrimSpace(email)
	c, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			_ = bcrypt.CompareHashAndPassword(s.dummyHash, []byte(password))
			return nil, domain.ErrInvalidCredentials
		}
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(c.PasswordHash), []byte(password)); err != nil {
		return nil, domain.ErrInvalidCredentials
	}
	return c, nil
}

// Get returns the customer registered under email.
func (s *Service) Get(ctx context.Context, email string) (*domain.Customer, error) {
	return s.repo.GetByEmail(ctx, email)
}

func (in RegisterInput) normalize() (domain.Customer, string, error) {
	in.FirstName = strings.TrimSpace(in.FirstName)
	in.LastName = strings.TrimSpace(in.LastName)
	in.Email = strings.TrimSpace(in.Email)
	in.Country = strings.TrimSpace(in.Country)
	in.Phone = strings.TrimSpace(in.Phone)
	if err := validation.Struct(in); err != nil {
		return domain.Customer{}, "", err
	}

	c := domain.Customer{
		FirstName: in.FirstName,
		LastName:  in.LastName,
		Email:     in.Email,
		Country:   in.Country,
		Phone:     in.Phone,
	}
	if code, name, ok := strings.Cut(c.Country, "|"); ok {
		c.Country = strings.TrimSpace(name)
		c.Phone = strings.TrimSpace(code) + c.Phone
	}
	return c, in.Password, nil
}
