package service

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"attendance-control-plane/internal/organizer/domain"
	"attendance-control-plane/internal/organizer/repository"
	"attendance-control-plane/internal/security"
)

// Sentinel errors for the auth service; the handler maps them to HTTP status codes.
var (
	ErrEmailAlreadyRegistered = errors.New("email already registered")
	ErrInvalidCredentials     = errors.New("invalid credentials")
)

// AuthResult holds the outcome of Register (organizer ID only) or Login (token too).
type AuthResult struct {
	OrganizerID string
	Email       string
	Name        string
	AccessToken string
	ExpiresAt   time.Time
}

// AuthService implements password-based organizer register and login.
type AuthService struct {
	repo   repository.Repository
	hasher *security.Hasher
	tokens *security.TokenProvider
}

// NewAuthService returns an AuthService with the given dependencies.
func NewAuthService(repo repository.Repository, hasher *security.Hasher, tokens *security.TokenProvider) *AuthService {
	return &AuthService{repo: repo, hasher: hasher, tokens: tokens}
}

// Register creates an organizer account with the given email and password.
// Returns AuthResult without a token; the caller must Login to get one.
func (s *AuthService) Register(ctx context.Context, email, password, name string) (*AuthResult, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if err := validateEmail(email); err != nil {
		return nil, err
	}
	if err := validatePassword(password); err != nil {
		return nil, err
	}
	existing, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrEmailAlreadyRegistered
	}
	hashed, err := s.hasher.Hash([]byte(password))
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	org := &domain.Organizer{
		ID:           uuid.New().String(),
		Email:        email,
		Name:         strings.TrimSpace(name),
		PasswordHash: hashed,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := org.Validate(); err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, org); err != nil {
		return nil, err
	}
	return &AuthResult{OrganizerID: org.ID, Email: org.Email, Name: org.Name}, nil
}

// Login authenticates with email/password and returns an access token.
func (s *AuthService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" || password == "" {
		return nil, ErrInvalidCredentials
	}
	org, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if org == nil || org.PasswordHash == "" {
		return nil, ErrInvalidCredentials
	}
	if err := s.hasher.Compare(org.PasswordHash, []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	token, _, expiresAt, err := s.tokens.IssueAccess(org.ID, org.Email)
	if err != nil {
		return nil, err
	}
	return &AuthResult{
		OrganizerID: org.ID,
		Email:       org.Email,
		Name:        org.Name,
		AccessToken: token,
		ExpiresAt:   expiresAt,
	}, nil
}

func validateEmail(email string) error {
	if email == "" {
		return errors.New("email is required")
	}
	const simpleEmail = `^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`
	ok, _ := regexp.MatchString(simpleEmail, email)
	if !ok {
		return errors.New("invalid email format")
	}
	return nil
}

func validatePassword(password string) error {
	if len(password) < 12 {
		return errors.New("password must be at least 12 characters")
	}
	var hasUpper, hasLower, hasNumber, hasSymbol bool
	for _, r := range password {
		switch {
		case r >= 'A' && r <= 'Z':
			hasUpper = true
		case r >= 'a' && r <= 'z':
			hasLower = true
		case r >= '0' && r <= '9':
			hasNumber = true
		case r < '0' || (r > '9' && r < 'A') || (r > 'Z' && r < 'a') || r > 'z':
			hasSymbol = true
		}
	}
	if !hasUpper {
		return errors.New("password must contain at least one uppercase letter")
	}
	if !hasLower {
		return errors.New("password must contain at least one lowercase letter")
	}
	if !hasNumber {
		return errors.New("password must contain at least one number")
	}
	if !hasSymbol {
		return errors.New("password must contain at least one symbol")
	}
	return nil
}
