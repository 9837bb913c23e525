package auth

import (
	"context"
	"strings"

	pkgauth "github.com/wecr8/damp-backend/pkg/auth"
	pkgerrors "github.com/wecr8/damp-backend/pkg/errors"
	"github.com/wecr8/damp-backend/pkg/logger"
)

const (
	minPasswordLength  = 6
	maxDisplayNameSize = 100
)

type tokenVerifier interface {
	Verify(ctx context.Context, token string) (*pkgauth.IDTokenClaims, error)
}

type SignUpInput struct {
	Email       string
	Password    string
	DisplayName string
}

// Service is the stateless auth surface used by HTTP controllers.
type Service interface {
	SignUp(ctx context.Context, in SignUpInput) (*Session, error)
	SignIn(ctx context.Context, email, password string) (*Session, error)
	SendPasswordReset(ctx context.Context, email string) error
	VerifyIDToken(ctx context.Context, idToken string) (*pkgauth.IDTokenClaims, error)
	CurrentUser(ctx context.Context, idToken string) (*User, error)
	UpdateProfile(ctx context.Context, idToken, displayName string) (*User, error)
}

// ServiceParams bundles the auth service dependencies. A nil Verifier makes
// token verification fail with ErrNotInitialized.
type ServiceParams struct {
	Provider Provider
	Verifier tokenVerifier
	Logger   *logger.Logger
}

type service struct {
	provider Provider
	verifier tokenVerifier
	logg     *logger.Logger
}

func NewService(params ServiceParams) (Service, error) {
	if params.Provider == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "auth provider is required")
	}
	return &service{
		provider: params.Provider,
		verifier: params.Verifier,
		logg:     params.Logger,
	}, nil
}

func (s *service) SignUp(ctx context.Context, in SignUpInput) (*Session, error) {
	email, err := cleanEmail(in.Email)
	if err != nil {
		return nil, err
	}
	if len(in.Password) < minPasswordLength {
		return nil, ErrWeakPassword
	}

	sess, err := s.provider.SignUp(ctx, email, in.Password)
	if err != nil {
		return nil, err
	}

	name := cleanDisplayName(in.DisplayName)
	if name == "" {
		return sess, nil
	}
	user, err := s.provider.UpdateProfile(ctx, sess.IDToken, name)
	if err != nil {
		// the account exists at this point; keep the session and report the name failure in logs
		if s.logg != nil {
			s.logg.Warn(s.logg.WithField(s.logg.WithUID(ctx, sess.User.UID), "error", err.Error()), "auth.display_name_update_failed")
		}
		return sess, nil
	}
	sess.User.DisplayName = user.DisplayName
	return sess, nil
}

func (s *service) SignIn(ctx context.Context, email, password string) (*Session, error) {
	cleaned, err := cleanEmail(email)
	if err != nil {
		return nil, err
	}
	if password == "" {
		return nil, ErrWrongPassword
	}
	return s.provider.SignIn(ctx, cleaned, password)
}

func (s *service) SendPasswordReset(ctx context.Context, email string) error {
	cleaned, err := cleanEmail(email)
	if err != nil {
		return err
	}
	return s.provider.SendPasswordReset(ctx, cleaned)
}

func (s *service) VerifyIDToken(ctx context.Context, idToken string) (*pkgauth.IDTokenClaims, error) {
	if s.verifier == nil {
		return nil, ErrNotInitialized
	}
	idToken = strings.TrimSpace(idToken)
	if idToken == "" {
		return nil, ErrInvalidToken
	}
	claims, err := s.verifier.Verify(ctx, idToken)
	if err != nil {
		return nil, pkgerrors.Wrap(ErrInvalidToken.Code(), err, ErrInvalidToken.Message())
	}
	return claims, nil
}

func (s *service) CurrentUser(ctx context.Context, idToken string) (*User, error) {
	if strings.TrimSpace(idToken) == "" {
		return nil, ErrInvalidToken
	}
	return s.provider.Lookup(ctx, idToken)
}

func (s *service) UpdateProfile(ctx context.Context, idToken, displayName string) (*User, error) {
	if strings.TrimSpace(idToken) == "" {
		return nil, ErrInvalidToken
	}
	name := cleanDisplayName(displayName)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "display name is required")
	}
	return s.provider.UpdateProfile(ctx, idToken, name)
}

func cleanEmail(raw string) (string, error) {
	email := strings.ToLower(strings.TrimSpace(raw))
	if email == "" || !strings.Contains(email, "@") {
		return "", ErrInvalidEmail
	}
	return email, nil
}

func cleanDisplayName(raw string) string {
	name := strings.TrimSpace(raw)
	if len(name) > maxDisplayNameSize {
		name = name[:maxDisplayNameSize]
	}
	return name
}
