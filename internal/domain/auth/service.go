package auth

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"

	cryptoutil "perfeval/internal/platform/crypto"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrMFARequired        = errors.New("mfa code required")
	ErrMFAInvalid         = errors.New("invalid mfa code")
	ErrMFAUnavailable     = errors.New("mfa requires encryption key")
	ErrMFANotConfigured   = errors.New("mfa setup required")
)

const mfaIssuer = "PerfEval"

type LoginResult struct {
	Token  string `json:"token"`
	UserID string `json:"userId"`
	Role   string `json:"role"`
	Name   string `json:"name"`
	Email  string `json:"email"`
}

type MFASetup struct {
	Secret     string `json:"secret"`
	OTPAuthURL string `json:"otpauthUrl"`
}

type Service struct {
	store  StoreAPI
	Secret string
	TTL    time.Duration
	Crypto *cryptoutil.Service
}

func NewService(store StoreAPI, secret string, ttl time.Duration, crypto *cryptoutil.Service) *Service {
	return &Service{store: store, Secret: secret, TTL: ttl, Crypto: crypto}
}

func (s *Service) Login(ctx context.Context, email, password, mfaCode string) (LoginResult, error) {
	user, err := s.store.FindUserByEmail(ctx, email)
	if err != nil {
		return LoginResult{}, err
	}
	if err := CheckPassword(user.Password, password); err != nil {
		return LoginResult{}, ErrInvalidCredentials
	}

	if user.MFAEnabled {
		if mfaCode == "" {
			return LoginResult{}, ErrMFARequired
		}
		secret, err := s.decryptSecret(user.MFASecretEn)
		if err != nil || secret == "" || !totp.Validate(mfaCode, secret) {
			return LoginResult{}, ErrMFAInvalid
		}
	}

	sessionID, err := NewSessionID()
	if err != nil {
		return LoginResult{}, err
	}
	if err := s.store.CreateSession(ctx, user.ID, HashToken(sessionID), time.Now().Add(s.TTL)); err != nil {
		return LoginResult{}, err
	}
	token, err := GenerateToken(s.Secret, Claims{UserID: user.ID, Role: user.Role, SessionID: sessionID}, s.TTL)
	if err != nil {
		return LoginResult{}, err
	}
	if err := s.store.UpdateLastLogin(ctx, user.ID); err != nil {
		slog.Warn("update last_login failed", "userId", user.ID, "err", err)
	}

	return LoginResult{Token: token, UserID: user.ID, Role: user.Role, Name: user.Name, Email: user.Email}, nil
}

func (s *Service) Logout(ctx context.Context, userID, sessionID string) error {
	if sessionID == "" {
		return nil
	}
	return s.store.RevokeSession(ctx, userID, HashToken(sessionID))
}

// SessionValid satisfies the session check used by the auth middleware.
func (s *Service) SessionValid(ctx context.Context, userID, sessionID string) (bool, error) {
	return s.store.SessionValid(ctx, userID, HashToken(sessionID))
}

func (s *Service) SetupMFA(ctx context.Context, userID, accountName string) (MFASetup, error) {
	if s.Crypto == nil || !s.Crypto.Configured() {
		return MFASetup{}, ErrMFAUnavailable
	}
	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      mfaIssuer,
		AccountName: accountName,
		Period:      30,
		Digits:      otp.DigitsSix,
	})
	if err != nil {
		return MFASetup{}, err
	}
	encrypted, err := s.Crypto.EncryptString(key.Secret())
	if err != nil {
		return MFASetup{}, err
	}
	if err := s.store.UpdateMFASecret(ctx, userID, encrypted); err != nil {
		return MFASetup{}, err
	}
	return MFASetup{Secret: key.Secret(), OTPAuthURL: key.URL()}, nil
}

func (s *Service) EnableMFA(ctx context.Context, userID, code string) error {
	if err := s.verifyStoredCode(ctx, userID, code); err != nil {
		return err
	}
	return s.store.SetMFAEnabled(ctx, userID, true)
}

func (s *Service) DisableMFA(ctx context.Context, userID, code string) error {
	if err := s.verifyStoredCode(ctx, userID, code); err != nil {
		return err
	}
	return s.store.SetMFAEnabled(ctx, userID, false)
}

func (s *Service) verifyStoredCode(ctx context.Context, userID, code string) error {
	if s.Crypto == nil || !s.Crypto.Configured() {
		return ErrMFAUnavailable
	}
	secretEnc, err := s.store.GetMFASecret(ctx, userID)
	if err != nil || len(secretEnc) == 0 {
		return ErrMFANotConfigured
	}
	secret, err := s.decryptSecret(secretEnc)
	if err != nil {
		return ErrMFAInvalid
	}
	if !totp.Validate(code, secret) {
		return ErrMFAInvalid
	}
	return nil
}

func (s *Service) decryptSecret(secretEnc []byte) (string, error) {
	if s.Crypto != nil && s.Crypto.Configured() {
		return s.Crypto.DecryptString(secretEnc)
	}
	return string(secretEnc), nil
}
