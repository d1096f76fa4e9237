package auth

import (
	"context"
	"testing"
	"time"
)

func TestHashAndCheckPassword(t *testing.T) {
	hash, err := HashPassword("super-secret")
	if err != nil {
		t.Fatalf("hash error: %v", err)
	}

	if err := CheckPassword(hash, "super-secret"); err != nil {
		t.Fatalf("expected password to match, got %v", err)
	}

	if err := CheckPassword(hash, "wrong"); err == nil {
		t.Fatal("expected mismatch error")
	}
}

func TestGenerateAndParseToken(t *testing.T) {
	secret := "test-secret"
	claims := Claims{UserID: "u1", Role: RoleEvaluator, SessionID: "s1"}

	token, err := GenerateToken(secret, claims, time.Hour)
	if err != nil {
		t.Fatalf("token error: %v", err)
	}

	parsed, err := ParseToken(secret, token)
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}

	if parsed.UserID != claims.UserID || parsed.Role != claims.Role || parsed.SessionID != claims.SessionID {
		t.Fatalf("claims mismatch: %+v", parsed)
	}
}

func TestParseTokenRejectsWrongSecretAndExpiry(t *testing.T) {
	token, err := GenerateToken("secret-a", Claims{UserID: "u1", Role: RoleAdmin}, time.Hour)
	if err != nil {
		t.Fatalf("token error: %v", err)
	}
	if _, err := ParseToken("secret-b", token); err == nil {
		t.Fatal("expected signature mismatch")
	}

	expired, err := GenerateToken("secret-a", Claims{UserID: "u1", Role: RoleAdmin}, -time.Minute)
	if err != nil {
		t.Fatalf("token error: %v", err)
	}
	if _, err := ParseToken("secret-a", expired); err == nil {
		t.Fatal("expected expired token to be rejected")
	}
}

func TestHashTokenStable(t *testing.T) {
	if HashToken("abc") != HashToken("abc") {
		t.Fatal("expected stable hash")
	}
	if HashToken("abc") == HashToken("abd") {
		t.Fatal("expected distinct hashes")
	}
}

func TestNormalizeRole(t *testing.T) {
	cases := []struct {
		in   string
		want string
		ok   bool
	}{
		{in: "admin", want: RoleAdmin, ok: true},
		{in: " Evaluator ", want: RoleEvaluator, ok: true},
		{in: "EVALUATEE", want: RoleEvaluatee, ok: true},
		{in: "manager", want: "MANAGER", ok: false},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.in, func(t *testing.T) {
			got, ok := NormalizeRole(tc.in)
			if got != tc.want || ok != tc.ok {
				t.Fatalf("NormalizeRole(%q) = %q, %v", tc.in, got, ok)
			}
		})
	}
}

type fakeStore struct {
	user     AuthUser
	sessions map[string]bool
}

func (f *fakeStore) FindUserByEmail(_ context.Context, email string) (AuthUser, error) {
	if email != f.user.Email {
		return AuthUser{}, ErrInvalidCredentials
	}
	return f.user, nil
}

func (f *fakeStore) CreateSession(_ context.Context, _ string, hash string, _ time.Time) error {
	f.sessions[hash] = true
	return nil
}

func (f *fakeStore) UpdateLastLogin(context.Context, string) error { return nil }

func (f *fakeStore) RevokeSession(_ context.Context, _ string, hash string) error {
	f.sessions[hash] = false
	return nil
}

func (f *fakeStore) SessionValid(_ context.Context, _ string, hash string) (bool, error) {
	return f.sessions[hash], nil
}

func (f *fakeStore) UpdateMFASecret(context.Context, string, []byte) error { return nil }
func (f *fakeStore) GetMFASecret(context.Context, string) ([]byte, error) { return nil, nil }
func (f *fakeStore) SetMFAEnabled(context.Context, string, bool) error { return nil }

func TestLoginIssuesSessionBoundToken(t *testing.T) {
	hash, err := HashPassword("pw")
	if err != nil {
		t.Fatalf("hash error: %v", err)
	}
	store := &fakeStore{
		user:     AuthUser{ID: "u1", Email: "a@example.com", Name: "Ann", Role: RoleEvaluator, Password: hash},
		sessions: map[string]bool{},
	}
	svc := NewService(store, "secret", time.Hour, nil)

	if _, err := svc.Login(context.Background(), "a@example.com", "bad", ""); err != ErrInvalidCredentials {
		t.Fatalf("expected invalid credentials, got %v", err)
	}

	res, err := svc.Login(context.Background(), "a@example.com", "pw", "")
	if err != nil {
		t.Fatalf("login error: %v", err)
	}
	if res.Role != RoleEvaluator || res.Name != "Ann" {
		t.Fatalf("unexpected login result: %+v", res)
	}

	claims, err := ParseToken("secret", res.Token)
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	valid, _ := svc.SessionValid(context.Background(), claims.UserID, claims.SessionID)
	if !valid {
		t.Fatal("expected session to be valid after login")
	}

	if err := svc.Logout(context.Background(), claims.UserID, claims.SessionID); err != nil {
		t.Fatalf("logout error: %v", err)
	}
	valid, _ = svc.SessionValid(context.Background(), claims.UserID, claims.SessionID)
	if valid {
		t.Fatal("expected session to be revoked after logout")
	}
}

func TestLoginRequiresMFACodeWhenEnabled(t *testing.T) {
	hash, err := HashPassword("pw")
	if err != nil {
		t.Fatalf("hash error: %v", err)
	}
	store := &fakeStore{
		user:     AuthUser{ID: "u1", Email: "a@example.com", Role: RoleAdmin, Password: hash, MFAEnabled: true, MFASecretEn: []byte("JBSWY3DPEHPK3PXP")},
		sessions: map[string]bool{},
	}
	svc := NewService(store, "secret", time.Hour, nil)

	if _, err := svc.Login(context.Background(), "a@example.com", "pw", ""); err != ErrMFARequired {
		t.Fatalf("expected mfa required, got %v", err)
	}
	if _, err := svc.Login(context.Background(), "a@example.com", "pw", "000000"); err != ErrMFAInvalid {
		t.Fatalf("expected mfa invalid, got %v", err)
	}
}
