package httpapi

import (
	"context"
	"errors"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/Angeliam1/msuper-pos-kenya-pay-sub000/internal/domain"
)

type authenticatorStub struct {
	accounts map[string]domain.UserAccount
}

func (s *authenticatorStub) Authenticate(_ context.Context, username, password string) (domain.UserAccount, error) {
	account, ok := s.accounts[username]
	if !ok {
		return domain.UserAccount{}, errors.New("invalid credentials")
	}
	if bcrypt.CompareHashAndPassword([]byte(account.Password), []byte(password)) != nil {
		return domain.UserAccount{}, errors.New("invalid credentials")
	}
	return account, nil
}

func newAuthenticatorStub(t *testing.T) *authenticatorStub {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("admin123"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("bcrypt: %v", err)
	}
	return &authenticatorStub{
		accounts: map[string]domain.UserAccount{
			"admin": {
				Username:  "admin",
				Password:  string(hash),
				Role:      "admin",
				Active:    true,
				CreatedAt: time.Now().UTC(),
			},
		},
	}
}

func TestLoginIssuesParseableToken(t *testing.T) {
	manager := NewAuthManager("test-secret", time.Hour, "123456", newAuthenticatorStub(t))

	resp, err := manager.Login(context.Background(), domain.LoginRequest{
		Username: "admin",
		Password: "admin123",
	})
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}
	if resp.Role != "admin" {
		t.Fatalf("expected role admin, got %s", resp.Role)
	}

	actor, err := manager.ParseToken(resp.AccessToken)
	if err != nil {
		t.Fatalf("parse token failed: %v", err)
	}
	if actor.Username != "admin" || actor.Role != "admin" {
		t.Fatalf("unexpected actor %+v", actor)
	}
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	manager := NewAuthManager("test-secret", time.Hour, "123456", newAuthenticatorStub(t))

	if _, err := manager.Login(context.Background(), domain.LoginRequest{
		Username: "admin",
		Password: "wrong",
	}); err == nil {
		t.Fatalf("expected login to fail with wrong password")
	}
	if _, err := manager.Login(context.Background(), domain.LoginRequest{
		Username: "nobody",
		Password: "admin123",
	}); err == nil {
		t.Fatalf("expected login to fail for unknown user")
	}
}

func TestParseTokenRejectsForeignSecret(t *testing.T) {
	issuer := NewAuthManager("secret-one", time.Hour, "123456", newAuthenticatorStub(t))
	verifier := NewAuthManager("secret-two", time.Hour, "123456", newAuthenticatorStub(t))

	resp, err := issuer.Login(context.Background(), domain.LoginRequest{
		Username: "admin",
		Password: "admin123",
	})
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}

	if _, err := verifier.ParseToken(resp.AccessToken); err == nil {
		t.Fatalf("expected token signed with a different secret to be rejected")
	}
}

func TestParseTokenRejectsGarbage(t *testing.T) {
	manager := NewAuthManager("test-secret", time.Hour, "123456", newAuthenticatorStub(t))

	if _, err := manager.ParseToken("not.a.token"); err == nil {
		t.Fatalf("expected garbage token to be rejected")
	}
}

func TestManagerPINIsHashedAndStillValidates(t *testing.T) {
	manager := NewAuthManager("test-secret", time.Hour, "654321", newAuthenticatorStub(t))

	if manager.managerPIN == "654321" {
		t.Fatalf("expected manager pin to be stored as hash, got plain-text")
	}

	if !manager.ValidateManagerPIN("654321") {
		t.Fatalf("expected manager pin validation to succeed")
	}

	if manager.ValidateManagerPIN("111111") {
		t.Fatalf("expected wrong manager pin to fail")
	}

	if manager.ValidateManagerPIN("") {
		t.Fatalf("expected empty manager pin to fail")
	}
}
