package httpapi

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"lumapos/backend/internal/domain"
	"lumapos/backend/internal/store"
)

type userStoreStub struct {
	mu    sync.Mutex
	users map[string]domain.UserAccount
}

func (s *userStoreStub) CreateUser(_ context.Context, user domain.UserAccount) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.users == nil {
		s.users = make(map[string]domain.UserAccount)
	}
	s.users[user.Username] = user
	return nil
}

func (s *userStoreStub) GetUserByUsername(_ context.Context, username string) (*domain.UserAccount, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[username]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &user, nil
}

func (s *userStoreStub) ListUsers(_ context.Context) ([]domain.UserAccount, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.UserAccount, 0, len(s.users))
	for _, user := range s.users {
		out = append(out, user)
	}
	return out, nil
}

func (s *userStoreStub) UpdateUserPassword(_ context.Context, username string, password string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[username]
	if !ok {
		return store.ErrNotFound
	}
	user.Password = password
	s.users[username] = user
	return nil
}

func newAuthFixture(t *testing.T) (*AuthManager, *userStoreStub) {
	t.Helper()

	stub := &userStoreStub{}
	hash, err := hashPassword("correct-horse")
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	_ = stub.CreateUser(context.Background(), domain.UserAccount{
		Username:    "lucia",
		Password:    hash,
		DisplayName: "Lucia",
		Role:        domain.RoleAdmin,
		Active:      true,
		CreatedAt:   time.Now().UTC(),
	})
	return NewAuthManager("unit-test-secret", time.Hour, stub), stub
}

func TestLoginBlankUsername(t *testing.T) {
	auth, _ := newAuthFixture(t)
	for _, username := range []string{"", "   ", "two words"} {
		_, err := auth.Login(context.Background(), domain.LoginRequest{Username: username, Password: "x"})
		if !errors.Is(err, ErrInvalidUsername) {
			t.Fatalf("username %q: expected ErrInvalidUsername, got %v", username, err)
		}
	}
}

func TestLoginUnknownUser(t *testing.T) {
	auth, _ := newAuthFixture(t)
	_, err := auth.Login(context.Background(), domain.LoginRequest{Username: "ghost", Password: "x"})
	if !errors.Is(err, ErrUnknownUser) {
		t.Fatalf("expected ErrUnknownUser, got %v", err)
	}
}

func TestLoginWrongPassword(t *testing.T) {
	auth, _ := newAuthFixture(t)
	_, err := auth.Login(context.Background(), domain.LoginRequest{Username: "lucia", Password: "wrong"})
	if !errors.Is(err, ErrWrongPassword) {
		t.Fatalf("expected ErrWrongPassword, got %v", err)
	}
}

func TestLoginInactiveAccount(t *testing.T) {
	auth, stub := newAuthFixture(t)
	stub.mu.Lock()
	user := stub.users["lucia"]
	user.Active = false
	stub.users["lucia"] = user
	stub.mu.Unlock()

	_, err := auth.Login(context.Background(), domain.LoginRequest{Username: "lucia", Password: "correct-horse"})
	if !errors.Is(err, ErrInactiveAccount) {
		t.Fatalf("expected ErrInactiveAccount, got %v", err)
	}
}

func TestLoginAndParseTokenRoundTrip(t *testing.T) {
	auth, _ := newAuthFixture(t)

	resp, err := auth.Login(context.Background(), domain.LoginRequest{Username: "Lucia", Password: "correct-horse"})
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}
	if resp.Role != domain.RoleAdmin {
		t.Fatalf("role = %q", resp.Role)
	}
	if resp.DisplayName != "Lucia" {
		t.Fatalf("display name = %q", resp.DisplayName)
	}

	actor, err := auth.ParseToken(resp.AccessToken)
	if err != nil {
		t.Fatalf("parse token failed: %v", err)
	}
	if actor.Username != "lucia" || actor.Role != domain.RoleAdmin {
		t.Fatalf("actor = %+v", actor)
	}
}

func TestRefreshReissuesToken(t *testing.T) {
	auth, _ := newAuthFixture(t)

	resp, err := auth.Login(context.Background(), domain.LoginRequest{Username: "lucia", Password: "correct-horse"})
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}

	refreshed, err := auth.Refresh(context.Background(), resp.AccessToken)
	if err != nil {
		t.Fatalf("refresh failed: %v", err)
	}
	actor, err := auth.ParseToken(refreshed.AccessToken)
	if err != nil {
		t.Fatalf("parse refreshed token failed: %v", err)
	}
	if actor.Username != "lucia" || actor.Role != domain.RoleAdmin {
		t.Fatalf("actor = %+v", actor)
	}
}

func TestRefreshRejectsDeactivatedAccount(t *testing.T) {
	auth, stub := newAuthFixture(t)

	resp, err := auth.Login(context.Background(), domain.LoginRequest{Username: "lucia", Password: "correct-horse"})
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}

	stub.mu.Lock()
	user := stub.users["lucia"]
	user.Active = false
	stub.users["lucia"] = user
	stub.mu.Unlock()

	if _, err := auth.Refresh(context.Background(), resp.AccessToken); !errors.Is(err, ErrInactiveAccount) {
		t.Fatalf("expected ErrInactiveAccount, got %v", err)
	}
}

func TestParseTokenRejectsForeignSecret(t *testing.T) {
	auth, stub := newAuthFixture(t)
	other := NewAuthManager("a-different-secret", time.Hour, stub)

	resp, err := auth.Login(context.Background(), domain.LoginRequest{Username: "lucia", Password: "correct-horse"})
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}
	if _, err := other.ParseToken(resp.AccessToken); err == nil {
		t.Fatalf("token signed with another secret must be rejected")
	}
}

func TestCreateCashierValidation(t *testing.T) {
	auth, _ := newAuthFixture(t)
	ctx := context.Background()

	if _, err := auth.CreateCashier(ctx, domain.CashierCreateRequest{Username: "ab", Password: "longenough"}); err == nil {
		t.Fatalf("short username must be rejected")
	}
	if _, err := auth.CreateCashier(ctx, domain.CashierCreateRequest{Username: "valid-name", Password: "123"}); err == nil {
		t.Fatalf("short password must be rejected")
	}

	created, err := auth.CreateCashier(ctx, domain.CashierCreateRequest{
		Username:    "Pedro",
		Password:    "secret99",
		DisplayName: "Pedro",
	})
	if err != nil {
		t.Fatalf("create cashier failed: %v", err)
	}
	if created.Username != "pedro" {
		t.Fatalf("username must be lowercased, got %q", created.Username)
	}
	if created.Role != domain.RoleCashier {
		t.Fatalf("role = %q", created.Role)
	}

	if _, err := auth.CreateCashier(ctx, domain.CashierCreateRequest{Username: "pedro", Password: "secret99"}); err == nil {
		t.Fatalf("duplicate username must be rejected")
	}
}

func TestCreateCashierPasswordIsHashed(t *testing.T) {
	auth, stub := newAuthFixture(t)

	if _, err := auth.CreateCashier(context.Background(), domain.CashierCreateRequest{
		Username: "joana",
		Password: "secret99",
	}); err != nil {
		t.Fatalf("create cashier failed: %v", err)
	}

	stub.mu.Lock()
	stored := stub.users["joana"].Password
	stub.mu.Unlock()
	if stored == "secret99" || !strings.HasPrefix(stored, "$2") {
		t.Fatalf("password stored without bcrypt hash: %q", stored)
	}
}

func TestListCashiersExcludesAdmins(t *testing.T) {
	auth, _ := newAuthFixture(t)
	ctx := context.Background()

	if _, err := auth.CreateCashier(ctx, domain.CashierCreateRequest{Username: "pedro", Password: "secret99"}); err != nil {
		t.Fatalf("create cashier failed: %v", err)
	}

	cashiers, err := auth.ListCashiers(ctx)
	if err != nil {
		t.Fatalf("list cashiers failed: %v", err)
	}
	if len(cashiers) != 1 || cashiers[0].Username != "pedro" {
		t.Fatalf("cashiers = %+v", cashiers)
	}
}
