package httpapi

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"cabangpos/backend/internal/domain"
)

type userStoreStub struct {
	mu      sync.Mutex
	users   map[string]domain.UserAccount
	updates int
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
	user := s.users[username]
	user.Password = password
	s.users[username] = user
	s.updates++
	return nil
}

func TestAuthManagerUpgradesLegacyPlainPassword(t *testing.T) {
	store := &userStoreStub{
		users: map[string]domain.UserAccount{
			"admin": {
				Username:  "admin",
				Password:  "admin123",
				Role:      "admin",
				Active:    true,
				CreatedAt: time.Now().UTC(),
			},
		},
	}

	manager := NewAuthManager("test-secret", time.Hour, store)
	_, err := manager.Login(domain.LoginRequest{
		Username: "admin",
		Password: "admin123",
	})
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}

	users, err := store.ListUsers(context.Background())
	if err != nil {
		t.Fatalf("list users failed: %v", err)
	}
	if len(users) != 1 {
		t.Fatalf("expected 1 user, got %d", len(users))
	}
	if users[0].Password == "admin123" {
		t.Fatalf("expected password to be upgraded from plain-text")
	}
	if !strings.HasPrefix(users[0].Password, "$2") {
		t.Fatalf("expected bcrypt password hash, got %s", users[0].Password)
	}
}

func TestTokenCarriesRoleAndBranch(t *testing.T) {
	branchID := "brn-pusat"
	store := &userStoreStub{
		users: map[string]domain.UserAccount{
			"kasir": {
				ID:        "usr-kasir-1",
				Username:  "kasir",
				Password:  "kasir123",
				Role:      "cashier",
				BranchID:  &branchID,
				Active:    true,
				CreatedAt: time.Now().UTC(),
			},
		},
	}

	manager := NewAuthManager("test-secret", time.Hour, store)
	resp, err := manager.Login(domain.LoginRequest{
		Username: "kasir",
		Password: "kasir123",
	})
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}
	if resp.Role != "cashier" {
		t.Fatalf("expected cashier role in login response, got %s", resp.Role)
	}
	if resp.BranchID == nil || *resp.BranchID != branchID {
		t.Fatalf("expected branch %s in login response, got %v", branchID, resp.BranchID)
	}

	principal, err := manager.ParseToken(resp.AccessToken)
	if err != nil {
		t.Fatalf("parse token failed: %v", err)
	}
	if principal.Username != "kasir" {
		t.Fatalf("unexpected principal username %s", principal.Username)
	}
	if principal.UserID != "usr-kasir-1" {
		t.Fatalf("unexpected principal user id %s", principal.UserID)
	}
	if principal.Role != "cashier" {
		t.Fatalf("unexpected principal role %s", principal.Role)
	}
	if principal.BranchID == nil || *principal.BranchID != branchID {
		t.Fatalf("expected branch %s in principal, got %v", branchID, principal.BranchID)
	}
}

func TestParseTokenRejectsWrongSecret(t *testing.T) {
	store := &userStoreStub{
		users: map[string]domain.UserAccount{
			"admin": {
				Username:  "admin",
				Password:  "admin123",
				Role:      "admin",
				Active:    true,
				CreatedAt: time.Now().UTC(),
			},
		},
	}

	manager := NewAuthManager("test-secret", time.Hour, store)
	resp, err := manager.Login(domain.LoginRequest{Username: "admin", Password: "admin123"})
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}

	other := NewAuthManager("another-secret", time.Hour, store)
	if _, err := other.ParseToken(resp.AccessToken); err == nil {
		t.Fatalf("expected token signed with different secret to be rejected")
	}
}

func TestCreateCashierStoresPasswordHash(t *testing.T) {
	store := &userStoreStub{
		users: map[string]domain.UserAccount{
			"admin": {
				Username:  "admin",
				Password:  "admin123",
				Role:      "admin",
				Active:    true,
				CreatedAt: time.Now().UTC(),
			},
		},
	}

	branchID := "brn-kemang"
	manager := NewAuthManager("test-secret", time.Hour, store)
	cashier, err := manager.CreateCashier(CashierCreateRequest{
		Username: "kasirbaru",
		Password: "pass1234",
		BranchID: &branchID,
	})
	if err != nil {
		t.Fatalf("create cashier failed: %v", err)
	}
	if cashier.Username != "kasirbaru" {
		t.Fatalf("unexpected username %s", cashier.Username)
	}
	if cashier.BranchID == nil || *cashier.BranchID != branchID {
		t.Fatalf("expected branch %s, got %v", branchID, cashier.BranchID)
	}

	users, err := store.ListUsers(context.Background())
	if err != nil {
		t.Fatalf("list users failed: %v", err)
	}
	var found *domain.UserAccount
	for i := range users {
		if users[i].Username == "kasirbaru" {
			found = &users[i]
			break
		}
	}
	if found == nil {
		t.Fatalf("expected cashier to be saved")
	}
	if found.Password == "pass1234" {
		t.Fatalf("expected cashier password to be hashed")
	}
	if !strings.HasPrefix(found.Password, "$2") {
		t.Fatalf("expected bcrypt hash prefix, got %s", found.Password)
	}

	_, err = manager.Login(domain.LoginRequest{
		Username: "kasirbaru",
		Password: "pass1234",
	})
	if err != nil {
		t.Fatalf("login with hashed cashier failed: %v", err)
	}
}
