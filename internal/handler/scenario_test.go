package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/hitoshi/forky/internal/auth"
	"github.com/hitoshi/forky/internal/middleware"
	"github.com/hitoshi/forky/internal/model"
	"github.com/hitoshi/forky/internal/repository"
)

// memoryAccounts は自然キーの一意性だけを再現するインメモリのアカウントストア。
type memoryAccounts struct {
	mu      sync.Mutex
	byLogin map[string]*model.Account
}

func (m *memoryAccounts) CreateAccount(ctx context.Context, account *model.Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byLogin[account.Login]; ok {
		return repository.ErrDuplicate
	}
	cp := *account
	m.byLogin[account.Login] = &cp
	return nil
}

func (m *memoryAccounts) FindAccountByLogin(ctx context.Context, login string) (*model.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	account, ok := m.byLogin[login]
	if !ok {
		return nil, nil
	}
	cp := *account
	return &cp, nil
}

func newShopScenarioRouter(t *testing.T) http.Handler {
	t.Helper()

	tokens := auth.NewTokenService(map[model.Tenant][]byte{
		model.TenantShop:     []byte("gismos-secret"),
		model.TenantContacts: []byte("callme-secret"),
		model.TenantCourses:  []byte("edlearn-secret"),
	})
	store := &memoryAccounts{byLogin: make(map[string]*model.Account)}
	svc := auth.NewService(model.TenantShop, store, auth.NewBcryptHasher(bcrypt.MinCost), tokens, nil, nil)

	rl := middleware.NewRateLimiter(middleware.RateLimiterConfig{
		GeneralRate: 1000, GeneralBurst: 1000, AuthRate: 1000, AuthBurst: 1000,
		CleanupInterval: time.Minute,
	})
	t.Cleanup(rl.Stop)

	return NewRouter(&RouterDeps{
		TokenVerifier:     tokens,
		CORSAllowedOrigin: "*",
		RateLimiter:       rl,
		HealthChecker:     &mockHealthChecker{pingFn: func(ctx context.Context) error { return nil }},
		Accounts:          map[model.Tenant]AccountServiceInterface{model.TenantShop: svc},
		Shop: &mockShopService{
			profileFn: func(ctx context.Context, userID string) (*model.ShopUser, error) {
				return &model.ShopUser{ID: userID, Email: "a@x.com"}, nil
			},
		},
		Contacts: &mockContactsService{},
		Courses:  &mockCoursesService{},
		Purchase: &mockPurchaseWorkflow{},
	})
}

func postJSON(router http.Handler, path, token, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestScenario_RegisterTwiceConflicts(t *testing.T) {
	router := newShopScenarioRouter(t)
	body := `{"name":"A","email":"a@x.com","password":"pw"}`

	w := postJSON(router, "/register-gismos", "", body)
	if w.Code != http.StatusCreated {
		t.Fatalf("first register: status = %d, want %d; body = %s", w.Code, http.StatusCreated, w.Body.String())
	}
	if token, _ := parseBody(t, w)["token"].(string); token == "" {
		t.Error("first register should return a token")
	}

	w = postJSON(router, "/register-gismos", "", body)
	if w.Code != http.StatusConflict {
		t.Fatalf("second register: status = %d, want %d", w.Code, http.StatusConflict)
	}
	if body := parseBody(t, w); body["valid"] != false {
		t.Errorf("valid = %v, want false", body["valid"])
	}
}

func TestScenario_LoginThenAutologin(t *testing.T) {
	router := newShopScenarioRouter(t)
	if w := postJSON(router, "/register-gismos", "", `{"name":"A","email":"a@x.com","password":"pw"}`); w.Code != http.StatusCreated {
		t.Fatalf("register: status = %d", w.Code)
	}

	w := postJSON(router, "/login-gismos", "", `{"email":"a@x.com","password":"pw"}`)
	if w.Code != http.StatusAccepted {
		t.Fatalf("login: status = %d, want %d; body = %s", w.Code, http.StatusAccepted, w.Body.String())
	}
	token, _ := parseBody(t, w)["token"].(string)
	if token == "" {
		t.Fatal("login should return a token")
	}

	if w := postJSON(router, "/autologin-gismos", token, ""); w.Code != http.StatusAccepted {
		t.Errorf("autologin: status = %d, want %d", w.Code, http.StatusAccepted)
	}

	w = postJSON(router, "/login-gismos", "", `{"email":"a@x.com","password":"nope"}`)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("wrong password: status = %d, want %d", w.Code, http.StatusUnauthorized)
	}
	if _, ok := parseBody(t, w)["token"]; ok {
		t.Error("wrong password must not issue a token")
	}
}
