package middleware

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/forky/internal/auth"
	"github.com/hitoshi/forky/internal/model"
)

// TestRouterIntegration_TenantScopedChain はテナントごとのトークンミドルウェアが
// chi.Routerで正しく動作し、他テナントのトークンを受け付けないことを検証する。
func TestRouterIntegration_TenantScopedChain(t *testing.T) {
	tokens := auth.NewTokenService(map[model.Tenant][]byte{
		model.TenantShop:     []byte("shop-secret"),
		model.TenantContacts: []byte("contacts-secret"),
	})

	shopToken, err := tokens.Issue("user-shop", model.TenantShop)
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	rl := NewRateLimiter(RateLimiterConfig{
		GeneralRate:     100,
		GeneralBurst:    100,
		AuthRate:        100,
		AuthBurst:       100,
		CleanupInterval: time.Minute,
	})
	defer rl.Stop()

	r := chi.NewRouter()
	r.Use(NewRecoveryMiddleware())
	r.Use(NewLoggingMiddleware(slog.Default(), nil))
	r.Use(rl.GeneralMiddleware())

	profile := func(w http.ResponseWriter, r *http.Request) {
		userID, _ := UserIDFromContext(r.Context())
		WriteJSON(w, http.StatusOK, "ok", true, Envelope{"user_id": userID})
	}

	r.Route("/gismos", func(r chi.Router) {
		r.With(NewTokenMiddleware(tokens, model.TenantShop, nil)).Get("/profile", profile)
	})
	r.Route("/callme", func(r chi.Router) {
		r.With(NewTokenMiddleware(tokens, model.TenantContacts, nil)).Get("/profile", profile)
	})
	r.Get("/panic", func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	})

	t.Run("own tenant token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/gismos/profile", nil)
		req.Header.Set("Authorization", "Bearer "+shopToken)
		w := httptest.NewRecorder()

		r.ServeHTTP(w, req)

		if w.Result().StatusCode != http.StatusOK {
			t.Fatalf("status = %d, want %d", w.Result().StatusCode, http.StatusOK)
		}
		var body map[string]any
		json.NewDecoder(w.Result().Body).Decode(&body)
		if body["user_id"] != "user-shop" {
			t.Errorf("user_id = %v, want user-shop", body["user_id"])
		}
	})

	t.Run("foreign tenant token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/callme/profile", nil)
		req.Header.Set("Authorization", "Bearer "+shopToken)
		w := httptest.NewRecorder()

		r.ServeHTTP(w, req)

		if w.Result().StatusCode != http.StatusUnauthorized {
			t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusUnauthorized)
		}
	})

	t.Run("panic recovered as JSON 500", func(t *testing.T) {
		w := httptest.NewRecorder()

		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/panic", nil))

		if w.Result().StatusCode != http.StatusInternalServerError {
			t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusInternalServerError)
		}
		if ct := w.Result().Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("Content-Type = %q, want application/json", ct)
		}
	})
}

func TestSecurityHeadersMiddleware(t *testing.T) {
	handler := NewSecurityHeadersMiddleware()(okHandler())
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	for header, want := range map[string]string{
		"X-Content-Type-Options": "nosniff",
		"X-Frame-Options":        "DENY",
		"Cache-Control":          "no-store",
	} {
		if got := w.Result().Header.Get(header); got != want {
			t.Errorf("%s = %q, want %q", header, got, want)
		}
	}
}
