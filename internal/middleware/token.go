// Package middleware はHTTPミドルウェアを提供する。
package middleware

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/hitoshi/forky/internal/auth"
	"github.com/hitoshi/forky/internal/metrics"
	"github.com/hitoshi/forky/internal/model"
)

// contextKey はコンテキストに値を格納するための型安全なキー。
type contextKey string

var (
	// userIDContextKey はリクエストコンテキストにユーザーIDを格納するためのキー。
	userIDContextKey = contextKey("user_id")
	// tenantContextKey はトークンを検証したテナントを格納するためのキー。
	tenantContextKey = contextKey("tenant")
	// requestUserContextKey はロギングミドルウェアが用意するrequestUserを格納するためのキー。
	requestUserContextKey = contextKey("request_user")
)

const (
	// messageTokenMissing はトークンがない場合のメッセージ。
	messageTokenMissing = "Unauthorized action. Login again (1)"
	// messageTokenRejected はトークンが無効な場合のメッセージ。
	messageTokenRejected = "Unauthorized action. Login again (2)"
)

// TokenVerifier はトークンの検証に必要なインターフェース。
type TokenVerifier interface {
	Verify(token string, tenant model.Tenant) (string, error)
}

// NewTokenMiddleware はAuthorizationヘッダーのトークンを指定テナントの鍵で検証するミドルウェアを返す。
// 値は"Bearer <token>"または生のトークン。
// 検証に成功したユーザーIDとテナントをリクエストコンテキストに注入する。
// トークンがない場合と無効な場合で異なる401レスポンスを返す。
func NewTokenMiddleware(verifier TokenVerifier, tenant model.Tenant, mc metrics.MetricsCollector) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := auth.StripBearer(r.Header.Get("Authorization"))
			if header == "" {
				recordRejection(mc, tenant, "missing")
				writeRelogin(w, messageTokenMissing)
				return
			}

			userID, err := verifier.Verify(header, tenant)
			if err != nil {
				reason := rejectionReason(err)
				recordRejection(mc, tenant, reason)
				slog.Info("token rejected",
					slog.String("tenant", string(tenant)),
					slog.String("reason", reason),
					slog.String("path", r.URL.Path),
				)
				writeRelogin(w, messageTokenRejected)
				return
			}

			setRequestUser(r.Context(), userID)
			ctx := context.WithValue(r.Context(), userIDContextKey, userID)
			ctx = context.WithValue(ctx, tenantContextKey, tenant)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// UserIDFromContext はリクエストコンテキストからユーザーIDを取得する。
// トークンミドルウェアを通過したリクエストでのみ有効。
func UserIDFromContext(ctx context.Context) (string, error) {
	userID, ok := ctx.Value(userIDContextKey).(string)
	if !ok || userID == "" {
		return "", fmt.Errorf("user ID not found in context")
	}
	return userID, nil
}

// TenantFromContext はトークンを検証したテナントを取得する。
func TenantFromContext(ctx context.Context) (model.Tenant, bool) {
	tenant, ok := ctx.Value(tenantContextKey).(model.Tenant)
	return tenant, ok
}

// ContextWithUserID はコンテキストにユーザーIDを注入する。
// テストやミドルウェア以外のコンテキスト生成で使用する。
func ContextWithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDContextKey, userID)
}

func writeRelogin(w http.ResponseWriter, message string) {
	WriteJSON(w, http.StatusUnauthorized, message, false, Envelope{"relogin": true})
}

func rejectionReason(err error) string {
	switch {
	case errors.Is(err, auth.ErrTokenExpired):
		return "expired"
	case errors.Is(err, auth.ErrWrongTenant):
		return "wrong_tenant"
	default:
		return "invalid"
	}
}

func recordRejection(mc metrics.MetricsCollector, tenant model.Tenant, reason string) {
	if mc != nil {
		mc.RecordTokenRejection(string(tenant), reason)
	}
}
