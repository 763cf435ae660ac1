package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/hitoshi/forky/internal/middleware"
	"github.com/hitoshi/forky/internal/model"
)

// handleServiceError はサービス層から返されたエラーを統一フォーマットのレスポンスに変換する。
// APIError以外のエラーは内部エラーとしてログに記録し、詳細は返さない。
func handleServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		middleware.WriteErrorResponse(w, apiErr)
		return
	}

	slog.Error("internal server error",
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
		slog.String("error", err.Error()),
	)
	middleware.WriteInternalServerError(w)
}

// decodeJSON はリクエストボディをdstにデコードする。
// ボディが空の場合はゼロ値のまま成功として扱い、必須チェックはサービス層に任せる。
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	if r.Body == nil || r.ContentLength == 0 {
		return true
	}
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		middleware.WriteErrorResponse(w, model.NewValidationError(model.ErrCodeInvalidRequest, "invalid JSON body"))
		return false
	}
	return true
}

// identity はトークンミドルウェアが注入したユーザーIDを返す。
// ミドルウェアを通過していない場合は401を書き込みfalseを返す。
func identity(w http.ResponseWriter, r *http.Request) (string, bool) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		middleware.WriteErrorResponse(w, model.NewUnauthorizedError("user login failed"))
		return "", false
	}
	return userID, true
}
