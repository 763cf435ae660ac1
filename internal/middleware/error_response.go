package middleware

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/hitoshi/forky/internal/model"
)

// Envelope は全レスポンス共通のフォーマット。
// messageとvalidに加え、ルートごとのフィールドを同じ階層に展開する。
type Envelope map[string]any

// WriteJSON は統一フォーマットでレスポンスを書き込む。
// payloadのキーがmessageまたはvalidと重複する場合は引数の値を優先する。
func WriteJSON(w http.ResponseWriter, statusCode int, message string, valid bool, payload Envelope) {
	body := make(Envelope, len(payload)+2)
	for k, v := range payload {
		body[k] = v
	}
	body["message"] = message
	body["valid"] = valid

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Error("failed to encode response", slog.String("error", err.Error()))
	}
}

// WriteErrorResponse はAPIErrorを統一フォーマットで書き込む。
// Detailsはレスポンスに展開し、codeを付与する。
func WriteErrorResponse(w http.ResponseWriter, apiErr *model.APIError) {
	payload := make(Envelope, len(apiErr.Details)+1)
	for k, v := range apiErr.Details {
		payload[k] = v
	}
	payload["code"] = apiErr.Code
	WriteJSON(w, apiErr.HTTPStatus(), apiErr.Message, false, payload)
}

// WriteInternalServerError は内部サーバーエラーの統一レスポンスを書き込む。
// 詳細はログのみに記録し、ユーザーには一般的なメッセージを返す。
func WriteInternalServerError(w http.ResponseWriter) {
	WriteErrorResponse(w, model.NewDependencyError(model.ErrCodeInternal, "server error"))
}
