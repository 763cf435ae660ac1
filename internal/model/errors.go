// Package model はドメインモデルを定義する。
package model

import (
	"fmt"
	"net/http"
)

// ErrorKind はエラー分類を表す。HTTPステータスの既定値を決める。
type ErrorKind string

const (
	KindValidation     ErrorKind = "validation"
	KindAuthentication ErrorKind = "authentication"
	KindAuthorization  ErrorKind = "authorization"
	KindNotFound       ErrorKind = "not_found"
	KindConflict       ErrorKind = "conflict"
	KindDependency     ErrorKind = "dependency"
)

// APIError は統一エラーフォーマットを表す。
// Messageはクライアントにそのまま返す文言。Detailsはレスポンスに追加するフィールド。
// Statusが0の場合はKindから既定のHTTPステータスを決める。
type APIError struct {
	Kind    ErrorKind
	Code    string
	Message string
	Status  int
	Details map[string]any
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// HTTPStatus はレスポンスに使うHTTPステータスコードを返す。
func (e *APIError) HTTPStatus() int {
	if e.Status != 0 {
		return e.Status
	}
	switch e.Kind {
	case KindValidation:
		return http.StatusBadRequest
	case KindAuthentication:
		return http.StatusUnauthorized
	case KindAuthorization:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// WithMessage はメッセージだけを差し替えたコピーを返す。
// ルートごとに既存クライアント互換の文言が異なる場合に使う。
func (e *APIError) WithMessage(message string) *APIError {
	cp := *e
	cp.Message = message
	return &cp
}

// WithDetail は詳細フィールドを1つ追加したコピーを返す。
func (e *APIError) WithDetail(key string, value any) *APIError {
	cp := *e
	cp.Details = make(map[string]any, len(e.Details)+1)
	for k, v := range e.Details {
		cp.Details[k] = v
	}
	cp.Details[key] = value
	return &cp
}

// 定義済みエラーコード
const (
	ErrCodeMissingFields     = "MISSING_FIELDS"
	ErrCodeInvalidRequest    = "INVALID_REQUEST"
	ErrCodeInvalidID         = "INVALID_ID"
	ErrCodeDuplicateIdentity = "DUPLICATE_IDENTITY"
	ErrCodeInvalidLogin      = "INVALID_LOGIN"
	ErrCodeWrongPassword     = "WRONG_PASSWORD"
	ErrCodeUnauthorized      = "UNAUTHORIZED"
	ErrCodeOwnerMismatch     = "OWNER_MISMATCH"
	ErrCodeOwnerImmutable    = "OWNER_IMMUTABLE"
	ErrCodeForbidden         = "FORBIDDEN"
	ErrCodeAdminCode         = "ADMIN_CODE_MISMATCH"
	ErrCodeNotEntitled       = "NOT_ENTITLED"
	ErrCodeUserNotFound      = "USER_NOT_FOUND"
	ErrCodeCourseNotFound    = "COURSE_NOT_FOUND"
	ErrCodeVideoNotFound     = "VIDEO_NOT_FOUND"
	ErrCodePaymentReplay     = "PAYMENT_REPLAY"
	ErrCodeInvalidAmount     = "INVALID_AMOUNT"
	ErrCodeHashing           = "HASHING_FAILURE"
	ErrCodeSigning           = "SIGNING_FAILURE"
	ErrCodeUpstream          = "UPSTREAM_FAILURE"
	ErrCodeInternal          = "INTERNAL_ERROR"
)

// NewMissingFieldsError は必須フィールド不足エラーを生成する。
// 既存クライアント互換のため、ルートごとにステータス（400/409）を指定する。
func NewMissingFieldsError(status int, detailKey string, fields ...string) *APIError {
	return &APIError{
		Kind:    KindValidation,
		Code:    ErrCodeMissingFields,
		Message: "missing required fields",
		Status:  status,
		Details: map[string]any{detailKey: fields},
	}
}

// NewValidationError は入力値不正エラーを生成する。
func NewValidationError(code, message string) *APIError {
	return &APIError{
		Kind:    KindValidation,
		Code:    code,
		Message: message,
	}
}

// NewDuplicateIdentityError は自然キー重複エラーを生成する。
func NewDuplicateIdentityError(message string) *APIError {
	return &APIError{
		Kind:    KindConflict,
		Code:    ErrCodeDuplicateIdentity,
		Message: message,
	}
}

// NewUnknownLoginError はログイン対象のユーザーが存在しない場合のエラーを生成する。
func NewUnknownLoginError() *APIError {
	return &APIError{
		Kind:    KindNotFound,
		Code:    ErrCodeInvalidLogin,
		Message: "Invalid Login Credentials",
	}
}

// NewWrongPasswordError はパスワード不一致エラーを生成する。
func NewWrongPasswordError() *APIError {
	return &APIError{
		Kind:    KindAuthentication,
		Code:    ErrCodeWrongPassword,
		Message: "Invalid Credentials",
	}
}

// NewUnauthorizedError は認証情報が無効な場合のエラーを生成する。
func NewUnauthorizedError(message string) *APIError {
	return &APIError{
		Kind:    KindAuthentication,
		Code:    ErrCodeUnauthorized,
		Message: message,
	}
}

// NewOwnerMismatchError は所有者不一致エラーを生成する。
// リソースの存在有無は含めない。
func NewOwnerMismatchError() *APIError {
	return &APIError{
		Kind:    KindAuthorization,
		Code:    ErrCodeOwnerMismatch,
		Message: "unauthorised access",
		Status:  http.StatusUnauthorized,
	}
}

// NewOwnerImmutableError は所有者フィールドを変更しようとした場合のエラーを生成する。
func NewOwnerImmutableError() *APIError {
	return &APIError{
		Kind:    KindValidation,
		Code:    ErrCodeOwnerImmutable,
		Message: "`update` field's object cannot contain `user_id` field",
		Details: map[string]any{"comments": "client tried to update contact owner"},
	}
}

// NewForbiddenError は管理者権限が必要な操作の拒否エラーを生成する。
// 未認証・ユーザー不在・権限不足を区別しない。
func NewForbiddenError() *APIError {
	return &APIError{
		Kind:    KindAuthorization,
		Code:    ErrCodeForbidden,
		Message: "unauthorized action",
	}
}

// NewAdminCodeError は商品登録の管理者コードが一致しない場合のエラーを生成する。
// 既存クライアント互換のため409を返す。
func NewAdminCodeError() *APIError {
	return &APIError{
		Kind:    KindAuthorization,
		Code:    ErrCodeAdminCode,
		Message: "Unauthorised Access",
		Status:  http.StatusConflict,
	}
}

// NewNotEntitledError はプレミアムコンテンツの閲覧拒否エラーを生成する。
// コースの存在有無は含めない。
func NewNotEntitledError() *APIError {
	return &APIError{
		Kind:    KindAuthorization,
		Code:    ErrCodeNotEntitled,
		Message: "course not bought",
	}
}

// NewUserNotFoundError はユーザーが見つからない場合のエラーを生成する。
func NewUserNotFoundError() *APIError {
	return &APIError{
		Kind:    KindNotFound,
		Code:    ErrCodeUserNotFound,
		Message: "User not found",
	}
}

// NewCourseNotFoundError はコースが見つからない場合のエラーを生成する。
func NewCourseNotFoundError() *APIError {
	return &APIError{
		Kind:    KindNotFound,
		Code:    ErrCodeCourseNotFound,
		Message: "course not found",
	}
}

// NewVideoNotFoundError は動画が見つからない場合のエラーを生成する。
func NewVideoNotFoundError() *APIError {
	return &APIError{
		Kind:    KindNotFound,
		Code:    ErrCodeVideoNotFound,
		Message: "video not found",
	}
}

// NewInvalidIDError はIDの形式が不正な場合のエラーを生成する。
func NewInvalidIDError(message string) *APIError {
	return &APIError{
		Kind:    KindValidation,
		Code:    ErrCodeInvalidID,
		Message: message,
	}
}

// NewPaymentReplayError は同じ外部決済IDが再送された場合のエラーを生成する。
func NewPaymentReplayError() *APIError {
	return &APIError{
		Kind:    KindConflict,
		Code:    ErrCodePaymentReplay,
		Message: "payment already recorded",
	}
}

// NewDependencyError はハッシュ化・署名・外部サービス・ストアの失敗を表すエラーを生成する。
// 内部の詳細はログにのみ記録し、メッセージには含めない。
func NewDependencyError(code, message string) *APIError {
	return &APIError{
		Kind:    KindDependency,
		Code:    code,
		Message: message,
	}
}
