package auth

import "errors"

var (
	// ErrInvalidToken は署名不正・形式不正・署名方式不一致のトークンを表す。
	ErrInvalidToken = errors.New("invalid token")
	// ErrTokenExpired は有効期限切れのトークンを表す。
	ErrTokenExpired = errors.New("token expired")
	// ErrWrongTenant は別テナント向けに発行されたトークンを表す。
	ErrWrongTenant = errors.New("token issued for another tenant")
	// ErrSigning はトークン署名の失敗を表す。
	ErrSigning = errors.New("token signing failed")
	// ErrHashing はパスワードのハッシュ化または検証処理自体の失敗を表す。
	// パスワード不一致とは区別する。
	ErrHashing = errors.New("password hashing failed")
)
