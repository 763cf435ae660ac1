package model

import (
	"fmt"
	"time"
)

// Account はテナント共通の認証用ユーザー情報を表す。
// Loginはテナントごとの自然キー（emailまたはusername）。
type Account struct {
	ID           string
	Tenant       Tenant
	Name         string
	Login        string
	PasswordHash string
	CreatedAt    time.Time
}

// Role はコーステナントのユーザー権限を表す閉じた列挙型。
type Role string

const (
	// RoleStudent は既定の権限。購入済みコースのみ閲覧できる。
	RoleStudent Role = "student"
	// RoleAdmin はコースと動画を変更できる権限。自己昇格はできない。
	RoleAdmin Role = "admin"
)

// ParseRole は文字列をRoleに変換する。
func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RoleStudent, RoleAdmin:
		return Role(s), nil
	default:
		return "", fmt.Errorf("unknown role: %q", s)
	}
}

// IsAdmin は管理者権限かどうかを返す。
func (r Role) IsAdmin() bool {
	return r == RoleAdmin
}
