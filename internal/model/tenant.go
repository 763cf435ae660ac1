// Package model はドメインモデルを定義する。
package model

import "fmt"

// Tenant は同一プロセス上で動作する論理的に独立したアプリケーションを表す。
// テナント間でユーザー、署名鍵、データは共有しない。
type Tenant string

const (
	// TenantShop はストアフロント（gismos）テナント。自然キーはemail。
	TenantShop Tenant = "shop"
	// TenantContacts は連絡帳（callme）テナント。自然キーはusername。
	TenantContacts Tenant = "contacts"
	// TenantCourses はコースプラットフォーム（edlearn）テナント。自然キーはemail。
	TenantCourses Tenant = "courses"
)

// Tenants は全テナントを宣言順に返す。
func Tenants() []Tenant {
	return []Tenant{TenantShop, TenantContacts, TenantCourses}
}

// RouteSuffix はルートパスに付与する既存クライアント互換のテナント名を返す。
// 例: /register-gismos
func (t Tenant) RouteSuffix() string {
	switch t {
	case TenantShop:
		return "gismos"
	case TenantContacts:
		return "callme"
	case TenantCourses:
		return "edlearn"
	default:
		return string(t)
	}
}

// LoginField はテナントの自然キーとなるリクエストフィールド名を返す。
func (t Tenant) LoginField() string {
	if t == TenantContacts {
		return "username"
	}
	return "email"
}

// ParseTenant は文字列をTenantに変換する。未知の値はエラーを返す。
func ParseTenant(s string) (Tenant, error) {
	switch Tenant(s) {
	case TenantShop, TenantContacts, TenantCourses:
		return Tenant(s), nil
	default:
		return "", fmt.Errorf("unknown tenant: %q", s)
	}
}
