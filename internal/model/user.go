package model

import (
	"encoding/json"
	"slices"
	"time"
)

// ShopUser はストアフロントのユーザーを表す。
// Cart と Orders はクライアントが定義する不透明なJSON要素の配列。
type ShopUser struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string
	Cart         []json.RawMessage
	Orders       []json.RawMessage
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// ContactsUser は連絡帳のユーザーを表す。
type ContactsUser struct {
	ID           string
	Name         string
	Username     string
	PasswordHash string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// CourseUser はコースプラットフォームのユーザーを表す。
// CoursesBought は重複のない購入済みコースIDの集合。
type CourseUser struct {
	ID            string
	Name          string
	Email         string
	PasswordHash  string
	Role          Role
	CoursesBought []string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Owns は指定コースが購入済みかどうかを返す。
func (u *CourseUser) Owns(courseID string) bool {
	return slices.Contains(u.CoursesBought, courseID)
}
