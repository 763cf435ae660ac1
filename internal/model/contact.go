package model

import "time"

// Contact は連絡帳の連絡先を表す。UserIDは所有者で、作成後は変更できない。
type Contact struct {
	ID        string
	UserID    string
	Name      string
	PhoneNum  string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// ContactUpdate は連絡先の部分更新を表す。nilのフィールドは変更しない。
type ContactUpdate struct {
	Name     *string
	PhoneNum *string
}

// IsEmpty は更新対象のフィールドが1つもないかを返す。
func (u ContactUpdate) IsEmpty() bool {
	return u.Name == nil && u.PhoneNum == nil
}
