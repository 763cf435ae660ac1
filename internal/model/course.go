package model

import "time"

// Course はコースプラットフォームのコースを表す。管理者のみ変更できる。
type Course struct {
	ID          string
	Title       string
	Description string
	Summary     string
	Thumbnail   string
	Instructor  string
	Cost        float64
	ComingSoon  bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// CourseUpdate はコースの部分更新を表す。nilのフィールドは変更しない。
type CourseUpdate struct {
	Title       *string
	Description *string
	Summary     *string
	Thumbnail   *string
	Instructor  *string
	Cost        *float64
	ComingSoon  *bool
}

// IsEmpty は更新対象のフィールドが1つもないかを返す。
func (u CourseUpdate) IsEmpty() bool {
	return u.Title == nil && u.Description == nil && u.Summary == nil &&
		u.Thumbnail == nil && u.Instructor == nil && u.Cost == nil && u.ComingSoon == nil
}

// Video はコースに属するプレミアム動画を表す。
// CourseIDは作成時点で存在するコースを指していなければならない。
type Video struct {
	ID          string
	CourseID    string
	Title       string
	Description string
	URL         string
	Week        int
	Day         int
	CreatedAt   time.Time
}

// Highfive はコースプラットフォームの公開フィードバックフォームの投稿を表す。
type Highfive struct {
	ID        string
	Fullname  string
	Email     string
	Message   string
	CreatedAt time.Time
}
