package model

import "time"

// PaymentStatus は決済記録の状態を表す。
type PaymentStatus string

const (
	// PaymentStatusPending は受給権付与の前に書かれる仮記録。
	PaymentStatusPending PaymentStatus = "pending"
	// PaymentStatusCommitted は受給権付与が完了した決済。
	PaymentStatusCommitted PaymentStatus = "committed"
	// PaymentStatusRejected は受給権付与に至らなかった決済。返金照合の対象。
	PaymentStatusRejected PaymentStatus = "rejected"
)

// Payment は決済結果のログを表す。受給権の正はCourseUser.CoursesBoughtにある。
type Payment struct {
	ID        string
	UserID    string
	CourseID  string
	Amount    int64
	PaymentID string // 決済プロバイダー側のID
	Status    PaymentStatus
	Success   bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// PurchaseOutcome は購入試行の終端状態を表す。
type PurchaseOutcome string

const (
	// PurchaseCommitted は受給権が新たに付与された。
	PurchaseCommitted PurchaseOutcome = "committed"
	// PurchaseAlreadyOwned は購入済みで、受給権は変化していない。成功扱い。
	PurchaseAlreadyOwned PurchaseOutcome = "already_owned"
	// PurchaseRejected は受給権付与に失敗した。
	PurchaseRejected PurchaseOutcome = "rejected"
)
