// Package purchase はコース購入の確定処理を提供する。
//
// 受給権（購入済みコース集合）と決済記録は別々の書き込みで更新する。
// 次の順序のサガで整合性を保つ:
//
//  1. 購入済みなら何も書き込まずAlreadyOwnedを返す
//  2. 決済記録をpendingで作成する
//  3. 受給権を追加する（既に含まれていれば追加しない）
//  4. 決済記録をcommittedに更新する（リトライあり）
//
// 3が失敗した場合は決済記録をrejectedにする。4がリトライ後も失敗した場合は
// 受給権を取り消さず、pendingのまま残った記録を照合ジョブが確定する。
package purchase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/forky/internal/metrics"
	"github.com/hitoshi/forky/internal/model"
	"github.com/hitoshi/forky/internal/repository"
)

// EntitlementStore は受給権の読み書きに必要なインターフェース。
// repository.CourseUserRepositoryの部分集合として定義する。
type EntitlementStore interface {
	FindByID(ctx context.Context, id string) (*model.CourseUser, error)
	GrantCourse(ctx context.Context, userID, courseID string) (bool, error)
}

// CourseFinder はコースの存在確認に必要なインターフェース。
type CourseFinder interface {
	FindByID(ctx context.Context, id string) (*model.Course, error)
}

// PaymentStore は決済記録の書き込みに必要なインターフェース。
type PaymentStore interface {
	Create(ctx context.Context, payment *model.Payment) error
	UpdateStatus(ctx context.Context, id string, status model.PaymentStatus) (bool, error)
}

// Request は購入試行の入力値を表す。
type Request struct {
	UserID    string
	CourseID  string
	PaymentID string
	Amount    int64
}

// Result は購入試行の結果を表す。
// AlreadyOwnedの場合、Paymentは敗者として記録した決済（なければnil）。
type Result struct {
	Outcome       model.PurchaseOutcome
	CoursesBought []string
	Payment       *model.Payment
}

// Workflow はコース購入のサガを実行する。
type Workflow struct {
	users    EntitlementStore
	courses  CourseFinder
	payments PaymentStore
	retry    RetryPolicy
	metrics  metrics.MetricsCollector
	logger   *slog.Logger
	now      func() time.Time
	newID    func() string
	sleep    func(time.Duration)
}

// NewWorkflow はWorkflowを生成する。metricsはnilでもよい。
func NewWorkflow(
	users EntitlementStore,
	courses CourseFinder,
	payments PaymentStore,
	retry RetryPolicy,
	mc metrics.MetricsCollector,
	logger *slog.Logger,
) *Workflow {
	if logger == nil {
		logger = slog.Default()
	}
	return &Workflow{
		users:    users,
		courses:  courses,
		payments: payments,
		retry:    retry.normalized(),
		metrics:  mc,
		logger:   logger,
		now:      time.Now,
		newID:    func() string { return uuid.New().String() },
		sleep:    time.Sleep,
	}
}

// Buy は購入試行を実行する。
// クライアントの切断でサガが中断されないよう、呼び出し元のキャンセルは引き継がない。
func (w *Workflow) Buy(ctx context.Context, req Request) (*Result, error) {
	ctx = context.WithoutCancel(ctx)
	start := w.now()
	defer func() {
		if w.metrics != nil {
			w.metrics.RecordPurchaseLatency(w.now().Sub(start))
		}
	}()

	if err := validateCourse(&req); err != nil {
		return nil, err
	}

	logger := w.logger.With(
		slog.String("user_id", req.UserID),
		slog.String("course_id", req.CourseID),
		slog.String("payment_id", req.PaymentID),
	)

	user, err := w.users.FindByID(ctx, req.UserID)
	if err != nil {
		return nil, fmt.Errorf("ユーザーの取得に失敗しました: %w", err)
	}
	if user == nil {
		return nil, model.NewForbiddenError()
	}
	if user.Owns(req.CourseID) {
		w.recordOutcome(model.PurchaseAlreadyOwned)
		return &Result{Outcome: model.PurchaseAlreadyOwned, CoursesBought: user.CoursesBought}, nil
	}
	// 所有済みなら決済情報は見ずに返すため、決済の検証は所有確認の後に行う。
	if err := validatePayment(&req); err != nil {
		return nil, err
	}

	course, err := w.courses.FindByID(ctx, req.CourseID)
	if err != nil {
		return nil, fmt.Errorf("コースの取得に失敗しました: %w", err)
	}
	if course == nil {
		return nil, model.NewCourseNotFoundError()
	}

	now := w.now()
	payment := &model.Payment{
		ID:        w.newID(),
		UserID:    req.UserID,
		CourseID:  req.CourseID,
		Amount:    req.Amount,
		PaymentID: req.PaymentID,
		Status:    model.PaymentStatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := w.payments.Create(ctx, payment); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			logger.Warn("payment id replayed")
			return nil, model.NewPaymentReplayError()
		}
		return nil, fmt.Errorf("決済記録の作成に失敗しました: %w", err)
	}

	granted, err := w.users.GrantCourse(ctx, req.UserID, req.CourseID)
	if err != nil {
		logger.Error("entitlement grant failed", slog.String("error", err.Error()))
		w.settle(ctx, logger, payment, model.PaymentStatusRejected)
		w.recordOutcome(model.PurchaseRejected)
		return nil, model.NewDependencyError(model.ErrCodeInternal, "course purchase failed")
	}
	if !granted {
		// 同時購入の敗者。受給権は勝者の書き込みで付与済み。
		logger.Info("concurrent purchase lost, payment marked for refund")
		w.settle(ctx, logger, payment, model.PaymentStatusRejected)
		w.recordOutcome(model.PurchaseAlreadyOwned)
		return &Result{
			Outcome:       model.PurchaseAlreadyOwned,
			CoursesBought: w.coursesBought(ctx, req.UserID, user.CoursesBought),
			Payment:       payment,
		}, nil
	}

	if !w.settle(ctx, logger, payment, model.PaymentStatusCommitted) {
		if w.metrics != nil {
			w.metrics.RecordPaymentCommitFailure()
		}
	}

	w.recordOutcome(model.PurchaseCommitted)
	return &Result{
		Outcome:       model.PurchaseCommitted,
		CoursesBought: append(append([]string(nil), user.CoursesBought...), req.CourseID),
		Payment:       payment,
	}, nil
}

// settle は決済記録をpendingから確定する。リトライ後も失敗した場合はfalseを返す。
func (w *Workflow) settle(ctx context.Context, logger *slog.Logger, payment *model.Payment, status model.PaymentStatus) bool {
	var lastErr error
	for attempt := 0; attempt < w.retry.Attempts; attempt++ {
		if attempt > 0 {
			w.sleep(w.retry.CalculateBackoff(attempt - 1))
		}

		updated, err := w.payments.UpdateStatus(ctx, payment.ID, status)
		if err == nil {
			if !updated {
				logger.Info("payment already settled", slog.String("status", string(status)))
			}
			payment.Status = status
			payment.Success = status == model.PaymentStatusCommitted
			return true
		}
		lastErr = err
		logger.Warn("payment settle attempt failed",
			slog.Int("attempt", attempt+1),
			slog.String("status", string(status)),
			slog.String("error", err.Error()),
		)
	}

	logger.Error("payment left pending for reconciliation",
		slog.String("record_id", payment.ID),
		slog.String("status", string(status)),
		slog.String("error", lastErr.Error()),
	)
	return false
}

// coursesBought は最新の購入済みコース集合を返す。取得に失敗した場合はfallbackを返す。
func (w *Workflow) coursesBought(ctx context.Context, userID string, fallback []string) []string {
	user, err := w.users.FindByID(ctx, userID)
	if err != nil || user == nil {
		return fallback
	}
	return user.CoursesBought
}

func (w *Workflow) recordOutcome(outcome model.PurchaseOutcome) {
	if w.metrics != nil {
		w.metrics.RecordPurchase(string(outcome))
	}
}

// validateCourse はcourse_idを検証する。course_idが欠落している場合は
// payment_idの欠落も合わせて報告する。
func validateCourse(req *Request) error {
	req.CourseID = strings.TrimSpace(req.CourseID)
	req.PaymentID = strings.TrimSpace(req.PaymentID)

	if req.CourseID == "" {
		missing := []string{"course_id"}
		if req.PaymentID == "" {
			missing = append(missing, "payment_id")
		}
		return model.NewMissingFieldsError(http.StatusBadRequest, "required", missing...)
	}
	if _, err := uuid.Parse(req.CourseID); err != nil {
		return model.NewInvalidIDError("invalid course ID")
	}
	return nil
}

// validatePayment はpayment_idと金額を検証する。金額は正の整数（通貨の主単位）。
func validatePayment(req *Request) error {
	if req.PaymentID == "" {
		return model.NewMissingFieldsError(http.StatusBadRequest, "required", "payment_id")
	}
	if req.Amount <= 0 {
		return model.NewValidationError(model.ErrCodeInvalidAmount, "amount must be a positive integer")
	}
	return nil
}
