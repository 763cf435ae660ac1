package handler

import (
	"context"
	"net/http"

	"github.com/hitoshi/forky/internal/middleware"
	"github.com/hitoshi/forky/internal/model"
	"github.com/hitoshi/forky/internal/purchase"
)

// PurchaseWorkflowInterface は購入ハンドラーが必要とするインターフェース。
type PurchaseWorkflowInterface interface {
	Buy(ctx context.Context, req purchase.Request) (*purchase.Result, error)
}

// PurchaseHandler はコース購入のHTTPハンドラー。
type PurchaseHandler struct {
	workflow PurchaseWorkflowInterface
}

// NewPurchaseHandler はPurchaseHandlerを生成する。
func NewPurchaseHandler(workflow PurchaseWorkflowInterface) *PurchaseHandler {
	return &PurchaseHandler{workflow: workflow}
}

// buyCourseRequest はコース購入リクエストのボディ。
// payment_idは決済プロバイダーの決済ID、amountは通貨の主単位。
type buyCourseRequest struct {
	CourseID  string `json:"course_id"`
	PaymentID string `json:"payment_id"`
	Amount    int64  `json:"amount"`
}

// BuyCourse はコース購入を処理する。
// 購入済みの場合も成功として200を返す。
// PATCH /buy-course
func (h *PurchaseHandler) BuyCourse(w http.ResponseWriter, r *http.Request) {
	userID, ok := identity(w, r)
	if !ok {
		return
	}

	var req buyCourseRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	result, err := h.workflow.Buy(r.Context(), purchase.Request{
		UserID:    userID,
		CourseID:  req.CourseID,
		PaymentID: req.PaymentID,
		Amount:    req.Amount,
	})
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	message := "bought successfully"
	if result.Outcome == model.PurchaseAlreadyOwned {
		message = "already bought"
	}
	middleware.WriteJSON(w, http.StatusOK, message, true, middleware.Envelope{
		"courses_bought": nonNilStrings(result.CoursesBought),
	})
}
