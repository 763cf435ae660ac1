package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/forky/internal/contacts"
	"github.com/hitoshi/forky/internal/middleware"
	"github.com/hitoshi/forky/internal/model"
)

// ContactsServiceInterface は連絡帳ハンドラーが必要とするサービスインターフェース。
type ContactsServiceInterface interface {
	Profile(ctx context.Context, userID string) (*model.ContactsUser, error)
	List(ctx context.Context, identity, pathUserID string) ([]*model.Contact, error)
	Get(ctx context.Context, identity, contactID string) (*model.Contact, error)
	Add(ctx context.Context, identity, pathUserID string, in contacts.ContactInput) (*model.Contact, error)
	Update(ctx context.Context, identity, contactID string, fields map[string]any) (*model.Contact, error)
	Delete(ctx context.Context, identity, contactID string) (*model.Contact, error)
}

// ContactsHandler は連絡帳のHTTPハンドラー。
type ContactsHandler struct {
	service ContactsServiceInterface
}

// NewContactsHandler はContactsHandlerを生成する。
func NewContactsHandler(service ContactsServiceInterface) *ContactsHandler {
	return &ContactsHandler{service: service}
}

type addContactRequest struct {
	Name     string `json:"name"`
	PhoneNum string `json:"ph_num"`
}

type updateContactRequest struct {
	Update map[string]any `json:"update"`
}

type contactResponse struct {
	ID       string `json:"_id"`
	UserID   string `json:"user_id"`
	Name     string `json:"name"`
	PhoneNum string `json:"ph_num"`
}

func toContactResponse(c *model.Contact) contactResponse {
	return contactResponse{ID: c.ID, UserID: c.UserID, Name: c.Name, PhoneNum: c.PhoneNum}
}

type contactsUserResponse struct {
	ID       string `json:"_id"`
	Name     string `json:"name"`
	Username string `json:"username"`
}

// ContactsProfile はautologin用のプロフィール生成関数を返す。
func ContactsProfile(service ContactsServiceInterface) ProfileFunc {
	return func(ctx context.Context, userID string) (any, error) {
		user, err := service.Profile(ctx, userID)
		if err != nil {
			return nil, err
		}
		return contactsUserResponse{ID: user.ID, Name: user.Name, Username: user.Username}, nil
	}
}

// MissingParam はパスパラメータのないルートに400を返すハンドラーを生成する。
func MissingParam(message string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		middleware.WriteErrorResponse(w, model.NewValidationError(model.ErrCodeInvalidRequest, message))
	}
}

// List は連絡先一覧を返す。
// GET /get-contacts/{userid}
func (h *ContactsHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := identity(w, r)
	if !ok {
		return
	}

	list, err := h.service.List(r.Context(), userID, chi.URLParam(r, "userid"))
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	resp := make([]contactResponse, 0, len(list))
	for _, c := range list {
		resp = append(resp, toContactResponse(c))
	}
	middleware.WriteJSON(w, http.StatusAccepted, "contacts retrieved", true, middleware.Envelope{
		"list": resp,
	})
}

// Get は連絡先を1件返す。
// GET /get-contact/{id}
func (h *ContactsHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID, ok := identity(w, r)
	if !ok {
		return
	}

	contact, err := h.service.Get(r.Context(), userID, chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	middleware.WriteJSON(w, http.StatusAccepted, "contact retrieved", true, middleware.Envelope{
		"contact": toContactResponse(contact),
	})
}

// Add は連絡先を作成する。
// POST /add-contact/{userid}
func (h *ContactsHandler) Add(w http.ResponseWriter, r *http.Request) {
	userID, ok := identity(w, r)
	if !ok {
		return
	}

	var req addContactRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	contact, err := h.service.Add(r.Context(), userID, chi.URLParam(r, "userid"), contacts.ContactInput{
		Name:     req.Name,
		PhoneNum: req.PhoneNum,
	})
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	middleware.WriteJSON(w, http.StatusCreated, "contact created successfully", true, middleware.Envelope{
		"added": toContactResponse(contact),
	})
}

// Update は連絡先を部分更新する。
// PUT /update-contact/{id}
func (h *ContactsHandler) Update(w http.ResponseWriter, r *http.Request) {
	userID, ok := identity(w, r)
	if !ok {
		return
	}

	var req updateContactRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	contact, err := h.service.Update(r.Context(), userID, chi.URLParam(r, "id"), req.Update)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	middleware.WriteJSON(w, http.StatusAccepted, "contact updated", true, middleware.Envelope{
		"updated": toContactResponse(contact),
	})
}

// Delete は連絡先を削除する。
// DELETE /delete-contact/{id}
func (h *ContactsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, ok := identity(w, r)
	if !ok {
		return
	}

	contact, err := h.service.Delete(r.Context(), userID, chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	middleware.WriteJSON(w, http.StatusOK, "contact deleted", true, middleware.Envelope{
		"target": toContactResponse(contact),
	})
}
