package handler

import (
	"context"
	"net/http"

	"github.com/hitoshi/forky/internal/auth"
	"github.com/hitoshi/forky/internal/middleware"
	"github.com/hitoshi/forky/internal/model"
)

// AccountServiceInterface はアカウントハンドラーが必要とするサービスインターフェース。
type AccountServiceInterface interface {
	// Tenant はサービスが担当するテナントを返す。
	Tenant() model.Tenant
	// Register はアカウントを作成し、トークンを発行する。
	Register(ctx context.Context, in auth.RegisterInput) (*auth.Session, error)
	// Login は自然キーとパスワードを検証し、トークンを発行する。
	Login(ctx context.Context, login, password string) (*auth.Session, error)
}

// ProfileFunc はトークンのユーザーIDからautologinで返すプロフィールを生成する。
type ProfileFunc func(ctx context.Context, userID string) (any, error)

// AccountHandler はテナント単位の登録・ログイン・自動ログインのHTTPハンドラー。
type AccountHandler struct {
	service AccountServiceInterface
	profile ProfileFunc
}

// NewAccountHandler はAccountHandlerを生成する。
func NewAccountHandler(service AccountServiceInterface, profile ProfileFunc) *AccountHandler {
	return &AccountHandler{service: service, profile: profile}
}

// credentialsRequest は登録・ログインリクエストのボディ。
// テナントによってemailまたはusernameを使う。
type credentialsRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Username string `json:"username"`
	Password string `json:"password"`
}

func (req credentialsRequest) login(tenant model.Tenant) string {
	if tenant.LoginField() == "username" {
		return req.Username
	}
	return req.Email
}

// accountResponse はパスワードハッシュを含まないアカウント情報。
type accountResponse struct {
	ID       string `json:"_id"`
	Name     string `json:"name"`
	Email    string `json:"email,omitempty"`
	Username string `json:"username,omitempty"`
}

func toAccountResponse(a *model.Account) accountResponse {
	resp := accountResponse{ID: a.ID, Name: a.Name}
	if a.Tenant.LoginField() == "username" {
		resp.Username = a.Login
	} else {
		resp.Email = a.Login
	}
	return resp
}

// Register はアカウント登録を処理する。
// POST /register-{tenant}
func (h *AccountHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	tenant := h.service.Tenant()
	session, err := h.service.Register(r.Context(), auth.RegisterInput{
		Name:     req.Name,
		Login:    req.login(tenant),
		Password: req.Password,
	})
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	created, noToken := registerMessages(tenant)
	payload := middleware.Envelope{"user_created": toAccountResponse(session.Account)}
	if !session.Established {
		payload["token"] = false
		middleware.WriteJSON(w, http.StatusCreated, noToken, true, payload)
		return
	}
	payload["token"] = session.Token
	middleware.WriteJSON(w, http.StatusCreated, created, true, payload)
}

// Login はログインを処理する。
// POST /login-{tenant}
func (h *AccountHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	session, err := h.service.Login(r.Context(), req.login(h.service.Tenant()), req.Password)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	middleware.WriteJSON(w, http.StatusAccepted, "Login Successful", true, middleware.Envelope{
		"user":  toAccountResponse(session.Account),
		"token": session.Token,
	})
}

// Autologin はトークンのユーザーのプロフィールを返す。
// POST /autologin-{tenant}
func (h *AccountHandler) Autologin(w http.ResponseWriter, r *http.Request) {
	userID, ok := identity(w, r)
	if !ok {
		return
	}

	user, err := h.profile(r.Context(), userID)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	middleware.WriteJSON(w, http.StatusAccepted, "user auto logged in successfully", true, middleware.Envelope{
		"user": user,
	})
}

// registerMessages は登録成功時とトークン未発行時の既存クライアント互換メッセージを返す。
func registerMessages(tenant model.Tenant) (created, noToken string) {
	if tenant == model.TenantContacts {
		return "user registered successfully", "user registered but token generation failed"
	}
	return "Registered Successfully", "Registered Successfully, please login"
}
