// Package auth はテナント単位のパスワード認証、セッショントークンの発行・検証を提供する。
package auth

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

// TokenIssuer はセッショントークンを発行するインターフェース。
type TokenIssuer interface {
	Issue(userID string, tenant model.Tenant) (string, error)
}

// RegisterInput は登録リクエストの入力値を表す。Loginはテナントの自然キー。
type RegisterInput struct {
	Name     string
	Login    string
	Password string
}

// Session は登録・ログインの結果を表す。
// Establishedがfalseの場合、アカウントは作成済みだがトークンは発行されていない。
type Session struct {
	Account     *model.Account
	Token       string
	Established bool
}

// Service はテナント単位の登録・ログインのビジネスロジックを提供する。
// テナントごとに1インスタンスを生成し、ストアと署名鍵を共有しない。
type Service struct {
	tenant  model.Tenant
	store   repository.AccountRepository
	hasher  PasswordHasher
	tokens  TokenIssuer
	metrics metrics.MetricsCollector
	logger  *slog.Logger
	now     func() time.Time
	newID   func() string
}

// NewService はServiceを生成する。metricsはnilでもよい。
func NewService(
	tenant model.Tenant,
	store repository.AccountRepository,
	hasher PasswordHasher,
	tokens TokenIssuer,
	mc metrics.MetricsCollector,
	logger *slog.Logger,
) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		tenant:  tenant,
		store:   store,
		hasher:  hasher,
		tokens:  tokens,
		metrics: mc,
		logger:  logger.With(slog.String("tenant", string(tenant))),
		now:     time.Now,
		newID:   func() string { return uuid.New().String() },
	}
}

// Tenant はサービスが担当するテナントを返す。
func (s *Service) Tenant() model.Tenant {
	return s.tenant
}

// Register はアカウントを作成し、セッショントークンを発行する。
// トークン発行だけが失敗した場合はエラーにせず、Established=falseの結果を返す。
func (s *Service) Register(ctx context.Context, in RegisterInput) (*Session, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Login = strings.TrimSpace(in.Login)
	if in.Name == "" || in.Login == "" || in.Password == "" {
		s.record("register", "invalid")
		return nil, model.NewMissingFieldsError(http.StatusConflict, "fields_required",
			"name", s.tenant.LoginField(), "password")
	}

	digest, err := s.hasher.Hash(in.Password)
	if err != nil {
		s.record("register", "error")
		s.logger.Error("password hashing failed", slog.String("error", err.Error()))
		return nil, model.NewDependencyError(model.ErrCodeHashing, "register failed (hash error)")
	}

	account := &model.Account{
		ID:           s.newID(),
		Tenant:       s.tenant,
		Name:         in.Name,
		Login:        in.Login,
		PasswordHash: digest,
		CreatedAt:    s.now(),
	}

	if err := s.store.CreateAccount(ctx, account); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			s.record("register", "duplicate")
			return nil, model.NewDuplicateIdentityError(duplicateMessage(s.tenant))
		}
		s.record("register", "error")
		return nil, fmt.Errorf("アカウントの作成に失敗しました: %w", err)
	}

	token, err := s.tokens.Issue(account.ID, s.tenant)
	if err != nil {
		s.record("register", "no_session")
		s.logger.Warn("account created but token issuance failed",
			slog.String("user_id", account.ID),
			slog.String("error", err.Error()),
		)
		return &Session{Account: account}, nil
	}

	s.record("register", "success")
	return &Session{Account: account, Token: token, Established: true}, nil
}

// Login は自然キーとパスワードを検証し、セッショントークンを発行する。
func (s *Service) Login(ctx context.Context, login, password string) (*Session, error) {
	login = strings.TrimSpace(login)
	if login == "" || password == "" {
		s.record("login", "invalid")
		return nil, model.NewMissingFieldsError(http.StatusBadRequest, "fields_required",
			s.tenant.LoginField(), "password")
	}

	account, err := s.store.FindAccountByLogin(ctx, login)
	if err != nil {
		s.record("login", "error")
		return nil, fmt.Errorf("アカウントの取得に失敗しました: %w", err)
	}
	if account == nil {
		s.record("login", "unknown")
		return nil, model.NewUnknownLoginError()
	}

	ok, err := s.hasher.Verify(password, account.PasswordHash)
	if err != nil {
		s.record("login", "error")
		s.logger.Error("password verification failed",
			slog.String("user_id", account.ID),
			slog.String("error", err.Error()),
		)
		return nil, model.NewDependencyError(model.ErrCodeHashing, "Server Error: Login failed (psw)")
	}
	if !ok {
		s.record("login", "wrong_password")
		return nil, model.NewWrongPasswordError()
	}

	token, err := s.tokens.Issue(account.ID, s.tenant)
	if err != nil {
		s.record("login", "error")
		s.logger.Error("token issuance failed",
			slog.String("user_id", account.ID),
			slog.String("error", err.Error()),
		)
		return nil, model.NewDependencyError(model.ErrCodeSigning, "Server Error: Login failed (tkn gen)")
	}

	s.record("login", "success")
	return &Session{Account: account, Token: token, Established: true}, nil
}

func (s *Service) record(operation, result string) {
	if s.metrics != nil {
		s.metrics.RecordAuthAttempt(string(s.tenant), operation, result)
	}
}

// duplicateMessage は自然キー重複時の既存クライアント互換メッセージを返す。
func duplicateMessage(tenant model.Tenant) string {
	if tenant == model.TenantContacts {
		return "Username already exists"
	}
	return "Email already registered"
}
