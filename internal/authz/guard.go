// Package authz は検証済みトークンのユーザーIDに基づく認可判定を提供する。
// 認可失敗のエラーは対象リソースの存在有無を含まない。
package authz

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/hitoshi/forky/internal/model"
)

// CourseUserFinder はコースユーザーの取得に必要なインターフェース。
// repository.CourseUserRepositoryの部分集合として定義する。
type CourseUserFinder interface {
	FindByID(ctx context.Context, id string) (*model.CourseUser, error)
}

// CheckRoute はパスに含まれるユーザーIDとトークンのユーザーIDを照合する。
// ストアに触れる前に呼び出す。
func CheckRoute(identity, pathUserID string) error {
	if identity == "" || identity != pathUserID {
		return model.NewOwnerMismatchError()
	}
	return nil
}

// RequireOwner は所有リソースの所有者IDとトークンのユーザーIDを照合する。
func RequireOwner(identity, ownerID string) error {
	if identity == "" || ownerID == "" || identity != ownerID {
		return model.NewOwnerMismatchError()
	}
	return nil
}

// RejectOwnerChange は更新内容に所有者フィールドが含まれていればエラーを返す。
// 所有者IDは作成時にトークンから設定され、以後変更できない。
func RejectOwnerChange(fields map[string]any) error {
	if _, ok := fields["user_id"]; ok {
		return model.NewOwnerImmutableError()
	}
	return nil
}

// Guard はコーステナントの権限判定を行う。
// 権限は常にストアから最新の値を読み出し、トークンには含めない。
type Guard struct {
	users  CourseUserFinder
	logger *slog.Logger
}

// NewGuard はGuardを生成する。
func NewGuard(users CourseUserFinder, logger *slog.Logger) *Guard {
	if logger == nil {
		logger = slog.Default()
	}
	return &Guard{users: users, logger: logger}
}

// RequireAdmin は管理者権限を確認し、ユーザーを返す。
// 未認証・ユーザー不在・権限不足はすべて同じFORBIDDENエラーになる。
func (g *Guard) RequireAdmin(ctx context.Context, identity string) (*model.CourseUser, error) {
	if identity == "" {
		return nil, model.NewForbiddenError()
	}

	user, err := g.users.FindByID(ctx, identity)
	if err != nil {
		return nil, fmt.Errorf("ユーザーの取得に失敗しました: %w", err)
	}
	if user == nil || !user.Role.IsAdmin() {
		g.logger.Info("admin action denied", slog.String("user_id", identity))
		return nil, model.NewForbiddenError()
	}
	return user, nil
}

// RequireEntitled はコースの閲覧権限を確認し、ユーザーを返す。
// 購入済みまたは管理者であれば許可する。
func (g *Guard) RequireEntitled(ctx context.Context, identity, courseID string) (*model.CourseUser, error) {
	if identity == "" {
		return nil, model.NewNotEntitledError()
	}

	user, err := g.users.FindByID(ctx, identity)
	if err != nil {
		return nil, fmt.Errorf("ユーザーの取得に失敗しました: %w", err)
	}
	if user == nil {
		return nil, model.NewNotEntitledError()
	}
	if user.Role.IsAdmin() || user.Owns(courseID) {
		return user, nil
	}
	return nil, model.NewNotEntitledError()
}
