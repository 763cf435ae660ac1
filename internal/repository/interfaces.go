// Package repository はテナントごとのデータ永続化インターフェースとPostgreSQL実装を提供する。
package repository

import (
	"context"
	"encoding/json"
	"time"

	"github.com/hitoshi/forky/internal/model"
)

// AccountRepository は認証に必要なアカウント情報の永続化インターフェース。
// 各テナントのユーザーリポジトリが実装する。
type AccountRepository interface {
	// CreateAccount はアカウントを作成する。自然キーが重複する場合はErrDuplicateを返す。
	CreateAccount(ctx context.Context, account *model.Account) error

	// FindAccountByLogin は自然キーでアカウントを取得する。見つからない場合はnilを返す。
	FindAccountByLogin(ctx context.Context, login string) (*model.Account, error)
}

// ShopUserRepository はストアフロントのユーザーデータの永続化インターフェース。
type ShopUserRepository interface {
	AccountRepository

	// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.ShopUser, error)

	// UpdateCart はカートを置き換える。ユーザーが見つからない場合はnilを返す。
	UpdateCart(ctx context.Context, id string, cart []json.RawMessage) (*model.ShopUser, error)

	// ConfirmOrder は保存済みのカートを注文履歴に追記し、カートを空にする。
	// 1回のUPDATE文で行うため、カートが分割されることはない。
	// ユーザーが見つからない場合はnilを返す。
	ConfirmOrder(ctx context.Context, id string) (*model.ShopUser, error)
}

// ProductRepository は商品データの永続化インターフェース。
type ProductRepository interface {
	// Create は商品を作成する。
	Create(ctx context.Context, product *model.Product) error

	// List は全商品を作成日時順に返す。
	List(ctx context.Context) ([]*model.Product, error)
}

// ContactsUserRepository は連絡帳のユーザーデータの永続化インターフェース。
type ContactsUserRepository interface {
	AccountRepository

	// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.ContactsUser, error)
}

// ContactRepository は連絡先データの永続化インターフェース。
// ID指定の操作はすべて所有者IDで絞り込み、他人の連絡先は存在しないものとして扱う。
type ContactRepository interface {
	// Create は連絡先を作成する。
	Create(ctx context.Context, contact *model.Contact) error

	// ListByUserID は所有者の連絡先一覧を返す。
	ListByUserID(ctx context.Context, userID string) ([]*model.Contact, error)

	// FindByIDAndUserID は所有者の連絡先を取得する。見つからない場合はnilを返す。
	FindByIDAndUserID(ctx context.Context, id, userID string) (*model.Contact, error)

	// UpdateByIDAndUserID は所有者の連絡先を部分更新する。見つからない場合はnilを返す。
	UpdateByIDAndUserID(ctx context.Context, id, userID string, update model.ContactUpdate) (*model.Contact, error)

	// DeleteByIDAndUserID は所有者の連絡先を削除し、削除した連絡先を返す。見つからない場合はnilを返す。
	DeleteByIDAndUserID(ctx context.Context, id, userID string) (*model.Contact, error)
}

// CourseUserRepository はコースプラットフォームのユーザーデータの永続化インターフェース。
type CourseUserRepository interface {
	AccountRepository

	// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.CourseUser, error)

	// GrantCourse は購入済みコース集合にコースIDを追加する。
	// 既に含まれている場合（同時購入の敗者を含む）は何も変更せずfalseを返す。
	GrantCourse(ctx context.Context, userID, courseID string) (bool, error)

	// UpdateRoleByEmail はemailで指定したユーザーの権限を変更する。
	// 見つからない場合はfalseを返す。
	UpdateRoleByEmail(ctx context.Context, email string, role model.Role) (bool, error)
}

// CourseRepository はコースデータの永続化インターフェース。
type CourseRepository interface {
	// Create はコースを作成する。
	Create(ctx context.Context, course *model.Course) error

	// List は全コースを作成日時順に返す。
	List(ctx context.Context) ([]*model.Course, error)

	// FindByID は指定IDのコースを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Course, error)

	// Update はコースを部分更新する。見つからない場合はnilを返す。
	Update(ctx context.Context, id string, update model.CourseUpdate) (*model.Course, error)

	// DeleteByID はコースを削除する。見つからない場合はfalseを返す。
	// 動画は削除しない。
	DeleteByID(ctx context.Context, id string) (bool, error)
}

// VideoRepository は動画データの永続化インターフェース。
type VideoRepository interface {
	// CreateForCourse は動画を作成する。
	// 参照先のコースが存在しない場合は作成せずfalseを返す。
	CreateForCourse(ctx context.Context, video *model.Video) (bool, error)

	// ListByCourseID はコースの動画を週・日順に返す。
	ListByCourseID(ctx context.Context, courseID string) ([]*model.Video, error)

	// DeleteByID は動画を削除する。見つからない場合はfalseを返す。
	DeleteByID(ctx context.Context, id string) (bool, error)

	// DeleteByCourseID はコースに属する動画をすべて削除し、削除件数を返す。
	DeleteByCourseID(ctx context.Context, courseID string) (int64, error)

	// DeleteOrphans は存在しないコースを参照する動画を削除し、削除件数を返す。
	DeleteOrphans(ctx context.Context) (int64, error)
}

// PaymentRepository は決済記録の永続化インターフェース。
type PaymentRepository interface {
	// Create は決済記録を作成する。外部決済IDが重複する場合はErrDuplicateを返す。
	Create(ctx context.Context, payment *model.Payment) error

	// UpdateStatus は決済記録の状態を変更する。pending以外の記録は変更しない。
	// 変更した場合はtrueを返す。
	UpdateStatus(ctx context.Context, id string, status model.PaymentStatus) (bool, error)

	// ListStalePending はbefore以前に作成されpendingのまま残っている決済記録のIDを返す。
	ListStalePending(ctx context.Context, before time.Time, limit int) ([]string, error)

	// ResolvePending はpendingの決済記録を行ロックした上で、
	// 購入者が対象コースを所有し、同じコースのcommittedな決済が他に無ければcommitted、
	// そうでなければrejectedに確定する。
	// 既に確定済みの場合は現在の状態をそのまま返す。
	ResolvePending(ctx context.Context, id string) (model.PaymentStatus, error)
}

// HighfiveRepository はフィードバック投稿の永続化インターフェース。
type HighfiveRepository interface {
	// Create は投稿を作成する。
	Create(ctx context.Context, highfive *model.Highfive) error
}
