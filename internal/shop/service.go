// Package shop はストアフロント（gismos）テナントのドメインロジックを提供する。
package shop

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/forky/internal/model"
	"github.com/hitoshi/forky/internal/repository"
	"github.com/hitoshi/forky/internal/security"
)

// productFields は商品登録の必須フィールド。既存クライアントのフィールド名に合わせる。
var productFields = []string{"title", "description", "price", "category", "outOfStock", "photo"}

// ProductInput は商品登録の入力値を表す。nilのフィールドはリクエストに含まれていない。
type ProductInput struct {
	Title       *string
	Description *string
	Price       *float64
	Category    *string
	OutOfStock  *bool
	Photo       *string
}

// missing は欠けている必須フィールド名を返す。
func (in ProductInput) missing() []string {
	present := []bool{
		in.Title != nil, in.Description != nil, in.Price != nil,
		in.Category != nil, in.OutOfStock != nil, in.Photo != nil,
	}
	var out []string
	for i, ok := range present {
		if !ok {
			out = append(out, productFields[i])
		}
	}
	return out
}

// Service はストアフロントのサービス層。
// 商品登録、商品一覧、カート更新、注文確定のビジネスロジックを提供する。
type Service struct {
	users     repository.ShopUserRepository
	products  repository.ProductRepository
	sanitizer security.TextSanitizer
	adminCode string
	now       func() time.Time
	newID     func() string
}

// NewService はServiceの新しいインスタンスを生成する。
// adminCodeが空の場合、商品登録は常に拒否される。
func NewService(
	users repository.ShopUserRepository,
	products repository.ProductRepository,
	sanitizer security.TextSanitizer,
	adminCode string,
) *Service {
	return &Service{
		users:     users,
		products:  products,
		sanitizer: sanitizer,
		adminCode: adminCode,
		now:       time.Now,
		newID:     func() string { return uuid.New().String() },
	}
}

// AddProduct は管理者コードを確認して商品を登録する。
func (s *Service) AddProduct(ctx context.Context, adminCode string, in ProductInput) (*model.Product, error) {
	if s.adminCode == "" || subtle.ConstantTimeCompare([]byte(adminCode), []byte(s.adminCode)) != 1 {
		return nil, model.NewAdminCodeError()
	}

	if missing := in.missing(); len(missing) > 0 {
		return nil, model.NewMissingFieldsError(http.StatusBadRequest, "required", missing...).
			WithMessage("Missing required field(s): " + strings.Join(missing, ", "))
	}
	if *in.Price < 0 {
		return nil, model.NewValidationError(model.ErrCodeInvalidRequest, "price must not be negative")
	}
	if !security.IsHTTPURL(*in.Photo) {
		return nil, model.NewValidationError(model.ErrCodeInvalidRequest, "photo must be an http(s) URL")
	}

	product := &model.Product{
		ID:          s.newID(),
		Title:       s.sanitizer.Sanitize(*in.Title),
		Description: s.sanitizer.Sanitize(*in.Description),
		Price:       *in.Price,
		Category:    s.sanitizer.Sanitize(*in.Category),
		OutOfStock:  *in.OutOfStock,
		Photo:       strings.TrimSpace(*in.Photo),
		CreatedAt:   s.now(),
	}
	if err := s.products.Create(ctx, product); err != nil {
		return nil, fmt.Errorf("商品の登録に失敗しました: %w", err)
	}
	return product, nil
}

// ListProducts は全商品を返す。
func (s *Service) ListProducts(ctx context.Context) ([]*model.Product, error) {
	products, err := s.products.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("商品一覧の取得に失敗しました: %w", err)
	}
	return products, nil
}

// Profile はトークンのユーザーのプロフィールを返す。
// ユーザーが存在しない場合は認証エラーを返す。
func (s *Service) Profile(ctx context.Context, userID string) (*model.ShopUser, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("ユーザーの取得に失敗しました: %w", err)
	}
	if user == nil {
		return nil, model.NewUnauthorizedError("user auto login failed")
	}
	return user, nil
}

// UpdateCart はカートを置き換える。cartがnilの場合はフィールド欠落として扱う。
func (s *Service) UpdateCart(ctx context.Context, userID string, cart []json.RawMessage) (*model.ShopUser, error) {
	if cart == nil {
		return nil, model.NewMissingFieldsError(http.StatusBadRequest, "required", "cart").
			WithMessage("missing required field")
	}

	user, err := s.users.UpdateCart(ctx, userID, cart)
	if err != nil {
		return nil, fmt.Errorf("カートの更新に失敗しました: %w", err)
	}
	if user == nil {
		return nil, model.NewUserNotFoundError()
	}
	return user, nil
}

// ConfirmOrder は保存済みのカートを注文履歴に追記し、カートを空にする。
// カートと注文履歴は保存済みの値を正とし、クライアントが送ったcartとordersは存在確認にのみ使う。
func (s *Service) ConfirmOrder(ctx context.Context, userID string, cart, orders []json.RawMessage) (*model.ShopUser, error) {
	if cart == nil || orders == nil {
		return nil, model.NewMissingFieldsError(http.StatusBadRequest, "required", "cart", "orders")
	}

	user, err := s.users.ConfirmOrder(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("注文の確定に失敗しました: %w", err)
	}
	if user == nil {
		return nil, model.NewUserNotFoundError()
	}
	return user, nil
}
