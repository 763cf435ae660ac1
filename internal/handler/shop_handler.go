package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/hitoshi/forky/internal/middleware"
	"github.com/hitoshi/forky/internal/model"
	"github.com/hitoshi/forky/internal/shop"
)

// ShopServiceInterface はストアフロントハンドラーが必要とするサービスインターフェース。
type ShopServiceInterface interface {
	AddProduct(ctx context.Context, adminCode string, in shop.ProductInput) (*model.Product, error)
	ListProducts(ctx context.Context) ([]*model.Product, error)
	Profile(ctx context.Context, userID string) (*model.ShopUser, error)
	UpdateCart(ctx context.Context, userID string, cart []json.RawMessage) (*model.ShopUser, error)
	ConfirmOrder(ctx context.Context, userID string, cart, orders []json.RawMessage) (*model.ShopUser, error)
}

// ShopHandler はストアフロントのHTTPハンドラー。
type ShopHandler struct {
	service ShopServiceInterface
}

// NewShopHandler はShopHandlerを生成する。
func NewShopHandler(service ShopServiceInterface) *ShopHandler {
	return &ShopHandler{service: service}
}

// addProductRequest は商品登録リクエストのボディ。
// Lolは管理者コード。既存クライアント互換のフィールド名。
type addProductRequest struct {
	Lol         string   `json:"lol"`
	Title       *string  `json:"title"`
	Description *string  `json:"description"`
	Price       *float64 `json:"price"`
	Category    *string  `json:"category"`
	OutOfStock  *bool    `json:"outOfStock"`
	Photo       *string  `json:"photo"`
}

// cartRequest はカート更新・注文確定リクエストのボディ。
type cartRequest struct {
	Cart   []json.RawMessage `json:"cart"`
	Orders []json.RawMessage `json:"orders"`
}

type productResponse struct {
	ID          string  `json:"_id"`
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Price       float64 `json:"price"`
	Category    string  `json:"category"`
	OutOfStock  bool    `json:"outOfStock"`
	Photo       string  `json:"photo"`
}

func toProductResponse(p *model.Product) productResponse {
	return productResponse{
		ID:          p.ID,
		Title:       p.Title,
		Description: p.Description,
		Price:       p.Price,
		Category:    p.Category,
		OutOfStock:  p.OutOfStock,
		Photo:       p.Photo,
	}
}

// shopUserResponse はストアフロントのプロフィール。
type shopUserResponse struct {
	ID     string            `json:"_id"`
	Name   string            `json:"name"`
	Email  string            `json:"email"`
	Cart   []json.RawMessage `json:"cart"`
	Orders []json.RawMessage `json:"orders"`
}

func toShopUserResponse(u *model.ShopUser) shopUserResponse {
	return shopUserResponse{
		ID:     u.ID,
		Name:   u.Name,
		Email:  u.Email,
		Cart:   nonNilRaw(u.Cart),
		Orders: nonNilRaw(u.Orders),
	}
}

// ShopProfile はautologin用のプロフィール生成関数を返す。
func ShopProfile(service ShopServiceInterface) ProfileFunc {
	return func(ctx context.Context, userID string) (any, error) {
		user, err := service.Profile(ctx, userID)
		if err != nil {
			return nil, err
		}
		return toShopUserResponse(user), nil
	}
}

// AddProduct は管理者コード付きの商品登録を処理する。
// POST /add-product
func (h *ShopHandler) AddProduct(w http.ResponseWriter, r *http.Request) {
	var req addProductRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	product, err := h.service.AddProduct(r.Context(), req.Lol, shop.ProductInput{
		Title:       req.Title,
		Description: req.Description,
		Price:       req.Price,
		Category:    req.Category,
		OutOfStock:  req.OutOfStock,
		Photo:       req.Photo,
	})
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	middleware.WriteJSON(w, http.StatusCreated, "Product created", true, middleware.Envelope{
		"product": toProductResponse(product),
	})
}

// ListProducts は商品一覧を返す。
// GET /get-products
func (h *ShopHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.service.ListProducts(r.Context())
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	resp := make([]productResponse, 0, len(products))
	for _, p := range products {
		resp = append(resp, toProductResponse(p))
	}
	middleware.WriteJSON(w, http.StatusAccepted, "products retrieved", true, middleware.Envelope{
		"products": resp,
	})
}

// UpdateCart はカートを置き換える。
// PUT /update-cart
func (h *ShopHandler) UpdateCart(w http.ResponseWriter, r *http.Request) {
	userID, ok := identity(w, r)
	if !ok {
		return
	}

	var req cartRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	user, err := h.service.UpdateCart(r.Context(), userID, req.Cart)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	middleware.WriteJSON(w, http.StatusOK, "cart updated", true, middleware.Envelope{
		"user": map[string]any{"cart": nonNilRaw(user.Cart)},
	})
}

// ConfirmOrder はカートを注文履歴に移す。
// PUT /confirm-order
func (h *ShopHandler) ConfirmOrder(w http.ResponseWriter, r *http.Request) {
	userID, ok := identity(w, r)
	if !ok {
		return
	}

	var req cartRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	user, err := h.service.ConfirmOrder(r.Context(), userID, req.Cart, req.Orders)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	middleware.WriteJSON(w, http.StatusOK, "Order Successfully Placed", true, middleware.Envelope{
		"user": map[string]any{
			"cart":   nonNilRaw(user.Cart),
			"orders": nonNilRaw(user.Orders),
		},
	})
}

// nonNilRaw はnilスライスを空配列として返す。JSONでnullではなく[]にするため。
func nonNilRaw(items []json.RawMessage) []json.RawMessage {
	if items == nil {
		return []json.RawMessage{}
	}
	return items
}
