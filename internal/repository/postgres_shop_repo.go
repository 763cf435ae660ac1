package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/hitoshi/forky/internal/model"
)

const shopUserColumns = `id, name, email, password_hash, cart, orders, created_at, updated_at`

// PostgresShopUserRepo はPostgreSQLを使用したストアフロントのユーザーリポジトリ。
type PostgresShopUserRepo struct {
	db *sql.DB
}

// NewPostgresShopUserRepo はPostgresShopUserRepoを生成する。
func NewPostgresShopUserRepo(db *sql.DB) *PostgresShopUserRepo {
	return &PostgresShopUserRepo{db: db}
}

// CreateAccount はユーザーを作成する。emailが重複する場合はErrDuplicateを返す。
func (r *PostgresShopUserRepo) CreateAccount(ctx context.Context, account *model.Account) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO shop_users (id, name, email, password_hash, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $5)`,
		account.ID, account.Name, account.Login, account.PasswordHash, account.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("failed to insert shop user: %w", err)
	}
	return nil
}

// FindAccountByLogin はemailでアカウントを取得する。見つからない場合はnilを返す。
func (r *PostgresShopUserRepo) FindAccountByLogin(ctx context.Context, login string) (*model.Account, error) {
	account := &model.Account{Tenant: model.TenantShop}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, name, email, password_hash, created_at FROM shop_users WHERE email = $1`,
		login,
	).Scan(&account.ID, &account.Name, &account.Login, &account.PasswordHash, &account.CreatedAt)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find shop user by email: %w", err)
	}
	return account, nil
}

// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
func (r *PostgresShopUserRepo) FindByID(ctx context.Context, id string) (*model.ShopUser, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+shopUserColumns+` FROM shop_users WHERE id = $1`,
		id,
	)
	user, err := scanShopUser(row)
	if err != nil {
		return nil, fmt.Errorf("failed to find shop user by ID: %w", err)
	}
	return user, nil
}

// UpdateCart はカートを置き換える。ユーザーが見つからない場合はnilを返す。
func (r *PostgresShopUserRepo) UpdateCart(ctx context.Context, id string, cart []json.RawMessage) (*model.ShopUser, error) {
	cartJSON, err := marshalItems(cart)
	if err != nil {
		return nil, err
	}

	row := r.db.QueryRowContext(ctx,
		`UPDATE shop_users SET cart = $2::jsonb, updated_at = now()
		 WHERE id = $1
		 RETURNING `+shopUserColumns,
		id, cartJSON,
	)
	user, err := scanShopUser(row)
	if err != nil {
		return nil, fmt.Errorf("failed to update cart: %w", err)
	}
	return user, nil
}

// ConfirmOrder は保存済みのカートを注文履歴に追記し、カートを空にする。
// 追記と空にする操作は同一のUPDATE文で行うため、カートが分割されることはない。
func (r *PostgresShopUserRepo) ConfirmOrder(ctx context.Context, id string) (*model.ShopUser, error) {
	row := r.db.QueryRowContext(ctx,
		`UPDATE shop_users SET orders = orders || cart, cart = '[]'::jsonb, updated_at = now()
		 WHERE id = $1
		 RETURNING `+shopUserColumns,
		id,
	)
	user, err := scanShopUser(row)
	if err != nil {
		return nil, fmt.Errorf("failed to confirm order: %w", err)
	}
	return user, nil
}

// scanShopUser は1行をShopUserに変換する。行がない場合はnil, nilを返す。
func scanShopUser(row *sql.Row) (*model.ShopUser, error) {
	user := &model.ShopUser{}
	var cartJSON, ordersJSON []byte
	err := row.Scan(
		&user.ID, &user.Name, &user.Email, &user.PasswordHash,
		&cartJSON, &ordersJSON, &user.CreatedAt, &user.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if user.Cart, err = unmarshalItems(cartJSON); err != nil {
		return nil, fmt.Errorf("failed to decode cart: %w", err)
	}
	if user.Orders, err = unmarshalItems(ordersJSON); err != nil {
		return nil, fmt.Errorf("failed to decode orders: %w", err)
	}
	return user, nil
}

// marshalItems はカート要素の配列をJSONB用の文字列に変換する。nilは空配列として扱う。
func marshalItems(items []json.RawMessage) (string, error) {
	if items == nil {
		items = []json.RawMessage{}
	}
	b, err := json.Marshal(items)
	if err != nil {
		return "", fmt.Errorf("failed to encode items: %w", err)
	}
	return string(b), nil
}

func unmarshalItems(b []byte) ([]json.RawMessage, error) {
	items := []json.RawMessage{}
	if len(b) == 0 {
		return items, nil
	}
	if err := json.Unmarshal(b, &items); err != nil {
		return nil, err
	}
	return items, nil
}

// PostgresProductRepo はPostgreSQLを使用した商品リポジトリ。
type PostgresProductRepo struct {
	db *sql.DB
}

// NewPostgresProductRepo はPostgresProductRepoを生成する。
func NewPostgresProductRepo(db *sql.DB) *PostgresProductRepo {
	return &PostgresProductRepo{db: db}
}

// Create は商品を作成する。
func (r *PostgresProductRepo) Create(ctx context.Context, product *model.Product) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO products (id, title, description, price, category, out_of_stock, photo, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		product.ID, product.Title, product.Description, product.Price,
		product.Category, product.OutOfStock, product.Photo, product.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert product: %w", err)
	}
	return nil
}

// List は全商品を作成日時順に返す。
func (r *PostgresProductRepo) List(ctx context.Context) ([]*model.Product, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, title, description, price, category, out_of_stock, photo, created_at
		 FROM products ORDER BY created_at ASC`,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	defer rows.Close()

	products := []*model.Product{}
	for rows.Next() {
		p := &model.Product{}
		if err := rows.Scan(
			&p.ID, &p.Title, &p.Description, &p.Price,
			&p.Category, &p.OutOfStock, &p.Photo, &p.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate products: %w", err)
	}
	return products, nil
}

// compile-time interface check
var (
	_ ShopUserRepository = (*PostgresShopUserRepo)(nil)
	_ ProductRepository  = (*PostgresProductRepo)(nil)
)
