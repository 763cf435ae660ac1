package repository

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"

	"github.com/hitoshi/forky/internal/model"
)

func newMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db, mock
}

func assertExpectations(t *testing.T, mock sqlmock.Sqlmock) {
	t.Helper()
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

var shopUserRowColumns = []string{"id", "name", "email", "password_hash", "cart", "orders", "created_at", "updated_at"}

func TestPostgresShopUserRepo_CreateAccount_Success(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPostgresShopUserRepo(db)

	mock.ExpectExec(`(?s)^INSERT\s+INTO\s+shop_users`).
		WithArgs("u-1", "Alice", "a@x.com", "hash", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.CreateAccount(context.Background(), &model.Account{
		ID: "u-1", Name: "Alice", Login: "a@x.com", PasswordHash: "hash", CreatedAt: time.Now(),
	})
	if err != nil {
		t.Fatalf("CreateAccount error: %v", err)
	}
	assertExpectations(t, mock)
}

func TestPostgresShopUserRepo_CreateAccount_Duplicate(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPostgresShopUserRepo(db)

	mock.ExpectExec(`INSERT\s+INTO\s+shop_users`).
		WillReturnError(&pq.Error{Code: "23505", Constraint: "shop_users_email_key"})

	err := repo.CreateAccount(context.Background(), &model.Account{ID: "u-1", Login: "a@x.com"})
	if !errors.Is(err, ErrDuplicate) {
		t.Fatalf("want ErrDuplicate, got %v", err)
	}
}

func TestPostgresShopUserRepo_CreateAccount_OtherError(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPostgresShopUserRepo(db)

	mock.ExpectExec(`INSERT\s+INTO\s+shop_users`).WillReturnError(errors.New("db down"))

	err := repo.CreateAccount(context.Background(), &model.Account{ID: "u-1", Login: "a@x.com"})
	if err == nil || errors.Is(err, ErrDuplicate) {
		t.Fatalf("want wrapped db error, got %v", err)
	}
}

func TestPostgresShopUserRepo_FindAccountByLogin_NotFound(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPostgresShopUserRepo(db)

	mock.ExpectQuery(`SELECT\s+id,\s*name,\s*email,\s*password_hash,\s*created_at\s+FROM\s+shop_users\s+WHERE\s+email\s*=\s*\$1`).
		WithArgs("ghost@x.com").
		WillReturnError(sql.ErrNoRows)

	got, err := repo.FindAccountByLogin(context.Background(), "ghost@x.com")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != nil {
		t.Fatalf("want nil, got %+v", got)
	}
}

func TestPostgresShopUserRepo_FindAccountByLogin_Found(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPostgresShopUserRepo(db)

	now := time.Now()
	mock.ExpectQuery(`FROM\s+shop_users\s+WHERE\s+email`).
		WithArgs("a@x.com").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "email", "password_hash", "created_at"}).
			AddRow("u-1", "Alice", "a@x.com", "hash", now))

	got, err := repo.FindAccountByLogin(context.Background(), "a@x.com")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.ID != "u-1" || got.Login != "a@x.com" || got.Tenant != model.TenantShop {
		t.Fatalf("unexpected account: %+v", got)
	}
}

func TestPostgresShopUserRepo_FindByID_DecodesCartAndOrders(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPostgresShopUserRepo(db)

	now := time.Now()
	mock.ExpectQuery(`FROM\s+shop_users\s+WHERE\s+id\s*=\s*\$1`).
		WithArgs("u-1").
		WillReturnRows(sqlmock.NewRows(shopUserRowColumns).
			AddRow("u-1", "Alice", "a@x.com", "hash", []byte(`[{"sku":"p1"}]`), []byte(`[]`), now, now))

	got, err := repo.FindByID(context.Background(), "u-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got.Cart) != 1 || string(got.Cart[0]) != `{"sku":"p1"}` {
		t.Errorf("cart = %s, want one item", got.Cart)
	}
	if got.Orders == nil || len(got.Orders) != 0 {
		t.Errorf("orders = %v, want empty non-nil slice", got.Orders)
	}
}

func TestPostgresShopUserRepo_UpdateCart_NotFound(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPostgresShopUserRepo(db)

	mock.ExpectQuery(`UPDATE\s+shop_users\s+SET\s+cart\s*=\s*\$2::jsonb`).
		WithArgs("u-404", `[]`).
		WillReturnRows(sqlmock.NewRows(shopUserRowColumns))

	got, err := repo.UpdateCart(context.Background(), "u-404", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != nil {
		t.Fatalf("want nil, got %+v", got)
	}
}

// ConfirmOrderはリクエストの値ではなく保存済みのcartを1つのUPDATE文でordersに移すことを検証
func TestPostgresShopUserRepo_ConfirmOrder_MovesStoredCart(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPostgresShopUserRepo(db)

	now := time.Now()
	// 保存済みcartは[A,B]。クライアントが別の値を送っても参照されない
	mock.ExpectQuery(`(?s)UPDATE\s+shop_users\s+SET\s+orders\s*=\s*orders\s*\|\|\s*cart,\s*cart\s*=\s*'\[\]'::jsonb.*WHERE\s+id\s*=\s*\$1`).
		WithArgs("u-1").
		WillReturnRows(sqlmock.NewRows(shopUserRowColumns).
			AddRow("u-1", "Alice", "a@x.com", "hash", []byte(`[]`), []byte(`[{"sku":"p0"},{"sku":"A"},{"sku":"B"}]`), now, now))

	got, err := repo.ConfirmOrder(context.Background(), "u-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got.Cart) != 0 {
		t.Errorf("cart should be empty, got %s", got.Cart)
	}
	want := []string{`{"sku":"p0"}`, `{"sku":"A"}`, `{"sku":"B"}`}
	if len(got.Orders) != len(want) {
		t.Fatalf("orders length = %d, want %d", len(got.Orders), len(want))
	}
	for i, w := range want {
		if string(got.Orders[i]) != w {
			t.Errorf("orders[%d] = %s, want %s", i, got.Orders[i], w)
		}
	}
	assertExpectations(t, mock)
}

func TestPostgresShopUserRepo_ConfirmOrder_NotFound(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPostgresShopUserRepo(db)

	mock.ExpectQuery(`UPDATE\s+shop_users`).
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows(shopUserRowColumns))

	got, err := repo.ConfirmOrder(context.Background(), "missing")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != nil {
		t.Errorf("expected nil user, got %+v", got)
	}
	assertExpectations(t, mock)
}

func TestPostgresProductRepo_List(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPostgresProductRepo(db)

	now := time.Now()
	mock.ExpectQuery(`SELECT\s+.+\s+FROM\s+products\s+ORDER\s+BY\s+created_at`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "title", "description", "price", "category", "out_of_stock", "photo", "created_at"}).
			AddRow("p-1", "Gizmo", "desc", 12.5, "tools", false, "https://img", now).
			AddRow("p-2", "Gadget", "desc", 99.0, "tools", true, "https://img2", now))

	got, err := repo.List(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 2 || got[0].Price != 12.5 || !got[1].OutOfStock {
		t.Fatalf("unexpected products: %+v", got)
	}
}

func TestPostgresProductRepo_Create(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPostgresProductRepo(db)

	mock.ExpectExec(`INSERT\s+INTO\s+products`).
		WithArgs("p-1", "Gizmo", "desc", 12.5, "tools", false, "https://img", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.Create(context.Background(), &model.Product{
		ID: "p-1", Title: "Gizmo", Description: "desc", Price: 12.5, Category: "tools", Photo: "https://img",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	assertExpectations(t, mock)
}

func TestIsUniqueViolation(t *testing.T) {
	if !isUniqueViolation(&pq.Error{Code: "23505"}) {
		t.Error("23505 should be a unique violation")
	}
	if isUniqueViolation(&pq.Error{Code: "23503"}) {
		t.Error("23503 should not be a unique violation")
	}
	if isUniqueViolation(errors.New("duplicate key value")) {
		t.Error("plain errors should not be treated as unique violations")
	}
}
