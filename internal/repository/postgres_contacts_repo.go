package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/hitoshi/forky/internal/model"
)

// PostgresContactsUserRepo はPostgreSQLを使用した連絡帳のユーザーリポジトリ。
type PostgresContactsUserRepo struct {
	db *sql.DB
}

// NewPostgresContactsUserRepo はPostgresContactsUserRepoを生成する。
func NewPostgresContactsUserRepo(db *sql.DB) *PostgresContactsUserRepo {
	return &PostgresContactsUserRepo{db: db}
}

// CreateAccount はユーザーを作成する。usernameが重複する場合はErrDuplicateを返す。
func (r *PostgresContactsUserRepo) CreateAccount(ctx context.Context, account *model.Account) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO contacts_users (id, name, username, password_hash, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $5)`,
		account.ID, account.Name, account.Login, account.PasswordHash, account.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("failed to insert contacts user: %w", err)
	}
	return nil
}

// FindAccountByLogin はusernameでアカウントを取得する。見つからない場合はnilを返す。
func (r *PostgresContactsUserRepo) FindAccountByLogin(ctx context.Context, login string) (*model.Account, error) {
	account := &model.Account{Tenant: model.TenantContacts}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, name, username, password_hash, created_at FROM contacts_users WHERE username = $1`,
		login,
	).Scan(&account.ID, &account.Name, &account.Login, &account.PasswordHash, &account.CreatedAt)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find contacts user by username: %w", err)
	}
	return account, nil
}

// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
func (r *PostgresContactsUserRepo) FindByID(ctx context.Context, id string) (*model.ContactsUser, error) {
	user := &model.ContactsUser{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, name, username, password_hash, created_at, updated_at FROM contacts_users WHERE id = $1`,
		id,
	).Scan(&user.ID, &user.Name, &user.Username, &user.PasswordHash, &user.CreatedAt, &user.UpdatedAt)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find contacts user by ID: %w", err)
	}
	return user, nil
}

const contactColumns = `id, user_id, name, ph_num, created_at, updated_at`

// PostgresContactRepo はPostgreSQLを使用した連絡先リポジトリ。
// ID指定の操作はすべてuser_idで絞り込む。
type PostgresContactRepo struct {
	db *sql.DB
}

// NewPostgresContactRepo はPostgresContactRepoを生成する。
func NewPostgresContactRepo(db *sql.DB) *PostgresContactRepo {
	return &PostgresContactRepo{db: db}
}

// Create は連絡先を作成する。
func (r *PostgresContactRepo) Create(ctx context.Context, contact *model.Contact) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO contacts (id, user_id, name, ph_num, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		contact.ID, contact.UserID, contact.Name, contact.PhoneNum, contact.CreatedAt, contact.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert contact: %w", err)
	}
	return nil
}

// ListByUserID は所有者の連絡先一覧を作成日時順に返す。
func (r *PostgresContactRepo) ListByUserID(ctx context.Context, userID string) ([]*model.Contact, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+contactColumns+` FROM contacts WHERE user_id = $1 ORDER BY created_at ASC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list contacts: %w", err)
	}
	defer rows.Close()

	contacts := []*model.Contact{}
	for rows.Next() {
		c := &model.Contact{}
		if err := rows.Scan(&c.ID, &c.UserID, &c.Name, &c.PhoneNum, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan contact: %w", err)
		}
		contacts = append(contacts, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate contacts: %w", err)
	}
	return contacts, nil
}

// FindByIDAndUserID は所有者の連絡先を取得する。見つからない場合はnilを返す。
func (r *PostgresContactRepo) FindByIDAndUserID(ctx context.Context, id, userID string) (*model.Contact, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+contactColumns+` FROM contacts WHERE id = $1 AND user_id = $2`,
		id, userID,
	)
	contact, err := scanContact(row)
	if err != nil {
		return nil, fmt.Errorf("failed to find contact: %w", err)
	}
	return contact, nil
}

// UpdateByIDAndUserID は所有者の連絡先を部分更新する。見つからない場合はnilを返す。
// user_idは更新対象に含めない。
func (r *PostgresContactRepo) UpdateByIDAndUserID(ctx context.Context, id, userID string, update model.ContactUpdate) (*model.Contact, error) {
	row := r.db.QueryRowContext(ctx,
		`UPDATE contacts
		 SET name = COALESCE($3, name), ph_num = COALESCE($4, ph_num), updated_at = now()
		 WHERE id = $1 AND user_id = $2
		 RETURNING `+contactColumns,
		id, userID, update.Name, update.PhoneNum,
	)
	contact, err := scanContact(row)
	if err != nil {
		return nil, fmt.Errorf("failed to update contact: %w", err)
	}
	return contact, nil
}

// DeleteByIDAndUserID は所有者の連絡先を削除し、削除した連絡先を返す。見つからない場合はnilを返す。
func (r *PostgresContactRepo) DeleteByIDAndUserID(ctx context.Context, id, userID string) (*model.Contact, error) {
	row := r.db.QueryRowContext(ctx,
		`DELETE FROM contacts WHERE id = $1 AND user_id = $2 RETURNING `+contactColumns,
		id, userID,
	)
	contact, err := scanContact(row)
	if err != nil {
		return nil, fmt.Errorf("failed to delete contact: %w", err)
	}
	return contact, nil
}

func scanContact(row *sql.Row) (*model.Contact, error) {
	c := &model.Contact{}
	err := row.Scan(&c.ID, &c.UserID, &c.Name, &c.PhoneNum, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return c, nil
}

// compile-time interface check
var (
	_ ContactsUserRepository = (*PostgresContactsUserRepo)(nil)
	_ ContactRepository      = (*PostgresContactRepo)(nil)
)
