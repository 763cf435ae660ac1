// Package contacts は連絡帳（callme）テナントのドメインロジックを提供する。
//
// 連絡先は作成したユーザーだけが所有する。ID指定の操作は所有者IDで絞り込むため、
// 他人の連絡先は存在しない連絡先と区別できない。
package contacts

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/forky/internal/authz"
	"github.com/hitoshi/forky/internal/model"
	"github.com/hitoshi/forky/internal/repository"
)

// AllowedUpdateFields は更新リクエストの`update`オブジェクトで受け付けるフィールドの説明。
const AllowedUpdateFields = "update: { name: ??? , ph_num: ??? }"

// ContactInput は連絡先作成の入力値を表す。
type ContactInput struct {
	Name     string
	PhoneNum string
}

// Service は連絡帳のサービス層。
type Service struct {
	users    repository.ContactsUserRepository
	contacts repository.ContactRepository
	now      func() time.Time
	newID    func() string
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(users repository.ContactsUserRepository, contacts repository.ContactRepository) *Service {
	return &Service{
		users:    users,
		contacts: contacts,
		now:      time.Now,
		newID:    func() string { return uuid.New().String() },
	}
}

// Profile はトークンのユーザーのプロフィールを返す。
func (s *Service) Profile(ctx context.Context, userID string) (*model.ContactsUser, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("ユーザーの取得に失敗しました: %w", err)
	}
	if user == nil {
		return nil, model.NewUnauthorizedError("user auto login failed")
	}
	return user, nil
}

// List はパスのユーザーIDとトークンのユーザーIDが一致する場合に連絡先一覧を返す。
func (s *Service) List(ctx context.Context, identity, pathUserID string) ([]*model.Contact, error) {
	if err := authz.CheckRoute(identity, pathUserID); err != nil {
		return nil, err
	}

	contacts, err := s.contacts.ListByUserID(ctx, identity)
	if err != nil {
		return nil, fmt.Errorf("連絡先一覧の取得に失敗しました: %w", err)
	}
	return contacts, nil
}

// Get は所有者の連絡先を返す。
// 他人の連絡先と存在しない連絡先はどちらも401で拒否し、存在有無を区別しない。
func (s *Service) Get(ctx context.Context, identity, contactID string) (*model.Contact, error) {
	if !validID(contactID) {
		return nil, model.NewInvalidIDError("invalid ID for a contact")
	}

	contact, err := s.contacts.FindByIDAndUserID(ctx, contactID, identity)
	if err != nil {
		return nil, fmt.Errorf("連絡先の取得に失敗しました: %w", err)
	}
	if contact == nil {
		return nil, model.NewOwnerMismatchError()
	}
	return contact, nil
}

// Add は連絡先を作成する。所有者IDはトークンのユーザーIDから設定する。
func (s *Service) Add(ctx context.Context, identity, pathUserID string, in ContactInput) (*model.Contact, error) {
	if err := authz.CheckRoute(identity, pathUserID); err != nil {
		return nil, err
	}

	user, err := s.users.FindByID(ctx, identity)
	if err != nil {
		return nil, fmt.Errorf("ユーザーの取得に失敗しました: %w", err)
	}
	if user == nil {
		return nil, model.NewUserNotFoundError()
	}

	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, model.NewMissingFieldsError(http.StatusBadRequest, "required", "name").
			WithDetail("optional", []string{"ph_num"})
	}

	now := s.now()
	contact := &model.Contact{
		ID:        s.newID(),
		UserID:    identity,
		Name:      name,
		PhoneNum:  strings.TrimSpace(in.PhoneNum),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.contacts.Create(ctx, contact); err != nil {
		return nil, fmt.Errorf("連絡先の作成に失敗しました: %w", err)
	}
	return contact, nil
}

// Update は所有者の連絡先を部分更新する。
// fieldsはリクエストの`update`オブジェクト。nilの場合はフィールド欠落として扱う。
// 所有者フィールドを含む更新はストアに触れる前に拒否する。
func (s *Service) Update(ctx context.Context, identity, contactID string, fields map[string]any) (*model.Contact, error) {
	if fields == nil {
		return nil, missingUpdateError()
	}
	if err := authz.RejectOwnerChange(fields); err != nil {
		return nil, err
	}
	if !validID(contactID) {
		return nil, model.NewInvalidIDError("contact could not be updated, invalid ID")
	}

	update, err := parseUpdate(fields)
	if err != nil {
		return nil, err
	}
	if update.IsEmpty() {
		return nil, missingUpdateError()
	}

	contact, err := s.contacts.UpdateByIDAndUserID(ctx, contactID, identity, update)
	if err != nil {
		return nil, fmt.Errorf("連絡先の更新に失敗しました: %w", err)
	}
	if contact == nil {
		return nil, model.NewOwnerMismatchError()
	}
	return contact, nil
}

// Delete は所有者の連絡先を削除し、削除した連絡先を返す。
func (s *Service) Delete(ctx context.Context, identity, contactID string) (*model.Contact, error) {
	if !validID(contactID) {
		return nil, model.NewInvalidIDError("invalid contact ID")
	}

	contact, err := s.contacts.DeleteByIDAndUserID(ctx, contactID, identity)
	if err != nil {
		return nil, fmt.Errorf("連絡先の削除に失敗しました: %w", err)
	}
	if contact == nil {
		return nil, model.NewOwnerMismatchError()
	}
	return contact, nil
}

func missingUpdateError() *model.APIError {
	return model.NewValidationError(model.ErrCodeMissingFields,
		"body missing object field `update` with optional updated contact details").
		WithDetail("allowedFields", AllowedUpdateFields)
}

// parseUpdate は`update`オブジェクトをContactUpdateに変換する。未知のフィールドは無視する。
func parseUpdate(fields map[string]any) (model.ContactUpdate, error) {
	var update model.ContactUpdate
	for key, dst := range map[string]**string{"name": &update.Name, "ph_num": &update.PhoneNum} {
		raw, ok := fields[key]
		if !ok {
			continue
		}
		value, ok := raw.(string)
		if !ok {
			return update, model.NewValidationError(model.ErrCodeInvalidRequest,
				fmt.Sprintf("`update.%s` must be a string", key))
		}
		value = strings.TrimSpace(value)
		*dst = &value
	}
	if update.Name != nil && *update.Name == "" {
		return update, model.NewValidationError(model.ErrCodeInvalidRequest, "`update.name` must not be empty")
	}
	return update, nil
}

func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}
