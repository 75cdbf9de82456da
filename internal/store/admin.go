package store

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/netology-group/iam/internal/iamerr"
	"github.com/netology-group/iam/internal/model"
	registrystore "github.com/netology-group/iam/internal/registry/store"
)

var _ registrystore.AdminStore = (*Store)(nil)

func (s *Store) CreateNamespace(ctx context.Context, label string) (model.Namespace, error) {
	ns := model.Namespace{ID: uuid.New(), Label: label, CreatedAt: time.Now()}
	if err := s.DB.WithContext(ctx).Create(&ns).Error; err != nil {
		return model.Namespace{}, wrapErr(err, "create namespace")
	}
	return ns, nil
}

func (s *Store) EnsureNamespace(ctx context.Context, id uuid.UUID, label string) (model.Namespace, error) {
	ns := model.Namespace{ID: id, Label: label, CreatedAt: time.Now()}
	if err := s.DB.WithContext(ctx).Clauses(onConflictDoNothing("id")).Create(&ns).Error; err != nil {
		return model.Namespace{}, wrapErr(err, "ensure namespace")
	}
	got, err := s.GetNamespace(ctx, id)
	if err != nil {
		return model.Namespace{}, err
	}
	return *got, nil
}

func (s *Store) GetNamespace(ctx context.Context, id uuid.UUID) (*model.Namespace, error) {
	var ns model.Namespace
	err := s.DB.WithContext(ctx).Where("deleted_at IS NULL").First(&ns, "id = ?", id).Error
	if isNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, wrapErr(err, "get namespace")
	}
	return &ns, nil
}

func (s *Store) ListNamespaces(ctx context.Context, limit, offset int) ([]model.Namespace, error) {
	var rows []model.Namespace
	q := s.DB.WithContext(ctx).Where("deleted_at IS NULL").Order("created_at")
	if limit > 0 {
		q = q.Limit(limit).Offset(offset)
	}
	if err := q.Find(&rows).Error; err != nil {
		return nil, wrapErr(err, "list namespaces")
	}
	return rows, nil
}

func (s *Store) SoftDeleteNamespace(ctx context.Context, id uuid.UUID) error {
	now := time.Now()
	err := s.DB.WithContext(ctx).Model(&model.Namespace{}).
		Where("id = ? AND deleted_at IS NULL", id).
		Update("deleted_at", now).Error
	return wrapErr(err, "soft delete namespace")
}

func (s *Store) CreateAccount(ctx context.Context, namespaceID uuid.UUID) (model.Account, error) {
	account := model.Account{ID: uuid.New(), NamespaceID: namespaceID, CreatedAt: time.Now()}
	if err := s.DB.WithContext(ctx).Create(&account).Error; err != nil {
		return model.Account{}, wrapErr(err, "create account")
	}
	return account, nil
}

func (s *Store) EnsureAccount(ctx context.Context, id, namespaceID uuid.UUID) (model.Account, error) {
	account := model.Account{ID: id, NamespaceID: namespaceID, CreatedAt: time.Now()}
	if err := s.DB.WithContext(ctx).Clauses(onConflictDoNothing("id")).Create(&account).Error; err != nil {
		return model.Account{}, wrapErr(err, "ensure account")
	}
	got, err := s.GetAccount(ctx, id)
	if err != nil {
		return model.Account{}, err
	}
	return *got, nil
}

func (s *Store) ListAccounts(ctx context.Context, namespaceID uuid.UUID, limit, offset int) ([]model.Account, error) {
	var rows []model.Account
	q := s.DB.WithContext(ctx).Where("namespace_id = ?", namespaceID).Order("created_at")
	if limit > 0 {
		q = q.Limit(limit).Offset(offset)
	}
	if err := q.Find(&rows).Error; err != nil {
		return nil, wrapErr(err, "list accounts")
	}
	return rows, nil
}

func (s *Store) SetAccountDisabled(ctx context.Context, id uuid.UUID, disabled bool) error {
	var disabledAt *time.Time
	if disabled {
		now := time.Now()
		disabledAt = &now
	}
	err := s.DB.WithContext(ctx).Model(&model.Account{}).
		Where("id = ?", id).
		Update("disabled_at", disabledAt).Error
	return wrapErr(err, "set account disabled")
}

func (s *Store) DeleteAccount(ctx context.Context, id uuid.UUID) error {
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("account_id = ?", id).Delete(&model.Identity{}).Error; err != nil {
			return err
		}
		if err := tx.Where("account_id = ?", id).Delete(&model.RefreshTokenRecord{}).Error; err != nil {
			return err
		}
		return tx.Delete(&model.Account{}, "id = ?", id).Error
	})
	return wrapErr(err, "delete account")
}

func (s *Store) CreateIdentity(ctx context.Context, identity model.Identity) error {
	identity.CreatedAt = time.Now()
	err := s.DB.WithContext(ctx).Clauses(onConflictDoNothing("provider", "label", "sub")).Create(&identity).Error
	return wrapErr(err, "create identity")
}

func (s *Store) ListIdentities(ctx context.Context, accountID uuid.UUID, limit, offset int) ([]model.Identity, error) {
	var rows []model.Identity
	q := s.DB.WithContext(ctx).Where("account_id = ?", accountID).Order("created_at")
	if limit > 0 {
		q = q.Limit(limit).Offset(offset)
	}
	if err := q.Find(&rows).Error; err != nil {
		return nil, wrapErr(err, "list identities")
	}
	return rows, nil
}

// DeleteIdentity removes one identity, cascading to the account and its
// refresh-token record when it was the account's last identity. The whole
// operation runs in one transaction so a concurrent identity creation never
// races a cascade into deleting an account that just gained a new identity.
func (s *Store) DeleteIdentity(ctx context.Context, provider, label, sub string) (bool, uuid.UUID, error) {
	var cascaded bool
	var accountID uuid.UUID
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var identity model.Identity
		err := tx.Where("provider = ? AND label = ? AND sub = ?", provider, label, sub).First(&identity).Error
		if isNotFound(err) {
			return iamerr.NotFound("identity not found")
		}
		if err != nil {
			return err
		}
		accountID = identity.AccountID

		if err := tx.Delete(&identity).Error; err != nil {
			return err
		}

		var remaining int64
		if err := tx.Model(&model.Identity{}).Where("account_id = ?", accountID).Count(&remaining).Error; err != nil {
			return err
		}
		if remaining > 0 {
			return nil
		}

		cascaded = true
		if err := tx.Where("account_id = ?", accountID).Delete(&model.RefreshTokenRecord{}).Error; err != nil {
			return err
		}
		return tx.Delete(&model.Account{}, "id = ?", accountID).Error
	})
	if err != nil {
		if _, ok := err.(*iamerr.Error); ok {
			return false, uuid.UUID{}, err
		}
		return false, uuid.UUID{}, wrapErr(err, "delete identity")
	}
	return cascaded, accountID, nil
}
