package store

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/netology-group/iam/internal/authn"
	"github.com/netology-group/iam/internal/model"
)

var _ authn.Store = (*Store)(nil)

// UpsertIdentity returns the Identity for (provider, label, sub), creating
// both the Identity and a fresh Account the first time the triple is seen.
// The insert runs inside a transaction so a concurrent first-sight never
// creates two accounts for the same identity.
func (s *Store) UpsertIdentity(ctx context.Context, provider, label, sub string) (model.Identity, error) {
	var out model.Identity
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing model.Identity
		err := tx.Where("provider = ? AND label = ? AND sub = ?", provider, label, sub).First(&existing).Error
		if err == nil {
			out = existing
			return nil
		}
		if !isNotFound(err) {
			return err
		}

		ns, err := getNamespaceByLabelTx(tx, label)
		if err != nil {
			return err
		}
		if ns == nil {
			ns = &model.Namespace{ID: uuid.New(), Label: label, CreatedAt: time.Now()}
			if err := tx.Clauses(onConflictDoNothing("label")).Create(ns).Error; err != nil {
				return err
			}
		}

		account := model.Account{ID: uuid.New(), NamespaceID: ns.ID, CreatedAt: time.Now()}
		if err := tx.Create(&account).Error; err != nil {
			return err
		}
		identity := model.Identity{Provider: provider, Label: label, Sub: sub, AccountID: account.ID, CreatedAt: time.Now()}
		if err := tx.Clauses(onConflictDoNothing("provider", "label", "sub")).Create(&identity).Error; err != nil {
			return err
		}
		out = identity
		return nil
	})
	if err != nil {
		return model.Identity{}, wrapErr(err, "upsert identity")
	}
	return out, nil
}

func (s *Store) GetAccount(ctx context.Context, id uuid.UUID) (*model.Account, error) {
	var a model.Account
	err := s.DB.WithContext(ctx).First(&a, "id = ?", id).Error
	if isNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, wrapErr(err, "get account")
	}
	return &a, nil
}

func (s *Store) GetNamespaceByLabel(ctx context.Context, label string) (*model.Namespace, error) {
	return getNamespaceByLabelTx(s.DB.WithContext(ctx), label)
}

func getNamespaceByLabelTx(tx *gorm.DB, label string) (*model.Namespace, error) {
	var ns model.Namespace
	err := tx.Where("label = ?", label).First(&ns).Error
	if isNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &ns, nil
}

func (s *Store) GetRefreshTokens(ctx context.Context, accountID uuid.UUID) (*model.RefreshTokenRecord, error) {
	var rec model.RefreshTokenRecord
	err := s.DB.WithContext(ctx).First(&rec, "account_id = ?", accountID).Error
	if isNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, wrapErr(err, "get refresh tokens")
	}
	return &rec, nil
}

func (s *Store) PutRefreshTokens(ctx context.Context, rec model.RefreshTokenRecord) error {
	rec.UpdatedAt = time.Now()
	err := s.DB.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "account_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"keys", "updated_at"}),
	}).Create(&rec).Error
	return wrapErr(err, "put refresh tokens")
}
