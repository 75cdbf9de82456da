// Package model holds the GORM row types for the entities the IAM service
// administers directly: accounts, third-party identities, namespaces, and
// the refresh-token secret history. The ABAC graph's own row types
// (edges, policies) live alongside their store implementation in
// internal/store, since they are pure storage detail with no behavior of
// their own beyond what internal/abac already defines.
package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/netology-group/iam/internal/abac"
)

// Account is the principal every access/refresh token is ultimately
// minted for. It belongs to exactly one namespace.
type Account struct {
	ID          uuid.UUID `gorm:"primaryKey;type:uuid"`
	NamespaceID uuid.UUID `gorm:"type:uuid;not null;index"`
	DisabledAt  *time.Time
	CreatedAt   time.Time
}

func (Account) TableName() string { return "accounts" }

// Identity links a third-party (provider, label, subject) to an Account.
// The composite primary key mirrors the Rust source's PrimaryKey tuple;
// PrimaryKey() renders it the same way abac.IdentityURI expects it.
type Identity struct {
	Provider  string `gorm:"primaryKey"`
	Label     string `gorm:"primaryKey"`
	Sub       string `gorm:"primaryKey"`
	AccountID uuid.UUID `gorm:"type:uuid;not null;index"`
	CreatedAt time.Time
}

func (Identity) TableName() string { return "identities" }

// PrimaryKey renders the identity's composite key as "<sub>.<label>.<provider>",
// the same string abac.IdentityURI embeds in a "uri" attribute.
func (i Identity) PrimaryKey() string {
	return i.Sub + "." + i.Label + "." + i.Provider
}

// Namespace is an ABAC namespace: a scope for the graph's edges and
// policies. Namespaces are identified both by ID and by a human label
// (used to resolve the `aud` an access token is minted for).
type Namespace struct {
	ID        uuid.UUID `gorm:"primaryKey;type:uuid"`
	Label     string    `gorm:"uniqueIndex;not null"`
	CreatedAt time.Time
	DeletedAt *time.Time
}

func (Namespace) TableName() string { return "namespaces" }

// RefreshTokenRecord is the one row per account holding its HS256
// refresh-token secrets. Keys[0] is always the secret new tokens are signed
// with; Refresh and Revoke accept a token signed with any key in the slice.
// Retrieve and Revoke both write a single fresh key, replacing whatever was
// stored, so a token signed with a replaced key no longer verifies.
type RefreshTokenRecord struct {
	AccountID uuid.UUID        `gorm:"primaryKey;type:uuid"`
	Keys      abac.StringArray `gorm:"type:text[]"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (RefreshTokenRecord) TableName() string { return "refresh_tokens" }
