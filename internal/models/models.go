package models

import "time"

type PrivacyLevel string

const (
	PrivacyMinimal  PrivacyLevel = "minimal"
	PrivacyStandard PrivacyLevel = "standard"
	PrivacyHigh     PrivacyLevel = "high"
)

func (p PrivacyLevel) Valid() bool {
	switch p {
	case PrivacyMinimal, PrivacyStandard, PrivacyHigh:
		return true
	}
	return false
}

// Account is a registered user. Password and VerificationToken never leave
// the server.
type Account struct {
	ID                int64        `json:"id" gorm:"primaryKey"`
	Username          string       `json:"username" gorm:"type:varchar(64);not null;uniqueIndex"`
	Email             string       `json:"email" gorm:"type:varchar(255);not null;uniqueIndex"`
	Password          string       `json:"-" gorm:"column:hashed_password;type:varchar(255);not null"`
	FullName          string       `json:"full_name" gorm:"type:varchar(255)"`
	AvatarURL         string       `json:"avatar_url" gorm:"type:varchar(512)"`
	PrivacyLevel      PrivacyLevel `json:"privacy_level" gorm:"type:varchar(16);not null"`
	IsActive          bool         `json:"is_active" gorm:"not null"`
	IsVerified        bool         `json:"is_verified" gorm:"not null"`
	VerificationToken string       `json:"-" gorm:"type:varchar(64);index"`
	IdentityCount     int          `json:"identity_count" gorm:"not null"`
	LastLogin         *time.Time   `json:"last_login"`
	CreatedAt         time.Time    `json:"created_at"`
	UpdatedAt         time.Time    `json:"updated_at"`
}

func (Account) TableName() string { return "users" }

// Identity is a persona owned by exactly one account.
type Identity struct {
	ID           int64        `json:"id" gorm:"primaryKey"`
	AccountID    int64        `json:"user_id" gorm:"column:user_id;not null;index"`
	Account      *Account     `json:"-" gorm:"constraint:OnDelete:CASCADE"`
	DisplayName  string       `json:"display_name" gorm:"type:varchar(255);not null"`
	Email        string       `json:"email" gorm:"type:varchar(255)"`
	Phone        string       `json:"phone" gorm:"type:varchar(64)"`
	Title        string       `json:"title" gorm:"type:varchar(255)"`
	Bio          string       `json:"bio" gorm:"type:text"`
	AvatarURL    string       `json:"avatar_url" gorm:"type:varchar(512)"`
	IsDefault    bool         `json:"is_default" gorm:"not null"`
	IsPublic     bool         `json:"is_public" gorm:"not null"`
	PrivacyLevel PrivacyLevel `json:"privacy_level" gorm:"type:varchar(16);not null"`
	SocialLinks  SocialLinks  `json:"social_links" gorm:"type:text"`
	UsageCount   int          `json:"usage_count" gorm:"not null"`
	UseCase      string       `json:"use_case" gorm:"type:text"`
	LastUsed     *time.Time   `json:"last_used"`
	CreatedAt    time.Time    `json:"created_at"`
	UpdatedAt    time.Time    `json:"updated_at"`

	// ContextCount is filled by list queries, never stored.
	ContextCount int `json:"context_count" gorm:"->;-:migration"`
}

func (Identity) TableName() string { return "identities" }

// PublicIdentity is the view of an identity shown to whoever the owner
// presents it to.
type PublicIdentity struct {
	ID          int64       `json:"id"`
	DisplayName string      `json:"display_name"`
	Title       string      `json:"title,omitempty"`
	Bio         string      `json:"bio,omitempty"`
	AvatarURL   string      `json:"avatar_url,omitempty"`
	SocialLinks SocialLinks `json:"social_links,omitempty"`
}

func (i *Identity) Public() PublicIdentity {
	return PublicIdentity{
		ID:          i.ID,
		DisplayName: i.DisplayName,
		Title:       i.Title,
		Bio:         i.Bio,
		AvatarURL:   i.AvatarURL,
		SocialLinks: i.SocialLinks,
	}
}

// Context is a named grouping owned by exactly one account.
type Context struct {
	ID          int64     `json:"id" gorm:"primaryKey"`
	AccountID   int64     `json:"user_id" gorm:"column:user_id;not null;index"`
	Account     *Account  `json:"-" gorm:"constraint:OnDelete:CASCADE"`
	Name        string    `json:"name" gorm:"type:varchar(255);not null"`
	Description string    `json:"description" gorm:"type:text"`
	Icon        string    `json:"icon" gorm:"type:varchar(32)"`
	Color       string    `json:"color" gorm:"type:varchar(16)"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	IdentityCount int `json:"identity_count" gorm:"->;-:migration"`
}

func (Context) TableName() string { return "contexts" }

// IdentityContext is one row of the identity/context association. The
// composite primary key gives the relation set semantics.
type IdentityContext struct {
	IdentityID int64     `gorm:"primaryKey;autoIncrement:false"`
	ContextID  int64     `gorm:"primaryKey;autoIncrement:false;index"`
	Identity   *Identity `gorm:"constraint:OnDelete:CASCADE"`
	Context    *Context  `gorm:"constraint:OnDelete:CASCADE"`
}

func (IdentityContext) TableName() string { return "identity_contexts" }

// Totals are the global row counts reported by the health check.
type Totals struct {
	Users      int64 `json:"users_count"`
	Identities int64 `json:"identities_count"`
	Contexts   int64 `json:"contexts_count"`
}
