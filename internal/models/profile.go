package models

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Profile struct {
	ID        string         `json:"id" gorm:"primaryKey;type:uuid"`
	Email     string         `json:"email" gorm:"uniqueIndex;not null;size:255"`
	FullName  string         `json:"full_name" gorm:"size:200"`
	AvatarURL *string        `json:"avatar_url" gorm:"size:500"`
	Roles     datatypes.JSON `json:"roles" gorm:"type:jsonb"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

func (Profile) TableName() string {
	return "profiles"
}

func (p *Profile) BeforeCreate(tx *gorm.DB) error {
	p.ID = ensureID(p.ID)
	p.Email = NormalizeEmail(p.Email)
	if len(p.Roles) == 0 {
		p.Roles = datatypes.JSON("[]")
	}
	return nil
}

// RoleNames decodes the roles column. Malformed content reads as no roles.
func (p *Profile) RoleNames() []string {
	return decodeRoles(p.Roles)
}

func (p *Profile) SetRoles(roles []string) {
	p.Roles = encodeRoles(roles)
}

// WhitelistEntry grants sign-in to an email that has no profile yet
type WhitelistEntry struct {
	ID        string         `json:"id" gorm:"primaryKey;type:uuid"`
	Email     string         `json:"email" gorm:"uniqueIndex;not null;size:255"`
	Roles     datatypes.JSON `json:"roles" gorm:"type:jsonb"`
	AddedBy   string         `json:"added_by" gorm:"size:255"`
	Note      *string        `json:"note" gorm:"size:500"`
	CreatedAt time.Time      `json:"created_at"`
}

func (WhitelistEntry) TableName() string {
	return "whitelist"
}

func (w *WhitelistEntry) BeforeCreate(tx *gorm.DB) error {
	w.ID = ensureID(w.ID)
	w.Email = NormalizeEmail(w.Email)
	if len(w.Roles) == 0 {
		w.Roles = datatypes.JSON("[]")
	}
	return nil
}

func (w *WhitelistEntry) RoleNames() []string {
	return decodeRoles(w.Roles)
}

func (w *WhitelistEntry) SetRoles(roles []string) {
	w.Roles = encodeRoles(roles)
}

func decodeRoles(raw datatypes.JSON) []string {
	if len(raw) == 0 {
		return nil
	}
	var roles []string
	if err := json.Unmarshal(raw, &roles); err != nil {
		return nil
	}
	return roles
}

func encodeRoles(roles []string) datatypes.JSON {
	if roles == nil {
		roles = []string{}
	}
	data, err := json.Marshal(roles)
	if err != nil {
		return datatypes.JSON("[]")
	}
	return datatypes.JSON(data)
}
