package models

import "time"

// APIKey stores the hashed credential of a partner client. Only the prefix
// of the plaintext key is retained for lookup.
type APIKey struct {
	ID         int64      `gorm:"column:id;primaryKey;autoIncrement"`
	ClientName string     `gorm:"column:client_name;not null"`
	Prefix     string     `gorm:"column:prefix;not null;index"`
	KeyHash    string     `gorm:"column:key_hash;not null"`
	Active     bool       `gorm:"column:active;not null;default:true"`
	LastUsedAt *time.Time `gorm:"column:last_used_at"`
	CreatedAt  time.Time  `gorm:"column:created_at;autoCreateTime"`
	RevokedAt  *time.Time `gorm:"column:revoked_at"`
}

// TableName overrides the GORM default.
func (APIKey) TableName() string {
	return "api_keys"
}
