package users

import (
	"strings"
	"time"
)

const maxUsernameLength = 190

// Account is a vault user identified by username alone.
type Account struct {
	Username   string    `gorm:"column:username;primaryKey;size:190;not null"`
	LastSeenAt time.Time `gorm:"column:last_seen_at;not null"`
	CreatedAt  time.Time `gorm:"column:created_at;autoCreateTime"`
}

// TableName exposes the table backing vault accounts.
func (Account) TableName() string {
	return "vault_accounts"
}

func normalize(value string) string {
	return strings.TrimSpace(value)
}
