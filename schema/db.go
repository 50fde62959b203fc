package schema

import (
	"time"

	"gorm.io/datatypes"
)

const (
	// activity types
	ActivityRegistration = "ens_registration"
	ActivityRenewal      = "ens_renewal"
	ActivityWatchHit     = "watch_hit"

	// activity status
	ActivityCompleted = "completed"
	ActivityFailed    = "failed"

	// watched domain status
	WatchStatusTaken     = "taken"
	WatchStatusAvailable = "available"
	WatchStatusError     = "error"
)

type Activity struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`

	Type   string `json:"type"`
	Name   string `gorm:"index:idx_activity_name" json:"name"`
	Owner  string `gorm:"index:idx_activity_owner" json:"owner"`
	TxHash string `json:"txHash"`
	Status string `json:"status"`

	Metadata datatypes.JSON `json:"metadata"`
}

type WatchedDomain struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`

	Label     string    `gorm:"unique" json:"label"`
	Owner     string    `gorm:"index:idx_watch_owner" json:"owner"`
	Status    string    `json:"status"`
	CheckedAt time.Time `json:"checkedAt"`
	Notified  bool      `json:"notified"`
}

type RegistrationRecord struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"createdAt"`

	Name            string `gorm:"index:idx_reg_name" json:"name"`
	Owner           string `gorm:"index:idx_reg_owner" json:"owner"`
	DurationSeconds int64  `json:"durationSeconds"`
	TxHash          string `gorm:"unique" json:"txHash"`
	TotalPaid       string `json:"totalPaid"` // wei
}
