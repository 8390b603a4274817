package model

import "time"

// Account is the denormalized head row for one platform account. The info_*
// and stats_* columns always mirror the most recent AccountInfo/AccountStats
// snapshot; the *_last_update stamps record the last fetch even when nothing
// changed.
type Account struct {
	ID         uint64    `gorm:"primaryKey"`
	Timestamp  time.Time `gorm:"autoCreateTime;index"`
	Status     Status    `gorm:"not null;default:0"`
	Platform   string    `gorm:"size:32;not null;uniqueIndex:uk_platform_identifier"`
	Identifier string    `gorm:"size:191;not null;uniqueIndex:uk_platform_identifier"`
	CreatedAt  time.Time

	SubscriptionsLastUpdate time.Time `gorm:"autoCreateTime"`

	InfoLastUpdate time.Time `gorm:"autoCreateTime"`
	InfoName       *string   `gorm:"size:191;index"`
	InfoBio        *string   `gorm:"type:text"`

	StatsLastUpdate    time.Time `gorm:"autoCreateTime"`
	StatsMedias        *int64
	StatsViews         *int64 `gorm:"type:bigint"`
	StatsFollowers     *int64 `gorm:"type:bigint"`
	StatsSubscriptions *int64 `gorm:"type:bigint"`
}

func (Account) TableName() string { return "account" }

// AccountInfo is an append-only snapshot of the info field group.
type AccountInfo struct {
	ID        uint64    `gorm:"primaryKey"`
	Timestamp time.Time `gorm:"autoCreateTime;index"`
	AccountID uint64    `gorm:"not null;index"`
	Name      *string   `gorm:"size:191"`
	Bio       *string   `gorm:"type:text"`
}

func (AccountInfo) TableName() string { return "account_info" }

// AccountStats is an append-only snapshot of the stats field group.
type AccountStats struct {
	ID            uint64    `gorm:"primaryKey"`
	Timestamp     time.Time `gorm:"autoCreateTime;index"`
	AccountID     uint64    `gorm:"not null;index"`
	Medias        *int64
	Views         *int64 `gorm:"type:bigint"`
	Followers     *int64 `gorm:"type:bigint"`
	Subscriptions *int64 `gorm:"type:bigint"`
}

func (AccountStats) TableName() string { return "account_stats" }

// AccountSubscription is the directed "follows" edge, created once per pair.
type AccountSubscription struct {
	ID                  uint64    `gorm:"primaryKey"`
	Timestamp           time.Time `gorm:"autoCreateTime;index"`
	AccountID           uint64    `gorm:"not null;index;uniqueIndex:uk_subscription"`
	SubscribedAccountID uint64    `gorm:"not null;index;uniqueIndex:uk_subscription"`
}

func (AccountSubscription) TableName() string { return "account_subscription" }
