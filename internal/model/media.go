package model

import "time"

// Media is one item owned by an Account, identified by
// (account, identifier, media_type).
type Media struct {
	ID         uint64    `gorm:"primaryKey"`
	Timestamp  time.Time `gorm:"autoCreateTime;index"`
	Status     Status    `gorm:"not null;default:0"`
	AccountID  uint64    `gorm:"not null;index;uniqueIndex:uk_media"`
	Identifier string    `gorm:"size:191;not null;uniqueIndex:uk_media"`
	MediaType  MediaType `gorm:"not null;uniqueIndex:uk_media"`
	CreatedAt  time.Time

	CommentsLastUpdate time.Time `gorm:"autoCreateTime"`

	InfoLastUpdate      time.Time `gorm:"autoCreateTime"`
	InfoTitle           *string   `gorm:"size:255"`
	InfoCaption         *string   `gorm:"type:text"`
	InfoDisableComments bool      `gorm:"not null;default:false"`

	StatsLastUpdate time.Time `gorm:"autoCreateTime"`
	StatsComments   *int64
	StatsLikes      *int64
	StatsViews      *int64 `gorm:"type:bigint"`
}

func (Media) TableName() string { return "media" }

type MediaInfo struct {
	ID              uint64    `gorm:"primaryKey"`
	Timestamp       time.Time `gorm:"autoCreateTime;index"`
	MediaID         uint64    `gorm:"not null;index"`
	Title           *string   `gorm:"size:255"`
	Caption         *string   `gorm:"type:text"`
	DisableComments bool      `gorm:"not null;default:false"`
}

func (MediaInfo) TableName() string { return "media_info" }

type MediaStats struct {
	ID        uint64    `gorm:"primaryKey"`
	Timestamp time.Time `gorm:"autoCreateTime;index"`
	MediaID   uint64    `gorm:"not null;index"`
	Comments  *int64
	Likes     *int64
	Views     *int64 `gorm:"type:bigint"`
}

func (MediaStats) TableName() string { return "media_stats" }

// MediaComment is mutable-latest: text and likes are rewritten in place as the
// platform re-reports them, only (media, identifier) is fixed.
type MediaComment struct {
	ID         uint64    `gorm:"primaryKey"`
	Timestamp  time.Time `gorm:"autoCreateTime;index"`
	Status     Status    `gorm:"not null;default:0"`
	MediaID    uint64    `gorm:"not null;index;uniqueIndex:uk_media_comment"`
	AccountID  *uint64   `gorm:"index"`
	Identifier string    `gorm:"size:191;not null;uniqueIndex:uk_media_comment"`
	Text       *string   `gorm:"type:text"`
	Likes      *int64
	CreatedAt  time.Time
}

func (MediaComment) TableName() string { return "media_comment" }
