package model

import "time"

// Trigger is a named durable work queue of accounts and medias awaiting
// processing. Status RUN is transient; it is only ever at rest after a crash.
type Trigger struct {
	ID        uint64    `gorm:"primaryKey"`
	Timestamp time.Time `gorm:"autoCreateTime"`
	Name      string    `gorm:"size:64;not null;uniqueIndex"`
	Status    TriggerStatus `gorm:"not null;default:0"`
}

func (Trigger) TableName() string { return "trigger" }

type TriggerAccount struct {
	ID        uint64    `gorm:"primaryKey"`
	Timestamp time.Time `gorm:"autoCreateTime;index"`
	TriggerID uint64    `gorm:"not null;index;uniqueIndex:uk_trigger_account"`
	AccountID uint64    `gorm:"not null;uniqueIndex:uk_trigger_account"`
}

func (TriggerAccount) TableName() string { return "trigger_account" }

type TriggerMedia struct {
	ID        uint64    `gorm:"primaryKey"`
	Timestamp time.Time `gorm:"autoCreateTime;index"`
	TriggerID uint64    `gorm:"not null;index;uniqueIndex:uk_trigger_media"`
	MediaID   uint64    `gorm:"not null;uniqueIndex:uk_trigger_media"`
}

func (TriggerMedia) TableName() string { return "trigger_media" }

// TriggerStats is the append-only history of run outcomes.
type TriggerStats struct {
	ID        uint64    `gorm:"primaryKey"`
	Timestamp time.Time `gorm:"autoCreateTime"`
	TriggerID uint64    `gorm:"not null;index"`
	Started   time.Time
	Finished  time.Time
	Success   bool `gorm:"not null;default:false"`
}

func (TriggerStats) TableName() string { return "trigger_stats" }
