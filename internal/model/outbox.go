package model

import "time"

// EntityOutbox records entity-created events inside the creating transaction;
// a background relayer publishes them to Kafka afterwards.
type EntityOutbox struct {
	ID        uint64 `gorm:"primaryKey"`
	EventType string `gorm:"size:32;not null"` // account_created / media_created
	EntityID  uint64 `gorm:"not null"`
	Payload   string `gorm:"type:text;not null"`
	Status    int8   `gorm:"not null;default:0;comment:'0=pending,1=sent,2=failed'"`
	Retry     int    `gorm:"not null;default:0"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (EntityOutbox) TableName() string { return "entity_outbox" }
