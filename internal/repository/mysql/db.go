package mysql

import (
	"encoding/json"
	"fmt"
	"time"

	"metrico/internal/model"

	"github.com/glebarez/sqlite"
	"go.uber.org/zap"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
)

// Config is the storage slice of the application config.
type Config struct {
	Driver string
	DSN    string

	// Trigger names to auto-enqueue freshly created entities into; empty
	// disables the hook.
	OnCreateAccountTrigger string
	OnCreateMediaTrigger   string

	// Write entity_outbox rows on entity creation for the Kafka relayer.
	OutboxEnabled bool
}

// Open connects to the configured storage engine. MySQL is the production
// target; the sqlite driver covers local runs and tests.
func Open(cfg Config) (*gorm.DB, error) {
	switch cfg.Driver {
	case "mysql":
		return gorm.Open(mysql.Open(cfg.DSN), &gorm.Config{})
	case "sqlite", "":
		return gorm.Open(sqlite.Open(cfg.DSN), &gorm.Config{})
	}
	return nil, fmt.Errorf("db: unsupported driver %q", cfg.Driver)
}

// AutoMigrate creates or updates all tables.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&model.Account{},
		&model.AccountInfo{},
		&model.AccountStats{},
		&model.AccountSubscription{},
		&model.Media{},
		&model.MediaInfo{},
		&model.MediaStats{},
		&model.MediaComment{},
		&model.Trigger{},
		&model.TriggerAccount{},
		&model.TriggerMedia{},
		&model.TriggerStats{},
		&model.EntityOutbox{},
	)
}

// RegisterCreateHooks wires the after-insert side effects for new accounts and
// medias: auto-enqueue into a configured trigger and an outbox event row.
// Both run inside the creating transaction, so they commit or roll back with
// the insert itself.
func RegisterCreateHooks(db *gorm.DB, cfg Config, log *zap.Logger) error {
	if cfg.OnCreateAccountTrigger == "" && cfg.OnCreateMediaTrigger == "" && !cfg.OutboxEnabled {
		return nil
	}
	return db.Callback().Create().After("gorm:create").Register("metrico:on_create", func(tx *gorm.DB) {
		if tx.Error != nil {
			return
		}
		switch obj := tx.Statement.Dest.(type) {
		case *model.Account:
			if obj.ID == 0 {
				return
			}
			onCreated(tx, cfg.OnCreateAccountTrigger, cfg.OutboxEnabled, "account_created", obj.ID, log)
		case *model.Media:
			if obj.ID == 0 {
				return
			}
			onCreated(tx, cfg.OnCreateMediaTrigger, cfg.OutboxEnabled, "media_created", obj.ID, log)
		}
	})
}

func onCreated(tx *gorm.DB, triggerName string, outbox bool, event string, entityID uint64, log *zap.Logger) {
	// A fresh session, the statement of the triggering insert must stay
	// untouched.
	session := tx.Session(&gorm.Session{NewDB: true, SkipHooks: true})

	if triggerName != "" {
		repo := &TriggerRepository{Log: log}
		var err error
		if event == "account_created" {
			err = repo.Enqueue(session, triggerName, entityID, 0)
		} else {
			err = repo.Enqueue(session, triggerName, 0, entityID)
		}
		if err != nil {
			log.Warn("auto-enqueue on create failed",
				zap.String("trigger", triggerName),
				zap.String("event", event),
				zap.Uint64("entity_id", entityID),
				zap.Error(err),
			)
		}
	}

	if outbox {
		payload, _ := json.Marshal(map[string]any{
			"event_time": time.Now().UTC().Format(time.RFC3339Nano),
			"entity_id":  entityID,
		})
		row := &model.EntityOutbox{
			EventType: event,
			EntityID:  entityID,
			Payload:   string(payload),
		}
		if err := session.Create(row).Error; err != nil {
			log.Warn("outbox insert on create failed",
				zap.String("event", event),
				zap.Uint64("entity_id", entityID),
				zap.Error(err),
			)
		}
	}
}

// randomExpr returns the dialect's random-order expression.
func randomExpr(db *gorm.DB) string {
	if db.Dialector.Name() == "mysql" {
		return "RAND()"
	}
	return "RANDOM()"
}
