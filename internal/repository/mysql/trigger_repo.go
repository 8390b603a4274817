package mysql

import (
	"errors"
	"fmt"
	"time"

	"metrico/internal/model"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// DrainOrder selects how trigger membership rows are listed.
type DrainOrder int8

const (
	DrainAsc    DrainOrder = 0 // oldest enqueued first (default)
	DrainDesc   DrainOrder = 1
	DrainRandom DrainOrder = 2
)

// ParseDrainOrder maps the config string onto a DrainOrder; anything
// unrecognized falls back to ascending, like the original config surface.
func ParseDrainOrder(s string) DrainOrder {
	switch s {
	case "desc":
		return DrainDesc
	case "random":
		return DrainRandom
	}
	return DrainAsc
}

// TriggerRepository owns the durable work queues.
// All write methods run on the caller's transaction and never commit.
type TriggerRepository struct {
	DB  *gorm.DB
	Log *zap.Logger
}

func NewTriggerRepository(db *gorm.DB, log *zap.Logger) *TriggerRepository {
	return &TriggerRepository{DB: db, Log: log}
}

// GetOrCreateTrigger resolves a trigger by name, creating it on first use.
func (r *TriggerRepository) GetOrCreateTrigger(tx *gorm.DB, name string) (*model.Trigger, error) {
	var trigger model.Trigger
	err := tx.Where("name = ?", name).First(&trigger).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		trigger = model.Trigger{Name: name, Status: model.TriggerWait}
		if err := tx.Create(&trigger).Error; err != nil {
			return nil, err
		}
		return &trigger, nil
	}
	if err != nil {
		return nil, err
	}
	return &trigger, nil
}

// GetTrigger fetches a trigger by id. Returns (nil, nil) when absent.
func (r *TriggerRepository) GetTrigger(tx *gorm.DB, id uint64) (*model.Trigger, error) {
	var trigger model.Trigger
	err := tx.First(&trigger, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &trigger, nil
}

// Enqueue inserts membership rows for the given ids (0 means "not given").
// Inserting an already-queued id is a no-op.
func (r *TriggerRepository) Enqueue(tx *gorm.DB, name string, accountID, mediaID uint64) error {
	trigger, err := r.GetOrCreateTrigger(tx, name)
	if err != nil {
		return err
	}
	if accountID != 0 {
		if _, err := GetOrCreate[model.TriggerAccount](tx, map[string]any{
			"trigger_id": trigger.ID,
			"account_id": accountID,
		}, nil, false); err != nil {
			return err
		}
	}
	if mediaID != 0 {
		if _, err := GetOrCreate[model.TriggerMedia](tx, map[string]any{
			"trigger_id": trigger.ID,
			"media_id":   mediaID,
		}, nil, false); err != nil {
			return err
		}
	}
	return nil
}

// Dequeue removes membership rows for the given ids; absent ids are a no-op.
func (r *TriggerRepository) Dequeue(tx *gorm.DB, name string, accountID, mediaID uint64) error {
	trigger, err := r.GetOrCreateTrigger(tx, name)
	if err != nil {
		return err
	}
	if accountID != 0 {
		if err := tx.Where("trigger_id = ? AND account_id = ?", trigger.ID, accountID).
			Delete(&model.TriggerAccount{}).Error; err != nil {
			return err
		}
	}
	if mediaID != 0 {
		if err := tx.Where("trigger_id = ? AND media_id = ?", trigger.ID, mediaID).
			Delete(&model.TriggerMedia{}).Error; err != nil {
			return err
		}
	}
	return nil
}

// Drain lists the queued account and media ids in the requested order. The
// limit applies to each list independently, not to their sum. Rows are not
// removed; single-call runners dequeue after a successful action.
func (r *TriggerRepository) Drain(tx *gorm.DB, name string, order DrainOrder, limit int) (accountIDs, mediaIDs []uint64, err error) {
	trigger, err := r.GetOrCreateTrigger(tx, name)
	if err != nil {
		return nil, nil, err
	}

	orderExpr := func() string {
		switch order {
		case DrainDesc:
			return "timestamp DESC, id DESC"
		case DrainRandom:
			return randomExpr(tx)
		}
		return "timestamp ASC, id ASC"
	}

	accounts := tx.Model(&model.TriggerAccount{}).Where("trigger_id = ?", trigger.ID).Order(orderExpr())
	medias := tx.Model(&model.TriggerMedia{}).Where("trigger_id = ?", trigger.ID).Order(orderExpr())
	if limit > 0 {
		accounts = accounts.Limit(limit)
		medias = medias.Limit(limit)
	}
	if err := accounts.Pluck("account_id", &accountIDs).Error; err != nil {
		return nil, nil, err
	}
	if err := medias.Pluck("media_id", &mediaIDs).Error; err != nil {
		return nil, nil, err
	}
	return accountIDs, mediaIDs, nil
}

// SetStatus moves the trigger through its WAIT/RUN/WAIT-or-ERROR machine.
func (r *TriggerRepository) SetStatus(tx *gorm.DB, name string, status model.TriggerStatus) error {
	trigger, err := r.GetOrCreateTrigger(tx, name)
	if err != nil {
		return err
	}
	return tx.Model(&model.Trigger{}).Where("id = ?", trigger.ID).UpdateColumn("status", status).Error
}

// RecordRun appends one immutable TriggerStats row for a finished run and
// settles the trigger status: WAIT on success, ERROR on failure.
func (r *TriggerRepository) RecordRun(tx *gorm.DB, name string, success bool, started, finished time.Time) error {
	trigger, err := r.GetOrCreateTrigger(tx, name)
	if err != nil {
		return err
	}
	status := model.TriggerWait
	if !success {
		status = model.TriggerError
	}
	if err := tx.Model(&model.Trigger{}).Where("id = ?", trigger.ID).UpdateColumn("status", status).Error; err != nil {
		return err
	}
	row := &model.TriggerStats{
		TriggerID: trigger.ID,
		Started:   started,
		Finished:  finished,
		Success:   success,
	}
	if err := tx.Create(row).Error; err != nil {
		return fmt.Errorf("trigger %q: record run: %w", name, err)
	}
	return nil
}

// Queued reports the queue sizes of a trigger.
func (r *TriggerRepository) Queued(tx *gorm.DB, name string) (accounts, medias int64, err error) {
	trigger, err := r.GetOrCreateTrigger(tx, name)
	if err != nil {
		return 0, 0, err
	}
	if err := tx.Model(&model.TriggerAccount{}).Where("trigger_id = ?", trigger.ID).Count(&accounts).Error; err != nil {
		return 0, 0, err
	}
	if err := tx.Model(&model.TriggerMedia{}).Where("trigger_id = ?", trigger.ID).Count(&medias).Error; err != nil {
		return 0, 0, err
	}
	return accounts, medias, nil
}
