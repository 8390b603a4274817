package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"metrico/internal/model"
	"metrico/internal/repository/mysql"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Runner is one trigger flavor: it decides how the queue is drained and what
// happens to the drained ids.
type Runner interface {
	DrainOptions() (mysql.DrainOrder, int)
	Action(ctx context.Context, svc *UpdateService, accountIDs, mediaIDs []uint64) error
}

// RunnerFactory builds a runner for the named trigger from its config
// options block.
type RunnerFactory func(name string, options map[string]any) (Runner, error)

var (
	runnersMu sync.RWMutex
	runners   = map[string]RunnerFactory{}
)

func RegisterRunner(cls string, factory RunnerFactory) {
	runnersMu.Lock()
	defer runnersMu.Unlock()
	runners[cls] = factory
}

func NewRunner(name, cls string, options map[string]any) (Runner, error) {
	runnersMu.RLock()
	factory, ok := runners[cls]
	runnersMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unknown trigger runner %q", cls)
	}
	return factory(name, options)
}

func init() {
	RegisterRunner("simple", func(name string, options map[string]any) (Runner, error) {
		return NewSimpleRunner(name, options), nil
	})
}

// TriggerService executes named triggers: drain the queue, mark the trigger
// running, run the action, record the outcome.
type TriggerService struct {
	DB       *gorm.DB
	Triggers *mysql.TriggerRepository
	Updates  *UpdateService
	Runners  map[string]Runner
	Log      *zap.Logger
}

func NewTriggerService(db *gorm.DB, triggers *mysql.TriggerRepository, updates *UpdateService, runners map[string]Runner, log *zap.Logger) *TriggerService {
	return &TriggerService{DB: db, Triggers: triggers, Updates: updates, Runners: runners, Log: log}
}

// Enqueue marks an entity for the next run of the named trigger. Zero ids
// mean "not given"; re-enqueueing is a no-op.
func (s *TriggerService) Enqueue(ctx context.Context, name string, accountID, mediaID uint64) error {
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return s.Triggers.Enqueue(tx, name, accountID, mediaID)
	})
}

// Run executes the named trigger once. Action errors are recorded on the
// run log, not returned: a broken platform must not look like a broken
// trigger system.
func (s *TriggerService) Run(ctx context.Context, name string) error {
	runner, ok := s.Runners[name]
	if !ok {
		return fmt.Errorf("trigger %q is not configured", name)
	}
	order, limit := runner.DrainOptions()

	var accountIDs, mediaIDs []uint64
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		trigger, err := s.Triggers.GetOrCreateTrigger(tx, name)
		if err != nil {
			return err
		}
		if trigger.Status == model.TriggerRun {
			// A previous run died without recording its outcome. Take
			// over rather than wedging the trigger forever.
			s.Log.Warn("trigger already marked running, taking over", zap.String("trigger", name))
		}
		if accountIDs, mediaIDs, err = s.Triggers.Drain(tx, name, order, limit); err != nil {
			return err
		}
		return s.Triggers.SetStatus(tx, name, model.TriggerRun)
	})
	if err != nil {
		return err
	}

	started := time.Now()
	actionErr := runner.Action(ctx, s.Updates, accountIDs, mediaIDs)
	if actionErr != nil {
		s.Log.Error("trigger action failed",
			zap.String("trigger", name),
			zap.Int("accounts", len(accountIDs)), zap.Int("medias", len(mediaIDs)),
			zap.Error(actionErr))
	}

	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return s.Triggers.RecordRun(tx, name, actionErr == nil, started, time.Now())
	})
}

// Options carried by the simple runner. All depths default to auto.
type SimpleOptions struct {
	Order             mysql.DrainOrder
	Limit             int
	Threads           int
	MediaCount        int
	CommentCount      int
	SubscriptionCount int
	SingleCall        bool
}

// SimpleRunner drains its queue and refreshes every drained entity through
// the orchestrator. With SingleCall set, a processed id leaves the queue;
// otherwise it stays and is refreshed again on every run.
type SimpleRunner struct {
	Name    string
	Options SimpleOptions
}

func NewSimpleRunner(name string, options map[string]any) *SimpleRunner {
	var opt SimpleOptions
	if v, ok := options["order"].(string); ok {
		opt.Order = mysql.ParseDrainOrder(v)
	}
	opt.Limit = optionInt(options, "limit", 0)
	opt.Threads = optionInt(options, "threads", 1)
	opt.MediaCount = optionInt(options, "media_count", DepthAuto)
	opt.CommentCount = optionInt(options, "comment_count", DepthAuto)
	opt.SubscriptionCount = optionInt(options, "subscription_count", DepthAuto)
	if v, ok := options["single_call"].(bool); ok {
		opt.SingleCall = v
	}
	return &SimpleRunner{Name: name, Options: opt}
}

// optionInt reads an int option, tolerating the float64 that YAML and JSON
// decoders hand back for numbers.
func optionInt(options map[string]any, key string, fallback int) int {
	switch v := options[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	}
	return fallback
}

func (r *SimpleRunner) DrainOptions() (mysql.DrainOrder, int) {
	return r.Options.Order, r.Options.Limit
}

func (r *SimpleRunner) Action(ctx context.Context, svc *UpdateService, accountIDs, mediaIDs []uint64) error {
	opt := UpdateOptions{
		MediaCount:        r.Options.MediaCount,
		CommentCount:      r.Options.CommentCount,
		SubscriptionCount: r.Options.SubscriptionCount,
	}
	accounts := UpdateList(ctx, accountIDs, r.Options.Threads, svc.Log, func(ctx context.Context, id uint64) error {
		return svc.UpdateAccount(ctx, id, opt)
	})
	medias := UpdateList(ctx, mediaIDs, r.Options.Threads, svc.Log, func(ctx context.Context, id uint64) error {
		return svc.UpdateMedia(ctx, id, r.Options.CommentCount)
	})
	svc.Log.Info("trigger batch done",
		zap.String("trigger", r.Name),
		zap.Int64("accounts", accounts.Processed), zap.Int64("accounts_failed", accounts.Failed),
		zap.Int64("medias", medias.Processed), zap.Int64("medias_failed", medias.Failed))

	if r.Options.SingleCall {
		triggers := mysql.NewTriggerRepository(svc.DB, svc.Log)
		return svc.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			for _, id := range accountIDs {
				if err := triggers.Dequeue(tx, r.Name, id, 0); err != nil {
					return err
				}
			}
			for _, id := range mediaIDs {
				if err := triggers.Dequeue(tx, r.Name, 0, id); err != nil {
					return err
				}
			}
			return nil
		})
	}
	return nil
}
