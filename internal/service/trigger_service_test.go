package service

import (
	"context"
	"testing"

	"metrico/internal/hunter"
	"metrico/internal/model"
	"metrico/internal/repository/mysql"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTriggerService(t *testing.T, stub *stubHunter, runnerOpts map[string]any) (*TriggerService, *mysql.AccountRepository, *mysql.TriggerRepository) {
	t.Helper()
	db, updates, accounts := newTestService(t, stub)
	log := zap.NewNop()
	triggers := mysql.NewTriggerRepository(db, log)
	runner, err := NewRunner("refresh", "simple", runnerOpts)
	require.NoError(t, err)
	svc := NewTriggerService(db, triggers, updates, map[string]Runner{"refresh": runner}, log)
	return svc, accounts, triggers
}

func TestTriggerRunRefreshesQueuedAccount(t *testing.T) {
	stub := &stubHunter{account: &hunter.Account{
		Identifier: "acc-1",
		Info:       &hunter.AccountInfo{Name: hunter.Ptr("alice")},
	}}
	svc, accounts, triggers := newTriggerService(t, stub, map[string]any{
		"media_count":        DepthSkip,
		"comment_count":      DepthSkip,
		"subscription_count": DepthSkip,
	})
	account := seedStubAccount(t, svc.DB)
	require.NoError(t, svc.Enqueue(context.Background(), "refresh", account.ID, 0))

	require.NoError(t, svc.Run(context.Background(), "refresh"))

	got, err := accounts.GetAccount(svc.DB, account.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusOkay, got.Status)
	require.NotNil(t, got.InfoName)
	assert.Equal(t, "alice", *got.InfoName)

	// Without single_call the member stays queued for the next run.
	queued, _, err := triggers.Queued(svc.DB, "refresh")
	require.NoError(t, err)
	assert.Equal(t, int64(1), queued)

	trigger, err := triggers.GetOrCreateTrigger(svc.DB, "refresh")
	require.NoError(t, err)
	assert.Equal(t, model.TriggerWait, trigger.Status)

	var runs int64
	require.NoError(t, svc.DB.Model(&model.TriggerStats{}).Where("trigger_id = ?", trigger.ID).Count(&runs).Error)
	assert.Equal(t, int64(1), runs)
}

func TestTriggerRunSingleCallDequeues(t *testing.T) {
	stub := &stubHunter{account: &hunter.Account{Identifier: "acc-1"}}
	svc, _, triggers := newTriggerService(t, stub, map[string]any{
		"single_call":        true,
		"media_count":        DepthSkip,
		"comment_count":      DepthSkip,
		"subscription_count": DepthSkip,
	})
	account := seedStubAccount(t, svc.DB)
	require.NoError(t, svc.Enqueue(context.Background(), "refresh", account.ID, 0))

	require.NoError(t, svc.Run(context.Background(), "refresh"))

	queued, _, err := triggers.Queued(svc.DB, "refresh")
	require.NoError(t, err)
	assert.Equal(t, int64(0), queued)
}

func TestTriggerRunUnknownTrigger(t *testing.T) {
	stub := &stubHunter{}
	svc, _, _ := newTriggerService(t, stub, nil)
	assert.Error(t, svc.Run(context.Background(), "nope"))
}

func TestSimpleRunnerParsesOptions(t *testing.T) {
	runner := NewSimpleRunner("x", map[string]any{
		"order":       "desc",
		"limit":       float64(25), // yaml decoders hand numbers back as float64
		"threads":     4,
		"media_count": float64(-1),
		"single_call": true,
	})
	order, limit := runner.DrainOptions()
	assert.Equal(t, mysql.DrainDesc, order)
	assert.Equal(t, 25, limit)
	assert.Equal(t, 4, runner.Options.Threads)
	assert.Equal(t, DepthSkip, runner.Options.MediaCount)
	assert.Equal(t, DepthAuto, runner.Options.CommentCount)
	assert.True(t, runner.Options.SingleCall)
}
