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
	"gorm.io/gorm"
)

func testDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := mysql.Open(mysql.Config{Driver: "sqlite", DSN: ":memory:"})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, mysql.AutoMigrate(db))
	t.Cleanup(func() { _ = sqlDB.Close() })
	return db
}

// stubHunter serves canned data and counts relation calls, so tests can
// assert which fetches an update actually performed.
type stubHunter struct {
	account  *hunter.Account
	medias   []*hunter.Media
	byMedia  map[string]*hunter.Media
	comments map[string][]*hunter.Comment
	subs     []*hunter.Subscription

	accountCalls int
	mediaCalls   int
	listCalls    int
	commentCalls int
	subCalls     int
}

func (s *stubHunter) Analyze(ctx context.Context, query string, amount int, full bool) ([]hunter.Summary, error) {
	return nil, nil
}

func (s *stubHunter) FetchAccount(ctx context.Context, identifier string) (*hunter.Account, error) {
	s.accountCalls++
	return s.account, nil
}

func (s *stubHunter) FetchMedia(ctx context.Context, identifier string) (*hunter.Media, error) {
	s.mediaCalls++
	return s.byMedia[identifier], nil
}

func (s *stubHunter) AccountMedia(ctx context.Context, identifier string, amount int) ([]*hunter.Media, error) {
	s.listCalls++
	if amount > 0 && amount < len(s.medias) {
		return s.medias[:amount], nil
	}
	return s.medias, nil
}

func (s *stubHunter) AccountSubscriptions(ctx context.Context, identifier string, amount int) ([]*hunter.Subscription, error) {
	s.subCalls++
	return s.subs, nil
}

func (s *stubHunter) MediaComments(ctx context.Context, identifier string, amount int) ([]*hunter.Comment, error) {
	s.commentCalls++
	return s.comments[identifier], nil
}

func newTestService(t *testing.T, stub *stubHunter) (*gorm.DB, *UpdateService, *mysql.AccountRepository) {
	t.Helper()
	db := testDB(t)
	log := zap.NewNop()
	accounts := mysql.NewAccountRepository(db, log)
	svc := NewUpdateService(db, hunter.Set{"fake": stub}, accounts, log)
	return db, svc, accounts
}

func seedStubAccount(t *testing.T, db *gorm.DB) *model.Account {
	t.Helper()
	account := &model.Account{Platform: "fake", Identifier: "acc-1"}
	require.NoError(t, db.Create(account).Error)
	return account
}

func identityMedia(identifier string) *hunter.Media {
	return &hunter.Media{Identifier: identifier, MediaType: model.MediaVideo}
}

func fullMedia(identifier string, comments int64) *hunter.Media {
	return &hunter.Media{
		Identifier: identifier,
		MediaType:  model.MediaVideo,
		Info:       &hunter.MediaInfo{Title: hunter.Ptr("t-" + identifier)},
		Stats:      &hunter.MediaStats{Comments: hunter.Ptr(comments)},
	}
}

func TestUpdateAccountNoDataMarksFail(t *testing.T) {
	db, svc, accounts := newTestService(t, &stubHunter{account: nil})
	account := seedStubAccount(t, db)

	require.NoError(t, svc.UpdateAccount(context.Background(), account.ID, SkipAll()))

	got, err := accounts.GetAccount(db, account.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusFail, got.Status)
}

func TestUpdateAccountMergesHeadFacts(t *testing.T) {
	stub := &stubHunter{account: &hunter.Account{
		Identifier: "acc-1",
		Info:       &hunter.AccountInfo{Name: hunter.Ptr("alice")},
		Stats:      &hunter.AccountStats{Followers: hunter.Ptr(int64(42))},
	}}
	db, svc, accounts := newTestService(t, stub)
	account := seedStubAccount(t, db)

	require.NoError(t, svc.UpdateAccount(context.Background(), account.ID, SkipAll()))

	got, err := accounts.GetAccount(db, account.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusOkay, got.Status)
	require.NotNil(t, got.InfoName)
	assert.Equal(t, "alice", *got.InfoName)
	require.NotNil(t, got.StatsFollowers)
	assert.Equal(t, int64(42), *got.StatsFollowers)
	assert.Equal(t, 0, stub.listCalls)
	assert.Equal(t, 0, stub.subCalls)
}

func TestUpdateMediaCommentAutoSkipsWhenCountsMatch(t *testing.T) {
	stub := &stubHunter{byMedia: map[string]*hunter.Media{"m-1": fullMedia("m-1", 2)}}
	db, svc, accounts := newTestService(t, stub)
	account := seedStubAccount(t, db)
	media, err := accounts.CreateOrGetMedia(db, account, "m-1", model.MediaVideo)
	require.NoError(t, err)
	for _, id := range []string{"c-1", "c-2"} {
		require.NoError(t, db.Create(&model.MediaComment{MediaID: media.ID, Identifier: id}).Error)
	}
	before, err := accounts.GetMedia(db, media.ID)
	require.NoError(t, err)

	require.NoError(t, svc.UpdateMedia(context.Background(), media.ID, DepthAuto))

	// Reported total matches the stored rows: no comment fetch, but the
	// check time still moves.
	assert.Equal(t, 0, stub.commentCalls)
	after, err := accounts.GetMedia(db, media.ID)
	require.NoError(t, err)
	assert.False(t, after.CommentsLastUpdate.Before(before.CommentsLastUpdate))
	assert.Equal(t, model.StatusOkay, after.Status)
}

func TestUpdateMediaCommentAutoRefetchesOnMismatch(t *testing.T) {
	stub := &stubHunter{
		byMedia: map[string]*hunter.Media{"m-1": fullMedia("m-1", 2)},
		comments: map[string][]*hunter.Comment{"m-1": {
			{Identifier: "c-1", Content: &hunter.CommentContent{Text: "a"}},
			{Identifier: "c-2", Content: &hunter.CommentContent{Text: "b"}},
		}},
	}
	db, svc, accounts := newTestService(t, stub)
	account := seedStubAccount(t, db)
	media, err := accounts.CreateOrGetMedia(db, account, "m-1", model.MediaVideo)
	require.NoError(t, err)

	require.NoError(t, svc.UpdateMedia(context.Background(), media.ID, DepthAuto))

	assert.Equal(t, 1, stub.commentCalls)
	n, err := accounts.CommentCount(db, media.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
}

func TestUpdateMediaDisableCommentsSkipsFetch(t *testing.T) {
	data := fullMedia("m-1", 5)
	data.Info.DisableComments = true
	stub := &stubHunter{byMedia: map[string]*hunter.Media{"m-1": data}}
	db, svc, accounts := newTestService(t, stub)
	account := seedStubAccount(t, db)
	media, err := accounts.CreateOrGetMedia(db, account, "m-1", model.MediaVideo)
	require.NoError(t, err)

	require.NoError(t, svc.UpdateMedia(context.Background(), media.ID, DepthAll))

	assert.Equal(t, 0, stub.commentCalls)
}

func TestUpdateAccountFailSoftMediaCascade(t *testing.T) {
	// Listing yields identity-only entries; m-2 then vanishes on refetch.
	stub := &stubHunter{
		account: &hunter.Account{Identifier: "acc-1", Stats: &hunter.AccountStats{Medias: hunter.Ptr(int64(3))}},
		medias:  []*hunter.Media{identityMedia("m-1"), identityMedia("m-2"), identityMedia("m-3")},
		byMedia: map[string]*hunter.Media{
			"m-1": fullMedia("m-1", 0),
			"m-3": fullMedia("m-3", 0),
		},
	}
	db, svc, accounts := newTestService(t, stub)
	account := seedStubAccount(t, db)

	opt := UpdateOptions{MediaCount: DepthAuto, CommentCount: DepthSkip, SubscriptionCount: DepthSkip}
	require.NoError(t, svc.UpdateAccount(context.Background(), account.ID, opt))

	got, err := accounts.GetAccount(db, account.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusOkay, got.Status)

	medias, err := accounts.Medias(db, account.ID, 0, 0)
	require.NoError(t, err)
	require.Len(t, medias, 3)
	byIdent := map[string]model.Status{}
	for _, m := range medias {
		byIdent[m.Identifier] = m.Status
	}
	assert.Equal(t, model.StatusOkay, byIdent["m-1"])
	assert.Equal(t, model.StatusFail, byIdent["m-2"])
	assert.Equal(t, model.StatusOkay, byIdent["m-3"])
}

func TestUpdateAccountSubscriptionAutoAfterCascade(t *testing.T) {
	stub := &stubHunter{
		account: &hunter.Account{
			Identifier: "acc-1",
			Stats:      &hunter.AccountStats{Subscriptions: hunter.Ptr(int64(1))},
		},
		subs: []*hunter.Subscription{{Account: hunter.Account{Identifier: "acc-2"}}},
	}
	db, svc, accounts := newTestService(t, stub)
	account := seedStubAccount(t, db)

	opt := UpdateOptions{MediaCount: DepthSkip, CommentCount: DepthSkip, SubscriptionCount: DepthAuto}
	require.NoError(t, svc.UpdateAccount(context.Background(), account.ID, opt))
	assert.Equal(t, 1, stub.subCalls)
	n, err := accounts.SubscriptionCount(db, account.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	// Second pass: stored edges now match the reported total, no fetch.
	require.NoError(t, svc.UpdateAccount(context.Background(), account.ID, opt))
	assert.Equal(t, 1, stub.subCalls)
}

func TestAnalyzeSeedsWithoutFactsUnlessFull(t *testing.T) {
	fake, err := hunter.New("fake", map[string]any{"medias": 2})
	require.NoError(t, err)
	db := testDB(t)
	log := zap.NewNop()
	accounts := mysql.NewAccountRepository(db, log)
	svc := NewUpdateService(db, hunter.Set{"fake": fake}, accounts, log)

	accountIDs, mediaIDs, err := svc.Analyze(context.Background(), "fake", "anything", 2, false)
	require.NoError(t, err)
	assert.Len(t, accountIDs, 2)
	assert.Empty(t, mediaIDs)

	got, err := accounts.GetAccount(db, accountIDs[0])
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Nil(t, got.InfoName)

	_, _, err = svc.Analyze(context.Background(), "fake", "anything", 2, true)
	require.NoError(t, err)
	got, err = accounts.GetAccount(db, accountIDs[0])
	require.NoError(t, err)
	require.NotNil(t, got.InfoName)
	assert.Equal(t, "user-0", *got.InfoName)
}

func TestUpdateAccountUnknownPlatform(t *testing.T) {
	db, svc, _ := newTestService(t, &stubHunter{})
	account := &model.Account{Platform: "unknown", Identifier: "x"}
	require.NoError(t, db.Create(account).Error)

	err := svc.UpdateAccount(context.Background(), account.ID, SkipAll())
	assert.Error(t, err)
}
