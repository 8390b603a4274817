package mysql

import (
	"testing"

	"metrico/internal/hunter"
	"metrico/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func seedAccount(t *testing.T, db *gorm.DB) *model.Account {
	t.Helper()
	account := &model.Account{Platform: "fake", Identifier: "acc-1"}
	require.NoError(t, db.Create(account).Error)
	return account
}

func statsRows(t *testing.T, db *gorm.DB, accountID uint64) int64 {
	t.Helper()
	var n int64
	require.NoError(t, db.Model(&model.AccountStats{}).Where("account_id = ?", accountID).Count(&n).Error)
	return n
}

func mergeStats(t *testing.T, db *gorm.DB, accountID uint64, fields map[string]any) (bool, *model.Account) {
	t.Helper()
	dirty, _, err := MergeGroup(db, GroupMerge{
		Parent:   &model.Account{},
		ParentID: accountID,
		ParentFK: "account_id",
		Group:    "stats",
		Snapshot: &model.AccountStats{},
		Fields:   fields,
	})
	require.NoError(t, err)
	var account model.Account
	require.NoError(t, db.First(&account, accountID).Error)
	return dirty, &account
}

func TestMergeGroupDedupsIdenticalSnapshots(t *testing.T) {
	db := testDB(t)
	account := seedAccount(t, db)

	dirty, got := mergeStats(t, db, account.ID, map[string]any{"views": hunter.Ptr(int64(5))})
	assert.True(t, dirty)
	require.NotNil(t, got.StatsViews)
	assert.Equal(t, int64(5), *got.StatsViews)
	assert.Equal(t, int64(1), statsRows(t, db, account.ID))

	// Same observation again: stamp moves, no new snapshot.
	dirty, _ = mergeStats(t, db, account.ID, map[string]any{"views": hunter.Ptr(int64(5))})
	assert.False(t, dirty)
	assert.Equal(t, int64(1), statsRows(t, db, account.ID))

	dirty, got = mergeStats(t, db, account.ID, map[string]any{"views": hunter.Ptr(int64(9))})
	assert.True(t, dirty)
	assert.Equal(t, int64(9), *got.StatsViews)
	assert.Equal(t, int64(2), statsRows(t, db, account.ID))
}

func TestMergeGroupUnsetKeepsStoredValue(t *testing.T) {
	db := testDB(t)
	account := seedAccount(t, db)

	_, _ = mergeStats(t, db, account.ID, map[string]any{
		"views":     hunter.Ptr(int64(5)),
		"followers": hunter.Ptr(int64(7)),
	})

	// Followers changed, views omitted: views must survive on the head row
	// and be carried into the new snapshot.
	dirty, got := mergeStats(t, db, account.ID, map[string]any{
		"views":     (*int64)(nil),
		"followers": hunter.Ptr(int64(8)),
	})
	assert.True(t, dirty)
	require.NotNil(t, got.StatsViews)
	assert.Equal(t, int64(5), *got.StatsViews)
	require.NotNil(t, got.StatsFollowers)
	assert.Equal(t, int64(8), *got.StatsFollowers)

	var snap model.AccountStats
	require.NoError(t, db.Where("account_id = ?", account.ID).Order("id DESC").First(&snap).Error)
	require.NotNil(t, snap.Views)
	assert.Equal(t, int64(5), *snap.Views)
	require.NotNil(t, snap.Followers)
	assert.Equal(t, int64(8), *snap.Followers)
}

func TestMergeGroupStampsWithoutChange(t *testing.T) {
	db := testDB(t)
	account := seedAccount(t, db)

	_, first := mergeStats(t, db, account.ID, map[string]any{"views": hunter.Ptr(int64(5))})
	dirty, second := mergeStats(t, db, account.ID, map[string]any{"views": hunter.Ptr(int64(5))})
	assert.False(t, dirty)
	assert.False(t, second.StatsLastUpdate.Before(first.StatsLastUpdate))
	assert.Equal(t, int64(1), statsRows(t, db, account.ID))
}

func TestGetOrCreateCommentUpdatesInPlace(t *testing.T) {
	db := testDB(t)
	account := seedAccount(t, db)
	media := &model.Media{AccountID: account.ID, Identifier: "m-1", MediaType: model.MediaImage}
	require.NoError(t, db.Create(media).Error)

	filter := map[string]any{"media_id": media.ID, "identifier": "c-1"}
	first, err := GetOrCreate[model.MediaComment](db, filter, map[string]any{
		"text":  "hello",
		"likes": int64(1),
	}, true)
	require.NoError(t, err)

	// The platform re-reports the comment with more likes: same row, new
	// values.
	second, err := GetOrCreate[model.MediaComment](db, filter, map[string]any{
		"text":  "hello",
		"likes": int64(4),
	}, true)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	require.NotNil(t, second.Likes)
	assert.Equal(t, int64(4), *second.Likes)

	var n int64
	require.NoError(t, db.Model(&model.MediaComment{}).Where("media_id = ?", media.ID).Count(&n).Error)
	assert.Equal(t, int64(1), n)
}

func TestApplyAccountFactsSubscriptionIdempotent(t *testing.T) {
	db := testDB(t)
	repo := testAccountRepo(t, db)
	account := seedAccount(t, db)

	sub := &hunter.Subscription{Account: hunter.Account{Identifier: "acc-2"}}
	require.NoError(t, repo.ApplyAccountFacts(db, account, sub))
	require.NoError(t, repo.ApplyAccountFacts(db, account, sub))

	n, err := repo.SubscriptionCount(db, account.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	// The subscribed account was created on the same platform.
	other, err := repo.CreateOrGetAccount(db, "fake", "acc-2")
	require.NoError(t, err)
	assert.NotEqual(t, account.ID, other.ID)
}

func TestApplyMediaFactsCommentCreatesCommenter(t *testing.T) {
	db := testDB(t)
	repo := testAccountRepo(t, db)
	account := seedAccount(t, db)
	media, err := repo.CreateOrGetMedia(db, account, "m-1", model.MediaVideo)
	require.NoError(t, err)

	comment := &hunter.Comment{
		Identifier: "c-1",
		Account:    &hunter.Account{Identifier: "commenter-1"},
		Content:    &hunter.CommentContent{Text: "nice", Likes: 2},
	}
	require.NoError(t, repo.ApplyMediaFacts(db, media, comment))

	var stored model.MediaComment
	require.NoError(t, db.Where("media_id = ? AND identifier = ?", media.ID, "c-1").First(&stored).Error)
	require.NotNil(t, stored.AccountID)

	commenter, err := repo.GetAccount(db, *stored.AccountID)
	require.NoError(t, err)
	require.NotNil(t, commenter)
	assert.Equal(t, "commenter-1", commenter.Identifier)
	assert.Equal(t, account.Platform, commenter.Platform)
}

func TestValueEqualNormalizesRepresentations(t *testing.T) {
	assert.True(t, valueEqual(int64(1), true))
	assert.True(t, valueEqual([]byte("abc"), "abc"))
	assert.True(t, valueEqual(hunter.Ptr(int64(5)), int64(5)))
	assert.True(t, valueEqual(nil, (*int64)(nil)))
	assert.False(t, valueEqual(int64(5), nil))
	assert.False(t, valueEqual("a", "b"))
}
