package mysql

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func testDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := Open(Config{Driver: "sqlite", DSN: ":memory:"})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	// One in-memory sqlite database per connection; keep the pool at one.
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, AutoMigrate(db))
	t.Cleanup(func() { _ = sqlDB.Close() })
	return db
}

func testAccountRepo(t *testing.T, db *gorm.DB) *AccountRepository {
	t.Helper()
	return NewAccountRepository(db, zap.NewNop())
}

func testTriggerRepo(t *testing.T, db *gorm.DB) *TriggerRepository {
	t.Helper()
	return NewTriggerRepository(db, zap.NewNop())
}
