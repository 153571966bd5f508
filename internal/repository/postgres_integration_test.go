//go:build integration

package repository_test

import (
	"context"
	"testing"
	"time"

	"sentinal-safety/internal/repository"
	"sentinal-safety/internal/repository/storetest"

	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newPostgres(t *testing.T) *gorm.DB {
	t.Helper()
	ctx := context.Background()

	container, err := tcpostgres.Run(ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase("sentinal_safety"),
		tcpostgres.WithUsername("sentinal"),
		tcpostgres.WithPassword("sentinal"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	require.NoError(t, err, "start postgres container")
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)
	require.NoError(t, repository.InitSchema(db))
	return db
}

func TestPostgresStore(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	db := newPostgres(t)

	suite.Run(t, &storetest.StoreSuite{
		NewStore: func() repository.Store {
			require.NoError(t, db.Exec(`TRUNCATE chat_rooms, chat_messages, user_blocks, user_suppressions, chat_reports, moderation_logs`).Error)
			return repository.NewPostgresStore(db)
		},
	})
}
