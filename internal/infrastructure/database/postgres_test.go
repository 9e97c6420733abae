package database

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/ressKim-io/ReviewSense/api-service/internal/infrastructure/config"
)

func setupTestDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock, *gorm.DB) {
	mockDB, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)

	gormDB, err := gorm.Open(postgres.New(postgres.Config{Conn: mockDB}), &gorm.Config{})
	require.NoError(t, err)

	return mockDB, mock, gormDB
}

func TestDSN(t *testing.T) {
	cfg := &config.DatabaseConfig{
		Host:     "db",
		Port:     5433,
		User:     "u",
		Password: "p",
		DBName:   "reviews",
		SSLMode:  "require",
	}

	assert.Equal(t, "host=db port=5433 user=u password=p dbname=reviews sslmode=require", DSN(cfg))
}

func TestConfigurePool(t *testing.T) {
	mockDB, _, gormDB := setupTestDB(t)
	defer mockDB.Close()

	err := ConfigurePool(gormDB, &config.DatabaseConfig{MaxIdleConns: 2, MaxOpenConns: 7})

	require.NoError(t, err)
	assert.Equal(t, 7, mockDB.Stats().MaxOpenConnections)
}

func TestPing(t *testing.T) {
	t.Run("reachable", func(t *testing.T) {
		mockDB, mock, gormDB := setupTestDB(t)
		defer mockDB.Close()

		mock.ExpectPing()

		assert.NoError(t, Ping(context.Background(), gormDB))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("unreachable", func(t *testing.T) {
		mockDB, mock, gormDB := setupTestDB(t)
		defer mockDB.Close()

		mock.ExpectPing().WillReturnError(errors.New("connection refused"))

		assert.Error(t, Ping(context.Background(), gormDB))
	})
}
