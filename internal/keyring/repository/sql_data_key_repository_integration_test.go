package repository

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	keyringDomain "github.com/allisson/envelope/internal/keyring/domain"
	"github.com/allisson/envelope/internal/keyring/usecase"
	"github.com/allisson/envelope/internal/testutil"
)

func TestSQLDataKeyRepositories_Integration(t *testing.T) {
	tests := []struct {
		name  string
		setup func(t *testing.T) *sql.DB
		repo  func(db *sql.DB) usecase.DataKeyRepository
	}{
		{
			name:  "postgresql",
			setup: testutil.SetupPostgresDB,
			repo: func(db *sql.DB) usecase.DataKeyRepository {
				return NewPostgreSQLDataKeyRepository(db)
			},
		},
		{
			name:  "mysql",
			setup: testutil.SetupMySQLDB,
			repo: func(db *sql.DB) usecase.DataKeyRepository {
				return NewMySQLDataKeyRepository(db)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db := tt.setup(t)
			defer testutil.TeardownDB(t, db)

			ctx := context.Background()
			repo := tt.repo(db)

			first := newTestDataKey("2024-01")
			second := newTestDataKey("2024-02")
			second.CreatedAt = first.CreatedAt.Add(time.Second)

			require.NoError(t, repo.Create(ctx, first))
			require.NoError(t, repo.Create(ctx, second))

			err := repo.Create(ctx, newTestDataKey("2024-01"))
			assert.ErrorIs(t, err, keyringDomain.ErrKeyAlreadyExists)

			got, err := repo.GetByVersion(ctx, "2024-01")
			require.NoError(t, err)
			assert.Equal(t, first.ID, got.ID)
			assert.Equal(t, first.EncryptedKey, got.EncryptedKey)

			latest, err := repo.GetLatest(ctx)
			require.NoError(t, err)
			assert.Equal(t, "2024-02", latest.Version)

			first.MasterKeyID = "master-key-2"
			first.EncryptedKey = []byte("rewrapped")
			require.NoError(t, repo.UpdateWrapping(ctx, first))

			keys, err := repo.List(ctx)
			require.NoError(t, err)
			require.Len(t, keys, 2)
			assert.Equal(t, "2024-01", keys[0].Version)
			assert.Equal(t, "master-key-2", keys[0].MasterKeyID)
			assert.Equal(t, []byte("rewrapped"), keys[0].EncryptedKey)

			_, err = repo.GetByVersion(ctx, "missing")
			assert.ErrorIs(t, err, keyringDomain.ErrUnknownKeyVersion)
		})
	}
}
