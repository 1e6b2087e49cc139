package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	keyringDomain "github.com/allisson/envelope/internal/keyring/domain"
	"github.com/allisson/envelope/internal/testutil"
)

func mysqlDataKeyRow(t *testing.T, rows *sqlmock.Rows, dataKey *keyringDomain.DataKey) *sqlmock.Rows {
	t.Helper()
	id, err := dataKey.ID.MarshalBinary()
	require.NoError(t, err)
	return rows.AddRow(
		id,
		dataKey.Version,
		string(dataKey.Algorithm),
		dataKey.Bits,
		dataKey.MasterKeyID,
		dataKey.EncryptedKey,
		dataKey.Nonce,
		dataKey.CreatedAt,
	)
}

func TestNewMySQLDataKeyRepository(t *testing.T) {
	db, _ := testutil.NewSQLMock(t)

	repo := NewMySQLDataKeyRepository(db)
	assert.NotNil(t, repo)
	assert.IsType(t, &MySQLDataKeyRepository{}, repo)
}

func TestMySQLDataKeyRepository_Create(t *testing.T) {
	ctx := context.Background()
	query := regexp.QuoteMeta(`INSERT INTO data_keys`)

	t.Run("Success_BinaryID", func(t *testing.T) {
		db, mock := testutil.NewSQLMock(t)
		repo := NewMySQLDataKeyRepository(db)
		dataKey := newTestDataKey("2024-01")

		id, err := dataKey.ID.MarshalBinary()
		require.NoError(t, err)

		mock.ExpectExec(query).
			WithArgs(
				id,
				dataKey.Version,
				dataKey.Algorithm,
				dataKey.Bits,
				dataKey.MasterKeyID,
				dataKey.EncryptedKey,
				dataKey.Nonce,
				dataKey.CreatedAt,
			).
			WillReturnResult(sqlmock.NewResult(0, 1))

		require.NoError(t, repo.Create(ctx, dataKey))
	})

	t.Run("Error_DuplicateEntry", func(t *testing.T) {
		db, mock := testutil.NewSQLMock(t)
		repo := NewMySQLDataKeyRepository(db)

		mock.ExpectExec(query).
			WillReturnError(&mysql.MySQLError{Number: mysqlDuplicateEntry, Message: "Duplicate entry"})

		err := repo.Create(ctx, newTestDataKey("2024-01"))
		assert.ErrorIs(t, err, keyringDomain.ErrKeyAlreadyExists)
	})

	t.Run("Error_Other", func(t *testing.T) {
		db, mock := testutil.NewSQLMock(t)
		repo := NewMySQLDataKeyRepository(db)

		mock.ExpectExec(query).WillReturnError(&mysql.MySQLError{Number: 1213, Message: "Deadlock"})

		err := repo.Create(ctx, newTestDataKey("2024-01"))
		require.Error(t, err)
		assert.NotErrorIs(t, err, keyringDomain.ErrKeyAlreadyExists)
	})
}

func TestMySQLDataKeyRepository_GetByVersion(t *testing.T) {
	ctx := context.Background()
	query := regexp.QuoteMeta(`WHERE version = ?`)

	t.Run("Success", func(t *testing.T) {
		db, mock := testutil.NewSQLMock(t)
		repo := NewMySQLDataKeyRepository(db)
		dataKey := newTestDataKey("2024-01")

		mock.ExpectQuery(query).
			WithArgs("2024-01").
			WillReturnRows(mysqlDataKeyRow(t, sqlmock.NewRows(dataKeyColumns), dataKey))

		got, err := repo.GetByVersion(ctx, "2024-01")
		require.NoError(t, err)
		assert.Equal(t, dataKey, got)
	})

	t.Run("Error_NotFound", func(t *testing.T) {
		db, mock := testutil.NewSQLMock(t)
		repo := NewMySQLDataKeyRepository(db)

		mock.ExpectQuery(query).WithArgs("missing").WillReturnRows(sqlmock.NewRows(dataKeyColumns))

		_, err := repo.GetByVersion(ctx, "missing")
		assert.ErrorIs(t, err, keyringDomain.ErrUnknownKeyVersion)
	})

	t.Run("Error_InvalidID", func(t *testing.T) {
		db, mock := testutil.NewSQLMock(t)
		repo := NewMySQLDataKeyRepository(db)
		dataKey := newTestDataKey("2024-01")

		mock.ExpectQuery(query).WillReturnRows(sqlmock.NewRows(dataKeyColumns).AddRow(
			[]byte("short"),
			dataKey.Version,
			string(dataKey.Algorithm),
			dataKey.Bits,
			dataKey.MasterKeyID,
			dataKey.EncryptedKey,
			dataKey.Nonce,
			dataKey.CreatedAt,
		))

		_, err := repo.GetByVersion(ctx, "2024-01")
		require.Error(t, err)
		assert.NotErrorIs(t, err, keyringDomain.ErrUnknownKeyVersion)
	})
}

func TestMySQLDataKeyRepository_GetLatest(t *testing.T) {
	ctx := context.Background()
	query := regexp.QuoteMeta(`ORDER BY created_at DESC, id DESC`)

	t.Run("Success", func(t *testing.T) {
		db, mock := testutil.NewSQLMock(t)
		repo := NewMySQLDataKeyRepository(db)

		mock.ExpectQuery(query).
			WillReturnRows(mysqlDataKeyRow(t, sqlmock.NewRows(dataKeyColumns), newTestDataKey("2024-02")))

		got, err := repo.GetLatest(ctx)
		require.NoError(t, err)
		assert.Equal(t, "2024-02", got.Version)
	})

	t.Run("Error_Empty", func(t *testing.T) {
		db, mock := testutil.NewSQLMock(t)
		repo := NewMySQLDataKeyRepository(db)

		mock.ExpectQuery(query).WillReturnRows(sqlmock.NewRows(dataKeyColumns))

		_, err := repo.GetLatest(ctx)
		assert.ErrorIs(t, err, keyringDomain.ErrNoCurrentKey)
	})
}

func TestMySQLDataKeyRepository_List(t *testing.T) {
	ctx := context.Background()
	db, mock := testutil.NewSQLMock(t)
	repo := NewMySQLDataKeyRepository(db)

	rows := sqlmock.NewRows(dataKeyColumns)
	rows = mysqlDataKeyRow(t, rows, newTestDataKey("2024-01"))
	rows = mysqlDataKeyRow(t, rows, newTestDataKey("2024-02"))
	mock.ExpectQuery(regexp.QuoteMeta(`ORDER BY created_at ASC, id ASC`)).WillReturnRows(rows)

	keys, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, keys, 2)
	assert.Equal(t, "2024-01", keys[0].Version)
	assert.Equal(t, "2024-02", keys[1].Version)
}

func TestMySQLDataKeyRepository_UpdateWrapping(t *testing.T) {
	ctx := context.Background()
	query := regexp.QuoteMeta(`UPDATE data_keys`)

	t.Run("Success", func(t *testing.T) {
		db, mock := testutil.NewSQLMock(t)
		repo := NewMySQLDataKeyRepository(db)
		dataKey := newTestDataKey("2024-01")

		mock.ExpectExec(query).
			WithArgs(dataKey.MasterKeyID, dataKey.EncryptedKey, dataKey.Nonce, dataKey.Version).
			WillReturnResult(sqlmock.NewResult(0, 1))

		require.NoError(t, repo.UpdateWrapping(ctx, dataKey))
	})

	t.Run("Error_UnknownVersion", func(t *testing.T) {
		db, mock := testutil.NewSQLMock(t)
		repo := NewMySQLDataKeyRepository(db)

		mock.ExpectExec(query).WillReturnResult(sqlmock.NewResult(0, 0))

		err := repo.UpdateWrapping(ctx, newTestDataKey("missing"))
		assert.ErrorIs(t, err, keyringDomain.ErrUnknownKeyVersion)
	})

	t.Run("Error_Exec", func(t *testing.T) {
		db, mock := testutil.NewSQLMock(t)
		repo := NewMySQLDataKeyRepository(db)

		mock.ExpectExec(query).WillReturnError(errors.New("boom"))

		err := repo.UpdateWrapping(ctx, newTestDataKey("2024-01"))
		assert.Error(t, err)
	})
}
