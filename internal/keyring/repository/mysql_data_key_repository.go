package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-sql-driver/mysql"

	"github.com/allisson/envelope/internal/database"
	apperrors "github.com/allisson/envelope/internal/errors"
	keyringDomain "github.com/allisson/envelope/internal/keyring/domain"
)

const mysqlDuplicateEntry = 1062

// MySQLDataKeyRepository implements data key persistence for MySQL.
//
// Database schema requirements:
//   - id: BINARY(16) PRIMARY KEY
//   - version: VARCHAR(64) UNIQUE
//   - algorithm: VARCHAR(32)
//   - bits: INT
//   - master_key_id: VARCHAR(255)
//   - encrypted_key: BLOB
//   - nonce: BLOB
//   - created_at: DATETIME(6)
type MySQLDataKeyRepository struct {
	db *sql.DB
}

// Create inserts a new data key. A duplicate version yields ErrKeyAlreadyExists.
func (m *MySQLDataKeyRepository) Create(ctx context.Context, dataKey *keyringDomain.DataKey) error {
	querier := database.GetTx(ctx, m.db)

	query := `INSERT INTO data_keys (id, version, algorithm, bits, master_key_id, encrypted_key, nonce, created_at)
			  VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

	id, err := dataKey.ID.MarshalBinary()
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal data key id")
	}

	_, err = querier.ExecContext(
		ctx,
		query,
		id,
		dataKey.Version,
		dataKey.Algorithm,
		dataKey.Bits,
		dataKey.MasterKeyID,
		dataKey.EncryptedKey,
		dataKey.Nonce,
		dataKey.CreatedAt,
	)
	if err != nil {
		var mysqlErr *mysql.MySQLError
		if errors.As(err, &mysqlErr) && mysqlErr.Number == mysqlDuplicateEntry {
			return keyringDomain.ErrKeyAlreadyExists
		}
		return apperrors.Wrap(err, "failed to create data key")
	}
	return nil
}

// GetByVersion retrieves the data key stored for version.
func (m *MySQLDataKeyRepository) GetByVersion(ctx context.Context, version string) (*keyringDomain.DataKey, error) {
	querier := database.GetTx(ctx, m.db)

	query := `SELECT id, version, algorithm, bits, master_key_id, encrypted_key, nonce, created_at
			  FROM data_keys
			  WHERE version = ?`

	dataKey, err := scanMySQLDataKey(querier.QueryRowContext(ctx, query, version))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, keyringDomain.ErrUnknownKeyVersion
		}
		return nil, apperrors.Wrap(err, "failed to get data key")
	}
	return dataKey, nil
}

// GetLatest retrieves the most recently created data key.
func (m *MySQLDataKeyRepository) GetLatest(ctx context.Context) (*keyringDomain.DataKey, error) {
	querier := database.GetTx(ctx, m.db)

	query := `SELECT id, version, algorithm, bits, master_key_id, encrypted_key, nonce, created_at
			  FROM data_keys
			  ORDER BY created_at DESC, id DESC
			  LIMIT 1`

	dataKey, err := scanMySQLDataKey(querier.QueryRowContext(ctx, query))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, keyringDomain.ErrNoCurrentKey
		}
		return nil, apperrors.Wrap(err, "failed to get latest data key")
	}
	return dataKey, nil
}

// List retrieves every data key in creation order.
func (m *MySQLDataKeyRepository) List(ctx context.Context) ([]*keyringDomain.DataKey, error) {
	querier := database.GetTx(ctx, m.db)

	query := `SELECT id, version, algorithm, bits, master_key_id, encrypted_key, nonce, created_at
			  FROM data_keys
			  ORDER BY created_at ASC, id ASC`

	rows, err := querier.QueryContext(ctx, query)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list data keys")
	}
	defer func() {
		_ = rows.Close()
	}()

	var dataKeys []*keyringDomain.DataKey
	for rows.Next() {
		dataKey, err := scanMySQLDataKey(rows)
		if err != nil {
			return nil, apperrors.Wrap(err, "failed to scan data key")
		}
		dataKeys = append(dataKeys, dataKey)
	}

	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, "failed to iterate data keys")
	}

	return dataKeys, nil
}

// UpdateWrapping replaces the master key wrapping of an existing version.
func (m *MySQLDataKeyRepository) UpdateWrapping(ctx context.Context, dataKey *keyringDomain.DataKey) error {
	querier := database.GetTx(ctx, m.db)

	query := `UPDATE data_keys
			  SET master_key_id = ?,
				  encrypted_key = ?,
				  nonce = ?
			  WHERE version = ?`

	result, err := querier.ExecContext(
		ctx,
		query,
		dataKey.MasterKeyID,
		dataKey.EncryptedKey,
		dataKey.Nonce,
		dataKey.Version,
	)
	if err != nil {
		return apperrors.Wrap(err, "failed to update data key wrapping")
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return apperrors.Wrap(err, "failed to get rows affected")
	}
	if rowsAffected == 0 {
		return keyringDomain.ErrUnknownKeyVersion
	}
	return nil
}

func scanMySQLDataKey(row rowScanner) (*keyringDomain.DataKey, error) {
	var dataKey keyringDomain.DataKey
	var id []byte

	if err := row.Scan(
		&id,
		&dataKey.Version,
		&dataKey.Algorithm,
		&dataKey.Bits,
		&dataKey.MasterKeyID,
		&dataKey.EncryptedKey,
		&dataKey.Nonce,
		&dataKey.CreatedAt,
	); err != nil {
		return nil, err
	}

	if err := dataKey.ID.UnmarshalBinary(id); err != nil {
		return nil, apperrors.Wrap(err, "failed to unmarshal data key id")
	}
	return &dataKey, nil
}

// NewMySQLDataKeyRepository creates a new MySQL data key repository.
func NewMySQLDataKeyRepository(db *sql.DB) *MySQLDataKeyRepository {
	return &MySQLDataKeyRepository{db: db}
}
