// Package repository implements data key persistence for the key registry.
//
// Three backends are provided:
//   - File: a single JSON document replaced atomically on every write
//   - PostgreSQL: native UUID type and BYTEA for binary data
//   - MySQL: BINARY(16) for UUIDs and BLOB for binary data
//
// The SQL repositories are transaction-aware via database.GetTx(); the file
// repository implements database.TxManager itself, so the registry can stage
// several writes and commit them together on every backend.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/lib/pq"

	"github.com/allisson/envelope/internal/database"
	apperrors "github.com/allisson/envelope/internal/errors"
	keyringDomain "github.com/allisson/envelope/internal/keyring/domain"
)

const pgUniqueViolation = "23505"

// PostgreSQLDataKeyRepository implements data key persistence for PostgreSQL.
//
// Database schema requirements:
//   - id: UUID PRIMARY KEY
//   - version: VARCHAR(64) UNIQUE
//   - algorithm: TEXT
//   - bits: INTEGER
//   - master_key_id: TEXT
//   - encrypted_key: BYTEA
//   - nonce: BYTEA
//   - created_at: TIMESTAMP WITH TIME ZONE
type PostgreSQLDataKeyRepository struct {
	db *sql.DB
}

// Create inserts a new data key. A duplicate version yields ErrKeyAlreadyExists.
func (p *PostgreSQLDataKeyRepository) Create(ctx context.Context, dataKey *keyringDomain.DataKey) error {
	querier := database.GetTx(ctx, p.db)

	query := `INSERT INTO data_keys (id, version, algorithm, bits, master_key_id, encrypted_key, nonce, created_at)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := querier.ExecContext(
		ctx,
		query,
		dataKey.ID,
		dataKey.Version,
		dataKey.Algorithm,
		dataKey.Bits,
		dataKey.MasterKeyID,
		dataKey.EncryptedKey,
		dataKey.Nonce,
		dataKey.CreatedAt,
	)
	if err != nil {
		if isPostgreSQLUniqueViolation(err) {
			return keyringDomain.ErrKeyAlreadyExists
		}
		return apperrors.Wrap(err, "failed to create data key")
	}
	return nil
}

// GetByVersion retrieves the data key stored for version.
func (p *PostgreSQLDataKeyRepository) GetByVersion(
	ctx context.Context,
	version string,
) (*keyringDomain.DataKey, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT id, version, algorithm, bits, master_key_id, encrypted_key, nonce, created_at
			  FROM data_keys
			  WHERE version = $1`

	dataKey, err := scanPostgreSQLDataKey(querier.QueryRowContext(ctx, query, version))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, keyringDomain.ErrUnknownKeyVersion
		}
		return nil, apperrors.Wrap(err, "failed to get data key")
	}
	return dataKey, nil
}

// GetLatest retrieves the most recently created data key.
func (p *PostgreSQLDataKeyRepository) GetLatest(ctx context.Context) (*keyringDomain.DataKey, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT id, version, algorithm, bits, master_key_id, encrypted_key, nonce, created_at
			  FROM data_keys
			  ORDER BY created_at DESC, id DESC
			  LIMIT 1`

	dataKey, err := scanPostgreSQLDataKey(querier.QueryRowContext(ctx, query))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, keyringDomain.ErrNoCurrentKey
		}
		return nil, apperrors.Wrap(err, "failed to get latest data key")
	}
	return dataKey, nil
}

// List retrieves every data key in creation order.
func (p *PostgreSQLDataKeyRepository) List(ctx context.Context) ([]*keyringDomain.DataKey, error) {
	querier := database.GetTx(ctx, p.db)

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
		dataKey, err := scanPostgreSQLDataKey(rows)
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
func (p *PostgreSQLDataKeyRepository) UpdateWrapping(ctx context.Context, dataKey *keyringDomain.DataKey) error {
	querier := database.GetTx(ctx, p.db)

	query := `UPDATE data_keys
			  SET master_key_id = $1,
				  encrypted_key = $2,
				  nonce = $3
			  WHERE version = $4`

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

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPostgreSQLDataKey(row rowScanner) (*keyringDomain.DataKey, error) {
	var dataKey keyringDomain.DataKey
	if err := row.Scan(
		&dataKey.ID,
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
	return &dataKey, nil
}

func isPostgreSQLUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code) == pgUniqueViolation
	}
	msg := err.Error()
	return strings.Contains(msg, "duplicate key") || strings.Contains(msg, "unique constraint")
}

// NewPostgreSQLDataKeyRepository creates a new PostgreSQL data key repository.
func NewPostgreSQLDataKeyRepository(db *sql.DB) *PostgreSQLDataKeyRepository {
	return &PostgreSQLDataKeyRepository{db: db}
}
