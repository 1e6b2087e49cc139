package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/grailbio/base/flock"

	cryptoDomain "github.com/allisson/envelope/internal/crypto/domain"
	apperrors "github.com/allisson/envelope/internal/errors"
	keyringDomain "github.com/allisson/envelope/internal/keyring/domain"
)

const fileFormatVersion = 1

// fileDocument is the on-disk layout of a file key store.
type fileDocument struct {
	FormatVersion int                           `json:"format_version"`
	Header        *keyringDomain.KeyStoreHeader `json:"header,omitempty"`
	Keys          []fileDataKey                 `json:"keys"`
}

type fileDataKey struct {
	ID           uuid.UUID `json:"id"`
	Version      string    `json:"version"`
	Algorithm    string    `json:"algorithm"`
	Bits         int       `json:"bits"`
	MasterKeyID  string    `json:"master_key_id"`
	EncryptedKey []byte    `json:"encrypted_key"`
	Nonce        []byte    `json:"nonce"`
	CreatedAt    time.Time `json:"created_at"`
}

func (d *fileDocument) indexOf(version string) int {
	for i := range d.Keys {
		if d.Keys[i].Version == version {
			return i
		}
	}
	return -1
}

func (k fileDataKey) toDomain() *keyringDomain.DataKey {
	return &keyringDomain.DataKey{
		ID:           k.ID,
		Version:      k.Version,
		Algorithm:    cryptoDomain.Algorithm(k.Algorithm),
		Bits:         k.Bits,
		MasterKeyID:  k.MasterKeyID,
		EncryptedKey: k.EncryptedKey,
		Nonce:        k.Nonce,
		CreatedAt:    k.CreatedAt,
	}
}

func fromDomain(dk *keyringDomain.DataKey) fileDataKey {
	return fileDataKey{
		ID:           dk.ID,
		Version:      dk.Version,
		Algorithm:    string(dk.Algorithm),
		Bits:         dk.Bits,
		MasterKeyID:  dk.MasterKeyID,
		EncryptedKey: dk.EncryptedKey,
		Nonce:        dk.Nonce,
		CreatedAt:    dk.CreatedAt,
	}
}

type fileTxKey struct{}

// fileTx is a staged copy of the document shared by every call inside WithTx.
type fileTx struct {
	doc *fileDocument
}

// fileLocker is the advisory lock held across a read-modify-write of the document.
type fileLocker interface {
	Lock(ctx context.Context) error
	Unlock() error
}

// FileDataKeyRepository stores data keys in a single JSON document on disk.
//
// Every mutation takes an advisory lock on path+".lock", re-reads the document
// from disk, applies the change to that fresh copy and writes it to a temporary
// file in the same directory, fsynced and renamed over the original. Several
// processes may therefore share one key store: a write never drops keys another
// process added, and a crash leaves either the old or the new document.
//
// Reads are served from memory and reloaded whenever the file on disk has been
// replaced since it was last read.
//
// The repository also implements database.TxManager: writes made inside WithTx
// are staged together and persisted with a single rename on commit.
type FileDataKeyRepository struct {
	path string
	lock fileLocker
	mu   sync.RWMutex
	doc  *fileDocument
	stat os.FileInfo
}

// NewFileDataKeyRepository opens the key store at path, starting an empty one if
// the file does not exist yet. Nothing is written until the first mutation.
func NewFileDataKeyRepository(path string) (*FileDataKeyRepository, error) {
	doc, stat, err := loadDocument(path)
	if err != nil {
		return nil, err
	}
	return &FileDataKeyRepository{
		path: path,
		lock: flock.New(path + ".lock"),
		doc:  doc,
		stat: stat,
	}, nil
}

// Path returns the key store file location.
func (r *FileDataKeyRepository) Path() string {
	return r.path
}

// WithTx runs fn against a staged copy of the document and persists it once fn succeeds.
func (r *FileDataKeyRepository) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(fileTxKey{}).(*fileTx); ok {
		return fn(ctx)
	}

	return r.locked(ctx, func(doc *fileDocument) error {
		tx := &fileTx{doc: doc}
		return fn(context.WithValue(ctx, fileTxKey{}, tx))
	})
}

// Create appends a new data key.
func (r *FileDataKeyRepository) Create(ctx context.Context, dataKey *keyringDomain.DataKey) error {
	return r.mutate(ctx, func(doc *fileDocument) error {
		if doc.indexOf(dataKey.Version) >= 0 {
			return keyringDomain.ErrKeyAlreadyExists
		}
		doc.Keys = append(doc.Keys, fromDomain(dataKey))
		return nil
	})
}

// GetByVersion returns the data key for version.
func (r *FileDataKeyRepository) GetByVersion(ctx context.Context, version string) (*keyringDomain.DataKey, error) {
	var dataKey *keyringDomain.DataKey
	err := r.read(ctx, func(doc *fileDocument) {
		if i := doc.indexOf(version); i >= 0 {
			dataKey = doc.Keys[i].toDomain()
		}
	})
	if err != nil {
		return nil, err
	}
	if dataKey == nil {
		return nil, keyringDomain.ErrUnknownKeyVersion
	}
	return dataKey, nil
}

// GetLatest returns the most recently created data key.
func (r *FileDataKeyRepository) GetLatest(ctx context.Context) (*keyringDomain.DataKey, error) {
	var dataKey *keyringDomain.DataKey
	err := r.read(ctx, func(doc *fileDocument) {
		if n := len(doc.Keys); n > 0 {
			dataKey = doc.Keys[n-1].toDomain()
		}
	})
	if err != nil {
		return nil, err
	}
	if dataKey == nil {
		return nil, keyringDomain.ErrNoCurrentKey
	}
	return dataKey, nil
}

// List returns every data key in creation order.
func (r *FileDataKeyRepository) List(ctx context.Context) ([]*keyringDomain.DataKey, error) {
	var dataKeys []*keyringDomain.DataKey
	err := r.read(ctx, func(doc *fileDocument) {
		dataKeys = make([]*keyringDomain.DataKey, 0, len(doc.Keys))
		for _, k := range doc.Keys {
			dataKeys = append(dataKeys, k.toDomain())
		}
	})
	if err != nil {
		return nil, err
	}
	return dataKeys, nil
}

// UpdateWrapping replaces the wrapping of an existing version.
func (r *FileDataKeyRepository) UpdateWrapping(ctx context.Context, dataKey *keyringDomain.DataKey) error {
	return r.mutate(ctx, func(doc *fileDocument) error {
		i := doc.indexOf(dataKey.Version)
		if i < 0 {
			return keyringDomain.ErrUnknownKeyVersion
		}
		doc.Keys[i].MasterKeyID = dataKey.MasterKeyID
		doc.Keys[i].EncryptedKey = dataKey.EncryptedKey
		doc.Keys[i].Nonce = dataKey.Nonce
		return nil
	})
}

// Header returns the key store header, or false for a store that was never initialized.
func (r *FileDataKeyRepository) Header(ctx context.Context) (*keyringDomain.KeyStoreHeader, bool, error) {
	var header *keyringDomain.KeyStoreHeader
	err := r.read(ctx, func(doc *fileDocument) {
		header = doc.Header
	})
	if err != nil {
		return nil, false, err
	}
	return header, header != nil, nil
}

// InitHeader writes the header of a new key store.
func (r *FileDataKeyRepository) InitHeader(ctx context.Context, header *keyringDomain.KeyStoreHeader) error {
	return r.mutate(ctx, func(doc *fileDocument) error {
		if doc.Header != nil {
			return apperrors.Wrap(apperrors.ErrConflict, "key store header already initialized")
		}
		doc.Header = header
		return nil
	})
}

// mutate applies fn to the staged transaction document, or to a private copy
// that is persisted before being published.
func (r *FileDataKeyRepository) mutate(ctx context.Context, fn func(doc *fileDocument) error) error {
	if tx, ok := ctx.Value(fileTxKey{}).(*fileTx); ok {
		return fn(tx.doc)
	}

	return r.locked(ctx, fn)
}

// locked runs fn on the current on-disk document while holding the file lock,
// then persists and publishes the result.
func (r *FileDataKeyRepository) locked(ctx context.Context, fn func(doc *fileDocument) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(r.path), 0o700); err != nil {
		return apperrors.Wrap(err, "failed to create key store directory")
	}
	if err := r.lock.Lock(ctx); err != nil {
		return apperrors.Wrap(err, "failed to lock key store")
	}
	defer func() {
		_ = r.lock.Unlock()
	}()

	staged, _, err := loadDocument(r.path)
	if err != nil {
		return err
	}

	if err := fn(staged); err != nil {
		return err
	}
	if err := writeDocument(r.path, staged); err != nil {
		return err
	}

	stat, err := os.Stat(r.path)
	if err != nil {
		return apperrors.Wrap(err, "failed to stat key store")
	}
	r.doc = staged
	r.stat = stat
	return nil
}

func (r *FileDataKeyRepository) read(ctx context.Context, fn func(doc *fileDocument)) error {
	if tx, ok := ctx.Value(fileTxKey{}).(*fileTx); ok {
		fn(tx.doc)
		return nil
	}

	if err := r.refresh(); err != nil {
		return err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	fn(r.doc)
	return nil
}

// refresh reloads the document when another writer has replaced the file.
// Writers rename a complete file into place, so no lock is needed to read it.
func (r *FileDataKeyRepository) refresh() error {
	stat, err := os.Stat(r.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return apperrors.Wrap(err, "failed to stat key store")
	}

	r.mu.RLock()
	unchanged := r.stat != nil && os.SameFile(r.stat, stat) &&
		r.stat.ModTime().Equal(stat.ModTime()) && r.stat.Size() == stat.Size()
	r.mu.RUnlock()
	if unchanged {
		return nil
	}

	doc, loaded, err := loadDocument(r.path)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.doc = doc
	r.stat = loaded
	return nil
}

// loadDocument reads the document at path. The returned FileInfo is nil when
// the file does not exist yet.
func loadDocument(path string) (*fileDocument, os.FileInfo, error) {
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return &fileDocument{FormatVersion: fileFormatVersion}, nil, nil
	}
	if err != nil {
		return nil, nil, apperrors.Wrap(err, "failed to read key store")
	}
	defer func() {
		_ = f.Close()
	}()

	stat, err := f.Stat()
	if err != nil {
		return nil, nil, apperrors.Wrap(err, "failed to stat key store")
	}

	var doc fileDocument
	if err := json.NewDecoder(f).Decode(&doc); err != nil {
		return nil, nil, apperrors.Wrap(err, "failed to parse key store")
	}
	if doc.FormatVersion != fileFormatVersion {
		return nil, nil, fmt.Errorf("unsupported key store format version %d", doc.FormatVersion)
	}
	return &doc, stat, nil
}

// writeDocument replaces path atomically: temp file, fsync, rename, fsync dir.
func writeDocument(path string, doc *fileDocument) (err error) {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return apperrors.Wrap(err, "failed to encode key store")
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return apperrors.Wrap(err, "failed to create key store directory")
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return apperrors.Wrap(err, "failed to create key store temp file")
	}
	tmpName := tmp.Name()
	defer func() {
		if err != nil {
			_ = os.Remove(tmpName)
		}
	}()

	if _, err = tmp.Write(data); err != nil {
		_ = tmp.Close()
		return apperrors.Wrap(err, "failed to write key store")
	}
	if err = tmp.Sync(); err != nil {
		_ = tmp.Close()
		return apperrors.Wrap(err, "failed to sync key store")
	}
	if err = tmp.Close(); err != nil {
		return apperrors.Wrap(err, "failed to close key store temp file")
	}
	if err = os.Chmod(tmpName, 0o600); err != nil {
		return apperrors.Wrap(err, "failed to set key store permissions")
	}
	if err = os.Rename(tmpName, path); err != nil {
		return apperrors.Wrap(err, "failed to replace key store")
	}

	if d, dirErr := os.Open(dir); dirErr == nil {
		_ = d.Sync()
		_ = d.Close()
	}
	return nil
}
