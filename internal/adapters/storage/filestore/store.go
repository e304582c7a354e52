// Package filestore guarda el documento del ledger como archivo en el
// dispositivo usando diskv. Es el store por defecto.
package filestore

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/peterbourgon/diskv/v3"

	"care-ledger/internal/domain/events"
)

type Store struct {
	d        *diskv.Diskv
	basePath string
}

// Open crea (si hace falta) el directorio base. Las escrituras pasan por
// TempDir + rename, así un crash nunca deja un documento a medio escribir.
func Open(basePath string) (*Store, error) {
	basePath = strings.TrimSpace(basePath)
	if basePath == "" {
		return nil, errors.New("filestore: base path required")
	}
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		return nil, fmt.Errorf("filestore: create dir: %w", err)
	}

	return &Store{
		d: diskv.New(diskv.Options{
			BasePath:     basePath,
			TempDir:      filepath.Join(basePath, ".tmp"),
			Transform:    flatTransform,
			CacheSizeMax: 1024 * 1024, // 1MB
		}),
		basePath: basePath,
	}, nil
}

// flatTransform: un archivo por key directamente en BasePath.
func flatTransform(key string) []string { return []string{} }

func (s *Store) BasePath() string { return s.basePath }

func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := validKey(key); err != nil {
		return nil, err
	}
	if !s.d.Has(key) {
		return nil, events.ErrSnapshotNotFound
	}
	val, err := s.d.Read(key)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, events.ErrSnapshotNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("filestore: read %s: %w", key, err)
	}
	return val, nil
}

func (s *Store) Put(ctx context.Context, key string, value []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := validKey(key); err != nil {
		return err
	}
	if err := s.d.Write(key, value); err != nil {
		return fmt.Errorf("filestore: write %s: %w", key, err)
	}
	return nil
}

// Keys lista las keys guardadas (incluye backups "<key>.corrupt.<unix>").
func (s *Store) Keys(ctx context.Context) []string {
	out := make([]string, 0)
	for k := range s.d.Keys(ctx.Done()) {
		out = append(out, k)
	}
	return out
}

func validKey(key string) error {
	if strings.TrimSpace(key) == "" || strings.ContainsAny(key, `/\`) {
		return fmt.Errorf("filestore: invalid key %q", key)
	}
	return nil
}
