// Package files writes and reads encrypted per-user backup archives.
package files

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/harrylevesque/nutritrack/internal/crypto"
	"github.com/harrylevesque/nutritrack/internal/models"
)

// ArchiveExt is the suffix of every backup file.
const ArchiveExt = ".json.enc"

// Archiver is the storage side of backup and restore.
type Archiver interface {
	ListUserIDs(ctx context.Context) ([]string, error)
	ExportUser(ctx context.Context, userID string) (*models.UserArchive, error)
	ImportUser(ctx context.Context, archive *models.UserArchive) error
}

// WriteEncryptedUserFile seals archive with key and writes it to
// outDir/<archive.ID()>.json.enc. The user ID is bound as additional data so a
// file renamed to another user fails to open.
func WriteEncryptedUserFile(outDir string, archive *models.UserArchive, key []byte) (string, error) {
	plain, err := json.MarshalIndent(archive, "", "  ")
	if err != nil {
		return "", err
	}
	id := archive.ID()
	if id == "" {
		return "", errors.New("archive has no user ID")
	}
	enc, err := crypto.EncryptAESGCM(key, plain, []byte(id))
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(outDir, 0700); err != nil {
		return "", err
	}

	filename := filepath.Join(outDir, id+ArchiveExt)
	tmp, err := os.CreateTemp(outDir, ".tmp-*")
	if err != nil {
		return "", err
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(enc); err != nil {
		tmp.Close()
		return "", err
	}
	if err := tmp.Chmod(0600); err != nil {
		tmp.Close()
		return "", err
	}
	if err := tmp.Close(); err != nil {
		return "", err
	}
	if err := os.Rename(tmp.Name(), filename); err != nil {
		return "", err
	}
	return filename, nil
}

// ReadEncryptedUserFile opens an archive written by WriteEncryptedUserFile.
func ReadEncryptedUserFile(path string, key []byte) (*models.UserArchive, error) {
	blob, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	id := strings.TrimSuffix(filepath.Base(path), ArchiveExt)
	plain, err := crypto.DecryptAESGCM(key, blob, []byte(id))
	if err != nil {
		return nil, fmt.Errorf("decrypt %s: %w", filepath.Base(path), err)
	}
	var a models.UserArchive
	if err := json.Unmarshal(plain, &a); err != nil {
		return nil, fmt.Errorf("decode %s: %w", filepath.Base(path), err)
	}
	if a.ID() != id {
		return nil, fmt.Errorf("%s: archive does not belong to user %s", filepath.Base(path), id)
	}
	return &a, nil
}

func backupKey(masterKey []byte) ([]byte, error) {
	key, err := crypto.DeriveKey(masterKey, crypto.InfoBackup)
	if err != nil {
		return nil, fmt.Errorf("derive backup key: %w", err)
	}
	return key, nil
}

// Backup exports every account, onboarded or not, into dir using up to
// workers goroutines. It returns the number of archives written. The first
// failure cancels the rest.
func Backup(ctx context.Context, store Archiver, dir string, masterKey []byte, workers int) (int, error) {
	key, err := backupKey(masterKey)
	if err != nil {
		return 0, err
	}
	ids, err := store.ListUserIDs(ctx)
	if err != nil {
		return 0, err
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(max(workers, 1))
	for _, id := range ids {
		id := id
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			archive, err := store.ExportUser(ctx, id)
			if err != nil {
				return fmt.Errorf("export user %s: %w", id, err)
			}
			if _, err := WriteEncryptedUserFile(dir, archive, key); err != nil {
				return fmt.Errorf("write archive for user %s: %w", id, err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return 0, err
	}
	return len(ids), nil
}

// Restore imports every archive in dir in file name order and returns how
// many were imported.
func Restore(ctx context.Context, store Archiver, dir string, masterKey []byte) (int, error) {
	key, err := backupKey(masterKey)
	if err != nil {
		return 0, err
	}
	paths, err := filepath.Glob(filepath.Join(dir, "*"+ArchiveExt))
	if err != nil {
		return 0, err
	}
	sort.Strings(paths)

	for i, p := range paths {
		archive, err := ReadEncryptedUserFile(p, key)
		if err != nil {
			return i, err
		}
		if err := store.ImportUser(ctx, archive); err != nil {
			return i, fmt.Errorf("import %s: %w", filepath.Base(p), err)
		}
	}
	return len(paths), nil
}
