/*-------------------------------------------------------------------------
 *
 * local_storage.go
 *    Local filesystem storage backend for evidence files
 *
 * Stores evidence content under a root directory. Keys are relative
 * paths; traversal outside the root is rejected.
 *
 * Copyright (c) 2024-2026, casetrace, Inc. <admin@casetrace.io>
 *
 * IDENTIFICATION
 *    CaseTrace/internal/storage/local_storage.go
 *
 *-------------------------------------------------------------------------
 */

package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

/* LocalStorage implements the filesystem storage backend */
type LocalStorage struct {
	root string
}

/* NewLocalStorage creates a new local filesystem storage backend */
func NewLocalStorage(config map[string]interface{}) (*LocalStorage, error) {
	root, ok := config["root"].(string)
	if !ok || root == "" {
		return nil, fmt.Errorf("local storage requires root in config")
	}

	if err := os.MkdirAll(root, 0o750); err != nil {
		return nil, fmt.Errorf("failed to create storage root: root='%s', error=%w", root, err)
	}

	return &LocalStorage{root: root}, nil
}

/* resolve maps a key to an absolute path inside the root */
func (l *LocalStorage) resolve(key string) (string, error) {
	cleaned := filepath.Clean(key)
	if cleaned == "." || strings.HasPrefix(cleaned, "..") || filepath.IsAbs(cleaned) {
		return "", fmt.Errorf("invalid storage key: key='%s'", key)
	}
	return filepath.Join(l.root, cleaned), nil
}

func (l *LocalStorage) Store(ctx context.Context, key string, content []byte) error {
	path, err := l.resolve(key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("failed to create storage directory: key='%s', error=%w", key, err)
	}
	if err := os.WriteFile(path, content, 0o640); err != nil {
		return fmt.Errorf("failed to write evidence file: key='%s', error=%w", key, err)
	}
	return nil
}

func (l *LocalStorage) Retrieve(ctx context.Context, key string) ([]byte, error) {
	path, err := l.resolve(key)
	if err != nil {
		return nil, err
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read evidence file: key='%s', error=%w", key, err)
	}
	return content, nil
}

func (l *LocalStorage) Delete(ctx context.Context, key string) error {
	path, err := l.resolve(key)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete evidence file: key='%s', error=%w", key, err)
	}
	return nil
}

func (l *LocalStorage) Exists(ctx context.Context, key string) (bool, error) {
	path, err := l.resolve(key)
	if err != nil {
		return false, err
	}
	_, err = os.Stat(path)
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to stat evidence file: key='%s', error=%w", key, err)
	}
	return true, nil
}
