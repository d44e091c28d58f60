// Package file implements store.SlotStore on the local filesystem. It backs
// the terminal client, where one directory per owner stands in for the
// browser's local storage.
package file

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"sync"

	"nebula-backend/internal/store"
)

var _ store.SlotStore = (*SlotStore)(nil)

type SlotStore struct {
	root string
	mu   sync.Mutex
}

// NewSlotStore creates root if needed.
func NewSlotStore(root string) (*SlotStore, error) {
	if err := os.MkdirAll(root, 0o700); err != nil {
		return nil, fmt.Errorf("creating slot store root %s: %w", root, err)
	}
	return &SlotStore{root: root}, nil
}

// path escapes both components so owners and keys can never climb out of root.
func (s *SlotStore) path(owner, key string) string {
	return filepath.Join(s.root, "u_"+url.PathEscape(owner), url.PathEscape(key)+".json")
}

func (s *SlotStore) GetSlot(ctx context.Context, owner, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	b, err := os.ReadFile(s.path(owner, key))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("reading slot %s: %w", key, err)
	}
	return b, nil
}

// PutSlot writes to a temp file and renames it over the slot, so readers never
// observe a half written value.
func (s *SlotStore) PutSlot(ctx context.Context, owner, key string, value []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	target := s.path(owner, key)
	if err := os.MkdirAll(filepath.Dir(target), 0o700); err != nil {
		return fmt.Errorf("creating owner dir: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(target), ".slot-*")
	if err != nil {
		return fmt.Errorf("creating temp slot: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(value); err != nil {
		tmp.Close()
		return fmt.Errorf("writing slot %s: %w", key, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing slot %s: %w", key, err)
	}
	if err := os.Rename(tmp.Name(), target); err != nil {
		return fmt.Errorf("replacing slot %s: %w", key, err)
	}
	return nil
}

func (s *SlotStore) DeleteSlot(ctx context.Context, owner, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.path(owner, key)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("deleting slot %s: %w", key, err)
	}
	return nil
}
