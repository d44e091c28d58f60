// Package persist stores feature state as JSON documents in a store.SlotStore,
// one slot per feature key, the way the web client keeps them in local storage.
package persist

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"nebula-backend/internal/store"
)

// Slot keys. They match the local storage keys of the web client so exported
// browser data can be imported verbatim.
const (
	KeyChatMessages        = "chatMessages"
	KeyBackgroundType      = "backgroundType"
	KeyCustomBackgroundURL = "customBackgroundUrl"
	KeyCalendarEvents      = "calendarEvents"
	KeyMusicList           = "musicList"
	KeyYoutubeVideos       = "youtubeVideos"
)

// StorageParseError reports a slot whose contents are not valid JSON for the
// expected type. Callers treat it as "no saved data".
type StorageParseError struct {
	Key string
	Err error
}

func (e *StorageParseError) Error() string {
	return fmt.Sprintf("malformed data in slot %q: %v", e.Key, e.Err)
}

func (e *StorageParseError) Unwrap() error { return e.Err }

// IsParseError reports whether err is (or wraps) a StorageParseError.
func IsParseError(err error) bool {
	var pe *StorageParseError
	return errors.As(err, &pe)
}

// LoadList reads the list stored under key. found is false when the slot has
// never been written. time.Time fields come back at the same instant they
// were saved with, since they round-trip as RFC 3339 strings.
func LoadList[T any](ctx context.Context, slots store.SlotStore, owner, key string) (items []T, found bool, err error) {
	raw, err := slots.GetSlot(ctx, owner, key)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, false, nil
		}
		return nil, false, err
	}
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, true, &StorageParseError{Key: key, Err: err}
	}
	return items, true, nil
}

// SaveList replaces the list stored under key. A nil list is written as [].
func SaveList[T any](ctx context.Context, slots store.SlotStore, owner, key string, items []T) error {
	if items == nil {
		items = []T{}
	}
	raw, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("encoding slot %s: %w", key, err)
	}
	return slots.PutSlot(ctx, owner, key, raw)
}

// LoadValue reads a plain string slot. found is false when it is absent.
func LoadValue(ctx context.Context, slots store.SlotStore, owner, key string) (value string, found bool, err error) {
	raw, err := slots.GetSlot(ctx, owner, key)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return "", false, nil
		}
		return "", false, err
	}
	return string(raw), true, nil
}

// SaveValue writes a plain string slot.
func SaveValue(ctx context.Context, slots store.SlotStore, owner, key, value string) error {
	return slots.PutSlot(ctx, owner, key, []byte(value))
}

// Remove deletes the slot under key.
func Remove(ctx context.Context, slots store.SlotStore, owner, key string) error {
	return slots.DeleteSlot(ctx, owner, key)
}
