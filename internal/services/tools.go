package services

import (
	"context"
	"errors"
	"fmt"

	"nebula-backend/internal/persist"
	"nebula-backend/internal/store"

	"github.com/rs/zerolog"
)

var (
	ErrDuplicate    = errors.New("item already exists")
	ErrItemNotFound = errors.New("item not found")
)

// filterAll is the genre or tag filter that matches everything.
const filterAll = "all"

// ToolError is a rejected tool operation together with the localized notice
// the client shows for it.
type ToolError struct {
	Title       string
	Description string
	Err         error
}

func (e *ToolError) Error() string { return fmt.Sprintf("%v: %s", e.Err, e.Description) }
func (e *ToolError) Unwrap() error { return e.Err }

// loadOrSeed reads the list under key. When the slot is missing, or empty and
// seedEmpty is set, the seed list is saved and returned instead. A corrupt slot
// is logged and treated as missing.
func loadOrSeed[T any](ctx context.Context, slots store.SlotStore, log zerolog.Logger, owner, key string, seedEmpty bool, seed func() []T) ([]T, error) {
	items, found, err := persist.LoadList[T](ctx, slots, owner, key)
	if err != nil {
		if !persist.IsParseError(err) {
			return nil, err
		}
		log.Warn().Err(err).Str("owner", owner).Msg("discarding unreadable saved list")
		found = false
	}
	if found && (len(items) > 0 || !seedEmpty) {
		return items, nil
	}
	items = seed()
	if err := persist.SaveList(ctx, slots, owner, key, items); err != nil {
		return nil, err
	}
	return items, nil
}
