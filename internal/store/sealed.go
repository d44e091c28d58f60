package store

import (
	"context"
	"fmt"

	"nebula-backend/internal/crypto"
)

// Sealed wraps a SlotStore and encrypts every value at rest. The owner and
// key are bound as additional data, so a value copied to another slot fails
// to open.
type Sealed struct {
	next   SlotStore
	sealer *crypto.Sealer
}

var _ SlotStore = (*Sealed)(nil)

func NewSealed(next SlotStore, sealer *crypto.Sealer) *Sealed {
	return &Sealed{next: next, sealer: sealer}
}

func slotAD(owner, key string) []byte {
	return []byte(owner + "\x00" + key)
}

func (s *Sealed) GetSlot(ctx context.Context, owner, key string) ([]byte, error) {
	raw, err := s.next.GetSlot(ctx, owner, key)
	if err != nil {
		return nil, err
	}
	plain, err := s.sealer.Open(raw, slotAD(owner, key))
	if err != nil {
		return nil, fmt.Errorf("opening slot %s: %w", key, err)
	}
	return plain, nil
}

func (s *Sealed) PutSlot(ctx context.Context, owner, key string, value []byte) error {
	sealed, err := s.sealer.Seal(value, slotAD(owner, key))
	if err != nil {
		return fmt.Errorf("sealing slot %s: %w", key, err)
	}
	return s.next.PutSlot(ctx, owner, key, sealed)
}

func (s *Sealed) DeleteSlot(ctx context.Context, owner, key string) error {
	return s.next.DeleteSlot(ctx, owner, key)
}
