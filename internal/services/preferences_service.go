package services

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"nebula-backend/internal/models"
	"nebula-backend/internal/persist"
	"nebula-backend/internal/store"
)

// DefaultBackground is used until the user picks one.
const DefaultBackground = models.BackgroundNebula

type PreferencesService struct {
	slots store.SlotStore
}

func NewPreferencesService(slots store.SlotStore) *PreferencesService {
	return &PreferencesService{slots: slots}
}

// Background returns the saved preference. An unknown saved type falls back to
// the default; the custom URL is reported whenever one was saved.
func (s *PreferencesService) Background(ctx context.Context, owner string) (models.BackgroundPreference, error) {
	pref := models.BackgroundPreference{Type: DefaultBackground}

	raw, found, err := persist.LoadValue(ctx, s.slots, owner, persist.KeyBackgroundType)
	if err != nil {
		return pref, err
	}
	if t := models.BackgroundType(raw); found && t.Valid() {
		pref.Type = t
	}

	customURL, _, err := persist.LoadValue(ctx, s.slots, owner, persist.KeyCustomBackgroundURL)
	if err != nil {
		return pref, err
	}
	pref.CustomURL = customURL
	return pref, nil
}

// SetBackground saves the type. The custom URL is only written when the type is
// custom and a URL is given, so switching away keeps the last custom image.
func (s *PreferencesService) SetBackground(ctx context.Context, owner string, req models.UpdateBackgroundRequest) (models.BackgroundPreference, error) {
	if !req.Type.Valid() {
		return models.BackgroundPreference{}, fmt.Errorf("%w: unknown background type %q", ErrValidation, req.Type)
	}
	customURL := strings.TrimSpace(req.CustomURL)
	if req.Type == models.BackgroundCustom && customURL != "" {
		u, err := url.Parse(customURL)
		if err != nil || u.Scheme == "" || (u.Host == "" && u.Scheme != "data") {
			return models.BackgroundPreference{}, fmt.Errorf("%w: custom background must be an absolute or data URL", ErrValidation)
		}
	}

	if err := persist.SaveValue(ctx, s.slots, owner, persist.KeyBackgroundType, string(req.Type)); err != nil {
		return models.BackgroundPreference{}, err
	}
	if req.Type == models.BackgroundCustom && customURL != "" {
		if err := persist.SaveValue(ctx, s.slots, owner, persist.KeyCustomBackgroundURL, customURL); err != nil {
			return models.BackgroundPreference{}, err
		}
	}
	return s.Background(ctx, owner)
}
