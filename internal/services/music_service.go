package services

import (
	"context"
	"slices"
	"strings"

	"nebula-backend/internal/models"
	"nebula-backend/internal/persist"
	"nebula-backend/internal/store"
	"nebula-backend/internal/youtube"

	"github.com/rs/zerolog"
)

const (
	defaultMusicTitle  = "Música do YouTube"
	defaultMusicArtist = "Artista desconhecido"
	defaultMusicGenre  = "outros"
)

var errBadYouTube = &ToolError{Title: "URL inválida", Description: "Por favor, insira uma URL válida do YouTube", Err: ErrValidation}

type MusicService struct {
	slots store.SlotStore
	log   zerolog.Logger
}

func NewMusicService(slots store.SlotStore, log zerolog.Logger) *MusicService {
	return &MusicService{slots: slots, log: log.With().Str("component", "music").Logger()}
}

// MusicFilter narrows a listing. Query matches title or artist; Genre "all"
// or empty matches every genre.
type MusicFilter struct {
	Query string
	Genre string
}

func (f MusicFilter) match(m models.MusicItem) bool {
	if q := strings.ToLower(f.Query); q != "" &&
		!strings.Contains(strings.ToLower(m.Title), q) &&
		!strings.Contains(strings.ToLower(m.Artist), q) {
		return false
	}
	return f.Genre == "" || f.Genre == filterAll || m.Genre == f.Genre
}

// List returns the saved tracks matching filter plus every known genre. A user
// who never saved a list gets the example tracks.
func (s *MusicService) List(ctx context.Context, owner string, filter MusicFilter) (models.ListMusicResponse, error) {
	all, err := s.all(ctx, owner)
	if err != nil {
		return models.ListMusicResponse{}, err
	}
	resp := models.ListMusicResponse{Music: make([]models.MusicItem, 0, len(all)), Genres: genresOf(all)}
	for _, m := range all {
		if filter.match(m) {
			resp.Music = append(resp.Music, m)
		}
	}
	return resp, nil
}

// Genres returns the distinct genres in insertion order.
func (s *MusicService) Genres(ctx context.Context, owner string) ([]string, error) {
	all, err := s.all(ctx, owner)
	if err != nil {
		return nil, err
	}
	return genresOf(all), nil
}

// Add bookmarks a YouTube track. The video id doubles as the item id, so the
// same video cannot be added twice.
func (s *MusicService) Add(ctx context.Context, owner string, req models.CreateMusicRequest) (models.MusicItem, error) {
	rawURL := strings.TrimSpace(req.URL)
	if rawURL == "" {
		return models.MusicItem{}, &ToolError{Title: "Erro", Description: "A URL da música é obrigatória", Err: ErrValidation}
	}
	id, ok := youtube.ExtractID(rawURL)
	if !ok {
		return models.MusicItem{}, errBadYouTube
	}

	all, err := s.all(ctx, owner)
	if err != nil {
		return models.MusicItem{}, err
	}
	if slices.ContainsFunc(all, func(m models.MusicItem) bool { return m.ID == id }) {
		return models.MusicItem{}, &ToolError{Title: "Música duplicada", Description: "Esta música já está em sua lista", Err: ErrDuplicate}
	}

	item := models.MusicItem{
		ID:        id,
		URL:       rawURL,
		Title:     orDefault(req.Title, defaultMusicTitle),
		Artist:    orDefault(req.Artist, defaultMusicArtist),
		Thumbnail: youtube.ThumbnailURL(id),
		Genre:     orDefault(strings.ToLower(req.Genre), defaultMusicGenre),
	}
	all = append(all, item)
	if err := persist.SaveList(ctx, s.slots, owner, persist.KeyMusicList, all); err != nil {
		return models.MusicItem{}, err
	}
	return item, nil
}

func (s *MusicService) Delete(ctx context.Context, owner, id string) error {
	all, err := s.all(ctx, owner)
	if err != nil {
		return err
	}
	kept := slices.DeleteFunc(all, func(m models.MusicItem) bool { return m.ID == id })
	if len(kept) == len(all) {
		return ErrItemNotFound
	}
	return persist.SaveList(ctx, s.slots, owner, persist.KeyMusicList, kept)
}

func (s *MusicService) all(ctx context.Context, owner string) ([]models.MusicItem, error) {
	return loadOrSeed(ctx, s.slots, s.log, owner, persist.KeyMusicList, false, exampleMusic)
}

func exampleMusic() []models.MusicItem {
	return []models.MusicItem{
		{
			ID:        "vEm-KM5E_00",
			URL:       youtube.WatchURL("vEm-KM5E_00"),
			Title:     "Relaxing Jazz Music",
			Artist:    "Cafe Music BGM",
			Thumbnail: youtube.ThumbnailURL("vEm-KM5E_00"),
			Genre:     "jazz",
		},
		{
			ID:        "mRD0-GxqHVo",
			URL:       youtube.WatchURL("mRD0-GxqHVo"),
			Title:     "Lofi Hip Hop Radio - beats to relax/study to",
			Artist:    "Lofi Girl",
			Thumbnail: youtube.ThumbnailURL("mRD0-GxqHVo"),
			Genre:     "lo-fi",
		},
	}
}

func genresOf(items []models.MusicItem) []string {
	out := make([]string, 0)
	for _, m := range items {
		if !slices.Contains(out, m.Genre) {
			out = append(out, m.Genre)
		}
	}
	return out
}

func orDefault(v, def string) string {
	if v = strings.TrimSpace(v); v != "" {
		return v
	}
	return def
}
