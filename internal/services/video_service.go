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

const defaultVideoTitle = "Vídeo do YouTube"

type VideoService struct {
	slots store.SlotStore
	log   zerolog.Logger
}

func NewVideoService(slots store.SlotStore, log zerolog.Logger) *VideoService {
	return &VideoService{slots: slots, log: log.With().Str("component", "videos").Logger()}
}

// VideoFilter narrows a listing. Query matches title or description; Tag "all"
// or empty matches every video.
type VideoFilter struct {
	Query string
	Tag   string
}

func (f VideoFilter) match(v models.VideoItem) bool {
	if q := strings.ToLower(f.Query); q != "" &&
		!strings.Contains(strings.ToLower(v.Title), q) &&
		!strings.Contains(strings.ToLower(v.Description), q) {
		return false
	}
	return f.Tag == "" || f.Tag == filterAll || slices.Contains(v.Tags, f.Tag)
}

func (s *VideoService) List(ctx context.Context, owner string, filter VideoFilter) (models.ListVideosResponse, error) {
	all, err := s.all(ctx, owner)
	if err != nil {
		return models.ListVideosResponse{}, err
	}
	resp := models.ListVideosResponse{Videos: make([]models.VideoItem, 0, len(all)), Tags: tagsOf(all)}
	for _, v := range all {
		if filter.match(v) {
			resp.Videos = append(resp.Videos, v)
		}
	}
	return resp, nil
}

// Tags returns the distinct tags in insertion order.
func (s *VideoService) Tags(ctx context.Context, owner string) ([]string, error) {
	all, err := s.all(ctx, owner)
	if err != nil {
		return nil, err
	}
	return tagsOf(all), nil
}

func (s *VideoService) Add(ctx context.Context, owner string, req models.CreateVideoRequest) (models.VideoItem, error) {
	rawURL := strings.TrimSpace(req.URL)
	if rawURL == "" {
		return models.VideoItem{}, &ToolError{Title: "Erro", Description: "A URL do vídeo é obrigatória", Err: ErrValidation}
	}
	id, ok := youtube.ExtractID(rawURL)
	if !ok {
		return models.VideoItem{}, errBadYouTube
	}

	all, err := s.all(ctx, owner)
	if err != nil {
		return models.VideoItem{}, err
	}
	if slices.ContainsFunc(all, func(v models.VideoItem) bool { return v.ID == id }) {
		return models.VideoItem{}, &ToolError{Title: "Vídeo duplicado", Description: "Este vídeo já está em sua lista", Err: ErrDuplicate}
	}

	item := models.VideoItem{
		ID:          id,
		URL:         rawURL,
		Title:       orDefault(req.Title, defaultVideoTitle),
		Thumbnail:   youtube.ThumbnailURL(id),
		Description: strings.TrimSpace(req.Description),
		Tags:        ParseTags(req.Tags),
	}
	all = append(all, item)
	if err := persist.SaveList(ctx, s.slots, owner, persist.KeyYoutubeVideos, all); err != nil {
		return models.VideoItem{}, err
	}
	return item, nil
}

func (s *VideoService) Delete(ctx context.Context, owner, id string) error {
	all, err := s.all(ctx, owner)
	if err != nil {
		return err
	}
	kept := slices.DeleteFunc(all, func(v models.VideoItem) bool { return v.ID == id })
	if len(kept) == len(all) {
		return ErrItemNotFound
	}
	return persist.SaveList(ctx, s.slots, owner, persist.KeyYoutubeVideos, kept)
}

// ParseTags splits a comma separated tag list, trimming and lower-casing each
// tag. Empty entries are dropped.
func ParseTags(raw string) []string {
	tags := make([]string, 0)
	for _, t := range strings.Split(raw, ",") {
		if t = strings.ToLower(strings.TrimSpace(t)); t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}

func (s *VideoService) all(ctx context.Context, owner string) ([]models.VideoItem, error) {
	return loadOrSeed(ctx, s.slots, s.log, owner, persist.KeyYoutubeVideos, false, exampleVideos)
}

func exampleVideos() []models.VideoItem {
	return []models.VideoItem{
		{
			ID:          "dQw4w9WgXcQ",
			URL:         youtube.WatchURL("dQw4w9WgXcQ"),
			Title:       "Rick Astley - Never Gonna Give You Up",
			Thumbnail:   youtube.ThumbnailURL("dQw4w9WgXcQ"),
			Description: "Clássico dos anos 80",
			Tags:        []string{"música", "pop", "anos80"},
		},
		{
			ID:          "9bZkp7q19f0",
			URL:         youtube.WatchURL("9bZkp7q19f0"),
			Title:       "PSY - GANGNAM STYLE",
			Thumbnail:   youtube.ThumbnailURL("9bZkp7q19f0"),
			Description: "O vídeo mais viral de todos os tempos",
			Tags:        []string{"música", "kpop"},
		},
	}
}

func tagsOf(items []models.VideoItem) []string {
	out := make([]string, 0)
	for _, v := range items {
		for _, t := range v.Tags {
			if !slices.Contains(out, t) {
				out = append(out, t)
			}
		}
	}
	return out
}
