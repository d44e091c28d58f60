package models

import "time"

// CalendarEvent is an entry of the personal calendar.
type CalendarEvent struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Date        time.Time `json:"date"`
	Time        string    `json:"time,omitempty"` // free form "HH:MM"
	MeetingURL  string    `json:"meetingUrl,omitempty"`
	Reminders   []int     `json:"reminders"` // hours before the event
	IsHoliday   bool      `json:"isHoliday,omitempty"`
}

// SameDay reports whether the event falls on the calendar day of t.
func (e CalendarEvent) SameDay(t time.Time) bool {
	ey, em, ed := e.Date.Date()
	ty, tm, td := t.In(e.Date.Location()).Date()
	return ey == ty && em == tm && ed == td
}

// MusicItem is a bookmarked YouTube track. ID is the YouTube video id.
type MusicItem struct {
	ID        string `json:"id"`
	URL       string `json:"url"`
	Title     string `json:"title"`
	Artist    string `json:"artist"`
	Thumbnail string `json:"thumbnail"`
	Genre     string `json:"genre"`
}

// VideoItem is a bookmarked YouTube video. ID is the YouTube video id.
type VideoItem struct {
	ID          string   `json:"id"`
	URL         string   `json:"url"`
	Title       string   `json:"title"`
	Thumbnail   string   `json:"thumbnail"`
	Description string   `json:"description"`
	Tags        []string `json:"tags"`
}

// BackgroundType is the chat backdrop preference.
type BackgroundType string

const (
	BackgroundDeepSpace BackgroundType = "deep-space"
	BackgroundNebula    BackgroundType = "nebula"
	BackgroundSunlit    BackgroundType = "sunlit"
	BackgroundCustom    BackgroundType = "custom"
)

func (b BackgroundType) Valid() bool {
	switch b {
	case BackgroundDeepSpace, BackgroundNebula, BackgroundSunlit, BackgroundCustom:
		return true
	}
	return false
}

// BackgroundPreference is what the settings screen reads and writes.
type BackgroundPreference struct {
	Type      BackgroundType `json:"type"`
	CustomURL string         `json:"customUrl,omitempty"`
}
