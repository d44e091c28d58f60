package services

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"nebula-backend/internal/models"
	"nebula-backend/internal/persist"
	"nebula-backend/internal/store"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const (
	MaxReminders = 5
	dateLayout   = "2006-01-02"
)

var defaultReminders = []int{1}

type CalendarService struct {
	slots store.SlotStore
	loc   *time.Location
	now   func() time.Time
	log   zerolog.Logger
}

func NewCalendarService(slots store.SlotStore, loc *time.Location, log zerolog.Logger) *CalendarService {
	if loc == nil {
		loc = time.Local
	}
	return &CalendarService{
		slots: slots,
		loc:   loc,
		now:   time.Now,
		log:   log.With().Str("component", "calendar").Logger(),
	}
}

// Events returns every event. A calendar with no events is seeded with the
// national holidays of the current year.
func (s *CalendarService) Events(ctx context.Context, owner string) ([]models.CalendarEvent, error) {
	return loadOrSeed(ctx, s.slots, s.log, owner, persist.KeyCalendarEvents, true, s.holidays)
}

// EventsOn returns the events falling on the calendar day of date.
func (s *CalendarService) EventsOn(ctx context.Context, owner string, date time.Time) ([]models.CalendarEvent, error) {
	events, err := s.Events(ctx, owner)
	if err != nil {
		return nil, err
	}
	out := make([]models.CalendarEvent, 0)
	for _, e := range events {
		if e.SameDay(date) {
			out = append(out, e)
		}
	}
	return out, nil
}

// ParseDate reads a YYYY-MM-DD day in the calendar's location.
func (s *CalendarService) ParseDate(raw string) (time.Time, error) {
	d, err := time.ParseInLocation(dateLayout, strings.TrimSpace(raw), s.loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: date must be YYYY-MM-DD", ErrValidation)
	}
	return d, nil
}

// AddEvent validates and appends an event.
func (s *CalendarService) AddEvent(ctx context.Context, owner string, req models.CreateCalendarEventRequest) (models.CalendarEvent, error) {
	title := strings.TrimSpace(req.Title)
	if title == "" {
		return models.CalendarEvent{}, &ToolError{Title: "Erro", Description: "O título do evento é obrigatório", Err: ErrValidation}
	}
	if len(req.Reminders) > MaxReminders {
		return models.CalendarEvent{}, &ToolError{
			Title:       "Limite de lembretes",
			Description: fmt.Sprintf("Você atingiu o limite de %d lembretes por evento", MaxReminders),
			Err:         ErrValidation,
		}
	}
	for _, r := range req.Reminders {
		if r < 0 {
			return models.CalendarEvent{}, fmt.Errorf("%w: reminders must not be negative", ErrValidation)
		}
	}

	date := s.today()
	if strings.TrimSpace(req.Date) != "" {
		d, err := s.ParseDate(req.Date)
		if err != nil {
			return models.CalendarEvent{}, err
		}
		date = d
	}
	reminders := slices.Clone(req.Reminders)
	if len(reminders) == 0 {
		reminders = slices.Clone(defaultReminders)
	}

	event := models.CalendarEvent{
		ID:          "event-" + uuid.NewString(),
		Title:       title,
		Description: strings.TrimSpace(req.Description),
		Date:        date,
		Time:        strings.TrimSpace(req.Time),
		MeetingURL:  strings.TrimSpace(req.MeetingURL),
		Reminders:   reminders,
	}

	events, err := s.Events(ctx, owner)
	if err != nil {
		return models.CalendarEvent{}, err
	}
	events = append(events, event)
	if err := persist.SaveList(ctx, s.slots, owner, persist.KeyCalendarEvents, events); err != nil {
		return models.CalendarEvent{}, err
	}
	return event, nil
}

// DeleteEvent removes the event with id.
func (s *CalendarService) DeleteEvent(ctx context.Context, owner, id string) error {
	events, err := s.Events(ctx, owner)
	if err != nil {
		return err
	}
	kept := slices.DeleteFunc(events, func(e models.CalendarEvent) bool { return e.ID == id })
	if len(kept) == len(events) {
		return ErrItemNotFound
	}
	return persist.SaveList(ctx, s.slots, owner, persist.KeyCalendarEvents, kept)
}

func (s *CalendarService) today() time.Time {
	y, m, d := s.now().In(s.loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, s.loc)
}

func (s *CalendarService) holidays() []models.CalendarEvent {
	year := s.now().In(s.loc).Year()
	day := func(m time.Month, d int) time.Time { return time.Date(year, m, d, 0, 0, 0, 0, s.loc) }
	return []models.CalendarEvent{
		{ID: "holiday-1", Title: "Ano Novo", Date: day(time.January, 1), IsHoliday: true, Reminders: []int{}},
		{ID: "holiday-2", Title: "Carnaval", Date: day(time.February, 13), IsHoliday: true, Reminders: []int{}},
		{ID: "holiday-3", Title: "Tiradentes", Date: day(time.April, 21), IsHoliday: true, Reminders: []int{}},
		{ID: "holiday-4", Title: "Natal", Date: day(time.December, 25), IsHoliday: true, Reminders: []int{}},
	}
}
