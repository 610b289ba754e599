// Package reminders turns lunar birthdays into all-day reminder entries on
// their Gregorian dates.
package reminders

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/zapponejosh/lunar-birthday-api/internal/database"
	"github.com/zapponejosh/lunar-birthday-api/internal/lunar"
	"github.com/zapponejosh/lunar-birthday-api/internal/metrics"
)

const (
	// SummarySuffix is appended to the person's name to form an entry title.
	SummarySuffix = "'s Lunar Birthday"

	// Description is attached to every reminder entry.
	Description = "Lunar Birthday Reminder"

	// MaxNameLength bounds the stored name, in characters.
	MaxNameLength = 100
)

var (
	// ErrInvalidBirthday is returned when a birthday fails validation.
	ErrInvalidBirthday = errors.New("invalid birthday")

	// ErrNoOccurrences is returned when a lunar month/day never occurs in
	// any remaining supported year.
	ErrNoOccurrences = errors.New("birthday has no dates in supported years")
)

// LunarBirthday is the lunar date of a birthday. Year is optional; when set
// the full date is checked against the lunar table.
type LunarBirthday struct {
	Year        int  `json:"year,omitempty" yaml:"year,omitempty"`
	Month       int  `json:"month" yaml:"month"`
	Day         int  `json:"day" yaml:"day"`
	IsLeapMonth bool `json:"is_leap_month" yaml:"is_leap_month"`
}

// BirthdayInput is one birthday to schedule.
type BirthdayInput struct {
	Name          string        `json:"name" yaml:"name"`
	LunarBirthday LunarBirthday `json:"lunar_birthday" yaml:"lunar_birthday"`
}

// Scheduled is a stored birthday and the dates its reminders were created on.
type Scheduled struct {
	Birthday database.Birthday      `json:"birthday"`
	Dates    []lunar.GregorianDate `json:"dates"`
}

// Service schedules and manages birthday reminders.
type Service struct {
	db        *database.DB
	converter *lunar.Converter
	metrics   *metrics.Metrics
	logger    *slog.Logger
	now       func() time.Time
	loc       *time.Location
}

// NewService creates a Service. metrics may be nil.
func NewService(db *database.DB, converter *lunar.Converter, m *metrics.Metrics, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		db:        db,
		converter: converter,
		metrics:   m,
		logger:    logger,
		now:       time.Now,
		loc:       time.UTC,
	}
}

// SetClock replaces the clock used to decide which reminders are past.
func (s *Service) SetClock(now func() time.Time) {
	s.now = now
}

// SetLocation sets the zone in which "today" is taken when pruning. The
// default is UTC.
func (s *Service) SetLocation(loc *time.Location) {
	if loc == nil {
		loc = time.UTC
	}
	s.loc = loc
}

func (s *Service) today() lunar.GregorianDate {
	return lunar.FromTime(s.now().In(s.loc))
}

// Summary returns the reminder title for name.
func Summary(name string) string {
	return name + SummarySuffix
}

// validate normalises in and returns the dates its reminders fall on.
func (s *Service) validate(in *BirthdayInput) ([]lunar.GregorianDate, error) {
	in.Name = strings.TrimSpace(in.Name)
	lb := in.LunarBirthday

	var errs []error
	if in.Name == "" {
		errs = append(errs, errors.New("name is required"))
	} else if utf8.RuneCountInString(in.Name) > MaxNameLength {
		errs = append(errs, fmt.Errorf("name must be at most %d characters", MaxNameLength))
	}
	if lb.Month < 1 || lb.Month > 12 {
		errs = append(errs, fmt.Errorf("month must be between 1 and 12, got %d", lb.Month))
	}
	if lb.Day < 1 || lb.Day > 30 {
		errs = append(errs, fmt.Errorf("day must be between 1 and 30, got %d", lb.Day))
	}
	if len(errs) > 0 {
		return nil, fmt.Errorf("%w: %w", ErrInvalidBirthday, errors.Join(errs...))
	}

	if lb.Year != 0 {
		if _, err := s.converter.Convert(lunar.LunarDate{
			Year: lb.Year, Month: lb.Month, Day: lb.Day, IsLeapMonth: lb.IsLeapMonth,
		}); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidBirthday, err)
		}
	}

	dates := s.converter.Project(lb.Month, lb.Day, lb.IsLeapMonth)
	if len(dates) == 0 {
		s.metrics.IncConversion("project", "empty")
		return nil, fmt.Errorf("%w: %s", ErrNoOccurrences, describe(lb))
	}
	s.metrics.IncConversion("project", "ok")
	return dates, nil
}

func describe(lb LunarBirthday) string {
	if lb.IsLeapMonth {
		return fmt.Sprintf("leap month %d day %d", lb.Month, lb.Day)
	}
	return fmt.Sprintf("month %d day %d", lb.Month, lb.Day)
}

// AddBirthdays validates every input, then stores the birthdays and one
// all-day reminder per projected date in a single transaction. Nothing is
// stored if any input is invalid.
func (s *Service) AddBirthdays(ctx context.Context, inputs []BirthdayInput) ([]Scheduled, error) {
	out, _, err := s.store(ctx, inputs, false)
	return out, err
}

// ReplaceBirthdays is AddBirthdays preceded by removing every stored
// birthday and reminder, all in one transaction. When any input is invalid
// or a write fails, the stored data is left as it was. The number of
// reminders removed is returned with the new schedule.
func (s *Service) ReplaceBirthdays(ctx context.Context, inputs []BirthdayInput) ([]Scheduled, int64, error) {
	return s.store(ctx, inputs, true)
}

func (s *Service) store(ctx context.Context, inputs []BirthdayInput, replace bool) ([]Scheduled, int64, error) {
	if len(inputs) == 0 {
		return nil, 0, fmt.Errorf("%w: no birthdays given", ErrInvalidBirthday)
	}

	projected := make([][]lunar.GregorianDate, len(inputs))
	var errs []error
	for i := range inputs {
		dates, err := s.validate(&inputs[i])
		if err != nil {
			errs = append(errs, fmt.Errorf("birthday %d: %w", i+1, err))
			continue
		}
		projected[i] = dates
	}
	if len(errs) > 0 {
		return nil, 0, errors.Join(errs...)
	}

	out := make([]Scheduled, 0, len(inputs))
	var created int
	var removed int64
	err := s.db.WithTx(ctx, func(tx *database.Tx) error {
		if replace {
			n, err := tx.DeleteAll(ctx)
			if err != nil {
				return fmt.Errorf("remove existing birthdays: %w", err)
			}
			removed = n
		}

		for i, in := range inputs {
			b := database.Birthday{
				Name:        in.Name,
				LunarMonth:  in.LunarBirthday.Month,
				LunarDay:    in.LunarBirthday.Day,
				IsLeapMonth: in.LunarBirthday.IsLeapMonth,
			}
			if err := tx.CreateBirthday(ctx, &b); err != nil {
				return fmt.Errorf("store birthday %q: %w", in.Name, err)
			}

			rows := make([]database.Reminder, 0, len(projected[i]))
			for _, d := range projected[i] {
				rows = append(rows, database.Reminder{
					BirthdayID:  b.ID,
					Summary:     Summary(in.Name),
					Description: Description,
					Date:        d.String(),
					AllDay:      true,
				})
			}
			if err := tx.CreateReminders(ctx, rows); err != nil {
				return fmt.Errorf("store reminders for %q: %w", in.Name, err)
			}

			created += len(rows)
			out = append(out, Scheduled{Birthday: b, Dates: projected[i]})
		}
		return nil
	})
	if err != nil {
		return nil, 0, err
	}

	if replace {
		s.metrics.AddRemindersDeleted("replace", removed)
	}
	s.metrics.AddRemindersCreated(created)
	s.logger.InfoContext(ctx, "birthdays scheduled",
		slog.Int("birthdays", len(out)),
		slog.Int("reminders", created),
		slog.Int64("replaced", removed),
	)
	return out, removed, nil
}

// GetBirthday returns one birthday and its stored reminders in date order.
func (s *Service) GetBirthday(ctx context.Context, id int64) (*database.Birthday, []database.Reminder, error) {
	b, err := s.db.GetBirthday(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	rows, err := s.db.ListReminders(ctx, database.ReminderFilter{BirthdayID: id})
	if err != nil {
		return nil, nil, err
	}
	return b, rows, nil
}

// ListBirthdays returns every stored birthday with its reminder count.
func (s *Service) ListBirthdays(ctx context.Context) ([]database.BirthdayWithReminders, error) {
	return s.db.ListBirthdays(ctx)
}

// DeleteBirthday removes one birthday and its reminders.
func (s *Service) DeleteBirthday(ctx context.Context, id int64) (int64, error) {
	n, err := s.db.DeleteBirthday(ctx, id)
	if err != nil {
		return 0, err
	}
	s.metrics.AddRemindersDeleted("birthday", n)
	return n, nil
}

// ListReminders returns reminders matching filter.
func (s *Service) ListReminders(ctx context.Context, filter database.ReminderFilter) ([]database.Reminder, error) {
	return s.db.ListReminders(ctx, filter)
}

// HasReminders reports whether any reminder is stored.
func (s *Service) HasReminders(ctx context.Context) (bool, error) {
	n, err := s.db.CountReminders(ctx)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// ClearReminders removes every birthday and reminder and returns the number
// of reminders removed.
func (s *Service) ClearReminders(ctx context.Context) (int64, error) {
	n, err := s.db.DeleteAll(ctx)
	if err != nil {
		return 0, err
	}
	s.metrics.AddRemindersDeleted("clear", n)
	s.logger.InfoContext(ctx, "reminders cleared", slog.Int64("deleted", n))
	return n, nil
}

// PrunePast removes reminders dated before today in the service's
// location.
func (s *Service) PrunePast(ctx context.Context) (int64, error) {
	today := s.today()
	n, err := s.db.DeleteRemindersBefore(ctx, today.String())
	if err != nil {
		return 0, err
	}
	s.metrics.AddRemindersDeleted("prune", n)
	if n > 0 {
		s.logger.InfoContext(ctx, "past reminders pruned",
			slog.String("before", today.String()),
			slog.Int64("deleted", n),
		)
	}
	return n, nil
}
