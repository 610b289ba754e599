package reminders

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zapponejosh/lunar-birthday-api/internal/database"
	"github.com/zapponejosh/lunar-birthday-api/internal/logger"
	"github.com/zapponejosh/lunar-birthday-api/internal/lunar"
	"github.com/zapponejosh/lunar-birthday-api/internal/metrics"
)

func at(year int, month time.Month, day int) func() time.Time {
	return func() time.Time {
		return time.Date(year, month, day, 9, 0, 0, 0, time.UTC)
	}
}

type fixture struct {
	svc     *Service
	db      *database.DB
	metrics *metrics.Metrics
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	db, err := database.Open(database.DefaultConfig(":memory:"), logger.Discard())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	_, err = db.Migrate(context.Background())
	require.NoError(t, err)

	table, err := lunar.ReferenceTable()
	require.NoError(t, err)
	conv := lunar.NewConverter(table, lunar.WithClock(at(2026, time.March, 1)))

	m := metrics.New()
	svc := NewService(db, conv, m, logger.Discard())
	svc.SetClock(at(2026, time.March, 1))
	return &fixture{svc: svc, db: db, metrics: m}
}

func TestAddBirthdays(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	got, err := f.svc.AddBirthdays(ctx, []BirthdayInput{
		{Name: "  Mei ", LunarBirthday: LunarBirthday{Month: 8, Day: 15}},
		{Name: "Grandma", LunarBirthday: LunarBirthday{Month: 4, Day: 15, IsLeapMonth: true}},
	})
	require.NoError(t, err)
	require.Len(t, got, 2)

	mei := got[0]
	assert.Equal(t, "Mei", mei.Birthday.Name)
	assert.NotZero(t, mei.Birthday.ID)
	require.Len(t, mei.Dates, 28)
	assert.Equal(t, "2026-09-26", mei.Dates[0].String())
	assert.Equal(t, "2027-09-14", mei.Dates[1].String())

	grandma := got[1]
	require.Len(t, grandma.Dates, 2)
	assert.Equal(t, "2040-06-23", grandma.Dates[0].String())
	assert.Equal(t, "2049-06-14", grandma.Dates[1].String())

	rows, err := f.svc.ListReminders(ctx, database.ReminderFilter{BirthdayID: grandma.Birthday.ID})
	require.NoError(t, err)
	require.Len(t, rows, 2)
	for _, r := range rows {
		assert.Equal(t, "Grandma's Lunar Birthday", r.Summary)
		assert.Equal(t, Description, r.Description)
		assert.True(t, r.AllDay)
	}

	assert.Equal(t, 30.0, testutil.ToFloat64(f.metrics.RemindersCreated))
	assert.Equal(t, 2.0, testutil.ToFloat64(f.metrics.Conversions.WithLabelValues("project", "ok")))
}

func TestAddBirthdays_WithBirthYear(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.AddBirthdays(context.Background(), []BirthdayInput{
		{Name: "Lan", LunarBirthday: LunarBirthday{Year: 2024, Month: 4, Day: 15, IsLeapMonth: true}},
	})
	require.NoError(t, err)
}

func TestAddBirthdays_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		inputs  []BirthdayInput
		wantErr error
		msg     string
	}{
		{
			name:    "empty batch",
			inputs:  nil,
			wantErr: ErrInvalidBirthday,
		},
		{
			name:    "blank name",
			inputs:  []BirthdayInput{{Name: "   ", LunarBirthday: LunarBirthday{Month: 1, Day: 1}}},
			wantErr: ErrInvalidBirthday,
			msg:     "name is required",
		},
		{
			name:    "month out of range",
			inputs:  []BirthdayInput{{Name: "A", LunarBirthday: LunarBirthday{Month: 13, Day: 1}}},
			wantErr: ErrInvalidBirthday,
			msg:     "month must be between 1 and 12",
		},
		{
			name:    "day out of range",
			inputs:  []BirthdayInput{{Name: "A", LunarBirthday: LunarBirthday{Month: 1, Day: 31}}},
			wantErr: ErrInvalidBirthday,
			msg:     "day must be between 1 and 30",
		},
		{
			name:    "birth year without that leap month",
			inputs:  []BirthdayInput{{Name: "A", LunarBirthday: LunarBirthday{Year: 2026, Month: 4, Day: 15, IsLeapMonth: true}}},
			wantErr: lunar.ErrInvalidLeapMonth,
		},
		{
			name:    "birth year outside the table",
			inputs:  []BirthdayInput{{Name: "A", LunarBirthday: LunarBirthday{Year: 1990, Month: 1, Day: 1}}},
			wantErr: lunar.ErrUnsupportedYear,
		},
		{
			name:    "leap month that never occurs",
			inputs:  []BirthdayInput{{Name: "A", LunarBirthday: LunarBirthday{Month: 1, Day: 1, IsLeapMonth: true}}},
			wantErr: ErrNoOccurrences,
			msg:     "leap month 1 day 1",
		},
		{
			name: "second entry invalid",
			inputs: []BirthdayInput{
				{Name: "Ok", LunarBirthday: LunarBirthday{Month: 1, Day: 1}},
				{Name: "", LunarBirthday: LunarBirthday{Month: 1, Day: 1}},
			},
			wantErr: ErrInvalidBirthday,
			msg:     "birthday 2",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			ctx := context.Background()

			_, err := f.svc.AddBirthdays(ctx, tt.inputs)
			require.ErrorIs(t, err, tt.wantErr)
			if tt.msg != "" {
				assert.Contains(t, err.Error(), tt.msg)
			}

			has, err := f.svc.HasReminders(ctx)
			require.NoError(t, err)
			assert.False(t, has, "nothing is stored when validation fails")
		})
	}
}

func TestReplaceBirthdays(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.AddBirthdays(ctx, []BirthdayInput{
		{Name: "Mei", LunarBirthday: LunarBirthday{Month: 8, Day: 15}},
	})
	require.NoError(t, err)

	got, removed, err := f.svc.ReplaceBirthdays(ctx, []BirthdayInput{
		{Name: "Grandma", LunarBirthday: LunarBirthday{Month: 4, Day: 15, IsLeapMonth: true}},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(28), removed)
	require.Len(t, got, 1)

	birthdays, err := f.svc.ListBirthdays(ctx)
	require.NoError(t, err)
	require.Len(t, birthdays, 1)
	assert.Equal(t, "Grandma", birthdays[0].Name)
	assert.Equal(t, 2, birthdays[0].ReminderCount)
	assert.Equal(t, 28.0, testutil.ToFloat64(f.metrics.RemindersDeleted.WithLabelValues("replace")))
}

func TestReplaceBirthdays_InvalidKeepsExisting(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.AddBirthdays(ctx, []BirthdayInput{
		{Name: "Mei", LunarBirthday: LunarBirthday{Month: 8, Day: 15}},
	})
	require.NoError(t, err)

	_, removed, err := f.svc.ReplaceBirthdays(ctx, []BirthdayInput{
		{Name: "Ana", LunarBirthday: LunarBirthday{Month: 1, Day: 1}},
		{Name: "", LunarBirthday: LunarBirthday{Month: 13, Day: 1}},
	})
	require.ErrorIs(t, err, ErrInvalidBirthday)
	assert.Zero(t, removed)

	birthdays, err := f.svc.ListBirthdays(ctx)
	require.NoError(t, err)
	require.Len(t, birthdays, 1)
	assert.Equal(t, "Mei", birthdays[0].Name)
	assert.Equal(t, 28, birthdays[0].ReminderCount)
}

func TestGetBirthday(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	got, err := f.svc.AddBirthdays(ctx, []BirthdayInput{
		{Name: "Grandma", LunarBirthday: LunarBirthday{Month: 4, Day: 15, IsLeapMonth: true}},
	})
	require.NoError(t, err)

	b, rows, err := f.svc.GetBirthday(ctx, got[0].Birthday.ID)
	require.NoError(t, err)
	assert.Equal(t, "Grandma", b.Name)
	require.Len(t, rows, 2)
	assert.Equal(t, "2040-06-23", rows[0].Date)
	assert.Equal(t, "2049-06-14", rows[1].Date)

	_, _, err = f.svc.GetBirthday(ctx, 999)
	assert.True(t, database.IsNotFound(err))
}

func TestHasAndClearReminders(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	has, err := f.svc.HasReminders(ctx)
	require.NoError(t, err)
	assert.False(t, has)

	_, err = f.svc.AddBirthdays(ctx, []BirthdayInput{
		{Name: "Mei", LunarBirthday: LunarBirthday{Month: 8, Day: 15}},
	})
	require.NoError(t, err)

	has, err = f.svc.HasReminders(ctx)
	require.NoError(t, err)
	assert.True(t, has)

	n, err := f.svc.ClearReminders(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(28), n)
	assert.Equal(t, 28.0, testutil.ToFloat64(f.metrics.RemindersDeleted.WithLabelValues("clear")))

	birthdays, err := f.svc.ListBirthdays(ctx)
	require.NoError(t, err)
	assert.Empty(t, birthdays)
}

func TestDeleteBirthday(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	got, err := f.svc.AddBirthdays(ctx, []BirthdayInput{
		{Name: "Mei", LunarBirthday: LunarBirthday{Month: 8, Day: 15}},
		{Name: "Ana", LunarBirthday: LunarBirthday{Month: 1, Day: 1}},
	})
	require.NoError(t, err)

	n, err := f.svc.DeleteBirthday(ctx, got[0].Birthday.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(28), n)

	_, err = f.svc.DeleteBirthday(ctx, got[0].Birthday.ID)
	assert.True(t, database.IsNotFound(err))

	birthdays, err := f.svc.ListBirthdays(ctx)
	require.NoError(t, err)
	require.Len(t, birthdays, 1)
	assert.Equal(t, "Ana", birthdays[0].Name)
	assert.Equal(t, 28, birthdays[0].ReminderCount)
}

func TestPrunePast(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.AddBirthdays(ctx, []BirthdayInput{
		{Name: "Mei", LunarBirthday: LunarBirthday{Month: 8, Day: 15}},
	})
	require.NoError(t, err)

	// 2026-09-26 is before the clock, 2027-09-14 is not.
	f.svc.SetClock(at(2027, time.January, 1))
	n, err := f.svc.PrunePast(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	left, err := f.svc.ListReminders(ctx, database.ReminderFilter{Limit: 1})
	require.NoError(t, err)
	require.Len(t, left, 1)
	assert.Equal(t, "2027-09-14", left[0].Date)

	// The reminder dated today survives.
	f.svc.SetClock(at(2027, time.September, 14))
	n, err = f.svc.PrunePast(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.RemindersDeleted.WithLabelValues("prune")))
}

func TestPrunePast_UsesLocation(t *testing.T) {
	ctx := context.Background()
	newYork := time.FixedZone("EST", -5*60*60)
	// 23:30 on 2026-09-26 in New York is already 2026-09-27 in UTC.
	lateEvening := func() time.Time { return time.Date(2026, time.September, 26, 23, 30, 0, 0, newYork) }

	tests := []struct {
		name string
		loc  *time.Location
		want int64
	}{
		{name: "default UTC", loc: nil, want: 1},
		{name: "scheduler zone", loc: newYork, want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			_, err := f.svc.AddBirthdays(ctx, []BirthdayInput{
				{Name: "Mei", LunarBirthday: LunarBirthday{Month: 8, Day: 15}},
			})
			require.NoError(t, err)

			if tt.loc != nil {
				_, err := NewScheduler(f.svc, "@daily", tt.loc, logger.Discard())
				require.NoError(t, err)
			}
			f.svc.SetClock(lateEvening)

			n, err := f.svc.PrunePast(ctx)
			require.NoError(t, err)
			assert.Equal(t, tt.want, n, "reminder on 2026-09-26")
		})
	}
}

func TestScheduler(t *testing.T) {
	f := newFixture(t)

	_, err := NewScheduler(f.svc, "not a schedule", nil, logger.Discard())
	require.Error(t, err)

	s, err := NewScheduler(f.svc, "@daily", time.UTC, logger.Discard())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("scheduler did not stop")
	}

	// Stopping an already stopped scheduler is a no-op.
	assert.NoError(t, s.Stop(context.Background()))
}

func TestScheduler_RunOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.AddBirthdays(ctx, []BirthdayInput{
		{Name: "Mei", LunarBirthday: LunarBirthday{Month: 8, Day: 15}},
	})
	require.NoError(t, err)
	f.svc.SetClock(at(2028, time.January, 1))

	s, err := NewScheduler(f.svc, "@hourly", nil, logger.Discard())
	require.NoError(t, err)
	s.runOnce()

	n, err := f.db.CountReminders(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(26), n)
}
