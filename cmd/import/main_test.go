package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zapponejosh/lunar-birthday-api/internal/database"
	"github.com/zapponejosh/lunar-birthday-api/internal/logger"
	"github.com/zapponejosh/lunar-birthday-api/internal/reminders"
)

func TestParseBirthdays(t *testing.T) {
	want := []reminders.BirthdayInput{
		{Name: "Mei", LunarBirthday: reminders.LunarBirthday{Month: 8, Day: 15}},
		{Name: "Grandma", LunarBirthday: reminders.LunarBirthday{Month: 4, Day: 15, IsLeapMonth: true}},
	}

	tests := []struct {
		name string
		path string
		data string
	}{
		{
			name: "json object",
			path: "b.json",
			data: `{"birthdays": [
				{"name": "Mei", "lunar_birthday": {"month": 8, "day": 15}},
				{"name": "Grandma", "lunar_birthday": {"month": 4, "day": 15, "is_leap_month": true}}
			]}`,
		},
		{
			name: "json list",
			path: "b.json",
			data: `[
				{"name": "Mei", "lunar_birthday": {"month": 8, "day": 15}},
				{"name": "Grandma", "lunar_birthday": {"month": 4, "day": 15, "is_leap_month": true}}
			]`,
		},
		{
			name: "yaml object",
			path: "b.yaml",
			data: `birthdays:
  - name: Mei
    lunar_birthday: {month: 8, day: 15}
  - name: Grandma
    lunar_birthday: {month: 4, day: 15, is_leap_month: true}
`,
		},
		{
			name: "yaml list",
			path: "b.YML",
			data: `- name: Mei
  lunar_birthday: {month: 8, day: 15}
- name: Grandma
  lunar_birthday: {month: 4, day: 15, is_leap_month: true}
`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseBirthdays(tt.path, []byte(tt.data))
			require.NoError(t, err)
			assert.Equal(t, want, got)
		})
	}
}

func TestParseBirthdays_Errors(t *testing.T) {
	for _, tc := range []struct{ path, data string }{
		{"b.json", ""},
		{"b.json", `{"birthdays": []}`},
		{"b.json", `{"birthdays": [`},
		{"b.yaml", "birthdays: [\n"},
	} {
		_, err := parseBirthdays(tc.path, []byte(tc.data))
		assert.Error(t, err, tc.data)
	}
}

func TestRun(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "birthdays.json")
	dbPath := filepath.Join(dir, "lunar.db")
	require.NoError(t, os.WriteFile(file, []byte(`[{"name": "Ana", "lunar_birthday": {"month": 1, "day": 1}}]`), 0o644))

	opts := options{FilePath: file, DBPath: dbPath}
	require.NoError(t, run(context.Background(), opts, logger.Discard()))

	// A second run with -replace leaves one copy.
	opts.Replace = true
	require.NoError(t, run(context.Background(), opts, logger.Discard()))

	db, err := database.Open(database.DefaultConfig(dbPath), logger.Discard())
	require.NoError(t, err)
	defer db.Close()

	list, err := db.ListBirthdays(context.Background())
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "Ana", list[0].Name)
	assert.Positive(t, list[0].ReminderCount)
}

func TestRun_ReplaceWithInvalidFileKeepsData(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "birthdays.json")
	bad := filepath.Join(dir, "bad.json")
	dbPath := filepath.Join(dir, "lunar.db")
	require.NoError(t, os.WriteFile(good, []byte(`[{"name": "Ana", "lunar_birthday": {"month": 1, "day": 1}}]`), 0o644))
	require.NoError(t, os.WriteFile(bad, []byte(`[{"name": "", "lunar_birthday": {"month": 13, "day": 1}}]`), 0o644))

	ctx := context.Background()
	require.NoError(t, run(ctx, options{FilePath: good, DBPath: dbPath}, logger.Discard()))

	err := run(ctx, options{FilePath: bad, DBPath: dbPath, Replace: true}, logger.Discard())
	require.ErrorIs(t, err, reminders.ErrInvalidBirthday)

	db, err := database.Open(database.DefaultConfig(dbPath), logger.Discard())
	require.NoError(t, err)
	defer db.Close()

	list, err := db.ListBirthdays(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "Ana", list[0].Name)
	assert.Positive(t, list[0].ReminderCount)
}
