package main

import (
	"bytes"
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zapponejosh/lunar-birthday-api/internal/api"
	"github.com/zapponejosh/lunar-birthday-api/internal/config"
	"github.com/zapponejosh/lunar-birthday-api/internal/database"
	"github.com/zapponejosh/lunar-birthday-api/internal/logger"
	"github.com/zapponejosh/lunar-birthday-api/internal/lunar"
	"github.com/zapponejosh/lunar-birthday-api/internal/reminders"
)

func newServer(t *testing.T, apiKey string) *httptest.Server {
	t.Helper()

	log := logger.Discard()
	db, err := database.Open(database.DefaultConfig(":memory:"), log)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	_, err = db.Migrate(context.Background())
	require.NoError(t, err)

	clock := func() time.Time { return time.Date(2026, time.March, 1, 0, 0, 0, 0, time.UTC) }
	conv := lunar.NewConverter(lunar.MustReferenceTable(), lunar.WithClock(clock))
	svc := reminders.NewService(db, conv, nil, log)
	cfg := &config.Config{Env: config.EnvProduction, APIKey: apiKey}

	srv := httptest.NewServer(api.NewRouter(api.NewHandlers(db, conv, svc, nil, log), cfg, nil, log))
	t.Cleanup(srv.Close)
	return srv
}

func TestTestRunner(t *testing.T) {
	srv := newServer(t, "smoke-key")

	var out bytes.Buffer
	runner := NewTestRunner(srv.URL, "smoke-key", &out)
	runner.Run()

	assert.Zero(t, runner.errorCount, out.String())
	assert.Contains(t, out.String(), "Deleted smoke test birthday")
	assert.Contains(t, out.String(), "All tests passed!")
}

func TestTestRunner_WrongKey(t *testing.T) {
	srv := newServer(t, "smoke-key")

	var out bytes.Buffer
	runner := NewTestRunner(srv.URL, "wrong", &out)
	runner.Run()

	assert.Equal(t, 1, runner.errorCount)
	assert.Contains(t, out.String(), "Create: API error UNAUTHORIZED")
}
