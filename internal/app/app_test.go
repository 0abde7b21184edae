package app_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"flowboard/internal/app"
	"flowboard/internal/config"
	"flowboard/internal/domain"
	"flowboard/internal/service"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.DataDir = t.TempDir()
	cfg.Storage.Path = filepath.Join(cfg.DataDir, "boards.db")
	cfg.HTTP.Addr = "127.0.0.1:0"
	cfg.ExportedBy = "app-test"
	require.NoError(t, cfg.Validate())
	return cfg
}

func TestNew_WiresBoardService(t *testing.T) {
	cfg := testConfig(t)
	a, err := app.New(context.Background(), cfg, zaptest.NewLogger(t))
	require.NoError(t, err)
	t.Cleanup(a.Shutdown)

	ctx := context.Background()
	id, err := a.Boards.Save(ctx, service.SaveRequest{Name: "Wired", Nodes: []domain.Node{}, Edges: []domain.Edge{}})
	require.NoError(t, err)

	text, err := a.Boards.ExportBoardAsJSON(ctx, id)
	require.NoError(t, err)
	assert.Contains(t, text, `"exportedBy": "app-test"`)
	assert.FileExists(t, cfg.Storage.Path)
}

func TestNew_UnsupportedDriver(t *testing.T) {
	cfg := testConfig(t)
	cfg.Storage.Driver = "cassandra"
	_, err := app.New(context.Background(), cfg, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "open storage")
}

func TestShutdown_Idempotent(t *testing.T) {
	a, err := app.New(context.Background(), testConfig(t), nil)
	require.NoError(t, err)
	a.Shutdown()
	a.Shutdown()
}

func TestServe_StopsOnCancel(t *testing.T) {
	cfg := testConfig(t)
	cfg.Cleanup.Enabled = true
	cfg.Cleanup.Schedule = "@every 1h"
	cfg.Import.InboxDir = filepath.Join(cfg.DataDir, "inbox")

	a, err := app.New(context.Background(), cfg, zaptest.NewLogger(t))
	require.NoError(t, err)
	t.Cleanup(a.Shutdown)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Serve(ctx) }()

	require.Eventually(t, func() bool {
		_, err := os.Stat(filepath.Join(cfg.Import.InboxDir, "imported"))
		return err == nil
	}, 5*time.Second, 20*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("Serve did not return after cancel")
	}
}
