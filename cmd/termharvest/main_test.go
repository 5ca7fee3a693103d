package main

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/use-agent/termharvest/config"
	"github.com/use-agent/termharvest/engine"
	"github.com/use-agent/termharvest/models"
)

func TestApplyFlags_OnlyChangedFlags(t *testing.T) {
	var fv flagValues
	cmd := newRootCmdWith(&fv)
	require.NoError(t, cmd.ParseFlags([]string{"--output", "out/terms.xlsx", "--max-rows", "25", "--headless"}))

	cfg := config.Load()
	listing := cfg.Portal.ListingURL
	applyFlags(cmd, &fv, cfg)

	assert.Equal(t, "out/terms.xlsx", cfg.Output.Path)
	assert.Equal(t, 25, cfg.Harvest.MaxRows)
	assert.True(t, cfg.Browser.Headless)
	assert.Equal(t, listing, cfg.Portal.ListingURL)
	assert.Equal(t, 1, cfg.Portal.ListingPages)
	assert.Equal(t, "browser", cfg.Engine.FetchMode)
}

func TestLoadConfig_FlagsOverrideEnv(t *testing.T) {
	t.Setenv("HARVEST_OUTPUT", "env.xlsx")
	t.Setenv("HARVEST_FETCH_MODE", "auto")

	var fv flagValues
	cmd := newRootCmdWith(&fv)
	require.NoError(t, cmd.ParseFlags([]string{"--env-file", "", "--output", "flag.xlsx", "--pages", "3"}))

	cfg, err := loadConfig(cmd, &fv)
	require.NoError(t, err)
	assert.Equal(t, "flag.xlsx", cfg.Output.Path)
	assert.Equal(t, 3, cfg.Portal.ListingPages)
	assert.Equal(t, "auto", cfg.Engine.FetchMode)
}

func TestLoadConfig_Invalid(t *testing.T) {
	var fv flagValues
	cmd := newRootCmdWith(&fv)
	require.NoError(t, cmd.ParseFlags([]string{"--env-file", "", "--fetch-mode", "curl"}))

	_, err := loadConfig(cmd, &fv)
	var herr *models.HarvestError
	require.ErrorAs(t, err, &herr)
	assert.Equal(t, models.ErrCodeInvalidConfig, herr.Code)
}

func TestLoadConfig_ReadsEnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.env")
	require.NoError(t, os.WriteFile(path, []byte("HARVEST_SHEET=Terms\n"), 0o600))
	t.Cleanup(func() { os.Unsetenv("HARVEST_SHEET") })

	var fv flagValues
	cmd := newRootCmdWith(&fv)
	require.NoError(t, cmd.ParseFlags([]string{"--env-file", path}))

	cfg, err := loadConfig(cmd, &fv)
	require.NoError(t, err)
	assert.Equal(t, "Terms", cfg.Output.Sheet)
}

func TestVersionCommand(t *testing.T) {
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"version"})
	require.NoError(t, cmd.Execute())
	assert.Contains(t, out.String(), "termharvest version")
}

func TestSelectorsCommand(t *testing.T) {
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"selectors", "--env-file", ""})
	require.NoError(t, cmd.Execute())
	assert.Contains(t, out.String(), "td.termDetails a")
}

func TestNewDispatcher_Modes(t *testing.T) {
	cfg := config.Load()
	assert.Equal(t, []string{"rod"}, newDispatcher(cfg, nil).Engines())

	cfg.Engine.FetchMode = "auto"
	assert.Equal(t, []string{"http", "rod"}, newDispatcher(cfg, nil).Engines())
}

func TestAcceptDetail(t *testing.T) {
	accept := acceptDetail(config.Load().Portal.Selectors)

	shell := "<html><body><div id=app></div></body></html>"
	detail := `<div class="span10 english_master_title"><h4>чай</h4></div>`

	assert.Error(t, accept(&engine.FetchResult{HTML: shell, EngineName: "http"}))
	assert.NoError(t, accept(&engine.FetchResult{HTML: detail, EngineName: "http"}))
	assert.NoError(t, accept(&engine.FetchResult{HTML: shell, EngineName: "rod"}))
}

func TestNewLogger_TeesToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "harvest.log")
	var stdout bytes.Buffer

	logger, closer := newLogger(config.LogConfig{Level: "debug", Format: "json", File: path, MaxSizeMB: 1}, &stdout)
	logger.Debug("row done", "row", 7)
	require.NoError(t, closer.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"row":7`)
	assert.Contains(t, stdout.String(), `"msg":"row done"`)
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, parseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, parseLevel("warn"))
	assert.Equal(t, slog.LevelInfo, parseLevel("verbose"))
}
