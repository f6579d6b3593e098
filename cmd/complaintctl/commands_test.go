package main

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v3"

	"github.com/kirillkom/complaints-api/internal/config"
	"github.com/kirillkom/complaints-api/internal/core/domain"
)

func testApp(cfg config.Config, out *bytes.Buffer) *cli.Command {
	app := &cli.Command{Name: serviceName, Writer: out}
	app = newMigrateCmd(cfg).Register(app)
	app = newListCmd(cfg).Register(app)
	app = newCloseCmd(cfg).Register(app)
	app = newExportCmd(cfg).Register(app)
	return newSentimentCmd(cfg).Register(app)
}

func sqliteConfig(t *testing.T) config.Config {
	t.Helper()
	return config.Config{
		StoreDriver: config.StoreDriverSQLite,
		SQLitePath:  filepath.Join(t.TempDir(), "complaints.db"),
	}
}

func TestParseStatus(t *testing.T) {
	status, err := parseStatus("all")
	require.NoError(t, err)
	assert.Nil(t, status)

	status, err = parseStatus(" Closed ")
	require.NoError(t, err)
	require.NotNil(t, status)
	assert.Equal(t, domain.StatusClosed, *status)

	_, err = parseStatus("pending")
	assert.Error(t, err)
}

func TestCloseRejectsNonNumericID(t *testing.T) {
	var out bytes.Buffer
	err := testApp(sqliteConfig(t), &out).Run(context.Background(), []string{serviceName, "close", "abc"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "positive complaint id")
}

func TestCloseMissingComplaint(t *testing.T) {
	var out bytes.Buffer
	err := testApp(sqliteConfig(t), &out).Run(context.Background(), []string{serviceName, "close", "42"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestMigrateThenExportEmptyStore(t *testing.T) {
	cfg := sqliteConfig(t)
	var out bytes.Buffer
	app := testApp(cfg, &out)
	require.NoError(t, app.Run(context.Background(), []string{serviceName, "migrate"}))
	assert.Contains(t, out.String(), "schema ready (sqlite)")

	out.Reset()
	path := filepath.Join(t.TempDir(), "out.xlsx")
	app = testApp(cfg, &out)
	require.NoError(t, app.Run(context.Background(), []string{serviceName, "export", "--status", "all", "--out", path}))
	assert.Contains(t, out.String(), "wrote 0 complaints")
}

func TestSentimentPrintsLabel(t *testing.T) {
	var out bytes.Buffer
	err := testApp(config.Config{}, &out).Run(context.Background(), []string{serviceName, "sentiment", "terrible", "awful", "service"})
	require.NoError(t, err)
	fields := strings.Split(strings.TrimSpace(out.String()), "\t")
	require.Len(t, fields, 2)
	assert.Equal(t, string(domain.SentimentNegative), fields[1])
}
