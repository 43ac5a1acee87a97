package main

import (
	"bytes"
	"encoding/json"
	"io/fs"
	"testing"
	"time"

	"marketplace/pkg/pagination"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func resetFlags(t *testing.T) {
	t.Helper()
	serviceName, databaseURL, downSteps = "", "", 1
	t.Cleanup(func() { serviceName, databaseURL, downSteps = "", "", 1 })
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestCursorDecode(t *testing.T) {
	resetFlags(t)
	id := uuid.New()
	at := time.Date(2026, 3, 1, 12, 30, 0, 0, time.UTC)

	out, err := execute(t, "cursor", "decode", pagination.TimeCursor("newest", at, id).Encode())
	require.NoError(t, err)

	var got map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, "newest", got["sort"])
	assert.Equal(t, id.String(), got["id"])
	assert.Equal(t, "2026-03-01T12:30:00Z", got["time"])
	assert.NotContains(t, got, "value")
}

func TestCursorDecodePriceCursor(t *testing.T) {
	resetFlags(t)
	id := uuid.New()

	out, err := execute(t, "cursor", "decode", pagination.ValueCursor("price_asc", 1500.5, id).Encode())
	require.NoError(t, err)
	assert.Contains(t, out, `"value": 1500.5`)
	assert.Contains(t, out, `"sort": "price_asc"`)
}

func TestCursorDecodeInvalid(t *testing.T) {
	resetFlags(t)

	_, err := execute(t, "cursor", "decode", "%%%not-a-cursor")
	assert.ErrorIs(t, err, pagination.ErrInvalidCursor)
}

func TestMigrationTargetUnknownService(t *testing.T) {
	resetFlags(t)
	serviceName = "billing"
	databaseURL = "postgres://localhost/db"

	_, _, err := migrationTarget()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "listing, messaging")
}

func TestMigrationTargetDatabaseURL(t *testing.T) {
	resetFlags(t)
	serviceName = "messaging"
	t.Setenv("DATABASE_URL", "")

	_, _, err := migrationTarget()
	assert.Error(t, err)

	t.Setenv("DATABASE_URL", "postgres://env/messaging")
	migrations, url, err := migrationTarget()
	require.NoError(t, err)
	assert.Equal(t, "postgres://env/messaging", url)
	assert.NotNil(t, migrations)

	databaseURL = "postgres://flag/messaging"
	_, url, err = migrationTarget()
	require.NoError(t, err)
	assert.Equal(t, "postgres://flag/messaging", url)
}

func TestMigrateDownRejectsNonPositiveSteps(t *testing.T) {
	resetFlags(t)

	_, err := execute(t, "migrate", "down", "--service", "listing", "--database-url", "postgres://localhost/db", "--steps", "0")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--steps must be positive")
}

func TestServiceMigrationsAreEmbedded(t *testing.T) {
	for name, migrations := range serviceMigrations {
		ups, err := fs.Glob(migrations, "*.up.sql")
		require.NoError(t, err, name)
		downs, err := fs.Glob(migrations, "*.down.sql")
		require.NoError(t, err, name)
		assert.NotEmpty(t, ups, name)
		assert.Len(t, downs, len(ups), name)
	}
}
