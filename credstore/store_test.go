package credstore

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/go-whoop/whoop-cli/config"
)

func sampleRecord() *Record {
	return &Record{
		AccessToken:  "access-token-123",
		RefreshToken: "refresh-token-456",
		ExpiresAt:    time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC).UnixMilli(),
		ClientID:     "client",
		ClientSecret: "secret",
		Scopes:       []string{"offline", "read:sleep"},
		Profile:      &Profile{UserID: 42, FirstName: "Ada", LastName: "L", Email: "ada@example.com"},
	}
}

func TestStore_LoadMissing(t *testing.T) {
	t.Setenv(config.EnvAccessToken, "")
	s := New(t.TempDir())
	assert.Nil(t, s.Load())
}

func TestStore_SaveAndLoad(t *testing.T) {
	t.Setenv(config.EnvAccessToken, "")
	dir := filepath.Join(t.TempDir(), "nested")
	s := New(dir)

	rec := sampleRecord()
	require.NoError(t, s.Save(rec))

	info, err := os.Stat(s.Path())
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	dirInfo, err := os.Stat(dir)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o700), dirInfo.Mode().Perm())

	// fresh store reads from disk
	loaded := New(dir).Load()
	require.NotNil(t, loaded)
	assert.Equal(t, rec, loaded)

	// no temp or lock files left behind
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, AuthFile, entries[0].Name())
}

func TestStore_FileFormat(t *testing.T) {
	t.Setenv(config.EnvAccessToken, "")
	s := New(t.TempDir())
	require.NoError(t, s.Save(&Record{AccessToken: "tok", ExpiresAt: 1700000000000}))

	data, err := os.ReadFile(s.Path())
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.Equal(t, "tok", raw["access_token"])
	assert.InDelta(t, 1700000000000, raw["expires_at"], 0)
	assert.NotContains(t, raw, "refresh_token")
	assert.NotContains(t, raw, "profile")
}

func TestStore_LoadReturnsCopy(t *testing.T) {
	t.Setenv(config.EnvAccessToken, "")
	s := New(t.TempDir())
	require.NoError(t, s.Save(sampleRecord()))

	first := s.Load()
	first.AccessToken = "mutated"
	first.Profile.FirstName = "mutated"
	first.Scopes[0] = "mutated"

	second := s.Load()
	assert.Equal(t, "access-token-123", second.AccessToken)
	assert.Equal(t, "Ada", second.Profile.FirstName)
	assert.Equal(t, "offline", second.Scopes[0])
}

func TestStore_CachesUntilReset(t *testing.T) {
	t.Setenv(config.EnvAccessToken, "")
	dir := t.TempDir()
	s := New(dir)
	require.NoError(t, s.Save(sampleRecord()))

	other := New(dir)
	updated := sampleRecord()
	updated.AccessToken = "rotated"
	require.NoError(t, other.Save(updated))

	assert.Equal(t, "access-token-123", s.Load().AccessToken)
	s.ResetCache()
	assert.Equal(t, "rotated", s.Load().AccessToken)
}

func TestStore_EnvOverride(t *testing.T) {
	dir := t.TempDir()
	t.Setenv(config.EnvAccessToken, "")
	s := New(dir)
	require.NoError(t, s.Save(sampleRecord()))

	t.Setenv(config.EnvAccessToken, "env-token")
	assert.True(t, s.FromEnv())

	rec := s.Load()
	require.NotNil(t, rec)
	assert.Equal(t, "env-token", rec.AccessToken)
	assert.Equal(t, NeverExpires, rec.ExpiresAt)
	assert.True(t, rec.FromEnv)
	assert.Empty(t, rec.RefreshToken)
	assert.True(t, rec.ExpiresAtTime().IsZero())

	err := s.Save(rec)
	require.Error(t, err)
	assert.Contains(t, err.Error(), config.EnvAccessToken)

	// the file on disk was never touched
	t.Setenv(config.EnvAccessToken, "")
	s.ResetCache()
	assert.Equal(t, "access-token-123", s.Load().AccessToken)
}

func TestStore_CorruptFile(t *testing.T) {
	t.Setenv(config.EnvAccessToken, "")

	tests := []struct {
		name    string
		content string
	}{
		{"invalid json", "{not json"},
		{"empty object", "{}"},
		{"wrong types", `{"access_token": 12}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			require.NoError(t, os.WriteFile(filepath.Join(dir, AuthFile), []byte(tt.content), 0o600))
			assert.Nil(t, New(dir).Load())
		})
	}
}

func TestStore_Clear(t *testing.T) {
	t.Setenv(config.EnvAccessToken, "")
	s := New(t.TempDir())
	require.NoError(t, s.Save(sampleRecord()))

	require.NoError(t, s.Clear())
	assert.Nil(t, s.Load())
	_, err := os.Stat(s.Path())
	assert.True(t, os.IsNotExist(err))

	// second clear is a no-op
	require.NoError(t, s.Clear())
}

func TestStore_SaveNil(t *testing.T) {
	assert.Error(t, New(t.TempDir()).Save(nil))
}

func TestStore_ConcurrentSaves(t *testing.T) {
	t.Setenv(config.EnvAccessToken, "")
	dir := t.TempDir()

	var wg sync.WaitGroup
	for i := range 5 {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			rec := sampleRecord()
			rec.ExpiresAt += int64(n)
			assert.NoError(t, New(dir).Save(rec))
		}(i)
	}
	wg.Wait()

	loaded := New(dir).Load()
	require.NotNil(t, loaded)
	assert.Equal(t, "access-token-123", loaded.AccessToken)
}

func TestRecord_ExpiresAtFrom(t *testing.T) {
	now := time.UnixMilli(1_000_000)
	assert.Equal(t, int64(1_000_000+3_600_000), ExpiresAtFrom(now, time.Hour))

	rec := &Record{ExpiresAt: 5000}
	assert.Equal(t, time.UnixMilli(5000), rec.ExpiresAtTime())
}
