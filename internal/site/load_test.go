package site

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

const sample = `[
  {"domain":"a.com","siteId":"1","success":true,"data":{"spamScore":"3%","googleNews":"yes","sampleUrls":["https://a.com/1"],"tat":"Up to 3 days"},"timestamp":"2025-01-01T00:00:00Z"},
  {"domain":"b.com","siteId":"2","success":false,"error":"timeout","timestamp":"2025-01-01T00:00:00Z"},
  {"domain":"c.com","siteId":"3","success":true,"timestamp":"2025-01-01T00:00:00Z"}
]`

func TestLoad(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "sites.json")
	require.NoError(t, os.WriteFile(path, []byte(sample), 0o600))

	sites, raw, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, sample, string(raw))
	require.Len(t, sites, 3)

	require.Equal(t, "a.com", sites[0].Domain)
	require.NotNil(t, sites[0].Data)
	require.Equal(t, "3%", sites[0].Data.SpamScore)
	require.Equal(t, []string{"https://a.com/1"}, sites[0].Data.SampleURLs)
	require.Equal(t, "Up to 3 days", sites[0].Data.TAT)

	require.False(t, sites[1].Success)
	require.NotNil(t, sites[1].Error)
	require.Equal(t, "timeout", *sites[1].Error)
	require.Empty(t, sites[1].Fields().SpamScore)
}

func TestLoadErrors(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	_, _, err := Load(filepath.Join(dir, "missing.json"))
	require.Error(t, err)
	require.Contains(t, err.Error(), "read source")

	bad := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte(`{"domain":`), 0o600))
	_, _, err = Load(bad)
	require.Error(t, err)
	require.Contains(t, err.Error(), "decode source")
}

func TestSuccessful(t *testing.T) {
	t.Parallel()

	sites, err := Decode(strings.NewReader(sample))
	require.NoError(t, err)

	ok := Successful(sites)
	require.Len(t, ok, 1)
	require.Equal(t, "a.com", ok[0].Domain)

	require.Empty(t, Successful(nil))
}
