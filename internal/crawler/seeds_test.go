package crawler

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSlugFromURL(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"https://alkoteka.com/catalog/krepkiy-alkogol", "krepkiy-alkogol"},
		{"https://alkoteka.com/catalog/krepkiy-alkogol/", "krepkiy-alkogol"},
		{"https://alkoteka.com/catalog/vino?page=2", "vino"},
		{"https://alkoteka.com/catalog/a/catalog/b", "b"},
		{"https://alkoteka.com/sale/shampanskoe", "shampanskoe"},
		{"vino", "vino"},
		{"https://alkoteka.com/", ""},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, SlugFromURL(tt.in))
		})
	}
}

func TestLoadSeeds(t *testing.T) {
	t.Run("empty path uses defaults", func(t *testing.T) {
		assert.Equal(t, DefaultSeeds, LoadSeeds("", testLogger()))
	})

	t.Run("file lines", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "urls.txt")
		require.NoError(t, os.WriteFile(path, []byte(
			"https://alkoteka.com/catalog/vino\n\n  https://alkoteka.com/catalog/pivo  \n",
		), 0o600))

		assert.Equal(t, []string{
			"https://alkoteka.com/catalog/vino",
			"https://alkoteka.com/catalog/pivo",
		}, LoadSeeds(path, testLogger()))
	})

	t.Run("missing file logs and uses defaults", func(t *testing.T) {
		var buf bytes.Buffer
		log := slog.New(slog.NewJSONHandler(&buf, nil))

		seeds := LoadSeeds(filepath.Join(t.TempDir(), "nope.txt"), log)

		assert.Equal(t, DefaultSeeds, seeds)
		assert.Contains(t, buf.String(), `"level":"ERROR"`)
		assert.Contains(t, buf.String(), "seed file not found")
	})
}
