package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sample struct {
	Name  string `yaml:"name"`
	Limit int    `yaml:"limit"`
}

func (s *sample) Validate() error {
	if s.Limit < 1 {
		return errors.New("limit must be positive")
	}
	return nil
}

func writeFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadKeepsDefaultsAndExpandsEnv(t *testing.T) {
	t.Setenv("SAMPLE_NAME", "kitchen")
	path := writeFile(t, "name: ${SAMPLE_NAME}\n")

	s := &sample{Name: "default", Limit: 35}
	require.NoError(t, Load(path, s))
	assert.Equal(t, "kitchen", s.Name)
	assert.Equal(t, 35, s.Limit)
}

func TestLoadValidates(t *testing.T) {
	path := writeFile(t, "limit: 0\n")
	err := Load(path, &sample{Limit: 35})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "limit must be positive")
}

func TestLoadRejectsMalformedYAML(t *testing.T) {
	path := writeFile(t, "name: [unclosed\n")
	assert.Error(t, Load(path, &sample{Limit: 1}))
}

func TestLoadOrDefaultMissingFile(t *testing.T) {
	s := &sample{Name: "default", Limit: 35}
	found, err := LoadOrDefault(filepath.Join(t.TempDir(), "absent.yaml"), s)
	require.NoError(t, err)
	assert.False(t, found)
	assert.Equal(t, "default", s.Name)

	_, err = LoadOrDefault(filepath.Join(t.TempDir(), "absent.yaml"), &sample{})
	assert.Error(t, err, "defaults are validated too")
}

func TestLoadOrDefaultReadsFile(t *testing.T) {
	path := writeFile(t, "limit: 5\n")
	s := &sample{Limit: 35}
	found, err := LoadOrDefault(path, s)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, 5, s.Limit)
}
