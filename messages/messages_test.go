package messages

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	c := Default()
	assert.Equal(t, "Build Number", c.Get("log_build_number_label"))
	assert.Equal(t, "Sorry, something went wrong: boom", c.Format("error", "boom"))
	assert.Equal(t, "*Console log for deploy #3*", c.Format("log_header", "deploy", 3))
	assert.Contains(t, c.Get("help"), "/jenkins-info")
}

func TestFormatMissingKey(t *testing.T) {
	c := Default()
	assert.Equal(t, "no_such_key", c.Format("no_such_key", 1))
	assert.Equal(t, "", c.Get("no_such_key"))
}

func TestLoadOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "messages.yaml")
	require.NoError(t, os.WriteFile(path, []byte("ack: \"On it!\"\n"), 0o600))

	c, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "On it!", c.Get("ack"))
	assert.Equal(t, "Build Number", c.Get("log_build_number_label"))
	assert.Equal(t, Default().Len(), c.Len())
}

func TestLoadEmptyPath(t *testing.T) {
	c, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default().Len(), c.Len())
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("- not\n- a map\n"), 0o600))
	_, err = Load(path)
	assert.Error(t, err)
}
