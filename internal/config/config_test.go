package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	t.Cleanup(viper.Reset)
	SetDefaults()

	assert.Equal(t, "info", GetString("logLevel"))
	assert.Equal(t, 60.0, GetFloat64("sim.stepHz"))
	assert.Equal(t, 10, GetInt("sim.maxSubsteps"))
	assert.False(t, GetBool("influx.enabled"))
	assert.False(t, GetBool("graylog.enabled"))

	st := Storage()
	assert.Equal(t, "memory", st.Type)
	assert.Equal(t, "./recordings", st.Memory.OutputDir)
	assert.False(t, st.Memory.CompressOutput)
}

func TestLoadReadsConfigFile(t *testing.T) {
	t.Cleanup(viper.Reset)

	dir := t.TempDir()
	cfg := `{
		"logLevel": "debug",
		"sim": {"stepHz": 120},
		"storage": {"type": "memory", "memory": {"outputDir": "/tmp/runs", "compressOutput": true}}
	}`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "drivesim.cfg.json"), []byte(cfg), 0644))

	require.NoError(t, Load(dir))

	assert.Equal(t, "debug", GetString("logLevel"))
	assert.Equal(t, 120.0, GetFloat64("sim.stepHz"))
	// Unset keys fall back to defaults.
	assert.Equal(t, 10, GetInt("sim.maxSubsteps"))

	st := Storage()
	assert.Equal(t, "/tmp/runs", st.Memory.OutputDir)
	assert.True(t, st.Memory.CompressOutput)
}

func TestLoadMissingFileErrors(t *testing.T) {
	t.Cleanup(viper.Reset)
	assert.Error(t, Load(t.TempDir()))
}
