package config

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/flow-platform/flowens/config/schema"
	ensSchema "github.com/flow-platform/flowens/schema"
)

func newTestConfig(t *testing.T) *Config {
	dsn := filepath.Join(t.TempDir(), "config.sqlite")
	c := New(dsn, true)
	t.Cleanup(c.Close)
	return c
}

func TestDefaultsWithoutSettingsRow(t *testing.T) {
	c := newTestConfig(t)
	assert.Equal(t, ensSchema.DefaultMinCommitmentAge, c.GetMinCommitmentAge())
	assert.Equal(t, ensSchema.DefaultMaxCommitmentAge, c.GetMaxCommitmentAge())
	assert.Equal(t, time.Minute, c.GetWatchInterval())
}

func TestFlowConfigRefreshFromSettings(t *testing.T) {
	c := newTestConfig(t)
	assert.NoError(t, c.wdb.Db.Create(&schema.FlowConfig{
		MinCommitmentAge: 30,
		MaxCommitmentAge: 3600,
		WatchInterval:    5,
	}).Error)

	c.updateFlowConfig()
	assert.Equal(t, 30*time.Second, c.GetMinCommitmentAge())
	assert.Equal(t, time.Hour, c.GetMaxCommitmentAge())
	assert.Equal(t, 5*time.Minute, c.GetWatchInterval())
}

func TestControllerAgesWinOverSettings(t *testing.T) {
	c := newTestConfig(t)

	c.SetMinCommitmentAge(90 * time.Second)
	c.SetMaxCommitmentAge(48 * time.Hour)
	assert.Equal(t, 90*time.Second, c.GetMinCommitmentAge())
	assert.Equal(t, 48*time.Hour, c.GetMaxCommitmentAge())

	// degenerate values are ignored
	c.SetMinCommitmentAge(0)
	c.SetMaxCommitmentAge(-time.Second)
	assert.Equal(t, 90*time.Second, c.GetMinCommitmentAge())
	assert.Equal(t, 48*time.Hour, c.GetMaxCommitmentAge())
}
