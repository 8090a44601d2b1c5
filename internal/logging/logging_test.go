package logging

import (
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
)

func TestNewParsesConfiguredLevel(t *testing.T) {
	entry := New(Config{Level: "debug", Format: "text"})
	assert.Equal(t, logrus.DebugLevel, entry.Logger.GetLevel())
}

func TestNewFallsBackToInfoOnInvalidLevel(t *testing.T) {
	entry := New(Config{Level: "not-a-level", Format: "text"})
	assert.Equal(t, logrus.InfoLevel, entry.Logger.GetLevel())
}

func TestNewSelectsJSONFormatter(t *testing.T) {
	entry := New(Config{Level: "info", Format: "json"})
	_, ok := entry.Logger.Formatter.(*logrus.JSONFormatter)
	assert.True(t, ok)
}

func TestNewDefaultsToTextFormatter(t *testing.T) {
	entry := New(Config{Level: "info", Format: ""})
	_, ok := entry.Logger.Formatter.(*logrus.TextFormatter)
	assert.True(t, ok)
}

func TestForComponentAddsComponentField(t *testing.T) {
	root := New(Config{Level: "info", Format: "text"})
	scoped := ForComponent(root, "locator")
	assert.Equal(t, "locator", scoped.Data["component"])
}

func TestDiscardIsSafeToLogTo(t *testing.T) {
	entry := Discard()
	assert.NotNil(t, entry)
	entry.Info("writes nowhere, must not panic or block")
}
