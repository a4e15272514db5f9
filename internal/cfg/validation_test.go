package cfg

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// createValidSettings creates a valid Settings struct for testing
func createValidSettings() *Settings {
	return &Settings{
		ArtifactDir:       "models",
		ScalerFile:        "scaler.json",
		ReducerFile:       "pca.json",
		ClassifierFile:    "stacking.json",
		SchemaFile:        "feature_names.json",
		MetadataFile:      "model_metadata.json",
		DecisionThreshold: 0,
		ListenPort:        8501,
		LogLevel:          "info",
		RequestTimeout:    5 * time.Second,
	}
}

func TestValidateSettings_ValidConfig(t *testing.T) {
	assert.NoError(t, validateSettings(createValidSettings()))
}

func TestValidateSettings_Invalid(t *testing.T) {
	tests := []struct {
		name   string
		modify func(s *Settings)
		errMsg string
	}{
		{"empty artifact dir", func(s *Settings) { s.ArtifactDir = "" }, "artifact directory"},
		{"empty scaler", func(s *Settings) { s.ScalerFile = "" }, "scaler artifact file"},
		{"empty reducer", func(s *Settings) { s.ReducerFile = "" }, "reducer artifact file"},
		{"empty classifier", func(s *Settings) { s.ClassifierFile = "" }, "classifier artifact file"},
		{"empty schema", func(s *Settings) { s.SchemaFile = "" }, "schema artifact file"},
		{"negative threshold", func(s *Settings) { s.DecisionThreshold = -0.1 }, "decision threshold"},
		{"threshold of one", func(s *Settings) { s.DecisionThreshold = 1 }, "decision threshold"},
		{"port too low", func(s *Settings) { s.ListenPort = 1023 }, "listen port"},
		{"port too high", func(s *Settings) { s.ListenPort = 65536 }, "listen port"},
		{"timeout too short", func(s *Settings) { s.RequestTimeout = 500 * time.Millisecond }, "request timeout"},
		{"timeout too long", func(s *Settings) { s.RequestTimeout = 2 * time.Minute }, "request timeout"},
		{"bad log level", func(s *Settings) { s.LogLevel = "verbose" }, "invalid log level"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			settings := createValidSettings()
			tt.modify(settings)
			err := validateSettings(settings)
			assert.ErrorContains(t, err, tt.errMsg)
		})
	}
}

func TestValidateSettings_Boundaries(t *testing.T) {
	tests := []struct {
		name   string
		modify func(s *Settings)
	}{
		{"metadata optional", func(s *Settings) { s.MetadataFile = "" }},
		{"lowest port", func(s *Settings) { s.ListenPort = 1024 }},
		{"highest port", func(s *Settings) { s.ListenPort = 65535 }},
		{"one second timeout", func(s *Settings) { s.RequestTimeout = time.Second }},
		{"one minute timeout", func(s *Settings) { s.RequestTimeout = time.Minute }},
		{"custom threshold", func(s *Settings) { s.DecisionThreshold = 0.01 }},
		{"debug logging", func(s *Settings) { s.LogLevel = "debug" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			settings := createValidSettings()
			tt.modify(settings)
			assert.NoError(t, validateSettings(settings))
		})
	}
}
