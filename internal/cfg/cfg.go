package cfg

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"churn-predictor/internal/common"
	"churn-predictor/internal/ml"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

type Settings struct {
	ArtifactDir       string
	ScalerFile        string
	ReducerFile       string
	ClassifierFile    string
	SchemaFile        string
	MetadataFile      string
	DecisionThreshold float64 // 0 keeps the threshold stored with the classifier
	ListenPort        int
	DataPath          string // empty disables the prediction log
	LogLevel          string
	RequestTimeout    time.Duration
}

type ConfigFile struct {
	Artifacts struct {
		Dir        string `yaml:"dir"`
		Scaler     string `yaml:"scaler"`
		Reducer    string `yaml:"reducer"`
		Classifier string `yaml:"classifier"`
		Schema     string `yaml:"schema"`
		Metadata   string `yaml:"metadata"`
	} `yaml:"artifacts"`

	Model struct {
		DecisionThreshold float64 `yaml:"decisionThreshold"`
	} `yaml:"model"`

	Server struct {
		ListenPort     int    `yaml:"listenPort"`
		RequestTimeout string `yaml:"requestTimeout"`
	} `yaml:"server"`

	System struct {
		DataPath string `yaml:"dataPath"`
		LogLevel string `yaml:"logLevel"`
	} `yaml:"system"`
}

func Load() (Settings, error) {
	// Try to load from YAML file first
	if configPath := os.Getenv(common.EnvConfigFile); configPath != "" {
		return loadFromYAML(configPath)
	}

	// Fallback to environment variables
	return loadFromEnv()
}

func loadFromYAML(path string) (Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Settings{}, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var config ConfigFile
	if err := yaml.Unmarshal(data, &config); err != nil {
		return Settings{}, fmt.Errorf("failed to parse config file: %w", err)
	}

	requestTimeout, err := time.ParseDuration(config.Server.RequestTimeout)
	if err != nil {
		requestTimeout = 5 * time.Second
	}

	// Override with environment variables if they exist
	settings := Settings{
		ArtifactDir:       getEnvOrDefault(common.EnvArtifactDir, orDefault(config.Artifacts.Dir, common.DefaultArtifactDir)),
		ScalerFile:        getEnvOrDefault(common.EnvScalerFile, orDefault(config.Artifacts.Scaler, common.DefaultScalerFile)),
		ReducerFile:       getEnvOrDefault(common.EnvReducerFile, orDefault(config.Artifacts.Reducer, common.DefaultReducerFile)),
		ClassifierFile:    getEnvOrDefault(common.EnvClassifierFile, orDefault(config.Artifacts.Classifier, common.DefaultClassifierFile)),
		SchemaFile:        getEnvOrDefault(common.EnvSchemaFile, orDefault(config.Artifacts.Schema, common.DefaultSchemaFile)),
		MetadataFile:      getEnvOrDefault(common.EnvMetadataFile, orDefault(config.Artifacts.Metadata, common.DefaultMetadataFile)),
		DecisionThreshold: getFloatFromEnvOrConfig(common.EnvDecisionThreshold, config.Model.DecisionThreshold),
		ListenPort:        getIntFromEnvOrConfig(common.EnvListenPort, config.Server.ListenPort, common.DefaultListenPort),
		DataPath:          getEnvOrDefault(common.EnvDataPath, config.System.DataPath),
		LogLevel:          getEnvOrDefault(common.EnvLogLevel, orDefault(config.System.LogLevel, common.DefaultLogLevel)),
		RequestTimeout:    getDurationOrDefault(common.EnvRequestTimeout, requestTimeout),
	}

	if err := validateSettings(&settings); err != nil {
		return Settings{}, fmt.Errorf("configuration validation failed: %w", err)
	}

	return settings, nil
}

func loadFromEnv() (Settings, error) {
	settings := Settings{
		ArtifactDir:       getEnvOrDefault(common.EnvArtifactDir, common.DefaultArtifactDir),
		ScalerFile:        getEnvOrDefault(common.EnvScalerFile, common.DefaultScalerFile),
		ReducerFile:       getEnvOrDefault(common.EnvReducerFile, common.DefaultReducerFile),
		ClassifierFile:    getEnvOrDefault(common.EnvClassifierFile, common.DefaultClassifierFile),
		SchemaFile:        getEnvOrDefault(common.EnvSchemaFile, common.DefaultSchemaFile),
		MetadataFile:      getEnvOrDefault(common.EnvMetadataFile, common.DefaultMetadataFile),
		DecisionThreshold: getFloatOrDefault(common.EnvDecisionThreshold, 0),
		ListenPort:        getIntOrDefault(common.EnvListenPort, common.DefaultListenPort),
		DataPath:          os.Getenv(common.EnvDataPath), // optional
		LogLevel:          getEnvOrDefault(common.EnvLogLevel, common.DefaultLogLevel),
		RequestTimeout:    getDurationOrDefault(common.EnvRequestTimeout, 5*time.Second),
	}

	if err := validateSettings(&settings); err != nil {
		return Settings{}, fmt.Errorf("configuration validation failed: %w", err)
	}

	return settings, nil
}

// ArtifactPaths resolves the artifact file names against ArtifactDir.
// Absolute file names are used as given.
func (s *Settings) ArtifactPaths() ml.ArtifactPaths {
	return ml.ArtifactPaths{
		Scaler:     s.resolve(s.ScalerFile),
		Reducer:    s.resolve(s.ReducerFile),
		Classifier: s.resolve(s.ClassifierFile),
		Schema:     s.resolve(s.SchemaFile),
		Metadata:   s.resolve(s.MetadataFile),
	}
}

func (s *Settings) resolve(name string) string {
	if name == "" || filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(s.ArtifactDir, name)
}

func orDefault(v, def string) string {
	if v != "" {
		return v
	}
	return def
}

func getEnvOrDefault(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

func getDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return defaultValue
}

func getIntOrDefault(key string, defaultValue int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return defaultValue
}

func getFloatOrDefault(key string, defaultValue float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getIntFromEnvOrConfig(key string, configValue, defaultValue int) int {
	if env := os.Getenv(key); env != "" {
		if val, err := strconv.Atoi(env); err == nil {
			return val
		}
	}
	if configValue != 0 {
		return configValue
	}
	return defaultValue
}

func getFloatFromEnvOrConfig(key string, configValue float64) float64 {
	if env := os.Getenv(key); env != "" {
		if val, err := strconv.ParseFloat(env, 64); err == nil {
			return val
		}
	}
	return configValue
}

// validateSettings checks ranges and required values
func validateSettings(settings *Settings) error {
	if settings.ArtifactDir == "" {
		return fmt.Errorf("artifact directory cannot be empty")
	}
	required := []struct{ name, value string }{
		{"scaler", settings.ScalerFile},
		{"reducer", settings.ReducerFile},
		{"classifier", settings.ClassifierFile},
		{"schema", settings.SchemaFile},
	}
	for _, r := range required {
		if r.value == "" {
			return fmt.Errorf("%s artifact file cannot be empty", r.name)
		}
	}

	if settings.DecisionThreshold != 0 && (settings.DecisionThreshold <= 0 || settings.DecisionThreshold >= 1) {
		return fmt.Errorf("decision threshold must be between 0 and 1 (exclusive), got %f", settings.DecisionThreshold)
	}

	if settings.ListenPort < common.MinListenPort || settings.ListenPort > common.MaxListenPort {
		return fmt.Errorf("listen port must be between %d and %d, got %d", common.MinListenPort, common.MaxListenPort, settings.ListenPort)
	}

	if settings.RequestTimeout < time.Second || settings.RequestTimeout > time.Minute {
		return fmt.Errorf("request timeout must be between 1s and 1m, got %v", settings.RequestTimeout)
	}

	if _, err := zerolog.ParseLevel(settings.LogLevel); err != nil {
		return fmt.Errorf("invalid log level: %w", err)
	}

	return nil
}
