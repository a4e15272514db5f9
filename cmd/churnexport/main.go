package main

import (
	"encoding/json"
	"flag"
	"os"
	"time"

	"churn-predictor/internal/features"
	"churn-predictor/internal/storage"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// ExportRecord is one served prediction with the engineered features it was
// scored on, ready for offline monitoring or retraining.
type ExportRecord struct {
	Timestamp    int64                       `json:"timestamp"`
	ModelVersion string                      `json:"model_version"`
	Profile      features.RawCustomerProfile `json:"profile"`
	Features     map[string]float64          `json:"features"`
	Churn        bool                        `json:"churn"`
	Probability  float64                     `json:"probability"`
}

func main() {
	var (
		dataPath   = flag.String("data", "data", "Directory holding churn-predictions.db")
		outputPath = flag.String("output", "predictions.jsonl", "Output file (newline-delimited JSON)")
		version    = flag.String("version", "", "Model version to export (default: most recently loaded)")
		days       = flag.Int("days", 30, "Number of days to export (0 for all)")
		logLevel   = flag.String("log-level", "info", "Log level: debug, info, warn, error")
	)
	flag.Parse()

	level, err := zerolog.ParseLevel(*logLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	store, err := storage.OpenReadOnly(*dataPath)
	if err != nil {
		log.Fatal().Err(err).Str("data", *dataPath).Msg("failed to open prediction log")
	}
	defer store.Close()

	if *version == "" {
		latest, found, err := store.LatestModelLoad()
		if err != nil {
			log.Fatal().Err(err).Msg("failed to read model loads")
		}
		if !found {
			log.Fatal().Msg("no model load recorded; pass -version")
		}
		*version = latest.Version
	}

	end := time.Now()
	start := time.Unix(0, 0)
	if *days > 0 {
		start = end.AddDate(0, 0, -*days)
	}

	records, err := store.GetPredictions(*version, start, end)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to read predictions")
	}
	if len(records) == 0 {
		log.Warn().Str("version", *version).Msg("no predictions found matching criteria")
	}

	out, err := os.Create(*outputPath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create output file")
	}
	defer out.Close()

	layout, err := features.Compile(features.Names())
	if err != nil {
		log.Fatal().Err(err).Msg("failed to compile feature layout")
	}
	names := layout.Names()

	encoder := json.NewEncoder(out)
	churned := 0
	for _, r := range records {
		vec := layout.Build(r.Profile)
		named := make(map[string]float64, len(names))
		for i, n := range names {
			named[n] = vec[i]
		}
		if r.Churn {
			churned++
		}
		if err := encoder.Encode(ExportRecord{
			Timestamp:    r.Timestamp.Unix(),
			ModelVersion: r.ModelVersion,
			Profile:      r.Profile,
			Features:     named,
			Churn:        r.Churn,
			Probability:  r.Probability,
		}); err != nil {
			log.Fatal().Err(err).Msg("failed to write JSON record")
		}
	}

	ev := log.Info().
		Str("version", *version).
		Int("records", len(records)).
		Int("churn", churned).
		Str("output", *outputPath)
	if len(records) > 0 {
		ev = ev.Time("from", records[0].Timestamp).Time("to", records[len(records)-1].Timestamp)
	}
	ev.Msg("export complete")
}
