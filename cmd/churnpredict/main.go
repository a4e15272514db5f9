package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"churn-predictor/internal/cfg"
	"churn-predictor/internal/client"
	"churn-predictor/internal/features"
	"churn-predictor/internal/ml"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	def := features.DefaultProfile()
	var (
		serverURL    = flag.String("server", "", "Score against a running churn server instead of local artifacts")
		artifactDir  = flag.String("artifacts", "", "Artifact directory (overrides ARTIFACT_DIR)")
		threshold    = flag.Float64("threshold", 0, "Decision threshold override, 0 keeps the model's")
		inputPath    = flag.String("input", "", "JSON file with an array of profiles to score as a batch")
		jsonOutput   = flag.Bool("json", false, "Print results as JSON")
		logLevel     = flag.String("log-level", "warn", "Log level: debug, info, warn, error")
		creditScore  = flag.Int("credit-score", def.CreditScore, "Credit score (0-1000)")
		age          = flag.Int("age", def.Age, "Age (18-100)")
		gender       = flag.String("gender", string(def.Gender), "Gender: Male or Female")
		geography    = flag.String("geography", string(def.Geography), "Geography: France, Spain or Germany")
		tenure       = flag.Int("tenure", def.Tenure, "Tenure in years (0-10)")
		balance      = flag.Float64("balance", def.Balance, "Account balance")
		products     = flag.Int("products", def.NumOfProducts, "Number of products (1-4)")
		hasCrCard    = flag.Bool("has-cr-card", def.HasCrCard, "Customer holds a credit card")
		activeMember = flag.Bool("active-member", def.IsActiveMember, "Customer is an active member")
		salary       = flag.Float64("salary", def.EstimatedSalary, "Estimated salary")
	)
	flag.Parse()

	level, err := zerolog.ParseLevel(*logLevel)
	if err != nil {
		level = zerolog.WarnLevel
	}
	zerolog.SetGlobalLevel(level)
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	var profiles []features.RawCustomerProfile
	if *inputPath != "" {
		profiles, err = readProfiles(*inputPath)
		if err != nil {
			log.Fatal().Err(err).Str("input", *inputPath).Msg("failed to read profiles")
		}
	} else {
		p := features.RawCustomerProfile{
			CreditScore:     *creditScore,
			Age:             *age,
			Gender:          features.Gender(*gender),
			Geography:       features.Geography(*geography),
			Tenure:          *tenure,
			Balance:         *balance,
			NumOfProducts:   *products,
			HasCrCard:       *hasCrCard,
			IsActiveMember:  *activeMember,
			EstimatedSalary: *salary,
		}
		if g, err := features.ParseGender(*gender); err == nil {
			p.Gender = g
		}
		if g, err := features.ParseGeography(*geography); err == nil {
			p.Geography = g
		}
		profiles = []features.RawCustomerProfile{p}
	}

	var results []ml.PredictionResult
	if *serverURL != "" {
		results, err = predictRemote(*serverURL, profiles)
	} else {
		results, err = predictLocal(*artifactDir, *threshold, profiles)
	}
	if err != nil {
		var validation *features.ValidationError
		if errors.As(err, &validation) {
			fmt.Fprintln(os.Stderr, "Please correct the customer details:")
			for _, p := range validation.Problems {
				fmt.Fprintf(os.Stderr, "  %s: %s\n", p.Field, p.Message)
			}
			os.Exit(2)
		}
		log.Fatal().Err(err).Msg("prediction failed")
	}

	if *jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(results); err != nil {
			log.Fatal().Err(err).Msg("failed to write results")
		}
		return
	}
	for i, r := range results {
		if len(results) > 1 {
			fmt.Printf("=== Customer %d ===\n", i+1)
		}
		fmt.Printf("Churn Probability: %s\n", r.Percent())
		fmt.Printf("Prediction: %s\n", r.Verdict())
		fmt.Println(r.RiskMessage())
	}
}

func readProfiles(path string) ([]features.RawCustomerProfile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("expected a JSON array of profiles: %w", err)
	}
	profiles := make([]features.RawCustomerProfile, len(raw))
	for i, r := range raw {
		p := features.DefaultProfile()
		if err := json.Unmarshal(r, &p); err != nil {
			return nil, fmt.Errorf("profile %d: %w", i, err)
		}
		profiles[i] = p
	}
	return profiles, nil
}

func predictLocal(artifactDir string, threshold float64, profiles []features.RawCustomerProfile) ([]ml.PredictionResult, error) {
	if err := godotenv.Load(); err != nil {
		log.Debug().Msg("no .env file found, relying on OS environment variables")
	}
	c, err := cfg.Load()
	if err != nil {
		return nil, fmt.Errorf("config load failed: %w", err)
	}
	if artifactDir != "" {
		c.ArtifactDir = artifactDir
	}
	if threshold != 0 {
		c.DecisionThreshold = threshold
	}

	artifacts, err := ml.LoadArtifacts(c.ArtifactPaths(), c.DecisionThreshold)
	if err != nil {
		return nil, err
	}
	predictor, err := ml.NewChurnPredictor(artifacts, nil)
	if err != nil {
		return nil, err
	}
	return predictor.PredictProfiles(profiles)
}

func predictRemote(base string, profiles []features.RawCustomerProfile) ([]ml.PredictionResult, error) {
	c := client.New(base, 10*time.Second)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	resp, err := c.PredictBatch(ctx, profiles)
	if err != nil {
		return nil, err
	}
	results := make([]ml.PredictionResult, len(resp.Predictions))
	for i, p := range resp.Predictions {
		results[i] = ml.PredictionResult{Churn: p.Churn, Probability: p.Probability}
	}
	return results, nil
}
