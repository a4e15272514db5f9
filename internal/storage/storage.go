// Package storage keeps an append-only log of churn predictions and model
// loads. It uses BoltDB as the underlying storage engine so a single server
// process can persist what it scored without an external database.
//
// Records are keyed by "modelVersion_timestamp" so range queries for one
// model version are a single cursor scan.
package storage

import (
	"bytes"
	"encoding/json"
	"fmt"
	"path/filepath"
	"time"

	"churn-predictor/internal/features"

	"go.etcd.io/bbolt"
)

const (
	predictionsBucket = "predictions" // Scored customer profiles
	modelsBucket      = "models"      // Artifact sets loaded by the server
)

// PredictionRecord is one scored profile as it was served.
type PredictionRecord struct {
	Timestamp    time.Time                   `json:"timestamp"`
	ModelVersion string                      `json:"model_version"`
	Profile      features.RawCustomerProfile `json:"profile"`
	Churn        bool                        `json:"churn"`
	Probability  float64                     `json:"probability"`
}

// Store provides persistent storage for served predictions using BoltDB.
type Store struct {
	db *bbolt.DB
}

// New opens (or creates) churn-predictions.db under dataPath and makes sure
// every bucket exists.
func New(dataPath string) (*Store, error) {
	dbPath := filepath.Join(dataPath, "churn-predictions.db")

	db, err := bbolt.Open(dbPath, 0o600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists([]byte(predictionsBucket)); err != nil {
			return fmt.Errorf("create predictions bucket: %w", err)
		}
		if _, err := tx.CreateBucketIfNotExists([]byte(modelsBucket)); err != nil {
			return fmt.Errorf("create models bucket: %w", err)
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

// OpenReadOnly opens an existing prediction log for reading. It waits at
// most one second for a running server to release the file.
func OpenReadOnly(dataPath string) (*Store, error) {
	dbPath := filepath.Join(dataPath, "churn-predictions.db")

	db, err := bbolt.Open(dbPath, 0o600, &bbolt.Options{Timeout: 1 * time.Second, ReadOnly: true})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the database. Closing twice is a no-op.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

// StorePrediction appends one prediction to the log. A zero Timestamp is
// replaced with the current time.
func (s *Store) StorePrediction(record PredictionRecord) error {
	if record.Timestamp.IsZero() {
		record.Timestamp = time.Now()
	}
	return s.put(predictionsBucket, recordKey(record.ModelVersion, record.Timestamp), record)
}

// GetPredictions returns the predictions made by one model version within
// [start, end], ordered by timestamp.
func (s *Store) GetPredictions(modelVersion string, start, end time.Time) ([]PredictionRecord, error) {
	var records []PredictionRecord
	err := s.scanRange(predictionsBucket, modelVersion, start, end, func(data []byte) error {
		var r PredictionRecord
		if err := json.Unmarshal(data, &r); err != nil {
			return err
		}
		records = append(records, r)
		return nil
	})
	return records, err
}

func (s *Store) put(bucket, key string, v interface{}) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(bucket))

		data, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("marshal %s record: %w", bucket, err)
		}
		return b.Put([]byte(key), data)
	})
}

// scanRange walks the keys of one version between start and end inclusive.
// Malformed records are skipped.
func (s *Store) scanRange(bucket, version string, start, end time.Time, fn func([]byte) error) error {
	return s.db.View(func(tx *bbolt.Tx) error {
		c := tx.Bucket([]byte(bucket)).Cursor()

		prefix := []byte(version + "_")
		endKey := []byte(recordKey(version, end))

		for k, v := c.Seek([]byte(recordKey(version, start))); k != nil && bytes.Compare(k, endKey) <= 0; k, v = c.Next() {
			if !bytes.HasPrefix(k, prefix) {
				continue
			}
			if err := fn(v); err != nil {
				continue
			}
		}
		return nil
	})
}

// recordKey zero-pads the timestamp so lexical order matches time order.
func recordKey(version string, ts time.Time) string {
	return fmt.Sprintf("%s_%020d", version, ts.UnixNano())
}
