package storage

import (
	"encoding/json"
	"time"

	"go.etcd.io/bbolt"
)

// ModelLoadRecord captures which artifact set a server process loaded.
type ModelLoadRecord struct {
	Version      string    `json:"version"`
	LoadedAt     time.Time `json:"loaded_at"`
	ArtifactDir  string    `json:"artifact_dir"`
	Features     []string  `json:"features"`
	Threshold    float64   `json:"threshold"`
	ModelCreated time.Time `json:"model_created"`
}

// StoreModelLoad records a model load at record.LoadedAt (now when zero).
func (s *Store) StoreModelLoad(record ModelLoadRecord) error {
	if record.LoadedAt.IsZero() {
		record.LoadedAt = time.Now()
	}
	return s.put(modelsBucket, recordKey(record.Version, record.LoadedAt), record)
}

// GetModelLoads returns the loads of one model version within [start, end].
func (s *Store) GetModelLoads(version string, start, end time.Time) ([]ModelLoadRecord, error) {
	var records []ModelLoadRecord
	err := s.scanRange(modelsBucket, version, start, end, func(data []byte) error {
		var r ModelLoadRecord
		if err := json.Unmarshal(data, &r); err != nil {
			return err
		}
		records = append(records, r)
		return nil
	})
	return records, err
}

// LatestModelLoad returns the most recent model load of any version, or
// false when none was recorded.
func (s *Store) LatestModelLoad() (ModelLoadRecord, bool, error) {
	var latest ModelLoadRecord
	var found bool
	err := s.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(modelsBucket)).ForEach(func(_, v []byte) error {
			var r ModelLoadRecord
			if err := json.Unmarshal(v, &r); err != nil {
				return nil
			}
			if !found || r.LoadedAt.After(latest.LoadedAt) {
				latest, found = r, true
			}
			return nil
		})
	})
	return latest, found, err
}
