package persistence

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/markusressel/clevod/internal/control"
	"github.com/markusressel/clevod/internal/controller"
	"github.com/markusressel/clevod/internal/ui"
	bolt "go.etcd.io/bbolt"
)

const (
	BucketSamples = "samples"
	BucketTunings = "tunings"
)

// TuningRecord is one persisted tuning pass.
type TuningRecord struct {
	Time   time.Time            `json:"time"`
	Result control.TuningResult `json:"result"`
}

// Persistence stores observational telemetry: tick samples and tuning
// passes. Tuning records include the gains of each pass, but nothing is
// ever loaded back into the tuner: it starts from scratch on every
// daemon start.
type Persistence interface {
	Init() error

	SaveSample(sample controller.Sample) error
	LoadRecentSamples(limit int) ([]controller.Sample, error)

	SaveTuning(record TuningRecord) error
	LoadRecentTunings(limit int) ([]TuningRecord, error)
}

type persistence struct {
	dbPath     string
	maxSamples int
}

func NewPersistence(dbPath string, maxSamples int) Persistence {
	p := &persistence{
		dbPath:     dbPath,
		maxSamples: maxSamples,
	}
	return p
}

func (p persistence) Init() (err error) {
	// get parent path of dbPath
	parentDir := filepath.Dir(p.dbPath)
	_, err = os.Stat(parentDir)
	if errors.Is(err, os.ErrNotExist) {
		// create directory
		ui.Info("Creating directory for db: %s", parentDir)
		err = os.MkdirAll(parentDir, 0755)
		if err != nil {
			return err
		}
	}
	return nil
}

func (p persistence) openPersistence() (db *bolt.DB, err error) {
	db, err = bolt.Open(p.dbPath, 0600, &bolt.Options{Timeout: 1 * time.Minute})
	if err != nil {
		return nil, err
	}
	return db, nil
}

// SaveSample appends one tick sample, pruning the oldest entries once
// the history exceeds its bound.
func (p persistence) SaveSample(sample controller.Sample) (err error) {
	db, err := p.openPersistence()
	if err != nil {
		return err
	}
	defer func(db *bolt.DB) {
		_ = db.Close()
	}(db)

	data, err := json.Marshal(sample)
	if err != nil {
		return err
	}

	return db.Update(func(tx *bolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists([]byte(BucketSamples))
		if err != nil {
			return fmt.Errorf("create bucket: %s", err)
		}
		if err = b.Put(timeKey(sample.Time), data); err != nil {
			return err
		}
		return pruneOldest(b, p.maxSamples)
	})
}

// LoadRecentSamples returns up to limit samples, newest first.
func (p persistence) LoadRecentSamples(limit int) ([]controller.Sample, error) {
	db, err := p.openPersistence()
	if err != nil {
		return nil, err
	}
	defer func(db *bolt.DB) {
		_ = db.Close()
	}(db)

	var samples []controller.Sample
	err = db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(BucketSamples))
		if b == nil {
			return nil
		}
		c := b.Cursor()
		for k, v := c.Last(); k != nil && len(samples) < limit; k, v = c.Prev() {
			var sample controller.Sample
			if err := json.Unmarshal(v, &sample); err != nil {
				ui.Warning("Unable to unmarshal saved sample %x: %v", k, err)
				continue
			}
			samples = append(samples, sample)
		}
		return nil
	})

	return samples, err
}

// SaveTuning appends one tuning pass record.
func (p persistence) SaveTuning(record TuningRecord) (err error) {
	db, err := p.openPersistence()
	if err != nil {
		return err
	}
	defer func(db *bolt.DB) {
		_ = db.Close()
	}(db)

	data, err := json.Marshal(record)
	if err != nil {
		return err
	}

	return db.Update(func(tx *bolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists([]byte(BucketTunings))
		if err != nil {
			return fmt.Errorf("create bucket: %s", err)
		}
		if err = b.Put(timeKey(record.Time), data); err != nil {
			return err
		}
		return pruneOldest(b, p.maxSamples)
	})
}

// LoadRecentTunings returns up to limit tuning records, newest first.
func (p persistence) LoadRecentTunings(limit int) ([]TuningRecord, error) {
	db, err := p.openPersistence()
	if err != nil {
		return nil, err
	}
	defer func(db *bolt.DB) {
		_ = db.Close()
	}(db)

	var records []TuningRecord
	err = db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(BucketTunings))
		if b == nil {
			return nil
		}
		c := b.Cursor()
		for k, v := c.Last(); k != nil && len(records) < limit; k, v = c.Prev() {
			var record TuningRecord
			if err := json.Unmarshal(v, &record); err != nil {
				ui.Warning("Unable to unmarshal saved tuning record %x: %v", k, err)
				continue
			}
			records = append(records, record)
		}
		return nil
	})

	return records, err
}

// timeKey renders a timestamp as a sortable big-endian key.
func timeKey(t time.Time) []byte {
	key := make([]byte, 8)
	binary.BigEndian.PutUint64(key, uint64(t.UnixNano()))
	return key
}

// pruneOldest deletes the oldest entries of the bucket until at most
// limit remain.
func pruneOldest(b *bolt.Bucket, limit int) error {
	excess := b.Stats().KeyN + 1 - limit
	if excess <= 0 {
		return nil
	}
	c := b.Cursor()
	for k, _ := c.First(); k != nil && excess > 0; k, _ = c.First() {
		if err := b.Delete(k); err != nil {
			return err
		}
		excess--
	}
	return nil
}
