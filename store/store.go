package store

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"go.etcd.io/bbolt"
)

var (
	// ErrRunNotFound is returned when a run is not found in the state store.
	ErrRunNotFound = errors.New("run not found")

	// ErrJobNotFound is returned when a job is not found in the state store.
	ErrJobNotFound = errors.New("job not found")
)

var (
	runsBucket       = []byte("runs")
	jobsBucket       = []byte("jobs")
	mismatchesBucket = []byte("mismatches")
)

// JobState represents the current state of a stress run or one of its jobs.
type JobState string

const (
	StatePending    JobState = "Pending"
	StateInProgress JobState = "InProgress"
	StateCompleted  JobState = "Completed"
	StateFailed     JobState = "Failed"
)

// RunRecord represents the state of a whole stress run in the store.
type RunRecord struct {
	ID          string    `json:"id"`
	StartedAt   time.Time `json:"started_at"`
	FinishedAt  time.Time `json:"finished_at,omitempty"`
	RegionBytes int       `json:"region_bytes"`
	Regions     int       `json:"regions"`
	Workers     int       `json:"workers"`
	Iterations  int       `json:"iterations"`
	Strategy    string    `json:"strategy"`
	State       JobState  `json:"state"`
	Mismatches  int64     `json:"mismatches"`
	Error       string    `json:"error,omitempty"`
}

// JobRecord represents the state of one region job in the store.
type JobRecord struct {
	ID              string   `json:"id"`
	RunID           string   `json:"run_id"`
	Region          int      `json:"region"`
	Pattern         string   `json:"pattern"`
	Strategy        string   `json:"strategy"`
	State           JobState `json:"state"`
	Iterations      int      `json:"iterations"`
	TotalIterations int      `json:"total_iterations"`
	Error           string   `json:"error,omitempty"`
}

// MismatchRecord captures one checksum disagreement, with both renderings so
// the record stays comparable in logs long after the buffers are gone.
type MismatchRecord struct {
	RunID       string    `json:"run_id"`
	JobID       string    `json:"job_id"`
	Region      int       `json:"region"`
	Iteration   int       `json:"iteration"`
	Phase       string    `json:"phase"`
	Pattern     string    `json:"pattern"`
	Fingerprint string    `json:"fingerprint"`
	Want        string    `json:"want"`
	Got         string    `json:"got"`
	At          time.Time `json:"at"`
}

// Store defines the interface for tracking run, job and mismatch state.
type Store interface {
	SaveRun(run *RunRecord) error
	GetRun(id string) (*RunRecord, error)
	Runs() ([]*RunRecord, error)
	SaveJob(job *JobRecord) error
	GetJob(id string) (*JobRecord, error)
	AppendMismatch(m *MismatchRecord) error
	MismatchesForRun(runID string) ([]*MismatchRecord, error)
	Close() error
}

// BoltStore is a Store implementation backed by bbolt.
type BoltStore struct {
	db *bbolt.DB
}

// NewBoltStore creates a new BoltStore at the given path.
func NewBoltStore(path string) (*BoltStore, error) {
	db, err := bbolt.Open(path, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open bbolt database: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		for _, bucket := range [][]byte{runsBucket, jobsBucket, mismatchesBucket} {
			if _, err := tx.CreateBucketIfNotExists(bucket); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create buckets: %w", err)
	}

	return &BoltStore{db: db}, nil
}

// SaveRun saves a run to the state store.
func (s *BoltStore) SaveRun(run *RunRecord) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(runsBucket)

		data, err := json.Marshal(run)
		if err != nil {
			return fmt.Errorf("failed to marshal run: %w", err)
		}

		if err := b.Put([]byte(run.ID), data); err != nil {
			return fmt.Errorf("failed to put run: %w", err)
		}

		return nil
	})
}

// GetRun retrieves a run from the state store.
func (s *BoltStore) GetRun(id string) (*RunRecord, error) {
	var run RunRecord
	err := s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(runsBucket)
		data := b.Get([]byte(id))
		if data == nil {
			return ErrRunNotFound
		}

		if err := json.Unmarshal(data, &run); err != nil {
			return fmt.Errorf("failed to unmarshal run: %w", err)
		}
		return nil
	})

	if err != nil {
		return nil, err
	}

	return &run, nil
}

// Runs returns every stored run, newest first by start time.
func (s *BoltStore) Runs() ([]*RunRecord, error) {
	var runs []*RunRecord
	err := s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(runsBucket)
		return b.ForEach(func(_, data []byte) error {
			var run RunRecord
			if err := json.Unmarshal(data, &run); err != nil {
				return fmt.Errorf("failed to unmarshal run: %w", err)
			}
			runs = append(runs, &run)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(runs, func(i, j int) bool {
		return runs[i].StartedAt.After(runs[j].StartedAt)
	})
	return runs, nil
}

// SaveJob saves a job to the state store.
func (s *BoltStore) SaveJob(job *JobRecord) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(jobsBucket)

		data, err := json.Marshal(job)
		if err != nil {
			return fmt.Errorf("failed to marshal job: %w", err)
		}

		if err := b.Put([]byte(job.ID), data); err != nil {
			return fmt.Errorf("failed to put job: %w", err)
		}

		return nil
	})
}

// GetJob retrieves a job from the state store.
func (s *BoltStore) GetJob(id string) (*JobRecord, error) {
	var job JobRecord
	err := s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(jobsBucket)
		data := b.Get([]byte(id))
		if data == nil {
			return ErrJobNotFound
		}

		if err := json.Unmarshal(data, &job); err != nil {
			return fmt.Errorf("failed to unmarshal job: %w", err)
		}
		return nil
	})

	if err != nil {
		return nil, err
	}

	return &job, nil
}

// AppendMismatch appends a mismatch record under its run. Keys are
// runID/sequence so a run's records list in observation order.
func (s *BoltStore) AppendMismatch(m *MismatchRecord) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(mismatchesBucket)

		seq, err := b.NextSequence()
		if err != nil {
			return fmt.Errorf("failed to allocate mismatch sequence: %w", err)
		}

		data, err := json.Marshal(m)
		if err != nil {
			return fmt.Errorf("failed to marshal mismatch: %w", err)
		}

		if err := b.Put(mismatchKey(m.RunID, seq), data); err != nil {
			return fmt.Errorf("failed to put mismatch: %w", err)
		}

		return nil
	})
}

// MismatchesForRun returns all mismatch records for the given run.
func (s *BoltStore) MismatchesForRun(runID string) ([]*MismatchRecord, error) {
	var out []*MismatchRecord
	prefix := []byte(runID + "/")

	err := s.db.View(func(tx *bbolt.Tx) error {
		c := tx.Bucket(mismatchesBucket).Cursor()
		for k, v := c.Seek(prefix); k != nil && hasPrefix(k, prefix); k, v = c.Next() {
			var m MismatchRecord
			if err := json.Unmarshal(v, &m); err != nil {
				return fmt.Errorf("failed to unmarshal mismatch: %w", err)
			}
			out = append(out, &m)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return out, nil
}

// Close closes the underlying store.
func (s *BoltStore) Close() error {
	return s.db.Close()
}

func mismatchKey(runID string, seq uint64) []byte {
	key := make([]byte, 0, len(runID)+9)
	key = append(key, runID...)
	key = append(key, '/')
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], seq)
	return append(key, buf[:]...)
}

func hasPrefix(k, prefix []byte) bool {
	if len(k) < len(prefix) {
		return false
	}
	for i := range prefix {
		if k[i] != prefix[i] {
			return false
		}
	}
	return true
}
