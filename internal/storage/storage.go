package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/rs/zerolog"
)

// Storage keys
const (
	keySettings       = "settings"
	keyStats          = "stats"
	keyAnalysisPrefix = "analysis/"
)

// ErrNotFound is returned when a key has no stored value.
var ErrNotFound = errors.New("storage: not found")

// Settings are the engine options persisted between runs.
type Settings struct {
	HashMB     int    `json:"hash_mb"`
	MultiPV    int    `json:"multipv"`
	SkillLevel int    `json:"skill_level"`
	SkillSeed  uint64 `json:"skill_seed,omitempty"`
}

// DefaultSettings returns the settings used before anything is saved.
func DefaultSettings() *Settings {
	return &Settings{
		HashMB:     64,
		MultiPV:    1,
		SkillLevel: 20,
	}
}

// Analysis is a cached search result for one position. Moves are in UCI
// notation so the store does not depend on the engine's move encoding.
type Analysis struct {
	FEN      string        `json:"fen"`
	BestMove string        `json:"best_move"`
	Score    int           `json:"score"`
	Depth    int           `json:"depth"`
	PV       []string      `json:"pv,omitempty"`
	Nodes    uint64        `json:"nodes"`
	Time     time.Duration `json:"time"`
	Saved    time.Time     `json:"saved"`
}

// Stats accumulates totals over every search run through the store.
type Stats struct {
	Searches  int           `json:"searches"`
	Nodes     uint64        `json:"nodes"`
	TotalTime time.Duration `json:"total_time"`
	Deepest   int           `json:"deepest"`
}

// NPS returns the average search speed in nodes per second.
func (s *Stats) NPS() float64 {
	if s.TotalTime <= 0 {
		return 0
	}
	return float64(s.Nodes) / s.TotalTime.Seconds()
}

// Storage wraps BadgerDB for persistent storage
type Storage struct {
	db  *badger.DB
	log zerolog.Logger
}

// Open opens the database in dir, creating it if needed. An empty dir opens
// a throwaway in-memory database.
func Open(dir string, log zerolog.Logger) (*Storage, error) {
	opts := badger.DefaultOptions(dir)
	if dir == "" {
		opts = opts.WithInMemory(true)
	}
	// badger is chatty at info level.
	lvl := max(log.GetLevel(), zerolog.WarnLevel)
	opts.Logger = badgerLogger{log.With().Str("component", "badger").Logger().Level(lvl)}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open store %q: %w", dir, err)
	}
	log.Debug().Str("dir", dir).Bool("memory", dir == "").Msg("store opened")
	return &Storage{db: db, log: log}, nil
}

// Close closes the database
func (s *Storage) Close() error {
	if s.db != nil {
		s.log.Debug().Msg("store closed")
		return s.db.Close()
	}
	return nil
}

func (s *Storage) put(key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), data)
	})
}

// get decodes the value under key into v, returning ErrNotFound when absent.
func (s *Storage) get(key string, v any) error {
	return s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, v)
		})
	})
}

// SaveSettings saves the engine settings
func (s *Storage) SaveSettings(st *Settings) error {
	return s.put(keySettings, st)
}

// LoadSettings loads the engine settings, returns defaults if not found
func (s *Storage) LoadSettings() (*Settings, error) {
	st := DefaultSettings()
	if err := s.get(keySettings, st); err != nil && !errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("load settings: %w", err)
	}
	return st, nil
}

func analysisKey(hash uint64) string {
	return keyAnalysisPrefix + strconv.FormatUint(hash, 16)
}

// SaveAnalysis stores a result for the position with the given zobrist hash.
// A stored result from a deeper search is kept.
func (s *Storage) SaveAnalysis(hash uint64, a *Analysis) error {
	old, err := s.LoadAnalysis(hash)
	switch {
	case err == nil && old.Depth > a.Depth:
		return nil
	case err != nil && !errors.Is(err, ErrNotFound):
		return err
	}
	a.Saved = time.Now()
	return s.put(analysisKey(hash), a)
}

// LoadAnalysis returns the stored result for hash, or ErrNotFound.
func (s *Storage) LoadAnalysis(hash uint64) (*Analysis, error) {
	var a Analysis
	if err := s.get(analysisKey(hash), &a); err != nil {
		return nil, err
	}
	return &a, nil
}

// DeleteAnalysis removes every cached result and reports how many went.
func (s *Storage) DeleteAnalysis() (int, error) {
	var keys [][]byte
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = []byte(keyAnalysisPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			keys = append(keys, it.Item().KeyCopy(nil))
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	wb := s.db.NewWriteBatch()
	defer wb.Cancel()
	for _, k := range keys {
		if err := wb.Delete(k); err != nil {
			return 0, err
		}
	}
	if err := wb.Flush(); err != nil {
		return 0, err
	}
	s.log.Info().Int("count", len(keys)).Msg("analysis cache cleared")
	return len(keys), nil
}

// LoadStats loads search statistics, returns empty stats if not found
func (s *Storage) LoadStats() (*Stats, error) {
	var st Stats
	if err := s.get(keyStats, &st); err != nil && !errors.Is(err, ErrNotFound) {
		return nil, err
	}
	return &st, nil
}

// RecordSearch adds one search to the statistics.
func (s *Storage) RecordSearch(depth int, nodes uint64, elapsed time.Duration) error {
	st, err := s.LoadStats()
	if err != nil {
		return err
	}
	st.Searches++
	st.Nodes += nodes
	st.TotalTime += elapsed
	st.Deepest = max(st.Deepest, depth)
	return s.put(keyStats, st)
}

// badgerLogger routes badger's log output through zerolog.
type badgerLogger struct {
	log zerolog.Logger
}

func (l badgerLogger) Errorf(f string, v ...any)   { l.log.Error().Msgf(f, v...) }
func (l badgerLogger) Warningf(f string, v ...any) { l.log.Warn().Msgf(f, v...) }
func (l badgerLogger) Infof(f string, v ...any)    { l.log.Info().Msgf(f, v...) }
func (l badgerLogger) Debugf(f string, v ...any)   { l.log.Debug().Msgf(f, v...) }
