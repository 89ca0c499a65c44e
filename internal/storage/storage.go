package storage

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/hailam/chesscore/internal/board"
	"github.com/hailam/chesscore/internal/engine"
)

// Storage keys
const (
	keyStats       = "stats"
	analysisPrefix = "analysis/"
)

// ErrNotFound is returned when no record exists for a key.
var ErrNotFound = errors.New("storage: not found")

// Analysis is a stored search result for one position.
type Analysis struct {
	SearchID  string        `json:"search_id"`
	Move      uint32        `json:"move"` // board.Move.Encode()
	Score     int           `json:"score"`
	Depth     int           `json:"depth"`
	Nodes     uint64        `json:"nodes"`
	PV        []uint32      `json:"pv"`
	Elapsed   time.Duration `json:"elapsed"`
	CreatedAt time.Time     `json:"created_at"`
}

// NewAnalysis captures an engine result for storage.
func NewAnalysis(res engine.Result) Analysis {
	pv := make([]uint32, len(res.PV))
	for i, m := range res.PV {
		pv[i] = m.Encode()
	}
	return Analysis{
		SearchID:  res.SearchID,
		Move:      res.Move.Encode(),
		Score:     res.Score,
		Depth:     res.Depth,
		Nodes:     res.Nodes,
		PV:        pv,
		Elapsed:   res.Elapsed,
		CreatedAt: time.Now(),
	}
}

// BestMove decodes the stored move.
func (a Analysis) BestMove() board.Move {
	return board.DecodeMove(a.Move)
}

// Line decodes the stored principal variation.
func (a Analysis) Line() []board.Move {
	out := make([]board.Move, len(a.PV))
	for i, v := range a.PV {
		out[i] = board.DecodeMove(v)
	}
	return out
}

// GameStats stores self-play statistics. Wins and losses are counted
// from White's side.
type GameStats struct {
	GamesPlayed    int            `json:"games_played"`
	Wins           int            `json:"wins"`
	Losses         int            `json:"losses"`
	Draws          int            `json:"draws"`
	ByReason       map[string]int `json:"by_reason"`
	TotalPlies     int            `json:"total_plies"`
	LongestGame    int            `json:"longest_game"`
	TotalPlayTime  time.Duration  `json:"total_play_time"`
	LongestWinStrk int            `json:"longest_win_streak"`
	CurrentStreak  int            `json:"current_streak"`
}

// NewGameStats returns empty game statistics
func NewGameStats() *GameStats {
	return &GameStats{ByReason: make(map[string]int)}
}

// GameResult represents the result of a completed game
type GameResult struct {
	Winner   board.Color // NoColor for a draw
	Reason   string      // "checkmate", "stalemate", "repetition", ...
	Plies    int
	Duration time.Duration
}

// Storage wraps BadgerDB for persistent storage
type Storage struct {
	db *badger.DB
}

// NewStorage opens the database in the platform data directory.
func NewStorage() (*Storage, error) {
	dbDir, err := GetDatabaseDir()
	if err != nil {
		return nil, err
	}
	return Open(dbDir)
}

// Open opens (or creates) the database in dir.
func Open(dir string) (*Storage, error) {
	opts := badger.DefaultOptions(dir)
	opts.Logger = nil // Disable logging

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open database in %s: %w", dir, err)
	}
	return &Storage{db: db}, nil
}

// Close closes the database
func (s *Storage) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func analysisKey(key board.HashKey) []byte {
	k := make([]byte, len(analysisPrefix)+8)
	copy(k, analysisPrefix)
	binary.BigEndian.PutUint64(k[len(analysisPrefix):], uint64(key))
	return k
}

// SaveAnalysis stores a for the position key, replacing any earlier entry.
func (s *Storage) SaveAnalysis(key board.HashKey, a Analysis) error {
	data, err := json.Marshal(a)
	if err != nil {
		return err
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(analysisKey(key), data)
	})
}

// LoadAnalysis returns the stored analysis for the position key, or
// ErrNotFound.
func (s *Storage) LoadAnalysis(key board.HashKey) (Analysis, error) {
	var a Analysis
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(analysisKey(key))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &a)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return a, ErrNotFound
	}
	return a, err
}

// CountAnalyses returns the number of stored analyses.
func (s *Storage) CountAnalyses() (int, error) {
	n := 0
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = []byte(analysisPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			n++
		}
		return nil
	})
	return n, err
}

// SaveStats saves game statistics
func (s *Storage) SaveStats(stats *GameStats) error {
	data, err := json.Marshal(stats)
	if err != nil {
		return err
	}

	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(keyStats), data)
	})
}

// LoadStats loads game statistics, returns empty stats if not found
func (s *Storage) LoadStats() (*GameStats, error) {
	stats := NewGameStats()

	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(keyStats))
		if err == badger.ErrKeyNotFound {
			return nil // Use empty stats
		}
		if err != nil {
			return err
		}

		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, stats)
		})
	})
	if stats.ByReason == nil {
		stats.ByReason = make(map[string]int)
	}
	return stats, err
}

// RecordGame records a completed game and updates statistics
func (s *Storage) RecordGame(result GameResult) error {
	stats, err := s.LoadStats()
	if err != nil {
		return err
	}

	stats.GamesPlayed++
	stats.TotalPlies += result.Plies
	stats.LongestGame = max(stats.LongestGame, result.Plies)
	stats.TotalPlayTime += result.Duration
	if result.Reason != "" {
		stats.ByReason[result.Reason]++
	}

	switch result.Winner {
	case board.White:
		stats.Wins++
		stats.CurrentStreak++
		if stats.CurrentStreak > stats.LongestWinStrk {
			stats.LongestWinStrk = stats.CurrentStreak
		}
	case board.Black:
		stats.Losses++
		stats.CurrentStreak = 0
	default:
		stats.Draws++
		stats.CurrentStreak = 0
	}

	return s.SaveStats(stats)
}

// GetWinRate returns the win rate as a percentage (0-100)
func (s *GameStats) GetWinRate() float64 {
	if s.GamesPlayed == 0 {
		return 0
	}
	return float64(s.Wins) / float64(s.GamesPlayed) * 100
}

// AveragePlies returns the mean game length.
func (s *GameStats) AveragePlies() float64 {
	if s.GamesPlayed == 0 {
		return 0
	}
	return float64(s.TotalPlies) / float64(s.GamesPlayed)
}
