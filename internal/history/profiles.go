package history

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/web3guy0/cryptobot/internal/types"
)

const DefaultProfileDir = "config/strategy_profiles"

// ProfileStore reads/writes versioned per-symbol strategy profiles
// (module J, second half). Writes are serialized per symbol behind a
// per-symbol mutex, matching §5's "profile file writes are serialized
// per symbol" requirement; archive-copy then overwrite is atomic via
// temp+rename, mirroring the teacher's gorm persistence-layer write
// discipline generalized to flat files.
type ProfileStore struct {
	dir string

	locksMu sync.Mutex
	locks   map[string]*sync.Mutex
}

func NewProfileStore(dir string) *ProfileStore {
	if dir == "" {
		dir = DefaultProfileDir
	}
	return &ProfileStore{dir: dir, locks: make(map[string]*sync.Mutex)}
}

func (s *ProfileStore) lockFor(symbol string) *sync.Mutex {
	s.locksMu.Lock()
	defer s.locksMu.Unlock()
	m, ok := s.locks[symbol]
	if !ok {
		m = &sync.Mutex{}
		s.locks[symbol] = m
	}
	return m
}

func (s *ProfileStore) path(symbol string) string {
	return filepath.Join(s.dir, symbol+".json")
}

func (s *ProfileStore) archivePath(symbol string, at time.Time) string {
	ts := at.UTC().Format("20060102T150405Z")
	return filepath.Join(s.dir, "archive", fmt.Sprintf("%s_profile_%s.json", symbol, ts))
}

// Load reads a profile, filling in default meta/metrics sections for
// backward compatibility with unversioned legacy profiles (§4.J).
func (s *ProfileStore) Load(symbol string) (types.StrategyProfile, error) {
	data, err := os.ReadFile(s.path(symbol))
	if os.IsNotExist(err) {
		return types.StrategyProfile{}, types.InvalidInput("history.Load", "no profile for symbol "+symbol)
	}
	if err != nil {
		return types.StrategyProfile{}, types.IOFailure("history.Load", err)
	}

	var p types.StrategyProfile
	if err := json.Unmarshal(data, &p); err != nil {
		return types.StrategyProfile{}, types.IOFailure("history.Load", err)
	}
	if p.Meta.Version == 0 {
		p.Meta.Version = 1
	}
	if p.Meta.Source == "" {
		p.Meta.Source = types.SourceManual
	}
	if p.Params == nil {
		p.Params = map[string]interface{}{}
	}
	return p, nil
}

// Save validates, archives the prior file (if any), increments
// meta.version, stamps updated_at/source/run_id, and writes atomically.
func (s *ProfileStore) Save(profile types.StrategyProfile, source types.ProfileSource, runID string) error {
	if profile.Symbol == "" || profile.Symbol == types.UnknownSymbol {
		return types.InvalidInput("history.Save", "invalid symbol")
	}

	mu := s.lockFor(profile.Symbol)
	mu.Lock()
	defer mu.Unlock()

	now := time.Now().UTC()
	path := s.path(profile.Symbol)

	if existing, err := os.ReadFile(path); err == nil {
		if err := os.MkdirAll(filepath.Join(s.dir, "archive"), 0o755); err != nil {
			return types.IOFailure("history.Save", err)
		}
		if err := os.WriteFile(s.archivePath(profile.Symbol, now), existing, 0o644); err != nil {
			return types.IOFailure("history.Save", err)
		}
		var prior types.StrategyProfile
		if jsonErr := json.Unmarshal(existing, &prior); jsonErr == nil {
			profile.Meta.Version = prior.Meta.Version + 1
			if profile.Meta.CreatedAt.IsZero() {
				profile.Meta.CreatedAt = prior.Meta.CreatedAt
			}
		}
	} else if os.IsNotExist(err) {
		profile.Meta.Version = 1
		profile.Meta.CreatedAt = now
	} else {
		return types.IOFailure("history.Save", err)
	}

	profile.Meta.UpdatedAt = now
	profile.Meta.Source = source
	profile.Meta.RunID = runID

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return types.IOFailure("history.Save", err)
	}
	data, err := json.MarshalIndent(profile, "", "  ")
	if err != nil {
		return types.IOFailure("history.Save", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return types.IOFailure("history.Save", err)
	}
	return os.Rename(tmp, path)
}
