package config

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/dyike/rsi-backtest/pkg/backtest"
)

const profileFileName = "config.json"

// Profile is the part of the configuration kept in config.json: the price
// source and the defaults offered by the interactive prompts. Directories,
// logging and API keys always come from the environment.
type Profile struct {
	Provider       string  `json:"provider"`
	CSVPath        string  `json:"csv_path,omitempty"`
	Symbol         string  `json:"symbol"`
	StartDate      string  `json:"start_date"`
	EndDate        string  `json:"end_date"`
	InitialCapital float64 `json:"initial_capital"`
	FeePercent     float64 `json:"fee_percent"`
	Overbought     float64 `json:"overbought"`
	Oversold       float64 `json:"oversold"`
	RSIPeriod      int     `json:"rsi_period"`
}

// ProfileOf extracts the persisted fields of cfg
func ProfileOf(cfg *Config) Profile {
	return Profile{
		Provider:       cfg.Provider,
		CSVPath:        cfg.CSVPath,
		Symbol:         cfg.DefaultSymbol,
		StartDate:      cfg.StartDate,
		EndDate:        cfg.EndDate,
		InitialCapital: cfg.InitialCapital,
		FeePercent:     cfg.FeePercent,
		Overbought:     cfg.Overbought,
		Oversold:       cfg.Oversold,
		RSIPeriod:      cfg.RSIPeriod,
	}
}

// ApplyTo returns a copy of base with the profile fields overlaid
func (p Profile) ApplyTo(base Config) Config {
	base.Provider = p.Provider
	base.CSVPath = p.CSVPath
	base.DefaultSymbol = p.Symbol
	base.StartDate = p.StartDate
	base.EndDate = p.EndDate
	base.InitialCapital = p.InitialCapital
	base.FeePercent = p.FeePercent
	base.Overbought = p.Overbought
	base.Oversold = p.Oversold
	base.RSIPeriod = p.RSIPeriod
	return base
}

// Manager keeps a Profile in sync with config.json on top of a base Config.
// Edits made on disk are picked up by Watch; edits made through Save are not
// reported back to the watcher.
type Manager struct {
	path     string
	base     Config
	debounce time.Duration

	mu          sync.RWMutex
	profile     Profile
	lastWritten []byte
	onChange    func(Config)
	watching    bool
}

type managerOptions struct {
	configPath string
	debounce   time.Duration
}

type ManagerOption func(*managerOptions)

// WithConfigDir stores config.json in dir
func WithConfigDir(dir string) ManagerOption {
	return func(o *managerOptions) {
		if dir != "" {
			o.configPath = filepath.Join(dir, profileFileName)
		}
	}
}

func WithConfigPath(path string) ManagerOption {
	return func(o *managerOptions) {
		if path != "" {
			o.configPath = path
		}
	}
}

func WithDebounce(d time.Duration) ManagerOption {
	return func(o *managerOptions) {
		if d > 0 {
			o.debounce = d
		}
	}
}

// NewManager loads config.json, creating it from base when missing. The
// default location is the user config dir under rsi-backtest/.
func NewManager(base *Config, opts ...ManagerOption) (*Manager, error) {
	if base == nil {
		return nil, errors.New("config manager needs a base config")
	}
	options := managerOptions{debounce: 300 * time.Millisecond}
	for _, opt := range opts {
		opt(&options)
	}

	path := options.configPath
	if path == "" {
		dir, err := os.UserConfigDir()
		if err != nil {
			if dir, err = os.Getwd(); err != nil {
				return nil, err
			}
		}
		path = filepath.Join(dir, "rsi-backtest", profileFileName)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create config dir: %w", err)
	}

	m := &Manager{path: path, base: *base, debounce: options.debounce}

	raw, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		if err := m.Save(ProfileOf(base)); err != nil {
			return nil, fmt.Errorf("write initial config: %w", err)
		}
		return m, nil
	case err != nil:
		return nil, fmt.Errorf("read config: %w", err)
	}

	profile, err := m.decode(raw)
	if err != nil {
		return nil, err
	}
	m.profile = profile
	m.lastWritten = raw
	return m, nil
}

func (m *Manager) Path() string { return m.path }

// Get returns the base config with the current profile applied
func (m *Manager) Get() Config {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.profile.ApplyTo(m.base)
}

func (m *Manager) Profile() Profile {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.profile
}

// Save validates p against the base config, then writes and applies it
func (m *Manager) Save(p Profile) error {
	cfg := p.ApplyTo(m.base)
	if err := cfg.Validate(); err != nil {
		return err
	}
	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	data = append(data, '\n')

	m.mu.Lock()
	defer m.mu.Unlock()
	if err := writeAtomic(m.path, data); err != nil {
		return err
	}
	m.profile = p
	m.lastWritten = data
	return nil
}

// RememberRun makes the symbol, range and parameters of a finished run the
// next defaults.
func (m *Manager) RememberRun(symbol string, start, end time.Time, params backtest.Params) error {
	if err := params.Validate(); err != nil {
		return err
	}
	p := m.Profile()
	p.Symbol = symbol
	p.StartDate = start.Format(DateLayout)
	p.EndDate = end.Format(DateLayout)
	p.RSIPeriod = params.Period
	p.Overbought = params.Overbought
	p.Oversold = params.Oversold
	p.InitialCapital = params.InitialCapital
	p.FeePercent = params.FeeRate * 100
	return m.Save(p)
}

// Watch reloads config.json after on-disk edits until ctx is done and calls
// onChange with the merged config. Invalid edits are logged and ignored.
func (m *Manager) Watch(ctx context.Context, onChange func(Config)) error {
	m.mu.Lock()
	m.onChange = onChange
	if m.watching {
		m.mu.Unlock()
		return nil
	}
	m.watching = true
	m.mu.Unlock()

	watcher, err := fsnotify.NewWatcher()
	if err == nil {
		// watch the directory so atomic renames are seen
		if err = watcher.Add(filepath.Dir(m.path)); err != nil {
			watcher.Close()
			err = fmt.Errorf("watch config dir: %w", err)
		}
	}
	if err != nil {
		m.mu.Lock()
		m.watching = false
		m.mu.Unlock()
		return err
	}

	go m.watch(ctx, watcher)
	return nil
}

func (m *Manager) watch(ctx context.Context, watcher *fsnotify.Watcher) {
	defer watcher.Close()

	timer := time.NewTimer(m.debounce)
	timer.Stop()
	target := filepath.Clean(m.path)

	for {
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case evt, ok := <-watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(evt.Name) == target && evt.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0 {
				timer.Reset(m.debounce)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			slog.Warn("config watcher error", "error", err)
		case <-timer.C:
			m.reload()
		}
	}
}

func (m *Manager) reload() {
	raw, err := os.ReadFile(m.path)
	if err != nil {
		// a rename in progress or a deleted file keeps the last good profile
		slog.Debug("config reload skipped", "path", m.path, "error", err)
		return
	}

	m.mu.RLock()
	unchanged := bytes.Equal(raw, m.lastWritten)
	m.mu.RUnlock()
	if unchanged {
		return
	}

	profile, err := m.decode(raw)
	if err != nil {
		slog.Warn("config edit rejected", "path", m.path, "error", err)
		return
	}

	m.mu.Lock()
	m.profile = profile
	m.lastWritten = raw
	cfg := profile.ApplyTo(m.base)
	cb := m.onChange
	m.mu.Unlock()

	slog.Info("config reloaded", "path", m.path, "provider", profile.Provider, "symbol", profile.Symbol)
	if cb != nil {
		cb(cfg)
	}
}

// decode overlays raw on the base profile so keys missing from older files
// keep their defaults, then validates the merged config.
func (m *Manager) decode(raw []byte) (Profile, error) {
	profile := ProfileOf(&m.base)
	if err := json.Unmarshal(raw, &profile); err != nil {
		return Profile{}, fmt.Errorf("decode %s: %w", m.path, err)
	}
	cfg := profile.ApplyTo(m.base)
	if err := cfg.Validate(); err != nil {
		return Profile{}, fmt.Errorf("invalid %s: %w", m.path, err)
	}
	return profile, nil
}

func writeAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "cfg-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp config: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("write temp config: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("flush config: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("close temp config: %w", err)
	}
	return os.Rename(tmp.Name(), path)
}
