package config

import (
	"bytes"
	"crypto/sha256"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"
)

// ChangeFunc is called after a valid, changed config has been loaded. diff is
// [Diff] of old and new.
type ChangeFunc func(old, new *Config, diff ConfigDiff)

// Watcher polls a config file and reports changes. A file that fails to parse
// or validate is ignored and the last valid config stays current.
type Watcher struct {
	path     string
	interval time.Duration
	onChange ChangeFunc
	onError  func(error)

	mu       sync.Mutex
	current  *Config
	done     chan struct{}
	stopOnce sync.Once

	lastMtime time.Time
	lastHash  [sha256.Size]byte
}

// WatcherOption configures a [Watcher].
type WatcherOption func(*Watcher)

// WithInterval sets the polling interval. The default is 5 seconds.
func WithInterval(d time.Duration) WatcherOption {
	return func(w *Watcher) {
		if d > 0 {
			w.interval = d
		}
	}
}

// WithErrorHandler sets a callback for reloads that were rejected because the
// file could not be read or was invalid.
func WithErrorHandler(fn func(error)) WatcherOption {
	return func(w *Watcher) {
		w.onError = fn
	}
}

// NewWatcher loads the config at path and starts polling it in a background
// goroutine. Call [Watcher.Stop] to end polling.
func NewWatcher(path string, onChange ChangeFunc, opts ...WatcherOption) (*Watcher, error) {
	w := &Watcher{
		path:     path,
		interval: 5 * time.Second,
		onChange: onChange,
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}

	cfg, hash, mtime, err := w.loadAndHash()
	if err != nil {
		return nil, fmt.Errorf("config: watcher initial load: %w", err)
	}
	w.current = cfg
	w.lastHash = hash
	w.lastMtime = mtime

	go w.poll()
	return w, nil
}

// Current returns the most recently loaded valid config.
func (w *Watcher) Current() *Config {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.current
}

// Stop stops polling. It is safe to call more than once.
func (w *Watcher) Stop() {
	w.stopOnce.Do(func() {
		close(w.done)
	})
}

func (w *Watcher) poll() {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-w.done:
			return
		case <-ticker.C:
			w.check()
		}
	}
}

// check reloads the file when its mtime and content hash both changed.
func (w *Watcher) check() {
	info, err := os.Stat(w.path)
	if err != nil {
		w.reject(fmt.Errorf("config: watcher stat %q: %w", w.path, err))
		return
	}

	w.mu.Lock()
	mtime := w.lastMtime
	w.mu.Unlock()
	if info.ModTime().Equal(mtime) {
		return
	}

	cfg, hash, newMtime, err := w.loadAndHash()
	if err != nil {
		// Remember the mtime so a broken file is reported once, not on
		// every tick.
		w.mu.Lock()
		w.lastMtime = info.ModTime()
		w.mu.Unlock()
		w.reject(fmt.Errorf("config: watcher reload %q: %w", w.path, err))
		return
	}

	w.mu.Lock()
	if hash == w.lastHash {
		w.lastMtime = newMtime
		w.mu.Unlock()
		return
	}
	old := w.current
	w.current = cfg
	w.lastHash = hash
	w.lastMtime = newMtime
	w.mu.Unlock()

	diff := Diff(old, cfg)
	slog.Info("config watcher: configuration reloaded",
		"path", w.path,
		"rebuild", diff.NeedsRebuild(),
		"log_level_changed", diff.LogLevelChanged,
	)
	if len(diff.RestartRequired) > 0 {
		slog.Warn("config watcher: some changes need a restart", "fields", diff.RestartRequired)
	}

	// Outside the lock so the callback can call Current.
	if w.onChange != nil {
		w.onChange(old, cfg, diff)
	}
}

func (w *Watcher) reject(err error) {
	slog.Warn("config watcher: keeping previous configuration", "err", err)
	if w.onError != nil {
		w.onError(err)
	}
}

// loadAndHash reads, parses and validates the file and returns it alongside
// its SHA-256 hash and modification time.
func (w *Watcher) loadAndHash() (*Config, [sha256.Size]byte, time.Time, error) {
	var zeroHash [sha256.Size]byte

	info, err := os.Stat(w.path)
	if err != nil {
		return nil, zeroHash, time.Time{}, err
	}
	data, err := os.ReadFile(w.path)
	if err != nil {
		return nil, zeroHash, time.Time{}, err
	}

	cfg, err := LoadFromReader(bytes.NewReader(data))
	if err != nil {
		return nil, zeroHash, time.Time{}, err
	}
	return cfg, sha256.Sum256(data), info.ModTime(), nil
}
