package am

import (
	"os"
	"path/filepath"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/teranos/searchq/errors"
	"github.com/teranos/searchq/logger"
)

// DefaultDebounce is how long the watcher waits after the last file event
// before reloading.
const DefaultDebounce = 500 * time.Millisecond

// ReloadCallback receives a freshly loaded config. An error is logged and
// does not stop the remaining callbacks.
type ReloadCallback func(*Config) error

// ConfigWatcher reloads the config when its file changes on disk.
//
// The parent directory is watched, not the file, so editors that save by
// renaming a temp file over the original are still seen. A reload only
// happens when the file content differs from what was last loaded or
// written through MarkOwnWrite.
type ConfigWatcher struct {
	path     string
	fsw      *fsnotify.Watcher
	debounce time.Duration
	load     func() (*Config, error)
	log      *zap.SugaredLogger

	mu        sync.Mutex
	callbacks []ReloadCallback
	lastSum   uint64

	done     chan struct{}
	wg       sync.WaitGroup
	stopOnce sync.Once
	stopErr  error
}

// WatcherOption configures a ConfigWatcher
type WatcherOption func(*ConfigWatcher)

// WithDebounce overrides DefaultDebounce
func WithDebounce(d time.Duration) WatcherOption {
	return func(cw *ConfigWatcher) { cw.debounce = d }
}

// WithLoader replaces the full cascade reload with load
func WithLoader(load func() (*Config, error)) WatcherOption {
	return func(cw *ConfigWatcher) { cw.load = load }
}

// NewConfigWatcher watches configPath. The file must exist.
func NewConfigWatcher(configPath string, opts ...WatcherOption) (*ConfigWatcher, error) {
	path, err := filepath.Abs(configPath)
	if err != nil {
		return nil, errors.Wrapf(err, "resolve config path %s", configPath)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.WithHint(
			errors.Wrapf(err, "watch config file %s", path),
			"create the file first, e.g. with 'searchq am set'")
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.Wrap(err, "create fsnotify watcher")
	}
	if err := fsw.Add(filepath.Dir(path)); err != nil {
		fsw.Close()
		return nil, errors.Wrapf(err, "watch directory %s", filepath.Dir(path))
	}

	cw := &ConfigWatcher{
		path:     path,
		fsw:      fsw,
		debounce: DefaultDebounce,
		load: func() (*Config, error) {
			Reset()
			return Load()
		},
		log:     logger.Named("am"),
		lastSum: xxhash.Sum64(data),
		done:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(cw)
	}
	return cw, nil
}

// Path is the absolute path being watched
func (cw *ConfigWatcher) Path() string { return cw.path }

// OnReload registers callback for every successful reload
func (cw *ConfigWatcher) OnReload(callback ReloadCallback) {
	cw.mu.Lock()
	defer cw.mu.Unlock()
	cw.callbacks = append(cw.callbacks, callback)
}

// MarkOwnWrite records data as the file's next content so that writing it
// does not trigger a reload.
func (cw *ConfigWatcher) MarkOwnWrite(data []byte) {
	cw.mu.Lock()
	defer cw.mu.Unlock()
	cw.lastSum = xxhash.Sum64(data)
}

// Start runs the event loop until Stop
func (cw *ConfigWatcher) Start() {
	cw.wg.Add(1)
	go func() {
		defer cw.wg.Done()
		cw.run()
	}()
}

func (cw *ConfigWatcher) run() {
	var timer *time.Timer
	var fire <-chan time.Time
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-cw.done:
			return

		case ev, ok := <-cw.fsw.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != cw.path || !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) {
				continue
			}
			cw.log.Debugw("Config file event", "file", ev.Name, "op", ev.Op.String())
			if timer == nil {
				timer = time.NewTimer(cw.debounce)
			} else {
				timer.Reset(cw.debounce)
			}
			fire = timer.C

		case err, ok := <-cw.fsw.Errors:
			if !ok {
				return
			}
			cw.log.Warnw("Config watcher error", "error", err)

		case <-fire:
			fire = nil
			if _, err := cw.reload(); err != nil {
				cw.log.Errorw("Config reload failed", "path", cw.path, "error", err)
			}
		}
	}
}

// reload loads the config and runs the callbacks when the file content
// changed. It reports whether callbacks ran.
func (cw *ConfigWatcher) reload() (bool, error) {
	data, err := os.ReadFile(cw.path)
	if err != nil {
		return false, errors.Wrapf(err, "read %s", cw.path)
	}
	sum := xxhash.Sum64(data)

	cw.mu.Lock()
	unchanged := sum == cw.lastSum
	cw.lastSum = sum
	callbacks := slices.Clone(cw.callbacks)
	cw.mu.Unlock()

	if unchanged {
		cw.log.Debugw("Config content unchanged", "path", cw.path)
		return false, nil
	}

	cfg, err := cw.load()
	if err != nil {
		return false, errors.Wrap(err, "load config")
	}
	for _, callback := range callbacks {
		if err := callback(cfg); err != nil {
			cw.log.Warnw("Config reload callback failed", "error", err)
		}
	}
	cw.log.Infow("Config reloaded", "path", cw.path, "callbacks", len(callbacks))
	return true, nil
}

// Stop ends the event loop and releases the watcher. Safe to call twice.
func (cw *ConfigWatcher) Stop() error {
	cw.stopOnce.Do(func() {
		close(cw.done)
		cw.stopErr = cw.fsw.Close()
		cw.wg.Wait()
	})
	return cw.stopErr
}

var activeWatcher atomic.Pointer[ConfigWatcher]

// SetGlobalWatcher registers the watcher that config writes report to.
// nil clears it.
func SetGlobalWatcher(watcher *ConfigWatcher) {
	activeWatcher.Store(watcher)
}

// GetGlobalWatcher returns the registered watcher, if any
func GetGlobalWatcher() *ConfigWatcher {
	return activeWatcher.Load()
}
