// Package watcher reloads a source when it changes on disk. What counts as
// the source depends on its Kind: a single document, a SQLite export together
// with its -wal and -journal companions, or every candidate file in a tree
// directory.
//
// Files are followed through their directory with fsnotify. Network and FUSE
// filesystems, or SV_FORCE_POLL, switch to polling stamps of the same file
// set. Bursts of events are collapsed by a Debouncer.
package watcher

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/vanderheijden86/supplyviz/pkg/debug"
)

// ForcePollEnvVar switches every watcher to polling when truthy.
const ForcePollEnvVar = "SV_FORCE_POLL"

// DefaultPollInterval is the stat interval in polling mode.
const DefaultPollInterval = 2 * time.Second

var (
	ErrSourceRemoved  = errors.New("watched source was removed")
	ErrPermission     = errors.New("permission denied")
	ErrAlreadyStarted = errors.New("watcher already started")
)

// WatcherOption configures a Watcher.
type WatcherOption func(*Watcher)

// WithKind overrides the kind detected from the path.
func WithKind(k Kind) WatcherOption {
	return func(w *Watcher) {
		w.kind = k
		w.kindSet = true
	}
}

// WithDebounceDuration sets the quiet period. Without it documents use
// DefaultDebounceDuration and SQLite exports DefaultSQLiteDebounce.
func WithDebounceDuration(d time.Duration) WatcherOption {
	return func(w *Watcher) {
		w.debounceDuration = d
	}
}

func WithPollInterval(d time.Duration) WatcherOption {
	return func(w *Watcher) {
		w.pollInterval = d
	}
}

// WithOnChange sets the callback run after each debounced change.
func WithOnChange(fn func()) WatcherOption {
	return func(w *Watcher) {
		w.onChange = fn
	}
}

func WithOnError(fn func(error)) WatcherOption {
	return func(w *Watcher) {
		w.onError = fn
	}
}

// WithForcePoll skips fsnotify.
func WithForcePoll(force bool) WatcherOption {
	return func(w *Watcher) {
		w.forcePoll = force
	}
}

// Watcher follows one source.
type Watcher struct {
	path             string
	kind             Kind
	kindSet          bool
	debounceDuration time.Duration
	pollInterval     time.Duration
	onChange         func()
	onError          func(error)
	forcePoll        bool
	fsType           FilesystemType

	fsWatcher *fsnotify.Watcher
	debouncer *Debouncer
	polling   bool
	stamps    map[string]fileStamp
	pending   map[string]bool
	last      []string

	ctx      context.Context
	cancel   context.CancelFunc
	started  bool
	mu       sync.RWMutex
	changeCh chan struct{}
}

// NewWatcher prepares a watcher for path. The kind is detected from the path
// unless WithKind is given.
func NewWatcher(path string, opts ...WatcherOption) (*Watcher, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}

	w := &Watcher{
		path:         absPath,
		pollInterval: DefaultPollInterval,
		onChange:     func() {},
		onError:      func(error) {},
		pending:      make(map[string]bool),
		changeCh:     make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(w)
	}
	if !w.kindSet {
		w.kind = KindOf(absPath)
	}
	if w.debounceDuration <= 0 {
		w.debounceDuration = DefaultDebounceDuration
		if w.kind == KindSQLite {
			w.debounceDuration = DefaultSQLiteDebounce
		}
	}
	w.debouncer = NewDebouncer(w.debounceDuration)
	return w, nil
}

// Start begins watching. A document or export that does not exist yet is
// picked up once it appears; a missing directory is an error.
func (w *Watcher) Start() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.started {
		return ErrAlreadyStarted
	}

	stamps, err := w.kind.snapshot(w.path)
	if err != nil {
		if os.IsPermission(err) {
			return ErrPermission
		}
		return err
	}
	w.stamps = stamps
	w.fsType = detectFilesystemTypeFunc(w.path)
	w.polling = w.forcePoll || envBool(ForcePollEnvVar) || envBool("SV_FORCE_POLLING") || isRemoteFilesystem(w.fsType)
	w.ctx, w.cancel = context.WithCancel(context.Background())

	if !w.polling {
		if err := w.startFsnotify(); err != nil {
			debug.Log("watcher: fsnotify unavailable for %s: %v", w.path, err)
			w.polling = true
		}
	}
	if w.polling {
		go w.watchPolling(w.ctx)
	}
	debug.Log("watcher: %s (kind=%s, fs=%s, polling=%v, debounce=%s)", w.path, w.kind, w.fsType, w.polling, w.debounceDuration)

	w.started = true
	return nil
}

func (w *Watcher) startFsnotify() error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := fsw.Add(w.kind.watchDir(w.path)); err != nil {
		fsw.Close()
		return err
	}
	w.fsWatcher = fsw
	go w.watchFsnotify(w.ctx, fsw.Events, fsw.Errors)
	return nil
}

// Stop stops watching. The Changed channel stays open so a receiver blocked
// on it is not woken by a spurious change.
func (w *Watcher) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.started {
		return
	}
	w.cancel()
	if w.fsWatcher != nil {
		w.fsWatcher.Close()
		w.fsWatcher = nil
	}
	w.debouncer.Cancel()
	w.started = false
}

func (w *Watcher) IsPolling() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.polling
}

func (w *Watcher) IsStarted() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.started
}

// Changed receives after each debounced change, alongside the OnChange
// callback.
func (w *Watcher) Changed() <-chan struct{} {
	return w.changeCh
}

// LastChanged lists the file names, relative to the watched directory, behind
// the most recent notification.
func (w *Watcher) LastChanged() []string {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return append([]string(nil), w.last...)
}

func (w *Watcher) Path() string {
	return w.path
}

func (w *Watcher) Kind() Kind {
	return w.kind
}

func (w *Watcher) FilesystemType() FilesystemType {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.fsType
}

func (w *Watcher) PollInterval() time.Duration {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.pollInterval
}

// DebounceDuration is the quiet period in effect.
func (w *Watcher) DebounceDuration() time.Duration {
	return w.debounceDuration
}

func envBool(name string) bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv(name))) {
	case "1", "true", "yes", "y", "on":
		return true
	default:
		return false
	}
}

func (w *Watcher) watchFsnotify(ctx context.Context, events <-chan fsnotify.Event, errs <-chan error) {
	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-events:
			if !ok {
				return
			}
			name := filepath.Base(event.Name)
			member, primary := w.kind.member(w.path, name)
			if !member {
				continue
			}
			switch {
			case event.Op&fsnotify.Remove != 0 && primary:
				w.onError(ErrSourceRemoved)
			case event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove) != 0:
				w.queue(name)
			}

		case err, ok := <-errs:
			if !ok {
				return
			}
			w.onError(err)
		}
	}
}

func (w *Watcher) watchPolling(ctx context.Context) {
	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.poll()
		}
	}
}

// poll compares a fresh snapshot with the last one.
func (w *Watcher) poll() {
	next, err := w.kind.snapshot(w.path)
	if err != nil {
		switch {
		case os.IsNotExist(err):
			w.onError(ErrSourceRemoved)
		case os.IsPermission(err):
			w.onError(ErrPermission)
		default:
			w.onError(err)
		}
		return
	}

	w.mu.Lock()
	prev := w.stamps
	w.stamps = next
	w.mu.Unlock()

	changed := diffSnapshots(prev, next)
	if w.kind != KindDirectory {
		base := filepath.Base(w.path)
		_, had := prev[base]
		_, has := next[base]
		if had && !has {
			w.onError(ErrSourceRemoved)
			return
		}
	}
	for _, name := range changed {
		w.queue(name)
	}
}

// queue records name and (re)starts the quiet period.
func (w *Watcher) queue(name string) {
	w.mu.Lock()
	w.pending[name] = true
	w.mu.Unlock()
	w.debouncer.Trigger(w.notifyChange)
}

func (w *Watcher) notifyChange() {
	w.mu.Lock()
	if !w.started {
		w.mu.Unlock()
		return
	}
	w.last = w.last[:0]
	for name := range w.pending {
		w.last = append(w.last, name)
	}
	sort.Strings(w.last)
	w.pending = make(map[string]bool)
	debug.Log("watcher: %s changed: %v", w.path, w.last)
	w.mu.Unlock()

	w.onChange()

	select {
	case w.changeCh <- struct{}{}:
	default:
	}
}
