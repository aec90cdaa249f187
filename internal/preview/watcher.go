package preview

import (
	"context"
	"os"
	"sync"
	"time"
)

// ChangeType is the kind of file change.
type ChangeType int

const (
	ChangeModified ChangeType = iota
	ChangeCreated
	ChangeRemoved
)

func (t ChangeType) String() string {
	switch t {
	case ChangeCreated:
		return "created"
	case ChangeRemoved:
		return "removed"
	default:
		return "modified"
	}
}

// Change is a detected file change.
type Change struct {
	Path string
	Type ChangeType
}

// WatcherConfig configures the file watcher.
type WatcherConfig struct {
	// Files are the paths to watch. Missing files are watched for creation.
	Files []string

	// Interval is the polling period.
	Interval time.Duration
}

// Watcher polls a fixed set of files for changes. All changes seen in one
// poll are delivered together.
type Watcher struct {
	config   WatcherConfig
	onChange func([]Change)
	mu       sync.Mutex
	running  bool
	stopCh   chan struct{}
	modTimes map[string]time.Time
}

// NewWatcher creates a watcher. The initial state is recorded immediately.
func NewWatcher(config WatcherConfig) *Watcher {
	if config.Interval <= 0 {
		config.Interval = 250 * time.Millisecond
	}

	w := &Watcher{
		config:   config,
		modTimes: make(map[string]time.Time),
	}
	for _, f := range config.Files {
		if info, err := os.Stat(f); err == nil {
			w.modTimes[f] = info.ModTime()
		}
	}
	return w
}

// OnChange sets the change callback.
func (w *Watcher) OnChange(fn func([]Change)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.onChange = fn
}

// Start polls until ctx is cancelled or Stop is called.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = true
	w.stopCh = make(chan struct{})
	stopCh := w.stopCh
	w.mu.Unlock()

	ticker := time.NewTicker(w.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.Stop()
			return ctx.Err()
		case <-stopCh:
			return nil
		case <-ticker.C:
			changes := w.poll()
			w.mu.Lock()
			callback := w.onChange
			w.mu.Unlock()
			if len(changes) > 0 && callback != nil {
				callback(changes)
			}
		}
	}
}

// Stop stops the watcher.
func (w *Watcher) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.running {
		close(w.stopCh)
		w.running = false
	}
}

// IsRunning reports whether Start is active.
func (w *Watcher) IsRunning() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.running
}

// poll compares the watched files against the last recorded state.
func (w *Watcher) poll() []Change {
	w.mu.Lock()
	defer w.mu.Unlock()

	var changes []Change
	for _, f := range w.config.Files {
		last, known := w.modTimes[f]
		info, err := os.Stat(f)

		switch {
		case err != nil:
			if known {
				delete(w.modTimes, f)
				changes = append(changes, Change{Path: f, Type: ChangeRemoved})
			}
		case !known:
			w.modTimes[f] = info.ModTime()
			changes = append(changes, Change{Path: f, Type: ChangeCreated})
		case !info.ModTime().Equal(last):
			w.modTimes[f] = info.ModTime()
			changes = append(changes, Change{Path: f, Type: ChangeModified})
		}
	}
	return changes
}
