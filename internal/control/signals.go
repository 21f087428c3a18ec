// Package control handles out-of-band run control via the .ensemble
// directory. A separate terminal can pause, resume, or cancel a running
// ensemble by dropping signal files; the watcher feeds the orchestrator's
// pause gate.
package control

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// ErrCancelled is returned by Wait when a cancel signal is present.
var ErrCancelled = errors.New("run cancelled by signal")

const (
	cancelSignal = "cancel"
	pauseSignal  = "pause"
)

// SignalManager watches the signals directory for cancel/pause files and
// implements the orchestrator's pause gate.
type SignalManager struct {
	ensembleDir string

	mu        sync.RWMutex
	cancelled bool
	paused    bool

	watcher *fsnotify.Watcher
	done    chan struct{}

	// pollInterval bounds the wait loop when paused.
	pollInterval time.Duration
}

// NewSignalManager creates a signal manager rooted at dir. The signals
// directory is created if missing. The fsnotify watcher is best effort;
// without it the manager falls back to checking the files directly.
func NewSignalManager(dir string) (*SignalManager, error) {
	ensembleDir := filepath.Join(dir, ".ensemble")
	signalsDir := filepath.Join(ensembleDir, "signals")
	if err := os.MkdirAll(signalsDir, 0755); err != nil {
		return nil, err
	}

	sm := &SignalManager{
		ensembleDir:  ensembleDir,
		done:         make(chan struct{}),
		pollInterval: 100 * time.Millisecond,
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		// Continue without watcher - will use polling fallback
		return sm, nil
	}
	sm.watcher = watcher

	if err := watcher.Add(signalsDir); err != nil {
		watcher.Close()
		sm.watcher = nil
		return sm, nil
	}

	go sm.watchSignals()

	return sm, nil
}

// watchSignals monitors the signals directory for cancel/pause files.
func (sm *SignalManager) watchSignals() {
	for {
		select {
		case <-sm.done:
			return
		case event, ok := <-sm.watcher.Events:
			if !ok {
				return
			}
			base := filepath.Base(event.Name)
			created := event.Op&fsnotify.Create != 0 || event.Op&fsnotify.Write != 0
			removed := event.Op&fsnotify.Remove != 0 || event.Op&fsnotify.Rename != 0

			sm.mu.Lock()
			switch base {
			case cancelSignal:
				if created {
					sm.cancelled = true
				}
			case pauseSignal:
				if created {
					sm.paused = true
				} else if removed {
					sm.paused = false
				}
			}
			sm.mu.Unlock()
		case <-sm.watcher.Errors:
			// Ignore errors, keep watching
		}
	}
}

// signalPath returns the path of a named signal file.
func (sm *SignalManager) signalPath(name string) string {
	return filepath.Join(sm.ensembleDir, "signals", name)
}

// Cancelled reports whether a cancel signal has been received. It also
// checks the file directly in case the watcher missed it.
func (sm *SignalManager) Cancelled() bool {
	if _, err := os.Stat(sm.signalPath(cancelSignal)); err == nil {
		sm.mu.Lock()
		sm.cancelled = true
		sm.mu.Unlock()
	}

	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return sm.cancelled
}

// Paused reports whether a pause signal is in effect.
func (sm *SignalManager) Paused() bool {
	sm.mu.Lock()
	if _, err := os.Stat(sm.signalPath(pauseSignal)); err == nil {
		sm.paused = true
	} else if os.IsNotExist(err) {
		sm.paused = false
	}
	paused := sm.paused
	sm.mu.Unlock()
	return paused
}

// Wait implements the orchestrator's pause gate. It returns ErrCancelled
// when a cancel signal is present and blocks while paused, polling until
// the pause file is removed, a cancel arrives, or the context ends.
func (sm *SignalManager) Wait(ctx context.Context) error {
	for {
		if sm.Cancelled() {
			return ErrCancelled
		}
		if !sm.Paused() {
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-sm.done:
			return nil
		case <-time.After(sm.pollInterval):
		}
	}
}

// SendCancel creates a cancel signal file.
func (sm *SignalManager) SendCancel() error {
	return os.WriteFile(sm.signalPath(cancelSignal), []byte(time.Now().Format(time.RFC3339)), 0644)
}

// SendPause creates a pause signal file.
func (sm *SignalManager) SendPause() error {
	return os.WriteFile(sm.signalPath(pauseSignal), []byte(time.Now().Format(time.RFC3339)), 0644)
}

// Resume removes the pause signal file.
func (sm *SignalManager) Resume() error {
	sm.mu.Lock()
	sm.paused = false
	sm.mu.Unlock()

	err := os.Remove(sm.signalPath(pauseSignal))
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

// ClearSignals removes all signal files and resets signal state.
func (sm *SignalManager) ClearSignals() {
	sm.mu.Lock()
	sm.cancelled = false
	sm.paused = false
	sm.mu.Unlock()

	os.Remove(sm.signalPath(cancelSignal))
	os.Remove(sm.signalPath(pauseSignal))
}

// EnsembleDir returns the path to the .ensemble directory.
func (sm *SignalManager) EnsembleDir() string {
	return sm.ensembleDir
}

// Close shuts down the signal manager.
func (sm *SignalManager) Close() {
	close(sm.done)
	if sm.watcher != nil {
		sm.watcher.Close()
	}
}
