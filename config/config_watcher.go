package config

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

var _ Watcher = (*FileWatcher)(nil)

// FileWatcher watches the configuration file and reloads it on change. The
// mode catalog and credentials are fixed for a running relay, so subscribers
// (the main loop) react to a reload by restarting the relay with the new
// configuration rather than mutating live components.
type FileWatcher struct {
	current    atomic.Value
	configPath string
	watcher    *fsnotify.Watcher
	logger     *zap.Logger

	mu          sync.Mutex
	subscribers []chan<- *Config
}

// NewFileWatcher loads the initial configuration and starts watching the
// file for writes.
func NewFileWatcher(configPath string, logger *zap.Logger) (*FileWatcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}

	fw := &FileWatcher{
		configPath: configPath,
		watcher:    watcher,
		logger:     logger,
	}

	initial, err := LoadFile(configPath)
	if err != nil {
		watcher.Close()
		return nil, fmt.Errorf("load initial config: %w", err)
	}
	fw.current.Store(initial)

	if err := watcher.Add(configPath); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("watch config file: %w", err)
	}

	go fw.watch()
	return fw, nil
}

// Subscribe returns a channel that receives each successfully reloaded
// configuration. The channel has a buffer of one; a subscriber that lags
// misses intermediate versions, never the latest.
func (fw *FileWatcher) Subscribe() <-chan *Config {
	ch := make(chan *Config, 1)
	fw.mu.Lock()
	fw.subscribers = append(fw.subscribers, ch)
	fw.mu.Unlock()
	return ch
}

// GetCurrentConfig returns the most recently loaded valid configuration.
func (fw *FileWatcher) GetCurrentConfig() *Config {
	return fw.current.Load().(*Config)
}

func (fw *FileWatcher) watch() {
	for {
		select {
		case event, ok := <-fw.watcher.Events:
			if !ok {
				return
			}
			if event.Op&fsnotify.Write == fsnotify.Write {
				fw.reload()
			}
		case err, ok := <-fw.watcher.Errors:
			if !ok {
				return
			}
			fw.logger.Error("Config watcher error", zap.Error(err))
		}
	}
}

// reload re-reads the file. An unreadable or invalid file is logged and
// ignored; the previous configuration stays active.
func (fw *FileWatcher) reload() {
	fw.logger.Info("Config file changed, reloading")

	newConfig, err := LoadFile(fw.configPath)
	if err != nil {
		fw.logger.Error("Failed to reload config, keeping previous", zap.Error(err))
		return
	}

	fw.current.Store(newConfig)

	fw.mu.Lock()
	subs := fw.subscribers
	fw.mu.Unlock()
	for _, sub := range subs {
		select {
		case sub <- newConfig:
		default:
			// Subscriber still holds an older version; it will pick up the
			// current one via GetCurrentConfig.
		}
	}

	fw.logger.Info("Configuration reloaded")
}

// Close stops watching the file.
func (fw *FileWatcher) Close() error {
	return fw.watcher.Close()
}
