package config

// Watcher is the behavior the bootstrap expects from a configuration source
// that can change at runtime.
type Watcher interface {
	GetCurrentConfig() *Config
	Subscribe() <-chan *Config
	Close() error
}
