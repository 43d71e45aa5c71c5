package session

// CommandsConfig controls whether cache synchronization commands are enabled.
// The zero value has cache sync disabled.
type CommandsConfig struct {
	cacheSync bool
}

// NewCommandsConfig returns a CommandsConfig with cache sync disabled.
func NewCommandsConfig() *CommandsConfig {
	return &CommandsConfig{}
}

// CacheSync reports whether cache synchronization commands are enabled.
func (c *CommandsConfig) CacheSync() bool {
	return c.cacheSync
}

// SetCacheSync overwrites the cache sync flag.
func (c *CommandsConfig) SetCacheSync(enabled bool) {
	c.cacheSync = enabled
}
