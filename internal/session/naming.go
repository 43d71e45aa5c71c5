package session

// RMIRegistryNamingServiceConfig stores the address of an RMI registry naming
// service. The URL is unset until SetURL is called; no default is assumed.
type RMIRegistryNamingServiceConfig struct {
	url *string
}

// NewRMIRegistryNamingServiceConfig returns a config with no URL set.
func NewRMIRegistryNamingServiceConfig() *RMIRegistryNamingServiceConfig {
	return &RMIRegistryNamingServiceConfig{}
}

// URL returns the stored URL. The boolean is false when no URL was ever set.
func (c *RMIRegistryNamingServiceConfig) URL() (string, bool) {
	if c.url == nil {
		return "", false
	}
	return *c.url, true
}

// SetURL stores url verbatim. Empty and malformed values are accepted.
func (c *RMIRegistryNamingServiceConfig) SetURL(url string) {
	c.url = &url
}

// ClearURL returns the config to its unset state.
func (c *RMIRegistryNamingServiceConfig) ClearURL() {
	c.url = nil
}
