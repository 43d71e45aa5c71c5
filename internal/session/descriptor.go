package session

// Descriptor groups the session settings loaded from a configuration source.
type Descriptor struct {
	Commands      CommandsConfig
	NamingService RMIRegistryNamingServiceConfig
}

// DefaultDescriptor returns a descriptor with cache sync off and no naming URL.
func DefaultDescriptor() Descriptor {
	return Descriptor{}
}

// Clone returns a deep copy; the naming URL is not shared with the receiver.
func (d Descriptor) Clone() Descriptor {
	out := Descriptor{Commands: d.Commands}
	if url, ok := d.NamingService.URL(); ok {
		out.NamingService.SetURL(url)
	}
	return out
}
