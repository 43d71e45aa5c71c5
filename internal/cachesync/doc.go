// Package cachesync broadcasts cache synchronization commands to peer session
// instances over websockets. Publishing is gated on the CommandsConfig cache
// sync flag held in storage.
package cachesync
