// Package session holds the session configuration model: the cache sync
// commands switch and the naming service address. Values are plain holders;
// they perform no validation and carry no synchronization.
package session
