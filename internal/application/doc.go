// Package application provides application initialization and dependency wiring.
// It opens session storage, seeds it from the loaded configuration, and builds
// the cache sync hub, HTTP handlers, router and server, keeping the main
// package focused on CLI parsing and orchestration.
package application
