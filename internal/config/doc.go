// Package config loads runtime configuration from multiple sources (YAML files,
// environment variables, CLI flags) and applies them in order: defaults, YAML
// config, environment variables, CLI flags. It resolves both the HTTP server
// settings and the session descriptor served by the application.
package config
