// Package config loads a star's layered configuration: a YAML file
// plus STARLANE_-prefixed environment overrides, merged by viper into
// one Config struct. A six-component mesh node (TLS lanes, a registry
// DSN, a lane listener, wrangle scheduling, star identity) has too
// much surface for ad hoc os.Getenv calls; this package centralizes it
// the way the pack's orbas1-Synnergy/synnergy-network/pkg/config does.
package config
