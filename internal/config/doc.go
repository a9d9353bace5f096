// Package config loads runtime settings for docsync.
//
// Sources are applied in order, later ones winning:
//
//  1. built-in defaults (LoadDefaults)
//  2. a JSON or TOML file, chosen by extension (--config)
//  3. command-line flags that were explicitly set
package config
