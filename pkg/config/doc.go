// Package config loads typed configuration structs from environment
// variables.
//
// Configuration structs declare their environment bindings with `env` field
// tags (see github.com/caarlos0/env). Load reads a local .env file once per
// process if one exists, then parses the environment into the struct. Backend
// packages in this module declare env-tagged Config structs and compose Load
// in their NewFromEnv constructors.
//
// # Usage
//
//	var cfg pgstore.Config
//	if err := config.Load(&cfg); err != nil {
//		log.Fatal(err)
//	}
//
// MustLoad panics on failure for configurations required at startup.
package config
