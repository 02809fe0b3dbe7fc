// Package config loads meterd settings from the process environment.
//
// Optional .env files are read first with godotenv (existing variables win),
// then the target struct is populated with caarlos0/env field tags. Each
// struct type is parsed once per process and served from a cache afterwards:
//
//	var cfg Settings
//	if err := config.Load(&cfg); err != nil {
//		return err
//	}
//
// Tests call ResetCache after changing the environment.
package config
