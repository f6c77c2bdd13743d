// Package config fills configuration structs from environment variables.
//
// Fields are described with caarlos0/env tags. A .env file in the working
// directory is read once, if present, before the first parse; variables that
// are already set in the process environment win.
//
//	type StoreConfig struct {
//		Backend string        `env:"QUOTA_BACKEND" envDefault:"memory"`
//		Timeout time.Duration `env:"QUOTA_STORE_TIMEOUT" envDefault:"2s"`
//	}
//
//	var cfg StoreConfig
//	if err := config.Load(&cfg); err != nil {
//		return err
//	}
//
// Options add explicit env files or a variable prefix:
//
//	config.MustLoad(&cfg, config.WithEnvFiles("quotad.env"), config.WithPrefix("QUOTAD_"))
package config
