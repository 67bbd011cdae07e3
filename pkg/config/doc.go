// Package config loads typed configuration structs from environment variables.
//
// Structs describe their variables with `env` and `envDefault` tags understood by
// github.com/caarlos0/env/v11. A `.env` file in the working directory is applied
// once per process through github.com/joho/godotenv before the first parse.
//
// Load caches one parsed copy per struct type, so components can call it from
// their constructors without re-reading the environment. Parse bypasses the
// cache and Reset clears it, which keeps tests that use t.Setenv independent.
//
//	type ServerConfig struct {
//		Env  string `env:"APP_ENV" envDefault:"development"`
//		Name string `env:"APP_NAME" envDefault:"builder"`
//	}
//
//	var cfg ServerConfig
//	config.MustLoad(&cfg)
package config
