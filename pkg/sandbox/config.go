package sandbox

import "time"

// Config selects and configures the sandbox vendor.
type Config struct {
	Provider         string        `env:"SANDBOX_PROVIDER"`
	VitePort         int           `env:"SANDBOX_VITE_PORT" envDefault:"5173"`
	TerminateTimeout time.Duration `env:"SANDBOX_TERMINATE_TIMEOUT" envDefault:"30s"`
	E2B              E2BConfig
	Vercel           VercelConfig
}

type E2BConfig struct {
	APIKey   string        `env:"E2B_API_KEY"`
	APIURL   string        `env:"E2B_API_URL" envDefault:"https://api.e2b.app"`
	Domain   string        `env:"E2B_DOMAIN" envDefault:"e2b.app"`
	EnvdURL  string        `env:"E2B_ENVD_URL"` // overrides https://49983-<id>.<domain>
	Template string        `env:"E2B_TEMPLATE" envDefault:"base"`
	Timeout  time.Duration `env:"E2B_SANDBOX_TIMEOUT" envDefault:"15m"`
}

type VercelConfig struct {
	OIDCToken string        `env:"VERCEL_OIDC_TOKEN"`
	Token     string        `env:"VERCEL_TOKEN"`
	TeamID    string        `env:"VERCEL_TEAM_ID"`
	ProjectID string        `env:"VERCEL_PROJECT_ID"`
	APIURL    string        `env:"VERCEL_API_URL" envDefault:"https://api.vercel.com"`
	Runtime   string        `env:"VERCEL_SANDBOX_RUNTIME" envDefault:"node22"`
	VCPUs     int           `env:"VERCEL_SANDBOX_VCPUS" envDefault:"2"`
	Timeout   time.Duration `env:"VERCEL_SANDBOX_TIMEOUT" envDefault:"15m"`
}

// check returns a *ConfigError naming the first missing credential.
func (c Config) check(kind Kind) error {
	switch kind {
	case KindE2B:
		if c.E2B.APIKey == "" {
			return &ConfigError{Provider: kind, Variable: "E2B_API_KEY"}
		}
		return nil
	case KindVercel:
		v := c.Vercel
		if v.OIDCToken != "" {
			return nil
		}
		switch {
		case v.Token == "":
			return &ConfigError{Provider: kind, Variable: "VERCEL_TOKEN"}
		case v.TeamID == "":
			return &ConfigError{Provider: kind, Variable: "VERCEL_TEAM_ID"}
		case v.ProjectID == "":
			return &ConfigError{Provider: kind, Variable: "VERCEL_PROJECT_ID"}
		}
		return nil
	}
	return unknownProvider(string(kind))
}
