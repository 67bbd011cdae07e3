package auth

import "time"

type Config struct {
	Issuer            string        `env:"CLERK_ISSUER"` // Frontend API URL, e.g. https://clerk.example.com
	JWKSURL           string        `env:"CLERK_JWKS_URL"`
	AuthorizedParties []string      `env:"CLERK_AUTHORIZED_PARTIES" envSeparator:","`
	Leeway            time.Duration `env:"CLERK_JWT_LEEWAY" envDefault:"5s"`

	// Disabled skips verification in development and acts as DevUserID.
	Disabled  bool   `env:"AUTH_DISABLED" envDefault:"false"`
	DevUserID string `env:"AUTH_DEV_USER_ID" envDefault:"user_dev"`
}
