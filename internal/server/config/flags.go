package config

import (
	"flag"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/flagx"
)

// parseFlags populates selected server Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string     HTTP bind address (e.g., ":8080")
//	-d string     PostgreSQL DSN
//	-s string     JWT HMAC secret key
//	-t duration   access token validity (e.g., "15m", "90s")
//	-r duration   refresh token validity
//	-b int        bcrypt cost
//	-l int        verification code length
//	-e int        verification code validity, milliseconds
//	-k string     Redis address for attempt limiting
//	-v string     log level (debug, info, warn, error)
//
// Arguments are filtered with flagx.FilterArgs first, so flags owned by
// other components are ignored. Validity settings are only touched when
// their flag is given. Parse errors panic.
func parseFlags(config *Config, osArgs []string) {
	args := flagx.FilterArgs(osArgs, []string{"-a", "-d", "-s", "-t", "-r", "-b", "-l", "-e", "-k", "-v"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.EndpointAddrHTTP, "a", config.EndpointAddrHTTP, "address and port to run server")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.SecretKey, "s", config.SecretKey, "secret key")

	accessTTL := fs.Duration("t", config.AccessTokenValidityDuration, "access token validity")
	refreshTTL := fs.Duration("r", config.RefreshTokenValidityDuration, "refresh token validity")

	fs.IntVar(&config.BcryptCost, "b", config.BcryptCost, "bcrypt cost")
	fs.IntVar(&config.CodeLength, "l", config.CodeLength, "verification code length")
	codeTTLMillis := fs.Int64("e", config.CodeValidityDuration.Milliseconds(), "verification code validity (in milliseconds)")

	fs.StringVar(&config.RedisAddr, "k", config.RedisAddr, "redis address")
	fs.StringVar(&config.LogLevel, "v", config.LogLevel, "log level")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "t":
			config.AccessTokenValidityDuration = *accessTTL
		case "r":
			config.RefreshTokenValidityDuration = *refreshTTL
		case "e":
			config.CodeValidityDuration = time.Duration(*codeTTLMillis) * time.Millisecond
		}
	})
}
