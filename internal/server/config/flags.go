package config

import (
	"flag"
	"os"
	"time"

	"github.com/basketlog/auth-service/internal/flagx"
)

// parseFlags populates selected Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string   HTTP bind address (e.g., ":8080")
//	-d string   PostgreSQL DSN
//	-q string   Redis address
//	-k string   path of the signing-key file
//	-t int      access token validity, minutes
//	-r int      refresh token validity, minutes
//	-v int      verification code validity, minutes
//	-b string   external base URL for verification links
//
// The function first filters os.Args to only the flags it recognizes using
// flagx.FilterArgs, avoiding collisions with other components. Duration flags
// are accepted as integers in minutes.
func parseFlags(config *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-a", "-d", "-q", "-k", "-t", "-r", "-v", "-b"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.EndpointAddrHTTP, "a", config.EndpointAddrHTTP, "address and port to run server")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.RedisAddr, "q", config.RedisAddr, "redis address")
	fs.StringVar(&config.KeysFile, "k", config.KeysFile, "signing key file path")
	fs.StringVar(&config.ServiceBaseURL, "b", config.ServiceBaseURL, "external base URL")

	accessTokenValidityDuration := fs.Int("t", int(config.AccessTokenValidityDuration.Minutes()), "access_token_validity_duration (in minutes)")
	refreshTokenValidityDuration := fs.Int("r", int(config.RefreshTokenValidityDuration.Minutes()), "refresh_token_validity_duration (in minutes)")
	verificationCodeValidityDuration := fs.Int("v", int(config.VerificationCodeValidityDuration.Minutes()), "verification_code_validity_duration (in minutes)")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	config.AccessTokenValidityDuration = time.Duration(*accessTokenValidityDuration) * time.Minute
	config.RefreshTokenValidityDuration = time.Duration(*refreshTokenValidityDuration) * time.Minute
	config.VerificationCodeValidityDuration = time.Duration(*verificationCodeValidityDuration) * time.Minute
}
