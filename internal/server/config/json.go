package config

import (
	"encoding/json"
	"os"
	"time"

	"github.com/basketlog/auth-service/internal/flagx"
	"github.com/basketlog/auth-service/internal/timex"
)

// JsonConfig is an intermediate DTO used only for reading JSON configuration
// files. It uses timex.Duration for interval fields, which allows parsing
// both string values such as "15m" and integer nanoseconds. After
// unmarshalling, its fields are copied into the runtime Config struct.
type JsonConfig struct {
	EndpointAddrHTTP                 string         `json:"endpoint_addr_http"`
	DatabaseDSN                      string         `json:"database_dsn"`
	RedisAddr                        string         `json:"redis_addr"`
	KeysFile                         string         `json:"keys_file"`
	AccessTokenValidityDuration      timex.Duration `json:"access_token_validity_duration"`
	RefreshTokenValidityDuration     timex.Duration `json:"refresh_token_validity_duration"`
	VerificationCodeValidityDuration timex.Duration `json:"verification_code_validity_duration"`
	SMTPHost                         string         `json:"smtp_host"`
	SMTPPort                         int            `json:"smtp_port"`
	SMTPSender                       string         `json:"smtp_sender"`
	SMTPPassword                     string         `json:"smtp_password"`
	ServiceBaseURL                   string         `json:"service_base_url"`
}

// parseJson loads configuration values from the JSON file given via the
// -c or -config command-line flags into the provided Config. When neither
// flag is set, nothing is loaded. The file being unreadable or containing
// invalid JSON is a startup failure and panics.
func parseJson(config *Config) {
	jsonConfigFile := flagx.JsonConfigFlags()
	if jsonConfigFile == "" {
		return
	}

	c := &JsonConfig{}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}

	if err := json.Unmarshal(file, c); err != nil {
		panic(err)
	}

	config.EndpointAddrHTTP = c.EndpointAddrHTTP
	config.DatabaseDSN = c.DatabaseDSN
	config.RedisAddr = c.RedisAddr
	config.KeysFile = c.KeysFile
	config.AccessTokenValidityDuration = time.Duration(c.AccessTokenValidityDuration.Duration)
	config.RefreshTokenValidityDuration = time.Duration(c.RefreshTokenValidityDuration.Duration)
	config.VerificationCodeValidityDuration = time.Duration(c.VerificationCodeValidityDuration.Duration)
	config.SMTPHost = c.SMTPHost
	config.SMTPPort = c.SMTPPort
	config.SMTPSender = c.SMTPSender
	config.SMTPPassword = c.SMTPPassword
	config.ServiceBaseURL = c.ServiceBaseURL
}
