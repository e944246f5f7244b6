package config

import (
	"encoding/json"
	"os"

	"github.com/dmitrijs2005/gophauth/internal/flagx"
	"github.com/dmitrijs2005/gophauth/internal/timex"
)

// JsonConfig is the on-disk shape of the configuration file. Durations use
// timex.Duration so both "1h" and integer nanoseconds are accepted.
type JsonConfig struct {
	EndpointAddrHTTP             string         `json:"endpoint_addr_http"`
	DatabaseDSN                  string         `json:"database_dsn"`
	SecretKey                    string         `json:"secret_key"`
	AccessTokenValidityDuration  timex.Duration `json:"access_token_validity_duration"`
	RefreshTokenValidityDuration timex.Duration `json:"refresh_token_validity_duration"`
	BcryptCost                   int            `json:"bcrypt_cost"`
	CodeLength                   int            `json:"code_length"`
	CodeValidityDuration         timex.Duration `json:"code_validity_duration"`
	AppName                      string         `json:"app_name"`
	MailFrom                     string         `json:"mail_from"`
	MailFromName                 string         `json:"mail_from_name"`
	SMTPHost                     string         `json:"smtp_host"`
	SMTPUser                     string         `json:"smtp_user"`
	SMTPPassword                 string         `json:"smtp_password"`
	MailWorkers                  int            `json:"mail_workers"`
	MailQueueSize                int            `json:"mail_queue_size"`
	RedisAddr                    string         `json:"redis_addr"`
	AttemptLimit                 int            `json:"attempt_limit"`
	AttemptWindow                timex.Duration `json:"attempt_window"`
	LogLevel                     string         `json:"log_level"`
}

func toJson(c *Config) *JsonConfig {
	return &JsonConfig{
		EndpointAddrHTTP:             c.EndpointAddrHTTP,
		DatabaseDSN:                  c.DatabaseDSN,
		SecretKey:                    c.SecretKey,
		AccessTokenValidityDuration:  timex.Duration{Duration: c.AccessTokenValidityDuration},
		RefreshTokenValidityDuration: timex.Duration{Duration: c.RefreshTokenValidityDuration},
		BcryptCost:                   c.BcryptCost,
		CodeLength:                   c.CodeLength,
		CodeValidityDuration:         timex.Duration{Duration: c.CodeValidityDuration},
		AppName:                      c.AppName,
		MailFrom:                     c.MailFrom,
		MailFromName:                 c.MailFromName,
		SMTPHost:                     c.SMTPHost,
		SMTPUser:                     c.SMTPUser,
		SMTPPassword:                 c.SMTPPassword,
		MailWorkers:                  c.MailWorkers,
		MailQueueSize:                c.MailQueueSize,
		RedisAddr:                    c.RedisAddr,
		AttemptLimit:                 c.AttemptLimit,
		AttemptWindow:                timex.Duration{Duration: c.AttemptWindow},
		LogLevel:                     c.LogLevel,
	}
}

func (j *JsonConfig) apply(c *Config) {
	c.EndpointAddrHTTP = j.EndpointAddrHTTP
	c.DatabaseDSN = j.DatabaseDSN
	c.SecretKey = j.SecretKey
	c.AccessTokenValidityDuration = j.AccessTokenValidityDuration.Duration
	c.RefreshTokenValidityDuration = j.RefreshTokenValidityDuration.Duration
	c.BcryptCost = j.BcryptCost
	c.CodeLength = j.CodeLength
	c.CodeValidityDuration = j.CodeValidityDuration.Duration
	c.AppName = j.AppName
	c.MailFrom = j.MailFrom
	c.MailFromName = j.MailFromName
	c.SMTPHost = j.SMTPHost
	c.SMTPUser = j.SMTPUser
	c.SMTPPassword = j.SMTPPassword
	c.MailWorkers = j.MailWorkers
	c.MailQueueSize = j.MailQueueSize
	c.RedisAddr = j.RedisAddr
	c.AttemptLimit = j.AttemptLimit
	c.AttemptWindow = j.AttemptWindow.Duration
	c.LogLevel = j.LogLevel
}

// parseJson overlays values from the JSON file named by -c/-config (or the
// CONFIG environment variable). Keys missing from the file keep their
// current value. An unreadable file or invalid JSON panics.
func parseJson(config *Config, args []string) {
	path := flagx.ConfigPath(args)
	if path == "" {
		return
	}
	if err := applyJSONFile(config, path); err != nil {
		panic(err)
	}
}

func applyJSONFile(config *Config, path string) error {
	file, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	c := toJson(config)
	if err := json.Unmarshal(file, c); err != nil {
		return err
	}
	c.apply(config)
	return nil
}
