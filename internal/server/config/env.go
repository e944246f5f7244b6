package config

import "os"

// parseEnv overlays settings that deployments usually inject as secrets.
// Unset variables leave the current value untouched.
func parseEnv(config *Config) {
	vars := map[string]*string{
		"DATABASE_DSN":  &config.DatabaseDSN,
		"JWT_SECRET":    &config.SecretKey,
		"APP_NAME":      &config.AppName,
		"MAIL_FROM":     &config.MailFrom,
		"SMTP_HOST":     &config.SMTPHost,
		"SMTP_USER":     &config.SMTPUser,
		"SMTP_PASSWORD": &config.SMTPPassword,
		"REDIS_ADDR":    &config.RedisAddr,
	}
	for name, dst := range vars {
		if v, ok := os.LookupEnv(name); ok && v != "" {
			*dst = v
		}
	}
}
