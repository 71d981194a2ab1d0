// Package log provides the application's slog setup with automatic masking
// of secrets.
//
// Downloads may carry extra request headers from the configuration file,
// such as an Authorization token for a private mirror, and dataset URLs may
// embed access keys in their query string. SecureHandler masks those values
// before any log line is written, in verbose mode too:
//   - header and credential keys (Authorization, Cookie, X-Api-Key, password, token)
//   - credential-shaped values (Bearer/Basic schemes, JWTs, AWS key IDs)
//   - passwords and secret query parameters inside URLs
//
// Usage:
//
//	logger := log.NewSecureLogger(os.Stderr, verbose)
//	logger.Debug("requesting", "url", u, log.Headers(cfg.Headers))
package log
