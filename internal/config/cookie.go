package config

// CookieSecure returns whether cookies should use the Secure flag.
// Defaults to false for development, true for production.
func (c *Config) CookieSecure() bool {
	if val := c.Security.CookieSecure; val != "" {
		return val == "true"
	}
	return c.IsProduction()
}
