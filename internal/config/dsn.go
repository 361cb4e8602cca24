package config

import (
	"fmt"
	"net/url"
)

func buildDSN(d DatabaseConfig) string {
	// URL-encode credentials to handle special characters (/, +, =, etc.)
	sslMode := d.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		url.QueryEscape(d.User), url.QueryEscape(d.Password), d.Host, d.Port, d.Name, sslMode)
}
