package db

import (
	"net/url"
	"regexp"
	"strings"
)

var dsnKeyRegex = regexp.MustCompile(`(?i)\b(host|user|password|dbname|port|sslmode)=`)

// NormalizeDSN accepts either a URL style DSN (postgres://...) or a lib/pq
// key=value list, trims stray quotes and whitespace, and defaults sslmode to
// disable for the key=value form. Anything else passes through untouched and
// the driver reports the problem.
func NormalizeDSN(raw string) string {
	s := strings.Trim(strings.TrimSpace(raw), "\"'")
	if s == "" {
		return s
	}
	lower := strings.ToLower(s)
	if strings.HasPrefix(lower, "postgres://") || strings.HasPrefix(lower, "postgresql://") {
		return s
	}
	if !dsnKeyRegex.MatchString(s) {
		return s
	}
	cleaned := strings.Join(strings.Fields(s), " ")
	if !strings.Contains(strings.ToLower(cleaned), "sslmode=") {
		cleaned += " sslmode=disable"
	}
	return cleaned
}

// urlDSN converts a key=value DSN to URL form. golang-migrate only accepts
// the URL form; gorm takes either. URL input comes back unchanged.
func urlDSN(dsn string) string {
	if dsn == "" || strings.HasPrefix(strings.ToLower(dsn), "postgres") && strings.Contains(dsn, "://") {
		return dsn
	}
	kv := map[string]string{}
	for _, part := range strings.Fields(dsn) {
		if k, v, ok := strings.Cut(part, "="); ok {
			kv[strings.ToLower(k)] = v
		}
	}
	if kv["host"] == "" || kv["user"] == "" || kv["dbname"] == "" {
		return dsn
	}
	u := &url.URL{Scheme: "postgres", Host: kv["host"], Path: "/" + kv["dbname"]}
	if kv["port"] != "" {
		u.Host += ":" + kv["port"]
	}
	if kv["password"] != "" {
		u.User = url.UserPassword(kv["user"], kv["password"])
	} else {
		u.User = url.User(kv["user"])
	}
	if kv["sslmode"] != "" {
		u.RawQuery = url.Values{"sslmode": {kv["sslmode"]}}.Encode()
	}
	return u.String()
}

// maskDSN hides credentials for log output, covering both DSN forms.
func maskDSN(dsn string) string {
	masked := regexp.MustCompile(`(password=)(\S+)`).ReplaceAllString(dsn, `${1}***`)
	return regexp.MustCompile(`(//[^:/@]+:)[^@]+(@)`).ReplaceAllString(masked, `${1}***${2}`)
}
