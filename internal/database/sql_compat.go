package database

import (
	"fmt"
	"os"
	"regexp"
	"strings"
	"sync"
)

var (
	driverMu     sync.RWMutex
	activeDriver string
)

// SetDriver records the driver selected at connect time. It is also called
// by tests to pin placeholder behavior.
func SetDriver(driver string) {
	driverMu.Lock()
	activeDriver = strings.ToLower(driver)
	driverMu.Unlock()
}

// Driver returns the active database driver. Falls back to the DB_DRIVER
// environment variable, then sqlite3.
func Driver() string {
	driverMu.RLock()
	d := activeDriver
	driverMu.RUnlock()
	if d != "" {
		return d
	}
	if env := os.Getenv("DB_DRIVER"); env != "" {
		return strings.ToLower(env)
	}
	return "sqlite3"
}

// IsPostgreSQL returns true when the active driver is PostgreSQL.
func IsPostgreSQL() bool {
	return Driver() == "postgres"
}

// ReadColumn quotes the unqualified "read" column for the active driver.
// READ is a reserved word in MySQL when it appears without a table
// qualifier.
func ReadColumn() string {
	if Driver() == "mysql" {
		return "`read`"
	}
	return `"read"`
}

var dollarPlaceholder = regexp.MustCompile(`\$\d+`)

// ConvertPlaceholders rewrites ? placeholders for the active driver.
// All queries in the codebase use ? for portability; PostgreSQL gets
// $1, $2, ... while MySQL and SQLite take ? as-is. Queries already
// containing $N placeholders are rejected loudly.
func ConvertPlaceholders(query string) string {
	if dollarPlaceholder.MatchString(query) {
		panic(fmt.Sprintf("ConvertPlaceholders: $N placeholders are not allowed, use ?\nQuery: %s", query))
	}

	if !IsPostgreSQL() {
		return query
	}

	var b strings.Builder
	n := 1
	for _, c := range query {
		if c == '?' {
			fmt.Fprintf(&b, "$%d", n)
			n++
		} else {
			b.WriteRune(c)
		}
	}
	return b.String()
}
