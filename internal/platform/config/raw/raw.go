// Package raw reads environment variables before the logger exists.
// Nothing here may import the logger or config packages
package raw

import (
	"os"
	"strconv"
	"strings"
)

// Conf reads variables under a fixed name prefix, e.g. "LOG_"
type Conf struct {
	prefix string
	lookup func(string) (string, bool)
}

// New returns a Conf over the process environment with no prefix
func New() Conf { return Conf{lookup: os.LookupEnv} }

// FromMap returns a Conf over a fixed set of variables
func FromMap(m map[string]string) Conf {
	return Conf{lookup: func(k string) (string, bool) {
		v, ok := m[k]
		return v, ok
	}}
}

// Prefix nests p under the current prefix
func (c Conf) Prefix(p string) Conf {
	c.prefix += p
	return c
}

func (c Conf) value(key string) string {
	look := c.lookup
	if look == nil {
		look = os.LookupEnv
	}
	v, _ := look(c.prefix + key)
	return strings.TrimSpace(v)
}

// Get returns the trimmed value of key, or def when unset or blank
func (c Conf) Get(key, def string) string {
	if v := c.value(key); v != "" {
		return v
	}
	return def
}

// GetBool accepts 1/true/yes and 0/false/no in any case; anything else yields def
func (c Conf) GetBool(key string, def bool) bool {
	switch strings.ToLower(c.value(key)) {
	case "1", "true", "yes":
		return true
	case "0", "false", "no":
		return false
	}
	return def
}

// GetInt parses a non-negative integer; malformed or negative values yield def
func (c Conf) GetInt(key string, def int) int {
	n, err := strconv.Atoi(c.value(key))
	if err != nil || n < 0 {
		return def
	}
	return n
}
