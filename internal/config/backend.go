package config

import (
	"fmt"
	"strconv"
)

// Backend persists the keys set with "pursuit config set". The macOS
// backend is the user defaults domain; elsewhere it is a JSON file under
// the XDG config directory. Values are stored typed where the platform
// allows and read back as strings for parseValue.
type Backend interface {
	Lookup(key string) (raw string, ok bool, err error)
	Store(key string, v any) error
	Unset(key string) error
}

// formatValue renders v the way parseValue reads it back.
func formatValue(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case int:
		return strconv.Itoa(x)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(x)
	}
	return fmt.Sprint(v)
}
