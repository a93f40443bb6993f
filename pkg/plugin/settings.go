package plugin

import (
	"encoding/json"
	"math"
	"reflect"
)

// DefaultHMRPort is the HMR port used until a host config overrides it.
const DefaultHMRPort = 12321

// Settings is the plugin-wide mutable state. It is written by Config and
// read by every Load; the host guarantees configuration completes before
// loads begin, so no locking is done.
type Settings struct {
	HMRPort int
}

// NewSettings returns Settings holding the defaults.
func NewSettings() *Settings {
	return &Settings{HMRPort: DefaultHMRPort}
}

// HostConfig is the part of the host build tool's configuration the plugin
// reads.
type HostConfig struct {
	// Root is the project root directory.
	Root string

	// DevOptions holds the dev-server options.
	DevOptions DevOptions
}

// DevOptions holds dev-server options as declared by the host. HMRPort is
// untyped because hosts pass through whatever the user wrote.
type DevOptions struct {
	HMRPort any
}

// Apply overwrites the stored port when host declares a usable one and
// reports whether it did. Non-numeric, fractional and out-of-range values
// are ignored and the previous port is kept.
func (s *Settings) Apply(host HostConfig) bool {
	port, ok := parsePort(host.DevOptions.HMRPort)
	if !ok {
		return false
	}
	s.HMRPort = port
	return true
}

func parsePort(v any) (int, bool) {
	var n int64
	switch p := v.(type) {
	case nil, string, bool:
		return 0, false
	case json.Number:
		i, err := p.Int64()
		if err != nil {
			return 0, false
		}
		n = i
	default:
		rv := reflect.ValueOf(v)
		switch rv.Kind() {
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
			n = rv.Int()
		case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
			if rv.Uint() > math.MaxUint16 {
				return 0, false
			}
			n = int64(rv.Uint())
		case reflect.Float32, reflect.Float64:
			f := rv.Float()
			if f != math.Trunc(f) || math.IsInf(f, 0) || f > math.MaxUint16 || f < 0 {
				return 0, false
			}
			n = int64(f)
		default:
			return 0, false
		}
	}

	if n < 1 || n > math.MaxUint16 {
		return 0, false
	}
	return int(n), true
}
