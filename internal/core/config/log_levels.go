package config

import (
	"reflect"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/cast"
)

// LogLevels represents hierarchical log level configuration.
// Keys are module paths (e.g., "core.scheduler", "epa") and values are log levels.
type LogLevels map[string]string

// LogLevelsDecodeHook returns a DecodeHookFunc that skips decoding for LogLevels.
// This is needed because viper.AllSettings() converts dotted keys to nested maps,
// which causes decoding errors. LogLevels are populated separately via
// FlattenLogLevels, which restores the flat dotted-key structure.
func LogLevelsDecodeHook() mapstructure.DecodeHookFunc {
	return func(_ reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
		if to != reflect.TypeOf(LogLevels{}) {
			return data, nil
		}
		return make(LogLevels), nil
	}
}

// FlattenLogLevels turns viper's nested representation of [log.levels] back
// into flat dotted keys: {"core": {"runner": "debug"}} -> {"core.runner": "debug"}.
func FlattenLogLevels(nested map[string]interface{}) LogLevels {
	levels := make(LogLevels)
	flattenInto(levels, "", nested)
	if len(levels) == 0 {
		return nil
	}
	return levels
}

func flattenInto(out LogLevels, prefix string, value interface{}) {
	switch v := value.(type) {
	case map[string]interface{}:
		for key, child := range v {
			childKey := key
			if prefix != "" {
				childKey = prefix + "." + key
			}
			flattenInto(out, childKey, child)
		}
	default:
		if prefix != "" {
			out[prefix] = cast.ToString(v)
		}
	}
}
