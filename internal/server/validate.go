package server

import (
	"fmt"
	"reflect"
	"regexp"
	"sort"
	"strings"

	"github.com/sockbridge/sockbridge/internal/config"
	"github.com/sockbridge/sockbridge/internal/protocol"
)

// ValidateRequest schema-checks a request against the command whitelist.
// The reserved introspection and ping commands always validate. The first
// failing parameter determines the rejection reason.
func ValidateRequest(req *protocol.Request, cfg *config.ServerConfig) (bool, string) {
	if req.Command == "" {
		return false, "Missing 'command' field"
	}

	if req.Command == protocol.CommandIntrospect || req.Command == protocol.CommandPing {
		return true, ""
	}

	spec, ok := cfg.Commands[req.Command]
	if !ok {
		names := make([]string, 0, len(cfg.Commands))
		for name := range cfg.Commands {
			names = append(names, name)
		}
		sort.Strings(names)
		return false, fmt.Sprintf("Unknown command '%s'. Available commands: %s", req.Command, strings.Join(names, ", "))
	}

	paramNames := make([]string, 0, len(spec.Parameters))
	for name := range spec.Parameters {
		paramNames = append(paramNames, name)
	}
	sort.Strings(paramNames)

	for _, name := range paramNames {
		pspec := spec.Parameters[name]
		value, present := req.Parameters[name]
		if !present || value == nil {
			if pspec.Required {
				return false, "Missing required parameter: " + name
			}
			continue
		}
		if !validParameterValue(value, pspec) {
			return false, fmt.Sprintf("Invalid value for parameter '%s'", name)
		}
	}

	return true, ""
}

// validParameterValue checks a value against its spec: exact type match (no
// coercion), then pattern (full match) and max_length for strings, then enum
// membership.
func validParameterValue(value any, spec config.ParameterSpec) bool {
	switch spec.EffectiveType() {
	case config.TypeString:
		s, ok := value.(string)
		if !ok {
			return false
		}
		if spec.Pattern != "" && !fullMatch(spec.Pattern, s) {
			return false
		}
		if spec.MaxLength > 0 && len(s) > spec.MaxLength {
			return false
		}
	case config.TypeNumber:
		switch value.(type) {
		case float64, int, int64:
		default:
			return false
		}
	case config.TypeBoolean:
		if _, ok := value.(bool); !ok {
			return false
		}
	}

	if len(spec.Enum) > 0 && !enumContains(spec.Enum, value) {
		return false
	}
	return true
}

func fullMatch(pattern, s string) bool {
	re, err := regexp.Compile(`\A(?:` + pattern + `)\z`)
	if err != nil {
		return false // config validation rejects bad patterns at startup
	}
	return re.MatchString(s)
}

// enumContains compares numbers by value so a TOML int64 enum entry matches
// a JSON float64 request value.
func enumContains(enum []any, value any) bool {
	for _, allowed := range enum {
		if reflect.DeepEqual(allowed, value) {
			return true
		}
		if af, aok := asFloat(allowed); aok {
			if vf, vok := asFloat(value); vok && af == vf {
				return true
			}
		}
	}
	return false
}

func asFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case int:
		return float64(x), true
	case int64:
		return float64(x), true
	}
	return 0, false
}
