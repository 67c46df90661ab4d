package logroute

import "strings"

const maskedValue = "********"

// keyMaskCore holds the logic for storing and checking sensitive keys.
type keyMaskCore struct {
	sensitiveKeys   map[string]struct{}
	insensitiveKeys map[string]struct{}
}

// addSensitive adds one or more keys for case-sensitive matching.
func (mc *keyMaskCore) addSensitive(keys ...string) {
	if mc.sensitiveKeys == nil {
		mc.sensitiveKeys = make(map[string]struct{})
	}

	for _, k := range keys {
		mc.sensitiveKeys[k] = struct{}{}
	}
}

// addInsensitive adds one or more keys for case-insensitive matching.
// The keys are stored in lower-case for efficient lookup.
func (mc *keyMaskCore) addInsensitive(keys ...string) {
	if mc.insensitiveKeys == nil {
		mc.insensitiveKeys = make(map[string]struct{})
	}

	for _, k := range keys {
		mc.insensitiveKeys[strings.ToLower(k)] = struct{}{}
	}
}

// isMasking checks if the given key should be masked.
// It performs a zero-cost check first if no keys are registered.
// It checks sensitive keys first, then falls back to insensitive keys.
func (mc *keyMaskCore) isMasking(key string) bool {
	if len(mc.sensitiveKeys) == 0 && len(mc.insensitiveKeys) == 0 {
		return false
	}

	if _, ok := mc.sensitiveKeys[key]; ok {
		return true
	}

	if len(mc.insensitiveKeys) > 0 {
		lowerKey := strings.ToLower(key)

		if _, ok := mc.insensitiveKeys[lowerKey]; ok {
			return true
		}
	}

	return false
}

// maskMap returns a copy of m with the values of sensitive keys replaced.
// Nested maps are masked recursively.
func (mc *keyMaskCore) maskMap(m map[string]any) map[string]any {
	masked := make(map[string]any, len(m))

	for k, v := range m {
		if mc.isMasking(k) {
			masked[k] = maskedValue

			continue
		}

		if nested, ok := v.(map[string]any); ok {
			masked[k] = mc.maskMap(nested)

			continue
		}

		masked[k] = v
	}

	return masked
}

// KeyRedactorOption configures the redactor built by NewKeyRedactor.
type KeyRedactorOption func(*keyMaskCore)

// WithSensitiveKeys registers keys whose values are masked, matched
// case-sensitively.
func WithSensitiveKeys(keys ...string) KeyRedactorOption {
	return func(mc *keyMaskCore) {
		mc.addSensitive(keys...)
	}
}

// WithInsensitiveKeys registers keys whose values are masked, matched
// case-insensitively.
func WithInsensitiveKeys(keys ...string) KeyRedactorOption {
	return func(mc *keyMaskCore) {
		mc.addInsensitive(keys...)
	}
}

// NewKeyRedactor builds a ready-made Redactor that masks the values of
// sensitive keys inside map-shaped arguments. Non-map arguments pass
// through untouched. Install it with SetRedactor or WithRedactor:
//
//	p.SetRedactor(logroute.NewKeyRedactor(
//		logroute.WithInsensitiveKeys("password", "token"),
//	))
func NewKeyRedactor(opts ...KeyRedactorOption) Redactor {
	core := &keyMaskCore{}

	for _, opt := range opts {
		opt(core)
	}

	return func(args []any, _ RedactContext) []any {
		for i, arg := range args {
			if m, ok := arg.(map[string]any); ok {
				args[i] = core.maskMap(m)
			}
		}

		return args
	}
}
