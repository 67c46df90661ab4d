package logroute

import "math"

// LevelRule overrides the level threshold for namespaces matching Pattern.
// Level is a level name such as "debug"; rules naming an unknown level are
// dropped when the table is installed.
type LevelRule struct {
	Pattern string
	Level   string
}

// SampleRule applies a sampling rate to namespaces matching Pattern.
// Rates are clamped into [0, 1] when the table is installed.
type SampleRule struct {
	Pattern string
	Rate    float64
}

// filterConfig holds the routing rule tables. All tables are ordered and
// first-match-wins; the order rules were given in is preserved.
type filterConfig struct {
	globalLevel  logLevel
	includeRules []patternRule[struct{}]
	excludeRules []patternRule[struct{}]
	levelRules   []patternRule[levelWeight]
	sampleRules  []patternRule[float64]
}

func newFilterConfig() filterConfig {
	includes, excludes := parseNamespaceSpec("")

	return filterConfig{
		globalLevel:  LevelTrace,
		includeRules: includes,
		excludeRules: excludes,
	}
}

// effectiveLevelWeight resolves the level threshold for ns: the first
// matching level rule wins, otherwise the global threshold applies.
func (c *filterConfig) effectiveLevelWeight(ns string) levelWeight {
	for _, rule := range c.levelRules {
		if rule.match(ns) {
			return rule.value
		}
	}

	return levelMap[c.globalLevel]
}

// sampleRate resolves the sampling rate for ns from the first matching
// sample rule. ok is false when no rule matches, meaning no draw is consumed.
func (c *filterConfig) sampleRate(ns string) (rate float64, ok bool) {
	for _, rule := range c.sampleRules {
		if rule.match(ns) {
			return rule.value, true
		}
	}

	return 0, false
}

func (c *filterConfig) namespaceEnabled(ns string) bool {
	return namespaceEnabled(ns, c.includeRules, c.excludeRules)
}

// compileLevelRules compiles a level override table. Rules naming an
// unknown level are silently dropped rather than reported.
func compileLevelRules(rules []LevelRule) []patternRule[levelWeight] {
	compiled := make([]patternRule[levelWeight], 0, len(rules))

	for _, r := range rules {
		level, err := ParseLevel(r.Level)
		if err != nil {
			continue
		}

		compiled = append(compiled, patternRule[levelWeight]{
			token: r.Pattern,
			match: compilePattern(r.Pattern),
			value: levelMap[level],
		})
	}

	return compiled
}

// compileSampleRules compiles a sampling table. Rates outside [0, 1] are
// clamped; a NaN rate drops the rule.
func compileSampleRules(rules []SampleRule) []patternRule[float64] {
	compiled := make([]patternRule[float64], 0, len(rules))

	for _, r := range rules {
		if math.IsNaN(r.Rate) {
			continue
		}

		compiled = append(compiled, patternRule[float64]{
			token: r.Pattern,
			match: compilePattern(r.Pattern),
			value: math.Max(0, math.Min(1, r.Rate)),
		})
	}

	return compiled
}
