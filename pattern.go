package logroute

import (
	"regexp"
	"strings"
	"unicode"
)

// DefaultNamespace is the namespace assigned to loggers created without one.
const DefaultNamespace = "global"

// namespacePredicate reports whether a namespace matches a compiled pattern token.
type namespacePredicate func(ns string) bool

// patternRule pairs a compiled pattern token with the value it selects.
// Rule tables are ordered sequences; the first matching rule wins.
type patternRule[V any] struct {
	token string
	match namespacePredicate
	value V
}

// compilePattern compiles a wildcard token into a predicate over namespace
// strings. A `*` matches any run of zero or more characters, every other
// character is literal, and the whole namespace must match the whole token.
// Any input is a valid token; compilation never fails.
func compilePattern(token string) namespacePredicate {
	expr := "^" + strings.ReplaceAll(regexp.QuoteMeta(token), `\*`, ".*") + "$"

	return regexp.MustCompile(expr).MatchString
}

// parseNamespaceSpec splits a spec string on commas and whitespace and
// compiles each token. A token prefixed with `-` becomes an exclude rule.
// When no include tokens remain, includes default to a single catch-all,
// so a blank spec means everything is enabled.
func parseNamespaceSpec(spec string) (includes, excludes []patternRule[struct{}]) {
	tokens := strings.FieldsFunc(spec, func(r rune) bool {
		return r == ',' || unicode.IsSpace(r)
	})

	for _, token := range tokens {
		if rest, ok := strings.CutPrefix(token, "-"); ok {
			excludes = append(excludes, patternRule[struct{}]{token: rest, match: compilePattern(rest)})

			continue
		}

		includes = append(includes, patternRule[struct{}]{token: token, match: compilePattern(token)})
	}

	if len(includes) == 0 {
		includes = []patternRule[struct{}]{{token: "*", match: compilePattern("*")}}
	}

	return includes, excludes
}

// namespaceEnabled reports whether ns passes the include/exclude lists.
// A matching exclude wins over every include.
func namespaceEnabled(ns string, includes, excludes []patternRule[struct{}]) bool {
	for _, rule := range excludes {
		if rule.match(ns) {
			return false
		}
	}

	for _, rule := range includes {
		if rule.match(ns) {
			return true
		}
	}

	return false
}
