package mailer

import (
	"fmt"
	"regexp"
	"strconv"
)

// placeholderPattern matches {{identifier}} and {{path.to.field}}. Only word
// characters and dots are recognised inside the braces.
var placeholderPattern = regexp.MustCompile(`\{\{([\w]+(?:\.[\w]+)*)\}\}`)

// Render substitutes {{path.to.field}} placeholders in template using data.
//
// A placeholder whose path cannot be resolved, or resolves to nil, is left
// in the output verbatim so that missing data is visible in a preview rather
// than silently dropped. Render never fails and does not mutate data.
func Render(template string, data map[string]interface{}) string {
	return placeholderPattern.ReplaceAllStringFunc(template, func(match string) string {
		path := match[2 : len(match)-2]

		value, ok := resolvePath(data, path)
		if !ok || value == nil {
			return match
		}

		return Stringify(value)
	})
}

// resolvePath descends key-by-key through nested maps. Resolution fails as
// soon as the current value is not map-like or the key is absent.
func resolvePath(data map[string]interface{}, path string) (interface{}, bool) {
	var current interface{} = data

	start := 0
	for start <= len(path) {
		end := start
		for end < len(path) && path[end] != '.' {
			end++
		}
		key := path[start:end]

		switch node := current.(type) {
		case map[string]interface{}:
			value, ok := node[key]
			if !ok {
				return nil, false
			}
			current = value

		case map[string]string:
			value, ok := node[key]
			if !ok {
				return nil, false
			}
			current = value

		default:
			return nil, false
		}

		start = end + 1
	}

	return current, true
}

// Stringify renders a document value the way it should appear in an email:
// json-decoded whole numbers print without a trailing fraction.
func Stringify(value interface{}) string {
	switch v := value.(type) {
	case string:
		return v

	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)

	case float32:
		return strconv.FormatFloat(float64(v), 'f', -1, 32)

	default:
		return fmt.Sprintf("%v", v)
	}
}
