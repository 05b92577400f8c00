package chain

import (
	"encoding/json"
	"fmt"
	"reflect"
	"regexp"
	"strings"
)

var placeholderRe = regexp.MustCompile(`\$\{([^}]+)\}`)

// Resolve replaces every ${name} in text with the string form of the result named name
// visible in c. Placeholders without a matching result are left as they are.
func Resolve(text string, c Context) string {
	if !strings.Contains(text, "${") {
		return text
	}
	return ResolveMap(text, Stringify(c))
}

// ResolveMap is Resolve over a plain name→text mapping. Replacement text is inserted
// literally, so values holding '$' or '\' are safe.
func ResolveMap(text string, vars map[string]string) string {
	return placeholderRe.ReplaceAllStringFunc(text, func(m string) string {
		name := m[2 : len(m)-1]
		if v, ok := vars[name]; ok {
			return v
		}
		return m
	})
}

// Stringify renders every visible result of c the way templates see it.
func Stringify(c Context) map[string]string {
	visible := c.visibleByName()
	out := make(map[string]string, len(visible))
	for name, v := range visible {
		out[name] = toText(v)
	}
	return out
}

func toText(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case []byte:
		return string(t)
	case fmt.Stringer:
		return t.String()
	case error:
		return t.Error()
	case []string:
		return strings.Join(t, "\n")
	}
	switch reflect.ValueOf(v).Kind() {
	case reflect.Map, reflect.Slice, reflect.Array, reflect.Struct, reflect.Pointer:
		b, err := json.Marshal(v)
		if err == nil {
			return string(b)
		}
	}
	return fmt.Sprint(v)
}
