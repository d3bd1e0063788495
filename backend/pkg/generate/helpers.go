package generate

import (
	"errors"
	"regexp"
	"strings"
)

var paramNameRe = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_]*$`)

// SanitizePath collapses repeated slashes and drops a trailing slash.
func SanitizePath(path string) string {
	for strings.Contains(path, "//") {
		path = strings.ReplaceAll(path, "//", "/")
	}

	path = strings.TrimSuffix(path, "/")
	if path == "" {
		return "/"
	}

	return path
}

// ExtractParamName returns the names of the {param} placeholders in path.
// Chi regexp matchers such as {id:[0-9]+} are reduced to the name.
func ExtractParamName(path string) ([]string, error) {
	if strings.Count(path, "{") != strings.Count(path, "}") {
		return nil, errors.New("mismatched number of '{' and '}' in path")
	}

	names := []string{}
	rest := path

	for {
		start := strings.IndexByte(rest, '{')
		if start < 0 {
			return names, nil
		}

		end := strings.IndexByte(rest[start:], '}')
		if end < 0 {
			return nil, errors.New("unterminated parameter in path")
		}

		name, _, _ := strings.Cut(rest[start+1:start+end], ":")
		if name != "" {
			names = append(names, name)
		}

		rest = rest[start+end+1:]
	}
}

// IsValidParameterName reports whether name starts with an ASCII letter and
// continues with letters, digits or underscores.
func IsValidParameterName(name string) bool {
	return paramNameRe.MatchString(name)
}
