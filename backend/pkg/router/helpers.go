package router

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"

	"envsensor/backend/pkg/generate"
)

var validParameterIn = []ParameterIn{ParameterInPath, ParameterInQuery, ParameterInHeader}

func validateRouteSpec(spec RouteSpec) error {
	switch {
	case spec.OperationID == "":
		return errors.New("field OperationID required")
	case spec.Summary == "":
		return errors.New("field Summary required")
	case spec.Description == "":
		return errors.New("field Description required")
	case spec.Group == "":
		return errors.New("field Group required")
	case spec.Handler == nil:
		return errors.New("field Handler required")
	case len(spec.Responses) == 0:
		return errors.New("field Responses required")
	}

	return nil
}

// pathParams returns the {name} placeholders of path.
func pathParams(path string) (map[string]struct{}, error) {
	params := map[string]struct{}{}

	for section := range strings.SplitSeq(path, "/") {
		names, err := generate.ExtractParamName(section)
		if err != nil {
			return nil, fmt.Errorf("invalid path %s: %w", path, err)
		}

		for _, name := range names {
			if !generate.IsValidParameterName(name) {
				return nil, fmt.Errorf("invalid parameter name %s in path %s", name, path)
			}

			params[name] = struct{}{}
		}
	}

	return params, nil
}

func validateParameter(name string, p ParameterSpec) error {
	switch {
	case name == "":
		return errors.New("parameter name required")
	case p.Description == "":
		return fmt.Errorf("parameter %s: Description required", name)
	case p.Type == nil:
		return fmt.Errorf("parameter %s: Type required", name)
	case !slices.Contains(validParameterIn, p.In):
		return fmt.Errorf("parameter In must be one of %v, got %q for %s", validParameterIn, p.In, name)
	case p.In == ParameterInPath && !p.Required:
		return fmt.Errorf("path parameter %s must be required", name)
	}

	return nil
}

// generateParameters checks the documented parameters against the path and
// returns them sorted by name. Every path placeholder must be documented.
func generateParameters(spec RouteSpec) ([]generate.ParameterInfo, error) {
	inPath, err := pathParams(spec.fullPath)
	if err != nil {
		return nil, err
	}

	var params []generate.ParameterInfo

	for _, name := range slices.Sorted(maps.Keys(spec.Parameters)) {
		p := spec.Parameters[name]

		if err := validateParameter(name, p); err != nil {
			return nil, fmt.Errorf("%s %s: %w", spec.method, spec.fullPath, err)
		}

		if p.In == ParameterInPath {
			if _, ok := inPath[name]; !ok {
				return nil, fmt.Errorf("documented path parameter %s not found in path", name)
			}

			delete(inPath, name)
		}

		params = append(params, generate.ParameterInfo{
			Name:        name,
			In:          string(p.In),
			TypeValue:   p.Type,
			Description: p.Description,
			Required:    p.Required,
		})
	}

	if len(inPath) > 0 {
		return nil, fmt.Errorf("path parameter %s not documented", strings.Join(slices.Sorted(maps.Keys(inPath)), ", "))
	}

	return params, nil
}
