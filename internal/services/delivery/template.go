// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package delivery

import (
	"encoding/json"
	"strings"
)

// RenderTemplate substitutes {{name}} placeholders in s with values
// from vars. Plain variable substitution only; anything beyond that
// belongs to the composition layer upstream.
func RenderTemplate(s string, vars map[string]string) string {
	if len(vars) == 0 {
		return s
	}
	pairs := make([]string, 0, len(vars)*2)
	for name, value := range vars {
		pairs = append(pairs, "{{"+name+"}}", value)
	}
	return strings.NewReplacer(pairs...).Replace(s)
}

// encodeMetadata serializes message metadata for the audit log.
func encodeMetadata(metadata map[string]string) (string, error) {
	encoded, err := json.Marshal(metadata)
	if err != nil {
		return "", err
	}
	return string(encoded), nil
}
