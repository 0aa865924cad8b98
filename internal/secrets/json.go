package secrets

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// extractField pulls one field out of a JSON-valued secret. The path is
// dot-separated and may index into arrays ("credentials.0.password").
// Non-string leaf values are re-encoded as JSON.
func extractField(jsonStr, path string) (string, error) {
	var data interface{}
	if err := json.Unmarshal([]byte(jsonStr), &data); err != nil {
		return "", fmt.Errorf("secret is not valid JSON: %w", err)
	}

	current := data
	for _, part := range strings.Split(strings.TrimPrefix(path, "."), ".") {
		if part == "" {
			continue
		}
		switch v := current.(type) {
		case map[string]interface{}:
			var ok bool
			if current, ok = v[part]; !ok {
				return "", fmt.Errorf("field not found: %s", part)
			}
		case []interface{}:
			index, err := strconv.Atoi(part)
			if err != nil || index < 0 || index >= len(v) {
				return "", fmt.Errorf("invalid array index: %s", part)
			}
			current = v[index]
		default:
			return "", fmt.Errorf("cannot traverse into %s", part)
		}
	}

	switch v := current.(type) {
	case string:
		return v, nil
	case nil:
		return "", nil
	default:
		encoded, err := json.Marshal(v)
		if err != nil {
			return "", fmt.Errorf("failed to encode field value: %w", err)
		}
		return string(encoded), nil
	}
}
