package mcpserver

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
)

// parseJSON parses a JSON string into the target type.
func parseJSON(data string, target any) error {
	return json.Unmarshal([]byte(data), target)
}

// requireString returns a non-blank string argument, unmodified, or an error
// naming it.
func requireString(req mcp.CallToolRequest, key string) (string, error) {
	v := req.GetString(key, "")
	if strings.TrimSpace(v) == "" {
		return "", fmt.Errorf("%s is required", key)
	}
	return v, nil
}

// optionalJSON decodes a JSON-string argument into target when present.
func optionalJSON(req mcp.CallToolRequest, key string, target any) error {
	raw := req.GetString(key, "")
	if raw == "" {
		return nil
	}
	if err := parseJSON(raw, target); err != nil {
		return fmt.Errorf("%s must be a JSON array: %w", key, err)
	}
	return nil
}
