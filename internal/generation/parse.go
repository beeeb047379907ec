package generation

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"sitegen/internal/domain"
)

// jsonObject matches from the first '{' to the last '}' so fenced or
// chatty model output still yields the payload.
var jsonObject = regexp.MustCompile(`(?s)\{.*\}`)

var throttleMarkers = []string{"throttl", "rate", "limit", "too many requests"}

// parseContent extracts the structured payload from free-form model text.
func parseContent(text string) (map[string]any, error) {
	match := jsonObject.FindString(text)
	if match == "" {
		return nil, fmt.Errorf("%w: no json object in response", domain.ErrMalformedResponse)
	}
	var content map[string]any
	if err := json.Unmarshal([]byte(match), &content); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrMalformedResponse, err)
	}
	return content, nil
}

// isThrottle classifies err by message. It is a vocabulary match, so any
// message mentioning rates or limits is retried.
func isThrottle(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, marker := range throttleMarkers {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}

// mapFields builds entity fields from generated content. title falls back to
// the rendered title template.
func mapFields(spec domain.ContentSpecification, content map[string]any, renderedTitle string) map[string]any {
	fields := map[string]any{}
	titleKey := "title"
	if source, ok := spec.FieldMapping["title"]; ok && source != "" {
		titleKey = source
	}
	title := strings.TrimSpace(stringValue(content[titleKey]))
	if title == "" {
		title = strings.TrimSpace(renderedTitle)
	}
	fields["title"] = title

	mapping := spec.FieldMapping
	if len(mapping) == 0 {
		mapping = make(map[string]string, len(content))
		for key := range content {
			mapping[key] = key
		}
	}
	for target, source := range mapping {
		if target == "title" {
			continue
		}
		value, ok := content[source]
		if !ok {
			continue
		}
		fields[target] = coerceField(target, value)
	}
	return fields
}

func coerceField(target string, value any) any {
	switch {
	case target == "body":
		return domain.FormattedText{Value: stringValue(value), Format: domain.DefaultTextFormat}
	case strings.Contains(target, "summary"):
		return stringValue(value)
	default:
		return value
	}
}

func stringValue(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64, bool, json.Number:
		return fmt.Sprint(t)
	default:
		raw, err := json.Marshal(t)
		if err != nil {
			return fmt.Sprint(t)
		}
		return string(raw)
	}
}
