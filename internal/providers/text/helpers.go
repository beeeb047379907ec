package text

import "strings"

const defaultSystemPrompt = "You write clear, factual web page copy for a UK local council website. Respond only with a single JSON object."

func coalesce(values ...string) string {
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v != "" {
			return v
		}
	}
	return ""
}
