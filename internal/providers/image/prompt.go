package image

import (
	"fmt"
	"strings"
)

// DefaultNegativePrompt captures undesirable artefacts we want the model to avoid.
const DefaultNegativePrompt = "low quality, blurry, distorted, watermark, text artefacts, logos, extra limbs"

// BuildPrompt converts a rendered request into the instruction sent to the
// model. Style and dimensions are appended as direction lines.
func BuildPrompt(req Request) string {
	var lines []string
	if prompt := strings.TrimSpace(req.Prompt); prompt != "" {
		lines = append(lines, prompt)
	} else {
		lines = append(lines, "Create an illustration for a public sector website.")
	}
	if style := strings.TrimSpace(req.Style); style != "" {
		lines = append(lines, fmt.Sprintf("Visual style: %s.", style))
	}
	if req.Width > 0 && req.Height > 0 {
		lines = append(lines, fmt.Sprintf("Compose for a %dx%d frame.", req.Width, req.Height))
	}
	lines = append(lines, "Do not render any text, captions or watermarks.")
	return strings.Join(lines, "\n")
}

func normalizeFormat(mime string) string {
	mime = strings.ToLower(strings.TrimSpace(mime))
	switch mime {
	case "image/jpeg", "image/jpg":
		return "image/jpeg"
	case "image/png":
		return "image/png"
	default:
		if strings.HasPrefix(mime, "image/") {
			return mime
		}
		return "image/png"
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
