package text

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// StaticGenerator fabricates plausible JSON content without calling any
// service. It is used when no text provider has credentials.
type StaticGenerator struct {
	title cases.Caser
}

func NewStaticGenerator() *StaticGenerator {
	return &StaticGenerator{title: cases.Title(language.BritishEnglish)}
}

var staticSentences = []string{
	"Residents can find up-to-date information and guidance here.",
	"Our teams work across the borough to keep services running smoothly.",
	"Contact us if you need help accessing any of the services described on this page.",
	"We review this information regularly to make sure it stays accurate.",
	"Many of these services can now be accessed online at any time.",
}

func (s *StaticGenerator) Generate(ctx context.Context, req Request) (*Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	start := time.Now()
	subject := promptSubject(req.Prompt)
	seed := staticSeed(req.Prompt)

	keys := req.Keys
	if len(keys) == 0 {
		keys = []string{"title", "body"}
	}
	payload := make(map[string]string, len(keys))
	for _, key := range keys {
		lower := strings.ToLower(key)
		switch {
		case lower == "title":
			payload[key] = s.title.String(subject)
		case strings.Contains(lower, "summary"):
			payload[key] = fmt.Sprintf("An overview of %s.", subject)
		case lower == "body" || strings.Contains(lower, "content"):
			payload[key] = staticBody(subject, seed)
		default:
			payload[key] = fmt.Sprintf("%s: %s", s.title.String(strings.ReplaceAll(key, "_", " ")), subject)
		}
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("static: encode payload: %w", err)
	}
	return &Response{
		Text:     string(data),
		Model:    "static",
		Provider: staticProviderName,
		Elapsed:  time.Since(start),
	}, nil
}

// Check always succeeds.
func (s *StaticGenerator) Check(context.Context) error {
	return nil
}

func staticBody(subject string, seed uint32) string {
	var b strings.Builder
	fmt.Fprintf(&b, "<p>This page covers %s.</p>", subject)
	for i := 0; i < 2; i++ {
		sentence := staticSentences[(int(seed)+i)%len(staticSentences)]
		fmt.Fprintf(&b, "<p>%s</p>", sentence)
	}
	return b.String()
}

// promptSubject condenses a rendered prompt into a short subject line.
func promptSubject(prompt string) string {
	line := strings.TrimSpace(prompt)
	if idx := strings.IndexAny(line, ".\n"); idx > 0 {
		line = line[:idx]
	}
	words := strings.Fields(line)
	if len(words) > 8 {
		words = words[:8]
	}
	if len(words) == 0 {
		return "our services"
	}
	return strings.ToLower(strings.Join(words, " "))
}

func staticSeed(prompt string) uint32 {
	sum := sha256.Sum256([]byte(prompt))
	return binary.BigEndian.Uint32(sum[:4])
}

var _ Generator = (*StaticGenerator)(nil)
var _ Checker = (*StaticGenerator)(nil)
