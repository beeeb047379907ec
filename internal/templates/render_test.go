package templates

import (
	"reflect"
	"testing"
)

func TestRender(t *testing.T) {
	vars := map[string]string{"council_name": "Riverside Borough Council", "region": "North"}
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"simple", "Welcome to {{council_name}}", "Welcome to Riverside Borough Council"},
		{"spaced", "{{ council_name }} in {{region}}", "Riverside Borough Council in North"},
		{"unknown kept", "Hello {{mayor}}", "Hello {{mayor}}"},
		{"no placeholders", "plain", "plain"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Render(tt.in, vars); got != tt.want {
				t.Fatalf("Render(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestMissing(t *testing.T) {
	got := Missing("{{a}} {{b}} {{a}} {{known}}", map[string]string{"known": "x"})
	if !reflect.DeepEqual(got, []string{"a", "b"}) {
		t.Fatalf("Missing = %v", got)
	}
}
