package format

import (
	"bytes"
	"strings"
	"testing"
)

type sample struct {
	Name     string `json:"name"`
	Favorite bool   `json:"favorite"`
}

func TestForName(t *testing.T) {
	for _, name := range []string{"", "json", "JSON", "yaml", "yml"} {
		if _, err := ForName(name); err != nil {
			t.Fatalf("ForName(%q): %v", name, err)
		}
	}
	if _, err := ForName("xml"); err == nil {
		t.Fatal("expected unknown format error")
	}
}

func TestYAMLFormatterUsesJSONFieldNames(t *testing.T) {
	var buf bytes.Buffer
	if err := (YAMLFormatter{}).Write(&buf, sample{Name: "hero.png", Favorite: true}); err != nil {
		t.Fatalf("write: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "name: hero.png") || !strings.Contains(out, "favorite: true") {
		t.Fatalf("unexpected yaml output:\n%s", out)
	}
}

func TestJSONFormatterIndents(t *testing.T) {
	var buf bytes.Buffer
	if err := (JSONFormatter{}).Write(&buf, sample{Name: "a"}); err != nil {
		t.Fatalf("write: %v", err)
	}
	if !strings.Contains(buf.String(), "\n  \"name\": \"a\"") {
		t.Fatalf("expected indented json, got %q", buf.String())
	}
}
