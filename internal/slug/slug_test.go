package slug

import (
	"testing"
)

func TestGenerate(t *testing.T) {
	tests := []struct {
		name  string
		title string
		want  string
	}{
		{"simple", "Visa Guide 2025", "visa-guide-2025"},
		{"punctuation runs", "Hello,   World!!!", "hello-world"},
		{"leading and trailing", "  --Remote Work--  ", "remote-work"},
		{"accents folded", "Café in Málaga", "cafe-in-malaga"},
		{"mixed case", "DigitalNomad TIPS", "digitalnomad-tips"},
		{"existing hyphens", "co-working spaces", "co-working-spaces"},
		{"stroke letters", "Łódź Visa Guide", "lodz-visa-guide"},
		{"sharp s", "Straße nach Berlin", "strasse-nach-berlin"},
		{"nordic letters", "København Ø guide", "kobenhavn-o-guide"},
		{"ligature", "Æon", "aeon"},
		{"non latin dropped", "Привет visa", "visa"},
		{"cyrillic only", "Виза в Грузию", ""},
		{"empty", "", ""},
		{"whitespace only", "   \t ", ""},
		{"symbols only", "!!! ???", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Generate(tt.title); got != tt.want {
				t.Errorf("Generate(%q) = %q, want %q", tt.title, got, tt.want)
			}
		})
	}
}

func TestGenerate_Deterministic(t *testing.T) {
	titles := []string{"Visa Guide 2025", "Ünïcödé & <b>tags</b>", "a/b\\c?d=e#f"}
	for _, title := range titles {
		first := Generate(title)
		for i := 0; i < 5; i++ {
			if got := Generate(title); got != first {
				t.Fatalf("Generate(%q) not deterministic: %q vs %q", title, got, first)
			}
		}
	}
}

func TestGenerate_RestrictedAlphabet(t *testing.T) {
	titles := []string{
		"<script>alert(1)</script>",
		"Ünïcödé & ÆØÅ",
		"tabs\tand\nnewlines",
		"emoji 🚀 launch",
		"---",
		"UPPER lower 123",
	}
	for _, title := range titles {
		got := Generate(title)
		for _, r := range got {
			if !((r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '-') {
				t.Errorf("Generate(%q) = %q contains %q", title, got, r)
			}
		}
		if len(got) > 0 && (got[0] == '-' || got[len(got)-1] == '-') {
			t.Errorf("Generate(%q) = %q has an edge separator", title, got)
		}
	}
}

func TestWithSuffix(t *testing.T) {
	if got := WithSuffix("visa-guide", 2); got != "visa-guide-2" {
		t.Errorf("WithSuffix = %q", got)
	}
}
