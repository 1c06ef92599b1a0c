package logger

import (
	"errors"
	"strings"
	"testing"
)

func TestSanitizeString(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		input  string
		max    int
		expect string
	}{
		{name: "empty", input: "", max: 10, expect: ""},
		{name: "plain", input: "hello", max: 10, expect: "hello"},
		{name: "control chars removed", input: "a\x00b\x1bc", max: 10, expect: "abc"},
		{name: "newline kept", input: "a\nb", max: 10, expect: "a\nb"},
		{name: "truncated", input: "abcdefghij", max: 4, expect: "abcd..."},
		{name: "invalid utf8 dropped", input: "ok\xffok", max: 10, expect: "okok"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := SanitizeString(tt.input, tt.max); got != tt.expect {
				t.Errorf("SanitizeString(%q, %d) = %q, expected %q", tt.input, tt.max, got, tt.expect)
			}
		})
	}
}

func TestSanitizeString_TruncatesOnRuneBoundary(t *testing.T) {
	t.Parallel()

	got := SanitizeString("ééé", 3)
	if !strings.HasSuffix(got, "...") {
		t.Fatalf("expected truncation marker, got %q", got)
	}
	if strings.ContainsRune(got, '�') {
		t.Errorf("expected no replacement characters, got %q", got)
	}
}

func TestSanitizeError(t *testing.T) {
	t.Parallel()

	if got := SanitizeError(nil); got != "" {
		t.Errorf("expected empty string for nil error, got %q", got)
	}
	if got := SanitizeError(errors.New("boom\x07")); got != "boom" {
		t.Errorf("expected control character to be removed, got %q", got)
	}
}

func TestOrNop(t *testing.T) {
	t.Parallel()

	if OrNop(nil) == nil {
		t.Fatal("expected a no-op logger")
	}
	if err := Sync(nil); err != nil {
		t.Errorf("Sync(nil) returned %v", err)
	}
}
