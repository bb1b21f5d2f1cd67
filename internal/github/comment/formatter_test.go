package comment

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestFormatScale(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{2, "2"},
		{3.5, "3.5"},
		{1.25, "1.25"},
	}
	for _, tt := range tests {
		if got := FormatScale(tt.in); got != tt.want {
			t.Errorf("FormatScale(%v) = %s, want %s", tt.in, got, tt.want)
		}
	}
}

func TestFormatSuccess(t *testing.T) {
	raw := "https://raw.githubusercontent.com/o/r/upscaled-results/results/a.png"
	body := FormatSuccess(3.5, "upscaled-results", "https://github.com/o/r/tree/upscaled-results", raw)

	for _, want := range []string{"scale 3.5x", "`upscaled-results`", raw, "[`upscaled-results` branch](https://github.com/o/r/tree/upscaled-results)"} {
		if !strings.Contains(body, want) {
			t.Errorf("FormatSuccess() missing %q:\n%s", want, body)
		}
	}

	plain := FormatSuccess(2, "b", "", raw)
	if strings.Contains(plain, "](") {
		t.Errorf("FormatSuccess() without branch URL should not contain a markdown link:\n%s", plain)
	}
}

func TestFormatNoImage(t *testing.T) {
	if !strings.HasPrefix(FormatNoImage(), ":warning:") {
		t.Errorf("FormatNoImage() = %q", FormatNoImage())
	}
}

func TestFormatError_Truncates(t *testing.T) {
	long := strings.Repeat("é", 500)
	body := FormatError(long)

	prefix := ":x: An error occurred during upscale: "
	if !strings.HasPrefix(body, prefix) {
		t.Fatalf("FormatError() = %q", body)
	}
	msg := strings.TrimPrefix(body, prefix)
	if n := utf8.RuneCountInString(msg); n != MaxErrorLength {
		t.Errorf("message length = %d, want %d", n, MaxErrorLength)
	}
	if !utf8.ValidString(msg) {
		t.Error("truncation split a rune")
	}

	short := FormatError("failed to download image: 404 Not Found")
	if !strings.HasSuffix(short, "404 Not Found") {
		t.Errorf("FormatError() = %q", short)
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		s    string
		n    int
		want string
	}{
		{"hello", 10, "hello"},
		{"hello", 5, "hello"},
		{"hello", 3, "hel"},
		{"héllo", 2, "hé"},
		{"hello", 0, ""},
	}
	for _, tt := range tests {
		if got := Truncate(tt.s, tt.n); got != tt.want {
			t.Errorf("Truncate(%q, %d) = %q, want %q", tt.s, tt.n, got, tt.want)
		}
	}
}
