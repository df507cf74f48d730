package htmlsanitize_test

import (
	"strings"
	"testing"

	"github.com/dalemusser/depensify/internal/app/system/htmlsanitize"
)

func TestPlainText_Empty(t *testing.T) {
	if got := htmlsanitize.PlainText(""); got != "" {
		t.Errorf("expected empty string, got %q", got)
	}
}

func TestPlainText_Unchanged(t *testing.T) {
	if got := htmlsanitize.PlainText("Courses du samedi"); got != "Courses du samedi" {
		t.Errorf("expected plain text unchanged, got %q", got)
	}
}

func TestPlainText_Trims(t *testing.T) {
	if got := htmlsanitize.PlainText("  Taxi  "); got != "Taxi" {
		t.Errorf("expected trimmed text, got %q", got)
	}
}

func TestPlainText_KeepsAmpersand(t *testing.T) {
	if got := htmlsanitize.PlainText("Fish & chips"); got != "Fish & chips" {
		t.Errorf("expected ampersand preserved, got %q", got)
	}
}

func TestPlainText_StripsTags(t *testing.T) {
	if got := htmlsanitize.PlainText("<b>Lunch</b>"); got != "Lunch" {
		t.Errorf("expected tags stripped, got %q", got)
	}
}

func TestPlainText_RemovesScript(t *testing.T) {
	got := htmlsanitize.PlainText("Taxi<script>alert('xss')</script>")
	if got != "Taxi" {
		t.Errorf("expected script removed, got %q", got)
	}
}

func TestPlainText_EscapedMarkup(t *testing.T) {
	tests := []string{
		"&lt;img src=x onerror=alert(1)&gt;",
		"&amp;lt;script&amp;gt;alert(1)&amp;lt;/script&amp;gt;",
		"Taxi &lt;b&gt;late&lt;/b&gt;",
	}
	for _, in := range tests {
		got := htmlsanitize.PlainText(in)
		if strings.Contains(got, "<") {
			t.Errorf("PlainText(%q) = %q, markup survived", in, got)
		}
		if !htmlsanitize.IsPlainText(got) {
			t.Errorf("PlainText(%q) = %q is not stable", in, got)
		}
	}
	if got := htmlsanitize.PlainText("Taxi &lt;b&gt;late&lt;/b&gt;"); got != "Taxi late" {
		t.Errorf("expected escaped tags stripped, got %q", got)
	}
}

func TestPlainText_KeepsComparisons(t *testing.T) {
	if got := htmlsanitize.PlainText("a < b > c"); got != "a < b > c" {
		t.Errorf("expected comparison text kept, got %q", got)
	}
}

func TestIsPlainText(t *testing.T) {
	if !htmlsanitize.IsPlainText("Fish & chips") {
		t.Error("ampersand text is plain text")
	}
	if htmlsanitize.IsPlainText("<b>x</b>") {
		t.Error("tags are not plain text")
	}
	if htmlsanitize.IsPlainText("&lt;b&gt;x&lt;/b&gt;") {
		t.Error("escaped tags are not plain text")
	}
}
