package extract

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

type stubDigital struct {
	text  string
	calls int
}

func (s *stubDigital) Extract(_ context.Context, _ string) string {
	s.calls++
	return s.text
}

type stubOCR struct {
	text  string
	err   error
	calls int
}

func (s *stubOCR) ExtractPages(_ context.Context, _ string, _ int) (string, error) {
	s.calls++
	return s.text, s.err
}

func tempPDF(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "doc.pdf")
	if err := os.WriteFile(path, []byte("%PDF-1.4"), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestExtractMissingFile(t *testing.T) {
	ocr := &stubOCR{}
	e := newEngineWith(&stubDigital{}, ocr)
	got, err := e.Extract(context.Background(), "/nonexistent/doc.pdf", 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Text != "" || got.SearchText != "" {
		t.Errorf("want empty extraction, got %+v", got)
	}
	if ocr.calls != 0 {
		t.Error("OCR must not run for a missing file")
	}
}

func TestExtractSufficientDigitalSkipsOCR(t *testing.T) {
	digital := &stubDigital{text: strings.Repeat("نص عربي ", 100)}
	ocr := &stubOCR{text: "نتيجة التعرف الضوئي"}
	e := newEngineWith(digital, ocr)

	got, err := e.Extract(context.Background(), tempPDF(t), 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ocr.calls != 0 {
		t.Error("OCR must not run when the text layer is sufficient")
	}
	if got.UsedOCR {
		t.Error("UsedOCR = true, want false")
	}
	if got.Text == "" {
		t.Error("expected normalized text")
	}
}

func TestExtractThinDigitalFallsBackToOCR(t *testing.T) {
	digital := &stubDigital{text: "قليل"}
	ocr := &stubOCR{text: strings.Repeat("نص طويل من التعرف الضوئي ", 50)}
	e := newEngineWith(digital, ocr)

	got, err := e.Extract(context.Background(), tempPDF(t), 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ocr.calls != 1 {
		t.Fatalf("OCR calls = %d, want 1", ocr.calls)
	}
	if !got.UsedOCR {
		t.Error("UsedOCR = false, want true")
	}
}

func TestExtractKeepsDigitalWhenOCRWorse(t *testing.T) {
	digital := &stubDigital{text: "نص رقمي قصير لكنه حقيقي"}
	ocr := &stubOCR{text: "ضجيج"}
	e := newEngineWith(digital, ocr)

	got, err := e.Extract(context.Background(), tempPDF(t), 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.UsedOCR {
		t.Error("short OCR output must not replace the digital layer")
	}
	if !strings.Contains(got.Text, "رقمي") {
		t.Errorf("text = %q, want digital content", got.Text)
	}
}

func TestExtractNoRecoverableText(t *testing.T) {
	e := newEngineWith(&stubDigital{}, &stubOCR{})
	got, err := e.Extract(context.Background(), tempPDF(t), 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Text != "" || got.SearchText != "" {
		t.Errorf("want empty extraction, got %+v", got)
	}
}

func TestExtractNormalizesText(t *testing.T) {
	digital := &stubDigital{text: strings.Repeat("أهلا وسهلا في المكتبة ", 40)}
	e := newEngineWith(digital, &stubOCR{})

	got, err := e.Extract(context.Background(), tempPDF(t), 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.Contains(got.Text, "أ") {
		t.Errorf("text %q still contains unnormalized alif", got.Text)
	}
}

func TestDigitalSufficient(t *testing.T) {
	tests := []struct {
		chars, pages int
		want         bool
	}{
		{500, 1, true},
		{499, 1, false},
		{1000, 4, false},
		{1200, 4, true},
		{600, 0, true},
	}
	for _, tt := range tests {
		if got := DigitalSufficient(tt.chars, tt.pages); got != tt.want {
			t.Errorf("DigitalSufficient(%d, %d) = %v, want %v", tt.chars, tt.pages, got, tt.want)
		}
	}
}

func TestBetterPage(t *testing.T) {
	tests := []struct {
		name string
		a, b pageText
		want string
	}{
		{"higher confidence wins", pageText{"a", 60}, pageText{"b", 80}, "b"},
		{"lower confidence loses", pageText{"a", 90}, pageText{"b", 40}, "a"},
		{"tie goes to longer text", pageText{"aa", 70}, pageText{"bbb", 70}, "bbb"},
	}
	for _, tt := range tests {
		if got := betterPage(tt.a, tt.b); got.text != tt.want {
			t.Errorf("%s: got %q, want %q", tt.name, got.text, tt.want)
		}
	}
}

func TestFilterArabic(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"hello نص عربي world", "نص عربي"},
		{"الفصل 1: مقدمة.", "الفصل 1: مقدمة."},
		{"@#$%", ""},
	}
	for _, tt := range tests {
		if got := filterArabic(tt.in); got != tt.want {
			t.Errorf("filterArabic(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
