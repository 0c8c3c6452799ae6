package arabictext

import (
	"context"
	"testing"
)

func TestCleanEmptyInput(t *testing.T) {
	c := NewCleaner()
	for _, in := range []string{"", "   ", "\n\t"} {
		r := c.Clean(in)
		if r.CleanedText != "" || r.SearchText != "" {
			t.Errorf("Clean(%q) = %+v, want empty result", in, r)
		}
	}
}

func TestNormalizeCharacters(t *testing.T) {
	c := NewCleaner()
	tests := []struct {
		in, want string
		count    int
	}{
		{"أحمد", "احمد", 1},
		{"إسلام", "اسلام", 1},
		{"آمال", "امال", 1},
		{"مدرسة", "مدرسه", 1},
		{"مستشفى", "مستشفي", 1},
		{"مسؤول", "مسوول", 1},
		{"كتاب", "كتاب", 0},
	}
	for _, tt := range tests {
		got, n := c.NormalizeCharacters(tt.in)
		if got != tt.want || n != tt.count {
			t.Errorf("NormalizeCharacters(%q) = %q, %d; want %q, %d", tt.in, got, n, tt.want, tt.count)
		}
	}
}

func TestPrefixMergeRepairs(t *testing.T) {
	c := NewCleaner()
	tests := []struct {
		in, want string
	}{
		{"ال كنيسه", "الكنيسه"},
		{"و قال", "وقال"},
		{"ذهبت ل ال بيت", "ذهبت للبيت"},
		{"عيد ال قيامه", "عيد القيامه"},
	}
	for _, tt := range tests {
		if got := c.Clean(tt.in).CleanedText; got != tt.want {
			t.Errorf("Clean(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestLexiconCorrections(t *testing.T) {
	c := NewCleaner()
	tests := []struct {
		in, want string
	}{
		{"المسبح قام", "المسيح قام"},
		{"المسبح.", "المسيح."},
		{"كلام عادي", "كلام عادي"},
	}
	for _, tt := range tests {
		if got := c.ApplyLexiconCorrections(tt.in); got != tt.want {
			t.Errorf("ApplyLexiconCorrections(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestNoiseRemoval(t *testing.T) {
	c := NewCleaner()
	tests := []struct {
		name, in, want string
	}{
		{"latin run", "النص hello هنا", "النص هنا"},
		{"copyright phrase", "النص جميع الحقوق محفوظة", "النص"},
		{"long digit run", "الفصل 1234", "الفصل"},
		{"page marker", "النص صفحة 15 هنا", "النص هنا"},
		{"html tag", "النص <b> هنا", "النص هنا"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := c.Clean(tt.in).CleanedText; got != tt.want {
				t.Errorf("Clean(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestSearchTextStripsDiacritics(t *testing.T) {
	c := NewCleaner()
	r := c.Clean("كِتَاب")
	if r.CleanedText != "كِتَاب" {
		t.Errorf("cleaned text = %q, want diacritics preserved", r.CleanedText)
	}
	if r.SearchText != "كتاب" {
		t.Errorf("search text = %q, want %q", r.SearchText, "كتاب")
	}
}

func TestCleanIdempotent(t *testing.T) {
	c := NewCleaner()
	inputs := []string{
		"أهلاً و سهلاً بكم في ال كنيسة",
		"المسبح قام بالحقيقة قام 1234",
		"نصٌ عربيٌّ مُشَكَّل مع hello noise",
	}
	for _, in := range inputs {
		first := c.Clean(in)
		second := c.Clean(first.CleanedText)
		if second.CleanedText != first.CleanedText {
			t.Errorf("not idempotent: %q then %q", first.CleanedText, second.CleanedText)
		}
		if second.SearchText != first.SearchText {
			t.Errorf("search text not stable: %q then %q", first.SearchText, second.SearchText)
		}
	}
}

func TestNormalizeQuery(t *testing.T) {
	c := NewCleaner()
	tests := []struct {
		in, want string
	}{
		{"أُمّ", "ام"},
		{"الكنيسَة", "الكنيسه"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := c.NormalizeQuery(tt.in); got != tt.want {
			t.Errorf("NormalizeQuery(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestCleanStats(t *testing.T) {
	c := NewCleaner()
	r := c.Clean("النص جميع الحقوق محفوظة")
	if r.Stats.NoiseMatchesRemoved == 0 {
		t.Error("expected noise matches to be counted")
	}
	if r.Stats.CleanedLength >= r.Stats.OriginalLength {
		t.Errorf("cleaned length %d not smaller than original %d", r.Stats.CleanedLength, r.Stats.OriginalLength)
	}
	if ratio := r.Stats.CompressionRatio(); ratio <= 0 || ratio > 100 {
		t.Errorf("compression ratio = %f, want within (0,100]", ratio)
	}
}

func TestCleanBatchPreservesOrder(t *testing.T) {
	c := NewCleaner()
	texts := []string{"أحمد", "ال كنيسه", "", "المسبح"}
	results := c.CleanBatch(context.Background(), 2, texts)
	if len(results) != len(texts) {
		t.Fatalf("got %d results, want %d", len(results), len(texts))
	}
	for i, br := range results {
		if br.Index != i {
			t.Errorf("result %d has index %d", i, br.Index)
		}
		want := c.Clean(texts[i])
		if br.Result.CleanedText != want.CleanedText {
			t.Errorf("batch[%d] = %q, want %q", i, br.Result.CleanedText, want.CleanedText)
		}
	}
}
