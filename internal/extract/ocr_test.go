package extract

import (
	"strings"
	"testing"
)

func TestAcceptFirstPassCountsRunes(t *testing.T) {
	o := &OCRExtractor{minConfidence: 70, minTextLen: 50}

	// 30 Arabic characters occupy 60 bytes; the page is still short.
	short := pageText{text: strings.Repeat("م", 30), confidence: 85}
	if o.acceptFirstPass(short) {
		t.Error("30-character page accepted despite the 50-character minimum")
	}

	long := pageText{text: strings.Repeat("م", 50), confidence: 85}
	if !o.acceptFirstPass(long) {
		t.Error("50-character page should skip the retry")
	}

	lowConf := pageText{text: strings.Repeat("م", 200), confidence: 40}
	if o.acceptFirstPass(lowConf) {
		t.Error("low-confidence page should trigger the retry")
	}
}

func TestBetterPageTieBreak(t *testing.T) {
	a := pageText{text: "short", confidence: 80}
	b := pageText{text: "much longer text", confidence: 60}
	if got := betterPage(a, b); got.text != a.text {
		t.Errorf("higher confidence should win, got %q", got.text)
	}

	// Tie-break counts runes, not bytes: 15 Arabic characters occupy 30
	// bytes but still lose to 20 single-byte characters.
	tie1 := pageText{text: strings.Repeat("م", 15), confidence: 75}
	tie2 := pageText{text: strings.Repeat("x", 20), confidence: 75}
	if got := betterPage(tie1, tie2); got.text != tie2.text {
		t.Error("tie should go to the page with more characters")
	}
	if got := betterPage(tie2, tie1); got.text != tie2.text {
		t.Error("tie-break should be order independent")
	}
}
