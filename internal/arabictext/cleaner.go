package arabictext

import (
	"regexp"
	"strings"
)

// Stats describes one cleaning run.
type Stats struct {
	OriginalLength       int
	CleanedLength        int
	NoiseMatchesRemoved  int
	CharactersNormalized int
}

// CompressionRatio is the share of input removed as noise, in percent.
func (s Stats) CompressionRatio() float64 {
	if s.OriginalLength == 0 {
		return 0
	}
	return float64(s.OriginalLength-s.CleanedLength) / float64(s.OriginalLength) * 100
}

// Result of the full cleaning pipeline. CleanedText is the indexed/display
// form; SearchText additionally has all diacritics stripped and is used
// only for indexing, never display.
type Result struct {
	CleanedText string
	SearchText  string
	Stats       Stats
}

// Cleaner normalizes OCR-extracted Arabic text. All patterns are compiled
// once; a Cleaner is safe for concurrent use.
//
// The pipeline is idempotent: cleaning its own output yields no further
// change.
type Cleaner struct {
	hallucinationPatterns []*regexp.Regexp
	watermarkPatterns     []*regexp.Regexp
	metadataPatterns      []*regexp.Regexp
	splittingRules        []splitRule
	whitespacePattern     *regexp.Regexp
	diacriticsPattern     *regexp.Regexp
	charNormalizations    []charRule
	lexicon               map[string]string
}

type splitRule struct {
	pattern     *regexp.Regexp
	replacement string
}

type charRule struct {
	from string
	to   string
}

// NewCleaner compiles the pattern inventory.
func NewCleaner() *Cleaner {
	c := &Cleaner{}

	// OCR hallucinations: stray bracket/number clusters, time/date-like
	// runs, mixed digit-Arabic runs, non-Arabic character strings.
	c.hallucinationPatterns = []*regexp.Regexp{
		regexp.MustCompile(`[0-9]+\.[0-9]+\s*\][\x{0627}-\x{06FF}0-9\-\[\]/:\x{0660}-\x{0669}]+`),
		regexp.MustCompile(`[\[\]{}()<>]+[0-9\x{0660}-\x{0669}\-/:\\]+[\[\]{}()<>]*`),
		regexp.MustCompile(`[0-9\x{0660}-\x{0669}]+[:/\-\\]+[0-9\x{0660}-\x{0669}]+[:/\-\\]*`),
		regexp.MustCompile(`[\x{0627}-\x{06FF}]*[0-9\x{0660}-\x{0669}]{3,}[\x{0627}-\x{06FF}]*[0-9\x{0660}-\x{0669}]*`),
		regexp.MustCompile(`[^\x{0600}-\x{06FF}\x{0750}-\x{077F}\s\d.,!?:;\-()]{2,}`),
	}

	// Watermarks, URLs and copyright boilerplate common in scanned
	// library content.
	c.watermarkPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)https?://[^\s\x{0627}-\x{06FF}]+`),
		regexp.MustCompile(`(?i)www\.[^\s\x{0627}-\x{06FF}]+`),
		regexp.MustCompile(`كنيسة\s*الأقباط\s*الأرثوذكس`),
		regexp.MustCompile(`(?i)coptic[-\s]*treasures?\.com?`),
		regexp.MustCompile(`المكتبة\s*القبطية\s*الأرثوذكسية`),
		regexp.MustCompile(`جميع\s*الحقوق\s*محفوظة`),
		regexp.MustCompile(`(?i)copyright\s*©?\s*[0-9]{4}`),
	}

	// Inline metadata and citation tags.
	c.metadataPatterns = []*regexp.Regexp{
		regexp.MustCompile(`<[^>]*>`),
		regexp.MustCompile(`\[[^\]]*المصدر[^\]]*\]`),
		regexp.MustCompile(`\([^)]*المرجع[^)]*\)`),
		regexp.MustCompile(`صفحة\s*[0-9\x{0660}-\x{0669}]+`),
		regexp.MustCompile(`ص\s+[0-9\x{0660}-\x{0669}]+`),
		regexp.MustCompile(`الطبعة\s*[الأول\x{0660}-\x{0669}]*`),
	}

	// OCR word-splitting repairs: re-merge one-letter prefixes (definite
	// article and the conjunctions و ف ب ل ك) erroneously separated from
	// the following word. Go's \b is ASCII-only, so boundaries are
	// explicit leading groups.
	letter := `[\x{0621}-\x{064A}]`
	c.splittingRules = []splitRule{
		{regexp.MustCompile(`(ال)\s+(أنبا)`), "$1$2"},
		{regexp.MustCompile(`(مطرا)\s+(نية)`), "$1$2"},
		{regexp.MustCompile(`(ال)\s+(قداس)`), "$1$2"},
		{regexp.MustCompile(`عيد\s+ال\s+(` + letter + `)`), "عيد ال$1"},
		{regexp.MustCompile(`(^|\s)(ال)\s+(` + letter + `)`), "$1$2$3"},
		{regexp.MustCompile(`(^|\s)(و)\s+(` + letter + `)`), "$1$2$3"},
		{regexp.MustCompile(`(^|\s)(ف)\s+(` + letter + `)`), "$1$2$3"},
		{regexp.MustCompile(`(^|\s)(ب)\s+(` + letter + `)`), "$1$2$3"},
		{regexp.MustCompile(`(^|\s)ل\s+ال`), "${1}لل"},
		{regexp.MustCompile(`(^|\s)(ل)\s+(` + letter + `)`), "$1$2$3"},
		{regexp.MustCompile(`(^|\s)(ك)\s+(` + letter + `)`), "$1$2$3"},
	}

	// All whitespace plus zero-width characters collapse to one space.
	c.whitespacePattern = regexp.MustCompile(`[\s\x{200B}\x{200C}\x{200D}\x{FEFF}]+`)

	// Tashkeel marks plus tatweel.
	c.diacriticsPattern = regexp.MustCompile(`[\x{064B}-\x{0652}\x{0670}\x{0640}]`)

	// Script-variant collapse: hamza-bearing alif variants to bare alif,
	// teh marbuta to heh, alif maksura and hamza-yaa to yaa, hamza-waw
	// to waw. Standalone hamza is usually an OCR artifact and is dropped.
	c.charNormalizations = []charRule{
		{"أ", "ا"},
		{"إ", "ا"},
		{"آ", "ا"},
		{"ء", ""},
		{"ة", "ه"},
		{"ى", "ي"},
		{"ئ", "ي"},
		{"ؤ", "و"},
	}

	// Recurring OCR misspellings of liturgical terminology, corrected at
	// word boundaries only.
	c.lexicon = map[string]string{
		"مطراذية": "مطرانية",
		"مطراذ":   "مطران",
		"الأذبا":  "الأنبا",
		"أذبا":    "أنبا",
		"النبروز": "النيروز",
		"الغبطاس": "الغطاس",
		"القبامة": "القيامة",
		"الصلبب":  "الصليب",
		"قداذ":    "قداس",
		"البخوذ":  "البخور",
		"العداس":  "القداس",
		"المسبح":  "المسيح",
		"بظريرك":  "بطريرك",
		"أسكف":    "أسقف",
		"إسبسموس": "إسباسموس",
		"برمهآت":  "برمهات",
		"أمشبر":   "أمشير",
		"كبهك":    "كيهك",
		"الصالة":  "الصلاة",
		"الكنبسة": "الكنيسة",
	}

	return c
}

// RemoveStructuralNoise strips hallucinations, watermarks and metadata tags
// and repairs OCR word splitting. Returns the cleaned text and the number
// of noise matches removed.
func (c *Cleaner) RemoveStructuralNoise(text string) (string, int) {
	removed := 0
	groups := [][]*regexp.Regexp{c.hallucinationPatterns, c.watermarkPatterns, c.metadataPatterns}
	for _, group := range groups {
		for _, pattern := range group {
			matches := len(pattern.FindAllStringIndex(text, -1))
			if matches > 0 {
				text = pattern.ReplaceAllString(text, " ")
				removed += matches
			}
		}
	}
	for _, rule := range c.splittingRules {
		matches := len(rule.pattern.FindAllStringIndex(text, -1))
		if matches > 0 {
			text = rule.pattern.ReplaceAllString(text, rule.replacement)
			removed += matches
		}
	}
	return text, removed
}

// leading/trailing punctuation stripped before lexicon lookup.
const tokenPunct = ".,!?:;()[]«»\"'،؛؟"

// ApplyLexiconCorrections substitutes known OCR misspellings token by
// token, preserving attached punctuation.
func (c *Cleaner) ApplyLexiconCorrections(text string) string {
	fields := strings.Fields(text)
	changed := false
	for i, tok := range fields {
		core := strings.Trim(tok, tokenPunct)
		if core == "" {
			continue
		}
		if fixed, ok := c.lexicon[core]; ok {
			fields[i] = strings.Replace(tok, core, fixed, 1)
			changed = true
		}
	}
	if !changed {
		return text
	}
	return strings.Join(fields, " ")
}

// NormalizeCharacters collapses script-variant characters to one canonical
// form per logical letter. Returns the text and the count of characters
// normalized.
func (c *Cleaner) NormalizeCharacters(text string) (string, int) {
	normalized := 0
	for _, rule := range c.charNormalizations {
		if n := strings.Count(text, rule.from); n > 0 {
			text = strings.ReplaceAll(text, rule.from, rule.to)
			normalized += n
		}
	}
	return text, normalized
}

// NormalizeWhitespace collapses whitespace and zero-width characters to
// single spaces and trims.
func (c *Cleaner) NormalizeWhitespace(text string) string {
	return strings.TrimSpace(c.whitespacePattern.ReplaceAllString(text, " "))
}

// StripDiacritics removes all tashkeel marks and tatweel, producing the
// search variant.
func (c *Cleaner) StripDiacritics(text string) string {
	return c.diacriticsPattern.ReplaceAllString(text, "")
}

// Clean runs the full pipeline. Stages 1-4 produce the indexed/display
// text; stripping diacritics from it yields the search text.
func (c *Cleaner) Clean(text string) Result {
	originalLength := len([]rune(text))
	if strings.TrimSpace(text) == "" {
		return Result{}
	}

	cleaned, noiseRemoved := c.RemoveStructuralNoise(text)
	cleaned = c.ApplyLexiconCorrections(cleaned)
	cleaned, charsNormalized := c.NormalizeCharacters(cleaned)
	cleaned = c.NormalizeWhitespace(cleaned)

	searchText := c.NormalizeWhitespace(c.StripDiacritics(cleaned))

	return Result{
		CleanedText: cleaned,
		SearchText:  searchText,
		Stats: Stats{
			OriginalLength:       originalLength,
			CleanedLength:        len([]rune(cleaned)),
			NoiseMatchesRemoved:  noiseRemoved,
			CharactersNormalized: charsNormalized,
		},
	}
}

// NormalizeQuery applies character normalization and diacritic stripping
// without the noise pipeline. Meant for short search queries so they match
// the indexed search text.
func (c *Cleaner) NormalizeQuery(text string) string {
	if text == "" {
		return text
	}
	normalized, _ := c.NormalizeCharacters(text)
	return c.NormalizeWhitespace(c.StripDiacritics(normalized))
}
