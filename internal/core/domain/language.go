package domain

import "strings"

// Language identifies the supported query/response languages.
type Language string

const (
	LanguageArabic  Language = "ar"
	LanguageEnglish Language = "en"
	LanguageMalay   Language = "ms"
	LanguageMixed   Language = "mixed"
)

// DisplayName returns the human-readable name used inside prompts.
func (l Language) DisplayName() string {
	switch l {
	case LanguageArabic:
		return "العربية (Arabic)"
	case LanguageEnglish:
		return "English"
	case LanguageMalay:
		return "Bahasa Melayu"
	case LanguageMixed:
		return "Mixed"
	default:
		return string(l)
	}
}

// Code returns the ISO 639-1 code used for translation backends.
// Mixed maps to English, which is the documented downstream default.
func (l Language) Code() string {
	if l == LanguageMixed {
		return "en"
	}
	return string(l)
}

// ParseLanguage maps a caller-supplied code to a Language, reporting
// whether the code named a supported language.
func ParseLanguage(code string) (Language, bool) {
	switch Language(strings.ToLower(strings.TrimSpace(code))) {
	case LanguageArabic:
		return LanguageArabic, true
	case LanguageEnglish:
		return LanguageEnglish, true
	case LanguageMalay:
		return LanguageMalay, true
	case LanguageMixed:
		return LanguageMixed, true
	default:
		return "", false
	}
}

// Common Malay function words, question words, and finance vocabulary used as
// lexical markers. Several overlap with Indonesian; the match thresholds in
// DetectLanguage compensate.
var malayMarkers = []string{
	"adalah", "dengan", "untuk", "yang", "ini", "itu",
	"boleh", "tidak", "ada", "saya", "kita", "dalam",
	"kepada", "daripada", "seperti", "oleh", "tetapi",
	"atau", "jika", "apabila", "kerana", "supaya",
	"apakah", "bagaimana", "mengapa", "siapa", "bila",
	"adakah", "berapa", "mana", "kenapa", "macam",
	"perbankan", "kewangan", "patuh", "syariah", "halal",
	"haram", "faedah", "riba", "pinjaman", "pelaburan",
	"mahu", "hendak", "perlu", "ingin", "akan",
	"telah", "sudah", "sedang", "dapat", "bolehkah",
}

// DetectLanguage classifies text as Arabic, English, Malay, or Mixed using
// character-set ratios and Malay lexical markers. It is a pure function and
// never fails: empty, whitespace-only, or symbol-only input is English.
func DetectLanguage(text string) Language {
	if strings.TrimSpace(text) == "" {
		return LanguageEnglish
	}

	var arabicCount, latinCount int
	for _, r := range text {
		switch {
		case r >= 0x0600 && r <= 0x06FF:
			arabicCount++
		case (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z'):
			latinCount++
		}
	}

	total := arabicCount + latinCount
	if total == 0 {
		return LanguageEnglish
	}

	arabicRatio := float64(arabicCount) / float64(total)
	if arabicRatio > 0.6 {
		return LanguageArabic
	}
	if arabicRatio > 0.1 {
		return LanguageMixed
	}

	words := strings.Fields(strings.ToLower(text))
	tokens := make(map[string]struct{}, len(words))
	for _, w := range words {
		tokens[strings.Trim(w, "?.,!;:'\"()")] = struct{}{}
	}

	matches := 0
	for _, marker := range malayMarkers {
		if _, ok := tokens[marker]; ok {
			matches++
		}
	}

	// Short queries like "Apakah itu Takaful?" carry a single marker at most,
	// so one match is enough; longer text needs two to avoid false positives
	// from incidental English/Indonesian overlaps.
	if len(words) <= 5 && matches >= 1 {
		return LanguageMalay
	}
	if matches >= 2 {
		return LanguageMalay
	}

	return LanguageEnglish
}

// ResponseLanguage decides which language the answer must be written in.
// A caller preference wins; otherwise the query language, with Mixed
// resolving to English.
func ResponseLanguage(queryLang Language, preference *Language) Language {
	if preference != nil {
		if *preference == LanguageMixed {
			return LanguageEnglish
		}
		return *preference
	}
	if queryLang == LanguageMixed {
		return LanguageEnglish
	}
	return queryLang
}
