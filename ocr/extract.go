package ocr

import (
	"regexp"
	"strings"
)

// IDCardData is everything the parser could read off an ID card. Missing
// fields stay empty; the caller decides which ones it needs.
type IDCardData struct {
	Role       string `json:"role"`
	FullName   string `json:"full_name"`
	RollNumber string `json:"roll_number"`
	Branch     string `json:"branch"`
	Email      string `json:"email"`
	RawText    string `json:"raw_text"`
}

var (
	// Labels match case-insensitively but the captured name itself must be
	// Title Case words, so the capture stops before the next LABEL: field.
	namePatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i:full\s+name)[:\s]+([A-Z][a-z]+(?:\s+[A-Z][a-z]+)+)`),
		regexp.MustCompile(`(?i:student\s+name)[:\s]+([A-Z][a-z]+(?:\s+[A-Z][a-z]+)+)`),
		regexp.MustCompile(`(?i:name)[:\s]+([A-Z][a-z]+(?:\s+[A-Z][a-z]+)+)`),
		regexp.MustCompile(`^([A-Z][a-z]+\s+[A-Z][a-z]+)`),
	}

	rollPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)usn[:\s]+([A-Z0-9]+)`),
		regexp.MustCompile(`(?i)university\s+seat\s+number[:\s]+([A-Z0-9]+)`),
		regexp.MustCompile(`(?i)roll\s+no[.:\s]+([A-Z0-9]+)`),
		regexp.MustCompile(`(?i)roll\s+number[:\s]+([A-Z0-9]+)`),
		regexp.MustCompile(`(?i)student\s+id[:\s]+([A-Z0-9]+)`),
		regexp.MustCompile(`(?i)id[:\s]+([A-Z][0-9]{6,})`),
		regexp.MustCompile(`([A-Z][0-9]{6,})`),
	}

	branchPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i:branch)[:\s]+([A-Z][a-zA-Z\s]+)`),
		regexp.MustCompile(`(?i:department)[:\s]+([A-Z][a-zA-Z\s]+)`),
		regexp.MustCompile(`(?i:course)[:\s]+([A-Z][a-zA-Z\s]+)`),
		regexp.MustCompile(`(?i:program)[:\s]+([A-Z][a-zA-Z\s]+)`),
	}

	emailPattern = regexp.MustCompile(`[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}`)

	whitespace = regexp.MustCompile(`\s+`)
)

var teacherKeywords = []string{"faculty", "teacher", "instructor", "professor", "staff", "employee"}
var studentKeywords = []string{"student", "learner", "pupil", "scholar"}

var commonBranches = []string{
	"computer science", "electronics", "mechanical", "civil",
	"electrical", "information technology", "ai", "machine learning",
	"data science", "cyber security", "software engineering",
}

// ParseIDCard runs every extractor over the raw OCR text.
func ParseIDCard(rawText string) IDCardData {
	return IDCardData{
		Role:       DetectRole(rawText),
		FullName:   ExtractName(rawText),
		RollNumber: ExtractRollNumber(rawText),
		Branch:     ExtractBranch(rawText),
		Email:      ExtractEmail(rawText),
		RawText:    rawText,
	}
}

// DetectRole classifies the card holder. Teacher keywords win over student
// keywords; with no signal at all we default to student.
func DetectRole(text string) string {
	lower := strings.ToLower(text)
	for _, kw := range teacherKeywords {
		if strings.Contains(lower, kw) {
			return "teacher"
		}
	}
	for _, kw := range studentKeywords {
		if strings.Contains(lower, kw) {
			return "student"
		}
	}
	return "student"
}

// ExtractName looks for labelled name fields, falling back to a
// capitalized-words pattern at the start of the text.
func ExtractName(text string) string {
	for _, p := range namePatterns {
		if m := p.FindStringSubmatch(text); m != nil {
			name := strings.TrimSpace(m[1])
			if len(strings.Fields(name)) >= 2 {
				return name
			}
		}
	}
	return ""
}

// ExtractRollNumber looks for labelled roll/USN/ID fields, falling back to a
// generic letter-plus-digits pattern.
func ExtractRollNumber(text string) string {
	for _, p := range rollPatterns {
		if m := p.FindStringSubmatch(text); m != nil {
			roll := strings.ToUpper(strings.TrimSpace(m[1]))
			if len(roll) >= 3 && len(roll) <= 20 {
				return roll
			}
		}
	}
	return ""
}

// ExtractBranch looks for a known branch name anywhere in the text first,
// since those are unambiguous, then falls back to labelled department
// fields, whose free-text capture can run into the next field on a card.
func ExtractBranch(text string) string {
	lower := strings.ToLower(text)
	for _, b := range commonBranches {
		if strings.Contains(lower, b) {
			return title(b)
		}
	}
	for _, p := range branchPatterns {
		if m := p.FindStringSubmatch(text); m != nil {
			branch := whitespace.ReplaceAllString(strings.TrimSpace(m[1]), " ")
			if len(branch) <= 100 {
				return title(branch)
			}
		}
	}
	return ""
}

func ExtractEmail(text string) string {
	if m := emailPattern.FindString(text); m != "" {
		return strings.ToLower(m)
	}
	return ""
}

func title(s string) string {
	words := strings.Fields(strings.ToLower(s))
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
