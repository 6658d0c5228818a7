package ingest

import (
	"regexp"
	"strings"
)

// Contact holds the structured fields extracted from a resume's text.
type Contact struct {
	Name    string
	Email   string
	Phone   string
	Role    string
	Skills  string
	Company string
}

var (
	emailRe = regexp.MustCompile(`[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}`)
	// phoneRe accepts international prefixes and common separators;
	// requires at least 10 digits total to avoid matching years or ids.
	phoneRe = regexp.MustCompile(`(\+?\d[\d\s\-().]{8,}\d)`)

	skillsLabelRe  = regexp.MustCompile(`(?im)^\s*(?:technical\s+)?skills?\s*[:\-]\s*(.+)$`)
	roleLabelRe    = regexp.MustCompile(`(?im)^\s*(?:role|designation|position|title)\s*[:\-]\s*(.+)$`)
	companyLabelRe = regexp.MustCompile(`(?im)^\s*(?:current\s+)?(?:company|employer|organization)\s*[:\-]\s*(.+)$`)
	nameLabelRe    = regexp.MustCompile(`(?im)^\s*name\s*[:\-]\s*(.+)$`)
)

// roleTitleWords marks lines that look like a job title when no labelled
// role line exists.
var roleTitleWords = []string{
	"engineer", "developer", "architect", "analyst", "consultant",
	"manager", "lead", "designer", "administrator", "scientist", "tester",
}

// ExtractContact pulls contact fields out of resume text with labelled-line
// and positional heuristics. Missing fields stay empty; extraction never
// fails.
func ExtractContact(text string) Contact {
	var c Contact

	c.Email = emailRe.FindString(text)
	if m := phoneRe.FindString(text); m != "" {
		if digits := countDigits(m); digits >= 10 && digits <= 15 {
			c.Phone = strings.TrimSpace(m)
		}
	}

	if m := nameLabelRe.FindStringSubmatch(text); m != nil {
		c.Name = strings.TrimSpace(m[1])
	}
	if m := skillsLabelRe.FindStringSubmatch(text); m != nil {
		c.Skills = strings.TrimSpace(m[1])
	}
	if m := roleLabelRe.FindStringSubmatch(text); m != nil {
		c.Role = strings.TrimSpace(m[1])
	}
	if m := companyLabelRe.FindStringSubmatch(text); m != nil {
		c.Company = strings.TrimSpace(m[1])
	}

	lines := nonEmptyLines(text, 10)
	if c.Name == "" {
		c.Name = guessName(lines)
	}
	if c.Role == "" {
		c.Role = guessRole(lines)
	}
	return c
}

// guessName takes the first short line near the top that is not an email,
// phone, or heading.
func guessName(lines []string) string {
	for _, line := range lines {
		if len(line) > 60 {
			continue
		}
		lower := strings.ToLower(line)
		if strings.Contains(line, "@") || strings.Contains(lower, "resume") ||
			strings.Contains(lower, "curriculum") {
			continue
		}
		if countDigits(line) > 2 {
			continue
		}
		words := strings.Fields(line)
		if len(words) >= 1 && len(words) <= 4 {
			return line
		}
	}
	return ""
}

// guessRole takes the first top line containing a job-title word.
func guessRole(lines []string) string {
	for _, line := range lines {
		if len(line) > 80 {
			continue
		}
		lower := strings.ToLower(line)
		for _, w := range roleTitleWords {
			if strings.Contains(lower, w) {
				return line
			}
		}
	}
	return ""
}

func nonEmptyLines(text string, max int) []string {
	var out []string
	for _, line := range strings.Split(text, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			out = append(out, line)
			if len(out) == max {
				break
			}
		}
	}
	return out
}

func countDigits(s string) int {
	n := 0
	for _, r := range s {
		if r >= '0' && r <= '9' {
			n++
		}
	}
	return n
}
