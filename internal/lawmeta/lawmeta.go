// Package lawmeta derives statute metadata (law name, year, section) from raw
// document text using pattern heuristics. Every extractor is pure and total:
// when a pattern does not match, the documented fallback value is returned and
// the pipeline continues.
package lawmeta

import (
	"regexp"
	"strings"
)

// Fallback values returned when a heuristic finds no match.
const (
	UnknownYear    = "N/A"
	UnknownSection = "General"
	UnknownLaw     = "Unknown Law"
)

// Meta is the extracted metadata for a piece of statute text.
type Meta struct {
	LawName string
	Year    string
	Section string
	Title   string
}

var (
	yearRe    = regexp.MustCompile(`(18|19|20)\d{2}`)
	sectionRe = regexp.MustCompile(`(Section|SECTION|Article|ARTICLE|Clause)\s+(\d+[A-Z]?)`)
	prefixRe  = regexp.MustCompile(`^[a-z0-9]{10,}`)
)

// titleKeywords mark a line as a statute title.
var titleKeywords = []string{"ACT", "ORDINANCE", "CODE", "ORDER", "RULES"}

// Extract runs all heuristics over text. It never fails; unmatched fields hold
// the fallback sentinels.
func Extract(text string) Meta {
	title := Title(text)
	return Meta{
		LawName: title,
		Year:    Year(text),
		Section: Section(text),
		Title:   title,
	}
}

// Year returns the first four-digit year in 1800-2099 within the first 500
// characters, or "N/A".
func Year(text string) string {
	if m := yearRe.FindString(head(text, 500)); m != "" {
		return m
	}
	return UnknownYear
}

// Section returns the number (with optional trailing letter) following the
// first Section/Article/Clause keyword, or "General".
func Section(text string) string {
	if m := sectionRe.FindStringSubmatch(text); m != nil {
		return m[2]
	}
	return UnknownSection
}

// Title returns the first line within the first 1000 characters that is longer
// than 10 characters and contains a statute keyword, truncated to 80
// characters. Without a keyword match it falls back to the first qualifying
// line, then to "Unknown Law".
func Title(text string) string {
	var lines []string
	for _, l := range strings.Split(head(text, 1000), "\n") {
		if l = strings.TrimSpace(l); len(l) > 10 {
			lines = append(lines, l)
		}
	}
	for _, line := range lines {
		upper := strings.ToUpper(line)
		for _, kw := range titleKeywords {
			if strings.Contains(upper, kw) {
				return head(line, 80)
			}
		}
	}
	if len(lines) > 0 {
		return head(lines[0], 80)
	}
	return UnknownLaw
}

// CleanLawName turns a corpus file name into a display name: strips a leading
// hash-like prefix and the file extensions, replaces separators with spaces
// and title-cases the result. An empty result falls back to the file name.
func CleanLawName(filename string) string {
	name := prefixRe.ReplaceAllString(filename, "")
	name = strings.ReplaceAll(name, ".pdf.txt", "")
	name = strings.ReplaceAll(name, ".pdf", "")
	name = strings.ReplaceAll(name, ".txt", "")
	name = strings.ReplaceAll(name, "_", " ")
	name = strings.ReplaceAll(name, "-", " ")
	name = strings.TrimSpace(name)
	if name == "" {
		return filename
	}
	return titleCase(name)
}

func titleCase(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + strings.ToLower(w[1:])
	}
	return strings.Join(words, " ")
}

// head returns the first n characters of s. Character windows, not byte
// windows, so a multi-byte rune is never cut in half.
func head(s string, n int) string {
	if len(s) <= n {
		return s
	}
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
