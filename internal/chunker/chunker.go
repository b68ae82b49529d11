// Package chunker splits raw document text into bounded, overlapping segments
// along semantic separators.
package chunker

import "strings"

// DefaultSeparators is the priority-ordered separator list for statute text:
// paragraph break, line break, section marker, article marker, sentence end,
// word boundary.
var DefaultSeparators = []string{"\n\n", "\n", "Section", "Article", ". ", " "}

// Splitter produces chunks of at most ChunkSize characters, with up to
// ChunkOverlap trailing characters of each chunk repeated at the start of the
// next. A piece with no matching separator is returned whole even when it
// exceeds ChunkSize.
type Splitter struct {
	ChunkSize    int
	ChunkOverlap int
	Separators   []string
}

// New returns a Splitter with the default separator list.
func New(chunkSize, chunkOverlap int) *Splitter {
	return &Splitter{
		ChunkSize:    chunkSize,
		ChunkOverlap: chunkOverlap,
		Separators:   DefaultSeparators,
	}
}

// Split divides text into chunks. It is deterministic: identical input always
// yields identical output. Concatenating the returned chunks with their
// overlap prefixes removed reconstructs the input exactly.
func (s *Splitter) Split(text string) []string {
	if text == "" {
		return nil
	}
	if len(text) <= s.ChunkSize {
		return []string{text}
	}

	pieces := s.splitRecursive(text, s.Separators)
	return s.merge(pieces)
}

// splitRecursive breaks text into atomic pieces none of which exceeds
// ChunkSize, except where no separator applies. Separators stay attached to
// the start of the piece they introduce, so the concatenation of the returned
// pieces equals the input.
func (s *Splitter) splitRecursive(text string, seps []string) []string {
	if len(text) <= s.ChunkSize {
		return []string{text}
	}

	sep, rest := firstMatching(text, seps)
	if sep == "" {
		// Atomic: no separator left. Returned whole rather than truncated.
		return []string{text}
	}

	parts := strings.Split(text, sep)
	var pieces []string
	for i, p := range parts {
		if i > 0 {
			p = sep + p
		}
		if p == "" {
			continue
		}
		if len(p) > s.ChunkSize {
			pieces = append(pieces, s.splitRecursive(p, rest)...)
		} else {
			pieces = append(pieces, p)
		}
	}
	return pieces
}

// firstMatching returns the highest-priority separator present in text and the
// remaining lower-priority separators.
func firstMatching(text string, seps []string) (string, []string) {
	for i, sep := range seps {
		if strings.Contains(text, sep) {
			return sep, seps[i+1:]
		}
	}
	return "", nil
}

// merge greedily combines adjacent pieces up to ChunkSize and prepends the
// overlap tail of the previous chunk to each subsequent one.
func (s *Splitter) merge(pieces []string) []string {
	var chunks []string
	var cur strings.Builder
	overlap := ""

	flush := func() {
		if cur.Len() == 0 {
			return
		}
		chunk := cur.String()
		chunks = append(chunks, chunk)
		cur.Reset()
		n := s.ChunkOverlap
		if n > len(chunk) {
			n = len(chunk)
		}
		overlap = chunk[len(chunk)-n:]
	}

	for _, p := range pieces {
		if cur.Len() == 0 {
			// Seed a fresh chunk with the overlap tail when it leaves room
			// for the piece within the size bound.
			if overlap != "" && len(overlap)+len(p) <= s.ChunkSize {
				cur.WriteString(overlap)
			}
			cur.WriteString(p)
			if cur.Len() >= s.ChunkSize {
				flush()
			}
			continue
		}
		if cur.Len()+len(p) > s.ChunkSize {
			flush()
			if overlap != "" && len(overlap)+len(p) <= s.ChunkSize {
				cur.WriteString(overlap)
			}
			cur.WriteString(p)
			if cur.Len() >= s.ChunkSize {
				flush()
			}
			continue
		}
		cur.WriteString(p)
	}
	flush()

	return chunks
}
