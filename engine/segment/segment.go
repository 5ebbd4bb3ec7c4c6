// Package segment splits raw markdown into retrieval-sized chunks with
// stable provenance metadata. It is a pure transformation: no I/O, and any
// input (including malformed markdown) yields a deterministic chunk list.
package segment

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/unicitykb/ragserve/engine/domain"
)

const (
	// DefaultMaxChunkSize is the target upper bound on chunk length.
	DefaultMaxChunkSize = 1500
	// DefaultOverlap is the number of trailing characters carried from a
	// chunk into its successor when a section is split by size.
	DefaultOverlap = 200
)

// Options configures the segmenter. Zero values fall back to the defaults.
type Options struct {
	MaxChunkSize int
	Overlap      int
}

var (
	frontMatterRe = regexp.MustCompile(`(?s)^---\n.*?\n---\n`)
	headerRe      = regexp.MustCompile(`^#{1,4}\s`)
	titleRe       = regexp.MustCompile(`^#{1,4}\s+(.*?)(?:\s*\{.*?\})?\s*$`)
	paragraphRe   = regexp.MustCompile(`\n\n+`)
)

// Segment splits markdown text into ordered chunks. Sections are cut at
// header boundaries (1-4 '#' characters); a section longer than
// MaxChunkSize is packed paragraph by paragraph, each continuation chunk
// seeded with the tail of its predecessor for retrieval continuity.
func Segment(text, source string, opts Options) []domain.Chunk {
	maxSize := opts.MaxChunkSize
	if maxSize <= 0 {
		maxSize = DefaultMaxChunkSize
	}
	overlap := opts.Overlap
	if overlap < 0 {
		overlap = 0
	}

	text = frontMatterRe.ReplaceAllString(text, "")

	var chunks []domain.Chunk
	for _, section := range splitSections(text) {
		section = strings.TrimSpace(section)
		if section == "" {
			continue
		}
		title := sectionTitle(section)

		if len(section) <= maxSize {
			chunks = append(chunks, newChunk(section, source, title))
			continue
		}
		chunks = append(chunks, packParagraphs(section, source, title, maxSize, overlap)...)
	}
	return chunks
}

// splitSections cuts text at every newline immediately preceding a markdown
// header line. Text before the first header is its own section.
func splitSections(text string) []string {
	lines := strings.SplitAfter(text, "\n")
	var sections []string
	var cur strings.Builder
	for _, line := range lines {
		if cur.Len() > 0 && isHeaderLine(line) {
			sections = append(sections, cur.String())
			cur.Reset()
		}
		cur.WriteString(line)
	}
	if cur.Len() > 0 {
		sections = append(sections, cur.String())
	}
	return sections
}

func isHeaderLine(line string) bool {
	if !strings.HasSuffix(line, "\n") {
		line += "\n"
	}
	return headerRe.MatchString(line)
}

// sectionTitle extracts the title from the section's leading header line,
// stripping the markers and any trailing {...} attribute annotation.
// Sections that do not start with a header have no title.
func sectionTitle(section string) string {
	firstLine := section
	if i := strings.IndexByte(section, '\n'); i >= 0 {
		firstLine = section[:i]
	}
	m := titleRe.FindStringSubmatch(firstLine)
	if m == nil {
		return ""
	}
	return strings.TrimSpace(m[1])
}

// packParagraphs greedily packs the section's paragraphs into chunks no
// longer than maxSize, except when a single paragraph alone exceeds it
// (paragraphs are never split internally).
func packParagraphs(section, source, title string, maxSize, overlap int) []domain.Chunk {
	var chunks []domain.Chunk
	var current string
	for _, para := range paragraphRe.Split(section, -1) {
		if len(current)+len(para) > maxSize && current != "" {
			chunks = append(chunks, newChunk(strings.TrimSpace(current), source, title))
			if overlap > 0 && len(current) > overlap {
				current = overlapTail(current, overlap) + "\n\n" + para
			} else {
				current = para
			}
			continue
		}
		if current == "" {
			current = para
		} else {
			current = current + "\n\n" + para
		}
	}
	if strings.TrimSpace(current) != "" {
		chunks = append(chunks, newChunk(strings.TrimSpace(current), source, title))
	}
	return chunks
}

// overlapTail returns the last n bytes of s, advanced to the next rune
// boundary so the seed never starts mid-rune.
func overlapTail(s string, n int) string {
	if n >= len(s) {
		return s
	}
	i := len(s) - n
	for i < len(s) && !utf8.RuneStart(s[i]) {
		i++
	}
	return s[i:]
}

func newChunk(raw, source, title string) domain.Chunk {
	meta := domain.ChunkMeta{Source: source, Section: title}
	if images := extractImageRefs(raw); images != "" {
		meta.Images = images
	}
	return domain.Chunk{Text: scrubFigures(raw), Meta: meta}
}
