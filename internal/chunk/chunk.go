// Package chunk splits long text into bounded pieces for translation and
// reassembles the translated pieces in their original order.
package chunk

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// MaxChunkChars is the default chunk size in characters. Conservative for
// current models; smaller requests translate more reliably.
const MaxChunkChars = 4500

const (
	paragraphSep = "\n\n"
	sentenceSep  = " "
)

var blankLine = regexp.MustCompile(`\n[ \t]*\n\s*`)

// Split breaks text into chunks of at most maxChunkSize characters.
// Paragraphs are packed greedily; a paragraph that does not fit on its own
// is split into sentences, and a sentence that does not fit into words.
// A single word longer than maxChunkSize is emitted as its own chunk.
// Empty or whitespace-only text yields no chunks.
func Split(text string, maxChunkSize int) []string {
	if maxChunkSize < 1 {
		maxChunkSize = 1
	}
	text = strings.ReplaceAll(text, "\r\n", "\n")
	if strings.TrimSpace(text) == "" {
		return nil
	}

	p := packer{max: maxChunkSize}
	for _, para := range paragraphs(text) {
		if runeLen(para) <= maxChunkSize {
			p.add(para, paragraphSep)
			continue
		}

		p.flush()
		for _, s := range sentences(para) {
			if runeLen(s) <= maxChunkSize {
				p.add(s, sentenceSep)
				continue
			}
			p.flush()
			for _, w := range strings.Fields(s) {
				p.add(w, sentenceSep)
			}
			p.flush()
		}
		p.flush()
	}
	p.flush()

	return p.chunks
}

// Join reassembles chunks in order, separated by paragraph breaks. Each
// chunk is trimmed but keeps its slot, even when empty.
func Join(chunks []string) string {
	parts := make([]string, len(chunks))
	for i, c := range chunks {
		parts[i] = strings.TrimSpace(c)
	}
	return strings.Join(parts, paragraphSep)
}

// packer accumulates units into the current chunk until the next unit
// would overflow it.
type packer struct {
	max     int
	chunks  []string
	current strings.Builder
	size    int
}

func (p *packer) add(unit, sep string) {
	n := runeLen(unit)
	if p.size > 0 && p.size+len(sep)+n > p.max {
		p.flush()
	}
	if p.size > 0 {
		p.current.WriteString(sep)
		p.size += len(sep)
	}
	p.current.WriteString(unit)
	p.size += n
}

func (p *packer) flush() {
	if p.size == 0 {
		return
	}
	p.chunks = append(p.chunks, p.current.String())
	p.current.Reset()
	p.size = 0
}

func paragraphs(text string) []string {
	var out []string
	for _, para := range blankLine.Split(text, -1) {
		if para = strings.TrimSpace(para); para != "" {
			out = append(out, para)
		}
	}
	return out
}

// sentences splits after '.', '!' or '?' when followed by whitespace.
func sentences(text string) []string {
	var out []string
	start := 0
	for i, r := range text {
		if r != '.' && r != '!' && r != '?' {
			continue
		}
		next := i + utf8.RuneLen(r)
		if next >= len(text) {
			break
		}
		nr, _ := utf8.DecodeRuneInString(text[next:])
		if !unicode.IsSpace(nr) {
			continue
		}
		if s := strings.TrimSpace(text[start:next]); s != "" {
			out = append(out, s)
		}
		start = next
	}
	if s := strings.TrimSpace(text[start:]); s != "" {
		out = append(out, s)
	}
	return out
}

func runeLen(s string) int { return utf8.RuneCountInString(s) }
