package document

import (
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// Section is one heading-delimited block of a document. Raw holds the exact
// source bytes of the block, heading line included, so concatenating the Raw
// fields of every section reproduces the original content byte for byte.
// Heading and Level are the queryable view of the same block.
type Section struct {
	Heading string `yaml:"heading"`
	Level   int    `yaml:"level"`
	Raw     string `yaml:"raw"`
}

type headingMark struct {
	start int
	level int
	title string
}

// SplitSections derives the structured form of a Markdown document by slicing
// it at top-level headings. Content before the first heading becomes a
// preamble section with an empty heading and level zero.
func SplitSections(content string) []Section {
	if content == "" {
		return nil
	}
	src := []byte(content)
	root := goldmark.New().Parser().Parse(text.NewReader(src))

	var marks []headingMark
	for node := root.FirstChild(); node != nil; node = node.NextSibling() {
		heading, ok := node.(*ast.Heading)
		if !ok || heading.Lines().Len() == 0 {
			continue
		}
		seg := heading.Lines().At(0)
		marks = append(marks, headingMark{
			start: lineStart(src, seg.Start),
			level: heading.Level,
			title: headingTitle(src, heading),
		})
	}

	var sections []Section
	if len(marks) == 0 || marks[0].start > 0 {
		end := len(content)
		if len(marks) > 0 {
			end = marks[0].start
		}
		sections = append(sections, Section{Raw: content[:end]})
	}
	for i, mark := range marks {
		end := len(content)
		if i+1 < len(marks) {
			end = marks[i+1].start
		}
		sections = append(sections, Section{
			Heading: mark.title,
			Level:   mark.level,
			Raw:     content[mark.start:end],
		})
	}
	return sections
}

// JoinSections reassembles document content from its structured form.
func JoinSections(sections []Section) string {
	var b strings.Builder
	for _, section := range sections {
		b.WriteString(section.Raw)
	}
	return b.String()
}

// lineStart walks back from an in-line offset to the start of its line. The
// parser reports heading segments starting after the ATX markers, and the raw
// slice must include them.
func lineStart(src []byte, offset int) int {
	for offset > 0 && src[offset-1] != '\n' {
		offset--
	}
	return offset
}

func headingTitle(src []byte, heading *ast.Heading) string {
	var b strings.Builder
	for i := 0; i < heading.Lines().Len(); i++ {
		seg := heading.Lines().At(i)
		b.Write(seg.Value(src))
	}
	return strings.TrimSpace(b.String())
}
