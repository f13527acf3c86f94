package extract

import (
	"strings"

	"notion2anki/internal/render"
)

// Kind classifies a rendered line.
type Kind int

const (
	FreeText Kind = iota
	Question
	Answer
	FenceToggle
)

func (k Kind) String() string {
	switch k {
	case Question:
		return "question"
	case Answer:
		return "answer"
	case FenceToggle:
		return "fence"
	default:
		return "text"
	}
}

// Marker is a literal line prefix and the kind of line it opens.
type Marker struct {
	Prefix string
	Kind   Kind
}

// Markers is checked in order against the trimmed line; the first match wins.
var Markers = []Marker{
	{"问题:", Question},
	{"问题：", Question},
	{"Question:", Question},
	{"Question：", Question},
	{"答案:", Answer},
	{"答案：", Answer},
	{"Answer:", Answer},
	{"Answer：", Answer},
	{"回答:", Answer},
	{"回答：", Answer},
}

// Line is a classified line. Text is the trimmed content with any marker removed.
type Line struct {
	Kind Kind
	Text string
}

// Classify trims raw and matches it against the marker table, then the fence delimiter.
func Classify(raw string) Line {
	line := strings.TrimSpace(raw)
	for _, m := range Markers {
		if rest, ok := strings.CutPrefix(line, m.Prefix); ok {
			return Line{Kind: m.Kind, Text: strings.TrimSpace(rest)}
		}
	}
	if isFence(line) {
		return Line{Kind: FenceToggle}
	}
	return Line{Kind: FreeText, Text: line}
}

// isFence reports whether line opens or closes a fence: exactly three
// backticks, optionally followed by a language tag.
func isFence(line string) bool {
	rest, ok := strings.CutPrefix(line, render.Fence)
	return ok && !strings.HasPrefix(rest, "`")
}
