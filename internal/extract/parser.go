// Package extract finds question/answer flashcards in rendered document text.
//
// Questions open with a marker line such as "问题：" or "Question:", answers
// with "答案：", "Answer:" or "回答：". Lines following an answer marker are
// collected into the answer until the next question or the end of the text.
package extract

import (
	"strings"

	"notion2anki/internal/models"
)

// Options controls which lines are eligible for classification.
type Options struct {
	// FenceOnly restricts classification to lines inside ``` fences.
	// Lines outside a fence are ignored entirely.
	FenceOnly bool
}

// Parser accumulates flashcards one line at a time. A Parser belongs to a
// single parse pass and must not be shared between goroutines.
type Parser struct {
	opts Options

	open     bool
	question string
	answer   strings.Builder
	inFence  bool

	cards []models.Flashcard
}

func NewParser(opts Options) *Parser {
	return &Parser{opts: opts}
}

// Parse splits text into lines and runs them through a fresh Parser.
func Parse(text string, opts Options) []models.Flashcard {
	p := NewParser(opts)
	for _, line := range strings.Split(text, "\n") {
		p.Feed(line)
	}
	return p.Finish()
}

// Feed processes a single line of rendered text.
func (p *Parser) Feed(raw string) {
	line := Classify(raw)
	if line.Kind == FenceToggle {
		p.inFence = !p.inFence
		return
	}
	if p.opts.FenceOnly && !p.inFence {
		return
	}

	switch line.Kind {
	case Question:
		p.flush()
		p.open = true
		p.question = line.Text
	case Answer:
		if !p.open {
			return
		}
		p.separate()
		p.answer.WriteString(line.Text)
		p.answer.WriteByte('\n')
	case FreeText:
		if !p.open || line.Text == "" {
			return
		}
		p.separate()
		p.answer.WriteString(line.Text)
	}
}

// Finish flushes the open question, if complete, and returns every card in
// the order its question marker was seen. The parser is reset afterwards.
func (p *Parser) Finish() []models.Flashcard {
	p.flush()
	cards := p.cards
	p.cards = nil
	p.inFence = false
	return cards
}

// separate puts a single line break between accumulated answer lines.
func (p *Parser) separate() {
	if p.answer.Len() == 0 {
		return
	}
	if !strings.HasSuffix(p.answer.String(), "\n") {
		p.answer.WriteByte('\n')
	}
}

// flush emits the open draft when both sides have content and discards it otherwise.
func (p *Parser) flush() {
	if p.open {
		q := strings.TrimSpace(p.question)
		a := strings.TrimSpace(p.answer.String())
		if q != "" && a != "" {
			p.cards = append(p.cards, models.Flashcard{Question: q, Answer: a})
		}
	}
	p.open = false
	p.question = ""
	p.answer.Reset()
}
