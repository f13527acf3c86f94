package extract

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"notion2anki/internal/models"
	"notion2anki/internal/render"
)

func lines(ls ...string) string {
	return strings.Join(ls, "\n")
}

func TestParseScenario(t *testing.T) {
	text := lines(
		"问题：What is 2+2?",
		"答案：4",
		"",
		"问题：Name a primary color.",
		"答案：Red",
		"It is also a stop-light color.",
	)

	cards := Parse(text, Options{})
	assert.Equal(t, []models.Flashcard{
		{Question: "What is 2+2?", Answer: "4"},
		{Question: "Name a primary color.", Answer: "Red\nIt is also a stop-light color."},
	}, cards)
}

func TestParseKeepsQuestionOrder(t *testing.T) {
	var b strings.Builder
	for _, q := range []string{"Q1", "Q2", "Q3", "Q4"} {
		b.WriteString("Question: " + q + "\nAnswer: a-" + q + "\n\n")
	}

	cards := Parse(b.String(), Options{})
	require.Len(t, cards, 4)
	for i, q := range []string{"Q1", "Q2", "Q3", "Q4"} {
		assert.Equal(t, q, cards[i].Question)
		assert.Equal(t, "a-"+q, cards[i].Answer)
	}
}

func TestParseDiscardsQuestionWithoutAnswer(t *testing.T) {
	text := lines(
		"问题: first",
		"问题: second",
		"答案: only the second has an answer",
	)

	cards := Parse(text, Options{})
	assert.Equal(t, []models.Flashcard{
		{Question: "second", Answer: "only the second has an answer"},
	}, cards)
}

func TestParseMultiLineAnswer(t *testing.T) {
	text := lines(
		"问题: What is X?",
		"答案: It is",
		"a value.",
	)

	cards := Parse(text, Options{})
	require.Len(t, cards, 1)
	assert.Equal(t, "It is\na value.", cards[0].Answer)
}

func TestParseFenceGated(t *testing.T) {
	t.Run("question outside fence is ignored", func(t *testing.T) {
		text := lines(
			"问题: outside",
			"```",
			"答案: inside",
			"```",
		)
		assert.Empty(t, Parse(text, Options{FenceOnly: true}))
	})

	t.Run("cards inside fences are found", func(t *testing.T) {
		text := lines(
			"Intro paragraph",
			"```text",
			"Question: inside?",
			"Answer: yes",
			"```",
			"trailing prose is not part of the answer",
		)
		assert.Equal(t, []models.Flashcard{{Question: "inside?", Answer: "yes"}},
			Parse(text, Options{FenceOnly: true}))
	})

	t.Run("unrestricted mode sees every line", func(t *testing.T) {
		text := lines(
			"问题: outside",
			"```",
			"答案: inside",
			"```",
		)
		assert.Equal(t, []models.Flashcard{{Question: "outside", Answer: "inside"}},
			Parse(text, Options{}))
	})

	t.Run("question stays open across fences", func(t *testing.T) {
		text := lines(
			"```",
			"问题: split",
			"```",
			"prose between fences",
			"```",
			"答案: joined",
			"```",
		)
		assert.Equal(t, []models.Flashcard{{Question: "split", Answer: "joined"}},
			Parse(text, Options{FenceOnly: true}))
	})
}

func TestParseMarkerVariants(t *testing.T) {
	questions := []string{"问题:", "问题：", "Question:", "Question："}
	answers := []string{"答案:", "答案：", "Answer:", "Answer：", "回答:", "回答："}

	for _, q := range questions {
		for _, a := range answers {
			t.Run(q+a, func(t *testing.T) {
				cards := Parse(q+" front\n"+a+" back", Options{})
				assert.Equal(t, []models.Flashcard{{Question: "front", Answer: "back"}}, cards)
			})
		}
	}
}

func TestParseFlushesAtEndOfDocument(t *testing.T) {
	cards := Parse("问题：last\n答案：final answer", Options{})
	assert.Equal(t, []models.Flashcard{{Question: "last", Answer: "final answer"}}, cards)
}

func TestParseEdgeCases(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []models.Flashcard
	}{
		{
			name: "answer without question is ignored",
			text: lines("答案: orphan", "问题: q", "答案: a"),
			want: []models.Flashcard{{Question: "q", Answer: "a"}},
		},
		{
			name: "free text before any question is ignored",
			text: lines("# Heading", "", "Some prose", "问题: q", "答案: a"),
			want: []models.Flashcard{{Question: "q", Answer: "a"}},
		},
		{
			name: "trailing question without answer is discarded",
			text: lines("问题: q", "答案: a", "问题: dangling"),
			want: []models.Flashcard{{Question: "q", Answer: "a"}},
		},
		{
			name: "empty question is discarded",
			text: lines("问题:", "答案: a"),
			want: nil,
		},
		{
			name: "empty answer marker keeps the following line",
			text: lines("问题: q", "答案:", "on the next line"),
			want: []models.Flashcard{{Question: "q", Answer: "on the next line"}},
		},
		{
			name: "blank lines do not close the question",
			text: lines("问题: q", "答案: first", "", "", "second"),
			want: []models.Flashcard{{Question: "q", Answer: "first\nsecond"}},
		},
		{
			name: "free text before answer marker is part of the answer",
			text: lines("问题: q", "context", "答案: a"),
			want: []models.Flashcard{{Question: "q", Answer: "context\na"}},
		},
		{
			name: "repeated answer markers accumulate",
			text: lines("问题: q", "答案: one", "回答: two"),
			want: []models.Flashcard{{Question: "q", Answer: "one\ntwo"}},
		},
		{
			name: "crlf line endings",
			text: "问题：q\r\n答案：a\r\nmore\r\n",
			want: []models.Flashcard{{Question: "q", Answer: "a\nmore"}},
		},
		{
			name: "indented markers",
			text: lines("   Question:   padded  ", "\tAnswer:  value  "),
			want: []models.Flashcard{{Question: "padded", Answer: "value"}},
		},
		{
			name: "markers are case sensitive",
			text: lines("question: lower", "answer: lower", "Question: upper", "Answer: upper"),
			want: []models.Flashcard{{Question: "upper", Answer: "upper"}},
		},
		{
			name: "fence lines never reach the answer",
			text: lines("问题: q", "答案: a", "```", "code line", "```"),
			want: []models.Flashcard{{Question: "q", Answer: "a\ncode line"}},
		},
		{
			name: "four backticks are ordinary text",
			text: lines("问题: q", "答案: a", "````"),
			want: []models.Flashcard{{Question: "q", Answer: "a\n````"}},
		},
		{
			name: "empty document",
			text: "",
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Parse(tt.text, Options{}))
		})
	}
}

func TestParserFeedAndFinish(t *testing.T) {
	p := NewParser(Options{})
	p.Feed("问题: one")
	p.Feed("答案: 1")
	p.Feed("问题: two")
	p.Feed("答案: 2")

	assert.Equal(t, []models.Flashcard{
		{Question: "one", Answer: "1"},
		{Question: "two", Answer: "2"},
	}, p.Finish())

	// Finish resets the parser for reuse.
	assert.Empty(t, p.Finish())
	p.Feed("问题: three")
	p.Feed("答案: 3")
	assert.Equal(t, []models.Flashcard{{Question: "three", Answer: "3"}}, p.Finish())
}

func TestParseRenderedBlocks(t *testing.T) {
	blocks := []models.Block{
		models.Text(models.BlockHeading1, "Chapter 1"),
		models.Text(models.BlockParagraph, "问题：What is 2+2?"),
		models.Text(models.BlockParagraph, "答案：4"),
		{Type: models.BlockCode, Language: "markdown", RichText: []models.RichText{
			{PlainText: "Question: In a fence?\n"},
			{PlainText: "Answer: Yes\nstill yes"},
		}},
		models.Text(models.BlockBulletItem, "a trailing bullet"),
	}
	text := render.Render(blocks)

	assert.Equal(t, []models.Flashcard{
		{Question: "What is 2+2?", Answer: "4"},
		{Question: "In a fence?", Answer: "Yes\nstill yes\n- a trailing bullet"},
	}, Parse(text, Options{}))

	assert.Equal(t, []models.Flashcard{
		{Question: "In a fence?", Answer: "Yes\nstill yes"},
	}, Parse(text, Options{FenceOnly: true}))
}

func TestClassify(t *testing.T) {
	tests := []struct {
		raw  string
		want Line
	}{
		{"问题：q", Line{Question, "q"}},
		{"  Answer:   a  ", Line{Answer, "a"}},
		{"回答：", Line{Answer, ""}},
		{"```", Line{FenceToggle, ""}},
		{"```go", Line{FenceToggle, ""}},
		{"  ```plain text", Line{FenceToggle, ""}},
		{"````", Line{FreeText, "````"}},
		{"``inline``", Line{FreeText, "``inline``"}},
		{"   ", Line{FreeText, ""}},
		{"prose 问题: not a prefix", Line{FreeText, "prose 问题: not a prefix"}},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.raw))
		})
	}
}
