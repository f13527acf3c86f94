package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"notion2anki/internal/models"
)

func TestEmitterContinuesPastFailures(t *testing.T) {
	sink := &recordingSink{reject: map[string]bool{"two": true}}
	cards := []models.Flashcard{
		{Question: "  one ", Answer: "1\n"},
		{Question: "two", Answer: "2"},
		{Question: "three", Answer: " 3 "},
	}

	res := NewEmitter(nil).Emit(context.Background(), sink, cards)

	assert.Equal(t, EmitResult{Submitted: 3, Succeeded: 2, Failed: 1}, res)
	assert.Equal(t, []models.Flashcard{
		{Question: "one", Answer: "1"},
		{Question: "two", Answer: "2"},
		{Question: "three", Answer: "3"},
	}, sink.got, "cards are trimmed and submitted in order")
}

func TestEmitterEmpty(t *testing.T) {
	sink := &recordingSink{}
	res := NewEmitter(nil).Emit(context.Background(), sink, nil)
	assert.Equal(t, EmitResult{}, res)
	assert.Empty(t, sink.got)
}
