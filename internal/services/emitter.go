package services

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"notion2anki/internal/logger"
	"notion2anki/internal/models"
)

// EmitResult counts the outcome of submitting a batch of cards.
type EmitResult struct {
	Submitted int `json:"submitted"`
	Succeeded int `json:"succeeded"`
	Failed    int `json:"failed"`
}

// Emitter submits cards to a sink sequentially. A failed submission is
// counted and logged; the remaining cards are still submitted.
type Emitter struct {
	log *zap.Logger
}

func NewEmitter(log *zap.Logger) *Emitter {
	return &Emitter{log: logger.OrNop(log)}
}

func (e *Emitter) Emit(ctx context.Context, sink CardSink, cards []models.Flashcard) EmitResult {
	var res EmitResult
	for _, card := range cards {
		card.Question = strings.TrimSpace(card.Question)
		card.Answer = strings.TrimSpace(card.Answer)

		res.Submitted++
		if err := sink.AddCard(ctx, card); err != nil {
			res.Failed++
			e.log.Warn("failed to add card", zap.String("question", card.Question), zap.Error(err))
			continue
		}
		res.Succeeded++
	}
	return res
}
