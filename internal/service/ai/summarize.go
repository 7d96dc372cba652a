package ai

import (
	"context"

	"github.com/zhouzirui/lumi/backend/internal/model/persona"
)

// SummarizeConversation asks the model to rewrite a transcript as a journal
// entry. The whole transcript is the user content; p carries the journal
// instruction and its larger token budget.
func SummarizeConversation(ctx context.Context, c Completer, transcript string, p persona.Persona) Result {
	return c.Complete(ctx, NewRequest(p, transcript))
}
