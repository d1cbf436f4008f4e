package convo

import (
	"github.com/mmdelhajj/whatsapp-bot-complete/internal/ai"
	"github.com/mmdelhajj/whatsapp-bot-complete/internal/repo"
)

// buildTurns converts stored history into role-tagged turns, oldest first,
// with the current inbound text appended as the final user turn. A leading
// assistant turn is dropped because the completion API requires the
// transcript to open with the user.
func buildTurns(history []repo.Message, current string) []ai.Turn {
	// The current message is persisted before the handlers run, so it may
	// already sit at the end of the history.
	if n := len(history); n > 0 && history[n-1].Direction == repo.DirectionReceived && history[n-1].Text == current {
		history = history[:n-1]
	}

	turns := make([]ai.Turn, 0, len(history)+1)
	for _, msg := range history {
		role := ai.RoleUser
		if msg.Direction == repo.DirectionSent {
			role = ai.RoleAssistant
		}
		if len(turns) == 0 && role == ai.RoleAssistant {
			continue
		}
		turns = append(turns, ai.Turn{Role: role, Content: msg.Text})
	}
	return append(turns, ai.Turn{Role: ai.RoleUser, Content: current})
}
