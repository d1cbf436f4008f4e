package convo

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmdelhajj/whatsapp-bot-complete/internal/ai"
	"github.com/mmdelhajj/whatsapp-bot-complete/internal/repo"
)

func TestBuildTurns(t *testing.T) {
	history := []repo.Message{
		{Direction: repo.DirectionReceived, Text: "مرحبا"},
		{Direction: repo.DirectionSent, Text: "أهلاً! كيف أساعدك؟"},
		{Direction: repo.DirectionReceived, Text: "عندكم كتب؟"},
	}

	turns := buildTurns(history, "كم السعر؟")

	require.Len(t, turns, 4)
	assert.Equal(t, ai.Turn{Role: ai.RoleUser, Content: "مرحبا"}, turns[0])
	assert.Equal(t, ai.Turn{Role: ai.RoleAssistant, Content: "أهلاً! كيف أساعدك؟"}, turns[1])
	assert.Equal(t, ai.Turn{Role: ai.RoleUser, Content: "عندكم كتب؟"}, turns[2])
	assert.Equal(t, ai.Turn{Role: ai.RoleUser, Content: "كم السعر؟"}, turns[3])
}

func TestBuildTurnsDropsLeadingAssistant(t *testing.T) {
	history := []repo.Message{
		{Direction: repo.DirectionSent, Text: "تم استلام طلبك"},
		{Direction: repo.DirectionReceived, Text: "شكراً"},
	}

	turns := buildTurns(history, "سؤال جديد")

	require.Len(t, turns, 2)
	assert.Equal(t, ai.RoleUser, turns[0].Role)
	assert.Equal(t, "شكراً", turns[0].Content)
}

func TestBuildTurnsSkipsAlreadyPersistedCurrent(t *testing.T) {
	history := []repo.Message{
		{Direction: repo.DirectionReceived, Text: "مرحبا"},
		{Direction: repo.DirectionSent, Text: "أهلاً!"},
		{Direction: repo.DirectionReceived, Text: "كم السعر؟"},
	}

	turns := buildTurns(history, "كم السعر؟")

	// The current message must appear exactly once, as the final turn.
	require.Len(t, turns, 3)
	assert.Equal(t, "كم السعر؟", turns[2].Content)
	assert.Equal(t, ai.RoleUser, turns[2].Role)
}

func TestBuildTurnsEmptyHistory(t *testing.T) {
	turns := buildTurns(nil, "أول رسالة")
	require.Len(t, turns, 1)
	assert.Equal(t, ai.Turn{Role: ai.RoleUser, Content: "أول رسالة"}, turns[0])
}
