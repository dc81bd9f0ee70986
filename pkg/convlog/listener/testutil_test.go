package listener_test

import (
	"context"
	"testing"

	"github.com/randalmurphal/convlog/pkg/convlog"
	"github.com/randalmurphal/convlog/pkg/convlog/logstore"
	"github.com/stretchr/testify/require"
)

func input(conversationID, text string) convlog.Utterance {
	return convlog.Utterance{ConversationID: conversationID, Data: convlog.Text(text)}
}

func output(conversationID, contextID, text string) convlog.Utterance {
	return convlog.Utterance{ConversationID: conversationID, ContextID: contextID, Data: convlog.Wrapped(text)}
}

func score(conversationID, contextID, value string) convlog.Utterance {
	return convlog.Utterance{ConversationID: conversationID, ContextID: contextID, Data: convlog.Text(value)}
}

func batch(c convlog.Channel, us ...convlog.Utterance) convlog.Notification {
	return convlog.Notification{Channel: c, Utterances: us}
}

func linesOf(t *testing.T, store *logstore.MemoryStore, conversationID string) []string {
	t.Helper()
	lines, err := store.Lines(context.Background(), conversationID)
	require.NoError(t, err)
	return lines
}
