package handler

import (
	"bufio"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oneteam-ai/go-rag-chatbot/internal/domain"
)

func TestWriteEventFramesSSE(t *testing.T) {
	var sb strings.Builder
	w := bufio.NewWriter(&sb)

	require.NoError(t, writeEvent(w, domain.AnswerEvent("hello")))
	require.NoError(t, writeEvent(w, domain.DoneEvent()))

	got := sb.String()
	assert.Equal(t,
		"data: {\"event\":\"answer\",\"content\":\"hello\"}\n\n"+
			"data: {\"event\":\"done\"}\n\n",
		got)
}

func TestWriteEventFlushesEachFrame(t *testing.T) {
	var sb strings.Builder
	w := bufio.NewWriter(&sb)

	require.NoError(t, writeEvent(w, domain.ErrorEvent("boom")))

	// Visible without a later flush: each frame must reach the client as
	// soon as it is written.
	assert.Contains(t, sb.String(), `"event":"error"`)
}
