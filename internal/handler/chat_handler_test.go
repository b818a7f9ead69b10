package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fashion-auth/internal/chat"
	"fashion-auth/pkg/logger"
)

func postChat(t *testing.T, h *ChatHandler, messages []chat.Message) *httptest.ResponseRecorder {
	t.Helper()

	body, err := json.Marshal(ChatRequest{Messages: messages})
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	h.Respond(rec, httptest.NewRequest(http.MethodPost, "/functions/chat", bytes.NewReader(body)))
	return rec
}

func TestChat_CannedReplyWithoutUpstream(t *testing.T) {
	fx := newHandlerFixture(t)
	fx.container.ChatRNG = chat.NewRNG(1)
	h := NewChatHandler(fx.container)

	rec := postChat(t, h, []chat.Message{{Role: "user", Content: "What should I wear today?"}})

	require.Equal(t, http.StatusOK, rec.Code)

	var resp ChatResponse
	decodeData(t, rec, &resp)
	assert.NotEmpty(t, resp.Reply)
}

func TestChat_KeywordReplyIsDeterministic(t *testing.T) {
	fx := newHandlerFixture(t)
	fx.container.ChatRNG = chat.NewRNG(1)
	h := NewChatHandler(fx.container)

	rec := postChat(t, h, []chat.Message{{Role: "user", Content: "I need an outfit for a wedding"}})

	require.Equal(t, http.StatusOK, rec.Code)

	var resp ChatResponse
	decodeData(t, rec, &resp)
	assert.Equal(t, chat.Respond([]chat.Message{{Role: "user", Content: "wedding"}}, chat.NewRNG(1)), resp.Reply)
}

func TestChat_ConcurrentFallbackRequests(t *testing.T) {
	fx := newHandlerFixture(t)
	fx.container.ChatRNG = chat.NewRNG(1)
	h := NewChatHandler(fx.container)

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				rec := postChat(t, h, []chat.Message{{Role: "user", Content: "What should I wear today?"}})
				assert.Equal(t, http.StatusOK, rec.Code)
			}
		}()
	}
	wg.Wait()
}

func TestChat_UpstreamFailureFallsBackToCanned(t *testing.T) {
	fx := newHandlerFixture(t)
	fx.container.ChatRNG = chat.NewRNG(1)
	// Points at nothing; the forward fails and the canned reply takes over
	fx.container.ChatProxy = chat.NewProxy("http://127.0.0.1:1", "key", 100, logger.NewNop())
	h := NewChatHandler(fx.container)

	rec := postChat(t, h, []chat.Message{{Role: "user", Content: "Rainy day look?"}})

	require.Equal(t, http.StatusOK, rec.Code)

	var resp ChatResponse
	decodeData(t, rec, &resp)
	assert.NotEmpty(t, resp.Reply)
}

func TestChat_EmptyHistoryIsRejected(t *testing.T) {
	fx := newHandlerFixture(t)
	h := NewChatHandler(fx.container)

	rec := postChat(t, h, nil)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
