package telegram

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/smartlms/remindbot/internal/logger"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	return NewClient(Config{Token: "test-token", BaseURL: server.URL}, logger.NewNoOp())
}

func TestClient_SendMessage(t *testing.T) {
	t.Run("delivers text with inline keyboard", func(t *testing.T) {
		var payload map[string]any
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			require.Equal(t, "/bottest-token/sendMessage", r.URL.Path)
			require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
			w.Write([]byte(`{"ok":true,"result":{}}`)) // nolint:errcheck
		})

		err := client.SendMessage(t.Context(), 42, "Hi there", InlineButton{Text: "Mute", CallbackData: "mute:7"})

		require.NoError(t, err)
		require.EqualValues(t, 42, payload["chat_id"])
		require.Equal(t, "Hi there", payload["text"])
		require.Contains(t, payload, "reply_markup")
	})

	t.Run("no keyboard when no buttons given", func(t *testing.T) {
		var payload map[string]any
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
			w.Write([]byte(`{"ok":true,"result":{}}`)) // nolint:errcheck
		})

		err := client.SendMessage(t.Context(), 42, "Hi there")

		require.NoError(t, err)
		require.NotContains(t, payload, "reply_markup")
	})

	t.Run("blocked recipient maps to CodeBlocked", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"ok":false,"error_code":403,"description":"Forbidden: bot was blocked by the user"}`)) // nolint:errcheck
		})

		err := client.SendMessage(t.Context(), 42, "Hi there")

		var botErr *Error
		require.ErrorAs(t, err, &botErr)
		require.Equal(t, CodeBlocked, botErr.Code)
	})

	t.Run("other api errors map to CodeUnknown", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"ok":false,"error_code":400,"description":"Bad Request: chat not found"}`)) // nolint:errcheck
		})

		err := client.SendMessage(t.Context(), 42, "Hi there")

		var botErr *Error
		require.ErrorAs(t, err, &botErr)
		require.Equal(t, CodeUnknown, botErr.Code)
		require.ErrorContains(t, err, "chat not found")
	})
}

func TestClient_GetUpdates(t *testing.T) {
	t.Run("decodes messages and callbacks", func(t *testing.T) {
		var payload map[string]any
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			require.Equal(t, "/bottest-token/getUpdates", r.URL.Path)
			require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
			w.Write([]byte(`{"ok":true,"result":[
				{"update_id":100,"message":{"message_id":1,"from":{"id":42},"chat":{"id":42},"text":"/start"}},
				{"update_id":101,"callback_query":{"id":"cb1","from":{"id":42},"data":"mute:7","message":{"message_id":2,"chat":{"id":42}}}}
			]}`)) // nolint:errcheck
		})

		updates, err := client.GetUpdates(t.Context(), 100, 30*time.Second)

		require.NoError(t, err)
		require.EqualValues(t, 100, payload["offset"])
		require.EqualValues(t, 30, payload["timeout"])
		require.Len(t, updates, 2)
		require.Equal(t, "/start", updates[0].Message.Text)
		require.Nil(t, updates[0].CallbackQuery)
		require.Equal(t, "mute:7", updates[1].CallbackQuery.Data)
	})
}

func TestClient_AnswerCallback(t *testing.T) {
	var payload map[string]any
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/bottest-token/answerCallbackQuery", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		w.Write([]byte(`{"ok":true,"result":true}`)) // nolint:errcheck
	})

	err := client.AnswerCallback(t.Context(), "cb1")

	require.NoError(t, err)
	require.Equal(t, "cb1", payload["callback_query_id"])
}
