package notify

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTelegramAnnouncerSendsToChat(t *testing.T) {
	var sent []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch {
		case strings.HasSuffix(r.URL.Path, "/getMe"):
			_, _ = w.Write([]byte(`{"ok":true,"result":{"id":1,"is_bot":true,"first_name":"pickup","username":"pickup_bot"}}`))
		case strings.HasSuffix(r.URL.Path, "/sendMessage"):
			require.NoError(t, r.ParseForm())
			assert.Equal(t, "-100200", r.PostForm.Get("chat_id"))
			sent = append(sent, r.PostForm.Get("text"))
			_, _ = w.Write([]byte(`{"ok":true,"result":{"message_id":5,"date":0,"chat":{"id":-100200,"type":"group"}}}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	a, err := newTelegramAnnouncer("tok", -100200, srv.URL+"/bot%s/%s")
	require.NoError(t, err)

	require.NoError(t, a.Announce(context.Background(), "new pending request in zone Centro"))
	assert.Equal(t, []string{"new pending request in zone Centro"}, sent)
}

func TestTelegramAnnouncerRequiresChat(t *testing.T) {
	_, err := newTelegramAnnouncer("tok", 0, "http://unused/bot%s/%s")
	assert.Error(t, err)
}
