package gmailclient

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"
)

type capturedSend struct {
	path string
	raw  string
}

func newTestClient(t *testing.T, status int) (*Client, func() []capturedSend) {
	t.Helper()
	var mu sync.Mutex
	var sends []capturedSend

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var msg struct {
			Raw string `json:"raw"`
		}
		_ = json.NewDecoder(r.Body).Decode(&msg)
		mu.Lock()
		sends = append(sends, capturedSend{path: r.URL.Path, raw: msg.Raw})
		mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(`{"id":"msg-1"}`))
	}))
	t.Cleanup(srv.Close)

	client, err := NewClient(context.Background(), srv.Client(), "", option.WithEndpoint(srv.URL+"/"))
	require.NoError(t, err)
	client.interval = 10 * time.Millisecond

	return client, func() []capturedSend {
		mu.Lock()
		defer mu.Unlock()
		return append([]capturedSend(nil), sends...)
	}
}

func TestSendEmail(t *testing.T) {
	client, sends := newTestClient(t, http.StatusOK)

	err := client.SendEmail("coordinator@example.org", "Unassigned bookings", "line one\nline two")
	require.NoError(t, err)

	got := sends()
	require.Len(t, got, 1)
	assert.Equal(t, "/gmail/v1/users/me/messages/send", got[0].path)

	decoded, err := base64.URLEncoding.DecodeString(got[0].raw)
	require.NoError(t, err)
	assert.Contains(t, string(decoded), "To: coordinator@example.org\r\n")
	assert.Contains(t, string(decoded), "Subject: Unassigned bookings\r\n")
	assert.Contains(t, string(decoded), "line one\r\nline two")
}

func TestSendEmail_Throttles(t *testing.T) {
	client, sends := newTestClient(t, http.StatusOK)
	client.interval = 50 * time.Millisecond

	start := time.Now()
	require.NoError(t, client.SendEmail("a@example.org", "one", "body"))
	require.NoError(t, client.SendEmail("b@example.org", "two", "body"))

	assert.GreaterOrEqual(t, time.Since(start), 50*time.Millisecond)
	assert.Len(t, sends(), 2)
}

func TestSendEmail_APIError(t *testing.T) {
	client, _ := newTestClient(t, http.StatusForbidden)

	err := client.SendEmail("coordinator@example.org", "subject", "body")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to send email")
}
