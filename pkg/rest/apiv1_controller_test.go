package rest_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smtpsink/smtpsink/pkg/config"
	"github.com/smtpsink/smtpsink/pkg/message"
	"github.com/smtpsink/smtpsink/pkg/msghub"
	"github.com/smtpsink/smtpsink/pkg/rest"
	"github.com/smtpsink/smtpsink/pkg/server/web"
	"github.com/smtpsink/smtpsink/pkg/storage"
	"github.com/smtpsink/smtpsink/pkg/storage/mem"
)

func testRouter(store storage.Store, hub *msghub.Hub) http.Handler {
	web.Initialize(&config.Root{
		Web: config.Web{
			Addr:           "127.0.0.1:0",
			MonitorHistory: 5,
			CORSOrigins:    []string{"*"},
		},
	}, store, hub)
	r := mux.NewRouter()
	rest.SetupRoutes(r.PathPrefix("/api/").Subrouter())
	return r
}

func seedMessage(id string) *message.StoredMessage {
	return &message.StoredMessage{
		ID:         id,
		From:       "sender@example.com",
		To:         []string{"rcpt@example.com"},
		Cc:         []string{},
		Bcc:        []string{},
		Subject:    "subject " + id,
		Body:       "body " + id,
		ReceivedAt: time.Now(),
		RawMessage: "raw " + id,
		Attachments: []*message.Attachment{
			{
				ID:          "att-" + id,
				FileName:    "file.pdf",
				ContentType: "application/pdf",
				Size:        4,
				Data:        []byte{1, 2, 3, 4},
			},
		},
	}
}

func TestMessageListNewestFirst(t *testing.T) {
	store := mem.New(nil)
	store.Add(seedMessage("m1"))
	store.Add(seedMessage("m2"))
	router := testRouter(store, nil)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("GET", "/api/v1/messages", nil))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "application/json")
	var msgs []*message.StoredMessage
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &msgs))
	require.Len(t, msgs, 2)
	assert.Equal(t, "m2", msgs[0].ID)
	assert.Equal(t, "m1", msgs[1].ID)
	// Attachment metadata is present but payload bytes are not serialized.
	require.Len(t, msgs[0].Attachments, 1)
	assert.Empty(t, msgs[0].Attachments[0].Data)
	assert.NotContains(t, w.Body.String(), `"data"`)
}

func TestMessageShow(t *testing.T) {
	store := mem.New(nil)
	store.Add(seedMessage("m1"))
	router := testRouter(store, nil)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("GET", "/api/v1/messages/m1", nil))
	require.Equal(t, http.StatusOK, w.Code)
	var msg message.StoredMessage
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &msg))
	assert.Equal(t, "m1", msg.ID)
	assert.Equal(t, "subject m1", msg.Subject)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("GET", "/api/v1/messages/nope", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestMessageSource(t *testing.T) {
	store := mem.New(nil)
	store.Add(seedMessage("m1"))
	router := testRouter(store, nil)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("GET", "/api/v1/messages/m1/source", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/plain")
	assert.Equal(t, "raw m1", w.Body.String())
}

func TestMessageHTMLSanitized(t *testing.T) {
	store := mem.New(nil)
	msg := seedMessage("m1")
	msg.Body = `<p>hello</p><script>alert("x")</script>`
	store.Add(msg)
	router := testRouter(store, nil)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("GET", "/api/v1/messages/m1/html", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, w.Body.String(), "<p>hello</p>")
	assert.NotContains(t, w.Body.String(), "script")
}

func TestAttachmentDownload(t *testing.T) {
	store := mem.New(nil)
	store.Add(seedMessage("m1"))
	router := testRouter(store, nil)

	w := httptest.NewRecorder()
	router.ServeHTTP(w,
		httptest.NewRequest("GET", "/api/v1/messages/m1/attachments/att-m1", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, `attachment; filename="file.pdf"`,
		w.Header().Get("Content-Disposition"))
	assert.Equal(t, "application/pdf", w.Header().Get("Content-Type"))
	assert.Equal(t, []byte{1, 2, 3, 4}, w.Body.Bytes())
}

func TestAttachmentDownloadMismatch(t *testing.T) {
	store := mem.New(nil)
	store.Add(seedMessage("m1"))
	store.Add(seedMessage("m2"))
	router := testRouter(store, nil)

	for _, path := range []string{
		"/api/v1/messages/m1/attachments/att-m2",
		"/api/v1/messages/nope/attachments/att-m1",
		"/api/v1/messages/m1/attachments/nope",
	} {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest("GET", path, nil))
		assert.Equal(t, http.StatusNotFound, w.Code, path)
	}
}

func TestMessageDelete(t *testing.T) {
	store := mem.New(nil)
	store.Add(seedMessage("m1"))
	router := testRouter(store, nil)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("DELETE", "/api/v1/messages/m1", nil))
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Nil(t, store.Get("m1"))

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("DELETE", "/api/v1/messages/m1", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestMessagePurge(t *testing.T) {
	store := mem.New(nil)
	store.Add(seedMessage("m1"))
	store.Add(seedMessage("m2"))
	router := testRouter(store, nil)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("DELETE", "/api/v1/messages", nil))
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Empty(t, store.All())
}

func TestMonitorSocketReceivesCaptures(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	hub := msghub.New(5)
	go hub.Start(ctx)
	store := mem.New(hub)
	srv := httptest.NewServer(testRouter(store, hub))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/v1/monitor/messages"
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	if resp != nil {
		defer resp.Body.Close()
	}
	defer conn.Close()

	// Give the handler time to register its hub listener, then flush.
	time.Sleep(200 * time.Millisecond)
	hub.Sync()

	store.Add(seedMessage("m1"))
	hub.Sync()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	_, payload, err := conn.ReadMessage()
	require.NoError(t, err)
	var msg message.StoredMessage
	require.NoError(t, json.Unmarshal(payload, &msg))
	assert.Equal(t, "m1", msg.ID)
	assert.Equal(t, "subject m1", msg.Subject)
}
