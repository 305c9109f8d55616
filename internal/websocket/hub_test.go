package websocket

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/cleberrangel/task-estimation-api/internal/model"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	gorilla "github.com/gorilla/websocket"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(hub *Hub, sessionID string) *Client {
	return &Client{
		SessionID:   sessionID,
		Send:        make(chan []byte, 10),
		Hub:         hub,
		ConnectedAt: time.Now(),
		LastPing:    time.Now(),
	}
}

// drainWelcomeMessage drains the welcome message sent during client registration
func drainWelcomeMessage(client *Client) {
	select {
	case <-client.Send:
	case <-time.After(100 * time.Millisecond):
	}
}

func receiveProgress(client *Client) (ProgressUpdate, bool) {
	select {
	case msg := <-client.Send:
		var p ProgressUpdate
		if err := json.Unmarshal(msg, &p); err != nil {
			return p, false
		}
		return p, true
	case <-time.After(100 * time.Millisecond):
		return ProgressUpdate{}, false
	}
}

// Para qualquer job em andamento, o update entregue reflete o estado e as tentativas
// e só chega à sessão dona da requisição
func TestWebSocketProgressProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("job progress is delivered with attempts and state", prop.ForAll(
		func(attempts int, failed bool) bool {
			hub := NewHub()
			client := newTestClient(hub, "session-a")
			hub.registerClient(client)
			drainWelcomeMessage(client)

			job := model.AnalysisJob{ID: fmt.Sprintf("job-%d", attempts), State: model.AnalysisPending, Attempts: attempts}
			if failed {
				job.State = model.AnalysisFailed
			}
			hub.SendProgress("session-a", JobProgress(job))

			got, ok := receiveProgress(client)
			if !ok {
				return false
			}
			wantStage := StageExtracting
			if failed {
				wantStage = StageFailed
			}
			return got.Type == "progress" &&
				got.JobID == job.ID &&
				got.Attempts == attempts &&
				got.State == string(job.State) &&
				got.Stage == wantStage &&
				!got.Timestamp.IsZero()
		},
		gen.IntRange(1, 500),
		gen.Bool(),
	))

	properties.Property("messages are delivered only to the target session", prop.ForAll(
		func(target, other int) bool {
			targetID := fmt.Sprintf("s-%d", target)
			otherID := fmt.Sprintf("o-%d", other)

			hub := NewHub()
			targetClient := newTestClient(hub, targetID)
			otherClient := newTestClient(hub, otherID)
			hub.registerClient(targetClient)
			hub.registerClient(otherClient)
			drainWelcomeMessage(targetClient)
			drainWelcomeMessage(otherClient)

			hub.SendProgress(targetID, ProgressUpdate{Stage: StageEstimating})

			_, targetReceived := receiveProgress(targetClient)
			otherReceived := false
			select {
			case <-otherClient.Send:
				otherReceived = true
			case <-time.After(10 * time.Millisecond):
			}
			return targetReceived && !otherReceived
		},
		gen.IntRange(0, 100),
		gen.IntRange(0, 100),
	))

	properties.TestingRun(t)
}

func TestSendProgressWithoutSessionIsNoop(t *testing.T) {
	hub := NewHub()
	client := newTestClient(hub, "")
	hub.registerClient(client)
	drainWelcomeMessage(client)

	hub.SendProgress("", ProgressUpdate{Stage: StageDone})

	select {
	case <-client.Send:
		t.Fatal("empty session must not receive updates")
	case <-time.After(10 * time.Millisecond):
	}
}

func TestConnectionManagement(t *testing.T) {
	hub := NewHub()
	assert.Equal(t, 0, hub.GetConnectionCount())

	c1 := newTestClient(hub, "s1")
	c2 := newTestClient(hub, "s1")
	c3 := newTestClient(hub, "s2")
	hub.registerClient(c1)
	hub.registerClient(c2)
	hub.registerClient(c3)

	assert.Equal(t, 3, hub.GetConnectionCount())
	assert.Equal(t, 2, hub.GetSessionConnectionCount("s1"))

	hub.unregisterClient(c1)
	hub.unregisterClient(c1)
	assert.Equal(t, 1, hub.GetSessionConnectionCount("s1"))

	hub.unregisterClient(c2)
	assert.Equal(t, 0, hub.GetSessionConnectionCount("s1"))
	assert.Equal(t, 1, hub.GetConnectionCount())

	_, open := <-c1.Send
	assert.False(t, open, "unregister closes the send channel")
}

func TestFullBufferDropsClient(t *testing.T) {
	hub := NewHub()
	client := &Client{SessionID: "slow", Send: make(chan []byte, 1), Hub: hub}
	hub.registerClient(client) // welcome fills the buffer

	hub.SendProgress("slow", ProgressUpdate{Stage: StageExtracting})

	assert.Equal(t, 0, hub.GetConnectionCount())
}

func TestServeWSEndToEnd(t *testing.T) {
	gin.SetMode(gin.TestMode)

	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	runDone := make(chan struct{})
	go func() {
		hub.Run(ctx)
		close(runDone)
	}()

	r := gin.New()
	r.GET("/ws", SessionMiddleware(), hub.ServeWS)
	srv := httptest.NewServer(r)
	defer srv.Close()

	session := uuid.NewString()
	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws?session=" + session
	conn, _, err := gorilla.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var welcome Message
	require.NoError(t, conn.ReadJSON(&welcome))
	assert.Equal(t, "connection", welcome.Type)

	hub.SendProgress(session, ProgressUpdate{Stage: StageDone, Message: "ok"})

	var got ProgressUpdate
	require.NoError(t, conn.ReadJSON(&got))
	assert.Equal(t, StageDone, got.Stage)
	assert.Equal(t, "ok", got.Message)

	cancel()
	<-runDone
	assert.Equal(t, 0, hub.GetConnectionCount())
}

func TestSessionMiddlewareRejectsInvalidSession(t *testing.T) {
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.GET("/ws", SessionMiddleware(), func(c *gin.Context) { c.Status(http.StatusOK) })

	for _, q := range []string{"", "?session=abc"} {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/ws"+q, nil)
		r.ServeHTTP(w, req)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	}

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/ws?session="+uuid.NewString(), nil)
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestPingAnsweredWhileRegistered(t *testing.T) {
	hub := NewHub()
	client := newTestClient(hub, "s1")
	hub.registerClient(client)
	drainWelcomeMessage(client)

	client.handleMessage([]byte(`{"type":"ping"}`))

	select {
	case data := <-client.Send:
		var msg Message
		require.NoError(t, json.Unmarshal(data, &msg))
		assert.Equal(t, "pong", msg.Type)
	case <-time.After(100 * time.Millisecond):
		t.Fatal("pong not queued")
	}
}

func TestPingAfterRemovalDoesNotPanic(t *testing.T) {
	hub := NewHub()
	client := newTestClient(hub, "s1")
	hub.registerClient(client)
	hub.unregisterClient(client)

	assert.NotPanics(t, func() {
		client.handleMessage([]byte(`{"type":"ping"}`))
	})
}

func TestPingRacingShutdown(t *testing.T) {
	hub := NewHub()
	clients := make([]*Client, 20)
	for i := range clients {
		clients[i] = newTestClient(hub, fmt.Sprintf("s%d", i%3))
		hub.registerClient(clients[i])
	}

	done := make(chan struct{})
	for _, c := range clients {
		go func(c *Client) {
			defer func() { done <- struct{}{} }()
			for i := 0; i < 50; i++ {
				c.handleMessage([]byte(`{"type":"ping"}`))
			}
		}(c)
	}
	hub.closeAll()
	for range clients {
		<-done
	}

	assert.Equal(t, 0, hub.GetConnectionCount())
}
