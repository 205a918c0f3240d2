package websocket_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	gorillaWS "github.com/gorilla/websocket"
	"github.com/jmgc95/gcash-buy-backend/internal/model"
	"github.com/jmgc95/gcash-buy-backend/internal/service"
	"github.com/jmgc95/gcash-buy-backend/internal/websocket"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newHub(t *testing.T) *websocket.Hub {
	t.Helper()
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	hub := websocket.NewHub(logger)
	go hub.Run()
	t.Cleanup(hub.Stop)
	return hub
}

// staticSource 固定凭证的状态源
type staticSource struct {
	id, token string
	status    model.Status
}

func (s staticSource) Watch(_ context.Context, id, token string) (*service.StatusView, error) {
	if id != s.id || token != s.token {
		return nil, service.ErrAccessDenied
	}
	return &service.StatusView{ID: s.id, Token: s.token, Status: s.status}, nil
}

// TestHub_PublishStatus 测试只推送给订阅该记录的客户端
func TestHub_PublishStatus(t *testing.T) {
	hub := newHub(t)

	a := &websocket.Client{ID: "c1", SubmissionID: "sub-a", Hub: hub, Send: make(chan []byte, 4)}
	b := &websocket.Client{ID: "c2", SubmissionID: "sub-b", Hub: hub, Send: make(chan []byte, 4)}
	hub.Register <- a
	hub.Register <- b

	require.Eventually(t, func() bool { return hub.GetClientCount() == 2 }, time.Second, 10*time.Millisecond)
	assert.Equal(t, 1, hub.SubscriberCount("sub-a"))

	hub.PublishStatus("sub-a", model.StatusApproved)

	select {
	case msg := <-a.Send:
		var got websocket.StatusMessage
		require.NoError(t, json.Unmarshal(msg, &got))
		assert.Equal(t, websocket.StatusMessage{ID: "sub-a", Status: model.StatusApproved}, got)
	case <-time.After(time.Second):
		t.Fatal("subscriber did not receive status")
	}
	assert.Empty(t, b.Send)
}

// TestHub_Unregister 测试注销客户端
func TestHub_Unregister(t *testing.T) {
	hub := newHub(t)
	client := &websocket.Client{ID: "c1", SubmissionID: "sub-a", Hub: hub, Send: make(chan []byte, 1)}
	hub.Register <- client
	hub.Unregister <- client

	require.Eventually(t, func() bool { return hub.GetClientCount() == 0 }, time.Second, 10*time.Millisecond)
	_, open := <-client.Send
	assert.False(t, open)
}

// TestStatusHandler 测试订阅后先收到当前状态,再收到变更
func TestStatusHandler(t *testing.T) {
	gin.SetMode(gin.TestMode)
	hub := newHub(t)
	source := staticSource{id: "sub-a", token: "tok", status: model.StatusPending}

	router := gin.New()
	router.GET("/ws/status/:id", websocket.StatusHandler(hub, source))
	srv := httptest.NewServer(router)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/status/sub-a?token=tok"
	conn, _, err := gorillaWS.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	var msg websocket.StatusMessage
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, model.StatusPending, msg.Status)

	require.Eventually(t, func() bool { return hub.SubscriberCount("sub-a") == 1 }, time.Second, 10*time.Millisecond)
	hub.PublishStatus("sub-a", model.StatusRejected)

	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, websocket.StatusMessage{ID: "sub-a", Status: model.StatusRejected}, msg)
}

// TestStatusHandler_Denied 测试凭证错误时不升级连接
func TestStatusHandler_Denied(t *testing.T) {
	gin.SetMode(gin.TestMode)
	hub := newHub(t)
	router := gin.New()
	router.GET("/ws/status/:id", websocket.StatusHandler(hub, staticSource{id: "sub-a", token: "tok"}))

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ws/status/sub-a?token=wrong", nil))
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, 0, hub.GetClientCount())
}
