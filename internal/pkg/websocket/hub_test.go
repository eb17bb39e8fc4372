package websocket

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	gorillaws "github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	appauth "github.com/yigit/nodues/internal/app/auth"
	"github.com/yigit/nodues/internal/app/models"
)

func startHub(t *testing.T) (*Hub, *httptest.Server) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	ctx, cancel := context.WithCancel(context.Background())
	hub := NewHub(zerolog.Nop())
	go hub.Run(ctx)

	router := gin.New()
	router.GET("/ws/students/:studentId", func(c *gin.Context) {
		appauth.SetActor(c, models.Actor{Subject: c.Query("as"), Role: models.RoleStudent})
	}, NewHandler(hub, zerolog.Nop()).HandleConnection)

	srv := httptest.NewServer(router)
	t.Cleanup(func() {
		srv.Close()
		cancel()
	})
	return hub, srv
}

func dial(t *testing.T, srv *httptest.Server, path string) (*gorillaws.Conn, error) {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + path
	conn, _, err := gorillaws.DefaultDialer.Dial(url, nil)
	if err == nil {
		t.Cleanup(func() { _ = conn.Close() })
	}
	return conn, err
}

func TestHubDeliversEventsToStudent(t *testing.T) {
	hub, srv := startHub(t)

	conn, err := dial(t, srv, "/ws/students/S1?as=S1")
	require.NoError(t, err)
	require.Eventually(t, func() bool { return hub.ClientCount("S1") == 1 }, time.Second, 10*time.Millisecond)

	hub.Publish(models.WorkflowEvent{Type: models.EventTrackApproved, StudentID: "S2", RequestID: 9})
	hub.Publish(models.WorkflowEvent{Type: models.EventTrackApproved, StudentID: "S1", RequestID: 1, Unit: models.UnitLibrary})

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)

	var event models.WorkflowEvent
	require.NoError(t, json.Unmarshal(data, &event))
	assert.Equal(t, "S1", event.StudentID)
	assert.Equal(t, models.UnitLibrary, event.Unit)
}

func TestHubRejectsOtherStudents(t *testing.T) {
	_, srv := startHub(t)

	_, err := dial(t, srv, "/ws/students/S1?as=S2")
	assert.Error(t, err)
}

func TestHubUnregistersOnClose(t *testing.T) {
	hub, srv := startHub(t)

	conn, err := dial(t, srv, "/ws/students/S1?as=S1")
	require.NoError(t, err)
	require.Eventually(t, func() bool { return hub.ClientCount("S1") == 1 }, time.Second, 10*time.Millisecond)

	require.NoError(t, conn.Close())
	assert.Eventually(t, func() bool { return hub.ClientCount("S1") == 0 }, 2*time.Second, 10*time.Millisecond)
}
