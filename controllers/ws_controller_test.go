package controllers

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/bits-his/nibbes-api/models"
	"github.com/bits-his/nibbes-api/services"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
)

func newWSTestServer(t *testing.T) string {
	t.Helper()

	router := setupTestRouter()
	router.GET("/ws", ServeOrderEvents)

	server := httptest.NewServer(router)
	t.Cleanup(server.Close)

	return "ws" + strings.TrimPrefix(server.URL, "http") + "/ws"
}

func TestServeOrderEvents_StreamsEvents(t *testing.T) {
	broadcaster := setupBroadcaster(t)
	wsURL := newWSTestServer(t)

	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	assert.NoError(t, err)
	defer conn.Close()

	// Wait for the subscription to be registered before publishing
	deadline := time.Now().Add(time.Second)
	for broadcaster.SubscriberCount() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	assert.Equal(t, 1, broadcaster.SubscriberCount())

	order := models.Order{ID: 7, OrderNumber: 42, Status: "pending"}
	broadcaster.Publish(services.EventNewOrder, &order)

	order.Status = "preparing"
	broadcaster.Publish(services.EventOrderUpdate, &order)

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))

	var first services.OrderEvent
	err = conn.ReadJSON(&first)
	assert.NoError(t, err)
	assert.Equal(t, services.EventNewOrder, first.Type)
	assert.Equal(t, uint(7), first.OrderID)
	assert.Equal(t, 42, first.OrderNumber)
	assert.Equal(t, "pending", first.Status)

	var second services.OrderEvent
	err = conn.ReadJSON(&second)
	assert.NoError(t, err)
	assert.Equal(t, services.EventOrderUpdate, second.Type)
	assert.Equal(t, "preparing", second.Status)
}

func TestServeOrderEvents_DisconnectCleansUp(t *testing.T) {
	broadcaster := setupBroadcaster(t)
	wsURL := newWSTestServer(t)

	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	assert.NoError(t, err)

	deadline := time.Now().Add(time.Second)
	for broadcaster.SubscriberCount() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	assert.Equal(t, 1, broadcaster.SubscriberCount())

	conn.Close()

	deadline = time.Now().Add(2 * time.Second)
	for broadcaster.SubscriberCount() != 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	assert.Equal(t, 0, broadcaster.SubscriberCount())

	// Publishing to no subscribers is a no-op
	gone := models.Order{ID: 1, OrderNumber: 1, Status: "pending"}
	broadcaster.Publish(services.EventNewOrder, &gone)
}

func TestServeOrderEvents_MultipleClients(t *testing.T) {
	broadcaster := setupBroadcaster(t)
	wsURL := newWSTestServer(t)

	first, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	assert.NoError(t, err)
	defer first.Close()

	second, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	assert.NoError(t, err)
	defer second.Close()

	deadline := time.Now().Add(time.Second)
	for broadcaster.SubscriberCount() < 2 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	assert.Equal(t, 2, broadcaster.SubscriberCount())

	shared := models.Order{ID: 3, OrderNumber: 9, Status: "pending"}
	broadcaster.Publish(services.EventNewOrder, &shared)

	for _, conn := range []*websocket.Conn{first, second} {
		conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		var event services.OrderEvent
		err := conn.ReadJSON(&event)
		assert.NoError(t, err)
		assert.Equal(t, uint(3), event.OrderID)
	}
}

func TestServeOrderEvents_UnavailableWithoutBroadcaster(t *testing.T) {
	services.SetBroadcastService(nil)
	t.Cleanup(func() { services.SetBroadcastService(services.NewBroadcastService()) })

	router := setupTestRouter()
	router.GET("/ws", ServeOrderEvents)

	req, _ := http.NewRequest(http.MethodGet, "/ws", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "REALTIME_UNAVAILABLE")
}
