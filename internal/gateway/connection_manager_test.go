package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/cronology/cronology/internal/events"
	"github.com/cronology/cronology/internal/models"
)

type stubSessions struct{}

func (stubSessions) ValidateSession(sessionID string, eventID int64) (*models.Event, error) {
	if sessionID == "GOODID" {
		return &models.Event{ID: eventID}, nil
	}
	return nil, fmt.Errorf("unknown session")
}

func newTestGateway(t *testing.T) (*ConnectionManager, *httptest.Server, context.CancelFunc) {
	t.Helper()

	cm := NewConnectionManager(DefaultConnectionConfig())
	ctx, cancel := context.WithCancel(context.Background())
	go cm.Start(ctx)

	mux := http.NewServeMux()
	NewWebSocketHandler(cm, stubSessions{}).RegisterRoutes(mux)
	server := httptest.NewServer(mux)

	t.Cleanup(func() {
		server.Close()
		cancel()
	})
	return cm, server, cancel
}

func dial(t *testing.T, server *httptest.Server, query string) *websocket.Conn {
	t.Helper()

	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws/events?" + query
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial %s: %v", url, err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

// waitForConnections polls until the event room has n subscribers; the
// upgrade response races the registration.
func waitForConnections(t *testing.T, cm *ConnectionManager, eventID int64, n int) {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cm.GetStats().EventConnections[eventID] == n {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("event %d never reached %d connections", eventID, n)
}

func readEnvelope(t *testing.T, conn *websocket.Conn) *events.Envelope {
	t.Helper()

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read message: %v", err)
	}
	var env events.Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		t.Fatalf("unmarshal envelope: %v", err)
	}
	return &env
}

func TestBroadcastReachesRoomInOrder(t *testing.T) {
	cm, server, _ := newTestGateway(t)

	conn := dial(t, server, "event_id=1")
	waitForConnections(t, cm, 1, 1)

	cm.Broadcast(1, events.New(1, events.TypeTimerTick, map[string]any{"seq": 1}))
	cm.Broadcast(1, events.New(1, events.TypeTimerTick, map[string]any{"seq": 2}))
	cm.Broadcast(1, events.New(1, events.TypeTimerExtended, map[string]any{"seq": 3}))

	for i, wantType := range []events.Type{events.TypeTimerTick, events.TypeTimerTick, events.TypeTimerExtended} {
		env := readEnvelope(t, conn)
		if env.Type != wantType {
			t.Fatalf("message %d: expected type %s, got %s", i, wantType, env.Type)
		}
		if env.EventID != 1 {
			t.Fatalf("message %d: expected eventId 1, got %d", i, env.EventID)
		}
		data, ok := env.Data.(map[string]any)
		if !ok {
			t.Fatalf("message %d: unexpected data %T", i, env.Data)
		}
		if seq := data["seq"].(float64); int(seq) != i+1 {
			t.Fatalf("message %d arrived out of order: seq %v", i, seq)
		}
	}
}

func TestBroadcastScopedToEventRoom(t *testing.T) {
	cm, server, _ := newTestGateway(t)

	connA := dial(t, server, "event_id=1")
	connB := dial(t, server, "event_id=2")
	waitForConnections(t, cm, 1, 1)
	waitForConnections(t, cm, 2, 1)

	cm.Broadcast(2, events.New(2, events.TypeTimerTick, nil))

	env := readEnvelope(t, connB)
	if env.EventID != 2 {
		t.Fatalf("expected eventId 2, got %d", env.EventID)
	}

	// Room 1 must stay silent.
	connA.SetReadDeadline(time.Now().Add(200 * time.Millisecond))
	if _, _, err := connA.ReadMessage(); err == nil {
		t.Fatal("room 1 received a room 2 broadcast")
	}
}

func TestDisplaySettingsRelayedToRoom(t *testing.T) {
	cm, server, _ := newTestGateway(t)

	operator := dial(t, server, "event_id=1")
	display := dial(t, server, "event_id=1&session_id=GOODID")
	waitForConnections(t, cm, 1, 2)

	msg := `{"type":"displaySettingsChanged","data":{"theme":"dark"}}`
	if err := operator.WriteMessage(websocket.TextMessage, []byte(msg)); err != nil {
		t.Fatalf("write message: %v", err)
	}

	env := readEnvelope(t, display)
	if env.Type != events.TypeDisplaySettingsChanged {
		t.Fatalf("expected displaySettingsChanged, got %s", env.Type)
	}

	// The sender must not get its own relay back.
	operator.SetReadDeadline(time.Now().Add(200 * time.Millisecond))
	if _, _, err := operator.ReadMessage(); err == nil {
		t.Fatal("sender received its own relayed message")
	}
}

func TestUnsupportedClientMessagesIgnored(t *testing.T) {
	cm, server, _ := newTestGateway(t)

	sender := dial(t, server, "event_id=1")
	receiver := dial(t, server, "event_id=1")
	waitForConnections(t, cm, 1, 2)

	if err := sender.WriteMessage(websocket.TextMessage, []byte(`{"type":"timerTick","data":{}}`)); err != nil {
		t.Fatalf("write message: %v", err)
	}

	receiver.SetReadDeadline(time.Now().Add(200 * time.Millisecond))
	if _, _, err := receiver.ReadMessage(); err == nil {
		t.Fatal("unsupported client message was relayed")
	}
}

func TestDisplayConnectionRequiresValidSession(t *testing.T) {
	_, server, _ := newTestGateway(t)

	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws/events?event_id=1&session_id=BADBAD"
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	if err == nil {
		t.Fatal("expected dial to fail for invalid session")
	}
	if resp == nil || resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %+v", resp)
	}
}

func TestConnectionRequiresEventID(t *testing.T) {
	_, server, _ := newTestGateway(t)

	resp, err := http.Get(server.URL + "/ws/events")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestStatsTrackRoomsAndDisconnects(t *testing.T) {
	cm, server, _ := newTestGateway(t)

	conn := dial(t, server, "event_id=7")
	waitForConnections(t, cm, 7, 1)

	stats := cm.GetStats()
	if stats.TotalConnections != 1 || stats.ActiveEvents != 1 {
		t.Fatalf("unexpected stats %+v", stats)
	}

	conn.Close()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cm.GetStats().TotalConnections == 0 {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}
	stats = cm.GetStats()
	if stats.TotalConnections != 0 || stats.ActiveEvents != 0 {
		t.Fatalf("expected empty stats after disconnect, got %+v", stats)
	}
}
