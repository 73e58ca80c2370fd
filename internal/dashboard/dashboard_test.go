package dashboard

import (
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"testing"
	"time"

	"github.com/coder/websocket"

	"github.com/repomap/repomap/internal/project"
	"github.com/repomap/repomap/internal/tracker"
)

func testServer(t *testing.T) *Server {
	t.Helper()
	server := NewServer(&Config{
		Port:   0, // random available port
		Logger: log.New(io.Discard, "", 0),
	})
	if err := server.Start(); err != nil {
		t.Fatalf("Failed to start server: %v", err)
	}
	t.Cleanup(func() { _ = server.Stop() })
	time.Sleep(50 * time.Millisecond)
	return server
}

func TestServerStartStop(t *testing.T) {
	server := NewServer(&Config{Port: 0, Logger: log.New(io.Discard, "", 0)})

	if err := server.Start(); err != nil {
		t.Fatalf("Failed to start server: %v", err)
	}
	if addr := server.GetAddr(); addr == "" {
		t.Fatal("Server address is empty")
	}
	if err := server.Stop(); err != nil {
		t.Fatalf("Failed to stop server: %v", err)
	}
}

func TestBroadcastReachesClient(t *testing.T) {
	server := testServer(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, "ws://"+server.GetAddr()+"/ws", nil)
	if err != nil {
		t.Fatalf("Failed to connect WebSocket: %v", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "")

	// Registration races the broadcast; wait for the client to land.
	deadline := time.Now().Add(2 * time.Second)
	for server.ClientCount() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if server.ClientCount() != 1 {
		t.Fatalf("expected 1 client, got %d", server.ClientCount())
	}

	server.Broadcast(tracker.Message{
		Type:    tracker.MessageTypeStatus,
		Project: "/work/alpha",
		Status:  project.StatusScanning,
	})

	_, data, err := conn.Read(ctx)
	if err != nil {
		t.Fatalf("Failed to read broadcast: %v", err)
	}

	var msg tracker.Message
	if err := json.Unmarshal(data, &msg); err != nil {
		t.Fatalf("Failed to unmarshal message: %v", err)
	}
	if msg.Type != tracker.MessageTypeStatus || msg.Project != "/work/alpha" {
		t.Errorf("unexpected message: %+v", msg)
	}
	if msg.Timestamp.IsZero() {
		t.Error("broadcast should stamp messages")
	}
}

func TestMultipleClients(t *testing.T) {
	server := testServer(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	wsURL := "ws://" + server.GetAddr() + "/ws"
	const numClients = 3
	clients := make([]*websocket.Conn, numClients)
	for i := 0; i < numClients; i++ {
		conn, _, err := websocket.Dial(ctx, wsURL, nil)
		if err != nil {
			t.Fatalf("Failed to connect client %d: %v", i, err)
		}
		defer conn.Close(websocket.StatusNormalClosure, "")
		clients[i] = conn
	}

	deadline := time.Now().Add(2 * time.Second)
	for server.ClientCount() < numClients && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if server.ClientCount() != numClients {
		t.Fatalf("expected %d clients, got %d", numClients, server.ClientCount())
	}

	server.Broadcast(tracker.Message{Type: tracker.MessageTypeProjectUpdated, Project: "/work/alpha"})

	for i, conn := range clients {
		_, data, err := conn.Read(ctx)
		if err != nil {
			t.Fatalf("client %d read failed: %v", i, err)
		}
		var msg tracker.Message
		if err := json.Unmarshal(data, &msg); err != nil {
			t.Fatalf("client %d unmarshal failed: %v", i, err)
		}
		if msg.Project != "/work/alpha" {
			t.Errorf("client %d got message for %s", i, msg.Project)
		}
	}
}

func TestHealthEndpoint(t *testing.T) {
	server := testServer(t)

	resp, err := http.Get("http://" + server.GetAddr() + "/health")
	if err != nil {
		t.Fatalf("health request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("health status = %d, want 200", resp.StatusCode)
	}
	var body map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decoding health body: %v", err)
	}
	if body["status"] != "ok" {
		t.Errorf("health status field = %v, want ok", body["status"])
	}
}
