package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/wricardo/rps-arena/api"
	"github.com/wricardo/rps-arena/game/engine"
	"github.com/wricardo/rps-arena/game/ids"
	"github.com/wricardo/rps-arena/game/room"
	"github.com/wricardo/rps-arena/game/service"
)

func callTool(t *testing.T, handler func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error), name string, args map[string]interface{}) (string, bool) {
	t.Helper()
	request := mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Name:      name,
			Arguments: args,
		},
	}
	result, err := handler(context.Background(), request)
	if err != nil {
		t.Fatalf("%s failed: %v", name, err)
	}
	if result == nil || len(result.Content) == 0 {
		t.Fatalf("%s returned no content", name)
	}
	text, ok := result.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatal("Expected text content in result")
	}
	return text.Text, result.IsError
}

// newLobbyAPI serves the real REST API over a registry holding one resolved
// room (alice beats bob) and one open room (carol).
func newLobbyAPI(t *testing.T) *httptest.Server {
	t.Helper()
	ctx := context.Background()
	registry := room.NewRegistry(ids.NewSequence("room"))
	for _, id := range []string{"alice", "bob", "carol"} {
		if _, _, err := registry.Matchmake(ctx, room.Public, engine.NewPlayer(id)); err != nil {
			t.Fatalf("Matchmake(%s): %v", id, err)
		}
	}
	if _, err := registry.Submit(ctx, "room-1", "alice", engine.Rock); err != nil {
		t.Fatal(err)
	}
	if _, err := registry.Submit(ctx, "room-1", "bob", engine.Scissors); err != nil {
		t.Fatal(err)
	}

	lobby := service.NewLobbyService(registry, nil)
	server := httptest.NewServer(api.NewServer(lobby, http.NotFoundHandler()))
	t.Cleanup(server.Close)
	return server
}

func TestNewClient(t *testing.T) {
	client := NewClient("http://localhost:3000/")

	if client.baseURL != "http://localhost:3000" {
		t.Errorf("Expected trailing slash trimmed, got %s", client.baseURL)
	}
	if client.httpClient == nil {
		t.Error("Expected HTTP client to be initialized")
	}
	if client.GetMCPServer() == nil {
		t.Error("Expected MCP server to be initialized")
	}
}

func TestClient_apiCall(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/stats" {
			t.Errorf("Unexpected path %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]int{"rooms": 4})
	}))
	defer server.Close()

	client := NewClient(server.URL)

	var response map[string]int
	if err := client.apiCall(context.Background(), "GET", "/api/stats", nil, &response); err != nil {
		t.Fatalf("apiCall failed: %v", err)
	}
	if response["rooms"] != 4 {
		t.Errorf("Expected 4 rooms, got %d", response["rooms"])
	}
}

func TestClient_apiCall_Errors(t *testing.T) {
	t.Run("unreachable", func(t *testing.T) {
		client := NewClient("http://127.0.0.1:1")
		if err := client.apiCall(context.Background(), "GET", "/api", nil, nil); err == nil {
			t.Error("Expected error for unreachable server")
		}
	})

	t.Run("API error body", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
			json.NewEncoder(w).Encode(map[string]string{"error": "room not found"})
		}))
		defer server.Close()

		err := NewClient(server.URL).apiCall(context.Background(), "GET", "/api/rooms/x", nil, nil)
		if err == nil || err.Error() != "room not found" {
			t.Errorf("Expected 'room not found', got %v", err)
		}
	})

	t.Run("plain HTTP error", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
			w.Write([]byte("Internal Server Error"))
		}))
		defer server.Close()

		err := NewClient(server.URL).apiCall(context.Background(), "GET", "/api", nil, nil)
		if err == nil || !strings.Contains(err.Error(), "API error") {
			t.Errorf("Expected 'API error', got %v", err)
		}
	})
}

func TestClient_listRooms(t *testing.T) {
	client := NewClient(newLobbyAPI(t).URL)

	text, isErr := callTool(t, client.handleListRooms, "list_rooms", map[string]interface{}{})
	if isErr {
		t.Fatalf("Unexpected tool error: %s", text)
	}
	for _, want := range []string{"2 room(s)", "room-1 [resolved] 2/2 players, won by alice", "room-2 [open] 1/2 players"} {
		if !strings.Contains(text, want) {
			t.Errorf("Expected %q in result, got: %s", want, text)
		}
	}

	text, _ = callTool(t, client.handleListRooms, "list_rooms", map[string]interface{}{"state": "open"})
	if strings.Contains(text, "room-1") || !strings.Contains(text, "room-2") {
		t.Errorf("Expected only the open room, got: %s", text)
	}

	text, isErr = callTool(t, client.handleListRooms, "list_rooms", map[string]interface{}{"state": "bogus"})
	if !isErr || !strings.Contains(text, "invalid room filter") {
		t.Errorf("Expected filter error, got: %s", text)
	}
}

func TestClient_getRoom(t *testing.T) {
	client := NewClient(newLobbyAPI(t).URL)

	text, isErr := callTool(t, client.handleGetRoom, "get_room", map[string]interface{}{"room_id": "room-1"})
	if isErr {
		t.Fatalf("Unexpected tool error: %s", text)
	}
	for _, want := range []string{"Room: room-1", "State: resolved", "alice: rock", "bob: scissors", "Outcome: alice wins with rock"} {
		if !strings.Contains(text, want) {
			t.Errorf("Expected %q in result, got: %s", want, text)
		}
	}

	text, _ = callTool(t, client.handleGetRoom, "get_room", map[string]interface{}{"room_id": "room-2"})
	if !strings.Contains(text, "carol: waiting") || !strings.Contains(text, "Outcome: pending") {
		t.Errorf("Expected pending open room, got: %s", text)
	}

	text, isErr = callTool(t, client.handleGetRoom, "get_room", map[string]interface{}{"room_id": "room-9"})
	if !isErr || !strings.Contains(text, "room not found") {
		t.Errorf("Expected not-found error, got: %s", text)
	}

	_, isErr = callTool(t, client.handleGetRoom, "get_room", map[string]interface{}{})
	if !isErr {
		t.Error("Expected error without room_id")
	}
}

func TestClient_lobbyStats(t *testing.T) {
	client := NewClient(newLobbyAPI(t).URL)

	text, isErr := callTool(t, client.handleLobbyStats, "lobby_stats", nil)
	if isErr {
		t.Fatalf("Unexpected tool error: %s", text)
	}
	for _, want := range []string{"Rooms: 2", "open: 1", "resolved: 1", "Players in rooms: 3"} {
		if !strings.Contains(text, want) {
			t.Errorf("Expected %q in result, got: %s", want, text)
		}
	}
}

func TestClient_gameRules(t *testing.T) {
	text, _ := callTool(t, NewClient("http://localhost:3000").handleGameRules, "game_rules", nil)

	for _, want := range []string{"/websocket", `"quick"`, "rock | paper | scissors", "has left the room"} {
		if !strings.Contains(text, want) {
			t.Errorf("Expected %q in rules, got: %s", want, text)
		}
	}
}

func TestFormatRoom_Draw(t *testing.T) {
	text := formatRoom(&service.RoomInfo{
		ID:        "room-3",
		Kind:      "public",
		State:     "resolved",
		Draw:      true,
		Choice:    "paper",
		CreatedAt: time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
	})

	if !strings.Contains(text, "Outcome: draw (paper)") {
		t.Errorf("Expected draw outcome, got: %s", text)
	}
	if !strings.Contains(text, "Created: 2024-01-02 03:04:05") {
		t.Errorf("Expected creation time, got: %s", text)
	}
}

func TestClient_ServeHTTP(t *testing.T) {
	client := NewClient(newLobbyAPI(t).URL)

	t.Run("rejects GET", func(t *testing.T) {
		w := httptest.NewRecorder()
		client.ServeHTTP(w, httptest.NewRequest("GET", "/mcp", nil))
		if w.Code != http.StatusMethodNotAllowed {
			t.Errorf("Expected 405, got %d", w.Code)
		}
	})

	t.Run("lists tools", func(t *testing.T) {
		body := `{"jsonrpc":"2.0","id":1,"method":"tools/list","params":{}}`
		w := httptest.NewRecorder()
		client.ServeHTTP(w, httptest.NewRequest("POST", "/mcp", bytes.NewBufferString(body)))

		if w.Code != http.StatusOK {
			t.Fatalf("Expected 200, got %d", w.Code)
		}
		for _, tool := range []string{"list_rooms", "get_room", "lobby_stats", "game_rules"} {
			if !strings.Contains(w.Body.String(), tool) {
				t.Errorf("Expected tool %s in listing: %s", tool, w.Body.String())
			}
		}
	})

	t.Run("calls a tool", func(t *testing.T) {
		body := `{"jsonrpc":"2.0","id":2,"method":"tools/call","params":{"name":"get_room","arguments":{"room_id":"room-1"}}}`
		w := httptest.NewRecorder()
		client.ServeHTTP(w, httptest.NewRequest("POST", "/mcp", bytes.NewBufferString(body)))

		if !strings.Contains(w.Body.String(), "alice wins with rock") {
			t.Errorf("Expected tool output in response: %s", w.Body.String())
		}
	})
}
