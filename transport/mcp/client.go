package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/wricardo/rps-arena/game/service"
)

const rules = `RPS Arena - How It Works

Players connect over a websocket at /websocket and send "quick" to be matched.
The server pairs arrivals first come, first served: the oldest open public
room is filled before a new one is created. Each room holds exactly two players.

Messages from a player after matching:
  rock | paper | scissors   make a choice (once per round)

Messages the server broadcasts to both players:
  you have been connected as player: <id>    (only to you, on join)
  player: <id> has made their choice
  player: <id> is the winner using <choice>!
  draw: both players chose <choice>!
  player: <id> has left the room

Rock beats scissors, scissors beats paper, paper beats rock.
If a player leaves before the round is decided, the room closes without a winner.

These tools are read-only: they inspect rooms and lobby stats but cannot play.`

// Client is a thin MCP client that proxies to the REST API
type Client struct {
	baseURL    string
	httpClient *http.Client
	mcpServer  *server.MCPServer
}

// NewClient creates a new MCP client that calls the REST API
func NewClient(baseURL string) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}

	c.initMCPServer()
	return c
}

func (c *Client) initMCPServer() {
	c.mcpServer = server.NewMCPServer(
		"RPS Arena",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithInstructions(`RPS Arena - MCP Interface

This is a thin client that proxies all requests to the REST API server.

AVAILABLE TOOLS:
- list_rooms: List rooms, optionally filtered by state (open, full, resolved, closed)
- get_room: Get one room with its players and, once resolved, the outcome
- lobby_stats: Room, player and connection counters
- game_rules: The wire protocol and rules players follow`),
	)

	c.registerTools()
}

func (c *Client) registerTools() {
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "list_rooms",
		Description: "List rooms in the lobby",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"state": map[string]interface{}{
					"type":        "string",
					"enum":        []string{"open", "full", "resolved", "closed"},
					"description": "Only return rooms in this state (optional)",
				},
			},
		},
	}, c.handleListRooms)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "get_room",
		Description: "Get details of a specific room",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"room_id": map[string]interface{}{
					"type":        "string",
					"description": "Room ID to retrieve",
				},
			},
			Required: []string{"room_id"},
		},
	}, c.handleGetRoom)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "lobby_stats",
		Description: "Get lobby-wide counters",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleLobbyStats)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "game_rules",
		Description: "Explain the rules and the websocket message protocol",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleGameRules)
}

// GetMCPServer returns the underlying MCP server, for stdio serving.
func (c *Client) GetMCPServer() *server.MCPServer {
	return c.mcpServer
}

// ServeHTTP answers one JSON-RPC message per POST request.
func (c *Client) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "Failed to read request", http.StatusBadRequest)
		return
	}
	defer r.Body.Close()

	response := c.mcpServer.HandleMessage(r.Context(), body)
	if response == nil {
		// notifications have no reply
		w.WriteHeader(http.StatusAccepted)
		return
	}

	responseData, err := json.Marshal(response)
	if err != nil {
		http.Error(w, "Failed to marshal response", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write(responseData)
}

func (c *Client) apiCall(ctx context.Context, method, path string, body interface{}, result interface{}) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reqBody = bytes.NewBuffer(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var errResp map[string]string
		json.NewDecoder(resp.Body).Decode(&errResp)
		if msg, ok := errResp["error"]; ok {
			return fmt.Errorf("%s", msg)
		}
		return fmt.Errorf("API error: %d", resp.StatusCode)
	}

	if result != nil {
		return json.NewDecoder(resp.Body).Decode(result)
	}
	return nil
}

func (c *Client) handleListRooms(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, _ := request.Params.Arguments.(map[string]interface{})
	state, _ := args["state"].(string)

	path := "/api/rooms"
	if state != "" {
		path += "?state=" + url.QueryEscape(state)
	}

	var resp struct {
		Count int                 `json:"count"`
		Rooms []*service.RoomInfo `json:"rooms"`
	}
	if err := c.apiCall(ctx, "GET", path, nil, &resp); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	slog.DebugContext(ctx, "mcp list_rooms", "state", state, "count", resp.Count)
	return mcp.NewToolResultText(formatRoomList(resp.Rooms)), nil
}

func (c *Client) handleGetRoom(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, _ := request.Params.Arguments.(map[string]interface{})
	roomID, _ := args["room_id"].(string)
	if roomID == "" {
		return mcp.NewToolResultError("room_id is required"), nil
	}

	var info service.RoomInfo
	if err := c.apiCall(ctx, "GET", "/api/rooms/"+url.PathEscape(roomID), nil, &info); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatRoom(&info)), nil
}

func (c *Client) handleLobbyStats(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var stats service.Stats
	if err := c.apiCall(ctx, "GET", "/api/stats", nil, &stats); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatStats(&stats)), nil
}

func (c *Client) handleGameRules(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(rules), nil
}

func formatRoomList(rooms []*service.RoomInfo) string {
	if len(rooms) == 0 {
		return "No rooms."
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%d room(s):\n", len(rooms))
	for _, r := range rooms {
		fmt.Fprintf(&b, "- %s [%s] %d/2 players%s\n", r.ID, r.State, len(r.Players), outcomeSuffix(r))
	}
	return strings.TrimRight(b.String(), "\n")
}

func formatRoom(r *service.RoomInfo) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Room: %s\nKind: %s\nState: %s\nCreated: %s\n",
		r.ID, r.Kind, r.State, r.CreatedAt.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(&b, "Players (%d/2):\n", len(r.Players))
	for _, p := range r.Players {
		status := "waiting"
		if p.HasChosen {
			status = "chosen"
			if p.Choice.Valid() {
				status = p.Choice.String()
			}
		}
		fmt.Fprintf(&b, "  - %s: %s\n", p.ID, status)
	}
	switch {
	case r.Draw:
		fmt.Fprintf(&b, "Outcome: draw (%s)", r.Choice)
	case r.Winner != "":
		fmt.Fprintf(&b, "Outcome: %s wins with %s", r.Winner, r.Choice)
	default:
		b.WriteString("Outcome: pending")
	}
	return b.String()
}

func outcomeSuffix(r *service.RoomInfo) string {
	switch {
	case r.Draw:
		return ", draw"
	case r.Winner != "":
		return ", won by " + r.Winner
	}
	return ""
}

func formatStats(s *service.Stats) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Rooms: %d\n", s.Rooms)

	states := make([]string, 0, len(s.RoomsByState))
	for state := range s.RoomsByState {
		states = append(states, state)
	}
	sort.Strings(states)
	for _, state := range states {
		fmt.Fprintf(&b, "  %s: %d\n", state, s.RoomsByState[state])
	}
	fmt.Fprintf(&b, "Players in rooms: %d\nConnections: %d (waiting: %d)\nDraws: %d\nUptime: %s",
		s.Players, s.Sessions, s.Waiting, s.Draws, s.Uptime)
	return b.String()
}
