package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/wricardo/chipslide/game/engine"
	"github.com/wricardo/chipslide/game/service"
)

// Client is a thin MCP client that proxies to the REST API
type Client struct {
	baseURL    string
	httpClient *http.Client
	mcpServer  *server.MCPServer
}

// NewClient creates a new MCP client that calls the REST API at baseURL
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
		"Chip Slide Puzzle",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithInstructions(`Chip Slide Puzzle - MCP Interface

This is a thin client that proxies all requests to the REST API server.

OBJECTIVE:
Slide numbered chips one cell at a time until the first row of every
two-row band holds chips of that band's type (band 0 wants 1s, band 1 wants 2s, ...).

AVAILABLE TOOLS:
- list_packs: List level packs and their levels
- create_session: Start a session on a pack level
- list_sessions / get_session: Inspect sessions
- puzzle_state: Show the grid, chips and allowed moves
- select_chip: Select the chip to move (by chip_id or x,y)
- move_chip: Move the selected chip to x,y or one step in a direction
- reset_puzzle: Reassemble the current level
- move_history: View committed moves
- leaderboard: Best solves of a level
- game_instructions: Full rules and strategy notes`),
	)

	c.registerTools()
}

func sessionProperty() map[string]interface{} {
	return map[string]interface{}{
		"type":        "string",
		"description": "Session ID",
	}
}

func intProperty(description string) map[string]interface{} {
	return map[string]interface{}{
		"type":        "integer",
		"description": description,
	}
}

// registerTools registers all MCP tools
func (c *Client) registerTools() {
	// Level packs
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "list_packs",
		Description: "List available level packs with their level names",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleListPacks)

	// Session management
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "create_session",
		Description: "Create a new puzzle session on a level of a pack. Defaults to the first level of the default pack.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"pack_id": map[string]interface{}{
					"type":        "string",
					"description": "Level pack to play (optional)",
				},
				"level": intProperty("Zero-based level index within the pack (optional)"),
			},
		},
	}, c.handleCreateSession)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "list_sessions",
		Description: "List all active puzzle sessions",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleListSessions)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "get_session",
		Description: "Get details of a specific session",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionProperty(),
			},
			Required: []string{"session_id"},
		},
	}, c.handleGetSession)

	// Puzzle operations
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "puzzle_state",
		Description: "Get the current grid, chips, selection, allowed moves and band targets",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionProperty(),
			},
			Required: []string{"session_id"},
		},
	}, c.handlePuzzleState)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "select_chip",
		Description: "Select the chip to move, either by chip_id or by the x,y of the cell it sits on. Selecting another chip replaces the selection.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionProperty(),
				"chip_id":    intProperty("Chip ID from puzzle_state"),
				"x":          intProperty("Column of the chip (0-based)"),
				"y":          intProperty("Row of the chip (0-based)"),
			},
			Required: []string{"session_id"},
		},
	}, c.handleSelectChip)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "move_chip",
		Description: "Move the selected chip one cell, either to the adjacent free cell x,y or in a direction",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionProperty(),
				"direction": map[string]interface{}{
					"type":        "string",
					"enum":        []string{"up", "down", "left", "right"},
					"description": "Direction to move",
				},
				"x": intProperty("Target column (0-based)"),
				"y": intProperty("Target row (0-based)"),
				"intent": map[string]interface{}{
					"type":        "string",
					"description": "Brief explanation of why this move helps (serves as a rubber duck for your reasoning)",
				},
			},
			Required: []string{"session_id"},
		},
	}, c.handleMoveChip)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "reset_puzzle",
		Description: "Reassemble the current level. Cumulative move history is kept.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionProperty(),
			},
			Required: []string{"session_id"},
		},
	}, c.handleReset)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "move_history",
		Description: "Get committed moves for a session, newest first",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionProperty(),
				"page":       intProperty("Page number"),
				"limit":      intProperty("Items per page"),
			},
			Required: []string{"session_id"},
		},
	}, c.handleMoveHistory)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "leaderboard",
		Description: "Best solves of a level, fewest moves first",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"pack_id": map[string]interface{}{
					"type":        "string",
					"description": "Level pack",
				},
				"level": intProperty("Zero-based level index"),
				"limit": intProperty("Number of results (default 10)"),
			},
			Required: []string{"pack_id", "level"},
		},
	}, c.handleLeaderboard)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "game_instructions",
		Description: "Get the puzzle rules and strategy notes",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleGameInstructions)
}

// GetMCPServer returns the underlying MCP server for serving
func (c *Client) GetMCPServer() *server.MCPServer {
	return c.mcpServer
}

// Helper methods for API calls

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

// Argument helpers. JSON numbers arrive as float64.

func arguments(request mcp.CallToolRequest) map[string]interface{} {
	args, _ := request.Params.Arguments.(map[string]interface{})
	if args == nil {
		return map[string]interface{}{}
	}
	return args
}

func intArg(args map[string]interface{}, key string) (int, bool) {
	switch v := args[key].(type) {
	case float64:
		return int(v), true
	case int:
		return v, true
	}
	return 0, false
}

func sessionPath(args map[string]interface{}, suffix string) (string, error) {
	sessionID, _ := args["session_id"].(string)
	if sessionID == "" {
		return "", fmt.Errorf("session_id is required")
	}
	return "/api/sessions/" + url.PathEscape(sessionID) + suffix, nil
}

// Tool handlers

func (c *Client) handleListPacks(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var packs []service.PackInfo
	if err := c.apiCall(ctx, "GET", "/api/packs", nil, &packs); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var b strings.Builder
	b.WriteString("Level Packs:\n\n")
	for _, pack := range packs {
		fmt.Fprintf(&b, "• %s (%s, %d levels)\n", pack.PackID, pack.Source, pack.LevelCount)
		for i, name := range pack.Levels {
			fmt.Fprintf(&b, "  %d. %s\n", i, name)
		}
		if pack.Skipped > 0 {
			fmt.Fprintf(&b, "  (%d levels skipped as invalid)\n", pack.Skipped)
		}
	}
	return mcp.NewToolResultText(b.String()), nil
}

func (c *Client) handleCreateSession(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)

	body := map[string]interface{}{}
	if packID, _ := args["pack_id"].(string); packID != "" {
		body["pack_id"] = packID
	}
	if level, ok := intArg(args, "level"); ok {
		body["level"] = level
	}

	var session service.SessionInfo
	if err := c.apiCall(ctx, "POST", "/api/sessions", body, &session); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(fmt.Sprintf("Created session: %s\n\n%s", session.ID, formatSessionInfo(&session))), nil
}

func (c *Client) handleListSessions(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var response struct {
		Count    int                   `json:"count"`
		Sessions []service.SessionInfo `json:"sessions"`
	}
	if err := c.apiCall(ctx, "GET", "/api/sessions", nil, &response); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result := fmt.Sprintf("Active Sessions (%d):\n\n", response.Count)
	for _, s := range response.Sessions {
		solved := ""
		if s.PuzzleState != nil && s.PuzzleState.Solved {
			solved = ", solved"
		}
		result += fmt.Sprintf("- %s (%s #%d %q, Created: %s%s)\n",
			s.ID, s.PackID, s.LevelIndex, s.LevelName, s.CreatedAt.Format("15:04:05"), solved)
	}
	return mcp.NewToolResultText(result), nil
}

func (c *Client) handleGetSession(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := sessionPath(arguments(request), "")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var session service.SessionInfo
	if err := c.apiCall(ctx, "GET", path, nil, &session); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(formatSessionInfo(&session)), nil
}

func (c *Client) handlePuzzleState(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := sessionPath(arguments(request), "/state")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var state engine.PuzzleState
	if err := c.apiCall(ctx, "GET", path, nil, &state); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(formatPuzzleState(&state)), nil
}

func (c *Client) handleSelectChip(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	path, err := sessionPath(args, "/select")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	body := map[string]interface{}{}
	if id, ok := intArg(args, "chip_id"); ok {
		body["chip_id"] = id
	} else {
		x, okX := intArg(args, "x")
		y, okY := intArg(args, "y")
		if !okX || !okY {
			return mcp.NewToolResultError("provide chip_id or both x and y"), nil
		}
		body["x"], body["y"] = x, y
	}

	var state engine.PuzzleState
	if err := c.apiCall(ctx, "POST", path, body, &state); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(formatPuzzleState(&state)), nil
}

func (c *Client) handleMoveChip(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	path, err := sessionPath(args, "/move")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	// intent is only there to make the caller explain itself
	body := map[string]interface{}{}
	if direction, _ := args["direction"].(string); direction != "" {
		body["direction"] = direction
	} else {
		x, okX := intArg(args, "x")
		y, okY := intArg(args, "y")
		if !okX || !okY {
			return mcp.NewToolResultError("provide direction or both x and y"), nil
		}
		body["x"], body["y"] = x, y
	}

	var result service.MoveResult
	if err := c.apiCall(ctx, "POST", path, body, &result); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(formatMoveResult(&result)), nil
}

func (c *Client) handleReset(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := sessionPath(arguments(request), "/reset")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var response struct {
		Message string             `json:"message"`
		State   engine.PuzzleState `json:"state"`
	}
	if err := c.apiCall(ctx, "POST", path, nil, &response); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(response.Message + "\n\n" + formatPuzzleState(&response.State)), nil
}

func (c *Client) handleMoveHistory(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	path, err := sessionPath(args, "/history")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	query := url.Values{}
	if page, ok := intArg(args, "page"); ok {
		query.Set("page", fmt.Sprint(page))
	}
	if limit, ok := intArg(args, "limit"); ok {
		query.Set("limit", fmt.Sprint(limit))
	}
	if len(query) > 0 {
		path += "?" + query.Encode()
	}

	var history service.HistoryResponse
	if err := c.apiCall(ctx, "GET", path, nil, &history); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(formatHistory(&history)), nil
}

func (c *Client) handleLeaderboard(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	packID, _ := args["pack_id"].(string)
	level, ok := intArg(args, "level")
	if packID == "" || !ok {
		return mcp.NewToolResultError("pack_id and level are required"), nil
	}

	path := fmt.Sprintf("/api/packs/%s/levels/%d/leaderboard", url.PathEscape(packID), level)
	if limit, ok := intArg(args, "limit"); ok {
		path += fmt.Sprintf("?limit=%d", limit)
	}

	var response struct {
		Results []service.Result `json:"results"`
	}
	if err := c.apiCall(ctx, "GET", path, nil, &response); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(formatLeaderboard(packID, level, response.Results)), nil
}

func (c *Client) handleGameInstructions(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(instructions), nil
}

const instructions = `Chip Slide Puzzle - Complete Instructions

OBJECTIVE:
Rearrange the numbered chips so every band's front row is filled with the
right chip type.

GRID LEGEND:
• 0 = empty floor a chip can slide onto
• 9 = block, never passable
• 1..8 = a chip of that type
Coordinates are (x, y): x is the column, y is the row, both 0-based from the top left.

BANDS:
• Rows pair up into bands: rows 0-1 are band 0, rows 2-3 are band 1, and so on
• Band b expects chip type b+1 (band 0 wants 1s, band 1 wants 2s)
• Only the FIRST row of each band (rows 0, 2, 4...) is checked
• Odd rows are room to manoeuvre and can hold anything

MOVEMENT COMMANDS:
1. select_chip with chip_id or x,y to pick a chip
2. move_chip with a direction (up/down/left/right) or an adjacent x,y
• A chip moves exactly one cell up, down, left or right
• The destination must be an empty floor cell (0)
• No diagonal moves, no jumping, no moving onto blocks or other chips
• A refused move is reported as failed and costs nothing
• Selecting another chip replaces the selection

VICTORY CONDITIONS:
• The puzzle is solved the moment every front row holds only its band's type
• A solved puzzle accepts no more moves; use reset_puzzle or create_session for the next level
• Fewer moves ranks higher on the leaderboard; the optimal count is shown when known

STRATEGY NOTES:
• Read puzzle_state first: targets marked ✗ still need work
• Use the odd rows as parking space while shuffling chips between bands
• Fill a front row from the ends toward the middle so you keep a free lane
• Check "Allowed moves" after selecting; an empty list means the chip is boxed in
• move_history shows what you did if you need to retrace

Good luck!`

// Formatting helpers

func formatSessionInfo(session *service.SessionInfo) string {
	return fmt.Sprintf("Session: %s\nPack: %s\nLevel: %d (%s)\nCreated: %s\n\n%s",
		session.ID, session.PackID, session.LevelIndex, session.LevelName,
		session.CreatedAt.Format("2006-01-02 15:04:05"),
		formatPuzzleState(session.PuzzleState))
}

func formatPuzzleState(state *engine.PuzzleState) string {
	if state == nil {
		return "No puzzle state available"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Level: %s | Grid: %dx%d | Moves: %d (total %d)\n\n",
		state.LevelName, state.Columns, state.Rows, state.MoveCount, state.TotalMoves)

	// Column header then one line per row
	b.WriteString("    ")
	for x := 0; x < state.Columns; x++ {
		fmt.Fprintf(&b, "%d ", x)
	}
	b.WriteString("\n")
	for y, row := range state.Layout {
		marker := " "
		if y%engine.BandHeight == 0 {
			marker = "*"
		}
		fmt.Fprintf(&b, "%s%2d %s\n", marker, y, row)
	}
	b.WriteString("(* = front row of a band)\n\n")

	if len(state.Targets) > 0 {
		b.WriteString("Targets:\n")
		for _, t := range state.Targets {
			status := "✗"
			if t.Satisfied {
				status = "✓"
			}
			fmt.Fprintf(&b, "  row %d wants %d %s\n", t.Row, t.ChipType, status)
		}
	}

	if state.ActiveChip != nil {
		for _, chip := range state.Chips {
			if chip.ID == *state.ActiveChip {
				fmt.Fprintf(&b, "\nSelected: chip %d (type %d) at (%d,%d)\n", chip.ID, chip.Type, chip.Pos.X, chip.Pos.Y)
			}
		}
		b.WriteString("Allowed moves: " + formatPositions(state.AllowedMoves) + "\n")
	} else {
		b.WriteString("\nSelected: none\n")
	}

	if state.Solved {
		b.WriteString("\n🎉 SOLVED!")
	}

	return b.String()
}

func formatPositions(positions []engine.Position) string {
	if len(positions) == 0 {
		return "none"
	}
	parts := make([]string, len(positions))
	for i, p := range positions {
		parts[i] = fmt.Sprintf("(%d,%d)", p.X, p.Y)
	}
	return strings.Join(parts, " ")
}

func formatMoveResult(result *service.MoveResult) string {
	var b strings.Builder

	if result.Success {
		b.WriteString("✓ Move successful")
	} else {
		b.WriteString("✗ Move failed")
	}
	if result.Message != "" {
		b.WriteString(": " + result.Message)
	}
	b.WriteString("\n")

	if result.Optimal != nil {
		fmt.Fprintf(&b, "Optimal solution: %d moves\n", *result.Optimal)
	}
	b.WriteString("\n")
	b.WriteString(formatPuzzleState(result.PuzzleState))
	return b.String()
}

func formatHistory(history *service.HistoryResponse) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Move History (Page %d/%d), Total (cumulative): %d\n\n",
		history.Page, history.TotalPages, history.TotalMoves)

	for _, move := range history.Moves {
		fmt.Fprintf(&b, "%d. chip %d (type %d) (%d,%d) -> (%d,%d)\n",
			move.MoveNumber, move.ChipID, move.ChipType, move.From.X, move.From.Y, move.To.X, move.To.Y)
	}
	if len(history.Moves) == 0 {
		b.WriteString("(no moves)\n")
	}
	return b.String()
}

func formatLeaderboard(packID string, level int, results []service.Result) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Leaderboard %s #%d:\n\n", packID, level)
	if len(results) == 0 {
		b.WriteString("(no solves yet)\n")
	}
	for i, r := range results {
		fmt.Fprintf(&b, "%d. %d moves", i+1, r.Moves)
		if r.Optimal > 0 {
			fmt.Fprintf(&b, " (optimal %d)", r.Optimal)
		}
		fmt.Fprintf(&b, " by session %s at %s\n", r.SessionID, r.SolvedAt.Format("2006-01-02 15:04"))
	}
	return b.String()
}
