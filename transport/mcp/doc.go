// Package mcp exposes the puzzle to AI agents over the Model Context Protocol.
//
// The Client is a thin proxy: every tool call becomes a request to the REST
// API and the JSON response is rendered as plain text an agent can read.
//
// Tools:
//   - list_packs: level packs and their level names
//   - create_session: new session on a pack level
//   - list_sessions, get_session: session details
//   - puzzle_state: grid layout with band targets and allowed moves
//   - select_chip: select by chip_id or x,y
//   - move_chip: move the selection to x,y or in a direction
//   - reset_puzzle: reassemble the current level
//   - move_history: paginated committed moves
//   - leaderboard: best solves of a level
//   - game_instructions: rules and strategy notes
//
// Usage:
//
//	client := mcp.NewClient("http://localhost:8080")
//	server.ServeStdio(client.GetMCPServer())
package mcp
