// Package api provides the HTTP REST API for the chip sliding puzzle.
//
// Endpoints:
//
// Sessions:
//   - POST /api/sessions - Create a session, body {"pack_id": "...", "level": n} (both optional)
//   - GET /api/sessions - List sessions (?sort=created|accessed&order=asc|desc&limit=n)
//   - GET /api/sessions/{id} - Get one session
//   - DELETE /api/sessions/{id} - Delete a session
//
// Puzzle:
//   - GET /api/sessions/{id}/state - Current puzzle state
//   - POST /api/sessions/{id}/select - Select a chip by {"chip_id": n} or {"x": n, "y": n}
//   - POST /api/sessions/{id}/deselect - Clear the selection
//   - POST /api/sessions/{id}/move - Move the active chip to {"x": n, "y": n} or by {"direction": "up"}
//   - POST /api/sessions/{id}/reset - Reassemble the level
//   - GET /api/sessions/{id}/history - Paginated move history (?page=&limit=&order=)
//
// Level packs:
//   - GET /api/packs - List packs
//   - POST /api/packs - Store a pack, body {"id": "...", "text": "..."}
//   - GET /api/packs/{id} - Decoded levels of a pack
//   - GET /api/packs/{id}/levels/{level}/leaderboard - Best solves (?limit=n)
//
// Other:
//   - GET /health
//   - GET /ws?session={id} - WebSocket stream of state_update, chip_moved and puzzle_solved messages
//   - GET /metrics - Prometheus metrics, only with WithInstrumentation
//
// A move the rules refuse is not an error: the response is 200 with
// "success": false. Errors are JSON objects {"error": "..."}; unknown
// sessions, packs and levels are 404, malformed requests and invalid packs
// are 400, and acting on a solved puzzle is 409.
package api
