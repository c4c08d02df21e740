// Package service is the business layer between the transports (HTTP,
// WebSocket, MCP) and the puzzle engine.
//
// GameService owns session isolation and turns engine signals into
// GameEvents. A move is committed by the engine first; the service then
// attaches relocation keyframes, records solved runs on the leaderboard
// and reports metrics. Storage and level loading sit behind the
// SessionManager, PackManager and ResultStore interfaces.
//
//	svc := service.NewGameService(sessions, packs,
//		service.WithResults(store),
//		service.WithSolver(solver.New(0)),
//	)
//	info, err := svc.CreateSession(ctx, "classic", 0)
package service
