// Package websocket pushes puzzle updates to browser clients.
//
// A Hub tracks clients per session and fans out JSON messages of the form
// {session_id, event, puzzle_state?, data?}. Events are state_update,
// chip_moved and puzzle_solved. Clients only listen: the connection carries
// pings and server pushes, and every mutation goes through the REST API.
//
//	hub := websocket.NewHub(logger)
//	go hub.Run(ctx)
//	router.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
//		hub.ServeWS(w, r, r.URL.Query().Get("session"))
//	})
package websocket
