// Package session keeps puzzle sessions in memory and, optionally, on disk.
//
// Manager owns the session table. Each session wraps its own
// engine.PuzzleEngine with the level assembled. IDs are four hex characters
// from crypto/rand unless the caller supplies one, and lookups ignore case.
//
// FilePersistence writes one JSON file per session. Only the level and the
// move histories are stored: loading reassembles the level and replays the
// current attempt, so a file that no longer replays cleanly is rejected.
//
//	manager := session.NewManagerWithPersistence(opts, persistence, logger)
//	sess, err := manager.Create("", pack, 0)
package session
