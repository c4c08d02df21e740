// Package levels loads, caches and stores level packs.
//
// A level pack is a text file in the level format understood by
// engine.DecodeLevels: levels separated by '#', each starting with a name
// line followed by rows of space separated digits.
//
//	#First Steps
//	0 0
//	1 1
//
// Packs are looked up first in the levels directory (<dir>/<id>.txt) and then
// among the packs embedded in the binary. The embedded "classic" pack is
// always available and is the default.
//
// Usage:
//
//	manager, err := levels.NewManager("levels", engine.MaxChipTypes)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	unsubscribe := manager.OnLoaded(func(names []string) {
//		fmt.Println("levels:", names)
//	})
//	defer unsubscribe()
//
//	pack, err := manager.LoadPack("classic")
//
// Levels that fail to decode or to assemble with the configured chip type
// count are left out of the pack and listed in Pack.Skipped. A pack without
// a single playable level is rejected with ErrInvalidPack.
package levels
