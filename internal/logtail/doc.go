// Package logtail reads the end of the synq diagnostic log for display.
//
// # Overview
//
// The client writes JSON lines through zap. Read pulls the last N lines in
// one pass using O(N) memory and decodes each one into an Entry; lines that
// are not JSON (a panic trace, for example) are kept verbatim.
//
//	entries, err := logtail.Read(cfg.LogFile, 200)
//	for _, e := range entries {
//		fmt.Println(e.String())
//	}
//
// # Ring Buffer
//
// Read keeps a circular buffer of maxLines strings. Once it is full each new
// line overwrites the oldest, and the start index marks where chronological
// order begins. Blank lines are skipped and do not count toward maxLines.
//
// # Entry Rendering
//
// String renders "15:04:05 LEVEL message key=value ...", with extra fields
// sorted by key so output is stable between refreshes. The encoder's own keys
// (timestamp, level, msg, caller) are not repeated as fields.
package logtail
