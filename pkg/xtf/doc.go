// Package xtf decodes eXtended Triton Format (XTF) sonar files held in
// memory.
//
// # Overview
//
// An XTF buffer starts with a file header, followed by as many channel
// info records as the header's NumberOfSonarChannels field says. Ping
// records follow; each starts with the 0xFACE magic number and is followed
// by NumChansToFollow ping channel headers. Pings are located by scanning
// for the magic number one byte at a time, since sample payloads between
// pings have no fixed length.
//
// Record layouts come from an xtfschema.Set (the embedded default matches
// the published format) and are decoded by package record.
//
// # Quick Start
//
//	data, err := os.ReadFile("line12.xtf")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	file, err := xtf.ParseBytes(data)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println("pings:", file.PingCount())
//
// # Custom Parser Instance
//
//	parser := xtf.NewParser(
//	    xtf.WithLogger(logger),
//	    xtf.WithHeaderTypeCheck(true),
//	    xtf.WithConcurrency(4),
//	)
//	file, err := parser.Parse(ctx, data)
//
// # Configuration Options
//
//   - WithLogger(*slog.Logger): Custom logging
//   - WithSchemaSet(*xtfschema.Set) / WithSchemaPath(string): Record layouts
//   - WithMagic(uint16): Ping magic number (default 0xFACE)
//   - WithPingValidator(PingValidator): Reject false magic number matches
//   - WithHeaderTypeCheck(bool): Require HeaderType == 0 after the magic number
//   - WithConcurrency(int): Decode ping channel headers in parallel
//
// # Error Handling
//
// Fields that cannot be read (past the end of the buffer, invalid text)
// decode to absent values and are listed by File.Unreadable; they never
// fail a Parse. Parse only fails on schema defects and cancellation.
// Running out of magic numbers is the normal end of a file.
//
// # Thread Safety
//
// A Parser may be shared between goroutines. Decoded files are immutable
// snapshots of the buffer.
package xtf
