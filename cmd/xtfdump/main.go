// Package main is a command line tool that decodes XTF files and prints a
// summary or the full decoded structure.
package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/twinfer/xtf-plugin/internal/cel"
	"github.com/twinfer/xtf-plugin/pkg/xtf"
	"github.com/urfave/cli/v2"
)

const (
	flagJSON        = "json"
	flagSchema      = "schema"
	flagHeaderCheck = "header-check"
	flagValidator   = "validator"
	flagConcurrency = "concurrency"
	flagVerbose     = "verbose"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:      "xtfdump",
		Usage:     "decode eXtended Triton Format sonar files",
		ArgsUsage: "FILE...",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  flagJSON,
				Usage: "print the decoded file as JSON",
			},
			&cli.StringFlag{
				Name:  flagSchema,
				Usage: "YAML schema set to use instead of the built-in XTF layouts",
			},
			&cli.BoolFlag{
				Name:  flagHeaderCheck,
				Usage: "only accept magic numbers followed by a zero HeaderType byte",
			},
			&cli.StringFlag{
				Name:  flagValidator,
				Usage: "CEL expression a magic number match must satisfy, e.g. 'num_chans <= 6'",
			},
			&cli.IntFlag{
				Name:  flagConcurrency,
				Value: 1,
				Usage: "number of pings whose channel headers are decoded in parallel",
			},
			&cli.BoolFlag{
				Name:    flagVerbose,
				Aliases: []string{"v"},
				Usage:   "log pipeline transitions and unreadable fields",
			},
		},
		Action: dumpAction,
	}
}

func dumpAction(c *cli.Context) error {
	if c.NArg() == 0 {
		return cli.Exit("at least one XTF file is required", 2)
	}

	level := slog.LevelError
	if c.Bool(flagVerbose) {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(c.App.ErrWriter, &slog.HandlerOptions{Level: level}))

	opts := []xtf.Option{
		xtf.WithLogger(logger),
		xtf.WithHeaderTypeCheck(c.Bool(flagHeaderCheck)),
		xtf.WithConcurrency(c.Int(flagConcurrency)),
	}
	if path := c.String(flagSchema); path != "" {
		opts = append(opts, xtf.WithSchemaPath(path))
	}
	if expr := c.String(flagValidator); expr != "" {
		validator, err := cel.NewPingValidator(expr)
		if err != nil {
			return cli.Exit(err, 2)
		}
		opts = append(opts, xtf.WithPingValidator(validator))
	}
	parser := xtf.NewParser(opts...)

	for _, path := range c.Args().Slice() {
		file, err := parser.ParseFile(c.Context, path)
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		if c.Bool(flagJSON) {
			enc := json.NewEncoder(c.App.Writer)
			enc.SetIndent("", "  ")
			if err := enc.Encode(file); err != nil {
				return fmt.Errorf("%s: %w", path, err)
			}
			continue
		}
		printSummary(c, path, file)
	}
	return nil
}

func printSummary(c *cli.Context, path string, file *xtf.File) {
	w := c.App.Writer
	fmt.Fprintf(w, "%s: %d bytes\n", path, file.Size)
	if v, ok := file.Header.Get("SonarName"); ok && !v.IsAbsent() {
		fmt.Fprintf(w, "  sonar:    %s\n", v)
	}
	fmt.Fprintf(w, "  channels: %d\n", len(file.Channels))
	for i, ch := range file.Channels {
		name, _ := ch.Get("ChannelName")
		fmt.Fprintf(w, "    [%d] %s\n", i, name)
	}
	fmt.Fprintf(w, "  pings:    %d\n", file.PingCount())
	if n := file.PingCount(); n > 0 {
		first, last := file.Pings[0], file.Pings[n-1]
		fmt.Fprintf(w, "    first at %d, last at %d\n", first.Offset, last.Offset)
	}
	if unreadable := file.Unreadable(); len(unreadable) > 0 {
		fmt.Fprintf(w, "  unreadable records: %d\n", len(unreadable))
		for _, u := range unreadable {
			fmt.Fprintf(w, "    %s at %d: %v\n", u.Record, u.Offset, u.Fields)
		}
	}
}
