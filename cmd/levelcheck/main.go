// Command levelcheck inspects level pack files before they are served.
//
//	levelcheck validate packs/*.txt     check every level can be assembled and won
//	levelcheck analyze classic          shortest solution per level (BFS)
//	levelcheck names mypack.txt         list level names in pack order
//
// analyze and names accept a file path or the ID of an embedded pack.
package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/wricardo/chipslide/game/engine"
	"github.com/wricardo/chipslide/game/solver"
)

func main() {
	if err := newApp(os.Stdout).Run(context.Background(), os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func chipTypesFlag() cli.Flag {
	return &cli.IntFlag{
		Name:    "chip-types",
		Aliases: []string{"c"},
		Value:   engine.MaxChipTypes,
		Usage:   "number of distinct chip types a level may use",
	}
}

func newApp(out io.Writer) *cli.Command {
	return &cli.Command{
		Name:   "levelcheck",
		Usage:  "validate and analyze chip slide level packs",
		Writer: out,
		Commands: []*cli.Command{
			{
				Name:      "validate",
				Usage:     "check that every level decodes, assembles and can be won",
				ArgsUsage: "<pack.txt>...",
				Flags:     []cli.Flag{chipTypesFlag()},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return runValidate(out, cmd.Args().Slice(), int(cmd.Int("chip-types")))
				},
			},
			{
				Name:      "analyze",
				Usage:     "find the shortest solution of every level",
				ArgsUsage: "<pack.txt|pack-id>",
				Flags: []cli.Flag{
					chipTypesFlag(),
					&cli.IntFlag{
						Name:  "max-states",
						Value: solver.DefaultMaxStates,
						Usage: "give up on a level after this many grid states",
					},
					&cli.BoolFlag{
						Name:  "steps",
						Usage: "print the moves of each solution",
					},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					if cmd.Args().Len() != 1 {
						return fmt.Errorf("analyze takes exactly one pack")
					}
					return runAnalyze(ctx, out, cmd.Args().First(), int(cmd.Int("chip-types")),
						int(cmd.Int("max-states")), cmd.Bool("steps"))
				},
			},
			{
				Name:      "names",
				Usage:     "list level names in pack order",
				ArgsUsage: "<pack.txt|pack-id>",
				Flags:     []cli.Flag{chipTypesFlag()},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					if cmd.Args().Len() != 1 {
						return fmt.Errorf("names takes exactly one pack")
					}
					levels, err := loadLevels(cmd.Args().First(), int(cmd.Int("chip-types")))
					if err != nil {
						return err
					}
					for i, level := range levels {
						fmt.Fprintf(out, "%d. %s\n", i, level.Name)
					}
					return nil
				},
			},
		},
	}
}

func runValidate(out io.Writer, paths []string, chipTypes int) error {
	if len(paths) == 0 {
		return fmt.Errorf("validate needs at least one pack file")
	}

	invalid := 0
	for _, path := range paths {
		fmt.Fprintf(out, "\n=== %s ===\n", path)
		for _, res := range validatePack(path, chipTypes) {
			name := res.Level
			if name == "" {
				name = "(unnamed)"
			}
			if res.Valid {
				fmt.Fprintf(out, "✅ %s", name)
				for _, note := range res.Notes {
					fmt.Fprintf(out, " | %s", note)
				}
				fmt.Fprintln(out)
				continue
			}
			invalid++
			fmt.Fprintf(out, "❌ %s\n", name)
			for _, e := range res.Errors {
				fmt.Fprintf(out, "   - %s\n", e)
			}
		}
	}

	if invalid > 0 {
		return fmt.Errorf("%d invalid level(s)", invalid)
	}
	fmt.Fprintln(out, "\nAll levels valid")
	return nil
}

func runAnalyze(ctx context.Context, out io.Writer, arg string, chipTypes, maxStates int, showSteps bool) error {
	levels, err := loadLevels(arg, chipTypes)
	if err != nil {
		return err
	}

	s := solver.New(maxStates)
	for _, level := range levels {
		printAnalysis(out, analyzeLevel(ctx, s, level, chipTypes), showSteps)
	}
	return nil
}
