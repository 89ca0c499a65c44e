package main

import (
	"cmp"
	"context"
	"fmt"
	"runtime"
	"slices"
	"strconv"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/hailam/chesscore/internal/board"
)

// divideResult is the perft count below one root move.
type divideResult struct {
	Move  board.Move
	Nodes uint64
}

// perftDivide counts each root move's subtree in parallel. Every goroutine
// works on its own clone of pos.
func perftDivide(ctx context.Context, pos *board.Position, depth int) ([]divideResult, error) {
	if depth < 1 {
		return nil, fmt.Errorf("divide needs depth >= 1, got %d", depth)
	}
	moves := pos.GenerateLegalMoves().Slice()
	results := make([]divideResult, len(moves))

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, m := range moves {
		g.Go(func() error {
			if err := gCtx.Err(); err != nil {
				return err
			}
			p := pos.Clone()
			p.Apply(m)
			results[i] = divideResult{Move: m, Nodes: p.Perft(depth - 1)}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	slices.SortFunc(results, func(a, b divideResult) int {
		return cmp.Compare(a.Move.String(), b.Move.String())
	})
	return results, nil
}

func runPerft(cmd *cobra.Command, args []string) error {
	d, err := strconv.Atoi(args[0])
	if err != nil || d < 0 {
		return fmt.Errorf("invalid depth %q", args[0])
	}
	pos, err := positionFromMoves(moveList)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()

	start := time.Now()
	var nodes uint64
	if divide && d > 0 {
		results, err := perftDivide(cmd.Context(), pos, d)
		if err != nil {
			return err
		}
		for _, r := range results {
			fmt.Fprintf(out, "%s: %d\n", r.Move, r.Nodes)
			nodes += r.Nodes
		}
		fmt.Fprintln(out)
	} else {
		nodes = pos.Perft(d)
	}
	elapsed := time.Since(start)

	fmt.Fprintf(out, "Nodes: %d\n", nodes)
	fmt.Fprintf(out, "Time: %v\n", elapsed.Round(time.Millisecond))
	a.Log.Debug().Int("depth", d).Uint64("nodes", nodes).Dur("elapsed", elapsed).Msg("perft")
	return nil
}
