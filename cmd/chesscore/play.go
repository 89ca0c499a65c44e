package main

import (
	"context"
	"fmt"
	"io"
	"math/rand/v2"
	"time"

	"github.com/spf13/cobra"

	"github.com/hailam/chesscore/internal/board"
	"github.com/hailam/chesscore/internal/book"
	"github.com/hailam/chesscore/internal/engine"
	"github.com/hailam/chesscore/internal/storage"
)

// adjudicate reports whether the game in pos is over, and how.
// Repetition here means a threefold occurrence, not the single repeat the
// search scores as a draw.
func adjudicate(pos *board.Position, maxPlies int) (winner board.Color, reason string, over bool) {
	switch {
	case !pos.HasLegalMoves():
		if pos.InCheck() {
			return pos.SideToMove.Other(), "checkmate", true
		}
		return board.NoColor, "stalemate", true
	case pos.IsInsufficientMaterial():
		return board.NoColor, "insufficient-material", true
	case pos.IsFiftyMove():
		return board.NoColor, "fifty-move", true
	case pos.RepetitionCount() >= 2:
		return board.NoColor, "repetition", true
	case pos.Ply() >= maxPlies:
		return board.NoColor, "move-limit", true
	}
	return board.NoColor, "", false
}

// maxGamePlies leaves room on the undo stack for the deepest search line.
const maxGamePlies = board.MaxUndoDepth - engine.MaxPly

// playGame lets eng play both sides from the start position. Moves come
// from bk while the position is in the book.
func playGame(ctx context.Context, eng *engine.Engine, bk *book.Book, rng *rand.Rand, budget time.Duration, maxPlies int, out io.Writer) (storage.GameResult, error) {
	if maxPlies < 1 || maxPlies > maxGamePlies {
		return storage.GameResult{}, fmt.Errorf("max plies must be in 1..%d, got %d", maxGamePlies, maxPlies)
	}
	start := time.Now()
	pos := board.NewPosition()
	eng.Clear()

	for {
		if winner, reason, over := adjudicate(pos, maxPlies); over {
			return storage.GameResult{
				Winner:   winner,
				Reason:   reason,
				Plies:    pos.Ply(),
				Duration: time.Since(start),
			}, nil
		}
		if err := ctx.Err(); err != nil {
			return storage.GameResult{}, err
		}

		m, inBook := bk.Probe(pos, rng)
		if !inBook {
			m = eng.ExecuteContext(ctx, pos, budget).Move
		}
		if pos.SideToMove == board.White {
			fmt.Fprintf(out, "%d. ", pos.FullMoveNumber)
		}
		fmt.Fprintf(out, "%s ", m)
		pos.Apply(m)
	}
}

func runPlay(cmd *cobra.Command, args []string) error {
	store, err := a.OpenStorage()
	if err != nil {
		return err
	}
	defer store.Close()

	eng, err := a.NewEngine()
	if err != nil {
		return err
	}

	var bk *book.Book
	switch {
	case noBook:
	case bookPath != "":
		if bk, err = book.Load(bookPath); err != nil {
			return err
		}
	default:
		bk = book.Default()
	}
	rng := rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0))

	out := cmd.OutOrStdout()
	for i := 0; i < gameCount; i++ {
		result, err := playGame(cmd.Context(), eng, bk, rng, searchBudget(), maxPlies, out)
		if err != nil {
			return err
		}
		outcome := "1/2-1/2"
		switch result.Winner {
		case board.White:
			outcome = "1-0"
		case board.Black:
			outcome = "0-1"
		}
		fmt.Fprintf(out, "\n%s (%s, %d plies)\n", outcome, result.Reason, result.Plies)

		if err := store.RecordGame(result); err != nil {
			return fmt.Errorf("failed to record game: %w", err)
		}
		a.Log.Info().Int("game", i+1).Str("result", outcome).Str("reason", result.Reason).
			Dur("duration", result.Duration).Msg("game finished")
	}
	return nil
}
