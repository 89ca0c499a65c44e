package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/hailam/chesscore/internal/app"
	"github.com/hailam/chesscore/internal/board"
	"github.com/hailam/chesscore/internal/engine"
	"github.com/hailam/chesscore/internal/storage"
	"github.com/hailam/chesscore/internal/uci"
)

// --- Global Command Variables ---
var (
	configPath  string
	logLevel    string
	metricsAddr string

	moveList  string
	divide    bool
	moveTime  time.Duration
	depth     int
	useCache  bool
	maxPlies  int
	gameCount int
	bookPath  string
	noBook    bool

	a *app.App

	rootCmd = &cobra.Command{
		Use:          "chesscore",
		Short:        "Chess engine core: perft, search and self-play",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := app.LoadConfig(configPath)
			if err != nil {
				return err
			}
			if logLevel != "" {
				cfg.Log.Level = logLevel
			}
			if metricsAddr != "" {
				cfg.Metrics.Addr = metricsAddr
			}
			a = app.New(cfg, os.Stderr)
			a.ServeMetrics(cmd.Context())
			return nil
		},
	}

	perftCmd = &cobra.Command{
		Use:   "perft [depth]",
		Short: "Count legal move paths from the start position",
		Args:  cobra.ExactArgs(1),
		RunE:  runPerft, // Defined in perft.go
	}

	bestmoveCmd = &cobra.Command{
		Use:   "bestmove",
		Short: "Search the start position (after --moves) and print the best move",
		RunE:  runBestMove,
	}

	playCmd = &cobra.Command{
		Use:   "play",
		Short: "Let the engine play itself and record the results",
		RunE:  runPlay, // Defined in play.go
	}

	statsCmd = &cobra.Command{
		Use:   "stats",
		Short: "Print recorded self-play statistics",
		RunE:  runStats,
	}

	uciCmd = &cobra.Command{
		Use:   "uci",
		Short: "Speak UCI on stdin/stdout",
		RunE:  runUCI,
	}
)

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&configPath, "config", "chesscore.yaml", "path to the YAML config (missing file means defaults)")
	pf.StringVar(&logLevel, "log-level", "", "override log.level")
	pf.StringVar(&metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address")

	perftCmd.Flags().StringVar(&moveList, "moves", "", "space-separated moves to play from the start position")
	perftCmd.Flags().BoolVar(&divide, "divide", false, "print the count below each root move")

	bestmoveCmd.Flags().StringVar(&moveList, "moves", "", "space-separated moves to play from the start position")
	bestmoveCmd.Flags().DurationVar(&moveTime, "movetime", 0, "search time (default search.move_time)")
	bestmoveCmd.Flags().IntVar(&depth, "depth", 0, "maximum depth (default search.max_depth)")
	bestmoveCmd.Flags().BoolVar(&useCache, "cache", false, "reuse and store results in the analysis database")

	playCmd.Flags().DurationVar(&moveTime, "movetime", 0, "time per move (default search.move_time)")
	playCmd.Flags().IntVar(&maxPlies, "max-plies", 300, "adjudicate a draw after this many plies")
	playCmd.Flags().IntVar(&gameCount, "games", 1, "number of games to play")
	playCmd.Flags().StringVar(&bookPath, "book", "", "opening book: move lines, or binary with a .bin extension (default built-in)")
	playCmd.Flags().BoolVar(&noBook, "no-book", false, "search from the first move")

	uciCmd.Flags().BoolVar(&useCache, "cache", false, "store search results in the analysis database")

	rootCmd.AddCommand(perftCmd, bestmoveCmd, playCmd, statsCmd, uciCmd)
}

// positionFromMoves plays coordinate moves from the start position.
func positionFromMoves(moves string) (*board.Position, error) {
	pos := board.NewPosition()
	for _, s := range strings.Fields(moves) {
		m, err := pos.ParseMove(s)
		if err != nil {
			return nil, err
		}
		pos.Apply(m)
	}
	return pos, nil
}

func searchBudget() time.Duration {
	if moveTime > 0 {
		return moveTime
	}
	return a.Config.MoveTime()
}

func runBestMove(cmd *cobra.Command, args []string) error {
	pos, err := positionFromMoves(moveList)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()

	var store *storage.Storage
	if useCache {
		store, err = a.OpenStorage()
		if err != nil {
			return err
		}
		defer store.Close()

		cached, err := store.LoadAnalysis(pos.Key)
		switch {
		case err == nil && cached.Depth >= max(depth, 1):
			fmt.Fprintf(out, "bestmove %s score %s depth %d (cached)\n",
				cached.BestMove(), engine.ScoreToString(cached.Score), cached.Depth)
			return nil
		case err != nil && !errors.Is(err, storage.ErrNotFound):
			return err
		}
	}

	eng, err := a.NewEngine()
	if err != nil {
		return err
	}
	eng.OnInfo = func(info engine.SearchInfo) {
		a.Log.Debug().Int("depth", info.Depth).Int("score", info.Score).
			Uint64("nodes", info.Nodes).Msg("iteration")
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()
	res := eng.Search(ctx, pos, engine.Limits{MoveTime: searchBudget(), Depth: depth})

	pv := make([]string, len(res.PV))
	for i, m := range res.PV {
		pv[i] = m.String()
	}
	fmt.Fprintf(out, "bestmove %s score %s depth %d nodes %d time %s pv %s\n",
		res.Move, engine.ScoreToString(res.Score), res.Depth, res.Nodes,
		res.Elapsed.Round(time.Millisecond), strings.Join(pv, " "))

	if store != nil && res.Move != board.NoMove {
		if err := store.SaveAnalysis(pos.Key, storage.NewAnalysis(res)); err != nil {
			return fmt.Errorf("failed to cache analysis: %w", err)
		}
	}
	return nil
}

func runStats(cmd *cobra.Command, args []string) error {
	store, err := a.OpenStorage()
	if err != nil {
		return err
	}
	defer store.Close()

	stats, err := store.LoadStats()
	if err != nil {
		return err
	}
	analyses, err := store.CountAnalyses()
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Games played:   %d\n", stats.GamesPlayed)
	fmt.Fprintf(out, "White wins:     %d (%.1f%%)\n", stats.Wins, stats.GetWinRate())
	fmt.Fprintf(out, "Black wins:     %d\n", stats.Losses)
	fmt.Fprintf(out, "Draws:          %d\n", stats.Draws)
	fmt.Fprintf(out, "Average plies:  %.1f\n", stats.AveragePlies())
	fmt.Fprintf(out, "Longest game:   %d plies\n", stats.LongestGame)
	fmt.Fprintf(out, "Longest White streak: %d\n", stats.LongestWinStrk)
	for reason, n := range stats.ByReason {
		fmt.Fprintf(out, "  %-22s %d\n", reason+":", n)
	}
	fmt.Fprintf(out, "Cached analyses: %d\n", analyses)
	return nil
}

func runUCI(cmd *cobra.Command, args []string) error {
	eng, err := a.NewEngine()
	if err != nil {
		return err
	}
	protocol := uci.New(eng, cmd.InOrStdin(), cmd.OutOrStdout(), a.Log)

	if useCache {
		store, err := a.OpenStorage()
		if err != nil {
			return err
		}
		defer store.Close()
		protocol.OnResult = func(pos *board.Position, res engine.Result) {
			if res.Move == board.NoMove {
				return
			}
			if err := store.SaveAnalysis(pos.Key, storage.NewAnalysis(res)); err != nil {
				a.Log.Warn().Err(err).Msg("failed to cache analysis")
			}
		}
	}
	return protocol.Run()
}
