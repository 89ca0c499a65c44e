package uci

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/hailam/chesscore/internal/board"
	"github.com/hailam/chesscore/internal/engine"
)

// UCI implements the Universal Chess Interface protocol.
type UCI struct {
	engine   *engine.Engine
	position *board.Position
	in       io.Reader
	out      io.Writer
	outMu    sync.Mutex
	log      zerolog.Logger

	// Search state
	cancel     context.CancelFunc
	searchDone chan struct{}

	// OnResult is called from the search goroutine with the searched
	// position and the result, before bestmove is sent.
	OnResult func(pos *board.Position, res engine.Result)
}

// New creates a new UCI protocol handler reading commands from in and
// writing responses to out.
func New(eng *engine.Engine, in io.Reader, out io.Writer, log zerolog.Logger) *UCI {
	return &UCI{
		engine:   eng,
		position: board.NewPosition(),
		in:       in,
		out:      out,
		log:      log.With().Str("component", "uci").Logger(),
	}
}

func (u *UCI) send(format string, args ...any) {
	u.outMu.Lock()
	defer u.outMu.Unlock()
	fmt.Fprintf(u.out, format+"\n", args...)
}

// Run reads commands until quit or end of input. A search still running at
// that point is stopped and its bestmove sent before Run returns.
func (u *UCI) Run() error {
	defer u.handleStop()

	scanner := bufio.NewScanner(u.in)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		parts := strings.Fields(line)
		cmd := parts[0]
		args := parts[1:]
		u.log.Debug().Str("cmd", line).Msg("received")

		switch cmd {
		case "uci":
			u.handleUCI()
		case "isready":
			u.send("readyok")
		case "ucinewgame":
			u.handleNewGame()
		case "position":
			u.handlePosition(args)
		case "go":
			u.handleGo(args)
		case "stop":
			u.handleStop()
		case "quit":
			return nil
		case "setoption":
			u.handleSetOption(args)
		// Debug commands
		case "d":
			u.send("%s", u.position.String())
		case "perft":
			u.handlePerft(args)
		default:
			u.send("info string unknown command: %s", cmd)
		}
	}
	return scanner.Err()
}

// handleUCI responds to the "uci" command.
func (u *UCI) handleUCI() {
	u.send("id name chesscore")
	u.send("id author chesscore developers")
	u.send("")
	u.send("option name Clear Hash type button")
	u.send("uciok")
}

// handleNewGame resets the engine for a new game.
func (u *UCI) handleNewGame() {
	u.handleStop()
	u.engine.Clear()
	u.position = board.NewPosition()
}

// handlePosition sets up the position. Only the start position is
// supported:
//   - position startpos
//   - position startpos moves e2e4 e7e5
func (u *UCI) handlePosition(args []string) {
	if len(args) == 0 {
		return
	}
	if args[0] == "fen" {
		u.send("info string position fen is not supported")
		return
	}
	if args[0] != "startpos" {
		u.send("info string unknown position type: %s", args[0])
		return
	}

	u.handleStop()
	pos := board.NewPosition()
	if len(args) > 2 && args[1] == "moves" {
		for _, s := range args[2:] {
			if pos.Ply() >= board.MaxUndoDepth-engine.MaxPly {
				u.send("info string game too long, ignoring moves from %s", s)
				break
			}
			m, err := pos.ParseMove(s)
			if err != nil {
				u.send("info string %v", err)
				break
			}
			pos.Apply(m)
		}
	}
	u.position = pos
}

// GoOptions holds parsed "go" command options.
type GoOptions struct {
	Depth     int
	MoveTime  time.Duration
	Infinite  bool
	WTime     time.Duration
	BTime     time.Duration
	WInc      time.Duration
	BInc      time.Duration
	MovesToGo int
}

// handleGo starts a search in the background. bestmove is sent when it
// ends.
func (u *UCI) handleGo(args []string) {
	u.handleStop()
	limits := parseGoOptions(args).Limits()

	pos := u.position.Clone()
	root := u.position.Clone()
	u.engine.OnInfo = func(info engine.SearchInfo) {
		u.sendInfo(root, info)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	u.cancel = cancel
	u.searchDone = done

	go func() {
		defer close(done)
		res := u.engine.Search(ctx, pos, limits)
		if u.OnResult != nil {
			u.OnResult(pos, res)
		}
		u.send("bestmove %s", res.Move)
	}()
}

func parseGoOptions(args []string) GoOptions {
	opts := GoOptions{}
	next := func(i *int) int {
		if *i+1 >= len(args) {
			return 0
		}
		*i++
		n, _ := strconv.Atoi(args[*i])
		return n
	}
	ms := func(i *int) time.Duration {
		return time.Duration(next(i)) * time.Millisecond
	}

	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "depth":
			opts.Depth = next(&i)
		case "movetime":
			opts.MoveTime = ms(&i)
		case "infinite":
			opts.Infinite = true
		case "wtime":
			opts.WTime = ms(&i)
		case "btime":
			opts.BTime = ms(&i)
		case "winc":
			opts.WInc = ms(&i)
		case "binc":
			opts.BInc = ms(&i)
		case "movestogo":
			opts.MovesToGo = next(&i)
		}
	}
	return opts
}

// Limits converts GoOptions to engine.Limits.
func (o GoOptions) Limits() engine.Limits {
	return engine.Limits{
		Time:      [2]time.Duration{o.WTime, o.BTime},
		Inc:       [2]time.Duration{o.WInc, o.BInc},
		MovesToGo: o.MovesToGo,
		MoveTime:  o.MoveTime,
		Depth:     o.Depth,
		Infinite:  o.Infinite,
	}
}

// scoreString formats a score for an info line. Mate scores carry no
// distance, so the mate length is read off the principal variation.
func scoreString(score int, pv []board.Move) string {
	switch {
	case score >= engine.MateScore:
		return fmt.Sprintf("mate %d", (len(pv)+1)/2)
	case score <= -engine.MateScore:
		return fmt.Sprintf("mate -%d", len(pv)/2)
	default:
		return fmt.Sprintf("cp %d", score)
	}
}

// sendInfo outputs search info in UCI format.
func (u *UCI) sendInfo(root *board.Position, info engine.SearchInfo) {
	parts := []string{
		fmt.Sprintf("depth %d", info.Depth),
		"score " + scoreString(info.Score, info.PV),
		fmt.Sprintf("nodes %d", info.Nodes),
		fmt.Sprintf("time %d", info.Time.Milliseconds()),
	}
	if info.Time > 0 {
		nps := uint64(float64(info.Nodes) / info.Time.Seconds())
		parts = append(parts, fmt.Sprintf("nps %d", nps))
	}
	if info.HashFull > 0 {
		parts = append(parts, fmt.Sprintf("hashfull %d", info.HashFull))
	}

	// Stop the PV at the first move that is not legal in sequence.
	if len(info.PV) > 0 {
		pv := make([]string, 0, len(info.PV))
		pos := root.Clone()
		for _, m := range info.PV {
			if !pos.GenerateLegalMoves().Contains(m) {
				break
			}
			pv = append(pv, m.String())
			pos.Apply(m)
		}
		if len(pv) > 0 {
			parts = append(parts, "pv "+strings.Join(pv, " "))
		}
	}

	u.send("info %s", strings.Join(parts, " "))
}

// handleStop stops the current search and waits for its bestmove.
func (u *UCI) handleStop() {
	if u.searchDone == nil {
		return
	}
	u.cancel()
	<-u.searchDone
	u.cancel = nil
	u.searchDone = nil
}

// handleSetOption processes "setoption" commands.
func (u *UCI) handleSetOption(args []string) {
	// Format: setoption name <name> [value <value>]
	var name, value []string
	target := &name
	for _, arg := range args {
		switch arg {
		case "name":
			target = &name
		case "value":
			target = &value
		default:
			*target = append(*target, arg)
		}
	}

	switch strings.ToLower(strings.Join(name, " ")) {
	case "clear hash":
		u.handleStop()
		u.engine.Clear()
	default:
		u.send("info string unknown option: %s", strings.Join(name, " "))
	}
}

// handlePerft runs a perft test.
func (u *UCI) handlePerft(args []string) {
	depth := 5
	if len(args) > 0 {
		if d, err := strconv.Atoi(args[0]); err == nil {
			depth = d
		}
	}

	u.handleStop()
	start := time.Now()
	nodes := u.engine.Perft(u.position, depth)
	elapsed := time.Since(start)

	u.send("Nodes: %d", nodes)
	u.send("Time: %v", elapsed)
	if elapsed > 0 {
		u.send("NPS: %.0f", float64(nodes)/elapsed.Seconds())
	}
}
