package uci

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hailam/chesscore/internal/board"
	"github.com/hailam/chesscore/internal/engine"
)

// run feeds a transcript to a fresh handler and returns it with its output.
func run(t *testing.T, script string) (*UCI, []string) {
	t.Helper()
	var out bytes.Buffer
	eng := engine.NewEngine(engine.Options{HashBits: 16})
	u := New(eng, strings.NewReader(script), &out, zerolog.Nop())
	require.NoError(t, u.Run())
	return u, strings.Split(strings.TrimRight(out.String(), "\n"), "\n")
}

func bestmoves(lines []string) []string {
	var out []string
	for _, l := range lines {
		if s, ok := strings.CutPrefix(l, "bestmove "); ok {
			out = append(out, s)
		}
	}
	return out
}

func TestHandshake(t *testing.T) {
	_, lines := run(t, "uci\nisready\nquit\nisready\n")
	assert.Equal(t, "id name chesscore", lines[0])
	assert.Contains(t, lines, "uciok")
	assert.Equal(t, "readyok", lines[len(lines)-1])
	assert.Equal(t, 1, strings.Count(strings.Join(lines, "\n"), "readyok"))
}

func TestPositionStartposMoves(t *testing.T) {
	u, lines := run(t, "position startpos moves e2e4 e7e5 g1f3\nd\n")
	assert.Equal(t, board.WhitePawn, u.position.PieceAt(board.E4))
	assert.Equal(t, board.BlackPawn, u.position.PieceAt(board.E5))
	assert.Equal(t, board.WhiteKnight, u.position.PieceAt(board.F3))
	assert.Equal(t, board.Black, u.position.SideToMove)
	assert.Contains(t, strings.Join(lines, "\n"), "Side to move: Black")
}

func TestPositionErrors(t *testing.T) {
	u, lines := run(t, "position fen 8/8/8/8/8/8/8/8 w - - 0 1\nposition startpos moves e2e4 e2e5 d2d4\n")
	assert.Contains(t, lines, "info string position fen is not supported")
	assert.Contains(t, lines[1], "illegal move: e2e5")
	// Moves before the bad one are kept.
	assert.Equal(t, board.WhitePawn, u.position.PieceAt(board.E4))
	assert.Equal(t, board.NoPiece, u.position.PieceAt(board.D4))
}

func TestGoDepth(t *testing.T) {
	_, lines := run(t, "position startpos moves e2e4\ngo depth 2\n")
	moves := bestmoves(lines)
	require.Len(t, moves, 1)
	assert.True(t, strings.HasPrefix(lines[0], "info depth 1 score cp "), lines[0])

	pos := board.NewPosition()
	pos.Apply(mustParse(t, pos, "e2e4"))
	mustParse(t, pos, moves[0])
}

func mustParse(t *testing.T, pos *board.Position, s string) board.Move {
	t.Helper()
	m, err := pos.ParseMove(s)
	require.NoError(t, err)
	return m
}

func TestGoFindsMate(t *testing.T) {
	_, lines := run(t, "position startpos moves f2f3 e7e5 g2g4\ngo depth 3\n")
	assert.Equal(t, []string{"d8h4"}, bestmoves(lines))
	assert.Contains(t, lines[0], "score mate 1")
	assert.Contains(t, lines[0], "pv d8h4")
}

func TestGoInfiniteStop(t *testing.T) {
	u, lines := run(t, "go infinite\nstop\nstop\n")
	require.Len(t, bestmoves(lines), 1)
	assert.Nil(t, u.searchDone)
}

func TestGoMoveTime(t *testing.T) {
	start := time.Now()
	script := "ucinewgame\nposition startpos\ngo movetime 50\nisready\n"
	var out bytes.Buffer
	u := New(engine.NewEngine(engine.Options{HashBits: 16}), strings.NewReader(script), &out, zerolog.Nop())

	var got engine.Result
	u.OnResult = func(pos *board.Position, res engine.Result) {
		assert.Equal(t, board.NewPosition().Key, pos.Key)
		got = res
	}
	require.NoError(t, u.Run())
	assert.Less(t, time.Since(start), 5*time.Second)
	assert.Contains(t, out.String(), "bestmove "+got.Move.String())
	assert.True(t, board.NewPosition().IsLegal(got.Move))
}

func TestPerft(t *testing.T) {
	_, lines := run(t, "perft 3\nposition startpos moves e2e4\nperft 1\n")
	assert.Equal(t, "Nodes: 8902", lines[0])
	assert.Contains(t, lines, "Nodes: 20")
}

func TestSetOption(t *testing.T) {
	_, lines := run(t, "setoption name Clear Hash\nsetoption name Hash value 64\n")
	assert.Equal(t, []string{"info string unknown option: Hash"}, lines)
}

func TestParseGoOptions(t *testing.T) {
	limits := parseGoOptions(strings.Fields("wtime 60000 btime 30000 winc 1000 binc 500 movestogo 20 depth 7")).Limits()
	assert.Equal(t, engine.Limits{
		Time:      [2]time.Duration{time.Minute, 30 * time.Second},
		Inc:       [2]time.Duration{time.Second, 500 * time.Millisecond},
		MovesToGo: 20,
		Depth:     7,
	}, limits)

	limits = parseGoOptions([]string{"infinite", "movetime"}).Limits()
	assert.True(t, limits.Infinite)
	assert.Zero(t, limits.MoveTime)
}

func TestScoreString(t *testing.T) {
	pv := make([]board.Move, 3)
	assert.Equal(t, "cp -35", scoreString(-35, pv))
	assert.Equal(t, "mate 2", scoreString(engine.MateScore, pv))
	assert.Equal(t, "mate -1", scoreString(-engine.MateScore, pv))
}
