// Package engine wraps the chess rule library behind the small surface the
// coordinator needs: apply a move, read the side to move, and report whether
// the game has ended. Everything about legality, notation, and terminal
// detection is delegated to github.com/notnil/chess.
package engine

import (
	"errors"
	"fmt"

	"github.com/notnil/chess"
)

// ErrInvalidMove is returned when the rule library rejects a proposed move.
var ErrInvalidMove = errors.New("invalid move")

type Color string

const (
	White Color = "white"
	Black Color = "black"
)

// Opponent returns the other side.
func (c Color) Opponent() Color {
	if c == White {
		return Black
	}
	return White
}

type Status int

const (
	Ongoing Status = iota
	Checkmate
	Stalemate
	Draw
)

// MoveRecord is the normalized form of an accepted move, as appended to the
// session move log and replayed by clients.
type MoveRecord struct {
	San       string `json:"san"`
	From      string `json:"from"`
	To        string `json:"to"`
	Promotion string `json:"promotion,omitempty"`
	Color     Color  `json:"color"`
	FEN       string `json:"fen"`
}

// Game holds one chess position and its rule state.
type Game struct {
	inner *chess.Game
}

// NewGame returns a game at the standard starting position.
func NewGame() *Game {
	return &Game{inner: chess.NewGame()}
}

// NewGameFromFEN restores a game from a position in Forsyth-Edwards
// notation.
func NewGameFromFEN(fen string) (*Game, error) {
	opt, err := chess.FEN(fen)
	if err != nil {
		return nil, fmt.Errorf("parse fen: %w", err)
	}
	return &Game{inner: chess.NewGame(opt)}, nil
}

// FEN returns the current position in Forsyth-Edwards notation.
func (g *Game) FEN() string {
	return g.inner.Position().String()
}

// Turn returns the side to move.
func (g *Game) Turn() Color {
	if g.inner.Position().Turn() == chess.White {
		return White
	}
	return Black
}

// ApplyMove validates and applies a move given in coordinate form
// (e.g. "e2", "e4", promotion "q" when a pawn reaches the last rank).
// On success the position advances and the normalized record is returned;
// on rejection the position is unchanged and ErrInvalidMove is returned.
func (g *Game) ApplyMove(from, to, promotion string) (MoveRecord, error) {
	pos := g.inner.Position()
	mover := g.Turn()

	mv, err := chess.UCINotation{}.Decode(pos, from+to+promotion)
	if err != nil {
		return MoveRecord{}, fmt.Errorf("%w: %s%s%s", ErrInvalidMove, from, to, promotion)
	}
	san := chess.AlgebraicNotation{}.Encode(pos, mv)
	if err := g.inner.Move(mv); err != nil {
		return MoveRecord{}, fmt.Errorf("%w: %s%s%s", ErrInvalidMove, from, to, promotion)
	}

	return MoveRecord{
		San:       san,
		From:      from,
		To:        to,
		Promotion: promotion,
		Color:     mover,
		FEN:       g.inner.Position().String(),
	}, nil
}

// Status reports whether the game is still ongoing or how it ended.
// Stalemate is distinguished from other drawn outcomes because the wire
// protocol reports it separately.
func (g *Game) Status() Status {
	switch g.inner.Position().Status() {
	case chess.Checkmate:
		return Checkmate
	case chess.Stalemate:
		return Stalemate
	}
	if g.inner.Outcome() == chess.Draw {
		return Draw
	}
	return Ongoing
}
