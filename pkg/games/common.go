// Copyright © 2024 Rak Laptudirm <rak@laptudirm.com>
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package games adapts external chess rules libraries to the Oracle
// interface used by game sessions and the record codec.
package games

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// StartFEN is the position string of the default starting arrangement.
const StartFEN = "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1"

var (
	ErrIllegalMove = errors.New("illegal move")
	ErrInvalidFEN  = errors.New("invalid position string")
	ErrNoMoves     = errors.New("no moves to unmake")
)

// GetOracle returns a fresh, uninitialized oracle for the named rules
// backend. The empty name selects the default backend.
func GetOracle(name string) (Oracle, error) {
	switch name {
	case "chess", "":
		return &ChessOracle{}, nil
	case "mess":
		return &MessOracle{}, nil
	default:
		return nil, fmt.Errorf("games: unknown rules backend %q", name)
	}
}

// Oracle is a mutable chess position backed by a rules library. Moves are
// coordinate strings like e2e4 or e7e8q.
type Oracle interface {
	Initialize(fen string) error

	MakeMove(move string) error
	UnmakeMove() (string, error)
	LegalMoves() []string

	FEN() string
	SideToMove() Color

	IsInCheck(Color) bool
	IsCheckmate() bool
	IsStalemate() bool
	IsFivefoldRepetition() bool
	IsSeventyFiveMoves() bool
	IsInsufficientMaterial() bool
}

type Color uint8

const (
	White Color = iota
	Black
	ColorN = 2
)

func (color Color) Other() Color {
	return color ^ 1
}

func (color Color) String() string {
	if color == White {
		return "white"
	}

	return "black"
}

func (color Color) MarshalText() ([]byte, error) {
	return []byte(color.String()), nil
}

func (color *Color) UnmarshalText(text []byte) error {
	parsed, err := ParseColor(string(text))
	if err != nil {
		return err
	}

	*color = parsed
	return nil
}

// ParseColor accepts white/black and their w/b abbreviations.
func ParseColor(s string) (Color, error) {
	switch strings.ToLower(s) {
	case "white", "w":
		return White, nil
	case "black", "b":
		return Black, nil
	default:
		return White, fmt.Errorf("games: invalid color %q", s)
	}
}

// ValidateFEN performs the structural checks shared by every backend before
// a position string is handed to a rules library.
func ValidateFEN(fen string) error {
	fields := strings.Fields(fen)
	if len(fields) != 6 {
		return fmt.Errorf("%w: %q: expected 6 fields", ErrInvalidFEN, fen)
	}

	if ranks := strings.Split(fields[0], "/"); len(ranks) != 8 {
		return fmt.Errorf("%w: %q: expected 8 ranks", ErrInvalidFEN, fen)
	}

	if fields[1] != "w" && fields[1] != "b" {
		return fmt.Errorf("%w: %q: bad side to move", ErrInvalidFEN, fen)
	}

	if strings.Count(fields[0], "K") != 1 || strings.Count(fields[0], "k") != 1 {
		return fmt.Errorf("%w: %q: each side needs exactly one king", ErrInvalidFEN, fen)
	}

	return nil
}

// repetitionKey strips the move counters from a position string so that
// positions can be compared for repetition. The en passant square is only
// kept if one of the legal moves captures on it.
func repetitionKey(fen string, legal []string) string {
	fields := strings.Fields(fen)
	if len(fields) > 4 {
		fields = fields[:4]
	}

	if len(fields) == 4 && fields[3] != "-" && !capturesEnPassant(fields[0], fields[3], legal) {
		fields[3] = "-"
	}

	return strings.Join(fields, " ")
}

// capturesEnPassant reports whether a pawn move in legal lands on target.
// A pawn can only reach the en passant square by capturing.
func capturesEnPassant(placement, target string, legal []string) bool {
	for _, mov := range legal {
		if len(mov) < 4 || mov[2:4] != target {
			continue
		}

		if p := pieceAt(placement, mov[:2]); p == 'P' || p == 'p' {
			return true
		}
	}

	return false
}

// pieceAt returns the letter of the piece on square in the placement field
// of a position string, or 0 if the square is empty.
func pieceAt(placement, square string) byte {
	ranks := strings.Split(placement, "/")
	if len(square) != 2 || len(ranks) != 8 {
		return 0
	}

	file, rank := int(square[0])-'a', int(square[1])-'1'
	if file < 0 || file > 7 || rank < 0 || rank > 7 {
		return 0
	}

	row, f := ranks[7-rank], 0
	for i := 0; i < len(row) && f <= file; i++ {
		if c := row[i]; c >= '1' && c <= '8' {
			f += int(c - '0')
		} else if f == file {
			return c
		} else {
			f++
		}
	}

	return 0
}

// repetitions counts how often the last key in keys has occurred.
func repetitions(keys []string) int {
	if len(keys) == 0 {
		return 0
	}

	current := keys[len(keys)-1]

	count := 0
	for _, key := range keys {
		if key == current {
			count++
		}
	}

	return count
}

// halfmoveClock reads the fifth field of a position string.
func halfmoveClock(fen string) int {
	fields := strings.Fields(fen)
	if len(fields) < 5 {
		return 0
	}

	clock, err := strconv.Atoi(fields[4])
	if err != nil {
		return 0
	}

	return clock
}
