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

package session

import (
	"fmt"
	"strings"
	"unicode"

	"laptudirm.com/x/schach/pkg/games"
)

// Terminal classifies how a game ended.
type Terminal uint8

const (
	Ongoing Terminal = iota
	Checkmate
	FivefoldRepetition
	SeventyFiveMoves
	Stalemate
	InsufficientMaterial
)

var terminalNames = [...]string{
	Ongoing:              "ongoing",
	Checkmate:            "checkmate",
	FivefoldRepetition:   "fivefold-repetition",
	SeventyFiveMoves:     "seventy-five-moves",
	Stalemate:            "stalemate",
	InsufficientMaterial: "insufficient-material",
}

func (terminal Terminal) String() string {
	if int(terminal) < len(terminalNames) {
		return terminalNames[terminal]
	}

	return fmt.Sprintf("Terminal(%d)", terminal)
}

func (terminal Terminal) MarshalText() ([]byte, error) {
	return []byte(terminal.String()), nil
}

func (terminal Terminal) IsDraw() bool {
	return terminal != Ongoing && terminal != Checkmate
}

// classify looks for a terminal state in order of precedence.
func classify(oracle games.Oracle) Terminal {
	switch {
	case oracle.IsCheckmate():
		return Checkmate
	case oracle.IsFivefoldRepetition():
		return FivefoldRepetition
	case oracle.IsSeventyFiveMoves():
		return SeventyFiveMoves
	case oracle.IsStalemate():
		return Stalemate
	case oracle.IsInsufficientMaterial():
		return InsufficientMaterial
	default:
		return Ongoing
	}
}

// Status is a snapshot of a session, handed to observers after every
// change.
type Status struct {
	FEN        string             `json:"fen"`
	SideToMove games.Color        `json:"side_to_move"`
	Check      [games.ColorN]bool `json:"check"`
	Terminal   Terminal           `json:"terminal"`
	Winner     *games.Color       `json:"winner,omitempty"`
	Pieces     [games.ColorN]int  `json:"pieces"`
	Ply        int                `json:"ply"`
	CanUndo    bool               `json:"can_undo"`
	CanRedo    bool               `json:"can_redo"`
	Thinking   bool               `json:"thinking"`
}

// Result returns the game result in record notation.
func (status Status) Result() string {
	switch {
	case status.Terminal == Ongoing:
		return "*"
	case status.Terminal == Checkmate && status.Winner != nil:
		if *status.Winner == games.White {
			return "1-0"
		}

		return "0-1"
	default:
		return "1/2-1/2"
	}
}

// countPieces counts the pieces of each side in a position string.
func countPieces(fen string) [games.ColorN]int {
	var pieces [games.ColorN]int

	placement, _, _ := strings.Cut(fen, " ")
	for _, r := range placement {
		switch {
		case unicode.IsUpper(r):
			pieces[games.White]++
		case unicode.IsLower(r):
			pieces[games.Black]++
		}
	}

	return pieces
}
