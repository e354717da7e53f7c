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

package games

import (
	"fmt"
	"strings"

	"laptudirm.com/x/mess/pkg/board"
	"laptudirm.com/x/mess/pkg/board/move"
	"laptudirm.com/x/mess/pkg/board/piece"
	"laptudirm.com/x/mess/pkg/formats/fen"
)

// MessOracle is an Oracle backed by the mess move generator. The board has
// no public unmake, so UnmakeMove rebuilds the position from the start and
// replays the remaining moves.
type MessOracle struct {
	board *board.Board
	moves []move.Move

	start  string
	played []string
	keys   []string
}

func (oracle *MessOracle) Initialize(fenstr string) error {
	if err := ValidateFEN(fenstr); err != nil {
		return err
	}

	oracle.start = fenstr
	oracle.played = nil
	oracle.reset()
	return nil
}

func (oracle *MessOracle) reset() {
	oracle.board = board.New(board.FEN(fen.FromString(oracle.start)))
	oracle.moves = oracle.board.GenerateMoves(false)
	oracle.keys = []string{repetitionKey(oracle.FEN(), oracle.LegalMoves())}
}

func (oracle *MessOracle) MakeMove(mov_str string) error {
	found, index := false, 0
	for i, mov := range oracle.moves {
		if strings.EqualFold(mov.String(), mov_str) {
			found = true
			index = i
			break
		}
	}

	if !found {
		return fmt.Errorf("%w: %s", ErrIllegalMove, mov_str)
	}

	mov := oracle.moves[index]
	oracle.board.MakeMove(mov)
	oracle.moves = oracle.board.GenerateMoves(false)

	oracle.played = append(oracle.played, mov.String())
	oracle.keys = append(oracle.keys, repetitionKey(oracle.FEN(), oracle.LegalMoves()))
	return nil
}

func (oracle *MessOracle) UnmakeMove() (string, error) {
	if len(oracle.played) == 0 {
		return "", ErrNoMoves
	}

	last := oracle.played[len(oracle.played)-1]
	replay := oracle.played[:len(oracle.played)-1]

	oracle.played = nil
	oracle.reset()
	for _, mov := range replay {
		if err := oracle.MakeMove(mov); err != nil {
			return "", err
		}
	}

	return last, nil
}

func (oracle *MessOracle) LegalMoves() []string {
	moves := make([]string, len(oracle.moves))
	for i, mov := range oracle.moves {
		moves[i] = mov.String()
	}

	return moves
}

func (oracle *MessOracle) FEN() string {
	fen := [6]string(oracle.board.FEN())
	return strings.Join(fen[:], " ")
}

func (oracle *MessOracle) SideToMove() Color {
	if oracle.board.SideToMove == piece.White {
		return White
	}

	return Black
}

func (oracle *MessOracle) IsInCheck(color Color) bool {
	if color == White {
		return oracle.board.IsInCheck(piece.White)
	}

	return oracle.board.IsInCheck(piece.Black)
}

func (oracle *MessOracle) IsCheckmate() bool {
	return len(oracle.moves) == 0 && oracle.board.IsInCheck(oracle.board.SideToMove)
}

func (oracle *MessOracle) IsStalemate() bool {
	return len(oracle.moves) == 0 && !oracle.board.IsInCheck(oracle.board.SideToMove)
}

func (oracle *MessOracle) IsFivefoldRepetition() bool {
	return repetitions(oracle.keys) >= 5
}

func (oracle *MessOracle) IsSeventyFiveMoves() bool {
	return oracle.board.DrawClock >= 150
}

func (oracle *MessOracle) IsInsufficientMaterial() bool {
	return oracle.board.IsInsufficientMaterial()
}
