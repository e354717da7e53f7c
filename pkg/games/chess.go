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

	"github.com/notnil/chess"
)

// ChessOracle is the default Oracle, backed by github.com/notnil/chess.
// Every position reached since Initialize is kept along with its repetition
// key, so unmaking a move is a pop and repetition counting walks the keys.
type ChessOracle struct {
	positions []*chess.Position
	keys      []string
	moves     []*chess.Move
}

func (oracle *ChessOracle) Initialize(fenstr string) error {
	if err := ValidateFEN(fenstr); err != nil {
		return err
	}

	fen, err := chess.FEN(fenstr)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidFEN, err)
	}

	game := chess.NewGame(fen)
	oracle.positions = nil
	oracle.keys = nil
	oracle.moves = nil
	oracle.push(game.Position())
	return nil
}

func (oracle *ChessOracle) push(position *chess.Position) {
	oracle.positions = append(oracle.positions, position)
	oracle.keys = append(oracle.keys, repetitionKey(position.String(), uciMoves(position.ValidMoves())))
}

func uciMoves(valid []*chess.Move) []string {
	moves := make([]string, len(valid))
	for i, mov := range valid {
		moves[i] = mov.String()
	}

	return moves
}

func (oracle *ChessOracle) position() *chess.Position {
	return oracle.positions[len(oracle.positions)-1]
}

func (oracle *ChessOracle) MakeMove(mov_str string) error {
	position := oracle.position()
	for _, mov := range position.ValidMoves() {
		if strings.EqualFold(mov.String(), mov_str) {
			oracle.push(position.Update(mov))
			oracle.moves = append(oracle.moves, mov)
			return nil
		}
	}

	return fmt.Errorf("%w: %s", ErrIllegalMove, mov_str)
}

func (oracle *ChessOracle) UnmakeMove() (string, error) {
	if len(oracle.moves) == 0 {
		return "", ErrNoMoves
	}

	last := oracle.moves[len(oracle.moves)-1]
	oracle.moves = oracle.moves[:len(oracle.moves)-1]
	oracle.positions = oracle.positions[:len(oracle.positions)-1]
	oracle.keys = oracle.keys[:len(oracle.keys)-1]
	return last.String(), nil
}

func (oracle *ChessOracle) LegalMoves() []string {
	return uciMoves(oracle.position().ValidMoves())
}

func (oracle *ChessOracle) FEN() string {
	return oracle.position().String()
}

func (oracle *ChessOracle) SideToMove() Color {
	if oracle.position().Turn() == chess.White {
		return White
	}

	return Black
}

func (oracle *ChessOracle) IsInCheck(color Color) bool {
	return inCheck(oracle.position().Board().SquareMap(), color)
}

func (oracle *ChessOracle) IsCheckmate() bool {
	return oracle.position().Status() == chess.Checkmate
}

func (oracle *ChessOracle) IsStalemate() bool {
	return oracle.position().Status() == chess.Stalemate
}

func (oracle *ChessOracle) IsFivefoldRepetition() bool {
	return repetitions(oracle.keys) >= 5
}

func (oracle *ChessOracle) IsSeventyFiveMoves() bool {
	return halfmoveClock(oracle.FEN()) >= 150
}

func (oracle *ChessOracle) IsInsufficientMaterial() bool {
	return insufficientMaterial(oracle.position().Board().SquareMap())
}
