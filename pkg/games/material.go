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

import "github.com/notnil/chess"

// notnil/chess only reports check for the side to move, through the last
// move's tags, and keeps its material rules private to the game outcome.
// Check for either side and insufficient material are answered from the
// square map.

type offset struct{ file, rank int }

var (
	knightJumps = []offset{{1, 2}, {2, 1}, {2, -1}, {1, -2}, {-1, -2}, {-2, -1}, {-2, 1}, {-1, 2}}
	kingSteps   = []offset{{1, 0}, {1, 1}, {0, 1}, {-1, 1}, {-1, 0}, {-1, -1}, {0, -1}, {1, -1}}
	rookRays    = []offset{{1, 0}, {-1, 0}, {0, 1}, {0, -1}}
	bishopRays  = []offset{{1, 1}, {1, -1}, {-1, 1}, {-1, -1}}
)

func toChessColor(color Color) chess.Color {
	if color == White {
		return chess.White
	}

	return chess.Black
}

func squareAt(file, rank int) (chess.Square, bool) {
	if file < 0 || file > 7 || rank < 0 || rank > 7 {
		return 0, false
	}

	return chess.Square(rank*8 + file), true
}

// inCheck reports whether the king of the given color is attacked.
func inCheck(board map[chess.Square]chess.Piece, color Color) bool {
	us := toChessColor(color)
	for sq, p := range board {
		if p.Type() == chess.King && p.Color() == us {
			return attacked(board, sq, us.Other())
		}
	}

	return false
}

// attacked reports whether any piece of color by attacks the square.
func attacked(board map[chess.Square]chess.Piece, target chess.Square, by chess.Color) bool {
	file, rank := int(target.File()), int(target.Rank())

	is := func(f, r int, types ...chess.PieceType) bool {
		sq, ok := squareAt(f, r)
		if !ok {
			return false
		}

		p, found := board[sq]
		if !found || p.Color() != by {
			return false
		}

		for _, t := range types {
			if p.Type() == t {
				return true
			}
		}
		return false
	}

	// Pawns attack diagonally forward, so look one rank behind the target.
	pawnRank := rank - 1
	if by == chess.Black {
		pawnRank = rank + 1
	}
	if is(file-1, pawnRank, chess.Pawn) || is(file+1, pawnRank, chess.Pawn) {
		return true
	}

	for _, jump := range knightJumps {
		if is(file+jump.file, rank+jump.rank, chess.Knight) {
			return true
		}
	}

	for _, step := range kingSteps {
		if is(file+step.file, rank+step.rank, chess.King) {
			return true
		}
	}

	slides := func(rays []offset, types ...chess.PieceType) bool {
		for _, ray := range rays {
			for f, r := file+ray.file, rank+ray.rank; ; f, r = f+ray.file, r+ray.rank {
				sq, ok := squareAt(f, r)
				if !ok {
					break
				}

				if _, occupied := board[sq]; occupied {
					if is(f, r, types...) {
						return true
					}
					break
				}
			}
		}
		return false
	}

	return slides(rookRays, chess.Rook, chess.Queen) ||
		slides(bishopRays, chess.Bishop, chess.Queen)
}

// insufficientMaterial reports the dead positions where neither side can
// mate: bare kings, a single minor piece, or bishops all on one square color.
func insufficientMaterial(board map[chess.Square]chess.Piece) bool {
	knights, bishops := 0, 0
	bishopSquares := [2]int{}

	for sq, p := range board {
		switch p.Type() {
		case chess.King:
		case chess.Knight:
			knights++
		case chess.Bishop:
			bishops++
			bishopSquares[(int(sq.File())+int(sq.Rank()))%2]++
		default:
			return false
		}
	}

	switch {
	case knights+bishops <= 1:
		return true
	case knights == 0:
		return bishopSquares[0] == 0 || bishopSquares[1] == 0
	default:
		return false
	}
}
