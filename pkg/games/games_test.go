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
	"errors"
	"testing"
)

var backends = []string{"chess", "mess"}

func newOracle(t *testing.T, name, fen string) Oracle {
	t.Helper()

	oracle, err := GetOracle(name)
	if err != nil {
		t.Fatalf("GetOracle(%q): %v", name, err)
	}

	if err := oracle.Initialize(fen); err != nil {
		t.Fatalf("Initialize(%q): %v", fen, err)
	}

	return oracle
}

func play(t *testing.T, oracle Oracle, moves ...string) {
	t.Helper()

	for _, mov := range moves {
		if err := oracle.MakeMove(mov); err != nil {
			t.Fatalf("MakeMove(%q): %v", mov, err)
		}
	}
}

func TestGetOracleUnknown(t *testing.T) {
	if _, err := GetOracle("ataxx"); err == nil {
		t.Fatal("expected error for unknown backend")
	}
}

func TestStartPosition(t *testing.T) {
	for _, name := range backends {
		oracle := newOracle(t, name, StartFEN)

		if n := len(oracle.LegalMoves()); n != 20 {
			t.Errorf("%s: got %d legal moves, want 20", name, n)
		}

		if oracle.SideToMove() != White {
			t.Errorf("%s: white should be to move", name)
		}

		if oracle.IsInCheck(White) || oracle.IsInCheck(Black) {
			t.Errorf("%s: nobody is in check at the start", name)
		}
	}
}

func TestMakeUnmake(t *testing.T) {
	for _, name := range backends {
		oracle := newOracle(t, name, StartFEN)
		before := oracle.FEN()

		play(t, oracle, "e2e4", "e7e5")
		if oracle.SideToMove() != White {
			t.Errorf("%s: white should be to move after two plies", name)
		}

		mov, err := oracle.UnmakeMove()
		if err != nil || mov != "e7e5" {
			t.Fatalf("%s: UnmakeMove() = %q, %v", name, mov, err)
		}

		if _, err := oracle.UnmakeMove(); err != nil {
			t.Fatalf("%s: UnmakeMove: %v", name, err)
		}

		if after := oracle.FEN(); after != before {
			t.Errorf("%s: position not restored:\n got %s\nwant %s", name, after, before)
		}

		if _, err := oracle.UnmakeMove(); !errors.Is(err, ErrNoMoves) {
			t.Errorf("%s: expected ErrNoMoves, got %v", name, err)
		}
	}
}

func TestIllegalMove(t *testing.T) {
	for _, name := range backends {
		oracle := newOracle(t, name, StartFEN)
		before := oracle.FEN()

		if err := oracle.MakeMove("e2e5"); !errors.Is(err, ErrIllegalMove) {
			t.Errorf("%s: expected ErrIllegalMove, got %v", name, err)
		}

		if oracle.FEN() != before {
			t.Errorf("%s: illegal move changed the position", name)
		}
	}
}

func TestFoolsMate(t *testing.T) {
	for _, name := range backends {
		oracle := newOracle(t, name, StartFEN)
		play(t, oracle, "f2f3", "e7e5", "g2g4", "d8h4")

		if !oracle.IsCheckmate() {
			t.Errorf("%s: expected checkmate", name)
		}

		if !oracle.IsInCheck(White) {
			t.Errorf("%s: white king should be in check", name)
		}

		if oracle.IsStalemate() {
			t.Errorf("%s: checkmate is not stalemate", name)
		}
	}
}

func TestBackRankMate(t *testing.T) {
	oracle := newOracle(t, "chess", "r5k1/5ppp/8/8/8/8/5PPP/6K1 b - - 0 1")
	play(t, oracle, "a8a1")

	if !oracle.IsCheckmate() {
		t.Fatal("expected checkmate")
	}

	if oracle.SideToMove() != White {
		t.Fatal("white should be the mated side")
	}
}

func TestStalemate(t *testing.T) {
	oracle := newOracle(t, "chess", "7k/5Q2/6K1/8/8/8/8/8 b - - 0 1")

	if !oracle.IsStalemate() {
		t.Error("expected stalemate")
	}

	if oracle.IsCheckmate() {
		t.Error("stalemate is not checkmate")
	}
}

func TestSeventyFiveMoves(t *testing.T) {
	oracle := newOracle(t, "chess", "4k3/8/8/8/8/8/8/R3K3 w - - 149 100")
	if oracle.IsSeventyFiveMoves() {
		t.Fatal("clock is still 149")
	}

	play(t, oracle, "a1a2")
	if !oracle.IsSeventyFiveMoves() {
		t.Fatal("expected the seventy-five-move rule to apply")
	}
}

func TestFivefoldRepetition(t *testing.T) {
	oracle := newOracle(t, "chess", StartFEN)

	for i := 0; i < 4; i++ {
		if oracle.IsFivefoldRepetition() {
			t.Fatalf("repetition reported after %d cycles", i)
		}

		play(t, oracle, "g1f3", "g8f6", "f3g1", "f6g8")
	}

	if !oracle.IsFivefoldRepetition() {
		t.Fatal("expected fivefold repetition")
	}
}

func TestFivefoldAfterDoublePush(t *testing.T) {
	for _, name := range backends {
		oracle := newOracle(t, name, StartFEN)
		play(t, oracle, "e2e4")

		for i := 0; i < 4; i++ {
			if oracle.IsFivefoldRepetition() {
				t.Fatalf("%s: repetition reported after %d cycles", name, i)
			}

			play(t, oracle, "g8f6", "g1f3", "f6g8", "f3g1")
		}

		if !oracle.IsFivefoldRepetition() {
			t.Errorf("%s: the position after e2e4 occurred five times", name)
		}
	}
}

func TestRepetitionKey(t *testing.T) {
	const fen = "rnbqkbnr/ppp1pppp/8/8/3pP3/8/PPPP1PPP/RNBQKBNR b KQkq e3 0 3"

	tests := []struct {
		legal []string
		want  string
	}{
		{[]string{"d4d3", "d4e3"}, "rnbqkbnr/ppp1pppp/8/8/3pP3/8/PPPP1PPP/RNBQKBNR b KQkq e3"},
		{[]string{"d4d3"}, "rnbqkbnr/ppp1pppp/8/8/3pP3/8/PPPP1PPP/RNBQKBNR b KQkq -"},
		{[]string{"g4e3"}, "rnbqkbnr/ppp1pppp/8/8/3pP3/8/PPPP1PPP/RNBQKBNR b KQkq -"},
	}

	for _, test := range tests {
		if got := repetitionKey(fen, test.legal); got != test.want {
			t.Errorf("repetitionKey(%v) = %q, want %q", test.legal, got, test.want)
		}
	}
}

func TestInsufficientMaterial(t *testing.T) {
	tests := []struct {
		fen  string
		want bool
	}{
		{"4k3/8/8/8/8/8/8/4K3 w - - 0 1", true},
		{"4k3/8/8/8/8/8/8/4KN2 w - - 0 1", true},
		{"4k3/8/8/8/8/8/8/4KB2 w - - 0 1", true},
		{"4k3/8/8/8/8/8/8/R3K3 w - - 0 1", false},
		{"4k3/8/8/8/8/8/4P3/4K3 w - - 0 1", false},
		{"4k3/8/8/8/8/8/8/3NKN2 w - - 0 1", false},
	}

	for _, test := range tests {
		oracle := newOracle(t, "chess", test.fen)
		if got := oracle.IsInsufficientMaterial(); got != test.want {
			t.Errorf("%s: got %v, want %v", test.fen, got, test.want)
		}
	}
}

func TestInCheckByPiece(t *testing.T) {
	tests := []struct {
		fen   string
		color Color
		want  bool
	}{
		{"4k3/8/8/8/8/8/3p4/4K3 w - - 0 1", White, true},
		{"4k3/8/8/8/8/8/4p3/4K3 w - - 0 1", White, false},
		{"4k3/8/8/8/8/4n3/8/4K3 w - - 0 1", White, false},
		{"4k3/8/8/8/8/3n4/8/4K3 w - - 0 1", White, true},
		{"4k3/8/8/8/1b6/8/8/4K3 w - - 0 1", White, true},
		{"4k3/8/8/8/1b6/8/3P4/4K3 w - - 0 1", White, false},
		{"4r1k1/8/8/8/8/8/8/4K3 w - - 0 1", White, true},
		{"4k3/3P4/8/8/8/8/8/4K3 b - - 0 1", Black, true},
	}

	for _, test := range tests {
		oracle := newOracle(t, "chess", test.fen)
		if got := oracle.IsInCheck(test.color); got != test.want {
			t.Errorf("%s: IsInCheck(%s) = %v, want %v", test.fen, test.color, got, test.want)
		}
	}
}

func TestValidateFEN(t *testing.T) {
	bad := []string{
		"",
		"8/8/8/8/8/8/8 w - - 0 1",
		"rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR x KQkq - 0 1",
		"rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq -",
		"8/8/8/8/8/8/8/8 w - - 0 1",
		"K7/8/8/8/8/8/8/8 w - - 0 1",
		"4k3/8/8/8/8/8/8/K3K3 w - - 0 1",
	}

	for _, fen := range bad {
		if err := ValidateFEN(fen); !errors.Is(err, ErrInvalidFEN) {
			t.Errorf("ValidateFEN(%q) = %v, want ErrInvalidFEN", fen, err)
		}
	}

	if err := ValidateFEN(StartFEN); err != nil {
		t.Errorf("ValidateFEN(StartFEN) = %v", err)
	}
}

func TestParseColor(t *testing.T) {
	for in, want := range map[string]Color{"white": White, "W": White, "black": Black, "b": Black} {
		got, err := ParseColor(in)
		if err != nil || got != want {
			t.Errorf("ParseColor(%q) = %v, %v", in, got, err)
		}
	}

	if _, err := ParseColor("red"); err == nil {
		t.Error("expected error for red")
	}

	if White.Other() != Black || Black.Other() != White {
		t.Error("Other is not an involution")
	}
}
