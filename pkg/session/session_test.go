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
	"errors"
	"reflect"
	"testing"
	"time"

	"laptudirm.com/x/schach/pkg/dcn"
	"laptudirm.com/x/schach/pkg/engine"
	"laptudirm.com/x/schach/pkg/games"
)

const backRank = "r5k1/5ppp/8/8/8/8/5PPP/6K1 b - - 0 1"

type fakeSearcher struct {
	moves []string
	err   error

	fens    []string
	budgets []engine.Budget
	quits   int
}

func (searcher *fakeSearcher) BestMove(fen string, budget engine.Budget) (string, error) {
	searcher.fens = append(searcher.fens, fen)
	searcher.budgets = append(searcher.budgets, budget)

	if searcher.err != nil {
		return "", searcher.err
	}

	move := searcher.moves[0]
	searcher.moves = searcher.moves[1:]
	return move, nil
}

func (searcher *fakeSearcher) Quit() error {
	searcher.quits++
	return nil
}

type recorder struct {
	statuses []Status
	overs    []Status
}

func (rec *recorder) StatusChanged(status Status) { rec.statuses = append(rec.statuses, status) }
func (rec *recorder) GameOver(status Status)      { rec.overs = append(rec.overs, status) }

func newSession(t *testing.T, searcher Searcher) *Session {
	t.Helper()

	session, err := New("chess", searcher)
	if err != nil {
		t.Fatalf("New error: %v", err)
	}

	return session
}

func apply(t *testing.T, session *Session, moves ...string) {
	t.Helper()

	for _, move := range moves {
		if err := session.ApplyMove(move); err != nil {
			t.Fatalf("ApplyMove(%q) error: %v", move, err)
		}
	}
}

func TestNewSession(t *testing.T) {
	session := newSession(t, nil)
	status := session.Status()

	if status.FEN != games.StartFEN {
		t.Errorf("FEN = %q", status.FEN)
	}

	if status.Pieces != [games.ColorN]int{16, 16} {
		t.Errorf("Pieces = %v", status.Pieces)
	}

	if status.Terminal != Ongoing || status.CanUndo || status.CanRedo || status.Result() != "*" {
		t.Errorf("unexpected status: %+v", status)
	}

	if len(session.LegalMoves()) != 20 {
		t.Errorf("expected 20 legal moves")
	}

	if _, err := New("go", nil); err == nil {
		t.Error("New should reject an unknown backend")
	}
}

func TestUndoRedoScenario(t *testing.T) {
	session := newSession(t, nil)

	apply(t, session, "e2e4")
	afterFirst := session.Status().FEN

	apply(t, session, "e7e5")
	afterSecond := session.Status().FEN

	if err := session.Undo(); err != nil {
		t.Fatalf("Undo error: %v", err)
	}

	status := session.Status()
	if status.SideToMove != games.Black {
		t.Errorf("black should be to move")
	}

	if status.FEN != afterFirst {
		t.Errorf("FEN = %q, want %q", status.FEN, afterFirst)
	}

	if !reflect.DeepEqual(session.RedoStack(), []string{"e7e5"}) {
		t.Errorf("RedoStack = %v", session.RedoStack())
	}

	if err := session.Redo(); err != nil {
		t.Fatalf("Redo error: %v", err)
	}

	if !reflect.DeepEqual(session.History(), []string{"e2e4", "e7e5"}) {
		t.Errorf("History = %v", session.History())
	}

	if got := session.Status().FEN; got != afterSecond {
		t.Errorf("FEN after redo = %q, want %q", got, afterSecond)
	}

	if session.Status().CanRedo {
		t.Errorf("redo stack should be empty")
	}
}

func TestUndoInvertsApply(t *testing.T) {
	session := newSession(t, nil)
	apply(t, session, "d2d4", "g8f6")

	before := session.Status()
	history := session.History()

	apply(t, session, "c2c4")
	if err := session.Undo(); err != nil {
		t.Fatal(err)
	}

	after := session.Status()
	if after.FEN != before.FEN || !reflect.DeepEqual(session.History(), history) {
		t.Fatalf("undo did not restore the game: %+v", after)
	}
}

func TestRedoKeepsRemainingMoves(t *testing.T) {
	session := newSession(t, nil)
	apply(t, session, "e2e4", "e7e5")

	_ = session.Undo()
	_ = session.Undo()

	if err := session.Redo(); err != nil {
		t.Fatal(err)
	}

	if !reflect.DeepEqual(session.History(), []string{"e2e4"}) {
		t.Errorf("History = %v", session.History())
	}

	if !reflect.DeepEqual(session.RedoStack(), []string{"e7e5"}) {
		t.Errorf("RedoStack = %v", session.RedoStack())
	}
}

func TestApplyClearsRedo(t *testing.T) {
	session := newSession(t, nil)
	apply(t, session, "e2e4")
	_ = session.Undo()

	apply(t, session, "d2d4")
	if len(session.RedoStack()) != 0 {
		t.Fatalf("RedoStack = %v, want empty", session.RedoStack())
	}

	rec := &recorder{}
	session.Subscribe(rec)

	if err := session.Redo(); err != nil {
		t.Fatal(err)
	}

	if len(rec.statuses) != 0 || len(session.History()) != 1 {
		t.Fatalf("Redo with an empty stack changed the game")
	}
}

func TestEmptyUndoIsNoop(t *testing.T) {
	session := newSession(t, nil)

	rec := &recorder{}
	session.Subscribe(rec)

	if err := session.Undo(); err != nil {
		t.Fatal(err)
	}

	if len(rec.statuses) != 0 {
		t.Fatalf("Undo with no moves notified observers")
	}
}

func TestIllegalMove(t *testing.T) {
	session := newSession(t, nil)

	rec := &recorder{}
	session.Subscribe(rec)

	if err := session.ApplyMove("e2e5"); !errors.Is(err, ErrIllegalMove) {
		t.Fatalf("expected ErrIllegalMove, got %v", err)
	}

	if len(rec.statuses) != 0 || session.Status().Ply != 0 {
		t.Fatalf("illegal move changed the game")
	}
}

func TestPromotionRequired(t *testing.T) {
	session := newSession(t, nil)
	if err := session.NewGameFromFEN("8/P6k/8/8/8/8/8/K7 w - - 0 1"); err != nil {
		t.Fatal(err)
	}

	err := session.ApplyMove("a7a8")
	if !errors.Is(err, ErrPromotionRequired) {
		t.Fatalf("expected ErrPromotionRequired, got %v", err)
	}

	var promotion *PromotionRequiredError
	if !errors.As(err, &promotion) || promotion.Square != "a8" || promotion.Side != games.White {
		t.Fatalf("unexpected promotion error: %#v", err)
	}

	if session.Status().Ply != 0 {
		t.Fatal("incomplete promotion changed the game")
	}

	apply(t, session, "A7A8Q")
	if got := session.History(); !reflect.DeepEqual(got, []string{"a7a8q"}) {
		t.Fatalf("History = %v", got)
	}
}

func TestCheckmateNotice(t *testing.T) {
	session := newSession(t, nil)
	if err := session.NewGameFromFEN(backRank); err != nil {
		t.Fatal(err)
	}

	rec := &recorder{}
	session.Subscribe(rec)

	apply(t, session, "a8a1")

	status := session.Status()
	if status.Terminal != Checkmate || status.Winner == nil || *status.Winner != games.Black {
		t.Fatalf("unexpected status: %+v", status)
	}

	if !status.Check[games.White] || status.Result() != "0-1" {
		t.Errorf("unexpected status: %+v", status)
	}

	for i := 0; i < 5; i++ {
		session.Status()
	}

	if !session.NoticeSent() || len(rec.overs) != 1 {
		t.Fatalf("game over notice sent %d times", len(rec.overs))
	}

	if err := session.ApplyMove("g1f1"); !errors.Is(err, ErrGameOver) {
		t.Errorf("expected ErrGameOver, got %v", err)
	}

	if err := session.Undo(); err != nil {
		t.Fatal(err)
	}

	if err := session.Redo(); err != nil {
		t.Fatal(err)
	}

	if len(rec.overs) != 1 {
		t.Errorf("game over notice repeated: %d", len(rec.overs))
	}

	session.NewGame()
	if session.NoticeSent() {
		t.Errorf("new game kept the notice flag")
	}
}

func TestFoolsMate(t *testing.T) {
	session := newSession(t, nil)

	var over []Status
	session.Subscribe(ObserverFuncs{OnGameOver: func(status Status) { over = append(over, status) }})

	apply(t, session, "f2f3", "e7e5", "g2g4", "d8h4")

	if len(over) != 1 || over[0].Result() != "0-1" {
		t.Fatalf("unexpected game over notices: %+v", over)
	}

	if len(session.LegalMoves()) != 0 {
		t.Errorf("a finished game has no legal moves")
	}
}

func TestStalemateOnLoad(t *testing.T) {
	session := newSession(t, nil)

	rec := &recorder{}
	session.Subscribe(rec)

	if err := session.NewGameFromFEN("7k/5Q2/6K1/8/8/8/8/8 b - - 0 1"); err != nil {
		t.Fatal(err)
	}

	if len(rec.overs) != 1 || rec.overs[0].Terminal != Stalemate || rec.overs[0].Result() != "1/2-1/2" {
		t.Fatalf("unexpected notices: %+v", rec.overs)
	}

	if rec.overs[0].Winner != nil {
		t.Errorf("a draw has no winner")
	}
}

func TestTerminalPrecedence(t *testing.T) {
	var shuffle []string
	for i := 0; i < 4; i++ {
		shuffle = append(shuffle, "g1f3", "g8f6", "f3g1", "f6g8")
	}

	black := games.Black

	tests := []struct {
		name   string
		fen    string
		moves  []string
		want   Terminal
		winner *games.Color
	}{
		{
			name:   "mate on the 150th half-move",
			fen:    "r5k1/5ppp/8/8/8/8/5PPP/6K1 b - - 149 80",
			moves:  []string{"a8a1"},
			want:   Checkmate,
			winner: &black,
		},
		{
			name: "stalemate with the clock at 150",
			fen:  "7k/5Q2/6K1/8/8/8/8/8 b - - 150 120",
			want: SeventyFiveMoves,
		},
		{
			name:  "fivefold repetition as the clock reaches 150",
			fen:   "4k1n1/8/8/8/8/8/8/4K1N1 w - - 134 90",
			moves: shuffle,
			want:  FivefoldRepetition,
		},
		{
			name: "stalemate with insufficient material",
			fen:  "k7/8/1K1B4/8/8/8/8/8 b - - 0 1",
			want: Stalemate,
		},
	}

	for _, test := range tests {
		session := newSession(t, nil)
		if err := session.NewGameFromFEN(test.fen); err != nil {
			t.Fatalf("%s: %v", test.name, err)
		}

		apply(t, session, test.moves...)

		status := session.Status()
		if status.Terminal != test.want {
			t.Errorf("%s: Terminal = %s, want %s", test.name, status.Terminal, test.want)
		}

		switch {
		case test.winner == nil && status.Winner != nil:
			t.Errorf("%s: unexpected winner %s", test.name, *status.Winner)
		case test.winner != nil && (status.Winner == nil || *status.Winner != *test.winner):
			t.Errorf("%s: Winner = %v, want %s", test.name, status.Winner, *test.winner)
		}
	}
}

func TestInvalidFENKeepsGame(t *testing.T) {
	session := newSession(t, nil)
	apply(t, session, "e2e4")

	if err := session.NewGameFromFEN("not a position"); err == nil {
		t.Fatal("expected an error")
	}

	if !reflect.DeepEqual(session.History(), []string{"e2e4"}) {
		t.Fatalf("History = %v", session.History())
	}
}

func TestNewGameFromRecord(t *testing.T) {
	session := newSession(t, nil)
	apply(t, session, "d2d4")

	record := &dcn.Record{Start: games.StartFEN, Moves: []string{"e2e4", "e7e5", "g1f3"}}
	if err := session.NewGameFromRecord(record); err != nil {
		t.Fatalf("NewGameFromRecord error: %v", err)
	}

	if !reflect.DeepEqual(session.History(), record.Moves) || session.StartFEN() != games.StartFEN {
		t.Fatalf("History = %v", session.History())
	}

	if session.Status().SideToMove != games.Black {
		t.Errorf("black should be to move")
	}

	corrupt := &dcn.Record{Start: games.StartFEN, Moves: []string{"e2e4", "e2e4"}}
	if err := session.NewGameFromRecord(corrupt); !errors.Is(err, dcn.ErrCorrupt) {
		t.Fatalf("expected ErrCorrupt, got %v", err)
	}

	if len(session.History()) != 3 {
		t.Fatalf("a corrupt record changed the game: %v", session.History())
	}
}

func TestEngineMove(t *testing.T) {
	searcher := &fakeSearcher{moves: []string{"E7E5"}}
	session := newSession(t, searcher)

	session.SetBudget(games.Black, engine.Budget{Depth: 3})
	apply(t, session, "e2e4")
	position := session.Status().FEN

	rec := &recorder{}
	session.Subscribe(rec)

	move, err := session.EngineMove()
	if err != nil || move != "e7e5" {
		t.Fatalf("EngineMove = %q, %v", move, err)
	}

	if searcher.fens[0] != position {
		t.Errorf("engine searched %q, want %q", searcher.fens[0], position)
	}

	if searcher.budgets[0] != (engine.Budget{Depth: 3}) {
		t.Errorf("engine got budget %v", searcher.budgets[0])
	}

	if len(rec.statuses) < 2 || !rec.statuses[0].Thinking || rec.statuses[len(rec.statuses)-1].Thinking {
		t.Errorf("observers did not see the engine think: %+v", rec.statuses)
	}

	if session.Budget(games.White) != (engine.Budget{}) {
		t.Errorf("white budget should be unconstrained")
	}
}

func TestEngineFailureIsSticky(t *testing.T) {
	searcher := &fakeSearcher{err: errors.New("broken pipe")}
	session := newSession(t, searcher)

	if _, err := session.EngineMove(); !errors.Is(err, ErrEngineUnavailable) {
		t.Fatalf("expected ErrEngineUnavailable, got %v", err)
	}

	if _, err := session.EngineMove(); !errors.Is(err, ErrEngineUnavailable) {
		t.Fatalf("expected ErrEngineUnavailable, got %v", err)
	}

	if len(searcher.fens) != 1 {
		t.Fatalf("engine was asked %d times", len(searcher.fens))
	}

	if session.Status().Thinking {
		t.Errorf("session still thinking after the engine failed")
	}

	apply(t, session, "e2e4")
}

func TestEngineMoveWithoutEngine(t *testing.T) {
	session := newSession(t, nil)

	if _, err := session.EngineMove(); !errors.Is(err, ErrEngineUnavailable) {
		t.Fatalf("expected ErrEngineUnavailable, got %v", err)
	}
}

func TestRecord(t *testing.T) {
	now := time.Date(2024, time.March, 9, 12, 0, 0, 0, time.UTC)

	session := newSession(t, nil)
	apply(t, session, "e2e4")

	record := session.Record(dcn.Headers{{Name: "White", Value: "Alice"}}, now)
	if date, _ := record.Headers.Get("Date"); date != "2024.03.09" {
		t.Errorf("Date = %q", date)
	}

	if record.Result() != "*" || !reflect.DeepEqual(record.Moves, []string{"e2e4"}) {
		t.Errorf("unexpected record: %+v", record)
	}

	kept := session.Record(dcn.Headers{{Name: "Result", Value: "1-0"}}, now)
	if kept.Result() != "1-0" {
		t.Errorf("Result of an unfinished game was overridden: %q", kept.Result())
	}

	if err := session.NewGameFromFEN(backRank); err != nil {
		t.Fatal(err)
	}
	apply(t, session, "a8a1")

	over := session.Record(dcn.Headers{{Name: "Result", Value: "1-0"}, {Name: "Date", Value: "2020.01.01"}}, now)
	if over.Result() != "0-1" {
		t.Errorf("Result = %q, want 0-1", over.Result())
	}

	if date, _ := over.Headers.Get("Date"); date != "2020.01.01" {
		t.Errorf("Date = %q", date)
	}

	if over.Start != backRank {
		t.Errorf("Start = %q", over.Start)
	}
}

func TestCloseQuitsOnce(t *testing.T) {
	searcher := &fakeSearcher{}
	session := newSession(t, searcher)

	_ = session.Close()
	_ = session.Close()

	if searcher.quits != 1 {
		t.Fatalf("Quit called %d times", searcher.quits)
	}
}

func TestUnsubscribe(t *testing.T) {
	session := newSession(t, nil)

	rec := &recorder{}
	cancel := session.Subscribe(rec)

	apply(t, session, "e2e4")
	cancel()
	apply(t, session, "e7e5")

	if len(rec.statuses) != 1 {
		t.Fatalf("got %d notifications, want 1", len(rec.statuses))
	}
}

func TestRegistry(t *testing.T) {
	registry := NewRegistry()

	searchers := []*fakeSearcher{{}, {}, {}}
	first := registry.Open(newSession(t, searchers[0]))
	second := registry.Open(newSession(t, searchers[1]))

	if err := registry.Close(first); err != nil {
		t.Fatal(err)
	}

	third := registry.Open(newSession(t, searchers[2]))
	if third == first || third == second {
		t.Fatalf("handle %v reused", third)
	}

	if got := registry.Handles(); !reflect.DeepEqual(got, []Handle{second, third}) {
		t.Fatalf("Handles = %v", got)
	}

	if err := registry.Do(first, func(*Session) error { return nil }); !errors.Is(err, ErrUnknownHandle) {
		t.Fatalf("expected ErrUnknownHandle, got %v", err)
	}

	err := registry.Do(second, func(session *Session) error {
		return session.ApplyMove("e2e4")
	})
	if err != nil {
		t.Fatal(err)
	}

	if err := registry.CloseAll(); err != nil {
		t.Fatal(err)
	}

	for i, searcher := range searchers {
		if searcher.quits != 1 {
			t.Errorf("engine %d quit %d times", i, searcher.quits)
		}
	}

	if len(registry.Handles()) != 0 {
		t.Errorf("CloseAll left sessions open")
	}
}

func TestParseHandle(t *testing.T) {
	handle, err := ParseHandle("42")
	if err != nil || handle != 42 || handle.String() != "42" {
		t.Fatalf("ParseHandle = %v, %v", handle, err)
	}

	for _, bad := range []string{"", "0", "-1", "x"} {
		if _, err := ParseHandle(bad); !errors.Is(err, ErrUnknownHandle) {
			t.Errorf("ParseHandle(%q) = %v", bad, err)
		}
	}
}
