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

// Package session implements a single game of chess between a user and,
// optionally, an engine: its move history, undo and redo, the engine's
// search budgets and the detection of the end of the game.
package session

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"

	"laptudirm.com/x/schach/pkg/dcn"
	"laptudirm.com/x/schach/pkg/engine"
	"laptudirm.com/x/schach/pkg/games"
)

// Searcher picks moves for the computer side. *engine.Engine is the usual
// implementation.
type Searcher interface {
	BestMove(fen string, budget engine.Budget) (string, error)
	Quit() error
}

// Session is a game in progress. A Session is not safe for concurrent use;
// see Registry for sharing one between goroutines.
type Session struct {
	rules  string
	oracle games.Oracle

	start   string
	history []string
	redo    []string // last element is the most recently undone move

	budgets [games.ColorN]engine.Budget

	noticeSent bool
	thinking   bool

	searcher  Searcher
	engineErr error

	observers    []subscription
	nextObserver int

	closeOnce sync.Once
	closeErr  error
}

// New creates a session at the default starting position. rules names the
// games backend which validates moves, and searcher, which may be nil,
// plays the computer's moves. The session takes ownership of searcher.
func New(rules string, searcher Searcher) (*Session, error) {
	oracle, err := newOracle(rules, games.StartFEN)
	if err != nil {
		return nil, err
	}

	session := &Session{
		rules:    rules,
		searcher: searcher,
	}

	session.reset(oracle, games.StartFEN, nil)
	return session, nil
}

func newOracle(rules, fen string) (games.Oracle, error) {
	oracle, err := games.GetOracle(rules)
	if err != nil {
		return nil, err
	}

	if err := oracle.Initialize(fen); err != nil {
		return nil, err
	}

	return oracle, nil
}

// ApplyMove plays move, given in coordinate notation, for the side to
// move. Any undone moves are forgotten.
func (session *Session) ApplyMove(move string) error {
	move = strings.ToLower(strings.TrimSpace(move))

	if classify(session.oracle) != Ongoing {
		return ErrGameOver
	}

	if err := session.play(move); err != nil {
		return err
	}

	session.redo = nil
	session.changed()
	return nil
}

// play makes a legal move on the board and records it in the history.
func (session *Session) play(move string) error {
	legal := session.oracle.LegalMoves()
	found, promotion := false, false
	for _, candidate := range legal {
		if candidate == move {
			found = true
			break
		}

		if len(move) == 4 && len(candidate) == 5 && strings.HasPrefix(candidate, move) {
			promotion = true
		}
	}

	switch {
	case found:
	case promotion:
		return &PromotionRequiredError{Square: move[2:4], Side: session.oracle.SideToMove()}
	default:
		return fmt.Errorf("%w: %s", ErrIllegalMove, move)
	}

	if err := session.oracle.MakeMove(move); err != nil {
		return err
	}

	session.history = append(session.history, move)
	return nil
}

// Undo takes back the last move. It does nothing if no moves were played.
func (session *Session) Undo() error {
	if len(session.history) == 0 {
		return nil
	}

	move, err := session.oracle.UnmakeMove()
	if err != nil {
		return err
	}

	session.history = session.history[:len(session.history)-1]
	session.redo = append(session.redo, move)
	session.changed()
	return nil
}

// Redo plays the most recently undone move again. It does nothing if no
// move was undone.
func (session *Session) Redo() error {
	if len(session.redo) == 0 {
		return nil
	}

	move := session.redo[len(session.redo)-1]
	if err := session.play(move); err != nil {
		return err
	}

	session.redo = session.redo[:len(session.redo)-1]
	session.changed()
	return nil
}

// NewGame starts over from the default starting position.
func (session *Session) NewGame() {
	if err := session.oracle.Initialize(games.StartFEN); err != nil {
		logrus.WithError(err).Error("session: cannot set up the starting position")
		return
	}

	session.reset(session.oracle, games.StartFEN, nil)
}

// NewGameFromFEN starts a new game from the given position. The current
// game is kept if the position is invalid.
func (session *Session) NewGameFromFEN(fen string) error {
	fen = strings.TrimSpace(fen)

	oracle, err := newOracle(session.rules, fen)
	if err != nil {
		return err
	}

	session.reset(oracle, fen, nil)
	return nil
}

// NewGameFromRecord continues the game stored in record from its last
// position. The current game is kept if the record does not replay.
func (session *Session) NewGameFromRecord(record *dcn.Record) error {
	oracle, err := games.GetOracle(session.rules)
	if err != nil {
		return err
	}

	if err := record.Replay(oracle); err != nil {
		return err
	}

	session.reset(oracle, record.Start, append([]string(nil), record.Moves...))
	return nil
}

func (session *Session) reset(oracle games.Oracle, start string, history []string) {
	session.oracle = oracle
	session.start = start
	session.history = history
	session.redo = nil
	session.noticeSent = false
	session.thinking = false

	logrus.WithFields(logrus.Fields{
		"start": start,
		"plies": len(history),
	}).Debug("session: new game")

	session.changed()
}

// EngineMove asks the engine for a move in the current position and plays
// it. It blocks until the engine answers.
func (session *Session) EngineMove() (string, error) {
	if classify(session.oracle) != Ongoing {
		return "", ErrGameOver
	}

	if session.engineErr != nil {
		return "", session.engineErr
	}

	if session.searcher == nil {
		return "", fmt.Errorf("%w: no engine configured", ErrEngineUnavailable)
	}

	side := session.oracle.SideToMove()

	session.thinking = true
	session.changed()

	move, err := session.searcher.BestMove(session.oracle.FEN(), session.budgets[side])
	session.thinking = false
	if err != nil {
		if !errors.Is(err, ErrEngineUnavailable) {
			err = fmt.Errorf("%w: %v", ErrEngineUnavailable, err)
		}

		logrus.WithError(err).Warn("session: engine failed")
		session.engineErr = err
		session.changed()
		return "", err
	}

	move = strings.ToLower(strings.TrimSpace(move))
	if err := session.play(move); err != nil {
		session.changed()
		return "", fmt.Errorf("engine move %q: %w", move, err)
	}

	logrus.WithFields(logrus.Fields{
		"side": side,
		"move": move,
	}).Debug("session: engine moved")

	session.redo = nil
	session.changed()
	return move, nil
}

// SetBudget limits the engine's searches for side. The zero Budget lets
// the engine think as long as it likes.
func (session *Session) SetBudget(side games.Color, budget engine.Budget) {
	session.budgets[side] = budget
}

func (session *Session) Budget(side games.Color) engine.Budget {
	return session.budgets[side]
}

// Status returns a snapshot of the current game.
func (session *Session) Status() Status {
	fen := session.oracle.FEN()

	status := Status{
		FEN:        fen,
		SideToMove: session.oracle.SideToMove(),
		Terminal:   classify(session.oracle),
		Pieces:     countPieces(fen),
		Ply:        len(session.history),
		CanUndo:    len(session.history) > 0,
		CanRedo:    len(session.redo) > 0,
		Thinking:   session.thinking,
	}

	status.Check[games.White] = session.oracle.IsInCheck(games.White)
	status.Check[games.Black] = session.oracle.IsInCheck(games.Black)

	if status.Terminal == Checkmate {
		winner := status.SideToMove.Other()
		status.Winner = &winner
	}

	return status
}

func (session *Session) LegalMoves() []string {
	if classify(session.oracle) != Ongoing {
		return nil
	}

	return session.oracle.LegalMoves()
}

// NoticeSent reports whether observers were told that the game is over.
func (session *Session) NoticeSent() bool {
	return session.noticeSent
}

func (session *Session) History() []string {
	return append([]string(nil), session.history...)
}

func (session *Session) RedoStack() []string {
	return append([]string(nil), session.redo...)
}

func (session *Session) StartFEN() string {
	return session.start
}

func (session *Session) Rules() string {
	return session.rules
}

// Close shuts the engine down. Only the first call has any effect.
func (session *Session) Close() error {
	session.closeOnce.Do(func() {
		if session.searcher != nil {
			session.closeErr = session.searcher.Quit()
		}
	})

	return session.closeErr
}
