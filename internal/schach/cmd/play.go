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

package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/MakeNowJust/heredoc/v2"
	"github.com/fatih/color"
	"github.com/notnil/chess"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"laptudirm.com/x/schach/internal/util"
	"laptudirm.com/x/schach/pkg/book"
	"laptudirm.com/x/schach/pkg/common"
	"laptudirm.com/x/schach/pkg/dcn"
	"laptudirm.com/x/schach/pkg/engine"
	"laptudirm.com/x/schach/pkg/games"
	"laptudirm.com/x/schach/pkg/pgn"
	"laptudirm.com/x/schach/pkg/session"
)

func Play() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "play",
		Short: "Play an interactive game on the terminal",
		Args:  cobra.NoArgs,
		Long: heredoc.Doc(`play starts an interactive game which reads commands from
			the standard input, one per line. Moves are entered in
			coordinate notation like e2e4, or e7e8q for promotions.

			The engine from the configuration file plays the sides
			named by --computer, and the go command asks it to play
			a single move for the side to move. Type help inside the
			game for the list of commands.`),

		RunE: func(cmd *cobra.Command, args []string) error {
			config, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			if err := playFlags(cmd, config); err != nil {
				return err
			}

			computer, _ := cmd.Flags().GetString("computer")
			sides, err := parseSides(computer)
			if err != nil {
				return err
			}

			var searcher session.Searcher
			if config.Engine.Cmd != "" {
				util.StartSpinner("starting engine")
				eng, err := engine.Start(config.Engine)
				util.PauseSpinner()

				if err != nil {
					logrus.WithError(err).Warn("play: continuing without an engine")
					sides = [games.ColorN]bool{}
				} else {
					searcher = eng
				}
			}

			p, err := newPlayer(config, searcher, os.Stdout)
			if err != nil {
				if searcher != nil {
					_ = searcher.Quit()
				}

				return err
			}
			defer p.Close()

			p.computer = sides
			if fen, _ := cmd.Flags().GetString("fen"); fen != "" {
				if err := p.session.NewGameFromFEN(fen); err != nil {
					return err
				}
			}

			return p.run(os.Stdin)
		},
	}

	cmd.Flags().StringP("rules", "r", "", "Rules backend to validate moves with (chess or mess)")
	cmd.Flags().StringP("engine", "e", "", "Engine executable to play against")
	cmd.Flags().String("white", "", "Search budget of the engine as white")
	cmd.Flags().String("black", "", "Search budget of the engine as black")
	cmd.Flags().String("computer", "black", "Sides played by the engine (white, black, both or none)")
	cmd.Flags().StringP("book", "b", "", "Opening book to take start positions from")
	cmd.Flags().String("fen", "", "Position to start the game from")

	return cmd
}

// playFlags applies the flags of the play command on top of config.
func playFlags(cmd *cobra.Command, config *common.Config) error {
	if rules, _ := cmd.Flags().GetString("rules"); rules != "" {
		config.Rules = rules
	}

	if cmd_str, _ := cmd.Flags().GetString("engine"); cmd_str != "" {
		config.Engine.Cmd = cmd_str
		config.Engine.Name = ""
	}

	if path, _ := cmd.Flags().GetString("book"); path != "" {
		config.Book = path
	}

	for _, side := range []string{"white", "black"} {
		budget_str, _ := cmd.Flags().GetString(side)
		if budget_str == "" {
			continue
		}

		budget, err := engine.ParseBudget(budget_str)
		if err != nil {
			return err
		}

		if side == "white" {
			config.Budgets.White = budget
		} else {
			config.Budgets.Black = budget
		}
	}

	return nil
}

func parseSides(computer string) ([games.ColorN]bool, error) {
	switch computer {
	case "white":
		return [games.ColorN]bool{true, false}, nil
	case "black":
		return [games.ColorN]bool{false, true}, nil
	case "both":
		return [games.ColorN]bool{true, true}, nil
	case "none", "":
		return [games.ColorN]bool{}, nil
	default:
		return [games.ColorN]bool{}, fmt.Errorf("invalid --computer value %q", computer)
	}
}

var (
	good = color.New(color.FgGreen)
	bad  = color.New(color.FgRed)
	info = color.New(color.FgCyan)
	over = color.New(color.FgYellow, color.Bold)
)

var playHelp = heredoc.Doc(`
	<move>             play a move, like e2e4 or e7e8q
	undo, redo         take back or replay a move
	go                 let the engine move for the side to move
	new [fen]          start a new game
	load file [n]      load the n-th game of a dcn or pgn file
	save [file]        replace file with the current game
	append [file]      append the current game to file
	pgn                print the current game as pgn
	budget side spec   set the engine's budget for a side
	moves              list the legal moves
	status             show the board
	quit               leave the game
`)

// player drives a session from lines of text.
type player struct {
	config  *common.Config
	session *session.Session
	book    *book.Book

	names    [games.ColorN]string
	computer [games.ColorN]bool

	out    io.Writer
	lines  *bufio.Scanner
	cancel func()
}

func newPlayer(config *common.Config, searcher session.Searcher, out io.Writer) (*player, error) {
	s, err := session.New(config.Rules, searcher)
	if err != nil {
		return nil, err
	}

	p := &player{
		config:  config,
		session: s,
		out:     out,
		names:   [games.ColorN]string{"Human", "Human"},
	}

	s.SetBudget(games.White, config.Budget(games.White))
	s.SetBudget(games.Black, config.Budget(games.Black))

	if config.Book != "" {
		if p.book, err = book.Load(config.Book, config.BookOrder); err != nil {
			_ = s.Close()
			return nil, err
		}

		if err := s.NewGameFromFEN(p.book.Current()); err != nil {
			_ = s.Close()
			return nil, err
		}
	}

	p.cancel = s.Subscribe(session.ObserverFuncs{
		OnGameOver: p.gameOver,
	})

	return p, nil
}

func (p *player) Close() error {
	p.cancel()
	return p.session.Close()
}

// engineName names the engine in saved games.
func (p *player) engineName() string {
	if p.config.Engine.Name != "" {
		return p.config.Engine.Name
	}

	if p.config.Engine.Cmd != "" {
		return p.config.Engine.Cmd
	}

	return "Computer"
}

func (p *player) run(r io.Reader) error {
	p.lines = bufio.NewScanner(r)

	p.printStatus()
	if err := p.computerMoves(); err != nil {
		p.fail(err)
	}

	for p.prompt(); p.lines.Scan(); p.prompt() {
		quit, err := p.execute(strings.Fields(p.lines.Text()))
		if err != nil {
			p.fail(err)
		}

		if quit {
			return nil
		}
	}

	fmt.Fprintln(p.out)
	return p.lines.Err()
}

func (p *player) prompt() {
	fmt.Fprintf(p.out, "%s> ", p.session.Status().SideToMove)
}

func (p *player) fail(err error) {
	bad.Fprintf(p.out, "error: %v\n", err)
}

// ask prints question and reads the answer from the next line.
func (p *player) ask(question string) string {
	fmt.Fprint(p.out, question)
	if !p.lines.Scan() {
		return ""
	}

	return strings.ToLower(strings.TrimSpace(p.lines.Text()))
}

func (p *player) execute(args []string) (bool, error) {
	if len(args) == 0 {
		return false, nil
	}

	switch args[0] {
	case "quit", "exit":
		return true, nil

	case "help":
		fmt.Fprint(p.out, playHelp)
		return false, nil

	case "undo":
		return false, p.session.Undo()

	case "redo":
		return false, p.session.Redo()

	case "go":
		if err := p.engineMove(); err != nil {
			return false, err
		}

		return false, p.computerMoves()

	case "new":
		return false, p.newGame(strings.Join(args[1:], " "))

	case "load":
		if len(args) < 2 {
			return false, errors.New("usage: load file [n]")
		}

		return false, p.load(args[1:])

	case "save", "append":
		path := p.config.GamesFile
		if len(args) > 1 {
			path = args[1]
		}

		return false, p.save(path, args[0] == "append")

	case "pgn":
		return false, pgn.Export(p.out, p.record())

	case "budget":
		if len(args) != 3 {
			return false, errors.New("usage: budget white|black spec")
		}

		side, err := games.ParseColor(args[1])
		if err != nil {
			return false, err
		}

		budget, err := engine.ParseBudget(args[2])
		if err != nil {
			return false, err
		}

		p.session.SetBudget(side, budget)
		info.Fprintf(p.out, "%s budget: %s\n", side, budget)
		return false, nil

	case "moves":
		fmt.Fprintln(p.out, strings.Join(p.session.LegalMoves(), " "))
		return false, nil

	case "status":
		p.printStatus()
		return false, nil

	default:
		return false, p.move(args[0])
	}
}

// move plays a move entered by the user, asking for the promotion piece
// if the move needs one, and then lets the engine reply.
func (p *player) move(mov_str string) error {
	err := p.session.ApplyMove(mov_str)

	var promotion *session.PromotionRequiredError
	if errors.As(err, &promotion) {
		piece := p.ask(fmt.Sprintf("promote on %s to (q, r, b, n): ", promotion.Square))
		err = p.session.ApplyMove(mov_str + piece)
	}

	if err != nil {
		return err
	}

	return p.computerMoves()
}

// computerMoves lets the engine play as long as it is the engine's turn.
func (p *player) computerMoves() error {
	for {
		status := p.session.Status()
		if status.Terminal != session.Ongoing || !p.computer[status.SideToMove] {
			return nil
		}

		if err := p.engineMove(); err != nil {
			return err
		}
	}
}

func (p *player) engineMove() error {
	side := p.session.Status().SideToMove

	util.StartSpinner(fmt.Sprintf("%s is thinking", p.engineName()))
	move, err := p.session.EngineMove()
	util.PauseSpinner()

	if err != nil {
		return err
	}

	p.names[side] = p.engineName()
	info.Fprintf(p.out, "%s plays %s\n", p.engineName(), move)
	return nil
}

func (p *player) newGame(fen string) error {
	if fen == "" && p.book != nil {
		p.book.Next()
		fen = p.book.Current()
	}

	if fen == "" {
		p.session.NewGame()
	} else if err := p.session.NewGameFromFEN(fen); err != nil {
		return err
	}

	p.printStatus()
	return p.computerMoves()
}

func (p *player) load(args []string) error {
	records, err := loadRecords(args[0])
	if len(records) == 0 {
		if err == nil {
			err = fmt.Errorf("%s: no games found", args[0])
		}

		return err
	}

	if err != nil {
		logrus.WithError(err).Warn("play: skipped unreadable games")
	}

	n := 1
	if len(args) > 1 {
		if n, err = strconv.Atoi(args[1]); err != nil || n < 1 || n > len(records) {
			return fmt.Errorf("%s: game %s out of range 1-%d", args[0], args[1], len(records))
		}
	}

	record := records[n-1]
	if err := p.session.NewGameFromRecord(record); err != nil {
		return err
	}

	for i, side := range []string{"White", "Black"} {
		if name, found := record.Headers.Get(side); found {
			p.names[i] = name
		}
	}

	p.printStatus()
	return nil
}

func (p *player) record() *dcn.Record {
	var headers dcn.Headers
	headers.Set("Event", "Casual game")
	headers.Set("Site", "schach")
	headers.Set("White", p.names[games.White])
	headers.Set("Black", p.names[games.Black])

	return p.session.Record(headers, time.Now())
}

func (p *player) save(path string, appending bool) error {
	var err error
	if appending {
		err = dcn.AppendFile(path, p.record())
	} else {
		err = dcn.ReplaceFile(path, p.record())
	}

	if err != nil {
		return err
	}

	good.Fprintf(p.out, "saved to %s\n", path)
	return nil
}

func (p *player) printStatus() {
	status := p.session.Status()

	fmt.Fprint(p.out, drawBoard(status.FEN))
	fmt.Fprintln(p.out, status.FEN)

	switch {
	case status.Terminal != session.Ongoing:
		over.Fprintf(p.out, "game over: %s (%s)\n", status.Terminal, status.Result())
	case status.Check[status.SideToMove]:
		bad.Fprintf(p.out, "%s is in check\n", status.SideToMove)
	}
}

func (p *player) gameOver(status session.Status) {
	if status.Winner != nil {
		over.Fprintf(p.out, "%s, %s wins\n", status.Terminal, *status.Winner)
		return
	}

	over.Fprintf(p.out, "%s, the game is drawn\n", status.Terminal)
}

// drawBoard renders a position string as a diagram.
func drawBoard(fen string) string {
	opt, err := chess.FEN(fen)
	if err != nil {
		return ""
	}

	return chess.NewGame(opt).Position().Board().Draw()
}
