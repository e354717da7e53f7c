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

// Package pgn converts between game records and Portable Game Notation.
package pgn

import (
	"fmt"
	"io"

	"github.com/notnil/chess"

	"laptudirm.com/x/schach/pkg/dcn"
	"laptudirm.com/x/schach/pkg/games"
)

// Import reads every game in r. Moves are converted to coordinate
// notation, and a FEN tag becomes the record's start position.
func Import(r io.Reader) ([]*dcn.Record, error) {
	var records []*dcn.Record

	scanner := chess.NewScanner(r)
	for scanner.Scan() {
		game := scanner.Next()

		record := &dcn.Record{Start: game.Positions()[0].String()}
		for _, tag := range game.TagPairs() {
			switch tag.Key {
			case "FEN", "SetUp":
			default:
				record.Headers.Set(tag.Key, tag.Value)
			}
		}

		for _, move := range game.Moves() {
			record.Moves = append(record.Moves, move.String())
		}

		records = append(records, record)
	}

	if err := scanner.Err(); err != nil && err != io.EOF {
		return records, fmt.Errorf("pgn: %w", err)
	}

	return records, nil
}

// Export writes record to w as a PGN game.
func Export(w io.Writer, record *dcn.Record) error {
	var options []func(*chess.Game)
	if record.Start != games.StartFEN {
		fen, err := chess.FEN(record.Start)
		if err != nil {
			return fmt.Errorf("pgn: %w: %v", dcn.ErrCorrupt, err)
		}

		options = append(options, fen)
	}

	game := chess.NewGame(options...)
	for _, header := range record.Headers.Canonical() {
		if header.Name != "FEN" && header.Name != "SetUp" {
			game.AddTagPair(header.Name, header.Value)
		}
	}

	if record.Start != games.StartFEN {
		game.AddTagPair("SetUp", "1")
		game.AddTagPair("FEN", record.Start)
	}

	notation := chess.UCINotation{}
	for i, s := range record.Moves {
		move, err := notation.Decode(game.Position(), s)
		if err != nil {
			return fmt.Errorf("pgn: %w: ply %d: %v", dcn.ErrCorrupt, i+1, err)
		}

		if err := game.Move(move); err != nil {
			return fmt.Errorf("pgn: %w: ply %d: %v", dcn.ErrCorrupt, i+1, err)
		}
	}

	_, err := fmt.Fprintln(w, game.String())
	return err
}
