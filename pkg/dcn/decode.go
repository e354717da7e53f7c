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

package dcn

import (
	"errors"
	"fmt"
	"strings"
)

// Decode reads a single record. Both the current layout and the legacy
// one, with a version prolog, attribute children and numbered move pairs,
// are accepted.
func Decode(text string) (*Record, error) {
	root, err := parse(tokenize(normalize(text)))
	if err != nil {
		return nil, err
	}

	if strings.TrimSpace(root.text.String()) != "" {
		return nil, &FormatError{Msg: "text outside of <game>"}
	}

	var game *element
	for _, child := range root.children {
		if child.name != "game" {
			return nil, &FormatError{Tag: child.name, Msg: "unexpected element outside of <game>"}
		}

		if game != nil {
			return nil, &FormatError{Tag: "game", Msg: "more than one game in a record"}
		}

		game = child
	}

	if game == nil {
		return nil, &FormatError{Tag: "game", Msg: "missing"}
	}

	var record Record
	for _, child := range game.children {
		switch child.name {
		case "header":
			attrs := child.attributes()

			name, found := attrs["name"]
			if !found || name == "" {
				return nil, &FormatError{Tag: "header", Msg: "missing name"}
			}

			value, found := attrs["value"]
			if !found {
				value = child.text.String()
			}

			record.Headers.Set(name, value)

		case "board":
			if record.Start != "" {
				return nil, &FormatError{Tag: "board", Msg: "more than one board"}
			}

			fen := strings.TrimSpace(child.attributes()["fen"])
			if fen == "" {
				return nil, &FormatError{Tag: "board", Msg: "missing fen"}
			}

			record.Start = fen

		case "stack", "moves":
			for _, mov := range child.children {
				if mov.name == "move" {
					record.Moves = append(record.Moves, splitMoves(mov.text.String())...)
				}
			}
		}
	}

	if record.Start == "" {
		return nil, &FormatError{Tag: "board", Msg: "missing"}
	}

	if result, found := record.Headers.Get("Result"); found && !ValidResult(result) {
		return nil, &FormatError{Tag: "header", Msg: fmt.Sprintf("invalid Result %q", result)}
	}

	return &record, nil
}

// DecodeAll reads every record of a DCN file. Records which fail to
// decode are skipped; their errors are joined into the returned error
// while the records which did decode are still returned.
func DecodeAll(text string) ([]*Record, error) {
	var records []*Record
	var errs []error

	for i, segment := range strings.Split(normalize(text), Separator) {
		if strings.TrimSpace(segment) == "" {
			continue
		}

		record, err := Decode(segment)
		if err != nil {
			errs = append(errs, fmt.Errorf("segment %d: %w", i, err))
			continue
		}

		records = append(records, record)
	}

	return records, errors.Join(errs...)
}

func normalize(text string) string {
	return strings.ReplaceAll(text, "\r\n", "\n")
}

// splitMoves reads the moves of a <move> element. Legacy records pair
// moves as white...black and open with the null move 0000.
func splitMoves(text string) []string {
	var moves []string
	for _, mov := range strings.Fields(strings.ReplaceAll(text, "...", " ")) {
		if mov != "0000" {
			moves = append(moves, strings.ToLower(mov))
		}
	}

	return moves
}
