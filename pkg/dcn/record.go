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

// Package dcn reads and writes game records in the DCN format, a small
// tag-based notation holding the headers, the starting position and the
// moves of a game. A file holds any number of records, each followed by
// a separator of three newlines.
package dcn

import (
	"errors"
	"fmt"
	"regexp"

	"laptudirm.com/x/schach/pkg/games"
)

// Separator terminates every record in a DCN file.
const Separator = "\n\n\n"

// CanonicalHeaders lists the well known headers in the order they are
// written. Other headers follow them in their original order.
var CanonicalHeaders = []string{"Event", "Site", "Date", "Round", "White", "Black", "Result"}

var ErrCorrupt = errors.New("dcn: corrupt record")

// FormatError reports a record which could not be decoded or encoded.
type FormatError struct {
	Tag string
	Msg string
}

func (err *FormatError) Error() string {
	if err.Tag == "" {
		return "dcn: " + err.Msg
	}

	return fmt.Sprintf("dcn: <%s>: %s", err.Tag, err.Msg)
}

type Header struct {
	Name  string
	Value string
}

// Headers is an ordered list of record headers.
type Headers []Header

func (headers Headers) Get(name string) (string, bool) {
	for _, header := range headers {
		if header.Name == name {
			return header.Value, true
		}
	}

	return "", false
}

// Set replaces the value of the named header in place, or appends the
// header if it is not present yet.
func (headers *Headers) Set(name, value string) {
	for i := range *headers {
		if (*headers)[i].Name == name {
			(*headers)[i].Value = value
			return
		}
	}

	*headers = append(*headers, Header{Name: name, Value: value})
}

// Canonical returns a copy of headers with the well known headers first.
func (headers Headers) Canonical() Headers {
	ordered := make(Headers, 0, len(headers))
	for _, name := range CanonicalHeaders {
		if value, found := headers.Get(name); found {
			ordered = append(ordered, Header{Name: name, Value: value})
		}
	}

	for _, header := range headers {
		if !isCanonical(header.Name) {
			ordered = append(ordered, header)
		}
	}

	return ordered
}

func isCanonical(name string) bool {
	for _, canonical := range CanonicalHeaders {
		if name == canonical {
			return true
		}
	}

	return false
}

// Record is a single game: its headers, the position before the first
// move and the moves played from it in coordinate notation.
type Record struct {
	Headers Headers
	Start   string
	Moves   []string
}

// New returns an empty record starting at the default position.
func New() *Record {
	return &Record{Start: games.StartFEN}
}

// Result returns the Result header, or "*" if the record has none.
func (record *Record) Result() string {
	if result, found := record.Headers.Get("Result"); found {
		return result
	}

	return "*"
}

// Replay plays the record's moves on oracle, leaving it at the final
// position of the game.
func (record *Record) Replay(oracle games.Oracle) error {
	if err := oracle.Initialize(record.Start); err != nil {
		return fmt.Errorf("%w: start position: %v", ErrCorrupt, err)
	}

	for i, mov := range record.Moves {
		if err := oracle.MakeMove(mov); err != nil {
			return fmt.Errorf("%w: ply %d: %v", ErrCorrupt, i+1, err)
		}
	}

	return nil
}

var headerName = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_]*$`)

func ValidResult(result string) bool {
	switch result {
	case "1-0", "0-1", "1/2-1/2", "*":
		return true
	default:
		return false
	}
}
