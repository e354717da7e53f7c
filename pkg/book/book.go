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

// Package book provides opening books: lists of start positions from
// which new games are set up.
package book

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"os"
	"strconv"
	"strings"

	"laptudirm.com/x/schach/pkg/games"
)

const (
	Sequential = "sequential"
	Random     = "random"
)

var ErrEmpty = errors.New("book: no positions")

// Load reads the book at path. See Parse.
func Load(path string, order string) (*Book, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	return Parse(file, order)
}

// Parse reads one position per line, either a FEN or an EPD line whose
// operations are dropped. Blank lines and lines starting with # are
// ignored. order is Sequential or Random.
func Parse(r io.Reader, order string) (*Book, error) {
	var book Book

	switch order {
	case "", Sequential:
		book.order = Sequential
	case Random:
		book.order = Random
	default:
		return nil, fmt.Errorf("book: unknown order %q", order)
	}

	scanner := bufio.NewScanner(r)
	for number := 1; scanner.Scan(); number++ {
		entry := strings.Trim(scanner.Text(), "\n\r\t ")
		if entry == "" || strings.HasPrefix(entry, "#") {
			continue
		}

		fen := toFEN(entry)
		if err := games.ValidateFEN(fen); err != nil {
			return nil, fmt.Errorf("book: line %d: %w", number, err)
		}

		book.entries = append(book.entries, fen)
	}

	if err := scanner.Err(); err != nil {
		return nil, err
	}

	if len(book.entries) == 0 {
		return nil, ErrEmpty
	}

	if book.order == Random {
		book.current = rand.Intn(len(book.entries))
	}

	return &book, nil
}

// toFEN completes an EPD line with zeroed move counters.
func toFEN(entry string) string {
	fields := strings.Fields(entry)
	if len(fields) >= 6 {
		if _, err := strconv.Atoi(fields[4]); err == nil {
			return strings.Join(fields[:6], " ")
		}
	}

	if len(fields) > 4 {
		fields = fields[:4]
	}

	return strings.Join(fields, " ") + " 0 1"
}

type Book struct {
	entries []string
	order   string
	current int
}

func (book *Book) Len() int {
	return len(book.entries)
}

// Next moves on to the next position of the book.
func (book *Book) Next() {
	switch book.order {
	case Random:
		book.current = rand.Intn(len(book.entries))
	default:
		book.current = (book.current + 1) % len(book.entries)
	}
}

func (book *Book) Current() string {
	return book.entries[book.current]
}
