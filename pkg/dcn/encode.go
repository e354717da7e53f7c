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
	"bytes"
	"fmt"
	"io"
	"regexp"
	"strings"
)

var movePattern = regexp.MustCompile(`^[a-h][1-8][a-h][1-8][nbrq]?$`)

// Marshal returns the encoding of record, separator included.
func Marshal(record *Record) ([]byte, error) {
	if err := validate(record); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	buf.WriteString("<game>\n")

	for _, header := range record.Headers.Canonical() {
		fmt.Fprintf(&buf, "  <header name=\"%s\">%s</header>\n", header.Name, header.Value)
	}

	fmt.Fprintf(&buf, "  <board fen=\"%s\" />\n", record.Start)

	buf.WriteString("  <stack>\n")
	for _, mov := range record.Moves {
		fmt.Fprintf(&buf, "    <move>%s</move>\n", mov)
	}
	buf.WriteString("  </stack>\n")

	buf.WriteString("</game>")
	buf.WriteString(Separator)
	return buf.Bytes(), nil
}

// Encode writes the encoding of record to w.
func Encode(w io.Writer, record *Record) error {
	data, err := Marshal(record)
	if err != nil {
		return err
	}

	_, err = w.Write(data)
	return err
}

func validate(record *Record) error {
	if strings.TrimSpace(record.Start) == "" {
		return &FormatError{Tag: "board", Msg: "empty start position"}
	}

	if strings.ContainsAny(record.Start, "\"<>\n") {
		return &FormatError{Tag: "board", Msg: fmt.Sprintf("start position %q cannot be written", record.Start)}
	}

	seen := map[string]bool{}
	for _, header := range record.Headers {
		if !headerName.MatchString(header.Name) {
			return &FormatError{Tag: "header", Msg: fmt.Sprintf("invalid name %q", header.Name)}
		}

		if seen[header.Name] {
			return &FormatError{Tag: "header", Msg: fmt.Sprintf("duplicate header %q", header.Name)}
		}
		seen[header.Name] = true

		value := header.Value
		switch {
		case strings.Contains(value, Separator), strings.Contains(value, "\r"):
			return &FormatError{Tag: "header", Msg: fmt.Sprintf("%s: value contains a record separator", header.Name)}
		case tagLike.MatchString(value), prologLike.MatchString(value):
			return &FormatError{Tag: "header", Msg: fmt.Sprintf("%s: value contains markup", header.Name)}
		}

		if header.Name == "Result" && !ValidResult(value) {
			return &FormatError{Tag: "header", Msg: fmt.Sprintf("invalid Result %q", value)}
		}
	}

	for i, mov := range record.Moves {
		if !movePattern.MatchString(mov) {
			return &FormatError{Tag: "move", Msg: fmt.Sprintf("ply %d: invalid move %q", i+1, mov)}
		}
	}

	return nil
}
