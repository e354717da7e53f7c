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
	"errors"
	"os"
	"path/filepath"
	"strings"

	"github.com/MakeNowJust/heredoc/v2"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"laptudirm.com/x/schach/pkg/dcn"
	"laptudirm.com/x/schach/pkg/pgn"
)

func Convert() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "convert input output",
		Short: "Convert games between the dcn and pgn formats",
		Args:  cobra.ExactArgs(2),
		Long: heredoc.Doc(`convert reads every game from the input file and writes them
			to the output file. The format of each file is chosen by
			its extension: files ending in .pgn hold pgn games and all
			other files hold dcn records.

			The output file is replaced unless --append is given.`),

		RunE: func(cmd *cobra.Command, args []string) error {
			records, err := loadRecords(args[0])
			if err != nil {
				if len(records) == 0 {
					return err
				}

				logrus.WithError(err).Warn("convert: skipped unreadable games")
			}

			appending, _ := cmd.Flags().GetBool("append")
			if err := saveRecords(args[1], records, appending); err != nil {
				return err
			}

			good.Printf("converted %d games\n", len(records))
			return nil
		},
	}

	cmd.Flags().BoolP("append", "a", false, "Append to the output file instead of replacing it")

	return cmd
}

func isPGN(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".pgn")
}

// loadRecords reads the games in the dcn or pgn file at path. Games which
// could be read are returned along with any error.
func loadRecords(path string) ([]*dcn.Record, error) {
	if !isPGN(path) {
		return dcn.LoadFile(path)
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	return pgn.Import(file)
}

func saveRecords(path string, records []*dcn.Record, appending bool) error {
	if len(records) == 0 {
		return errors.New("no games to write")
	}

	flags := os.O_CREATE | os.O_WRONLY | os.O_TRUNC
	if appending {
		flags = os.O_CREATE | os.O_WRONLY | os.O_APPEND
	}

	if !isPGN(path) {
		for i, record := range records {
			var err error
			if i == 0 && !appending {
				err = dcn.ReplaceFile(path, record)
			} else {
				err = dcn.AppendFile(path, record)
			}

			if err != nil {
				return err
			}
		}

		return nil
	}

	file, err := os.OpenFile(path, flags, 0o644)
	if err != nil {
		return err
	}

	for _, record := range records {
		if err := pgn.Export(file, record); err != nil {
			_ = file.Close()
			return err
		}
	}

	return file.Close()
}
