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
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/MakeNowJust/heredoc/v2"
	"github.com/spf13/cobra"

	"laptudirm.com/x/schach/internal/util"
	"laptudirm.com/x/schach/pkg/dcn"
	"laptudirm.com/x/schach/pkg/games"
	"laptudirm.com/x/schach/pkg/stats"
)

func List() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list [file]",
		Short: "List the games stored in a file",
		Args:  cobra.MaximumNArgs(1),
		Long: heredoc.Doc(`list prints a line for every game in the given dcn or pgn
			file, or in the configured games file if none is given.

			With --verify every game is replayed move by move, and
			games which cannot be replayed are reported. With --stats
			the finished games are summed up for every player, along
			with the elo difference their score suggests.`),

		RunE: func(cmd *cobra.Command, args []string) error {
			config, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			path := config.GamesFile
			if len(args) == 1 {
				path = args[0]
			}

			records, err := loadRecords(path)
			if err != nil {
				if len(records) == 0 {
					return err
				}

				bad.Fprintf(os.Stderr, "%v\n", err)
			}

			sortBy, _ := cmd.Flags().GetString("sort")
			if err := sortRecords(records, sortBy); err != nil {
				return err
			}

			rules := ""
			if verify, _ := cmd.Flags().GetBool("verify"); verify {
				rules = config.Rules
				if rules == "" {
					rules = "chess"
				}
			}

			if err := listRecords(os.Stdout, records, rules); err != nil {
				return err
			}

			if summary, _ := cmd.Flags().GetBool("stats"); summary {
				fmt.Println()
				printScores(os.Stdout, stats.Tally(records))
			}

			return nil
		},
	}

	cmd.Flags().Bool("verify", false, "Replay every game to check its moves")
	cmd.Flags().Bool("stats", false, "Sum up the results of every player")
	cmd.Flags().String("sort", "", "Order the games by a header, like round or date")

	return cmd
}

// sortRecords orders records naturally by the named header. The empty
// name keeps the file order.
func sortRecords(records []*dcn.Record, header string) error {
	switch header {
	case "":
		return nil
	case "round", "date", "event", "white", "black":
	default:
		return fmt.Errorf("cannot sort by %q", header)
	}

	name := map[string]string{
		"round": "Round",
		"date":  "Date",
		"event": "Event",
		"white": "White",
		"black": "Black",
	}[header]

	sort.SliceStable(records, func(i, j int) bool {
		a, _ := records[i].Headers.Get(name)
		b, _ := records[j].Headers.Get(name)
		return util.AlphanumLess(a, b)
	})

	return nil
}

// listRecords prints one line per record. Records are replayed with the
// named rules backend unless rules is empty.
func listRecords(w io.Writer, records []*dcn.Record, rules string) error {
	for i, record := range records {
		white, _ := record.Headers.Get("White")
		black, _ := record.Headers.Get("Black")
		date, _ := record.Headers.Get("Date")

		fmt.Fprintf(w, "%3d. %-10s %s vs %s, %d moves, %s", i+1, date, white, black, len(record.Moves), record.Result())

		if rules != "" {
			oracle, err := games.GetOracle(rules)
			if err != nil {
				return err
			}

			if err := record.Replay(oracle); err != nil {
				bad.Fprintf(w, " (%v)", err)
			} else {
				good.Fprint(w, " (ok)")
			}
		}

		fmt.Fprintln(w)
	}

	return nil
}

func printScores(w io.Writer, scores map[string]*stats.Score) {
	for _, name := range stats.Players(scores) {
		score := scores[name]
		lower, elo, upper := score.Elo()

		fmt.Fprintf(w, "%-20s %4.1f/%-3d +%d =%d -%d  elo %+.1f [%+.1f, %+.1f]\n",
			name, score.Points(), score.Games(),
			score.Wins, score.Draws, score.Losses,
			elo, lower, upper,
		)
	}
}
