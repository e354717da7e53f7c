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

// Package stats sums up the results of stored games per player.
package stats

import (
	"math"
	"sort"

	"laptudirm.com/x/schach/pkg/dcn"
)

// Score is a player's record over a set of games.
type Score struct {
	Wins, Draws, Losses int
}

func (score Score) Games() int {
	return score.Wins + score.Draws + score.Losses
}

// Points counts a win as one point and a draw as half a point.
func (score Score) Points() float64 {
	return float64(score.Wins) + float64(score.Draws)/2
}

// Elo returns the likely elo difference between the player and their
// opponents along with its p < 0.05 lower and upper bounds.
func (score Score) Elo() (lower float64, mu float64, upper float64) {
	N := float64(score.Games()) // total number of games

	if N == 0 {
		return 0, 0, 0
	}

	w := float64(score.Wins) / N   // measured win probability
	d := float64(score.Draws) / N  // measured draw probability
	l := float64(score.Losses) / N // measured loss probability

	// empirical mean of random variable
	mu = w + d/2

	// standard deviation of the random variable
	sigma := math.Sqrt(w*math.Pow(1-mu, 2)+d*math.Pow(0.5-mu, 2)+l*math.Pow(0-mu, 2)) / math.Sqrt(N)

	lower = mu + phiInv(0.025)*sigma
	upper = mu + phiInv(0.975)*sigma

	return scoreToElo(lower), scoreToElo(mu), scoreToElo(upper)
}

func scoreToElo(x float64) float64 {
	switch {
	case x <= 0:
		return math.Inf(-1)
	case x >= 1:
		return math.Inf(+1)
	default:
		return -400 * math.Log10(1/x-1)
	}
}

func phiInv(p float64) float64 {
	return math.Sqrt2 * math.Erfinv(2*p-1)
}

// Tally adds up the finished games of records for every player named in
// a White or Black header. Games without both names are skipped.
func Tally(records []*dcn.Record) map[string]*Score {
	scores := make(map[string]*Score)
	score := func(name string) *Score {
		if scores[name] == nil {
			scores[name] = &Score{}
		}

		return scores[name]
	}

	for _, record := range records {
		white, _ := record.Headers.Get("White")
		black, _ := record.Headers.Get("Black")
		if white == "" || black == "" {
			continue
		}

		switch record.Result() {
		case "1-0":
			score(white).Wins++
			score(black).Losses++
		case "0-1":
			score(white).Losses++
			score(black).Wins++
		case "1/2-1/2":
			score(white).Draws++
			score(black).Draws++
		}
	}

	return scores
}

// Players returns the names in scores, best score first. Players with
// equal points are ordered by name.
func Players(scores map[string]*Score) []string {
	players := make([]string, 0, len(scores))
	for name := range scores {
		players = append(players, name)
	}

	sort.Slice(players, func(i, j int) bool {
		a, b := scores[players[i]].Points(), scores[players[j]].Points()
		if a != b {
			return a > b
		}

		return players[i] < players[j]
	})

	return players
}
