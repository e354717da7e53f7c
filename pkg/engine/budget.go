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

package engine

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Budget limits a single engine search. The zero Budget is unconstrained
// and lets the engine decide how long to think.
type Budget struct {
	Depth    int
	Nodes    int
	MoveTime time.Duration
}

func (budget Budget) Unconstrained() bool {
	return budget == Budget{}
}

// limits renders the arguments of the go command, with a leading space
// when there are any.
func (budget Budget) limits() string {
	var args strings.Builder
	if budget.Depth > 0 {
		fmt.Fprintf(&args, " depth %d", budget.Depth)
	}

	if budget.Nodes > 0 {
		fmt.Fprintf(&args, " nodes %d", budget.Nodes)
	}

	if budget.MoveTime > 0 {
		fmt.Fprintf(&args, " movetime %d", budget.MoveTime.Milliseconds())
	}

	return args.String()
}

func (budget Budget) String() string {
	if budget.Unconstrained() {
		return "inf"
	}

	var parts []string
	if budget.Depth > 0 {
		parts = append(parts, "depth="+strconv.Itoa(budget.Depth))
	}

	if budget.Nodes > 0 {
		parts = append(parts, "nodes="+strconv.Itoa(budget.Nodes))
	}

	if budget.MoveTime > 0 {
		parts = append(parts, "movetime="+budget.MoveTime.String())
	}

	return strings.Join(parts, ",")
}

func (budget Budget) MarshalText() ([]byte, error) {
	return []byte(budget.String()), nil
}

func (budget *Budget) UnmarshalText(text []byte) error {
	parsed, err := ParseBudget(string(text))
	if err != nil {
		return err
	}

	*budget = parsed
	return nil
}

// depth=12,nodes=5000,movetime=500ms; a bare number of milliseconds is
// accepted for movetime, and "" or "inf" is unconstrained
func ParseBudget(budget_str string) (Budget, error) {
	var budget Budget

	budget_str = strings.TrimSpace(budget_str)
	if budget_str == "" || budget_str == "inf" {
		return budget, nil
	}

	for _, limit := range strings.Split(budget_str, ",") {
		key, value, found := strings.Cut(strings.TrimSpace(limit), "=")
		if !found {
			return Budget{}, fmt.Errorf("parse budget: %q is not key=value", limit)
		}

		var err error
		switch key {
		case "depth":
			budget.Depth, err = strconv.Atoi(value)
		case "nodes":
			budget.Nodes, err = strconv.Atoi(value)
		case "movetime":
			budget.MoveTime, err = parseMoveTime(value)
		default:
			return Budget{}, fmt.Errorf("parse budget: unknown limit %q", key)
		}

		if err != nil {
			return Budget{}, fmt.Errorf("parse budget: %s: %w", key, err)
		}
	}

	if budget.Depth < 0 || budget.Nodes < 0 || budget.MoveTime < 0 {
		return Budget{}, errors.New("parse budget: limits must not be negative")
	}

	return budget, nil
}

func parseMoveTime(time_str string) (time.Duration, error) {
	if ms, err := strconv.Atoi(time_str); err == nil {
		return time.Millisecond * time.Duration(ms), nil
	}

	return time.ParseDuration(time_str)
}
