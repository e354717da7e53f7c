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

package session

import (
	"errors"
	"fmt"

	"laptudirm.com/x/schach/pkg/engine"
	"laptudirm.com/x/schach/pkg/games"
)

var (
	ErrIllegalMove       = games.ErrIllegalMove
	ErrPromotionRequired = errors.New("promotion piece required")
	ErrGameOver          = errors.New("game is over")

	// ErrEngineUnavailable is fatal to a session's computer play: once an
	// engine request fails every later one fails with the same error.
	ErrEngineUnavailable = engine.ErrUnavailable
)

// PromotionRequiredError is returned for a pawn move onto the last rank
// which does not name the piece to promote to. The move should be sent
// again with the piece appended.
type PromotionRequiredError struct {
	Square string
	Side   games.Color
}

func (err *PromotionRequiredError) Error() string {
	return fmt.Sprintf("%s: %s pawn on %s", ErrPromotionRequired, err.Side, err.Square)
}

func (err *PromotionRequiredError) Is(target error) bool {
	return target == ErrPromotionRequired
}
