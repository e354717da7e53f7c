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

package util

import (
	"sort"
	"testing"
)

func TestAlphanumLess(t *testing.T) {
	rounds := []string{"10", "2", "1.10", "1.2", "?", "1", "1.1"}
	sort.Slice(rounds, func(i, j int) bool { return AlphanumLess(rounds[i], rounds[j]) })

	want := []string{"1", "1.1", "1.2", "1.10", "2", "10", "?"}
	for i := range want {
		if rounds[i] != want[i] {
			t.Fatalf("sorted = %v, want %v", rounds, want)
		}
	}

	if AlphanumLess("3", "3") {
		t.Error("a string does not sort before itself")
	}

	if !AlphanumLess("round", "round 2") {
		t.Error("a prefix sorts first")
	}
}
