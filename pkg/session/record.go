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
	"time"

	"laptudirm.com/x/schach/pkg/dcn"
)

// DateFormat is the layout of the Date header.
const DateFormat = "2006.01.02"

// Record returns a record of the game so far. A missing Date header is
// filled in from now, and a finished game overrides the Result header.
func (session *Session) Record(headers dcn.Headers, now time.Time) *dcn.Record {
	record := &dcn.Record{
		Headers: append(dcn.Headers(nil), headers...),
		Start:   session.start,
		Moves:   session.History(),
	}

	if _, found := record.Headers.Get("Date"); !found {
		record.Headers.Set("Date", now.Format(DateFormat))
	}

	status := session.Status()
	if _, found := record.Headers.Get("Result"); status.Terminal != Ongoing || !found {
		record.Headers.Set("Result", status.Result())
	}

	return record
}
