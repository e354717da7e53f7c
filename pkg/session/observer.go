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

import "github.com/sirupsen/logrus"

// Observer is told about every change to a session. Calls are made
// synchronously from the goroutine which changed the session.
type Observer interface {
	// StatusChanged is called after every change.
	StatusChanged(Status)

	// GameOver is called once per game, after the StatusChanged call for
	// the move which ended it.
	GameOver(Status)
}

// ObserverFuncs adapts a pair of functions to the Observer interface.
// Either may be nil.
type ObserverFuncs struct {
	OnStatus   func(Status)
	OnGameOver func(Status)
}

func (funcs ObserverFuncs) StatusChanged(status Status) {
	if funcs.OnStatus != nil {
		funcs.OnStatus(status)
	}
}

func (funcs ObserverFuncs) GameOver(status Status) {
	if funcs.OnGameOver != nil {
		funcs.OnGameOver(status)
	}
}

type subscription struct {
	id       int
	observer Observer
}

// Subscribe registers observer and returns a function which removes it
// again.
func (session *Session) Subscribe(observer Observer) (cancel func()) {
	id := session.nextObserver
	session.nextObserver++

	session.observers = append(session.observers, subscription{id: id, observer: observer})

	return func() {
		for i, sub := range session.observers {
			if sub.id == id {
				session.observers = append(session.observers[:i:i], session.observers[i+1:]...)
				return
			}
		}
	}
}

func (session *Session) changed() {
	status := session.Status()

	logrus.WithFields(logrus.Fields{
		"fen":      status.FEN,
		"ply":      status.Ply,
		"terminal": status.Terminal,
		"thinking": status.Thinking,
	}).Trace("session: status changed")

	observers := append([]subscription(nil), session.observers...)
	for _, sub := range observers {
		sub.observer.StatusChanged(status)
	}

	if status.Terminal != Ongoing && !session.noticeSent {
		session.noticeSent = true

		logrus.WithField("terminal", status.Terminal).Debug("session: game over")
		for _, sub := range observers {
			sub.observer.GameOver(status)
		}
	}
}
