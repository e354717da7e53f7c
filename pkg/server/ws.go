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

package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"laptudirm.com/x/schach/pkg/engine"
	"laptudirm.com/x/schach/pkg/games"
	"laptudirm.com/x/schach/pkg/session"
)

const wsIdlePingInterval = 30 * time.Second

type wsMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

type errorPayload struct {
	Error     string            `json:"error"`
	Promotion *promotionPayload `json:"promotion,omitempty"`
}

type promotionPayload struct {
	Square string      `json:"square"`
	Side   games.Color `json:"side"`
}

func mustMarshal(v any) json.RawMessage {
	data, _ := json.Marshal(v)
	return data
}

// client is one websocket connection to a session. Messages for it are
// queued on send and written by a single goroutine.
type client struct {
	handle session.Handle
	send   chan []byte
}

func (c *client) sendJSON(msg wsMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		return
	}

	select {
	case c.send <- data:
	default:
		logrus.WithField("handle", c.handle).Warn("server: websocket client too slow, dropping message")
	}
}

func (c *client) StatusChanged(status session.Status) {
	c.sendJSON(wsMessage{Type: "status", Payload: mustMarshal(status)})
}

func (c *client) GameOver(status session.Status) {
	c.sendJSON(wsMessage{Type: "game_over", Payload: mustMarshal(status)})
}

func (c *client) sendError(err error) {
	payload := errorPayload{Error: err.Error()}

	var promotion *session.PromotionRequiredError
	if errors.As(err, &promotion) {
		payload.Promotion = &promotionPayload{Square: promotion.Square, Side: promotion.Side}
	}

	c.sendJSON(wsMessage{Type: "error", Payload: mustMarshal(payload)})
}

func (server *Server) serveWS(w http.ResponseWriter, r *http.Request) {
	handle, err := session.ParseHandle(chi.URLParam(r, "handle"))
	if err != nil {
		writeError(w, http.StatusNotFound, err)
		return
	}

	c := &client{handle: handle, send: make(chan []byte, 16)}

	var cancel func()
	err = server.registry.Do(handle, func(s *session.Session) error {
		cancel = s.Subscribe(c)
		c.StatusChanged(s.Status())
		return nil
	})
	if err != nil {
		writeError(w, statusOf(err), err)
		return
	}

	upgrader := websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		server.unsubscribe(c, cancel)
		return
	}

	go func() {
		defer conn.Close()
		if err := writeWSWithHeartbeat(conn, c.send); err != nil {
			logrus.WithError(err).Debug("server: websocket write")
		}
	}()

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			server.unsubscribe(c, cancel)
			return
		}

		var msg wsMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			c.sendError(fmt.Errorf("invalid message: %w", err))
			continue
		}

		if err := server.registry.Do(handle, func(s *session.Session) error {
			return server.handleMessage(c, s, msg)
		}); err != nil {
			c.sendError(err)
		}
	}
}

// unsubscribe detaches c from its session and stops its writer. The
// session only notifies observers while the registry holds it, so no
// message can be queued on the closed channel afterwards.
func (server *Server) unsubscribe(c *client, cancel func()) {
	_ = server.registry.Do(c.handle, func(*session.Session) error {
		cancel()
		return nil
	})

	close(c.send)
}

func (server *Server) handleMessage(c *client, s *session.Session, msg wsMessage) error {
	switch msg.Type {
	case "move":
		var payload struct {
			Move string `json:"move"`
		}
		if err := json.Unmarshal(msg.Payload, &payload); err != nil {
			return err
		}

		return s.ApplyMove(payload.Move)

	case "undo":
		return s.Undo()

	case "redo":
		return s.Redo()

	case "engine":
		_, err := s.EngineMove()
		return err

	case "new":
		var payload struct {
			FEN string `json:"fen"`
		}
		if len(msg.Payload) > 0 {
			if err := json.Unmarshal(msg.Payload, &payload); err != nil {
				return err
			}
		}

		if payload.FEN == "" {
			s.NewGame()
			return nil
		}

		return s.NewGameFromFEN(payload.FEN)

	case "budget":
		var payload struct {
			Side   games.Color   `json:"side"`
			Budget engine.Budget `json:"budget"`
		}
		if err := json.Unmarshal(msg.Payload, &payload); err != nil {
			return err
		}

		s.SetBudget(payload.Side, payload.Budget)
		c.StatusChanged(s.Status())
		return nil

	case "status":
		c.StatusChanged(s.Status())
		return nil

	default:
		return fmt.Errorf("unknown message type %q", msg.Type)
	}
}

func writeWSWithHeartbeat(conn *websocket.Conn, send <-chan []byte) error {
	ticker := time.NewTicker(wsIdlePingInterval)
	defer ticker.Stop()
	lastWrite := time.Now()
	pingPayload := mustMarshal(wsMessage{Type: "ping"})

	for {
		select {
		case msg, ok := <-send:
			if !ok {
				return nil
			}
			if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return err
			}
			lastWrite = time.Now()
		case <-ticker.C:
			if time.Since(lastWrite) < wsIdlePingInterval {
				continue
			}
			if err := conn.WriteMessage(websocket.TextMessage, pingPayload); err != nil {
				return err
			}
			lastWrite = time.Now()
		}
	}
}
