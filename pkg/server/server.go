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

// Package server exposes game sessions over HTTP, with a websocket per
// window for live play.
package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"

	"laptudirm.com/x/schach/pkg/dcn"
	"laptudirm.com/x/schach/pkg/engine"
	"laptudirm.com/x/schach/pkg/games"
	"laptudirm.com/x/schach/pkg/session"
)

type Config struct {
	// Rules names the games backend of new sessions.
	Rules string

	// NewEngine starts the engine of a new session. Sessions are created
	// without an engine when it is nil or fails.
	NewEngine func() (session.Searcher, error)

	Budgets [games.ColorN]engine.Budget
}

type Server struct {
	config   Config
	registry *session.Registry
	now      func() time.Time
}

func New(config Config) *Server {
	return &Server{
		config:   config,
		registry: session.NewRegistry(),
		now:      time.Now,
	}
}

// Close ends every session along with its engine.
func (server *Server) Close() error {
	return server.registry.CloseAll()
}

func (server *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/api/ping", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
	})

	r.Route("/api/sessions", func(r chi.Router) {
		r.Get("/", server.listSessions)
		r.Post("/", server.createSession)

		r.Route("/{handle}", func(r chi.Router) {
			r.Get("/", server.getSession)
			r.Delete("/", server.deleteSession)
			r.Get("/dcn", server.getRecord)
			r.Put("/dcn", server.putRecord)
		})
	})

	r.Get("/ws/{handle}", server.serveWS)
	return r
}

type sessionResponse struct {
	Handle  session.Handle `json:"handle"`
	Start   string         `json:"start"`
	History []string       `json:"history"`
	Status  session.Status `json:"status"`
}

func describe(handle session.Handle, s *session.Session) sessionResponse {
	return sessionResponse{
		Handle:  handle,
		Start:   s.StartFEN(),
		History: s.History(),
		Status:  s.Status(),
	}
}

func (server *Server) listSessions(w http.ResponseWriter, r *http.Request) {
	sessions := []sessionResponse{}
	for _, handle := range server.registry.Handles() {
		_ = server.registry.Do(handle, func(s *session.Session) error {
			sessions = append(sessions, describe(handle, s))
			return nil
		})
	}

	writeJSON(w, http.StatusOK, sessions)
}

func (server *Server) createSession(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		FEN string `json:"fen"`
	}

	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, errors.New("invalid payload"))
		return
	}

	var searcher session.Searcher
	if server.config.NewEngine != nil {
		var err error
		if searcher, err = server.config.NewEngine(); err != nil {
			logrus.WithError(err).Warn("server: new session without an engine")
			searcher = nil
		}
	}

	s, err := session.New(server.config.Rules, searcher)
	if err != nil {
		if searcher != nil {
			_ = searcher.Quit()
		}

		writeError(w, http.StatusInternalServerError, err)
		return
	}

	if payload.FEN != "" {
		if err := s.NewGameFromFEN(payload.FEN); err != nil {
			_ = s.Close()
			writeError(w, statusOf(err), err)
			return
		}
	}

	s.SetBudget(games.White, server.config.Budgets[games.White])
	s.SetBudget(games.Black, server.config.Budgets[games.Black])

	handle := server.registry.Open(s)
	logrus.WithField("handle", handle).Info("server: session opened")

	writeJSON(w, http.StatusCreated, describe(handle, s))
}

// withSession runs fn on the session named in the request's URL and
// writes an error response if that fails.
func (server *Server) withSession(w http.ResponseWriter, r *http.Request, fn func(session.Handle, *session.Session) error) {
	handle, err := session.ParseHandle(chi.URLParam(r, "handle"))
	if err == nil {
		err = server.registry.Do(handle, func(s *session.Session) error {
			return fn(handle, s)
		})
	}

	if err != nil {
		writeError(w, statusOf(err), err)
	}
}

func (server *Server) getSession(w http.ResponseWriter, r *http.Request) {
	server.withSession(w, r, func(handle session.Handle, s *session.Session) error {
		writeJSON(w, http.StatusOK, describe(handle, s))
		return nil
	})
}

func (server *Server) deleteSession(w http.ResponseWriter, r *http.Request) {
	handle, err := session.ParseHandle(chi.URLParam(r, "handle"))
	if err == nil {
		err = server.registry.Close(handle)
	}

	if err != nil && errors.Is(err, session.ErrUnknownHandle) {
		writeError(w, http.StatusNotFound, err)
		return
	}

	if err != nil {
		logrus.WithError(err).Warn("server: closing engine")
	}

	logrus.WithField("handle", handle).Info("server: session closed")
	w.WriteHeader(http.StatusNoContent)
}

func (server *Server) getRecord(w http.ResponseWriter, r *http.Request) {
	server.withSession(w, r, func(handle session.Handle, s *session.Session) error {
		data, err := dcn.Marshal(s.Record(nil, server.now()))
		if err != nil {
			return err
		}

		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(data)
		return nil
	})
}

func (server *Server) putRecord(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	records, err := dcn.DecodeAll(string(body))
	if len(records) == 0 {
		if err == nil {
			err = errors.New("no records in body")
		}

		writeError(w, http.StatusBadRequest, err)
		return
	}

	server.withSession(w, r, func(handle session.Handle, s *session.Session) error {
		if err := s.NewGameFromRecord(records[0]); err != nil {
			return err
		}

		writeJSON(w, http.StatusOK, describe(handle, s))
		return nil
	})
}

// statusOf maps session and codec errors to HTTP status codes.
func statusOf(err error) int {
	var formatErr *dcn.FormatError
	switch {
	case errors.Is(err, session.ErrUnknownHandle):
		return http.StatusNotFound
	case errors.Is(err, session.ErrIllegalMove),
		errors.Is(err, session.ErrPromotionRequired),
		errors.Is(err, session.ErrGameOver):
		return http.StatusConflict
	case errors.Is(err, session.ErrEngineUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, dcn.ErrCorrupt),
		errors.Is(err, games.ErrInvalidFEN),
		errors.As(err, &formatErr):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": strings.TrimSpace(err.Error())})
}
