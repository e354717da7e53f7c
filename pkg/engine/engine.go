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

// Package engine drives an external UCI chess engine over its standard
// input and output.
package engine

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

type Config struct {
	Name string `yaml:"name"`
	Cmd  string `yaml:"cmd"`
	Dir  string `yaml:"dir"`
	Arg  string `yaml:"arg"`

	InitStr string `yaml:"init-string"`

	Options map[string]string `yaml:"options"`
}

var (
	// ErrUnavailable is returned for every failure to start or talk to
	// the engine process. A session that sees it stops using the engine.
	ErrUnavailable = errors.New("engine: unavailable")

	ErrReadTimeout = errors.New("engine: read i/o timeout")

	errStopped = errors.New("engine: stopped")
)

const (
	handshakeTimeout = 5 * time.Second
	quitTimeout      = 2 * time.Second
)

// Start launches the engine described by config and runs the UCI
// handshake. An executable without the execute bit is made executable and
// started once more before giving up.
func Start(config Config) (*Engine, error) {
	engine, err := start(config)
	if err != nil && errors.Is(err, fs.ErrPermission) {
		path := config.Cmd
		if !filepath.IsAbs(path) && config.Dir != "" {
			path = filepath.Join(config.Dir, path)
		}

		logrus.Warnf("engine: %s is not executable, repairing permissions", path)
		if chmodErr := os.Chmod(path, 0o755); chmodErr == nil {
			engine, err = start(config)
		}
	}

	if err != nil {
		if errors.Is(err, ErrUnavailable) {
			return nil, err
		}

		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	return engine, nil
}

func start(config Config) (*Engine, error) {
	process := exec.Command(config.Cmd, strings.Fields(config.Arg)...)
	process.Dir = config.Dir

	stdin, err := process.StdinPipe()
	if err != nil {
		return nil, err
	}

	stdout, err := process.StdoutPipe()
	if err != nil {
		return nil, err
	}

	if err := process.Start(); err != nil {
		return nil, err
	}

	engine := newEngine(config, stdout, stdin)
	engine.cmd = process

	if err := engine.handshake(); err != nil {
		engine.stop()
		_ = process.Process.Kill()
		_ = process.Wait()
		return nil, err
	}

	return engine, nil
}

// New wraps an engine which is already running on the other end of r and
// w, and runs the UCI handshake with it.
func New(config Config, r io.Reader, w io.Writer) (*Engine, error) {
	engine := newEngine(config, r, w)
	if err := engine.handshake(); err != nil {
		engine.stop()
		return nil, err
	}

	return engine, nil
}

func newEngine(config Config, r io.Reader, w io.Writer) *Engine {
	if config.Name == "" {
		config.Name = filepath.Base(config.Cmd)
	}

	engine := &Engine{
		config: config,
		writer: bufio.NewWriter(w),
		reader: bufio.NewReader(r),
		lines:  make(chan string),
		done:   make(chan struct{}),
	}

	if closer, ok := w.(io.Closer); ok {
		engine.stdin = closer
	}

	// the reader exits on a read error or once the engine is stopped,
	// closing lines either way
	go func() {
		defer close(engine.lines)

		for {
			line, err := engine.reader.ReadString('\n')
			if err != nil {
				engine.err = err
				return
			}

			line = strings.Trim(line, " \n\t\r")

			logrus.Debugf("info: ("+engine.config.Name+")> %s\n", line)

			select {
			case <-engine.done:
				engine.err = errStopped
				return
			default:
			}

			select {
			case engine.lines <- line:
			case <-engine.done:
				engine.err = errStopped
				return
			}
		}
	}()

	return engine
}

type Engine struct {
	config Config

	cmd   *exec.Cmd
	stdin io.Closer

	writer *bufio.Writer
	reader *bufio.Reader

	lines chan string

	done     chan struct{}
	stopOnce sync.Once

	err error
}

// stop releases the reader goroutine. Lines the engine prints afterwards
// are dropped.
func (engine *Engine) stop() {
	engine.stopOnce.Do(func() { close(engine.done) })
}

func (engine *Engine) Name() string {
	return engine.config.Name
}

func (engine *Engine) handshake() error {
	if engine.config.InitStr != "" {
		if err := engine.Write(engine.config.InitStr); err != nil {
			return err
		}
	}

	if err := engine.Initialize(); err != nil {
		return err
	}

	names := make([]string, 0, len(engine.config.Options))
	for name := range engine.config.Options {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		value := engine.config.Options[name]
		if err := engine.Write("setoption name %s value %s", name, value); err != nil {
			return err
		}
	}

	return engine.NewGame()
}

// Initialize initializes the engine on startup.
func (engine *Engine) Initialize() error {
	if err := engine.Write("uci"); err != nil {
		return err
	}

	_, err := engine.Await("^uciok$", handshakeTimeout)
	return err
}

// NewGame prepares the engine for a new game of chess.
func (engine *Engine) NewGame() error {
	if err := engine.Write("ucinewgame"); err != nil {
		return err
	}

	return engine.Synchronize()
}

// Synchronize waits for the engine to complete some time consuming task
// and synchronizes the interface with it.
func (engine *Engine) Synchronize() error {
	if err := engine.Write("isready"); err != nil {
		return err
	}

	_, err := engine.Await("^readyok$", handshakeTimeout)
	return err
}

// BestMove searches the given position within budget and returns the move
// the engine settled on. It blocks until the engine answers.
func (engine *Engine) BestMove(fen string, budget Budget) (string, error) {
	if err := engine.Write("position fen %s", fen); err != nil {
		return "", err
	}

	if err := engine.Synchronize(); err != nil {
		return "", err
	}

	if err := engine.Write("go%s", budget.limits()); err != nil {
		return "", err
	}

	line, err := engine.Await("^bestmove", 0)
	if err != nil {
		return "", err
	}

	fields := strings.Fields(line)
	if len(fields) < 2 {
		return "", fmt.Errorf("%w: malformed reply %q", ErrUnavailable, line)
	}

	return fields[1], nil
}

// Quit asks the engine to exit and reaps the process, killing it if it
// does not exit in time.
func (engine *Engine) Quit() error {
	err := engine.Write("quit")
	engine.stop()

	if engine.stdin != nil {
		_ = engine.stdin.Close()
	}

	if engine.cmd == nil {
		return err
	}

	done := make(chan error, 1)
	go func() { done <- engine.cmd.Wait() }()

	select {
	case <-done:
	case <-time.After(quitTimeout):
		logrus.Warnf("engine: %s did not quit, killing it", engine.config.Name)
		_ = engine.cmd.Process.Kill()
		<-done
	}

	return err
}

// Await is a utility function which waits for a particular string from
// the engine. A non-positive timeout waits forever.
func (engine *Engine) Await(pattern string, timeout time.Duration) (string, error) {
	regex := regexp.MustCompile(pattern)

	var expired <-chan time.Time
	if timeout > 0 {
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		expired = timer.C
	}

	for {
		select {
		case <-expired:
			// timer ran out: wait timeout
			return "", fmt.Errorf("%w: %w", ErrUnavailable, ErrReadTimeout)

		case line, ok := <-engine.lines:
			if !ok {
				// reader goroutine exited: the engine is gone
				return "", fmt.Errorf("%w: %v", ErrUnavailable, engine.err)
			}

			if regex.MatchString(line) {
				// line is the expected line
				return line, nil
			}
		}
	}
}

func (engine *Engine) Write(format string, a ...any) error {
	logrus.Debugf("info: ("+engine.config.Name+")< "+format+"\n", a...)

	if _, err := fmt.Fprintf(engine.writer, format+"\n", a...); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	if err := engine.writer.Flush(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	return nil
}
