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
	"sort"
	"strconv"
	"sync"
)

var ErrUnknownHandle = errors.New("session: unknown handle")

// Handle identifies a session in a Registry. Handles are never reused.
type Handle uint64

func (handle Handle) String() string {
	return strconv.FormatUint(uint64(handle), 10)
}

func ParseHandle(s string) (Handle, error) {
	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil || n == 0 {
		return 0, fmt.Errorf("%w: %q", ErrUnknownHandle, s)
	}

	return Handle(n), nil
}

// Registry holds the open sessions of a process, one per window. It is
// safe for concurrent use, and serializes all access to each session.
type Registry struct {
	mu      sync.Mutex
	last    Handle
	entries map[Handle]*entry
}

type entry struct {
	mu      sync.Mutex
	session *Session
	closed  bool
}

func NewRegistry() *Registry {
	return &Registry{entries: make(map[Handle]*entry)}
}

// Open adds session to the registry.
func (registry *Registry) Open(session *Session) Handle {
	registry.mu.Lock()
	defer registry.mu.Unlock()

	registry.last++
	registry.entries[registry.last] = &entry{session: session}
	return registry.last
}

func (registry *Registry) lookup(handle Handle) (*entry, error) {
	registry.mu.Lock()
	defer registry.mu.Unlock()

	e, found := registry.entries[handle]
	if !found {
		return nil, fmt.Errorf("%w: %s", ErrUnknownHandle, handle)
	}

	return e, nil
}

// Do calls fn with the session behind handle. No other Do call for the
// same session runs at the same time.
func (registry *Registry) Do(handle Handle, fn func(*Session) error) error {
	e, err := registry.lookup(handle)
	if err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return fmt.Errorf("%w: %s", ErrUnknownHandle, handle)
	}

	return fn(e.session)
}

// Handles lists the open handles in the order they were opened.
func (registry *Registry) Handles() []Handle {
	registry.mu.Lock()
	defer registry.mu.Unlock()

	handles := make([]Handle, 0, len(registry.entries))
	for handle := range registry.entries {
		handles = append(handles, handle)
	}

	sort.Slice(handles, func(i, j int) bool { return handles[i] < handles[j] })
	return handles
}

// Close removes the session behind handle and closes it.
func (registry *Registry) Close(handle Handle) error {
	registry.mu.Lock()
	e, found := registry.entries[handle]
	delete(registry.entries, handle)
	registry.mu.Unlock()

	if !found {
		return fmt.Errorf("%w: %s", ErrUnknownHandle, handle)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	e.closed = true
	return e.session.Close()
}

func (registry *Registry) CloseAll() error {
	var errs []error
	for _, handle := range registry.Handles() {
		if err := registry.Close(handle); err != nil && !errors.Is(err, ErrUnknownHandle) {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}
