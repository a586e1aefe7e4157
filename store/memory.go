//
//   Copyright 2024 The snowflake authors, All Rights Reserved
//
//   Licensed under the Apache License, Version 2.0 (the "License");
//   you may not use this file except in compliance with the License.
//   You may obtain a copy of the License at
//
//       http://www.apache.org/licenses/LICENSE-2.0
//
//   Unless required by applicable law or agreed to in writing, software
//   distributed under the License is distributed on an "AS IS" BASIS,
//   WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
//   See the License for the specific language governing permissions and
//   limitations under the License.
//

// Package store provides ready-made snowflake.StateStore implementations:
// in-process memory, a single file and a bbolt bucket.
package store

import (
	"context"
	"sync"

	"github.com/snowid/snowflake"
)

// Memory keeps the generator state in process memory. It survives nothing,
// its purpose is embedding and tests.
type Memory struct {
	mu    sync.Mutex
	state snowflake.State
	ok    bool
}

// NewMemory creates an empty in-process store
func NewMemory() *Memory { return &Memory{} }

// NewMemoryWith creates an in-process store pre-seeded with the given state
func NewMemoryWith(state snowflake.State) *Memory {
	return &Memory{state: state, ok: true}
}

func (m *Memory) Save(ctx context.Context, state snowflake.State) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.state, m.ok = state, true
	return nil
}

func (m *Memory) Load(ctx context.Context) (snowflake.State, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.state, m.ok, nil
}
