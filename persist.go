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

package snowflake

import (
	"context"
	"fmt"

	"zombiezen.com/go/log"
)

// State is the (timestamp, sequence) pair of the last issued identifier.
// Timestamp is milliseconds from the generator epoch.
type State struct {
	Timestamp uint64
	Sequence  uint16
}

// StateStore is a capability to durably keep the state of the last issued
// identifier outside the process. The storage medium is the collaborator's
// concern, the generator only requires this contract.
//
// Save and Load are potentially blocking, fallible I/O. They are invoked
// outside the generator's lock-free loop and must not assume exclusivity
// of their own call.
type StateStore interface {
	Save(ctx context.Context, state State) error
	// Load returns the persisted state, or ok == false when no prior state
	// exists.
	Load(ctx context.Context) (state State, ok bool, err error)
}

// Persistent wraps a shared Generator with a StateStore so that identifiers
// stay unique across restarts of processes sharing the same node fraction.
// At construction it restores the last persisted state into the generator,
// after each issued identifier it records the new state.
//
// By default Save completes before the identifier is returned, which gives
// the strict guarantee: after a crash no identifier at or below the
// persisted state is ever issued again. See WithSaveAsync for the weaker,
// lower-latency policy.
type Persistent struct {
	gen    *Generator
	store  StateStore
	async  bool
	logger log.Logger
}

// Config option of the persistent generator
type PersistentConfig func(*Persistent)

// WithSaveAsync records state on a background goroutine after the
// identifier has been returned to the caller. It trades the strict
// crash-recovery guarantee for latency: identifiers issued between the
// return and the completed save may repeat after a crash. Save failures are
// reported through the configured logger instead of the caller.
func WithSaveAsync() PersistentConfig {
	return func(p *Persistent) {
		p.async = true
	}
}

// WithLogger configures destination for save failures in asynchronous mode.
// The default discards them.
func WithLogger(logger log.Logger) PersistentConfig {
	return func(p *Persistent) {
		if logger == nil {
			logger = log.Discard
		}
		p.logger = logger
	}
}

// NewPersistent creates the persistent wrapper over the shared generator.
// It loads the prior state from the store, if one exists, and installs it as
// the floor of the generator state, so that the generator never issues a
// (timestamp, sequence) pair at or below the persisted one.
func NewPersistent(ctx context.Context, gen *Generator, store StateStore, opts ...PersistentConfig) (*Persistent, error) {
	state, ok, err := store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("restoring generator state: %w", err)
	}
	if ok {
		gen.restore(state)
	}

	p := &Persistent{gen: gen, store: store, logger: log.Discard}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Assign issues the next identifier and records its state, see
// Generator.Assign.
//
// In the default synchronous mode a failed Save is returned together with
// the already issued identifier. The identifier is valid and unique within
// this process, only its durability is lost, the caller decides whether to
// use it, retry or abort.
func (p *Persistent) Assign(ctx context.Context) (ID, error) {
	uid, err := p.gen.Assign(ctx)
	if err != nil {
		return 0, err
	}
	return uid, p.record(ctx, uid)
}

// AssignBlocking issues the next identifier and records its state, see
// Generator.AssignBlocking.
func (p *Persistent) AssignBlocking() (ID, error) {
	uid, err := p.gen.AssignBlocking()
	if err != nil {
		return 0, err
	}
	return uid, p.record(context.Background(), uid)
}

func (p *Persistent) record(ctx context.Context, uid ID) error {
	state := State{Timestamp: uid.Timestamp(), Sequence: uid.Sequence()}

	if p.async {
		go func() {
			// the identifier is already with the caller, the save rides on
			// its own context
			ctx := context.WithoutCancel(ctx)
			if err := p.store.Save(ctx, state); err != nil {
				log.Logf(ctx, p.logger, log.Error, "snowflake: saving generator state: %v", err)
			}
		}()
		return nil
	}

	if err := p.store.Save(ctx, state); err != nil {
		return fmt.Errorf("saving generator state: %w", err)
	}
	return nil
}
