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
	"crypto/rand"
	"crypto/sha256"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"sync/atomic"
	"time"
)

// DefaultEpoch is default reference zero time of the timestamp fraction,
// milliseconds from the Unix epoch (2010-11-04T01:42:54.657Z). The 41-bit
// timestamp exhausts about 69 years after the configured epoch.
const DefaultEpoch uint64 = 1288834974657

var (
	ErrClockBeforeEpoch    = errors.New("clock reports time earlier than the configured epoch")
	ErrClockMovedBackwards = errors.New("clock moved backwards past the last issued identifier")
	ErrNodeRange           = errors.New("node id exceeds the allocated bit width")
)

// Layout of the packed generator state word. The sequence occupies the low
// 16 bits so that a saturated 12-bit counter never carries into the
// timestamp, the remaining 48 bits hold the millisecond offset.
const (
	stateSeqBits         = 16
	stateSeqMask  uint64 = 1<<stateSeqBits - 1
)

// Generator produces k-ordered unique identifiers in lock-free manner.
// The only mutable state is a single packed (timestamp, sequence) word,
// advanced exclusively through compare-and-swap. The generator is safe for
// concurrent use by multiple goroutines without external locking.
type Generator struct {
	state atomic.Uint64

	// immutable after construction
	node  uint16
	epoch uint64
	clock Clock
}

// Config option of the generator. Options define strategies to allocate
// the node fraction, the epoch and the time source.
type Config func(*Generator)

// WithNode explicitly configures the node fraction of issued identifiers
func WithNode(node uint16) Config {
	return func(g *Generator) {
		g.node = node
	}
}

// WithNodeRandom configures the node fraction using cryptographic random
// generator
func WithNodeRandom() Config {
	return func(g *Generator) {
		bytes := make([]byte, 2)
		if _, err := io.ReadFull(rand.Reader, bytes); err != nil {
			panic(err.Error())
		}
		g.node = binary.BigEndian.Uint16(bytes) & MaxNode
	}
}

// WithNodeFromEnv configures the node fraction using env variable.
//
// CONFIG_SNOWFLAKE_NODE_ID - defines node id as a string
func WithNodeFromEnv() Config {
	return func(g *Generator) {
		h := sha256.New()
		h.Write([]byte(os.Getenv("CONFIG_SNOWFLAKE_NODE_ID")))
		hash := h.Sum(nil)
		g.node = binary.BigEndian.Uint16(hash[:2]) & MaxNode
	}
}

// WithEpoch configures the reference zero time of the timestamp fraction
func WithEpoch(epoch time.Time) Config {
	return func(g *Generator) {
		g.epoch = uint64(epoch.UnixMilli())
	}
}

// WithEpochMillis configures the reference zero time of the timestamp
// fraction as milliseconds from the Unix epoch
func WithEpochMillis(epoch uint64) Config {
	return func(g *Generator) {
		g.epoch = epoch
	}
}

// WithClock configures the time source capability
func WithClock(c Clock) Config {
	return func(g *Generator) {
		g.clock = c
	}
}

// WithClockFunc configures a custom timestamp generator function as the
// time source
func WithClockFunc(ticker func() uint64) Config {
	return func(g *Generator) {
		g.clock = ClockFunc(ticker)
	}
}

// New creates an instance of the generator. Without options it uses the
// platform clock, the default epoch and a random node fraction.
func New(opts ...Config) (*Generator, error) {
	g := &Generator{epoch: DefaultEpoch, clock: DefaultClock}
	defopt := []Config{WithNodeRandom()}

	for _, opt := range append(defopt, opts...) {
		opt(g)
	}

	if g.node > MaxNode {
		return nil, fmt.Errorf("node id %d: %w", g.node, ErrNodeRange)
	}
	if now := g.clock.NowMillis(); now < g.epoch {
		return nil, fmt.Errorf("clock at %dms, epoch at %dms: %w", now, g.epoch, ErrClockBeforeEpoch)
	}
	return g, nil
}

// Node returns the node fraction stamped on issued identifiers
func (g *Generator) Node() uint16 { return g.node }

// Epoch returns the reference zero time of the timestamp fraction
func (g *Generator) Epoch() time.Time { return time.UnixMilli(int64(g.epoch)) }

// outcome of a single pass over the generator state
type verdict int

const (
	issued verdict = iota
	lostRace
	saturated
)

// advance performs one pass of the lock-free state machine: sample the
// clock, load the packed word, attempt a single compare-and-swap. State is
// mutated only at the moment of a successful swap, never before.
func (g *Generator) advance() (ID, verdict, error) {
	abs := g.clock.NowMillis()
	if abs < g.epoch {
		return 0, issued, fmt.Errorf("clock at %dms, epoch at %dms: %w", abs, g.epoch, ErrClockMovedBackwards)
	}
	now := abs - g.epoch

	state := g.state.Load()
	last := state >> stateSeqBits
	seq := state & stateSeqMask

	switch {
	case now > last:
		// fresh millisecond, the sequence restarts at zero
		if g.state.CompareAndSwap(state, now<<stateSeqBits) {
			return NewID(now, g.node, 0), issued, nil
		}
		return 0, lostRace, nil

	case now < last:
		return 0, issued, fmt.Errorf("clock at %dms behind last issued %dms: %w", now, last, ErrClockMovedBackwards)

	case seq >= MaxSequence:
		// all identifiers of this millisecond are taken, the caller has to
		// wait out the clock without touching the state
		return 0, saturated, nil

	default:
		// sequence occupies the low bits, increment is plain addition
		if g.state.CompareAndSwap(state, state+1) {
			return NewID(now, g.node, uint16(seq)+1), issued, nil
		}
		return 0, lostRace, nil
	}
}

// Assign issues the next identifier. When the sequence of the current
// millisecond is exhausted, the call suspends on a timer until the clock
// advances, honoring cancellation of the context. An abandoned call leaves
// no observable side effect.
//
// The call fails with ErrClockMovedBackwards if the time source reports a
// value earlier than the last issued identifier, the state is left
// unchanged and the caller is free to retry.
func (g *Generator) Assign(ctx context.Context) (ID, error) {
	for {
		uid, outcome, err := g.advance()
		if err != nil {
			return 0, err
		}

		switch outcome {
		case issued:
			return uid, nil
		case lostRace:
			continue
		case saturated:
			select {
			case <-ctx.Done():
				return 0, ctx.Err()
			case <-time.After(time.Millisecond):
			}
		}
	}
}

// AssignBlocking issues the next identifier, putting the calling thread to
// sleep while the sequence of the current millisecond is exhausted. It is
// the variant of Assign for callers outside any context plumbing.
func (g *Generator) AssignBlocking() (ID, error) {
	for {
		uid, outcome, err := g.advance()
		if err != nil {
			return 0, err
		}

		switch outcome {
		case issued:
			return uid, nil
		case lostRace:
			continue
		case saturated:
			time.Sleep(time.Millisecond)
		}
	}
}

// restore installs a previously persisted (timestamp, sequence) pair as the
// floor of the generator state. The install never lowers a word that has
// already advanced past it.
func (g *Generator) restore(state State) {
	packed := state.Timestamp<<stateSeqBits | uint64(state.Sequence)
	for {
		cur := g.state.Load()
		if cur >= packed || g.state.CompareAndSwap(cur, packed) {
			return
		}
	}
}
