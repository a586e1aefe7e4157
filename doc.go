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

/*
Package snowflake issues globally orderable 64-bit identifiers following the
Twitter Snowflake schema, in lock-free and decentralized manner.

Identifiers are strictly ordered by issuance on a single node and roughly
ordered across nodes, which makes them a drop-in replacement for central
sequence allocators in distributed applications.

# Identity schema

A fixed 63-bit schema is packed into a non-negative int64:

	  1 bit       41 bit        10 bit    12 bit
	|------|------------------|--------|---------|
	  sign      timestamp        node    sequence

The timestamp is measured in milliseconds from a configurable epoch and
covers about 69 years. The node fraction distinguishes up to 1024 concurrent
allocators, it is supplied at construction, derived from the environment or
allocated randomly. The sequence distinguishes up to 4096 identifiers issued
within one millisecond by one node, it restarts at zero on every clock tick.

# Allocation

The generator keeps its whole mutable state in a single atomically updated
word holding the (timestamp, sequence) pair of the last issued identifier.
Concurrent callers advance it through compare-and-swap retry loops, no lock
is ever held. When the sequence of the current millisecond is exhausted, the
caller waits out the clock: Assign suspends on a timer and honors context
cancellation, AssignBlocking puts the calling thread to sleep. Waiting does
not touch the shared state, so concurrent callers keep making progress the
moment the clock ticks over.

The time source is a capability injected at construction. The package ships
a zero-dependency platform clock and adapters over the benbjohnson/clock and
jonboulle/clockwork libraries, whose mock clocks make time fully
controllable in tests.

# Restarts

A process restart resets the in-memory state, and a clock stepped backwards
across the restart would make the generator repeat identifiers. The
Persistent wrapper closes this gap: it records the state of every issued
identifier in a StateStore and restores it on construction, so the
generator never re-issues a pair at or below the persisted one. Ready-made
stores live in the store sub-package.
*/
package snowflake
