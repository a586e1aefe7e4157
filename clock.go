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
	"time"

	"github.com/benbjohnson/clock"
	"github.com/jonboulle/clockwork"
)

// Clock is an abstraction of the time source used by the generator. The
// contract is milliseconds elapsed from the Unix epoch, monotonically
// non-decreasing under normal operation. Implementations are behaviorally
// interchangeable, selected at generator construction.
type Clock interface {
	// Current time as milliseconds from the Unix epoch
	NowMillis() uint64
}

// DefaultClock is global default time source, backed by the platform clock.
var DefaultClock Clock = SystemClock{}

// SystemClock is zero-dependency time source backed by time.Now
type SystemClock struct{}

func (SystemClock) NowMillis() uint64 { return uint64(time.Now().UnixMilli()) }

// ClockFunc adapts an ordinary function to the Clock capability.
// It enables fixed or scripted time in tests.
type ClockFunc func() uint64

func (f ClockFunc) NowMillis() uint64 { return f() }

// WrapClock adapts github.com/benbjohnson/clock time source to the Clock
// capability. Passing clock.NewMock() gives the application full control
// over observed time.
func WrapClock(c clock.Clock) Clock { return bclock{c} }

type bclock struct{ c clock.Clock }

func (w bclock) NowMillis() uint64 { return uint64(w.c.Now().UnixMilli()) }

// WrapClockwork adapts github.com/jonboulle/clockwork time source to the
// Clock capability. Passing clockwork.NewFakeClock() gives the application
// full control over observed time.
func WrapClockwork(c clockwork.Clock) Clock { return cwclock{c} }

type cwclock struct{ c clockwork.Clock }

func (w cwclock) NowMillis() uint64 { return uint64(w.c.Now().UnixMilli()) }
