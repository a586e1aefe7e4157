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

package snowflake_test

import (
	"context"
	"fmt"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/snowid/snowflake"
	"github.com/snowid/snowflake/store"
)

func Example() {
	g, err := snowflake.New(
		snowflake.WithNode(5),
		snowflake.WithEpochMillis(1_700_000_000_000),
		snowflake.WithClockFunc(func() uint64 { return 1_700_000_000_001 }),
	)
	if err != nil {
		panic(err)
	}

	uid, err := g.AssignBlocking()
	if err != nil {
		panic(err)
	}

	fmt.Printf("%d (timestamp=%d node=%d sequence=%d)\n",
		uid, uid.Timestamp(), uid.Node(), uid.Sequence())
	// Output: 4214784 (timestamp=1 node=5 sequence=0)
}

func ExampleWrapClockwork() {
	fake := clockwork.NewFakeClockAt(time.UnixMilli(1_700_000_000_123))

	g, err := snowflake.New(
		snowflake.WithNode(9),
		snowflake.WithEpochMillis(1_700_000_000_000),
		snowflake.WithClock(snowflake.WrapClockwork(fake)),
	)
	if err != nil {
		panic(err)
	}

	uid, err := g.AssignBlocking()
	if err != nil {
		panic(err)
	}

	fmt.Printf("%d (timestamp=%d node=%d sequence=%d)\n",
		uid, uid.Timestamp(), uid.Node(), uid.Sequence())
	// Output: 515936256 (timestamp=123 node=9 sequence=0)
}

func ExampleNewPersistent() {
	ctx := context.Background()

	g, err := snowflake.New(
		snowflake.WithNode(5),
		snowflake.WithEpochMillis(1_700_000_000_000),
		snowflake.WithClockFunc(func() uint64 { return 1_700_000_000_041 }),
	)
	if err != nil {
		panic(err)
	}

	// the store remembers the state of a previous incarnation, the
	// restored generator continues after it
	db := store.NewMemoryWith(snowflake.State{Timestamp: 41, Sequence: 7})

	p, err := snowflake.NewPersistent(ctx, g, db)
	if err != nil {
		panic(err)
	}

	uid, err := p.Assign(ctx)
	if err != nil {
		panic(err)
	}

	fmt.Printf("timestamp=%d sequence=%d\n", uid.Timestamp(), uid.Sequence())
	// Output: timestamp=41 sequence=8
}
