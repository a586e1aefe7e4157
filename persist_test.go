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
	"errors"
	"testing"
	"time"

	"github.com/fogfish/it/v2"
	"github.com/snowid/snowflake"
	"github.com/snowid/snowflake/store"
)

// state store failing on demand
type faultyStore struct {
	saveErr error
	loadErr error
	inner   *store.Memory
}

func (s *faultyStore) Save(ctx context.Context, state snowflake.State) error {
	if s.saveErr != nil {
		return s.saveErr
	}
	return s.inner.Save(ctx, state)
}

func (s *faultyStore) Load(ctx context.Context) (snowflake.State, bool, error) {
	if s.loadErr != nil {
		return snowflake.State{}, false, s.loadErr
	}
	return s.inner.Load(ctx)
}

func newGen(t *testing.T, c snowflake.Clock) *snowflake.Generator {
	t.Helper()

	g, err := snowflake.New(
		snowflake.WithNode(5),
		snowflake.WithEpochMillis(epochMillis),
		snowflake.WithClock(c),
	)
	if err != nil {
		t.Fatal(err)
	}
	return g
}

func TestPersistentFreshStore(t *testing.T) {
	ctx := context.Background()
	db := store.NewMemory()

	p, err := snowflake.NewPersistent(ctx, newGen(t, newManualClock(epochMillis)), db)
	if err != nil {
		t.Fatal(err)
	}

	uid, err := p.Assign(ctx)

	state, ok, _ := db.Load(ctx)

	it.Then(t).Should(
		it.True(err == nil),
		it.Equal(uid.Timestamp(), 0),
		it.Equal(uid.Sequence(), uint16(0)),
		it.True(ok),
		it.Equal(state.Timestamp, 0),
		it.Equal(state.Sequence, uint16(0)),
	)
}

// a generator restored from (T, S) never issues a pair at or below it
func TestPersistentRestore(t *testing.T) {
	ctx := context.Background()
	db := store.NewMemoryWith(snowflake.State{Timestamp: 7, Sequence: 9})

	p, err := snowflake.NewPersistent(ctx, newGen(t, newManualClock(epochMillis+7)), db)
	if err != nil {
		t.Fatal(err)
	}

	uid, err := p.Assign(ctx)

	it.Then(t).Should(
		it.True(err == nil),
		it.Equal(uid.Timestamp(), 7),
		it.Equal(uid.Sequence(), uint16(10)),
	)
}

// restart with the persisted sequence saturated: the generator waits out
// the clock instead of repeating (T, MaxSequence)
func TestPersistentRestoreSaturated(t *testing.T) {
	ctx := context.Background()
	c := newManualClock(epochMillis + 7)
	db := store.NewMemoryWith(snowflake.State{Timestamp: 7, Sequence: snowflake.MaxSequence})

	p, err := snowflake.NewPersistent(ctx, newGen(t, c), db)
	if err != nil {
		t.Fatal(err)
	}

	done := make(chan snowflake.ID, 1)
	go func() {
		uid, err := p.Assign(ctx)
		if err != nil {
			t.Error(err)
		}
		done <- uid
	}()

	select {
	case uid := <-done:
		t.Fatalf("issued %v below the persisted state", uid)
	case <-time.After(20 * time.Millisecond):
	}

	c.now.Store(epochMillis + 8)
	uid := <-done

	it.Then(t).Should(
		it.Equal(uid.Timestamp(), 8),
		it.Equal(uid.Sequence(), uint16(0)),
	)
}

// full restart cycle over a shared store
func TestPersistentContinuity(t *testing.T) {
	ctx := context.Background()
	db := store.NewMemory()

	p1, err := snowflake.NewPersistent(ctx, newGen(t, newManualClock(epochMillis+3)), db)
	if err != nil {
		t.Fatal(err)
	}

	var last snowflake.ID
	for i := 0; i < 100; i++ {
		if last, err = p1.Assign(ctx); err != nil {
			t.Fatal(err)
		}
	}

	// "restart": fresh generator, same store, clock still at the same
	// millisecond
	p2, err := snowflake.NewPersistent(ctx, newGen(t, newManualClock(epochMillis+3)), db)
	if err != nil {
		t.Fatal(err)
	}

	uid, err := p2.Assign(ctx)

	it.Then(t).Should(
		it.True(err == nil),
		it.True(last < uid),
		it.Equal(uid.Timestamp(), 3),
		it.Equal(uid.Sequence(), uint16(100)),
	)
}

func TestPersistentAssignBlocking(t *testing.T) {
	ctx := context.Background()
	db := store.NewMemory()

	p, err := snowflake.NewPersistent(ctx, newGen(t, newManualClock(epochMillis+1)), db)
	if err != nil {
		t.Fatal(err)
	}

	uid, err := p.AssignBlocking()

	state, ok, _ := db.Load(ctx)

	it.Then(t).Should(
		it.True(err == nil),
		it.Equal(uid.Timestamp(), 1),
		it.True(ok),
		it.Equal(state.Timestamp, 1),
	)
}

func TestPersistentLoadError(t *testing.T) {
	boom := errors.New("boom")
	db := &faultyStore{loadErr: boom, inner: store.NewMemory()}

	_, err := snowflake.NewPersistent(context.Background(), newGen(t, newManualClock(epochMillis)), db)

	it.Then(t).Should(
		it.True(errors.Is(err, boom)),
	)
}

// in synchronous mode a failed save surfaces to the caller together with
// the already issued identifier
func TestPersistentSaveError(t *testing.T) {
	ctx := context.Background()
	boom := errors.New("boom")
	db := &faultyStore{saveErr: boom, inner: store.NewMemory()}

	p, err := snowflake.NewPersistent(ctx, newGen(t, newManualClock(epochMillis)), db)
	if err != nil {
		t.Fatal(err)
	}

	uid, err := p.Assign(ctx)

	it.Then(t).Should(
		it.True(errors.Is(err, boom)),
		it.Equal(uid.Sequence(), uint16(0)),
	)
}

// in asynchronous mode the identifier returns immediately, the save lands
// eventually
func TestPersistentSaveAsync(t *testing.T) {
	ctx := context.Background()
	db := store.NewMemory()

	p, err := snowflake.NewPersistent(
		ctx, newGen(t, newManualClock(epochMillis+2)), db,
		snowflake.WithSaveAsync(),
	)
	if err != nil {
		t.Fatal(err)
	}

	uid, err := p.Assign(ctx)

	it.Then(t).Should(
		it.True(err == nil),
		it.Equal(uid.Timestamp(), 2),
	)

	deadline := time.Now().Add(time.Second)
	for {
		if state, ok, _ := db.Load(ctx); ok {
			it.Then(t).Should(
				it.Equal(state.Timestamp, 2),
				it.Equal(state.Sequence, uint16(0)),
			)
			return
		}
		if time.Now().After(deadline) {
			t.Fatal("state never saved")
		}
		time.Sleep(time.Millisecond)
	}
}
