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

package store

import (
	"context"
	"encoding/binary"
	"fmt"

	bolt "go.etcd.io/bbolt"

	"github.com/snowid/snowflake"
)

var (
	boltBucket = []byte("snowflake")
	boltKey    = []byte("state")
)

// Bolt keeps the generator state in a bucket of a bbolt database. The
// database handle is owned by the caller, several generators may share it
// under distinct keys.
type Bolt struct {
	db  *bolt.DB
	key []byte
}

// NewBolt creates a bbolt-backed store over an open database
func NewBolt(db *bolt.DB) *Bolt { return &Bolt{db: db, key: boltKey} }

// NewBoltKey creates a bbolt-backed store addressing the state under the
// given key, e.g. one key per node id.
func NewBoltKey(db *bolt.DB, key string) *Bolt {
	return &Bolt{db: db, key: []byte(key)}
}

func (b *Bolt) Save(ctx context.Context, state snowflake.State) error {
	var buf [fileStateLen]byte
	binary.BigEndian.PutUint64(buf[0:8], state.Timestamp)
	binary.BigEndian.PutUint16(buf[8:10], state.Sequence)

	err := b.db.Update(func(tx *bolt.Tx) error {
		bkt, err := tx.CreateBucketIfNotExists(boltBucket)
		if err != nil {
			return err
		}
		return bkt.Put(b.key, buf[:])
	})
	if err != nil {
		return fmt.Errorf("bolt %s: %w", b.db.Path(), err)
	}
	return nil
}

func (b *Bolt) Load(ctx context.Context) (snowflake.State, bool, error) {
	var state snowflake.State
	var ok bool

	err := b.db.View(func(tx *bolt.Tx) error {
		bkt := tx.Bucket(boltBucket)
		if bkt == nil {
			return nil
		}
		buf := bkt.Get(b.key)
		if buf == nil {
			return nil
		}
		if len(buf) != fileStateLen {
			return fmt.Errorf("%d bytes: %w", len(buf), errMalformed)
		}

		state.Timestamp = binary.BigEndian.Uint64(buf[0:8])
		state.Sequence = binary.BigEndian.Uint16(buf[8:10])
		ok = true
		return nil
	})
	if err != nil {
		return snowflake.State{}, false, fmt.Errorf("bolt %s: %w", b.db.Path(), err)
	}
	return state, ok, nil
}
