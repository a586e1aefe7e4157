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
	"encoding/json"
	"strconv"
	"time"
)

// Bit allocation of the identifier, least significant bits first.
// The widths sum to 63, the sign bit is always zero.
//
//	  1 bit       41 bit        10 bit    12 bit
//	|------|------------------|--------|---------|
//	  sign      timestamp        node    sequence
const (
	SequenceBits  = 12
	NodeBits      = 10
	TimestampBits = 41

	nodeShift = SequenceBits
	timeShift = NodeBits + SequenceBits
)

// Upper bounds of the identifier fractions
const (
	MaxSequence  = 1<<SequenceBits - 1
	MaxNode      = 1<<NodeBits - 1
	MaxTimestamp = 1<<TimestampBits - 1
)

// ID is 63-bit k-ordered unique identifier. It packs a millisecond timestamp,
// the node fraction and a per-millisecond sequence into a single non-negative
// integer, sortable by allocation order.
type ID int64

// NewID composes identifier from its fractions. Each fraction is truncated
// to its bit width.
func NewID(timestamp uint64, node, sequence uint16) ID {
	return ID((timestamp&MaxTimestamp)<<timeShift |
		uint64(node&MaxNode)<<nodeShift |
		uint64(sequence&MaxSequence))
}

// Timestamp returns milliseconds elapsed from the generator epoch until
// the identifier was issued.
func (uid ID) Timestamp() uint64 {
	return uint64(uid) >> timeShift & MaxTimestamp
}

// Node returns the node fraction of identifier.
func (uid ID) Node() uint16 {
	return uint16(uint64(uid) >> nodeShift & MaxNode)
}

// Sequence returns the per-millisecond sequence fraction of identifier.
func (uid ID) Sequence() uint16 {
	return uint16(uint64(uid) & MaxSequence)
}

// Int64 returns the raw integer value of identifier.
func (uid ID) Int64() int64 { return int64(uid) }

// Time converts the timestamp fraction to wall clock time, elapsed from
// the given generator epoch.
func (uid ID) Time(epoch time.Time) time.Time {
	return epoch.Add(time.Duration(uid.Timestamp()) * time.Millisecond)
}

// String encodes identifier to decimal text
func (uid ID) String() string {
	return strconv.FormatInt(int64(uid), 10)
}

// MarshalJSON encodes identifier as decimal JSON string. The text form
// protects 63-bit values from consumers limited to IEEE 754 integers.
func (uid ID) MarshalJSON() ([]byte, error) {
	return json.Marshal(uid.String())
}

// UnmarshalJSON decodes identifier from decimal JSON string
func (uid *ID) UnmarshalJSON(b []byte) error {
	var val string
	if err := json.Unmarshal(b, &val); err != nil {
		return err
	}

	i, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return err
	}
	*uid = ID(i)
	return nil
}
