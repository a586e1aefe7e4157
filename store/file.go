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
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/snowid/snowflake"
)

// wire layout of the state file: 8 byte timestamp, 2 byte sequence,
// big endian
const fileStateLen = 10

var errMalformed = errors.New("malformed state file")

// File keeps the generator state in a single small file. Save writes a
// sibling temp file and renames it over the target, a crashed save leaves
// the previous state intact.
type File struct {
	path string
}

// NewFile creates a file-backed store at the given path. The file does not
// have to exist, Load reports no prior state until the first Save.
func NewFile(path string) *File { return &File{path: path} }

func (f *File) Save(ctx context.Context, state snowflake.State) error {
	var buf [fileStateLen]byte
	binary.BigEndian.PutUint64(buf[0:8], state.Timestamp)
	binary.BigEndian.PutUint16(buf[8:10], state.Sequence)

	tmp, err := os.CreateTemp(filepath.Dir(f.path), filepath.Base(f.path)+".*")
	if err != nil {
		return fmt.Errorf("%s: %w", f.path, err)
	}

	if _, err := tmp.Write(buf[:]); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("%s: %w", f.path, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("%s: %w", f.path, err)
	}

	if err := os.Rename(tmp.Name(), f.path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("%s: %w", f.path, err)
	}
	return nil
}

func (f *File) Load(ctx context.Context) (snowflake.State, bool, error) {
	buf, err := os.ReadFile(f.path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return snowflake.State{}, false, nil
	case err != nil:
		return snowflake.State{}, false, fmt.Errorf("%s: %w", f.path, err)
	case len(buf) != fileStateLen:
		return snowflake.State{}, false, fmt.Errorf("%s: %d bytes: %w", f.path, len(buf), errMalformed)
	}

	return snowflake.State{
		Timestamp: binary.BigEndian.Uint64(buf[0:8]),
		Sequence:  binary.BigEndian.Uint16(buf[8:10]),
	}, true, nil
}
