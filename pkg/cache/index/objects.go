/*
 * Copyright 2024 The Halyard Authors
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package index

import (
	"bytes"
	"encoding/gob"
	"time"
)

// Object contains the index metadata for a single cached object
type Object struct {
	// Key is the cache key of the stored object
	Key string
	// Expiration is the time the object expires; the zero time means no expiration
	Expiration time.Time
	// LastWrite is the time the object was last written
	LastWrite time.Time
	// LastAccess is the time the object was last accessed
	LastAccess time.Time
	// Size is the byte size of the stored object
	Size int64
}

// ToBytes returns a gob-encoded representation of the Object
func (o *Object) ToBytes() []byte {
	buf := &bytes.Buffer{}
	gob.NewEncoder(buf).Encode(o)
	return buf.Bytes()
}

// ObjectFromBytes returns an Object from its gob-encoded representation
func ObjectFromBytes(data []byte) (*Object, error) {
	o := &Object{}
	err := gob.NewDecoder(bytes.NewReader(data)).Decode(o)
	return o, err
}
