// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package core

import (
	"io"
	"math"
	"time"

	"github.com/mus-format/mus-go/ord"
	"github.com/mus-format/mus-go/varint"
)

// MUS serializers for persisted records. Field order is part of the on-disk
// format; append new fields at the end.
var (
	IDMUS              = idMUS{}
	VectorMUS          = vectorMUS{}
	CachedEmbeddingMUS = cachedEmbeddingMUS{}
	IndexManifestMUS   = indexManifestMUS{}
)

type idMUS struct{}

func (idMUS) Marshal(v ID, bs []byte) (n int) {
	return varint.Uint64.Marshal(uint64(v), bs)
}

func (idMUS) Unmarshal(bs []byte) (v ID, n int, err error) {
	u, n, err := varint.Uint64.Unmarshal(bs)
	return ID(u), n, err
}

func (idMUS) Size(v ID) int {
	return varint.Uint64.Size(uint64(v))
}

type vectorMUS struct{}

func (vectorMUS) Marshal(v []float32, bs []byte) (n int) {
	n = varint.Uint64.Marshal(uint64(len(v)), bs)
	for _, f := range v {
		n += varint.Uint32.Marshal(math.Float32bits(f), bs[n:])
	}
	return n
}

func (vectorMUS) Unmarshal(bs []byte) (v []float32, n int, err error) {
	length, n, err := varint.Uint64.Unmarshal(bs)
	if err != nil {
		return nil, n, err
	}
	// every element takes at least one byte
	if length > uint64(len(bs)-n) {
		return nil, n, io.ErrUnexpectedEOF
	}
	v = make([]float32, length)
	for i := range v {
		bits, m, err := varint.Uint32.Unmarshal(bs[n:])
		n += m
		if err != nil {
			return nil, n, err
		}
		v[i] = math.Float32frombits(bits)
	}
	return v, n, nil
}

func (vectorMUS) Size(v []float32) (size int) {
	size = varint.Uint64.Size(uint64(len(v)))
	for _, f := range v {
		size += varint.Uint32.Size(math.Float32bits(f))
	}
	return size
}

// TimePrecision is the resolution at which record timestamps are persisted.
const TimePrecision = time.Microsecond

// StorableTime returns t in UTC at the persisted resolution, so a record
// stamped with it compares equal after a round trip.
func StorableTime(t time.Time) time.Time {
	return t.UTC().Truncate(TimePrecision)
}

func marshalTime(t time.Time, bs []byte) int {
	return varint.Int64.Marshal(t.UnixMicro(), bs)
}

func unmarshalTime(bs []byte) (time.Time, int, error) {
	micros, n, err := varint.Int64.Unmarshal(bs)
	if err != nil {
		return time.Time{}, n, err
	}
	return time.UnixMicro(micros).UTC(), n, nil
}

func sizeTime(t time.Time) int {
	return varint.Int64.Size(t.UnixMicro())
}

type cachedEmbeddingMUS struct{}

func (cachedEmbeddingMUS) Marshal(v CachedEmbedding, bs []byte) (n int) {
	n = IDMUS.Marshal(v.Id, bs)
	n += ord.String.Marshal(v.Model, bs[n:])
	n += ord.String.Marshal(v.Text, bs[n:])
	n += VectorMUS.Marshal(v.Vector, bs[n:])
	n += marshalTime(v.InsertedAt, bs[n:])
	return n
}

func (cachedEmbeddingMUS) Unmarshal(bs []byte) (v CachedEmbedding, n int, err error) {
	var m int
	v.Id, m, err = IDMUS.Unmarshal(bs)
	n += m
	if err != nil {
		return
	}
	v.Model, m, err = ord.String.Unmarshal(bs[n:])
	n += m
	if err != nil {
		return
	}
	v.Text, m, err = ord.String.Unmarshal(bs[n:])
	n += m
	if err != nil {
		return
	}
	v.Vector, m, err = VectorMUS.Unmarshal(bs[n:])
	n += m
	if err != nil {
		return
	}
	v.InsertedAt, m, err = unmarshalTime(bs[n:])
	n += m
	return
}

func (cachedEmbeddingMUS) Size(v CachedEmbedding) (size int) {
	size = IDMUS.Size(v.Id)
	size += ord.String.Size(v.Model)
	size += ord.String.Size(v.Text)
	size += VectorMUS.Size(v.Vector)
	return size + sizeTime(v.InsertedAt)
}

type indexManifestMUS struct{}

func (indexManifestMUS) Marshal(v IndexManifest, bs []byte) (n int) {
	n = ord.String.Marshal(v.Model, bs)
	n += varint.Int64.Marshal(int64(v.Entries), bs[n:])
	n += varint.Int64.Marshal(int64(v.Dimension), bs[n:])
	n += IDMUS.Marshal(v.Fingerprint, bs[n:])
	n += marshalTime(v.BuiltAt, bs[n:])
	return n
}

func (indexManifestMUS) Unmarshal(bs []byte) (v IndexManifest, n int, err error) {
	var (
		m   int
		num int64
	)
	v.Model, m, err = ord.String.Unmarshal(bs)
	n += m
	if err != nil {
		return
	}
	num, m, err = varint.Int64.Unmarshal(bs[n:])
	n += m
	if err != nil {
		return
	}
	v.Entries = int(num)
	num, m, err = varint.Int64.Unmarshal(bs[n:])
	n += m
	if err != nil {
		return
	}
	v.Dimension = int(num)
	v.Fingerprint, m, err = IDMUS.Unmarshal(bs[n:])
	n += m
	if err != nil {
		return
	}
	v.BuiltAt, m, err = unmarshalTime(bs[n:])
	n += m
	return
}

func (indexManifestMUS) Size(v IndexManifest) (size int) {
	size = ord.String.Size(v.Model)
	size += varint.Int64.Size(int64(v.Entries))
	size += varint.Int64.Size(int64(v.Dimension))
	size += IDMUS.Size(v.Fingerprint)
	return size + sizeTime(v.BuiltAt)
}
