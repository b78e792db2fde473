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


package storage

import (
	"time"

	"github.com/mus-format/mus-go/ord"
	"github.com/mus-format/mus-go/varint"
)

// BlobInfoMUS is the MUS serializer for BlobInfo values. Timestamps are
// encoded as Unix microseconds.
var BlobInfoMUS = blobInfoMUS{}

type blobInfoMUS struct{}

func (blobInfoMUS) Marshal(v BlobInfo, bs []byte) (n int) {
	n = ord.String.Marshal(v.Filename, bs)
	n += ord.String.Marshal(v.MimeType, bs[n:])
	n += varint.Int64.Marshal(v.SizeBytes, bs[n:])
	n += varint.Int64.Marshal(v.CreatedAt.UnixMicro(), bs[n:])
	return n
}

func (blobInfoMUS) Unmarshal(bs []byte) (v BlobInfo, n int, err error) {
	var n1 int
	v.Filename, n, err = ord.String.Unmarshal(bs)
	if err != nil {
		return
	}
	v.MimeType, n1, err = ord.String.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.SizeBytes, n1, err = varint.Int64.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	var micros int64
	micros, n1, err = varint.Int64.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.CreatedAt = time.UnixMicro(micros).UTC()
	return
}

func (blobInfoMUS) Size(v BlobInfo) (size int) {
	size = ord.String.Size(v.Filename)
	size += ord.String.Size(v.MimeType)
	size += varint.Int64.Size(v.SizeBytes)
	size += varint.Int64.Size(v.CreatedAt.UnixMicro())
	return size
}

// MarshalBlobInfo serializes a BlobInfo to bytes.
func MarshalBlobInfo(info BlobInfo) []byte {
	buf := make([]byte, BlobInfoMUS.Size(info))
	BlobInfoMUS.Marshal(info, buf)
	return buf
}

// UnmarshalBlobInfo deserializes a BlobInfo from bytes.
func UnmarshalBlobInfo(data []byte) (BlobInfo, error) {
	info, _, err := BlobInfoMUS.Unmarshal(data)
	return info, err
}
