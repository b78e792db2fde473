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


// Package storage provides the storage abstraction layer for ragserve.
//
// Three independently failing backends are involved in every ingested
// document:
//
//   - BlobStore holds the raw uploaded bytes (storage/badger)
//   - MetadataStore holds document and chunk rows (storage/sqlite)
//   - VectorIndex holds chunk embeddings (storage/chromem)
//
// The Coordinator presents multi-backend writes as atomic-looking
// operations. There is no cross-backend transaction; instead each write
// is a saga of compensable steps. On failure the compensations run in
// reverse order, and compensation failures are logged rather than
// propagated so a secondary failure never masks the primary cause.
//
// # Constructor Return Type Pattern
//
// Backend packages follow a "return interface" pattern for public
// constructors to enforce abstraction and keep backends swappable:
//
//	blobs, err := badger.NewBlobStore(path)  // returns storage.BlobStore
//
// Internal constructors may return concrete types since they're only used
// within the implementation package.
package storage
