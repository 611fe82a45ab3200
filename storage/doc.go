// Copyright 2025 Switchwise
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


// Package storage provides the storage abstraction layer for newspulse.
//
// This package defines repository interfaces that decouple storage
// implementation from business logic, allowing different backends (BadgerDB,
// in-memory, etc.) to be used interchangeably.
//
// # Architecture
//
// The storage layer follows the Repository pattern:
//
//   - Repository: common operations (vector search, transactions, close)
//   - ArticleRepository: operations for news articles
//   - CheckpointRepository: processing progress for background processors
//
// # Thread Safety
//
// All repository implementations must be thread-safe and support
// concurrent access from multiple goroutines.
//
// # Context Support
//
// All repository methods accept context.Context for cancellation
// and timeout support. Pass context.Background() for operations
// without specific timeout requirements.
package storage
