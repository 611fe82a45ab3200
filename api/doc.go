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


// Package api exposes the article service over HTTP.
//
// Endpoints:
//
//	GET  /                  service banner
//	GET  /healthz           liveness probe
//	POST /articles          ingest a batch of articles
//	GET  /articles          list articles by publication window, paginated
//	GET  /articles/trending cross-source trending stories in a window
//	GET  /search            semantic search over stored articles
//
// Errors are returned as JSON bodies of the form {"detail": "..."}.
package api
