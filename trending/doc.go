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


// Package trending detects stories covered by multiple independent sources.
//
// The Detector type compares article embeddings pairwise within a publication
// window. Two articles from different sources whose vectors score at or above
// the similarity threshold are treated as coverage of the same story, and both
// appear in the trending result set along with their cross-source matches.
package trending
