// Package models defines the value types passed between the tunebot pipeline and its collaborators.
//
//   - [Query] : raw user text with classification helpers ([LinkKind], [LinkCategory])
//   - [Candidate] : one search result eligible for selection
//   - [CandidateList] : ordered, capped result set owned by the session store
//   - [FetchResult] : a downloaded audio file awaiting its single delivery attempt
//
// Candidates are plain values; nothing in the package mutates them after construction.
package models
