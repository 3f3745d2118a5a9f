// Package pipeline sequences one user interaction from inbound text to delivered audio.
//
// # States
//
//	Idle -> Classifying -> Resolving (links only) -> Searching -> AwaitingSelection
//	AwaitingSelection -> Fetching -> Delivering -> Idle
//
// [Failed] is reachable from every non-idle state and always ends with one reply to the user.
// Transitions are sent to [Options.Updates] without blocking.
//
// # Operations
//
//  1. [Pipeline.HandleQuery] : validates, classifies, resolves links (falling back to the raw
//     text on any resolver fault), searches and presents a selection surface whose payloads
//     are "<token>:<index>".
//  2. [Pipeline.HandleSelection] : checks the payload against the user's current list,
//     fetches the candidate, verifies the file and sends it. The file is removed after the
//     single delivery attempt on every path.
//
// # Errors
//
// Terminal errors are [*Error] values with a closed [Kind]. Resolution failures are logged as
// [ResolutionFailed] and never returned. Panics and unclassified errors become [Unhandled].
//
// # Concurrency
//
// Each user has at most one interaction in flight; a second one is answered with [MsgBusy].
// Every collaborator call runs under its own timeout.
package pipeline
