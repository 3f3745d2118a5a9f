// Package ui implements the local console for the pipeline using bubbletea's Elm architecture.
//
// The console walks the same interaction a chat user would:
//  1. [SearchView] : Enter a title, artist or streaming link
//  2. [WorkingView] : Follow status replies while the pipeline runs
//  3. [ChoiceView] : Pick one of the presented candidates
//  4. [ResultView] : See where the file was saved, or why it was not
//
// Replies reach the [Model] through [Channel], which turns each pipeline call into a tea message
// via the program's Send. State transitions arrive through the pipeline's update channel.
//
// Keyboard navigation uses vim-style bindings (j/k, enter, esc) with contextual help displayed via charmbracelet/bubbles/help.
package ui
