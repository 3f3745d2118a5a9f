// Package telegram connects the pipeline to the Telegram Bot API.
//
// [Bot] long-polls for updates and handles each one in its own goroutine. Text messages start a query,
// callback queries from the inline keyboard carry a selection payload, and /start and /help reply
// with usage text. [Channel] implements [pipeline.Channel] for one chat.
package telegram
