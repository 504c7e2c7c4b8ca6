// Package logger provides structured logging for the feed archiver,
// built on zerolog.
//
// All packages obtain a Logger through GetLogger or dependency
// injection; the interface hides zerolog so call sites stay stable if
// the backend ever changes. Field-carrying variants (InfoWithFields and
// friends) are preferred at points where an operation's identifiers
// (item id, page number, output path) make a log line actionable.
package logger
