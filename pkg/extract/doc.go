// Package extract recovers article and Q&A content from raw detail
// pages. Article bodies arrive doubly escaped inside a script-embedded
// sanitizer call and have to be decoded before parsing; Q&A pages are
// server rendered and only need container lookups. All extraction is
// pure and best-effort: malformed input yields empty results, never
// errors.
package extract
