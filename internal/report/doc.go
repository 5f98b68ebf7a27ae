// Package report renders crawl run history.
//
// This package contains writers for different output formats:
//   - SimpleWriter: Human-readable text output for terminal display
//   - JSONWriter: Structured JSON output for tool integration
//   - MarkdownWriter: Markdown tables for sharing a batch summary
//
// Design decision: We separate report writing from the run records
// (which are in the model package) so the history command, the crawl
// command's end-of-batch summary and the HTTP server all render the same
// data without knowing about each other.
package report
