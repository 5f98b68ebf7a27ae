// Package model defines the data shared by the feedrover packages.
//
// This package contains the following main types:
//   - ProxyRecord: An egress proxy and its usage counters
//   - FeedRecord: One post discovered by a browser driver
//   - CrawlRun and Outcome: The stored result of a crawl session
//
// Design decision: We keep these types in their own package so the proxy
// pool, the crawler, the RSS writer and the database can share them
// without import cycles.
package model
