// Package crawler runs incremental crawl sessions against feed pages.
//
// # Architecture
//
// A Session owns one crawl of one Target. It claims a proxy from the shared
// pool, opens the target through a browser Driver, and then loops in rounds:
// extract the visible records, drop the ones already seen, append the rest
// to the output Sink, scroll, and wait a random pacing delay.
//
//	Init -> Navigating -> Extracting -> Filtering -> Persisting -> Pacing
//	                          ^                                      |
//	                          +--------------------------------------+
//
// A session ends in exactly one outcome: the quota was reached, or it
// aborted (no proxy, navigation failure, persist failure, too many empty
// rounds, cancellation, or a panic). A started driver is closed on every
// one of those paths.
//
// # Components
//
//   - Session: the per-target state machine
//   - Deduplicator and Filter: per-session record identity tracking
//   - Target: keyword or URL resolution and output file naming
//   - BatchRunner: runs one session per target with bounded concurrency
//
// # Usage
//
//	session := crawler.NewSession(allocator, browser.NewLauncher().Factory(), writer, target,
//		crawler.WithQuota(50),
//	)
//	result := session.Run(ctx)
package crawler
