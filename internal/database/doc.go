// Package database provides SQLite-based storage for feedrover.
//
// The ProxyDB stores:
//   - The shared proxy pool with per-proxy usage counters
//   - A history of finished crawl runs
//
// Design decision: We use SQLite (via modernc.org/sqlite) because the pool
// must survive restarts and be shared by every crawl process on a host, and
// a single CGO-free database file gives us that without running a server.
// Claims are conditional UPDATE statements, so concurrent processes never
// hand out the same usage slot twice.
package database
