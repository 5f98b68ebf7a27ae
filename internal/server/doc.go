// Package server exposes a small read-only HTTP API over the feedrover
// database: a health check, the recent run history and the proxy pool's
// usage counters. It never exposes proxy credentials.
package server
