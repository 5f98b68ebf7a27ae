// Package main provides the entry point for the feedrover CLI.
//
// feedrover crawls a live search or timeline page through a rotating pool of
// HTTP proxies and appends every new post to a per-target RSS file.
//
// Usage:
//
//	feedrover proxy seed --from-env
//	feedrover crawl golang "https://x.com/golang"
//	feedrover history
//
// See --help for all available options.
package main

func main() {
	Execute()
}
