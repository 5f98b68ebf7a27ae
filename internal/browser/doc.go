// Package browser drives a headless Chrome through a claimed proxy.
//
// A Launcher starts one browser per crawl session with the proxy set on the
// command line. Proxy credentials are never put in the URL; they are
// answered through the DevTools Fetch domain when Chrome raises an auth
// challenge.
package browser
