// Package config provides configuration structures and utilities for feedrover.
// It defines the crawl limits, pacing, browser and storage settings, the
// optional .feedrover YAML file with per-target overrides, and .env loading.
package config
