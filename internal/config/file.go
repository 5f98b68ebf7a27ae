package config

import "time"

// TargetConfig holds crawl settings that can be set in the config file,
// either as defaults or for a single target.
// Zero values mean "not set".
type TargetConfig struct {
	Quota         int           `yaml:"quota,omitempty"`
	EmptyRounds   int           `yaml:"emptyRounds,omitempty"`
	PacingMin     time.Duration `yaml:"pacingMin,omitempty"`
	PacingMax     time.Duration `yaml:"pacingMax,omitempty"`
	ExtractScript string        `yaml:"extractScript,omitempty"`
}

// File represents the structure of the .feedrover configuration file.
type File struct {
	// Defaults apply to every target unless a CLI flag overrides them.
	Defaults TargetConfig `yaml:"defaults,omitempty"`

	// Targets maps a target exactly as given on the command line to its overrides.
	Targets map[string]TargetConfig `yaml:"targets,omitempty"`

	// SearchURL is the keyword search template.
	SearchURL string `yaml:"searchURL,omitempty"`

	// OutputDir is where RSS files are written.
	OutputDir string `yaml:"outputDir,omitempty"`

	// Concurrency is the number of sessions run at once.
	Concurrency int `yaml:"concurrency,omitempty"`
}

// FlagSet reports whether the named CLI flag was set explicitly.
// cobra's Flags().Changed satisfies it.
type FlagSet func(name string) bool

// ApplyFile copies config file values into c for every option whose CLI flag
// was not set explicitly. Flag names are the crawl command's flag names.
func (c *Config) ApplyFile(f *File, changed FlagSet) {
	if f == nil {
		return
	}
	c.File = f
	if changed == nil {
		changed = func(string) bool { return false }
	}

	d := f.Defaults
	if d.Quota != 0 && !changed("quota") {
		c.Quota = d.Quota
	}
	if d.EmptyRounds != 0 && !changed("empty-rounds") {
		c.EmptyRounds = d.EmptyRounds
	}
	if d.PacingMin != 0 && !changed("pacing-min") {
		c.PacingMin = d.PacingMin
	}
	if d.PacingMax != 0 && !changed("pacing-max") {
		c.PacingMax = d.PacingMax
	}
	if d.ExtractScript != "" && !changed("extract-script") {
		c.ExtractScript = d.ExtractScript
	}
	if f.SearchURL != "" && !changed("search-url") {
		c.SearchURL = f.SearchURL
	}
	if f.OutputDir != "" && !changed("output-dir") {
		c.OutputDir = f.OutputDir
	}
	if f.Concurrency != 0 && !changed("concurrency") {
		c.Concurrency = f.Concurrency
	}
}
