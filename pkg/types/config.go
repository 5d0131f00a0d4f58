// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// HTTPConfig holds shared HTTP settings for components that make network
// requests.
type HTTPConfig struct {
	// Timeout is the HTTP request timeout.
	Timeout time.Duration `json:"timeout" yaml:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests.
	UserAgent string `json:"user_agent" yaml:"user_agent"`
}

// ClientConfig holds settings for the ScienceDirect content API client.
type ClientConfig struct {
	HTTPConfig `yaml:",inline"`

	// APIKey is the Elsevier API key sent as X-ELS-APIKey.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty"`

	// InstToken is an optional institutional token sent as X-ELS-Insttoken.
	InstToken string `json:"insttoken,omitempty" yaml:"insttoken,omitempty"`

	// BaseURL is the content API base (default https://api.elsevier.com/content).
	BaseURL string `json:"base_url" yaml:"base_url"`

	// Concurrency bounds the number of in-flight HTTP requests (default 4).
	Concurrency int `json:"concurrency" yaml:"concurrency"`

	// RequestsPerSecond paces outgoing requests; zero disables pacing.
	RequestsPerSecond float64 `json:"requests_per_second" yaml:"requests_per_second"`

	// MaxRetries bounds retry attempts on recoverable statuses (default 3).
	MaxRetries int `json:"max_retries" yaml:"max_retries"`

	// MaxRetryWait caps the cumulative time spent sleeping between retries
	// of one request. Zero means no cap.
	MaxRetryWait time.Duration `json:"max_retry_wait" yaml:"max_retry_wait"`
}

// FetchConfig holds settings for the download stage.
type FetchConfig struct {
	// CacheDir is the root of the response cache. Empty disables caching.
	CacheDir string `json:"cache_dir" yaml:"cache_dir"`

	// CacheNamespace groups cached payloads (default "articles").
	CacheNamespace string `json:"cache_namespace" yaml:"cache_namespace"`

	// FailFast aborts the whole batch on the first record failure.
	FailFast bool `json:"fail_fast" yaml:"fail_fast"`
}

// ExtractionConfig holds settings for the coordinate extraction stage.
type ExtractionConfig struct {
	// Workers is the extraction worker pool size. Zero or negative selects
	// one worker per article up to the CPU count.
	Workers int `json:"workers" yaml:"workers"`
}

// OutputConfig holds settings for the per-article output layout.
type OutputConfig struct {
	// Dir is the base directory for article outputs.
	Dir string `json:"dir" yaml:"dir"`

	SkipXML         bool `json:"skip_xml" yaml:"skip_xml"`
	SkipText        bool `json:"skip_text" yaml:"skip_text"`
	SkipTables      bool `json:"skip_tables" yaml:"skip_tables"`
	SkipCoordinates bool `json:"skip_coordinates" yaml:"skip_coordinates"`
}

// Settings groups all stage configurations. It is constructed once at process
// start and passed into components; there is no ambient global.
type Settings struct {
	Client     ClientConfig     `json:"client" yaml:"client"`
	Fetch      FetchConfig      `json:"fetch" yaml:"fetch"`
	Extraction ExtractionConfig `json:"extraction" yaml:"extraction"`
	Output     OutputConfig     `json:"output" yaml:"output"`
}
