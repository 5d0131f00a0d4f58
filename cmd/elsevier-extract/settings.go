// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/neurostuff/elsevier-coordinate-extractor/internal/cache"
	"github.com/neurostuff/elsevier-coordinate-extractor/internal/client"
	"github.com/neurostuff/elsevier-coordinate-extractor/internal/inputs"
	"github.com/neurostuff/elsevier-coordinate-extractor/internal/pipeline"
	"github.com/neurostuff/elsevier-coordinate-extractor/internal/runstore"
	"github.com/neurostuff/elsevier-coordinate-extractor/internal/secrets"
	"github.com/neurostuff/elsevier-coordinate-extractor/pkg/types"
)

const (
	defaultOutputDir = "output"
	defaultCacheDir  = ".cache/elsevier-extract"
	defaultUserAgent = "elsevier-coordinate-extractor/0.1"
)

func init() {
	viper.SetDefault("base_url", client.DefaultBaseURL)
	viper.SetDefault("timeout", 30*time.Second)
	viper.SetDefault("concurrency", client.DefaultConcurrency)
	viper.SetDefault("max_retries", client.DefaultMaxRetries)
	viper.SetDefault("max_retry_wait", 2*time.Minute)
	viper.SetDefault("requests_per_second", 0.0)
	viper.SetDefault("cache_dir", defaultCacheDir)
	viper.SetDefault("output_dir", defaultOutputDir)
	viper.SetDefault("workers", 0)
}

// buildSettings assembles the run configuration from viper (config file,
// environment) in one place; nothing downstream reads viper.
func buildSettings() (types.Settings, error) {
	var s types.Settings
	s.Client = types.ClientConfig{
		HTTPConfig: types.HTTPConfig{
			Timeout:   viper.GetDuration("timeout"),
			UserAgent: defaultUserAgent,
		},
		APIKey:            viper.GetString("api_key"),
		InstToken:         viper.GetString("insttoken"),
		BaseURL:           viper.GetString("base_url"),
		Concurrency:       viper.GetInt("concurrency"),
		RequestsPerSecond: viper.GetFloat64("requests_per_second"),
		MaxRetries:        viper.GetInt("max_retries"),
		MaxRetryWait:      viper.GetDuration("max_retry_wait"),
	}
	// .secrets/ is the last credential fallback after flags, config file
	// and environment.
	if s.Client.APIKey == "" || s.Client.InstToken == "" {
		loaded, err := secrets.Load(".secrets/")
		if err != nil {
			return s, err
		}
		if s.Client.APIKey == "" {
			s.Client.APIKey = loaded["elsevier-api-key"]
		}
		if s.Client.InstToken == "" {
			s.Client.InstToken = loaded["elsevier-insttoken"]
		}
	}
	if s.Client.APIKey == "" {
		return s, fmt.Errorf("no API key configured: set ELSEVIER_API_KEY, api_key in the config file, or .secrets/elsevier-api-key")
	}
	s.Fetch = types.FetchConfig{
		CacheDir: viper.GetString("cache_dir"),
	}
	s.Extraction = types.ExtractionConfig{
		Workers: viper.GetInt("workers"),
	}
	s.Output = types.OutputConfig{
		Dir: viper.GetString("output_dir"),
	}
	return s, nil
}

// recordSource builds the identifier source from the shared input flags.
func recordSource(flags *pflag.FlagSet) inputs.Source {
	dois, _ := flags.GetString("dois")
	pmids, _ := flags.GetString("pmids")
	doiFile, _ := flags.GetString("doi-file")
	pmidFile, _ := flags.GetString("pmid-file")
	recordFile, _ := flags.GetString("records")
	return inputs.Source{
		DOIs:       dois,
		PMIDs:      pmids,
		DOIFile:    doiFile,
		PMIDFile:   pmidFile,
		RecordFile: recordFile,
	}
}

// buildDeps wires the pipeline collaborators from settings.
func buildDeps(settings types.Settings) (pipeline.Deps, func(), error) {
	apiClient := client.New(settings.Client)

	deps := pipeline.Deps{
		Getter:   apiClient,
		Settings: settings,
	}
	if settings.Fetch.CacheDir != "" {
		dirCache, err := cache.NewDirCache(settings.Fetch.CacheDir)
		if err != nil {
			return deps, nil, err
		}
		deps.Cache = dirCache
	}

	store, err := runstore.Open(filepath.Join(settings.Fetch.CacheDir, "state"))
	if err != nil {
		return deps, nil, err
	}
	deps.Store = store
	return deps, func() { store.Close() }, nil
}
