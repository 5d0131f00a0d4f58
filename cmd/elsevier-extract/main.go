// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the elsevier-extract CLI.
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// version is set at build time via ldflags.
var version = "dev"

// rootCmd is the base command for the elsevier-extract CLI.
var rootCmd = &cobra.Command{
	Use:   "elsevier-extract",
	Short: "Retrieve ScienceDirect articles and extract coordinate tables",
	Long: `elsevier-extract downloads full-text article XML from the Elsevier
content API by DOI or PubMed ID, renders per-article artifacts (raw XML,
plain text, reconstructed tables) and extracts stereotactic coordinate
tables into a studyset JSON document.

Credentials come from flags, an elsevier-extract.yaml config file, .env,
or ELSEVIER_-prefixed environment variables.`,
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./elsevier-extract.yaml or ~/.config/elsevier-extract/config.yaml)")
}

func initConfig() {
	// .env is a convenience for local runs; absence is not an error.
	godotenv.Load()

	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("elsevier-extract")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "elsevier-extract"))
		}
	}

	viper.SetEnvPrefix("ELSEVIER")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
