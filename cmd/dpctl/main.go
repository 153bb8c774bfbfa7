// Copyright 2025 Osprey DCS Contributors. All Rights Reserved.
//
// Created: October 2025
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package main is dpctl, an operational CLI exercising the touchpoints
// of the data-plane client: opening and closing ingestion/query
// sessions, submitting a frame from a file, running a query, and
// reporting connectivity status. It is a thin driver over
// internal/ingestfacade and internal/queryfacade, not a third
// implementation of the facade logic.
package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/osprey-dcs/dp-jal-sub012/internal/config"
)

var configPath string

func main() {
	root := &cobra.Command{
		Use:           "dpctl",
		Short:         "Operational CLI for the data-plane streaming client",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "path to a JSON configuration file (overrides compiled defaults)")

	root.AddCommand(newOpenCmd())
	root.AddCommand(newCloseCmd())
	root.AddCommand(newShutdownCmd())
	root.AddCommand(newIngestFileCmd())
	root.AddCommand(newQueryCmd())
	root.AddCommand(newStatusCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "dpctl:", err)
		os.Exit(exitCode(err))
	}
}

// loadConfig reads configPath (a flat JSON document overlaying the
// compiled defaults) if set, otherwise returns config.Default().
func loadConfig() (config.Config, error) {
	if configPath == "" {
		return config.Default(), nil
	}
	data, err := os.ReadFile(configPath)
	if err != nil {
		return config.Config{}, fmt.Errorf("reading config file %s: %w", configPath, err)
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return config.Config{}, fmt.Errorf("parsing config file %s: %w", configPath, err)
	}
	return config.FromMap(m)
}
