/*
 * Copyright 2024 The Halyard Authors
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package config

import (
	"flag"
	"fmt"
	"os"
	"strconv"
)

// Environment variables honored by Load; flags take precedence over them
const (
	EnvConfigPath = "HALYARD_CONFIG"
	EnvLogLevel   = "HALYARD_LOG_LEVEL"
	EnvListenPort = "HALYARD_LISTEN_PORT"
)

// Flags holds the parsed command line
type Flags struct {
	// ConfigPath is the path of the configuration file
	ConfigPath string
	// PrintVersion prints the version and exits when true
	PrintVersion bool
	// ValidateConfig loads and validates the configuration, then exits
	ValidateConfig bool

	logLevel   string
	listenPort int
	debug      bool
}

// Load returns the Config assembled from defaults, the configuration file,
// environment variables and command line arguments, in ascending precedence
func Load(appName, appVersion string, args []string) (*Config, *Flags, error) {
	flags := &Flags{}
	fs := flag.NewFlagSet(appName, flag.ContinueOnError)
	fs.StringVar(&flags.ConfigPath, "config", "", "path to the config file")
	fs.StringVar(&flags.logLevel, "log-level", "", "level of logging detail")
	fs.IntVar(&flags.listenPort, "port", 0, "port of the main http listener")
	fs.BoolVar(&flags.debug, "debug", false, "include failure detail in responses")
	fs.BoolVar(&flags.PrintVersion, "version", false,
		fmt.Sprintf("print the %s version and exit", appName))
	fs.BoolVar(&flags.ValidateConfig, "validate-config", false,
		"validate the config file and exit")
	if err := fs.Parse(args); err != nil {
		return nil, nil, err
	}

	c := New()
	applyEnv(c, flags)

	if flags.ConfigPath != "" {
		data, err := os.ReadFile(flags.ConfigPath)
		if err != nil {
			return nil, flags, err
		}
		if err = c.FromYAML(data); err != nil {
			return nil, flags, fmt.Errorf("parsing config %s: %w",
				flags.ConfigPath, err)
		}
	}

	if flags.logLevel != "" {
		c.Logging.LogLevel = flags.logLevel
	}
	if flags.listenPort > 0 {
		c.Frontend.ListenPort = flags.listenPort
	}
	if flags.debug {
		c.Main.Debug = true
	}

	if err := c.Validate(); err != nil {
		return nil, flags, err
	}
	return c, flags, nil
}

func applyEnv(c *Config, flags *Flags) {
	if flags.ConfigPath == "" {
		flags.ConfigPath = os.Getenv(EnvConfigPath)
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		c.Logging.LogLevel = v
	}
	if v := os.Getenv(EnvListenPort); v != "" {
		if port, err := strconv.Atoi(v); err == nil && port > 0 {
			c.Frontend.ListenPort = port
		}
	}
}
