// Licensed to the Apache Software Foundation (ASF) under one
// or more contributor license agreements.  See the NOTICE file
// distributed with this work for additional information
// regarding copyright ownership.  The ASF licenses this file
// to you under the Apache License, Version 2.0 (the
// "License"); you may not use this file except in compliance
// with the License.  You may obtain a copy of the License at
//
//   http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing,
// software distributed under the License is distributed on an
// "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY
// KIND, either express or implied.  See the License for the
// specific language governing permissions and limitations
// under the License.

package config

import (
	"log/slog"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

const (
	cfgFile                 = ".residual.yaml"
	defaultMaxWorkers       = 5
	defaultMaxDepth         = 2048
	defaultInPredicateLimit = 200
	defaultOutput           = "text"
	defaultLogLevel         = "warn"
)

type Config struct {
	MaxWorkers       int    `yaml:"max-workers"`
	MaxDepth         int    `yaml:"max-depth"`
	CaseSensitive    *bool  `yaml:"case-sensitive"`
	InPredicateLimit int    `yaml:"in-predicate-limit"`
	LogLevel         string `yaml:"log-level"`
	Output           string `yaml:"output"`
}

// IsCaseSensitive reports whether column names must match exactly,
// which is the default.
func (c Config) IsCaseSensitive() bool {
	return c.CaseSensitive == nil || *c.CaseSensitive
}

// Level parses LogLevel, falling back to warnings for unknown names.
func (c Config) Level() slog.Level {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelWarn
	}

	return lvl
}

func (c *Config) applyDefaults() {
	if c.MaxWorkers <= 0 {
		c.MaxWorkers = defaultMaxWorkers
	}
	if c.MaxDepth <= 0 {
		c.MaxDepth = defaultMaxDepth
	}
	if c.InPredicateLimit <= 0 {
		c.InPredicateLimit = defaultInPredicateLimit
	}
	if c.Output == "" {
		c.Output = defaultOutput
	}
	if c.LogLevel == "" {
		c.LogLevel = defaultLogLevel
	}
}

// LoadConfig reads the config file at configPath, or ~/.residual.yaml
// when configPath is empty. A missing file yields nil.
func LoadConfig(configPath string) []byte {
	var path string
	if len(configPath) > 0 {
		path = configPath
	} else {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return nil
		}
		path = filepath.Join(homeDir, cfgFile)
	}
	file, err := os.ReadFile(path)
	if err != nil {
		return nil
	}

	return file
}

// ParseConfig decodes a config file and fills in defaults for every
// setting it leaves out.
func ParseConfig(file []byte) (Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(file, &cfg); err != nil {
		return Config{}, err
	}
	cfg.applyDefaults()

	return cfg, nil
}

func fromConfigFiles() Config {
	dir := os.Getenv("RESIDUAL_HOME")
	if dir != "" {
		dir = filepath.Join(dir, cfgFile)
	}

	cfg, err := ParseConfig(LoadConfig(dir))
	if err != nil {
		cfg = Config{}
		cfg.applyDefaults()
	}

	return cfg
}

var EnvConfig = fromConfigFiles()
