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

package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"strings"

	"github.com/docopt/docopt-go"
	"github.com/residualeval/residual"
	"github.com/residualeval/residual/config"
	"github.com/residualeval/residual/prune"
)

const usage = `residual.

Usage:
  residual reduce [options] --schema JSON --filter JSON [--row JSON] [--target COL] [--check-null]
  residual null-condition [options] --schema JSON --filter JSON
  residual prune [options] --filter JSON [--schema JSON] STATS_URL
  residual -h | --help | --version

Commands:
  reduce          Partially evaluate a filter against known values and ranges.
  null-condition  Derive the condition under which a filter evaluates to null.
  prune           Decide which partitions a filter can skip.

Arguments:
  STATS_URL    location of partition summaries: a bucket URL, a file
               or a directory ending in "/"

Options:
  -h --help           	show this help messages and exit
  --schema JSON       	table schema in json
                      	Ex: {"fields":[{"name":"x","type":"int","required":true}]}
  --filter JSON       	filter expression in json
                      	Ex: {"op":"gt","left":{"op":"ref","name":"x"},"right":5}
  --row JSON          	column values or ranges in json
                      	Ex: {"x":{"min":1,"max":5},"y":"a"}
  --target COL        	resolve null checks on a single column
  --check-null        	treat unresolved null checks as null
  --output TYPE       	output type (json/text)
  --config TEXT       	specify the path to the configuration file
  --case-insensitive  	match column names ignoring case
  --workers N         	number of partitions evaluated concurrently

JSON arguments starting with "@" are read from the named file.`

type Config struct {
	Reduce        bool `docopt:"reduce"`
	NullCondition bool `docopt:"null-condition"`
	Prune         bool `docopt:"prune"`

	StatsURL string `docopt:"STATS_URL"`

	SchemaStr       string `docopt:"--schema"`
	FilterStr       string `docopt:"--filter"`
	RowStr          string `docopt:"--row"`
	Target          string `docopt:"--target"`
	CheckNull       bool   `docopt:"--check-null"`
	Output          string `docopt:"--output"`
	Config          string `docopt:"--config"`
	CaseInsensitive bool   `docopt:"--case-insensitive"`
	Workers         string `docopt:"--workers"`
}

func main() {
	ctx := context.Background()
	args, err := docopt.ParseArgs(usage, os.Args[1:], residual.Version())
	if err != nil {
		log.Fatal(err)
	}

	cfg := Config{}

	if err := args.Bind(&cfg); err != nil {
		log.Fatal(err)
	}

	fileCfg := config.EnvConfig
	if cfg.Config != "" {
		if fileCfg, err = config.ParseConfig(config.LoadConfig(cfg.Config)); err != nil {
			log.Fatal(err)
		}
	}

	run, err := mergeConf(fileCfg, &cfg)
	if err != nil {
		log.Fatal(err)
	}

	var output Output
	switch strings.ToLower(cfg.Output) {
	case "text":
		output = textOutput{}
	case "json":
		output = jsonOutput{}
	default:
		log.Fatal("unimplemented output type")
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr,
		&slog.HandlerOptions{Level: fileCfg.Level()}))

	filter, err := parseFilter(cfg.FilterStr)
	if err != nil {
		output.Error(err)
		os.Exit(1)
	}

	switch {
	case cfg.Reduce:
		schema := loadSchema(output, cfg.SchemaStr)
		eval, err := residual.NewPartialEvaluator(schema, filter, run.caseSensitive)
		if err != nil {
			output.Error(err)
			os.Exit(1)
		}
		eval.MaxDepth = run.maxDepth

		row := residual.UnknownRecord(schema.NumFields())
		if cfg.RowStr != "" {
			data, err := readArg(cfg.RowStr)
			if err != nil {
				output.Error(err)
				os.Exit(1)
			}

			if row, err = residual.ParseRow(schema, data); err != nil {
				output.Error(err)
				os.Exit(1)
			}
		}

		out, err := eval.Eval(row, residual.Mode{
			CheckNull: cfg.CheckNull,
			Target:    residual.Reference(cfg.Target),
		})
		if err != nil {
			output.Error(err)
			os.Exit(1)
		}
		output.Outcome(out)
	case cfg.NullCondition:
		schema := loadSchema(output, cfg.SchemaStr)
		cond, err := residual.DeriveNullCondition(schema, filter, run.caseSensitive)
		if err != nil {
			output.Error(err)
			os.Exit(1)
		}
		output.Expr(cond)
	case cfg.Prune:
		stored, parts, err := prune.OpenPartitions(ctx, cfg.StatsURL)
		if err != nil {
			output.Error(err)
			os.Exit(1)
		}

		schema := stored
		if cfg.SchemaStr != "" {
			schema = loadSchema(output, cfg.SchemaStr)
			if !schema.Equals(stored) {
				output.Error(fmt.Errorf("%w: summaries at %s were written for schema %s",
					residual.ErrInvalidSchema, cfg.StatsURL, stored))
				os.Exit(1)
			}
		}

		pruner, err := prune.NewPruner(schema, filter,
			prune.WithLogger(logger),
			prune.WithCaseSensitive(run.caseSensitive),
			prune.WithWorkers(run.workers),
			prune.WithMaxDepth(run.maxDepth),
			prune.WithInPredicateLimit(run.inLimit))
		if err != nil {
			output.Error(err)
			os.Exit(1)
		}

		results, err := pruner.Prune(ctx, parts)
		if err != nil {
			output.Error(err)
			os.Exit(1)
		}
		output.Results(results)
	}
}

func loadSchema(output Output, arg string) *residual.Schema {
	schema, err := parseSchema(arg)
	if err != nil {
		output.Error(err)
		os.Exit(1)
	}

	return schema
}
