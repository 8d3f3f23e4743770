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
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/residualeval/residual"
	"github.com/residualeval/residual/config"
)

type settings struct {
	caseSensitive bool
	workers       int
	maxDepth      int
	inLimit       int
}

// mergeConf fills flags left unset from the config file. Flags win.
func mergeConf(fileConf config.Config, resConfig *Config) (settings, error) {
	if len(resConfig.Output) == 0 {
		resConfig.Output = fileConf.Output
	}

	s := settings{
		caseSensitive: fileConf.IsCaseSensitive() && !resConfig.CaseInsensitive,
		workers:       fileConf.MaxWorkers,
		maxDepth:      fileConf.MaxDepth,
		inLimit:       fileConf.InPredicateLimit,
	}

	if len(resConfig.Workers) > 0 {
		n, err := strconv.Atoi(resConfig.Workers)
		if err != nil || n <= 0 {
			return settings{}, fmt.Errorf("%w: --workers must be a positive integer, got %q",
				residual.ErrInvalidArgument, resConfig.Workers)
		}
		s.workers = n
	}

	return s, nil
}

func readArg(arg string) ([]byte, error) {
	if path, ok := strings.CutPrefix(arg, "@"); ok {
		return os.ReadFile(path)
	}

	return []byte(arg), nil
}

func parseSchema(arg string) (*residual.Schema, error) {
	if arg == "" {
		return nil, fmt.Errorf("%w: missing --schema", residual.ErrInvalidArgument)
	}

	data, err := readArg(arg)
	if err != nil {
		return nil, err
	}

	var schema residual.Schema
	if err := json.Unmarshal(data, &schema); err != nil {
		return nil, fmt.Errorf("failed to parse schema: %w", err)
	}

	return &schema, nil
}

func parseFilter(arg string) (residual.Expr, error) {
	data, err := readArg(arg)
	if err != nil {
		return nil, err
	}

	filter, err := residual.UnmarshalExpr(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse filter: %w", err)
	}

	return filter, nil
}
