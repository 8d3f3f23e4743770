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
	"log"
	"strings"

	"github.com/pterm/pterm"
	"github.com/residualeval/residual"
	"github.com/residualeval/residual/prune"
)

type Output interface {
	Outcome(residual.Outcome)
	Expr(residual.Expr)
	Results([]prune.Result)
	Error(error)
}

type textOutput struct{}

func (textOutput) Outcome(o residual.Outcome) {
	pterm.Println(o.Expr().String())
}

func (textOutput) Expr(e residual.Expr) {
	pterm.Println(e.String())
}

func (t textOutput) Results(results []prune.Result) {
	data := pterm.TableData{{"Partition", "Decision", "Residual"}}
	for _, r := range results {
		var filter string
		if r.Residual != nil {
			filter = r.Residual.String()
		}
		data = append(data, []string{r.Partition, r.Decision.String(), filter})
	}

	pterm.DefaultTable.
		WithHasHeader(true).
		WithHeaderRowSeparator("-").
		WithData(data).Render()

	groups, err := prune.GroupByResidual(results)
	if err != nil {
		t.Error(err)
	}

	if len(groups) == 0 {
		pterm.Println("No partitions to scan")

		return
	}

	groupData := pterm.TableData{{"Residual", "Partitions"}}
	for _, g := range groups {
		groupData = append(groupData, []string{g.Residual.String(), strings.Join(g.Partitions, ", ")})
	}

	pterm.DefaultTable.
		WithHasHeader(true).
		WithHeaderRowSeparator("-").
		WithData(groupData).Render()
}

func (textOutput) Error(err error) {
	log.Fatal(err)
}

type jsonOutput struct{}

func (j jsonOutput) Outcome(o residual.Outcome) {
	data, err := json.Marshal(o)
	if err != nil {
		j.Error(err)
	}
	pterm.Println(string(data))
}

func (j jsonOutput) Expr(e residual.Expr) {
	data, err := residual.MarshalExpr(e)
	if err != nil {
		j.Error(err)
	}
	pterm.Println(string(data))
}

type groupJSON struct {
	Residual   json.RawMessage `json:"residual"`
	Partitions []string        `json:"partitions"`
}

func (j jsonOutput) Results(results []prune.Result) {
	groups, err := prune.GroupByResidual(results)
	if err != nil {
		j.Error(err)
	}

	out := struct {
		Results []prune.Result `json:"results"`
		Groups  []groupJSON    `json:"groups"`
	}{Results: results, Groups: make([]groupJSON, len(groups))}

	if out.Results == nil {
		out.Results = []prune.Result{}
	}

	for i, g := range groups {
		filter, err := residual.MarshalExpr(g.Residual)
		if err != nil {
			j.Error(err)
		}
		out.Groups[i] = groupJSON{Residual: filter, Partitions: g.Partitions}
	}

	data, err := json.Marshal(out)
	if err != nil {
		j.Error(err)
	}
	pterm.Println(string(data))
}

func (jsonOutput) Error(err error) {
	data, _ := json.Marshal(struct {
		Error string `json:"error"`
	}{err.Error()})
	log.Fatal(string(data))
}
