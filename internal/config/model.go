// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev
//
// This file defines the unified, format-agnostic configuration model.
// Loaders are the only place a concrete syntax exists; everything downstream
// operates on this model. Step arguments, conditions, and environment values
// stay raw hcl.Expression fields, evaluated only once a job runs and the
// event context and earlier step outcomes are in scope.
package config

import (
	"github.com/hashicorp/hcl/v2"
	"github.com/zclconf/go-cty/cty"
)

// Model is the unified representation of the entire loaded configuration:
// all workflow definitions plus all action manifests.
type Model struct {
	Workflows []*Workflow
	Actions   map[string]*ActionDefinition
}

// NewModel creates an empty, initialized Model.
func NewModel() *Model {
	return &Model{
		Actions: make(map[string]*ActionDefinition),
	}
}

// Merge folds another model into this one. Later action definitions with
// duplicate types overwrite earlier ones; workflows are appended.
func (m *Model) Merge(other *Model) {
	m.Workflows = append(m.Workflows, other.Workflows...)
	for key, def := range other.Actions {
		m.Actions[key] = def
	}
}

// Workflow is the format-agnostic representation of a `workflow` block.
type Workflow struct {
	Name   string
	Source string // file the workflow was loaded from
	On     *Trigger
	Env    map[string]hcl.Expression
	Jobs   []*Job
}

// Job returns the job with the given name, or nil.
func (w *Workflow) Job(name string) *Job {
	for _, j := range w.Jobs {
		if j.Name == name {
			return j
		}
	}
	return nil
}

// Trigger describes the events a workflow reacts to. A nil filter means the
// workflow does not react to that event kind at all.
type Trigger struct {
	Push        *EventFilter
	PullRequest *EventFilter
}

// EventFilter restricts an event kind by branch and changed-path patterns.
// All four lists hold glob patterns; empty allow-lists match everything.
type EventFilter struct {
	Branches       []string
	BranchesIgnore []string
	Paths          []string
	PathsIgnore    []string
}

// Job is the format-agnostic representation of a `job` block.
type Job struct {
	Name  string
	Needs []string
	If    hcl.Expression
	Env   map[string]hcl.Expression
	Steps []*Step
}

// Step is the format-agnostic representation of a `step` block. Exactly one
// of Run and Uses is set; loaders enforce that.
type Step struct {
	ID   string
	Name string

	// Run is a shell command line; Uses names a registered action type.
	Run  hcl.Expression
	Uses string

	// With holds action arguments, keyed by input name.
	With map[string]hcl.Expression

	Env             map[string]hcl.Expression
	If              hcl.Expression
	ContinueOnError hcl.Expression
	Timeout         hcl.Expression
	Workdir         hcl.Expression
}

// --- Action Manifest Models ---

// ActionDefinition is the format-agnostic representation of an action's
// manifest: its declared inputs, outputs, and the Go handler that backs it.
type ActionDefinition struct {
	Type        string
	Description string
	Lifecycle   *Lifecycle
	Inputs      map[string]*InputDefinition
	Outputs     map[string]*OutputDefinition
}

// Lifecycle maps an action's events to Go handler names.
type Lifecycle struct {
	OnRun string
}

// InputDefinition defines a single input argument for an action.
type InputDefinition struct {
	Name        string
	Type        cty.Type
	Description string
	Default     *cty.Value
	Optional    bool
}

// OutputDefinition defines a single output value from an action.
type OutputDefinition struct {
	Name        string
	Type        cty.Type
	Description string
}
