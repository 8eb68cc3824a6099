/*
 * === This file is part of ALICE O² ===
 *
 * Copyright 2024 CERN and copyright holders of ALICE O².
 *
 * This program is free software: you can redistribute it and/or modify
 * it under the terms of the GNU General Public License as published by
 * the Free Software Foundation, either version 3 of the License, or
 * (at your option) any later version.
 *
 * This program is distributed in the hope that it will be useful,
 * but WITHOUT ANY WARRANTY; without even the implied warranty of
 * MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
 * GNU General Public License for more details.
 *
 * You should have received a copy of the GNU General Public License
 * along with this program.  If not, see <http://www.gnu.org/licenses/>.
 *
 * In applying this license CERN does not waive the privileges and
 * immunities granted to it by virtue of its status as an
 * Intergovernmental Organization or submit itself to any jurisdiction.
 */

package lifecycle

import (
	"bytes"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/hashicorp/go-multierror"
	"github.com/xeipuuv/gojsonschema"
	"gopkg.in/yaml.v3"
)

// Definition is the serializable description of a registry. Actions are
// referred to by name and resolved against an ActionSet by Build.
type Definition struct {
	Initial     State                  `yaml:"initial" json:"initial"`
	Failed      State                  `yaml:"failed" json:"failed"`
	FailAction  string                 `yaml:"failAction,omitempty" json:"failAction,omitempty"`
	States      []StateDefinition      `yaml:"states" json:"states"`
	Transitions []TransitionDefinition `yaml:"transitions" json:"transitions"`
}

type StateDefinition struct {
	Id        State   `yaml:"id" json:"id"`
	Name      string  `yaml:"name,omitempty" json:"name,omitempty"`
	Transient bool    `yaml:"transient,omitempty" json:"transient,omitempty"`
	Successor Command `yaml:"successor,omitempty" json:"successor,omitempty"`
}

type TransitionDefinition struct {
	From    []State `yaml:"from" json:"from"`
	To      State   `yaml:"to" json:"to"`
	Command Command `yaml:"command" json:"command"`
	Action  string  `yaml:"action,omitempty" json:"action,omitempty"`
}

const definitionSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["initial", "failed", "states", "transitions"],
  "additionalProperties": false,
  "properties": {
    "initial": {"type": "string", "minLength": 1},
    "failed": {"type": "string", "minLength": 1},
    "failAction": {"type": "string"},
    "states": {
      "type": "array",
      "minItems": 1,
      "items": {
        "type": "object",
        "required": ["id"],
        "additionalProperties": false,
        "properties": {
          "id": {"type": "string", "minLength": 1},
          "name": {"type": "string"},
          "transient": {"type": "boolean"},
          "successor": {"type": "string"}
        }
      }
    },
    "transitions": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["from", "to", "command"],
        "additionalProperties": false,
        "properties": {
          "from": {"type": "array", "minItems": 1, "items": {"type": "string", "minLength": 1}},
          "to": {"type": "string", "minLength": 1},
          "command": {"type": "string", "minLength": 1},
          "action": {"type": "string"}
        }
      }
    }
  }
}`

var (
	schemaOnce     sync.Once
	compiledSchema *gojsonschema.Schema
	schemaErr      error
)

func definitionJSONSchema() (*gojsonschema.Schema, error) {
	schemaOnce.Do(func() {
		compiledSchema, schemaErr = gojsonschema.NewSchema(gojsonschema.NewStringLoader(definitionSchema))
	})
	return compiledSchema, schemaErr
}

// ParseDefinition decodes a YAML machine definition after checking it
// against the definition schema.
func ParseDefinition(data []byte) (*Definition, error) {
	var doc interface{}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("cannot parse machine definition: %w", err)
	}
	schema, err := definitionJSONSchema()
	if err != nil {
		return nil, fmt.Errorf("cannot load machine definition schema: %w", err)
	}
	result, err := schema.Validate(gojsonschema.NewGoLoader(doc))
	if err != nil {
		return nil, fmt.Errorf("cannot validate machine definition: %w", err)
	}
	if !result.Valid() {
		problems := make([]string, 0, len(result.Errors()))
		for _, e := range result.Errors() {
			problems = append(problems, e.String())
		}
		return nil, fmt.Errorf("invalid machine definition: %s", strings.Join(problems, "; "))
	}

	def := &Definition{}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(def); err != nil {
		return nil, fmt.Errorf("cannot decode machine definition: %w", err)
	}
	return def, nil
}

func LoadDefinitionFile(path string) (*Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseDefinition(data)
}

// Marshal renders the definition back to YAML.
func (d *Definition) Marshal() ([]byte, error) {
	return yaml.Marshal(d)
}

// Build turns the definition into a validated registry, resolving action
// names against actions. Unknown action names are construction errors; a
// name with no entry bound to nil is not.
func (d *Definition) Build(actions ActionSet) (*Registry, error) {
	var problems *multierror.Error
	resolve := func(name string) Action {
		if name == "" {
			return nil
		}
		action, ok := actions[name]
		if !ok {
			problems = multierror.Append(problems, fmt.Errorf("unknown action %q", name))
		}
		return action
	}

	r := NewRegistry()
	for _, s := range d.States {
		var err error
		if s.Transient {
			err = r.DefineTransientState(s.Id, s.Name)
		} else {
			err = r.DefineState(s.Id, s.Name)
		}
		if err != nil {
			problems = multierror.Append(problems, err)
		}
	}
	for _, s := range d.States {
		if s.Successor == "" {
			continue
		}
		if err := r.DefineTransientSuccessor(s.Id, s.Successor); err != nil {
			problems = multierror.Append(problems, err)
		}
	}
	for _, t := range d.Transitions {
		action := resolve(t.Action)
		for _, from := range t.From {
			if err := r.DefineTransition(from, t.To, t.Command, action); err != nil {
				problems = multierror.Append(problems, err)
			}
		}
	}
	r.SetInitialState(d.Initial)
	r.SetFailedState(d.Failed)
	r.SetFailAction(resolve(d.FailAction))

	if err := problems.ErrorOrNil(); err != nil {
		return nil, IncompleteRegistryError{Err: err}
	}
	if err := r.Validate(); err != nil {
		return nil, err
	}
	return r, nil
}
