// SPDX-License-Identifier: Apache-2.0

package change

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// wireChange is the one-key-per-element YAML/JSON shape from spec §6: each
// list element has exactly one key from the change-variant set.
type wireChange struct {
	RunDDL         *RunDDL         `yaml:"run_ddl,omitempty" json:"run_ddl,omitempty"`
	CreateIndex    *CreateIndex    `yaml:"create_index,omitempty" json:"create_index,omitempty"`
	DropIndex      *DropIndex      `yaml:"drop_index,omitempty" json:"drop_index,omitempty"`
	AddConstraint  *AddConstraint  `yaml:"add_constraint,omitempty" json:"add_constraint,omitempty"`
	DropConstraint *DropConstraint `yaml:"drop_constraint,omitempty" json:"drop_constraint,omitempty"`
	BeginRename    *BeginRename    `yaml:"begin_rename,omitempty" json:"begin_rename,omitempty"`
	FinishRename   *FinishRename   `yaml:"finish_rename,omitempty" json:"finish_rename,omitempty"`
}

func (w *wireChange) unwrap() (Change, error) {
	var found []Change
	if w.RunDDL != nil {
		found = append(found, w.RunDDL)
	}
	if w.CreateIndex != nil {
		found = append(found, w.CreateIndex)
	}
	if w.DropIndex != nil {
		found = append(found, w.DropIndex)
	}
	if w.AddConstraint != nil {
		found = append(found, w.AddConstraint)
	}
	if w.DropConstraint != nil {
		found = append(found, w.DropConstraint)
	}
	if w.BeginRename != nil {
		found = append(found, w.BeginRename)
	}
	if w.FinishRename != nil {
		found = append(found, w.FinishRename)
	}
	if len(found) != 1 {
		return nil, UnknownChangeKindError{Keys: len(found)}
	}
	return found[0], nil
}

func wrap(c Change) (wireChange, error) {
	var w wireChange
	switch v := c.(type) {
	case *RunDDL:
		w.RunDDL = v
	case *CreateIndex:
		w.CreateIndex = v
	case *DropIndex:
		w.DropIndex = v
	case *AddConstraint:
		w.AddConstraint = v
	case *DropConstraint:
		w.DropConstraint = v
	case *BeginRename:
		w.BeginRename = v
	case *FinishRename:
		w.FinishRename = v
	default:
		return w, fmt.Errorf("unsupported change type %T", c)
	}
	return w, nil
}

// List is an ordered list of Changes that (de)serializes to the wire
// format of spec §6.
type List []Change

func (l *List) UnmarshalYAML(value *yaml.Node) error {
	var raw []wireChange
	if err := value.Decode(&raw); err != nil {
		return err
	}

	out := make(List, len(raw))
	for i := range raw {
		c, err := raw[i].unwrap()
		if err != nil {
			return fmt.Errorf("change %d: %w", i, err)
		}
		out[i] = c
	}
	*l = out
	return nil
}

func (l List) MarshalYAML() (interface{}, error) {
	wires := make([]wireChange, len(l))
	for i, c := range l {
		w, err := wrap(c)
		if err != nil {
			return nil, fmt.Errorf("change %d: %w", i, err)
		}
		wires[i] = w
	}
	return wires, nil
}
