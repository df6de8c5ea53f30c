package scenario

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Node types accepted in scenario YAML.
const (
	TypeSelector       = "selector"
	TypeSequence       = "sequence"
	TypeParallel       = "parallel"
	TypeRandomSelector = "random_selector"
	TypeInverter       = "inverter"
	TypeRepeat         = "repeat"
	TypeAction         = "action"
	TypeCondition      = "condition"
	TypeTimer          = "timer"
)

// Spec describes a behaviour tree stored as YAML.
type Spec struct {
	Name        string   `yaml:"name"`
	Description string   `yaml:"description,omitempty"`
	Root        NodeSpec `yaml:"root"`
}

// NodeSpec is one node of the declared tree.
type NodeSpec struct {
	Type     string     `yaml:"type"`
	Name     string     `yaml:"name,omitempty"`
	Ref      string     `yaml:"ref,omitempty"`
	Duration string     `yaml:"duration,omitempty"`
	Count    *int       `yaml:"count,omitempty"`
	Success  string     `yaml:"success,omitempty"` // parallel: "one" or "all"
	Failure  string     `yaml:"failure,omitempty"`
	Children []NodeSpec `yaml:"children,omitempty"`
}

// Parse converts scenario YAML into a validated Spec.
func Parse(raw string) (Spec, error) {
	var spec Spec
	if strings.TrimSpace(raw) == "" {
		return spec, errors.New("scenario config is empty")
	}
	if err := yaml.Unmarshal([]byte(raw), &spec); err != nil {
		return spec, fmt.Errorf("parse scenario config: %w", err)
	}
	if err := spec.Validate(); err != nil {
		return Spec{}, err
	}
	return spec, nil
}

// Validate checks the tree shape without resolving refs.
func (s Spec) Validate() error {
	if strings.TrimSpace(s.Root.Type) == "" {
		return errors.New("scenario root is required")
	}
	return s.Root.validate("root")
}

// Marshal renders the scenario back to YAML.
func (s Spec) Marshal() (string, error) {
	out, err := yaml.Marshal(s)
	if err != nil {
		return "", fmt.Errorf("marshal scenario: %w", err)
	}
	return string(out), nil
}

func (n NodeSpec) validate(at string) error {
	switch n.Type {
	case TypeSelector, TypeSequence, TypeRandomSelector:
		if len(n.Children) == 0 {
			return fmt.Errorf("%s: %s needs at least one child", at, n.Type)
		}
	case TypeParallel:
		if len(n.Children) == 0 {
			return fmt.Errorf("%s: parallel needs at least one child", at)
		}
		if _, err := parsePolicy(n.Success, "all"); err != nil {
			return fmt.Errorf("%s: success policy: %w", at, err)
		}
		if _, err := parsePolicy(n.Failure, "one"); err != nil {
			return fmt.Errorf("%s: failure policy: %w", at, err)
		}
	case TypeInverter:
		if len(n.Children) != 1 {
			return fmt.Errorf("%s: inverter needs exactly one child", at)
		}
	case TypeRepeat:
		if len(n.Children) != 1 {
			return fmt.Errorf("%s: repeat needs exactly one child", at)
		}
		if n.Count != nil && *n.Count < -1 {
			return fmt.Errorf("%s: repeat count must be -1 or greater", at)
		}
	case TypeAction, TypeCondition:
		if strings.TrimSpace(n.Ref) == "" {
			return fmt.Errorf("%s: %s ref is required", at, n.Type)
		}
		if len(n.Children) > 0 {
			return fmt.Errorf("%s: %s cannot have children", at, n.Type)
		}
	case TypeTimer:
		if n.Duration == "" && n.Ref == "" {
			return fmt.Errorf("%s: timer needs a duration or ref", at)
		}
		if n.Duration != "" {
			d, err := time.ParseDuration(n.Duration)
			if err != nil {
				return fmt.Errorf("%s: timer duration: %w", at, err)
			}
			if d < 0 {
				return fmt.Errorf("%s: timer duration must not be negative", at)
			}
		}
		if len(n.Children) > 0 {
			return fmt.Errorf("%s: timer cannot have children", at)
		}
	default:
		return fmt.Errorf("%s: unknown node type %q", at, n.Type)
	}
	for i, child := range n.Children {
		if err := child.validate(fmt.Sprintf("%s.children[%d]", at, i)); err != nil {
			return err
		}
	}
	return nil
}
