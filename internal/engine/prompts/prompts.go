// Package prompts loads the LLM system-prompt templates used by the
// planner, tagger, and synthesizer from an embedded YAML file, following
// the teacher's preference for declarative data (workflow_definitions,
// domwatch selectors) over string literals scattered through the code.
package prompts

import (
	_ "embed"
	"fmt"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed prompts.yaml
var raw []byte

type templates struct {
	PlannerSystem string `yaml:"planner_system"`
	TaggerSystem  string `yaml:"tagger_system"`
	SynthSystem   string `yaml:"synth_system"`
}

var (
	once    sync.Once
	loaded  templates
	loadErr error
)

func load() {
	loadErr = yaml.Unmarshal(raw, &loaded)
}

// PlannerSystem returns the query planner's system prompt.
func PlannerSystem() string { return get().PlannerSystem }

// TaggerSystem returns the feature tagger's system prompt.
func TaggerSystem() string { return get().TaggerSystem }

// SynthSystem returns the synthesizer's system prompt.
func SynthSystem() string { return get().SynthSystem }

func get() templates {
	once.Do(load)
	if loadErr != nil {
		panic(fmt.Sprintf("prompts: embedded prompts.yaml is invalid: %v", loadErr))
	}
	return loaded
}
