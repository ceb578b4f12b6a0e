package batch

import (
	"embed"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/Mnehmos/mnehmos.rpg.mcp/internal/model"
)

//go:embed data/character_templates.yaml data/workflow_templates.yaml
var embeddedData embed.FS

// CharacterTemplate is a reusable starting-point for batch character/NPC
// creation, grounded the same way internal/improvisation's skill/wildsurge
// tables are: a static, designer-editable fixture rather than hard-coded Go.
type CharacterTemplate struct {
	ID            string              `yaml:"id" json:"id"`
	Description   string              `yaml:"description" json:"description"`
	CharacterType model.CharacterType `yaml:"characterType" json:"characterType"`
	Level         int                 `yaml:"level" json:"level"`
	HP            int                 `yaml:"hp" json:"hp"`
	AC            int                 `yaml:"ac" json:"ac"`
	HitDieSize    int                 `yaml:"hitDieSize" json:"hitDieSize"`
	Stats         model.Stats         `yaml:"stats" json:"stats"`
}

// WorkflowStep is one computed formula a workflow evaluates in sequence.
type WorkflowStep struct {
	Kind string `yaml:"kind" json:"kind"`
	Dice string `yaml:"dice" json:"dice"`
}

// WorkflowTemplate is a named, ordered sequence of dice-driven steps that
// execute_workflow advances one call at a time, persisting progress in
// turn_state and each step's roll in calculations.
type WorkflowTemplate struct {
	ID          string         `yaml:"id" json:"id"`
	Description string         `yaml:"description" json:"description"`
	Steps       []WorkflowStep `yaml:"steps" json:"steps"`
}

var (
	characterTemplates = mustLoadCharacterTemplates()
	workflowTemplates  = mustLoadWorkflowTemplates()
)

func mustLoadCharacterTemplates() map[string]CharacterTemplate {
	b, err := embeddedData.ReadFile("data/character_templates.yaml")
	if err != nil {
		panic(fmt.Sprintf("batch: loading character_templates.yaml: %v", err))
	}
	var list []CharacterTemplate
	if err := yaml.Unmarshal(b, &list); err != nil {
		panic(fmt.Sprintf("batch: parsing character_templates.yaml: %v", err))
	}
	out := make(map[string]CharacterTemplate, len(list))
	for _, t := range list {
		out[t.ID] = t
	}
	return out
}

func mustLoadWorkflowTemplates() map[string]WorkflowTemplate {
	b, err := embeddedData.ReadFile("data/workflow_templates.yaml")
	if err != nil {
		panic(fmt.Sprintf("batch: loading workflow_templates.yaml: %v", err))
	}
	var list []WorkflowTemplate
	if err := yaml.Unmarshal(b, &list); err != nil {
		panic(fmt.Sprintf("batch: parsing workflow_templates.yaml: %v", err))
	}
	out := make(map[string]WorkflowTemplate, len(list))
	for _, t := range list {
		out[t.ID] = t
	}
	return out
}
