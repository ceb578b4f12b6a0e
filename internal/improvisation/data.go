package improvisation

import (
	"embed"
	"fmt"
	"sort"

	"gopkg.in/yaml.v3"
)

//go:embed data/skills.yaml data/wildsurge.yaml
var embeddedData embed.FS

type wildSurgeEntry struct {
	Min         int    `yaml:"min"`
	Max         int    `yaml:"max"`
	Effect      string `yaml:"effect"`
	Description string `yaml:"description"`
}

var (
	skillAbilities = mustLoadSkills()
	wildSurgeTable = mustLoadWildSurge()
)

func mustLoadSkills() map[string]string {
	b, err := embeddedData.ReadFile("data/skills.yaml")
	if err != nil {
		panic(fmt.Sprintf("improvisation: loading skills.yaml: %v", err))
	}
	var m map[string]string
	if err := yaml.Unmarshal(b, &m); err != nil {
		panic(fmt.Sprintf("improvisation: parsing skills.yaml: %v", err))
	}
	return m
}

func mustLoadWildSurge() []wildSurgeEntry {
	b, err := embeddedData.ReadFile("data/wildsurge.yaml")
	if err != nil {
		panic(fmt.Sprintf("improvisation: loading wildsurge.yaml: %v", err))
	}
	var entries []wildSurgeEntry
	if err := yaml.Unmarshal(b, &entries); err != nil {
		panic(fmt.Sprintf("improvisation: parsing wildsurge.yaml: %v", err))
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Min < entries[j].Min })
	return entries
}

// abilityForSkill maps a skill name to its governing ability, defaulting to
// "str" for an unrecognised skill rather than rejecting the stunt outright.
func abilityForSkill(skill string) string {
	if a, ok := skillAbilities[skill]; ok {
		return a
	}
	return "str"
}

// rollWildSurge resolves a d100 roll against the wild-surge table.
func rollWildSurge(roll int) wildSurgeEntry {
	for _, e := range wildSurgeTable {
		if roll >= e.Min && roll <= e.Max {
			return e
		}
	}
	return wildSurgeTable[len(wildSurgeTable)-1]
}
