package gen

import (
	"fmt"
	"slices"
	"unicode"

	"github.com/syssam/stepgen/compiler/load"
)

// Reserved stage labels.
const (
	// FinalLabel names the terminal stage.
	FinalLabel = "Final"
	// UnorderedLabel names the contract shared by all stages.
	UnorderedLabel = "Unordered"
)

// Stage is a position in the mandated call sequence.
type Stage struct {
	// Position of the ordered steps of the stage. Zero for the terminal stage.
	Position int
	// Label is the name fragment of the stage types.
	Label string
	// Steps are the alternatives callable at this stage. For the terminal
	// stage, they are the build steps.
	Steps []*load.Step
	// Next is the stage reached by calling any of the steps. Nil for the
	// terminal stage.
	Next     *Stage
	Terminal bool
}

// StageGraph is the chain of stages of a builder.
type StageGraph struct {
	// Stages are the ordered stages, ascending by position.
	Stages []*Stage
	// Terminal holds the build steps.
	Terminal *Stage
}

// HasOrdered reports if the builder declares ordered steps. If not, the entry
// stage and the terminal stage are one and the same.
func (g *StageGraph) HasOrdered() bool {
	return len(g.Stages) > 0
}

// Entry returns the first stage of the chain.
func (g *StageGraph) Entry() *Stage {
	if g.HasOrdered() {
		return g.Stages[0]
	}
	return g.Terminal
}

// All returns the ordered stages followed by the terminal stage.
func (g *StageGraph) All() []*Stage {
	return append(slices.Clip(g.Stages), g.Terminal)
}

// NewStageGraph groups the ordered steps by position and chains the groups in
// ascending order, ending at a terminal stage holding the build steps. Steps
// sharing a position are alternatives leading to the same next stage, and
// gaps between positions do not produce stages.
func NewStageGraph(ordered, build []*load.Step, label LabelFunc) (*StageGraph, error) {
	if label == nil {
		label = NumericLabel
	}
	byPos := make(map[int]*Stage)
	var positions []int
	for _, s := range ordered {
		st, ok := byPos[s.Position]
		if !ok {
			st = &Stage{Position: s.Position}
			byPos[s.Position] = st
			positions = append(positions, s.Position)
		}
		st.Steps = append(st.Steps, s)
	}
	slices.Sort(positions)
	g := &StageGraph{
		Terminal: &Stage{Label: FinalLabel, Steps: build, Terminal: true},
	}
	seen := map[string]int{FinalLabel: 0, UnorderedLabel: 0}
	for _, pos := range positions {
		st := byPos[pos]
		l, err := label(pos)
		if err != nil {
			return nil, fmt.Errorf("labeling position %d: %w", pos, err)
		}
		if !isIdentFragment(l) {
			return nil, fmt.Errorf("label %q of position %d is not a valid identifier fragment", l, pos)
		}
		if prev, ok := seen[l]; ok {
			if l == FinalLabel || l == UnorderedLabel {
				return nil, fmt.Errorf("label %q of position %d is reserved", l, pos)
			}
			return nil, fmt.Errorf("positions %d and %d have the same label %q", prev, pos, l)
		}
		seen[l] = pos
		st.Label = l
		g.Stages = append(g.Stages, st)
	}
	for i, st := range g.Stages {
		if i+1 < len(g.Stages) {
			st.Next = g.Stages[i+1]
		} else {
			st.Next = g.Terminal
		}
	}
	return g, nil
}

// isIdentFragment reports if s can be appended to an identifier.
func isIdentFragment(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r != '_' && !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}
