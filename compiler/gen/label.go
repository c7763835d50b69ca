package gen

import (
	"fmt"
	"strconv"
)

// LabelFunc derives the name fragment of a stage from its position. Stage
// contracts and implementations are named after the output type followed by
// the label, e.g. "OrderBuilderStep1".
type LabelFunc func(position int) (string, error)

// NumericLabel is the default LabelFunc. It is defined for every position:
// 1 is "Step1" and -3 is "StepNeg3".
func NumericLabel(position int) (string, error) {
	if position < 0 {
		return "StepNeg" + strconv.FormatUint(uint64(-(position+1))+1, 10), nil
	}
	return "Step" + strconv.Itoa(position), nil
}

var ordinals = [...]string{
	"One", "Two", "Three", "Four", "Five", "Six", "Seven", "Eight",
	"Nine", "Ten", "Eleven", "Twelve", "Thirteen", "Fourteen", "Fifteen", "Sixteen",
}

// OrdinalLabel names positions 1 to 16 with words ("StepOne") and falls back
// to NumericLabel for any other position.
func OrdinalLabel(position int) (string, error) {
	if position >= 1 && position <= len(ordinals) {
		return "Step" + ordinals[position-1], nil
	}
	return NumericLabel(position)
}

// ClosedOrdinalLabel names positions 1 to 16 like OrdinalLabel and rejects
// every other position with ErrUnsupportedPosition.
func ClosedOrdinalLabel(position int) (string, error) {
	if position < 1 || position > len(ordinals) {
		return "", fmt.Errorf("%w: %d is outside 1..%d", ErrUnsupportedPosition, position, len(ordinals))
	}
	return "Step" + ordinals[position-1], nil
}

// Labels holds the named label functions.
var Labels = map[string]LabelFunc{
	"numeric":        NumericLabel,
	"ordinal":        OrdinalLabel,
	"closed-ordinal": ClosedOrdinalLabel,
}

// ParseLabel returns the label function registered under the given name.
func ParseLabel(name string) (LabelFunc, error) {
	if f, ok := Labels[name]; ok {
		return f, nil
	}
	return nil, NewConfigError("Label", name, "unknown label function; use numeric, ordinal or closed-ordinal")
}
