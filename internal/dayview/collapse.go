// Package dayview holds the state behind the daily workout screen: which sets
// are done, which exercise cards are collapsed, the rest timer, and which day
// of the week is shown.
package dayview

import "fmt"

// CollapseState is the display state of one exercise card.
type CollapseState int

const (
	// CollapseUnset means nobody has decided yet. The card renders expanded.
	CollapseUnset CollapseState = iota
	CollapseExpanded
	CollapseCollapsed
)

var collapseNames = [...]string{"unset", "expanded", "collapsed"}

func (c CollapseState) String() string {
	if c < 0 || int(c) >= len(collapseNames) {
		return fmt.Sprintf("CollapseState(%d)", int(c))
	}
	return collapseNames[c]
}

// MarshalText encodes the state as its name.
func (c CollapseState) MarshalText() ([]byte, error) {
	if c < 0 || int(c) >= len(collapseNames) {
		return nil, fmt.Errorf("invalid collapse state %d", int(c))
	}
	return []byte(collapseNames[c]), nil
}

// UnmarshalText parses a state name.
func (c *CollapseState) UnmarshalText(b []byte) error {
	for i, name := range collapseNames {
		if string(b) == name {
			*c = CollapseState(i)
			return nil
		}
	}
	return fmt.Errorf("unknown collapse state %q", b)
}

// autoCollapse applies the completion rule to one card: a complete card nobody
// has touched collapses, and an incomplete collapsed card expands.
func autoCollapse(state CollapseState, complete bool) CollapseState {
	switch {
	case complete && state == CollapseUnset:
		return CollapseCollapsed
	case !complete && state == CollapseCollapsed:
		return CollapseExpanded
	}
	return state
}
