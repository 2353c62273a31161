package cmd

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/bokamoso/signin/carousel"
)

var errBadScript = errors.New("bad script")

// A scriptStep is one user interaction replayed at a virtual time.
type scriptStep struct {
	Action carousel.Trigger
	Index  int
	At     time.Duration
}

// parseScript reads a comma-separated list of next@T, prev@T and goto:I@T
// entries, where T is a Go duration. Steps are returned in time order; steps
// at the same time keep their written order.
func parseScript(script string) ([]scriptStep, error) {
	var steps []scriptStep

	for _, entry := range strings.Split(script, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}

		step, err := parseStep(entry)
		if err != nil {
			return nil, err
		}

		steps = append(steps, step)
	}

	sort.SliceStable(steps, func(i, j int) bool {
		return steps[i].At < steps[j].At
	})

	return steps, nil
}

func parseStep(entry string) (scriptStep, error) {
	action, at, found := strings.Cut(entry, "@")
	if !found {
		return scriptStep{}, fmt.Errorf("%w: %q has no @time", errBadScript, entry)
	}

	t, err := time.ParseDuration(at)
	if err != nil {
		return scriptStep{}, fmt.Errorf("%w: %q: %v", errBadScript, entry, err)
	}

	if t < 0 {
		return scriptStep{}, fmt.Errorf("%w: %q is before the start",
			errBadScript, entry)
	}

	step := scriptStep{At: t, Index: -1}

	switch {
	case action == "next":
		step.Action = carousel.TriggerNext
	case action == "prev":
		step.Action = carousel.TriggerPrev
	case strings.HasPrefix(action, "goto:"):
		step.Action = carousel.TriggerGoTo

		step.Index, err = strconv.Atoi(strings.TrimPrefix(action, "goto:"))
		if err != nil {
			return scriptStep{}, fmt.Errorf("%w: %q: bad index",
				errBadScript, entry)
		}
	default:
		return scriptStep{}, fmt.Errorf("%w: unknown action %q",
			errBadScript, action)
	}

	return step, nil
}

// apply performs the step on c.
func (s scriptStep) apply(c *carousel.Controller) error {
	switch s.Action {
	case carousel.TriggerNext:
		c.Next()
	case carousel.TriggerPrev:
		c.Prev()
	case carousel.TriggerGoTo:
		return c.GoTo(s.Index)
	}

	return nil
}
