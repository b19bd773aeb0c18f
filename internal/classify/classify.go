// Package classify maps detection labels to a danger flag.
package classify

import "strings"

// Classifier holds the configured set of dangerous labels.
type Classifier struct {
	labels map[string]struct{}
}

// New builds a classifier from the configured label set. Matching is
// case-insensitive.
func New(labels []string) *Classifier {
	set := make(map[string]struct{}, len(labels))
	for _, l := range labels {
		set[strings.ToLower(strings.TrimSpace(l))] = struct{}{}
	}
	return &Classifier{labels: set}
}

// IsDanger reports whether the label belongs to the danger set. Unknown
// labels are not dangerous.
func (c *Classifier) IsDanger(label string) bool {
	_, ok := c.labels[strings.ToLower(label)]
	return ok
}
