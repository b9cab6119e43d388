// Package flush models which writes were still buffered when an engine
// process stopped.
//
// The rules are approximate on purpose. They mirror what io_flush is known
// to persist and err on the side of reporting a write as unflushed.
package flush

import (
	"strings"

	"github.com/gyeh/qlcheck/internal/model"
)

// Tracker holds the unflushed statistics of one lifeline window. Create a
// new Tracker for every window.
type Tracker struct {
	flushed   bool
	unflushed []*model.Statistic
}

// NewTracker returns an empty, flushed Tracker.
func NewTracker() *Tracker {
	return &Tracker{flushed: true}
}

// Flushed reports whether nothing is pending.
func (t *Tracker) Flushed() bool {
	return t.flushed
}

// Unflushed returns the pending statistics in arrival order.
func (t *Tracker) Unflushed() []*model.Statistic {
	return t.unflushed
}

// Observe applies one in-window statistic.
func (t *Tracker) Observe(s *model.Statistic) {
	cmd := s.Command
	if cmd == nil {
		return
	}

	switch name := cmd.Name; {
	case name == "io_flush":
		t.ioFlush(s)
	case name == "database_unmap":
		// The condition looks at the unmap command itself, never at the
		// candidate, so nothing is removed.
		t.reject(func(*model.Statistic) bool {
			return cmd.Name == "load"
		})
	case name == "table_list", name == "column_list":
	case mutating(name):
		t.flushed = false
		t.unflushed = append(t.unflushed, s)
	}
}

func mutating(name string) bool {
	switch name {
	case "load", "delete", "truncate", "plugin_register", "plugin_unregister":
		return true
	}
	return strings.HasPrefix(name, "table_") || strings.HasPrefix(name, "column_")
}

func (t *Tracker) ioFlush(s *model.Statistic) {
	target, hasTarget := s.Command.TargetName()
	recursive := s.Command.Recursive()

	switch {
	case hasTarget && recursive:
		t.reject(func(u *model.Statistic) bool {
			switch u.Command.Name {
			case "load", "delete":
				return u.Command.Table() == target
			case "truncate":
				name, _ := u.Command.TargetName()
				return name == target
			}
			return false
		})
	case hasTarget:
		// TODO: only drop schema changes of the flushed target once the
		// target's dependents can be resolved from the log.
		t.reject(func(u *model.Statistic) bool {
			return strings.HasSuffix(u.Command.Name, "_create")
		})
	case recursive:
		t.unflushed = nil
	default:
		t.reject(func(u *model.Statistic) bool {
			name := u.Command.Name
			switch {
			case strings.HasSuffix(name, "_create"),
				strings.HasSuffix(name, "_remove"),
				strings.HasSuffix(name, "_rename"):
				return true
			case name == "plugin_register", name == "plugin_unregister":
				return true
			}
			return false
		})
	}
	t.flushed = len(t.unflushed) == 0
}

// reject removes the statistics matching drop, keeping order. The slice is
// rebuilt so statistics handed out earlier are never modified.
func (t *Tracker) reject(drop func(*model.Statistic) bool) {
	kept := make([]*model.Statistic, 0, len(t.unflushed))
	for _, u := range t.unflushed {
		if !drop(u) {
			kept = append(kept, u)
		}
	}
	if len(kept) == 0 {
		kept = nil
	}
	t.unflushed = kept
}
