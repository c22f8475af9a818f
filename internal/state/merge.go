package state

import (
	"github.com/roach88/viewfinder/internal/sections"
	"github.com/roach88/viewfinder/internal/transform"
)

// Merge policy field names. The active section is the single "critical"
// field: section identity must stay globally consistent, while in-canvas
// camera position is local, fine-grained state.
const (
	FieldActiveSection   = "activeSection"
	FieldCurrentPosition = "currentPosition"
)

// ResolveConflict applies the asymmetric merge policy for one field when
// local canvas state and external global navigation state disagree: the
// global value wins for the active section, the local value wins for
// everything else.
func ResolveConflict(field string, local, global any) any {
	if field == FieldActiveSection {
		return global
	}
	return local
}

// ExternalNavState is what the host's global navigation signal carries into
// a merge. Position is advisory only - the merge policy discards it in
// favor of the local camera position.
type ExternalNavState struct {
	ActiveSection sections.ID
	Position      *transform.Position
}

// MergeExternal reconciles the store with an external navigation signal
// under the asymmetric policy and returns the post-merge snapshot. The
// external section always wins (recorded through the usual one-level
// previousSection history); the local position always survives.
func (s *Store) MergeExternal(ext ExternalNavState) Snapshot {
	s.mu.Lock()
	if ext.ActiveSection != "" && ext.ActiveSection != s.activeSection {
		s.previousSection = s.activeSection
		s.activeSection = ext.ActiveSection
		s.logger.Debug("external navigation merged",
			"section", ext.ActiveSection,
			"previous", s.previousSection,
		)
	}
	// ext.Position intentionally unused: local position wins
	s.mu.Unlock()

	return s.GetStateSnapshot()
}
