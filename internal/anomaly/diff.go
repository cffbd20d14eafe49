package anomaly

import (
	"fmt"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// DiffStatistics holds character level change counts between two bodies.
type DiffStatistics struct {
	Inserted    int
	Deleted     int
	IsIdentical bool
	// HeadersChanged reports a different set of header names.
	HeadersChanged bool
}

// Changed is the total number of inserted and deleted characters.
func (s DiffStatistics) Changed() int {
	return s.Inserted + s.Deleted
}

func (s DiffStatistics) String() string {
	out := fmt.Sprintf("body diff +%d -%d chars", s.Inserted, s.Deleted)
	if s.IsIdentical {
		out = "body identical to baseline"
	}
	if s.HeadersChanged {
		out += ", header set changed"
	}
	return out
}

// BodyDiffer wraps diffmatchpatch with semantic cleanup.
type BodyDiffer struct {
	dmp *diffmatchpatch.DiffMatchPatch
}

// NewBodyDiffer creates a differ
func NewBodyDiffer() *BodyDiffer {
	return &BodyDiffer{dmp: diffmatchpatch.New()}
}

// Compare diffs old against new.
func (d *BodyDiffer) Compare(oldBody, newBody string) DiffStatistics {
	if oldBody == newBody {
		return DiffStatistics{IsIdentical: true}
	}

	diffs := d.dmp.DiffCleanupSemantic(d.dmp.DiffMain(oldBody, newBody, false))

	stats := DiffStatistics{IsIdentical: true}
	for _, diff := range diffs {
		switch diff.Type {
		case diffmatchpatch.DiffInsert:
			stats.Inserted += len(diff.Text)
			stats.IsIdentical = false
		case diffmatchpatch.DiffDelete:
			stats.Deleted += len(diff.Text)
			stats.IsIdentical = false
		}
	}
	return stats
}
