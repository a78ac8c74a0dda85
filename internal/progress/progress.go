// Package progress derives step completion purely from persisted response
// rows. The routing layer uses these two primitives as its sole authority
// for preventing skips and redos; nothing here consults client-side memory,
// so a mid-flow reload always resumes correctly.
package progress

import "vantage-go/internal/models"

// CompletedSteps returns the set of step numbers whose response row carries
// a non-null submission timestamp. Upload status is deliberately ignored:
// reservation alone makes a step count as done.
func CompletedSteps(rows []models.StudentResponse) map[int]struct{} {
	done := make(map[int]struct{})
	for i := range rows {
		if rows[i].Submitted() {
			done[rows[i].Step] = struct{}{}
		}
	}
	return done
}

// NextIncomplete returns the lowest-numbered step (1-based) not yet
// completed, or false when all steps are done.
func NextIncomplete(done map[int]struct{}, totalSteps int) (int, bool) {
	for step := 1; step <= totalSteps; step++ {
		if _, ok := done[step]; !ok {
			return step, true
		}
	}
	return 0, false
}
