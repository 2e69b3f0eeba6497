package services

import "github.com/igorsal/commit-bridge/internal/models"

var (
	testingBranches   = []string{"dev"}
	completedBranches = []string{"main", "master"}
)

// ResolveStatus picks the logical status an event should move its issues to.
// The first matching rule wins; ok is false when no rule applies.
func ResolveStatus(event models.Event) (models.LogicalStatus, bool) {
	switch e := event.(type) {
	case models.BranchCreateEvent:
		return models.StatusInProgress, true
	case models.PushEvent:
		switch {
		case contains(testingBranches, e.Ref):
			return models.StatusTesting, true
		case contains(completedBranches, e.Ref):
			return models.StatusCompleted, true
		}
	}
	return "", false
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
