package services

import (
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"

	"github.com/igorsal/commit-bridge/internal/models"
)

func TestRenderCommit(t *testing.T) {
	tests := []struct {
		name   string
		commit models.Commit
		want   string
	}{
		{
			name: "full listing",
			commit: models.Commit{
				Message:  "Implement validation #101",
				URL:      "https://github.com/acme/api/commit/abc123",
				Added:    []string{"a.go", "b.go", "c.go"},
				Modified: []string{"d.go"},
			},
			want: "Implement validation #101\n" +
				"https://github.com/acme/api/commit/abc123\n" +
				"+a.go, +b.go, +c.go, ~d.go",
		},
		{
			name: "collapsed category",
			commit: models.Commit{
				Message: "Bulk import #9",
				URL:     "https://github.com/acme/api/commit/def456",
				Added:   []string{"1", "2", "3", "4", "5", "6", "7"},
				Removed: []string{"old.go"},
			},
			want: "Bulk import #9\n" +
				"https://github.com/acme/api/commit/def456\n" +
				"+7 files, -old.go",
		},
		{
			name: "five entries still listed",
			commit: models.Commit{
				Message:  "Touch #3",
				Modified: []string{"a", "b", "c", "d", "e"},
			},
			want: "Touch #3\n~a, ~b, ~c, ~d, ~e",
		},
		{
			name:   "no files no url",
			commit: models.Commit{Message: "Fix typo #4\n"},
			want:   "Fix typo #4",
		},
		{
			name: "multi-line message",
			commit: models.Commit{
				Message: "Fix login #5\r\n\r\nDetails here\r\n",
				URL:     "https://gitlab.com/acme/api/-/commit/1",
			},
			want: "Fix login #5\n\nDetails here\n" +
				"https://gitlab.com/acme/api/-/commit/1",
		},
		{
			name:   "control characters stripped",
			commit: models.Commit{Message: "Bell\a and escape\x1b[31m #6\tok"},
			want:   "Bell and escape[31m #6\tok",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := RenderCommit(tt.commit)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("RenderCommit() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestRenderCommit_Idempotent(t *testing.T) {
	commit := models.Commit{
		Message:  "Implement validation #101 #202",
		URL:      "https://github.com/acme/api/commit/abc123",
		Added:    []string{"x.go"},
		Modified: []string{"y.go"},
		Removed:  []string{"z.go"},
	}
	assert.Equal(t, RenderCommit(commit), RenderCommit(commit))
}

func TestRenderCommit_CountsEachCategoryIndependently(t *testing.T) {
	var many []string
	for i := 0; i < 6; i++ {
		many = append(many, fmt.Sprintf("f%d.go", i))
	}
	got := RenderCommit(models.Commit{Message: "m", Added: many, Modified: many, Removed: []string{"r.go"}})
	assert.Equal(t, "m\n+6 files, ~6 files, -r.go", got)
}

func TestRenderBranchCreated(t *testing.T) {
	assert.Equal(t, "Branch feature/12-login was created in acme/api.", RenderBranchCreated("acme/api", "feature/12-login"))
	assert.Equal(t, "Branch feature/12-login was created.", RenderBranchCreated("", "feature/12-login"))
}
