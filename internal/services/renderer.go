package services

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/igorsal/commit-bridge/internal/models"
)

// maxListedFiles is the most file entries shown per category before the
// listing collapses to a count
const maxListedFiles = 5

// RenderCommit builds the comment body for one commit: the message, a link to
// the commit, and a file-change summary line when files changed.
func RenderCommit(commit models.Commit) string {
	lines := []string{
		strings.TrimRight(normalizeNewlines(commit.Message), "\n"),
	}
	if commit.URL != "" {
		lines = append(lines, commit.URL)
	}
	if summary := fileSummary(commit); summary != "" {
		lines = append(lines, summary)
	}
	return sanitize(strings.Join(lines, "\n"))
}

// RenderBranchCreated builds the comment body for a new branch
func RenderBranchCreated(repository, branch string) string {
	if repository == "" {
		return sanitize(fmt.Sprintf("Branch %s was created.", branch))
	}
	return sanitize(fmt.Sprintf("Branch %s was created in %s.", branch, repository))
}

func fileSummary(commit models.Commit) string {
	var parts []string
	parts = appendCategory(parts, "+", commit.Added)
	parts = appendCategory(parts, "~", commit.Modified)
	parts = appendCategory(parts, "-", commit.Removed)
	return strings.Join(parts, ", ")
}

func appendCategory(parts []string, prefix string, files []string) []string {
	switch {
	case len(files) == 0:
		return parts
	case len(files) > maxListedFiles:
		return append(parts, fmt.Sprintf("%s%d files", prefix, len(files)))
	}
	for _, f := range files {
		parts = append(parts, prefix+f)
	}
	return parts
}

func normalizeNewlines(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	return strings.ReplaceAll(s, "\r", "\n")
}

// sanitize drops control characters other than newline and tab
func sanitize(s string) string {
	return strings.Map(func(r rune) rune {
		if r == '\n' || r == '\t' {
			return r
		}
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, s)
}
