package services

import (
	"encoding/json"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/igorsal/commit-bridge/internal/models"
	pkgerrors "github.com/igorsal/commit-bridge/pkg/errors"
)

const (
	HeaderGitHubEvent = "X-GitHub-Event"
	HeaderGitLabEvent = "X-Gitlab-Event"

	branchRefPrefix = "refs/heads/"
	gitLabPushHook  = "Push Hook"
)

type normalizeFunc func(n *Normalizer, body []byte) (models.Event, error)

type eventKey struct {
	provider models.Provider
	event    string
}

// Adding a provider means adding its header to eventHeaders and its
// normalizers here.
var normalizers = map[eventKey]normalizeFunc{
	{models.ProviderGitHub, "ping"}:         normalizeGitHubPing,
	{models.ProviderGitHub, "push"}:         normalizeGitHubPush,
	{models.ProviderGitLab, gitLabPushHook}: normalizeGitLabPush,
}

var eventHeaders = map[models.Provider]string{
	models.ProviderGitHub: HeaderGitHubEvent,
	models.ProviderGitLab: HeaderGitLabEvent,
}

// Normalizer turns provider payloads into canonical events
type Normalizer struct {
	validate *validator.Validate
}

// NewNormalizer creates a new event normalizer
func NewNormalizer() *Normalizer {
	return &Normalizer{validate: validator.New()}
}

// Normalize dispatches on provider and event header. Unknown combinations are
// ignored; malformed payloads yield a parse error.
func (n *Normalizer) Normalize(provider models.Provider, headers models.Headers, body []byte) (models.Event, error) {
	header, ok := eventHeaders[provider]
	if !ok {
		return models.IgnoredEvent{Reason: "unsupported provider"}, nil
	}

	eventType := headers.Get(header)
	fn, ok := normalizers[eventKey{provider, eventType}]
	if !ok {
		return models.IgnoredEvent{Reason: "unsupported event type: " + eventType}, nil
	}
	return fn(n, body)
}

func (n *Normalizer) decode(provider models.Provider, body []byte, v interface{}) error {
	if err := json.Unmarshal(body, v); err != nil {
		return pkgerrors.NewParseError(string(provider), "invalid JSON payload").WithCause(err)
	}
	if err := n.validate.Struct(v); err != nil {
		return pkgerrors.NewParseError(string(provider), "payload is missing required fields").WithCause(err)
	}
	return nil
}

func normalizeGitHubPing(_ *Normalizer, _ []byte) (models.Event, error) {
	return models.PongEvent{}, nil
}

func normalizeGitHubPush(n *Normalizer, body []byte) (models.Event, error) {
	var payload models.GitHubPushPayload
	if err := n.decode(models.ProviderGitHub, body, &payload); err != nil {
		return nil, err
	}

	branch, ok := branchName(payload.Ref)
	if !ok {
		return models.IgnoredEvent{Reason: "not a branch ref: " + payload.Ref}, nil
	}
	if payload.Deleted {
		return models.IgnoredEvent{Reason: "branch deleted"}, nil
	}

	repo := payload.Repository.FullName
	if payload.Created && len(payload.Commits) == 0 {
		return models.BranchCreateEvent{
			Provider:   models.ProviderGitHub,
			Repository: repo,
			RefName:    branch,
		}, nil
	}
	if len(payload.Commits) == 0 {
		return models.IgnoredEvent{Reason: "push without commits"}, nil
	}

	commits := make([]models.Commit, 0, len(payload.Commits))
	for _, c := range payload.Commits {
		if isBlank(c.Message) {
			continue
		}
		commits = append(commits, models.Commit{
			ID:       c.ID,
			Message:  c.Message,
			URL:      c.URL,
			Author:   firstNonEmpty(c.Author.Name, c.Author.Username, c.Author.Email),
			Added:    c.Added,
			Modified: c.Modified,
			Removed:  c.Removed,
		})
	}

	return models.PushEvent{
		Provider:      models.ProviderGitHub,
		Repository:    repo,
		Ref:           branch,
		DefaultBranch: payload.Repository.DefaultBranch,
		Commits:       commits,
	}, nil
}

func normalizeGitLabPush(n *Normalizer, body []byte) (models.Event, error) {
	var payload models.GitLabPushPayload
	if err := n.decode(models.ProviderGitLab, body, &payload); err != nil {
		return nil, err
	}

	if payload.ObjectKind != "push" {
		return models.IgnoredEvent{Reason: "unsupported object kind: " + payload.ObjectKind}, nil
	}

	branch, ok := branchName(payload.Ref)
	if !ok {
		return models.IgnoredEvent{Reason: "not a branch ref: " + payload.Ref}, nil
	}
	if isZeroSHA(payload.After) {
		return models.IgnoredEvent{Reason: "branch deleted"}, nil
	}

	repo := payload.Project.PathWithNamespace
	if isZeroSHA(payload.Before) && len(payload.Commits) == 0 {
		return models.BranchCreateEvent{
			Provider:   models.ProviderGitLab,
			Repository: repo,
			RefName:    branch,
		}, nil
	}
	if len(payload.Commits) == 0 {
		return models.IgnoredEvent{Reason: "push without commits"}, nil
	}

	commits := make([]models.Commit, 0, len(payload.Commits))
	for _, c := range payload.Commits {
		if isBlank(c.Message) {
			continue
		}
		commits = append(commits, models.Commit{
			ID:       c.ID,
			Message:  c.Message,
			URL:      firstNonEmpty(c.URL, c.WebURL),
			Author:   firstNonEmpty(c.Author.Name, c.Author.Username, c.Author.Email),
			Added:    c.Added,
			Modified: c.Modified,
			Removed:  c.Removed,
		})
	}

	return models.PushEvent{
		Provider:      models.ProviderGitLab,
		Repository:    repo,
		Ref:           branch,
		DefaultBranch: payload.Project.DefaultBranch,
		Commits:       commits,
	}, nil
}

// branchName strips refs/heads/ and rejects every other ref namespace
func branchName(ref string) (string, bool) {
	if !strings.HasPrefix(ref, branchRefPrefix) || len(ref) == len(branchRefPrefix) {
		return "", false
	}
	return strings.TrimPrefix(ref, branchRefPrefix), true
}

func isZeroSHA(sha string) bool {
	return sha != "" && strings.Trim(sha, "0") == ""
}

// isBlank reports a commit message with nothing to comment
func isBlank(message string) bool {
	return strings.TrimSpace(message) == ""
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
