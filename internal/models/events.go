package models

import (
	"net/http"
	"net/textproto"
)

// Provider identifies the source-control host that sent a webhook
type Provider string

const (
	ProviderGitHub Provider = "github"
	ProviderGitLab Provider = "gitlab"
)

// Headers is a flattened, single-valued view of the request headers.
// Keys are stored in canonical MIME form.
type Headers map[string]string

// HeadersFromHTTP keeps the first value of every header
func HeadersFromHTTP(h http.Header) Headers {
	out := make(Headers, len(h))
	for k, v := range h {
		if len(v) > 0 {
			out[textproto.CanonicalMIMEHeaderKey(k)] = v[0]
		}
	}
	return out
}

// Get looks up key case-insensitively
func (h Headers) Get(key string) string {
	return h[textproto.CanonicalMIMEHeaderKey(key)]
}

// RawWebhook is one inbound delivery as received on the wire
type RawWebhook struct {
	Provider   Provider
	DeliveryID string
	Headers    Headers
	Body       []byte
}

// EventKind tags the canonical event variants
type EventKind string

const (
	EventKindPush         EventKind = "push"
	EventKindBranchCreate EventKind = "branch_create"
	EventKindPong         EventKind = "pong"
	EventKindIgnored      EventKind = "ignored"
)

// Event is the provider-agnostic result of normalizing a delivery
type Event interface {
	Kind() EventKind
}

// Commit is a single commit carried by a push
type Commit struct {
	ID       string
	Message  string
	URL      string
	Author   string
	Added    []string
	Modified []string
	Removed  []string
}

// PushEvent is a push of one or more commits to a branch
type PushEvent struct {
	Provider      Provider
	Repository    string
	Ref           string // branch name, without refs/heads/
	DefaultBranch string
	Commits       []Commit
}

func (PushEvent) Kind() EventKind { return EventKindPush }

// BranchCreateEvent is the creation of a new branch without new commits
type BranchCreateEvent struct {
	Provider   Provider
	Repository string
	RefName    string
}

func (BranchCreateEvent) Kind() EventKind { return EventKindBranchCreate }

// PongEvent answers a provider's connectivity check
type PongEvent struct{}

func (PongEvent) Kind() EventKind { return EventKindPong }

// IgnoredEvent is an authenticated delivery that needs no processing
type IgnoredEvent struct {
	Reason string
}

func (IgnoredEvent) Kind() EventKind { return EventKindIgnored }
