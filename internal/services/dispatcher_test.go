package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/igorsal/commit-bridge/internal/models"
	pkgerrors "github.com/igorsal/commit-bridge/pkg/errors"
	"github.com/igorsal/commit-bridge/pkg/logger"
)

const (
	testGitHubSecret = "gh-secret"
	testGitLabSecret = "gl-secret"
)

type trackerCall struct {
	Method   string
	IssueID  int
	Body     string
	StatusID string
}

type fakeTracker struct {
	mu          sync.Mutex
	calls       []trackerCall
	failComment map[int]bool
	failStatus  map[int]bool
}

func (f *fakeTracker) AddComment(ctx context.Context, issueID int, body string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := ctx.Deadline(); !ok {
		return errors.New("call has no deadline")
	}
	f.calls = append(f.calls, trackerCall{Method: "AddComment", IssueID: issueID, Body: body})
	if f.failComment[issueID] {
		return pkgerrors.NewExternalError("openproject", "HTTP 500")
	}
	return nil
}

func (f *fakeTracker) SetStatus(ctx context.Context, issueID int, statusID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := ctx.Deadline(); !ok {
		return errors.New("call has no deadline")
	}
	f.calls = append(f.calls, trackerCall{Method: "SetStatus", IssueID: issueID, StatusID: statusID})
	if f.failStatus[issueID] {
		return pkgerrors.NewNotFoundError("work package not found")
	}
	return nil
}

type staticMappings struct {
	mapping models.StatusMapping
}

func (s staticMappings) Current() models.StatusMapping { return s.mapping }

func (s staticMappings) Reload() (models.StatusMapping, error) { return s.mapping, nil }

var fullMapping = models.StatusMapping{
	models.StatusInProgress: "7",
	models.StatusTesting:    "9",
	models.StatusCompleted:  "12",
}

func newTestDispatcher(tracker *fakeTracker, mapping models.StatusMapping, fm *fakeMetrics) *Dispatcher {
	secrets := Secrets{
		models.ProviderGitHub: testGitHubSecret,
		models.ProviderGitLab: testGitLabSecret,
	}
	return NewDispatcher(secrets, staticMappings{mapping: mapping}, tracker, time.Second, logger.NewNop(), fm)
}

func signedGitHub(event, body string) models.RawWebhook {
	return models.RawWebhook{
		Provider:   models.ProviderGitHub,
		DeliveryID: "delivery-1",
		Headers: makeHeaders(
			HeaderGitHubEvent, event,
			HeaderGitHubSignature, SignGitHubPayload([]byte(body), testGitHubSecret),
		),
		Body: []byte(body),
	}
}

func signedGitLab(body string) models.RawWebhook {
	return models.RawWebhook{
		Provider:   models.ProviderGitLab,
		DeliveryID: "delivery-2",
		Headers:    makeHeaders(HeaderGitLabEvent, "Push Hook", HeaderGitLabToken, testGitLabSecret),
		Body:       []byte(body),
	}
}

func TestDispatch_GitHubPushToDev(t *testing.T) {
	tracker := &fakeTracker{}
	fm := newFakeMetrics()
	d := newTestDispatcher(tracker, fullMapping, fm)

	result, err := d.Dispatch(context.Background(), signedGitHub("push", githubPushDev))
	require.NoError(t, err)

	body := "Implement validation #101 #202\n" +
		"https://github.com/acme/api/commit/59b20b8d\n" +
		"+validate.go, ~main.go"
	assert.Equal(t, []trackerCall{
		{Method: "AddComment", IssueID: 101, Body: body},
		{Method: "AddComment", IssueID: 202, Body: body},
		{Method: "SetStatus", IssueID: 101, StatusID: "9"},
		{Method: "SetStatus", IssueID: 202, StatusID: "9"},
	}, tracker.calls)

	assert.Equal(t, models.EventKindPush, result.Kind)
	assert.Equal(t, "delivery-1", result.DeliveryID)
	assert.Len(t, result.Outcomes, 4)
	assert.Zero(t, result.Failed())
	assert.Equal(t, 1, fm.counter("webhook_events_total", map[string]string{"provider": "github", "kind": "push"}))
	assert.Equal(t, 2, fm.counter("issue_actions_total", map[string]string{"provider": "github", "action": "comment", "result": "ok"}))
	assert.Equal(t, 2, fm.counter("issue_actions_total", map[string]string{"provider": "github", "action": "status", "result": "ok"}))
}

func TestDispatch_MissingMappingSkipsStatus(t *testing.T) {
	tracker := &fakeTracker{}
	mapping := models.StatusMapping{models.StatusCompleted: "12"}
	d := newTestDispatcher(tracker, mapping, newFakeMetrics())

	result, err := d.Dispatch(context.Background(), signedGitHub("push", githubPushDev))
	require.NoError(t, err)

	for _, call := range tracker.calls {
		assert.Equal(t, "AddComment", call.Method)
	}
	assert.Len(t, tracker.calls, 2)

	skipped := 0
	for _, o := range result.Outcomes {
		if o.Result == models.ResultSkipped {
			skipped++
			assert.Equal(t, models.StatusTesting, o.StatusKey)
		}
	}
	assert.Equal(t, 2, skipped)
	assert.Zero(t, result.Failed())
}

func TestDispatch_PartialFailureContinues(t *testing.T) {
	tracker := &fakeTracker{
		failComment: map[int]bool{101: true},
		failStatus:  map[int]bool{202: true},
	}
	d := newTestDispatcher(tracker, fullMapping, newFakeMetrics())

	result, err := d.Dispatch(context.Background(), signedGitHub("push", githubPushDev))
	require.NoError(t, err)

	assert.Len(t, tracker.calls, 4)
	assert.Equal(t, 2, result.Failed())

	for _, o := range result.Outcomes {
		switch {
		case o.Action == models.ActionComment && o.IssueID == 101,
			o.Action == models.ActionStatus && o.IssueID == 202:
			assert.Equal(t, models.ResultFailed, o.Result)
			assert.NotEmpty(t, o.Error)
		default:
			assert.Equal(t, models.ResultOK, o.Result)
		}
	}
}

func TestDispatch_OneStatusPerIssue(t *testing.T) {
	body := `{
	  "ref": "refs/heads/main",
	  "commits": [
	    {"id": "a1", "message": "Start #5", "url": "https://example.com/a1"},
	    {"id": "b2", "message": "Nothing to see"},
	    {"id": "c3", "message": "Finish #5 and #6", "url": "https://example.com/c3"}
	  ],
	  "repository": {"full_name": "acme/api"}
	}`
	tracker := &fakeTracker{}
	d := newTestDispatcher(tracker, fullMapping, newFakeMetrics())

	_, err := d.Dispatch(context.Background(), signedGitHub("push", body))
	require.NoError(t, err)

	assert.Equal(t, []trackerCall{
		{Method: "AddComment", IssueID: 5, Body: "Start #5\nhttps://example.com/a1"},
		{Method: "AddComment", IssueID: 5, Body: "Finish #5 and #6\nhttps://example.com/c3"},
		{Method: "AddComment", IssueID: 6, Body: "Finish #5 and #6\nhttps://example.com/c3"},
		{Method: "SetStatus", IssueID: 5, StatusID: "12"},
		{Method: "SetStatus", IssueID: 6, StatusID: "12"},
	}, tracker.calls)
}

func TestDispatch_FeatureBranchPushCommentsOnly(t *testing.T) {
	body := `{"ref":"refs/heads/feature/x","commits":[{"id":"a1","message":"WIP #8"}]}`
	tracker := &fakeTracker{}
	d := newTestDispatcher(tracker, fullMapping, newFakeMetrics())

	_, err := d.Dispatch(context.Background(), signedGitHub("push", body))
	require.NoError(t, err)

	assert.Equal(t, []trackerCall{{Method: "AddComment", IssueID: 8, Body: "WIP #8"}}, tracker.calls)
}

func TestDispatch_GitHubBranchCreate(t *testing.T) {
	tracker := &fakeTracker{}
	d := newTestDispatcher(tracker, fullMapping, newFakeMetrics())

	result, err := d.Dispatch(context.Background(), signedGitHub("push", githubBranchCreated))
	require.NoError(t, err)

	assert.Equal(t, models.EventKindBranchCreate, result.Kind)
	assert.Equal(t, []trackerCall{
		{Method: "AddComment", IssueID: 123, Body: "Branch feature/123-login was created in acme/api."},
		{Method: "SetStatus", IssueID: 123, StatusID: "7"},
	}, tracker.calls)
}

func TestDispatch_GitLabPushToMain(t *testing.T) {
	tracker := &fakeTracker{}
	d := newTestDispatcher(tracker, fullMapping, newFakeMetrics())

	result, err := d.Dispatch(context.Background(), signedGitLab(gitlabPushMain))
	require.NoError(t, err)

	assert.Equal(t, models.EventKindPush, result.Kind)
	assert.Equal(t, []trackerCall{
		{Method: "AddComment", IssueID: 77, Body: "Fix checkout #77\nhttps://gitlab.com/acme/web/-/commit/b6568db1\n~cart.go, -legacy.go"},
		{Method: "SetStatus", IssueID: 77, StatusID: "12"},
	}, tracker.calls)
}

func TestDispatch_GitLabBranchCreate(t *testing.T) {
	tracker := &fakeTracker{}
	d := newTestDispatcher(tracker, fullMapping, newFakeMetrics())

	_, err := d.Dispatch(context.Background(), signedGitLab(gitlabBranchCreated))
	require.NoError(t, err)

	assert.Equal(t, []trackerCall{
		{Method: "AddComment", IssueID: 55, Body: "Branch bugfix_55_cart was created in acme/web."},
		{Method: "SetStatus", IssueID: 55, StatusID: "7"},
	}, tracker.calls)
}

func TestDispatch_AuthFailure(t *testing.T) {
	tests := []struct {
		name string
		raw  models.RawWebhook
	}{
		{
			name: "bad github signature",
			raw: models.RawWebhook{
				Provider: models.ProviderGitHub,
				Headers:  makeHeaders(HeaderGitHubEvent, "push", HeaderGitHubSignature, SignGitHubPayload([]byte(githubPushDev), "wrong")),
				Body:     []byte(githubPushDev),
			},
		},
		{
			name: "missing github signature",
			raw: models.RawWebhook{
				Provider: models.ProviderGitHub,
				Headers:  makeHeaders(HeaderGitHubEvent, "push"),
				Body:     []byte(githubPushDev),
			},
		},
		{
			name: "bad gitlab token",
			raw: models.RawWebhook{
				Provider: models.ProviderGitLab,
				Headers:  makeHeaders(HeaderGitLabEvent, "Push Hook", HeaderGitLabToken, "nope"),
				Body:     []byte(gitlabPushMain),
			},
		},
		{
			name: "unverified malformed body is not parsed",
			raw: models.RawWebhook{
				Provider: models.ProviderGitHub,
				Headers:  makeHeaders(HeaderGitHubEvent, "push"),
				Body:     []byte(`{not json`),
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tracker := &fakeTracker{}
			fm := newFakeMetrics()
			d := newTestDispatcher(tracker, fullMapping, fm)

			result, err := d.Dispatch(context.Background(), tt.raw)
			require.Error(t, err)
			assert.Nil(t, result)
			assert.True(t, pkgerrors.IsType(err, pkgerrors.ErrorTypeUnauthorized))
			assert.Empty(t, tracker.calls)
			assert.Equal(t, 1, fm.counter("webhook_events_total", map[string]string{
				"provider": string(tt.raw.Provider),
				"kind":     "rejected_auth",
			}))
		})
	}
}

func TestDispatch_EmptySecretRejectsEverything(t *testing.T) {
	tracker := &fakeTracker{}
	d := NewDispatcher(Secrets{}, staticMappings{mapping: fullMapping}, tracker, time.Second, logger.NewNop(), newFakeMetrics())

	raw := signedGitHub("push", githubPushDev)
	raw.Headers = makeHeaders(HeaderGitHubEvent, "push", HeaderGitHubSignature, SignGitHubPayload(raw.Body, ""))

	_, err := d.Dispatch(context.Background(), raw)
	require.Error(t, err)
	assert.Empty(t, tracker.calls)
}

func TestDispatch_ParseFailure(t *testing.T) {
	tracker := &fakeTracker{}
	d := newTestDispatcher(tracker, fullMapping, newFakeMetrics())

	result, err := d.Dispatch(context.Background(), signedGitHub("push", `{"commits":[]}`))
	require.Error(t, err)
	assert.Nil(t, result)
	assert.True(t, pkgerrors.IsType(err, pkgerrors.ErrorTypeParse))
	assert.Empty(t, tracker.calls)
}

func TestDispatch_PingAndIgnored(t *testing.T) {
	tests := []struct {
		name     string
		raw      models.RawWebhook
		wantKind models.EventKind
	}{
		{"ping", signedGitHub("ping", `{"zen":"Speak like a human."}`), models.EventKindPong},
		{"unsupported event", signedGitHub("issues", `{"action":"opened"}`), models.EventKindIgnored},
		{"tag push", signedGitHub("push", `{"ref":"refs/tags/v1","created":true,"commits":[]}`), models.EventKindIgnored},
		{"unknown provider", models.RawWebhook{Provider: "bitbucket", Body: []byte(`{}`)}, models.EventKindIgnored},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tracker := &fakeTracker{}
			d := newTestDispatcher(tracker, fullMapping, newFakeMetrics())

			result, err := d.Dispatch(context.Background(), tt.raw)
			require.NoError(t, err)
			assert.Equal(t, tt.wantKind, result.Kind)
			assert.Empty(t, result.Outcomes)
			assert.Empty(t, tracker.calls)
		})
	}
}

func TestDispatch_NoIssueReferenced(t *testing.T) {
	body := `{"ref":"refs/heads/dev","commits":[{"id":"a1","message":"Refactor logging"}]}`
	tracker := &fakeTracker{}
	d := newTestDispatcher(tracker, fullMapping, newFakeMetrics())

	result, err := d.Dispatch(context.Background(), signedGitHub("push", body))
	require.NoError(t, err)
	assert.Equal(t, models.EventKindPush, result.Kind)
	assert.Empty(t, tracker.calls)
	assert.Empty(t, result.Outcomes)
}
