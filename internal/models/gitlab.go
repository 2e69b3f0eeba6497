package models

// GitLabPushPayload represents the GitLab "Push Hook" payload
type GitLabPushPayload struct {
	ObjectKind        string         `json:"object_kind" validate:"required"`
	EventName         string         `json:"event_name"`
	Before            string         `json:"before"`
	After             string         `json:"after"`
	Ref               string         `json:"ref" validate:"required"`
	CheckoutSHA       string         `json:"checkout_sha"`
	UserName          string         `json:"user_name"`
	UserUsername      string         `json:"user_username"`
	Project           GitLabProject  `json:"project"`
	Commits           []GitLabCommit `json:"commits" validate:"dive"`
	TotalCommitsCount int            `json:"total_commits_count"`
}

// GitLabProject is the project block of a GitLab hook
type GitLabProject struct {
	ID                int    `json:"id"`
	Name              string `json:"name"`
	PathWithNamespace string `json:"path_with_namespace"`
	WebURL            string `json:"web_url"`
	DefaultBranch     string `json:"default_branch"`
}

// GitLabCommit represents a commit inside a push payload
type GitLabCommit struct {
	ID        string       `json:"id" validate:"required"`
	Message   string       `json:"message"`
	Title     string       `json:"title"`
	Timestamp string       `json:"timestamp"`
	URL       string       `json:"url"`
	WebURL    string       `json:"web_url,omitempty"`
	Author    GitLabAuthor `json:"author"`
	Added     []string     `json:"added"`
	Modified  []string     `json:"modified"`
	Removed   []string     `json:"removed"`
}

// GitLabAuthor is the git identity attached to a commit
type GitLabAuthor struct {
	Name     string `json:"name"`
	Username string `json:"username,omitempty"`
	Email    string `json:"email"`
}
