package models

// GitHubPushPayload represents the GitHub push webhook payload
type GitHubPushPayload struct {
	Ref        string           `json:"ref" validate:"required"`
	Before     string           `json:"before"`
	After      string           `json:"after"`
	Created    bool             `json:"created"`
	Deleted    bool             `json:"deleted"`
	Forced     bool             `json:"forced"`
	Commits    []GitHubCommit   `json:"commits" validate:"dive"`
	HeadCommit *GitHubCommit    `json:"head_commit,omitempty"`
	Repository GitHubRepository `json:"repository"`
	Pusher     GitHubCommitUser `json:"pusher"`
	Sender     User             `json:"sender"`
}

// GitHubCommit represents a commit inside a push payload
type GitHubCommit struct {
	ID        string           `json:"id" validate:"required"`
	Message   string           `json:"message"`
	Timestamp string           `json:"timestamp"`
	URL       string           `json:"url"`
	Author    GitHubCommitUser `json:"author"`
	Added     []string         `json:"added"`
	Modified  []string         `json:"modified"`
	Removed   []string         `json:"removed"`
}

// GitHubCommitUser is the git identity attached to a commit or push
type GitHubCommitUser struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Username string `json:"username,omitempty"`
}

// GitHubRepository represents a GitHub repository
type GitHubRepository struct {
	ID            int    `json:"id"`
	Name          string `json:"name"`
	FullName      string `json:"full_name"`
	Owner         User   `json:"owner"`
	HTMLURL       string `json:"html_url"`
	DefaultBranch string `json:"default_branch"`
	MasterBranch  string `json:"master_branch,omitempty"`
}

// User represents a GitHub user
type User struct {
	ID        int    `json:"id"`
	Login     string `json:"login"`
	AvatarURL string `json:"avatar_url"`
	HTMLURL   string `json:"html_url"`
}
