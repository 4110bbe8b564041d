package jenkins

// Job is the subset of /job/{name}/api/json used by the bot.
type Job struct {
	Name        string    `json:"name"`
	DisplayName string    `json:"displayName"`
	Description string    `json:"description"`
	URL         string    `json:"url"`
	Buildable   bool      `json:"buildable"`
	LastBuild   *BuildRef `json:"lastBuild"`
}

// BuildRef is the {number, url} pair Jenkins uses to point at a build.
type BuildRef struct {
	Number int64  `json:"number"`
	URL    string `json:"url"`
}

// Build is the subset of /job/{name}/{number}/api/json used by the bot.
// Result is empty while the build is still running.
type Build struct {
	Number    int64  `json:"number"`
	Result    string `json:"result"`
	Building  bool   `json:"building"`
	Duration  int64  `json:"duration"`  // milliseconds
	Timestamp int64  `json:"timestamp"` // milliseconds since epoch
	URL       string `json:"url"`
}

// User is the identity behind the configured API token.
type User struct {
	ID       string `json:"id"`
	FullName string `json:"fullName"`
}

// meResponse covers both the plain /me payload and the wrapped {"user": {...}} form.
type meResponse struct {
	ID       string `json:"id"`
	FullName string `json:"fullName"`
	User     *User  `json:"user"`
}
