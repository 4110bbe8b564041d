package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/justmike1/jenkinsbot/format"
	"github.com/justmike1/jenkinsbot/jenkins"
	"github.com/justmike1/jenkinsbot/messages"
)

// InfoHandler posts a job's details and its last build to the channel.
type InfoHandler struct {
	slackClient SlackClient
	jenkins     JenkinsClient
	stamps      *format.Timestamper
	msgs        *messages.Catalog
}

func (h *InfoHandler) Execute(ctx context.Context, req Request) error {
	jobName := req.Text

	user, err := h.jenkins.GetCurrentUser(ctx)
	if err != nil {
		return err
	}

	job, err := h.jenkins.GetJob(ctx, jobName)
	if err != nil {
		return err
	}
	if job.LastBuild == nil {
		return fmt.Errorf("%s: %w", jobName, jenkins.ErrNoBuilds)
	}

	build, err := h.jenkins.GetBuild(ctx, jobName, job.LastBuild.Number)
	if err != nil {
		return err
	}

	text := h.render(jobName, user, job, build)
	return h.slackClient.SendMessage(ctx, req.ChannelID, text, req.UserID, false)
}

func (h *InfoHandler) render(jobName string, user *jenkins.User, job *jenkins.Job, build *jenkins.Build) string {
	description := job.Description
	if strings.TrimSpace(description) == "" {
		description = "(none)"
	}

	var sb strings.Builder
	sb.WriteString(h.msgs.Format("info_header", jobName))
	sb.WriteString("\n")
	fmt.Fprintf(&sb, "- Jenkins Username: %s\n", user.FullName)
	fmt.Fprintf(&sb, "- Job Name: %s\n", job.DisplayName)
	fmt.Fprintf(&sb, "- Job Description: %s\n", description)
	fmt.Fprintf(&sb, "- Job URL: %s\n", job.URL)
	fmt.Fprintf(&sb, "- Last Build Number: %d\n", build.Number)
	fmt.Fprintf(&sb, "- Last Build Result: %s\n", format.Result(build.Result))
	fmt.Fprintf(&sb, "- Last Build Duration: %s\n", format.Duration(build.Duration))
	fmt.Fprintf(&sb, "- Last Build Timestamp: %s", h.stamps.Format(build.Timestamp))
	return sb.String()
}
