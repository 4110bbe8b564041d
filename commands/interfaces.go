package commands

import (
	"context"

	"github.com/justmike1/jenkinsbot/jenkins"
	botslack "github.com/justmike1/jenkinsbot/slack"
)

type SlackClient interface {
	SendMessage(ctx context.Context, channelID, text, userID string, ephemeral bool) error
	OpenModal(ctx context.Context, triggerID string, modal botslack.Modal) error
}

type JenkinsClient interface {
	GetCurrentUser(ctx context.Context) (*jenkins.User, error)
	GetJob(ctx context.Context, jobName string) (*jenkins.Job, error)
	GetBuild(ctx context.Context, jobName string, number int64) (*jenkins.Build, error)
	GetConsoleLog(ctx context.Context, jobName string, number int64) (string, error)
}

// Request is the part of an inbound slash command the handlers act on.
type Request struct {
	Command   string
	ChannelID string
	UserID    string
	Text      string
	TriggerID string
}
