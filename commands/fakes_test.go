package commands

import (
	"context"
	"sync"

	"github.com/justmike1/jenkinsbot/jenkins"
	botslack "github.com/justmike1/jenkinsbot/slack"
	"github.com/stretchr/testify/mock"
)

type sentMessage struct {
	ChannelID string
	Text      string
	UserID    string
	Ephemeral bool
}

type openedModal struct {
	TriggerID string
	Modal     botslack.Modal
}

// captureSlack records everything the handlers send to Slack.
type captureSlack struct {
	mu       sync.Mutex
	messages []sentMessage
	modals   []openedModal
	sendErr  error
	modalErr error
}

func (c *captureSlack) SendMessage(_ context.Context, channelID, text, userID string, ephemeral bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.messages = append(c.messages, sentMessage{ChannelID: channelID, Text: text, UserID: userID, Ephemeral: ephemeral})
	return c.sendErr
}

func (c *captureSlack) OpenModal(_ context.Context, triggerID string, modal botslack.Modal) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.modals = append(c.modals, openedModal{TriggerID: triggerID, Modal: modal})
	return c.modalErr
}

type mockJenkins struct {
	mock.Mock
}

func (m *mockJenkins) GetCurrentUser(ctx context.Context) (*jenkins.User, error) {
	args := m.Called(ctx)
	user, _ := args.Get(0).(*jenkins.User)
	return user, args.Error(1)
}

func (m *mockJenkins) GetJob(ctx context.Context, jobName string) (*jenkins.Job, error) {
	args := m.Called(ctx, jobName)
	job, _ := args.Get(0).(*jenkins.Job)
	return job, args.Error(1)
}

func (m *mockJenkins) GetBuild(ctx context.Context, jobName string, number int64) (*jenkins.Build, error) {
	args := m.Called(ctx, jobName, number)
	build, _ := args.Get(0).(*jenkins.Build)
	return build, args.Error(1)
}

func (m *mockJenkins) GetConsoleLog(ctx context.Context, jobName string, number int64) (string, error) {
	args := m.Called(ctx, jobName, number)
	return args.String(0), args.Error(1)
}
