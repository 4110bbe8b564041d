package slack

import (
	"context"
	"fmt"

	"github.com/slack-go/slack"
)

// Client is the bot's gateway to the Slack Web API.
type Client struct {
	api *slack.Client
}

// Identity describes the workspace and bot user behind the token.
type Identity struct {
	TeamURL   string `json:"team_url"`
	Team      string `json:"team"`
	BotUserID string `json:"bot_user_id"`
}

func NewClient(botToken string, opts ...slack.Option) *Client {
	return &Client{api: slack.New(botToken, opts...)}
}

func (c *Client) PostMessage(ctx context.Context, channelID, text string) (string, error) {
	_, ts, err := c.api.PostMessageContext(ctx, channelID, slack.MsgOptionText(text, false))
	if err != nil {
		return "", fmt.Errorf("failed to post message: %w", err)
	}
	return ts, nil
}

func (c *Client) PostEphemeral(ctx context.Context, channelID, userID, text string) error {
	_, err := c.api.PostEphemeralContext(ctx, channelID, userID, slack.MsgOptionText(text, false))
	if err != nil {
		return fmt.Errorf("failed to post ephemeral message: %w", err)
	}
	return nil
}

// SendMessage posts text to the whole channel, or only to userID within the
// channel when ephemeral is set.
func (c *Client) SendMessage(ctx context.Context, channelID, text, userID string, ephemeral bool) error {
	if ephemeral {
		return c.PostEphemeral(ctx, channelID, userID, text)
	}
	_, err := c.PostMessage(ctx, channelID, text)
	return err
}

// OpenModal validates the modal and opens it for the given trigger.
func (c *Client) OpenModal(ctx context.Context, triggerID string, modal Modal) error {
	view, err := modal.Build()
	if err != nil {
		return fmt.Errorf("invalid modal: %w", err)
	}
	if _, err := c.api.OpenViewContext(ctx, triggerID, view); err != nil {
		return fmt.Errorf("failed to open modal: %w", err)
	}
	return nil
}

// Identity calls auth.test to report which workspace and bot the token belongs to.
func (c *Client) Identity(ctx context.Context) (*Identity, error) {
	resp, err := c.api.AuthTestContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to call auth.test: %w", err)
	}
	return &Identity{TeamURL: resp.URL, Team: resp.Team, BotUserID: resp.UserID}, nil
}
