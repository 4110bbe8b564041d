package main

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/justmike1/jenkinsbot/commands"
	"github.com/justmike1/jenkinsbot/jenkins"
	botslack "github.com/justmike1/jenkinsbot/slack"
)

const statusTimeout = 5 * time.Second

type jenkinsIdentity interface {
	BaseURL() string
	GetCurrentUser(ctx context.Context) (*jenkins.User, error)
}

type slackIdentity interface {
	Identity(ctx context.Context) (*botslack.Identity, error)
}

// statusHandler reports which Jenkins user and Slack workspace the bot is
// running as. Lookup failures are reported in the body, not as HTTP errors.
type statusHandler struct {
	jenkins         jenkinsIdentity
	slack           slackIdentity
	socketConnected func() bool
}

type statusResponse struct {
	Jenkins    jenkinsStatus `json:"jenkins"`
	Slack      slackStatus   `json:"slack"`
	SocketMode *bool         `json:"socket_mode_connected,omitempty"`
	Commands   []string      `json:"commands"`
}

type jenkinsStatus struct {
	URL   string `json:"url"`
	User  string `json:"user,omitempty"`
	Error string `json:"error,omitempty"`
}

type slackStatus struct {
	Team      string `json:"team,omitempty"`
	TeamURL   string `json:"team_url,omitempty"`
	BotUserID string `json:"bot_user_id,omitempty"`
	Error     string `json:"error,omitempty"`
}

func (h *statusHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), statusTimeout)
	defer cancel()

	resp := statusResponse{
		Jenkins:  jenkinsStatus{URL: h.jenkins.BaseURL()},
		Commands: []string{commands.CommandInfo, commands.CommandLog, commands.CommandHelp},
	}

	if user, err := h.jenkins.GetCurrentUser(ctx); err != nil {
		resp.Jenkins.Error = err.Error()
	} else {
		resp.Jenkins.User = user.FullName
	}

	if id, err := h.slack.Identity(ctx); err != nil {
		resp.Slack.Error = err.Error()
	} else {
		resp.Slack = slackStatus{Team: id.Team, TeamURL: id.TeamURL, BotUserID: id.BotUserID}
	}

	if h.socketConnected != nil {
		connected := h.socketConnected()
		resp.SocketMode = &connected
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}
