package commands

import (
	"context"
	"log"
	"strings"

	"github.com/justmike1/jenkinsbot/format"
	"github.com/justmike1/jenkinsbot/messages"
	slacklib "github.com/slack-go/slack"
)

const (
	CommandInfo = "/jenkins-info"
	CommandLog  = "/jenkins-log"
	CommandHelp = "/jenkins-help"

	// CallbackLog correlates the build-number modal with its submission.
	CallbackLog = "jenkins_log"
)

const (
	defaultLogPageSize = 3000
	defaultLogMaxPages = 5
)

// Options carries the optional knobs of a Router.
type Options struct {
	// Admins is the administrator allow-list. It is reported in logs only;
	// no command is restricted to it.
	Admins      []string
	LogPageSize int
	LogMaxPages int
}

// Router dispatches Slack commands and view submissions to their handlers.
// It holds no per-request state and is safe for concurrent use.
type Router struct {
	slackClient SlackClient
	jenkins     JenkinsClient
	stamps      *format.Timestamper
	msgs        *messages.Catalog
	admins      map[string]bool
	logPageSize int
	logMaxPages int
}

func NewRouter(slackClient SlackClient, jenkinsClient JenkinsClient, stamps *format.Timestamper, msgs *messages.Catalog, opts Options) *Router {
	admins := make(map[string]bool, len(opts.Admins))
	for _, id := range opts.Admins {
		admins[id] = true
	}
	if opts.LogPageSize <= 0 {
		opts.LogPageSize = defaultLogPageSize
	}
	if opts.LogMaxPages <= 0 {
		opts.LogMaxPages = defaultLogMaxPages
	}
	if stamps == nil {
		stamps = format.NewTimestamper(nil, "")
	}
	if msgs == nil {
		msgs = messages.Default()
	}
	return &Router{
		slackClient: slackClient,
		jenkins:     jenkinsClient,
		stamps:      stamps,
		msgs:        msgs,
		admins:      admins,
		logPageSize: opts.LogPageSize,
		logMaxPages: opts.LogMaxPages,
	}
}

// IsAdmin reports whether userID is on the administrator allow-list.
func (r *Router) IsAdmin(userID string) bool {
	return r.admins[userID]
}

// AckText is the immediate reply Slack shows while a command runs. The log
// command answers with a modal instead, so it acks silently.
func (r *Router) AckText(cmd slacklib.SlashCommand) string {
	if cmd.Command == CommandInfo {
		return r.msgs.Get("ack")
	}
	return ""
}

// HandleCommand runs a slash command to completion. Any failure is logged and
// reported to the invoking user as an ephemeral message.
func (r *Router) HandleCommand(cmd slacklib.SlashCommand) {
	ctx := context.Background()
	req := Request{
		Command:   cmd.Command,
		ChannelID: cmd.ChannelID,
		UserID:    cmd.UserID,
		Text:      strings.TrimSpace(cmd.Text),
		TriggerID: cmd.TriggerID,
	}

	log.Printf("[user=%s channel=%s admin=%t] %s %q", req.UserID, req.ChannelID, r.IsAdmin(req.UserID), req.Command, req.Text)

	var err error
	switch req.Command {
	case CommandInfo:
		if req.Text == "" {
			r.reply(ctx, req.ChannelID, req.UserID, r.msgs.Get("usage_info"), true)
			return
		}
		handler := &InfoHandler{slackClient: r.slackClient, jenkins: r.jenkins, stamps: r.stamps, msgs: r.msgs}
		err = handler.Execute(ctx, req)

	case CommandLog:
		if req.Text == "" {
			r.reply(ctx, req.ChannelID, req.UserID, r.msgs.Get("usage_log"), true)
			return
		}
		handler := &LogHandler{slackClient: r.slackClient, msgs: r.msgs}
		err = handler.Execute(ctx, req)

	case CommandHelp:
		r.reply(ctx, req.ChannelID, req.UserID, r.msgs.Get("help"), true)
		return

	default:
		r.reply(ctx, req.ChannelID, req.UserID, r.msgs.Format("unknown_command", req.Command), true)
		return
	}

	if err != nil {
		r.replyError(ctx, req.ChannelID, req.UserID, err)
	}
}

// ValidateViewSubmission checks a modal submission before Slack closes the modal.
func (r *Router) ValidateViewSubmission(cb slacklib.InteractionCallback) map[string]string {
	if cb.View.CallbackID != CallbackLog {
		return nil
	}
	return r.logSubmissionHandler().Validate(cb)
}

// HandleViewSubmission runs the continuation of a submitted modal.
func (r *Router) HandleViewSubmission(cb slacklib.InteractionCallback) {
	ctx := context.Background()

	switch cb.View.CallbackID {
	case CallbackLog:
		h := r.logSubmissionHandler()
		sub, err := h.Parse(cb)
		if err != nil {
			log.Printf("[user=%s] invalid %s submission: %v", cb.User.ID, CallbackLog, err)
			r.replyError(ctx, "", cb.User.ID, err)
			return
		}
		log.Printf("[user=%s channel=%s admin=%t] %s job=%q build=%d",
			sub.UserID, sub.ChannelID, r.IsAdmin(sub.UserID), CallbackLog, sub.Job, sub.Build)
		if err := h.Execute(ctx, sub); err != nil {
			r.replyError(ctx, sub.ChannelID, sub.UserID, err)
		}
	default:
		log.Printf("[user=%s] view submission with unknown callback %q ignored", cb.User.ID, cb.View.CallbackID)
	}
}

// HandleMention answers an @-mention of the bot with the usage text.
func (r *Router) HandleMention(channelID, userID, text string) {
	r.reply(context.Background(), channelID, userID, r.msgs.Get("help"), false)
}

func (r *Router) logSubmissionHandler() *LogSubmissionHandler {
	return &LogSubmissionHandler{
		slackClient: r.slackClient,
		jenkins:     r.jenkins,
		msgs:        r.msgs,
		pageSize:    r.logPageSize,
		maxPages:    r.logMaxPages,
	}
}

func (r *Router) replyError(ctx context.Context, channelID, userID string, err error) {
	log.Printf("[user=%s channel=%s] unexpected error: %v", userID, channelID, err)
	r.reply(ctx, channelID, userID, r.msgs.Format("error", err.Error()), true)
}

// reply sends text to the user. Without a channel the message goes to the
// user's direct-message conversation with the bot.
func (r *Router) reply(ctx context.Context, channelID, userID, text string, ephemeral bool) {
	if channelID == "" {
		channelID, ephemeral = userID, false
	}
	if err := r.slackClient.SendMessage(ctx, channelID, text, userID, ephemeral); err != nil {
		log.Printf("[user=%s channel=%s] failed to send reply: %v", userID, channelID, err)
	}
}
