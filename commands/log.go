package commands

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/justmike1/jenkinsbot/format"
	"github.com/justmike1/jenkinsbot/messages"
	botslack "github.com/justmike1/jenkinsbot/slack"
	slacklib "github.com/slack-go/slack"
)

// Block and action id of the build number input in the log modal.
const buildNumberID = "build_number"

var errInvalidBuildNumber = errors.New("invalid build number")

// logRequest travels through the modal's private metadata so the submission
// knows which job was asked for and where to answer.
type logRequest struct {
	Job       string `json:"job"`
	ChannelID string `json:"channel_id"`
}

// LogHandler asks for a build number with a modal.
type LogHandler struct {
	slackClient SlackClient
	msgs        *messages.Catalog
}

func (h *LogHandler) Execute(ctx context.Context, req Request) error {
	metadata, err := json.Marshal(logRequest{Job: req.Text, ChannelID: req.ChannelID})
	if err != nil {
		return fmt.Errorf("failed to encode modal metadata: %w", err)
	}
	return h.slackClient.OpenModal(ctx, req.TriggerID, h.modal(req.Text, string(metadata)))
}

func (h *LogHandler) modal(jobName, metadata string) botslack.Modal {
	return botslack.Modal{
		Title:           h.msgs.Format("log_modal_title", jobName),
		CallbackID:      CallbackLog,
		PrivateMetadata: metadata,
		Elements: []botslack.Element{
			botslack.Section{Text: h.msgs.Get("log_modal_intro")},
			botslack.TextInput{
				BlockID:     buildNumberID,
				ActionID:    buildNumberID,
				Label:       h.msgs.Get("log_build_number_label"),
				Placeholder: h.msgs.Get("log_build_number_placeholder"),
			},
		},
	}
}

// LogSubmission is a validated submission of the log modal.
type LogSubmission struct {
	Job       string
	Build     int64
	ChannelID string
	UserID    string
}

// LogSubmissionHandler fetches the console log for a submitted build number
// and sends it to the submitter in pages.
type LogSubmissionHandler struct {
	slackClient SlackClient
	jenkins     JenkinsClient
	msgs        *messages.Catalog
	pageSize    int
	maxPages    int
}

// Validate returns an error for the build number input when it is not a
// positive integer, which keeps the modal open.
func (h *LogSubmissionHandler) Validate(cb slacklib.InteractionCallback) map[string]string {
	if _, err := parseBuildNumber(submittedValue(cb, buildNumberID, buildNumberID)); err != nil {
		return map[string]string{buildNumberID: h.msgs.Get("log_invalid_build_number")}
	}
	return nil
}

// Parse extracts the job, build number and reply channel from a submission.
func (h *LogSubmissionHandler) Parse(cb slacklib.InteractionCallback) (LogSubmission, error) {
	var req logRequest
	if err := json.Unmarshal([]byte(cb.View.PrivateMetadata), &req); err != nil {
		return LogSubmission{}, fmt.Errorf("failed to decode modal metadata: %w", err)
	}
	if req.Job == "" {
		return LogSubmission{}, errors.New("modal metadata has no job name")
	}

	number, err := parseBuildNumber(submittedValue(cb, buildNumberID, buildNumberID))
	if err != nil {
		return LogSubmission{}, err
	}

	return LogSubmission{
		Job:       req.Job,
		Build:     number,
		ChannelID: req.ChannelID,
		UserID:    cb.User.ID,
	}, nil
}

func (h *LogSubmissionHandler) Execute(ctx context.Context, sub LogSubmission) error {
	raw, err := h.jenkins.GetConsoleLog(ctx, sub.Job, sub.Build)
	if err != nil {
		return err
	}

	pages := format.PageLog(format.SanitizeLog(raw), h.pageSize, h.maxPages)
	if len(pages.Pages) == 0 {
		return h.send(ctx, sub, h.msgs.Format("log_empty", sub.Job, sub.Build))
	}

	header := h.msgs.Format("log_header", sub.Job, sub.Build)
	if pages.Truncated {
		header += "\n" + h.msgs.Format("log_truncated", len(pages.Pages), pages.Total)
	}
	if err := h.send(ctx, sub, header); err != nil {
		return err
	}

	for _, page := range pages.Pages {
		if err := h.send(ctx, sub, codeBlock(page)); err != nil {
			return err
		}
	}
	return nil
}

// send delivers to the submitter only. Submissions without a channel fall
// back to the user's direct-message conversation.
func (h *LogSubmissionHandler) send(ctx context.Context, sub LogSubmission, text string) error {
	if sub.ChannelID == "" {
		return h.slackClient.SendMessage(ctx, sub.UserID, text, sub.UserID, false)
	}
	return h.slackClient.SendMessage(ctx, sub.ChannelID, text, sub.UserID, true)
}

func submittedValue(cb slacklib.InteractionCallback, blockID, actionID string) string {
	if cb.View.State == nil {
		return ""
	}
	return cb.View.State.Values[blockID][actionID].Value
}

func parseBuildNumber(s string) (int64, error) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "#")
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("%w: %q", errInvalidBuildNumber, s)
	}
	return n, nil
}

// codeBlock fences text, breaking up any fence inside it.
func codeBlock(text string) string {
	return "```\n" + strings.ReplaceAll(text, "```", "`\u200b``") + "\n```"
}
