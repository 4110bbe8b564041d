package slack

import (
	"errors"
	"fmt"
	"unicode/utf8"

	"github.com/slack-go/slack"
)

// Slack rejects views that exceed these limits.
const (
	maxTitleLen           = 24
	maxPrivateMetadataLen = 3000
)

var (
	ErrNoTitle      = errors.New("modal needs a title")
	ErrNoCallbackID = errors.New("modal needs a callback id")
	ErrNoElements   = errors.New("modal needs at least one element")
)

// Element is one block of a modal. The set of implementations is closed:
// Section and TextInput.
type Element interface {
	block() (slack.Block, error)
}

// Section is a markdown text block.
type Section struct {
	Text string
}

func (s Section) block() (slack.Block, error) {
	if s.Text == "" {
		return nil, errors.New("section text is empty")
	}
	return slack.NewSectionBlock(
		slack.NewTextBlockObject(slack.MarkdownType, s.Text, false, false),
		nil,
		nil,
	), nil
}

// TextInput is a single-line plain text input. Its value is reported back in
// view.state.values[BlockID][ActionID].
type TextInput struct {
	BlockID     string
	ActionID    string
	Label       string
	Placeholder string
	Optional    bool
}

func (in TextInput) block() (slack.Block, error) {
	if in.BlockID == "" || in.ActionID == "" {
		return nil, fmt.Errorf("input %q needs block and action ids", in.Label)
	}
	if in.Label == "" {
		return nil, fmt.Errorf("input %s needs a label", in.BlockID)
	}

	var placeholder *slack.TextBlockObject
	if in.Placeholder != "" {
		placeholder = slack.NewTextBlockObject(slack.PlainTextType, in.Placeholder, false, false)
	}
	block := slack.NewInputBlock(
		in.BlockID,
		slack.NewTextBlockObject(slack.PlainTextType, in.Label, false, false),
		nil,
		slack.NewPlainTextInputBlockElement(placeholder, in.ActionID),
	)
	block.Optional = in.Optional
	return block, nil
}

// Modal describes a submission dialog. Submit and Close default to
// "Submit" and "Cancel".
type Modal struct {
	Title           string
	CallbackID      string
	PrivateMetadata string
	Submit          string
	Close           string
	Elements        []Element
}

// Build validates the modal and converts it to a views.open request.
// Titles over Slack's limit are shortened rather than rejected.
func (m Modal) Build() (slack.ModalViewRequest, error) {
	if m.Title == "" {
		return slack.ModalViewRequest{}, ErrNoTitle
	}
	if m.CallbackID == "" {
		return slack.ModalViewRequest{}, ErrNoCallbackID
	}
	if len(m.Elements) == 0 {
		return slack.ModalViewRequest{}, ErrNoElements
	}
	if len(m.PrivateMetadata) > maxPrivateMetadataLen {
		return slack.ModalViewRequest{}, fmt.Errorf("private metadata is %d bytes, limit is %d", len(m.PrivateMetadata), maxPrivateMetadataLen)
	}

	blocks := make([]slack.Block, 0, len(m.Elements))
	for i, el := range m.Elements {
		b, err := el.block()
		if err != nil {
			return slack.ModalViewRequest{}, fmt.Errorf("element %d: %w", i, err)
		}
		blocks = append(blocks, b)
	}

	submit, closeText := m.Submit, m.Close
	if submit == "" {
		submit = "Submit"
	}
	if closeText == "" {
		closeText = "Cancel"
	}

	return slack.ModalViewRequest{
		Type:            slack.VTModal,
		Title:           plainText(m.Title),
		Blocks:          slack.Blocks{BlockSet: blocks},
		Submit:          plainText(submit),
		Close:           plainText(closeText),
		CallbackID:      m.CallbackID,
		PrivateMetadata: m.PrivateMetadata,
	}, nil
}

func plainText(s string) *slack.TextBlockObject {
	return slack.NewTextBlockObject(slack.PlainTextType, shorten(s, maxTitleLen), false, false)
}

func shorten(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	return string([]rune(s)[:max-1]) + "…"
}
