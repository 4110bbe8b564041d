package slack

import (
	"bytes"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/url"

	slacklib "github.com/slack-go/slack"
)

// maxBodyBytes bounds the request body read before signature verification.
const maxBodyBytes = 1 << 20

// Dispatcher receives verified Slack payloads from a transport. HandleCommand,
// HandleViewSubmission and HandleMention run after Slack has been acknowledged.
type Dispatcher interface {
	// AckText is the immediate response body for a slash command; "" acks silently.
	AckText(cmd slacklib.SlashCommand) string
	HandleCommand(cmd slacklib.SlashCommand)
	// ValidateViewSubmission returns per-block errors that keep the modal open.
	ValidateViewSubmission(cb slacklib.InteractionCallback) map[string]string
	HandleViewSubmission(cb slacklib.InteractionCallback)
	HandleMention(channelID, userID, text string)
}

// Handler serves Slack's HTTP request URLs. Slash commands and interactivity
// payloads can point at the same endpoint.
type Handler struct {
	signingSecret string
	dispatcher    Dispatcher
}

func NewHandler(signingSecret string, dispatcher Dispatcher) *Handler {
	return &Handler{
		signingSecret: signingSecret,
		dispatcher:    dispatcher,
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	verifier, err := slacklib.NewSecretsVerifier(r.Header, h.signingSecret)
	if err != nil {
		log.Printf("[http] failed to create secrets verifier: %v", err)
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		log.Printf("[http] failed to read body: %v", err)
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	if _, err := verifier.Write(body); err != nil {
		log.Printf("[http] failed to hash body: %v", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	if err := verifier.Ensure(); err != nil {
		log.Printf("[http] signature verification failed: %v", err)
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	form, err := url.ParseQuery(string(body))
	if err != nil {
		log.Printf("[http] failed to parse form: %v", err)
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}

	if payload := form.Get("payload"); payload != "" {
		h.serveInteraction(w, payload)
		return
	}

	r.Body = io.NopCloser(bytes.NewReader(body))
	cmd, err := slacklib.SlashCommandParse(r)
	if err != nil {
		log.Printf("[http] failed to parse slash command: %v", err)
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}

	log.Printf("[http] slash command: command=%s channel=%s user=%s text=%q",
		cmd.Command, cmd.ChannelID, cmd.UserID, truncate(cmd.Text, 80))

	w.WriteHeader(http.StatusOK)
	if ack := h.dispatcher.AckText(cmd); ack != "" {
		_, _ = w.Write([]byte(ack))
	}

	go h.dispatcher.HandleCommand(cmd)
}

func (h *Handler) serveInteraction(w http.ResponseWriter, payload string) {
	var cb slacklib.InteractionCallback
	if err := json.Unmarshal([]byte(payload), &cb); err != nil {
		log.Printf("[http] failed to decode interaction payload: %v", err)
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}

	log.Printf("[http] interaction: type=%s callback=%s user=%s", cb.Type, cb.View.CallbackID, cb.User.ID)
	ack, dispatch := interactionAck(h.dispatcher, cb)
	if ack != nil {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(ack)
		return
	}

	w.WriteHeader(http.StatusOK)
	if dispatch {
		go h.dispatcher.HandleViewSubmission(cb)
	}
}

// interactionAck decides how an interaction is answered over either
// transport. ack is the response body (nil for an empty 200/ack); dispatch
// reports whether the submission goes to HandleViewSubmission. Only view
// submissions that pass validation dispatch.
func interactionAck(d Dispatcher, cb slacklib.InteractionCallback) (ack interface{}, dispatch bool) {
	if cb.Type != slacklib.InteractionTypeViewSubmission {
		return nil, false
	}
	if errs := d.ValidateViewSubmission(cb); len(errs) > 0 {
		return slacklib.NewErrorsViewSubmissionResponse(errs), false
	}
	return nil, true
}
