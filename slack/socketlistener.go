package slack

import (
	"fmt"
	"log"
	"os"
	"sync/atomic"

	slacklib "github.com/slack-go/slack"
	"github.com/slack-go/slack/slackevents"
	"github.com/slack-go/slack/socketmode"
)

// SocketListener connects to Slack via Socket Mode (outbound WebSocket) and
// feeds slash commands, view submissions and mentions to a Dispatcher. No
// inbound URL configuration is needed.
type SocketListener struct {
	smClient   *socketmode.Client
	dispatcher Dispatcher
	debug      bool
	connected  atomic.Bool
	eventCount atomic.Int64
}

// NewSocketListener creates a Socket Mode listener.
// appToken is the Slack app-level token (xapp-...) with connections:write scope.
// botToken is the normal bot token (xoxb-...).
// debug enables verbose wire-level logging.
func NewSocketListener(appToken, botToken string, debug bool, dispatcher Dispatcher) *SocketListener {
	apiOpts := []slacklib.Option{
		slacklib.OptionAppLevelToken(appToken),
	}
	if debug {
		apiOpts = append(apiOpts, slacklib.OptionDebug(true))
		apiOpts = append(apiOpts, slacklib.OptionLog(log.New(os.Stdout, "[slack-api] ", log.LstdFlags)))
	}

	api := slacklib.New(botToken, apiOpts...)

	smOpts := []socketmode.Option{}
	if debug {
		smOpts = append(smOpts, socketmode.OptionDebug(true))
		smOpts = append(smOpts, socketmode.OptionLog(log.New(os.Stdout, "[socket-wire] ", log.LstdFlags)))
	}

	return &SocketListener{
		smClient:   socketmode.New(api, smOpts...),
		dispatcher: dispatcher,
		debug:      debug,
	}
}

// Start connects to Slack and listens for events in a blocking loop.
// Run this in a goroutine. It reconnects automatically on disconnection.
func (sl *SocketListener) Start() {
	go sl.handleEvents()

	log.Printf("[socket-mode] connecting to Slack (debug=%v)...", sl.debug)
	if err := sl.smClient.Run(); err != nil {
		log.Printf("[socket-mode] fatal: %v", err)
	}
}

// Connected reports whether the WebSocket is currently up.
func (sl *SocketListener) Connected() bool {
	return sl.connected.Load()
}

func (sl *SocketListener) handleEvents() {
	for evt := range sl.smClient.Events {
		sl.eventCount.Add(1)

		switch evt.Type {
		case socketmode.EventTypeConnecting:
			if sl.connected.Load() {
				log.Printf("[socket-mode] reconnecting...")
			}

		case socketmode.EventTypeConnected:
			if !sl.connected.Swap(true) {
				log.Printf("[socket-mode] connected (events processed: %d)", sl.eventCount.Load())
			}

		case socketmode.EventTypeConnectionError:
			sl.connected.Store(false)
			log.Printf("[socket-mode] connection error, will retry...")

		case socketmode.EventTypeHello:
			log.Printf("[socket-mode] received hello from Slack")

		case socketmode.EventTypeEventsAPI:
			eventsAPIEvent, ok := evt.Data.(slackevents.EventsAPIEvent)
			sl.ack(evt)
			if !ok {
				log.Printf("[socket-mode] WARNING: EventsAPI event data is %T, skipping", evt.Data)
				continue
			}
			sl.handleEventsAPI(eventsAPIEvent)

		case socketmode.EventTypeInteractive:
			cb, ok := evt.Data.(slacklib.InteractionCallback)
			if !ok {
				log.Printf("[socket-mode] WARNING: interactive data is %T, skipping", evt.Data)
				sl.ack(evt)
				continue
			}
			sl.handleInteraction(evt, cb)

		case socketmode.EventTypeSlashCommand:
			cmd, ok := evt.Data.(slacklib.SlashCommand)
			if !ok {
				log.Printf("[socket-mode] WARNING: slash command data is %T, skipping", evt.Data)
				sl.ack(evt)
				continue
			}

			// Acknowledge immediately so Slack doesn't show a timeout error.
			if evt.Request != nil {
				if text := sl.dispatcher.AckText(cmd); text != "" {
					sl.smClient.Ack(*evt.Request, map[string]interface{}{"text": text})
				} else {
					sl.smClient.Ack(*evt.Request)
				}
			}

			log.Printf("[socket-mode] slash command: command=%s channel=%s user=%s text=%q",
				cmd.Command, cmd.ChannelID, cmd.UserID, truncate(cmd.Text, 80))

			go sl.dispatcher.HandleCommand(cmd)

		default:
			log.Printf("[socket-mode] unhandled event type: %s (data type: %T)", evt.Type, evt.Data)
			sl.ack(evt)
		}
	}
	log.Printf("[socket-mode] event channel closed, listener stopped")
}

func (sl *SocketListener) ack(evt socketmode.Event) {
	if evt.Request != nil {
		sl.smClient.Ack(*evt.Request)
	}
}

func (sl *SocketListener) handleInteraction(evt socketmode.Event, cb slacklib.InteractionCallback) {
	log.Printf("[socket-mode] interaction: type=%s callback=%s user=%s", cb.Type, cb.View.CallbackID, cb.User.ID)
	payload, dispatch := interactionAck(sl.dispatcher, cb)

	if evt.Request != nil {
		if payload != nil {
			sl.smClient.Ack(*evt.Request, payload)
		} else {
			sl.smClient.Ack(*evt.Request)
		}
	}

	if dispatch {
		go sl.dispatcher.HandleViewSubmission(cb)
	}
}

func (sl *SocketListener) handleEventsAPI(event slackevents.EventsAPIEvent) {
	if event.Type != slackevents.CallbackEvent {
		log.Printf("[socket-mode] events-api: skipping non-callback event type %q", event.Type)
		return
	}

	switch ev := event.InnerEvent.Data.(type) {
	case *slackevents.AppMentionEvent:
		if ev.BotID != "" {
			return
		}
		log.Printf("[socket-mode] mention: channel=%s user=%s text=%q", ev.Channel, ev.User, truncate(ev.Text, 80))
		go sl.dispatcher.HandleMention(ev.Channel, ev.User, ev.Text)
	default:
		log.Printf("[socket-mode] events-api: unhandled inner event type %T", event.InnerEvent.Data)
	}
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + fmt.Sprintf("…(%d more)", len(s)-max)
}
