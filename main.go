package main

import (
	"fmt"
	"log"
	"net/http"
	"os"

	"github.com/justmike1/jenkinsbot/commands"
	"github.com/justmike1/jenkinsbot/config"
	"github.com/justmike1/jenkinsbot/format"
	"github.com/justmike1/jenkinsbot/jenkins"
	"github.com/justmike1/jenkinsbot/messages"
	botslack "github.com/justmike1/jenkinsbot/slack"
	"github.com/spf13/cobra"
)

var (
	configFile string
	cfg        *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "jenkinsbot",
	Short: "Slack bot for Jenkins job info and console logs",
	Long: `jenkinsbot answers the /jenkins-info and /jenkins-log Slack slash commands
with data read from a Jenkins server.

Run "jenkinsbot serve" to start the bot, or use "jenkinsbot query" to run the
same Jenkins lookups from a terminal.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(configFile)
		if err != nil {
			return fmt.Errorf("configuration error: %w", err)
		}
		return nil
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the Slack bot",
	Long: `Start the HTTP server for Slack slash commands and interactions.
When SLACK_APP_TOKEN is set the bot also connects over Socket Mode.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.ValidateSlack(); err != nil {
			return fmt.Errorf("configuration error: %w", err)
		}
		return serve(cfg)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "path to a YAML config file (default $CONFIG_FILE)")
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(queryCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newJenkinsClient(cfg *config.Config) *jenkins.Client {
	return jenkins.NewClient(cfg.JenkinsURL, cfg.JenkinsUser, cfg.JenkinsToken, jenkins.WithTimeout(cfg.JenkinsTimeout))
}

func serve(cfg *config.Config) error {
	msgs := messages.Default()
	if cfg.MessagesFile != "" {
		var err error
		if msgs, err = messages.Load(cfg.MessagesFile); err != nil {
			return fmt.Errorf("failed to load messages: %w", err)
		}
	}

	stamps, err := format.LoadTimestamper(cfg.Timezone, cfg.TimestampLayout)
	if err != nil {
		return err
	}

	slackClient := botslack.NewClient(cfg.SlackBotToken)
	jenkinsClient := newJenkinsClient(cfg)

	router := commands.NewRouter(slackClient, jenkinsClient, stamps, msgs, commands.Options{
		Admins:      cfg.AdminUserIDs,
		LogPageSize: cfg.LogPageSize,
		LogMaxPages: cfg.LogMaxPages,
	})
	if len(cfg.AdminUserIDs) > 0 {
		log.Printf("Admin users: %v", cfg.AdminUserIDs)
	}

	var socket *botslack.SocketListener
	if cfg.SocketModeEnabled() {
		socket = botslack.NewSocketListener(cfg.SlackAppToken, cfg.SlackBotToken, cfg.SocketModeDebug, router)
		go socket.Start()
	}

	handler := botslack.NewHandler(cfg.SlackSigningSecret, router)

	mux := http.NewServeMux()
	mux.Handle("/slack/commands", handler)
	mux.Handle("/slack/interactions", handler)
	mux.Handle("/webhook", handler)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	status := &statusHandler{jenkins: jenkinsClient, slack: slackClient}
	if socket != nil {
		status.socketConnected = socket.Connected
	}
	mux.Handle("/api/status", allowNetworks(cfg.StatusAllowedNets, status))

	log.Printf("jenkinsbot server starting on :%s (jenkins: %s, socket mode: %t)", cfg.Port, jenkinsClient.BaseURL(), socket != nil)
	if err := http.ListenAndServe(":"+cfg.Port, mux); err != nil {
		return fmt.Errorf("server failed: %w", err)
	}
	return nil
}
