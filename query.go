package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/justmike1/jenkinsbot/format"
	"github.com/justmike1/jenkinsbot/jenkins"
	"github.com/spf13/cobra"
)

var (
	queryOutput   string
	queryMaxPages int
)

var queryCmd = &cobra.Command{
	Use:   "query",
	Short: "Run the bot's Jenkins lookups from the terminal",
	Long: `Query Jenkins the same way the Slack commands do. Only the JENKINS_* settings
are needed. Folder jobs are addressed by path, e.g. "team/deploy-job".`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := rootCmd.PersistentPreRunE(cmd, args); err != nil {
			return err
		}
		if err := cfg.ValidateJenkins(); err != nil {
			return fmt.Errorf("configuration error: %w", err)
		}
		return nil
	},
}

var queryInfoCmd = &cobra.Command{
	Use:   "info <job>",
	Short: "Show a job and its last build",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		stamps, err := format.LoadTimestamper(cfg.Timezone, cfg.TimestampLayout)
		if err != nil {
			return err
		}

		client := newJenkinsClient(cfg)
		job, build, err := client.GetLastBuild(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		return writeInfo(cmd.OutOrStdout(), queryOutput, job, build, stamps)
	},
}

var queryLogCmd = &cobra.Command{
	Use:   "log <job> <build>",
	Short: "Print the tail of a build's console log",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		number, err := strconv.ParseInt(strings.TrimPrefix(args[1], "#"), 10, 64)
		if err != nil || number <= 0 {
			return fmt.Errorf("invalid build number %q", args[1])
		}

		client := newJenkinsClient(cfg)
		raw, err := client.GetConsoleLog(cmd.Context(), args[0], number)
		if err != nil {
			return err
		}

		pages := format.PageLog(format.SanitizeLog(raw), cfg.LogPageSize, queryMaxPages)
		out := cmd.OutOrStdout()
		if pages.Truncated {
			_, _ = fmt.Fprintf(out, "... showing the last %d of %d pages\n", len(pages.Pages), pages.Total)
		}
		for _, page := range pages.Pages {
			_, _ = fmt.Fprintln(out, page)
		}
		return nil
	},
}

func init() {
	queryCmd.PersistentFlags().StringVarP(&queryOutput, "output", "o", "table", "output format: table or json")
	queryLogCmd.Flags().IntVar(&queryMaxPages, "max-pages", 0, "keep only the last N pages (0 prints the whole log)")
	queryCmd.AddCommand(queryInfoCmd)
	queryCmd.AddCommand(queryLogCmd)
}

type infoRow struct {
	Job         string `json:"job"`
	Description string `json:"description"`
	URL         string `json:"url"`
	Build       int64  `json:"build"`
	Result      string `json:"result"`
	Duration    string `json:"duration"`
	Timestamp   string `json:"timestamp"`
}

func writeInfo(w io.Writer, output string, job *jenkins.Job, build *jenkins.Build, stamps *format.Timestamper) error {
	row := infoRow{
		Job:         job.DisplayName,
		Description: job.Description,
		URL:         job.URL,
		Build:       build.Number,
		Result:      format.Result(build.Result),
		Duration:    format.Duration(build.Duration),
		Timestamp:   stamps.Format(build.Timestamp),
	}

	switch output {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(row)
	case "table", "":
		t := table.New().
			Border(lipgloss.NormalBorder()).
			BorderStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("99"))).
			Headers("Field", "Value").
			Rows(
				[]string{"Job Name", row.Job},
				[]string{"Job Description", row.Description},
				[]string{"Job URL", row.URL},
				[]string{"Last Build Number", strconv.FormatInt(row.Build, 10)},
				[]string{"Last Build Result", row.Result},
				[]string{"Last Build Duration", row.Duration},
				[]string{"Last Build Timestamp", row.Timestamp},
			)
		_, err := fmt.Fprintln(w, t)
		return err
	default:
		return fmt.Errorf("unknown output format %q", output)
	}
}
