package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	defaultPort           = "8080"
	defaultTimezone       = "UTC"
	defaultJenkinsTimeout = "30s"
	defaultLogPageSize    = 3000
	defaultLogMaxPages    = 5
)

// keys lists every setting. Each is read from the environment variable of the
// same name in upper case, or from the same key in the config file.
var keys = []string{
	"slack_bot_token",
	"slack_signing_secret",
	"slack_app_token",
	"socket_mode_debug",
	"jenkins_url",
	"jenkins_user",
	"jenkins_token",
	"jenkins_timeout",
	"port",
	"admin_user_ids",
	"timezone",
	"timestamp_layout",
	"log_page_size",
	"log_max_pages",
	"status_allowed_cidrs",
	"messages_file",
}

type Config struct {
	SlackBotToken      string
	SlackSigningSecret string
	SlackAppToken      string
	SocketModeDebug    bool
	JenkinsURL         string
	JenkinsUser        string
	JenkinsToken       string
	JenkinsTimeout     time.Duration
	Port               string
	AdminUserIDs       []string
	Timezone           string
	TimestampLayout    string
	LogPageSize        int
	LogMaxPages        int
	StatusAllowedCIDRs string
	// StatusAllowedNets is StatusAllowedCIDRs parsed; empty means unrestricted.
	StatusAllowedNets []*net.IPNet
	MessagesFile      string
}

// SocketModeEnabled returns true when an app-level token is configured.
func (c *Config) SocketModeEnabled() bool {
	return c.SlackAppToken != ""
}

// ValidateJenkins checks the settings every Jenkins call needs.
func (c *Config) ValidateJenkins() error {
	if c.JenkinsURL == "" {
		return errors.New("JENKINS_URL is required")
	}
	if c.JenkinsUser == "" {
		return errors.New("JENKINS_USER is required")
	}
	if c.JenkinsToken == "" {
		return errors.New("JENKINS_TOKEN is required")
	}
	return nil
}

// ValidateSlack checks the settings the bot server needs on top of Jenkins.
func (c *Config) ValidateSlack() error {
	if c.SlackBotToken == "" {
		return errors.New("SLACK_BOT_TOKEN is required")
	}
	if c.SlackSigningSecret == "" {
		return errors.New("SLACK_SIGNING_SECRET is required")
	}
	return c.ValidateJenkins()
}

// Load reads the configuration. Environment variables override values from
// the optional YAML file at path; an empty path falls back to CONFIG_FILE.
// Load does not check for required settings, see ValidateSlack and
// ValidateJenkins.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.AutomaticEnv()
	for _, key := range keys {
		if err := v.BindEnv(key, strings.ToUpper(key)); err != nil {
			return nil, fmt.Errorf("failed to bind %s: %w", key, err)
		}
	}

	v.SetDefault("port", defaultPort)
	v.SetDefault("timezone", defaultTimezone)
	v.SetDefault("jenkins_timeout", defaultJenkinsTimeout)
	v.SetDefault("log_page_size", defaultLogPageSize)
	v.SetDefault("log_max_pages", defaultLogMaxPages)

	if path == "" {
		path = os.Getenv("CONFIG_FILE")
	}
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	}

	cfg := &Config{
		SlackBotToken:      v.GetString("slack_bot_token"),
		SlackSigningSecret: v.GetString("slack_signing_secret"),
		SlackAppToken:      v.GetString("slack_app_token"),
		SocketModeDebug:    v.GetBool("socket_mode_debug"),
		JenkinsURL:         strings.TrimRight(v.GetString("jenkins_url"), "/"),
		JenkinsUser:        v.GetString("jenkins_user"),
		JenkinsToken:       v.GetString("jenkins_token"),
		Port:               v.GetString("port"),
		AdminUserIDs:       splitList(v.Get("admin_user_ids")),
		Timezone:           v.GetString("timezone"),
		TimestampLayout:    v.GetString("timestamp_layout"),
		LogPageSize:        v.GetInt("log_page_size"),
		LogMaxPages:        v.GetInt("log_max_pages"),
		StatusAllowedCIDRs: strings.Join(splitList(v.Get("status_allowed_cidrs")), ","),
		MessagesFile:       v.GetString("messages_file"),
	}

	timeout, err := parseTimeout(v.GetString("jenkins_timeout"))
	if err != nil {
		return nil, err
	}
	cfg.JenkinsTimeout = timeout

	nets, err := parseCIDRs(cfg.StatusAllowedCIDRs)
	if err != nil {
		return nil, err
	}
	cfg.StatusAllowedNets = nets

	if cfg.LogPageSize <= 0 {
		return nil, fmt.Errorf("LOG_PAGE_SIZE must be positive, got %d", cfg.LogPageSize)
	}
	if cfg.LogMaxPages <= 0 {
		return nil, fmt.Errorf("LOG_MAX_PAGES must be positive, got %d", cfg.LogMaxPages)
	}
	if cfg.Port == "" {
		cfg.Port = defaultPort
	}

	return cfg, nil
}

// parseTimeout reads a Go duration ("45s", "2m"). A bare number is taken as
// seconds.
func parseTimeout(raw string) (time.Duration, error) {
	raw = strings.TrimSpace(raw)
	var d time.Duration
	if secs, err := strconv.Atoi(raw); err == nil {
		d = time.Duration(secs) * time.Second
	} else if d, err = time.ParseDuration(raw); err != nil {
		return 0, fmt.Errorf("JENKINS_TIMEOUT must be a duration such as 30s, got %q", raw)
	}
	if d <= 0 {
		return 0, fmt.Errorf("JENKINS_TIMEOUT must be positive, got %q", raw)
	}
	return d, nil
}

// parseCIDRs reads a comma-separated list of networks. Bare addresses become
// single-host networks. Any invalid entry is an error, so a typo cannot leave
// the status endpoint open.
func parseCIDRs(raw string) ([]*net.IPNet, error) {
	var nets []*net.IPNet
	for _, entry := range splitList(raw) {
		cidr := entry
		if !strings.Contains(cidr, "/") {
			ip := net.ParseIP(cidr)
			if ip == nil {
				return nil, fmt.Errorf("STATUS_ALLOWED_CIDRS: invalid address %q", entry)
			}
			if ip.To4() != nil {
				cidr += "/32"
			} else {
				cidr += "/128"
			}
		}
		_, n, err := net.ParseCIDR(cidr)
		if err != nil {
			return nil, fmt.Errorf("STATUS_ALLOWED_CIDRS: invalid network %q: %w", entry, err)
		}
		nets = append(nets, n)
	}
	return nets, nil
}

// splitList accepts a comma-separated string (environment) or a YAML list.
func splitList(raw interface{}) []string {
	var items []string
	switch val := raw.(type) {
	case string:
		items = strings.Split(val, ",")
	case []string:
		items = val
	case []interface{}:
		for _, item := range val {
			items = append(items, fmt.Sprint(item))
		}
	}

	var out []string
	for _, item := range items {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
