// Package config loads the adapter's configuration from the environment.
// No business logic should depend on raw environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Valid recording formats. Anything else is a startup error, not a runtime
// fallback, so a typo cannot silently ship the wrong MIME type.
var validFormats = map[string]bool{"wav": true, "mp3": true}

// Tracker backends.
const (
	TrackerFile     = "file"
	TrackerPostgres = "postgres"
)

// Config holds everything one adapter process needs.
type Config struct {
	App       AppConfig
	Conserver ConserverConfig
	Tracker   TrackerConfig
	Redis     RedisConfig
	Status    StatusAuthConfig

	Twilio     TwilioConfig
	FreeSwitch FreeSwitchConfig
	Asterisk   AsteriskConfig
	Telnyx     TelnyxConfig
	Bandwidth  BandwidthConfig
}

type AppConfig struct {
	Env      string
	Host     string
	Port     int
	LogLevel string
	// Platform selects which adapter this process runs.
	Platform string
	// DownloadRecordings embeds audio in records when true.
	DownloadRecordings bool
	// RecordingFormat is wav or mp3.
	RecordingFormat string
	IngressLists    []string
}

type ConserverConfig struct {
	URL        string
	APIToken   string
	HeaderName string
}

type TrackerConfig struct {
	Backend   string
	StateFile string

	DBHost     string
	DBPort     int
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string
}

type RedisConfig struct {
	Host     string
	Port     int
	ClaimTTL time.Duration
}

type StatusAuthConfig struct {
	JWTSecret   string
	JWTIssuer   string
	JWTAudience string
}

type TwilioConfig struct {
	AccountSID string
	AuthToken  string
	Validate   bool
	WebhookURL string
}

type FreeSwitchConfig struct {
	WebhookSecret  string
	Validate       bool
	RecordingsPath string
	RecordingsURL  string
}

type AsteriskConfig struct {
	WebhookSecret  string
	Validate       bool
	ARIURL         string
	ARIUsername    string
	ARIPassword    string
	RecordingsPath string
}

type TelnyxConfig struct {
	APIKey    string
	PublicKey string
	Validate  bool
}

type BandwidthConfig struct {
	WebhookUsername string
	WebhookPassword string
	Validate        bool
}

// Load reads the environment for the named platform and validates it.
// platform decides the default state file name.
func Load(platform string) (Config, error) {
	c := Config{}
	var parseErrs []error

	c.App.Platform = platform
	c.App.Env = strings.TrimSpace(os.Getenv("APP_ENV"))
	if c.App.Env == "" {
		c.App.Env = "local"
	}
	c.App.Host = strings.TrimSpace(os.Getenv("HOST"))
	{
		n, err := optionalInt("PORT", 8080)
		n, parseErrs = appendParseErr(parseErrs, n, err)
		c.App.Port = n
	}
	c.App.LogLevel = strings.TrimSpace(os.Getenv("LOG_LEVEL"))
	c.App.DownloadRecordings = optionalBool("DOWNLOAD_RECORDINGS", true)
	c.App.RecordingFormat = strings.ToLower(strings.TrimSpace(os.Getenv("RECORDING_FORMAT")))
	if c.App.RecordingFormat == "" {
		c.App.RecordingFormat = "wav"
	}
	if lists := strings.TrimSpace(os.Getenv("INGRESS_LISTS")); lists != "" {
		for _, l := range strings.Split(lists, ",") {
			if l = strings.TrimSpace(l); l != "" {
				c.App.IngressLists = append(c.App.IngressLists, l)
			}
		}
	}

	c.Conserver.URL = strings.TrimSpace(os.Getenv("CONSERVER_URL"))
	c.Conserver.APIToken = os.Getenv("CONSERVER_API_TOKEN")
	c.Conserver.HeaderName = strings.TrimSpace(os.Getenv("CONSERVER_HEADER_NAME"))
	if c.Conserver.HeaderName == "" {
		c.Conserver.HeaderName = "x-conserver-api-token"
	}

	c.Tracker.Backend = strings.TrimSpace(os.Getenv("TRACKER_BACKEND"))
	if c.Tracker.Backend == "" {
		c.Tracker.Backend = TrackerFile
	}
	c.Tracker.StateFile = strings.TrimSpace(os.Getenv("STATE_FILE"))
	if c.Tracker.StateFile == "" {
		c.Tracker.StateFile = fmt.Sprintf(".%s_adapter_state.json", platform)
	}
	c.Tracker.DBHost = strings.TrimSpace(os.Getenv("DB_HOST"))
	{
		n, err := optionalInt("DB_PORT", 5432)
		n, parseErrs = appendParseErr(parseErrs, n, err)
		c.Tracker.DBPort = n
	}
	c.Tracker.DBUser = strings.TrimSpace(os.Getenv("DB_USER"))
	c.Tracker.DBPassword = os.Getenv("DB_PASSWORD")
	c.Tracker.DBName = strings.TrimSpace(os.Getenv("DB_NAME"))
	c.Tracker.DBSSLMode = strings.TrimSpace(os.Getenv("DB_SSLMODE"))
	if c.Tracker.DBSSLMode == "" {
		c.Tracker.DBSSLMode = "disable"
	}

	c.Redis.Host = strings.TrimSpace(os.Getenv("REDIS_HOST"))
	{
		n, err := optionalInt("REDIS_PORT", 6379)
		n, parseErrs = appendParseErr(parseErrs, n, err)
		c.Redis.Port = n
	}
	c.Redis.ClaimTTL = optionalDuration("REDIS_CLAIM_TTL", 2*time.Minute)

	c.Status.JWTSecret = os.Getenv("STATUS_JWT_SECRET")
	c.Status.JWTIssuer = strings.TrimSpace(os.Getenv("STATUS_JWT_ISSUER"))
	c.Status.JWTAudience = strings.TrimSpace(os.Getenv("STATUS_JWT_AUDIENCE"))

	c.Twilio.AccountSID = strings.TrimSpace(os.Getenv("TWILIO_ACCOUNT_SID"))
	c.Twilio.AuthToken = os.Getenv("TWILIO_AUTH_TOKEN")
	c.Twilio.Validate = optionalBool("TWILIO_VALIDATE_SIGNATURE", false)
	c.Twilio.WebhookURL = strings.TrimSpace(os.Getenv("TWILIO_WEBHOOK_URL"))

	c.FreeSwitch.WebhookSecret = os.Getenv("FREESWITCH_WEBHOOK_SECRET")
	c.FreeSwitch.Validate = optionalBool("FREESWITCH_VALIDATE_SIGNATURE", false)
	c.FreeSwitch.RecordingsPath = strings.TrimSpace(os.Getenv("FREESWITCH_RECORDINGS_PATH"))
	c.FreeSwitch.RecordingsURL = strings.TrimSpace(os.Getenv("FREESWITCH_RECORDINGS_URL"))

	c.Asterisk.WebhookSecret = os.Getenv("ASTERISK_WEBHOOK_SECRET")
	c.Asterisk.Validate = optionalBool("ASTERISK_VALIDATE_SIGNATURE", false)
	c.Asterisk.ARIURL = strings.TrimSpace(os.Getenv("ASTERISK_ARI_URL"))
	c.Asterisk.ARIUsername = strings.TrimSpace(os.Getenv("ASTERISK_ARI_USERNAME"))
	c.Asterisk.ARIPassword = os.Getenv("ASTERISK_ARI_PASSWORD")
	c.Asterisk.RecordingsPath = strings.TrimSpace(os.Getenv("ASTERISK_RECORDINGS_PATH"))

	c.Telnyx.APIKey = os.Getenv("TELNYX_API_KEY")
	c.Telnyx.PublicKey = strings.TrimSpace(os.Getenv("TELNYX_PUBLIC_KEY"))
	c.Telnyx.Validate = optionalBool("TELNYX_VALIDATE_SIGNATURE", false)

	c.Bandwidth.WebhookUsername = strings.TrimSpace(os.Getenv("BANDWIDTH_WEBHOOK_USERNAME"))
	c.Bandwidth.WebhookPassword = os.Getenv("BANDWIDTH_WEBHOOK_PASSWORD")
	c.Bandwidth.Validate = optionalBool("BANDWIDTH_VALIDATE_SIGNATURE", false)

	if err := joinErrors(parseErrs); err != nil {
		return Config{}, err
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

func (c Config) Validate() error {
	var errs []error

	if c.App.Port <= 0 || c.App.Port > 65535 {
		errs = append(errs, fmt.Errorf("PORT must be a valid port, got %d", c.App.Port))
	}
	if !validFormats[c.App.RecordingFormat] {
		errs = append(errs, fmt.Errorf("RECORDING_FORMAT must be wav or mp3, got %q", c.App.RecordingFormat))
	}

	if c.Conserver.URL == "" {
		errs = append(errs, errors.New("CONSERVER_URL is required"))
	}

	switch c.Tracker.Backend {
	case TrackerFile:
	case TrackerPostgres:
		if c.Tracker.DBHost == "" {
			errs = append(errs, errors.New("DB_HOST is required with TRACKER_BACKEND=postgres"))
		}
		if c.Tracker.DBUser == "" {
			errs = append(errs, errors.New("DB_USER is required with TRACKER_BACKEND=postgres"))
		}
		if c.Tracker.DBName == "" {
			errs = append(errs, errors.New("DB_NAME is required with TRACKER_BACKEND=postgres"))
		}
	default:
		errs = append(errs, fmt.Errorf("TRACKER_BACKEND must be file or postgres, got %q", c.Tracker.Backend))
	}

	if c.Twilio.Validate && c.Twilio.AuthToken == "" {
		errs = append(errs, errors.New("TWILIO_AUTH_TOKEN is required when signature validation is on"))
	}
	if c.FreeSwitch.Validate && c.FreeSwitch.WebhookSecret == "" {
		errs = append(errs, errors.New("FREESWITCH_WEBHOOK_SECRET is required when signature validation is on"))
	}
	if c.Asterisk.Validate && c.Asterisk.WebhookSecret == "" {
		errs = append(errs, errors.New("ASTERISK_WEBHOOK_SECRET is required when signature validation is on"))
	}
	if c.Telnyx.Validate && c.Telnyx.PublicKey == "" {
		errs = append(errs, errors.New("TELNYX_PUBLIC_KEY is required when signature validation is on"))
	}
	if c.Bandwidth.Validate && (c.Bandwidth.WebhookUsername == "" || c.Bandwidth.WebhookPassword == "") {
		errs = append(errs, errors.New("BANDWIDTH_WEBHOOK_USERNAME and BANDWIDTH_WEBHOOK_PASSWORD are required when validation is on"))
	}

	return joinErrors(errs)
}

func (c Config) IsProduction() bool {
	return c.App.Env == "production"
}

func (c Config) HTTPAddr() string {
	return fmt.Sprintf("%s:%d", c.App.Host, c.App.Port)
}

// PostgresDSN builds the connection string for the postgres tracker.
// Avoid logging this string; it contains secrets.
func (c Config) PostgresDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Tracker.DBHost,
		c.Tracker.DBPort,
		c.Tracker.DBUser,
		c.Tracker.DBPassword,
		c.Tracker.DBName,
		c.Tracker.DBSSLMode,
	)
}

// RedisEnabled reports whether the cross-replica claim guard is configured.
func (c Config) RedisEnabled() bool {
	return c.Redis.Host != ""
}

func (c Config) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Redis.Host, c.Redis.Port)
}

func optionalInt(key string, def int) (int, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer, got %q", key, v)
	}
	return n, nil
}

func optionalBool(key string, def bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func optionalDuration(key string, def time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}

func appendParseErr(errs []error, n int, err error) (int, []error) {
	if err != nil {
		errs = append(errs, err)
	}
	return n, errs
}

func joinErrors(errs []error) error {
	if len(errs) == 0 {
		return nil
	}
	msgs := make([]string, 0, len(errs))
	for _, e := range errs {
		msgs = append(msgs, e.Error())
	}
	return errors.New(strings.Join(msgs, "; "))
}
