// Package config provides functionality for managing configuration options
// for the application using command-line flags, a JSON file and
// environment variables.
package config

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Storage kinds accepted for avatars.
const (
	StorageLocal = "local"
	StorageS3    = "s3"
)

// Duration is a time.Duration that reads as "90m" in JSON and flags.
type Duration time.Duration

func (d Duration) String() string { return time.Duration(d).String() }

// Set implements flag.Value.
func (d *Duration) Set(s string) error {
	v, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

// UnmarshalJSON accepts a duration string.
func (d *Duration) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("duration must be a string: %w", err)
	}
	return d.Set(s)
}

// Options holds the configuration values for the application.
type Options struct {
	// Address defines the server's listening address (ip:port).
	Address string `json:"address"`

	// DatabaseDSN holds the database connection string for the application.
	DatabaseDSN string `json:"database_dsn"`

	// Config is the path to the Config file.
	Config string `json:"-"`

	// SecretKey signs session cookies.
	SecretKey string `json:"secret_key"`
	// SessionTTL is the session cookie lifetime.
	SessionTTL Duration `json:"session_ttl"`

	// BaseURL is the public origin used in verification links.
	BaseURL string `json:"base_url"`

	// Outgoing mail. An empty SMTPHost disables delivery.
	EmailSender   string `json:"email_sender"`
	EmailPassword string `json:"email_password"`
	SMTPHost      string `json:"smtp_host"`
	SMTPPort      int    `json:"smtp_port"`

	LogLevel string `json:"log_level"`
	LogFile  string `json:"log_file"`

	// AvatarStorage is StorageLocal or StorageS3.
	AvatarStorage string `json:"avatar_storage"`
	UploadDir     string `json:"upload_dir"`
	StaticDir     string `json:"static_dir"`

	S3Endpoint  string `json:"s3_endpoint"`
	S3Region    string `json:"s3_region"`
	S3AccessKey string `json:"s3_access_key"`
	S3SecretKey string `json:"s3_secret_key"`
	S3Bucket    string `json:"s3_bucket"`
	S3PublicURL string `json:"s3_public_url"`

	// TLSCert and TLSKey enable HTTPS when both are set.
	TLSCert string `json:"tls_cert"`
	TLSKey  string `json:"tls_key"`
	// DevTLS generates a self-signed certificate at startup.
	DevTLS bool `json:"dev_tls"`

	CleanupInterval     Duration `json:"cleanup_interval"`
	UnverifiedRetention Duration `json:"unverified_retention"`
}

// TLSEnabled reports whether the server should serve HTTPS.
func (o *Options) TLSEnabled() bool {
	return o.DevTLS || (o.TLSCert != "" && o.TLSKey != "")
}

func newFlagSet(o *Options) *flag.FlagSet {
	set := flag.NewFlagSet("globify", flag.ContinueOnError)

	set.StringVar(&o.Address, "a", "localhost:8080", "run on ip:port server")
	set.StringVar(&o.DatabaseDSN, "d", "", "db address")
	set.StringVar(&o.Config, "config", "config.json", "path to config file")
	set.StringVar(&o.Config, "c", "config.json", "path to config file (shorthand)")
	set.StringVar(&o.SecretKey, "k", "", "session signing key")
	set.StringVar(&o.BaseURL, "b", "http://localhost:8080", "public base URL")
	set.StringVar(&o.SMTPHost, "smtp-host", "smtp.gmail.com", "SMTP server host, empty disables mail")
	set.IntVar(&o.SMTPPort, "smtp-port", 587, "SMTP server port")
	set.StringVar(&o.LogLevel, "l", "info", "log level")
	set.StringVar(&o.LogFile, "log-file", "", "rotated log file path")
	set.StringVar(&o.AvatarStorage, "avatar-storage", StorageLocal, "avatar storage: local or s3")
	set.StringVar(&o.UploadDir, "upload-dir", "static/uploads", "directory for locally stored avatars")
	set.StringVar(&o.StaticDir, "static-dir", "static", "directory served under /static/")
	set.StringVar(&o.S3Region, "s3-region", "us-east-1", "S3 region")
	set.StringVar(&o.TLSCert, "tls-cert", "", "TLS certificate file")
	set.StringVar(&o.TLSKey, "tls-key", "", "TLS key file")
	set.BoolVar(&o.DevTLS, "dev-tls", false, "serve HTTPS with a generated self-signed certificate")

	o.SessionTTL = Duration(24 * time.Hour)
	o.CleanupInterval = Duration(time.Hour)
	o.UnverifiedRetention = Duration(7 * 24 * time.Hour)
	set.Var(&o.SessionTTL, "session-ttl", "session lifetime")
	set.Var(&o.CleanupInterval, "cleanup-interval", "unverified account purge interval")
	set.Var(&o.UnverifiedRetention, "unverified-retention", "age after which unverified accounts are purged")

	return set
}

// ParseArgs builds Options from args, then the JSON config file, then the
// environment as read through getenv. Later sources win.
func ParseArgs(args []string, getenv func(string) string) (*Options, error) {
	options := &Options{}
	flags := newFlagSet(options)
	if err := flags.Parse(args); err != nil {
		return nil, err
	}

	if configPath := getenv("CONFIG"); configPath != "" {
		options.Config = configPath
	}

	if options.Config != "" {
		data, err := os.ReadFile(options.Config)
		switch {
		case err == nil:
			if err := json.Unmarshal(data, options); err != nil {
				return nil, fmt.Errorf("error while parsing config file: %w", err)
			}
		case !errors.Is(err, fs.ErrNotExist):
			return nil, fmt.Errorf("error while reading config file: %w", err)
		}
	}

	if err := applyEnv(options, getenv); err != nil {
		return nil, err
	}

	if err := options.Validate(); err != nil {
		return nil, err
	}
	return options, nil
}

func applyEnv(o *Options, getenv func(string) string) error {
	strs := map[string]*string{
		"SERVER_ADDRESS": &o.Address,
		"DB_URL":         &o.DatabaseDSN,
		"SECRET_KEY":     &o.SecretKey,
		"BASE_URL":       &o.BaseURL,
		"EMAIL_SENDER":   &o.EmailSender,
		"EMAIL_PASSWORD": &o.EmailPassword,
		"SMTP_HOST":      &o.SMTPHost,
		"LOG_LEVEL":      &o.LogLevel,
		"LOG_FILE":       &o.LogFile,
		"AVATAR_STORAGE": &o.AvatarStorage,
		"UPLOAD_DIR":     &o.UploadDir,
		"S3_ENDPOINT":    &o.S3Endpoint,
		"S3_REGION":      &o.S3Region,
		"S3_ACCESS_KEY":  &o.S3AccessKey,
		"S3_SECRET_KEY":  &o.S3SecretKey,
		"S3_BUCKET":      &o.S3Bucket,
		"S3_PUBLIC_URL":  &o.S3PublicURL,
		"TLS_CERT":       &o.TLSCert,
		"TLS_KEY":        &o.TLSKey,
	}
	for name, dst := range strs {
		if v := getenv(name); v != "" {
			*dst = v
		}
	}

	if v := getenv("SMTP_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("SMTP_PORT: %w", err)
		}
		o.SMTPPort = port
	}

	durations := map[string]*Duration{
		"SESSION_TTL":          &o.SessionTTL,
		"CLEANUP_INTERVAL":     &o.CleanupInterval,
		"UNVERIFIED_RETENTION": &o.UnverifiedRetention,
	}
	for name, dst := range durations {
		if v := getenv(name); v != "" {
			if err := dst.Set(v); err != nil {
				return fmt.Errorf("%s: %w", name, err)
			}
		}
	}
	return nil
}

// Validate reports missing or inconsistent settings.
func (o *Options) Validate() error {
	var errs []error
	if o.SecretKey == "" {
		errs = append(errs, errors.New("secret key is required (SECRET_KEY)"))
	}
	if o.DatabaseDSN == "" {
		errs = append(errs, errors.New("database DSN is required (DB_URL)"))
	}
	switch o.AvatarStorage {
	case StorageLocal:
	case StorageS3:
		if o.S3Bucket == "" || o.S3PublicURL == "" {
			errs = append(errs, errors.New("s3 avatar storage needs S3_BUCKET and S3_PUBLIC_URL"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown avatar storage %q", o.AvatarStorage))
	}
	if (o.TLSCert == "") != (o.TLSKey == "") {
		errs = append(errs, errors.New("TLS_CERT and TLS_KEY must be set together"))
	}
	if o.SessionTTL <= 0 {
		errs = append(errs, errors.New("session ttl must be positive"))
	}
	if o.CleanupInterval <= 0 {
		errs = append(errs, errors.New("cleanup interval must be positive"))
	}
	return errors.Join(errs...)
}

// Parse loads .env, then parses os.Args and the environment. It exits the
// process on invalid configuration.
func Parse() *Options {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Fatalf("error while loading .env: %v", err)
	}

	options, err := ParseArgs(os.Args[1:], os.Getenv)
	if err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}
	return options
}
