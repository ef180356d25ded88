package config

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/markpapadakis/redpanda/util"
	"gopkg.in/yaml.v3"
)

// ConfigError reports an invalid tunable. It is always returned before any
// broker or state-file I/O happens.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid config: %s: %s", e.Field, e.Reason)
}

// Config holds every tunable of a verification run.
type Config struct {
	// Connection
	Brokers   []string `yaml:"brokers" json:"brokers"`
	Topic     string   `yaml:"topic" json:"topic"`
	StatePath string   `yaml:"state_file" json:"state.file"`

	// Produce phase
	RecordCount       int    `yaml:"num_records" json:"num.records"`
	ReplicationFactor int    `yaml:"replication_factor" json:"replication.factor"`
	Partitions        int    `yaml:"partitions" json:"partitions"`
	SegmentSize       int    `yaml:"segment_size" json:"segment.size"`
	KeySize           int    `yaml:"key_size" json:"key.size"`
	PayloadSize       int    `yaml:"payload_size" json:"payload.size"`
	KeyCardinality    int    `yaml:"key_cardinality" json:"key.cardinality"`
	Acks              string `yaml:"acks" json:"acks"`
	CompressionType   string `yaml:"compression_type" json:"compression.type"`
	Seed              int64  `yaml:"seed" json:"seed"`
	LingerMS          int    `yaml:"linger_ms" json:"linger.ms"`
	MaxInFlight       int    `yaml:"max_in_flight" json:"max.in.flight"`
	RecordRetries     int    `yaml:"record_retries" json:"record.retries"`

	// Consume phase
	ConsumeRetries int `yaml:"consume_retries" json:"consume.retries"`
	RetryBackoffMS int `yaml:"retry_backoff_ms" json:"retry.backoff.ms"`
	MaxBackoffMS   int `yaml:"max_backoff_ms" json:"max.backoff.ms"`
	PollTimeoutMS  int `yaml:"poll_timeout_ms" json:"poll.timeout.ms"`

	// Observability
	EnableExporter bool          `yaml:"enable_exporter" json:"enable.exporter"`
	ExporterPort   int           `yaml:"exporter_port" json:"exporter.port"`
	LogLevel       util.LogLevel `yaml:"log_level" json:"log_level"`
}

// Default returns a Config carrying the documented defaults. They match the
// knobs the test harness historically passed to the verifier.
func Default() *Config {
	return &Config{
		Brokers:           []string{"localhost:9092"},
		Topic:             "verifier_topic",
		StatePath:         "verifier.state",
		RecordCount:       100,
		ReplicationFactor: 1,
		Partitions:        1,
		SegmentSize:       500000,
		KeySize:           20,
		PayloadSize:       128,
		KeyCardinality:    100,
		Acks:              "all",
		CompressionType:   "none",
		Seed:              42,
		LingerMS:          0,
		MaxInFlight:       256,
		RecordRetries:     5,
		ConsumeRetries:    8,
		RetryBackoffMS:    100,
		MaxBackoffMS:      2000,
		PollTimeoutMS:     10000,
		EnableExporter:    false,
		ExporterPort:      9100,
		LogLevel:          util.LogLevelInfo,
	}
}

// Load parses args into a Config plus the requested subcommand. Flags may
// appear before or after the subcommand, so both
//
//	verifier --broker h:9092 produce --num-records 500
//	verifier produce --broker h:9092 --num-records 500
//
// work. A --config YAML/JSON file, when given, is applied first and explicit
// flags override it. The returned Config has been validated.
func Load(args []string) (*Config, string, error) {
	cfg := Default()

	fs := flag.NewFlagSet("verifier", flag.ContinueOnError)

	brokersStr := fs.String("broker", strings.Join(cfg.Brokers, ","), "Comma separated broker addresses")
	configPath := fs.String("config", "", "Path to YAML/JSON config file")
	logLevelStr := fs.String("log-level", "info", "Log level (debug, info, warn, error)")

	fs.StringVar(&cfg.Topic, "topic", cfg.Topic, "Topic to verify")
	fs.StringVar(&cfg.StatePath, "state-file", cfg.StatePath, "Path to the expected-state file")

	fs.IntVar(&cfg.RecordCount, "num-records", cfg.RecordCount, "Number of records to produce")
	fs.IntVar(&cfg.ReplicationFactor, "replication-factor", cfg.ReplicationFactor, "Topic replication factor")
	fs.IntVar(&cfg.Partitions, "partitions", cfg.Partitions, "Topic partition count")
	fs.IntVar(&cfg.SegmentSize, "segment-size", cfg.SegmentSize, "Topic segment.bytes, kept small to roll segments under compaction")
	fs.IntVar(&cfg.KeySize, "key-size", cfg.KeySize, "Record key size in bytes")
	fs.IntVar(&cfg.PayloadSize, "payload-size", cfg.PayloadSize, "Record payload size in bytes")
	fs.IntVar(&cfg.KeyCardinality, "key-cardinality", cfg.KeyCardinality, "Number of distinct record keys")
	fs.StringVar(&cfg.Acks, "acks", cfg.Acks, "Producer acknowledgment mode (all/-1, 1, 0)")
	fs.StringVar(&cfg.CompressionType, "compression", cfg.CompressionType, "Producer compression (none, gzip, snappy, lz4, zstd)")
	fs.Int64Var(&cfg.Seed, "seed", cfg.Seed, "Generator seed, reruns with the same seed repeat the same records")
	fs.IntVar(&cfg.LingerMS, "linger-ms", cfg.LingerMS, "Producer linger in milliseconds")
	fs.IntVar(&cfg.MaxInFlight, "max-in-flight", cfg.MaxInFlight, "Maximum unacknowledged records in flight")
	fs.IntVar(&cfg.RecordRetries, "max-retries", cfg.RecordRetries, "Send retries before a record failure is fatal")

	fs.IntVar(&cfg.ConsumeRetries, "consume-retries", cfg.ConsumeRetries, "Fetch attempts before the consume phase is fatal")
	fs.IntVar(&cfg.RetryBackoffMS, "retry-backoff-ms", cfg.RetryBackoffMS, "Initial retry backoff in milliseconds")
	fs.IntVar(&cfg.MaxBackoffMS, "max-backoff-ms", cfg.MaxBackoffMS, "Retry backoff ceiling in milliseconds")
	fs.IntVar(&cfg.PollTimeoutMS, "poll-timeout-ms", cfg.PollTimeoutMS, "Single fetch poll timeout in milliseconds")

	fs.BoolVar(&cfg.EnableExporter, "exporter", cfg.EnableExporter, "Enable Prometheus exporter")
	fs.IntVar(&cfg.ExporterPort, "exporter-port", cfg.ExporterPort, "Exporter port")

	// Parsing stops at the subcommand, so parse the remainder with the same
	// flag set to accept flags on either side of it.
	cmd := ""
	var rest []string
	parseAll := func() error {
		if err := fs.Parse(args); err != nil {
			return &ConfigError{Field: "flags", Reason: err.Error()}
		}
		if fs.NArg() > 0 {
			cmd = fs.Arg(0)
			rest = fs.Args()[1:]
			if len(rest) > 0 {
				if err := fs.Parse(rest); err != nil {
					return &ConfigError{Field: "flags", Reason: err.Error()}
				}
			}
		}
		return nil
	}
	if err := parseAll(); err != nil {
		return nil, "", err
	}

	if envPath := os.Getenv("CONFIG_PATH"); envPath != "" && *configPath == "" {
		*configPath = envPath
	}
	if *configPath != "" {
		if err := cfg.loadFile(*configPath); err != nil {
			return nil, "", err
		}
		// Flags win over file values.
		if err := parseAll(); err != nil {
			return nil, "", err
		}
	}

	// -broker and -log-level go through string staging values, so only apply
	// them when explicitly set or a config file did not already provide them.
	setFlags := map[string]bool{}
	fs.Visit(func(f *flag.Flag) { setFlags[f.Name] = true })
	if setFlags["broker"] || len(cfg.Brokers) == 0 {
		cfg.Brokers = splitBrokers(*brokersStr)
	}
	if setFlags["log-level"] {
		cfg.LogLevel = util.ParseLevel(*logLevelStr)
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", err
	}
	return cfg, cmd, nil
}

func (cfg *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return &ConfigError{Field: "config", Reason: err.Error()}
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		if err := json.Unmarshal(data, cfg); err != nil {
			return &ConfigError{Field: "config", Reason: fmt.Sprintf("parse %s: %v", path, err)}
		}
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return &ConfigError{Field: "config", Reason: fmt.Sprintf("parse %s: %v", path, err)}
		}
	}
	return nil
}

func splitBrokers(s string) []string {
	var out []string
	for _, b := range strings.Split(s, ",") {
		if b = strings.TrimSpace(b); b != "" {
			out = append(out, b)
		}
	}
	return out
}

// Validate checks every tunable before any I/O is attempted.
func (cfg *Config) Validate() error {
	if len(cfg.Brokers) == 0 {
		return &ConfigError{Field: "broker", Reason: "at least one broker address is required"}
	}
	if strings.TrimSpace(cfg.Topic) == "" {
		return &ConfigError{Field: "topic", Reason: "topic name must not be empty"}
	}
	if strings.TrimSpace(cfg.StatePath) == "" {
		return &ConfigError{Field: "state-file", Reason: "state file path must not be empty"}
	}
	if cfg.RecordCount <= 0 {
		return &ConfigError{Field: "num-records", Reason: fmt.Sprintf("must be > 0, got %d", cfg.RecordCount)}
	}
	if cfg.KeyCardinality <= 0 {
		return &ConfigError{Field: "key-cardinality", Reason: fmt.Sprintf("must be > 0, got %d", cfg.KeyCardinality)}
	}
	if cfg.KeySize <= 0 {
		return &ConfigError{Field: "key-size", Reason: fmt.Sprintf("must be > 0, got %d", cfg.KeySize)}
	}
	if cfg.PayloadSize <= 0 {
		return &ConfigError{Field: "payload-size", Reason: fmt.Sprintf("must be > 0, got %d", cfg.PayloadSize)}
	}
	if cfg.Partitions <= 0 {
		return &ConfigError{Field: "partitions", Reason: fmt.Sprintf("must be > 0, got %d", cfg.Partitions)}
	}
	if cfg.ReplicationFactor <= 0 {
		return &ConfigError{Field: "replication-factor", Reason: fmt.Sprintf("must be > 0, got %d", cfg.ReplicationFactor)}
	}
	if cfg.SegmentSize <= 0 {
		return &ConfigError{Field: "segment-size", Reason: fmt.Sprintf("must be > 0, got %d", cfg.SegmentSize)}
	}
	switch cfg.Acks {
	case "all", "-1", "1", "0":
	default:
		return &ConfigError{Field: "acks", Reason: fmt.Sprintf("must be one of all, -1, 1, 0; got %q", cfg.Acks)}
	}
	switch cfg.CompressionType {
	case "none", "gzip", "snappy", "lz4", "zstd":
	default:
		return &ConfigError{Field: "compression", Reason: fmt.Sprintf("unknown codec %q", cfg.CompressionType)}
	}
	if cfg.MaxInFlight <= 0 {
		cfg.MaxInFlight = 256
	}
	if cfg.ConsumeRetries <= 0 {
		cfg.ConsumeRetries = 8
	}
	if cfg.RetryBackoffMS <= 0 {
		cfg.RetryBackoffMS = 100
	}
	if cfg.MaxBackoffMS < cfg.RetryBackoffMS {
		cfg.MaxBackoffMS = cfg.RetryBackoffMS
	}
	if cfg.PollTimeoutMS <= 0 {
		cfg.PollTimeoutMS = 10000
	}
	return nil
}
