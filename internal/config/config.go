// v0
// internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"

	"it.uniroma2.dicii/nrg-champ/footfall/internal/anomaly"
	"it.uniroma2.dicii/nrg-champ/footfall/internal/circuitbreaker"
	"it.uniroma2.dicii/nrg-champ/footfall/internal/compose"
	"it.uniroma2.dicii/nrg-champ/footfall/internal/generator"
	"it.uniroma2.dicii/nrg-champ/footfall/internal/sink"
	"it.uniroma2.dicii/nrg-champ/footfall/internal/weights"
)

// EnvPrefix namespaces the environment overrides (FOOTFALL_RUN_START, ...).
const EnvPrefix = "FOOTFALL"

// PropertiesEnv names the variable holding the properties file path.
const PropertiesEnv = "SIM_PROPERTIES"

const dateLayout = "2006-01-02"

// Config captures every runtime setting. Values come from defaults, then an
// optional .properties or YAML file, then FOOTFALL_* environment variables.
type Config struct {
	// PropertiesPath records the file the values were read from, if any.
	PropertiesPath string

	Run     Run
	Metrics []Metric
	Venue   string

	// HolidayDates are explicit extra holidays.
	HolidayDates []string
	// HolidayFile points at a FileProvider file.
	HolidayFile string
	// HolidayRegion selects a computed calendar; "england" is built in.
	HolidayRegion string

	Sinks sink.Options

	HTTP HTTP
	Log  Log
}

// Run holds the series-wide generation settings.
type Run struct {
	Start          time.Time
	End            time.Time
	Granularity    time.Duration
	Anchors        int
	AnchorSeed     uint64
	NoiseSeed      *uint64
	IncludeTail    bool
	AnomalySeries  bool
	HigherWeekdays bool
	Clip           anomaly.Clip
	Diurnal        weights.DiurnalPeaks
	Seasons        weights.SeasonPeaks
	// Update appends to existing collections instead of replacing them.
	Update bool
}

// Metric is one generated metric with its distribution.
type Metric struct {
	Name    string
	UseCase compose.UseCase
	Base    compose.Base
	Bounds  compose.Bounds
}

// HTTP configures the API server.
type HTTP struct {
	ListenAddress   string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

// Log configures the DualLogger.
type Log struct {
	File  string
	Level string
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("run.start", "2023-01-01")
	v.SetDefault("run.end", "2023-01-08")
	v.SetDefault("run.granularity", "10m")
	v.SetDefault("run.anchors", 3)
	v.SetDefault("run.anchor_seed", 12)
	v.SetDefault("run.noise_seed", "")
	v.SetDefault("run.include_tail", false)
	v.SetDefault("run.anomaly_series", false)
	v.SetDefault("run.higher_weekdays", true)
	v.SetDefault("run.update", false)
	v.SetDefault("anomaly.clip_min", anomaly.DefaultClip.Min)
	v.SetDefault("anomaly.clip_max", anomaly.DefaultClip.Max)
	v.SetDefault("peaks.diurnal", "8,18")
	v.SetDefault("peaks.season", "2022-12,2023-07")

	v.SetDefault("venue.id", "venue-1")
	v.SetDefault("metrics", "footfall")
	v.SetDefault("metric.use_case", "")
	v.SetDefault("metric.mean", 40.0)
	v.SetDefault("metric.sd", 10.0)
	v.SetDefault("metric.min", 0.0)
	v.SetDefault("metric.max", 500.0)

	v.SetDefault("holidays.dates", "")
	v.SetDefault("holidays.file", "")
	v.SetDefault("holidays.region", "")

	v.SetDefault("sinks", "file")
	v.SetDefault("sink.timeout", "30s")
	v.SetDefault("sink.file.dir", "out")
	v.SetDefault("sink.redis.addr", "localhost:6379")
	v.SetDefault("sink.redis.db", 0)
	v.SetDefault("sink.redis.password", "")
	v.SetDefault("sink.redis.prefix", "footfall")
	v.SetDefault("sink.sqlite.path", "footfall.db")
	v.SetDefault("sink.s3.endpoint", "")
	v.SetDefault("sink.s3.region", "us-east-1")
	v.SetDefault("sink.s3.bucket", "footfall")
	v.SetDefault("sink.s3.access_key", "")
	v.SetDefault("sink.s3.secret_key", "")
	v.SetDefault("sink.s3.prefix", "series")
	v.SetDefault("sink.kafka.brokers", "kafka:9092")
	v.SetDefault("sink.kafka.topic_prefix", "footfall")
	v.SetDefault("sink.kafka.rate", 0.0)
	v.SetDefault("sink.mqtt.broker", "tcp://localhost:1883")
	v.SetDefault("sink.mqtt.client_id", "footfall-generator")
	v.SetDefault("sink.mqtt.topic_prefix", "footfall")
	v.SetDefault("sink.mqtt.qos", 0)
	v.SetDefault("sink.mqtt.rate", 0.0)
	v.SetDefault("circuit.max_failures", 5)
	v.SetDefault("circuit.reset_timeout", "30s")
	v.SetDefault("circuit.successes_to_close", 2)

	v.SetDefault("http.listen_address", ":8090")
	v.SetDefault("http.read_timeout", "5s")
	v.SetDefault("http.write_timeout", "60s")
	v.SetDefault("http.shutdown_timeout", "5s")

	v.SetDefault("log.file", "./footfall.log")
	v.SetDefault("log.level", "info")
}

// Load resolves configuration by layering defaults, an optional properties
// file, and finally environment variables. An empty path falls back to
// SIM_PROPERTIES; a missing default file is not an error.
func Load(path string) (Config, error) {
	v, err := newViper(path)
	if err != nil {
		return Config{}, err
	}
	return fromViper(v)
}

func newViper(path string) (*viper.Viper, error) {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	explicit := strings.TrimSpace(path) != ""
	if !explicit {
		path = strings.TrimSpace(os.Getenv(PropertiesEnv))
	}
	if path == "" {
		return v, nil
	}
	v.SetConfigFile(path)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		v.SetConfigType("yaml")
	default:
		v.SetConfigType("properties")
	}
	if err := v.ReadInConfig(); err != nil {
		if !explicit && errors.Is(err, os.ErrNotExist) {
			return v, nil
		}
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	return v, nil
}

func fromViper(v *viper.Viper) (Config, error) {
	cfg := Config{
		PropertiesPath: v.ConfigFileUsed(),
		Venue:          v.GetString("venue.id"),
		HolidayDates:   list(v, "holidays.dates"),
		HolidayFile:    v.GetString("holidays.file"),
		HolidayRegion:  v.GetString("holidays.region"),
		HTTP: HTTP{
			ListenAddress:   v.GetString("http.listen_address"),
			ReadTimeout:     v.GetDuration("http.read_timeout"),
			WriteTimeout:    v.GetDuration("http.write_timeout"),
			ShutdownTimeout: v.GetDuration("http.shutdown_timeout"),
		},
		Log: Log{File: v.GetString("log.file"), Level: v.GetString("log.level")},
	}

	var err error
	if cfg.Run, err = runFrom(v); err != nil {
		return Config{}, err
	}
	cfg.Metrics = metricsFrom(v, list(v, "metrics"))
	cfg.Sinks = sinksFrom(v)
	return cfg, nil
}

func runFrom(v *viper.Viper) (Run, error) {
	start, err := timeAt(v, "run.start")
	if err != nil {
		return Run{}, fmt.Errorf("run.start: %w", err)
	}
	end, err := timeAt(v, "run.end")
	if err != nil {
		return Run{}, fmt.Errorf("run.end: %w", err)
	}
	granularity, err := time.ParseDuration(v.GetString("run.granularity"))
	if err != nil {
		return Run{}, fmt.Errorf("run.granularity: %w", err)
	}
	diurnal, err := ParseDiurnal(v.GetString("peaks.diurnal"))
	if err != nil {
		return Run{}, err
	}
	seasons, err := ParseSeasons(v.GetString("peaks.season"))
	if err != nil {
		return Run{}, err
	}
	r := Run{
		Start:          start,
		End:            end,
		Granularity:    granularity,
		Anchors:        v.GetInt("run.anchors"),
		AnchorSeed:     v.GetUint64("run.anchor_seed"),
		IncludeTail:    v.GetBool("run.include_tail"),
		AnomalySeries:  v.GetBool("run.anomaly_series"),
		HigherWeekdays: v.GetBool("run.higher_weekdays"),
		Update:         v.GetBool("run.update"),
		Clip:           anomaly.Clip{Min: v.GetFloat64("anomaly.clip_min"), Max: v.GetFloat64("anomaly.clip_max")},
		Diurnal:        diurnal,
		Seasons:        seasons,
	}
	if raw := strings.TrimSpace(v.GetString("run.noise_seed")); raw != "" {
		seed, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			return Run{}, fmt.Errorf("run.noise_seed: %w", err)
		}
		r.NoiseSeed = &seed
	}
	return r, nil
}

// metricsFrom resolves every metric name; metric.<name>.<key> overrides the
// shared metric.<key> values.
func metricsFrom(v *viper.Viper, names []string) []Metric {
	out := make([]Metric, 0, len(names))
	for _, name := range names {
		get := func(key string) string {
			if k := "metric." + name + "." + key; v.IsSet(k) {
				return k
			}
			return "metric." + key
		}
		uc := compose.ParseUseCase(name)
		if raw := v.GetString(get("use_case")); raw != "" {
			uc = compose.ParseUseCase(raw)
		}
		out = append(out, Metric{
			Name:    name,
			UseCase: uc,
			Base:    compose.Base{Mean: v.GetFloat64(get("mean")), SD: v.GetFloat64(get("sd"))},
			Bounds:  compose.Bounds{Min: v.GetFloat64(get("min")), Max: v.GetFloat64(get("max"))},
		})
	}
	return out
}

func sinksFrom(v *viper.Viper) sink.Options {
	return sink.Options{
		Enabled: list(v, "sinks"),
		Timeout: v.GetDuration("sink.timeout"),
		Breaker: circuitbreaker.Config{
			MaxFailures:      v.GetInt("circuit.max_failures"),
			ResetTimeout:     v.GetDuration("circuit.reset_timeout"),
			SuccessesToClose: v.GetInt("circuit.successes_to_close"),
		},
		FileDir:       v.GetString("sink.file.dir"),
		RedisAddr:     v.GetString("sink.redis.addr"),
		RedisDB:       v.GetInt("sink.redis.db"),
		RedisPassword: v.GetString("sink.redis.password"),
		RedisPrefix:   v.GetString("sink.redis.prefix"),
		SQLitePath:    v.GetString("sink.sqlite.path"),
		S3: sink.S3Options{
			Endpoint:  v.GetString("sink.s3.endpoint"),
			Region:    v.GetString("sink.s3.region"),
			Bucket:    v.GetString("sink.s3.bucket"),
			AccessKey: v.GetString("sink.s3.access_key"),
			SecretKey: v.GetString("sink.s3.secret_key"),
			Prefix:    v.GetString("sink.s3.prefix"),
		},
		KafkaBrokers:     list(v, "sink.kafka.brokers"),
		KafkaTopicPrefix: v.GetString("sink.kafka.topic_prefix"),
		KafkaPerSecond:   v.GetFloat64("sink.kafka.rate"),
		MQTT: sink.MQTTOptions{
			Broker:      v.GetString("sink.mqtt.broker"),
			ClientID:    v.GetString("sink.mqtt.client_id"),
			TopicPrefix: v.GetString("sink.mqtt.topic_prefix"),
			QoS:         byte(v.GetUint("sink.mqtt.qos")),
			PerSecond:   v.GetFloat64("sink.mqtt.rate"),
		},
	}
}

// Validate rejects malformed ranges, counts, bounds and peaks before any
// sampling happens.
func (c Config) Validate() error {
	var errs []error
	if !c.Run.End.After(c.Run.Start) {
		errs = append(errs, fmt.Errorf("run range is not chronological: %s .. %s",
			c.Run.Start.Format(time.RFC3339), c.Run.End.Format(time.RFC3339)))
	}
	if c.Run.Granularity <= 0 {
		errs = append(errs, errors.New("run.granularity must be positive"))
	}
	if c.Run.Anchors <= 0 {
		errs = append(errs, errors.New("run.anchors must be positive"))
	} else if c.Run.End.After(c.Run.Start) {
		if err := generator.CheckAnchors(c.Run.Start, c.Run.End, c.Run.Anchors); err != nil {
			errs = append(errs, fmt.Errorf("run.anchors: %w", err))
		}
	}
	if err := c.Run.Clip.Validate(); err != nil {
		errs = append(errs, err)
	}
	if len(c.Metrics) == 0 {
		errs = append(errs, errors.New("at least one metric is required"))
	}
	for _, m := range c.Metrics {
		if err := m.Bounds.Validate(); err != nil {
			errs = append(errs, fmt.Errorf("metric %s: %w", m.Name, err))
		}
		if m.Base.SD < 0 {
			errs = append(errs, fmt.Errorf("metric %s: sd must be >= 0", m.Name))
		}
	}
	if c.Sinks.Breaker.Validate() != nil {
		errs = append(errs, fmt.Errorf("circuit: %w", c.Sinks.Breaker.Validate()))
	}
	if c.Sinks.MQTT.QoS > 2 {
		errs = append(errs, errors.New("sink.mqtt.qos must be 0, 1 or 2"))
	}
	return errors.Join(errs...)
}

// timeAt tolerates YAML timestamps, which arrive already decoded.
func timeAt(v *viper.Viper, key string) (time.Time, error) {
	if t, ok := v.Get(key).(time.Time); ok {
		return t.UTC(), nil
	}
	return ParseTime(v.GetString(key))
}

// ParseTime accepts YYYY-MM-DD or RFC 3339 and returns UTC.
func ParseTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(dateLayout, s); err == nil {
		return t.UTC(), nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid time %q: use YYYY-MM-DD or RFC3339", s)
	}
	return t.UTC(), nil
}

// ParseDiurnal parses "8,18" (fractional hours allowed).
func ParseDiurnal(s string) (weights.DiurnalPeaks, error) {
	parts := splitCSV(s)
	if len(parts) != 2 {
		return weights.DiurnalPeaks{}, fmt.Errorf("peaks.diurnal: want two hours, got %q", s)
	}
	first, err1 := strconv.ParseFloat(parts[0], 64)
	second, err2 := strconv.ParseFloat(parts[1], 64)
	if err := errors.Join(err1, err2); err != nil {
		return weights.DiurnalPeaks{}, fmt.Errorf("peaks.diurnal: %w", err)
	}
	p := weights.DiurnalPeaks{First: first, Second: second}
	return p, p.Validate()
}

// ParseSeasons parses "2022-12,2023-07"; months may be fractional ("2023-7.5").
func ParseSeasons(s string) (weights.SeasonPeaks, error) {
	parts := splitCSV(s)
	if len(parts) != 2 {
		return weights.SeasonPeaks{}, fmt.Errorf("peaks.season: want two YYYY-MM peaks, got %q", s)
	}
	var peaks [2]weights.SeasonPeak
	for i, p := range parts {
		y, m, ok := strings.Cut(p, "-")
		if !ok {
			return weights.SeasonPeaks{}, fmt.Errorf("peaks.season: invalid peak %q", p)
		}
		year, err := strconv.Atoi(y)
		if err != nil {
			return weights.SeasonPeaks{}, fmt.Errorf("peaks.season: invalid year in %q: %w", p, err)
		}
		month, err := strconv.ParseFloat(m, 64)
		if err != nil {
			return weights.SeasonPeaks{}, fmt.Errorf("peaks.season: invalid month in %q: %w", p, err)
		}
		peaks[i] = weights.SeasonPeak{Year: year, Month: month}
	}
	sp := weights.SeasonPeaks{First: peaks[0], Second: peaks[1]}
	return sp, sp.Validate()
}

// list reads a key given either as a YAML sequence or a comma separated string.
func list(v *viper.Viper, key string) []string {
	if raw, ok := v.Get(key).([]any); ok {
		out := make([]string, 0, len(raw))
		for _, item := range raw {
			out = append(out, strings.TrimSpace(fmt.Sprint(item)))
		}
		return out
	}
	return splitCSV(v.GetString(key))
}

func splitCSV(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		out = append(out, p)
	}
	return out
}
