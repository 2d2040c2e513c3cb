// Package config loads feedmill's TOML configuration file with
// github.com/spf13/viper, the same library go-i2p-newsgo's cmd package
// uses for its (YAML) config, retargeted here to TOML per the documented
// file format. Every path-valued field (db-path, cache-dir, a scripted
// feed's script path) is resolved against the config file's directory at
// load time, so every downstream component only ever sees absolute paths.
package config

import (
	"fmt"
	"net/url"
	"path/filepath"
	"sort"
	"time"

	"github.com/spf13/viper"

	"feedmill/internal/extract"
	"feedmill/internal/scheduler"
	"feedmill/internal/timeparse"
)

// Error is the semantic "Config" error kind: a malformed file or a missing
// required field. Config errors are always fatal at startup.
type Error struct {
	Err error
}

func (e *Error) Error() string { return fmt.Sprintf("config: %v", e.Err) }
func (e *Error) Unwrap() error { return e.Err }

func wrapErr(format string, args ...any) *Error {
	return &Error{Err: fmt.Errorf(format, args...)}
}

// DefaultFetchInterval is used when the top-level fetch-interval key is
// absent.
const DefaultFetchInterval = 2 * time.Hour

// DefaultMaxInitialFetchSleep is used when max-initial-fetch-sleep is
// absent.
const DefaultMaxInitialFetchSleep = 45 * time.Second

// DefaultEntryLimit bounds how many entries internal/feedsvc returns per
// feed; not itself a configurable TOML key yet, but wiring it here gives
// a future key an obvious home.
const DefaultEntryLimit = 50

// Config is feedmill's fully resolved configuration: every path has
// already been made absolute, every duration parsed, and every feed's
// extractor built.
type Config struct {
	BindAddr             string
	DBPath               string
	CacheDir             string // "" disables the fetch cache
	FetchInterval        time.Duration
	MaxInitialFetchSleep time.Duration
	EntryLimit           int

	// Feeds is ready to hand to scheduler.Scheduler.Start.
	Feeds []scheduler.FeedConfig
}

// rawExtractor mirrors one [feeds.<id>.extractor] TOML table before its
// kind discriminates which fields are required.
type rawExtractor struct {
	Kind          string
	Entry         string
	ID            string `mapstructure:"id"`
	Title         string
	Description   string
	URL           string `mapstructure:"url"`
	Author        string
	PubDate       string `mapstructure:"pub-date"`
	PubDateFormat string `mapstructure:"pub-date-format"`
	Path          string
}

// rawFeed mirrors one [feeds.<id>] TOML table. Enabled is a pointer so the
// TOML-absent case (default true) is distinguishable from an explicit
// false.
type rawFeed struct {
	Enabled       *bool
	RequestURL    string `mapstructure:"request-url"`
	FetchInterval any    `mapstructure:"fetch-interval"`
	Extractor     rawExtractor
}

// rawConfig mirrors the whole TOML file as viper unmarshals it, before
// duration strings are parsed and paths resolved.
type rawConfig struct {
	BindAddr             string `mapstructure:"bind-addr"`
	DBPath               string `mapstructure:"db-path"`
	CacheDir             string `mapstructure:"cache-dir"`
	FetchInterval        any    `mapstructure:"fetch-interval"`
	MaxInitialFetchSleep any    `mapstructure:"max-initial-fetch-sleep"`
	Feeds                map[string]rawFeed
}

// Load reads and validates the TOML file at path, resolving every
// path-valued field against filepath.Dir(path).
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("toml")
	if err := v.ReadInConfig(); err != nil {
		return nil, wrapErr("reading %s: %w", path, err)
	}

	var raw rawConfig
	if err := v.Unmarshal(&raw); err != nil {
		return nil, wrapErr("parsing %s: %w", path, err)
	}

	if raw.BindAddr == "" {
		return nil, wrapErr("%s: bind-addr is required", path)
	}
	if raw.DBPath == "" {
		return nil, wrapErr("%s: db-path is required", path)
	}

	baseDir := filepath.Dir(path)

	fetchInterval, err := parseDurationOr(raw.FetchInterval, DefaultFetchInterval)
	if err != nil {
		return nil, wrapErr("%s: fetch-interval: %w", path, err)
	}
	maxInitialSleep, err := parseDurationOr(raw.MaxInitialFetchSleep, DefaultMaxInitialFetchSleep)
	if err != nil {
		return nil, wrapErr("%s: max-initial-fetch-sleep: %w", path, err)
	}

	cfg := &Config{
		BindAddr:             raw.BindAddr,
		DBPath:               resolvePath(baseDir, raw.DBPath),
		FetchInterval:        fetchInterval,
		MaxInitialFetchSleep: maxInitialSleep,
		EntryLimit:           DefaultEntryLimit,
	}
	if raw.CacheDir != "" {
		cfg.CacheDir = resolvePath(baseDir, raw.CacheDir)
	}

	// Sorted iteration keeps feed registration order (and therefore log
	// output and the HTTP index page) deterministic across runs, since
	// viper/mapstructure hands back a plain Go map.
	names := make([]string, 0, len(raw.Feeds))
	for name := range raw.Feeds {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		feedCfg, err := buildFeed(name, raw.Feeds[name], baseDir, fetchInterval)
		if err != nil {
			return nil, wrapErr("%s: feed %s: %w", path, name, err)
		}
		cfg.Feeds = append(cfg.Feeds, feedCfg)
	}

	return cfg, nil
}

func buildFeed(name string, rf rawFeed, baseDir string, defaultInterval time.Duration) (scheduler.FeedConfig, error) {
	if rf.RequestURL == "" {
		return scheduler.FeedConfig{}, fmt.Errorf("request-url is required")
	}
	u, err := url.Parse(rf.RequestURL)
	if err != nil {
		return scheduler.FeedConfig{}, fmt.Errorf("request-url: %w", err)
	}

	enabled := true
	if rf.Enabled != nil {
		enabled = *rf.Enabled
	}

	interval, err := parseDurationOr(rf.FetchInterval, defaultInterval)
	if err != nil {
		return scheduler.FeedConfig{}, fmt.Errorf("fetch-interval: %w", err)
	}

	extractorCfg, err := buildExtractorConfig(rf.Extractor, baseDir)
	if err != nil {
		return scheduler.FeedConfig{}, fmt.Errorf("extractor: %w", err)
	}
	ext, err := extract.New(name, extractorCfg)
	if err != nil {
		return scheduler.FeedConfig{}, err
	}

	return scheduler.FeedConfig{
		Name:      name,
		URL:       u,
		Interval:  interval,
		Enabled:   enabled,
		Extractor: ext,
	}, nil
}

func buildExtractorConfig(re rawExtractor, baseDir string) (extract.Config, error) {
	switch re.Kind {
	case "xpath":
		return extract.Config{
			Kind: "xpath",
			XPath: &extract.XPathConfig{
				Entry:         re.Entry,
				ID:            re.ID,
				Title:         re.Title,
				Description:   re.Description,
				URL:           re.URL,
				Author:        re.Author,
				PubDate:       re.PubDate,
				PubDateFormat: re.PubDateFormat,
			},
		}, nil
	case "lua":
		if re.Path == "" {
			return extract.Config{}, fmt.Errorf("kind=lua requires path")
		}
		return extract.Config{
			Kind: "lua",
			Script: &extract.ScriptConfig{
				Path: resolvePath(baseDir, re.Path),
			},
		}, nil
	case "":
		return extract.Config{}, fmt.Errorf("kind is required")
	default:
		return extract.Config{}, fmt.Errorf("unknown kind %q", re.Kind)
	}
}

// resolvePath resolves p against baseDir unless p is already absolute.
func resolvePath(baseDir, p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(baseDir, p)
}

// parseDurationOr parses a TOML duration value: a bare integer is seconds,
// a string is either an integer-second count or a Go duration like "1h30m".
// Returns def when the key is absent.
func parseDurationOr(v any, def time.Duration) (time.Duration, error) {
	switch d := v.(type) {
	case nil:
		return def, nil
	case string:
		if d == "" {
			return def, nil
		}
		return timeparse.ParseDuration(d)
	case int64:
		if d < 0 {
			return 0, fmt.Errorf("negative duration %d", d)
		}
		return time.Duration(d) * time.Second, nil
	case int:
		if d < 0 {
			return 0, fmt.Errorf("negative duration %d", d)
		}
		return time.Duration(d) * time.Second, nil
	default:
		return 0, fmt.Errorf("duration must be an integer second count or a duration string, got %T", v)
	}
}
