package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// DocsDirName is the content root looked up next to the program.
const DocsDirName = "docs"

// NAVFIX_DRY_RUN binds to --dry-run.
var envKeyReplacer = strings.NewReplacer("-", "_")

type Config struct {
	Dir         string
	ConfigFile  string
	Verbose     bool
	DryRun      bool
	Concurrency int
	Git         bool
	Watch       bool
	Debounce    time.Duration
	Report      string
	TermWidth   int
	NoColor     bool

	v *viper.Viper
}

func NewConfig() Config {
	return Config{v: viper.New()}
}

func (c *Config) InitFlags(cmd *cobra.Command) {
	f := cmd.PersistentFlags()
	f.StringP("dir", "d", "", "content root (default: docs next to the program)")
	f.StringP("config", "c", "", "path to config file")
	f.BoolP("verbose", "v", false, "enable verbose logging")
	f.BoolP("dry-run", "n", false, "report what would change without touching the tree")
	f.IntP("concurrency", "", runtime.NumCPU(), "max documents processed at once")
	f.BoolP("git", "", false, "move tracked files through the git index")
	f.BoolP("watch", "w", false, "keep fixing the tree as files change")
	f.DurationP("debounce", "", 300*time.Millisecond, "quiet period before a watch-mode run")
	f.StringP("report", "", "", "write a YAML run report to this file")
	f.IntP("width", "", 0, "terminal width override (0 = auto-detect)")
	f.BoolP("no-color", "", false, "disable colored output")

	for _, name := range []string{
		"dir", "config", "verbose", "dry-run", "concurrency", "git",
		"watch", "debounce", "report", "width", "no-color",
	} {
		_ = c.v.BindPFlag(name, f.Lookup(name))
	}
	c.v.SetEnvPrefix("navfix")
	c.v.SetEnvKeyReplacer(envKeyReplacer)
	c.v.AutomaticEnv()
}

// LoadFromViper reads the optional config file and copies the merged flag,
// environment and file values into c.
func (c *Config) LoadFromViper() error {
	if cfg := c.v.GetString("config"); cfg != "" {
		c.v.SetConfigFile(cfg)
	} else {
		c.v.SetConfigName("navfix")
		c.v.AddConfigPath(".")
	}

	if err := c.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("load config: %w", err)
		}
	}

	c.Dir = c.v.GetString("dir")
	c.ConfigFile = c.v.ConfigFileUsed()
	c.Verbose = c.v.GetBool("verbose")
	c.DryRun = c.v.GetBool("dry-run")
	c.Concurrency = c.v.GetInt("concurrency")
	c.Git = c.v.GetBool("git")
	c.Watch = c.v.GetBool("watch")
	c.Debounce = c.v.GetDuration("debounce")
	c.Report = c.v.GetString("report")
	c.TermWidth = c.v.GetInt("width")
	c.NoColor = c.v.GetBool("no-color")

	if c.Concurrency < 1 {
		c.Concurrency = runtime.NumCPU()
	}
	if c.Debounce <= 0 {
		c.Debounce = 300 * time.Millisecond
	}
	return nil
}

// ContentRoot returns the absolute content root: Dir when set, otherwise
// the first existing of <exe dir>/docs, <exe dir>/../docs and ./docs. When
// none exists the first candidate is returned so the caller can report it.
func (c *Config) ContentRoot() (string, error) {
	if c.Dir != "" {
		return filepath.Abs(c.Dir)
	}

	var candidates []string
	if exe, err := os.Executable(); err == nil {
		if resolved, err := filepath.EvalSymlinks(exe); err == nil {
			exe = resolved
		}
		exeDir := filepath.Dir(exe)
		candidates = append(candidates,
			filepath.Join(exeDir, DocsDirName),
			filepath.Join(filepath.Dir(exeDir), DocsDirName),
		)
	}
	candidates = append(candidates, DocsDirName)
	return firstExisting(candidates)
}

func firstExisting(candidates []string) (string, error) {
	for _, candidate := range candidates {
		if info, err := os.Stat(candidate); err == nil && info.IsDir() {
			return filepath.Abs(candidate)
		}
	}
	return filepath.Abs(candidates[0])
}
