// Package config provides centralized configuration management.
// All CBA_* environment lookups live here; components receive values explicitly.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/joho/godotenv"
)

// Defaults applied by the bootstrap layer when a variable is unset.
const (
	DefaultAPIBase    = "http://localhost:8000"
	DefaultRepoURL    = "https://github.com/org/repo"
	DefaultBranch     = "main"
	DefaultCommitRef  = "HEAD"
	DefaultLogLevel   = "info"
	DefaultTopModule  = "apps/api/app/main.py"
	DefaultConfidence = "0.87"
	DefaultRisk       = "low"
)

// CBAEnv holds all console environment variables.
type CBAEnv struct {
	// APIBase is the analysis service base address (CBA_API_BASE)
	APIBase string

	// RepoURL pre-fills the repository input (CBA_DEFAULT_REPO_URL)
	RepoURL string

	// Branch is sent with every import request (CBA_BRANCH)
	Branch string

	// CommitRef is sent with every analysis request (CBA_COMMIT_REF)
	CommitRef string

	// LogLevel is debug, info, warn or error (CBA_LOG_LEVEL)
	LogLevel string

	// Journal enables the local run journal (CBA_JOURNAL)
	Journal bool

	// Summary values used by the stand-in answerer
	TopModule  string // CBA_SUMMARY_TOP_MODULE
	Confidence string // CBA_SUMMARY_CONFIDENCE
	Risk       string // CBA_SUMMARY_RISK
}

var (
	env     *CBAEnv
	envOnce sync.Once
)

// Env returns the singleton environment configuration.
// Thread-safe, loads once on first call.
func Env() *CBAEnv {
	envOnce.Do(func() {
		env = &CBAEnv{
			APIBase:    strings.TrimRight(getEnvDefault("CBA_API_BASE", DefaultAPIBase), "/"),
			RepoURL:    getEnvDefault("CBA_DEFAULT_REPO_URL", DefaultRepoURL),
			Branch:     getEnvDefault("CBA_BRANCH", DefaultBranch),
			CommitRef:  getEnvDefault("CBA_COMMIT_REF", DefaultCommitRef),
			LogLevel:   strings.ToLower(getEnvDefault("CBA_LOG_LEVEL", DefaultLogLevel)),
			Journal:    getEnvBool("CBA_JOURNAL", false),
			TopModule:  getEnvDefault("CBA_SUMMARY_TOP_MODULE", DefaultTopModule),
			Confidence: getEnvDefault("CBA_SUMMARY_CONFIDENCE", DefaultConfidence),
			Risk:       strings.ToLower(getEnvDefault("CBA_SUMMARY_RISK", DefaultRisk)),
		}
	})
	return env
}

// ResetEnv resets the cached environment (for testing).
func ResetEnv() {
	envOnce = sync.Once{}
	env = nil
}

// Validate checks values that components cannot recover from.
func (e *CBAEnv) Validate() error {
	if e.APIBase == "" {
		return fmt.Errorf("CBA_API_BASE cannot be empty")
	}
	if !strings.HasPrefix(e.APIBase, "http://") && !strings.HasPrefix(e.APIBase, "https://") {
		return fmt.Errorf("CBA_API_BASE must be an http(s) address, got %q", e.APIBase)
	}
	if e.Branch == "" {
		return fmt.Errorf("CBA_BRANCH cannot be empty")
	}
	if e.CommitRef == "" {
		return fmt.Errorf("CBA_COMMIT_REF cannot be empty")
	}
	switch e.Risk {
	case "low", "medium", "high":
	default:
		return fmt.Errorf("CBA_SUMMARY_RISK must be low, medium or high, got %q", e.Risk)
	}
	return nil
}

// LoadDotEnv loads .env files into the process environment.
// Existing variables win; missing files are not an error.
// Returns the files that were actually loaded.
func LoadDotEnv() []string {
	var loaded []string
	for _, path := range []string{".env", GetPaths().EnvFile} {
		if _, err := os.Stat(path); err != nil {
			continue
		}
		if err := godotenv.Load(path); err == nil {
			loaded = append(loaded, path)
		}
	}
	return loaded
}

func getEnvDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}

// Paths holds standard console directory paths.
type Paths struct {
	// Home is the console home directory (~/.codebase-agent)
	Home string

	// EnvFile is the .env file path (~/.codebase-agent/.env)
	EnvFile string

	// Journal is the run journal database (~/.codebase-agent/journal.db)
	Journal string

	// ConsoleLog receives logs while the console owns the terminal
	ConsoleLog string
}

var (
	paths     *Paths
	pathsOnce sync.Once
)

// GetPaths returns the singleton paths configuration.
func GetPaths() *Paths {
	pathsOnce.Do(func() {
		home, err := os.UserHomeDir()
		if err != nil {
			home = "."
		}
		cbaHome := filepath.Join(home, ".codebase-agent")

		paths = &Paths{
			Home:       cbaHome,
			EnvFile:    filepath.Join(cbaHome, ".env"),
			Journal:    filepath.Join(cbaHome, "journal.db"),
			ConsoleLog: filepath.Join(cbaHome, "console.log"),
		}
	})
	return paths
}

// ResetPaths resets the cached paths (for testing).
func ResetPaths() {
	pathsOnce = sync.Once{}
	paths = nil
}

// EnsureDir creates a directory if it doesn't exist.
func EnsureDir(path string) error {
	return os.MkdirAll(path, 0755)
}
