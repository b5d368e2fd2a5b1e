// Package config loads nodeflow settings from defaults, YAML files, the
// environment and CLI overrides.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	appErrors "nodeflow/internal/errors"

	"github.com/spf13/viper"
)

const (
	KeyStoragePath      = "storage.path"
	KeyStorageNamespace = "storage.namespace"
	KeyUserScope        = "user.scope"
	KeyAutosaveDebounce = "autosave.debounce"
	KeyHistoryLimit     = "history.limit"
	KeyImageCompression = "images.compression-level"
	KeyOutputFormat     = "output.format"
	KeyDebug            = "debug"
)

const (
	DefaultNamespace        = "nodeflow"
	DefaultDebounce         = 700 * time.Millisecond
	DefaultHistoryLimit     = 60
	DefaultCompressionLevel = 3
	DefaultOutputFormat     = "rich"

	// DirName holds both the user config and the default database.
	DirName      = ".nodeflow"
	configFile   = "config.yaml"
	databaseFile = "nodeflow.db"
	envPrefix    = "NF"
)

var outputFormats = map[string]struct{}{
	"rich":  {},
	"light": {},
	"plain": {},
}

// sources lists where configuration is read from. Blank fields are
// discovered when Initialize runs.
type sources struct {
	workingDir  string
	projectFile string
	userFile    string
}

// Option overrides a configuration source. Tests use these to keep the real
// home directory out of the picture.
type Option func(*sources)

// WithWorkingDir sets the directory project config discovery starts from.
func WithWorkingDir(dir string) Option {
	return func(s *sources) { s.workingDir = dir }
}

// WithProjectConfig pins the project config file and skips discovery.
func WithProjectConfig(path string) Option {
	return func(s *sources) { s.projectFile = path }
}

// WithUserConfig replaces ~/.nodeflow/config.yaml.
func WithUserConfig(path string) Option {
	return func(s *sources) { s.userFile = path }
}

var (
	loadOnce sync.Once
	mu       sync.RWMutex
	current  *viper.Viper
	loadErr  error
)

// Settings is a typed view of the loaded configuration.
type Settings struct {
	StoragePath      string
	Namespace        string
	UserScope        string
	Debounce         time.Duration
	HistoryLimit     int
	CompressionLevel int
	OutputFormat     string
	Debug            bool
}

// Initialize loads configuration once. Later layers win:
// defaults, user config, project config, NF_* environment, overrides.
func Initialize(opts ...Option) error {
	loadOnce.Do(func() {
		var src sources
		for _, opt := range opts {
			opt(&src)
		}
		v, err := build(src)
		mu.Lock()
		current, loadErr = v, err
		mu.Unlock()
	})
	mu.RLock()
	defer mu.RUnlock()
	return loadErr
}

// ApplyOverrides sets values that take precedence over every other layer,
// typically explicit CLI flags.
func ApplyOverrides(overrides map[string]any) error {
	if len(overrides) == 0 {
		return nil
	}
	v, err := instance()
	if err != nil {
		return err
	}
	mu.Lock()
	defer mu.Unlock()
	for key, value := range overrides {
		v.Set(key, value)
	}
	return nil
}

// Set overrides a single key.
func Set(key string, value any) error {
	return ApplyOverrides(map[string]any{key: value})
}

func GetString(key string) string          { return get(key, (*viper.Viper).GetString) }
func GetBool(key string) bool              { return get(key, (*viper.Viper).GetBool) }
func GetInt(key string) int                { return get(key, (*viper.Viper).GetInt) }
func GetDuration(key string) time.Duration { return get(key, (*viper.Viper).GetDuration) }

// get reads key through read, initializing on demand. A configuration that
// failed to load reads as zero values.
func get[T any](key string, read func(*viper.Viper, string) T) T {
	var zero T
	v, err := instance()
	if err != nil {
		return zero
	}
	mu.RLock()
	defer mu.RUnlock()
	return read(v, key)
}

// Load returns the validated settings. Out-of-range numbers fall back to
// their defaults; an unknown output format is a configuration error.
func Load() (Settings, error) {
	if err := Initialize(); err != nil {
		return Settings{}, err
	}
	s := Settings{
		StoragePath:      strings.TrimSpace(GetString(KeyStoragePath)),
		Namespace:        strings.TrimSpace(GetString(KeyStorageNamespace)),
		UserScope:        strings.TrimSpace(GetString(KeyUserScope)),
		Debounce:         GetDuration(KeyAutosaveDebounce),
		HistoryLimit:     GetInt(KeyHistoryLimit),
		CompressionLevel: GetInt(KeyImageCompression),
		OutputFormat:     strings.ToLower(strings.TrimSpace(GetString(KeyOutputFormat))),
		Debug:            GetBool(KeyDebug),
	}
	if s.StoragePath == "" {
		path, err := DefaultStoragePath()
		if err != nil {
			return Settings{}, err
		}
		s.StoragePath = path
	}
	if s.Namespace == "" {
		s.Namespace = DefaultNamespace
	}
	if s.Debounce <= 0 {
		s.Debounce = DefaultDebounce
	}
	if s.HistoryLimit <= 0 {
		s.HistoryLimit = DefaultHistoryLimit
	}
	if s.CompressionLevel <= 0 {
		s.CompressionLevel = DefaultCompressionLevel
	}
	if s.OutputFormat == "" {
		s.OutputFormat = DefaultOutputFormat
	}
	if _, ok := outputFormats[s.OutputFormat]; !ok {
		return Settings{}, appErrors.New(appErrors.CodeConfigurationError,
			fmt.Sprintf("unsupported output format %q (want rich, light or plain)", s.OutputFormat), nil)
	}
	return s, nil
}

// DefaultStoragePath is ~/.nodeflow/nodeflow.db.
func DefaultStoragePath() (string, error) {
	return homePath(databaseFile)
}

func homePath(name string) (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("determine user home: %w", err)
	}
	return filepath.Join(home, DirName, name), nil
}

func build(src sources) (*viper.Viper, error) {
	dir := strings.TrimSpace(src.workingDir)
	if dir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("determine working directory: %w", err)
		}
		dir = wd
	}
	userFile := strings.TrimSpace(src.userFile)
	if userFile == "" {
		path, err := homePath(configFile)
		if err != nil {
			return nil, err
		}
		userFile = path
	}
	projectFile := strings.TrimSpace(src.projectFile)
	if projectFile == "" {
		path, err := findProjectConfig(dir, userFile)
		if err != nil {
			return nil, err
		}
		projectFile = path
	}

	v := viper.New()
	v.SetConfigType("yaml")
	setDefaults(v)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	layers := []struct{ name, path string }{
		{"user", userFile},
		{"project", projectFile},
	}
	for _, layer := range layers {
		if err := mergeFile(v, layer.path); err != nil {
			return nil, fmt.Errorf("load %s config: %w", layer.name, err)
		}
	}
	return v, nil
}

// mergeFile layers a YAML file over v. Missing and empty files are skipped.
func mergeFile(v *viper.Viper, path string) error {
	if path == "" {
		return nil
	}
	info, err := os.Stat(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return nil
	case err != nil:
		return err
	case info.IsDir():
		return fmt.Errorf("%s is a directory", path)
	case info.Size() == 0:
		return nil
	}
	v.SetConfigFile(path)
	if err := v.MergeInConfig(); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}

// findProjectConfig walks up from startDir looking for .nodeflow/config.yaml.
// The user config is skipped so that running from $HOME does not load it twice.
func findProjectConfig(startDir, userConfigPath string) (string, error) {
	if strings.TrimSpace(startDir) == "" {
		return "", nil
	}
	dir := startDir
	for {
		candidate := filepath.Join(dir, DirName, configFile)
		info, err := os.Stat(candidate)
		if err == nil && filepath.Clean(candidate) != filepath.Clean(userConfigPath) {
			if info.IsDir() {
				return "", fmt.Errorf("config path %s is a directory", candidate)
			}
			return candidate, nil
		}
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("stat %s: %w", candidate, err)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", nil
		}
		dir = parent
	}
}

func setDefaults(v *viper.Viper) {
	v.SetDefault(KeyStoragePath, "")
	v.SetDefault(KeyStorageNamespace, DefaultNamespace)
	v.SetDefault(KeyUserScope, "")
	v.SetDefault(KeyAutosaveDebounce, DefaultDebounce)
	v.SetDefault(KeyHistoryLimit, DefaultHistoryLimit)
	v.SetDefault(KeyImageCompression, DefaultCompressionLevel)
	v.SetDefault(KeyOutputFormat, DefaultOutputFormat)
	v.SetDefault(KeyDebug, false)
}

func instance() (*viper.Viper, error) {
	if err := Initialize(); err != nil {
		return nil, err
	}
	mu.RLock()
	defer mu.RUnlock()
	if current == nil {
		return nil, errors.New("configuration not initialized")
	}
	return current, nil
}

// reset clears package state for tests.
func reset() {
	mu.Lock()
	defer mu.Unlock()
	current, loadErr = nil, nil
	loadOnce = sync.Once{}
}

// ResetForTesting clears package state for tests in other packages and
// initializes against an empty temp directory. Returns a cleanup function.
func ResetForTesting(t interface{ TempDir() string }) func() {
	reset()
	tmp := t.TempDir()
	_ = Initialize(WithWorkingDir(tmp), WithUserConfig(filepath.Join(tmp, "user.yaml")))
	return reset
}
