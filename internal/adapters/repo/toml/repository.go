package toml

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/bnema/huddle/internal/domain"
	"github.com/bnema/huddle/internal/ports"
	toml "github.com/pelletier/go-toml/v2"
	"github.com/spf13/viper"
)

const (
	EnvPrefix = "HUDDLE"

	ConfigPathKey      = "config.path"
	HistoryPathKey     = "history.path"
	CalendarBaseURLKey = "calendar.base_url"

	DefaultCalendarBaseURL = "https://www.googleapis.com/calendar/v3"

	configFileMode  = 0o600
	configDirMode   = 0o700
	configDir       = ".huddle"
	configFile      = "huddle.toml"
	textHistoryFile = "past_pairings.txt"
	sqliteHistory   = "past_pairings.db"
	tempFilePattern = ".huddle-*.toml.tmp"
)

type Repository struct {
	configPath  string
	historyPath string
	baseURL     string
	homeDir     string
	mu          *sync.RWMutex
}

var (
	lockRegistryMu sync.Mutex
	pathLockMap    = map[string]*sync.RWMutex{}
)

var _ ports.RosterProvider = (*Repository)(nil)

func NewRepository(cfg *viper.Viper) (*Repository, error) {
	if cfg == nil {
		cfg = viper.New()
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("resolve home directory: %w", err)
	}

	cfg.SetEnvPrefix(EnvPrefix)
	cfg.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	cfg.AutomaticEnv()
	cfg.SetDefault(ConfigPathKey, filepath.Join(homeDir, configDir, configFile))
	cfg.SetDefault(CalendarBaseURLKey, DefaultCalendarBaseURL)

	configPath, err := normalizePath(homeDir, cfg.GetString(ConfigPathKey))
	if err != nil {
		return nil, err
	}

	cfg.SetConfigFile(configPath)
	cfg.SetConfigType("toml")
	if err := cfg.ReadInConfig(); err != nil {
		var configNotFound viper.ConfigFileNotFoundError
		if !errors.As(err, &configNotFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	historyPath := cfg.GetString(HistoryPathKey)
	if historyPath != "" {
		historyPath, err = normalizePath(homeDir, historyPath)
		if err != nil {
			return nil, err
		}
	}

	return &Repository{
		configPath:  configPath,
		historyPath: historyPath,
		baseURL:     strings.TrimRight(cfg.GetString(CalendarBaseURLKey), "/"),
		homeDir:     homeDir,
		mu:          lockForPath(configPath),
	}, nil
}

func (r *Repository) Path() string {
	return r.configPath
}

func (r *Repository) Load(ctx context.Context) (Config, error) {
	if err := ctx.Err(); err != nil {
		return Config{}, err
	}

	r.mu.RLock()
	file, err := r.readSchema()
	r.mu.RUnlock()
	if err != nil {
		return Config{}, err
	}

	config, err := toConfig(file)
	if err != nil {
		return Config{}, err
	}

	config.Calendar.BaseURL = r.baseURL
	config.History.Path = r.historyPath
	if config.History.Path == "" {
		name := textHistoryFile
		if config.History.Backend == "sqlite" {
			name = sqliteHistory
		}
		config.History.Path = filepath.Join(r.homeDir, configDir, name)
	}

	return config, nil
}

func (r *Repository) List(ctx context.Context) (domain.Roster, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	file, err := r.readSchema()
	if err != nil {
		return nil, err
	}

	return toRoster(file.People), nil
}

func (r *Repository) AddPerson(ctx context.Context, person domain.Person) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	id := strings.TrimSpace(string(person.ID))
	if id == "" || strings.ContainsAny(id, " \t\r\n") {
		return fmt.Errorf("%w: invalid email %q", domain.ErrInvalidConfig, person.ID)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	file, err := r.readSchema()
	if err != nil {
		return err
	}

	for _, existing := range file.People {
		if strings.EqualFold(strings.TrimSpace(existing.Email), id) {
			return fmt.Errorf("%w: %s is already on the roster", domain.ErrInvalidConfig, id)
		}
	}
	file.People = append(file.People, personSchema{Email: id, Name: strings.TrimSpace(person.Name)})

	if err := ctx.Err(); err != nil {
		return err
	}

	return r.writeSchema(file)
}

func (r *Repository) RemovePerson(ctx context.Context, id domain.PersonID) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	file, err := r.readSchema()
	if err != nil {
		return err
	}

	kept := file.People[:0]
	removed := false
	for _, person := range file.People {
		if strings.TrimSpace(person.Email) == string(id) {
			removed = true
			continue
		}
		kept = append(kept, person)
	}
	if !removed {
		return fmt.Errorf("%w: %s", domain.ErrPersonNotFound, id)
	}
	file.People = kept

	return r.writeSchema(file)
}

func (r *Repository) readSchema() (fileSchema, error) {
	var file fileSchema

	data, err := os.ReadFile(r.configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			file.applyDefaults()
			return file, nil
		}
		return fileSchema{}, fmt.Errorf("read huddle file: %w", err)
	}

	if err := toml.Unmarshal(data, &file); err != nil {
		return fileSchema{}, fmt.Errorf("%w: decode huddle file: %v", domain.ErrInvalidConfig, err)
	}
	if err := file.validateVersion(); err != nil {
		return fileSchema{}, fmt.Errorf("%w: %v", domain.ErrInvalidConfig, err)
	}
	file.applyDefaults()

	return file, nil
}

func normalizePath(homeDir, path string) (string, error) {
	if path == "" {
		return "", fmt.Errorf("%w: empty path", domain.ErrInvalidConfig)
	}
	if path == "~" || strings.HasPrefix(path, "~/") {
		path = filepath.Join(homeDir, strings.TrimPrefix(path, "~"))
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("resolve path %q: %w", path, err)
	}

	return filepath.Clean(absPath), nil
}

func lockForPath(path string) *sync.RWMutex {
	lockRegistryMu.Lock()
	defer lockRegistryMu.Unlock()

	if mu, ok := pathLockMap[path]; ok {
		return mu
	}

	mu := &sync.RWMutex{}
	pathLockMap[path] = mu
	return mu
}

func (r *Repository) writeSchema(file fileSchema) error {
	file.applyDefaults()

	if err := os.MkdirAll(filepath.Dir(r.configPath), configDirMode); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}

	data, err := toml.Marshal(file)
	if err != nil {
		return fmt.Errorf("encode huddle file: %w", err)
	}

	tempFile, err := os.CreateTemp(filepath.Dir(r.configPath), tempFilePattern)
	if err != nil {
		return fmt.Errorf("create temp huddle file: %w", err)
	}

	tempName := tempFile.Name()
	cleanup := true
	defer func() {
		if cleanup {
			_ = os.Remove(tempName)
		}
	}()

	if _, err := tempFile.Write(data); err != nil {
		_ = tempFile.Close()
		return fmt.Errorf("write temp huddle file: %w", err)
	}
	if err := tempFile.Chmod(configFileMode); err != nil {
		_ = tempFile.Close()
		return fmt.Errorf("chmod temp huddle file: %w", err)
	}
	if err := tempFile.Close(); err != nil {
		return fmt.Errorf("close temp huddle file: %w", err)
	}

	if err := os.Rename(tempName, r.configPath); err != nil {
		return fmt.Errorf("replace huddle file: %w", err)
	}
	cleanup = false

	return nil
}
