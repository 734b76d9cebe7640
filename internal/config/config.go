package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"sort"
	"strings"
	"time"

	"elearning-quiz-service/internal/domain"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Result sink drivers.
const (
	ResultsCSV      = "csv"
	ResultsPostgres = "postgres"
	ResultsSQLite   = "sqlite"
	ResultsRedis    = "redis"
	ResultsMemory   = "memory"
)

// Mail transports.
const (
	TransportSMTP     = "smtp"
	TransportSendgrid = "sendgrid"
	TransportConsole  = "console"
)

// Question sources.
const (
	SourceFile     = "file"
	SourcePostgres = "postgres"
	SourceSQLite   = "sqlite"
)

type Config struct {
	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`
	Log struct {
		Level  string `yaml:"level" validate:"omitempty,oneof=debug info warn error"`
		Format string `yaml:"format" validate:"omitempty,oneof=text json"`
	} `yaml:"log"`
	Authentication struct {
		RosterCSVPath string `yaml:"roster_csv_path" validate:"required"`
		EmailColumn   string `yaml:"email_column"`
		NameColumn    string `yaml:"name_column"`
	} `yaml:"authentication"`
	Admins  []string               `yaml:"admins" validate:"dive,email"`
	Themes  map[string]ThemeConfig `yaml:"themes" validate:"required,min=1,dive"`
	Email   EmailConfig            `yaml:"email_settings"`
	Results struct {
		Driver     string `yaml:"driver" validate:"omitempty,oneof=csv postgres sqlite redis memory"`
		CSVPath    string `yaml:"csv_path"`
		SQLitePath string `yaml:"sqlite_path"`
	} `yaml:"results"`
	Questions struct {
		Source string `yaml:"source" validate:"omitempty,oneof=file postgres sqlite"`
		TTL    string `yaml:"ttl"`
	} `yaml:"questions"`
	Effects struct {
		Timeout string `yaml:"timeout"`
	} `yaml:"effects"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		TTL      string `yaml:"ttl"`
	} `yaml:"redis"`
	Postgres struct {
		URL string `yaml:"url"`
	} `yaml:"postgres"`

	// themeOrder is the key order of the themes mapping as written in the file.
	themeOrder []string
}

// ThemeConfig is one entry of the themes mapping; the mapping key is the theme key.
type ThemeConfig struct {
	Title            string `yaml:"title" validate:"required"`
	Description      string `yaml:"description"`
	TimeLimitMinutes int    `yaml:"time_limit_minutes" validate:"gt=0"`
	PassingScore     int    `yaml:"passing_score" validate:"min=0,max=100"`
	Enabled          bool   `yaml:"enabled"`
	MaterialPath     string `yaml:"material_path"`
	QuestionsPath    string `yaml:"questions_path"`
}

type EmailConfig struct {
	Transport          string `yaml:"transport" validate:"omitempty,oneof=smtp sendgrid console"`
	SMTPServer         string `yaml:"smtp_server"`
	SMTPPort           int    `yaml:"smtp_port" validate:"min=0,max=65535"`
	From               string `yaml:"from" validate:"omitempty,email"`
	SubjectPrefix      string `yaml:"subject_prefix"`
	Timeout            string `yaml:"timeout"`
	SendOnStart        bool   `yaml:"send_on_start"`
	SendOnCompletion   bool   `yaml:"send_on_completion"`
	SendOnRetakeNeeded bool   `yaml:"send_on_retake_needed"`
}

// Credentials are read from the environment, never from the YAML file.
type Credentials struct {
	SMTPUsername   string
	SMTPPassword   string
	SendgridAPIKey string
}

// Load reads YAML config from path, applies defaults and validates it.
// Every failure wraps domain.ErrConfigLoad.
func Load(path string) (Config, error) {
	cfg := Config{}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("%w: %v", domain.ErrConfigLoad, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("%w: parse %s: %v", domain.ErrConfigLoad, path, err)
	}
	cfg.themeOrder = mappingKeys(data, "themes")
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("%w: %v", domain.ErrConfigLoad, err)
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
	if c.Authentication.EmailColumn == "" {
		c.Authentication.EmailColumn = "email"
	}
	if c.Authentication.NameColumn == "" {
		c.Authentication.NameColumn = "name"
	}
	if c.Email.Transport == "" {
		c.Email.Transport = TransportConsole
	}
	if c.Email.SubjectPrefix == "" {
		c.Email.SubjectPrefix = "[E-Learning]"
	}
	if c.Email.Transport == TransportSMTP && c.Email.SMTPPort == 0 {
		c.Email.SMTPPort = 587
	}
	if c.Results.Driver == "" {
		c.Results.Driver = ResultsCSV
	}
	if c.Results.CSVPath == "" {
		c.Results.CSVPath = "data/results-{theme}.csv"
	}
	if c.Results.SQLitePath == "" {
		c.Results.SQLitePath = "data/results.db"
	}
	if c.Questions.Source == "" {
		c.Questions.Source = SourceFile
	}
}

// Validate checks struct tags and the cross-field rules tags cannot express.
func (c Config) Validate() error {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("yaml"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	if err := v.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s: failed %q", fe.Namespace(), fe.Tag()))
			}
			return errors.New(strings.Join(msgs, "; "))
		}
		return err
	}

	if c.Questions.Source == SourceFile {
		for key, theme := range c.Themes {
			if theme.QuestionsPath == "" {
				return fmt.Errorf("themes.%s.questions_path is required when questions.source is file", key)
			}
		}
	}
	if c.Questions.Source == SourcePostgres && c.Postgres.URL == "" {
		return errors.New("postgres.url is required when questions.source is postgres")
	}
	if c.Results.Driver == ResultsPostgres && c.Postgres.URL == "" {
		return errors.New("postgres.url is required when results.driver is postgres")
	}
	if c.Results.Driver == ResultsRedis && c.Redis.Addr == "" {
		return errors.New("redis.addr is required when results.driver is redis")
	}
	if c.Email.Transport == TransportSMTP && c.Email.SMTPServer == "" {
		return errors.New("email_settings.smtp_server is required for the smtp transport")
	}
	if c.Email.Transport != TransportConsole && c.Email.From == "" {
		return errors.New("email_settings.from is required for outbound mail")
	}
	for _, raw := range []string{c.Questions.TTL, c.Effects.Timeout, c.Email.Timeout, c.Redis.TTL} {
		if raw == "" {
			continue
		}
		if _, err := time.ParseDuration(raw); err != nil {
			return fmt.Errorf("invalid duration %q: %v", raw, err)
		}
	}
	return nil
}

// mappingKeys returns the keys of the top-level mapping named field, in document order.
func mappingKeys(data []byte, field string) []string {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil || len(doc.Content) == 0 {
		return nil
	}
	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return nil
	}
	for i := 0; i+1 < len(root.Content); i += 2 {
		if root.Content[i].Value != field || root.Content[i+1].Kind != yaml.MappingNode {
			continue
		}
		node := root.Content[i+1]
		keys := make([]string, 0, len(node.Content)/2)
		for j := 0; j+1 < len(node.Content); j += 2 {
			keys = append(keys, node.Content[j].Value)
		}
		return keys
	}
	return nil
}

// ThemeList returns the configured themes in the order the config file lists them.
// Themes not seen in the file (set programmatically) follow, ordered by key.
func (c Config) ThemeList() []domain.Theme {
	keys := make([]string, 0, len(c.Themes))
	seen := make(map[string]bool, len(c.Themes))
	for _, key := range c.themeOrder {
		if _, ok := c.Themes[key]; ok && !seen[key] {
			keys = append(keys, key)
			seen[key] = true
		}
	}
	rest := make([]string, 0, len(c.Themes)-len(keys))
	for key := range c.Themes {
		if !seen[key] {
			rest = append(rest, key)
		}
	}
	sort.Strings(rest)
	keys = append(keys, rest...)

	themes := make([]domain.Theme, 0, len(keys))
	for _, key := range keys {
		tc := c.Themes[key]
		themes = append(themes, domain.Theme{
			Key:              key,
			Title:            tc.Title,
			Description:      tc.Description,
			TimeLimitMinutes: tc.TimeLimitMinutes,
			PassingScore:     tc.PassingScore,
			Enabled:          tc.Enabled,
			MaterialPath:     tc.MaterialPath,
			QuestionsPath:    tc.QuestionsPath,
		})
	}
	return themes
}

// LoadCredentials loads an optional .env file next to the config, then reads mail credentials from the environment.
func LoadCredentials(configPath string) (Credentials, error) {
	dotEnv := filepath.Join(filepath.Dir(configPath), ".env")
	if _, err := os.Stat(dotEnv); err == nil {
		if err := godotenv.Load(dotEnv); err != nil {
			return Credentials{}, fmt.Errorf("%w: load %s: %v", domain.ErrConfigLoad, dotEnv, err)
		}
	} else if !os.IsNotExist(err) {
		return Credentials{}, fmt.Errorf("%w: stat %s: %v", domain.ErrConfigLoad, dotEnv, err)
	}
	return Credentials{
		SMTPUsername:   os.Getenv("SMTP_USERNAME"),
		SMTPPassword:   os.Getenv("SMTP_PASSWORD"),
		SendgridAPIKey: os.Getenv("SENDGRID_API_KEY"),
	}, nil
}

// TTLDuration parses a duration string or returns the fallback if empty.
func TTLDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	return fallback
}
