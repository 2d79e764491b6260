// Package settings holds the runtime configuration of the agent, loaded
// through viper from flags, CANVAS_AGENT_* environment variables and the
// YAML config file viper was pointed at.
package settings

import (
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/huandu/go-clone"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	EnvPrefix = "canvas_agent"

	EngineOpenAI   = "openai"
	EngineScripted = "scripted"

	DefaultModel            = "gpt-4o"
	DefaultHistoryWindow    = 12
	DefaultMaxFrontendTools = 110
	DefaultMaxIterations    = 25
	DefaultListenAddr       = ":8000"
	DefaultGraphID          = "sample_agent"
)

var ErrInvalidSettings = errors.New("invalid settings")

type Settings struct {
	Engine     string `yaml:"engine" mapstructure:"engine" validate:"oneof=openai scripted"`
	ScriptFile string `yaml:"script_file,omitempty" mapstructure:"script-file"`

	Model         string   `yaml:"model" mapstructure:"model"`
	OpenAIAPIKey  string   `yaml:"openai_api_key,omitempty" mapstructure:"openai-api-key"`
	OpenAIBaseURL string   `yaml:"openai_base_url,omitempty" mapstructure:"openai-base-url" validate:"omitempty,url"`
	Temperature   *float64 `yaml:"temperature,omitempty" mapstructure:"-" validate:"omitempty,gte=0,lte=2"`

	HistoryWindow    int `yaml:"history_window" mapstructure:"history-window" validate:"gte=0"`
	MaxFrontendTools int `yaml:"max_frontend_tools" mapstructure:"max-frontend-tools" validate:"gte=0"`
	MaxIterations    int `yaml:"max_iterations" mapstructure:"max-iterations" validate:"gt=0"`

	ListenAddr     string        `yaml:"listen_addr" mapstructure:"listen-addr"`
	GraphID        string        `yaml:"graph_id" mapstructure:"graph-id" validate:"required"`
	RequestTimeout time.Duration `yaml:"request_timeout,omitempty" mapstructure:"request-timeout" validate:"gte=0"`
}

var validate = validator.New()

// New returns the defaults.
func New() *Settings {
	return &Settings{
		Engine:           EngineOpenAI,
		Model:            DefaultModel,
		HistoryWindow:    DefaultHistoryWindow,
		MaxFrontendTools: DefaultMaxFrontendTools,
		MaxIterations:    DefaultMaxIterations,
		ListenAddr:       DefaultListenAddr,
		GraphID:          DefaultGraphID,
	}
}

func (s *Settings) Clone() *Settings {
	return clone.Clone(s).(*Settings)
}

// AddFlags registers the agent flags on the command's persistent flag set.
func AddFlags(cmd *cobra.Command) {
	d := New()
	fs := cmd.PersistentFlags()
	fs.String("engine", d.Engine, "Model engine (openai, scripted)")
	fs.String("script-file", "", "YAML file of scripted responses (scripted engine)")
	fs.String("model", d.Model, "Chat model name")
	fs.String("openai-api-key", "", "OpenAI API key")
	fs.String("openai-base-url", "", "OpenAI compatible base URL")
	fs.Float64("temperature", 0, "Sampling temperature (provider default when unset)")
	fs.Int("history-window", d.HistoryWindow, "Number of recent messages sent to the model")
	fs.Int("max-frontend-tools", d.MaxFrontendTools, "Maximum number of frontend tools per model call")
	fs.Int("max-iterations", d.MaxIterations, "Maximum graph hops per request")
	fs.String("listen-addr", d.ListenAddr, "HTTP listen address")
	fs.String("graph-id", d.GraphID, "Graph id served over HTTP")
	fs.Duration("request-timeout", 0, "Per request timeout (0 disables)")
}

// BindViper points v at the CANVAS_AGENT_* environment and binds the agent
// flags of cmd. Config file lookup is left to the caller.
func BindViper(v *viper.Viper, cmd *cobra.Command) error {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if cmd == nil {
		return nil
	}
	if err := v.BindPFlags(cmd.PersistentFlags()); err != nil {
		return errors.Wrap(err, "bind flags")
	}
	if err := v.BindPFlags(cmd.Flags()); err != nil {
		return errors.Wrap(err, "bind flags")
	}
	log.Debug().Str("config", v.ConfigFileUsed()).Msg("Bound agent settings")
	return nil
}

// FromViper builds validated settings from v, falling back to defaults
// for keys that are not set anywhere.
func FromViper(v *viper.Viper) (*Settings, error) {
	s := New()
	if err := v.Unmarshal(s); err != nil {
		return nil, errors.Wrap(err, "decode settings")
	}
	if v.IsSet("temperature") {
		t := v.GetFloat64("temperature")
		s.Temperature = &t
	}
	if s.OpenAIAPIKey == "" {
		// the conventional variable works too
		s.OpenAIAPIKey = os.Getenv("OPENAI_API_KEY")
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// Validate checks the settings against their validate tags.
func (s *Settings) Validate() error {
	if err := validate.Struct(s); err != nil {
		return errors.Wrap(ErrInvalidSettings, err.Error())
	}
	return nil
}
