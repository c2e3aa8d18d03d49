// Package config handles application configuration.
package config

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/google/uuid"
	"go.aimuz.me/echoflow/internal/types"
)

const (
	appName        = "echoflow"
	configFileName = "config.json"
)

// Gain bounds accepted by SetAudioGain.
const (
	MinAudioGain = 0.1
	MaxAudioGain = 5.0
)

// DefaultHotkey is the key chord that triggers recording.
var DefaultHotkey = []string{"ctrl", "shift", "d"}

// Config represents the application configuration.
type Config struct {
	Credentials     []types.APICredential  `json:"credentials,omitempty"`
	RoutingProfiles []types.RoutingProfile `json:"routing_profiles,omitempty"`
	SpeechConfig    *types.SpeechConfig    `json:"speech_config,omitempty"`

	// DictationOnly disables intent routing regardless of the active profile.
	DictationOnly bool `json:"dictation_only"`

	RecordingMode types.RecordingMode `json:"recording_mode"`
	AudioGain     float64             `json:"audio_gain"`
	Hotkey        []string            `json:"hotkey,omitempty"`
	LiveInjection bool                `json:"live_injection"`
	RouteCache    bool                `json:"route_cache"`
	Vocabulary    []string            `json:"vocabulary,omitempty"`

	path string
}

// Load loads configuration from the default config file.
// Returns default config if file doesn't exist.
func Load() (*Config, error) {
	path, err := configPath()
	if err != nil {
		return nil, fmt.Errorf("get config path: %w", err)
	}
	return LoadFrom(path)
}

// LoadFrom loads configuration from path. Save writes back to the same path.
func LoadFrom(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg := defaultConfig()
			cfg.path = path
			return cfg, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}

	cfg := defaultConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	cfg.path = path
	cfg.applyDefaults()
	return cfg, nil
}

// Save persists the configuration to disk.
func (c *Config) Save() error {
	path := c.path
	if path == "" {
		p, err := configPath()
		if err != nil {
			return fmt.Errorf("get config path: %w", err)
		}
		path = p
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}

	return nil
}

// Path returns the file the configuration is saved to.
func (c *Config) Path() string {
	return c.path
}

// Dir returns the application's config directory, used for on-disk state
// such as the route cache.
func Dir() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("get user config dir: %w", err)
	}
	return filepath.Join(dir, appName), nil
}

func configPath() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, configFileName), nil
}

func defaultConfig() *Config {
	return &Config{
		RecordingMode: types.ModePushToTalk,
		AudioGain:     1.0,
		Hotkey:        slices.Clone(DefaultHotkey),
	}
}

func (c *Config) applyDefaults() {
	if c.RecordingMode == "" {
		c.RecordingMode = types.ModePushToTalk
	}
	if c.AudioGain <= 0 {
		c.AudioGain = 1.0
	}
	if len(c.Hotkey) == 0 {
		c.Hotkey = slices.Clone(DefaultHotkey)
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// API Credential Management
// ─────────────────────────────────────────────────────────────────────────────

// GetCredential returns a credential by ID.
func (c *Config) GetCredential(id string) *types.APICredential {
	for i := range c.Credentials {
		if c.Credentials[i].ID == id {
			return &c.Credentials[i]
		}
	}
	return nil
}

// AddCredential adds a new API credential.
func (c *Config) AddCredential(cred types.APICredential) error {
	if err := validateCredential(cred); err != nil {
		return err
	}
	if cred.ID == "" {
		cred.ID = uuid.New().String()
	}

	c.Credentials = append(c.Credentials, cred)
	return c.Save()
}

// UpdateCredential updates an existing credential.
func (c *Config) UpdateCredential(id string, cred types.APICredential) error {
	if err := validateCredential(cred); err != nil {
		return err
	}
	idx := slices.IndexFunc(c.Credentials, func(x types.APICredential) bool {
		return x.ID == id
	})
	if idx == -1 {
		return fmt.Errorf("credential not found: %s", id)
	}

	cred.ID = id // Preserve ID
	c.Credentials[idx] = cred
	return c.Save()
}

// RemoveCredential removes a credential by ID.
// Returns error if credential is in use by any profile or speech config.
func (c *Config) RemoveCredential(id string) error {
	for _, p := range c.RoutingProfiles {
		if p.CredentialID == id {
			return fmt.Errorf("credential in use by routing profile: %s", p.Name)
		}
	}
	if c.SpeechConfig != nil && c.SpeechConfig.CredentialID == id {
		return fmt.Errorf("credential in use by speech config")
	}

	idx := slices.IndexFunc(c.Credentials, func(x types.APICredential) bool {
		return x.ID == id
	})
	if idx == -1 {
		return fmt.Errorf("credential not found: %s", id)
	}

	c.Credentials = slices.Delete(c.Credentials, idx, idx+1)
	return c.Save()
}

func validateCredential(cred types.APICredential) error {
	if cred.Name == "" {
		return fmt.Errorf("credential name required")
	}
	if !cred.Kind.Valid() || cred.Kind == types.ProviderDictationOnly {
		return fmt.Errorf("invalid credential kind: %q", cred.Kind)
	}
	if cred.Kind == types.ProviderLocalCustom {
		u, err := url.Parse(cred.BaseURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("base url must be an http(s) url for %s", cred.Kind)
		}
		return nil
	}
	if cred.APIKey == "" {
		return fmt.Errorf("api key required")
	}
	return nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Routing Profile Management
// ─────────────────────────────────────────────────────────────────────────────

// GetActiveRoutingProfile returns the currently active routing profile.
func (c *Config) GetActiveRoutingProfile() *types.RoutingProfile {
	for i := range c.RoutingProfiles {
		if c.RoutingProfiles[i].Active {
			return &c.RoutingProfiles[i]
		}
	}
	return nil
}

// AddRoutingProfile adds a new routing profile.
func (c *Config) AddRoutingProfile(profile types.RoutingProfile) error {
	if profile.Name == "" {
		return fmt.Errorf("profile name required")
	}
	cred := c.GetCredential(profile.CredentialID)
	if cred == nil {
		return fmt.Errorf("credential not found: %s", profile.CredentialID)
	}
	if profile.ID == "" {
		profile.ID = uuid.New().String()
	}
	if profile.Model == "" {
		profile.Model = cred.Kind.DefaultModel()
	}

	// First profile or explicitly active: deactivate others
	if len(c.RoutingProfiles) == 0 || profile.Active {
		for i := range c.RoutingProfiles {
			c.RoutingProfiles[i].Active = false
		}
		profile.Active = true
	}

	c.RoutingProfiles = append(c.RoutingProfiles, profile)
	return c.Save()
}

// RemoveRoutingProfile removes a routing profile by ID.
func (c *Config) RemoveRoutingProfile(id string) error {
	idx := slices.IndexFunc(c.RoutingProfiles, func(x types.RoutingProfile) bool {
		return x.ID == id
	})
	if idx == -1 {
		return fmt.Errorf("profile not found: %s", id)
	}

	wasActive := c.RoutingProfiles[idx].Active
	c.RoutingProfiles = slices.Delete(c.RoutingProfiles, idx, idx+1)

	if wasActive && len(c.RoutingProfiles) > 0 {
		c.RoutingProfiles[0].Active = true
	}

	return c.Save()
}

// SetRoutingProfileActive sets a routing profile as active.
func (c *Config) SetRoutingProfileActive(id string) error {
	found := false
	for i := range c.RoutingProfiles {
		if c.RoutingProfiles[i].ID == id {
			c.RoutingProfiles[i].Active = true
			found = true
		} else {
			c.RoutingProfiles[i].Active = false
		}
	}
	if !found {
		return fmt.Errorf("profile not found: %s", id)
	}
	return c.Save()
}

// ActiveProvider resolves the active profile into a ProviderConfig.
// Without an active profile, or with DictationOnly set, routing is disabled.
func (c *Config) ActiveProvider() types.ProviderConfig {
	if c.DictationOnly {
		return types.ProviderConfig{Kind: types.ProviderDictationOnly}
	}
	profile := c.GetActiveRoutingProfile()
	if profile == nil {
		return types.ProviderConfig{Kind: types.ProviderDictationOnly}
	}
	cred := c.GetCredential(profile.CredentialID)
	if cred == nil {
		return types.ProviderConfig{Kind: types.ProviderDictationOnly}
	}
	return types.ProviderConfig{
		Kind:     cred.Kind,
		APIKey:   cred.APIKey,
		Model:    profile.Model,
		Endpoint: cred.BaseURL,
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Speech Configuration
// ─────────────────────────────────────────────────────────────────────────────

// SetSpeechConfig sets the speech configuration.
func (c *Config) SetSpeechConfig(cfg types.SpeechConfig) error {
	switch cfg.Engine {
	case "", "whisper-api":
		cfg.Engine = "whisper-api"
		if cfg.Model == "" {
			cfg.Model = "whisper-1"
		}
	case "realtime":
		if cfg.Model == "" {
			cfg.Model = "gpt-4o-transcribe"
		}
	default:
		return fmt.Errorf("unknown speech engine: %s", cfg.Engine)
	}

	if cfg.CredentialID != "" {
		cred := c.GetCredential(cfg.CredentialID)
		if cred == nil {
			return fmt.Errorf("credential not found: %s", cfg.CredentialID)
		}
		if cred.Kind != types.ProviderOpenAI && cred.Kind != types.ProviderLocalCustom {
			return fmt.Errorf("speech config requires OpenAI-compatible credential")
		}
	}

	c.SpeechConfig = &cfg
	return c.Save()
}

// ─────────────────────────────────────────────────────────────────────────────
// Capture Settings
// ─────────────────────────────────────────────────────────────────────────────

// SetRecordingMode switches between push-to-talk and toggle.
func (c *Config) SetRecordingMode(mode types.RecordingMode) error {
	if mode != types.ModePushToTalk && mode != types.ModeToggle {
		return fmt.Errorf("unknown recording mode: %s", mode)
	}
	c.RecordingMode = mode
	return c.Save()
}

// SetAudioGain sets the level-meter gain.
func (c *Config) SetAudioGain(gain float64) error {
	if gain < MinAudioGain || gain > MaxAudioGain {
		return fmt.Errorf("audio gain %.2f out of range [%.1f, %.1f]", gain, MinAudioGain, MaxAudioGain)
	}
	c.AudioGain = gain
	return c.Save()
}

// ─────────────────────────────────────────────────────────────────────────────
// Vocabulary
// ─────────────────────────────────────────────────────────────────────────────

// AddTerm adds a custom vocabulary term. Blank and duplicate terms are ignored.
func (c *Config) AddTerm(term string) error {
	term = strings.TrimSpace(term)
	if term == "" || slices.Contains(c.Vocabulary, term) {
		return nil
	}
	c.Vocabulary = append(c.Vocabulary, term)
	return c.Save()
}

// RemoveTerm removes every occurrence of term.
func (c *Config) RemoveTerm(term string) error {
	c.Vocabulary = slices.DeleteFunc(c.Vocabulary, func(v string) bool { return v == term })
	return c.Save()
}
