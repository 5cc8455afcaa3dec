package predictor

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.yaml.in/yaml/v3"
)

// ErrInvalidConfig is returned for predictor configurations that cannot be
// built.
var ErrInvalidConfig = errors.New("predictor: invalid config")

// MaxHistoryWidth is the widest shift register a predictor supports.
const MaxHistoryWidth = 64

// InitPolicy selects the counter value given to a history seen for the first
// time.
type InitPolicy string

const (
	// InitHistoryBiased starts at the midpoint plus the last observed
	// outcome, so a fresh entry leans toward repeating the latest branch.
	InitHistoryBiased InitPolicy = "history_biased"

	// InitMidpoint starts every fresh entry at the midpoint.
	InitMidpoint InitPolicy = "midpoint"
)

// Config holds predictor parameters.
type Config struct {
	// HistoryWidth is the number of recent outcomes in the shift register.
	// Must be between 1 and 64. Default: 16.
	HistoryWidth uint `json:"history_width" yaml:"history_width"`

	// TableSize is the number of counters the table keeps. Histories beyond
	// this many compete for slots. Default: 16.
	TableSize int `json:"table_size" yaml:"table_size"`

	// CounterStates is the number of saturating counter levels.
	// Must be >= 2. Default: 4 (strongly/weakly not-taken/taken).
	CounterStates uint64 `json:"counter_states" yaml:"counter_states"`

	// InitPolicy is the starting value of a new counter.
	// Default: history_biased.
	InitPolicy InitPolicy `json:"init_policy" yaml:"init_policy"`

	// Associativity selects the table organization. Zero keeps a fully
	// associative LRU table; otherwise the table has
	// TableSize/Associativity sets of Associativity ways. Default: 0.
	Associativity int `json:"associativity,omitempty" yaml:"associativity,omitempty"`
}

// DefaultConfig returns a 16-bit history, 16-entry, 4-state predictor.
func DefaultConfig() Config {
	return Config{
		HistoryWidth:  16,
		TableSize:     16,
		CounterStates: 4,
		InitPolicy:    InitHistoryBiased,
		Associativity: 0,
	}
}

// Validate checks that the configuration describes a buildable predictor.
func (c Config) Validate() error {
	if c.HistoryWidth == 0 || c.HistoryWidth > MaxHistoryWidth {
		return fmt.Errorf("%w: history_width must be in [1, %d], got %d",
			ErrInvalidConfig, MaxHistoryWidth, c.HistoryWidth)
	}
	if c.TableSize <= 0 {
		return fmt.Errorf("%w: table_size must be > 0, got %d", ErrInvalidConfig, c.TableSize)
	}
	if c.CounterStates < 2 {
		return fmt.Errorf("%w: counter_states must be >= 2, got %d", ErrInvalidConfig, c.CounterStates)
	}
	switch c.InitPolicy {
	case InitHistoryBiased, InitMidpoint:
	default:
		return fmt.Errorf("%w: unknown init_policy %q", ErrInvalidConfig, c.InitPolicy)
	}
	if c.Associativity < 0 {
		return fmt.Errorf("%w: associativity must be >= 0, got %d", ErrInvalidConfig, c.Associativity)
	}
	if c.Associativity > 0 && c.TableSize%c.Associativity != 0 {
		return fmt.Errorf("%w: associativity %d does not divide table_size %d",
			ErrInvalidConfig, c.Associativity, c.TableSize)
	}

	return nil
}

func isYAML(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return true
	}
	return false
}

// LoadConfig loads a Config from a JSON file, or a YAML file when the path
// ends in .yaml or .yml. Fields missing from the file keep their defaults.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read predictor config file: %w", err)
	}

	config := DefaultConfig()
	if isYAML(path) {
		err = yaml.Unmarshal(data, &config)
	} else {
		err = json.Unmarshal(data, &config)
	}
	if err != nil {
		return Config{}, fmt.Errorf("failed to parse predictor config: %w", err)
	}

	return config, nil
}

// SaveConfig writes the Config to a file, as YAML when the path ends in
// .yaml or .yml and as JSON otherwise.
func (c Config) SaveConfig(path string) error {
	var (
		data []byte
		err  error
	)
	if isYAML(path) {
		data, err = yaml.Marshal(c)
	} else {
		data, err = json.MarshalIndent(c, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("failed to serialize predictor config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write predictor config file: %w", err)
	}

	return nil
}
