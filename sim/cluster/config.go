package cluster

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/inference-sim/kamino-sim/sim"
	"github.com/inference-sim/kamino-sim/sim/trace"
)

// HostSpec describes the capacity of every host in a scenario.
type HostSpec struct {
	PEs     int   `yaml:"pes"`
	MIPS    int   `yaml:"mips"` // per PE
	RAM     int64 `yaml:"ram"`  // MB
	BW      int64 `yaml:"bw"`   // Mbps
	Storage int64 `yaml:"storage"`
}

// VMSpec describes the demand of every VM in a scenario.
type VMSpec struct {
	PEs  int   `yaml:"pes"`
	MIPS int   `yaml:"mips"`
	RAM  int64 `yaml:"ram"`
	BW   int64 `yaml:"bw"`
	Size int64 `yaml:"size"`
}

// TaskSpec describes every task in a scenario.
type TaskSpec struct {
	Length int64 `yaml:"length"` // million instructions
	PEs    int   `yaml:"pes"`
}

// PrewarmSpec seeds host caches before any placement: the first Hosts hosts each get
// GroupsPerHost consecutive groups, starting at the host's own index.
type PrewarmSpec struct {
	Hosts         int `yaml:"hosts"`
	GroupsPerHost int `yaml:"groups_per_host"`
}

// ScenarioConfig is the full description of one run.
// All top-level sections must be listed to satisfy KnownFields(true) strict parsing.
type ScenarioConfig struct {
	Name            string      `yaml:"name"`
	Seed            int64       `yaml:"seed"`
	Policy          string      `yaml:"policy"`
	Hosts           int         `yaml:"hosts"`
	VMs             int         `yaml:"vms"`
	Tasks           int         `yaml:"tasks"`
	Host            HostSpec    `yaml:"host"`
	VM              VMSpec      `yaml:"vm"`
	Task            TaskSpec    `yaml:"task"`
	Prewarm         PrewarmSpec `yaml:"prewarm"`
	AccessCycles    int         `yaml:"access_cycles"`
	CacheCapacity   int         `yaml:"cache_capacity"`
	TraceLevel      string      `yaml:"trace_level"`
	CounterfactualK int         `yaml:"counterfactual_k"`
}

// DefaultScenario returns the reference workload: 6 hosts, 12 VMs, 24 tasks, the first
// three hosts prewarmed with two groups each and 40 access cycles per task.
func DefaultScenario() ScenarioConfig {
	return ScenarioConfig{
		Name:   "default",
		Seed:   42,
		Policy: "kamino",
		Hosts:  6,
		VMs:    12,
		Tasks:  24,
		Host: HostSpec{
			PEs:     8,
			MIPS:    1000,
			RAM:     4096,
			BW:      10_000,
			Storage: 1_000_000,
		},
		VM: VMSpec{
			PEs:  4,
			MIPS: 1000,
			RAM:  512,
			BW:   1000,
			Size: 10_000,
		},
		Task:            TaskSpec{Length: 10_000, PEs: 2},
		Prewarm:         PrewarmSpec{Hosts: 3, GroupsPerHost: 2},
		AccessCycles:    40,
		CacheCapacity:   sim.DefaultCacheCapacity,
		TraceLevel:      string(trace.TraceLevelNone),
		CounterfactualK: 0,
	}
}

// ComparisonScenarios returns the moderate, high and unbalanced load scenarios used by
// the compare command. Host/VM/task shapes match DefaultScenario.
func ComparisonScenarios() []ScenarioConfig {
	mk := func(name string, hosts, vms, tasks int) ScenarioConfig {
		cfg := DefaultScenario()
		cfg.Name = name
		cfg.Hosts, cfg.VMs, cfg.Tasks = hosts, vms, tasks
		return cfg
	}
	return []ScenarioConfig{
		mk("moderate", 6, 12, 24),
		mk("high", 4, 16, 48),
		mk("unbalanced", 8, 10, 30),
	}
}

// LoadScenarioConfig reads a YAML scenario. Fields absent from the file keep their
// DefaultScenario values; unknown fields are an error.
func LoadScenarioConfig(path string) (*ScenarioConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading scenario config: %w", err)
	}
	cfg := DefaultScenario()
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("parsing scenario config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid scenario config %s: %w", path, err)
	}
	return &cfg, nil
}

// Validate checks names and parameter ranges.
func (c *ScenarioConfig) Validate() error {
	if !sim.IsValidPlacementPolicy(c.Policy) {
		return fmt.Errorf("unknown placement policy %q", c.Policy)
	}
	if !trace.IsValidTraceLevel(c.TraceLevel) {
		return fmt.Errorf("unknown trace level %q", c.TraceLevel)
	}
	if c.Hosts < 0 || c.VMs < 0 || c.Tasks < 0 {
		return fmt.Errorf("hosts, vms and tasks must be non-negative, got %d/%d/%d", c.Hosts, c.VMs, c.Tasks)
	}
	if c.Host.PEs <= 0 || c.Host.MIPS <= 0 {
		return fmt.Errorf("host pes and mips must be positive, got %d/%d", c.Host.PEs, c.Host.MIPS)
	}
	if c.VM.PEs <= 0 || c.VM.MIPS <= 0 {
		return fmt.Errorf("vm pes and mips must be positive, got %d/%d", c.VM.PEs, c.VM.MIPS)
	}
	if c.Host.RAM < 0 || c.Host.BW < 0 || c.VM.RAM < 0 || c.VM.BW < 0 {
		return fmt.Errorf("ram and bw must be non-negative")
	}
	if c.Task.Length <= 0 {
		return fmt.Errorf("task length must be positive, got %d", c.Task.Length)
	}
	if c.Task.PEs <= 0 || c.Task.PEs > c.VM.PEs {
		return fmt.Errorf("task pes must be in [1, vm pes=%d], got %d", c.VM.PEs, c.Task.PEs)
	}
	if c.Prewarm.Hosts < 0 || c.Prewarm.GroupsPerHost < 0 {
		return fmt.Errorf("prewarm hosts and groups_per_host must be non-negative")
	}
	if c.AccessCycles < 0 {
		return fmt.Errorf("access_cycles must be non-negative, got %d", c.AccessCycles)
	}
	if c.CacheCapacity < 0 {
		return fmt.Errorf("cache_capacity must be non-negative, got %d", c.CacheCapacity)
	}
	if c.CounterfactualK < 0 {
		return fmt.Errorf("counterfactual_k must be non-negative, got %d", c.CounterfactualK)
	}
	return nil
}
