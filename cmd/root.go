package cmd

import (
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/inference-sim/kamino-sim/sim/cluster"
)

var (
	// CLI flags shared by run and compare
	logLevel    string // Log verbosity level
	configPath  string // Scenario YAML
	metricsPath string // Prometheus textfile output

	// CLI flags for run
	seed            int64  // Seed for randomized placement
	policyName      string // Placement policy
	numHosts        int    // Number of hosts
	numVMs          int    // Number of VMs
	numTasks        int    // Number of tasks
	accessCycles    int    // Access replay cycles per task
	cacheCapacity   int    // Items per host cache
	prewarmHosts    int    // Hosts to prewarm
	traceLevel      string // Decision trace level
	counterfactualK int    // Candidates kept per traced decision
)

// rootCmd is the base command for the CLI
var rootCmd = &cobra.Command{
	Use:   "kamino-sim",
	Short: "Simulator for cache-aware VM placement",
}

// runCmd executes one scenario using a config file and CLI overrides
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a single placement scenario",
	Run: func(cmd *cobra.Command, args []string) {
		setupLogging()

		cfg, err := buildRunConfig(cmd)
		if err != nil {
			logrus.Fatalf("%v", err)
		}

		logrus.Infof("Starting scenario %q: policy=%s hosts=%d vms=%d tasks=%d seed=%d",
			cfg.Name, cfg.Policy, cfg.Hosts, cfg.VMs, cfg.Tasks, cfg.Seed)
		startTime := time.Now()

		scope, flush, err := newMetricsScope(metricsPath)
		if err != nil {
			logrus.Fatalf("%v", err)
		}
		cs, err := cluster.NewClusterSimulator(*cfg, scope.Tagged(map[string]string{"scenario": cfg.Name, "policy": cfg.Policy}))
		if err != nil {
			logrus.Fatalf("%v", err)
		}
		result := cs.Run()
		result.Print(os.Stdout)

		if err := flush(); err != nil {
			logrus.Fatalf("%v", err)
		}
		logrus.Infof("Simulation complete in %v.", time.Since(startTime))
	},
}

// buildRunConfig loads --config (or the default scenario) and applies every flag the
// user set explicitly. Unset flags never override file values.
func buildRunConfig(cmd *cobra.Command) (*cluster.ScenarioConfig, error) {
	cfg := cluster.DefaultScenario()
	if configPath != "" {
		loaded, err := cluster.LoadScenarioConfig(configPath)
		if err != nil {
			return nil, err
		}
		cfg = *loaded
	}

	flags := cmd.Flags()
	if flags.Changed("seed") {
		cfg.Seed = seed
	}
	if flags.Changed("policy") {
		cfg.Policy = policyName
	}
	if flags.Changed("hosts") {
		cfg.Hosts = numHosts
	}
	if flags.Changed("vms") {
		cfg.VMs = numVMs
	}
	if flags.Changed("tasks") {
		cfg.Tasks = numTasks
	}
	if flags.Changed("access-cycles") {
		cfg.AccessCycles = accessCycles
	}
	if flags.Changed("cache-capacity") {
		cfg.CacheCapacity = cacheCapacity
	}
	if flags.Changed("prewarm-hosts") {
		cfg.Prewarm.Hosts = prewarmHosts
	}
	if flags.Changed("trace-level") {
		cfg.TraceLevel = traceLevel
	}
	if flags.Changed("counterfactual-k") {
		cfg.CounterfactualK = counterfactualK
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setupLogging() {
	level, err := logrus.ParseLevel(logLevel)
	if err != nil {
		logrus.Fatalf("Invalid log level: %s", logLevel)
	}
	logrus.SetLevel(level)
}

// Execute runs the CLI root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// init sets up CLI flags and subcommands
func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log", "warn", "Log level (trace, debug, info, warn, error, fatal, panic)")
	rootCmd.PersistentFlags().StringVar(&metricsPath, "metrics-out", "", "Write metrics in Prometheus text format to this file")

	def := cluster.DefaultScenario()
	runCmd.Flags().StringVar(&configPath, "config", "", "Path to scenario YAML (defaults to the built-in scenario)")
	runCmd.Flags().Int64Var(&seed, "seed", def.Seed, "Seed for randomized placement")
	runCmd.Flags().StringVar(&policyName, "policy", def.Policy, "Placement policy (kamino, first-fit, least-used, random)")
	runCmd.Flags().IntVar(&numHosts, "hosts", def.Hosts, "Number of hosts")
	runCmd.Flags().IntVar(&numVMs, "vms", def.VMs, "Number of VMs")
	runCmd.Flags().IntVar(&numTasks, "tasks", def.Tasks, "Number of tasks")
	runCmd.Flags().IntVar(&accessCycles, "access-cycles", def.AccessCycles, "Passes over each task's data items")
	runCmd.Flags().IntVar(&cacheCapacity, "cache-capacity", def.CacheCapacity, "Data items per host cache")
	runCmd.Flags().IntVar(&prewarmHosts, "prewarm-hosts", def.Prewarm.Hosts, "Number of hosts to prewarm")
	runCmd.Flags().StringVar(&traceLevel, "trace-level", def.TraceLevel, "Decision trace level (none, decisions)")
	runCmd.Flags().IntVar(&counterfactualK, "counterfactual-k", def.CounterfactualK, "Candidate hosts kept per traced decision")

	// Attach `run` as a subcommand to `root`
	rootCmd.AddCommand(runCmd)
}
