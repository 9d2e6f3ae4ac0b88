package cmd

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/inference-sim/kamino-sim/sim"
	"github.com/inference-sim/kamino-sim/sim/cluster"
)

var (
	baselinePolicy string
	compareConfigs []string
)

var compareCmd = &cobra.Command{
	Use:   "compare",
	Short: "Compare kamino against a baseline policy",
	Long:  "Run each scenario under the baseline policy and under kamino, then print per-scenario improvements and overall averages. Without --config the moderate, high and unbalanced scenarios are used.",
	Run: func(cmd *cobra.Command, args []string) {
		setupLogging()

		scenarios, err := loadCompareScenarios(compareConfigs, baselinePolicy)
		if err != nil {
			logrus.Fatalf("%v", err)
		}

		scope, flush, err := newMetricsScope(metricsPath)
		if err != nil {
			logrus.Fatalf("%v", err)
		}
		comparisons, err := cluster.RunComparison(scenarios, baselinePolicy, scope)
		if err != nil {
			logrus.Fatalf("Comparison failed: %v", err)
		}
		cluster.PrintComparison(os.Stdout, comparisons)

		if err := flush(); err != nil {
			logrus.Fatalf("%v", err)
		}
	},
}

// loadCompareScenarios returns the scenarios named by paths, or the built-in set when
// paths is empty. The baseline must be a valid non-kamino policy.
func loadCompareScenarios(paths []string, baseline string) ([]cluster.ScenarioConfig, error) {
	if baseline == "" || baseline == "kamino" || !sim.IsValidPlacementPolicy(baseline) {
		return nil, fmt.Errorf("invalid baseline policy %q; valid baselines: first-fit, least-used, random", baseline)
	}
	if len(paths) == 0 {
		return cluster.ComparisonScenarios(), nil
	}
	scenarios := make([]cluster.ScenarioConfig, 0, len(paths))
	for _, path := range paths {
		cfg, err := cluster.LoadScenarioConfig(path)
		if err != nil {
			return nil, err
		}
		scenarios = append(scenarios, *cfg)
	}
	return scenarios, nil
}

func init() {
	compareCmd.Flags().StringVar(&baselinePolicy, "baseline", "least-used", "Baseline placement policy (first-fit, least-used, random)")
	compareCmd.Flags().StringArrayVar(&compareConfigs, "config", nil, "Path to scenario YAML (can be repeated)")

	rootCmd.AddCommand(compareCmd)
}
