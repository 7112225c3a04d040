package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/flowsim/flowsim/builder"
	"github.com/flowsim/flowsim/config"
	"github.com/flowsim/flowsim/engine"
	"github.com/flowsim/flowsim/numgen"
)

func engineHorizon(h float64) engine.SimTime { return engine.SimTime(h) }

var (
	modelPath string // path to the YAML model file
	logLevel  string // Log verbosity level
	horizon   float64
	replCount int
	seed      int64
)

// rootCmd is the base command for the CLI
var rootCmd = &cobra.Command{
	Use:   "flowsim",
	Short: "Discrete-event simulator for manufacturing and logistics flow models",
}

// runCmd loads a model file, validates it, and runs the requested number of
// replications, printing per-replication output at the end of each.
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a flow model",
	Run: func(cmd *cobra.Command, args []string) {
		level, err := logrus.ParseLevel(logLevel)
		if err != nil {
			logrus.Fatalf("Invalid log level: %s", logLevel)
		}
		logrus.SetLevel(level)

		if modelPath == "" {
			logrus.Fatal("no model file provided. Exiting.")
		}

		m, err := config.Load(modelPath)
		if err != nil {
			logrus.Fatalf("unable to load model: %v", err)
		}
		if errs := config.Validate(m); len(errs) > 0 {
			for _, e := range errs {
				logrus.Errorf("config error: %v", e)
			}
			logrus.Fatal("model failed validation. Exiting.")
		}

		runHorizon := m.Replication.Horizon
		if horizon > 0 {
			runHorizon = horizon
		}
		count := m.Replication.Count
		if replCount > 0 {
			count = replCount
		}
		baseSeed := m.Replication.Seed
		if seed != 0 {
			baseSeed = seed
		}

		logrus.Infof("Starting %q: %d replication(s), horizon=%.2f", m.Name, count, runHorizon)
		startTime := time.Now()

		for i := 0; i < count; i++ {
			sim, err := builder.Build(m, numgen.SimulationKey(baseSeed+int64(i)))
			if err != nil {
				logrus.Fatalf("unable to build simulation: %v", err)
			}
			for name, src := range sim.Sources {
				if _, demandDriven := sim.Demands[name]; demandDriven {
					sim.ScheduleDemand(name)
					continue
				}
				src.ScheduleNext()
			}
			sim.Kernel.Run(engineHorizon(runHorizon))

			for _, sink := range sim.Sinks {
				logrus.Infof("replication %d: %s exits=%d avg_cycle_time=%.3f",
					i, sink.NodeName(), sink.Exits, float64(sink.AverageCycleTime()))
			}
		}

		logrus.Infof("Simulation complete in %s.", time.Since(startTime))
	},
}

// validateCmd loads and validates a model file without running it, printing
// every configuration error found.
var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a flow model without running it",
	Run: func(cmd *cobra.Command, args []string) {
		if modelPath == "" {
			logrus.Fatal("no model file provided. Exiting.")
		}
		m, err := config.Load(modelPath)
		if err != nil {
			logrus.Fatalf("unable to load model: %v", err)
		}
		errs := config.Validate(m)
		if len(errs) == 0 {
			fmt.Println("model is valid")
			return
		}
		for _, e := range errs {
			fmt.Println(e)
		}
		os.Exit(1)
	},
}

// Execute runs the CLI root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&modelPath, "model", "", "path to the YAML model file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log", "info", "Log level (trace, debug, info, warn, error, fatal, panic)")

	runCmd.Flags().Float64Var(&horizon, "horizon", 0, "override the model's replication horizon")
	runCmd.Flags().IntVar(&replCount, "count", 0, "override the model's replication count")
	runCmd.Flags().Int64Var(&seed, "seed", 0, "override the model's replication seed")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(validateCmd)
}
