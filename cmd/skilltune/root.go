// skilltune tunes the skill document that steers Terraform generation.
//
// Usage:
//
//	skilltune tune [--max-iterations 5] [--target 0.85] [--history json|sqlite] [--metrics-addr :9090]
//	skilltune generate "<request>" [--out <dir>] [--validate]
//	skilltune history [--run <id>]
//	skilltune evaluate --generated <dir> --expected <dir>
//	skilltune costs [--run <id>] [--format json|csv]
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// version is set at build time via -ldflags.
var version = "dev"

var rootFlags struct {
	configPath string
	skillPath  string
	dataDir    string
	model      string
}

var rootCmd = &cobra.Command{
	Use:   "skilltune",
	Short: "Iteratively tune an LLM skill document for Terraform generation",
	Long: "skilltune scores generated Terraform against a training corpus, keeps the best\n" +
		"skill revision as a checkpoint, and asks the model to revise the skill after\n" +
		"each improving iteration.",
	SilenceUsage: true,
	CompletionOptions: cobra.CompletionOptions{
		HiddenDefaultCmd: true,
	},
}

func init() {
	f := rootCmd.PersistentFlags()
	f.StringVar(&rootFlags.configPath, "config", "", "YAML config file (overrides $"+configEnv+")")
	f.StringVar(&rootFlags.skillPath, "skill", "", "Skill document path")
	f.StringVar(&rootFlags.dataDir, "data", "", "Training corpus directory")
	f.StringVar(&rootFlags.model, "model", "", "Registry model id, e.g. anthropic:claude-sonnet-4-20250514")

	rootCmd.AddCommand(tuneCmd)
	rootCmd.AddCommand(generateCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(evaluateCmd)
	rootCmd.AddCommand(costsCmd)
	rootCmd.Version = version
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
