package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/kalani-ai/kalani/internal/config"
)

var initForce bool

var initCmd = &cobra.Command{
	Use:   "init [directory]",
	Short: "Initialize a kalani project",
	Long: `Initialize a directory for use with kalani.

This command sets up everything needed to run the engine:
  - Creates the .kalani data directory
  - Writes an example worker catalog (workers.yaml)
  - Writes an example routing rule set (rules.yaml)

The directory argument is optional and defaults to the current directory.

Examples:
  kalani init              # Initialize current directory
  kalani init ./myproject  # Initialize specific directory
  kalani init --force      # Overwrite existing catalog files`,
	Args: cobra.MaximumNArgs(1),
	RunE: runInit,
}

func init() {
	initCmd.Flags().BoolVar(&initForce, "force", false, "Overwrite existing catalog files")
}

const exampleWorkers = `# Worker catalog. Each worker declares the capability tags it offers,
# the tools it may use, and a preference weight (lower wins ties).
workers:
  - id: builder
    capabilities: [build, test]
    tool_permissions: [shell, filesystem]
    priority: 1
  - id: deployer
    capabilities: [deploy, rollback]
    tool_permissions: [shell, cloud]
    priority: 2
  - id: reviewer
    capabilities: [review, test]
    tool_permissions: [filesystem-readonly]
    priority: 3
`

const exampleRules = `# Routing rules. Patterns are case-insensitive regular expressions
# matched against the task description; every matching rule contributes
# its capability tags. Lower priority evaluates first and sets the
# task's priority on a match.
rules:
  - pattern: '\bdeploy|release|rollout\b'
    capabilities: [deploy]
    priority: 1
  - pattern: '\btest|verify|validate\b'
    capabilities: [test]
    priority: 2
  - pattern: '\bbuild|compile|package\b'
    capabilities: [build]
    priority: 3
  - pattern: '\breview|audit\b'
    capabilities: [review]
    priority: 4
`

func runInit(cmd *cobra.Command, args []string) error {
	targetDir := "."
	if len(args) > 0 {
		targetDir = args[0]
	}
	absPath, err := filepath.Abs(targetDir)
	if err != nil {
		return fmt.Errorf("resolve directory: %w", err)
	}
	if err := os.MkdirAll(absPath, 0o755); err != nil {
		return fmt.Errorf("create directory: %w", err)
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	dataDir := filepath.Join(absPath, cfg.Paths.DataDir)
	if err := os.MkdirAll(filepath.Join(dataDir, "logs"), 0o755); err != nil {
		return fmt.Errorf("create data directory: %w", err)
	}

	wrote, err := writeExample(filepath.Join(absPath, cfg.Paths.Workers), exampleWorkers)
	if err != nil {
		return err
	}
	reportInitFile(cfg.Paths.Workers, wrote)

	wrote, err = writeExample(filepath.Join(absPath, cfg.Paths.Rules), exampleRules)
	if err != nil {
		return err
	}
	reportInitFile(cfg.Paths.Rules, wrote)

	fmt.Printf("%s Initialized %s\n", color.GreenString("✓"), absPath)
	fmt.Println("\nNext steps:")
	fmt.Println("  1. Edit workers.yaml to describe your workers")
	fmt.Println("  2. Edit rules.yaml to route task descriptions to capabilities")
	fmt.Println("  3. kalani submit \"your first task\"")
	return nil
}

// writeExample writes content to path unless the file already exists
// and --force was not given. It reports whether it wrote the file.
func writeExample(path, content string) (bool, error) {
	if _, err := os.Stat(path); err == nil && !initForce {
		return false, nil
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return false, fmt.Errorf("write %s: %w", path, err)
	}
	return true, nil
}

func reportInitFile(name string, wrote bool) {
	if wrote {
		fmt.Printf("  created %s\n", name)
	} else {
		fmt.Printf("  kept existing %s (use --force to overwrite)\n", name)
	}
}
