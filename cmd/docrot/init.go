package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"docrot/internal/config"
	"docrot/internal/errors"
)

var initForce bool

var initCmd = &cobra.Command{
	Use:   "init [path]",
	Short: "Write a default docrot configuration",
	Long:  "Creates a .docrot.yaml with default settings at the repository root",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runInit,
}

func init() {
	initCmd.Flags().BoolVarP(&initForce, "force", "f", false, "Overwrite an existing configuration")
	rootCmd.AddCommand(initCmd)
}

func runInit(cmd *cobra.Command, args []string) error {
	root := "."
	if len(args) == 1 {
		root = args[0]
	}

	configPath := filepath.Join(root, config.ConfigFileName+".yaml")
	if _, err := os.Stat(configPath); err == nil && !initForce {
		// Already initialized is success, so CI setup steps can rerun.
		fmt.Println("docrot already initialized.")
		fmt.Printf("Configuration at: %s\n", configPath)
		fmt.Println("\nRun 'docrot init --force' to overwrite.")
		return nil
	}

	cfg := config.DefaultConfig()
	if err := cfg.Save(root); err != nil {
		return errors.New(errors.ConfigInvalid, "cannot write configuration", err)
	}

	fmt.Println("docrot initialized.")
	fmt.Printf("Configuration written to: %s\n", configPath)
	fmt.Println("\nNext steps:")
	fmt.Println("  1. Adjust scan.ignore for directories you don't document")
	fmt.Println("  2. Run 'docrot scan' to check for rot")
	return nil
}
