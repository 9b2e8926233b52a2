package main

import (
	"os"

	"github.com/MarcoPoloResearchLab/snippyvault/internal/cli"
	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()

	rootCmd := cli.NewRootCommand(os.Stdin, os.Stdout)
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
