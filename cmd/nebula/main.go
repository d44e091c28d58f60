package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var version = "0.1.0"

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "nebula",
	Short: "Nebula - terminal client for the Nebula assistant",
	Long: `nebula talks to the Nebula assistant from the terminal.

Messages are sent to the configured automation webhook and the conversation
is kept in a local data directory, so history survives between runs.

Examples:
  nebula send "Olá, Nebula"
  nebula send "O que tem nesta foto?" --image foto.png
  nebula record --from nota.webm --max 30s
  nebula history
  nebula clear`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.AddCommand(sendCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(clearCmd)
	rootCmd.AddCommand(recordCmd)

	rootCmd.PersistentFlags().String("user", "", "User id attached to every dispatch (default: $NEBULA_USER or the OS user)")
	rootCmd.PersistentFlags().String("email", "", "Email attached to every dispatch (default: $NEBULA_EMAIL)")
	rootCmd.PersistentFlags().String("data-dir", "", "Local conversation store (default: $NEBULA_DATA_DIR)")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Enable debug logging")
}
