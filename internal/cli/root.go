package cli

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var (
	// version can be overridden at build time via:
	// go build -ldflags "-X github.com/keihibot/keihibot/internal/cli.version=1.2.3"
	version = "1.0.0"
	logo    = "\n" +
		"  _  __    _ _     _ ____        _\n" +
		" | |/ /___(_) |__ (_) __ )  ___ | |_\n" +
		" | ' // _ \\ | '_ \\| |  _ \\ / _ \\| __|\n" +
		" | . \\  __/ | | | | | |_) | (_) | |_\n" +
		" |_|\\_\\___|_|_| |_|_|____/ \\___/ \\__|\n"
)

var rootCmd = &cobra.Command{
	Use:   "keihibot",
	Short: "KeihiBot - Expense Filing Desk",
	Long:  color.CyanString(logo) + "\nAn interactive desk agent for filing travel and receipt expenses.",
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(chatCmd)
	rootCmd.AddCommand(sessionsCmd)
}

func printHeader(title string) {
	fmt.Println(color.CyanString(logo))
	if title != "" {
		fmt.Println(title)
		fmt.Println("─────────────────────")
	}
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		printHeader("KeihiBot Version")
		fmt.Printf("Version: %s\n", version)
	},
}
