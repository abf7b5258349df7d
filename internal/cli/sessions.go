package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/keihibot/keihibot/internal/config"
	"github.com/keihibot/keihibot/internal/session"
)

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "List stored filing sessions",
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := config.Load()
		if err != nil {
			fmt.Printf("Config error: %v\n", err)
			os.Exit(1)
		}
		mgr, err := session.NewManager(cfg.Paths.SessionsDir)
		if err != nil {
			fmt.Printf("Session store error: %v\n", err)
			os.Exit(1)
		}

		printHeader("Stored Sessions")
		infos := mgr.List()
		if len(infos) == 0 {
			fmt.Println("No stored sessions.")
			return
		}
		for _, info := range infos {
			fmt.Printf("%-44s  %-8s  %s\n",
				info.Key, info.Owner, info.UpdatedAt.Format("2006-01-02 15:04"))
		}
	},
}
