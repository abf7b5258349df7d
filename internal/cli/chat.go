package cli

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/keihibot/keihibot/internal/config"
	"github.com/keihibot/keihibot/internal/ledger"
	"github.com/keihibot/keihibot/internal/provider"
	"github.com/keihibot/keihibot/internal/router"
	"github.com/keihibot/keihibot/internal/session"
	"github.com/keihibot/keihibot/internal/tools"
)

var chatVerbose bool

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Start an interactive filing session",
	Run:   runChat,
}

func init() {
	chatCmd.Flags().BoolVarP(&chatVerbose, "verbose", "v", false, "Enable debug logging")
}

func runChat(cmd *cobra.Command, args []string) {
	slog.SetDefault(newLogger(os.Stderr, chatVerbose))

	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Config error: %v\n", err)
		os.Exit(1)
	}
	if err := cfg.EnsureDirs(); err != nil {
		fmt.Printf("Data directory error: %v\n", err)
		os.Exit(1)
	}

	fares, err := tools.LoadFareTable(cfg.Paths.DataDir)
	if err != nil {
		fmt.Printf("Fare data error: %v\n", err)
		fmt.Printf("Place train_fares.json and fixed_fares.json under %s and retry.\n", cfg.Paths.DataDir)
		os.Exit(1)
	}

	sessions, err := session.NewManager(cfg.Paths.SessionsDir)
	if err != nil {
		fmt.Printf("Session store error: %v\n", err)
		os.Exit(1)
	}

	ldg, err := ledger.NewService(cfg.Paths.LedgerPath)
	if err != nil {
		slog.Warn("Ledger unavailable, continuing without audit records", "error", err)
		ldg = nil
	} else {
		defer ldg.Close()
	}

	prov := provider.WithRetry(
		provider.NewOpenAIProvider(cfg.Provider.APIKey, cfg.Provider.APIBase, cfg.Model.Name),
		provider.RetryConfig{
			MaxAttempts:  cfg.Retry.MaxAttempts,
			InitialDelay: cfg.Retry.InitialDelay,
			MaxDelay:     cfg.Retry.MaxDelay,
		},
	)

	reader := bufio.NewReader(os.Stdin)
	desk := router.NewDesk(router.DeskOptions{
		Config:   cfg,
		Provider: prov,
		Sessions: sessions,
		Ledger:   ldg,
		Fares:    fares,
		Decide:   consoleDecider(reader, os.Stdout),
	})

	// Ctrl-C is a graceful exit, not a failure.
	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt)
	go func() {
		<-interrupt
		fmt.Println("\nGoodbye.")
		os.Exit(0)
	}()

	printHeader("KeihiBot Filing Desk")
	fmt.Println("This desk helps you file travel and receipt expenses.")
	fmt.Println("Tell me what you would like to file; a keyword is enough.")
	fmt.Println("Type 'exit' or 'quit' to leave, 'reset' to start over.")
	fmt.Println()

	sessionID := collectIdentity(desk, reader)

	ctx := context.Background()
	for {
		fmt.Print(color.GreenString("\nYou: "))
		line, err := reader.ReadString('\n')
		if err != nil {
			fmt.Println("\nGoodbye.")
			return
		}
		line = strings.TrimSpace(line)

		switch strings.ToLower(line) {
		case "":
			continue
		case "exit", "quit":
			fmt.Println("Goodbye.")
			return
		case "reset":
			desk.Reset(sessionID)
			fmt.Println("Session cleared. Let's start over.")
			sessionID = collectIdentity(desk, reader)
			continue
		}

		reply, err := desk.Dispatch(ctx, sessionID, line)
		if err != nil {
			slog.Error("Dispatch failed", "session", sessionID, "error", err)
			fmt.Println("Something went wrong and the desk cannot continue. Please try again later.")
			os.Exit(1)
		}
		fmt.Printf("\n%s %s\n", color.CyanString("Desk:"), reply)
	}
}

// collectIdentity prompts until a session is established. The applicant name
// is the only required input; the filing date is today.
func collectIdentity(desk *router.Desk, reader *bufio.Reader) string {
	for {
		fmt.Print("Applicant name: ")
		name, err := reader.ReadString('\n')
		if err != nil {
			fmt.Println("\nGoodbye.")
			os.Exit(0)
		}
		name = strings.TrimSpace(name)
		if name == "" {
			fmt.Println("The applicant name is required.")
			continue
		}

		sessionID, err := desk.Open(name, time.Now().Format("2006-01-02"))
		if err != nil {
			fmt.Printf("Could not start a session: %v\n", err)
			continue
		}
		fmt.Printf("\nRegistered applicant: %s\n", name)
		fmt.Printf("Session: %s\n", sessionID)
		return sessionID
	}
}
