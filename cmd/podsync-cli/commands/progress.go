package commands

import (
	"fmt"
	"os"
	"strings"
	"time"

	"podsync-backend/internal/models"
)

func ProgressCommand(args []string) {
	cfg := LoadConfig()

	if len(args) == 0 {
		progressShow(cfg)
		return
	}

	switch args[0] {
	case "watch":
		progressWatch(cfg)
	case "help", "-h", "--help":
		printProgressUsage()
	default:
		fmt.Printf("Unknown progress command: %s\n\n", args[0])
		printProgressUsage()
		os.Exit(1)
	}
}

func printProgressUsage() {
	fmt.Println(`podsync progress - Show download and transfer progress

USAGE:
    podsync progress [subcommand]

SUBCOMMANDS:
    (none)      Print the progress table once
    watch       Refresh every 2 seconds until all transfers finish

EXAMPLES:
    podsync progress
    podsync progress watch
`)
}

func fetchProgress(cfg *Config) ([]models.TransferProgress, error) {
	var resp struct {
		Transfers []models.TransferProgress `json:"transfers"`
	}
	if err := apiGet(cfg, "/api/progress", &resp); err != nil {
		return nil, err
	}
	return resp.Transfers, nil
}

func progressShow(cfg *Config) {
	transfers, err := fetchProgress(cfg)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
	printProgressTable(transfers)
}

func progressWatch(cfg *Config) {
	for {
		transfers, err := fetchProgress(cfg)
		if err != nil {
			fmt.Printf("Error: %v\n", err)
			os.Exit(1)
		}

		printProgressTable(transfers)

		active := 0
		for _, t := range transfers {
			if !t.Status.IsTerminal() {
				active++
			}
		}
		if active == 0 {
			return
		}

		time.Sleep(2 * time.Second)
		fmt.Println()
	}
}

func printProgressTable(transfers []models.TransferProgress) {
	if len(transfers) == 0 {
		fmt.Println("No transfers.")
		return
	}

	fmt.Printf("%-30s %-22s %8s %12s %8s %s\n", "SUBJECT", "TARGET", "DONE", "SPEED", "ETA", "STATUS")
	fmt.Println(strings.Repeat("-", 100))
	for _, t := range transfers {
		fmt.Printf("%-30s %-22s %7.1f%% %12s %8s %s\n",
			truncate(t.SubjectID, 30),
			truncate(valueOrDefault(t.TargetID, "(download)"), 22),
			t.Percentage,
			formatBytes(uint64(t.SpeedBPS))+"/s",
			formatETA(t.ETASeconds),
			t.Status.String(),
		)
	}
}

func formatETA(seconds int64) string {
	if seconds < 0 {
		return "-"
	}
	return (time.Duration(seconds) * time.Second).String()
}
