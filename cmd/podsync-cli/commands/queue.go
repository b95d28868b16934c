package commands

import (
	"fmt"
	"os"
	"strings"

	"podsync-backend/internal/models"
)

func QueueCommand(args []string) {
	if len(args) == 0 {
		printQueueUsage()
		os.Exit(1)
	}

	cfg := LoadConfig()

	switch args[0] {
	case "stats":
		queueStats(cfg)
	case "retry-failed":
		queueRetryFailed(cfg)
	case "help", "-h", "--help":
		printQueueUsage()
	default:
		fmt.Printf("Unknown queue command: %s\n\n", args[0])
		printQueueUsage()
		os.Exit(1)
	}
}

func printQueueUsage() {
	fmt.Println(`podsync queue - Inspect the background download queue

USAGE:
    podsync queue <subcommand>

SUBCOMMANDS:
    stats           Show queue entry counts by status
    retry-failed    Reset failed entries so the workers retry them

EXAMPLES:
    podsync queue stats
    podsync queue retry-failed
`)
}

func queueStats(cfg *Config) {
	var stats models.QueueStats
	if err := apiGet(cfg, "/api/monitoring/queue", &stats); err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("Download queue")
	fmt.Println(strings.Repeat("=", 30))
	fmt.Printf("  Pending:     %d\n", stats.Pending)
	fmt.Printf("  Processing:  %d\n", stats.Processing)
	fmt.Printf("  Completed:   %d\n", stats.Completed)
	fmt.Printf("  Failed:      %d\n", stats.Failed)
	fmt.Printf("  Total:       %d\n", stats.Total)
}

func queueRetryFailed(cfg *Config) {
	var resp struct {
		Success bool  `json:"success"`
		Reset   int64 `json:"reset"`
	}
	if err := apiPost(cfg, "/api/monitoring/queue/retry-failed", nil, &resp); err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Reset %d failed queue entries\n", resp.Reset)
}
