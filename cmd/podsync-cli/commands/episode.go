package commands

import (
	"fmt"
	"os"
	"strings"

	"podsync-backend/internal/models"
)

func EpisodeCommand(args []string) {
	if len(args) == 0 {
		printEpisodeUsage()
		os.Exit(1)
	}

	cfg := LoadConfig()

	switch args[0] {
	case "list":
		episodeList(cfg, args[1:])
	case "downloaded":
		episodeDownloaded(cfg)
	case "show":
		episodeShow(cfg, args[1:])
	case "download":
		episodeDownload(cfg, args[1:])
	case "queue":
		episodeQueue(cfg, args[1:])
	case "delete-download":
		episodeDeleteDownload(cfg, args[1:])
	case "status":
		episodeStatus(cfg, args[1:])
	case "transfer":
		episodeTransfer(cfg, args[1:])
	case "remove":
		episodeRemove(cfg, args[1:])
	case "help", "-h", "--help":
		printEpisodeUsage()
	default:
		fmt.Printf("Unknown episode command: %s\n\n", args[0])
		printEpisodeUsage()
		os.Exit(1)
	}
}

func printEpisodeUsage() {
	fmt.Println(`podsync episode - Manage episodes

USAGE:
    podsync episode <subcommand> [options]

SUBCOMMANDS:
    list [limit]                  List recent episodes across all podcasts
    downloaded                    List episodes with a local file
    show <id>                     Show one episode in detail
    download <id>                 Download an episode now (blocks until done)
    queue <id>                    Queue an episode for background download
    delete-download <id>          Delete the local file, keep the episode
    status <id> <status>          Set listening status (new, unlistened, listened)
    transfer <id> <device-id>     Copy a downloaded episode onto a device
    remove <id> <device-id>       Delete the episode file from a device

EXAMPLES:
    podsync episode list 20
    podsync episode download 42
    podsync episode transfer 42 SANDISK__media_user_SANDISK
    podsync episode status 42 listened
`)
}

func episodeList(cfg *Config, args []string) {
	path := "/api/episodes"
	if len(args) > 0 {
		path += "?limit=" + args[0]
	}

	var episodes []models.Episode
	if err := apiGet(cfg, path, &episodes); err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}

	printEpisodeTable(episodes)
}

func episodeDownloaded(cfg *Config) {
	var episodes []models.Episode
	if err := apiGet(cfg, "/api/episodes/downloaded", &episodes); err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}

	printEpisodeTable(episodes)
}

func episodeShow(cfg *Config, args []string) {
	if len(args) < 1 {
		fmt.Println("Usage: podsync episode show <id>")
		os.Exit(1)
	}

	var ep models.Episode
	if err := apiGet(cfg, "/api/episodes/"+args[0], &ep); err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Episode %d: %s\n", ep.ID, ep.Title)
	fmt.Println(strings.Repeat("=", 60))
	fmt.Printf("  Podcast:    %s (id %d)\n", ep.PodcastName, ep.PodcastID)
	fmt.Printf("  Status:     %s\n", ep.Status)
	fmt.Printf("  Downloaded: %v\n", ep.Downloaded)
	fmt.Printf("  On device:  %v\n", ep.OnDevice)
	if ep.LocalFilePath != "" {
		fmt.Printf("  Local file: %s\n", ep.LocalFilePath)
	}
	if ep.FileSize > 0 {
		fmt.Printf("  File size:  %s\n", formatBytes(uint64(ep.FileSize)))
	}
	if ep.PublishedAt != nil {
		fmt.Printf("  Published:  %s\n", ep.PublishedAt.Format("2006-01-02"))
	}
	fmt.Printf("  URL:        %s\n", ep.EpisodeURL)
}

func episodeDownload(cfg *Config, args []string) {
	if len(args) < 1 {
		fmt.Println("Usage: podsync episode download <id>")
		os.Exit(1)
	}

	fmt.Printf("Downloading episode %s...\n", args[0])

	var resp struct {
		Message   string `json:"message"`
		LocalPath string `json:"local_path"`
	}
	if err := apiPost(cfg, "/api/episodes/"+args[0]+"/download", nil, &resp); err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Done: %s\n", resp.LocalPath)
}

func episodeQueue(cfg *Config, args []string) {
	if len(args) < 1 {
		fmt.Println("Usage: podsync episode queue <id>")
		os.Exit(1)
	}

	var item models.QueueItem
	if err := apiPost(cfg, "/api/episodes/"+args[0]+"/queue", nil, &item); err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Queued episode %d (queue entry %d, status %s)\n", item.EpisodeID, item.ID, item.Status)
}

func episodeDeleteDownload(cfg *Config, args []string) {
	if len(args) < 1 {
		fmt.Println("Usage: podsync episode delete-download <id>")
		os.Exit(1)
	}

	if err := apiDelete(cfg, "/api/episodes/"+args[0]+"/download", nil); err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Deleted local file of episode %s\n", args[0])
}

func episodeStatus(cfg *Config, args []string) {
	if len(args) < 2 {
		fmt.Println("Usage: podsync episode status <id> <new|unlistened|listened>")
		os.Exit(1)
	}

	body := map[string]string{"status": args[1]}
	if err := apiPut(cfg, "/api/episodes/"+args[0]+"/status", body, nil); err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Episode %s marked %s\n", args[0], args[1])
}

func episodeTransfer(cfg *Config, args []string) {
	if len(args) < 2 {
		fmt.Println("Usage: podsync episode transfer <id> <device-id>")
		os.Exit(1)
	}

	fmt.Printf("Transferring episode %s to %s...\n", args[0], args[1])

	body := map[string]string{"device_id": args[1]}
	if err := apiPost(cfg, "/api/episodes/"+args[0]+"/transfer", body, nil); err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("Transfer complete")
}

func episodeRemove(cfg *Config, args []string) {
	if len(args) < 2 {
		fmt.Println("Usage: podsync episode remove <id> <device-id>")
		os.Exit(1)
	}

	body := map[string]string{"device_id": args[1]}
	if err := apiPost(cfg, "/api/episodes/"+args[0]+"/remove-from-device", body, nil); err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Removed episode %s from device %s\n", args[0], args[1])
}

func printEpisodeTable(episodes []models.Episode) {
	if len(episodes) == 0 {
		fmt.Println("No episodes found.")
		return
	}

	fmt.Printf("%-5s %-38s %-20s %-10s %-3s %-3s\n", "ID", "TITLE", "PODCAST", "STATUS", "DL", "DEV")
	fmt.Println(strings.Repeat("-", 86))
	for _, ep := range episodes {
		fmt.Printf("%-5d %-38s %-20s %-10s %-3s %-3s\n",
			ep.ID,
			truncate(ep.Title, 38),
			truncate(ep.PodcastName, 20),
			ep.Status,
			yesNo(ep.Downloaded),
			yesNo(ep.OnDevice),
		)
	}
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func formatBytes(n uint64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := uint64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(n)/float64(div), "KMGTPE"[exp])
}
