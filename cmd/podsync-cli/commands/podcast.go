package commands

import (
	"fmt"
	"os"
	"strings"

	"podsync-backend/internal/models"
)

func PodcastCommand(args []string) {
	if len(args) == 0 {
		printPodcastUsage()
		os.Exit(1)
	}

	cfg := LoadConfig()

	switch args[0] {
	case "list":
		podcastList(cfg)
	case "add":
		podcastAdd(cfg, args[1:])
	case "episodes":
		podcastEpisodes(cfg, args[1:])
	case "delete":
		podcastDelete(cfg, args[1:])
	case "help", "-h", "--help":
		printPodcastUsage()
	default:
		fmt.Printf("Unknown podcast command: %s\n\n", args[0])
		printPodcastUsage()
		os.Exit(1)
	}
}

func printPodcastUsage() {
	fmt.Println(`podsync podcast - Manage podcast subscriptions

USAGE:
    podsync podcast <subcommand> [options]

SUBCOMMANDS:
    list                    List all subscriptions
    add <name> <feed-url>   Subscribe to a feed
    episodes <id>           List the episodes of a podcast
    delete <id>             Remove a subscription and its episodes

EXAMPLES:
    podsync podcast list
    podsync podcast add "Go Time" https://changelog.com/gotime/feed
    podsync podcast episodes 3
`)
}

func podcastList(cfg *Config) {
	var podcasts []models.Podcast
	if err := apiGet(cfg, "/api/podcasts", &podcasts); err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}

	if len(podcasts) == 0 {
		fmt.Println("No podcasts. Use 'podsync podcast add <name> <feed-url>' to subscribe.")
		return
	}

	fmt.Printf("%-5s %-30s %-9s %s\n", "ID", "NAME", "EPISODES", "FEED")
	fmt.Println(strings.Repeat("-", 80))
	for _, p := range podcasts {
		fmt.Printf("%-5d %-30s %-9d %s\n", p.ID, truncate(p.Name, 30), p.EpisodeCount, truncate(p.FeedURL, 34))
	}
}

func podcastAdd(cfg *Config, args []string) {
	if len(args) < 2 {
		fmt.Println("Usage: podsync podcast add <name> <feed-url>")
		os.Exit(1)
	}

	var podcast models.Podcast
	err := apiPost(cfg, "/api/podcasts", models.CreatePodcastRequest{
		Name:    args[0],
		FeedURL: args[1],
	}, &podcast)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Subscribed to %q (id %d)\n", podcast.Name, podcast.ID)
}

func podcastEpisodes(cfg *Config, args []string) {
	if len(args) < 1 {
		fmt.Println("Usage: podsync podcast episodes <id>")
		os.Exit(1)
	}

	var episodes []models.Episode
	if err := apiGet(cfg, "/api/podcasts/"+args[0]+"/episodes", &episodes); err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}

	printEpisodeTable(episodes)
}

func podcastDelete(cfg *Config, args []string) {
	if len(args) < 1 {
		fmt.Println("Usage: podsync podcast delete <id>")
		os.Exit(1)
	}

	if err := apiDelete(cfg, "/api/podcasts/"+args[0], nil); err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Deleted podcast %s\n", args[0])
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}
