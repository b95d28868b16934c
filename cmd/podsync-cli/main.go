package main

import (
	"fmt"
	"os"

	"podsync-backend/cmd/podsync-cli/commands"
)

const version = "1.0.0"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "login":
		commands.LoginCommand(os.Args[2:])
	case "podcast":
		commands.PodcastCommand(os.Args[2:])
	case "episode":
		commands.EpisodeCommand(os.Args[2:])
	case "device":
		commands.DeviceCommand(os.Args[2:])
	case "progress":
		commands.ProgressCommand(os.Args[2:])
	case "queue":
		commands.QueueCommand(os.Args[2:])
	case "config":
		commands.ConfigCommand(os.Args[2:])
	case "version":
		fmt.Printf("podsync version %s\n", version)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`podsync - Podcast library and device transfer CLI

USAGE:
    podsync <command> [options]

COMMANDS:
    login       Authenticate against the server and store a token
    podcast     Manage podcast subscriptions (list, add, episodes, delete)
    episode     Manage episodes (list, download, queue, status)
    device      Work with connected devices (list, episodes, verify, sync)
    progress    Show download and transfer progress
    queue       Inspect the background download queue
    config      Manage CLI configuration (set, list)
    version     Print version information
    help        Show this help message

EXAMPLES:
    # Point the CLI at a server and log in
    podsync config set server http://localhost:8080
    podsync login admin

    # Subscribe and download
    podsync podcast add "Go Time" https://changelog.com/gotime/feed
    podsync episode list
    podsync episode download 42

    # Copy an episode onto a USB player
    podsync device list
    podsync episode transfer 42 SANDISK__media_user_SANDISK

    # Check a device against the library
    podsync device verify SANDISK__media_user_SANDISK
    podsync device sync SANDISK__media_user_SANDISK

For more information on a specific command, run:
    podsync <command> --help
`)
}
