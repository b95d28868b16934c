package commands

import (
	"fmt"
	"os"
	"strings"

	"podsync-backend/internal/models"
)

func DeviceCommand(args []string) {
	if len(args) == 0 {
		printDeviceUsage()
		os.Exit(1)
	}

	cfg := LoadConfig()

	switch args[0] {
	case "list":
		deviceList(cfg)
	case "episodes":
		deviceEpisodes(cfg, args[1:])
	case "verify":
		deviceVerify(cfg, args[1:])
	case "sync":
		deviceSync(cfg, args[1:])
	case "help", "-h", "--help":
		printDeviceUsage()
	default:
		fmt.Printf("Unknown device command: %s\n\n", args[0])
		printDeviceUsage()
		os.Exit(1)
	}
}

func printDeviceUsage() {
	fmt.Println(`podsync device - Work with connected devices

USAGE:
    podsync device <subcommand> [options]

SUBCOMMANDS:
    list                  List mounted removable devices
    episodes <id>         List episode files on a device, grouped by podcast
    verify <id>           Check device contents against the database (read-only)
    sync <id>             Clear database flags for files missing from the device

EXAMPLES:
    podsync device list
    podsync device verify SANDISK__media_user_SANDISK
    podsync device sync SANDISK__media_user_SANDISK
`)
}

func deviceList(cfg *Config) {
	var devices []models.UsbDevice
	if err := apiGet(cfg, "/api/devices", &devices); err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}

	if len(devices) == 0 {
		fmt.Println("No removable devices mounted.")
		return
	}

	fmt.Printf("%-35s %-25s %-10s %s\n", "ID", "MOUNT PATH", "FREE", "TOTAL")
	fmt.Println(strings.Repeat("-", 85))
	for _, d := range devices {
		fmt.Printf("%-35s %-25s %-10s %s\n",
			truncate(d.ID, 35),
			truncate(d.Path, 25),
			formatBytes(d.AvailableSpace),
			formatBytes(d.TotalSpace),
		)
	}
}

func deviceEpisodes(cfg *Config, args []string) {
	if len(args) < 1 {
		fmt.Println("Usage: podsync device episodes <device-id>")
		os.Exit(1)
	}

	var episodes []models.DeviceEpisodeInfo
	if err := apiGet(cfg, "/api/devices/"+args[0]+"/episodes", &episodes); err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}

	if len(episodes) == 0 {
		fmt.Println("No episode files on this device.")
		return
	}

	currentPodcast := ""
	for _, ep := range episodes {
		if ep.PodcastName != currentPodcast {
			currentPodcast = ep.PodcastName
			fmt.Printf("\n%s\n", currentPodcast)
			fmt.Println(strings.Repeat("-", len(currentPodcast)))
		}
		fmt.Printf("  %-50s %s\n", truncate(ep.Filename, 50), formatBytes(ep.FileSize))
	}
}

func deviceVerify(cfg *Config, args []string) {
	if len(args) < 1 {
		fmt.Println("Usage: podsync device verify <device-id>")
		os.Exit(1)
	}

	var report models.ConsistencyReport
	if err := apiGet(cfg, "/api/devices/"+args[0]+"/verify", &report); err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Files on device:   %d\n", report.FilesFound)
	fmt.Printf("Expected episodes: %d\n", report.DatabaseEpisodes)

	if report.IsConsistent {
		fmt.Println("\nDevice is consistent with the database.")
		return
	}

	if len(report.MissingFromDevice) > 0 {
		fmt.Printf("\nMissing from device (%d):\n", len(report.MissingFromDevice))
		for _, name := range report.MissingFromDevice {
			fmt.Printf("  - %s\n", name)
		}
	}
	if len(report.MissingFromDatabase) > 0 {
		fmt.Printf("\nOn device but unknown to the database (%d):\n", len(report.MissingFromDatabase))
		for _, name := range report.MissingFromDatabase {
			fmt.Printf("  - %s\n", name)
		}
	}
	fmt.Println("\nRun 'podsync device sync' to clear stale flags.")
}

func deviceSync(cfg *Config, args []string) {
	if len(args) < 1 {
		fmt.Println("Usage: podsync device sync <device-id>")
		os.Exit(1)
	}

	var report models.DeviceSyncReport
	if err := apiPost(cfg, "/api/devices/"+args[0]+"/sync", nil, &report); err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Sync finished in %dms\n", report.SyncDurationMs)
	fmt.Printf("  Device files examined: %d\n", report.ProcessedFiles)
	fmt.Printf("  Flags cleared:         %d\n", report.UpdatedEpisodes)
	if report.IsConsistent {
		fmt.Println("  Device was already consistent.")
	}
}
