package commands

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Config holds CLI configuration
type Config struct {
	ServerURL string `json:"server_url"`
	Token     string `json:"token"`
	Username  string `json:"username"`
}

func ConfigCommand(args []string) {
	if len(args) == 0 {
		printConfigUsage()
		os.Exit(1)
	}

	switch args[0] {
	case "set":
		configSet(args[1:])
	case "get":
		configGet(args[1:])
	case "list":
		configList()
	case "help", "-h", "--help":
		printConfigUsage()
	default:
		fmt.Printf("Unknown config command: %s\n\n", args[0])
		printConfigUsage()
		os.Exit(1)
	}
}

func printConfigUsage() {
	fmt.Println(`podsync config - Manage CLI configuration

USAGE:
    podsync config <subcommand> [options]

SUBCOMMANDS:
    set <key> <value>     Set a configuration value
    get <key>             Get a configuration value
    list                  List all configuration

CONFIGURATION KEYS:
    server      Base URL of the podsync server (default: http://localhost:8080)

EXAMPLES:
    podsync config set server http://192.168.1.20:8080
    podsync config list
`)
}

func getConfigPath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".podsync-cli", "config.json")
}

// LoadConfig loads configuration from file
func LoadConfig() *Config {
	cfg := &Config{
		ServerURL: "http://localhost:8080",
	}

	data, err := os.ReadFile(getConfigPath())
	if err != nil {
		return cfg
	}

	json.Unmarshal(data, cfg)
	if cfg.ServerURL == "" {
		cfg.ServerURL = "http://localhost:8080"
	}
	return cfg
}

// SaveConfig saves configuration to file
func SaveConfig(cfg *Config) error {
	configPath := getConfigPath()

	if err := os.MkdirAll(filepath.Dir(configPath), 0700); err != nil {
		return err
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}

	// 0600: the file holds a bearer token
	return os.WriteFile(configPath, data, 0600)
}

func configSet(args []string) {
	if len(args) < 2 {
		fmt.Println("Error: Key and value required")
		fmt.Println("Usage: podsync config set <key> <value>")
		os.Exit(1)
	}

	key := args[0]
	value := strings.Join(args[1:], " ")

	cfg := LoadConfig()

	switch key {
	case "server":
		cfg.ServerURL = strings.TrimRight(value, "/")
	default:
		fmt.Printf("Unknown configuration key: %s\n", key)
		fmt.Println("Valid keys: server")
		os.Exit(1)
	}

	if err := SaveConfig(cfg); err != nil {
		fmt.Printf("Error saving config: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Set %s = %s\n", key, value)
}

func configGet(args []string) {
	if len(args) == 0 {
		fmt.Println("Error: Key required")
		os.Exit(1)
	}

	cfg := LoadConfig()

	var value string
	switch args[0] {
	case "server":
		value = cfg.ServerURL
	default:
		fmt.Printf("Unknown configuration key: %s\n", args[0])
		os.Exit(1)
	}

	if value == "" {
		fmt.Println("(not set)")
	} else {
		fmt.Println(value)
	}
}

func configList() {
	cfg := LoadConfig()

	fmt.Println("PodSync CLI Configuration")
	fmt.Println(strings.Repeat("=", 50))
	fmt.Printf("Config file: %s\n\n", getConfigPath())

	fmt.Printf("  server:    %s\n", valueOrDefault(cfg.ServerURL, "(not set)"))
	fmt.Printf("  username:  %s\n", valueOrDefault(cfg.Username, "(not logged in)"))
	fmt.Printf("  token:     %s\n", maskToken(cfg.Token))
}

func valueOrDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

func maskToken(token string) string {
	if token == "" {
		return "(not set)"
	}
	if len(token) > 10 {
		return token[:5] + "..." + token[len(token)-5:]
	}
	return "***"
}
