package commands

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"podsync-backend/internal/models"
)

// httpClient has no overall timeout. Synchronous downloads legitimately
// run for minutes; connection setup is still bounded below.
var httpClient = &http.Client{
	Transport: &http.Transport{
		ResponseHeaderTimeout: 30 * time.Second,
	},
}

// apiRequest performs an authenticated request and decodes the JSON
// response into out (skipped when out is nil). Non-2xx responses are
// returned as errors carrying the server's message.
func apiRequest(cfg *Config, method, path string, body interface{}, out interface{}) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, cfg.ServerURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if cfg.Token != "" {
		req.Header.Set("Authorization", "Bearer "+cfg.Token)
	}

	resp, err := httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		return fmt.Errorf("not authenticated. Run 'podsync login <username>' first")
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("server returned %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func apiGet(cfg *Config, path string, out interface{}) error {
	return apiRequest(cfg, http.MethodGet, path, nil, out)
}

func apiPost(cfg *Config, path string, body, out interface{}) error {
	return apiRequest(cfg, http.MethodPost, path, body, out)
}

func apiPut(cfg *Config, path string, body, out interface{}) error {
	return apiRequest(cfg, http.MethodPut, path, body, out)
}

func apiDelete(cfg *Config, path string, out interface{}) error {
	return apiRequest(cfg, http.MethodDelete, path, nil, out)
}

// LoginCommand authenticates and stores the token in the CLI config
func LoginCommand(args []string) {
	if len(args) < 1 {
		fmt.Println("Usage: podsync login <username> [password]")
		os.Exit(1)
	}

	username := args[0]
	var password string
	if len(args) > 1 {
		password = args[1]
	} else {
		fmt.Print("Password: ")
		line, err := bufio.NewReader(os.Stdin).ReadString('\n')
		if err != nil {
			fmt.Printf("Error reading password: %v\n", err)
			os.Exit(1)
		}
		password = strings.TrimRight(line, "\r\n")
	}

	cfg := LoadConfig()

	var resp models.LoginResponse
	err := apiPost(cfg, "/api/auth/login", models.LoginRequest{
		Username: username,
		Password: password,
	}, &resp)
	if err != nil {
		fmt.Printf("Login failed: %v\n", err)
		os.Exit(1)
	}

	cfg.Token = resp.Token
	cfg.Username = resp.Username
	if err := SaveConfig(cfg); err != nil {
		fmt.Printf("Error saving config: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Logged in as %s (%s). Token valid until %s.\n",
		resp.Username, resp.Role, resp.ExpiresAt.Local().Format("2006-01-02 15:04"))
}
