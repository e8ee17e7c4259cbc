// Command cleanup calls the backend's cleanup endpoint to delete expired
// sessions. It is meant to run from cron:
//
//	BACKEND_URL=http://localhost:8080 CLEANUP_TOKEN=... cleanup
package main

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"
)

func main() {
	backendURL := os.Getenv("BACKEND_URL")
	if backendURL == "" {
		backendURL = "http://localhost:8080"
	}
	token := os.Getenv("CLEANUP_TOKEN")
	if token == "" {
		log.Fatal("CLEANUP_TOKEN is required")
	}

	req, err := http.NewRequest(http.MethodPost, backendURL+"/api/v1/cleanup", nil)
	if err != nil {
		log.Fatalf("failed to build request: %v", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	client := &http.Client{Timeout: 30 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		log.Fatalf("cleanup request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		log.Fatalf("cleanup returned status %d", resp.StatusCode)
	}

	var result struct {
		DeletedSessions int `json:"deleted_sessions"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		log.Fatalf("failed to decode response: %v", err)
	}

	fmt.Printf("Removed %d expired sessions\n", result.DeletedSessions)
}
