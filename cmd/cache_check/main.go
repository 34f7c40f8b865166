// Command cache_check drives a running server through a login, a token
// refresh and repeated issue listings, then confirms the listing landed in Redis.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"issuetrack/internal/shared/config"
	"issuetrack/internal/shared/constants"
	"issuetrack/pkg/cache"

	"github.com/joho/godotenv"
)

type CheckResult struct {
	Name         string        `json:"name"`
	Status       int           `json:"status"`
	ResponseTime time.Duration `json:"response_time"`
	DataSize     int           `json:"data_size"`
	Success      bool          `json:"success"`
	Error        string        `json:"error,omitempty"`
}

type CheckSuite struct {
	BaseURL string
	client  *http.Client
	Results []CheckResult
}

type envelope struct {
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type tokens struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

func main() {
	baseURL := flag.String("url", "http://localhost:8080/api/v1", "API base URL")
	email := flag.String("email", "user@example.com", "login email")
	password := flag.String("password", "password123", "login password")
	flag.Parse()

	_ = godotenv.Load()
	cfg := config.Load()

	suite := &CheckSuite{
		BaseURL: *baseURL,
		client:  &http.Client{Timeout: 30 * time.Second},
	}

	fmt.Println("Starting cache and auth check...")

	rdb, err := cache.NewClient(cache.Config{Address: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
	if err != nil {
		log.Fatalf("Redis connection failed: %v", err)
	}
	defer rdb.Close()
	fmt.Println("Redis connection: OK")

	var session tokens
	if !suite.call("Login", http.MethodPost, "/auth/login", map[string]string{"email": *email, "password": *password}, "", &session) {
		suite.generateReport()
		log.Fatal("login failed, is the database seeded?")
	}

	suite.call("Me", http.MethodGet, "/auth/me", nil, session.AccessToken, nil)
	suite.call("Me with refresh token (expect 401)", http.MethodGet, "/auth/me", nil, session.RefreshToken, nil)

	var rotated tokens
	if suite.call("Refresh", http.MethodPost, "/auth/refresh", map[string]string{"refresh_token": session.RefreshToken}, "", &rotated) {
		session = rotated
	}

	first := suite.timed("Issue list (miss)", "/issues", session.AccessToken)
	second := suite.timed("Issue list (hit)", "/issues", session.AccessToken)
	if first.Success && second.Success && first.ResponseTime > 0 {
		improvement := float64(first.ResponseTime-second.ResponseTime) / float64(first.ResponseTime) * 100
		fmt.Printf("   Cache improvement: %.1f%% (%v -> %v)\n", improvement, first.ResponseTime, second.ResponseTime)
	}

	key := constants.BuildIssueListKey("", "", "")
	n, err := rdb.Exists(context.Background(), key).Result()
	if err != nil || n == 0 {
		fmt.Printf("   Cache key %s: MISSING\n", key)
	} else {
		fmt.Printf("   Cache key %s: PRESENT\n", key)
	}

	suite.generateReport()
}

// call sends a JSON request and decodes the envelope data into dest.
// A 401 is counted as success when the check name says it is expected.
func (s *CheckSuite) call(name, method, path string, body interface{}, bearer string, dest interface{}) bool {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}

	req, err := http.NewRequest(method, s.BaseURL+path, &buf)
	if err != nil {
		s.record(CheckResult{Name: name, Error: err.Error()})
		return false
	}
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	start := time.Now()
	resp, err := s.client.Do(req)
	if err != nil {
		s.record(CheckResult{Name: name, ResponseTime: time.Since(start), Error: err.Error()})
		return false
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(resp.Body)
	result := CheckResult{
		Name:         name,
		Status:       resp.StatusCode,
		ResponseTime: time.Since(start),
		DataSize:     len(raw),
	}

	expectUnauthorized := strings.Contains(name, "expect 401")
	switch {
	case expectUnauthorized:
		result.Success = resp.StatusCode == http.StatusUnauthorized
	default:
		result.Success = resp.StatusCode >= 200 && resp.StatusCode < 300
	}

	if !result.Success {
		result.Error = fmt.Sprintf("HTTP %d", resp.StatusCode)
	} else if dest != nil {
		var env envelope
		if err := json.Unmarshal(raw, &env); err == nil {
			_ = json.Unmarshal(env.Data, dest)
		}
	}

	s.record(result)
	return result.Success
}

func (s *CheckSuite) timed(name, path, bearer string) CheckResult {
	s.call(name, http.MethodGet, path, nil, bearer, nil)
	return s.Results[len(s.Results)-1]
}

func (s *CheckSuite) record(r CheckResult) {
	s.Results = append(s.Results, r)

	mark := "OK  "
	if !r.Success {
		mark = "FAIL"
	}
	fmt.Printf("   [%s] %-36s %v (%d bytes) %s\n", mark, r.Name, r.ResponseTime, r.DataSize, r.Error)
}

func (s *CheckSuite) generateReport() {
	fmt.Println("\nREPORT")
	fmt.Println("======")

	passed := 0
	for _, r := range s.Results {
		if r.Success {
			passed++
		}
	}
	fmt.Printf("Checks: %d, passed: %d\n", len(s.Results), passed)

	report, _ := json.MarshalIndent(s.Results, "", "  ")
	fmt.Println(string(report))
}
