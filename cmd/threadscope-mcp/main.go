// Command threadscope-mcp exposes a running threadscope API to MCP clients
// over stdio.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/use-agent/threadscope/models"
	"github.com/use-agent/threadscope/report"
)

func main() {
	apiURL := os.Getenv("THREADSCOPE_API_URL")
	if apiURL == "" {
		apiURL = "http://127.0.0.1:8080"
	}
	apiKey := os.Getenv("THREADSCOPE_API_KEY")
	if apiKey == "" {
		fmt.Fprintln(os.Stderr, "THREADSCOPE_API_KEY is required")
		os.Exit(1)
	}

	if err := server.ServeStdio(newServer(&client{
		http:   &http.Client{Timeout: 11 * time.Minute},
		apiURL: strings.TrimRight(apiURL, "/"),
		apiKey: apiKey,
		poll:   2 * time.Second,
	})); err != nil {
		fmt.Fprintf(os.Stderr, "server error: %v\n", err)
		os.Exit(1)
	}
}

func newServer(c *client) *server.MCPServer {
	s := server.NewMCPServer(
		"threadscope",
		"1.0.0",
		server.WithToolCapabilities(false),
	)

	pageArgs := []mcp.ToolOption{
		mcp.WithString("url",
			mcp.Required(),
			mcp.Description("The first page of the post to extract"),
		),
		mcp.WithString("profile",
			mcp.Description("Site profile name; chosen from the URL host when omitted"),
		),
		mcp.WithNumber("max_pages",
			mcp.Description("Maximum pages to follow (default: profile setting, max: 50)"),
		),
		mcp.WithString("engine",
			mcp.Description("'browser' (default) renders and expands hidden replies; 'http' reads server-rendered HTML only"),
			mcp.Enum("browser", "http"),
		),
		mcp.WithString("format",
			mcp.Description("Result format: 'markdown' (default) or 'json'"),
			mcp.Enum("markdown", "json"),
		),
	}

	extract := mcp.NewTool("extract_threads", append([]mcp.ToolOption{
		mcp.WithDescription("Extract a forum post with every comment thread and reply, expanding collapsed replies and following pagination. Waits for the result."),
	}, pageArgs...)...)
	s.AddTool(extract, handleExtract(c))

	crawl := mcp.NewTool("crawl_threads", append([]mcp.ToolOption{
		mcp.WithDescription("Start the same extraction as a background job and poll until it finishes. Prefer this for long threads that may exceed client timeouts."),
	}, pageArgs...)...)
	s.AddTool(crawl, handleCrawl(c))

	s.AddTool(mcp.NewTool("list_profiles",
		mcp.WithDescription("List the site profiles the server knows, with the hosts each one handles."),
	), handleProfiles(c))

	return s
}

// client talks to the threadscope HTTP API.
type client struct {
	http   *http.Client
	apiURL string
	apiKey string
	poll   time.Duration
}

func (c *client) do(ctx context.Context, method, path string, payload any, out any) error {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.apiURL+path, body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-API-Key", c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("API request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("parse response (status %d): %w", resp.StatusCode, err)
	}
	return nil
}

// pollJob polls the crawl job until it leaves the processing state or ctx
// is cancelled.
func (c *client) pollJob(ctx context.Context, id string) (*models.CrawlStatusResponse, error) {
	ticker := time.NewTicker(c.poll)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
			var status models.CrawlStatusResponse
			if err := c.do(ctx, http.MethodGet, "/api/v1/crawl/"+id, nil, &status); err != nil {
				return nil, err
			}
			if status.Status != models.JobProcessing {
				return &status, nil
			}
		}
	}
}

// requestFrom builds the API payload from tool arguments.
func requestFrom(request mcp.CallToolRequest) (models.ExtractRequest, string, error) {
	url, err := request.RequireString("url")
	if err != nil {
		return models.ExtractRequest{}, "", fmt.Errorf("url is required")
	}
	req := models.ExtractRequest{
		URL:      url,
		Profile:  request.GetString("profile", ""),
		MaxPages: request.GetInt("max_pages", 0),
		Engine:   request.GetString("engine", ""),
	}
	return req, request.GetString("format", report.FormatMarkdown), nil
}

func handleExtract(c *client) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		req, format, err := requestFrom(request)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		var resp models.ExtractResponse
		if err := c.do(ctx, http.MethodPost, "/api/v1/extract", req, &resp); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("extract request failed: %v", err)), nil
		}
		if resp.Result == nil {
			return mcp.NewToolResultError(errorText("extraction failed", resp.Error)), nil
		}
		return render(resp.Result, format)
	}
}

func handleCrawl(c *client) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		req, format, err := requestFrom(request)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		var created struct {
			models.CrawlResponse
			Error *models.ErrorDetail `json:"error"`
		}
		if err := c.do(ctx, http.MethodPost, "/api/v1/crawl", models.CrawlRequest{ExtractRequest: req}, &created); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("crawl request failed: %v", err)), nil
		}
		if created.ID == "" {
			return mcp.NewToolResultError(errorText("crawl job creation failed", created.Error)), nil
		}

		status, err := c.pollJob(ctx, created.ID)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("polling crawl job failed: %v", err)), nil
		}
		if status.Result == nil {
			return mcp.NewToolResultError(errorText("crawl "+status.ID+" failed", status.Error)), nil
		}
		return render(status.Result, format)
	}
}

func handleProfiles(c *client) server.ToolHandlerFunc {
	return func(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var resp struct {
			Profiles []models.ProfileInfo `json:"profiles"`
			Error    *models.ErrorDetail  `json:"error"`
		}
		if err := c.do(ctx, http.MethodGet, "/api/v1/profiles", nil, &resp); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("profiles request failed: %v", err)), nil
		}
		if resp.Error != nil {
			return mcp.NewToolResultError(errorText("listing profiles failed", resp.Error)), nil
		}

		var sb strings.Builder
		for _, p := range resp.Profiles {
			fmt.Fprintf(&sb, "%s (%s pagination): %s\n", p.Name, p.Pagination, strings.Join(p.Hosts, ", "))
		}
		return mcp.NewToolResultText(sb.String()), nil
	}
}

// render formats a result; a crawl that stopped early carries its error in the report.
func render(res *models.CrawlResult, format string) (*mcp.CallToolResult, error) {
	var buf bytes.Buffer
	w, err := report.New(format, &buf)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err := w.Write(res); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("render result: %v", err)), nil
	}
	return mcp.NewToolResultText(buf.String()), nil
}

func errorText(prefix string, e *models.ErrorDetail) string {
	if e == nil {
		return prefix
	}
	return fmt.Sprintf("%s: [%s] %s", prefix, e.Code, e.Message)
}
