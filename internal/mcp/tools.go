package mcp

import (
	"context"
	"errors"
	"fmt"
	"strings"

	jsoniter "github.com/json-iterator/go"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cast"

	"github.com/bobmcallan/webtools-portal/internal/client"
	"github.com/bobmcallan/webtools-portal/internal/common"
	"github.com/bobmcallan/webtools-portal/internal/config"
	"github.com/bobmcallan/webtools-portal/internal/models"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const maxLimit = 100

// toolSummary is the compact tool shape returned to agents.
type toolSummary struct {
	Slug        string   `json:"slug"`
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	URL         string   `json:"url,omitempty"`
	Created     string   `json:"created,omitempty"`
	Tags        []string `json:"tags,omitempty"`
}

type listToolsResult struct {
	Tag   string        `json:"tag"`
	Page  int           `json:"page"`
	Tools []toolSummary `json:"tools"`
	Next  string        `json:"next,omitempty"`
	Count int           `json:"count"`
}

// ListTagsTool returns the list_tags tool definition.
func ListTagsTool() mcp.Tool {
	return mcp.NewTool("list_tags",
		mcp.WithDescription("List the tags tools can be filtered by."),
	)
}

// ListTagsHandler answers list_tags from the seed.
func ListTagsHandler(backend Backend, allLabel string) server.ToolHandlerFunc {
	return func(ctx context.Context, r mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		tags := append([]string{allLabel}, backend.Tags()...)
		return jsonResult(tags)
	}
}

// ListToolsTool returns the list_tools tool definition.
func ListToolsTool(defaultLimit int) mcp.Tool {
	return mcp.NewTool("list_tools",
		mcp.WithDescription("List one page of tools, optionally filtered by tag. Follow the returned next value as page to continue."),
		mcp.WithString("tag", mcp.Description("Tag to filter by. Omit for all tools.")),
		mcp.WithNumber("page", mcp.Description("Page number, starting at 1.")),
		mcp.WithNumber("limit", mcp.Description(fmt.Sprintf("Tools per page, default %d, at most %d.", defaultLimit, maxLimit))),
	)
}

// ListToolsHandler fetches one page through backend.
func ListToolsHandler(backend Backend, defaultLimit int, allLabel string) server.ToolHandlerFunc {
	return func(ctx context.Context, r mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args := r.GetArguments()

		tag := strings.TrimSpace(cast.ToString(args["tag"]))

		page := 1
		if raw, ok := args["page"]; ok && raw != nil {
			n, err := cast.ToIntE(raw)
			if err != nil || n < 1 {
				return errorResult(fmt.Sprintf("page must be a positive integer, got %v", raw)), nil
			}
			page = n
		}

		limit := defaultLimit
		if raw, ok := args["limit"]; ok && raw != nil {
			n, err := cast.ToIntE(raw)
			if err != nil || n < 1 {
				return errorResult(fmt.Sprintf("limit must be a positive integer, got %v", raw)), nil
			}
			limit = min(n, maxLimit)
		}

		result, err := backend.FetchTools(ctx, models.FilterValue(tag, allLabel), page, limit)
		if err != nil {
			return errorResult(describeFetchError(err)), nil
		}

		out := listToolsResult{
			Tag:   tag,
			Page:  page,
			Tools: make([]toolSummary, 0, len(result.Tools)),
			Next:  string(result.Info.Next),
			Count: result.Info.Count,
		}
		if out.Tag == "" {
			out.Tag = allLabel
		}
		for _, t := range result.Tools {
			out.Tools = append(out.Tools, toolSummary{
				Slug:        t.Slug,
				Name:        t.Name,
				Description: t.Description,
				URL:         t.URL,
				Created:     common.FormatDate(t.CreatedAt),
				Tags:        t.Tags,
			})
		}
		return jsonResult(out)
	}
}

// VersionTool returns the get_version tool definition.
func VersionTool() mcp.Tool {
	return mcp.NewTool("get_version",
		mcp.WithDescription("Get the webtools portal version. Use this to verify connectivity."),
	)
}

// VersionToolHandler reports the portal build.
func VersionToolHandler() server.ToolHandlerFunc {
	return func(ctx context.Context, r mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return jsonResult(map[string]string{
			"version": config.GetVersion(),
			"build":   config.GetBuild(),
			"commit":  config.GetGitCommit(),
		})
	}
}

func describeFetchError(err error) string {
	var statusErr *client.StatusError
	if errors.As(err, &statusErr) {
		return fmt.Sprintf("tools API returned status %d", statusErr.StatusCode)
	}
	return "tools API request failed: " + err.Error()
}
