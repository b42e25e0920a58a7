package api

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/empathyfine/empathyfine/internal/bias"
	"github.com/empathyfine/empathyfine/internal/empathy"
	"github.com/empathyfine/empathyfine/internal/project"
	"github.com/empathyfine/empathyfine/internal/trainer"
)

// MCPDeps holds dependencies for the MCP server.
type MCPDeps struct {
	Projects *project.Manager
	Trainer  *trainer.Supervisor
}

// NewMCPServer creates an MCP server exposing the fine-tuning workspace
// to MCP clients.
func NewMCPServer(deps MCPDeps) *server.MCPServer {
	s := server.NewMCPServer(
		"empathyfine",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(false, true),
		server.WithInstructions("empathyfine — local workspace for fine-tuning empathetic conversational models."),
		server.WithRecovery(),
	)

	s.AddTool(
		mcp.NewTool("list_projects",
			mcp.WithDescription("List the fine-tuning projects in the workspace."),
		),
		mcpListProjects(deps),
	)

	s.AddTool(
		mcp.NewTool("project_status",
			mcp.WithDescription("Report the currently open project and the state of the training run."),
		),
		mcpProjectStatus(deps),
	)

	s.AddTool(
		mcp.NewTool("training_history",
			mcp.WithDescription("Return recorded training metrics for the open project, oldest first."),
			mcp.WithNumber("limit", mcp.Description("Maximum number of metrics to return (default 20)")),
		),
		mcpTrainingHistory(deps),
	)

	s.AddTool(
		mcp.NewTool("score_empathy",
			mcp.WithDescription("Score a response on the 0..1 empathy scale with a per-dimension breakdown."),
			mcp.WithString("response", mcp.Description("The response text to score"), mcp.Required()),
		),
		mcpScoreEmpathy(),
	)

	s.AddTool(
		mcp.NewTool("scan_bias",
			mcp.WithDescription("Run a bias scan and return the findings report."),
			mcp.WithArray("categories", mcp.Description("Protected categories to scan (default: gender, race, age, religion, socioeconomic)")),
			mcp.WithString("mode", mcp.Description("Scan mode: quick, thorough, or deep (default quick)")),
		),
		mcpScanBias(),
	)

	s.AddResource(
		mcp.NewResource(
			"project://current",
			"Current Project",
			mcp.WithResourceDescription("Configuration of the currently open project as JSON"),
			mcp.WithMIMEType("application/json"),
		),
		mcpResourceCurrentProject(deps),
	)

	return s
}

func mcpListProjects(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		names, err := deps.Projects.List()
		if err != nil {
			return mcpError(fmt.Sprintf("failed to list projects: %v", err)), nil
		}
		if names == nil {
			names = []string{}
		}
		b, err := json.Marshal(names)
		if err != nil {
			return mcpError(fmt.Sprintf("failed to marshal projects: %v", err)), nil
		}
		return mcpText(string(b)), nil
	}
}

func mcpProjectStatus(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		status := map[string]any{
			"training": deps.Trainer.Status(),
		}
		if cfg, open := deps.Projects.Current(); open {
			status["project"] = cfg.Name
			status["base_model"] = cfg.BaseModel
			status["framework"] = cfg.Framework
		} else {
			status["project"] = nil
		}

		b, err := json.Marshal(status)
		if err != nil {
			return mcpError(fmt.Sprintf("failed to marshal status: %v", err)), nil
		}
		return mcpText(string(b)), nil
	}
}

func mcpTrainingHistory(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		limit := req.GetInt("limit", 20)
		if limit <= 0 {
			limit = 20
		}

		metrics, err := deps.Projects.TrainingHistory()
		if err != nil {
			return mcpError(fmt.Sprintf("failed to read training history: %v", err)), nil
		}
		if len(metrics) > limit {
			metrics = metrics[len(metrics)-limit:]
		}

		b, err := json.Marshal(metrics)
		if err != nil {
			return mcpError(fmt.Sprintf("failed to marshal metrics: %v", err)), nil
		}
		return mcpText(string(b)), nil
	}
}

func mcpScoreEmpathy() server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		response, err := req.RequireString("response")
		if err != nil {
			return mcpError("response is required"), nil
		}

		score := empathy.Score(response)
		b, err := json.Marshal(map[string]any{
			"score":      score,
			"dimensions": empathy.DimensionsFor(score),
		})
		if err != nil {
			return mcpError(fmt.Sprintf("failed to marshal score: %v", err)), nil
		}
		return mcpText(string(b)), nil
	}
}

func mcpScanBias() server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		categories, err := bias.ParseCategories(req.GetStringSlice("categories", nil))
		if err != nil {
			return mcpError(err.Error()), nil
		}
		mode, err := bias.ParseMode(req.GetString("mode", ""))
		if err != nil {
			return mcpError(err.Error()), nil
		}

		report := bias.Scan(categories, mode)
		b, err := json.Marshal(report)
		if err != nil {
			return mcpError(fmt.Sprintf("failed to marshal report: %v", err)), nil
		}
		return mcpText(string(b)), nil
	}
}

func mcpResourceCurrentProject(deps MCPDeps) server.ResourceHandlerFunc {
	return func(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		cfg, open := deps.Projects.Current()
		if !open {
			return nil, fmt.Errorf("no project is open")
		}

		b, err := json.Marshal(cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal project: %w", err)
		}

		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      req.Params.URI,
				MIMEType: "application/json",
				Text:     string(b),
			},
		}, nil
	}
}

func mcpText(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: text},
		},
	}
}

func mcpError(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: msg},
		},
		IsError: true,
	}
}
