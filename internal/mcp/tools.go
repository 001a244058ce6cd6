package mcp

import (
	"context"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
)

// optionalTime parses an optional ISO 8601 or YYYY-MM-DD argument.
func optionalTime(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	t, err := parseFlexTime(s)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func parseFlexTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339, s)
	if err == nil {
		return t, nil
	}
	t, err = time.Parse("2006-01-02", s)
	if err == nil {
		return t, nil
	}
	return time.Time{}, err
}

// --- Tool definitions ---

var toolGetNextPlanDay = mcp.NewTool("get_next_plan_day",
	mcp.WithDescription("Return the next day of the active training plan with its prescribed exercises, plus a summary of the most recent completed session. next_day is null when there is no active plan or it has no days."),
)

var toolGetWeeklyVolume = mcp.NewTool("get_weekly_volume",
	mcp.WithDescription("Total training volume (weight × reps) per calendar week, oldest week first, ending with the current week."),
	mcp.WithNumber("weeks", mcp.Description("Number of weeks to return (1-52). Defaults to 8.")),
)

var toolGetWeeklyConsistency = mcp.NewTool("get_weekly_consistency",
	mcp.WithDescription("Distinct training days in the current calendar week and a 7-day presence map starting on the configured first weekday."),
)

var toolGetE1RMProgress = mcp.NewTool("get_e1rm_progress",
	mcp.WithDescription("Estimated one-rep max for every logged set of an exercise, oldest first, with the best estimate."),
	mcp.WithString("exercise", mcp.Required(), mcp.Description("Exact exercise name (case-sensitive, e.g. 'Bench Press')")),
	mcp.WithString("formula", mcp.Description("Estimation formula. Defaults to epley."), mcp.Enum("epley", "brzycki")),
)

var toolListSessions = mcp.NewTool("list_sessions",
	mcp.WithDescription("List logged sessions newest first with volume, exercise count and completion status."),
	mcp.WithString("start", mcp.Description("Start date (ISO 8601 or YYYY-MM-DD).")),
	mcp.WithString("end", mcp.Description("End date, exclusive (ISO 8601 or YYYY-MM-DD).")),
	mcp.WithBoolean("completed_only", mcp.Description("Only include completed sessions.")),
	mcp.WithNumber("limit", mcp.Description("Maximum number of sessions. Defaults to 20.")),
)

// --- Tool handlers ---

func (h *handlers) getNextPlanDay(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	today, err := h.ds.Today(ctx)
	if err != nil {
		h.log.Error("mcp get_next_plan_day", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}
	return jsonResult(today)
}

func (h *handlers) getWeeklyVolume(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	weeks := req.GetInt("weeks", 8)
	if weeks < 1 || weeks > 52 {
		return mcp.NewToolResultError("weeks must be between 1 and 52"), nil
	}

	volume, err := h.ds.WeeklyVolume(ctx, weeks)
	if err != nil {
		h.log.Error("mcp get_weekly_volume", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}
	return jsonResult(volume)
}

func (h *handlers) getWeeklyConsistency(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	c, err := h.ds.Consistency(ctx)
	if err != nil {
		h.log.Error("mcp get_weekly_consistency", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}
	return jsonResult(c)
}

func (h *handlers) getE1RMProgress(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	exercise, err := req.RequireString("exercise")
	if err != nil {
		return mcp.NewToolResultError("exercise parameter is required"), nil
	}

	report, err := h.ds.E1RM(ctx, exercise, req.GetString("formula", ""))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(report)
}

func (h *handlers) listSessions(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	start, err := optionalTime(req.GetString("start", ""))
	if err != nil {
		return mcp.NewToolResultError("invalid start date: " + err.Error()), nil
	}
	end, err := optionalTime(req.GetString("end", ""))
	if err != nil {
		return mcp.NewToolResultError("invalid end date: " + err.Error()), nil
	}

	sessions, err := h.ds.Sessions(ctx, SessionFilter{
		Start:         start,
		End:           end,
		CompletedOnly: req.GetBool("completed_only", false),
		Limit:         req.GetInt("limit", 20),
	})
	if err != nil {
		h.log.Error("mcp list_sessions", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}
	return jsonResult(sessions)
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	result, err := mcp.NewToolResultJSON(v)
	if err != nil {
		return mcp.NewToolResultError("serialization failed"), nil
	}
	return result, nil
}
