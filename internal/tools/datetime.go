package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/freddie-manatal/sentry-sensei-mcp/internal/credentials"
	"github.com/freddie-manatal/sentry-sensei-mcp/internal/protocol"
)

func currentDatetimeTool() mcp.Tool {
	return mcp.NewTool(ToolCurrentDatetime,
		mcp.WithDescription("Return the current date and time, useful for anchoring relative date filters."),
		mcp.WithString("format",
			mcp.Description("One of iso, date, time, datetime, unix. Defaults to iso."),
			mcp.Enum("iso", "date", "time", "datetime", "unix"),
		),
		mcp.WithString("timezone",
			mcp.Description("IANA timezone name, e.g. Asia/Bangkok. Defaults to UTC."),
		),
		mcp.WithTitleAnnotation("Get Current Datetime"),
		mcp.WithReadOnlyHintAnnotation(true),
	)
}

type datetimeArgs struct {
	Format   string `json:"format"`
	Timezone string `json:"timezone"`
}

func (r *Registry) handleCurrentDatetime(_ context.Context, _ credentials.Credentials, raw json.RawMessage) (*mcp.CallToolResult, error) {
	var args datetimeArgs
	if err := decodeArgs(raw, &args); err != nil {
		return nil, err
	}

	loc := time.UTC
	if args.Timezone != "" {
		parsed, err := time.LoadLocation(args.Timezone)
		if err != nil {
			return nil, protocol.NewInvalidParams("unknown timezone %q", args.Timezone)
		}
		loc = parsed
	}
	now := r.now().In(loc)

	var text string
	switch args.Format {
	case "", "iso":
		text = now.Format(time.RFC3339)
	case "date":
		text = now.Format("2006-01-02")
	case "time":
		text = now.Format("15:04:05")
	case "datetime":
		text = now.Format("2006-01-02 15:04:05 MST")
	case "unix":
		text = fmt.Sprintf("%d", now.Unix())
	default:
		return nil, protocol.NewInvalidParams("unknown format %q: use iso, date, time, datetime, or unix", args.Format)
	}
	return mcp.NewToolResultText(text), nil
}
