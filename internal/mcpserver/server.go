// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes platelog tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/platelog/internal/journal"
	"github.com/starford/platelog/internal/models"
)

const guideURI = "platelog://record-guide"

// Server wraps the MCP server with platelog tools.
type Server struct {
	mcp *server.MCPServer
	svc *journal.Service
}

// New creates a new MCP server with all platelog tools registered.
func New(svc *journal.Service) *Server {
	s := &Server{svc: svc}

	s.mcp = server.NewMCPServer(
		"platelog",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("search_records",
		mcp.WithDescription("Search meal records by text, day, quality, mealtime or tag. "+
			"All arguments are optional; with none, every record is returned newest first."),
		mcp.WithString("text", mcp.Description("Text to find in title or notes")),
		mcp.WithString("date", mcp.Description("Calendar day, YYYY-MM-DD")),
		mcp.WithNumber("quality", mcp.Description("0 = Unhealthy, 1 = Moderate, 2 = Healthy")),
		mcp.WithString("mealtime", mcp.Description("Mealtime, e.g. Lunch")),
		mcp.WithString("tag_id", mcp.Description("Only records carrying this tag")),
		mcp.WithBoolean("oldest_first", mcp.Description("Sort oldest first instead of newest first")),
	), s.searchRecords)

	s.mcp.AddTool(mcp.NewTool("get_record",
		mcp.WithDescription("Read one meal record by id."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Record id")),
	), s.getRecord)

	s.mcp.AddTool(mcp.NewTool("create_record",
		mcp.WithDescription("Create a meal record, optionally filling its fields. "+
			"May be refused when the free record limit is reached. "+
			"Read the guide first via get_record_guide or the "+guideURI+" resource."),
		mcp.WithString("title", mcp.Description("Short name of the meal")),
		mcp.WithString("notes", mcp.Description("Free-form notes")),
		mcp.WithNumber("quality", mcp.Description("0 = Unhealthy, 1 = Moderate, 2 = Healthy")),
		mcp.WithString("mealtime", mcp.Description("Mealtime, e.g. Dinner")),
	), s.createRecord)

	s.mcp.AddTool(mcp.NewTool("list_tags",
		mcp.WithDescription("List every tag grouped by category."),
	), s.listTags)

	s.mcp.AddTool(mcp.NewTool("tag_record",
		mcp.WithDescription("Attach a tag to a record. Creates the tag first when only a name is given."),
		mcp.WithString("record_id", mcp.Required(), mcp.Description("Record id")),
		mcp.WithString("tag_id", mcp.Description("Existing tag id")),
		mcp.WithString("name", mcp.Description("Name of a new tag, used when tag_id is empty")),
		mcp.WithString("category", mcp.Description("Category of a new tag (default: mine)")),
	), s.tagRecord)

	s.mcp.AddTool(mcp.NewTool("check_awards",
		mcp.WithDescription("Report the next award earned but not yet announced, if any."),
	), s.checkAwards)

	s.mcp.AddTool(mcp.NewTool("attach_photo",
		mcp.WithDescription("Set a record's photo from a data: URI or an http(s) URL."),
		mcp.WithString("record_id", mcp.Required(), mcp.Description("Record id")),
		mcp.WithString("url", mcp.Required(), mcp.Description("data:image/...;base64,... or http(s) URL")),
	), s.attachPhoto)

	s.mcp.AddTool(mcp.NewTool("get_record_guide",
		mcp.WithDescription("Returns the guide to record fields, mealtimes, tag categories and limits."),
	), s.getRecordGuide)

	s.mcp.AddResource(
		mcp.NewResource(guideURI, "Record Guide",
			mcp.WithResourceDescription("Fields and vocabulary of meal records."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readGuideResource,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func jsonResult(v any) *mcp.CallToolResult {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error())
	}
	return mcp.NewToolResultText(string(out))
}

func optionalQuality(req mcp.CallToolRequest) (*models.Quality, error) {
	args := req.GetArguments()
	if _, ok := args["quality"]; !ok {
		return nil, nil
	}
	q, err := models.ParseQuality(req.GetInt("quality", -1))
	if err != nil {
		return nil, err
	}
	return &q, nil
}

func optionalMealtime(req mcp.CallToolRequest) (*models.Mealtime, error) {
	s := req.GetString("mealtime", "")
	if s == "" {
		return nil, nil
	}
	m, err := models.ParseMealtime(s)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (s *Server) searchRecords(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	c := journal.Criteria{
		Text:        req.GetString("text", ""),
		NewestFirst: !req.GetBool("oldest_first", false),
	}
	var err error
	if c.Quality, err = optionalQuality(req); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if c.Mealtime, err = optionalMealtime(req); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if id := req.GetString("tag_id", ""); id != "" {
		c.TagID = &id
	}
	if d := req.GetString("date", ""); d != "" {
		day, err := parseDay(d)
		if err != nil {
			return mcp.NewToolResultError("date must be YYYY-MM-DD"), nil
		}
		c.Date = &day
	}
	return jsonResult(s.svc.Search(ctx, c.Query())), nil
}

func (s *Server) getRecord(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	rec, err := s.svc.Record(ctx, id)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("not found: %s", id)), nil
	}
	return jsonResult(rec), nil
}

func (s *Server) createRecord(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var p journal.Patch
	var err error
	if p.Quality, err = optionalQuality(req); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if p.Mealtime, err = optionalMealtime(req); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if t := req.GetString("title", ""); t != "" {
		p.Title = &t
	}
	if n := req.GetString("notes", ""); n != "" {
		p.Notes = &n
	}

	rec, ok, err := s.svc.CreateRecord(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if !ok {
		return mcp.NewToolResultError(fmt.Sprintf(
			"record limit reached: %d of %d free records used; an upgrade is required",
			s.svc.UsageCount(ctx), s.svc.FreeLimit())), nil
	}
	if p.Title == nil && p.Notes == nil && p.Quality == nil && p.Mealtime == nil {
		return jsonResult(rec), nil
	}
	updated, err := s.svc.UpdateRecord(ctx, rec.ID, p)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(updated), nil
}

func (s *Server) listTags(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	groups, err := s.svc.GroupedTags(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(groups), nil
}

func (s *Server) tagRecord(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	recordID, err := req.RequireString("record_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	tagID := req.GetString("tag_id", "")
	if tagID == "" {
		name := req.GetString("name", "")
		if name == "" {
			return mcp.NewToolResultError("either tag_id or name is required"), nil
		}
		category := models.CategoryMine
		if c := req.GetString("category", ""); c != "" {
			category = models.ParseTagCategory(c)
		}
		t, err := s.svc.CreateTag(ctx, name, category)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		tagID = t.ID
	}
	rec, err := s.svc.AttachTag(ctx, recordID, tagID)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(rec), nil
}

func (s *Server) checkAwards(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	d, ok := s.svc.CheckForNewlyEarnedAward(ctx)
	if !ok {
		return mcp.NewToolResultText("no new award"), nil
	}
	return jsonResult(d), nil
}

func (s *Server) getRecordGuide(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(RecordGuide), nil
}

func (s *Server) readGuideResource(_ context.Context, _ mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      guideURI,
			MIMEType: "text/markdown",
			Text:     RecordGuide,
		},
	}, nil
}
