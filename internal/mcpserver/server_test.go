package mcpserver

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/starford/platelog/internal/journal"
	"github.com/starford/platelog/internal/models"
	"github.com/starford/platelog/internal/testutil"
)

func testServer(t *testing.T, opts ...journal.Option) (*Server, *journal.Service) {
	t.Helper()
	env := testutil.NewEnv(t)
	svc := journal.New(journal.Deps{
		Store:    env.Store,
		Counter:  env.Counter,
		Awards:   env.Awards,
		Registry: env.Registry,
		Photos:   env.Photos,
		Resolver: env.Resolver,
	}, opts...)
	return New(svc), svc
}

func callTool(t *testing.T, srv *Server, name string, args map[string]interface{}) *mcp.CallToolResult {
	t.Helper()
	ctx := context.Background()
	req := mcp.CallToolRequest{}
	req.Method = "tools/call"
	req.Params.Name = name
	req.Params.Arguments = args

	// mcp-go has no direct "call tool" test helper, so the handlers are
	// called directly.
	var result *mcp.CallToolResult
	var err error

	switch name {
	case "search_records":
		result, err = srv.searchRecords(ctx, req)
	case "get_record":
		result, err = srv.getRecord(ctx, req)
	case "create_record":
		result, err = srv.createRecord(ctx, req)
	case "list_tags":
		result, err = srv.listTags(ctx, req)
	case "tag_record":
		result, err = srv.tagRecord(ctx, req)
	case "check_awards":
		result, err = srv.checkAwards(ctx, req)
	case "attach_photo":
		result, err = srv.attachPhoto(ctx, req)
	case "get_record_guide":
		result, err = srv.getRecordGuide(ctx, req)
	default:
		t.Fatalf("unknown tool: %s", name)
	}

	if err != nil {
		t.Fatalf("tool %s error: %v", name, err)
	}
	return result
}

func resultText(r *mcp.CallToolResult) string {
	if len(r.Content) > 0 {
		if tc, ok := r.Content[0].(mcp.TextContent); ok {
			return tc.Text
		}
	}
	return ""
}

func decodeRecord(t *testing.T, r *mcp.CallToolResult) models.MealRecord {
	t.Helper()
	if r.IsError {
		t.Fatalf("tool error: %s", resultText(r))
	}
	var rec models.MealRecord
	if err := json.Unmarshal([]byte(resultText(r)), &rec); err != nil {
		t.Fatalf("decode record: %v (%s)", err, resultText(r))
	}
	return rec
}

func TestCreateAndGetRecord(t *testing.T) {
	srv, _ := testServer(t)

	rec := decodeRecord(t, callTool(t, srv, "create_record", map[string]interface{}{
		"title":    "Soup",
		"quality":  float64(2),
		"mealtime": "Lunch",
	}))
	if rec.TitleText() != "Soup" || rec.Quality != models.QualityHealthy || rec.MealtimeValue() != models.MealtimeLunch {
		t.Errorf("created = %+v", rec)
	}

	got := decodeRecord(t, callTool(t, srv, "get_record", map[string]interface{}{"id": rec.ID}))
	if got.ID != rec.ID || got.TitleText() != "Soup" {
		t.Errorf("get = %+v", got)
	}
}

func TestCreateRecordRejectsBadFields(t *testing.T) {
	srv, svc := testServer(t)

	r := callTool(t, srv, "create_record", map[string]interface{}{"mealtime": "Brunch"})
	if !r.IsError {
		t.Error("expected error for unknown mealtime")
	}
	r = callTool(t, srv, "create_record", map[string]interface{}{"quality": float64(5)})
	if !r.IsError {
		t.Error("expected error for invalid quality")
	}
	if n := svc.UsageCount(context.Background()); n != 0 {
		t.Errorf("usage after rejected creates = %d, want 0", n)
	}
}

func TestCreateRecordLimit(t *testing.T) {
	srv, _ := testServer(t, journal.WithFreeLimit(1))

	decodeRecord(t, callTool(t, srv, "create_record", map[string]interface{}{}))
	r := callTool(t, srv, "create_record", map[string]interface{}{})
	if !r.IsError || !strings.Contains(resultText(r), "limit reached") {
		t.Errorf("second create = %q", resultText(r))
	}
}

func TestSearchRecords(t *testing.T) {
	srv, _ := testServer(t)
	decodeRecord(t, callTool(t, srv, "create_record", map[string]interface{}{"title": "Green salad"}))
	decodeRecord(t, callTool(t, srv, "create_record", map[string]interface{}{"title": "Burger", "quality": float64(0)}))

	r := callTool(t, srv, "search_records", map[string]interface{}{"text": "salad"})
	var found []models.MealRecord
	if err := json.Unmarshal([]byte(resultText(r)), &found); err != nil {
		t.Fatal(err)
	}
	if len(found) != 1 || found[0].TitleText() != "Green salad" {
		t.Errorf("text search = %+v", found)
	}

	r = callTool(t, srv, "search_records", map[string]interface{}{"quality": float64(0)})
	_ = json.Unmarshal([]byte(resultText(r)), &found)
	if len(found) != 1 || found[0].TitleText() != "Burger" {
		t.Errorf("quality search = %+v", found)
	}

	r = callTool(t, srv, "search_records", map[string]interface{}{"date": "tomorrow"})
	if !r.IsError {
		t.Error("expected error for bad date")
	}
}

func TestTagRecordAndListTags(t *testing.T) {
	srv, _ := testServer(t)
	rec := decodeRecord(t, callTool(t, srv, "create_record", map[string]interface{}{}))

	tagged := decodeRecord(t, callTool(t, srv, "tag_record", map[string]interface{}{
		"record_id": rec.ID,
		"name":      "Friends",
		"category":  "company",
	}))
	if len(tagged.Tags) != 1 || tagged.Tags[0].Category != models.CategoryCompany {
		t.Fatalf("tags = %+v", tagged.Tags)
	}

	text := resultText(callTool(t, srv, "list_tags", map[string]interface{}{}))
	if !strings.Contains(text, "Friends") || !strings.Contains(text, "company") {
		t.Errorf("list_tags = %s", text)
	}

	r := callTool(t, srv, "tag_record", map[string]interface{}{"record_id": rec.ID})
	if !r.IsError {
		t.Error("expected error without tag_id or name")
	}
}

func TestCheckAwards(t *testing.T) {
	srv, _ := testServer(t)

	if text := resultText(callTool(t, srv, "check_awards", nil)); text != "no new award" {
		t.Errorf("before records = %q", text)
	}
	decodeRecord(t, callTool(t, srv, "create_record", map[string]interface{}{}))
	r := callTool(t, srv, "check_awards", nil)
	if r.IsError || !strings.Contains(resultText(r), `"threshold": 1`) {
		t.Errorf("first award = %q", resultText(r))
	}
}

func TestAttachPhoto(t *testing.T) {
	srv, svc := testServer(t)
	rec := decodeRecord(t, callTool(t, srv, "create_record", map[string]interface{}{}))

	png := []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR plate")
	uri := "data:image/png;base64," + base64.StdEncoding.EncodeToString(png)
	updated := decodeRecord(t, callTool(t, srv, "attach_photo", map[string]interface{}{
		"record_id": rec.ID,
		"url":       uri,
	}))
	if updated.PhotoPathText() == "" {
		t.Error("photo path not set")
	}
	data, err := svc.Photo(context.Background(), rec.ID)
	if err != nil || string(data) != string(png) {
		t.Errorf("photo = %q, %v", data, err)
	}

	r := callTool(t, srv, "attach_photo", map[string]interface{}{
		"record_id": rec.ID,
		"url":       "ftp://example.com/a.png",
	})
	if !r.IsError {
		t.Error("expected error for ftp scheme")
	}
	r = callTool(t, srv, "attach_photo", map[string]interface{}{
		"record_id": rec.ID,
		"url":       "http://127.0.0.1/a.png",
	})
	if !r.IsError {
		t.Error("expected error for loopback host")
	}
}

func TestDecodeDataURI(t *testing.T) {
	if _, err := decodeDataURI("data:image/png,plain"); err == nil {
		t.Error("expected error for non-base64 data URI")
	}
	if _, err := decodeDataURI("data:image/png;base64"); err == nil {
		t.Error("expected error for missing comma")
	}
	data, err := decodeDataURI("data:image/png;base64," + base64.RawStdEncoding.EncodeToString([]byte("ab")))
	if err != nil || string(data) != "ab" {
		t.Errorf("raw base64 = %q, %v", data, err)
	}
}

func TestRecordGuide(t *testing.T) {
	srv, _ := testServer(t)
	text := resultText(callTool(t, srv, "get_record_guide", nil))
	for _, m := range models.Mealtimes {
		if !strings.Contains(text, string(m)) {
			t.Errorf("guide misses mealtime %q", m)
		}
	}
}
