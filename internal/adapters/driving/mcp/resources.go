package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

const (
	// uriScheme is the custom URI scheme for r3form resources.
	uriScheme = "r3form://"
)

// registerResources registers all resource handlers with the MCP server.
func (s *Server) registerResources() {
	s.server.AddResource(&mcp.Resource{
		URI:         uriScheme + "cases",
		Name:        "cases",
		Description: "All assessment cases with their reference report links",
		MIMEType:    "application/json",
	}, s.handleCasesResource)

	s.server.AddResource(&mcp.Resource{
		URI:         uriScheme + "cache",
		Name:        "cache",
		Description: "Local cache entries and their freshness",
		MIMEType:    "application/json",
	}, s.handleCacheResource)

	s.server.AddResourceTemplate(&mcp.ResourceTemplate{
		URITemplate: uriScheme + "cases/{caseId}/submission",
		Name:        "case-submission",
		Description: "The existing R3 form submission for a case",
		MIMEType:    "application/json",
	}, s.handleSubmissionResource)
}

// handleCasesResource returns the case list.
func (s *Server) handleCasesResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	s.formMu.Lock()
	defer s.formMu.Unlock()

	if err := s.loadForm(ctx); err != nil {
		return nil, err
	}

	cases := s.ports.Form.Cases()
	out := make([]CaseOutput, len(cases))
	for i, c := range cases {
		out[i] = caseOutput(c)
	}

	return jsonResult(req.Params.URI, out)
}

// cacheEntry is the JSON shape of one cache key.
type cacheEntry struct {
	Key      string `json:"key"`
	Present  bool   `json:"present"`
	Valid    bool   `json:"valid"`
	Rows     int    `json:"rows"`
	StoredAt string `json:"stored_at,omitempty"`
}

// handleCacheResource returns the cache status.
func (s *Server) handleCacheResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	if s.ports.Cache == nil {
		return &mcp.ReadResourceResult{
			Contents: []*mcp.ResourceContents{{
				URI:      req.Params.URI,
				MIMEType: "application/json",
				Text:     "[]",
			}},
		}, nil
	}

	statuses := s.ports.Cache.Status(ctx)
	out := make([]cacheEntry, len(statuses))
	for i, st := range statuses {
		out[i] = cacheEntry{
			Key:      string(st.Key),
			Present:  st.Present,
			Valid:    st.Valid,
			Rows:     st.Rows,
			StoredAt: st.StoredAt,
		}
	}

	return jsonResult(req.Params.URI, out)
}

// handleSubmissionResource returns the existing submission for a case.
func (s *Server) handleSubmissionResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	caseID := extractCaseID(req.Params.URI)
	if caseID == "" {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}

	rec, err := s.ports.Submissions.FindExisting(ctx, caseID)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}

	return jsonResult(req.Params.URI, submissionOutput(rec))
}

func jsonResult(uri string, v any) (*mcp.ReadResourceResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshalling resource: %w", err)
	}

	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		}},
	}, nil
}

// extractCaseID extracts the case ID from a URI like r3form://cases/{id}/submission.
func extractCaseID(uri string) string {
	rest, ok := strings.CutPrefix(uri, uriScheme+"cases/")
	if !ok {
		return ""
	}
	id, ok := strings.CutSuffix(rest, "/submission")
	if !ok || strings.Contains(id, "/") {
		return ""
	}
	return id
}
