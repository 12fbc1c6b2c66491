package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/uplinehq/agencytree-backend/internal/logger"
	pkgerrors "github.com/uplinehq/agencytree-backend/internal/pkg/errors"
	"github.com/uplinehq/agencytree-backend/internal/types"
)

type stubHierarchyService struct {
	doc         *types.HierarchyDocument
	err         error
	lastRefresh bool
	calls       int
}

func (s *stubHierarchyService) GetHierarchy(ctx context.Context, refresh bool) (*types.HierarchyDocument, error) {
	s.calls++
	s.lastRefresh = refresh
	return s.doc, s.err
}

func testDoc() *types.HierarchyDocument {
	return &types.HierarchyDocument{
		GeneratedAt: "2026-08-24T12:00:00Z",
		Stats:       types.HierarchyStats{Branches: 1, Producers: 2},
		Hierarchy: []*types.HierarchyNode{
			{ID: "root", Name: "Root", Level: 1, NodeType: "root"},
		},
	}
}

func setup(t *testing.T, svc *stubHierarchyService) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	log, err := logger.New("development")
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	h := NewHierarchyHandler(log, svc)
	r := gin.New()
	r.GET("/api/hierarchy", h.GetHierarchy)
	r.POST("/api/hierarchy/refresh", h.RefreshHierarchy)
	r.GET("/api/hierarchy/issues", h.GetIssues)
	return r
}

func TestGetHierarchy(t *testing.T) {
	svc := &stubHierarchyService{doc: testDoc()}
	r := setup(t, svc)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/hierarchy", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status=%d, body=%s", w.Code, w.Body.String())
	}
	if svc.lastRefresh {
		t.Fatalf("refresh passed without query param")
	}
	var got types.HierarchyDocument
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.GeneratedAt != "2026-08-24T12:00:00Z" || len(got.Hierarchy) != 1 {
		t.Fatalf("document=%+v", got)
	}
}

func TestGetHierarchyRefreshParam(t *testing.T) {
	cases := []struct {
		query string
		want  bool
	}{
		{"?refresh=true", true},
		{"?refresh=1", true},
		{"?refresh=false", false},
		{"?refresh=banana", false},
		{"", false},
	}
	for _, tc := range cases {
		svc := &stubHierarchyService{doc: testDoc()}
		r := setup(t, svc)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/hierarchy"+tc.query, nil))
		if svc.lastRefresh != tc.want {
			t.Fatalf("query %q: refresh=%v, want %v", tc.query, svc.lastRefresh, tc.want)
		}
	}
}

func TestRefreshHierarchyOmitsForest(t *testing.T) {
	svc := &stubHierarchyService{doc: testDoc()}
	r := setup(t, svc)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/hierarchy/refresh", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status=%d, body=%s", w.Code, w.Body.String())
	}
	if !svc.lastRefresh {
		t.Fatalf("refresh endpoint did not force a rebuild")
	}
	var got map[string]json.RawMessage
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if _, ok := got["stats"]; !ok {
		t.Fatalf("stats missing: %s", w.Body.String())
	}
	if _, ok := got["hierarchy"]; ok {
		t.Fatalf("refresh response should not carry the forest: %s", w.Body.String())
	}
}

func TestGetIssues(t *testing.T) {
	doc := testDoc()
	doc.Issues.MissingIdentifier.Count = 3
	svc := &stubHierarchyService{doc: doc}
	r := setup(t, svc)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/hierarchy/issues", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status=%d, body=%s", w.Code, w.Body.String())
	}
	var got struct {
		Issues types.IssueReport `json:"issues"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Issues.MissingIdentifier.Count != 3 {
		t.Fatalf("issues=%+v", got.Issues)
	}
}

func TestBuildFailureMapsToBadGateway(t *testing.T) {
	svc := &stubHierarchyService{err: errors.New("crm unreachable")}
	r := setup(t, svc)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/hierarchy", nil))

	if w.Code != http.StatusBadGateway {
		t.Fatalf("status=%d, want 502", w.Code)
	}
	var env ErrorEnvelope
	if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if env.Error.Code != "hierarchy_build_failed" {
		t.Fatalf("error envelope=%+v", env)
	}
}

func TestUpstreamAuthFailureCode(t *testing.T) {
	svc := &stubHierarchyService{err: fmt.Errorf("crm fetch: %w", pkgerrors.ErrUnauthorized)}
	r := setup(t, svc)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/hierarchy", nil))

	if w.Code != http.StatusBadGateway {
		t.Fatalf("status=%d, want 502", w.Code)
	}
	var env ErrorEnvelope
	if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if env.Error.Code != "crm_auth_failed" {
		t.Fatalf("error envelope=%+v", env)
	}
}
