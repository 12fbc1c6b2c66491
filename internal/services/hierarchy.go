package services

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/uplinehq/agencytree-backend/internal/clients/crm"
	"github.com/uplinehq/agencytree-backend/internal/clients/redis"
	"github.com/uplinehq/agencytree-backend/internal/hierarchy"
	"github.com/uplinehq/agencytree-backend/internal/logger"
	"github.com/uplinehq/agencytree-backend/internal/observability"
	"github.com/uplinehq/agencytree-backend/internal/types"
	"github.com/uplinehq/agencytree-backend/internal/utils"
)

type HierarchyService interface {
	// GetHierarchy returns the current hierarchy document, serving the cached
	// snapshot unless refresh forces a rebuild from the CRM.
	GetHierarchy(ctx context.Context, refresh bool) (*types.HierarchyDocument, error)
}

type hierarchyService struct {
	log   *logger.Logger
	crm   crm.Client
	cache redis.SnapshotCache
	fmSvc FieldMapService
	cfg   hierarchy.Config

	// Concurrent refreshes would hit the CRM in parallel for the same
	// result; a single flight at a time is enough.
	buildMu sync.Mutex
}

func NewHierarchyService(log *logger.Logger, crmClient crm.Client, cache redis.SnapshotCache, fmSvc FieldMapService) (HierarchyService, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	if crmClient == nil {
		return nil, fmt.Errorf("crm client required")
	}
	if fmSvc == nil {
		return nil, fmt.Errorf("field map service required")
	}
	return &hierarchyService{
		log:   log.With("service", "HierarchyService"),
		crm:   crmClient,
		cache: cache,
		fmSvc: fmSvc,
		cfg:   engineConfigFromEnv(log),
	}, nil
}

func engineConfigFromEnv(log *logger.Logger) hierarchy.Config {
	return hierarchy.Config{
		OrganizationRootIdentifier:  strings.TrimSpace(os.Getenv("ORG_ROOT_IDENTIFIER")),
		FallbackRootContactID:       strings.TrimSpace(os.Getenv("FALLBACK_ROOT_CONTACT_ID")),
		FallbackRootEmail:           strings.TrimSpace(os.Getenv("FALLBACK_ROOT_EMAIL")),
		ExcludeLowQualityCandidates: utils.GetEnvAsBool("EXCLUDE_LOW_QUALITY_CANDIDATES", false, log),
		MaxIssueSampleSize:          utils.GetEnvAsInt("MAX_ISSUE_SAMPLE_SIZE", 25, log),
	}
}

func (s *hierarchyService) GetHierarchy(ctx context.Context, refresh bool) (*types.HierarchyDocument, error) {
	if !refresh && s.cache != nil {
		if doc, ok := s.cache.Get(ctx); ok {
			s.log.Debug("hierarchy served from snapshot cache")
			return doc, nil
		}
	}
	return s.rebuild(ctx)
}

func (s *hierarchyService) rebuild(ctx context.Context) (*types.HierarchyDocument, error) {
	s.buildMu.Lock()
	defer s.buildMu.Unlock()

	tracer := otel.Tracer("hierarchy-service")
	ctx, span := tracer.Start(ctx, "hierarchy.rebuild")
	defer span.End()

	records, fields, err := s.fetchStage(ctx, tracer)
	if err != nil {
		observability.Current().ObserveBuild(0, true)
		return nil, err
	}

	fieldMap := s.fieldMapStage(ctx, tracer, fields)
	doc := s.buildStage(ctx, tracer, records, fieldMap)

	span.SetAttributes(
		attribute.Int("hierarchy.records", len(records)),
		attribute.Int("hierarchy.branches", doc.Stats.Branches),
	)

	observability.ReportHierarchyIssues(s.log, "hierarchy_build", doc.Issues, map[string]any{
		"records":  len(records),
		"branches": doc.Stats.Branches,
	})

	if s.cache != nil {
		start := time.Now()
		s.cache.Set(ctx, doc)
		observability.Current().ObserveBuildStage("cache", "ok", time.Since(start))
	}

	s.log.Info("hierarchy rebuilt",
		"records", len(records),
		"branches", doc.Stats.Branches,
		"producers", doc.Stats.Producers,
	)
	return doc, nil
}

func (s *hierarchyService) fetchStage(ctx context.Context, tracer trace.Tracer) ([]types.RawRecord, []types.FieldDefinition, error) {
	ctx, span := tracer.Start(ctx, "hierarchy.fetch")
	defer span.End()

	start := time.Now()
	records, fields, err := s.crm.FetchAll(ctx)
	status := "ok"
	if err != nil {
		status = "error"
	}
	observability.Current().ObserveBuildStage("fetch", status, time.Since(start))
	if err != nil {
		s.log.Error("CRM fetch failed", "error", err)
		return nil, nil, fmt.Errorf("crm fetch: %w", err)
	}
	span.SetAttributes(attribute.Int("crm.contacts", len(records)))
	return records, fields, nil
}

func (s *hierarchyService) fieldMapStage(ctx context.Context, tracer trace.Tracer, fields []types.FieldDefinition) types.FieldMap {
	_, span := tracer.Start(ctx, "hierarchy.fieldmap")
	defer span.End()

	start := time.Now()
	fm := s.fmSvc.Resolve(fields)
	observability.Current().ObserveBuildStage("fieldmap", "ok", time.Since(start))
	return fm
}

func (s *hierarchyService) buildStage(ctx context.Context, tracer trace.Tracer, records []types.RawRecord, fm types.FieldMap) *types.HierarchyDocument {
	_, span := tracer.Start(ctx, "hierarchy.build")
	defer span.End()

	start := time.Now()
	doc := hierarchy.Build(records, fm, s.cfg, time.Now())
	observability.Current().ObserveBuildStage("build", "ok", time.Since(start))

	nodeCount := 0
	for _, root := range doc.Hierarchy {
		nodeCount += root.Metrics.DescendantCount + 1
	}
	observability.Current().ObserveBuild(nodeCount, false)
	span.SetAttributes(attribute.Int("hierarchy.nodes", nodeCount))
	return doc
}
