// Package db provides persistence for client profiles and content pipeline runs.
package db

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jonathan/content-pipeline/internal/logging"
	"github.com/jonathan/content-pipeline/internal/types"
)

// Store is the persistence contract used by the pipeline and the REST API.
type Store interface {
	CreateClient(ctx context.Context, req *types.ClientIntakeRequest) (*types.ClientProfile, error)
	GetClient(ctx context.Context, id uuid.UUID) (*types.ClientProfile, error)
	UpdateClient(ctx context.Context, id uuid.UUID, update *types.ClientProfileUpdate) (*types.ClientProfile, error)
	DeleteClient(ctx context.Context, id uuid.UUID) error
	ListClients(ctx context.Context, params ClientListParams) (*ClientPage, error)

	CreatePipelineRun(ctx context.Context, clientID uuid.UUID, stage string, input map[string]any) (*types.PipelineRun, error)
	CompletePipelineRun(ctx context.Context, runID uuid.UUID, result RunResult) error
	FailPipelineRun(ctx context.Context, runID uuid.UUID, message string) error
	GetPipelineRun(ctx context.Context, runID uuid.UUID) (*types.PipelineRun, error)
	ListPipelineRuns(ctx context.Context, clientID uuid.UUID, limit, offset int) ([]types.PipelineRun, int, error)

	Ping(ctx context.Context) error
	Close()
}

// Page size bounds for client listing.
const (
	DefaultPageSize = 20
	MaxPageSize     = 100
	DefaultRunLimit = 10
)

// ClientListParams selects one page of clients.
type ClientListParams struct {
	Page     int
	PageSize int
	Search   string
}

// normalize clamps out-of-range values; callers facing users validate first.
func (p ClientListParams) normalize() ClientListParams {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.PageSize < 1 {
		p.PageSize = DefaultPageSize
	}
	if p.PageSize > MaxPageSize {
		p.PageSize = MaxPageSize
	}
	p.Search = strings.TrimSpace(p.Search)
	return p
}

// likePattern wraps term for a substring LIKE match, escaping the wildcard
// characters so they match literally under ESCAPE '\'.
func likePattern(term string) string {
	return "%" + likeEscaper.Replace(term) + "%"
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func (p ClientListParams) offset() int {
	return (p.Page - 1) * p.PageSize
}

// ClientPage is one page of client profiles plus the total match count.
type ClientPage struct {
	Clients  []types.ClientProfile
	Total    int
	Page     int
	PageSize int
}

// RunResult is the completed outcome written back to a pipeline run.
type RunResult struct {
	Content               string
	QualityScore          float64
	Metadata              map[string]any
	ProcessingTimeSeconds int
	Model                 string
	TokensUsed            int
	Cost                  float64
}

// DraftContent is the draft_content document stored on a completed run.
func (r RunResult) DraftContent() map[string]any {
	return map[string]any{
		"content":       r.Content,
		"quality_score": r.QualityScore,
		"metadata":      r.Metadata,
	}
}

// ModelCalls is the ai_model_calls document stored on a completed run.
func (r RunResult) ModelCalls() map[string]any {
	return map[string]any{
		"model":       r.Model,
		"tokens_used": r.TokensUsed,
		"cost":        r.Cost,
	}
}

func normalizeRunPage(limit, offset int) (int, int) {
	if limit < 1 {
		limit = DefaultRunLimit
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

// Open connects to the database named by url. postgres:// and postgresql://
// URLs use the pgx pool; sqlite: URLs use GORM with the SQLite driver.
func Open(ctx context.Context, url string, log *logging.Logger) (Store, error) {
	switch {
	case strings.HasPrefix(url, "postgres://"), strings.HasPrefix(url, "postgresql://"):
		s, err := Connect(ctx, url)
		if err != nil {
			return nil, err
		}
		return s, nil
	case strings.HasPrefix(url, "sqlite:"):
		s, err := NewGormStore(strings.TrimPrefix(url, "sqlite:"), WithGormLogger(NewGormLogger(log)))
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unsupported database url scheme: %q", url)
	}
}

func utcNow() time.Time {
	return time.Now().UTC()
}

var (
	_ Store = (*PostgresStore)(nil)
	_ Store = (*GormStore)(nil)
)
