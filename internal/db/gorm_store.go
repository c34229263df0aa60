package db

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jonathan/content-pipeline/internal/logging"
	"github.com/jonathan/content-pipeline/internal/types"
	"gorm.io/datatypes"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// GormStore implements Store using GORM + SQLite.
type GormStore struct {
	db  *gorm.DB
	now func() time.Time
}

type gormStoreOptions struct {
	now    func() time.Time
	logger gormlogger.Interface
}

// GormStoreOption customizes NewGormStore.
type GormStoreOption func(*gormStoreOptions)

// WithClock sets the time source used for created_at, updated_at and completed_at.
func WithClock(now func() time.Time) GormStoreOption {
	return func(o *gormStoreOptions) {
		o.now = now
	}
}

// NewGormLogger reports slow queries and SQL errors through log at warn
// level. A nil log discards them.
func NewGormLogger(log *logging.Logger) gormlogger.Interface {
	if log == nil {
		log = logging.Nop()
	}
	return gormlogger.New(gormWriter{log: log.With("component", "gorm")}, gormlogger.Config{
		SlowThreshold:             time.Second,
		LogLevel:                  gormlogger.Warn,
		IgnoreRecordNotFoundError: true,
		Colorful:                  false,
	})
}

type gormWriter struct {
	log *logging.Logger
}

func (w gormWriter) Printf(format string, args ...interface{}) {
	w.log.SugaredLogger.Warnf(format, args...)
}

// WithGormLogger replaces the default warn-level GORM logger.
func WithGormLogger(l gormlogger.Interface) GormStoreOption {
	return func(o *gormStoreOptions) {
		o.logger = l
	}
}

// NewGormStore opens the SQLite database at dsn and runs auto-migrations.
// An empty dsn opens a private in-memory database.
func NewGormStore(dsn string, options ...GormStoreOption) (*GormStore, error) {
	opts := gormStoreOptions{now: utcNow}
	for _, option := range options {
		if option != nil {
			option(&opts)
		}
	}
	if opts.logger == nil {
		opts.logger = NewGormLogger(nil)
	}
	if strings.TrimSpace(dsn) == "" {
		dsn = ":memory:"
	}

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         opts.logger,
		NowFunc:        opts.now,
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql handle: %w", err)
	}
	// SQLite allows one writer; a single connection also keeps :memory: databases alive.
	sqlDB.SetMaxOpenConns(1)

	if err := db.Exec("PRAGMA foreign_keys = ON").Error; err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}
	if err := db.AutoMigrate(&clientModel{}, &runModel{}); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("failed to auto migrate: %w", err)
	}

	return &GormStore{db: db, now: opts.now}, nil
}

// Ping verifies the database is reachable
func (s *GormStore) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Close closes the underlying database handle
func (s *GormStore) Close() {
	if sqlDB, err := s.db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}

// CreateClient inserts a new client. The unique index on email decides duplicates.
func (s *GormStore) CreateClient(ctx context.Context, req *types.ClientIntakeRequest) (*types.ClientProfile, error) {
	p := types.NewClientProfile(req)
	p.ID = uuid.New()
	now := s.now()
	p.CreatedAt = now
	p.UpdatedAt = now

	m, err := toClientModel(p)
	if err != nil {
		return nil, err
	}
	if err := s.db.WithContext(ctx).Create(m).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, &DuplicateEmailError{Email: p.Email}
		}
		return nil, wrapErr("create client", err)
	}
	return p, nil
}

// GetClient retrieves a client by ID
func (s *GormStore) GetClient(ctx context.Context, id uuid.UUID) (*types.ClientProfile, error) {
	var m clientModel
	if err := s.db.WithContext(ctx).First(&m, "id = ?", id.String()).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &NotFoundError{Entity: "client", ID: id.String()}
		}
		return nil, wrapErr("get client", err)
	}
	return fromClientModel(&m)
}

// UpdateClient merges the update into the stored client inside one transaction.
func (s *GormStore) UpdateClient(ctx context.Context, id uuid.UUID, update *types.ClientProfileUpdate) (*types.ClientProfile, error) {
	var out *types.ClientProfile
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var m clientModel
		if err := tx.First(&m, "id = ?", id.String()).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return &NotFoundError{Entity: "client", ID: id.String()}
			}
			return wrapErr("load client for update", err)
		}
		p, err := fromClientModel(&m)
		if err != nil {
			return err
		}

		update.ApplyTo(p)
		p.UpdatedAt = s.now()

		next, err := toClientModel(p)
		if err != nil {
			return err
		}
		if err := tx.Save(next).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return &DuplicateEmailError{Email: p.Email}
			}
			return wrapErr("update client", err)
		}
		p.UpdatedAt = next.UpdatedAt
		out = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// DeleteClient removes a client and its pipeline runs
func (s *GormStore) DeleteClient(ctx context.Context, id uuid.UUID) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("client_id = ?", id.String()).Delete(&runModel{}).Error; err != nil {
			return wrapErr("delete client runs", err)
		}
		res := tx.Where("id = ?", id.String()).Delete(&clientModel{})
		if res.Error != nil {
			return wrapErr("delete client", res.Error)
		}
		if res.RowsAffected == 0 {
			return &NotFoundError{Entity: "client", ID: id.String()}
		}
		return nil
	})
}

// ListClients returns one page of clients in creation order, optionally
// filtered by a case-insensitive search over name, email and company.
func (s *GormStore) ListClients(ctx context.Context, params ClientListParams) (*ClientPage, error) {
	params = params.normalize()

	filtered := func() *gorm.DB {
		q := s.db.WithContext(ctx).Model(&clientModel{})
		if params.Search != "" {
			pattern := likePattern(strings.ToLower(params.Search))
			q = q.Where(`LOWER(name) LIKE ? ESCAPE '\' OR LOWER(email) LIKE ? ESCAPE '\' OR LOWER(company) LIKE ? ESCAPE '\'`, pattern, pattern, pattern)
		}
		return q
	}

	var total int64
	if err := filtered().Count(&total).Error; err != nil {
		return nil, wrapErr("count clients", err)
	}

	var models []clientModel
	if err := filtered().Order("created_at ASC, id ASC").
		Offset(params.offset()).
		Limit(params.PageSize).
		Find(&models).Error; err != nil {
		return nil, wrapErr("list clients", err)
	}

	clients := make([]types.ClientProfile, 0, len(models))
	for i := range models {
		p, err := fromClientModel(&models[i])
		if err != nil {
			return nil, err
		}
		clients = append(clients, *p)
	}

	return &ClientPage{
		Clients:  clients,
		Total:    int(total),
		Page:     params.Page,
		PageSize: params.PageSize,
	}, nil
}

// CreatePipelineRun inserts a pending run for the client
func (s *GormStore) CreatePipelineRun(ctx context.Context, clientID uuid.UUID, stage string, input map[string]any) (*types.PipelineRun, error) {
	inputJSON, err := marshalMap(input)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal input data: %w", err)
	}
	if inputJSON == nil {
		inputJSON = []byte("{}")
	}

	m := &runModel{
		ID:        uuid.NewString(),
		ClientID:  clientID.String(),
		Status:    string(types.RunStatusPending),
		Stage:     stage,
		InputData: datatypes.JSON(inputJSON),
		CreatedAt: s.now(),
	}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&clientModel{}).Where("id = ?", clientID.String()).Count(&count).Error; err != nil {
			return wrapErr("check client", err)
		}
		if count == 0 {
			return &NotFoundError{Entity: "client", ID: clientID.String()}
		}
		if err := tx.Create(m).Error; err != nil {
			if errors.Is(err, gorm.ErrForeignKeyViolated) {
				return &NotFoundError{Entity: "client", ID: clientID.String()}
			}
			return wrapErr("create pipeline run", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return fromRunModel(m)
}

// CompletePipelineRun moves a pending run to completed
func (s *GormStore) CompletePipelineRun(ctx context.Context, runID uuid.UUID, result RunResult) error {
	draftJSON, err := marshalMap(result.DraftContent())
	if err != nil {
		return fmt.Errorf("failed to marshal draft content: %w", err)
	}
	callsJSON, err := marshalMap(result.ModelCalls())
	if err != nil {
		return fmt.Errorf("failed to marshal model calls: %w", err)
	}

	return s.terminalUpdate(ctx, runID, map[string]any{
		"status":                  string(types.RunStatusCompleted),
		"draft_content":           datatypes.JSON(draftJSON),
		"quality_score":           result.QualityScore,
		"processing_time_seconds": result.ProcessingTimeSeconds,
		"ai_model_calls":          datatypes.JSON(callsJSON),
		"completed_at":            s.now(),
	})
}

// FailPipelineRun moves a pending run to failed with the error message
func (s *GormStore) FailPipelineRun(ctx context.Context, runID uuid.UUID, message string) error {
	return s.terminalUpdate(ctx, runID, map[string]any{
		"status":        string(types.RunStatusFailed),
		"error_message": message,
		"completed_at":  s.now(),
	})
}

func (s *GormStore) terminalUpdate(ctx context.Context, runID uuid.UUID, fields map[string]any) error {
	res := s.db.WithContext(ctx).Model(&runModel{}).
		Where("id = ? AND status = ?", runID.String(), string(types.RunStatusPending)).
		Updates(fields)
	if res.Error != nil {
		return wrapErr("update pipeline run", res.Error)
	}
	if res.RowsAffected > 0 {
		return nil
	}

	var count int64
	if err := s.db.WithContext(ctx).Model(&runModel{}).Where("id = ?", runID.String()).Count(&count).Error; err != nil {
		return wrapErr("check pipeline run", err)
	}
	if count == 0 {
		return &NotFoundError{Entity: "pipeline run", ID: runID.String()}
	}
	return ErrRunAlreadyTerminal
}

// GetPipelineRun retrieves a run by ID
func (s *GormStore) GetPipelineRun(ctx context.Context, runID uuid.UUID) (*types.PipelineRun, error) {
	var m runModel
	if err := s.db.WithContext(ctx).First(&m, "id = ?", runID.String()).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &NotFoundError{Entity: "pipeline run", ID: runID.String()}
		}
		return nil, wrapErr("get pipeline run", err)
	}
	return fromRunModel(&m)
}

// ListPipelineRuns returns a client's runs in creation order and the total count
func (s *GormStore) ListPipelineRuns(ctx context.Context, clientID uuid.UUID, limit, offset int) ([]types.PipelineRun, int, error) {
	limit, offset = normalizeRunPage(limit, offset)

	forClient := func() *gorm.DB {
		return s.db.WithContext(ctx).Model(&runModel{}).Where("client_id = ?", clientID.String())
	}

	var total int64
	if err := forClient().Count(&total).Error; err != nil {
		return nil, 0, wrapErr("count pipeline runs", err)
	}

	var models []runModel
	if err := forClient().Order("created_at ASC, id ASC").Offset(offset).Limit(limit).Find(&models).Error; err != nil {
		return nil, 0, wrapErr("list pipeline runs", err)
	}

	runs := make([]types.PipelineRun, 0, len(models))
	for i := range models {
		run, err := fromRunModel(&models[i])
		if err != nil {
			return nil, 0, err
		}
		runs = append(runs, *run)
	}
	return runs, int(total), nil
}

func toClientModel(p *types.ClientProfile) (*clientModel, error) {
	docs, err := encodeClientDocuments(p)
	if err != nil {
		return nil, err
	}
	return &clientModel{
		ID:                   p.ID.String(),
		Name:                 p.Name,
		Email:                p.Email,
		Company:              p.Company,
		Website:              p.Website,
		ServiceOffering:      datatypes.JSON(docs.ServiceOffering),
		ICPProfile:           datatypes.JSON(docs.ICPProfile),
		PositioningStatement: p.PositioningStatement,
		ContentPreferences:   datatypes.JSON(docs.ContentPreferences),
		Constraints:          datatypes.JSON(docs.Constraints),
		VoiceExamples:        datatypes.JSON(docs.VoiceExamples),
		ProofAssets:          datatypes.JSON(docs.ProofAssets),
		AdditionalNotes:      p.AdditionalNotes,
		Status:               string(p.Status),
		CreatedAt:            p.CreatedAt,
		UpdatedAt:            p.UpdatedAt,
	}, nil
}

func fromClientModel(m *clientModel) (*types.ClientProfile, error) {
	id, err := uuid.Parse(m.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to parse client id %q: %w", m.ID, err)
	}
	p := &types.ClientProfile{
		ID:                   id,
		Name:                 m.Name,
		Email:                m.Email,
		Company:              m.Company,
		Website:              m.Website,
		PositioningStatement: m.PositioningStatement,
		AdditionalNotes:      m.AdditionalNotes,
		Status:               types.ClientStatus(m.Status),
		CreatedAt:            m.CreatedAt,
		UpdatedAt:            m.UpdatedAt,
	}
	docs := clientDocuments{
		ServiceOffering:    m.ServiceOffering,
		ICPProfile:         m.ICPProfile,
		ContentPreferences: m.ContentPreferences,
		Constraints:        m.Constraints,
		VoiceExamples:      m.VoiceExamples,
		ProofAssets:        m.ProofAssets,
	}
	if err := docs.decodeInto(p); err != nil {
		return nil, err
	}
	return p, nil
}

func fromRunModel(m *runModel) (*types.PipelineRun, error) {
	id, err := uuid.Parse(m.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to parse run id %q: %w", m.ID, err)
	}
	clientID, err := uuid.Parse(m.ClientID)
	if err != nil {
		return nil, fmt.Errorf("failed to parse client id %q: %w", m.ClientID, err)
	}
	return &types.PipelineRun{
		ID:                    id,
		ClientID:              clientID,
		Status:                types.RunStatus(m.Status),
		Stage:                 m.Stage,
		InputData:             unmarshalMap(m.InputData),
		DraftContent:          unmarshalMap(m.DraftContent),
		QualityScore:          m.QualityScore,
		ProcessingTimeSeconds: m.ProcessingTimeSeconds,
		AIModelCalls:          unmarshalMap(m.AIModelCalls),
		ErrorMessage:          m.ErrorMessage,
		CreatedAt:             m.CreatedAt,
		CompletedAt:           m.CompletedAt,
	}, nil
}
