package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"flowboard/internal/codec"
	"flowboard/internal/domain"
	"flowboard/internal/importer"
	"flowboard/internal/query"
)

// ─────────────────────────────────────────────────────────────
// Board Service: persistence, export and import of boards
// ─────────────────────────────────────────────────────────────

// SaveRequest is the input of Save. An empty BoardID creates a new board.
type SaveRequest struct {
	BoardID     string        `json:"boardId,omitempty" validate:"omitempty,max=191"`
	Name        string        `json:"name" validate:"required,max=512"`
	Description string        `json:"description,omitempty"`
	Nodes       []domain.Node `json:"nodes" validate:"required,unique=ID,dive"`
	Edges       []domain.Edge `json:"edges" validate:"required"`
}

// BoardService is the board repository: it validates, canonicalizes and
// persists boards through a DocumentStore and reports save progress.
type BoardService struct {
	store    domain.DocumentStore
	emitter  EventEmitter
	codec    *codec.Codec
	resolver *importer.Resolver
	status   *SaveStatusTracker
	validate *validator.Validate
	logger   *zap.Logger
	now      func() time.Time
	newID    func() (string, error)

	exportedBy   string
	statusRevert time.Duration
	codecSet     bool
}

// Option configures a BoardService.
type Option func(*BoardService)

// WithClock replaces time.Now for timestamps and conflict suffixes.
func WithClock(now func() time.Time) Option {
	return func(s *BoardService) { s.now = now }
}

// WithIDGenerator replaces the board id generator.
func WithIDGenerator(gen func() (string, error)) Option {
	return func(s *BoardService) { s.newID = gen }
}

func WithLogger(logger *zap.Logger) Option {
	return func(s *BoardService) { s.logger = logger }
}

// WithCodec supplies a preconfigured codec; it takes precedence over
// WithExportedBy.
func WithCodec(c *codec.Codec) Option {
	return func(s *BoardService) {
		s.codec = c
		s.codecSet = true
	}
}

func WithExportedBy(name string) Option {
	return func(s *BoardService) { s.exportedBy = name }
}

// WithStatusRevert sets how long Success/Error stay visible before Idle.
func WithStatusRevert(d time.Duration) Option {
	return func(s *BoardService) { s.statusRevert = d }
}

// NewBoardID returns "board-" followed by a time-ordered UUIDv7.
func NewBoardID() (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", fmt.Errorf("generate board id: %w", err)
	}
	return "board-" + id.String(), nil
}

// NewBoardService creates a BoardService. The store is not initialized here;
// call Init before first use.
func NewBoardService(store domain.DocumentStore, emitter EventEmitter, opts ...Option) *BoardService {
	s := &BoardService{
		store:      store,
		emitter:    emitter,
		logger:     zap.NewNop(),
		now:        time.Now,
		newID:      NewBoardID,
		exportedBy: codec.DefaultExportedBy,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.emitter == nil {
		s.emitter = NopEmitter{}
	}
	if !s.codecSet {
		s.codec = codec.New(codec.WithClock(s.now), codec.WithExportedBy(s.exportedBy))
	}
	s.resolver = importer.NewResolver(s.now)
	s.status = NewSaveStatusTracker(s.statusRevert, s.emitter, s.now)

	s.validate = validator.New()
	s.validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})
	return s
}

// Init prepares the underlying store.
func (s *BoardService) Init(ctx context.Context) error {
	return s.store.Init(ctx)
}

// Close cancels the pending save-status revert. The store is owned by the caller.
func (s *BoardService) Close() {
	s.status.Stop()
}

// SaveStatus returns the current save-status snapshot.
func (s *BoardService) SaveStatus() SaveStatusSnapshot {
	return s.status.Status()
}

// ── Save / Load ──────────────────────────────────────────────

// Save validates req, strips unpersistable node data and writes the board.
// Updating an existing id keeps its createdAt. Returns the board id.
func (s *BoardService) Save(ctx context.Context, req SaveRequest) (string, error) {
	s.status.Begin(ctx, req.BoardID)

	id, board, err := s.save(ctx, req)
	if err != nil {
		s.status.Fail(ctx, req.BoardID, err)
		s.logger.Warn("save board failed", zap.String("board_id", req.BoardID), zap.Error(err))
		return "", err
	}

	s.status.Succeed(ctx, id)
	s.emitter.Emit(ctx, EventBoardSaved, board.Summary())
	s.logger.Debug("board saved",
		zap.String("board_id", id),
		zap.Int("nodes", board.Metadata.NodeCount),
		zap.Int("edges", board.Metadata.EdgeCount))
	return id, nil
}

func (s *BoardService) save(ctx context.Context, req SaveRequest) (string, *domain.Board, error) {
	if err := s.validateSave(&req); err != nil {
		return "", nil, err
	}

	doc := s.codec.Canonicalize(SanitizeNodes(req.Nodes), req.Edges)
	if _, err := json.Marshal(doc); err != nil {
		return "", nil, &domain.ValidationError{Field: "nodes", Reason: "not serializable: " + err.Error()}
	}

	id := req.BoardID
	if id == "" {
		var err error
		if id, err = s.newID(); err != nil {
			return "", nil, err
		}
	}

	now := domain.FormatTimestamp(s.now())
	createdAt, updatedAt := now, now
	if req.BoardID != "" {
		existing, err := s.store.Get(ctx, id)
		if err != nil {
			return "", nil, err
		}
		if existing != nil {
			createdAt = existing.CreatedAt
			// a lagging clock must not move updatedAt backwards
			if existing.UpdatedAt > updatedAt {
				updatedAt = existing.UpdatedAt
			}
			if createdAt > updatedAt {
				updatedAt = createdAt
			}
		}
	}

	board := &domain.Board{
		BoardID:     id,
		Name:        req.Name,
		Description: req.Description,
		Version:     doc.Version,
		Timestamp:   doc.Timestamp,
		Nodes:       doc.Nodes,
		Edges:       doc.Edges,
		Metadata:    doc.Metadata,
		CreatedAt:   createdAt,
		UpdatedAt:   updatedAt,
	}
	body, err := codec.EncodeBoard(board)
	if err != nil {
		return "", nil, err
	}

	if err := s.store.Put(ctx, &domain.Document{
		BoardID:     id,
		Name:        board.Name,
		Description: board.Description,
		NodeCount:   board.Metadata.NodeCount,
		EdgeCount:   board.Metadata.EdgeCount,
		CreatedAt:   createdAt,
		UpdatedAt:   updatedAt,
		Body:        body,
	}); err != nil {
		return "", nil, err
	}
	return id, board, nil
}

func (s *BoardService) validateSave(req *SaveRequest) error {
	err := s.validate.Struct(req)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		return formatFieldError(verrs[0])
	}
	return &domain.ValidationError{Reason: err.Error()}
}

// formatFieldError turns the first validator failure into a ValidationError
// naming the JSON path, e.g. "nodes[2].id".
func formatFieldError(e validator.FieldError) error {
	field := e.Namespace()
	if i := strings.Index(field, "."); i >= 0 {
		field = field[i+1:]
	}

	var reason string
	switch e.Tag() {
	case "required":
		if e.Kind() == reflect.Slice {
			reason = "must be an array"
		} else {
			reason = "is required"
		}
	case "max":
		reason = fmt.Sprintf("must be at most %s characters", e.Param())
	case "unique":
		reason = fmt.Sprintf("must have unique %s values", strings.ToLower(e.Param()))
	default:
		reason = "is invalid"
	}
	return &domain.ValidationError{Field: field, Reason: reason}
}

// Load returns the board's graph, or nil if no board has that id. The stored
// body is re-validated; a corrupt record yields a SchemaError.
func (s *BoardService) Load(ctx context.Context, boardID string) (*domain.Graph, error) {
	doc, err := s.store.Get(ctx, boardID)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, nil
	}
	board, err := importer.ValidateBoard(doc.Body)
	if err != nil {
		s.logger.Warn("stored board failed validation", zap.String("board_id", boardID), zap.Error(err))
		return nil, err
	}
	g := &domain.Graph{Nodes: board.Nodes, Edges: board.Edges}
	if g.Nodes == nil {
		g.Nodes = []domain.Node{}
	}
	if g.Edges == nil {
		g.Edges = []domain.Edge{}
	}
	return g, nil
}

// GetBoard returns the full stored record, or nil if absent.
func (s *BoardService) GetBoard(ctx context.Context, boardID string) (*domain.Board, error) {
	doc, err := s.store.Get(ctx, boardID)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, nil
	}
	var b domain.Board
	if err := json.Unmarshal(doc.Body, &b); err != nil {
		return nil, &domain.SchemaError{Reason: "invalid format"}
	}
	return &b, nil
}

// ── Listing ──────────────────────────────────────────────────

// GetAllBoards returns the summary of every board.
func (s *BoardService) GetAllBoards(ctx context.Context) ([]domain.BoardListItem, error) {
	items, err := s.store.Summaries(ctx)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []domain.BoardListItem{}
	}
	return items, nil
}

// ListBoards returns summaries filtered and sorted by opts.
func (s *BoardService) ListBoards(ctx context.Context, opts query.Options) ([]domain.BoardListItem, error) {
	items, err := s.GetAllBoards(ctx)
	if err != nil {
		return nil, err
	}
	return query.Apply(items, opts), nil
}

// IsBoardNameExists reports whether another board already has exactly name.
// excludeBoardID, if set, is ignored so a board can keep its own name.
func (s *BoardService) IsBoardNameExists(ctx context.Context, name, excludeBoardID string) (bool, error) {
	items, err := s.store.Summaries(ctx)
	if err != nil {
		return false, err
	}
	for _, it := range items {
		if it.Name == name && it.BoardID != excludeBoardID {
			return true, nil
		}
	}
	return false, nil
}

// ── Delete / Cleanup ─────────────────────────────────────────

// DeleteBoard removes a board. Deleting an unknown id succeeds.
func (s *BoardService) DeleteBoard(ctx context.Context, boardID string) error {
	if err := s.store.Delete(ctx, boardID); err != nil {
		return err
	}
	s.emitter.Emit(ctx, EventBoardDeleted, boardID)
	return nil
}

// CleanupOldBoards deletes every board last updated more than daysOld days
// ago and returns how many were removed. Zero removes every board updated
// before now; negative values are rejected. Deletions are independent: on
// failure the boards already removed stay removed and their count is returned
// with the error.
func (s *BoardService) CleanupOldBoards(ctx context.Context, daysOld int) (int, error) {
	if daysOld < 0 {
		return 0, &domain.ValidationError{Field: "daysOld", Reason: "must not be negative"}
	}
	items, err := s.store.Summaries(ctx)
	if err != nil {
		return 0, err
	}

	cutoff := s.now().Add(-time.Duration(daysOld) * 24 * time.Hour)
	deleted := 0
	for _, it := range items {
		updated, err := domain.ParseTimestamp(it.UpdatedAt)
		if err != nil {
			s.logger.Warn("skipping board with unparseable updatedAt",
				zap.String("board_id", it.BoardID), zap.String("updated_at", it.UpdatedAt))
			continue
		}
		if !updated.Before(cutoff) {
			continue
		}
		if err := s.DeleteBoard(ctx, it.BoardID); err != nil {
			return deleted, fmt.Errorf("cleanup stopped after %d deletions: %w", deleted, err)
		}
		deleted++
	}
	s.logger.Info("cleanup finished", zap.Int("days_old", daysOld), zap.Int("deleted", deleted))
	return deleted, nil
}

// StorageUsage reports the backend's usage estimate, or nil if unknown.
func (s *BoardService) StorageUsage(ctx context.Context) (*domain.Usage, error) {
	return s.store.EstimateUsage(ctx)
}

// ── Export / Import ──────────────────────────────────────────

// ExportBoardAsJSON renders the board in the canonical export schema.
func (s *BoardService) ExportBoardAsJSON(ctx context.Context, boardID string) (string, error) {
	board, err := s.GetBoard(ctx, boardID)
	if err != nil {
		return "", err
	}
	if board == nil {
		return "", &domain.NotFoundError{ID: boardID}
	}
	out, err := codec.Encode(board.Export())
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// ImportBoardFromJSON validates text and saves it as a new board. It never
// overwrites an existing board.
func (s *BoardService) ImportBoardFromJSON(ctx context.Context, text, name, description string) (string, error) {
	doc, err := importer.Parse([]byte(text))
	if err != nil {
		return "", err
	}
	if err := importer.RequireUniqueIDs(doc.Nodes); err != nil {
		return "", err
	}
	id, err := s.Save(ctx, SaveRequest{
		Name:        name,
		Description: description,
		Nodes:       doc.Nodes,
		Edges:       doc.Edges,
	})
	if err != nil {
		return "", err
	}
	s.emitter.Emit(ctx, EventBoardImported, id)
	return id, nil
}

// MergeImport validates text and prepares its graph for insertion into a
// canvas that already holds existing: colliding node ids are renamed and
// edges follow the renames. Nothing is persisted.
func (s *BoardService) MergeImport(_ context.Context, text string, existing map[string]domain.Node) (*domain.Graph, error) {
	doc, err := importer.Parse([]byte(text))
	if err != nil {
		return nil, err
	}
	g := s.resolver.Merge(doc, existing)
	return &g, nil
}

// ResolveIDConflicts renames imported nodes that collide with existing.
func (s *BoardService) ResolveIDConflicts(imported []domain.Node, existing map[string]domain.Node) []domain.Node {
	return s.resolver.ResolveIDConflicts(imported, existing)
}
