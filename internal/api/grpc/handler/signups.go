package handler

import (
	"context"

	"github.com/google/uuid"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/latoalla/roster-server/internal/api/grpc/rosterapi"
	"github.com/latoalla/roster-server/internal/logger"
	"github.com/latoalla/roster-server/internal/model"
	"github.com/latoalla/roster-server/internal/roster"
	"github.com/latoalla/roster-server/internal/service"
)

// SignupService creates signups.
type SignupService interface {
	Submit(ctx context.Context, identity model.Identity, candidate model.Candidate) (uuid.UUID, error)
}

// EditSessions hands out the editor of an identity.
type EditSessions interface {
	For(identity model.Identity) *service.Editor
}

// RosterView projects the mirror for a category.
type RosterView interface {
	Roster(category model.Category) roster.Roster
	Board(category model.Category) *roster.Board
}

// Notifier signals mirror changes.
type Notifier interface {
	Notify() (<-chan struct{}, func())
}

// ExportService stores and reads roster exports.
type ExportService interface {
	ExportRoster(ctx context.Context, category model.Category) (string, error)
	FetchExport(ctx context.Context, key string) (service.ExportDocument, error)
}

var _ rosterapi.SignupsServer = (*Signups)(nil)

// Signups handles gRPC endpoints of the roster.v1.Signups service.
type Signups struct {
	signups        SignupService
	editors        EditSessions
	view           RosterView
	notifier       Notifier
	exports        ExportService
	contextManager model.ContextManager
	logger         *logger.Logger
}

// NewSignups creates a new Signups handler. exports may be nil when no
// object storage is configured.
func NewSignups(
	signups SignupService,
	editors EditSessions,
	view RosterView,
	notifier Notifier,
	exports ExportService,
	contextManager model.ContextManager,
	logger *logger.Logger,
) *Signups {
	return &Signups{
		signups:        signups,
		editors:        editors,
		view:           view,
		notifier:       notifier,
		exports:        exports,
		contextManager: contextManager,
		logger:         logger,
	}
}

// Submit creates a signup for the caller.
func (h *Signups) Submit(ctx context.Context, req *rosterapi.SubmitRequest) (*rosterapi.SubmitResponse, error) {
	identity, err := h.identity(ctx)
	if err != nil {
		return nil, err
	}

	h.logger.Debug("Signups handler: processing submit request",
		"owner_id", identity.OwnerID,
		"date", req.Date,
		"category", req.Category)

	id, err := h.signups.Submit(ctx, identity, model.Candidate{
		Date:     req.Date,
		Category: model.Category(req.Category),
		Meals:    convertMeals(req.Meals),
		Adults:   req.Adults,
		Children: req.Children,
	})
	if err != nil {
		return nil, handleError(err)
	}

	return &rosterapi.SubmitResponse{ID: id.String()}, nil
}

// BeginEdit opens an edit buffer on one of the caller's signups.
func (h *Signups) BeginEdit(ctx context.Context, req *rosterapi.SignupRequest) (*rosterapi.EditBuffer, error) {
	editor, id, err := h.editorFor(ctx, req.ID)
	if err != nil {
		return nil, err
	}

	buf, err := editor.BeginEdit(id)
	if err != nil {
		return nil, handleError(err)
	}
	return convertBuffer(buf), nil
}

// UpdateField changes one buffered field.
func (h *Signups) UpdateField(ctx context.Context, req *rosterapi.UpdateFieldRequest) (*rosterapi.EditBuffer, error) {
	editor, id, err := h.editorFor(ctx, req.ID)
	if err != nil {
		return nil, err
	}

	buf, err := editor.UpdateField(id, req.Field, req.Value)
	if err != nil {
		return nil, handleError(err)
	}
	return convertBuffer(buf), nil
}

// CommitEdit writes the buffered fields.
func (h *Signups) CommitEdit(ctx context.Context, req *rosterapi.SignupRequest) (*rosterapi.Empty, error) {
	editor, id, err := h.editorFor(ctx, req.ID)
	if err != nil {
		return nil, err
	}

	if err := editor.Commit(ctx, id); err != nil {
		h.logger.Info("Signups handler: commit rejected",
			"id", id,
			"error", err.Error())
		return nil, handleError(err)
	}
	return &rosterapi.Empty{}, nil
}

// CancelEdit discards the buffer.
func (h *Signups) CancelEdit(ctx context.Context, req *rosterapi.SignupRequest) (*rosterapi.Empty, error) {
	editor, id, err := h.editorFor(ctx, req.ID)
	if err != nil {
		return nil, err
	}

	editor.Cancel(id)
	return &rosterapi.Empty{}, nil
}

// Delete removes one of the caller's signups.
func (h *Signups) Delete(ctx context.Context, req *rosterapi.SignupRequest) (*rosterapi.Empty, error) {
	editor, id, err := h.editorFor(ctx, req.ID)
	if err != nil {
		return nil, err
	}

	if err := editor.Delete(ctx, id); err != nil {
		h.logger.Info("Signups handler: delete rejected",
			"id", id,
			"error", err.Error())
		return nil, handleError(err)
	}
	return &rosterapi.Empty{}, nil
}

// GetRoster returns the current roster of a category.
func (h *Signups) GetRoster(ctx context.Context, req *rosterapi.RosterRequest) (*rosterapi.Roster, error) {
	identity, err := h.identity(ctx)
	if err != nil {
		return nil, err
	}

	category, err := parseCategory(req.Category)
	if err != nil {
		return nil, err
	}

	return convertRoster(h.view.Roster(category), identity), nil
}

// WatchRoster sends the roster of a category now and after every change
// until the client goes away.
func (h *Signups) WatchRoster(req *rosterapi.RosterRequest, stream rosterapi.Signups_WatchRosterServer) error {
	ctx := stream.Context()

	identity, err := h.identity(ctx)
	if err != nil {
		return err
	}

	category, err := parseCategory(req.Category)
	if err != nil {
		return err
	}

	changes, stop := h.notifier.Notify()
	defer stop()

	board := h.view.Board(category)
	last := board.Current()
	if err := stream.Send(convertRoster(last, identity)); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-changes:
			current := board.Current()
			if current.Version == last.Version && current.Stale == last.Stale {
				continue
			}
			if err := stream.Send(convertRoster(current, identity)); err != nil {
				h.logger.Debug("Signups handler: watch stream closed", "error", err.Error())
				return err
			}
			last = current
		}
	}
}

// ExportRoster writes the roster of a category to object storage.
func (h *Signups) ExportRoster(ctx context.Context, req *rosterapi.RosterRequest) (*rosterapi.ExportResponse, error) {
	if _, err := h.identity(ctx); err != nil {
		return nil, err
	}
	if h.exports == nil {
		return nil, status.Error(codes.FailedPrecondition, "roster export is not configured")
	}

	category, err := parseCategory(req.Category)
	if err != nil {
		return nil, err
	}

	key, err := h.exports.ExportRoster(ctx, category)
	if err != nil {
		return nil, handleError(err)
	}
	return &rosterapi.ExportResponse{Key: key}, nil
}

// FetchExport reads a previously exported roster.
func (h *Signups) FetchExport(ctx context.Context, req *rosterapi.FetchExportRequest) (*rosterapi.ExportDocument, error) {
	identity, err := h.identity(ctx)
	if err != nil {
		return nil, err
	}
	if h.exports == nil {
		return nil, status.Error(codes.FailedPrecondition, "roster export is not configured")
	}

	doc, err := h.exports.FetchExport(ctx, req.Key)
	if err != nil {
		return nil, handleError(err)
	}
	return &rosterapi.ExportDocument{
		ExportedAt: doc.ExportedAt.Unix(),
		Roster:     *convertRoster(doc.Roster, identity),
	}, nil
}

func (h *Signups) identity(ctx context.Context) (model.Identity, error) {
	identity, ok := h.contextManager.GetIdentityFromContext(ctx)
	if !ok || identity.Anonymous() {
		return model.Identity{}, status.Error(codes.Unauthenticated, model.ErrUnauthenticated.Error())
	}
	return identity, nil
}

func (h *Signups) editorFor(ctx context.Context, rawID string) (*service.Editor, uuid.UUID, error) {
	identity, err := h.identity(ctx)
	if err != nil {
		return nil, uuid.Nil, err
	}

	id, err := uuid.Parse(rawID)
	if err != nil {
		return nil, uuid.Nil, status.Error(codes.InvalidArgument, "invalid signup id")
	}

	return h.editors.For(identity), id, nil
}

func parseCategory(raw string) (model.Category, error) {
	category, ok := model.ParseCategory(raw)
	if !ok {
		return "", handleError(model.NewValidationError("category", "must be one of: primary, secondary"))
	}
	return category, nil
}
