package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"attesto/internal/consent"
	"attesto/internal/record"
	"attesto/internal/subject"
	pkgerrors "attesto/pkg/domain-errors"
	"attesto/pkg/platform/httputil"
	"attesto/pkg/requestcontext"
)

// Orchestrator is the slice of subject operations the HTTP layer needs.
type Orchestrator interface {
	Execute(ctx context.Context, actorID string, op subject.Operation) (subject.Result, error)
	CancelConsentRequest(ctx context.Context, actorID, recordID, subjectID string) error
	CancelRemovalRequest(ctx context.Context, actorID, recordID, subjectID string) error
	RecordView(ctx context.Context, actorID, recordID string) (subject.RecordView, error)
	Inbox(ctx context.Context, actorID string) (subject.Inbox, error)
}

// Handler wires the subject lifecycle endpoints to the orchestrator.
type Handler struct {
	orchestrator Orchestrator
	flows        *subject.FlowRegistry
	logger       *slog.Logger
}

func New(orchestrator Orchestrator, flows *subject.FlowRegistry, logger *slog.Logger) *Handler {
	return &Handler{
		orchestrator: orchestrator,
		flows:        flows,
		logger:       logger,
	}
}

//go:generate mockgen -source=handler.go -destination=mocks/orchestrator-mocks.go -package=mocks Orchestrator

// Register mounts the subject endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Route("/records/{recordID}/subjects", func(r chi.Router) {
		r.Get("/", h.HandleRecordView)
		r.Post("/self", h.HandleAddSelf)
		r.Delete("/self", h.HandleRemoveSelf)
		r.Post("/invitations", h.HandleInvite)
		r.Post("/requests/accept", h.HandleAccept)
		r.Post("/requests/reject", h.HandleReject)
		r.Delete("/{subjectID}/consent-requests", h.HandleCancelConsentRequest)
		r.Post("/{subjectID}/removal-requests", h.HandleRequestRemoval)
		r.Delete("/{subjectID}/removal-requests", h.HandleCancelRemovalRequest)
		r.Post("/{subjectID}/rejection-response", h.HandleRespondToRejection)
	})

	r.Get("/me/requests", h.HandleInbox)

	r.Route("/me/subject-flow", func(r chi.Router) {
		r.Get("/", h.HandleFlowState)
		r.Post("/begin", h.flowStep(beginStep))
		r.Post("/search", h.flowStep(searchStep))
		r.Post("/select", h.HandleFlowSelect)
		r.Post("/confirm", h.HandleFlowConfirm)
		r.Post("/cancel", h.HandleFlowCancel)
		r.Post("/reset", h.flowStep(resetStep))
	})
}

func (h *Handler) HandleAddSelf(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actorID, ok := h.requireActor(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[AddSelfRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}

	h.execute(w, r, actorID, subject.AddSelf{
		RecordID:   chi.URLParam(r, "recordID"),
		Role:       record.Role(req.Role),
		RecordHash: req.RecordHash,
	})
}

func (h *Handler) HandleInvite(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actorID, ok := h.requireActor(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[InviteRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	if req.SubjectID == "" {
		httputil.WriteError(w, pkgerrors.New(pkgerrors.CodeBadRequest, "subject_id is required"))
		return
	}

	h.execute(w, r, actorID, subject.InviteOther{
		RecordID:    chi.URLParam(r, "recordID"),
		SubjectID:   req.SubjectID,
		Role:        record.Role(req.Role),
		Title:       req.Title,
		GrantAccess: req.GrantAccess,
	})
}

func (h *Handler) HandleAccept(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actorID, ok := h.requireActor(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[AcceptRequestBody](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}

	h.execute(w, r, actorID, subject.AcceptRequest{
		RecordID:   chi.URLParam(r, "recordID"),
		RecordHash: req.RecordHash,
	})
}

func (h *Handler) HandleReject(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actorID, ok := h.requireActor(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[RejectRequestBody](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}

	h.execute(w, r, actorID, subject.RejectRequest{
		RecordID: chi.URLParam(r, "recordID"),
		Reason:   consent.RejectionReason(req.Reason),
	})
}

func (h *Handler) HandleRemoveSelf(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actorID, ok := h.requireActor(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[RemoveSelfRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}

	h.execute(w, r, actorID, subject.RemoveSelf{
		RecordID: chi.URLParam(r, "recordID"),
		Reason:   consent.RejectionReason(req.Reason),
	})
}

func (h *Handler) HandleRequestRemoval(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actorID, ok := h.requireActor(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[RemovalRequestBody](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}

	h.execute(w, r, actorID, subject.RemoveByOwner{
		RecordID:  chi.URLParam(r, "recordID"),
		SubjectID: chi.URLParam(r, "subjectID"),
		Reason:    req.Reason,
	})
}

func (h *Handler) HandleRespondToRejection(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actorID, ok := h.requireActor(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[RejectionResponseBody](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}

	h.execute(w, r, actorID, subject.RespondToRejection{
		RecordID:  chi.URLParam(r, "recordID"),
		SubjectID: chi.URLParam(r, "subjectID"),
		Decision:  consent.CreatorDecision(req.Decision),
	})
}

func (h *Handler) HandleCancelConsentRequest(w http.ResponseWriter, r *http.Request) {
	actorID, ok := h.requireActor(w, r)
	if !ok {
		return
	}
	err := h.orchestrator.CancelConsentRequest(r.Context(), actorID,
		chi.URLParam(r, "recordID"), chi.URLParam(r, "subjectID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) HandleCancelRemovalRequest(w http.ResponseWriter, r *http.Request) {
	actorID, ok := h.requireActor(w, r)
	if !ok {
		return
	}
	err := h.orchestrator.CancelRemovalRequest(r.Context(), actorID,
		chi.URLParam(r, "recordID"), chi.URLParam(r, "subjectID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) HandleRecordView(w http.ResponseWriter, r *http.Request) {
	actorID, ok := h.requireActor(w, r)
	if !ok {
		return
	}
	view, err := h.orchestrator.RecordView(r.Context(), actorID, chi.URLParam(r, "recordID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, fromRecordView(view))
}

func (h *Handler) HandleInbox(w http.ResponseWriter, r *http.Request) {
	actorID, ok := h.requireActor(w, r)
	if !ok {
		return
	}
	inbox, err := h.orchestrator.Inbox(r.Context(), actorID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, fromInbox(inbox))
}

func (h *Handler) HandleFlowState(w http.ResponseWriter, r *http.Request) {
	actorID, ok := h.requireActor(w, r)
	if !ok {
		return
	}
	h.writeFlow(w, h.flows.For(actorID))
}

type flowStepFn func(f *subject.Flow) error

func beginStep(f *subject.Flow) error  { return f.Begin() }
func searchStep(f *subject.Flow) error { return f.Search() }
func resetStep(f *subject.Flow) error  { return f.Reset() }

func (h *Handler) flowStep(step flowStepFn) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actorID, ok := h.requireActor(w, r)
		if !ok {
			return
		}
		f := h.flows.For(actorID)
		if err := step(f); err != nil {
			httputil.WriteError(w, err)
			return
		}
		h.flows.Release(actorID)
		h.writeFlow(w, f)
	}
}

func (h *Handler) HandleFlowSelect(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actorID, ok := h.requireActor(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[SelectFlowRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	op, ok := req.toOperation()
	if !ok {
		httputil.WriteError(w, pkgerrors.New(pkgerrors.CodeBadRequest, "unknown operation"))
		return
	}

	f := h.flows.For(actorID)
	if err := f.Select(ctx, actorID, op); err != nil {
		httputil.WriteError(w, err)
		return
	}
	h.writeFlow(w, f)
}

func (h *Handler) HandleFlowConfirm(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actorID, ok := h.requireActor(w, r)
	if !ok {
		return
	}

	f := h.flows.For(actorID)
	start := time.Now()
	result, err := f.Confirm(ctx, actorID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "subject flow completed",
		"request_id", requestcontext.RequestID(ctx),
		"actor_id", actorID,
		"operation", result.Operation,
		"anchored", result.Anchored,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	h.writeFlow(w, f)
}

func (h *Handler) HandleFlowCancel(w http.ResponseWriter, r *http.Request) {
	actorID, ok := h.requireActor(w, r)
	if !ok {
		return
	}
	f := h.flows.For(actorID)
	if err := f.Cancel(); err != nil {
		httputil.WriteError(w, err)
		return
	}
	h.flows.Release(actorID)
	h.writeFlow(w, f)
}

// execute runs op and writes the outcome, logging failures with request
// correlation.
func (h *Handler) execute(w http.ResponseWriter, r *http.Request, actorID string, op subject.Operation) {
	ctx := r.Context()
	start := time.Now()

	result, err := h.orchestrator.Execute(ctx, actorID, op)
	if err != nil {
		h.logger.ErrorContext(ctx, "subject operation failed",
			"request_id", requestcontext.RequestID(ctx),
			"actor_id", actorID,
			"operation", op.Name(),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "subject operation completed",
		"request_id", requestcontext.RequestID(ctx),
		"actor_id", actorID,
		"operation", result.Operation,
		"anchored", result.Anchored,
		"sync_pending", result.SyncPending,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	httputil.WriteJSON(w, http.StatusOK, fromResult(result))
}

func (h *Handler) requireActor(w http.ResponseWriter, r *http.Request) (string, bool) {
	actorID := requestcontext.ActorID(r.Context())
	if actorID == "" {
		httputil.WriteError(w, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required"))
		return "", false
	}
	return actorID, true
}

func (h *Handler) writeFlow(w http.ResponseWriter, f *subject.Flow) {
	resp := FlowResponse{Phase: string(f.Phase())}
	if err := f.Err(); err != nil {
		resp.Error = err.Error()
	}
	if res := f.Result(); res != nil {
		r := fromResult(*res)
		resp.Result = &r
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}
