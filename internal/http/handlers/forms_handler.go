package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/diagnosis/formrelay/internal/domain"
	"github.com/diagnosis/formrelay/internal/http/middleware"
	"github.com/diagnosis/formrelay/internal/http/response"
	"github.com/diagnosis/formrelay/internal/submission"
	"github.com/diagnosis/formrelay/pkg/logger"
)

// Submitter runs one attempt for a form type.
type Submitter interface {
	FormType() domain.FormType
	Submit(ctx context.Context, client string, view submission.FormView) submission.Result
	Success() submission.Success
}

type FormsHandler struct {
	forms   map[domain.FormType]Submitter
	maxBody int64
}

func NewFormsHandler(maxBody int64, forms ...Submitter) *FormsHandler {
	h := &FormsHandler{forms: make(map[domain.FormType]Submitter, len(forms)), maxBody: maxBody}
	for _, f := range forms {
		h.forms[f.FormType()] = f
	}
	return h
}

func (h *FormsHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/{formType}", h.submit)
	return r
}

type submittedResponse struct {
	Status string `json:"status"`
	*submission.Success
}

func (h *FormsHandler) submit(w http.ResponseWriter, r *http.Request) {
	ft, ok := domain.ParseFormType(chi.URLParam(r, "formType"))
	if !ok {
		response.NotFound(w, "unknown form")
		return
	}
	ctrl, ok := h.forms[ft]
	if !ok {
		response.NotFound(w, "unknown form")
		return
	}

	view, err := newRequestView(w, r, h.maxBody)
	if err != nil {
		if errors.Is(err, errBodyTooLarge) {
			response.TooLarge(w, "form is too large")
			return
		}
		logger.WarnContext(r.Context(), "Unreadable form body", "error", err)
		response.BadRequest(w, "could not read form")
		return
	}

	client := middleware.ClientFromContext(r.Context())
	if client == "" {
		client = r.RemoteAddr
	}

	res := ctrl.Submit(r.Context(), client, view)
	writeResult(w, res, view, ctrl)
}

func writeResult(w http.ResponseWriter, res submission.Result, view *requestView, ctrl Submitter) {
	switch res.State {
	case submission.StateSucceeded:
		response.WriteJSON(w, http.StatusOK, submittedResponse{Status: "submitted", Success: view.success})
		return
	case submission.StateFailed:
		response.SubmissionFailed(w, res.Message)
		return
	}

	switch res.Reason {
	case submission.ReasonHoneypot:
		// Same body as an accepted submission so the sender cannot tell.
		success := ctrl.Success()
		response.WriteJSON(w, http.StatusOK, submittedResponse{Status: "submitted", Success: &success})
	case submission.ReasonConsent:
		response.ConsentRequired(w, res.Message)
	case submission.ReasonRateLimited:
		response.RateLimit(w, res.Message)
	case submission.ReasonInvalid:
		response.InvalidField(w, res.Field, res.Message)
	default:
		response.InternalError(w, "unexpected submission state")
	}
}
