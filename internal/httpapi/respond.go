package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/ent0n29/matchwork/internal/bids"
	"github.com/ent0n29/matchwork/internal/creators"
	"github.com/ent0n29/matchwork/internal/projects"
	"github.com/ent0n29/matchwork/internal/reliability"
)

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

var errEmptyBody = errors.New("empty body")

func decodeJSON(r *http.Request, dst any) error {
	if r.Body == nil {
		return errEmptyBody
	}
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return errEmptyBody
		}
		return err
	}
	return nil
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, status int, code, msg string) {
	respondJSON(w, status, errorResponse{Error: msg, Code: code})
}

// respondDomainError maps service errors onto HTTP statuses. An exhausted
// retry budget is the one 5xx the domain produces: the dependency stayed
// down through every attempt.
func respondDomainError(w http.ResponseWriter, err error) {
	var exhausted *reliability.ExhaustedError
	if errors.As(err, &exhausted) {
		respondError(w, http.StatusServiceUnavailable, "upstream_unavailable", reliability.Message(err))
		return
	}

	switch {
	case errors.Is(err, projects.ErrNotOwner), errors.Is(err, bids.ErrNotOwner):
		respondError(w, http.StatusForbidden, "not_owner", reliability.Message(err))
		return
	case errors.Is(err, bids.ErrProjectNotOpen), errors.Is(err, bids.ErrNotPending):
		respondError(w, http.StatusConflict, "conflict", reliability.Message(err))
		return
	case errors.Is(err, projects.ErrNotFound), errors.Is(err, creators.ErrNotFound), errors.Is(err, bids.ErrNotFound):
		respondError(w, http.StatusNotFound, "not_found", reliability.Message(err))
		return
	}

	var remote *reliability.RemoteError
	if errors.As(err, &remote) {
		switch remote.Kind {
		case reliability.KindValidation:
			respondError(w, http.StatusBadRequest, "invalid_request", reliability.Message(err))
		case reliability.KindUnauthorized:
			respondError(w, http.StatusForbidden, "unauthorized", reliability.Message(err))
		case reliability.KindNotFound:
			respondError(w, http.StatusNotFound, "not_found", reliability.Message(err))
		case reliability.KindConflict:
			respondError(w, http.StatusConflict, "conflict", reliability.Message(err))
		default:
			respondError(w, http.StatusBadGateway, "upstream_error", reliability.Message(err))
		}
		return
	}

	respondError(w, http.StatusBadRequest, "invalid_request", reliability.Message(err))
}
