// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/pnlboard/pnlboard/internal/domain/model"
)

// maxUpdateBodyBytes bounds a single POST /updates payload.
const maxUpdateBodyBytes = 1 << 20

// UpdateDependencies defines the interface for update ingestion.
type UpdateDependencies interface {
	Enqueue(ctx context.Context, u model.PnlUpdate) bool
}

// updateRequest mirrors the wire schema for POST /updates.
type updateRequest struct {
	UpdateID string  `json:"update_id"`
	Wallet   string  `json:"wallet"`
	PnlUSD   float64 `json:"pnl_usd"`
}

func (u updateRequest) validate() error {
	if strings.TrimSpace(u.Wallet) == "" {
		return errors.New("missing wallet")
	}
	return nil
}

func (u updateRequest) toModel() model.PnlUpdate {
	return model.PnlUpdate{
		UpdateID: u.UpdateID,
		Wallet:   u.Wallet,
		PnlUSD:   u.PnlUSD,
	}
}

// UpdatesHandler handles PnL update submissions.
type UpdatesHandler struct {
	deps UpdateDependencies
}

// NewUpdatesHandler creates a new updates handler.
func NewUpdatesHandler(deps UpdateDependencies) *UpdatesHandler {
	return &UpdatesHandler{deps: deps}
}

// HandlePostUpdates handles POST /updates requests. The body is either a
// single update object or an array of them; every accepted update lands on
// all timeframes asynchronously.
func (h *UpdatesHandler) HandlePostUpdates(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxUpdateBodyBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", ErrBadRequest)
		return
	}

	var reqs []updateRequest
	if isJSONArray(body) {
		if err := json.Unmarshal(body, &reqs); err != nil {
			writeError(w, http.StatusBadRequest, "bad_request", ErrBadRequest)
			return
		}
	} else {
		var req updateRequest
		if err := json.Unmarshal(body, &req); err != nil {
			writeError(w, http.StatusBadRequest, "bad_request", ErrBadRequest)
			return
		}
		reqs = []updateRequest{req}
	}
	if len(reqs) == 0 {
		writeError(w, http.StatusBadRequest, "bad_request", errors.New("empty batch"))
		return
	}
	for _, req := range reqs {
		if err := req.validate(); err != nil {
			writeError(w, http.StatusBadRequest, "bad_request", err)
			return
		}
	}

	accepted := 0
	for _, req := range reqs {
		if h.deps.Enqueue(r.Context(), req.toModel()) {
			accepted++
		}
	}
	if accepted == 0 {
		writeError(w, http.StatusTooManyRequests, "backpressure", ErrBackpressure)
		return
	}

	writeJSON(w, http.StatusAccepted, ackResponse{
		Status:   "accepted",
		Accepted: accepted,
		Rejected: len(reqs) - accepted,
	})
}

func isJSONArray(body []byte) bool {
	trimmed := bytes.TrimLeft(body, " \t\r\n")
	return len(trimmed) > 0 && trimmed[0] == '['
}
