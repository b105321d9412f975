// Fishbone - Supplier Coverage Aggregation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fishbone

package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/tomtom215/fishbone/internal/loader"
	"github.com/tomtom215/fishbone/internal/models"
)

// Stages returns the loaded journey structure.
func (h *Handler) Stages(w http.ResponseWriter, r *http.Request) {
	started := time.Now()
	snap := h.session.Snapshot()
	respondData(w, r, http.StatusOK, map[string]interface{}{
		"stages":  snap.Stages,
		"loading": snap.Loading.Stages,
		"error":   snap.Errors.Stages,
	}, started)
}

// Clients returns the selectable client roster.
func (h *Handler) Clients(w http.ResponseWriter, r *http.Request) {
	started := time.Now()
	snap := h.session.Snapshot()
	respondData(w, r, http.StatusOK, map[string]interface{}{
		"clients": snap.ClientOptions,
		"loading": snap.Loading.ClientOptions,
		"error":   snap.Errors.ClientOptions,
	}, started)
}

// Selection returns the selected clients and whether a change is pending.
func (h *Handler) Selection(w http.ResponseWriter, r *http.Request) {
	respondData(w, r, http.StatusOK, h.selectionStatus(), time.Time{})
}

// UpdateSelection replaces the selected clients. Changes are debounced
// unless the request sets immediate, in which case the pending selection is
// applied before responding.
func (h *Handler) UpdateSelection(w http.ResponseWriter, r *http.Request) {
	started := time.Now()

	var req models.SelectionRequest
	if err := decodeJSONBody(w, r, &req); err != nil {
		respondError(w, r, http.StatusBadRequest, codeInvalidJSON, "Request body must be a JSON object", nil)
		return
	}
	if apiErr := validateRequest(&req); apiErr != nil {
		respondAPIError(w, r, http.StatusBadRequest, apiErr)
		return
	}

	h.session.SelectClients(req.ClientIDs...)
	if req.Immediate {
		h.session.FlushSelection()
		respondData(w, r, http.StatusOK, h.selectionStatus(), started)
		return
	}
	respondData(w, r, http.StatusAccepted, h.selectionStatus(), started)
}

func (h *Handler) selectionStatus() models.SelectionStatus {
	selected := h.session.Selected()
	if selected == nil {
		selected = []string{}
	}
	return models.SelectionStatus{
		SelectedClients: selected,
		ActiveClient:    h.session.Active(),
		Pending:         h.session.SelectionPending(),
	}
}

// Fishbone returns the full session snapshot: assembled view, metrics,
// shape validation, loading flags and per-loader errors.
func (h *Handler) Fishbone(w http.ResponseWriter, r *http.Request) {
	started := time.Now()
	respondData(w, r, http.StatusOK, h.session.Snapshot(), started)
}

// FishboneMetrics returns only the derived coverage metrics.
func (h *Handler) FishboneMetrics(w http.ResponseWriter, r *http.Request) {
	started := time.Now()
	snap := h.session.Snapshot()
	respondData(w, r, http.StatusOK, snap.Metrics, started)
}

// Refresh invalidates cached data and reloads structure, roster and the
// selected clients.
func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	started := time.Now()
	ctx, cancel := h.requestContext(r.Context())
	defer cancel()

	if err := h.session.Refresh(ctx); err != nil {
		respondError(w, r, http.StatusBadGateway, codeLoadFailed, "Refresh failed: "+err.Error(), err)
		return
	}
	respondData(w, r, http.StatusOK, h.session.Snapshot(), started)
}

// LoadMore appends one mapping page of the active client. The page comes
// from the "page" query parameter or, failing that, a JSON body.
func (h *Handler) LoadMore(w http.ResponseWriter, r *http.Request) {
	started := time.Now()

	page, ok := getIntParam(r, "page", 0)
	if !ok {
		respondError(w, r, http.StatusBadRequest, codeValidation, "page must be an integer", nil)
		return
	}
	req := models.LoadMoreRequest{Page: page}
	if page == 0 && r.ContentLength != 0 {
		if err := decodeJSONBody(w, r, &req); err != nil {
			respondError(w, r, http.StatusBadRequest, codeInvalidJSON, "Request body must be a JSON object", nil)
			return
		}
	}
	if apiErr := validateRequest(&req); apiErr != nil {
		respondAPIError(w, r, http.StatusBadRequest, apiErr)
		return
	}

	ctx, cancel := h.requestContext(r.Context())
	defer cancel()

	err := h.session.LoadMore(ctx, req.Page)
	switch {
	case errors.Is(err, loader.ErrNoActiveClient):
		respondError(w, r, http.StatusConflict, codeNoActiveClient, "Select a client before loading more mappings", nil)
		return
	case errors.Is(err, loader.ErrPageOutOfOrder):
		respondError(w, r, http.StatusBadRequest, codeValidation, err.Error(), nil)
		return
	case err != nil:
		respondError(w, r, http.StatusBadGateway, codeLoadFailed, "Loading mappings failed: "+err.Error(), err)
		return
	}

	snap := h.session.Snapshot()
	respondData(w, r, http.StatusOK, map[string]interface{}{
		"page":     snap.Page,
		"has_more": snap.HasMore,
		"mappings": len(snap.Mappings),
		"view":     snap.View,
	}, started)
}

// Stream upgrades to a websocket that receives a snapshot on connect and
// after every change.
func (h *Handler) Stream(w http.ResponseWriter, r *http.Request) {
	if h.stream == nil {
		respondError(w, r, http.StatusNotFound, codeNotFound, "Snapshot streaming is disabled", nil)
		return
	}
	h.stream.ServeWS(w, r)
}
