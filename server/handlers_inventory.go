package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"github.com/trippop/gacha-reward-server/inventory"
)

type inventoryListResponse struct {
	Items  []inventory.Item `json:"items"`
	Unread int              `json:"unread"`
}

func (s *Server) handleInventoryList(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(r)
	if !ok {
		writeUnauthorized(w)
		return
	}
	// Lazy expiry: out-of-window items flip to expired when the owner looks.
	if _, err := s.manager.ExpireOutOfWindow(r.Context(), uid); err != nil {
		writeStoreFault(w, "inventory expire", err)
		return
	}
	items, unread, err := s.manager.List(r.Context(), uid)
	if err != nil {
		writeStoreFault(w, "inventory list", err)
		return
	}
	if items == nil {
		items = []inventory.Item{}
	}
	writeJSON(w, http.StatusOK, inventoryListResponse{Items: items, Unread: unread})
}

func (s *Server) handleInventoryExpiring(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(r)
	if !ok {
		writeUnauthorized(w)
		return
	}
	days := 3
	if d := r.URL.Query().Get("days"); d != "" {
		if v, err := strconv.Atoi(d); err == nil && v > 0 {
			days = v
		}
	}
	items, err := s.manager.ListExpiring(r.Context(), uid, days)
	if err != nil {
		writeStoreFault(w, "inventory expiring", err)
		return
	}
	if items == nil {
		items = []inventory.Item{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"items": items, "days": days})
}

type itemRequest struct {
	ItemID uuid.UUID `json:"itemId"`
}

func (s *Server) handleInventoryRead(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(r)
	if !ok {
		writeUnauthorized(w)
		return
	}
	var req itemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ItemID == uuid.Nil {
		writeError(w, http.StatusBadRequest, "itemId required", "INVALID_BODY")
		return
	}
	err := s.manager.MarkRead(r.Context(), req.ItemID, uid)
	if errors.Is(err, inventory.ErrNotFound) {
		writeError(w, http.StatusNotFound, "item not found", "ITEM_NOT_FOUND")
		return
	}
	if err != nil {
		writeStoreFault(w, "inventory read", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (s *Server) handleInventoryDelete(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(r)
	if !ok {
		writeUnauthorized(w)
		return
	}
	var req itemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ItemID == uuid.Nil {
		writeError(w, http.StatusBadRequest, "itemId required", "INVALID_BODY")
		return
	}
	// Deleting twice is fine; the second call is a no-op.
	if err := s.manager.SoftDelete(r.Context(), req.ItemID, uid); err != nil {
		writeStoreFault(w, "inventory delete", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (s *Server) handleCapacity(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(r)
	if !ok {
		writeUnauthorized(w)
		return
	}
	used, max, available, err := s.manager.Capacity(r.Context(), uid)
	if err != nil {
		writeStoreFault(w, "capacity", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{
		"used":      used,
		"max":       max,
		"available": available,
	})
}
