package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/trippop/gacha-reward-server/catalog"
	"github.com/trippop/gacha-reward-server/draw"
)

type drawRequest struct {
	Country  string `json:"country"`
	City     string `json:"city"`
	District string `json:"district"`
	Count    int    `json:"count"`
}

func (s *Server) handleDraw(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(r)
	if !ok {
		writeUnauthorized(w)
		return
	}
	var req drawRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body", "INVALID_BODY")
		return
	}
	req.Country = strings.TrimSpace(req.Country)
	req.City = strings.TrimSpace(req.City)
	if req.Country == "" || req.City == "" {
		writeError(w, http.StatusBadRequest, "country and city are required", "INVALID_LOCALE")
		return
	}
	loc := catalog.Locale{
		Country:  req.Country,
		City:     req.City,
		District: strings.TrimSpace(req.District),
	}

	res, err := s.draws.Draw(r.Context(), uid, loc, req.Count)
	if errors.Is(err, draw.ErrQuotaExceeded) {
		writeError(w, http.StatusTooManyRequests, "daily draw limit reached", "QUOTA_EXCEEDED")
		return
	}
	if err != nil {
		writeStoreFault(w, "draw", err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

type rejectPlaceRequest struct {
	PlaceName string `json:"placeName"`
	Country   string `json:"country"`
	City      string `json:"city"`
	District  string `json:"district"`
}

// handleRejectPlace records one penalty point against the place for this
// user. Enough rejections and the place stops surfacing in their draws.
func (s *Server) handleRejectPlace(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(r)
	if !ok {
		writeUnauthorized(w)
		return
	}
	var req rejectPlaceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body", "INVALID_BODY")
		return
	}
	req.PlaceName = strings.TrimSpace(req.PlaceName)
	if req.PlaceName == "" || req.Country == "" || req.City == "" {
		writeError(w, http.StatusBadRequest, "placeName, country and city are required", "INVALID_BODY")
		return
	}
	loc := catalog.Locale{Country: req.Country, City: req.City, District: req.District}
	if err := s.ledger.Penalize(r.Context(), uid, req.PlaceName, loc); err != nil {
		writeStoreFault(w, "reject place", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}
