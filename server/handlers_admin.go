package server

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/trippop/gacha-reward-server/catalog"
	"github.com/trippop/gacha-reward-server/rarity"
)

type rarityRequest struct {
	Weights rarity.Weights `json:"weights"`
}

func (s *Server) handleAdminRarity(w http.ResponseWriter, r *http.Request) {
	var req rarityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || len(req.Weights) == 0 {
		writeError(w, http.StatusBadRequest, "weights required", "INVALID_BODY")
		return
	}
	if err := s.roller.Update(r.Context(), req.Weights); err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), "INVALID_WEIGHTS")
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

type globalExclusionRequest struct {
	PlaceName string `json:"placeName"`
	Country   string `json:"country"`
	City      string `json:"city"`
	District  string `json:"district"`
}

func (s *Server) handleAdminGlobalExclusion(w http.ResponseWriter, r *http.Request) {
	var req globalExclusionRequest
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
	if err := s.ledger.GlobalExclude(r.Context(), req.PlaceName, loc); err != nil {
		writeStoreFault(w, "global exclusion", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

type merchantCodeRequest struct {
	MerchantID int64  `json:"merchantId"`
	Code       string `json:"code"`
}

// handleAdminMerchantCode issues the merchant's code of the day. The code
// stops validating at the next local midnight regardless of issue time.
func (s *Server) handleAdminMerchantCode(w http.ResponseWriter, r *http.Request) {
	var req merchantCodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body", "INVALID_BODY")
		return
	}
	req.Code = strings.TrimSpace(req.Code)
	if req.MerchantID <= 0 || req.Code == "" {
		writeError(w, http.StatusBadRequest, "merchantId and code are required", "INVALID_BODY")
		return
	}
	issuedAt := s.now()
	if err := s.codes.SetCode(r.Context(), req.MerchantID, req.Code, issuedAt); err != nil {
		writeStoreFault(w, "merchant code", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":  true,
		"issuedAt": issuedAt,
	})
}
