package server

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/google/uuid"
)

type redeemRequest struct {
	ItemID uuid.UUID `json:"itemId"`
	Code   string    `json:"code"`
}

// handleRedeem verifies a merchant code against an item. Business failures
// (wrong code, expired item, no code set) come back 200 with success=false
// and a code the client can render; only store faults are HTTP errors.
func (s *Server) handleRedeem(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(r)
	if !ok {
		writeUnauthorized(w)
		return
	}
	var req redeemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ItemID == uuid.Nil {
		writeError(w, http.StatusBadRequest, "itemId required", "INVALID_BODY")
		return
	}
	if strings.TrimSpace(req.Code) == "" {
		writeError(w, http.StatusBadRequest, "code required", "INVALID_BODY")
		return
	}
	res, err := s.protocol.Redeem(r.Context(), uid, req.ItemID, req.Code)
	if err != nil {
		writeStoreFault(w, "redeem", err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

type confirmRequest struct {
	RedemptionID uuid.UUID `json:"redemptionId"`
}

func (s *Server) handleRedeemConfirm(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(r)
	if !ok {
		writeUnauthorized(w)
		return
	}
	var req confirmRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.RedemptionID == uuid.Nil {
		writeError(w, http.StatusBadRequest, "redemptionId required", "INVALID_BODY")
		return
	}
	res, err := s.protocol.Confirm(r.Context(), uid, req.RedemptionID)
	if err != nil {
		writeStoreFault(w, "redeem confirm", err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}
