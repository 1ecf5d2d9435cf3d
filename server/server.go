package server

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/google/logger"
	"github.com/google/uuid"

	"github.com/trippop/gacha-reward-server/config"
	"github.com/trippop/gacha-reward-server/draw"
	"github.com/trippop/gacha-reward-server/exclusion"
	"github.com/trippop/gacha-reward-server/inventory"
	"github.com/trippop/gacha-reward-server/rarity"
	"github.com/trippop/gacha-reward-server/redemption"
)

type Server struct {
	cfg      *config.Config
	draws    *draw.Service
	manager  *inventory.Manager
	protocol *redemption.Protocol
	roller   *rarity.Roller
	ledger   exclusion.Ledger
	codes    redemption.CodeStore
	now      func() time.Time
}

// Deps carries the wired collaborators. main decides whether they sit on
// Postgres or on the file-backed stores.
type Deps struct {
	Draws    *draw.Service
	Manager  *inventory.Manager
	Protocol *redemption.Protocol
	Roller   *rarity.Roller
	Ledger   exclusion.Ledger
	Codes    redemption.CodeStore
}

func New(cfg *config.Config, deps Deps) *Server {
	return &Server{
		cfg:      cfg,
		draws:    deps.Draws,
		manager:  deps.Manager,
		protocol: deps.Protocol,
		roller:   deps.Roller,
		ledger:   deps.Ledger,
		codes:    deps.Codes,
		now:      time.Now,
	}
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.health)
	mux.HandleFunc("POST /gacha/draw", s.handleDraw)
	mux.HandleFunc("POST /gacha/places/reject", s.handleRejectPlace)
	mux.HandleFunc("GET /gacha/inventory", s.handleInventoryList)
	mux.HandleFunc("GET /gacha/inventory/expiring", s.handleInventoryExpiring)
	mux.HandleFunc("POST /gacha/inventory/read", s.handleInventoryRead)
	mux.HandleFunc("POST /gacha/inventory/delete", s.handleInventoryDelete)
	mux.HandleFunc("GET /gacha/capacity", s.handleCapacity)
	mux.HandleFunc("POST /gacha/redeem", s.handleRedeem)
	mux.HandleFunc("POST /gacha/redeem/confirm", s.handleRedeemConfirm)
	// Admin: runtime tuning and merchant onboarding.
	mux.HandleFunc("POST /gacha/admin/rarity", s.handleAdminRarity)
	mux.HandleFunc("POST /gacha/admin/exclusions/global", s.handleAdminGlobalExclusion)
	mux.HandleFunc("POST /gacha/admin/merchant-code", s.handleAdminMerchantCode)
	return cors(requestLogger(mux))
}

func (s *Server) Run() error {
	port := s.cfg.Port
	if port <= 0 {
		port = 8081
	}
	addr := ":" + strconv.Itoa(port)
	logger.Infof("gacha listening on %s", addr)
	return http.ListenAndServe(addr, s.Handler())
}

func cors(h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-User-ID")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		h.ServeHTTP(w, r)
	})
}

// requestLogger logs method and path for each request (no body or secrets).
func requestLogger(h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		logger.Infof("gacha %s %s", r.Method, r.URL.Path)
		h.ServeHTTP(w, r)
	})
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "service": "gacha"})
}

// userID resolves the caller from the X-User-ID header. Authentication is
// the gateway's job; this service trusts the forwarded identity.
func userID(r *http.Request) (uuid.UUID, bool) {
	raw := r.Header.Get("X-User-ID")
	if raw == "" {
		return uuid.Nil, false
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
