// Package api exposes the engine over REST and WebSocket. It is a thin
// adapter: validation and all matching semantics live in pkg/engine.
package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gorilla/mux"
	"github.com/rs/cors"

	"github.com/uhyunpark/darkpool/pkg/engine"
	"github.com/uhyunpark/darkpool/pkg/events"
)

// ExecutionHistory is the optional per-token history backend (the pebble
// store implements it).
type ExecutionHistory interface {
	RecentByToken(token common.Address, limit int) ([]engine.Execution, error)
}

// Server handles REST API and WebSocket connections
type Server struct {
	eng     *engine.Engine
	history ExecutionHistory // may be nil
	router  *mux.Router
	hub     *Hub
}

// NewServer creates a new API server
func NewServer(eng *engine.Engine, history ExecutionHistory) *Server {
	s := &Server{
		eng:     eng,
		history: history,
		router:  mux.NewRouter(),
		hub:     NewHub(),
	}
	s.setupRoutes()
	return s
}

// SetEngine wires the engine after construction. The server's Publisher
// must exist before the engine does, so wiring is two-phase.
func (s *Server) SetEngine(eng *engine.Engine) { s.eng = eng }

func (s *Server) setupRoutes() {
	api := s.router.PathPrefix("/api/v1").Subrouter()

	// Order lifecycle
	api.HandleFunc("/orders", s.handleSubmitOrder).Methods("POST")
	api.HandleFunc("/orders/cancel", s.handleCancelOrder).Methods("POST")
	api.HandleFunc("/orders/{nullifier}", s.handleOrderStatus).Methods("GET")

	// Anonymized market data
	api.HandleFunc("/stats", s.handleStats).Methods("GET")
	api.HandleFunc("/tokens/{token}/executions", s.handleRecentExecutions).Methods("GET")

	// WebSocket endpoint
	s.router.HandleFunc("/ws", s.handleWebSocket)

	// Health check
	s.router.HandleFunc("/health", s.handleHealth).Methods("GET")
}

// Publisher returns an events.Publisher that forwards executions to
// websocket subscribers of the matching channel.
func (s *Server) Publisher() events.Publisher { return hubPublisher{hub: s.hub} }

type hubPublisher struct{ hub *Hub }

func (p hubPublisher) Publish(topic string, ev events.Execution) {
	p.hub.BroadcastToChannel(topic, ExecutionUpdate{
		Type:      "execution",
		Token:     ev.Token,
		Price:     ev.Price,
		Amount:    ev.Amount,
		Timestamp: ev.Timestamp,
	})
}

// Start starts the API server
func (s *Server) Start(addr string) error {
	go s.hub.Run()

	c := cors.New(cors.Options{
		AllowedOrigins:   []string{"http://localhost:3000", "http://localhost:3001"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: true,
	})
	handler := c.Handler(s.router)

	log.Printf("[api] server starting on %s", addr)
	return http.ListenAndServe(addr, handler)
}

// Handler exposes the routed handler, for tests.
func (s *Server) Handler() http.Handler {
	go s.hub.Run()
	return s.router
}

// ==============================
// REST Handlers
// ==============================

func (s *Server) handleSubmitOrder(w http.ResponseWriter, r *http.Request) {
	var req SubmitOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	rcpt, err := s.eng.Submit(engine.SubmitRequest{
		Token:            req.Token,
		EncryptedPayload: req.EncryptedPayload,
		Commitment:       req.Commitment,
		Nullifier:        req.Nullifier,
		EncryptedSide:    req.EncryptedSide,
	})
	if err != nil {
		if errors.Is(err, engine.ErrInvalidOrder) {
			respondError(w, http.StatusBadRequest, "order rejected", err.Error())
			return
		}
		respondError(w, http.StatusInternalServerError, "submit failed", err.Error())
		return
	}

	respondJSON(w, SubmitOrderResponse{
		Status:      "pending",
		OrderID:     rcpt.OrderID,
		Commitment:  rcpt.Commitment,
		NextCycleAt: rcpt.NextCycleAt.UnixMilli(),
	})
}

func (s *Server) handleCancelOrder(w http.ResponseWriter, r *http.Request) {
	var req CancelOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}
	if req.Nullifier == (common.Hash{}) || req.Commitment == (common.Hash{}) {
		respondError(w, http.StatusBadRequest, "missing nullifier or commitment", "")
		return
	}

	if err := s.eng.Cancel(req.Nullifier, req.Commitment); err != nil {
		respondError(w, http.StatusNotFound, "no cancellable order", err.Error())
		return
	}
	respondJSON(w, map[string]string{"status": "cancelled"})
}

func (s *Server) handleOrderStatus(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	raw := vars["nullifier"]
	if len(raw) != 66 || raw[:2] != "0x" {
		respondError(w, http.StatusBadRequest, "invalid nullifier", "expected 0x-prefixed 32-byte hex")
		return
	}
	nullifier := common.HexToHash(raw)

	status, ex, err := s.eng.StatusByNullifier(nullifier)
	if err != nil {
		if errors.Is(err, engine.ErrNotFound) {
			respondError(w, http.StatusNotFound, "unknown nullifier", "")
			return
		}
		respondError(w, http.StatusInternalServerError, "lookup failed", err.Error())
		return
	}

	resp := OrderStatusResponse{Status: status.String()}
	if ex != nil {
		resp.Execution = &ExecutionInfo{
			MatchID:        ex.MatchID,
			Token:          ex.Token,
			Price:          ex.Price,
			Amount:         ex.Amount,
			BuyCommitment:  ex.BuyCommitment,
			SellCommitment: ex.SellCommitment,
			TxID:           ex.TxID,
			SettledAt:      ex.SettledAt.UnixMilli(),
		}
	}
	respondJSON(w, resp)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, s.eng.AggregateStats())
}

func (s *Server) handleRecentExecutions(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		respondJSON(w, []ExecutionInfo{})
		return
	}
	vars := mux.Vars(r)
	if !common.IsHexAddress(vars["token"]) {
		respondError(w, http.StatusBadRequest, "invalid token address", "")
		return
	}
	token := common.HexToAddress(vars["token"])

	execs, err := s.history.RecentByToken(token, 50)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "history lookup failed", err.Error())
		return
	}
	out := make([]ExecutionInfo, len(execs))
	for i, ex := range execs {
		out[i] = ExecutionInfo{
			MatchID:        ex.MatchID,
			Token:          ex.Token,
			Price:          ex.Price,
			Amount:         ex.Amount,
			BuyCommitment:  ex.BuyCommitment,
			SellCommitment: ex.SellCommitment,
			TxID:           ex.TxID,
			SettledAt:      ex.SettledAt.UnixMilli(),
		}
	}
	respondJSON(w, out)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, map[string]string{"status": "ok"})
}

// ==============================
// Helper Functions
// ==============================

func respondJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, error string, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(ErrorResponse{
		Error:   error,
		Message: message,
	})
}
