// Package coordinator implements the distributed coordinator & scheduler
// (spec.md §4.7): an HTTP server instances register with, request slots
// from, and report results to, backed by a scheduler that generates slots
// from a declarative schedule and reassigns orphaned ones.
package coordinator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"newscrawl/internal/domain/entity"
)

// Server wires the Store and Scheduler to the coordinator wire protocol
// (spec.md §6).
type Server struct {
	store     *Store
	scheduler *Scheduler
	cfg       Config
	logger    *slog.Logger
	httpSrv   *http.Server
	limiter   *instanceRateLimiter
}

// NewServer builds a Server. Call Run to start serving and scheduling.
func NewServer(cfg Config, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	store := NewStore()
	return &Server{
		store:     store,
		scheduler: NewScheduler(store, cfg),
		cfg:       cfg,
		logger:    logger,
		limiter:   newInstanceRateLimiter(cfg.RateLimit, logger),
	}
}

// Handler builds the full middleware-wrapped mux. Exported so tests can
// drive it with httptest without going through Run's network listener.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /register", s.handleRegister)
	mux.HandleFunc("POST /heartbeat", s.handleHeartbeat)
	mux.HandleFunc("POST /slot/request", s.handleSlotRequest)
	mux.HandleFunc("POST /slot/report", s.handleSlotReport)
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /schedule", s.handleSchedule)
	mux.HandleFunc("GET /instances", s.handleInstances)

	var handler http.Handler = mux
	handler = s.limiter.middleware(handler)
	handler = authMiddleware(s.cfg.JWTSecret)(handler)
	handler = loggingMiddleware(s.logger)(handler)
	handler = recoverMiddleware(s.logger)(handler)
	handler = requestIDMiddleware(handler)
	return handler
}

// Run starts the scheduler and HTTP server, serving until ctx is canceled,
// then shuts the server down gracefully (spec.md §5 timeout discipline:
// an in-flight request is allowed to finish rather than cut off).
func (s *Server) Run(ctx context.Context) error {
	schedCtx, cancelSched := context.WithCancel(ctx)
	defer cancelSched()
	go s.scheduler.Run(schedCtx)

	s.httpSrv = &http.Server{
		Addr:              s.cfg.ListenAddr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext: func(_ net.Listener) context.Context {
			return ctx
		},
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("coordinator: listening", slog.String("addr", s.cfg.ListenAddr))
		if err := s.httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := s.httpSrv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("coordinator: graceful shutdown: %w", err)
		}
		return nil
	case err := <-errCh:
		return err
	}
}

// requireMatchingInstance reports whether the bearer token's subject
// (established by authMiddleware) matches the instance_id the request body
// claims to act as, writing a 403 and returning false otherwise. This
// stops one instance's token from being replayed against another
// instance's slot state.
func requireMatchingInstance(w http.ResponseWriter, r *http.Request, claimedID string) bool {
	if instanceIDFromContext(r.Context()) != claimedID {
		respondError(w, http.StatusForbidden, "bearer token does not authorize this instance_id")
		return false
	}
	return true
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.InstanceID == "" {
		respondError(w, http.StatusBadRequest, "instance_id is required")
		return
	}
	if !requireMatchingInstance(w, r, req.InstanceID) {
		return
	}
	capabilities, ok := parseCategories(req.Capabilities)
	if !ok {
		respondError(w, http.StatusBadRequest, "capabilities must be recognized categories")
		return
	}
	s.store.Register(req.InstanceID, capabilities, time.Now())
	s.logger.Info("coordinator: instance registered",
		slog.String("instance_id", req.InstanceID), slog.Any("capabilities", req.Capabilities))
	respondJSON(w, http.StatusOK, RegisterResponse{Registered: true})
}

func (s *Server) handleHeartbeat(w http.ResponseWriter, r *http.Request) {
	var req HeartbeatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.InstanceID == "" {
		respondError(w, http.StatusBadRequest, "instance_id is required")
		return
	}
	if !requireMatchingInstance(w, r, req.InstanceID) {
		return
	}

	now := time.Now()
	deadline := now.Add(s.cfg.HeartbeatDeadline)
	known := s.store.Heartbeat(req.InstanceID, req.CurrentSlotID, deadline, now)
	if !known {
		respondError(w, http.StatusNotFound, "instance not registered")
		return
	}

	// If the caller believes it still holds a slot the coordinator has
	// since orphaned (whether or not it was reassigned), report that explicitly so the
	// instance can abandon the stale work rather than keep running it.
	var reassignments []string
	if req.CurrentSlotID != nil {
		if slot, ok := s.store.Slot(*req.CurrentSlotID); ok {
			if slot.InstanceID == nil || *slot.InstanceID != req.InstanceID {
				reassignments = append(reassignments, slot.ID)
			}
		}
	}
	respondJSON(w, http.StatusOK, HeartbeatResponse{OK: true, Reassignments: reassignments})
}

func (s *Server) handleSlotRequest(w http.ResponseWriter, r *http.Request) {
	var req SlotRequestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if !requireMatchingInstance(w, r, req.InstanceID) {
		return
	}
	inst, ok := s.store.Instance(req.InstanceID)
	if !ok {
		respondError(w, http.StatusNotFound, "instance not registered")
		return
	}
	if !inst.Idle() {
		// A slot the scheduler already assigned to this instance is handed
		// back so the instance learns what it holds.
		if inst.CurrentSlotID != nil {
			if held, ok := s.store.Slot(*inst.CurrentSlotID); ok && held.Status == entity.SlotAssigned {
				dto := slotToDTO(held)
				respondJSON(w, http.StatusOK, SlotRequestResponse{Slot: &dto})
				return
			}
		}
		respondJSON(w, http.StatusOK, SlotRequestResponse{None: true})
		return
	}

	for _, category := range inst.Capabilities {
		for _, slot := range s.store.PendingForCategory(category) {
			deadline := time.Now().Add(s.cfg.HeartbeatDeadline)
			if s.store.Assign(slot.ID, req.InstanceID, deadline) {
				assigned, _ := s.store.Slot(slot.ID)
				dto := slotToDTO(assigned)
				respondJSON(w, http.StatusOK, SlotRequestResponse{Slot: &dto})
				return
			}
		}
	}
	respondJSON(w, http.StatusOK, SlotRequestResponse{None: true})
}

func (s *Server) handleSlotReport(w http.ResponseWriter, r *http.Request) {
	var req SlotReportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.InstanceID == "" || req.SlotID == "" {
		respondError(w, http.StatusBadRequest, "instance_id and slot_id are required")
		return
	}
	if !requireMatchingInstance(w, r, req.InstanceID) {
		return
	}

	success := req.Result == "succeeded"
	applied, known := s.store.Finish(req.SlotID, req.InstanceID, success)
	if !known {
		respondError(w, http.StatusNotFound, "unknown slot_id")
		return
	}
	if !applied {
		s.logger.Info("coordinator: slot already terminal, ignoring report",
			slog.String("slot_id", req.SlotID), slog.String("instance_id", req.InstanceID))
	} else {
		s.logger.Info("coordinator: slot report",
			slog.String("slot_id", req.SlotID), slog.String("instance_id", req.InstanceID),
			slog.String("result", req.Result), slog.Int64("stored", req.Stats.Stored))
	}
	respondJSON(w, http.StatusOK, SlotReportResponse{OK: true})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	now := time.Now()
	staleAfter := s.cfg.HeartbeatInterval * time.Duration(s.cfg.MissedHeartbeats+1)
	respondJSON(w, http.StatusOK, HealthResponse{
		Status:          "healthy",
		InstancesOnline: s.store.CountOnline(now, staleAfter),
		SlotsPending:    s.store.CountPending(),
	})
}

func (s *Server) handleSchedule(w http.ResponseWriter, r *http.Request) {
	slots := s.store.Slots()
	dtos := make([]SlotDTO, len(slots))
	for i, slot := range slots {
		dtos[i] = slotToDTO(slot)
	}
	respondJSON(w, http.StatusOK, ScheduleResponse{UpcomingSlots: dtos})
}

func (s *Server) handleInstances(w http.ResponseWriter, r *http.Request) {
	instances := s.store.Instances()
	dtos := make([]InstanceDTO, len(instances))
	for i, inst := range instances {
		dtos[i] = instanceToDTO(inst)
	}
	respondJSON(w, http.StatusOK, InstancesResponse{Instances: dtos})
}
