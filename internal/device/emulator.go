package device

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"cdi-tuner.klederson.com/internal/curve"
)

// Emulator serves the device HTTP API from a Simulated device.
type Emulator struct {
	dev   *Simulated
	peers []Peer
	log   zerolog.Logger
}

// NewEmulator creates an emulator backed by dev. peers is what GET /scan
// reports.
func NewEmulator(dev *Simulated, peers []Peer, log zerolog.Logger) *Emulator {
	return &Emulator{
		dev:   dev,
		peers: peers,
		log:   log.With().Str("component", "emulator").Logger(),
	}
}

// Handler returns the API routes.
func (e *Emulator) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/status", e.handleStatus)
	mux.HandleFunc("/map", e.handleMap)
	mux.HandleFunc("/live-rpm", e.handleLiveRPM)
	mux.HandleFunc("/live-afr", e.handleLiveAFR)
	mux.HandleFunc("/scan", e.handleScan)
	return e.logRequests(mux)
}

// ListenAndServe serves on addr until ctx is cancelled.
func (e *Emulator) ListenAndServe(ctx context.Context, addr string) error {
	server := &http.Server{
		Addr:         addr,
		Handler:      e.Handler(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() { errCh <- server.ListenAndServe() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}

func (e *Emulator) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		e.log.Debug().Str("method", r.Method).Str("path", r.URL.Path).
			Dur("took", time.Since(start)).Msg("request")
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func (e *Emulator) handleStatus(w http.ResponseWriter, r *http.Request) {
	st, err := e.dev.Status(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (e *Emulator) handleMap(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		p, err := e.dev.ReadMap(r.Context())
		if err != nil {
			http.Error(w, err.Error(), http.StatusServiceUnavailable)
			return
		}
		writeJSON(w, http.StatusOK, p)

	case http.MethodPost:
		var p curve.Payload
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBody)).Decode(&p); err != nil {
			writeJSON(w, http.StatusBadRequest, SendResult{Reason: "invalid json"})
			return
		}
		res, err := e.dev.SendMap(r.Context(), p)
		if err != nil {
			e.log.Info().Str("reason", res.Reason).Msg("map rejected")
			writeJSON(w, http.StatusBadRequest, res)
			return
		}
		e.log.Info().Int("maps", len(p.Maps)).Float64("pickup", p.Pickup).Msg("map stored")
		writeJSON(w, http.StatusOK, res)

	default:
		w.Header().Set("Allow", "GET, POST")
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (e *Emulator) handleLiveRPM(w http.ResponseWriter, r *http.Request) {
	rpm, err := e.dev.LiveRPM(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, http.StatusOK, map[string]float64{"rpm": rpm})
}

func (e *Emulator) handleLiveAFR(w http.ResponseWriter, r *http.Request) {
	rpm, err := strconv.Atoi(r.URL.Query().Get("rpm"))
	if err != nil {
		http.Error(w, "rpm must be an integer", http.StatusBadRequest)
		return
	}
	afr, err := e.dev.LiveAFR(r.Context(), rpm)
	if err != nil {
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, http.StatusOK, afr)
}

func (e *Emulator) handleScan(w http.ResponseWriter, r *http.Request) {
	peers := e.peers
	if peers == nil {
		peers = []Peer{}
	}
	writeJSON(w, http.StatusOK, ScanResponse{Devices: peers})
}
