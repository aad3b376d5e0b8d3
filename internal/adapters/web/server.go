// Package web exposes the capture engine over HTTP: a JSON API, a
// websocket event stream and Prometheus metrics.
package web

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/chimera-red/chimera/internal/adapters/reporting"
	"github.com/chimera-red/chimera/internal/core/domain"
)

// Service is the application surface the HTTP layer drives.
type Service interface {
	Status() map[string]interface{}
	Scan(ctx context.Context) ([]domain.ScanResult, error)
	Handshakes() ([]domain.Handshake, error)
	Deauth(job domain.DeauthJob) (*domain.DeauthResult, error)
	SessionReport() (*reporting.SessionReport, error)
	ClearCache()
}

// Server is the HTTP front end.
type Server struct {
	svc  Service
	hub  *WSHub
	pdf  *reporting.PDFExporter
	http *http.Server
}

func NewServer(addr string, svc Service, hub *WSHub) *Server {
	s := &Server{
		svc: svc,
		hub: hub,
		pdf: reporting.NewPDFExporter(),
	}

	r := mux.NewRouter()
	r.HandleFunc("/api/status", s.handleStatus).Methods(http.MethodGet)
	r.HandleFunc("/api/scan", s.handleScan).Methods(http.MethodPost)
	r.HandleFunc("/api/handshakes", s.handleHandshakes).Methods(http.MethodGet)
	r.HandleFunc("/api/handshakes/export", s.handleExport).Methods(http.MethodGet)
	r.HandleFunc("/api/deauth", s.handleDeauth).Methods(http.MethodPost)
	r.HandleFunc("/api/clear", s.handleClear).Methods(http.MethodPost)
	r.HandleFunc("/api/report", s.handleReport).Methods(http.MethodGet)
	r.HandleFunc("/ws", s.hub.HandleWebSocket)
	r.Handle("/metrics", promhttp.Handler())

	s.http = &http.Server{
		Addr:         addr,
		Handler:      otelhttp.NewHandler(r, "http"),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
	}
	return s
}

// ListenAndServe blocks until the server stops.
func (s *Server) ListenAndServe() error {
	log.Printf("HTTP server listening on %s", s.http.Addr)
	return s.http.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	status := s.svc.Status()
	status["ws_clients"] = s.hub.ClientCount()
	writeJSON(w, http.StatusOK, status)
}

func (s *Server) handleScan(w http.ResponseWriter, r *http.Request) {
	results, err := s.svc.Scan(r.Context())
	if err != nil {
		writeError(w, http.StatusConflict, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"count":    len(results),
		"networks": results,
	})
}

func (s *Server) handleHandshakes(w http.ResponseWriter, r *http.Request) {
	handshakes, err := s.svc.Handshakes()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	events := make([]map[string]interface{}, len(handshakes))
	for i := range handshakes {
		events[i] = handshakes[i].Event()
	}
	writeJSON(w, http.StatusOK, events)
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	handshakes, err := s.svc.Handshakes()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	w.Header().Set("Content-Type", "application/vnd.tcpdump.pcap")
	w.Header().Set("Content-Disposition", `attachment; filename="handshakes.pcap"`)
	if err := reporting.WriteHandshakes(w, handshakes); err != nil {
		log.Printf("pcap export failed: %v", err)
	}
}

type deauthRequest struct {
	AccessPoint string `json:"ap"`
	Station     string `json:"station,omitempty"`
	Channel     int    `json:"channel,omitempty"`
	Count       int    `json:"count,omitempty"`
}

func (s *Server) handleDeauth(w http.ResponseWriter, r *http.Request) {
	var req deauthRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err))
		return
	}

	ap, err := domain.ParseMAC(req.AccessPoint)
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid ap: %w", err))
		return
	}
	job := domain.DeauthJob{
		AccessPoint:   ap,
		Channel:       req.Channel,
		Count:         req.Count,
		RotateReasons: true,
	}
	if req.Station != "" {
		if job.Target, err = domain.ParseMAC(req.Station); err != nil {
			writeError(w, http.StatusBadRequest, fmt.Errorf("invalid station: %w", err))
			return
		}
	}
	if job.Count == 0 {
		job.Count = 1
	}

	result, err := s.svc.Deauth(job)
	if err != nil {
		writeError(w, http.StatusConflict, err)
		return
	}
	writeJSON(w, http.StatusOK, result.Event())
}

func (s *Server) handleClear(w http.ResponseWriter, r *http.Request) {
	s.svc.ClearCache()
	writeJSON(w, http.StatusOK, map[string]interface{}{"cleared": true})
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	report, err := s.svc.SessionReport()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	pdfBytes, err := s.pdf.ExportSession(report)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", `attachment; filename="session_report.pdf"`)
	w.Write(pdfBytes)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("Response encode failed: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
