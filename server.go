package main

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"i4.energy/across/sim868/at"
	"i4.energy/across/sim868/modem"
)

// requestTimeout covers the longest procedure (a GPS session with no fix).
const requestTimeout = 2 * time.Minute

// Server handles incoming HTTP requests for interacting with the
// configured modem instance. Procedures run one at a time: a request waits
// until the previous one released the modem.
type Server struct {
	Logger *slog.Logger
	Modem  *modem.Modem

	// Config supplies defaults for fields a request leaves empty
	Config *Config

	mu     sync.Mutex
	once   sync.Once
	router chi.Router
}

// ServeHTTP implements the http.Handler interface for the Server struct
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.once.Do(s.routes)
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() {
	if s.Config == nil {
		s.Config, _ = LoadConfig(WithDefaults())
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(requestTimeout))

	r.Get("/health", s.handleHealth)
	r.Post("/at", s.handleAT)
	r.Post("/sms", s.handleSMS)
	r.Post("/call", s.handleCall)
	r.Post("/network/register", s.handleRegister)
	r.Post("/bearer", s.handleBearer)
	r.Get("/gps", s.handleGPS)
	r.Route("/http", func(r chi.Router) {
		r.Post("/get", s.handleHTTPGet)
		r.Post("/post", s.handleHTTPPost)
	})
	r.Post("/bluetooth/scan", s.handleBluetooth)

	s.router = r
}

// ResultResponse is the JSON form of a single transaction.
type ResultResponse struct {
	Command  string `json:"command,omitempty"`
	Outcome  string `json:"outcome"`
	Response string `json:"response"`
}

func resultResponse(cmd string, res modem.Result) ResultResponse {
	return ResultResponse{Command: cmd, Outcome: res.Outcome.String(), Response: res.Text()}
}

func stepResponses(steps []modem.Step) []ResultResponse {
	out := make([]ResultResponse, 0, len(steps))
	for _, step := range steps {
		out = append(out, resultResponse(step.Command, step.Result))
	}
	return out
}

func (s *Server) sendJSON(w http.ResponseWriter, v any, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(v)
}

func (s *Server) sendError(w http.ResponseWriter, message string, statusCode int) {
	if message == "" {
		w.WriteHeader(statusCode)
		return
	}

	type ErrorResponse struct {
		Message string `json:"message"`
	}
	s.sendJSON(w, ErrorResponse{Message: message}, statusCode)
}

// statusFor maps a procedure error to an HTTP status. Errors caused by the
// modem or the network behind it are reported as a bad gateway.
func statusFor(err error) int {
	switch {
	case errors.Is(err, modem.ErrNoFix):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	case errors.Is(err, modem.ErrNoPrompt),
		errors.Is(err, modem.ErrHTTPActionFailed),
		errors.Is(err, modem.ErrCallFailed),
		errors.Is(err, modem.ErrNotRegistered),
		errors.Is(err, modem.ErrStepFailed):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		s.sendError(w, err.Error(), http.StatusBadRequest)
		return false
	}
	return true
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.sendJSON(w, map[string]string{"status": "ok", "modem": s.Modem.String()}, http.StatusOK)
}

// handleAT runs a single command and returns the raw reply
func (s *Server) handleAT(w http.ResponseWriter, r *http.Request) {
	type ATRequest struct {
		Command   string `json:"command"`
		Expect    string `json:"expect"`
		TimeoutMS int    `json:"timeout_ms"`
	}

	var req ATRequest
	if !s.decode(w, r, &req) {
		return
	}
	if req.Command == "" {
		s.sendError(w, "'command' field is required", http.StatusBadRequest)
		return
	}

	cmd := at.Cmd(req.Command).Within(time.Duration(req.TimeoutMS) * time.Millisecond)
	if req.Expect != "" {
		cmd = cmd.Expecting(req.Expect)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	res := s.Modem.Exec(cmd)
	if res.Err != nil {
		s.sendError(w, res.Err.Error(), http.StatusInternalServerError)
		return
	}
	s.sendJSON(w, resultResponse(cmd.Text, res), http.StatusOK)
}

// handleSMS processes incoming HTTP POST requests to send SMS messages
func (s *Server) handleSMS(w http.ResponseWriter, r *http.Request) {
	type SMSRequest struct {
		To      string `json:"to"`
		Message string `json:"message"`
	}

	var req SMSRequest
	if !s.decode(w, r, &req) {
		return
	}
	if req.To == "" || req.Message == "" {
		s.sendError(w, "both 'to' and 'message' fields are required", http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	ack, err := s.Modem.SendSMS(r.Context(), req.To, req.Message)
	if err != nil {
		s.Logger.Error("Failed to send SMS", "error", err, "to", req.To)
		s.sendError(w, err.Error(), statusFor(err))
		return
	}

	s.Logger.Info("SMS submitted", "to", req.To, "message_length", len(req.Message), "ack", ack.Outcome.String())
	s.sendJSON(w, resultResponse("", ack), http.StatusOK)
}

func (s *Server) handleCall(w http.ResponseWriter, r *http.Request) {
	type CallRequest struct {
		Number   string `json:"number"`
		Duration int    `json:"duration_seconds"`
	}

	var req CallRequest
	if !s.decode(w, r, &req) {
		return
	}
	if req.Number == "" {
		req.Number = s.Config.PhoneNumber
	}
	hold := time.Duration(req.Duration) * time.Second
	if hold <= 0 {
		hold = s.Config.CallDuration
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.Modem.Call(r.Context(), req.Number, hold); err != nil {
		s.Logger.Error("Call failed", "error", err, "number", req.Number)
		s.sendError(w, err.Error(), statusFor(err))
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	type RegisterResponse struct {
		Registered bool             `json:"registered"`
		Attempts   int              `json:"attempts"`
		Steps      []ResultResponse `json:"steps"`
		Error      string           `json:"error,omitempty"`
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	report, err := s.Modem.RegisterNetwork(r.Context())
	resp := RegisterResponse{
		Registered: report.Registered,
		Attempts:   report.Attempts,
		Steps:      stepResponses(report.Steps),
	}
	status := http.StatusOK
	if err != nil {
		resp.Error = err.Error()
		status = statusFor(err)
	}
	s.sendJSON(w, resp, status)
}

func (s *Server) handleBearer(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	steps, err := s.Modem.ConfigureBearer(r.Context())
	if err != nil {
		s.sendError(w, err.Error(), statusFor(err))
		return
	}
	s.sendJSON(w, stepResponses(steps), http.StatusOK)
}

func (s *Server) handleGPS(w http.ResponseWriter, r *http.Request) {
	type GPSResponse struct {
		Attempts int      `json:"attempts"`
		Fixes    []string `json:"fixes"`
		Error    string   `json:"error,omitempty"`
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	report, err := s.Modem.PollGPS(r.Context())
	resp := GPSResponse{Attempts: report.Attempts, Fixes: report.Fixes}
	status := http.StatusOK
	if err != nil {
		resp.Error = err.Error()
		status = statusFor(err)
	}
	s.sendJSON(w, resp, status)
}

func (s *Server) handleHTTPGet(w http.ResponseWriter, r *http.Request) {
	type GetRequest struct {
		URL string `json:"url"`
	}

	var req GetRequest
	if !s.decode(w, r, &req) {
		return
	}
	if req.URL == "" {
		req.URL = s.Config.HTTPGetURL
	}
	if req.URL == "" {
		s.sendError(w, "'url' field is required", http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	body, err := s.Modem.HTTPGet(r.Context(), req.URL)
	if err != nil {
		s.Logger.Error("HTTP GET failed", "error", err, "url", req.URL)
		s.sendError(w, err.Error(), statusFor(err))
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write(body)
}

func (s *Server) handleHTTPPost(w http.ResponseWriter, r *http.Request) {
	type PostRequest struct {
		URL         string `json:"url"`
		ContentType string `json:"content_type"`
		Payload     string `json:"payload"`
	}

	var req PostRequest
	if !s.decode(w, r, &req) {
		return
	}
	if req.URL == "" {
		req.URL = s.Config.HTTPPostURL
	}
	if req.ContentType == "" {
		req.ContentType = s.Config.ContentType
	}
	if req.Payload == "" {
		req.Payload = s.Config.PostPayload
	}
	if req.URL == "" {
		s.sendError(w, "'url' field is required", http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.Modem.HTTPPost(r.Context(), req.URL, req.ContentType, []byte(req.Payload)); err != nil {
		s.Logger.Error("HTTP POST failed", "error", err, "url", req.URL)
		s.sendError(w, err.Error(), statusFor(err))
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (s *Server) handleBluetooth(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	scan, err := s.Modem.ScanBluetooth(r.Context())
	if err != nil {
		s.sendError(w, err.Error(), statusFor(err))
		return
	}
	s.sendJSON(w, resultResponse("", scan), http.StatusOK)
}
