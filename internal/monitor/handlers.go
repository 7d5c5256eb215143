package monitor

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/bogdnnx/smart-domophone/internal/domophone"
	"github.com/bogdnnx/smart-domophone/internal/infrastructure/mqtt"
)

// handleHealth reports service liveness.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

// handleListDomophones returns the whole roster. This is the endpoint the
// emulator fetches at startup, so the response is a bare JSON array.
func (s *Server) handleListDomophones(w http.ResponseWriter, r *http.Request) {
	devices, err := s.store.ListDomophones(r.Context())
	if err != nil {
		s.logger.Error("failed to list domophones", "error", err)
		writeInternalError(w, "failed to list domophones")
		return
	}
	if devices == nil {
		devices = []Domophone{}
	}
	writeJSON(w, http.StatusOK, devices)
}

// handleGetDomophone returns one roster row by MAC.
func (s *Server) handleGetDomophone(w http.ResponseWriter, r *http.Request) {
	mac := chi.URLParam(r, "mac")

	device, err := s.store.GetDomophone(r.Context(), mac)
	if err != nil {
		if errors.Is(err, ErrDomophoneNotFound) {
			writeNotFound(w, "domophone not found")
			return
		}
		s.logger.Error("failed to get domophone", "mac", mac, "error", err)
		writeInternalError(w, "failed to get domophone")
		return
	}
	writeJSON(w, http.StatusOK, device)
}

// createDomophoneRequest is the POST /domophones body.
type createDomophoneRequest struct {
	MAC        string        `json:"mac"`
	Model      string        `json:"model"`
	Address    string        `json:"adress"`
	Apartments int           `json:"apartments"`
	Keys       map[int][]int `json:"keys"`
}

// handleCreateDomophone seeds a roster row so the emulator picks the device
// up on its next fetch.
func (s *Server) handleCreateDomophone(w http.ResponseWriter, r *http.Request) {
	var req createDomophoneRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if req.MAC == "" {
		writeBadRequest(w, "mac is required")
		return
	}
	if req.Apartments < 0 {
		writeBadRequest(w, "apartments must not be negative")
		return
	}

	device := Domophone{
		MAC:        req.MAC,
		Model:      req.Model,
		Address:    req.Address,
		Apartments: req.Apartments,
		Keys:       req.Keys,
	}
	if err := s.store.CreateDomophone(r.Context(), device); err != nil {
		if errors.Is(err, ErrDomophoneExists) {
			writeConflict(w, "domophone already exists")
			return
		}
		s.logger.Error("failed to create domophone", "mac", req.MAC, "error", err)
		writeInternalError(w, "failed to create domophone")
		return
	}

	created, err := s.store.GetDomophone(r.Context(), req.MAC)
	if err != nil {
		s.logger.Error("failed to load created domophone", "mac", req.MAC, "error", err)
		writeInternalError(w, "failed to load created domophone")
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

// handleRecentEvents returns the newest recorded events.
func (s *Server) handleRecentEvents(w http.ResponseWriter, r *http.Request) {
	events, err := s.store.RecentEvents(r.Context(), parseLimit(r, defaultRecentEvents))
	if err != nil {
		s.logger.Error("failed to list events", "error", err)
		writeInternalError(w, "failed to list events")
		return
	}
	if events == nil {
		events = []Event{}
	}
	writeJSON(w, http.StatusOK, events)
}

// handleRecentLogs returns the newest raw status observations.
func (s *Server) handleRecentLogs(w http.ResponseWriter, r *http.Request) {
	logs, err := s.store.RecentLogs(r.Context(), parseLimit(r, defaultRecentLogs))
	if err != nil {
		s.logger.Error("failed to list status logs", "error", err)
		writeInternalError(w, "failed to list status logs")
		return
	}
	if logs == nil {
		logs = []StatusLog{}
	}
	writeJSON(w, http.StatusOK, logs)
}

// commandRequest is the POST /command body. Both "identifier" and the older
// "mac" field name are accepted for the device address.
type commandRequest struct {
	Identifier string `json:"identifier"`
	MAC        string `json:"mac"`
	Command    string `json:"command"`
	FlatNumber *int   `json:"flat_number,omitempty"`
	Apartment  *int   `json:"apartment,omitempty"`
	Keys       []int  `json:"keys,omitempty"`
}

// handleCommand validates a dashboard command and publishes it onto the
// command topic. Delivery to the device is fire-and-forget: the response
// confirms publication, not execution.
func (s *Server) handleCommand(w http.ResponseWriter, r *http.Request) {
	var req commandRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	identifier := req.Identifier
	if identifier == "" {
		identifier = req.MAC
	}
	if identifier == "" {
		writeBadRequest(w, "identifier is required")
		return
	}

	payload, err := buildCommandPayload(identifier, req)
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}

	if err := s.bus.PublishJSON(mqtt.TopicCommands, payload); err != nil {
		s.logger.Error("failed to publish command",
			"identifier", identifier, "command", req.Command, "error", err)
		writeInternalError(w, "failed to publish command")
		return
	}

	s.logger.Info("command published", "identifier", identifier, "command", req.Command)
	writeJSON(w, http.StatusAccepted, map[string]string{
		"status":     "published",
		"identifier": identifier,
		"command":    req.Command,
	})
}

// buildCommandPayload validates command parameters and assembles the wire
// payload.
func buildCommandPayload(identifier string, req commandRequest) (map[string]any, error) {
	payload := map[string]any{
		"identifier": identifier,
		"command":    req.Command,
	}

	switch req.Command {
	case domophone.CmdOpenDoor, domophone.CmdCloseDoor,
		domophone.CmdMakeActive, domophone.CmdUnactive:
		// No parameters.

	case domophone.CmdCallToFlat:
		if req.FlatNumber == nil || *req.FlatNumber < 1 {
			return nil, fmt.Errorf("%w: flat_number must be a positive integer", ErrInvalidCommand)
		}
		payload["flat_number"] = *req.FlatNumber

	case domophone.CmdAddKeys, domophone.CmdRemoveKeys:
		if req.Apartment == nil || *req.Apartment < 1 {
			return nil, fmt.Errorf("%w: apartment must be a positive integer", ErrInvalidCommand)
		}
		if len(req.Keys) == 0 {
			return nil, fmt.Errorf("%w: keys must be a non-empty list", ErrInvalidCommand)
		}
		for _, k := range req.Keys {
			if k < 1 {
				return nil, fmt.Errorf("%w: keys must be positive integers", ErrInvalidCommand)
			}
		}
		payload["apartment"] = *req.Apartment
		payload["keys"] = req.Keys

	case "":
		return nil, fmt.Errorf("%w: command is required", ErrInvalidCommand)

	default:
		return nil, fmt.Errorf("%w: unknown command %q", ErrInvalidCommand, req.Command)
	}

	return payload, nil
}

// parseLimit reads an optional positive "limit" query parameter.
func parseLimit(r *http.Request, def int) int {
	v := r.URL.Query().Get("limit")
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 1 {
		return def
	}
	return n
}
