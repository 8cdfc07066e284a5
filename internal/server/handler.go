package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/mahlburgc/armterm/internal/arm"
	"github.com/mahlburgc/armterm/internal/controller"
	"github.com/mahlburgc/armterm/internal/session"
)

// stateResponse is the JSON form of a controller snapshot.
type stateResponse struct {
	Status      string   `json:"status"`
	Positions   []int    `json:"positions"`
	Labels      []string `json:"labels"`
	LastCommand string   `json:"last_command"`
	Connection  string   `json:"connection"`
	State       string   `json:"state"`
	Port        string   `json:"port"`
}

func newStateResponse(s controller.Snapshot) stateResponse {
	return stateResponse{
		Status:      s.Status,
		Positions:   s.Positions,
		Labels:      s.Labels,
		LastCommand: s.LastCommand,
		Connection:  s.ConnectionLabel,
		State:       s.State.String(),
		Port:        s.PortName,
	}
}

type portResponse struct {
	Name    string `json:"name"`
	USB     bool   `json:"usb"`
	VID     string `json:"vid,omitempty"`
	PID     string `json:"pid,omitempty"`
	Product string `json:"product,omitempty"`
	Pico    bool   `json:"pico"`
}

type angleRequest struct {
	Angle *int `json:"angle"`
}

type poseRequest struct {
	Command string `json:"command"`
}

type portRequest struct {
	Name string `json:"name"`
}

// JSON writes a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, `{"error": "failed to encode response"}`, http.StatusInternalServerError)
	}
}

// Error writes a JSON error response.
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, map[string]string{"error": message})
}

// statusOf maps controller errors onto HTTP status codes.
func statusOf(err error) int {
	switch {
	case errors.Is(err, arm.ErrInvalidAngle),
		errors.Is(err, arm.ErrInvalidJoint),
		errors.Is(err, arm.ErrMalformedCommand):
		return http.StatusBadRequest
	case errors.Is(err, session.ErrBusy):
		return http.StatusConflict
	case errors.Is(err, session.ErrOpenFailed), errors.Is(err, session.ErrWriteFailed):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// apply runs msg and answers with the resulting state.
func (s *Server) apply(w http.ResponseWriter, r *http.Request, msg controller.Msg) {
	if err := s.ctrl.Update(r.Context(), msg); err != nil {
		s.logger.Debug("controller update failed", "msg", msg, "error", err)
		Error(w, statusOf(err), err.Error())
		return
	}
	JSON(w, http.StatusOK, newStateResponse(s.ctrl.Snapshot()))
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	JSON(w, http.StatusOK, newStateResponse(s.ctrl.Snapshot()))
}

func (s *Server) handlePorts(w http.ResponseWriter, r *http.Request) {
	ports, err := session.ListPorts()
	if err != nil {
		s.logger.Error("Failed to list ports", "error", err)
		Error(w, http.StatusInternalServerError, err.Error())
		return
	}

	resp := make([]portResponse, 0, len(ports))
	for _, p := range ports {
		resp = append(resp, portResponse{
			Name:    p.Name,
			USB:     p.IsUSB,
			VID:     p.VID,
			PID:     p.PID,
			Product: p.Product,
			Pico:    p.IsPico(),
		})
	}
	JSON(w, http.StatusOK, resp)
}

func (s *Server) handleSelectPort(w http.ResponseWriter, r *http.Request) {
	var req portRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Name == "" {
		Error(w, http.StatusBadRequest, "body must be {\"name\": \"<port>\"}")
		return
	}
	s.apply(w, r, controller.SelectPort{Name: req.Name})
}

func (s *Server) handleConnect(w http.ResponseWriter, r *http.Request) {
	s.apply(w, r, controller.Connect{})
}

func (s *Server) handleDisconnect(w http.ResponseWriter, r *http.Request) {
	s.apply(w, r, controller.Disconnect{})
}

func (s *Server) handleSetJoint(w http.ResponseWriter, r *http.Request) {
	// joints are numbered from 1 like on the wire
	joint, err := strconv.Atoi(chi.URLParam(r, "joint"))
	if err != nil || joint < 1 {
		Error(w, http.StatusBadRequest, "joint must be a number from 1")
		return
	}

	var req angleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Angle == nil {
		Error(w, http.StatusBadRequest, "body must be {\"angle\": <0-180>}")
		return
	}

	s.apply(w, r, controller.SetAngle{Joint: joint - 1, Value: *req.Angle})
}

func (s *Server) handlePose(w http.ResponseWriter, r *http.Request) {
	var req poseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		Error(w, http.StatusBadRequest, "body must be {\"command\": \"S1 90,S2 45\"}")
		return
	}

	decoded, err := arm.Decode(req.Command)
	if err == nil && len(decoded) == 0 {
		err = arm.ErrMalformedCommand
	}
	if err != nil {
		Error(w, http.StatusBadRequest, err.Error())
		return
	}

	angles := make(map[int]int, len(decoded))
	for joint, angle := range decoded {
		angles[joint-1] = angle
	}
	s.apply(w, r, controller.SetPose{Angles: angles})
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	s.apply(w, r, controller.ResetAll{})
}

func (s *Server) handleSend(w http.ResponseWriter, r *http.Request) {
	s.apply(w, r, controller.Send{})
}
