package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/WilliamKTurner/openhab-addons/backend/services/hub/internal/http/middleware"
	"github.com/WilliamKTurner/openhab-addons/backend/services/hub/internal/service"
	"github.com/WilliamKTurner/openhab-addons/backend/services/hub/internal/thing"
)

// ThingReader exposes the runtime state of things.
type ThingReader interface {
	Snapshot() []thing.Snapshot
	Channels(uid string) (map[string]thing.State, error)
	Inbox() *thing.Inbox
}

// ThingController sends commands and starts discovery scans.
type ThingController interface {
	HandleCommand(ctx context.Context, channel, raw string) error
	Scan(ctx context.Context, binding string) error
}

// ThingHandlers serves things, channels, commands and the discovery inbox.
type ThingHandlers struct {
	reader     ThingReader
	controller ThingController
	logger     *zap.Logger
}

// NewThingHandlers builds handlers.
func NewThingHandlers(reader ThingReader, controller ThingController, logger *zap.Logger) *ThingHandlers {
	return &ThingHandlers{reader: reader, controller: controller, logger: logger}
}

// List handles GET /api/things.
func (h *ThingHandlers) List(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.reader.Snapshot())
}

type channelView struct {
	Kind  string `json:"kind"`
	Value string `json:"value"`
}

// Channels handles GET /api/channels?thing=<uid>.
func (h *ThingHandlers) Channels(w http.ResponseWriter, r *http.Request) {
	uid := strings.TrimSpace(r.URL.Query().Get("thing"))
	if uid == "" {
		writeError(w, http.StatusBadRequest, "thing is required")
		return
	}
	channels, err := h.reader.Channels(uid)
	if errors.Is(err, thing.ErrNotFound) {
		writeError(w, http.StatusNotFound, "thing not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to read channels")
		return
	}
	result := make(map[string]channelView, len(channels))
	for id, st := range channels {
		kind, value := thing.EncodeState(st)
		result[id] = channelView{Kind: kind, Value: value}
	}
	writeJSON(w, http.StatusOK, result)
}

// Command handles POST /api/commands.
func (h *ThingHandlers) Command(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Channel string `json:"channel"`
		Command string `json:"command"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Channel == "" || strings.TrimSpace(req.Command) == "" {
		writeError(w, http.StatusBadRequest, "channel and command are required")
		return
	}

	user, _ := middleware.UserFromContext(r.Context())
	h.logger.Info("command received", zap.String("user", user), zap.String("channel", req.Channel), zap.String("command", req.Command))

	err := h.controller.HandleCommand(r.Context(), req.Channel, req.Command)
	switch {
	case err == nil:
		writeJSON(w, http.StatusAccepted, map[string]string{"status": "accepted"})
	case errors.Is(err, thing.ErrInvalidUID):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrHandlerNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	default:
		h.logger.Error("command failed", zap.String("channel", req.Channel), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to send command")
	}
}

// Inbox handles GET /api/inbox.
func (h *ThingHandlers) Inbox(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.reader.Inbox().Results())
}

// Scan handles POST /api/discovery/scan?binding=<id>.
func (h *ThingHandlers) Scan(w http.ResponseWriter, r *http.Request) {
	binding := strings.TrimSpace(r.URL.Query().Get("binding"))
	if binding == "" {
		writeError(w, http.StatusBadRequest, "binding is required")
		return
	}
	err := h.controller.Scan(r.Context(), binding)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, h.reader.Inbox().Results())
	case errors.Is(err, service.ErrUnknownBinding), errors.Is(err, service.ErrNoDiscovery):
		writeError(w, http.StatusNotFound, err.Error())
	default:
		h.logger.Warn("discovery scan failed", zap.String("binding", binding), zap.Error(err))
		writeError(w, http.StatusBadGateway, "discovery failed")
	}
}
