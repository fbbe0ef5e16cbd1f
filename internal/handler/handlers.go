// Package handler serves a stand-in alert backend for local runs and tests.
package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"

	"emergency-alert/internal/model"
)

// Community is one directory entry of the mock backend.
type Community struct {
	Comunidad string         `json:"comunidad"`
	ChatID    model.ID       `json:"chat_id"`
	Miembros  []model.Member `json:"miembros"`
}

type Directory struct {
	Comunidades []Community `json:"comunidades"`
}

func LoadDirectory(path string) (Directory, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Directory{}, fmt.Errorf("read directory: %w", err)
	}
	var d Directory
	if err := json.Unmarshal(data, &d); err != nil {
		return Directory{}, fmt.Errorf("decode directory %s: %w", path, err)
	}
	return d, nil
}

func (d Directory) byName(name string) (Community, bool) {
	for _, c := range d.Comunidades {
		if strings.EqualFold(c.Comunidad, name) {
			return c, true
		}
	}
	return Community{}, false
}

func (d Directory) byChat(chatID string) (Community, bool) {
	for _, c := range d.Comunidades {
		if c.ChatID != "" && c.ChatID.String() == chatID {
			return c, true
		}
	}
	return Community{}, false
}

type Handler struct {
	logger    *logrus.Logger
	directory Directory

	mu     sync.Mutex
	alerts []model.AlertPayload
}

func NewHandler(logger *logrus.Logger, directory Directory) *Handler {
	return &Handler{
		logger:    logger,
		directory: directory,
	}
}

func (h *Handler) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/ubicaciones/", h.UbicacionesHandler)
	mux.HandleFunc("/api/comunidad_por_chat/", h.ComunidadPorChatHandler)
	mux.HandleFunc("/api/alert", h.AlertHandler)
	mux.HandleFunc("/api/alerts", h.AlertsHandler)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("OK"))
	})
	return mux
}

// GET /api/ubicaciones/{comunidad}
func (h *Handler) UbicacionesHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	name := strings.TrimPrefix(r.URL.Path, "/api/ubicaciones/")
	c, ok := h.directory.byName(name)
	if !ok {
		h.logger.WithField("comunidad", name).Info("community not found")
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "Comunidad no encontrada"})
		return
	}
	members := c.Miembros
	if members == nil {
		members = []model.Member{}
	}
	writeJSON(w, http.StatusOK, members)
}

// GET /api/comunidad_por_chat/{chat_id}
func (h *Handler) ComunidadPorChatHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	chatID := strings.TrimPrefix(r.URL.Path, "/api/comunidad_por_chat/")
	c, ok := h.directory.byChat(chatID)
	if !ok {
		h.logger.WithField("chat_id", chatID).Info("no community for chat")
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "Comunidad no encontrada"})
		return
	}
	writeJSON(w, http.StatusOK, model.Roster{Comunidad: c.Comunidad, Miembros: c.Miembros})
}

// POST /api/alert
func (h *Handler) AlertHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var alert model.AlertPayload
	if err := json.NewDecoder(r.Body).Decode(&alert); err != nil {
		h.logger.WithError(err).Info("Invalid request body in AlertHandler")
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "JSON inválido"})
		return
	}

	var (
		c  Community
		ok bool
	)
	switch {
	case alert.ChatID != "":
		c, ok = h.directory.byChat(alert.ChatID.String())
	case alert.Comunidad != "":
		c, ok = h.directory.byName(alert.Comunidad)
	default:
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "ID del chat no proporcionado"})
		return
	}
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "Comunidad no encontrada"})
		return
	}

	h.mu.Lock()
	h.alerts = append(h.alerts, alert)
	h.mu.Unlock()

	h.logger.WithFields(logrus.Fields{
		"comunidad":   c.Comunidad,
		"tipo":        alert.Tipo,
		"direccion":   alert.Direccion,
		"tiempo_real": alert.UbicacionTiempoReal,
	}).Info("alert received")
	writeJSON(w, http.StatusOK, model.AlertResponse{Status: "Alerta enviada."})
}

// GET /api/alerts lists what the mock has received.
func (h *Handler) AlertsHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, h.Alerts())
}

func (h *Handler) Alerts() []model.AlertPayload {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]model.AlertPayload, len(h.alerts))
	copy(out, h.alerts)
	return out
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
