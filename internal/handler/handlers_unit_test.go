package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"

	"emergency-alert/internal/model"
)

func testDirectory() Directory {
	return Directory{Comunidades: []Community{{
		Comunidad: "miraflores",
		ChatID:    "-100123",
		Miembros: []model.Member{{
			TelegramID:      "42",
			Nombre:          "Ana",
			Direccion:       "Calle 1",
			Geolocalizacion: &model.Geolocation{Lat: 1, Lon: 2},
		}},
	}}}
}

func TestLoadDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "comunidades.json")
	data := `{"comunidades":[{"comunidad":"miraflores","chat_id":-100123,"miembros":[{"telegram_id":42,"nombre":"Ana"}]}]}`
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	d, err := LoadDirectory(path)
	if err != nil {
		t.Fatalf("LoadDirectory: %v", err)
	}
	if c, ok := d.byChat("-100123"); !ok || c.Miembros[0].TelegramID != "42" {
		t.Fatalf("unexpected directory: %+v", d)
	}
}

func TestUbicacionesHandler(t *testing.T) {
	h := NewHandler(logrus.New(), testDirectory())

	req := httptest.NewRequest(http.MethodGet, "/api/ubicaciones/Miraflores", nil)
	w := httptest.NewRecorder()
	h.UbicacionesHandler(w, req)

	res := w.Result()
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, res.StatusCode)
	}
	var members []model.Member
	if err := json.NewDecoder(res.Body).Decode(&members); err != nil {
		t.Fatalf("failed to decode body: %v", err)
	}
	if len(members) != 1 || members[0].Nombre != "Ana" {
		t.Fatalf("unexpected members: %+v", members)
	}
}

func TestUbicacionesHandler_NotFound(t *testing.T) {
	h := NewHandler(logrus.New(), testDirectory())

	req := httptest.NewRequest(http.MethodGet, "/api/ubicaciones/lince", nil)
	w := httptest.NewRecorder()
	h.UbicacionesHandler(w, req)

	if w.Code != http.StatusNotFound {
		t.Fatalf("expected status %d, got %d", http.StatusNotFound, w.Code)
	}
}

func TestComunidadPorChatHandler(t *testing.T) {
	h := NewHandler(logrus.New(), testDirectory())

	req := httptest.NewRequest(http.MethodGet, "/api/comunidad_por_chat/-100123", nil)
	w := httptest.NewRecorder()
	h.ComunidadPorChatHandler(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, w.Code)
	}
	var roster model.Roster
	if err := json.NewDecoder(w.Body).Decode(&roster); err != nil {
		t.Fatalf("failed to decode body: %v", err)
	}
	if roster.Comunidad != "miraflores" || len(roster.Miembros) != 1 {
		t.Fatalf("unexpected roster: %+v", roster)
	}
}

func TestAlertHandler(t *testing.T) {
	h := NewHandler(logrus.New(), testDirectory())

	body := `{"tipo":"Alerta Roja Activada","descripcion":"ayuda","ubicacion":{"lat":1,"lon":2},"direccion":"Calle 1","chat_id":-100123}`
	req := httptest.NewRequest(http.MethodPost, "/api/alert", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.AlertHandler(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, w.Code)
	}
	alerts := h.Alerts()
	if len(alerts) != 1 || alerts[0].ChatID != "-100123" || alerts[0].Descripcion != "ayuda" {
		t.Fatalf("alert was not recorded correctly: %+v", alerts)
	}
}

func TestAlertHandler_Rejects(t *testing.T) {
	h := NewHandler(logrus.New(), testDirectory())

	cases := []struct {
		name   string
		method string
		body   string
		status int
	}{
		{"wrong method", http.MethodGet, "", http.StatusMethodNotAllowed},
		{"bad json", http.MethodPost, "{", http.StatusBadRequest},
		{"no key", http.MethodPost, `{"tipo":"x"}`, http.StatusBadRequest},
		{"unknown community", http.MethodPost, `{"comunidad":"lince"}`, http.StatusNotFound},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			req := httptest.NewRequest(c.method, "/api/alert", strings.NewReader(c.body))
			w := httptest.NewRecorder()
			h.AlertHandler(w, req)
			if w.Code != c.status {
				t.Fatalf("expected status %d, got %d", c.status, w.Code)
			}
		})
	}
	if len(h.Alerts()) != 0 {
		t.Fatal("rejected alerts must not be recorded")
	}
}
