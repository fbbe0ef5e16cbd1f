package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// AlertType is the only value the backend accepts in the tipo field.
const AlertType = "Alerta Roja Activada"

// AddressUnavailable is sent when no address can be attributed to the alert.
const AddressUnavailable = "Dirección no disponible"

// ID is an identifier compared by its string form. The backend emits
// telegram_id and chat ids either as JSON numbers or as strings.
type ID string

func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = ID(strings.TrimSpace(s))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("id: %w", err)
	}
	*id = ID(n.String())
	return nil
}

func (id ID) String() string { return string(id) }

// Identity is the user reported by the host, if any.
type Identity struct {
	ID        ID     `json:"id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Username  string `json:"username"`
}

// Geolocation is a member's registered position. Direccion, when set,
// overrides the member address.
type Geolocation struct {
	Lat       float64 `json:"lat"`
	Lon       float64 `json:"lon"`
	Direccion string  `json:"direccion,omitempty"`
}

// Member is one roster entry.
type Member struct {
	TelegramID      ID           `json:"telegram_id"`
	Nombre          string       `json:"nombre"`
	Direccion       string       `json:"direccion"`
	Geolocalizacion *Geolocation `json:"geolocalizacion,omitempty"`
}

// Address returns the address to attribute to an alert sent from this member's
// registered location.
func (m Member) Address() string {
	if m.Geolocalizacion != nil && strings.TrimSpace(m.Geolocalizacion.Direccion) != "" {
		return m.Geolocalizacion.Direccion
	}
	if strings.TrimSpace(m.Direccion) != "" {
		return m.Direccion
	}
	return AddressUnavailable
}

// Roster is a community's member list in server order.
type Roster struct {
	Comunidad string   `json:"comunidad"`
	Miembros  []Member `json:"miembros"`
}

// Coordinates marshal as {"lat": null, "lon": null} when unknown.
type Coordinates struct {
	Lat *float64 `json:"lat"`
	Lon *float64 `json:"lon"`
}

func NewCoordinates(lat, lon float64) Coordinates {
	return Coordinates{Lat: &lat, Lon: &lon}
}

func (c Coordinates) Known() bool { return c.Lat != nil && c.Lon != nil }

// TelegramUser is the user_telegram object of the chat-bound payload.
type TelegramUser struct {
	ID        string `json:"id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Username  string `json:"username"`
}

// AnonymousUser stands in for a missing host identity.
var AnonymousUser = TelegramUser{ID: "Desconocido", FirstName: "Anónimo"}

type AlertPayload struct {
	Tipo                string        `json:"tipo"`
	Descripcion         string        `json:"descripcion"`
	Ubicacion           Coordinates   `json:"ubicacion"`
	Direccion           string        `json:"direccion"`
	Comunidad           string        `json:"comunidad,omitempty"`
	ChatID              ID            `json:"chat_id,omitempty"`
	UbicacionTiempoReal bool          `json:"ubicacion_tiempo_real"`
	UserTelegram        *TelegramUser `json:"user_telegram,omitempty"`
	TelegramUserID      string        `json:"telegram_user_id,omitempty"`
}

type AlertResponse struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}
