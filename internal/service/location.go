package service

import (
	"context"
	"strings"

	"emergency-alert/internal/config"
	"emergency-alert/internal/geo"
	"emergency-alert/internal/model"
)

type location struct {
	coords   model.Coordinates
	address  string
	realTime bool
}

// resolveLocation picks the coordinates and address sent with the alert.
// A live fix that cannot be obtained falls back to the registered location,
// and then to unknown coordinates.
func (f *Form) resolveLocation(ctx context.Context, realTime bool, member *model.Member) (location, error) {
	if !realTime {
		if member == nil || member.Geolocalizacion == nil {
			return location{}, ErrNoRegisteredLocation
		}
		return registered(member), nil
	}

	address := model.AddressUnavailable
	if member != nil && strings.TrimSpace(member.Direccion) != "" {
		address = member.Direccion
	}

	pos, err := geo.CurrentPosition(ctx, f.locator, f.geoOpts)
	if err == nil {
		return location{
			coords:   model.NewCoordinates(pos.Lat, pos.Lon),
			address:  address,
			realTime: true,
		}, nil
	}

	log := f.logger.WithError(err)
	if member != nil && member.Geolocalizacion != nil {
		log.Warn("real-time position unavailable, using registered location")
		f.notifier.Notify(MsgRealtimeFallback)
		return registered(member), nil
	}
	log.Warn("real-time position unavailable and no registered location")
	f.notifier.Notify(MsgRealtimeFailed)
	return location{address: address}, nil
}

func registered(member *model.Member) location {
	g := member.Geolocalizacion
	return location{
		coords:  model.NewCoordinates(g.Lat, g.Lon),
		address: member.Address(),
	}
}

func (f *Form) buildPayload(description string, loc location) model.AlertPayload {
	p := model.AlertPayload{
		Tipo:                model.AlertType,
		Descripcion:         description,
		Ubicacion:           loc.coords,
		Direccion:           loc.address,
		UbicacionTiempoReal: loc.realTime,
	}

	switch f.launch.Source {
	case config.SourceURL:
		p.Comunidad = f.launch.Key
		p.TelegramUserID = f.launch.UserToken
	default:
		p.ChatID = model.ID(f.launch.Key)
		user := model.AnonymousUser
		if id := f.launch.Identity; id != nil {
			user = model.TelegramUser{
				ID:        id.ID.String(),
				FirstName: id.FirstName,
				LastName:  id.LastName,
				Username:  id.Username,
			}
		}
		p.UserTelegram = &user
	}
	return p
}
