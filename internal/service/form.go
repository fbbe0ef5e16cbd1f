package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/benbjohnson/clock"
	"github.com/sirupsen/logrus"

	"emergency-alert/internal/config"
	"emergency-alert/internal/geo"
	"emergency-alert/internal/host"
	"emergency-alert/internal/model"
)

const (
	MinDescription = 4
	MaxDescription = 300
)

var (
	ErrMissingContext       = errors.New("community or chat key missing")
	ErrAlreadyLoaded        = errors.New("roster already loaded")
	ErrEmptyRoster          = errors.New("roster is empty")
	ErrNotReady             = errors.New("form not ready")
	ErrInvalidInput         = errors.New("description or member missing")
	ErrSubmitting           = errors.New("alert submission in progress")
	ErrNoRegisteredLocation = errors.New("member has no registered location")
)

type State int

const (
	StateIdle State = iota
	StateRosterLoading
	StateReady
	StateSubmitting
	StateRosterError
	StateDisabled
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRosterLoading:
		return "roster-loading"
	case StateReady:
		return "ready"
	case StateSubmitting:
		return "submitting"
	case StateRosterError:
		return "roster-error"
	case StateDisabled:
		return "disabled"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Backend is the subset of the alert backend the form uses.
type Backend interface {
	FetchRoster(ctx context.Context, source config.IdentitySource, key string) (model.Roster, error)
	SendAlert(ctx context.Context, payload model.AlertPayload) (model.AlertResponse, error)
}

// Notifier shows a blocking message to the user.
type Notifier interface {
	Notify(message string)
}

type NotifierFunc func(message string)

func (f NotifierFunc) Notify(message string) { f(message) }

type Options struct {
	Launch   host.Launch
	Fallback config.SelectionFallback
	Backend  Backend
	// Locator may be nil when the device has no geolocation.
	Locator    geo.Locator
	GeoOptions *geo.Options
	// Bridge is only used when Launch.InHost is set.
	Bridge   host.Bridge
	Notifier Notifier
	Clock    clock.Clock
	Logger   *logrus.Logger
}

// View is a snapshot of what the form shows.
type View struct {
	State         State
	Status        string
	Button        string
	SubmitEnabled bool
	Description   string
	RealTime      bool
}

// Form is one alert form session.
type Form struct {
	launch   host.Launch
	fallback config.SelectionFallback
	backend  Backend
	locator  geo.Locator
	geoOpts  geo.Options
	bridge   host.Bridge
	notifier Notifier
	clock    clock.Clock
	logger   *logrus.Logger

	mu          sync.Mutex
	state       State
	roster      model.Roster
	selected    *model.Member
	description string
	realTime    bool
	enabled     bool
	status      string
	button      string
}

func NewForm(opts Options) *Form {
	f := &Form{
		launch:   opts.Launch,
		fallback: opts.Fallback,
		backend:  opts.Backend,
		locator:  opts.Locator,
		geoOpts:  geo.DefaultOptions,
		notifier: opts.Notifier,
		clock:    opts.Clock,
		logger:   opts.Logger,
		state:    StateIdle,
		status:   MsgWaiting,
		button:   ButtonIdle,
	}
	if opts.GeoOptions != nil {
		f.geoOpts = *opts.GeoOptions
	}
	if opts.Launch.InHost {
		f.bridge = opts.Bridge
	}
	if f.fallback == "" {
		f.fallback = config.FallbackFirst
	}
	if f.notifier == nil {
		f.notifier = NotifierFunc(func(string) {})
	}
	if f.clock == nil {
		f.clock = clock.New()
	}
	if f.logger == nil {
		f.logger = logrus.StandardLogger()
	}
	return f
}

// Load fetches the roster and resolves the selected member. It runs once per
// form; a roster failure leaves the form disabled for good.
func (f *Form) Load(ctx context.Context) error {
	f.mu.Lock()
	if f.state != StateIdle {
		f.mu.Unlock()
		return ErrAlreadyLoaded
	}
	if f.launch.Key == "" {
		f.state = StateDisabled
		f.enabled = false
		f.button = ButtonError
		msg := f.missingContextMessage()
		f.status = msg
		f.mu.Unlock()

		f.logger.WithField("source", f.launch.Source).Error("launch context has no community key")
		f.notifier.Notify(msg)
		return ErrMissingContext
	}
	f.state = StateRosterLoading
	f.status = MsgLoading
	f.mu.Unlock()

	if f.bridge != nil {
		f.bridge.Ready()
		f.bridge.Expand()
	}

	log := f.logger.WithFields(logrus.Fields{"source": f.launch.Source, "key": f.launch.Key})
	roster, err := f.backend.FetchRoster(ctx, f.launch.Source, f.launch.Key)
	if err != nil {
		f.mu.Lock()
		f.state = StateRosterError
		f.enabled = false
		f.button = ButtonError
		f.status = MsgRosterError
		f.mu.Unlock()

		log.WithError(err).Error("failed to load roster")
		f.notifier.Notify(MsgRosterError)
		return fmt.Errorf("load roster: %w", err)
	}
	if roster.Comunidad == "" && f.launch.Source == config.SourceURL {
		roster.Comunidad = f.launch.Key
	}

	selected, matched := SelectMember(roster.Miembros, f.launch.UserToken, f.fallback)

	f.mu.Lock()
	f.roster = roster
	f.selected = selected
	switch {
	case len(roster.Miembros) == 0:
		f.status = MsgEmptyRoster
		if f.launch.Source.RequiresMember() {
			f.state = StateRosterError
			f.button = ButtonError
		} else {
			f.state = StateReady
		}
	case selected == nil:
		f.state = StateReady
		f.status = MsgNotRegistered
	case matched:
		f.state = StateReady
		f.status = fmt.Sprintf(statusMatched, selected.Nombre, selected.Direccion)
	default:
		f.state = StateReady
		f.status = fmt.Sprintf(statusFallback, selected.Nombre)
	}
	if f.state == StateReady {
		f.enabled = f.validLocked(f.description)
	}
	f.mu.Unlock()

	log = log.WithFields(logrus.Fields{"comunidad": roster.Comunidad, "members": len(roster.Miembros)})
	switch {
	case len(roster.Miembros) == 0:
		log.Error("roster is empty")
		f.notifier.Notify(MsgEmptyRoster)
		return ErrEmptyRoster
	case selected == nil:
		log.WithField("user", f.launch.UserToken).Warn("user not found in roster, no member selected")
	case !matched:
		log.WithFields(logrus.Fields{
			"user":   f.launch.UserToken,
			"member": selected.TelegramID,
		}).Warn("user not found in roster, attributing first member")
	default:
		log.WithField("member", selected.TelegramID).Info("roster loaded")
	}
	return nil
}

// SelectMember returns the member whose telegram_id equals token. Without a
// match it returns the first member when fallback is FallbackFirst.
func SelectMember(members []model.Member, token string, fallback config.SelectionFallback) (selected *model.Member, matched bool) {
	token = strings.TrimSpace(token)
	if token != "" {
		for i := range members {
			if members[i].TelegramID.String() == token {
				m := members[i]
				return &m, true
			}
		}
	}
	if fallback == config.FallbackFirst && len(members) > 0 {
		m := members[0]
		return &m, false
	}
	return nil, false
}

// ValidDescription reports whether the trimmed text has an accepted length.
func ValidDescription(text string) bool {
	n := utf8.RuneCountInString(strings.TrimSpace(text))
	return n >= MinDescription && n <= MaxDescription
}

// SetDescription records an edit of the description and reports whether the
// alert can be submitted.
func (f *Form) SetDescription(text string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.description = text
	if f.state != StateReady {
		f.enabled = false
		return false
	}
	f.enabled = f.validLocked(text)
	if !f.enabled {
		f.status = MsgWaiting
		return false
	}
	if f.selected != nil {
		f.status = fmt.Sprintf(statusReadyWith, f.selected.Nombre)
	} else {
		f.status = MsgReady
	}
	return true
}

// SetRealTime flips between live and registered location.
func (f *Form) SetRealTime(on bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.realTime = on
	if f.state == StateReady {
		f.status = f.locationHintLocked()
	}
}

// Submit sends the alert once. The form is locked against further
// submissions until the request settles, and is reset afterwards whatever
// the outcome.
func (f *Form) Submit(ctx context.Context) (model.AlertResponse, error) {
	f.mu.Lock()
	switch f.state {
	case StateReady:
	case StateSubmitting:
		f.mu.Unlock()
		return model.AlertResponse{}, ErrSubmitting
	default:
		f.mu.Unlock()
		return model.AlertResponse{}, ErrNotReady
	}
	if !f.enabled || !f.validLocked(f.description) {
		f.mu.Unlock()
		f.notifier.Notify(MsgMissingData)
		return model.AlertResponse{}, ErrInvalidInput
	}
	description := strings.TrimSpace(f.description)
	realTime := f.realTime
	member := f.selected
	f.state = StateSubmitting
	f.enabled = false
	f.button = ButtonSending
	f.status = MsgSending
	f.mu.Unlock()

	log := f.logger.WithFields(logrus.Fields{"key": f.launch.Key, "realtime": realTime})

	loc, err := f.resolveLocation(ctx, realTime, member)
	if err != nil {
		log.WithError(err).Warn("alert not sent")
		f.notifier.Notify(MsgNoValidLocation)
		f.reset()
		return model.AlertResponse{}, err
	}

	payload := f.buildPayload(description, loc)
	resp, err := f.backend.SendAlert(ctx, payload)
	if err != nil {
		log.WithError(err).Error("failed to send alert")
		f.notifier.Notify(MsgSendError)
		f.reset()
		return model.AlertResponse{}, fmt.Errorf("send alert: %w", err)
	}

	log.WithField("status", resp.Status).Info("alert sent")
	msg := resp.Status
	if strings.TrimSpace(msg) == "" {
		msg = MsgSent
	}
	f.notifier.Notify(msg)
	f.reset()
	f.scheduleClose()
	return resp, nil
}

// View returns the current form snapshot.
func (f *Form) View() View {
	f.mu.Lock()
	defer f.mu.Unlock()
	return View{
		State:         f.state,
		Status:        f.status,
		Button:        f.button,
		SubmitEnabled: f.enabled,
		Description:   f.description,
		RealTime:      f.realTime,
	}
}

func (f *Form) State() State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// Selected returns the member attributed to the user.
func (f *Form) Selected() (model.Member, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.selected == nil {
		return model.Member{}, false
	}
	return *f.selected, true
}

// Community returns the community name reported with the roster.
func (f *Form) Community() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.roster.Comunidad
}

func (f *Form) validLocked(text string) bool {
	if f.state != StateReady || f.launch.Key == "" {
		return false
	}
	if f.launch.Source.RequiresMember() && f.selected == nil {
		return false
	}
	return ValidDescription(text)
}

func (f *Form) locationHintLocked() string {
	switch {
	case f.realTime:
		return HintRealTime
	case f.selected != nil && strings.TrimSpace(f.selected.Direccion) != "":
		return fmt.Sprintf(hintRegistered, f.selected.Direccion)
	}
	return HintNoLocation
}

func (f *Form) missingContextMessage() string {
	if f.launch.Source == config.SourceURL {
		return MsgNoCommunity
	}
	if !f.launch.InHost {
		return MsgOutsideHost
	}
	return MsgNoChat
}

func (f *Form) reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.state == StateSubmitting {
		f.state = StateReady
	}
	f.enabled = false
	f.button = ButtonIdle
	f.description = ""
	f.status = MsgWaiting
}

func (f *Form) scheduleClose() {
	if f.bridge == nil {
		return
	}
	closeView := func() {
		f.bridge.Close()
		f.mu.Lock()
		f.state = StateDisabled
		f.enabled = false
		f.mu.Unlock()
	}
	delay := f.launch.Source.CloseDelay()
	if delay <= 0 {
		closeView()
		return
	}
	f.clock.AfterFunc(delay, closeView)
}
