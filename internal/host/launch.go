// Package host reads the launch context of the alert form and drives the
// hosting view.
package host

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"emergency-alert/internal/config"
	"emergency-alert/internal/model"
)

var (
	ErrNoInitData  = errors.New("telegram init data not found")
	ErrInvalidHash = errors.New("telegram init data hash mismatch")
)

// Launch is what the form knows about who opened it and for which community.
type Launch struct {
	Source config.IdentitySource
	// Key is the chat id (telegram) or community name (url).
	Key string
	// UserToken is the identity used to look the user up in the roster.
	UserToken string
	Identity  *model.Identity
	InHost    bool
	// InitData is the raw Telegram init data, kept for verification.
	InitData string

	ColorScheme string
	Platform    string
}

// ParseLaunchURL extracts the launch context for source from the URL the form
// was opened with. Telegram passes tgWebAppData in the fragment; query
// parameters are accepted too.
func ParseLaunchURL(source config.IdentitySource, raw string) (Launch, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return Launch{}, fmt.Errorf("parse launch url: %w", err)
	}
	params := u.Query()
	if frag, err := url.ParseQuery(u.EscapedFragment()); err == nil {
		for k, v := range frag {
			if _, ok := params[k]; !ok {
				params[k] = v
			}
		}
	}

	switch source {
	case config.SourceURL:
		l := Launch{
			Source:    source,
			Key:       strings.TrimSpace(params.Get("comunidad")),
			UserToken: strings.TrimSpace(params.Get("user_id")),
			InHost:    params.Get("tgWebAppData") != "",
		}
		l.Platform = params.Get("tgWebAppPlatform")
		return l, nil
	default:
		data := params.Get("tgWebAppData")
		if data == "" {
			return Launch{Source: config.SourceTelegram}, ErrNoInitData
		}
		l, err := ParseInitData(data)
		if err != nil {
			return l, err
		}
		l.Platform = params.Get("tgWebAppPlatform")
		l.ColorScheme = colorScheme(params.Get("tgWebAppThemeParams"))
		return l, nil
	}
}

// ParseInitData decodes the WebApp init data string. The data is not
// verified, see VerifyInitData.
func ParseInitData(raw string) (Launch, error) {
	l := Launch{Source: config.SourceTelegram, InHost: true, InitData: raw}
	if strings.TrimSpace(raw) == "" {
		return l, ErrNoInitData
	}
	values, err := url.ParseQuery(raw)
	if err != nil {
		return l, fmt.Errorf("parse init data: %w", err)
	}

	if s := values.Get("user"); s != "" {
		var u tgbotapi.User
		if err := json.Unmarshal([]byte(s), &u); err != nil {
			return l, fmt.Errorf("parse init data user: %w", err)
		}
		l.Identity = &model.Identity{
			ID:        model.ID(strconv.FormatInt(u.ID, 10)),
			FirstName: u.FirstName,
			LastName:  u.LastName,
			Username:  u.UserName,
		}
		l.UserToken = l.Identity.ID.String()
	}
	if s := values.Get("chat"); s != "" {
		var c tgbotapi.Chat
		if err := json.Unmarshal([]byte(s), &c); err != nil {
			return l, fmt.Errorf("parse init data chat: %w", err)
		}
		l.Key = strconv.FormatInt(c.ID, 10)
	}
	return l, nil
}

// VerifyInitData checks the init data hash against the bot token.
func VerifyInitData(raw, botToken string) error {
	values, err := url.ParseQuery(raw)
	if err != nil {
		return fmt.Errorf("parse init data: %w", err)
	}
	hash := values.Get("hash")
	if hash == "" {
		return ErrInvalidHash
	}

	keys := make([]string, 0, len(values))
	for k := range values {
		if k == "hash" {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)
	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, k+"="+values.Get(k))
	}

	want := signInitData(strings.Join(pairs, "\n"), botToken)
	got, err := hex.DecodeString(hash)
	if err != nil || !hmac.Equal(got, want) {
		return ErrInvalidHash
	}
	return nil
}

func signInitData(dataCheck, botToken string) []byte {
	secret := hmac.New(sha256.New, []byte("WebAppData"))
	secret.Write([]byte(botToken))
	mac := hmac.New(sha256.New, secret.Sum(nil))
	mac.Write([]byte(dataCheck))
	return mac.Sum(nil)
}

func colorScheme(themeParams string) string {
	if themeParams == "" {
		return ""
	}
	var theme struct {
		BgColor string `json:"bg_color"`
	}
	if err := json.Unmarshal([]byte(themeParams), &theme); err != nil || len(theme.BgColor) != 7 {
		return ""
	}
	r, err1 := strconv.ParseUint(theme.BgColor[1:3], 16, 8)
	g, err2 := strconv.ParseUint(theme.BgColor[3:5], 16, 8)
	b, err3 := strconv.ParseUint(theme.BgColor[5:7], 16, 8)
	if err1 != nil || err2 != nil || err3 != nil {
		return ""
	}
	if 0.299*float64(r)+0.587*float64(g)+0.114*float64(b) < 128 {
		return "dark"
	}
	return "light"
}
