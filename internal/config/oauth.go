package config

import (
	"errors"
	"log"
	"net/http"

	"github.com/gorilla/sessions"
	"github.com/markbates/goth"
	"github.com/markbates/goth/gothic"
	"github.com/markbates/goth/providers/facebook"
	"github.com/markbates/goth/providers/google"
)

type providerKey struct{}

// ProviderContextKey porte le nom du provider dans le contexte de la requête
var ProviderContextKey = providerKey{}

// InitOAuthProviders enregistre les providers goth configurés et retourne leurs noms
func InitOAuthProviders(cfg *Config) []string {
	if cfg.OAuth.SessionSecret == "" {
		log.Println("⚠️  SESSION_SECRET absent, connexion OAuth désactivée")
		return nil
	}

	store := sessions.NewCookieStore([]byte(cfg.OAuth.SessionSecret))
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   600,
		HttpOnly: true,
		Secure:   cfg.IsProduction(),
		SameSite: http.SameSiteLaxMode,
	}
	gothic.Store = store

	gothic.GetProviderName = func(req *http.Request) (string, error) {
		if provider, ok := req.Context().Value(ProviderContextKey).(string); ok && provider != "" {
			return provider, nil
		}
		if provider := req.URL.Query().Get("provider"); provider != "" {
			return provider, nil
		}
		return "", errors.New("provider not found")
	}

	var providers []goth.Provider
	var names []string
	callback := func(name string) string {
		return cfg.OAuth.BaseURL + "/api/auth/oauth/" + name + "/callback"
	}

	if cfg.OAuth.GoogleClientID != "" && cfg.OAuth.GoogleClientSecret != "" {
		providers = append(providers, google.New(cfg.OAuth.GoogleClientID, cfg.OAuth.GoogleClientSecret, callback("google"), "email", "profile"))
		names = append(names, "google")
		log.Println("✅ Google OAuth activé")
	}
	if cfg.OAuth.FacebookClientID != "" && cfg.OAuth.FacebookClientSecret != "" {
		providers = append(providers, facebook.New(cfg.OAuth.FacebookClientID, cfg.OAuth.FacebookClientSecret, callback("facebook"), "email"))
		names = append(names, "facebook")
		log.Println("✅ Facebook OAuth activé")
	}

	if len(providers) > 0 {
		goth.UseProviders(providers...)
	}
	return names
}
