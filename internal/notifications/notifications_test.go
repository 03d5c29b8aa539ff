package notifications

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thatsimonsguy/greenhouse-controller/internal/config"
	"github.com/thatsimonsguy/greenhouse-controller/internal/env"
)

func withConfig(t *testing.T, ntfy config.NtfyConfig) {
	prev := env.Cfg
	cfg := config.Default()
	cfg.Ntfy = ntfy
	env.Cfg = &cfg
	t.Cleanup(func() {
		env.Cfg = prev
		initialized = false
	})
}

func TestSend(t *testing.T) {
	var got map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	withConfig(t, config.NtfyConfig{Server: srv.URL + "/", Topic: "greenhouse"})
	Init()

	require.NoError(t, Ntfy{}.Send("Zone update failed", "zone 3 could not be deactivated"))
	assert.Equal(t, "greenhouse", got["topic"])
	assert.Equal(t, "Zone update failed", got["title"])
	assert.Equal(t, "zone 3 could not be deactivated", got["message"])
}

func TestSendNonSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	withConfig(t, config.NtfyConfig{Server: srv.URL, Topic: "greenhouse"})
	Init()

	assert.Error(t, Send("title", "message"))
}

func TestSendWithoutTopic(t *testing.T) {
	withConfig(t, config.NtfyConfig{Server: "http://127.0.0.1:1"})
	Init()

	assert.Error(t, Send("title", "message"))
}
