package shutdown

import (
	"context"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// Timeout bounds the whole hook chain.
var Timeout = 15 * time.Second

var exit = os.Exit

type hook struct {
	name string
	fn   func(ctx context.Context) error
}

var (
	mu    sync.Mutex
	hooks []hook
	once  sync.Once
)

// Register adds a hook to run on shutdown. Hooks run in reverse order of
// registration, so later components stop before the ones they depend on.
func Register(name string, fn func(ctx context.Context) error) {
	mu.Lock()
	defer mu.Unlock()
	hooks = append(hooks, hook{name: name, fn: fn})
}

// Run executes every registered hook once. Failing hooks are logged and do
// not stop the ones after them.
func Run() {
	once.Do(func() {
		mu.Lock()
		pending := make([]hook, len(hooks))
		copy(pending, hooks)
		mu.Unlock()

		ctx, cancel := context.WithTimeout(context.Background(), Timeout)
		defer cancel()

		for i := len(pending) - 1; i >= 0; i-- {
			h := pending[i]
			if err := h.fn(ctx); err != nil {
				log.Error().Err(err).Str("hook", h.name).Msg("Shutdown hook failed")
				continue
			}
			log.Debug().Str("hook", h.name).Msg("Shutdown hook complete")
		}
		log.Info().Msg("Greenhouse controller stopped")
	})
}

func Shutdown() {
	Run()
	exit(0)
}

func ShutdownWithError(err error, msg string) {
	log.Error().Err(err).Msg(msg)
	Run()
	exit(1)
}
