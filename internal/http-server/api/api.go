package api

import (
	"NovaCS/internal/config"
	"NovaCS/internal/http-server/handlers/chat"
	"NovaCS/internal/http-server/handlers/conversation"
	"NovaCS/internal/http-server/handlers/errors"
	"NovaCS/internal/http-server/handlers/key"
	"NovaCS/internal/http-server/handlers/message"
	"NovaCS/internal/http-server/handlers/order"
	"NovaCS/internal/http-server/handlers/returns"
	"NovaCS/internal/http-server/middleware/authenticate"
	"NovaCS/internal/http-server/middleware/timeout"
	"NovaCS/internal/lib/sl"
	"NovaCS/internal/ws"
	"fmt"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
	"log/slog"
	"net"
	"net/http"
)

type Server struct {
	conf       *config.Config
	httpServer *http.Server
	log        *slog.Logger
}

type Handler interface {
	authenticate.Authenticate
	ws.Authenticator
	conversation.Core
	message.Core
	chat.Core
	order.Core
	returns.Core
	key.Core
}

func New(conf *config.Config, log *slog.Logger, handler Handler, hub *ws.Hub) error {

	server := Server{
		conf: conf,
		log:  log.With(sl.Module("api.server")),
	}

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.Recoverer)

	router.NotFound(errors.NotFound(log))
	router.MethodNotAllowed(errors.NotAllowed(log))

	router.Route("/api/v1", func(v1 chi.Router) {
		// Token arrives as a query param here; browsers cannot set
		// headers on a websocket dial.
		v1.Get("/ws", func(w http.ResponseWriter, r *http.Request) {
			ws.ServeWs(hub, handler, log, w, r)
		})

		// The reply stream outlives any request deadline, so it skips
		// the timeout middleware.
		v1.Group(func(r chi.Router) {
			r.Use(authenticate.New(log, handler))
			r.Post("/chat", chat.Stream(log, handler))
		})

		v1.Group(func(r chi.Router) {
			r.Use(timeout.Timeout(5))
			r.Use(render.SetContentType(render.ContentTypeJSON))
			r.Use(authenticate.New(log, handler))

			r.Route("/conversations", func(r chi.Router) {
				r.Get("/", conversation.GetAll(log, handler))
				r.Get("/{id}/messages", conversation.Messages(log, handler))
				r.Post("/{id}/assign", conversation.Assign(log, handler))
				r.Post("/{id}/release", conversation.Release(log, handler))
			})
			r.Post("/messages", message.Send(log, handler))
			r.Route("/orders", func(r chi.Router) {
				r.Get("/{id}", order.Get(log, handler))
				r.Post("/{id}/refund", order.Refund(log, handler))
			})
			r.Route("/returns", func(r chi.Router) {
				r.Get("/", returns.List(log, handler))
				r.Delete("/{id}", returns.Delete(log, handler))
			})
			r.Route("/key", func(r chi.Router) {
				r.Post("/new", key.Generate(log, handler))
			})
		})
	})

	httpLog := slog.NewLogLogger(log.Handler(), slog.LevelError)
	server.httpServer = &http.Server{
		Handler:  router,
		ErrorLog: httpLog,
	}

	serverAddress := fmt.Sprintf("%s:%s", conf.Listen.BindIP, conf.Listen.Port)
	listener, err := net.Listen("tcp", serverAddress)
	if err != nil {
		return err
	}

	server.log.Info("starting api server", slog.String("address", serverAddress))

	return server.httpServer.Serve(listener)
}
