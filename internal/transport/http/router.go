package http

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/therealvallalhatatlan/vallal-v1-sub001/internal/content"
	"github.com/therealvallalhatatlan/vallal-v1-sub001/internal/domain"
	"github.com/therealvallalhatatlan/vallal-v1-sub001/internal/entitlement"
	"github.com/therealvallalhatatlan/vallal-v1-sub001/internal/identity"
	obsmw "github.com/therealvallalhatatlan/vallal-v1-sub001/internal/observability/middleware"
	"github.com/therealvallalhatatlan/vallal-v1-sub001/internal/service"
)

type Authenticator interface {
	Authenticate(r *http.Request) (identity.User, error)
}

type Sessions interface {
	IssueMagicLink(ctx context.Context, email string) (string, error)
	Exchange(magicToken string) (string, identity.User, error)
	SessionTTL() time.Duration
}

type AccessChecker interface {
	HasAccess(ctx context.Context, email string) (bool, error)
}

type Library interface {
	Stories() []content.Story
	Playlists() []content.PlaylistView
}

type Inbox interface {
	ConversationForUser(ctx context.Context, userID string) (*domain.Conversation, error)
	EnsureConversation(ctx context.Context, userID, email string) (*domain.Conversation, error)
	ListConversations(ctx context.Context, limit int) ([]domain.Conversation, error)
	PostUserMessage(ctx context.Context, userID, email, body string) (*domain.Message, error)
	PostAdminMessage(ctx context.Context, adminID string, convID uuid.UUID, body string) (*domain.Message, error)
	UserMessages(ctx context.Context, userID string) ([]domain.Message, error)
	ConversationMessages(ctx context.Context, convID uuid.UUID) ([]domain.Message, error)
	MarkReadByUser(ctx context.Context, userID string) error
	MarkReadByAdmin(ctx context.Context, convID uuid.UUID) error
}

type Presence interface {
	Heartbeat(ctx context.Context, userID, email string) error
	CountOnline(ctx context.Context) (int64, error)
}

type SystemMode interface {
	Status(ctx context.Context) (service.SystemStatus, error)
	SetMode(ctx context.Context, mode domain.Mode, by string) (service.SystemStatus, error)
}

type Gifts interface {
	Reveal(ctx context.Context, id string) (string, error)
}

type AudioProxy interface {
	Serve(w http.ResponseWriter, r *http.Request, key string)
}

type Options struct {
	CORSOrigins        []string
	RateLimitPerMinute int
	SecureCookies      bool
	RequestTimeout     time.Duration
}

// Deps are the collaborators the API is built from. Audio may be nil when
// object storage is not configured.
type Deps struct {
	Auth     Authenticator
	Sessions Sessions
	Access   AccessChecker
	Library  Library
	Inbox    Inbox
	Presence Presence
	System   SystemMode
	Gifts    Gifts
	Audio    AudioProxy
	Admins   []string
	Options  Options
}

type api struct {
	Deps
	admins   map[string]struct{}
	validate *validator.Validate
}

func NewRouter(d Deps) http.Handler {
	a := &api{
		Deps:     d,
		admins:   make(map[string]struct{}, len(d.Admins)),
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
	for _, e := range d.Admins {
		if e = entitlement.Normalize(e); e != "" {
			a.admins[e] = struct{}{}
		}
	}

	limit := d.Options.RateLimitPerMinute
	if limit <= 0 {
		limit = 120
	}
	timeout := d.Options.RequestTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	r := chi.NewRouter()
	r.Use(chimw.RealIP)
	r.Use(obsmw.WithRequestAndTrace)
	r.Use(chimw.Recoverer)
	r.Use(obsmw.WithMetrics)
	r.Use(httprate.LimitByIP(limit, time.Minute))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   originsIfSet(d.Options.CORSOrigins),
		AllowedMethods:   []string{"GET", "HEAD", "POST", "PUT", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type", "Range", "X-Request-Id", "X-Trace-Id"},
		ExposedHeaders:   []string{"Content-Length", "Content-Range", "Accept-Ranges", "X-Request-Id"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		// Audio streams can outlive the request timeout.
		r.Get("/audio/*", a.handleAudio)
		r.Head("/audio/*", a.handleAudio)

		r.Group(func(r chi.Router) {
			r.Use(chimw.Timeout(timeout))

			r.Route("/auth", func(r chi.Router) {
				r.With(httprate.LimitByIP(5, time.Minute)).Post("/magic-link", a.handleMagicLink)
				r.Get("/verify", a.handleVerify)
				r.Post("/logout", a.handleLogout)
				r.With(a.requireUser).Get("/me", a.handleMe)
			})

			r.Get("/system/status", a.handleSystemStatus)
			r.Get("/presence", a.handlePresenceCount)
			r.Get("/playlists", a.handlePlaylists)
			r.With(a.writeGuard).Post("/gift/{id}", a.handleGiftReveal)

			r.Group(func(r chi.Router) {
				r.Use(a.requireUser)

				r.Get("/reader-access", a.handleReaderAccess)
				r.Get("/reader-stories", a.handleReaderStories)

				r.Get("/inbox", a.handleInboxGet)
				r.Get("/inbox/messages", a.handleInboxMessages)
				r.Group(func(r chi.Router) {
					r.Use(a.writeGuard)
					r.Post("/inbox", a.handleInboxCreate)
					r.Post("/inbox/messages", a.handleInboxPost)
					r.Post("/inbox/read", a.handleInboxRead)
					r.With(httprate.LimitByIP(10, time.Minute)).Post("/presence", a.handleHeartbeat)
				})

				r.Route("/admin", func(r chi.Router) {
					r.Use(a.requireAdmin)
					r.Get("/inbox", a.handleAdminInboxList)
					r.Get("/inbox/{id}/messages", a.handleAdminMessages)
					r.With(a.writeGuard).Post("/inbox/{id}/messages", a.handleAdminPost)
					r.With(a.writeGuard).Post("/inbox/{id}/read", a.handleAdminRead)
					r.Put("/system", a.handleSetSystemMode)
				})
			})
		})
	})

	return r
}

func (a *api) isAdmin(u identity.User) bool {
	_, ok := a.admins[entitlement.Normalize(u.Email)]
	return ok
}

func originsIfSet(in []string) []string {
	out := []string{}
	for _, o := range in {
		if s := strings.TrimSpace(o); s != "" {
			out = append(out, s)
		}
	}
	if len(out) == 0 {
		return []string{"*"}
	}
	return out
}
