package projecthub

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-chi/cors"
	"github.com/putto11262002/projecthub/core"
	"github.com/putto11262002/projecthub/migrations"
	"github.com/putto11262002/projecthub/pkg/router"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 10 * time.Second

type App struct {
	config  *Config
	db      *core.SQLiteDB
	context context.Context
	server  *http.Server
	logger  *slog.Logger
	router  *router.Router
	hub     *core.Hub

	userStore    core.UserStore
	authStore    *core.SQLiteAuthStore
	projectStore core.ProjectStore
	taskStore    core.TaskStore
	teamStore    core.TeamStore
	chatStore    core.ChatStore

	authHandler    *AuthHandler
	userHandler    *UserHandler
	projectHandler *ProjectHandler
	taskHandler    *TaskHandler
	teamHandler    *TeamHandler
	chatHandler    *ChatHandler

	staticFS *StaticFS
}

// New wires the database, the stores, the websocket hub and the routes.
// A nil ctx is cancelled on SIGINT, SIGTERM, SIGQUIT and SIGHUP. A nil config is loaded with LoadConfig.
func New(ctx context.Context, config *Config) (*App, error) {
	app := &App{}
	if ctx == nil {
		ctx, _ = signal.NotifyContext(
			context.Background(),
			syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT, syscall.SIGHUP)
	}
	app.context = ctx

	if config == nil {
		var err error
		config, err = LoadConfig()
		if err != nil {
			return nil, fmt.Errorf("load config: %w", err)
		}
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config:\n%s", FormatValidationErrors(err))
	}
	app.config = config
	app.logger = newLogger(config.LogLevel)

	var err error
	app.db, err = core.NewSQLiteDB(config.SQLite.File, migrations.FS, nil)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := app.db.Migrate(ctx); err != nil {
		app.db.Close()
		return nil, fmt.Errorf("migrate database: %w", err)
	}

	userStore := core.NewSQLiteUserStore(app.db.DB)
	projectStore := core.NewSQLiteProjectStore(app.db.DB, userStore)
	chatStore := core.NewSQLiteChatStore(app.db.DB, userStore)
	app.userStore = userStore
	app.authStore = core.NewSQLiteAuthStore(app.db.DB, userStore, config.Auth.Secret, config.Auth.TokenTTL)
	app.projectStore = projectStore
	app.taskStore = core.NewSQLiteTaskStore(app.db.DB, userStore, projectStore)
	app.teamStore = core.NewSQLiteTeamStore(app.db.DB, userStore)
	app.chatStore = chatStore

	if err := app.ensureAdmin(ctx); err != nil {
		app.db.Close()
		return nil, err
	}

	app.hub = core.NewHub(ctx, chatStore, chatStore, chatStore,
		core.WithLogger(app.logger.With(slog.String("component", "hub"))),
		core.WithCheckOrigin(originChecker(config.AllowedOrigins)),
		core.WithWSConfig(config.WSConfig()),
	)

	if config.Static.Dir != "" {
		app.staticFS, err = NewStaticFS(os.DirFS(config.Static.Dir), "index.html", map[string]string{
			"index.html": "no-cache",
			"assets/*":   "public, max-age=31536000, immutable",
		})
		if err != nil {
			app.db.Close()
			return nil, fmt.Errorf("static files: %w", err)
		}
	}

	app.authHandler = NewAuthHandler(app.authStore, app.userStore, config.Mode == ProdMode)
	app.userHandler = NewUserHandler(app.userStore)
	app.projectHandler = NewProjectHandler(app.projectStore)
	app.taskHandler = NewTaskHandler(app.taskStore)
	app.teamHandler = NewTeamHandler(app.teamStore)
	app.chatHandler = NewChatHandler(app.chatStore, app.hub)

	app.routes()

	app.server = &http.Server{
		Addr:      config.Addr(),
		Handler:   app.router,
		TLSConfig: tlsConfig(config.Mode),
		BaseContext: func(listener net.Listener) context.Context {
			return app.context
		},
	}

	return app, nil
}

func newLogger(level slog.Level) *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level:     level,
		AddSource: true,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.SourceKey {
				source, _ := a.Value.Any().(*slog.Source)
				if source != nil {
					source.File = filepath.Base(source.File)
				}
			}
			return a
		},
	}))
}

// ensureAdmin creates the configured admin account on first start.
func (app *App) ensureAdmin(ctx context.Context) error {
	if app.config.Admin.Username == "" {
		return nil
	}
	existing, err := app.userStore.GetUserByUsername(ctx, app.config.Admin.Username)
	if err != nil {
		return fmt.Errorf("GetUserByUsername: %w", err)
	}
	if existing != nil {
		return nil
	}
	_, err = app.userStore.CreateUser(ctx, core.UserCreateInput{
		Username: app.config.Admin.Username,
		Password: app.config.Admin.Password,
		Role:     core.RoleAdmin,
	})
	if err != nil {
		return fmt.Errorf("create admin: %w", err)
	}
	app.logger.Info("admin account created", slog.String("username", app.config.Admin.Username))
	return nil
}

func (app *App) routes() {
	app.router = router.New(router.WithLogger(app.logger))
	app.registerErrors()

	app.router.Router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   app.config.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	authMiddleware := core.JWTMiddleware(app.authStore)
	optionalAuth := core.OptionalAuthMiddleware(app.authStore)

	ws := app.router.With(optionalAuth)
	ws.Get("/ws/chat/{room}", app.chatHandler.ConnectHandler)
	ws.Get("/ws/chat/{room}/", app.chatHandler.ConnectHandler)

	app.router.Route("/api", func(api *router.Router) {
		api.With(optionalAuth).Post("/register", app.authHandler.RegisterHandler)
		api.Post("/login", app.authHandler.LoginHandler)

		api.Group(func(r *router.Router) {
			r.Use(authMiddleware)

			r.Post("/logout", app.authHandler.LogoutHandler)
			r.Get("/auth/check", app.authHandler.CheckHandler)

			r.Route("/users", func(r *router.Router) {
				r.Get("/", app.userHandler.GetUsersHandler)
				r.Get("/me", app.userHandler.MeHandler)
				r.Get("/{userID}", app.userHandler.GetUserHandler)
				r.Patch("/{userID}", app.userHandler.UpdateUserHandler)
				r.With(core.RequireAdmin).Delete("/{userID}", app.userHandler.DeleteUserHandler)
			})

			r.Route("/projects", func(r *router.Router) {
				r.Get("/", app.projectHandler.GetProjectsHandler)
				r.Post("/", app.projectHandler.CreateProjectHandler)
				r.Get("/user-projects", app.projectHandler.GetUserProjectsHandler)
				r.Get("/{projectID}", app.projectHandler.GetProjectHandler)
				r.Patch("/{projectID}", app.projectHandler.UpdateProjectHandler)
				r.Delete("/{projectID}", app.projectHandler.DeleteProjectHandler)
				r.Get("/{projectID}/members", app.projectHandler.GetMembersHandler)
				r.Post("/{projectID}/members", app.projectHandler.AddMemberHandler)
				r.Delete("/{projectID}/members", app.projectHandler.RemoveMemberHandler)
			})

			r.Route("/tasks", func(r *router.Router) {
				r.Get("/", app.taskHandler.GetTasksHandler)
				r.Post("/", app.taskHandler.CreateTaskHandler)
				r.Get("/{taskID}", app.taskHandler.GetTaskHandler)
				r.Patch("/{taskID}", app.taskHandler.UpdateTaskHandler)
				r.Delete("/{taskID}", app.taskHandler.DeleteTaskHandler)
			})

			r.Route("/teams", func(r *router.Router) {
				r.Get("/", app.teamHandler.GetTeamsHandler)
				r.Post("/", app.teamHandler.CreateTeamHandler)
				r.Get("/{teamID}", app.teamHandler.GetTeamHandler)
				r.Patch("/{teamID}", app.teamHandler.UpdateTeamHandler)
				r.With(core.RequireAdmin).Delete("/{teamID}", app.teamHandler.DeleteTeamHandler)
				r.Post("/{teamID}/members", app.teamHandler.AddMemberHandler)
				r.Delete("/{teamID}/members/{userID}", app.teamHandler.RemoveMemberHandler)
			})

			r.Route("/chatrooms", func(r *router.Router) {
				r.Get("/", app.chatHandler.GetRoomsHandler)
				r.Post("/", app.chatHandler.CreateRoomHandler)
				r.Get("/{roomID}", app.chatHandler.GetRoomHandler)
				r.Get("/{roomID}/messages", app.chatHandler.GetRoomMessagesHandler)
			})

			r.Post("/messages", app.chatHandler.SendMessageHandler)
			r.Post("/messages/mark_read", app.chatHandler.MarkReadHandler)
		})
	})

	if app.staticFS != nil {
		app.router.Router.Handle("/*", app.staticFS.Handler())
	}
}

func (app *App) registerErrors() {
	app.router.RegisterErrorMapper(core.ErrInvalidInput, func(err error) router.JsonError {
		var inputErr *core.InputError
		if errors.As(err, &inputErr) {
			return router.BadRequest(inputErr.Error())
		}
		return router.BadRequest(core.ErrInvalidInput.Error())
	})

	codes := []struct {
		err  error
		code int
	}{
		{core.ErrBadCredentials, http.StatusUnauthorized},
		{core.ErrUnauthenticated, http.StatusUnauthorized},
		{core.ErrUnauthorized, http.StatusForbidden},
		{core.ErrConflictedUser, http.StatusConflict},
		{core.ErrUserNotFound, http.StatusNotFound},
		{core.ErrProjectNotFound, http.StatusNotFound},
		{core.ErrTaskNotFound, http.StatusNotFound},
		{core.ErrTeamNotFound, http.StatusNotFound},
		{core.ErrRoomNotFound, http.StatusNotFound},
		{core.ErrInvalidMember, http.StatusBadRequest},
		{core.ErrInvalidRoom, http.StatusBadRequest},
		{core.ErrInvalidMessage, http.StatusBadRequest},
	}
	for _, c := range codes {
		// the sentinel message hides the operation chain of wrapped errors
		message := c.err.Error()
		code := c.code
		app.router.RegisterErrorMapper(c.err, func(error) router.JsonError {
			return router.NewJsonError(code, message)
		})
	}
}

// Handler returns the root handler of the app.
func (app *App) Handler() http.Handler {
	return app.router
}

func (app *App) Hub() *core.Hub {
	return app.hub
}

// Start serves until the app context is cancelled or the server fails, then shuts down.
func (app *App) Start() error {
	g, ctx := errgroup.WithContext(app.context)

	g.Go(func() error {
		app.logger.Info(fmt.Sprintf("app running in %s mode on: %s", app.config.Mode, app.config.Addr()))
		var err error
		if app.config.TLS.Crt != "" && app.config.TLS.Key != "" {
			err = app.server.ListenAndServeTLS(app.config.TLS.Crt, app.config.TLS.Key)
		} else {
			err = app.server.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		app.pruneBlacklist(ctx)
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return app.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

func (app *App) pruneBlacklist(ctx context.Context) {
	ticker := time.NewTicker(app.config.Auth.BlacklistPruneInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := app.authStore.PruneBlacklist(ctx)
			if err != nil {
				app.logger.Error("pruning token blacklist", slog.String("error", err.Error()))
				continue
			}
			app.logger.Debug("pruned token blacklist", slog.Int64("removed", n))
		}
	}
}

// Shutdown stops the http server and closes every websocket session concurrently,
// then closes the database. It gives up when ctx is done.
func (app *App) Shutdown(ctx context.Context) error {
	var g errgroup.Group
	g.Go(func() error {
		if err := app.server.Shutdown(ctx); err != nil {
			return fmt.Errorf("server shutdown: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		app.hub.Close()
		return nil
	})

	done := make(chan error, 1)
	go func() {
		done <- g.Wait()
	}()

	select {
	case err := <-done:
		if closeErr := app.db.Close(); closeErr != nil {
			err = errors.Join(err, fmt.Errorf("db close: %w", closeErr))
		}
		if err != nil {
			return err
		}
		app.logger.Info("app shutdown gracefully")
		return nil
	case <-ctx.Done():
		app.logger.Info("app shutdown timed out")
		return fmt.Errorf("shutdown: %w", ctx.Err())
	}
}
