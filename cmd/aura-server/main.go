package main

import (
	"context"
	"errors"
	"html/template"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"
	"github.com/nrednav/cuid2"
	"uk.co.dudmesh.aura/internal/app"
	"uk.co.dudmesh.aura/internal/boot"
	"uk.co.dudmesh.aura/internal/handlers"
)

type Template struct {
	mu        sync.RWMutex
	pattern   string
	templates *template.Template
	watcher   *fsnotify.Watcher
}

func (t *Template) Render(w io.Writer, name string, data interface{}, c echo.Context) error {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.templates.ExecuteTemplate(w, name, data)
}

func (t *Template) reload() error {
	templates, err := template.ParseGlob(t.pattern)
	if err != nil {
		return err
	}
	t.mu.Lock()
	t.templates = templates
	t.mu.Unlock()
	return nil
}

// Watch re-parses the views whenever one of them is written.
func (t *Template) Watch(dir string) {
	var err error

	t.watcher, err = fsnotify.NewWatcher()
	if err != nil {
		log.Fatalf("watcher: %+v", err)
	}

	go func() {
		for {
			select {
			case event, ok := <-t.watcher.Events:
				if !ok {
					return
				}
				if event.Has(fsnotify.Write) {
					log.Infof("modified file: %s", event.Name)
					if err := t.reload(); err != nil {
						log.Errorf("reloading views: %+v", err)
					}
				}
			case err, ok := <-t.watcher.Errors:
				if !ok {
					return
				}
				log.Errorf("watcher: %+v", err)
			}
		}
	}()

	if err := t.watcher.Add(dir); err != nil {
		log.Fatalf("watcher: %+v", err)
	}
}

func (t *Template) Close() {
	if t.watcher != nil {
		t.watcher.Close()
	}
}

func NewTemplate(dir string) (*Template, error) {
	t := &Template{pattern: filepath.Join(dir, "*.html")}
	if err := t.reload(); err != nil {
		return nil, err
	}
	return t, nil
}

func main() {
	config, err := boot.Load()
	if err != nil {
		log.Fatalf("boot: %+v", err)
	}

	aura, err := app.Open(config)
	if err != nil {
		log.Fatalf("opening app: %+v", err)
	}
	defer aura.Close()

	result, err := aura.Start()
	if err != nil {
		log.Warnf("restoring session: %+v", err)
	} else {
		log.Infof("session %s", result.State)
	}

	server := echo.New()
	server.Use(middleware.BodyLimit("10M"))
	server.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{
		Generator: func() string {
			return cuid2.Generate()
		},
	}))
	server.Use(echoprometheus.NewMiddleware("aura"))
	server.Use(middleware.Recover())

	server.Logger.SetLevel(log.INFO)
	server.HTTPErrorHandler = handlers.ErrorHandler(server.DefaultHTTPErrorHandler)

	headers := []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderXRequestID}
	server.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: config.Server.Origins,
		AllowHeaders: headers,
	}))

	server.Static("/static", "ui/static")

	t, err := NewTemplate(config.Server.ViewsDir)
	if err != nil {
		log.Fatalf("parsing views: %+v", err)
	}
	defer t.Close()
	if config.IsDevelopment() {
		t.Watch(config.Server.ViewsDir)
	}
	server.Renderer = t

	server.GET("/", func(c echo.Context) error {
		return c.Render(http.StatusOK, "app.html", nil)
	})

	api := server.Group("/api")
	api.GET("/session", handlers.CurrentUser(aura))
	api.POST("/session/restore", handlers.RestoreSession(aura))
	api.POST("/login", handlers.Login(aura))
	api.POST("/register", handlers.Register(aura))
	api.POST("/logout", handlers.Logout(aura))

	api.GET("/feed", handlers.ListFeed(aura))
	api.POST("/posts", handlers.CreatePost(aura))
	api.GET("/users/:userId/posts", handlers.ListUserPosts(aura))

	api.PUT("/profile", handlers.SaveProfile(aura))
	api.PUT("/profile/password", handlers.ChangePassword(aura))
	api.POST("/profile/avatar", handlers.UpdateAvatar(aura))

	api.GET("/clans", handlers.ListClans(aura))
	api.POST("/clans", handlers.CreateClan(aura))
	api.POST("/clans/:clanId/join", handlers.JoinClan(aura))

	admin := api.Group("/admin")
	admin.GET("/users", handlers.ListUsers(aura))
	admin.POST("/users/:userId/:action", handlers.ModerateUser(aura))
	admin.DELETE("/posts/:postId", handlers.DeletePost(aura))
	admin.GET("/warnings", handlers.ListWarnings(aura))
	admin.GET("/security", handlers.SecurityStats(aura))
	admin.GET("/settings", handlers.GetSettings(aura))
	admin.PUT("/settings", handlers.UpdateSettings(aura))

	go func() {
		metrics := echo.New()
		metrics.GET("/metrics", echoprometheus.NewHandler())
		if err := metrics.Start(":" + config.Server.MetricsPort); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal(err)
		}
	}()

	go func() {
		if err := server.Start(":" + config.Server.Port); err != nil && err != http.ErrServerClosed {
			server.Logger.Fatal("shutting down the server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt)
	<-quit
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		server.Logger.Fatal(err)
	}
}
