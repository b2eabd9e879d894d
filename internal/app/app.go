package app

import (
	"context"
	"praid/config"
	"praid/internal/database"
	"praid/internal/events"
	"praid/internal/handlers/middleware"
	"praid/internal/jobs"
	"praid/internal/logger"
	"praid/internal/services"
	"praid/internal/websockets"
	"reflect"
)

type App struct {
	Database   database.DB
	Middleware middleware.Middleware
	Websocket  *websockets.Manager
	EventBus   *events.EventBus
	Config     config.Config
	Services   services.Service
}

func New() (*App, error) {
	config, err := config.New()
	if err != nil {
		return &App{}, logger.New("app").Function("New").Err("failed to initialize config", err)
	}
	return NewWithConfig(config)
}

func NewWithConfig(config config.Config) (*App, error) {
	log := logger.New("app").Function("NewWithConfig")

	db, err := database.New(config)
	if err != nil {
		return &App{}, log.Err("failed to create database", err)
	}

	eventBus := events.New(db.Cache.Events, config)

	appServices, err := services.New(db, config, eventBus)
	if err != nil {
		return &App{}, log.Err("failed to create services", err)
	}

	websocket, err := websockets.New(eventBus, config)
	if err != nil {
		return &App{}, log.Err("failed to create websocket manager", err)
	}

	if err := jobs.RegisterAllJobs(appServices.Scheduler, config, appServices.Health, appServices.Upload); err != nil {
		return &App{}, log.Err("failed to register jobs", err)
	}

	app := &App{
		Database:   db,
		Config:     config,
		Middleware: middleware.New(config),
		Websocket:  websocket,
		EventBus:   eventBus,
		Services:   appServices,
	}

	if err := app.validate(); err != nil {
		return &App{}, log.Err("failed to validate app", err)
	}

	if err := appServices.Scheduler.Start(context.Background()); err != nil {
		return &App{}, log.Err("failed to start scheduler", err)
	}

	return app, nil
}

func (a *App) validate() error {
	log := logger.New("app").Function("validate")
	if a.Database.SQL == nil {
		return log.ErrMsg("database is nil")
	}

	if a.Config == (config.Config{}) {
		return log.ErrMsg("config is nil")
	}

	nilChecks := map[string]any{
		"websocket":   a.Websocket,
		"eventBus":    a.EventBus,
		"transaction": a.Services.Transaction,
		"scheduler":   a.Services.Scheduler,
		"render":      a.Services.Render,
		"upload":      a.Services.Upload,
		"search":      a.Services.Search,
		"chat":        a.Services.Chat,
		"health":      a.Services.Health,
		"media":       a.Services.Media,
		"logging":     a.Services.Logging,
	}

	for name, check := range nilChecks {
		if isNil(check) {
			return log.Error("nil check failed", "component", name)
		}
	}

	return nil
}

// isNil also catches typed nil pointers stored in an interface.
func isNil(value any) bool {
	if value == nil {
		return true
	}
	v := reflect.ValueOf(value)
	return v.Kind() == reflect.Pointer && v.IsNil()
}

func (a *App) Close() (err error) {
	if a.Services.Scheduler != nil {
		if closeErr := a.Services.Scheduler.Stop(context.Background()); closeErr != nil {
			err = closeErr
		}
	}

	if a.Websocket != nil {
		a.Websocket.Close()
	}

	if a.EventBus != nil {
		if closeErr := a.EventBus.Close(); closeErr != nil {
			err = closeErr
		}
	}

	if dbErr := a.Database.Close(); dbErr != nil {
		err = dbErr
	}

	return err
}
