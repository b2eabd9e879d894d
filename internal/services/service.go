package services

import (
	"praid/config"
	"praid/internal/clients"
	"praid/internal/database"
	"praid/internal/events"
	"praid/internal/repositories"
)

type Service struct {
	Transaction *TransactionService
	Scheduler   *SchedulerService
	Render      *RenderService
	Upload      *UploadService
	Search      *SearchService
	Chat        *ChatService
	Health      *HealthService
	Media       *MediaService
	Logging     *LoggingService
}

func New(db database.DB, config config.Config, eventBus *events.EventBus) (Service, error) {
	transactionService := NewTransactionService(db)
	repos := repositories.New(db)

	fileIngestor := clients.NewFileIngestor(config.FileIngestorURL)
	searchEngine := clients.NewSearchEngine(config.SearchEngineURL, config.RequestTimeout())
	llmAgent := clients.NewLLMAgent(config.LLMAgentURL)
	knowledgeBase := clients.NewKnowledgeBase(config.KnowledgeBaseURL, config.RequestTimeout())

	healthTree, err := LoadHealthTree(config.HealthTreeFile)
	if err != nil {
		return Service{}, err
	}

	searchContexts := NewSearchContextStore(db.Cache.Search)
	renderService := NewRenderService()

	return Service{
		Transaction: transactionService,
		Scheduler:   NewSchedulerService(),
		Render:      renderService,
		Upload:      NewUploadService(fileIngestor, searchEngine, repos.Upload, db, eventBus),
		Search: NewSearchService(
			searchEngine,
			searchContexts,
			config.SearchDefaultResults,
			config.SearchMaxResults,
		),
		Chat: NewChatService(
			llmAgent,
			searchContexts,
			repos.Chat,
			db,
			transactionService,
			renderService,
			eventBus,
		),
		Health: NewHealthService(
			healthTree,
			ServiceURLs(config),
			clients.NewProber(config.HealthTimeout()),
			db.Cache.Health,
			eventBus,
		),
		Media:   NewMediaService(knowledgeBase, fileIngestor),
		Logging: NewLoggingService(config.LogSinkURL),
	}, nil
}
