package bootstrap

import (
	"context"
	"fmt"

	"study-assistant-be/internal/config"
	"study-assistant-be/internal/controller"
	"study-assistant-be/internal/pkg/logger"
	"study-assistant-be/internal/repository/cache"
	"study-assistant-be/internal/repository/contract"
	"study-assistant-be/internal/repository/implementation"
	"study-assistant-be/internal/repository/memory"
	"study-assistant-be/internal/service"
	"study-assistant-be/pkg/chat/access"
	"study-assistant-be/pkg/chat/assembler"
	"study-assistant-be/pkg/chat/generation"
	"study-assistant-be/pkg/chat/orchestrator"
	"study-assistant-be/pkg/events"
	"study-assistant-be/pkg/llm/factory"
	pktNats "study-assistant-be/pkg/nats"

	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"gorm.io/gorm"
)

type Container struct {
	// Controllers
	ChatController         controller.IChatController
	ConversationController controller.IConversationController

	// Background Services (Exposed for main.go to run)
	ConsumerService service.IConsumerService

	Logger logger.ILogger

	closers []func()
}

// NewContainer wires the application. mongoDB may be nil when the chat store
// driver is "memory".
func NewContainer(db *gorm.DB, mongoDB *mongo.Database, cfg *config.Config, sysLogger logger.ILogger) (*Container, error) {
	c := &Container{Logger: sysLogger}

	// 1. Stores
	conversations, messages, err := newChatStores(cfg, mongoDB)
	if err != nil {
		return nil, err
	}
	sysLogger.Info("bootstrap", "Chat store ready", map[string]interface{}{"driver": cfg.Chat.StoreDriver})

	users := implementation.NewUserRepository(db)
	transcripts := cache.NewCachedTranscriptRepository(
		implementation.NewTranscriptRepository(db),
		c.newTranscriptCache(cfg, sysLogger),
	)

	// 2. Event Bus
	pubSub := gochannel.NewGoChannel(
		gochannel.Config{},
		logger.NewWatermillAdapter(sysLogger),
	)
	c.closers = append(c.closers, func() { _ = pubSub.Close() })

	// NATS relay is optional; a typed nil must not reach the interface.
	var relay events.Publisher
	natsPub, err := pktNats.NewPublisher(cfg.App.NatsURL, sysLogger)
	if err != nil {
		sysLogger.Warn("bootstrap", "Failed to connect to NATS, chat events stay in-process", map[string]interface{}{"error": err.Error()})
	} else {
		relay = natsPub
		c.closers = append(c.closers, natsPub.Close)
	}

	// 3. Generation
	llmProvider, err := factory.NewLLMProvider(factory.ProviderConfig{
		Provider:      cfg.Ai.LLMProvider,
		Model:         cfg.Ai.LLMModel,
		OllamaBaseURL: cfg.Ai.OllamaBaseURL,
		GeminiAPIKey:  cfg.Keys.GoogleGemini,
		HFAPIKey:      cfg.Keys.HuggingFace,
		Timeout:       cfg.Ai.Timeout,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize LLM provider: %w", err)
	}
	sysLogger.Info("bootstrap", "LLM provider ready", map[string]interface{}{
		"provider": cfg.Ai.LLMProvider,
		"model":    cfg.Ai.LLMModel,
	})

	llmLogger := logger.NewIsolatedLogger(cfg.App.LLMLogFilePath)
	generator := generation.NewClient(llmProvider, generation.Config{
		MaxTokens:      cfg.Ai.MaxTokens,
		Temperature:    cfg.Ai.Temperature,
		TitleMaxTokens: cfg.Ai.TitleMaxTokens,
	}, llmLogger)

	// 4. Services
	chatOrchestrator := orchestrator.New(orchestrator.Dependencies{
		Conversations: conversations,
		Messages:      messages,
		Transcripts:   transcripts,
		Verifier:      access.NewVerifier(users),
		Assembler:     assembler.New(cfg.Chat.HistoryWindow, cfg.Chat.HistoryCharBudget),
		Generator:     generator,
		Events:        service.NewChatEventPublisher(pubSub, cfg.Chat.EventsTopic),
	}, orchestrator.Config{
		StoreTimeout: cfg.Chat.StoreTimeout,
	}, sysLogger)

	chatService := service.NewChatService(chatOrchestrator, conversations, messages)
	c.ConsumerService = service.NewChatEventConsumer(pubSub, cfg.Chat.EventsTopic, conversations, relay, sysLogger)

	// 5. Controllers
	c.ChatController = controller.NewChatController(chatService)
	c.ConversationController = controller.NewConversationController(chatService)

	return c, nil
}

func newChatStores(cfg *config.Config, mongoDB *mongo.Database) (contract.ConversationRepository, contract.MessageRepository, error) {
	switch cfg.Chat.StoreDriver {
	case "memory":
		return memory.NewConversationRepository(), memory.NewMessageRepository(), nil
	case "mongo", "":
		if mongoDB == nil {
			return nil, nil, fmt.Errorf("chat store driver %q needs a mongo database", "mongo")
		}
		return implementation.NewConversationRepository(mongoDB), implementation.NewMessageRepository(mongoDB), nil
	default:
		return nil, nil, fmt.Errorf("unsupported chat store driver: %s", cfg.Chat.StoreDriver)
	}
}

// newTranscriptCache falls back to the in-process cache when Redis is not
// reachable.
func (c *Container) newTranscriptCache(cfg *config.Config, log logger.ILogger) cache.TranscriptCache {
	if cfg.Cache.Driver != "redis" {
		return memory.NewTranscriptCache(cfg.Cache.TTL)
	}

	opt, err := redis.ParseURL(cfg.App.RedisURL)
	if err != nil {
		log.Warn("bootstrap", "Failed to parse Redis URL, using direct Addr", map[string]interface{}{"error": err.Error()})
		opt = &redis.Options{Addr: cfg.App.RedisURL}
	}
	rdb := redis.NewClient(opt)
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		log.Warn("bootstrap", "Failed to connect to Redis, using in-process transcript cache", map[string]interface{}{"error": err.Error()})
		_ = rdb.Close()
		return memory.NewTranscriptCache(cfg.Cache.TTL)
	}

	c.closers = append(c.closers, func() { _ = rdb.Close() })
	return cache.NewRedisTranscriptCache(rdb, cfg.Cache.TTL)
}

// Close releases bus, NATS and Redis resources in reverse order.
func (c *Container) Close() {
	for i := len(c.closers) - 1; i >= 0; i-- {
		c.closers[i]()
	}
}
