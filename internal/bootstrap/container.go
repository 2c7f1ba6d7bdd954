package bootstrap

import (
	"context"
	"log"

	"ai-livecourse-be/internal/config"
	"ai-livecourse-be/internal/controller"
	"ai-livecourse-be/internal/pkg/logger"
	"ai-livecourse-be/internal/repository/implementation"
	"ai-livecourse-be/internal/service"
	"ai-livecourse-be/internal/websocket"
	"ai-livecourse-be/pkg/answerer"
	"ai-livecourse-be/pkg/classifier"
	"ai-livecourse-be/pkg/llm/factory"
	"ai-livecourse-be/pkg/rag"

	pktNats "ai-livecourse-be/pkg/nats"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type Container struct {
	// Controllers
	CourseController controller.ICourseController

	// Background Services (Exposed for main.go to run)
	SnapshotConsumerService service.ISnapshotConsumerService
	LifecycleAuditService   service.ILifecycleAuditService
	StreamService           service.IStreamService

	// WebSockets
	Hub *websocket.Hub

	Logger logger.ILogger
}

func NewContainer(db *gorm.DB, cfg *config.Config) *Container {
	// 1. Core Facades
	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.App.Environment == "production")

	snapshotRepo := implementation.NewSnapshotRepository(db)
	materialRepo := implementation.NewMaterialRepository(db)

	// 2. Event Bus
	watermillLogger := watermill.NewStdLogger(false, false)
	pubSub := gochannel.NewGoChannel(
		gochannel.Config{},
		watermillLogger,
	)

	// 3. LLM stack
	llmProvider, err := factory.NewLLMProvider(cfg.Ai.LLMProvider, cfg.Ai.LLMModel, cfg.Ai.BaseURL)
	if err != nil {
		log.Fatalf("Failed to initialize LLM provider: %v", err)
	}

	llmClassifier := classifier.NewLLMClassifier(llmProvider)
	verdictCache := classifier.NewVerdictCache(cfg.Course.IrrelevanceTTL)
	pipeline := classifier.NewPipeline(llmClassifier, verdictCache, sysLogger)

	searcher := rag.NewSearcher(materialRepo)
	ragAnswerer := answerer.NewRAGAnswerer(llmProvider, searcher)

	// 4. Optional infrastructure: Redis for cross-instance stream fan-out,
	// NATS for lifecycle events. Both degrade to nil cleanly.
	var rdb *redis.Client
	if cfg.App.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.App.RedisURL)
		if err != nil {
			log.Printf("Warn: invalid REDIS_URL, stream fan-out disabled: %v", err)
		} else {
			rdb = redis.NewClient(opts)
		}
	}

	var natsPublisher *pktNats.Publisher
	var natsSubscriber *pktNats.Subscriber
	if cfg.App.NatsURL != "" {
		natsPublisher, err = pktNats.NewPublisher(cfg.App.NatsURL)
		if err != nil {
			log.Printf("Warn: NATS unavailable, lifecycle events disabled: %v", err)
			natsPublisher = nil
		}
		natsSubscriber, err = pktNats.NewSubscriber(cfg.App.NatsURL)
		if err != nil {
			log.Printf("Warn: NATS subscriber unavailable, lifecycle audit disabled: %v", err)
			natsSubscriber = nil
		}
	}

	// 5. Persistence pipeline: store snapshots flow through watermill into
	// postgres off the request path.
	snapshotSink := service.NewSnapshotPublisher(pubSub, cfg.Course.SnapshotTopic)
	snapshotConsumer := service.NewSnapshotConsumerService(pubSub, cfg.Course.SnapshotTopic, snapshotRepo, sysLogger)
	lifecycleAudit := service.NewLifecycleAuditService(natsSubscriber, sysLogger)

	// 6. Domain services
	courseService := service.NewCourseService(
		pipeline,
		ragAnswerer,
		materialRepo,
		snapshotSink,
		natsPublisher,
		cfg.Course,
		sysLogger,
	)

	hub := websocket.NewHub(rdb, sysLogger)
	streamService := service.NewStreamService(courseService, ragAnswerer, hub, cfg.Course, sysLogger)
	hub.OnSessionEmpty(streamService.DetachSession)
	go hub.Run()

	// 7. Controllers
	courseController := controller.NewCourseController(courseService)

	return &Container{
		CourseController:        courseController,
		SnapshotConsumerService: snapshotConsumer,
		LifecycleAuditService:   lifecycleAudit,
		StreamService:           streamService,
		Hub:                     hub,
		Logger:                  sysLogger,
	}
}

// StartConsumers wires the background pipelines that must outlive requests.
func (c *Container) StartConsumers(ctx context.Context) {
	if err := c.SnapshotConsumerService.Consume(ctx); err != nil {
		log.Fatalf("Failed to start snapshot consumer: %v", err)
	}
	c.LifecycleAuditService.Start()
}
