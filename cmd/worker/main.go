package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/docsage-ai/docsage/internal/app"
	"github.com/docsage-ai/docsage/internal/queue"
	"github.com/docsage-ai/docsage/internal/status"
	"github.com/docsage-ai/docsage/internal/storage"
	"github.com/docsage-ai/docsage/internal/util"
	"github.com/docsage-ai/docsage/pkg/answercache"
	"github.com/docsage-ai/docsage/pkg/chunker"
	"github.com/docsage-ai/docsage/pkg/common"
	"github.com/docsage-ai/docsage/pkg/extract"
	"github.com/docsage-ai/docsage/pkg/index"
	"github.com/docsage-ai/docsage/pkg/loader"
	"github.com/docsage-ai/docsage/pkg/loader/csv"
	"github.com/docsage-ai/docsage/pkg/loader/docx"
	"github.com/docsage-ai/docsage/pkg/loader/image"
	"github.com/docsage-ai/docsage/pkg/loader/pdf"
	"github.com/docsage-ai/docsage/pkg/loader/text"
	"github.com/docsage-ai/docsage/pkg/logger"
	"github.com/docsage-ai/docsage/pkg/logger/console"
	"github.com/docsage-ai/docsage/pkg/vision"

	amqp "github.com/rabbitmq/amqp091-go"
)

func main() {
	util.LoadEnv()

	logger.Init(console.NewConsoleLogger(console.ConsoleLoggerParams{
		Debug: util.GetEnvBool("DEBUG", false),
	}))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := app.RunMigrations(); err != nil {
		logger.Fatal("Failed to run migrations", "error", err)
	}

	pool, err := app.NewPgPool(ctx)
	if err != nil {
		logger.Fatal("Failed to connect to database", "error", err)
	}
	defer pool.Close()

	aiClient, err := app.NewAIClient()
	if err != nil {
		logger.Fatal("Failed to create AI client", "error", err)
	}

	graph, err := app.NewGraph(ctx)
	if err != nil {
		logger.Fatal("Failed to connect to graph store", "error", err)
	}
	if graph != nil {
		defer graph.Close(context.Background())
	}

	s3Client, err := storage.NewClient(ctx)
	if err != nil {
		logger.Fatal("Failed to create S3 client", "error", err)
	}
	blobs := storage.New(s3Client, util.GetEnvString("AWS_BUCKET", "docsage"))

	chk, err := chunker.New(chunker.DefaultEncoder)
	if err != nil {
		logger.Fatal("Failed to create chunker", "error", err)
	}

	pipeline := &queue.Pipeline{
		Blobs: blobs,
		Loaders: loader.Registry{
			common.CategoryText:  loader.NewCached(text.NewTextLoader()),
			common.CategoryCSV:   loader.NewCached(csv.NewCSVLoader()),
			common.CategoryPDF:   loader.NewCached(pdf.NewPDFLoader()),
			common.CategoryDOCX:  loader.NewCached(docx.NewDocxLoader()),
			common.CategoryImage: loader.NewCached(image.NewImageLoader(vision.NewAnalyzer(aiClient))),
		},
		Chunker:   chk,
		Index:     index.New(pool, aiClient),
		Extractor: extract.NewExtractor(aiClient),
		Extract:   extract.DefaultConfig(),
		Graph:     graph,
		Status:    status.New(pool),
		Cache:     answercache.New(app.NewRedis(ctx), answercache.DefaultTTL),
	}

	conn, err := queue.Init()
	if err != nil {
		logger.Fatal("Failed to connect to rabbitmq", "error", err)
	}
	defer conn.Close()

	ch, err := conn.Channel()
	if err != nil {
		logger.Fatal("Failed to open channel", "error", err)
	}
	defer ch.Close()

	if err := queue.SetupQueues(ch); err != nil {
		logger.Fatal("Failed to declare queues", "error", err)
	}

	consumerCh, err := conn.Channel()
	if err != nil {
		logger.Fatal("Failed to open consumer channel", "error", err)
	}
	defer consumerCh.Close()

	// one message at a time across all queues
	if err := consumerCh.Qos(1, 0, true); err != nil {
		logger.Fatal("Failed to set QoS", "error", err)
	}

	type queuedMessage struct {
		msg       amqp.Delivery
		queueName string
	}
	messageChan := make(chan queuedMessage)

	for _, queueName := range queue.Queues {
		go func(qName string) {
			msgs, err := consumerCh.Consume(
				qName,
				fmt.Sprintf("%s_consumer", qName),
				false, // autoAck
				false, // exclusive
				false, // noLocal
				false, // noWait
				nil,
			)
			if err != nil {
				logger.Fatal("Failed to start consuming", "queue", qName, "error", err)
			}

			for {
				select {
				case <-ctx.Done():
					return
				case msg, ok := <-msgs:
					if !ok {
						logger.Info("Message channel closed", "queue", qName)
						return
					}
					messageChan <- queuedMessage{msg: msg, queueName: qName}
				}
			}
		}(queueName)
	}

	logger.Info("Listening for messages")

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case qm := <-messageChan:
				start := time.Now()
				logger.Info("Received message", "queue", qm.queueName)

				var processingErr error
				switch qm.queueName {
				case queue.IngestQueue:
					processingErr = pipeline.ProcessIngest(ctx, qm.msg.Body)
				case queue.DeleteQueue:
					processingErr = pipeline.ProcessDelete(ctx, qm.msg.Body)
				}

				if processingErr != nil {
					logger.Error("Error processing message", "queue", qm.queueName, "error", processingErr)
					queue.RetryOrDeadLetter(consumerCh, qm.msg, qm.queueName)
				} else {
					if err := qm.msg.Ack(false); err != nil {
						logger.Error("Failed to ack message", "error", err)
					}
				}

				metrics := aiClient.GetMetrics()
				logger.Info("Message processed",
					"queue", qm.queueName,
					"duration_ms", time.Since(start).Milliseconds(),
					"ai_input_tokens", metrics.InputTokens,
					"ai_output_tokens", metrics.OutputTokens,
					"ai_duration_ms", metrics.DurationMs,
				)
				aiClient.ResetMetrics()
			}
		}
	}()

	<-ctx.Done()
	logger.Info("Shutdown signal received, exiting")
}
