// Command djcomponentd runs the component bootstrap manager as a standalone
// HTTP daemon: it accepts envelope pushes over HTTP (the server-pushed
// analogue of a DOM mutation), serves Prometheus metrics, and reports
// scheduler health.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/R3E-Network/djcomponent"
	"github.com/R3E-Network/djcomponent/internal/host"
	"github.com/R3E-Network/djcomponent/pkg/config"
	"github.com/R3E-Network/djcomponent/pkg/logger"
	"github.com/R3E-Network/djcomponent/pkg/metrics"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	log := logger.New(logger.LoggingConfig{
		Level:      cfg.Logging.Level,
		Format:     cfg.Logging.Format,
		Output:     cfg.Logging.Output,
		FilePrefix: cfg.Logging.FilePrefix,
	})

	h := host.NewMemHost()
	manager := djcomponent.New(djcomponent.Config{
		Host:   h,
		Logger: log,
		OnFatalError: func(err error) {
			log.WithField("error", err).Error("fatal scheduler error, queue flushed")
		},
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	runErrCh := make(chan error, 1)
	go func() { runErrCh <- manager.Run(ctx) }()

	router := newRouter(manager, h)

	addr := cfg.Server.Host + ":" + strconv.Itoa(cfg.Server.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	go func() {
		log.WithField("addr", addr).Info("djcomponentd listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithField("error", err).Fatal("http server failed")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
	case err := <-runErrCh:
		log.WithField("error", err).Error("ingestor stopped")
	}

	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	_ = srv.Shutdown(shutdownCtx)
}

// envelopeRequest is the JSON body accepted by POST /envelopes: the
// server-pushed equivalent of a newly observed DOM mutation.
type envelopeRequest struct {
	ClassID    string `json:"classId" binding:"required"`
	InstanceID string `json:"instanceId" binding:"required"`
	Envelope   string `json:"envelope" binding:"required"`
}

func newRouter(manager *djcomponent.Manager, h *host.MemHost) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(metrics.InstrumentHandler)

	router.POST("/envelopes", func(c *gin.Context) {
		var req envelopeRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		el := h.AddElement(req.ClassID, req.InstanceID)
		h.FeedEnvelope(el, req.Envelope)

		c.JSON(http.StatusAccepted, gin.H{"status": "accepted"})
	})

	router.GET("/metrics", gin.WrapH(metrics.Handler()))

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":      "ok",
			"queue_depth": manager.QueueDepth(),
		})
	})

	return router
}
