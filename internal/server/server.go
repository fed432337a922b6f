package server

import (
	"fmt"
	"net/http"
	"time"

	"github.com/CreasolTech/pzem2mqtt/internal/config"

	"github.com/asynkron/protoactor-go/actor"
	_ "github.com/joho/godotenv/autoload"
	"go.uber.org/zap"
)

// requests to the master are answered well within this
const MASTER_REQUEST_TIMEOUT = 3 * time.Second

// Server exposes the health and poll status of the master actor over http.
type Server struct {
	httpLog     bool
	rootContext *actor.RootContext
	masterActor *actor.PID
	logger      *zap.Logger
}

func NewServer(cfg config.Config, rootContext *actor.RootContext, masterActor *actor.PID, logger *zap.Logger) *http.Server {
	s := &Server{
		httpLog:     cfg.HttpLog,
		rootContext: rootContext,
		masterActor: masterActor,
		logger:      logger.With(zap.String("component", "http")),
	}
	return &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      s.RegisterRoutes(),
		IdleTimeout:  time.Minute,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
}

func (s *Server) askMaster(msg any) (any, error) {
	return s.rootContext.RequestFuture(s.masterActor, msg, MASTER_REQUEST_TIMEOUT).Result()
}
