// Package retention prunes aged execution and chat history on a cron
// schedule. The engine treats the newest execution row as the cooldown
// reference, so pruning only ever removes rows older than any active
// cooldown could reach.
package retention

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"

	"showrunner/internal/catalog"
	"showrunner/pkg/logx"
)

type Config struct {
	Enabled  bool
	Schedule string // cron spec; empty means nightly
	MaxAge   time.Duration
}

type Service struct {
	cfg   Config
	store *catalog.Store
	log   logx.Logger
	c     *cron.Cron
}

func New(cfg Config, store *catalog.Store, log logx.Logger) *Service {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Service{cfg: cfg, store: store, log: log}
}

func (s *Service) Start() error {
	if !s.cfg.Enabled || s.store == nil {
		return nil
	}
	spec := s.cfg.Schedule
	if spec == "" {
		spec = "30 4 * * *"
	}
	s.c = cron.New()
	_, err := s.c.AddFunc(spec, s.prune)
	if err != nil {
		return err
	}
	s.c.Start()
	s.log.Info("retention started", logx.String("schedule", spec), logx.Duration("max_age", s.cfg.MaxAge))
	return nil
}

func (s *Service) Stop() {
	if s.c != nil {
		<-s.c.Stop().Done()
		s.c = nil
	}
}

func (s *Service) prune() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	cutoff := time.Now().Add(-s.cfg.MaxAge)
	execs, err := s.store.DeleteExecutionsBefore(ctx, cutoff)
	if err != nil {
		s.log.Warn("execution prune failed", logx.Err(err))
	}
	chats, err := s.store.DeleteChatMessagesBefore(ctx, cutoff)
	if err != nil {
		s.log.Warn("chat prune failed", logx.Err(err))
	}
	s.log.Info("retention pruned", logx.Int64("executions", execs), logx.Int64("chat_messages", chats), logx.Time("cutoff", cutoff))
}
