package autoscaler

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/dominik-hvln/hv-hosting-platform/internal/config"
	"gorm.io/gorm"
)

// Service runs periodic autoscaling sweeps in the background
type Service struct {
	db           *gorm.DB
	cfg          *config.Config
	orchestrator *Orchestrator

	interval time.Duration
	stopChan chan struct{}
	wg       sync.WaitGroup
	running  bool
	mu       sync.Mutex
}

// NewService creates the sweep service. The interval comes from config and
// is fixed for the process lifetime; thresholds, steps and rates are
// re-read from settings before every sweep.
func NewService(db *gorm.DB, cfg *config.Config, orchestrator *Orchestrator) *Service {
	interval := time.Duration(cfg.SweepIntervalMin) * time.Minute
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	return &Service{
		db:           db,
		cfg:          cfg,
		orchestrator: orchestrator,
		interval:     interval,
		stopChan:     make(chan struct{}),
	}
}

// Start launches the background sweep loop
func (s *Service) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return
	}
	s.running = true

	s.wg.Add(1)
	go s.run()
	log.Printf("Autoscaler service started (interval: %v)", s.interval)
}

// Stop signals the loop to exit and waits for an in-flight sweep to finish
func (s *Service) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	s.mu.Unlock()

	close(s.stopChan)
	s.wg.Wait()
	log.Println("Autoscaler service stopped")
}

func (s *Service) run() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.sweep()
		case <-s.stopChan:
			return
		}
	}
}

func (s *Service) sweep() {
	policy := LoadPolicy(s.db, s.cfg)

	// The sweep context bounds the whole pass; individual scaling operations
	// run to completion on their own timeouts.
	ctx, cancel := context.WithTimeout(context.Background(), s.interval)
	defer cancel()

	if _, err := s.orchestrator.SweepAll(ctx, policy, false); err != nil {
		log.Printf("Autoscaler: sweep error: %v", err)
	}
}
