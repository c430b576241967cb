// Package settlement consolidates every wallet address's unspent outputs
// into the collection address once a month.
package settlement

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"feedgate/internal/interfaces"
	"feedgate/internal/metrics"
	"feedgate/internal/models"

	"github.com/benbjohnson/clock"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

type Stage string

const (
	StageCollect   Stage = "collect"
	StageBuild     Stage = "build"
	StageSign      Stage = "sign"
	StageBroadcast Stage = "broadcast"
)

type Outcome string

const (
	// OutcomeIdle means no address held any unspent output.
	OutcomeIdle Outcome = "idle"
	// OutcomeBelowFee means the batch total did not exceed the network fee.
	// No transaction is built, so the node never gets to reject it and the
	// cycle is not counted as failed.
	OutcomeBelowFee  Outcome = "below_fee"
	OutcomeBroadcast Outcome = "broadcast"
	OutcomeFailed    Outcome = "failed"
)

// Config holds the fixed settlement parameters.
type Config struct {
	Destination string
	Fee         btcutil.Amount
	Concurrency int
	Location    *time.Location
}

// Batch is every unspent output found during one cycle.
type Batch struct {
	UTXOs []models.UTXO
	Total btcutil.Amount
}

type builtTx struct {
	batch Batch
	hex   string
}

type signedTx struct {
	batch Batch
	hex   string
}

// Result describes how one cycle ended. Stage is set only on failure.
type Result struct {
	Cycle   uint64
	Outcome Outcome
	Stage   Stage
	Inputs  int
	Total   btcutil.Amount
	TxID    string
	Err     error
}

// Status is a snapshot for readiness reporting.
type Status struct {
	Cycles      uint64    `json:"cycles"`
	LastRun     time.Time `json:"last_run,omitempty"`
	LastOutcome Outcome   `json:"last_outcome,omitempty"`
	LastError   string    `json:"last_error,omitempty"`
	NextRun     time.Time `json:"next_run"`
}

// Sweeper runs the collect, build, sign and broadcast pipeline.
type Sweeper struct {
	wallet  interfaces.SettlementWallet
	cfg     Config
	emitter interfaces.EventEmitter
	clock   clock.Clock
	logger  *zerolog.Logger

	cycles atomic.Uint64
	mu     sync.RWMutex
	status Status
}

// NewSweeper wires a sweeper. emitter may be nil.
func NewSweeper(wallet interfaces.SettlementWallet, cfg Config, emitter interfaces.EventEmitter, clk clock.Clock, logger *zerolog.Logger) *Sweeper {
	if cfg.Concurrency < 1 {
		cfg.Concurrency = 1
	}
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	if clk == nil {
		clk = clock.New()
	}
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}

	return &Sweeper{
		wallet:  wallet,
		cfg:     cfg,
		emitter: emitter,
		clock:   clk,
		logger:  logger,
	}
}

// Run sleeps until each cycle instant and runs one cycle, until ctx is
// cancelled. A failed cycle never stops the loop.
func (s *Sweeper) Run(ctx context.Context) error {
	s.logger.Info().
		Str("destination", s.cfg.Destination).
		Str("fee", s.cfg.Fee.String()).
		Msg("Starting settlement sweeper")

	for {
		now := s.clock.Now()
		next := NextCycle(now, s.cfg.Location)
		timer := s.clock.Timer(next.Sub(now))
		s.setNext(next)

		s.logger.Info().Time("next", next).Msg("Settlement cycle scheduled")

		select {
		case <-ctx.Done():
			timer.Stop()
			s.logger.Info().Msg("Shutting down settlement sweeper")
			return nil
		case <-timer.C:
		}

		s.RunCycle(ctx)
	}
}

// RunCycle executes one settlement cycle and reports its outcome.
func (s *Sweeper) RunCycle(ctx context.Context) (res Result) {
	res.Cycle = s.cycles.Add(1)
	defer func() {
		if r := recover(); r != nil {
			res.Outcome = OutcomeFailed
			res.Err = fmt.Errorf("settlement cycle panicked: %v", r)
		}
		s.safeReport(ctx, res)
	}()

	batch, err := s.collect(ctx)
	if err != nil {
		return s.failed(res, StageCollect, err)
	}
	res.Inputs = len(batch.UTXOs)
	res.Total = batch.Total

	if len(batch.UTXOs) == 0 {
		res.Outcome = OutcomeIdle
		return res
	}
	if batch.Total <= s.cfg.Fee {
		res.Outcome = OutcomeBelowFee
		return res
	}

	built, err := s.build(ctx, batch)
	if err != nil {
		return s.failed(res, StageBuild, err)
	}

	signed, err := s.sign(ctx, built)
	if err != nil {
		return s.failed(res, StageSign, err)
	}

	txid, err := s.broadcast(ctx, signed)
	if err != nil {
		return s.failed(res, StageBroadcast, err)
	}

	res.Outcome = OutcomeBroadcast
	res.TxID = txid
	return res
}

// collect gathers the unspent outputs of every known address. Addresses
// whose query fails are skipped; their funds are picked up next cycle.
func (s *Sweeper) collect(ctx context.Context) (Batch, error) {
	addrs, err := s.wallet.ListAddresses(ctx)
	if err != nil {
		return Batch{}, fmt.Errorf("list addresses: %w", err)
	}
	addrs = append([]string(nil), addrs...)
	sort.Strings(addrs)

	perAddr := make([][]models.UTXO, len(addrs))
	var g errgroup.Group
	g.SetLimit(s.cfg.Concurrency)
	for i, addr := range addrs {
		i, addr := i, addr
		g.Go(func() error {
			utxos, err := s.wallet.ListUnspent(ctx, addr)
			if err != nil {
				s.logger.Warn().
					Err(err).
					Str("address", addr).
					Msg("Skipping address this cycle")
				return nil
			}
			perAddr[i] = utxos
			return nil
		})
	}
	_ = g.Wait()

	var batch Batch
	for _, utxos := range perAddr {
		for _, u := range utxos {
			batch.UTXOs = append(batch.UTXOs, u)
			batch.Total += u.Amount
		}
	}

	return batch, nil
}

func (s *Sweeper) build(ctx context.Context, batch Batch) (builtTx, error) {
	outputs := map[string]btcutil.Amount{s.cfg.Destination: batch.Total - s.cfg.Fee}

	txHex, err := s.wallet.CreateRawTransaction(ctx, batch.UTXOs, outputs)
	if err != nil {
		return builtTx{}, err
	}
	return builtTx{batch: batch, hex: txHex}, nil
}

func (s *Sweeper) sign(ctx context.Context, tx builtTx) (signedTx, error) {
	signedHex, err := s.wallet.SignTransaction(ctx, tx.hex)
	if err != nil {
		return signedTx{}, err
	}
	return signedTx{batch: tx.batch, hex: signedHex}, nil
}

func (s *Sweeper) broadcast(ctx context.Context, tx signedTx) (string, error) {
	return s.wallet.SendRawTransaction(ctx, tx.hex)
}

func (s *Sweeper) failed(res Result, stage Stage, err error) Result {
	res.Outcome = OutcomeFailed
	res.Stage = stage
	res.Err = err
	return res
}

// safeReport keeps a panicking emitter from taking down the run loop.
func (s *Sweeper) safeReport(ctx context.Context, res Result) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error().
				Interface("panic", r).
				Uint64("cycle", res.Cycle).
				Msg("Settlement report panicked")
		}
	}()
	s.report(ctx, res)
}

func (s *Sweeper) report(ctx context.Context, res Result) {
	now := s.clock.Now()
	metrics.SweepCycles.WithLabelValues(string(res.Outcome)).Inc()

	event := models.SettlementEvent{
		Cycle:       res.Cycle,
		Outcome:     string(res.Outcome),
		Stage:       string(res.Stage),
		Inputs:      res.Inputs,
		Total:       res.Total,
		Fee:         s.cfg.Fee,
		Destination: s.cfg.Destination,
		TxID:        res.TxID,
		Timestamp:   now,
	}

	logEvent := s.logger.Info()
	if res.Err != nil {
		event.Error = res.Err.Error()
		logEvent = s.logger.Error().Err(res.Err).Str("stage", string(res.Stage))
	}
	logEvent.
		Uint64("cycle", res.Cycle).
		Str("outcome", string(res.Outcome)).
		Int("inputs", res.Inputs).
		Str("total", res.Total.String()).
		Str("txid", res.TxID).
		Msg("Settlement cycle finished")

	if res.Outcome == OutcomeBroadcast {
		metrics.SweptSatoshis.Add(float64(res.Total - s.cfg.Fee))
	}

	s.mu.Lock()
	s.status.Cycles = res.Cycle
	s.status.LastRun = now
	s.status.LastOutcome = res.Outcome
	s.status.LastError = event.Error
	s.mu.Unlock()

	if s.emitter != nil {
		if err := s.emitter.EmitEvent(ctx, event); err != nil {
			s.logger.Error().
				Err(err).
				Uint64("cycle", res.Cycle).
				Msg("Failed to emit settlement event")
		}
	}
}

func (s *Sweeper) setNext(next time.Time) {
	metrics.NextSweep.Set(float64(next.Unix()))

	s.mu.Lock()
	s.status.NextRun = next
	s.mu.Unlock()
}

// Status returns the latest cycle snapshot.
func (s *Sweeper) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status
}
