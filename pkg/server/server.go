package server

import (
	"context"
	"errors"
	"sync"

	"github.com/decred/slog"
	"github.com/vctt94/pokerreferee/pkg/contract"
	"github.com/vctt94/pokerreferee/pkg/logging"
	"golang.org/x/sync/errgroup"
)

// Server referees mental poker contracts.
type Server struct {
	log      slog.Logger
	ctrcLog  slog.Logger
	setlLog  slog.Logger
	eventLog slog.Logger
	dbLog    slog.Logger

	logBackend *logging.LogBackend
	cfg        Config
	db         Database
	sessions   SessionStore
	messenger  Messenger
	contracts  *ContractStore

	// Contract snapshot saving synchronization
	saveMutexes map[string]*sync.Mutex // contract key -> mutex for its saves
	saveMu      sync.Mutex             // protects saveMutexes map

	// WaitGroup to ensure all async save goroutines complete before Stop
	saveWg sync.WaitGroup

	eventProcessor *EventProcessor
}

// Result is the reply to a successful action.
type Result struct {
	Action     string                     `json:"action"`
	Phase      string                     `json:"phase,omitempty"`
	Contract   *contract.Contract         `json:"contract,omitempty"`
	Bet        *contract.BetResult        `json:"bet,omitempty"`
	Settlement *contract.SettlementReport `json:"settlement,omitempty"`
	TimedOut   []string                   `json:"timedOut,omitempty"`
}

// NewServer creates a referee and restores the live contracts stored in db.
func NewServer(db Database, sessions SessionStore, messenger Messenger,
	logBackend *logging.LogBackend, cfg Config) (*Server, error) {

	s := &Server{
		log:         logBackend.Logger("SRVR"),
		ctrcLog:     logBackend.Logger("CTRC"),
		setlLog:     logBackend.Logger("SETL"),
		eventLog:    logBackend.Logger("EVNT"),
		dbLog:       logBackend.Logger("DB"),
		logBackend:  logBackend,
		cfg:         cfg.withDefaults(),
		db:          db,
		sessions:    sessions,
		messenger:   messenger,
		contracts:   NewContractStore(),
		saveMutexes: make(map[string]*sync.Mutex),
	}

	s.eventProcessor = NewEventProcessor(s.eventLog, NewNotificationHandler(s),
		s.cfg.NotifyQueueSize, s.cfg.NotifyWorkers)
	s.eventProcessor.Start()

	if err := s.loadContracts(context.Background()); err != nil {
		s.eventProcessor.Stop()
		return nil, err
	}
	return s, nil
}

// Stop gracefully stops the server
func (s *Server) Stop() {
	if s.eventProcessor != nil {
		s.eventProcessor.Stop()
	}
	// Wait for any in-flight asynchronous saves to complete before returning.
	s.saveWg.Wait()
}

// Contract returns a copy of a stored contract.
func (s *Server) Contract(ref ContractRef) (*contract.Contract, error) {
	return s.contracts.Get(ref)
}

// Contracts returns copies of every contract owned by ownerPID.
func (s *Server) Contracts(ownerPID string) []*contract.Contract {
	return s.contracts.ByOwner(ownerPID)
}

// Dispatch authenticates and runs one raw action envelope.
func (s *Server) Dispatch(ctx context.Context, raw []byte) (*Result, error) {
	if s.messenger == nil || s.db == nil || s.sessions == nil {
		return nil, errInternal(nil, "server is missing a transport dependency")
	}
	env, err := ParseEnvelope(raw)
	if err != nil {
		return nil, err
	}
	pid, ok := s.sessions.Lookup(env.ServerToken, env.UserToken)
	if !ok {
		return nil, errDisallowed(ErrNoSession, "%s", env.Action)
	}
	req, err := env.Request()
	if err != nil {
		return nil, err
	}
	return s.Handle(ctx, pid, req)
}

// Handle runs a typed request on behalf of privateID.
func (s *Server) Handle(ctx context.Context, privateID string, req Request) (*Result, error) {
	if s.messenger == nil || s.db == nil {
		return nil, errInternal(nil, "server is missing a transport dependency")
	}
	s.log.Debugf("Action %s from %s", req.Action(), privateID)

	var (
		res *Result
		err error
	)
	switch r := req.(type) {
	case *NewContractRequest:
		res, err = s.handleNew(ctx, privateID, r)
	case *AgreeRequest:
		res, err = s.handleAgree(ctx, privateID, r)
	case *StoreRequest:
		res, err = s.handleStore(ctx, privateID, r)
	case *BetRequest:
		res, err = s.handleBet(ctx, privateID, r)
	case *TimeoutRequest:
		res, err = s.handleTimeout(ctx, privateID, r.ContractRef, false)
	default:
		return nil, errInvalidParams(nil, "unsupported request %T", req)
	}
	if err != nil {
		s.log.Debugf("Action %s from %s failed: %v", req.Action(), privateID, err)
		return nil, err
	}
	if res.Contract != nil {
		res.Phase = res.Contract.Phase()
	}
	return res, nil
}

// withContract runs fn under the contract's lock. Lookup failures are
// reported as disallowed actions.
func (s *Server) withContract(ref ContractRef, fn func(*contract.Contract) error) error {
	err := s.contracts.With(ref, fn)
	if errors.Is(err, ErrContractNotFound) {
		return errDisallowed(err, "unknown contract")
	}
	var e *Error
	if err != nil && !errors.As(err, &e) {
		return errInternal(err, "contract %s", ref.key())
	}
	return err
}

// snapshot copies c for a result.
func (s *Server) snapshot(c *contract.Contract) *contract.Contract {
	cp, err := c.Clone()
	if err != nil {
		s.log.Errorf("Failed to copy contract %s: %v", c.ContractID, err)
		return nil
	}
	return cp
}

// SweepTimeouts runs the timeout action as the server on every live
// contract and returns how many were terminated.
func (s *Server) SweepTimeouts(ctx context.Context) (int, error) {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.SweepParallelism)

	var (
		mu sync.Mutex
		n  int
	)
	for _, ref := range s.contracts.Live() {
		ref := ref
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			res, err := s.handleTimeout(gctx, "", ref, true)
			switch {
			case IsCode(err, CodeActionDisallowed):
				// Terminated since it was listed.
				return nil
			case err != nil:
				return err
			}
			if len(res.TimedOut) > 0 {
				mu.Lock()
				n++
				mu.Unlock()
			}
			return nil
		})
	}
	err := g.Wait()
	if n > 0 {
		s.log.Infof("Timeout sweep terminated %d contracts", n)
	}
	return n, err
}
