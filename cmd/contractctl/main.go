package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/decred/slog"
	"github.com/joho/godotenv"
	_ "github.com/mattn/go-sqlite3"
	"github.com/vctt94/pokerreferee/pkg/contract"
	"github.com/vctt94/pokerreferee/pkg/logging"
	"github.com/vctt94/pokerreferee/pkg/server"
	"github.com/vctt94/pokerreferee/pkg/utils"
)

// accountSeed is one entry of the -accounts file.
type accountSeed struct {
	Address  string          `json:"address"`
	Type     string          `json:"type"`
	Network  string          `json:"network"`
	Balance  contract.Amount `json:"balance"`
	Password string          `json:"password"`
}

// replayLine is one line of the -replay file.
type replayLine struct {
	PrivateID string          `json:"privateID"`
	Request   json.RawMessage `json:"request"`
}

// output serializes the JSON lines written to stdout.
type output struct {
	mu  sync.Mutex
	enc *json.Encoder
}

func (o *output) write(v interface{}) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.enc.Encode(v)
}

// stdoutMessenger prints notifications instead of delivering them.
type stdoutMessenger struct {
	out *output
}

func (m *stdoutMessenger) Send(ctx context.Context, pid string, n *server.Notification) error {
	m.out.write(map[string]interface{}{"to": pid, "notification": n})
	return nil
}

type options struct {
	datadir      string
	dbPath       string
	debugLevel   string
	logFile      string
	replay       string
	accounts     string
	sweep        time.Duration
	timeout      time.Duration
	maxContracts int
}

func parseOptions() (*options, error) {
	// A missing .env is fine.
	_ = godotenv.Load()

	home, _ := os.UserHomeDir()
	defDatadir := utils.EnvString("REFEREE_DATADIR", filepath.Join(home, ".pokerreferee"))
	defTimeout, err := utils.EnvDuration("REFEREE_TIMEOUT", 30*time.Second)
	if err != nil {
		return nil, err
	}
	defSweep, err := utils.EnvDuration("REFEREE_SWEEP", 0)
	if err != nil {
		return nil, err
	}
	defMax, err := utils.EnvInt("REFEREE_MAXCONTRACTS", 10)
	if err != nil {
		return nil, err
	}

	o := &options{}
	flag.StringVar(&o.datadir, "datadir", defDatadir, "Directory for the database and logs")
	flag.StringVar(&o.dbPath, "db", utils.EnvString("REFEREE_DB", ""), "Path to SQLite database file (default <datadir>/referee.sqlite)")
	flag.StringVar(&o.debugLevel, "debuglevel", utils.EnvString("REFEREE_DEBUGLEVEL", "info"), "Logging level: trace, debug, info, warn, error")
	flag.StringVar(&o.logFile, "logfile", utils.EnvString("REFEREE_LOGFILE", ""), "Log file (default <datadir>/logs/referee.log)")
	flag.StringVar(&o.replay, "replay", utils.EnvString("REFEREE_REPLAY", ""), "File of JSON action lines to run, - for stdin")
	flag.StringVar(&o.accounts, "accounts", utils.EnvString("REFEREE_ACCOUNTS", ""), "JSON file of accounts to create if missing")
	flag.DurationVar(&o.sweep, "sweep", defSweep, "Run the timeout sweep at this interval until interrupted (0 disables)")
	flag.DurationVar(&o.timeout, "timeout", defTimeout, "Inactivity limit for tables without their own timeout")
	flag.IntVar(&o.maxContracts, "maxcontracts", defMax, "Open contracts an owner may already hold when creating one")
	flag.Parse()

	if o.dbPath == "" {
		o.dbPath = filepath.Join(o.datadir, "referee.sqlite")
	}
	if o.logFile == "" {
		o.logFile = filepath.Join(o.datadir, "logs", "referee.log")
	}
	return o, nil
}

func seedAccounts(ctx context.Context, db server.Database, path string, log slog.Logger) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	var seeds []accountSeed
	if err := json.Unmarshal(data, &seeds); err != nil {
		return fmt.Errorf("accounts file %s: %w", path, err)
	}
	for _, s := range seeds {
		_, err := db.GetAccount(ctx, server.AccountQuery{Address: s.Address}, false)
		switch {
		case err == nil:
			log.Debugf("Account %s already exists", s.Address)
			continue
		case !errors.Is(err, server.ErrAccountNotFound):
			return err
		}
		acct := &server.Account{Address: s.Address, Type: s.Type, Network: s.Network, Balance: s.Balance}
		if err := db.CreateAccount(ctx, acct, s.Password); err != nil {
			return fmt.Errorf("account %s: %w", s.Address, err)
		}
		log.Infof("Created account %s (%s/%s) with balance %s", s.Address, s.Type, s.Network, s.Balance)
	}
	return nil
}

// replay runs every line of r as an action of its private ID and prints
// the result or error of each one.
func replay(ctx context.Context, srv *server.Server, sessions *server.MemorySessions, r io.Reader, out *output) error {
	open := make(map[string]server.Session)
	defer func() {
		for _, s := range open {
			sessions.Close(s)
		}
	}()

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for n := 1; sc.Scan(); n++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		raw := sc.Bytes()
		if len(raw) == 0 {
			continue
		}
		var line replayLine
		if err := json.Unmarshal(raw, &line); err != nil {
			return fmt.Errorf("line %d: %w", n, err)
		}

		sess, ok := open[line.PrivateID]
		if !ok {
			var err error
			if sess, err = sessions.Open(line.PrivateID); err != nil {
				return err
			}
			open[line.PrivateID] = sess
		}

		var env map[string]interface{}
		if err := json.Unmarshal(line.Request, &env); err != nil {
			return fmt.Errorf("line %d: request: %w", n, err)
		}
		env["server_token"] = sess.ServerToken
		env["user_token"] = sess.UserToken
		req, err := json.Marshal(env)
		if err != nil {
			return err
		}

		res, err := srv.Dispatch(ctx, req)
		if err != nil {
			var serr *server.Error
			if !errors.As(err, &serr) {
				serr = &server.Error{Code: server.CodeInternal, Message: err.Error()}
			}
			out.write(map[string]interface{}{"line": n, "error": map[string]interface{}{
				"code":    serr.Code,
				"message": serr.Message,
				"data":    serr.Data,
			}})
			continue
		}
		out.write(map[string]interface{}{"line": n, "result": res})
	}
	return sc.Err()
}

func sweepLoop(ctx context.Context, srv *server.Server, every time.Duration, log slog.Logger) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := srv.SweepTimeouts(ctx); err != nil && ctx.Err() == nil {
				log.Errorf("Timeout sweep failed: %v", err)
			}
		}
	}
}

func run() error {
	o, err := parseOptions()
	if err != nil {
		return err
	}
	if err := utils.EnsureDataDirExists(o.datadir); err != nil {
		return err
	}

	logBackend, err := logging.NewLogBackend(logging.LogConfig{
		LogFile:     o.logFile,
		DebugLevel:  o.debugLevel,
		MaxLogFiles: 10,
		MaxBufferKB: 1024,
	})
	if err != nil {
		return fmt.Errorf("failed to create log backend: %v", err)
	}
	defer logBackend.Close()
	log := logBackend.Logger("CTL")

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	db, err := server.NewDatabase(o.dbPath)
	if err != nil {
		return fmt.Errorf("failed to init db: %v", err)
	}
	defer db.Close()

	if o.accounts != "" {
		if err := seedAccounts(ctx, db, o.accounts, log); err != nil {
			return err
		}
	}

	out := &output{enc: json.NewEncoder(os.Stdout)}
	sessions := server.NewMemorySessions()
	cfg := server.DefaultConfig()
	cfg.DefaultTimeout = o.timeout
	cfg.MaxOpenContracts = o.maxContracts

	srv, err := server.NewServer(db, sessions, &stdoutMessenger{out: out}, logBackend, cfg)
	if err != nil {
		return err
	}
	defer srv.Stop()

	if o.replay != "" {
		r := io.Reader(os.Stdin)
		if o.replay != "-" {
			f, err := os.Open(o.replay)
			if err != nil {
				return err
			}
			defer f.Close()
			r = f
		}
		if err := replay(ctx, srv, sessions, r, out); err != nil {
			return fmt.Errorf("replay: %w", err)
		}
	}

	if o.sweep > 0 {
		log.Infof("Sweeping for timed out players every %v", o.sweep)
		sweepLoop(ctx, srv, o.sweep, log)
	}
	return nil
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "contractctl: %v\n", err)
		os.Exit(1)
	}
}
