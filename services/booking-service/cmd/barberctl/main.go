// Command barberctl inspects and resets a booking service's appointment slot.
//
//	barberctl [flags] list|reset|health
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/md-rashed-zaman/barberbook/libs/config"
	"github.com/md-rashed-zaman/barberbook/libs/grpcx"
	"github.com/md-rashed-zaman/barberbook/libs/kv"
	"github.com/md-rashed-zaman/barberbook/libs/runtime"
	"github.com/md-rashed-zaman/barberbook/services/booking-service/internal/catalog"
	"github.com/md-rashed-zaman/barberbook/services/booking-service/internal/grpcserver"
	"github.com/md-rashed-zaman/barberbook/services/booking-service/internal/storage"
	"github.com/md-rashed-zaman/barberbook/services/booking-service/internal/validation"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

type options struct {
	backend       string
	slot          string
	dir           string
	redisAddr     string
	redisPassword string
	redisDB       int
	databaseURL   string
	grpcAddr      string
	timeout       time.Duration
}

// parseArgs reads flags, falling back to the same environment variables the
// service uses, and returns the single command argument.
func parseArgs(args []string, stderr io.Writer) (options, string, error) {
	var o options
	redisDB, err := config.Int("REDIS_DB", 0)
	if err != nil {
		return o, "", err
	}
	fs := flag.NewFlagSet("barberctl", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&o.backend, "backend", config.String("STORE_BACKEND", kv.BackendFile), "slot backend: memory|file|redis|postgres")
	fs.StringVar(&o.slot, "slot", config.String("STORE_SLOT", storage.DefaultSlot), "slot key")
	fs.StringVar(&o.dir, "dir", config.String("STORE_FILE_DIR", "./data"), "directory for the file backend")
	fs.StringVar(&o.redisAddr, "redis-addr", config.String("REDIS_ADDR", ""), "redis address")
	fs.StringVar(&o.redisPassword, "redis-password", config.String("REDIS_PASSWORD", ""), "redis password")
	fs.IntVar(&o.redisDB, "redis-db", redisDB, "redis database number")
	fs.StringVar(&o.databaseURL, "database-url", config.String("DATABASE_URL", ""), "postgres url")
	fs.StringVar(&o.grpcAddr, "grpc-addr", config.String("BOOKING_GRPC_ADDR", "localhost:9093"), "booking service gRPC address")
	fs.DurationVar(&o.timeout, "timeout", 10*time.Second, "overall command timeout")
	if err := fs.Parse(args); err != nil {
		return o, "", err
	}
	if fs.NArg() != 1 {
		return o, "", errors.New("usage: barberctl [flags] list|reset|health")
	}
	return o, fs.Arg(0), nil
}

// kvConfig mirrors the booking service's backend configuration.
func (o options) kvConfig() kv.Config {
	return kv.Config{
		Backend:       o.backend,
		Dir:           o.dir,
		RedisAddr:     o.redisAddr,
		RedisPassword: o.redisPassword,
		RedisDB:       o.redisDB,
		DatabaseURL:   o.databaseURL,
	}
}

func main() {
	_ = config.LoadDotEnv()
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	o, cmd, err := parseArgs(args, stderr)
	if err != nil {
		if !errors.Is(err, flag.ErrHelp) {
			fmt.Fprintln(stderr, err)
		}
		return 2
	}

	ctx, stop := runtime.SignalContext()
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	switch cmd {
	case "list":
		err = withStore(ctx, o, func(s *storage.Store) error { return list(ctx, s, stdout) })
	case "reset":
		err = withStore(ctx, o, func(s *storage.Store) error {
			if err := s.Clear(ctx); err != nil {
				return err
			}
			fmt.Fprintf(stdout, "cleared slot %s\n", o.slot)
			return nil
		})
	case "health":
		err = health(ctx, o.grpcAddr, stdout)
	default:
		fmt.Fprintf(stderr, "unknown command %q\n", cmd)
		return 2
	}
	if err != nil {
		fmt.Fprintln(stderr, "error:", err)
		return 1
	}
	return 0
}

func withStore(ctx context.Context, o options, fn func(*storage.Store) error) error {
	backend, err := kv.Open(ctx, o.kvConfig())
	if err != nil {
		return err
	}
	defer backend.Close()
	logger := runtime.NewLogger("barberctl", config.String("LOG_LEVEL", "error"))
	return fn(storage.New(backend, storage.WithSlot(o.slot), storage.WithLogger(logger)))
}

func list(ctx context.Context, s *storage.Store, out io.Writer) error {
	appts, err := s.ListRecent(ctx)
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tCLIENT\tDATE\tTIME\tSERVICE\tCREATED")
	for _, a := range appts {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			a.ID, a.ClientName, validation.FormatDate(a.Date), validation.FormatTime(a.Time),
			catalog.ServiceLabel(a.Service), a.CreatedAt.Local().Format(time.DateTime))
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(out, "%d appointment(s)\n", len(appts))
	return nil
}

func health(ctx context.Context, addr string, out io.Writer) error {
	conn, err := grpcx.NewClient(addr, nil)
	if err != nil {
		return err
	}
	defer conn.Close()
	resp, err := healthpb.NewHealthClient(conn).Check(ctx, &healthpb.HealthCheckRequest{Service: grpcserver.ServiceName})
	if err != nil {
		return err
	}
	fmt.Fprintln(out, resp.GetStatus().String())
	if resp.GetStatus() != healthpb.HealthCheckResponse_SERVING {
		return fmt.Errorf("%s is %s", addr, resp.GetStatus())
	}
	return nil
}
