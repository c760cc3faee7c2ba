package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"

	"github.com/dustin/go-humanize"
	"github.com/polydawn/refmt"
	"github.com/polydawn/refmt/json"
	"github.com/prometheus/client_golang/prometheus"
	. "github.com/warpfork/go-errcat"
	"go.uber.org/zap"
	"gopkg.in/alecthomas/kingpin.v2"

	"github.com/polydawn/tagfs"
	"github.com/polydawn/tagfs/caps"
	"github.com/polydawn/tagfs/config"
	hostfuse "github.com/polydawn/tagfs/host/fuse"
	"github.com/polydawn/tagfs/logging"
	"github.com/polydawn/tagfs/metrics"
	"github.com/polydawn/tagfs/projection"
	"github.com/polydawn/tagfs/repository/git"
)

/*
	Output serialization formats
*/
const (
	FmtJson = "json"
	FmtDumb = "dumb"
)

type baseCLI struct {
	Repository  string // Repository path (dir, bare dir, or archive)
	Mountpoint  string // Where to mount the projection
	Format      string // Output api format, eg. json
	LogLevel    string // Minimum log level
	MetricsAddr string // Listen address for /metrics; empty for none
	AllowOther  bool   // Let other users see the mount
}

/*
	Blocks until a sigint is received, then calls cancel.
*/
func CancelOnInterrupt(ctx context.Context, cancel context.CancelFunc) {
	signalChan := make(chan os.Signal, 1)
	signal.Notify(signalChan, os.Interrupt)
	defer signal.Stop(signalChan)
	select {
	case <-signalChan:
		cancel()
	case <-ctx.Done():
	}
}

func main() {
	ctx := context.Background()
	exitCode := Main(ctx, os.Args, os.Stdin, os.Stdout, os.Stderr)
	os.Exit(int(exitCode))
}

func Main(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) tagfs.ExitCode {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go CancelOnInterrupt(ctx, cancel)

	cli := baseCLI{}

	app := kingpin.New("tagfs", "Project the tags of a git repository as a read-only filesystem")
	app.HelpFlag.Short('h')

	app.UsageWriter(stderr)
	app.ErrorWriter(stderr)

	app.Arg("repository", "Repository to project: a working tree, a bare repository, or a tarball of either").
		Required().
		StringVar(&cli.Repository)
	app.Flag("mountpoint", "Directory to mount the projection at").
		Default(config.GetMountPath()).
		StringVar(&cli.Mountpoint)
	app.Flag("format", "Output api format").
		Default(FmtDumb).
		EnumVar(&cli.Format, FmtJson, FmtDumb)
	app.Flag("log-level", "Minimum log level [debug, info, warn, error]").
		Default(config.GetLogLevel()).
		StringVar(&cli.LogLevel)
	app.Flag("metrics-addr", "Serve prometheus metrics at this address").
		Default(config.GetMetricsAddr()).
		StringVar(&cli.MetricsAddr)
	app.Flag("allow-other", "Allow other users to access the mount").
		BoolVar(&cli.AllowOther)

	var termErr error
	app.Terminate(func(status int) {
		termErr = fmt.Errorf("parsing error: %d\n", status)
	})
	_, err := app.Parse(args[1:])
	if err != nil {
		fmt.Fprintf(stderr, "tagfs: error: %s\n\n", err)
		app.Usage(nil)
		return tagfs.ExitUsage
	}
	if termErr != nil {
		fmt.Fprintln(stderr, termErr)
		return tagfs.ExitUsage
	}

	logFormat := "console"
	if cli.Format == FmtJson {
		logFormat = "json"
	}
	log, err := logging.New(logging.Config{Level: cli.LogLevel, Format: logFormat})
	if err != nil {
		err = Errorf(tagfs.ErrUsage, "cannot set up logging: %s", err)
		SerializeResult(cli.Format, err, stdout, stderr)
		return exitCodeFor(err)
	}
	defer log.Sync()

	err = serve(ctx, cli, log, stdin, stdout)
	SerializeResult(cli.Format, err, stdout, stderr)
	return exitCodeFor(err)
}

/*
	Open the repository, mount it, report readiness, and block until
	told to stop; then unmount.
*/
func serve(ctx context.Context, cli baseCLI, log *zap.Logger, stdin io.Reader, stdout io.Writer) error {
	if cli.AllowOther && !caps.Scan().CanAllowOther() {
		return Errorf(tagfs.ErrUsage, "--allow-other needs root, CAP_SYS_ADMIN, or user_allow_other in /etc/fuse.conf")
	}
	repo, err := git.Open(cli.Repository)
	if err != nil {
		return err
	}
	tags, err := repo.Tags()
	if err != nil {
		return Errorf(tagfs.ErrRepositoryUnavailable, "cannot list tags: %s", err)
	}

	reg := prometheus.NewRegistry()
	engine := projection.New(repo,
		projection.WithSeparator('/'),
		projection.WithCaseSensitiveNames(),
		projection.WithLogger(log),
		projection.WithMetrics(metrics.New(reg)),
	)
	if cli.MetricsAddr != "" {
		metricsServer := &http.Server{Addr: cli.MetricsAddr, Handler: metricsMux(reg)}
		go func() {
			if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Error("metrics endpoint failed", zap.String("addr", cli.MetricsAddr), logging.Err(err))
			}
		}()
		defer metricsServer.Close()
	}

	server, err := hostfuse.Mount(hostfuse.Options{
		Mountpoint: cli.Mountpoint,
		Engine:     engine,
		AllowOther: cli.AllowOther,
		Logger:     log,
	})
	if err != nil {
		return err
	}
	defer func() {
		if err := server.Unmount(); err != nil {
			log.Error("unmount failed", zap.String("mountpoint", cli.Mountpoint), logging.Err(err))
		}
	}()

	SerializeReady(cli.Format, tagfs.Event_Ready{
		Repository: repo.Addr(),
		Mountpoint: cli.Mountpoint,
		Tags:       len(tags),
	}, stdout)
	waitForStop(ctx, stdin)
	log.Info("stopping", zap.Int("sessionsOpen", engine.OpenSessions()))
	return nil
}

// Returns on a line (or EOF) from stdin, or when the context is cancelled.
func waitForStop(ctx context.Context, stdin io.Reader) {
	entered := make(chan struct{})
	go func() {
		bufio.NewReader(stdin).ReadString('\n')
		close(entered)
	}()
	select {
	case <-entered:
	case <-ctx.Done():
	}
}

func metricsMux(reg *prometheus.Registry) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler(reg))
	return mux
}

func exitCodeFor(err error) tagfs.ExitCode {
	switch Category(err) {
	case nil:
		return tagfs.ExitSuccess
	case tagfs.ErrUsage:
		return tagfs.ExitUsage
	case tagfs.ErrRepositoryUnavailable:
		return tagfs.ExitRepositoryUnavailable
	default:
		return tagfs.ExitMountFailed
	}
}

func SerializeReady(format string, ready tagfs.Event_Ready, stdout io.Writer) {
	switch format {
	case FmtJson:
		marshaller := refmt.NewMarshallerAtlased(json.EncodeOptions{}, stdout, tagfs.Atlas)
		if err := marshaller.Marshal(&tagfs.Event{Ready: &ready}); err != nil {
			panic(err)
		}
		fmt.Fprintln(stdout)
	case FmtDumb:
		fmt.Fprintf(stdout, "Projecting %s tags of %s at %s\n", humanize.Comma(int64(ready.Tags)), ready.Repository, ready.Mountpoint)
		fmt.Fprintln(stdout, "Press ENTER to stop!")
	default:
		panic(fmt.Errorf("tagfs: invalid format %s", format))
	}
}

func SerializeResult(format string, resultErr error, stdout io.Writer, stderr io.Writer) {
	result := &tagfs.Event_Result{}
	result.SetError(resultErr)
	ev := tagfs.Event{Result: result}
	switch format {
	case FmtJson:
		marshaller := refmt.NewMarshallerAtlased(json.EncodeOptions{}, stdout, tagfs.Atlas)
		err := marshaller.Marshal(&ev)
		if err != nil {
			panic(err)
		}
		fmt.Fprintln(stdout)
	case FmtDumb:
		if resultErr != nil {
			fmt.Fprintln(stderr, resultErr)
		}
	default:
		panic(fmt.Errorf("tagfs: invalid format %s", format))
	}
}
