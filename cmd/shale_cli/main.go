// Command shale_cli is the interactive shell for a ShaleDB database file.
// Statements are read one per line; dot commands control the session.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/chzyer/readline"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/shaledb/shale/core/engine"
	"github.com/shaledb/shale/core/query"
	"github.com/shaledb/shale/core/storage/page"
	internaltelemetry "github.com/shaledb/shale/internal/telemetry"
	"github.com/shaledb/shale/pkg/logger"
	"github.com/shaledb/shale/pkg/telemetry"
)

var (
	dbPath    = flag.String("db", "shale.db", "Path to the database file")
	logLevel  = flag.String("log_level", "warn", "Log level: debug, info, warn, error")
	logFormat = flag.String("log_format", "console", "Log format: console or json")
	logFile   = flag.String("log_file", "", "Log destination (default stderr)")
	noSync    = flag.Bool("no_sync", false, "Skip fsync after page writes (faster, less durable)")
)

func main() {
	flag.Parse()

	zlogger, err := logger.New(logger.Config{
		Level:      *logLevel,
		Format:     *logFormat,
		OutputFile: *logFile,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer zlogger.Sync()

	tel, shutdown, err := telemetry.New(telemetry.Config{
		Enabled:          true,
		ServiceName:      "shaledb_cli",
		TraceSampleRatio: 1.0,
	})
	if err != nil {
		zlogger.Fatal("Failed to initialize telemetry", zap.Error(err))
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdown(ctx); err != nil {
			zlogger.Warn("Telemetry shutdown failed", zap.Error(err))
		}
	}()

	metrics, err := internaltelemetry.NewEngineMetrics(tel.Meter)
	if err != nil {
		zlogger.Fatal("Failed to create engine metrics", zap.Error(err))
	}

	eng, err := engine.Open(*dbPath, engine.Config{
		Logger:  zlogger,
		Metrics: metrics,
		NoSync:  *noSync,
	})
	if err != nil {
		zlogger.Fatal("Failed to open database", zap.String("path", *dbPath), zap.Error(err))
	}
	defer func() {
		if err := eng.Close(); err != nil {
			zlogger.Error("Failed to close database", zap.Error(err))
		}
	}()

	exec := query.NewExecutor(eng, zlogger, metrics)

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "shale> ",
		HistoryFile:     filepath.Join(os.TempDir(), ".shale_history"),
		InterruptPrompt: "^C",
		EOFPrompt:       ".exit",
	})
	if err != nil {
		zlogger.Fatal("Failed to initialize line reader", zap.Error(err))
	}
	defer rl.Close()

	fmt.Printf("ShaleDB shell, database %s. Type .help for commands.\n", *dbPath)

	for {
		line, err := rl.Readline()
		if err == readline.ErrInterrupt {
			if len(line) == 0 {
				break
			}
			continue
		}
		if err == io.EOF {
			break
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		if strings.HasPrefix(line, ".") {
			if done := runDotCommand(line, eng, tel); done {
				return
			}
			continue
		}

		runStatement(exec, tel.Tracer, line)
	}
}

// runDotCommand handles the non-SQL session commands. It reports true when
// the shell should exit.
func runDotCommand(line string, eng *engine.Engine, tel *telemetry.Telemetry) bool {
	switch line {
	case ".exit", ".quit":
		return true
	case ".help":
		fmt.Println("Statements:")
		fmt.Println("  INSERT INTO table VALUES (id, 'username', 'email')")
		fmt.Println("  SELECT * FROM table [WHERE id = n]")
		fmt.Println("  DELETE FROM table WHERE id = n")
		fmt.Println("Commands:")
		fmt.Println("  .dbinfo   show database file layout")
		fmt.Println("  .stats    show session counters")
		fmt.Println("  .help     show this message")
		fmt.Println("  .exit     leave the shell")
	case ".dbinfo":
		info, err := eng.Info()
		if err != nil {
			fmt.Printf("Error: %v\n", err)
			return false
		}
		fmt.Printf("database file:  %s\n", info.Path)
		fmt.Printf("page size:      %d\n", page.Size)
		fmt.Printf("page count:     %d\n", info.PageCount)
		fmt.Printf("root page:      %d\n", info.Root)
		fmt.Printf("free pages:     %d\n", info.FreePages)
		fmt.Printf("tree height:    %d\n", info.Height)
	case ".stats":
		if err := tel.WriteMetrics(os.Stdout); err != nil {
			fmt.Printf("Error: %v\n", err)
		}
	default:
		fmt.Printf("Unknown command %q. Type .help for a list of commands.\n", line)
	}
	return false
}

// runStatement executes one SQL statement and prints its outcome.
func runStatement(exec *query.Executor, tracer trace.Tracer, line string) {
	_, span := tracer.Start(context.Background(), "shaledb.statement",
		trace.WithAttributes(attribute.String("db.statement", line)))
	defer span.End()

	res, err := exec.Execute(line)
	if err != nil {
		span.RecordError(err)
		fmt.Printf("Error: %v\n", err)
		return
	}

	if res.Rows != nil {
		for _, row := range res.Rows {
			fmt.Printf("(%d, %s, %s)\n", row.ID, row.Username, row.Email)
		}
		fmt.Printf("%d row(s) in set\n", len(res.Rows))
		return
	}
	fmt.Printf("%d row(s) affected\n", res.RowsAffected)
}
