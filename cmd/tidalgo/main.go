package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/coreos/go-systemd/v22/daemon"

	"tidalgo/internal/app"
	"tidalgo/internal/config"
)

func main() {
	var (
		cfgPath string
		pattern string
		cps     float64
	)
	flag.StringVar(&cfgPath, "config", "", "path to config file (yaml or json)")
	flag.StringVar(&pattern, "pattern", "", "initial pattern (overrides config)")
	flag.Float64Var(&cps, "cps", 0, "cycles per second (overrides config)")
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	cfg := config.Default()
	if cfgPath != "" {
		var err error
		cfg, err = config.Load(cfgPath)
		if err != nil {
			fmt.Fprintln(os.Stderr, "fatal:", err)
			os.Exit(1)
		}
	}
	if pattern != "" {
		cfg.Pattern.Text = pattern
	}
	if cps > 0 {
		cfg.Clock.CPS = cps
	}

	a, err := app.New(cfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, "fatal:", err)
		os.Exit(1)
	}

	if err := a.Start(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "fatal start:", err)
		_ = a.Stop(context.Background())
		os.Exit(1)
	}
	_, _ = daemon.SdNotify(false, daemon.SdNotifyReady)

	go repl(ctx, a, cancel)

	<-ctx.Done()
	_, _ = daemon.SdNotify(false, daemon.SdNotifyStopping)
	_ = a.Stop(context.Background())
}

// repl reads control lines from stdin. A bare line is a pattern: it replaces
// the running one or starts the clock. Commands begin with ':'.
func repl(ctx context.Context, a *app.App, quit context.CancelFunc) {
	sc := bufio.NewScanner(os.Stdin)
	for sc.Scan() {
		if ctx.Err() != nil {
			return
		}
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		if !strings.HasPrefix(line, ":") {
			if err := a.Apply(line); err != nil {
				fmt.Println("error:", err)
			}
			continue
		}

		cmd, arg, _ := strings.Cut(line, " ")
		arg = strings.TrimSpace(arg)
		switch cmd {
		case ":quit", ":q":
			quit()
			return
		case ":stop":
			a.StopPattern()
		case ":rate":
			v, err := strconv.ParseFloat(arg, 64)
			if err != nil {
				fmt.Println("usage: :rate <cycles-per-second>")
				continue
			}
			if err := a.SetRate(v); err != nil {
				fmt.Println("error:", err)
			}
		case ":load":
			data, err := os.ReadFile(arg)
			if err != nil {
				fmt.Println("error:", err)
				continue
			}
			if err := a.Apply(strings.TrimSpace(string(data))); err != nil {
				fmt.Println("error:", err)
			}
		case ":status":
			snap := a.Snapshot()
			fmt.Printf("running=%v cycle=%d cps=%g pending=%d\n",
				snap.Running, snap.Cycle, snap.CPS, snap.Pending)
		case ":journal":
			n := 20
			if arg != "" {
				if v, err := strconv.Atoi(arg); err == nil {
					n = v
				}
			}
			entries, err := a.Recent(ctx, n)
			if err != nil {
				fmt.Println("error:", err)
				continue
			}
			for _, e := range entries {
				fmt.Printf("%s %-5s cycle=%d onset=%.3f %s %s\n",
					e.At.Format("15:04:05.000"), e.Kind, e.Cycle, e.Onset, e.Value, e.Detail)
			}
		default:
			fmt.Println("commands: :stop :rate N :load FILE :status :journal [N] :quit")
		}
	}
}
