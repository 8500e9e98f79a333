// KeyBridge - idle mouse mover and wireless keyboard bridge
// Runs as a background daemon by default; the -send-* and -status flags turn
// the same binary into a companion talking to a running daemon.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/atotto/clipboard"

	"keybridge/internal/api"
	"keybridge/internal/autostart"
	"keybridge/internal/config"
	"keybridge/internal/controller"
	"keybridge/internal/hid"
	"keybridge/internal/keymap"
	"keybridge/internal/link"
	"keybridge/internal/network"
	"keybridge/internal/observability"
	"keybridge/internal/scheduler"
	"keybridge/internal/textqueue"
	"keybridge/internal/ticks"
	"keybridge/internal/tray"
)

var (
	version = "0.3.0"

	showVer   = flag.Bool("version", false, "Show version")
	cfgPath   = flag.String("config", "", "Path to config file (default: per-user location)")
	noTray    = flag.Bool("no-tray", false, "Run without the system tray icon")
	showStat  = flag.Bool("status", false, "Query a running daemon's status")
	sendText  = flag.String("send-text", "", "Send text to a running daemon (\"-\" reads stdin)")
	sendClip  = flag.Bool("send-clipboard", false, "Send clipboard contents to a running daemon")
	sendKey   = flag.String("send-key", "", "Send a key chord to a running daemon (e.g. \"ctrl+alt+t\")")
	discover  = flag.Bool("discover", false, "Scan the local network for running daemons")
	autoStart = flag.String("autostart", "", "Manage start-on-login: enable, disable or status")
	peerAddr  = flag.String("addr", "", "Daemon address for companion commands (default: from config)")
	peerToken = flag.String("token", "", "API token for companion commands (default: from config)")
)

func main() {
	flag.Parse()

	if *showVer {
		fmt.Printf("keybridge version %s\n", version)
		return
	}

	cfgMgr, err := config.NewManager(*cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize config: %v\n", err)
		os.Exit(1)
	}
	if err := cfgMgr.Load(); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config %s: %v\n", cfgMgr.Path(), err)
		os.Exit(1)
	}

	switch {
	case *showStat:
		runStatus(cfgMgr)
	case *sendText != "":
		runSendText(cfgMgr, *sendText)
	case *sendClip:
		runSendClipboard(cfgMgr)
	case *sendKey != "":
		runSendKey(cfgMgr, *sendKey)
	case *discover:
		runDiscover(cfgMgr)
	case *autoStart != "":
		runAutostart(*autoStart)
	default:
		runService(cfgMgr)
	}
}

// daemonAddr resolves the address companion commands dial. A wildcard bind
// address maps to loopback.
func daemonAddr(cfgMgr *config.Manager) string {
	if *peerAddr != "" {
		return *peerAddr
	}
	addr := cfgMgr.Get().General.ListenAddr
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return addr
	}
	if host == "" || host == "0.0.0.0" || host == "::" {
		host = "127.0.0.1"
	}
	return net.JoinHostPort(host, port)
}

func daemonToken(cfgMgr *config.Manager) string {
	if *peerToken != "" {
		return *peerToken
	}
	return cfgMgr.Get().General.APIToken
}

func runStatus(cfgMgr *config.Manager) {
	url := "http://" + daemonAddr(cfgMgr) + "/api/status"
	req, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Bad status URL: %v\n", err)
		os.Exit(1)
	}
	if token := daemonToken(cfgMgr); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Daemon not reachable at %s: %v\n", daemonAddr(cfgMgr), err)
		os.Exit(1)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		fmt.Fprintf(os.Stderr, "Status request failed: %s\n%s", resp.Status, body)
		os.Exit(1)
	}
	os.Stdout.Write(body)
}

func runSendText(cfgMgr *config.Manager, text string) {
	data := []byte(text)
	if text == "-" {
		var err error
		data, err = io.ReadAll(os.Stdin)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to read stdin: %v\n", err)
			os.Exit(1)
		}
	}
	shipText(cfgMgr, data)
}

func runSendClipboard(cfgMgr *config.Manager) {
	text, err := clipboard.ReadAll()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to read clipboard: %v\n", err)
		os.Exit(1)
	}
	if text == "" {
		fmt.Fprintln(os.Stderr, "Clipboard is empty")
		os.Exit(1)
	}
	shipText(cfgMgr, []byte(text))
}

func shipText(cfgMgr *config.Manager, data []byte) {
	client, err := link.Dial(daemonAddr(cfgMgr), daemonToken(cfgMgr))
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
	defer client.Close()

	if err := client.SendText(data); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Sent %d bytes\n", len(data))
}

func runSendKey(cfgMgr *config.Manager, chord string) {
	modifiers, keycode, err := keymap.ParseChord(chord)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Bad chord %q: %v\n", chord, err)
		os.Exit(1)
	}

	client, err := link.Dial(daemonAddr(cfgMgr), daemonToken(cfgMgr))
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
	defer client.Close()

	if err := client.SendKey(modifiers, keycode); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Sent %s\n", chord)
}

func runDiscover(cfgMgr *config.Manager) {
	_, portStr, err := net.SplitHostPort(cfgMgr.Get().General.ListenAddr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Bad listen address in config: %v\n", err)
		os.Exit(1)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Bad port in config: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Scanning local network on port %d...\n", port)
	hosts, err := network.ScanLAN(port)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Scan failed: %v\n", err)
		os.Exit(1)
	}

	if len(hosts) == 0 {
		fmt.Println("No daemons found")
		return
	}
	for _, h := range hosts {
		line := fmt.Sprintf("%s:%d", h.IP, h.Port)
		if h.Version != "" {
			line += fmt.Sprintf("  v%s  mode=%s connected=%v", h.Version, h.Mode, h.Connected)
		}
		fmt.Println(line)
	}
}

func runAutostart(action string) {
	switch action {
	case "enable":
		if err := autostart.Enable(); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to enable autostart: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("Autostart enabled")
	case "disable":
		if err := autostart.Disable(); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to disable autostart: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("Autostart disabled")
	case "status":
		if autostart.IsEnabled() {
			fmt.Println("Autostart is enabled")
		} else {
			fmt.Println("Autostart is disabled")
		}
	default:
		fmt.Fprintf(os.Stderr, "Unknown autostart action %q (want enable, disable or status)\n", action)
		os.Exit(1)
	}
}

func runService(cfgMgr *config.Manager) {
	cfg := cfgMgr.Get()
	log := observability.New(cfg.Logger)
	defer log.Sync()

	log.Infow("keybridge starting", "version", version, "config", cfgMgr.Path())

	device, err := hid.Open(cfg.General.HIDBackend, cfg.General.DeviceName, log)
	if err != nil {
		log.Warnw("hid backend unavailable, output disabled", "backend", cfg.General.HIDBackend, "error", err)
		device = hid.NewNull(log)
	}
	defer device.Close()

	ctrl := controller.New(controller.Options{
		Clock:          ticks.NewWallClock(),
		Queue:          textqueue.New(cfg.Bridge.QueueCapacity),
		Output:         device,
		Scheduler:      scheduler.New(cfg.Mover.MinDelayMS, cfg.Mover.MaxDelayMS, log),
		Log:            log,
		CharIntervalMS: cfg.Bridge.CharIntervalMS,
		MoveSettle:     20 * time.Millisecond,
	})

	linkSrv := link.NewServer(ctrl, log)
	apiSrv := api.NewServer(ctrl, linkSrv, cfg.General.APIToken, version, log)

	ctx, cancel := context.WithCancel(context.Background())

	go ctrl.Run(ctx)
	go func() {
		if err := apiSrv.Start(cfg.General.ListenAddr); err != nil {
			log.Errorw("api server exited", "error", err)
		}
	}()

	shutdown := func() {
		log.Infow("shutting down")
		cancel()
		linkSrv.Shutdown()
		shutdownCtx, done := context.WithTimeout(context.Background(), 5*time.Second)
		defer done()
		if err := apiSrv.Shutdown(shutdownCtx); err != nil {
			log.Warnw("api shutdown", "error", err)
		}
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	if cfg.General.TrayEnabled && !*noTray {
		// systray must own the main goroutine; signals stop the tray, and the
		// tray loop returning triggers shutdown.
		t := tray.New(ctrl, ctrl.Refresh(), nil)
		go func() {
			<-sigCh
			t.Stop()
		}()
		t.Run()
		shutdown()
		return
	}

	<-sigCh
	shutdown()
}
