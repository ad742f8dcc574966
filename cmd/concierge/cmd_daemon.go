package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/felixgeelhaar/concierge/internal/config"
	"github.com/spf13/cobra"
)

func newDaemonCmd(flags *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "daemon",
		Short: "Control the conciergd HTTP daemon",
	}

	cmd.AddCommand(
		&cobra.Command{Use: "start", Short: "Start the daemon in the background", Args: cobra.NoArgs, RunE: runDaemonStart},
		&cobra.Command{Use: "stop", Short: "Stop the daemon", Args: cobra.NoArgs, RunE: runDaemonStop},
		&cobra.Command{Use: "status", Short: "Show daemon status", Args: cobra.NoArgs, RunE: runDaemonStatus},
		&cobra.Command{Use: "logs", Short: "Show recent daemon logs", Args: cobra.NoArgs, RunE: runDaemonLogs},
	)
	return cmd
}

// daemonURL returns the base URL of the configured daemon
func daemonURL() (string, error) {
	cfg, err := config.LoadLocalConfig()
	if err != nil {
		return "", fmt.Errorf("load config: %w", err)
	}
	bind := cfg.Daemon.Bind
	if bind == "" || bind == "0.0.0.0" {
		bind = "127.0.0.1"
	}
	return fmt.Sprintf("http://%s:%d", bind, cfg.Daemon.Port), nil
}

func runDaemonStart(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	base, err := daemonURL()
	if err != nil {
		return err
	}

	if isRunning(base) {
		fmt.Fprintf(out, "%s Daemon is already running\n", okMark)
		return nil
	}

	dir, err := config.EnsureConciergeDir()
	if err != nil {
		return fmt.Errorf("setup concierge directory: %w", err)
	}

	binary, err := findDaemonBinary()
	if err != nil {
		return fmt.Errorf("find daemon binary: %w", err)
	}

	proc := exec.Command(binary)
	proc.Dir = dir
	detachProcess(proc)

	if err := proc.Start(); err != nil {
		return fmt.Errorf("start daemon: %w", err)
	}

	fmt.Fprint(out, "Starting daemon...")
	for i := 0; i < 30; i++ {
		time.Sleep(100 * time.Millisecond)
		if isRunning(base) {
			fmt.Fprintf(out, " %s\n", okMark)
			fmt.Fprintf(out, "Daemon running at %s\n", base)
			return nil
		}
		fmt.Fprint(out, ".")
	}

	fmt.Fprintf(out, " %s\n", failMark)
	return fmt.Errorf("daemon failed to start (check logs with 'concierge daemon logs')")
}

func runDaemonStop(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	base, err := daemonURL()
	if err != nil {
		return err
	}

	if !isRunning(base) {
		fmt.Fprintln(out, "Daemon is not running")
		return nil
	}

	dir, err := config.ConciergeDir()
	if err != nil {
		return err
	}

	data, err := os.ReadFile(filepath.Join(dir, pidFile))
	if err != nil {
		return fmt.Errorf("read PID file: %w", err)
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return fmt.Errorf("parse PID: %w", err)
	}

	process, err := os.FindProcess(pid)
	if err != nil {
		return fmt.Errorf("find process: %w", err)
	}

	fmt.Fprint(out, "Stopping daemon...")
	if err := process.Signal(syscall.SIGTERM); err != nil {
		return fmt.Errorf("send signal: %w", err)
	}

	for i := 0; i < 50; i++ {
		time.Sleep(100 * time.Millisecond)
		if !isRunning(base) {
			fmt.Fprintf(out, " %s\n", okMark)
			return nil
		}
		fmt.Fprint(out, ".")
	}

	fmt.Fprintf(out, " %s\n", failMark)
	return fmt.Errorf("daemon did not stop gracefully")
}

// daemonStatus mirrors the daemon's /v1/status response
type daemonStatus struct {
	Status     string `json:"status"`
	Version    string `json:"version"`
	UptimeS    int64  `json:"uptime_s"`
	Storage    string `json:"storage"`
	Assistants int    `json:"assistants"`
	Current    string `json:"current"`
	Providers  int    `json:"providers"`
	Events     bool   `json:"events"`
}

func runDaemonStatus(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	base, err := daemonURL()
	if err != nil {
		return err
	}

	status, err := fetchStatus(base)
	if err != nil {
		fmt.Fprintln(out, "Status: stopped")
		return nil
	}
	printStatus(out, base, status)
	return nil
}

func fetchStatus(base string) (*daemonStatus, error) {
	client := &http.Client{Timeout: 2 * time.Second}
	resp, err := client.Get(base + "/v1/status")
	if err != nil {
		return nil, fmt.Errorf("get status: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("get status: unexpected status %d", resp.StatusCode)
	}

	var status daemonStatus
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		return nil, fmt.Errorf("parse status: %w", err)
	}
	return &status, nil
}

func printStatus(w io.Writer, base string, s *daemonStatus) {
	events := "off"
	if s.Events {
		events = "amqp"
	}
	fmt.Fprintf(w, "Status:     %s\n", s.Status)
	fmt.Fprintf(w, "Version:    %s\n", s.Version)
	fmt.Fprintf(w, "Uptime:     %s\n", (time.Duration(s.UptimeS) * time.Second).String())
	fmt.Fprintf(w, "Storage:    %s\n", s.Storage)
	fmt.Fprintf(w, "Assistants: %d (current: %s)\n", s.Assistants, s.Current)
	fmt.Fprintf(w, "Providers:  %d\n", s.Providers)
	fmt.Fprintf(w, "Events:     %s\n", events)
	fmt.Fprintf(w, "Address:    %s\n", base)
}

func runDaemonLogs(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	dir, err := config.ConciergeDir()
	if err != nil {
		return err
	}

	logPath := filepath.Join(dir, "logs", "conciergd.log")
	file, err := os.Open(logPath)
	if os.IsNotExist(err) {
		fmt.Fprintln(out, "No log file found. Start the daemon first.")
		return nil
	}
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer file.Close()

	// Seek to end and go back ~4KB for recent logs
	info, err := file.Stat()
	if err != nil {
		return fmt.Errorf("stat log file: %w", err)
	}
	offset := info.Size() - 4096
	if offset < 0 {
		offset = 0
	}
	if _, err := file.Seek(offset, io.SeekStart); err != nil {
		return fmt.Errorf("seek log file: %w", err)
	}

	reader := bufio.NewReader(file)
	if offset > 0 {
		// partial first line
		_, _ = reader.ReadString('\n')
	}

	scanner := bufio.NewScanner(reader)
	for scanner.Scan() {
		fmt.Fprintln(out, scanner.Text())
	}
	return scanner.Err()
}

// isRunning checks if the daemon is running by calling the health endpoint
func isRunning(base string) bool {
	client := &http.Client{Timeout: time.Second}
	resp, err := client.Get(base + "/v1/health")
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

// findDaemonBinary locates the conciergd binary
func findDaemonBinary() (string, error) {
	if path, err := exec.LookPath("conciergd"); err == nil {
		return path, nil
	}

	// Next to this binary
	if self, err := os.Executable(); err == nil {
		path := filepath.Join(filepath.Dir(self), "conciergd")
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}

	for _, path := range []string{"/usr/local/bin/conciergd", "./conciergd", "./cmd/conciergd/conciergd"} {
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}

	return "", fmt.Errorf("conciergd binary not found (build with 'go build ./cmd/conciergd')")
}
