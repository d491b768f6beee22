package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/zeromicro/go-zero/core/logx"

	"seidefi/internal/cli"
	"seidefi/internal/config"
	"seidefi/internal/svc"
	"seidefi/pkg/journal"
)

func fatalf(format string, args ...interface{}) {
	logx.Errorf(format, args...)
	os.Exit(1)
}

func main() {
	configPath := flag.String("config", "etc/seidefi.yaml", "path to application configuration")
	journalDir := flag.String("journal", "", "directory for the action audit journal (empty disables)")
	flag.Parse()
	logx.MustSetup(logx.LogConf{})
	logx.DisableStat()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fatalf("load config: %v", err)
	}
	cli.LogConfigSummary(cfg)

	sctx := svc.NewServiceContext(*cfg)

	var audit *journal.Writer
	if *journalDir != "" {
		audit = journal.NewWriter(*journalDir)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logx.Infof("received signal %s, shutting down", sig)
		cancel()
	}()

	fmt.Println("DeFi agent ready. Describe what you want to do, or type \"quit\" to exit.")
	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if line == "quit" || line == "exit" {
			break
		}

		res := sctx.Actions.Dispatch(ctx, line)
		if audit != nil {
			if _, jerr := audit.Write(&journal.Entry{
				Message: line,
				Text:    res.Text,
				Content: res.Content,
				Success: res.Error == "",
				Error:   res.Error,
			}); jerr != nil {
				logx.Errorf("journal write failed: %v", jerr)
			}
		}
		if res.Error != "" {
			fmt.Printf("error: %s\n", res.Error)
		} else {
			fmt.Println(res.Text)
		}

		select {
		case <-ctx.Done():
			fmt.Println()
			return
		default:
		}
	}
	if err := scanner.Err(); err != nil {
		fatalf("read input: %v", err)
	}
	logx.Info("agent stopped")
}
