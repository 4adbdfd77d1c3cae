package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/yedirenklicinar/akademi/core"
	"github.com/yedirenklicinar/akademi/core/session"
	logsvc "github.com/yedirenklicinar/akademi/services/logger"
	"github.com/yedirenklicinar/akademi/services/platform"
)

func main() {
	conf := core.NewConfig()

	stateDir, err := ensureStateDir(conf)
	if err != nil {
		log.Fatalf("console.ensureStateDir: %v", err)
	}

	logFile, err := os.OpenFile(filepath.Join(stateDir, "console.log"), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0600)
	if err != nil {
		log.Fatalf("console.os.OpenFile: %v", err)
	}
	defer logFile.Close()
	std := log.New(logFile, fmt.Sprintf("%s v%s : CONSOLE : ", conf.AppName, conf.Build), log.LstdFlags|log.Lshortfile)
	logger := logsvc.NewStdLogger(std)

	prefs := session.NewFilePrefs(stateDir)
	// a session only survives a restart when the user asked to be remembered
	if !prefs.RememberMe() {
		_ = os.Remove(filepath.Join(stateDir, "session.json"))
	}

	client := platform.NewClient(conf, logger, stateDir)
	defer client.Close()

	ctrl := session.NewController(client, client, prefs, logger, conf)
	defer ctrl.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	ctrl.Start(ctx)
	client.StartAutoRefresh(ctx)

	cli := newConsole(conf, ctrl, client, client, logger, os.Stdin, os.Stdout)
	if err := cli.run(ctx); err != nil && err != context.Canceled {
		std.Fatal(err)
	}
}

func ensureStateDir(conf *core.Config) (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		base = core.Getwd()
	}
	dir := filepath.Join(base, "akademi")
	if conf.Env != "" && conf.Env != "PROD" {
		dir = filepath.Join(dir, conf.Env)
	}
	if err := os.MkdirAll(dir, 0700); err != nil {
		return "", err
	}
	return dir, nil
}
