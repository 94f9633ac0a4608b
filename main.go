package main

import (
	"fmt"
	"net/http"
	"os"

	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/Priyanshu23/TieredIndexGo/partition"
)

func main() {
	var (
		directory string
		addr      string
		debug     bool
	)

	pflag.StringVarP(&directory, "directory", "d", "", "where partitions will be stored")
	pflag.StringVar(&addr, "addr", ":8497", "listen address")
	pflag.BoolVar(&debug, "debug", false, "verbose development logging")
	pflag.Parse()

	if directory == "" {
		fmt.Fprintln(os.Stderr, "--directory is required")
		pflag.Usage()
		os.Exit(2)
	}

	log, err := newLogger(debug)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	if err := os.MkdirAll(directory, 0o755); err != nil {
		log.Fatal("failed to create partition root", zap.Error(err))
	}

	partitions := partition.New(directory, partition.WithLogger(log))
	srv := newServer(partitions, log)

	log.Info("starting listening", zap.String("addr", addr), zap.String("directory", directory))

	if err := http.ListenAndServe(addr, srv.handler()); err != nil {
		log.Fatal("failed serving", zap.Error(err))
	}
}

func newLogger(debug bool) (*zap.Logger, error) {
	if debug {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
