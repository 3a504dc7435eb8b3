// Command demoserver runs nfsd3 over an in-memory filesystem on
// 0.0.0.0:2049, suitable for `mount -t nfs -o vers=3,port=2049 ... `
// against localhost. It is a wiring example, not a general-purpose
// CLI: flags are intentionally minimal.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"

	"github.com/nfsvfs/nfsd3"
	"github.com/nfsvfs/nfsd3/memvfs"
)

func main() {
	addr := flag.String("addr", "0.0.0.0:2049", "address to listen on")
	flag.Parse()

	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	fs, err := memvfs.New(memvfs.Options{})
	if err != nil {
		log.WithError(err).Fatal("building in-memory filesystem")
	}

	srv, err := nfsd3.New(fs, nfsd3.ServerOptions{
		Logger: nfsd3.NewLogrusLogger(log),
	})
	if err != nil {
		log.WithError(err).Fatal("constructing server")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	log.WithField("addr", *addr).Info("nfsd3 listening")
	if err := srv.ListenAndServe(ctx, *addr); err != nil {
		log.WithError(err).Fatal("server stopped")
	}
}
