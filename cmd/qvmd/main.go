// Copyright (c) 2024 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// qvmd runs the capability-secured QVM kernel: it loads a config,
// wires the pool/firewall/mediator/verifier/engine/audit stack, and
// serves the admission API until signalled to stop.
package main

import (
	"crypto/rand"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/inconshreveable/log15"
	"github.com/pkg/errors"
	cli "gopkg.in/urfave/cli.v1"

	"github.com/qvmkernel/qvmcore/admission"
	"github.com/qvmkernel/qvmcore/audit"
	"github.com/qvmkernel/qvmcore/cap"
	"github.com/qvmkernel/qvmcore/config"
	"github.com/qvmkernel/qvmcore/cry"
	"github.com/qvmkernel/qvmcore/engine"
	"github.com/qvmkernel/qvmcore/firewall"
	"github.com/qvmkernel/qvmcore/resource"
	"github.com/qvmkernel/qvmcore/verify"
)

var (
	version   string
	gitCommit string
	gitTag    string
	log       = log15.New("pkg", "qvmd")
)

func fullVersion() string {
	meta := "release"
	if gitTag == "" {
		meta = "dev"
	}
	return fmt.Sprintf("%s-%s-%s", version, gitCommit, meta)
}

func main() {
	app := cli.App{
		Version:   fullVersion(),
		Name:      "qvmd",
		Usage:     "Capability-secured QVM execution kernel",
		Copyright: "2024 The VeChainThor developers",
		Flags: []cli.Flag{
			config.ConfigFileFlag,
			config.DataDirFlag,
			config.PoolSizeFlag,
			config.AdmissionAddrFlag,
			config.AdmissionCORSFlag,
			config.MediatorKeyFileFlag,
			config.VerbosityFlag,
		},
		Action: defaultAction,
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func defaultAction(ctx *cli.Context) error {
	initLogger(ctx)

	cfg := config.Default()
	if path := ctx.String(config.ConfigFileFlag.Name); path != "" {
		loaded, err := config.Load(path)
		if err != nil {
			return err
		}
		cfg = loaded
	}
	cfg = config.ApplyFlags(cfg, ctx)

	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return errors.Wrapf(err, "create data dir %q", cfg.DataDir)
	}

	key, err := loadOrGenerateMediatorKey(mediatorKeyPath(cfg))
	if err != nil {
		return errors.Wrap(err, "load or generate mediator key")
	}
	mediator := cap.NewMediator(key)

	pool := resource.NewPool(cfg.Pool.TotalPhysicalQubits)
	templates := resource.NewTemplateCache(cfg.Pool.TemplateCacheBytes)
	fw := firewall.New()
	verifier := verify.NewVerifier(mediator)

	auditOpts, auditClose, err := buildAuditOptions(cfg)
	if err != nil {
		return err
	}
	defer auditClose()
	auditLog := audit.NewLog(auditOpts...)

	manager := engine.NewManager(pool, fw, mediator, auditLog, templates)

	var corsOrigins []string
	if cfg.Admission.CORS != "" {
		corsOrigins = strings.Split(cfg.Admission.CORS, ",")
	}
	logLevel := new(slog.LevelVar)
	server := admission.NewServer(mediator, verifier, manager, auditLog, logLevel, corsOrigins)

	addr, closeServer, err := admission.StartServer(cfg.Admission.Addr, server)
	if err != nil {
		return err
	}
	defer closeServer()

	log.Info("qvmd started", "admission", addr, "pool", cfg.Pool.TotalPhysicalQubits, "data-dir", cfg.DataDir)

	<-handleExitSignal()
	log.Info("exiting...")
	return nil
}

func initLogger(ctx *cli.Context) {
	lvl := ctx.Int(config.VerbosityFlag.Name)
	log15.Root().SetHandler(log15.LvlFilterHandler(log15.Lvl(lvl), log15.StderrHandler))
}

func handleExitSignal() <-chan os.Signal {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	return sigCh
}

func mediatorKeyPath(cfg config.Config) string {
	if cfg.MediatorKeyFile != "" {
		return cfg.MediatorKeyFile
	}
	return filepath.Join(cfg.DataDir, "mediator.key")
}

// loadOrGenerateMediatorKey reads a 32-byte HMAC key from path,
// generating and persisting a fresh one on first run. Mirrors the
// teacher's loadOrGeneratePrivateKey idiom for node/p2p keys.
func loadOrGenerateMediatorKey(path string) ([]byte, error) {
	b, err := os.ReadFile(path)
	if err == nil {
		if len(b) != cry.MACKeyLength {
			return nil, errors.Errorf("mediator key file %q: want %d bytes, got %d", path, cry.MACKeyLength, len(b))
		}
		return b, nil
	}
	if !os.IsNotExist(err) {
		return nil, errors.Wrapf(err, "read mediator key %q", path)
	}

	key := make([]byte, cry.MACKeyLength)
	if _, err := rand.Read(key); err != nil {
		return nil, errors.Wrap(err, "generate mediator key")
	}
	if err := os.WriteFile(path, key, 0o600); err != nil {
		return nil, errors.Wrapf(err, "write mediator key %q", path)
	}
	return key, nil
}

// buildAuditOptions wires the audit log's optional sidecar and
// secondary index per config, returning a close func that shuts both
// down (a no-op if neither was configured).
func buildAuditOptions(cfg config.Config) ([]audit.Option, func(), error) {
	var opts []audit.Option
	var closers []func() error

	if cfg.Audit.SidecarPath != "" {
		sidecar, err := audit.OpenSidecar(cfg.Audit.SidecarPath)
		if err != nil {
			return nil, nil, errors.Wrap(err, "open audit sidecar")
		}
		opts = append(opts, audit.WithSidecar(sidecar))
		closers = append(closers, sidecar.Close)
	}
	if cfg.Audit.SecondaryIndexPath != "" {
		idx, err := audit.OpenSecondaryIndex(cfg.Audit.SecondaryIndexPath)
		if err != nil {
			return nil, nil, errors.Wrap(err, "open audit secondary index")
		}
		opts = append(opts, audit.WithSecondaryIndex(idx))
		closers = append(closers, idx.Close)
	}

	return opts, func() {
		for _, c := range closers {
			if err := c(); err != nil {
				log.Warn("closing audit backend", "err", err)
			}
		}
	}, nil
}
