package config

import (
	"time"

	cli "gopkg.in/urfave/cli.v1"
)

// Flags is the cli.v1 flag set cmd/qvmd registers on its App, mirroring
// the teacher's cmd/thor/flags.go var-per-flag layout.
var (
	ConfigFileFlag = cli.StringFlag{
		Name:  "config",
		Usage: "path to a config.yaml file",
	}
	DataDirFlag = cli.StringFlag{
		Name:  "data-dir",
		Usage: "directory for the default mediator key file",
	}
	PoolSizeFlag = cli.IntFlag{
		Name:  "pool-size",
		Usage: "total physical qubit capacity of the shared pool",
	}
	AdmissionAddrFlag = cli.StringFlag{
		Name:  "admission-addr",
		Usage: "admission API listening address",
	}
	AdmissionCORSFlag = cli.StringFlag{
		Name:  "admission-cors",
		Usage: "comma separated list of domains allowed cross-origin admission requests",
	}
	MediatorKeyFileFlag = cli.StringFlag{
		Name:  "mediator-key-file",
		Usage: "path to the 32-byte HMAC key the capability mediator signs with",
	}
	VerbosityFlag = cli.IntFlag{
		Name:  "verbosity",
		Value: 3,
		Usage: "log verbosity (0-9)",
	}
)

// ApplyFlags overlays any flag the caller explicitly set on ctx onto
// cfg, leaving file-loaded values in place for flags left at their
// zero/unset value. Flags, not the file, win when both are present —
// the file is the durable baseline, flags are the per-launch override.
func ApplyFlags(cfg Config, ctx *cli.Context) Config {
	if ctx.IsSet(DataDirFlag.Name) {
		cfg.DataDir = ctx.String(DataDirFlag.Name)
	}
	if ctx.IsSet(PoolSizeFlag.Name) {
		cfg.Pool.TotalPhysicalQubits = uint64(ctx.Int(PoolSizeFlag.Name))
	}
	if ctx.IsSet(AdmissionAddrFlag.Name) {
		cfg.Admission.Addr = ctx.String(AdmissionAddrFlag.Name)
	}
	if ctx.IsSet(AdmissionCORSFlag.Name) {
		cfg.Admission.CORS = ctx.String(AdmissionCORSFlag.Name)
	}
	if ctx.IsSet(MediatorKeyFileFlag.Name) {
		cfg.MediatorKeyFile = ctx.String(MediatorKeyFileFlag.Name)
	}
	if ctx.IsSet(VerbosityFlag.Name) {
		cfg.Verbosity = ctx.Int(VerbosityFlag.Name)
	}
	return cfg
}

// RequestTimeoutOrDefault returns cfg's admission request timeout,
// falling back to 10s if the file left it unset.
func (c Config) RequestTimeoutOrDefault() time.Duration {
	if c.Admission.RequestTimeout <= 0 {
		return 10 * time.Second
	}
	return c.Admission.RequestTimeout
}
