// Copyright (c) 2024 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// qvmctl is the operator CLI for a running qvmd: it issues capability
// tokens from a mediator key file, opens sessions, submits graphs and
// polls or waits for their results.
package main

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	isatty "github.com/mattn/go-isatty"
	"github.com/mattn/go-tty"
	"github.com/pkg/errors"
	pb "gopkg.in/cheggaaa/pb.v1"
	cli "gopkg.in/urfave/cli.v1"

	"github.com/qvmkernel/qvmcore/admission"
	"github.com/qvmkernel/qvmcore/cap"
	"github.com/qvmkernel/qvmcore/cry"
	"github.com/qvmkernel/qvmcore/engine"
	"github.com/qvmkernel/qvmcore/ids"
)

var (
	version   string
	gitCommit string
	gitTag    string
)

var serverFlag = cli.StringFlag{
	Name:  "server",
	Value: "http://localhost:8199",
	Usage: "qvmd admission API base URL",
}

func fullVersion() string {
	meta := "release"
	if gitTag == "" {
		meta = "dev"
	}
	return fmt.Sprintf("%s-%s-%s", version, gitCommit, meta)
}

func main() {
	app := cli.App{
		Version: fullVersion(),
		Name:    "qvmctl",
		Usage:   "operator CLI for the QVM admission API",
		Flags:   []cli.Flag{serverFlag},
		Commands: []cli.Command{
			{
				Name:  "issue-token",
				Usage: "issue a capability token from a mediator key file",
				Flags: []cli.Flag{
					cli.StringFlag{Name: "key-file", Usage: "mediator HMAC key file"},
					cli.StringFlag{Name: "tenant", Usage: "tenant identifier string"},
					cli.StringFlag{Name: "caps", Value: "alloc,compute,measure", Usage: "comma separated capability names"},
					cli.DurationFlag{Name: "ttl", Value: time.Hour, Usage: "token time to live"},
					cli.Uint64Flag{Name: "max-uses", Value: 1000, Usage: "maximum number of operations the token authorizes"},
				},
				Action: issueTokenAction,
			},
			{
				Name:  "create-session",
				Usage: "open a session for a tenant",
				Flags: []cli.Flag{
					cli.StringFlag{Name: "tenant", Usage: "tenant identifier string"},
					cli.Uint64Flag{Name: "max-live-vqs", Value: 64},
					cli.Uint64Flag{Name: "max-live-channels", Value: 16},
					cli.Int64Flag{Name: "max-concurrent-jobs", Value: 4},
				},
				Action: createSessionAction,
			},
			{
				Name:  "submit",
				Usage: "submit a graph file under a session, using a token file",
				Flags: []cli.Flag{
					cli.StringFlag{Name: "session", Usage: "session id"},
					cli.StringFlag{Name: "graph-file", Usage: "path to an encoded graph"},
					cli.StringFlag{Name: "token-file", Usage: "path to a token JSON file from issue-token"},
				},
				Action: submitAction,
			},
			{
				Name:  "status",
				Usage: "print a job's current status",
				Flags: []cli.Flag{cli.StringFlag{Name: "job", Usage: "job handle"}},
				Action: statusAction,
			},
			{
				Name:  "wait",
				Usage: "block until a job reaches a terminal state, showing progress",
				Flags: []cli.Flag{
					cli.StringFlag{Name: "job", Usage: "job handle"},
					cli.DurationFlag{Name: "timeout", Value: 30 * time.Second},
				},
				Action: waitAction,
			},
			{
				Name:  "cancel",
				Usage: "cancel a running job",
				Flags: []cli.Flag{cli.StringFlag{Name: "job", Usage: "job handle"}},
				Action: cancelAction,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var capabilityNames = map[string]cap.Capability{
	"alloc":    cap.CapAlloc,
	"compute":  cap.CapCompute,
	"measure":  cap.CapMeasure,
	"link":     cap.CapLink,
	"teleport": cap.CapTeleport,
	"magic":    cap.CapMagic,
	"admin":    cap.CapAdmin,
}

func parseCapabilities(s string) (cap.Capability, error) {
	var caps cap.Capability
	for _, name := range strings.Split(s, ",") {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		bit, ok := capabilityNames[name]
		if !ok {
			return 0, errors.Errorf("unknown capability %q", name)
		}
		caps |= bit
	}
	return caps, nil
}

// readSecretFile reads key material from a file path or, if path is
// empty, from stdin: all of it when stdin is not a terminal, otherwise
// interactively from the controlling TTY, so a key never has to touch
// shell history or a process argument list.
func readSecretFile(path, prompt string) ([]byte, error) {
	if path != "" {
		return os.ReadFile(path)
	}
	if !isatty.IsTerminal(os.Stdin.Fd()) {
		return io.ReadAll(os.Stdin)
	}
	line, err := tty.ReadPassword(prompt)
	if err != nil {
		return nil, errors.Wrap(err, "read password")
	}
	return []byte(strings.TrimSpace(line)), nil
}

func issueTokenAction(ctx *cli.Context) error {
	raw, err := readSecretFile(ctx.String("key-file"), "Mediator key (hex): ")
	if err != nil {
		return err
	}
	// qvmd writes its key file as raw bytes; anything else is read as hex.
	key := raw
	if len(raw) != cry.MACKeyLength {
		key, err = hex.DecodeString(strings.TrimSpace(string(raw)))
		if err != nil {
			return errors.Wrap(err, "decode mediator key")
		}
	}
	tenant, err := ids.ParseTenantID(ctx.String("tenant"))
	if err != nil {
		return err
	}
	caps, err := parseCapabilities(ctx.String("caps"))
	if err != nil {
		return err
	}

	med := cap.NewMediator(key)
	tok, err := med.Issue(tenant, caps, ctx.Duration("ttl"), ctx.Uint64("max-uses"))
	if err != nil {
		return err
	}
	return json.NewEncoder(os.Stdout).Encode(tokenToDTO(tok))
}

// tokenToDTO is a standalone copy of admission.tokenToDTO's wire
// shape: qvmctl talks to the admission API over HTTP and has no
// access to that unexported helper.
func tokenToDTO(tok *cap.Token) admission.TokenDTO {
	return admission.TokenDTO{
		ID:        tok.ID,
		Tenant:    tok.Tenant.String(),
		Caps:      uint16(tok.Caps),
		IssuedAt:  tok.IssuedAt.Unix(),
		ExpiresAt: tok.ExpiresAt.Unix(),
		MaxUses:   tok.MaxUses,
		Signature: "0x" + hex.EncodeToString(tok.Signature),
	}
}

func createSessionAction(ctx *cli.Context) error {
	req := admission.CreateSessionRequest{
		Tenant:            ctx.String("tenant"),
		MaxLiveVQs:        ctx.Uint64("max-live-vqs"),
		MaxLiveChannels:   ctx.Uint64("max-live-channels"),
		MaxConcurrentJobs: ctx.Int64("max-concurrent-jobs"),
	}
	var resp admission.CreateSessionResponse
	if err := postJSON(ctx, "/sessions", req, &resp); err != nil {
		return err
	}
	fmt.Println(resp.SessionID)
	return nil
}

func submitAction(ctx *cli.Context) error {
	graphBytes, err := os.ReadFile(ctx.String("graph-file"))
	if err != nil {
		return err
	}
	tokenBytes, err := os.ReadFile(ctx.String("token-file"))
	if err != nil {
		return err
	}
	var tok admission.TokenDTO
	if err := json.Unmarshal(tokenBytes, &tok); err != nil {
		return errors.Wrap(err, "decode token file")
	}

	req := admission.SubmitRequest{
		SessionID: ctx.String("session"),
		GraphHex:  hex.EncodeToString(graphBytes),
		Token:     tok,
	}
	var resp admission.SubmitResponse
	if err := postJSON(ctx, "/submit", req, &resp); err != nil {
		return err
	}
	fmt.Println(resp.JobHandle)
	return nil
}

func statusAction(ctx *cli.Context) error {
	var resp admission.StatusResponse
	if err := getJSON(ctx, "/status/"+ctx.String("job"), &resp); err != nil {
		return err
	}
	return printJSON(resp)
}

func cancelAction(ctx *cli.Context) error {
	url := ctx.GlobalString(serverFlag.Name) + "/cancel/" + ctx.String("job")
	httpResp, err := http.Post(url, "application/json", nil)
	if err != nil {
		return err
	}
	defer httpResp.Body.Close()
	if httpResp.StatusCode >= 300 {
		return errorFromResponse(httpResp)
	}
	fmt.Println("cancelled")
	return nil
}

// waitAction polls status until the job is terminal, driving a
// progress bar while the job is pending or running.
func waitAction(ctx *cli.Context) error {
	job := ctx.String("job")
	deadline := time.Now().Add(ctx.Duration("timeout"))

	bar := pb.New(100)
	bar.ShowTimeLeft = false
	bar.ShowCounters = false
	quiet := !isatty.IsTerminal(os.Stdout.Fd())
	if !quiet {
		bar.Start()
		defer bar.Finish()
	}

	for {
		var status admission.StatusResponse
		if err := getJSON(ctx, "/status/"+job, &status); err != nil {
			return err
		}
		if !quiet {
			bar.Set(progressPercent(status.State))
		}
		if isTerminalState(status.State) {
			var result admission.ResultResponse
			if err := getJSON(ctx, "/wait/"+job+"?timeout_ms=1", &result); err != nil {
				return err
			}
			if !quiet {
				bar.Set(100)
			}
			return printJSON(result)
		}
		if time.Now().After(deadline) {
			return errors.Errorf("timed out waiting for job %s", job)
		}
		time.Sleep(200 * time.Millisecond)
	}
}

func progressPercent(state engine.State) int {
	switch state {
	case engine.StateLoaded:
		return 10
	case engine.StateRunning:
		return 60
	default:
		return 100
	}
}

func isTerminalState(state engine.State) bool {
	switch state {
	case engine.StateCompleted, engine.StateFailed, engine.StateCancelled:
		return true
	default:
		return false
	}
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func postJSON(ctx *cli.Context, path string, body, out any) error {
	b, err := json.Marshal(body)
	if err != nil {
		return err
	}
	url := ctx.GlobalString(serverFlag.Name) + path
	httpResp, err := http.Post(url, "application/json", bytes.NewReader(b))
	if err != nil {
		return err
	}
	defer httpResp.Body.Close()
	if httpResp.StatusCode >= 300 {
		return errorFromResponse(httpResp)
	}
	return json.NewDecoder(httpResp.Body).Decode(out)
}

func getJSON(ctx *cli.Context, path string, out any) error {
	url := ctx.GlobalString(serverFlag.Name) + path
	httpResp, err := http.Get(url)
	if err != nil {
		return err
	}
	defer httpResp.Body.Close()
	if httpResp.StatusCode >= 300 {
		return errorFromResponse(httpResp)
	}
	return json.NewDecoder(httpResp.Body).Decode(out)
}

func errorFromResponse(r *http.Response) error {
	b, _ := io.ReadAll(r.Body)
	return errors.Errorf("qvmd: %s: %s", r.Status, strings.TrimSpace(string(b)))
}
