// Package storedcmd is the CLI harness behind cmd/storedebug: argument
// parsing and command dispatch, kept separate from main.go so it stays
// testable without an os.Exit in the way.
package storedcmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"reflect"
	"strings"

	"github.com/mna/mainer"
)

const binName = "storedebug"

var (
	shortUsage = fmt.Sprintf(`
usage: %s [<option>...] <command>
Run '%[1]s --help' for details.
`, binName)

	longUsage = fmt.Sprintf(`usage: %s [<option>...] serve
       %[1]s -h|--help
       %[1]s -v|--version

Debug server for a libstored store described by a YAML schema.

The <command> can be one of:
       serve                     Load --schema and serve debugger sessions
                                 until interrupted.

Valid flag options are:
       -h --help                 Show this help and exit.
       -v --version              Print version and exit.
       --schema <path>           Path to a YAML store schema (required).
       --listen <addr>           TCP address to accept debugger
                                 connections on, e.g. ":6053".
       --stdio                   Serve a single debugger session over
                                 stdin/stdout instead of --listen.
       --mtu <n>                 Transport segmentation MTU (default 256).
       --compress                Heatshrink-compress debugger stream output.
       --sync-listen <addr>      TCP address to accept one synchronizer
                                 peer connection on.
       --sync-dial <addr>        TCP address of a synchronizer peer to
                                 dial on startup.
       --replica-id <n>          This side's non-zero synchronizer id;
                                 required with --sync-listen/--sync-dial.

More information on the libstored project:
       https://github.com/gostored/libstored
`, binName)
)

// Cmd is the top-level command, populated by mainer.Parser from argv
// (environment variables are not read for its flags) before Main
// dispatches to the named subcommand.
type Cmd struct {
	BuildVersion string
	BuildDate    string

	Help    bool `flag:"h,help"`
	Version bool `flag:"v,version"`

	Schema     string `flag:"schema"`
	Listen     string `flag:"listen"`
	Stdio      bool   `flag:"stdio"`
	MTU        int    `flag:"mtu"`
	Compress   bool   `flag:"compress"`
	SyncListen string `flag:"sync-listen"`
	SyncDial   string `flag:"sync-dial"`
	ReplicaID  uint   `flag:"replica-id"`

	args  []string
	flags map[string]bool
	cmdFn func(context.Context, mainer.Stdio, []string) error
}

func (c *Cmd) SetArgs(args []string) {
	c.args = args
}

func (c *Cmd) SetFlags(flags map[string]bool) {
	c.flags = flags
}

func (c *Cmd) Validate() error {
	if c.Help || c.Version {
		return nil
	}
	if len(c.args) == 0 {
		return errors.New("no command specified")
	}

	cmdName := c.args[0]
	commands := buildCmds(c)
	c.cmdFn = commands[cmdName]
	if c.cmdFn == nil {
		return fmt.Errorf("unknown command: %s", cmdName)
	}

	if cmdName == "serve" {
		if c.Schema == "" {
			return errors.New("serve: --schema is required")
		}
		if c.Listen == "" && !c.Stdio {
			return errors.New("serve: one of --listen or --stdio is required")
		}
		if c.Listen != "" && c.Stdio {
			return errors.New("serve: --listen and --stdio are mutually exclusive")
		}
		if c.SyncListen != "" && c.SyncDial != "" {
			return errors.New("serve: --sync-listen and --sync-dial are mutually exclusive")
		}
		if (c.SyncListen != "" || c.SyncDial != "") && c.ReplicaID == 0 {
			return errors.New("serve: --replica-id is required with --sync-listen/--sync-dial")
		}
	}

	return nil
}

func (c *Cmd) Main(args []string, stdio mainer.Stdio) mainer.ExitCode {
	p := mainer.Parser{
		EnvVars:   false, // flags only, for now; process config goes through caarlos0/env instead
		EnvPrefix: strings.ToUpper(binName) + "_",
	}
	if err := p.Parse(args, c); err != nil {
		fmt.Fprintf(stdio.Stderr, "invalid arguments: %s\n%s", err, shortUsage)
		return mainer.InvalidArgs
	}

	switch {
	case c.Help:
		fmt.Fprint(stdio.Stdout, longUsage)
		return mainer.Success

	case c.Version:
		fmt.Fprintf(stdio.Stdout, "%s %s %s\n", binName, c.BuildVersion, c.BuildDate)
		return mainer.Success
	}

	ctx := mainer.CancelOnSignal(context.Background(), os.Interrupt)
	if err := c.cmdFn(ctx, stdio, c.args[1:]); err != nil {
		fmt.Fprintf(stdio.Stderr, "%s\n", err)
		return mainer.Failure
	}
	return mainer.Success
}

// valid commands are those that take a context.Context, a mainer.Stdio and
// a slice of strings as input, and return an error as output.
func buildCmds(v interface{}) map[string]func(context.Context, mainer.Stdio, []string) error {
	cmds := make(map[string]func(context.Context, mainer.Stdio, []string) error)

	vv := reflect.ValueOf(v)
	vt := vv.Type()
	for i := 0; i < vt.NumMethod(); i++ {
		m := vt.Method(i)
		mt := m.Type

		if mt.NumIn() != 4 || mt.NumOut() != 1 {
			continue
		}
		if rt := mt.Out(0); rt.Kind() != reflect.Interface || rt.Name() != "error" {
			continue
		}
		if p0 := mt.In(0); p0.Kind() != reflect.Ptr || p0.Elem().Name() != "Cmd" {
			continue
		}
		if p1 := mt.In(1); p1.Kind() != reflect.Interface || p1.Name() != "Context" {
			continue
		}
		if p2 := mt.In(2); p2.Kind() != reflect.Struct || p2.Name() != "Stdio" {
			continue
		}
		if p3 := mt.In(3); p3.Kind() != reflect.Slice || p3.Elem().Name() != "string" {
			continue
		}
		cmds[strings.ToLower(m.Name)] = vv.Method(i).Interface().(func(context.Context, mainer.Stdio, []string) error)
	}
	return cmds
}
