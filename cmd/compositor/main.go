// Copyright (c) 2026, The Compositor Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Command compositor is the display server: it multiplexes one
// framebuffer among client programs, natively or nested inside another
// compositor session.
package main

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/yabsym/compositor/backend"
	"github.com/yabsym/compositor/input"
	"github.com/yabsym/compositor/internal/errs"
	"github.com/yabsym/compositor/nested"
	"github.com/yabsym/compositor/render"
	"github.com/yabsym/compositor/server"
	"github.com/yabsym/compositor/session"
	"github.com/yabsym/compositor/transport"
)

const (
	framebufferDev = "/dev/fb0"
	mouseDev       = "/dev/input/mice"
	keyboardDev    = "/dev/kbd"
	defaultShell   = "/bin/glogin"
)

var (
	nest     bool
	geometry string
)

var rootCmd = &cobra.Command{
	Use:   "compositor [session-shell [args...]]",
	Short: "Window compositor and display server",
	Long: `compositor multiplexes a framebuffer among client programs, arbitrating
their drawing and input events. With --nest it runs as a client of the
compositor named by DISPLAY, presenting into a host window instead of
the raw framebuffer.`,
	Args:          cobra.ArbitraryArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          run,
}

func init() {
	rootCmd.Flags().BoolVarP(&nest, "nest", "n", false, "run nested inside the compositor named by DISPLAY")
	rootCmd.Flags().StringVarP(&geometry, "geometry", "g", "640x480", "nested framebuffer size as WxH")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func parseGeometry(s string) (int, int, error) {
	ws, hs, ok := strings.Cut(s, "x")
	var w, h int
	if ok {
		_, werr := fmt.Sscanf(ws, "%d", &w)
		_, herr := fmt.Sscanf(hs, "%d", &h)
		if werr == nil && herr == nil && w > 0 && h > 0 {
			return w, h, nil
		}
	}
	return 0, 0, fmt.Errorf("invalid geometry %q, want WxH", s)
}

func run(cmd *cobra.Command, args []string) error {
	width, height, err := parseGeometry(geometry)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ident := session.Ident(nest)

	var presenter render.Presenter
	var adapter *nested.Adapter
	if nest {
		hostIdent := os.Getenv("DISPLAY")
		if hostIdent == "" {
			return fmt.Errorf("nested mode needs DISPLAY to name the host compositor")
		}
		host, err := transport.DialWS(hostIdent)
		if err != nil {
			return err
		}
		adapter, err = nested.Connect(host, hostIdent, width, height)
		if err != nil {
			return err
		}
		defer adapter.Close()
		presenter = adapter
	} else {
		fb, closeFB, err := backend.OpenFramebuffer(framebufferDev, width, height)
		if err != nil {
			return err
		}
		defer closeFB()
		presenter = render.NativePresenter{Out: fb}
	}

	if err := session.ExportDisplay(ident); err != nil {
		return err
	}
	t, err := transport.ListenWS(ident)
	if err != nil {
		return err
	}
	defer t.Close()

	comp := server.New(ident, width, height, t, presenter)
	go comp.Loop.Run(ctx)

	if nest {
		local, err := transport.DialWS(ident)
		if err != nil {
			return err
		}
		go adapter.ForwardInput(ctx, local)
	} else {
		startInputReaders(ctx, ident)
	}

	launchSessionShell(args)

	// A signal unblocks the receive loop by shutting the transport down.
	go func() {
		<-ctx.Done()
		t.Close()
	}()

	err = comp.Run(ctx)
	if ctx.Err() != nil {
		return nil // clean shutdown on signal
	}
	return err
}

// startInputReaders spawns the mouse and keyboard reader threads. Each
// connects to the transport as its own synthetic client, exactly like
// an external program would. A missing device is logged and skipped so
// the compositor still serves protocol clients (e.g. in a headless
// test session).
func startInputReaders(ctx context.Context, ident string) {
	if f, err := os.Open(mouseDev); errs.Log(err) == nil {
		if c, err := transport.DialWS(ident); errs.Log(err) == nil {
			go func() {
				defer f.Close()
				input.ReadMouse(ctx, f, c)
			}()
		}
	}
	if f, err := os.Open(keyboardDev); errs.Log(err) == nil {
		if c, err := transport.DialWS(ident); errs.Log(err) == nil {
			go func() {
				defer f.Close()
				input.ReadKeyboard(ctx, f, c)
			}()
		}
	}
}

// launchSessionShell execs the positional arguments as the session
// shell, or the default login shell when none were given. The child
// inherits DISPLAY and finds the compositor on its own.
func launchSessionShell(args []string) {
	if len(args) == 0 {
		args = []string{defaultShell}
	}
	c := exec.Command(args[0], args[1:]...)
	c.Stdout = os.Stdout
	c.Stderr = os.Stderr
	errs.Log(c.Start())
}
