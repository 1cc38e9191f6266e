package main

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"
	uv "github.com/charmbracelet/ultraviolet"
	"github.com/taigrr/quadrics/pkg/render"
)

func runView(ctx context.Context, opts *options, logger *log.Logger) error {
	if opts.fps <= 0 {
		return fmt.Errorf("invalid fps %d", opts.fps)
	}

	s, cam, err := newScene(opts, logger)
	if err != nil {
		return err
	}

	term := uv.DefaultTerminal()

	width, height, err := term.GetSize()
	if err != nil {
		return fmt.Errorf("get terminal size: %w", err)
	}

	if err := term.Start(); err != nil {
		return fmt.Errorf("start terminal: %w", err)
	}

	term.EnterAltScreen()
	term.HideCursor()
	term.Resize(width, height)

	presenter := render.NewTerminalPresenter(term, width, height)
	fbWidth, fbHeight := presenter.FramebufferSize()
	fb := render.NewFramebuffer(fbWidth, fbHeight)
	cam.SetAspectRatio(fb.AspectRatio())

	tracer, err := newTracer(opts, fb, logger)
	if err != nil {
		term.Shutdown(context.Background())
		return err
	}

	title := "chess"
	if opts.scenePath != "" {
		title = filepath.Base(opts.scenePath)
	}
	hud := NewHUD(title, len(s.Quadrics()), len(s.Lights()))
	var controls Controls

	cleanup := func() {
		term.ExitAltScreen()
		term.ShowCursor()
		term.Shutdown(context.Background())
	}

	logger.Info("viewer started", "width", fbWidth, "height", fbHeight, "fps", opts.fps)

	targetDuration := time.Second / time.Duration(opts.fps)
	events := term.Events()

	for {
		now := time.Now()

		// Drain pending events before drawing the frame.
	drain:
		for {
			select {
			case <-ctx.Done():
				cleanup()
				return nil
			case ev := <-events:
				switch ev := ev.(type) {
				case uv.WindowSizeEvent:
					width, height = ev.Width, ev.Height
					term.Erase()
					term.Resize(width, height)
					presenter = render.NewTerminalPresenter(term, width, height)
					fbWidth, fbHeight = presenter.FramebufferSize()
					fb = render.NewFramebuffer(fbWidth, fbHeight)
					tracer.SetFramebuffer(fb)
					cam.SetAspectRatio(fb.AspectRatio())
					logger.Debug("resized", "width", fbWidth, "height", fbHeight)

				case uv.KeyPressEvent:
					switch {
					case ev.MatchString("escape", "ctrl+c"):
						cleanup()
						return nil
					case ev.MatchString("r"):
						if err := s.Reset(); err != nil {
							cleanup()
							return err
						}
						cam.Stop()
						controls.Reset()
					case ev.MatchString("?", "shift+/"):
						hud.Toggle()
					default:
						controls.Press(ev, now)
					}

				case uv.KeyReleaseEvent:
					controls.Release(ev)
				}
			default:
				break drain
			}
		}

		if err := s.Update(now, controls.Input(now), tracer); err != nil {
			cleanup()
			return err
		}

		hud.Update(now, tracer.Stats(), controls.Boost())
		if err := presenter.Present(fb, hud); err != nil {
			cleanup()
			return err
		}

		// Frame timing
		elapsed := time.Since(now)
		if elapsed < targetDuration {
			time.Sleep(targetDuration - elapsed)
		}
	}
}
