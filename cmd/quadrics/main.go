// quadrics - Terminal ray tracer for clipped quadric scenes
// Fly around chess pieces built from spheres, cones, paraboloids and
// cylinders, or any scene saved as glTF, rendered in your terminal.
//
// Controls:
//
//	W/S         - Move forward/back
//	A/D         - Strafe left/right
//	Space/C     - Move up/down
//	Arrows      - Look around
//	B           - Toggle boost
//	R           - Rebuild the scene and reset motion
//	?           - Toggle HUD overlay
//	Esc         - Quit
package main

import (
	"context"
	"fmt"
	"image/color"
	"io"
	"math"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/charmbracelet/fang"
	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
	"github.com/taigrr/quadrics/pkg/math3d"
	"github.com/taigrr/quadrics/pkg/render"
	"github.com/taigrr/quadrics/pkg/scene"
	"github.com/taigrr/quadrics/pkg/sceneio"
)

var version = "dev"

type options struct {
	scenePath string
	envPath   string
	logFile   string
	logLevel  string
	fps       int
	width     int
	height    int
	depth     int
	near, far float64
	out       string
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := fang.Execute(ctx, rootCmd(), fang.WithVersion(version)); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:   "quadrics",
		Short: "Ray trace clipped quadric scenes in the terminal",
		Long: "quadrics renders scenes built from clipped quadric surfaces.\n" +
			"Without --scene it shows the built-in chess board.",
		SilenceUsage: true,
	}

	pf := root.PersistentFlags()
	pf.StringVar(&opts.scenePath, "scene", "", "glTF scene to load instead of the chess board")
	pf.StringVar(&opts.envPath, "env", "", "equirectangular environment image (PNG/JPG)")
	pf.StringVar(&opts.logFile, "log-file", "", "write logs to this file")
	pf.StringVar(&opts.logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	pf.IntVar(&opts.depth, "depth", render.DefaultMaxDepth, "reflection depth")
	pf.Float64Var(&opts.near, "near", scene.DefaultNear, "near clip distance")
	pf.Float64Var(&opts.far, "far", scene.DefaultFar, "far clip distance; primitives beyond it are culled")

	root.AddCommand(viewCmd(opts), renderCmd(opts), exportCmd(opts))
	return root
}

func viewCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "view",
		Short: "Fly through the scene in the terminal",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			logger, closeLog, err := newLogger(opts, io.Discard)
			if err != nil {
				return err
			}
			defer closeLog()
			return runView(cmd.Context(), opts, logger)
		},
	}
	cmd.Flags().IntVar(&opts.fps, "fps", 30, "target FPS")
	return cmd
}

func renderCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "render",
		Short: "Render one frame to a PNG file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			logger, closeLog, err := newLogger(opts, os.Stderr)
			if err != nil {
				return err
			}
			defer closeLog()
			return runRender(opts, logger)
		},
	}
	f := cmd.Flags()
	f.IntVar(&opts.width, "width", 640, "image width in pixels")
	f.IntVar(&opts.height, "height", 360, "image height in pixels")
	f.StringVarP(&opts.out, "out", "o", "quadrics.png", "output PNG path")
	return cmd
}

func exportCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Save the scene as a glTF document",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			logger, closeLog, err := newLogger(opts, os.Stderr)
			if err != nil {
				return err
			}
			defer closeLog()

			s, _, err := newScene(opts, logger)
			if err != nil {
				return err
			}
			if err := sceneio.Save(s, opts.out); err != nil {
				return err
			}
			logger.Info("scene exported", "path", opts.out, "quadrics", len(s.Quadrics()), "lights", len(s.Lights()))
			return nil
		},
	}
	cmd.Flags().StringVarP(&opts.out, "out", "o", "quadrics.gltf", "output glTF path")
	return cmd
}

// newLogger writes to --log-file when set, otherwise to fallback.
func newLogger(opts *options, fallback io.Writer) (*log.Logger, func(), error) {
	level, err := log.ParseLevel(opts.logLevel)
	if err != nil {
		return nil, nil, fmt.Errorf("parse log level: %w", err)
	}

	w, closeFn := fallback, func() {}
	if opts.logFile != "" {
		f, err := os.OpenFile(opts.logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("open log file: %w", err)
		}
		w, closeFn = f, func() { f.Close() }
	}

	logger := log.NewWithOptions(w, log.Options{
		Level:           level,
		Prefix:          "quadrics",
		ReportTimestamp: true,
	})
	return logger, closeFn, nil
}

// newScene builds the camera and the scene selected by opts.
func newScene(opts *options, logger *log.Logger) (*scene.Scene, *render.Camera, error) {
	cam := render.NewCamera()
	cam.SetFOV(math.Pi / 3)
	cam.SetClipPlanes(opts.near, opts.far)
	cam.LookAt(math3d.V3(0, 0, -3))

	builder := scene.BuildChess
	if opts.scenePath != "" {
		desc, err := sceneio.Load(opts.scenePath)
		if err != nil {
			return nil, nil, err
		}
		builder = desc.Build
		if p := desc.Camera; p != nil {
			cam.SetPosition(p.Position)
			cam.LookAt(p.Position.Add(p.Forward))
			cam.SetFOV(p.FOV)
			if p.Near > 0 {
				cam.SetClipPlanes(p.Clip())
			}
		}
	}

	s := scene.New(cam, scene.DefaultLimits, scene.WithLogger(logger))
	if err := s.Build(builder); err != nil {
		return nil, nil, err
	}
	return s, cam, nil
}

// newTracer builds a tracer with the environment selected by opts.
func newTracer(opts *options, fb *render.Framebuffer, logger *log.Logger) (*render.Tracer, error) {
	env := render.NewSkyTexture(256, 128, color.RGBA{R: 40, G: 70, B: 140, A: 255}, color.RGBA{R: 190, G: 200, B: 215, A: 255})
	if opts.envPath != "" {
		tex, err := render.LoadTexture(opts.envPath)
		if err != nil {
			return nil, err
		}
		env = tex
	}

	t := render.NewTracer(fb, render.WithEnvironment(env), render.WithLogger(logger))
	t.MaxDepth = opts.depth
	return t, nil
}

func runRender(opts *options, logger *log.Logger) error {
	if opts.width <= 0 || opts.height <= 0 {
		return fmt.Errorf("invalid image size %dx%d", opts.width, opts.height)
	}

	s, cam, err := newScene(opts, logger)
	if err != nil {
		return err
	}
	fb := render.NewFramebuffer(opts.width, opts.height)
	cam.SetAspectRatio(fb.AspectRatio())

	tracer, err := newTracer(opts, fb, logger)
	if err != nil {
		return err
	}
	if err := s.Update(time.Now(), scene.Input{}, tracer); err != nil {
		return err
	}
	if err := fb.SavePNG(opts.out); err != nil {
		return err
	}

	st := tracer.Stats()
	logger.Info("frame written", "path", opts.out, "rays", st.Rays, "hits", st.PrimaryHits, "culled", st.Culled)
	return nil
}
