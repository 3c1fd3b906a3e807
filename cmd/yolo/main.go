package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/nvr-ai/go-yolo/detector"
	"github.com/nvr-ai/go-yolo/images"
	"github.com/nvr-ai/go-yolo/inference"
	"github.com/nvr-ai/go-yolo/render"
	"github.com/nvr-ai/go-yolo/server"
)

// flags holds the command line. Zero values leave the config untouched,
// except for the thresholds, which apply whenever they appear in set.
type flags struct {
	configPath string
	modelPath  string
	engine     string
	labelsPath string
	threads    int
	inputSize  int
	stride     int
	confidence float64
	iou        float64
	classAware bool

	imagePath string
	dirPath   string
	outPath   string

	serveAddr    string
	maxImageEdge int

	// set names the flags given explicitly on the command line.
	set map[string]bool
}

func parseFlags() flags {
	var f flags
	flag.StringVar(&f.configPath, "config", "", "Path to a YAML detector config")
	flag.StringVar(&f.modelPath, "model", "", "Path to a .tflite or .onnx model (overrides config)")
	flag.StringVar(&f.engine, "engine", "", "Interpreter backend: tflite or onnx (overrides config)")
	flag.StringVar(&f.labelsPath, "labels", "", "Path to a labels file, one per line (overrides config)")
	flag.IntVar(&f.threads, "threads", 0, "Interpreter thread count (overrides config)")
	flag.IntVar(&f.inputSize, "input-size", 0, "Square ONNX model input edge (overrides config)")
	flag.IntVar(&f.stride, "stride", 0, "Offset between detections in the output tensor (overrides config)")
	flag.Float64Var(&f.confidence, "confidence", 0, "Confidence threshold (overrides config)")
	flag.Float64Var(&f.iou, "iou", 0, "NMS IoU threshold (overrides config)")
	flag.BoolVar(&f.classAware, "class-aware", false, "Suppress overlapping boxes only within the same class")
	flag.StringVar(&f.imagePath, "image", "", "Image to run detection on")
	flag.StringVar(&f.dirPath, "dir", "", "Run detection on every image in this directory")
	flag.StringVar(&f.outPath, "out", "", "Write the annotated image here (.jpg, .png or .webp); a directory with -dir")
	flag.StringVar(&f.serveAddr, "serve", "", "Serve the HTTP API on this address, e.g. :8080")
	flag.IntVar(&f.maxImageEdge, "max-edge", 0, "Shrink uploads whose longest edge exceeds this many pixels")
	flag.Parse()

	f.set = make(map[string]bool)
	flag.Visit(func(fl *flag.Flag) { f.set[fl.Name] = true })
	return f
}

// loadConfig layers command line overrides over the config file or defaults.
func loadConfig(f flags) (detector.Config, error) {
	cfg := detector.DefaultConfig()
	if f.configPath != "" {
		loaded, err := detector.LoadConfig(f.configPath)
		if err != nil {
			return detector.Config{}, err
		}
		cfg = loaded
	}

	if f.modelPath != "" {
		cfg.Provider.ModelPath = f.modelPath
	}
	if f.engine != "" {
		cfg.Provider.Engine = inference.EngineType(f.engine)
	}
	if f.labelsPath != "" {
		cfg.LabelsPath = f.labelsPath
	}
	if f.threads > 0 {
		cfg.Provider.NumThreads = f.threads
	}
	if f.inputSize > 0 {
		cfg.Provider.InputSize = f.inputSize
	}
	if f.stride > 0 {
		cfg.Decode.Stride = f.stride
	}
	if f.set["confidence"] {
		cfg.Decode.ConfidenceThreshold = float32(f.confidence)
	}
	if f.set["iou"] {
		cfg.NMS.IoUThreshold = float32(f.iou)
	}
	if f.classAware {
		cfg.NMS.ClassAware = true
	}

	return cfg, cfg.Validate()
}

func main() {
	f := parseFlags()
	if f.imagePath == "" && f.dirPath == "" && f.serveAddr == "" {
		fmt.Fprintln(os.Stderr, "one of -image, -dir or -serve is required")
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := loadConfig(f)
	if err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}

	d, err := detector.NewBuilder().WithConfig(cfg).Build()
	if err != nil {
		log.Fatalf("failed to initialize detector: %v", err)
	}
	defer d.Close()

	if f.serveAddr != "" {
		if err := serve(d, f.serveAddr, f.maxImageEdge); err != nil {
			log.Printf("server stopped: %v", err)
		}
		return
	}

	if f.dirPath != "" {
		if err := detectDirectory(d, f.dirPath, f.outPath); err != nil {
			log.Printf("detection failed: %v", err)
			d.Close()
			os.Exit(1)
		}
		return
	}

	if err := detectImage(d, f.imagePath, f.outPath); err != nil {
		log.Printf("detection failed: %v", err)
		d.Close()
		os.Exit(1)
	}
}

// detectDirectory runs detection on each image in dir. Annotated copies are
// written to outDir as PNG when it is set. A failing image is logged and
// skipped.
func detectDirectory(d *detector.Detector, dir, outDir string) error {
	paths, err := images.ListDirectory(dir)
	if err != nil {
		return err
	}
	if outDir != "" {
		if err := os.MkdirAll(outDir, 0o755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	failed := 0
	for _, path := range paths {
		out := ""
		if outDir != "" {
			base := filepath.Base(path)
			out = filepath.Join(outDir, strings.TrimSuffix(base, filepath.Ext(base))+".png")
		}
		if err := detectImage(d, path, out); err != nil {
			log.Printf("%s: %v", path, err)
			failed++
		}
	}

	stats := d.Stats()
	log.Printf("processed %d images (%d failed), average inference %v", len(paths), failed, stats.AverageTime)
	if failed == len(paths) && failed > 0 {
		return fmt.Errorf("all %d images failed", failed)
	}
	return nil
}

func detectImage(d *detector.Detector, imagePath, outPath string) error {
	img, err := images.Open(imagePath)
	if err != nil {
		return err
	}

	start := time.Now()
	detections, err := d.DetectLabeled(context.Background(), img)
	if err != nil {
		return err
	}
	log.Printf("%s: %d detections in %v", imagePath, len(detections), time.Since(start))
	for _, det := range detections {
		fmt.Println(det)
	}

	if outPath == "" {
		return nil
	}
	annotated, err := render.Draw(img, detections, render.DefaultStyle())
	if err != nil {
		return err
	}
	if err := render.Save(outPath, annotated); err != nil {
		return err
	}
	log.Printf("annotated image written to %s", outPath)
	return nil
}

func serve(d *detector.Detector, addr string, maxImageEdge int) error {
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	handler := server.NewHandler(d, server.WithMaxImageEdge(maxImageEdge))
	srv := &http.Server{
		Addr:              addr,
		Handler:           server.NewRouter(handler),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		slog.Info("server starting", "addr", addr, "model", d.Config().Provider.ModelPath)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	slog.Info("server shutting down")
	return srv.Shutdown(shutdownCtx)
}
