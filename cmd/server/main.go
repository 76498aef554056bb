// Command server runs the embryo grading web service.
package main

import (
	"flag"
	"log"

	"github.com/embryo-vision/go-embryo/config"
	"github.com/embryo-vision/go-embryo/inference"
	"github.com/embryo-vision/go-embryo/profiler"
	"github.com/embryo-vision/go-embryo/server"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to the YAML configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	prof := profiler.New()

	log.Printf("Loading model from: %s", cfg.Model.Path)
	classifier, err := inference.NewClassifier(inference.NewClassifierArgs{
		Model:    cfg.Model,
		Provider: cfg.Provider,
		Profiler: prof,
	})
	if err != nil {
		// Missing or corrupt artifacts are fatal; there is no partial launch.
		log.Fatalf("Failed to initialize classifier: %v", err)
	}
	defer classifier.Close()

	meta := classifier.Metadata()
	log.Printf("Model loaded: %s", meta.ModelName)
	log.Printf("Classes: %v", meta.Classes)

	srv, err := server.NewServer(server.NewServerArgs{
		Engine:   classifier,
		Config:   cfg,
		Profiler: prof,
	})
	if err != nil {
		log.Fatalf("Failed to initialize server: %v", err)
	}

	log.Printf("Server starting on %s", cfg.ListenAddr)
	log.Println("Endpoints:")
	log.Println("  GET  /             - Upload form")
	log.Println("  POST /classify     - Classify an uploaded image (HTML)")
	log.Println("  POST /api/classify - Classify an uploaded image (JSON)")
	log.Println("  GET  /dataset      - Dataset exploration")
	log.Println("  GET  /healthz      - Health check")
	log.Println("  GET  /stats        - Runtime statistics")

	if err := srv.ListenAndServe(); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}
