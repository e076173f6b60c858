// deploy_model registers a built model artifact with a running hub.
//
// Usage:
//
//	go run ./tools/deploy_model -hub http://localhost:8080 \
//	    -model-id keyword_spotter -model-path build/kws.onnx -backend onnx
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"time"

	fleet "fleet-hub/internal/fleet/domain"
	"fleet-hub/internal/fleet/events"
)

func main() {
	hubURL := flag.String("hub", "http://localhost:8080", "base URL of the hub")
	modelID := flag.String("model-id", "", "unique model identifier")
	modelPath := flag.String("model-path", "", "path to the model artifact")
	backend := flag.String("backend", "", "inference backend: akida, onnx, tflite or cpu")
	name := flag.String("name", "", "display name (defaults to the model id)")
	flag.Parse()

	if err := run(*hubURL, *modelID, *modelPath, *backend, *name); err != nil {
		fmt.Fprintf(os.Stderr, "deploy_model: %v\n", err)
		os.Exit(1)
	}
}

func run(hubURL, modelID, modelPath, backend, name string) error {
	if modelID == "" {
		return fmt.Errorf("-model-id is required")
	}
	if modelPath == "" {
		return fmt.Errorf("-model-path is required")
	}
	if !fleet.ValidBackend(fleet.Backend(backend)) {
		return fmt.Errorf("invalid backend %q", backend)
	}
	if _, err := os.Stat(modelPath); err != nil {
		return fmt.Errorf("model file: %w", err)
	}
	if name == "" {
		name = modelID
	}

	data, err := json.Marshal(fleet.Model{
		ID:      modelID,
		Name:    name,
		Path:    modelPath,
		Backend: fleet.Backend(backend),
	})
	if err != nil {
		return err
	}
	body, err := json.Marshal(map[string]any{
		"type": events.KindModelRegister,
		"data": json.RawMessage(data),
	})
	if err != nil {
		return err
	}

	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Post(hubURL+"/api/v1/events", "application/json", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("post event: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("post event: status %d", resp.StatusCode)
	}

	fmt.Printf("registered model %s (%s backend) at %s\n", modelID, backend, modelPath)
	return nil
}
