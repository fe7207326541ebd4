package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"log/slog"
	"os"
	"time"

	"github.com/joho/godotenv"

	toolrpc "github.com/evermint/go-toolrpc"
)

func main() {
	// A local .env is optional; deployments inject the environment directly.
	_ = godotenv.Load()

	cfg := toolrpc.Config{
		BaseURL:  os.Getenv("TOOLRPC_BASE_URL"),
		EntityID: os.Getenv("TOOLRPC_ENTITY_ID"),
		OrgID:    os.Getenv("TOOLRPC_ORG_ID"),
		Token:    os.Getenv("TOOLRPC_TOKEN"),
		ClientInfo: toolrpc.Info{
			Name:    "toolrpc-example",
			Version: "0.1.0",
		},
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	sess, err := toolrpc.NewSession(cfg, toolrpc.WithLogger(logger))
	if err != nil {
		log.Fatalf("failed to create session: %v", err)
	}
	defer sess.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	if err := sess.Initialize(ctx); err != nil {
		log.Fatalf("failed to initialize session: %v", err)
	}

	fmt.Println("Available tools:")
	for _, tool := range sess.ListTools(ctx) {
		fmt.Printf("  - %s: %s\n", tool.Name, tool.Description)
	}

	out := sess.CallTool(ctx, "create_invoice", json.RawMessage(`{"customer":"ACME","amount":1250}`))
	fmt.Println(out)
}
