// Tomo is a Matrix companion bot with per-user long-term memory.
//
// All configuration is loaded from environment variables, optionally
// supplemented by a YAML file for the persona and model chain. The bot
// connects to a Matrix homeserver, loads its memory snapshot, and answers
// text messages in the allowed rooms using an OpenAI-compatible backend with
// ordered model fallback.
//
// Required environment variables:
//
//	MATRIX_HOMESERVER      - Matrix homeserver URL (e.g. "https://matrix.org")
//	MATRIX_USER_ID         - bot's Matrix ID (e.g. "@tomo:matrix.org")
//	MATRIX_ACCESS_TOKEN    - bot's Matrix access token
//
// Optional environment variables:
//
//	MATRIX_ALLOWED_ROOMS   - comma-separated room IDs the bot listens in
//	TOMO_API_KEY           - API key for the LLM backend
//	TOMO_BASE_URL          - override the backend base URL (e.g. for Ollama)
//	TOMO_MODELS            - comma-separated fallback chain, most capable first
//	TOMO_MEMORY_FILE       - memory snapshot path (default: memories.json)
//	TOMO_SHORT_TERM_TURNS  - exchanges kept per user (default: 6)
//	TOMO_TIMEOUT           - per-request backend timeout (default: 2m)
//	TOMO_CONFIG            - path to a YAML file (persona, models, tuning)
//	DATABASE_PATH          - SQLite path for Matrix sync state (empty: none)
//	LOG_LEVEL              - "debug", "info", "warn", "error" (default: "info")
//	LOG_FORMAT             - "text" or "json" (default: "text")
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/bdobrica/Tomo/common/version"
	"github.com/bdobrica/Tomo/internal/tomo/app"
	"github.com/bdobrica/Tomo/internal/tomo/config"
)

func main() {
	if len(os.Args) > 1 && os.Args[1] == "version" {
		fmt.Println("tomo", version.Info())
		return
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}

	tomo, err := app.New(cfg)
	if err != nil {
		slog.Error("failed to initialize Tomo", "err", err)
		os.Exit(1)
	}

	if err := tomo.Run(); err != nil {
		slog.Error("Tomo exited with error", "err", err)
		os.Exit(1)
	}
}
