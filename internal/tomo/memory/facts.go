package memory

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// snapshotSchema describes the persisted memory file: a JSON object mapping
// user IDs to a record with a "long" array of fact strings. A file that does
// not validate is treated exactly like a malformed one — empty store.
var snapshotSchema = jsonschema.MustCompileString("memories.schema.json", `{
	"type": "object",
	"additionalProperties": {
		"type": "object",
		"properties": {
			"long": {
				"type": "array",
				"items": {"type": "string"}
			}
		},
		"required": ["long"]
	}
}`)

// userRecord is the per-user entry in the persisted snapshot.
type userRecord struct {
	Long []string `json:"long"`
}

// FactStore is the durable mapping from user ID to fact list. The whole
// mapping is loaded once at startup and rewritten in full after every
// successful curation. Durable memory is best-effort enrichment, so a
// missing, unreadable, or malformed file is never fatal: the store simply
// starts empty. Safe for concurrent use; a single writer lock serialises
// snapshot rewrites across users.
type FactStore struct {
	mu    sync.Mutex
	path  string
	log   *slog.Logger
	facts map[string][]string
}

// OpenFactStore loads the snapshot at path, recovering silently to an empty
// store on any read, parse, or validation failure.
func OpenFactStore(path string, log *slog.Logger) *FactStore {
	if log == nil {
		log = slog.Default()
	}
	s := &FactStore{
		path:  path,
		log:   log,
		facts: make(map[string][]string),
	}
	s.load()
	return s
}

// load reads and validates the snapshot file. Failures are logged and
// swallowed: availability over alerting.
func (s *FactStore) load() {
	raw, err := os.ReadFile(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			s.log.Warn("memory: snapshot unreadable, starting empty", "path", s.path, "err", err)
		}
		return
	}
	if strings.TrimSpace(string(raw)) == "" {
		return
	}

	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		s.log.Warn("memory: snapshot is not valid JSON, starting empty", "path", s.path, "err", err)
		return
	}
	if err := snapshotSchema.Validate(doc); err != nil {
		s.log.Warn("memory: snapshot failed schema validation, starting empty", "path", s.path, "err", err)
		return
	}

	var snapshot map[string]userRecord
	if err := json.Unmarshal(raw, &snapshot); err != nil {
		s.log.Warn("memory: snapshot decode failed, starting empty", "path", s.path, "err", err)
		return
	}
	for userID, rec := range snapshot {
		s.facts[userID] = rec.Long
	}
	s.log.Info("memory: snapshot loaded", "path", s.path, "users", len(s.facts))
}

// Facts returns a copy of the user's fact list, nil when none are stored.
func (s *FactStore) Facts(userID string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return copyFacts(s.facts[userID])
}

// Replace sets the user's fact list and rewrites the whole snapshot file with
// 2-space indentation. The in-memory state is updated even when the write
// fails, so a transient disk error costs durability, not correctness.
func (s *FactStore) Replace(userID string, facts []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.facts[userID] = copyFacts(facts)

	snapshot := make(map[string]userRecord, len(s.facts))
	for id, f := range s.facts {
		if f == nil {
			f = []string{} // keep "long" an array, never null, in the file
		}
		snapshot[id] = userRecord{Long: f}
	}
	data, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return fmt.Errorf("memory: encode snapshot: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0o644); err != nil {
		return fmt.Errorf("memory: write snapshot: %w", err)
	}
	return nil
}

// Users returns the number of users with stored facts.
func (s *FactStore) Users() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.facts)
}
