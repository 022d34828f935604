package memory

import (
	"context"
	"fmt"
	"strings"

	chromem "github.com/philippgille/chromem-go"

	contractx "github.com/KohJunJie/tour-agent-planner/agent/contract"
)

type Config struct {
	// PersistPath is the durable storage location; empty runs in-memory only.
	PersistPath string `envconfig:"PERSIST_PATH" split_words:"true" default:"./chroma_db"`
	Collection  string `envconfig:"COLLECTION" split_words:"true" default:"agent_memory"`
	TopK        int    `envconfig:"TOP_K" split_words:"true" default:"2"`

	OpenAIAPIKey   string `envconfig:"OPENAI_API_KEY" split_words:"true"`
	OpenAIBaseURL  string `envconfig:"OPENAI_BASE_URL" split_words:"true"`
	EmbeddingModel string `envconfig:"EMBEDDING_MODEL" split_words:"true" default:"text-embedding-3-small"`
}

// Store is the long-term vector memory: (document, id, metadata) records
// retrievable by semantic similarity, persisted across restarts. Insert and
// Query are safe for concurrent use.
type Store struct {
	db         *chromem.DB
	collection *chromem.Collection
}

var _ contractx.MemoryStore = (*Store)(nil)

func NewStore(cfg Config, embedder Embedder) (*Store, error) {
	if embedder == nil {
		embedder = NewLocalEmbedder()
	}

	collectionName := strings.TrimSpace(cfg.Collection)
	if collectionName == "" {
		collectionName = "agent_memory"
	}

	var db *chromem.DB
	var err error
	if cfg.PersistPath != "" {
		db, err = chromem.NewPersistentDB(cfg.PersistPath, false)
		if err != nil {
			return nil, fmt.Errorf("%w: open persistent store at %s: %v", contractx.ErrStoreUnavailable, cfg.PersistPath, err)
		}
	} else {
		db = chromem.NewDB()
	}

	embeddingFunc := func(ctx context.Context, text string) ([]float32, error) {
		return embedder.Embed(ctx, text)
	}

	collection, err := db.GetOrCreateCollection(collectionName, nil, embeddingFunc)
	if err != nil {
		return nil, fmt.Errorf("%w: open collection %s: %v", contractx.ErrStoreUnavailable, collectionName, err)
	}

	return &Store{db: db, collection: collection}, nil
}

// Insert persists the documents keyed by ids. documents, ids and (when
// present) metadatas must have matching lengths. Re-inserting an existing id
// overwrites its document and metadata.
func (s *Store) Insert(ctx context.Context, documents []string, ids []string, metadatas []map[string]string) error {
	if len(documents) != len(ids) {
		return fmt.Errorf("%w: documents=%d ids=%d", contractx.ErrArgumentMismatch, len(documents), len(ids))
	}
	if metadatas != nil && len(metadatas) != len(documents) {
		return fmt.Errorf("%w: documents=%d metadatas=%d", contractx.ErrArgumentMismatch, len(documents), len(metadatas))
	}

	for i := range documents {
		if strings.TrimSpace(ids[i]) == "" {
			return fmt.Errorf("%w: id at index %d is empty", contractx.ErrValidation, i)
		}
		var metadata map[string]string
		if metadatas != nil {
			metadata = metadatas[i]
		}
		err := s.collection.AddDocument(ctx, chromem.Document{
			ID:       ids[i],
			Content:  documents[i],
			Metadata: metadata,
		})
		if err != nil {
			return fmt.Errorf("%w: add document id=%s: %v", contractx.ErrStoreUnavailable, ids[i], err)
		}
	}
	return nil
}

// Query returns up to topK matches per query text, ordered by descending
// similarity. A store holding fewer than topK documents returns what it has.
func (s *Store) Query(ctx context.Context, queryTexts []string, topK int) ([]contractx.MemoryQueryResult, error) {
	if topK <= 0 {
		return nil, fmt.Errorf("%w: topK must be positive, got %d", contractx.ErrValidation, topK)
	}

	results := make([]contractx.MemoryQueryResult, 0, len(queryTexts))
	for _, query := range queryTexts {
		result := contractx.MemoryQueryResult{Query: query}

		n := topK
		if count := s.collection.Count(); n > count {
			n = count
		}
		if n > 0 {
			matches, err := s.collection.Query(ctx, query, n, nil, nil)
			if err != nil {
				return nil, fmt.Errorf("%w: query %q: %v", contractx.ErrStoreUnavailable, query, err)
			}
			for _, m := range matches {
				result.Matches = append(result.Matches, contractx.MemoryMatch{
					Record: contractx.MemoryRecord{
						ID:       m.ID,
						Document: m.Content,
						Metadata: m.Metadata,
					},
					Similarity: m.Similarity,
				})
			}
		}
		results = append(results, result)
	}
	return results, nil
}

// Count returns the number of stored records.
func (s *Store) Count() int {
	return s.collection.Count()
}
