package contract

import "context"

type ToolGateway interface {
	Invoke(ctx context.Context, req ToolRequest) (ToolResult, error)
}

type MemoryStore interface {
	Insert(ctx context.Context, documents []string, ids []string, metadatas []map[string]string) error
	Query(ctx context.Context, queryTexts []string, topK int) ([]MemoryQueryResult, error)
}

type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte) (string, error)
}
