// Package index implements the domain.Index contract on top of a ChromaDB
// collection. Embeddings are computed through the injected embedder and
// handed to Chroma explicitly, so the collection never needs a server-side
// embedding function.
package index

import (
	"context"
	"encoding/json"
	"fmt"

	chromago "github.com/amikos-tech/chroma-go/pkg/api/v2"
	"github.com/amikos-tech/chroma-go/pkg/embeddings"
	"github.com/rs/zerolog"

	"github.com/klarifai/queen-rag/internal/domain"
	embed "github.com/klarifai/queen-rag/internal/embedding"
)

// Chroma adapts a chroma-go v2 collection to the domain.Index contract.
type Chroma struct {
	collection chromago.Collection
	embedder   embed.Embedder
	log        zerolog.Logger
}

// New wraps an existing collection. The caller owns the Chroma client
// lifecycle.
func New(collection chromago.Collection, embedder embed.Embedder, log zerolog.Logger) *Chroma {
	return &Chroma{
		collection: collection,
		embedder:   embedder,
		log:        log.With().Str("component", "index").Logger(),
	}
}

// Upsert writes each chunk with its id, text, embedding and metadata.
// Chunks are written one by one; a failure leaves earlier chunks behind,
// which the document store cleans up by filename.
func (c *Chroma) Upsert(ctx context.Context, chunks []domain.Chunk) error {
	for _, chunk := range chunks {
		vector, err := c.embedder.Embed(ctx, chunk.Text)
		if err != nil {
			return &domain.IndexError{Op: "upsert", Err: fmt.Errorf("embed chunk %s: %w", chunk.ID, err)}
		}

		err = c.collection.Add(ctx,
			chromago.WithIDs(chromago.DocumentID(chunk.ID)),
			chromago.WithTexts(chunk.Text),
			chromago.WithEmbeddings(embeddings.NewEmbeddingFromFloat32(vector)),
			chromago.WithMetadatas(chunkMetadata(chunk)),
		)
		if err != nil {
			return &domain.IndexError{Op: "upsert", Err: fmt.Errorf("add chunk %s: %w", chunk.ID, err)}
		}
	}
	return nil
}

// DeleteByFilename removes every chunk whose metadata references filename.
func (c *Chroma) DeleteByFilename(ctx context.Context, filename string) error {
	where := chromago.EqString("filename", filename)
	if err := c.collection.Delete(ctx, chromago.WithWhereDelete(where)); err != nil {
		return &domain.IndexError{Op: "delete", Err: err}
	}
	return nil
}

// Filenames collects the distinct filenames that currently have chunks in
// the collection.
func (c *Chroma) Filenames(ctx context.Context) (map[string]struct{}, error) {
	results, err := c.collection.Get(ctx)
	if err != nil {
		return nil, &domain.IndexError{Op: "get", Err: err}
	}

	filenames := make(map[string]struct{})
	for _, meta := range results.GetMetadatas() {
		metaMap := metadataToMap(meta, c.log)
		if name, ok := metaMap["filename"].(string); ok {
			filenames[name] = struct{}{}
		}
	}
	return filenames, nil
}

// Query embeds the text and returns up to topK hits ordered by descending
// similarity. Distances come back ascending from Chroma; the affine
// conversion score = 1 - d/2 preserves that order as descending scores.
func (c *Chroma) Query(ctx context.Context, text string, topK int) ([]domain.SearchHit, error) {
	vector, err := c.embedder.Embed(ctx, text)
	if err != nil {
		return nil, &domain.IndexError{Op: "query", Err: fmt.Errorf("embed query: %w", err)}
	}

	results, err := c.collection.Query(ctx,
		chromago.WithQueryEmbeddings(embeddings.NewEmbeddingFromFloat32(vector)),
		chromago.WithNResults(topK),
	)
	if err != nil {
		return nil, &domain.IndexError{Op: "query", Err: err}
	}

	documentGroups := results.GetDocumentsGroups()
	metadataGroups := results.GetMetadatasGroups()
	distanceGroups := results.GetDistancesGroups()
	if len(documentGroups) == 0 {
		return nil, nil
	}

	var hits []domain.SearchHit
	for i, doc := range documentGroups[0] {
		if doc.ContentString() == "" {
			continue
		}
		var metaMap map[string]any
		if len(metadataGroups) > 0 && i < len(metadataGroups[0]) {
			metaMap = metadataToMap(metadataGroups[0][i], c.log)
		}
		var distance float64
		if len(distanceGroups) > 0 && i < len(distanceGroups[0]) {
			distance = float64(distanceGroups[0][i])
		}
		hits = append(hits, domain.SearchHit{
			Index:    len(hits),
			Content:  doc.ContentString(),
			Metadata: metaMap,
			Score:    scoreFromDistance(distance),
		})
	}

	c.log.Debug().Str("query", text).Int("hits", len(hits)).Msg("semantic search completed")
	return hits, nil
}

// Count reports the total number of chunks in the collection.
func (c *Chroma) Count(ctx context.Context) (int, error) {
	count, err := c.collection.Count(ctx)
	if err != nil {
		return 0, &domain.IndexError{Op: "count", Err: err}
	}
	return int(count), nil
}

// scoreFromDistance converts a distance in [0,2] (e.g. cosine distance)
// into a similarity score in [0,1].
func scoreFromDistance(distance float64) float64 {
	return 1.0 - distance/2.0
}

// chunkMetadata builds the per-chunk attributes: the back-reference to the
// filename, the ordinal and total, plus the caller-supplied document
// metadata flattened into typed attributes.
func chunkMetadata(chunk domain.Chunk) chromago.DocumentMetadata {
	attrs := []*chromago.MetaAttribute{
		chromago.NewStringAttribute("filename", chunk.Filename),
		chromago.NewIntAttribute("chunk", int64(chunk.Ordinal)),
		chromago.NewIntAttribute("total_chunks", int64(chunk.Total)),
	}
	for key, value := range chunk.Metadata {
		switch v := value.(type) {
		case string:
			attrs = append(attrs, chromago.NewStringAttribute(key, v))
		case bool:
			attrs = append(attrs, chromago.NewBoolAttribute(key, v))
		case int:
			attrs = append(attrs, chromago.NewIntAttribute(key, int64(v)))
		case int64:
			attrs = append(attrs, chromago.NewIntAttribute(key, v))
		case float64:
			attrs = append(attrs, chromago.NewFloatAttribute(key, v))
		default:
			attrs = append(attrs, chromago.NewStringAttribute(key, fmt.Sprintf("%v", v)))
		}
	}
	return chromago.NewDocumentMetadata(attrs...)
}

// metadataToMap converts Chroma document metadata into a plain map. The
// DocumentMetadata type exposes no direct accessor for all values, so the
// conversion goes through a JSON round-trip.
func metadataToMap(meta chromago.DocumentMetadata, log zerolog.Logger) map[string]any {
	if meta == nil {
		return map[string]any{}
	}
	jsonBytes, err := json.Marshal(meta)
	if err != nil {
		log.Warn().Err(err).Msg("could not marshal chunk metadata")
		return map[string]any{}
	}
	var metaMap map[string]any
	if err := json.Unmarshal(jsonBytes, &metaMap); err != nil {
		log.Warn().Err(err).Msg("could not unmarshal chunk metadata")
		return map[string]any{}
	}
	return metaMap
}
