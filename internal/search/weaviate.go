package search

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/google/uuid"
	"github.com/weaviate/weaviate-go-client/v5/weaviate"
	wvauth "github.com/weaviate/weaviate-go-client/v5/weaviate/auth"
	"github.com/weaviate/weaviate-go-client/v5/weaviate/fault"
	"github.com/weaviate/weaviate-go-client/v5/weaviate/graphql"
	"github.com/weaviate/weaviate/entities/models"
)

var objectNamespace = uuid.MustParse("6f0c8a52-2d0e-4b7e-9a53-3f1c7e2b9d41")

// WeaviateBackend stores one object per user in a vectorless class and
// answers queries with BM25.
type WeaviateBackend struct {
	client *weaviate.Client
	class  string
}

func NewWeaviateBackend(rawURL, apiKey, class string) (*WeaviateBackend, error) {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return nil, fmt.Errorf("invalid WEAVIATE_URL %q", rawURL)
	}

	cfg := weaviate.Config{
		Host:   u.Host,
		Scheme: u.Scheme,
	}
	if apiKey != "" {
		cfg.AuthConfig = wvauth.ApiKey{Value: apiKey}
	}

	client, err := weaviate.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create weaviate client: %w", err)
	}
	return &WeaviateBackend{client: client, class: class}, nil
}

func userClass(name string) *models.Class {
	return &models.Class{
		Class:       name,
		Description: "Searchable user identifiers",
		Vectorizer:  "none",
		Properties: []*models.Property{
			{
				Name:     "user_id",
				DataType: []string{"int"},
			},
			{
				Name:         "username",
				DataType:     []string{"text"},
				Tokenization: "word",
			},
			{
				Name:         "public_id",
				DataType:     []string{"text"},
				Tokenization: "word",
			},
		},
	}
}

// EnsureSchema creates the class when it does not exist yet.
func (b *WeaviateBackend) EnsureSchema(ctx context.Context) error {
	if _, err := b.client.Schema().ClassGetter().WithClassName(b.class).Do(ctx); err == nil {
		return nil
	}
	if err := b.client.Schema().ClassCreator().WithClass(userClass(b.class)).Do(ctx); err != nil {
		return fmt.Errorf("failed to create class %s: %w", b.class, err)
	}
	return nil
}

func (b *WeaviateBackend) Ready(ctx context.Context) error {
	ok, err := b.client.Misc().ReadyChecker().Do(ctx)
	if err != nil {
		return err
	}
	if !ok {
		return errors.New("weaviate not ready")
	}
	return nil
}

func objectID(id int64) string {
	return uuid.NewSHA1(objectNamespace, []byte("user:"+strconv.FormatInt(id, 10))).String()
}

func (b *WeaviateBackend) Upsert(ctx context.Context, doc Document) error {
	id := objectID(doc.ID)
	props := map[string]interface{}{
		"user_id":   doc.ID,
		"username":  doc.Username,
		"public_id": doc.PublicID,
	}

	exists, err := b.client.Data().Checker().WithClassName(b.class).WithID(id).Do(ctx)
	if err != nil {
		return fmt.Errorf("check object: %w", err)
	}

	if exists {
		err = b.client.Data().Updater().
			WithClassName(b.class).
			WithID(id).
			WithProperties(props).
			Do(ctx)
		if err != nil {
			return fmt.Errorf("update object: %w", err)
		}
		return nil
	}

	_, err = b.client.Data().Creator().
		WithClassName(b.class).
		WithID(id).
		WithProperties(props).
		Do(ctx)
	if err != nil {
		return fmt.Errorf("create object: %w", err)
	}
	return nil
}

func (b *WeaviateBackend) Delete(ctx context.Context, id int64) error {
	err := b.client.Data().Deleter().
		WithClassName(b.class).
		WithID(objectID(id)).
		Do(ctx)
	if isNotFound(err) {
		return ErrNotFound
	}
	return err
}

func isNotFound(err error) bool {
	var clientErr *fault.WeaviateClientError
	return errors.As(err, &clientErr) && clientErr.StatusCode == http.StatusNotFound
}

func (b *WeaviateBackend) Search(ctx context.Context, text string, limit int) ([]int64, error) {
	bm25 := b.client.GraphQL().Bm25ArgBuilder().
		WithQuery(text).
		WithProperties("username^2", "public_id")

	result, err := b.client.GraphQL().Get().
		WithClassName(b.class).
		WithBM25(bm25).
		WithFields(graphql.Field{Name: "user_id"}).
		WithLimit(limit).
		Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("bm25 query: %w", err)
	}

	return parseHits(result, b.class)
}

type hit struct {
	UserID json.Number `json:"user_id"`
}

// parseHits extracts user ids from a Get response, keeping their order.
func parseHits(result *models.GraphQLResponse, class string) ([]int64, error) {
	if result == nil {
		return nil, errors.New("empty graphql response")
	}
	if len(result.Errors) > 0 {
		return nil, fmt.Errorf("graphql error: %s", result.Errors[0].Message)
	}

	raw, err := json.Marshal(result.Data["Get"])
	if err != nil {
		return nil, fmt.Errorf("malformed response: %w", err)
	}

	var get map[string][]hit
	if err := json.Unmarshal(raw, &get); err != nil {
		return nil, fmt.Errorf("malformed response: %w", err)
	}

	hits := get[class]
	ids := make([]int64, 0, len(hits))
	for _, h := range hits {
		id, err := h.UserID.Int64()
		if err != nil {
			f, ferr := h.UserID.Float64()
			if ferr != nil {
				return nil, fmt.Errorf("malformed user_id %q", h.UserID)
			}
			id = int64(f)
		}
		ids = append(ids, id)
	}
	return ids, nil
}
