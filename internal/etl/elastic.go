package etl

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/elastic/go-elasticsearch/v8"

	"github.com/BartekS5/moviesync/pkg/models"
)

// ElasticIndex writes each stream into the index of the same name with
// PUT /<index>/_doc/<id>, which overwrites any previous version.
type ElasticIndex struct {
	Client *elasticsearch.Client
}

func NewElasticIndex(client *elasticsearch.Client) *ElasticIndex {
	return &ElasticIndex{Client: client}
}

func (e *ElasticIndex) Upsert(ctx context.Context, index, id string, doc models.Document) error {
	body, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode %s/%s: %w", index, id, err)
	}

	res, err := e.Client.Index(index, bytes.NewReader(body),
		e.Client.Index.WithDocumentID(id),
		e.Client.Index.WithContext(ctx),
	)
	if err != nil {
		return MarkTransient(fmt.Errorf("index %s/%s: %w", index, id, err))
	}
	defer res.Body.Close()

	if res.IsError() {
		msg, _ := io.ReadAll(io.LimitReader(res.Body, 4<<10))
		err := fmt.Errorf("index %s/%s: %s: %s", index, id, res.Status(), bytes.TrimSpace(msg))
		switch res.StatusCode {
		case http.StatusTooManyRequests, http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
			return MarkTransient(err)
		}
		return err
	}
	io.Copy(io.Discard, res.Body)
	return nil
}
