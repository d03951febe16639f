// Package deliverylog indexes finished dispatch outcomes into Elasticsearch
// for operational search. The delivery core never reads this index and a sink
// failure never affects a dispatch.
package deliverylog

import (
	"bytes"
	"context"
	"encoding/json"

	"family-notify/internal/common/logger"
	"family-notify/internal/models"

	"github.com/elastic/go-elasticsearch/v8"
)

type Indexer struct {
	es    *elasticsearch.Client
	index string
	log   logger.Logger
}

func New(es *elasticsearch.Client, index string, log logger.Logger) *Indexer {
	return &Indexer{
		es:    es,
		index: index,
		log:   log.WithFields(map[string]interface{}{"sink": "deliverylog"}),
	}
}

// Index writes one dispatch result. Errors are logged and swallowed.
func (i *Indexer) Index(ctx context.Context, result *models.DispatchResult) {
	body, err := json.Marshal(result)
	if err != nil {
		i.log.Warn("marshal dispatch result failed", map[string]interface{}{
			"dispatchId": result.DispatchID,
			"error":      err.Error(),
		})
		return
	}

	res, err := i.es.Index(
		i.index,
		bytes.NewReader(body),
		i.es.Index.WithContext(ctx),
		i.es.Index.WithDocumentID(result.DispatchID),
	)
	if err != nil {
		i.log.Warn("index dispatch result failed", map[string]interface{}{
			"dispatchId": result.DispatchID,
			"error":      err.Error(),
		})
		return
	}
	defer res.Body.Close()

	if res.IsError() {
		i.log.Warn("index dispatch result rejected", map[string]interface{}{
			"dispatchId": result.DispatchID,
			"status":     res.Status(),
		})
	}
}
