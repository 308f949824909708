// Package es 提供了与 Elasticsearch 交互的客户端功能。
package es

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"tarot-ai-go/internal/config"
	"tarot-ai-go/internal/model"
	"tarot-ai-go/pkg/log"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
)

// Client 封装会话转录索引。
type Client struct {
	es        *elasticsearch.Client
	indexName string
}

// InitES 初始化 Elasticsearch 客户端，并确保索引存在。
func InitES(esCfg config.ElasticsearchConfig) (*Client, error) {
	var addresses []string
	for _, a := range strings.Split(esCfg.Addresses, ",") {
		if a = strings.TrimSpace(a); a != "" {
			addresses = append(addresses, a)
		}
	}
	client, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: addresses,
		Username:  esCfg.Username,
		Password:  esCfg.Password,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create elasticsearch client: %w", err)
	}
	c := NewClient(client, esCfg.IndexName)
	if err := c.createIndexIfNotExists(context.Background()); err != nil {
		return nil, err
	}
	return c, nil
}

// NewClient 使用已有的 Elasticsearch 客户端。
func NewClient(client *elasticsearch.Client, indexName string) *Client {
	return &Client{es: client, indexName: indexName}
}

const transcriptMapping = `{
	"mappings": {
		"properties": {
			"conversation_id": { "type": "keyword" },
			"title": { "type": "text" },
			"content": { "type": "text" },
			"message_count": { "type": "integer" },
			"updated_at": { "type": "date" }
		}
	}
}`

// createIndexIfNotExists 检查索引是否存在，如果不存在则创建它
func (c *Client) createIndexIfNotExists(ctx context.Context) error {
	res, err := c.es.Indices.Exists([]string{c.indexName}, c.es.Indices.Exists.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("检查索引是否存在时出错: %w", err)
	}
	res.Body.Close()
	if res.StatusCode == http.StatusOK {
		log.Infof("索引 '%s' 已存在", c.indexName)
		return nil
	}
	if res.StatusCode != http.StatusNotFound {
		return fmt.Errorf("检查索引是否存在时收到意外的状态码: %d", res.StatusCode)
	}

	res, err = c.es.Indices.Create(
		c.indexName,
		c.es.Indices.Create.WithBody(strings.NewReader(transcriptMapping)),
		c.es.Indices.Create.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("创建索引 '%s' 失败: %w", c.indexName, err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("创建索引时 Elasticsearch 返回错误: %s", res.String())
	}

	log.Infof("索引 '%s' 创建成功", c.indexName)
	return nil
}

// IndexTranscript 以会话 ID 为文档 ID 写入（覆盖）转录文档。
func (c *Client) IndexTranscript(ctx context.Context, doc model.TranscriptDocument) error {
	docBytes, err := json.Marshal(doc)
	if err != nil {
		return err
	}

	req := esapi.IndexRequest{
		Index:      c.indexName,
		DocumentID: doc.ConversationID,
		Body:       bytes.NewReader(docBytes),
		Refresh:    "true",
	}
	res, err := req.Do(ctx, c.es)
	if err != nil {
		return fmt.Errorf("failed to index transcript: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("failed to index transcript: %s", res.String())
	}
	return nil
}

// DeleteTranscript 删除会话的转录文档。文档不存在不视为错误。
func (c *Client) DeleteTranscript(ctx context.Context, conversationID string) error {
	req := esapi.DeleteRequest{
		Index:      c.indexName,
		DocumentID: conversationID,
		Refresh:    "true",
	}
	res, err := req.Do(ctx, c.es)
	if err != nil {
		return fmt.Errorf("failed to delete transcript: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() && res.StatusCode != http.StatusNotFound {
		return fmt.Errorf("failed to delete transcript: %s", res.String())
	}
	return nil
}

type searchResponse struct {
	Hits struct {
		Hits []struct {
			ID     string  `json:"_id"`
			Score  float64 `json:"_score"`
			Source struct {
				Title     string    `json:"title"`
				UpdatedAt time.Time `json:"updated_at"`
			} `json:"_source"`
			Highlight map[string][]string `json:"highlight"`
		} `json:"hits"`
	} `json:"hits"`
}

// SearchTranscripts 在标题和内容上做全文检索，标题权重更高。
func (c *Client) SearchTranscripts(ctx context.Context, query string, size int) ([]model.TranscriptHit, error) {
	body := map[string]any{
		"size": size,
		"query": map[string]any{
			"multi_match": map[string]any{
				"query":  query,
				"fields": []string{"title^2", "content"},
			},
		},
		"highlight": map[string]any{
			"fields": map[string]any{
				"content": map[string]any{"fragment_size": 120, "number_of_fragments": 3},
			},
		},
	}
	bodyBytes, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}

	res, err := c.es.Search(
		c.es.Search.WithContext(ctx),
		c.es.Search.WithIndex(c.indexName),
		c.es.Search.WithBody(bytes.NewReader(bodyBytes)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to search transcripts: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		raw, _ := io.ReadAll(res.Body)
		return nil, fmt.Errorf("failed to search transcripts: %s %s", res.Status(), string(raw))
	}

	var parsed searchResponse
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("failed to decode search response: %w", err)
	}

	hits := make([]model.TranscriptHit, 0, len(parsed.Hits.Hits))
	for _, h := range parsed.Hits.Hits {
		hits = append(hits, model.TranscriptHit{
			ConversationID: h.ID,
			Title:          h.Source.Title,
			Score:          h.Score,
			Highlights:     h.Highlight["content"],
			UpdatedAt:      model.LocalTime(h.Source.UpdatedAt),
		})
	}
	return hits, nil
}
