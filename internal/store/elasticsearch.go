package store

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/elastic/go-elasticsearch/v8"
)

// DefaultIndex is the index holding one document per tool.
const DefaultIndex = "agentforge-tools"

// ElasticsearchConfig configures the Elasticsearch-backed store.
type ElasticsearchConfig struct {
	Addresses   []string
	Username    string
	Password    string
	Index       string
	VerifyCerts bool
	MaxRetries  int
	Transport   http.RoundTripper
}

// ElasticsearchStore keeps records as documents whose id is the tool name.
type ElasticsearchStore struct {
	client *elasticsearch.Client
	index  string
}

// NewElasticsearchStore creates the client. The index is created lazily by
// the first write.
func NewElasticsearchStore(cfg ElasticsearchConfig) (*ElasticsearchStore, error) {
	esCfg := elasticsearch.Config{
		Addresses:  cfg.Addresses,
		MaxRetries: cfg.MaxRetries,
		Transport:  cfg.Transport,
	}
	if cfg.Username != "" {
		esCfg.Username = cfg.Username
		esCfg.Password = cfg.Password
	}
	if !cfg.VerifyCerts && esCfg.Transport == nil {
		esCfg.Transport = &http.Transport{
			TLSClientConfig: &tls.Config{
				InsecureSkipVerify: true, // #nosec G402 - operator disabled cert verification
			},
		}
	}

	client, err := elasticsearch.NewClient(esCfg)
	if err != nil {
		return nil, errors.Wrap(err, "elasticsearch.NewClient")
	}
	index := cfg.Index
	if index == "" {
		index = DefaultIndex
	}
	return &ElasticsearchStore{client: client, index: index}, nil
}

func (s *ElasticsearchStore) Load(ctx context.Context) ([]Record, error) {
	body := `{"size":1000,"query":{"match_all":{}},"sort":[{"_doc":"asc"}]}`
	res, err := s.client.Search(
		s.client.Search.WithContext(ctx),
		s.client.Search.WithIndex(s.index),
		s.client.Search.WithBody(strings.NewReader(body)),
	)
	if err != nil {
		return nil, errors.Wrap(err, "search tool index")
	}
	defer res.Body.Close()

	if res.StatusCode == http.StatusNotFound {
		return nil, nil
	}

	var raw struct {
		Hits struct {
			Hits []struct {
				Source Record `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := decodeBody(res.Body, res.Status(), &raw); err != nil {
		return nil, err
	}

	recs := make([]Record, 0, len(raw.Hits.Hits))
	for _, h := range raw.Hits.Hits {
		recs = append(recs, h.Source)
	}
	return recs, nil
}

func (s *ElasticsearchStore) Upsert(ctx context.Context, rec Record) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return errors.Wrap(err, "encode tool record")
	}
	res, err := s.client.Index(
		s.index,
		bytes.NewReader(data),
		s.client.Index.WithContext(ctx),
		s.client.Index.WithDocumentID(rec.Name),
		s.client.Index.WithRefresh("true"),
	)
	if err != nil {
		return errors.Wrapf(err, "index tool %s", rec.Name)
	}
	defer res.Body.Close()
	return decodeBody(res.Body, res.Status(), nil)
}

// Ping checks cluster reachability.
func (s *ElasticsearchStore) Ping(ctx context.Context) error {
	res, err := s.client.Ping(s.client.Ping.WithContext(ctx))
	if err != nil {
		return err
	}
	defer res.Body.Close()
	if res.IsError() {
		return errors.Newf("ping error: %s", res.Status())
	}
	return nil
}

func (s *ElasticsearchStore) Close() error { return nil }

func decodeBody(r io.Reader, status string, into any) error {
	var raw json.RawMessage
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return errors.Wrap(err, "decode response")
	}
	if strings.HasPrefix(status, "4") || strings.HasPrefix(status, "5") {
		var e struct {
			Error any `json:"error"`
		}
		if json.Unmarshal(raw, &e) == nil && e.Error != nil {
			return errors.Newf("elasticsearch error [%s]: %v", status, e.Error)
		}
		return errors.Newf("elasticsearch error: %s", status)
	}
	if into == nil {
		return nil
	}
	return errors.Wrap(json.Unmarshal(raw, into), "decode response")
}
