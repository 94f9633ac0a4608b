package main

import (
	"encoding/json"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/Priyanshu23/TieredIndexGo/partition"
)

// server exposes the index over HTTP. Write exclusion is per partition,
// inside the partition map.
type server struct {
	partitions *partition.Map
	log        *zap.Logger
}

func newServer(partitions *partition.Map, log *zap.Logger) *server {
	return &server{partitions: partitions, log: log}
}

func (s *server) handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/index", s.handleIndex)
	mux.HandleFunc("/search", s.handleSearch)

	return mux
}

// handleIndex accepts a JSON array of [partition, key, value] triples.
func (s *server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var triples [][]string
	if err := json.NewDecoder(r.Body).Decode(&triples); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	batch := make(map[string]map[string][]string)
	for i, triple := range triples {
		// A fixed-size array decode would pad or discard silently; reject
		// anything that is not exactly [partition, key, value].
		if len(triple) != 3 {
			http.Error(w, fmt.Sprintf("triple %d has %d elements, want 3", i, len(triple)), http.StatusBadRequest)
			return
		}
		part, key, value := triple[0], triple[1], triple[2]

		entries, ok := batch[part]
		if !ok {
			entries = make(map[string][]string)
			batch[part] = entries
		}
		entries[key] = append(entries[key], value)
	}

	if err := s.partitions.Index(batch); err != nil {
		s.log.Error("index failed", zap.Error(err))
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	s.log.Info("indexed batch", zap.Int("triples", len(triples)))
	w.Write([]byte("ok"))
}

type searchRequest struct {
	Query map[string][]string `json:"query"`
	Limit *int                `json:"limit"`
}

type searchResponse struct {
	Values []string `json:"values"`
}

// handleSearch resolves {"query": {partition: [key, ...]}, "limit": n?} and
// responds with the matched values as JSON.
func (s *server) handleSearch(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	limit := -1
	if req.Limit != nil {
		limit = *req.Limit
	}

	var queries []partition.Query
	for part, keys := range req.Query {
		for _, key := range keys {
			queries = append(queries, partition.Query{Partition: part, Key: key})
		}
	}

	values, err := s.partitions.Search(queries, limit)
	if err != nil {
		s.log.Error("search failed", zap.Error(err))
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	s.log.Info("search served",
		zap.Int("queries", len(queries)),
		zap.Int("values", len(values)))

	w.Header().Set("Content-Type", "application/json")
	if values == nil {
		values = []string{}
	}
	_ = json.NewEncoder(w).Encode(searchResponse{Values: values})
}
