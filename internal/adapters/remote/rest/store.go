// Package rest implementa remote.EventStore contra un backend estilo
// PostgREST: upsert por id con on_conflict y borrado por filtro id=eq.
package rest

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"care-ledger/internal/platform/httpclient"
	"care-ledger/internal/ports/remote"
)

var ErrNotConfigured = errors.New("rest remote not configured")

const defaultTable = "care_events"

type Config struct {
	BaseURL string // p.ej. https://xyz.example.co
	APIKey  string // se manda como apikey y como Bearer
	Table   string // default care_events

	Timeout time.Duration
}

type Store struct {
	c     *httpclient.Client
	table string
}

func New(cfg Config) (*Store, error) {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		return nil, ErrNotConfigured
	}
	headers := map[string]string{}
	if key := strings.TrimSpace(cfg.APIKey); key != "" {
		headers["apikey"] = key
		headers["Authorization"] = "Bearer " + key
	}
	c, err := httpclient.New(httpclient.Options{
		BaseURL: cfg.BaseURL,
		Timeout: cfg.Timeout,
		Headers: headers,
	})
	if err != nil {
		return nil, err
	}
	return NewWithClient(c, cfg.Table), nil
}

// NewWithClient permite inyectar el client (tests).
func NewWithClient(c *httpclient.Client, table string) *Store {
	table = strings.TrimSpace(table)
	if table == "" {
		table = defaultTable
	}
	return &Store{c: c, table: table}
}

// Upsert inserta el evento; si el id ya existe no hace nada, así repetir el
// mismo id nunca crea una fila duplicada.
func (s *Store) Upsert(ctx context.Context, e remote.Event) error {
	if strings.TrimSpace(e.ID) == "" {
		return errors.New("rest: event id required")
	}
	err := s.c.Do(ctx, httpclient.Request{
		Method:  http.MethodPost,
		Path:    s.path(),
		Query:   url.Values{"on_conflict": {"id"}},
		Headers: map[string]string{"Prefer": "resolution=ignore-duplicates,return=minimal"},
		Body:    []remote.Event{e},
	}, nil)
	if httpclient.IsStatus(err, http.StatusConflict) {
		// Backends sin soporte de on_conflict: 409 = ya existe.
		return nil
	}
	if err != nil {
		return fmt.Errorf("rest: upsert %s: %w", e.ID, err)
	}
	return nil
}

// Delete es idempotente: borrar un id inexistente no es error.
func (s *Store) Delete(ctx context.Context, id string) error {
	err := s.c.Do(ctx, httpclient.Request{
		Method:  http.MethodDelete,
		Path:    s.path(),
		Query:   url.Values{"id": {"eq." + id}},
		Headers: map[string]string{"Prefer": "return=minimal"},
	}, nil)
	if httpclient.IsStatus(err, http.StatusNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("rest: delete %s: %w", id, err)
	}
	return nil
}

func (s *Store) path() string {
	return "/rest/v1/" + url.PathEscape(s.table)
}
