// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

package model

import (
	"context"
	"fmt"
	"sort"
	"sync"

	apperr "clo/cli/internal/errors"
	"clo/cli/internal/logging"
	"clo/cli/internal/session"
)

// DirectoryModel is the meta-model listing every model of an instance.
const DirectoryModel = "ir.model"

// Entry describes one model of the directory.
type Entry struct {
	Model string
	Name  string
	Info  string
}

// Registry caches model handles by name and validates names against the model
// directory of the instance. The directory is fetched at most once.
type Registry struct {
	sess *session.Session
	log  *logging.Logger

	mu        sync.Mutex
	handles   map[string]*Model
	directory map[string]Entry
}

// NewRegistry returns an empty registry calling through sess.
func NewRegistry(sess *session.Session, log *logging.Logger) *Registry {
	return &Registry{sess: sess, log: log, handles: map[string]*Model{}}
}

// Get returns the cached handle for name without validating it.
func (r *Registry) Get(name string) *Model {
	r.mu.Lock()
	defer r.mu.Unlock()
	if m, ok := r.handles[name]; ok {
		return m
	}
	m := New(name, r.sess, r.log)
	r.handles[name] = m
	return m
}

// Lookup returns the handle for name after checking that the instance knows the
// model. An unknown name is fatal with status 20. The directory model itself is
// never validated, since fetching the directory goes through it.
func (r *Registry) Lookup(ctx context.Context, name string) (*Model, error) {
	if name == DirectoryModel {
		return r.Get(name), nil
	}
	dir, err := r.Directory(ctx)
	if err != nil {
		return nil, err
	}
	if _, ok := dir[name]; !ok {
		return nil, r.log.Fatal(apperr.CodeUnknownModel, fmt.Sprintf("Model %q does not exist on %s", name, r.sess.URL()))
	}
	return r.Get(name), nil
}

// Directory returns every model of the instance keyed by name.
func (r *Registry) Directory(ctx context.Context) (map[string]Entry, error) {
	r.mu.Lock()
	dir := r.directory
	r.mu.Unlock()
	if dir != nil {
		return dir, nil
	}

	recs, err := r.Get(DirectoryModel).Find(ctx, nil, Query{Fields: []string{"model", "name", "info"}})
	if err != nil {
		return nil, err
	}
	dir = make(map[string]Entry, len(recs))
	for _, rec := range recs {
		e := Entry{}
		e.Model, _ = rec["model"].(string)
		e.Name, _ = rec["name"].(string)
		e.Info, _ = rec["info"].(string)
		if e.Model != "" {
			dir[e.Model] = e
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.directory == nil {
		r.directory = dir
	}
	return r.directory, nil
}

// Entries returns the directory sorted by model name.
func (r *Registry) Entries(ctx context.Context) ([]Entry, error) {
	dir, err := r.Directory(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]Entry, 0, len(dir))
	for _, e := range dir {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Model < out[j].Model })
	return out, nil
}
