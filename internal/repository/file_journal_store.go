package repository

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"tradeledger/internal/domain"
)

// FileJournalStore keeps one JSON file per journal key in a directory
type FileJournalStore struct {
	dir      string
	defaults domain.Defaulter
	logger   *zap.Logger

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewFileJournalStore creates the journal directory if needed
func NewFileJournalStore(dir string, defaults domain.Defaulter, logger *zap.Logger) (*FileJournalStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create journal dir: %w", err)
	}
	return &FileJournalStore{
		dir:      dir,
		defaults: defaults,
		logger:   logger,
		locks:    make(map[string]*sync.Mutex),
	}, nil
}

func (s *FileJournalStore) lock(key string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[key]
	if !ok {
		l = &sync.Mutex{}
		s.locks[key] = l
	}
	return l
}

func (s *FileJournalStore) path(key string) (string, error) {
	if key == "" || strings.ContainsAny(key, `/\`) || strings.Contains(key, "..") {
		return "", fmt.Errorf("invalid journal key %q", key)
	}
	return filepath.Join(s.dir, key+".json"), nil
}

// Read returns the journal for key, creating or repairing it when needed
func (s *FileJournalStore) Read(ctx context.Context, key string) (*domain.Document, error) {
	p, err := s.path(key)
	if err != nil {
		return nil, err
	}

	l := s.lock(key)
	l.Lock()
	defer l.Unlock()

	data, err := os.ReadFile(p)
	if errors.Is(err, fs.ErrNotExist) {
		doc := s.defaults.DefaultDocument(key)
		if err := s.writeLocked(p, doc); err != nil {
			return nil, err
		}
		s.logger.Info("journal created", zap.String("journal", key))
		return doc, nil
	}
	if err != nil {
		s.logger.Error("failed to read journal, using defaults", zap.String("journal", key), zap.Error(err))
		return s.repairLocked(key, p), nil
	}

	doc, err := decodeDocument(data, key, s.defaults)
	if err != nil {
		s.logger.Error("failed to parse journal, using defaults", zap.String("journal", key), zap.Error(err))
		return s.repairLocked(key, p), nil
	}
	return doc, nil
}

// repairLocked moves an unreadable file aside and writes a default document in its place
func (s *FileJournalStore) repairLocked(key, p string) *domain.Document {
	backup := fmt.Sprintf("%s.corrupt-%d", p, time.Now().Unix())
	if err := os.Rename(p, backup); err != nil && !errors.Is(err, fs.ErrNotExist) {
		s.logger.Warn("failed to keep unreadable journal", zap.String("journal", key), zap.Error(err))
	}

	doc := s.defaults.DefaultDocument(key)
	if err := s.writeLocked(p, doc); err != nil {
		s.logger.Error("corrective journal write failed", zap.String("journal", key), zap.Error(err))
	}
	return doc
}

// Write replaces the journal for key via a temp file and rename
func (s *FileJournalStore) Write(ctx context.Context, key string, doc *domain.Document) error {
	p, err := s.path(key)
	if err != nil {
		return err
	}

	l := s.lock(key)
	l.Lock()
	defer l.Unlock()

	return s.writeLocked(p, doc)
}

func (s *FileJournalStore) writeLocked(p string, doc *domain.Document) error {
	data, err := encodeDocument(doc)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(s.dir, filepath.Base(p)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp journal: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write temp journal: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to sync temp journal: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp journal: %w", err)
	}
	if err := os.Rename(tmpName, p); err != nil {
		return fmt.Errorf("failed to replace journal: %w", err)
	}
	return nil
}
