package store

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
)

// indexHeader is the first row of index.csv. Fields match the original
// column names so existing index files remain readable.
var indexHeader = []string{"time", "article_name", "rss_subscription_name", "path"}

// IndexRecord is one row of the append-only ingestion log.
type IndexRecord struct {
	Time     string
	Title    string
	FeedName string
	Path     string
}

// appendIndex appends one record to index.csv and flushes before returning.
// Appends are serialized: the mutex covers goroutines in this process, the
// advisory file lock covers other processes sharing the store directory.
// Rows are only ever appended, never rewritten.
func (s *Store) appendIndex(rec IndexRecord) error {
	s.indexMu.Lock()
	defer s.indexMu.Unlock()

	if err := s.indexLock.Lock(); err != nil {
		return fmt.Errorf("lock index: %w", err)
	}
	defer s.indexLock.Unlock()

	f, err := os.OpenFile(s.indexPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("open index for append: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{rec.Time, rec.Title, rec.FeedName, rec.Path}); err != nil {
		return fmt.Errorf("append index row: %w", err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("flush index: %w", err)
	}
	return nil
}

// ensureIndexHeader writes the header row if index.csv is missing or empty.
func (s *Store) ensureIndexHeader() error {
	s.indexMu.Lock()
	defer s.indexMu.Unlock()

	if err := s.indexLock.Lock(); err != nil {
		return fmt.Errorf("lock index: %w", err)
	}
	defer s.indexLock.Unlock()

	info, err := os.Stat(s.indexPath)
	if err == nil && info.Size() > 0 {
		return nil
	}
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("stat index: %w", err)
	}

	f, err := os.OpenFile(s.indexPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("open index: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(indexHeader); err != nil {
		return fmt.Errorf("write index header: %w", err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("flush index header: %w", err)
	}
	return nil
}

// History parses the accumulated index rows, oldest first. The header row is
// skipped. A reader racing an in-progress append sees only whole rows
// because each append is a single write-then-flush.
func (s *Store) History() ([]IndexRecord, error) {
	f, err := os.Open(s.indexPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("open index: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = len(indexHeader)

	var records []IndexRecord
	first := true
	for {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read index: %w", err)
		}
		if first {
			first = false
			continue
		}
		records = append(records, IndexRecord{
			Time:     row[0],
			Title:    row[1],
			FeedName: row[2],
			Path:     row[3],
		})
	}
	return records, nil
}
