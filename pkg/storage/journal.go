package storage

import (
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/uhyunpark/darkpool/pkg/engine"
)

type NopJournal struct{}

func NewNopJournal() *NopJournal      { return &NopJournal{} }
func (j *NopJournal) Append(_ string) {}

// FileJournal is the append-only settlement journal: one timestamped line
// per settlement outcome, flushed in submission order.
type FileJournal struct {
	mu sync.Mutex
	f  *os.File
}

func NewFileJournal(path string) (*FileJournal, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, err
	}
	return &FileJournal{f: f}, nil
}

func (j *FileJournal) Append(line string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	fmt.Fprintf(j.f, "%s %s\n", time.Now().UTC().Format(time.RFC3339Nano), line)
}

func (j *FileJournal) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.f.Close()
}

var _ engine.Journal = (*NopJournal)(nil)
var _ engine.Journal = (*FileJournal)(nil)
