package ingest

import (
	"slices"
	"sync"

	"vidconv/internal/logging"
)

// Pending holds staged uploads awaiting confirmation. Their capacity is
// already reserved.
type Pending struct {
	mu    sync.Mutex
	files []StoredFile
}

// Add appends staged files.
func (p *Pending) Add(files ...StoredFile) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.files = append(p.files, files...)
}

// List returns a copy of the staged files in upload order.
func (p *Pending) List() []StoredFile {
	p.mu.Lock()
	defer p.mu.Unlock()
	return slices.Clone(p.files)
}

// Take removes and returns every staged file.
func (p *Pending) Take() []StoredFile {
	p.mu.Lock()
	defer p.mu.Unlock()
	files := p.files
	p.files = nil
	return files
}

// Cancel deletes every staged file and releases its reservation. It returns
// the number of files discarded.
func (p *Pending) Cancel(stager *Stager) int {
	files := p.Take()
	for _, file := range files {
		if err := stager.Delete(file.Name); err != nil {
			stager.logger.Warn("failed to delete staged upload", logging.String("stored_name", file.Name), logging.Error(err))
		}
		if stager.reserver != nil {
			stager.reserver.Credit(file.Size)
		}
	}
	return len(files)
}
