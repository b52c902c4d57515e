package badger

// NewMemoryStore creates an in-memory document repository and word index
// for testing. Returns docRepo, wordIndex, backend, and error.
// Caller must close the repo and backend when done.
func NewMemoryStore() (*DocumentRepository, *WordIndex, *Backend, error) {
	backend, err := OpenBackend("", true)
	if err != nil {
		return nil, nil, nil, err
	}

	docRepo, err := NewDocumentRepository(backend)
	if err != nil {
		backend.Close()
		return nil, nil, nil, err
	}

	return docRepo, NewWordIndex(backend), backend, nil
}
