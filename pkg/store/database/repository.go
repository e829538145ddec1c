package database

import "gpuprices/pkg/config"

// Repository aggregates the price store repositories
type Repository struct {
	ds *Datastore

	PriceRecord *PriceRecordRepository
	Snapshot    *SnapshotRepository
}

// NewRepository opens the price store and creates all sub-repositories
func NewRepository(cfg config.StoreConfig) (*Repository, error) {
	ds, err := NewDatastore(cfg)
	if err != nil {
		return nil, err
	}

	return &Repository{
		ds:          ds,
		PriceRecord: NewPriceRecordRepository(ds),
		Snapshot:    NewSnapshotRepository(ds),
	}, nil
}

// GetDatastore returns the underlying datastore for transaction support
func (r *Repository) GetDatastore() *Datastore {
	return r.ds
}

// Close closes the database connection
func (r *Repository) Close() error {
	return r.ds.Close()
}
