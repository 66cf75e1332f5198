package bulk

import (
	"context"

	"github.com/mgaray/debtbase/internal/domain"
	"github.com/mgaray/debtbase/internal/logging"
	"github.com/mgaray/debtbase/internal/repository"
)

// GetRecord returns one live record by business key.
func (s *Service) GetRecord(ctx context.Context, key string) (*domain.DebtRecord, error) {
	return s.store.Records.GetByKey(ctx, key)
}

// DeleteRecord removes one record outside any bulk job, leaving a
// whole-row audit entry with no job reference.
func (s *Service) DeleteRecord(ctx context.Context, key, actor string) error {
	log := logging.FromContext(ctx)

	err := s.tx.InTx(ctx, func(store *repository.Store) error {
		if _, err := store.Records.GetByKey(ctx, key); err != nil {
			return err
		}
		if _, err := store.Records.DeleteByKeys(ctx, []string{key}); err != nil {
			return err
		}
		return store.Audit.AppendBatch(ctx, []domain.AuditEntry{{
			TableName:   domain.RecordTable,
			BusinessKey: key,
			Field:       domain.WholeRowField,
			Action:      domain.AuditDelete,
			Actor:       actor,
			CreatedAt:   s.now(),
		}})
	})
	if err != nil {
		return err
	}

	log.Info("record deleted", "business_key", key, "actor", actor)
	return nil
}

// Entities lists the issuing-entity catalogue for UI pickers.
func (s *Service) Entities(ctx context.Context) ([]domain.Entidad, error) {
	return s.store.Entities.ListAll(ctx)
}
