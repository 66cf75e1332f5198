package bulk

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/mgaray/debtbase/internal/core"
	"github.com/mgaray/debtbase/internal/domain"
	"github.com/mgaray/debtbase/internal/logging"
	"github.com/mgaray/debtbase/internal/repository"
)

// CommitResult reports what a commit actually did. Skipped counts rows
// whose target vanished or whose change another job already applied;
// a row that fails re-validation aborts the whole commit instead.
type CommitResult struct {
	JobID    uuid.UUID        `json:"job_id"`
	Inserted int              `json:"inserted"`
	Updated  int              `json:"updated"`
	Deleted  int              `json:"deleted"`
	Skipped  int              `json:"skipped"`
	Status   domain.JobStatus `json:"status"`
}

// Commit applies the applicable staged rows of a ready job as one
// transaction: lock job, check staging drift, re-validate every row
// against the current table, allocate keys for keyless inserts, write
// the mutations, append the audit trail and mark the job committed.
// Any error rolls the whole thing back and the job stays ready.
func (s *Service) Commit(ctx context.Context, jobID uuid.UUID, actor string) (*CommitResult, error) {
	log := logging.FromContext(ctx)

	var result *CommitResult
	err := s.tx.InTx(ctx, func(store *repository.Store) error {
		res, err := s.commitTx(ctx, store, jobID, actor)
		if err != nil {
			return err
		}
		result = res
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Info("bulk commit finished",
		"job_id", jobID,
		"inserted", result.Inserted,
		"updated", result.Updated,
		"deleted", result.Deleted,
		"skipped", result.Skipped)
	return result, nil
}

func (s *Service) commitTx(ctx context.Context, store *repository.Store, jobID uuid.UUID, actor string) (*CommitResult, error) {
	job, err := store.Jobs.GetForUpdate(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if job.Status != domain.StatusReady {
		return nil, core.ErrJobNotReady
	}

	current, err := store.Staging.Summary(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if current != job.Summary {
		return nil, core.ErrStaleStaging
	}

	applicable, err := store.Staging.ListApplicable(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if len(applicable) == 0 {
		return nil, core.ErrNoApplicableRows
	}

	env, err := s.loadEnvironment(ctx, store)
	if err != nil {
		return nil, err
	}

	keys := make([]string, 0, len(applicable))
	for _, row := range applicable {
		if !domain.IsPlaceholderKey(row.BusinessKey) {
			keys = append(keys, row.BusinessKey)
		}
	}
	existing, err := store.Records.FetchByKeys(ctx, keys)
	if err != nil {
		return nil, err
	}

	plan := commitPlan{actor: actor, jobID: jobID}
	for _, row := range applicable {
		if err := s.planRow(ctx, env, &plan, row, existing); err != nil {
			return nil, err
		}
	}

	if err := s.assignInsertKeys(ctx, store, &plan); err != nil {
		return nil, err
	}

	updated, err := store.Records.UpdateBatch(ctx, plan.updates)
	if err != nil {
		return nil, err
	}
	if err := store.Records.InsertBatch(ctx, plan.insertRecords()); err != nil {
		return nil, err
	}
	deleted, err := store.Records.DeleteByKeys(ctx, plan.deletes)
	if err != nil {
		return nil, err
	}

	if err := store.Audit.AppendBatch(ctx, plan.buildAudit(s.now())); err != nil {
		return nil, err
	}

	committedAt := s.now()
	if err := store.Jobs.SetStatus(ctx, jobID, domain.StatusCommitted, &committedAt); err != nil {
		return nil, err
	}

	return &CommitResult{
		JobID:    jobID,
		Inserted: len(plan.inserts),
		Updated:  int(updated),
		Deleted:  int(deleted),
		Skipped:  plan.skipped,
		Status:   domain.StatusCommitted,
	}, nil
}

// plannedInsert is an insert waiting for its final business key.
type plannedInsert struct {
	stagingKey string
	key        string // empty until allocated for placeholder rows
	fields     map[string]*string
}

type commitPlan struct {
	actor   string
	jobID   uuid.UUID
	updates []repository.RecordUpdate
	inserts []plannedInsert
	deletes []string
	skipped int

	auditUpdates []auditedChange
	auditDeletes []string
}

type auditedChange struct {
	key     string
	changes map[string]domain.FieldChange
	action  domain.AuditAction
}

// planRow re-validates one staged row against the current table state
// and files it into the plan. A vanished target or an already-applied
// change is skipped; a business-rule violation aborts the commit.
func (s *Service) planRow(ctx context.Context, env *environment, plan *commitPlan,
	row domain.StagedChange, existing map[string]*domain.DebtRecord) error {

	rec := existing[row.BusinessKey]

	if row.Op == domain.OpDelete {
		if rec == nil {
			plan.skipped++
			return nil
		}
		plan.deletes = append(plan.deletes, row.BusinessKey)
		plan.auditDeletes = append(plan.auditDeletes, row.BusinessKey)
		return nil
	}

	if row.Op == domain.OpUpdate && rec == nil {
		// Target vanished between validate and commit.
		plan.skipped++
		return nil
	}

	proposed := make(map[string]core.Value, len(row.Payload))
	for name, v := range row.Payload {
		if v == nil {
			proposed[name] = core.Null
			continue
		}
		proposed[name] = core.String(*v)
	}

	key := row.BusinessKey
	if domain.IsPlaceholderKey(key) {
		key = ""
	}

	// The payload is stored pre-coerced, but the entity catalogue can
	// shrink between validate and commit; re-resolve the reference
	// against the transaction's lookup.
	if v, ok := proposed["entidad"]; ok && v.Valid {
		if id, convErr := strconv.ParseInt(v.Str, 10, 64); convErr == nil {
			if _, found := env.entities.ByID(id); !found {
				return fmt.Errorf("%w: %s: entidad %d inexistente",
					core.ErrRevalidationFailed, row.BusinessKey, id)
			}
		}
	}

	ruleErrs, err := core.Validate(ctx, core.RuleInput{
		Op:        row.Op,
		Key:       key,
		Proposed:  proposed,
		Submitted: proposed,
		Existing:  rec,
		Today:     s.now(),
		Conflict:  env.conflict,
	})
	if err != nil {
		return err
	}
	if len(ruleErrs) > 0 {
		return fmt.Errorf("%w: %s: %s",
			core.ErrRevalidationFailed, row.BusinessKey, strings.Join(ruleErrs, "; "))
	}

	diff := core.Diff(core.DiffInput{
		Proposed: proposed,
		Existing: rec,
		// Validate-time policy already gated these; staged ops only
		// reach commit if they were allowed.
		AllowInserts: true,
		AllowDeletes: true,
	})

	switch diff.Op {
	case domain.OpUpdate:
		fields := make(map[string]*string, len(diff.Changes))
		for name, ch := range diff.Changes {
			fields[name] = ch.New
		}
		plan.updates = append(plan.updates, repository.RecordUpdate{Key: row.BusinessKey, Fields: fields})
		plan.auditUpdates = append(plan.auditUpdates, auditedChange{
			key: row.BusinessKey, changes: diff.Changes, action: domain.AuditUpdate,
		})
	case domain.OpInsert:
		plan.inserts = append(plan.inserts, plannedInsert{
			stagingKey: row.BusinessKey,
			key:        key, // keeps an explicit key, empty for placeholders
			fields:     row.Payload,
		})
	default:
		// Re-diff says nothing to do: another job already applied it.
		plan.skipped++
	}
	return nil
}

// assignInsertKeys gives every placeholder insert its final sequential
// key, in file order, from one allocator block.
func (s *Service) assignInsertKeys(ctx context.Context, store *repository.Store, plan *commitPlan) error {
	var pending []*plannedInsert
	for i := range plan.inserts {
		if plan.inserts[i].key == "" {
			pending = append(pending, &plan.inserts[i])
		}
	}
	if len(pending) == 0 {
		return nil
	}

	sort.Slice(pending, func(i, j int) bool {
		li, _ := domain.PlaceholderLine(pending[i].stagingKey)
		lj, _ := domain.PlaceholderLine(pending[j].stagingKey)
		return li < lj
	})

	ids, err := store.Counter.AllocateBlock(ctx, len(pending), store.Records.MaxNumericKey)
	if err != nil {
		return err
	}
	for i, ins := range pending {
		ins.key = formatKey(ids[i])
	}
	return nil
}

func (p *commitPlan) insertRecords() []repository.RecordInsert {
	records := make([]repository.RecordInsert, len(p.inserts))
	for i, ins := range p.inserts {
		records[i] = repository.RecordInsert{Key: ins.key, Fields: ins.fields}
	}
	return records
}

// buildAudit emits one entry per changed field, one per inserted row
// field plus one for the row's assigned business key, and one whole-row
// entry per delete.
func (p *commitPlan) buildAudit(now time.Time) []domain.AuditEntry {
	jobID := p.jobID
	var entries []domain.AuditEntry

	add := func(key, field string, old, new *string, action domain.AuditAction) {
		entries = append(entries, domain.AuditEntry{
			TableName:   domain.RecordTable,
			BusinessKey: key,
			Field:       field,
			OldValue:    old,
			NewValue:    new,
			JobID:       &jobID,
			Action:      action,
			Actor:       p.actor,
			CreatedAt:   now,
		})
	}

	for _, au := range p.auditUpdates {
		for field, ch := range au.changes {
			add(au.key, field, ch.Old, ch.New, au.action)
		}
	}
	for _, ins := range p.inserts {
		key := ins.key
		add(ins.key, domain.BusinessKeyField, nil, &key, domain.AuditInsert)
		for _, spec := range core.Fields().Specs() {
			val, ok := ins.fields[spec.Name]
			if !ok || val == nil {
				continue
			}
			add(ins.key, spec.Name, nil, val, domain.AuditInsert)
		}
	}
	for _, key := range p.auditDeletes {
		add(key, domain.WholeRowField, nil, nil, domain.AuditDelete)
	}
	return entries
}

func formatKey(id int64) string {
	return strconv.FormatInt(id, 10)
}
