package bulk

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"

	"github.com/google/uuid"

	"github.com/mgaray/debtbase/internal/core"
	"github.com/mgaray/debtbase/internal/domain"
	"github.com/mgaray/debtbase/internal/logging"
	"github.com/mgaray/debtbase/internal/repository"
)

// PreviewRow is one staged row as shown to the reviewer.
type PreviewRow struct {
	Line    int                           `json:"linea"`
	Key     string                        `json:"clave"`
	Op      domain.Operation              `json:"op"`
	Errors  []string                      `json:"errores"`
	Changes map[string]domain.FieldChange `json:"cambios"`
}

// ValidateResult is the outcome of a validate pass.
type ValidateResult struct {
	JobID            uuid.UUID         `json:"job_id"`
	Summary          domain.JobSummary `json:"resumen"`
	Preview          []PreviewRow      `json:"preview"`
	PreviewTruncated bool              `json:"preview_truncado"`
}

// Validate parses the uploaded file, classifies every row against the
// live table and stages the result under a new job. The live table is
// only read; all decisions wait for an explicit commit.
func (s *Service) Validate(ctx context.Context, filename string, payload []byte, actor string) (*ValidateResult, error) {
	log := logging.FromContext(ctx)

	pf, err := core.ParseFile(filename, payload)
	if err != nil {
		return nil, err
	}
	if len(pf.Rows) == 0 {
		return nil, core.ErrEmptyFile
	}

	hash := sha256.Sum256(payload)
	job := domain.BulkJob{
		ID:          uuid.New(),
		Filename:    filename,
		ContentHash: hex.EncodeToString(hash[:]),
		CreatedBy:   actor,
		Status:      domain.StatusReady,
		CreatedAt:   s.now(),
	}
	if err := s.store.Jobs.Create(ctx, job); err != nil {
		return nil, err
	}

	env, err := s.loadEnvironment(ctx, s.store)
	if err != nil {
		return nil, err
	}

	// Normalize keys up front so the current records come back in one
	// round trip.
	keys := make([]string, 0, len(pf.Rows))
	rowKeys := make([]string, len(pf.Rows))
	for i, row := range pf.Rows {
		kv := core.NormalizeBusinessKey(row.Cells[domain.BusinessKeyField])
		if kv.Valid {
			rowKeys[i] = kv.Str
			keys = append(keys, kv.Str)
		}
	}
	existing, err := s.store.Records.FetchByKeys(ctx, keys)
	if err != nil {
		return nil, err
	}

	result := &ValidateResult{JobID: job.ID}
	for i, row := range pf.Rows {
		staged, preview, err := s.stageRow(ctx, env, job.ID, row, rowKeys[i], pf.Unknown, existing)
		if err != nil {
			return nil, err
		}
		if err := s.store.Staging.Upsert(ctx, staged); err != nil {
			return nil, err
		}
		result.Summary.Count(staged.Op, staged.CanApply)

		if s.cfg.PreviewRows > 0 && len(result.Preview) >= s.cfg.PreviewRows {
			result.PreviewTruncated = true
			continue
		}
		result.Preview = append(result.Preview, preview)
	}

	if err := s.store.Jobs.UpdateSummary(ctx, job.ID, result.Summary); err != nil {
		return nil, err
	}

	log.Info("bulk validate finished",
		"job_id", job.ID,
		"filename", filename,
		"total", result.Summary.Total,
		"ok", result.Summary.OK,
		"con_errores", result.Summary.ConErrores)
	return result, nil
}

// environment is the per-call lookup state. It is rebuilt from the
// given store on every validate and commit and never cached across
// calls; commit passes its transaction-bound store so re-validation
// sees exactly what will be written.
type environment struct {
	entities *core.EntityLookup
	coercer  *core.Coercer
	conflict core.ConflictFn
}

func (s *Service) loadEnvironment(ctx context.Context, store *repository.Store) (*environment, error) {
	list, err := store.Entities.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	byID := make(map[int64]string, len(list))
	for _, e := range list {
		byID[e.ID] = e.Nombre
	}
	lookup := core.NewEntityLookup(byID)

	return &environment{
		entities: lookup,
		coercer:  core.NewCoercer(core.Fields(), lookup, s.cfg.ValidateTaxIDs),
		conflict: func(ctx context.Context, dni string, entidadID int64, excludeKey string) (bool, error) {
			return store.Records.HasResolvedConflict(ctx, dni, entidadID, excludeKey)
		},
	}, nil
}

// stageRow runs one row through the full pipeline: normalize, coerce,
// rule-check, diff, and returns the staged decision plus its preview.
func (s *Service) stageRow(ctx context.Context, env *environment, jobID uuid.UUID,
	row core.ParsedRow, key string, unknown []string,
	existing map[string]*domain.DebtRecord) (domain.StagedChange, PreviewRow, error) {

	var errs []string
	for _, h := range unknown {
		errs = append(errs, fmt.Sprintf("columna desconocida: %s", h))
	}

	stagingKey := key
	keyless := key == ""
	if keyless {
		stagingKey = domain.PlaceholderKey(row.Line)
		if row.Hint == domain.OpUpdate || row.Hint == domain.OpDelete || row.Hint == domain.OpNoChange {
			errs = append(errs, fmt.Sprintf("%s: requerido para %s", domain.BusinessKeyField, row.Hint))
			staged := s.newStagedChange(jobID, stagingKey, row.Hint, nil, errs)
			return staged, previewOf(row.Line, staged, nil), nil
		}
	}

	var rec *domain.DebtRecord
	if !keyless {
		rec = existing[key]
	}

	normalized := core.NormalizeRow(row.Cells)
	submitted := make(map[string]core.Value, len(normalized))
	proposed := make(map[string]core.Value, len(normalized))
	for name, v := range normalized {
		spec, ok := core.Fields().Get(name)
		if !ok {
			continue
		}
		cv, msg := env.coercer.Coerce(spec, v)
		if msg != "" {
			errs = append(errs, msg)
			continue
		}
		submitted[name] = cv
		if name == domain.BusinessKeyField {
			continue
		}
		// Non-editable columns only flow into new rows; on updates the
		// immutable check decides whether their presence is an error.
		if spec.Editable || rec == nil {
			proposed[name] = cv
		}
	}

	diff := core.Diff(core.DiffInput{
		Proposed:     proposed,
		Existing:     rec,
		Hint:         row.Hint,
		AllowInserts: s.cfg.AllowInserts,
		AllowDeletes: s.cfg.AllowDeletes,
	})
	errs = append(errs, diff.Errors...)

	if diff.Op == domain.OpInsert || diff.Op == domain.OpUpdate {
		ruleErrs, err := core.Validate(ctx, core.RuleInput{
			Op:        diff.Op,
			Key:       key,
			Proposed:  proposed,
			Submitted: submitted,
			Existing:  rec,
			Today:     s.now(),
			Conflict:  env.conflict,
		})
		if err != nil {
			return domain.StagedChange{}, PreviewRow{}, err
		}
		errs = append(errs, ruleErrs...)
	}

	payload := make(map[string]*string, len(proposed))
	for name, v := range proposed {
		if v.Valid {
			payload[name] = v.Ptr()
		}
	}

	staged := s.newStagedChange(jobID, stagingKey, diff.Op, payload, errs)
	return staged, previewOf(row.Line, staged, displayChanges(env.entities, diff.Changes)), nil
}

// displayChanges renders entity references as "id · nombre" for the
// preview. The staged payload keeps the canonical numeric id.
func displayChanges(entities *core.EntityLookup, changes map[string]domain.FieldChange) map[string]domain.FieldChange {
	out := make(map[string]domain.FieldChange, len(changes))
	for name, ch := range changes {
		if spec, ok := core.Fields().Get(name); ok && spec.Type == core.FieldEntityRef {
			ch.Old = displayRef(entities, ch.Old)
			ch.New = displayRef(entities, ch.New)
		}
		out[name] = ch
	}
	return out
}

func displayRef(entities *core.EntityLookup, v *string) *string {
	if v == nil {
		return nil
	}
	id, err := strconv.ParseInt(*v, 10, 64)
	if err != nil {
		return v
	}
	d := entities.Display(id)
	return &d
}

func (s *Service) newStagedChange(jobID uuid.UUID, key string, op domain.Operation,
	payload map[string]*string, errs []string) domain.StagedChange {
	if payload == nil {
		payload = map[string]*string{}
	}
	if errs == nil {
		errs = []string{}
	}
	return domain.StagedChange{
		JobID:       jobID,
		BusinessKey: key,
		Op:          op,
		Payload:     payload,
		Errors:      errs,
		CanApply:    len(errs) == 0 && op.Mutating(),
		CreatedAt:   s.now(),
	}
}

func previewOf(line int, staged domain.StagedChange, changes map[string]domain.FieldChange) PreviewRow {
	if changes == nil {
		changes = map[string]domain.FieldChange{}
	}
	return PreviewRow{
		Line:    line,
		Key:     staged.BusinessKey,
		Op:      staged.Op,
		Errors:  staged.Errors,
		Changes: changes,
	}
}
